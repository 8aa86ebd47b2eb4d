package simplemedia

import "time"

// EventType names a change event.
type EventType string

const (
	EventTest            EventType = "test"
	EventPlaylistCreated EventType = "playlist-created"
	EventPlaylistUpdated EventType = "playlist-updated"
	EventPlaylistDeleted EventType = "playlist-deleted"
	EventMediaCreated    EventType = "media-created"
	EventMediaUpdated    EventType = "media-updated"
	EventMediaDeleted    EventType = "media-deleted"
	EventBindingCreated  EventType = "binding-created"
	EventBindingUpdated  EventType = "binding-updated"
	EventBindingDeleted  EventType = "binding-deleted"
)

// Event is the envelope published on the EventBus.
type Event struct {
	Type      EventType `json:"type"`
	CreatedAt time.Time `json:"created_at"`
	Data      EventData `json:"data"`
}

// EventData carries the row the event is about. Exactly one field is set,
// except for test events which carry none.
type EventData struct {
	Playlist *PlaylistData `json:"playlist,omitempty"`
	Media    *MediaData    `json:"media,omitempty"`
	Binding  *BindingData  `json:"binding,omitempty"`
	Message  string        `json:"message,omitempty"`
}

// PlaylistData is the event payload for a playlist.
type PlaylistData struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// MediaData is the event payload for a media.
type MediaData struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// BindingData is the event payload for a binding.
type BindingData struct {
	ID         string `json:"id"`
	PlaylistID string `json:"playlist_id"`
	MediaID    string `json:"media_id"`
	Rank       string `json:"rank"`
}

func newEvent(t EventType, data EventData) Event {
	return Event{Type: t, CreatedAt: time.Now().UTC(), Data: data}
}

// PlaylistEvent builds an event about p.
func PlaylistEvent(t EventType, p *Playlist) Event {
	return newEvent(t, EventData{Playlist: &PlaylistData{ID: p.ID, Name: p.Name}})
}

// MediaEvent builds an event about m.
func MediaEvent(t EventType, m *Media) Event {
	return newEvent(t, EventData{Media: &MediaData{ID: m.ID, Name: m.Name}})
}

// BindingEvent builds an event about b.
func BindingEvent(t EventType, b *Binding) Event {
	return newEvent(t, EventData{Binding: &BindingData{
		ID:         b.ID,
		PlaylistID: b.PlaylistID,
		MediaID:    b.MediaID,
		Rank:       b.Rank,
	}})
}

// TestEvent builds a test event carrying message.
func TestEvent(message string) Event {
	return newEvent(EventTest, EventData{Message: message})
}
