package simplemedia

import (
	"io"
	"time"

	"github.com/tendant/simple-media/pkg/simplemedia/bridge"
)

// Playlist is an ordered collection of media.
type Playlist struct {
	ID       string     `json:"id"`
	Name     string     `json:"name"`
	Bindings []*Binding `json:"bindings,omitempty"`
}

// Media is a single audio item. Its ID is also the key of its content in the
// BlobStore.
type Media struct {
	ID       string     `json:"id"`
	Name     string     `json:"name"`
	Bindings []*Binding `json:"bindings,omitempty"`
}

// Binding places a media in a playlist at a rank.
type Binding struct {
	ID         string `json:"id"`
	PlaylistID string `json:"playlist_id"`
	MediaID    string `json:"media_id"`
	Rank       string `json:"rank"`
}

// Key selects a playlist or media by ID or by name. Exactly one is set.
type Key struct {
	ID   string
	Name string
}

// ByID selects by ID.
func ByID(id string) Key { return Key{ID: id} }

// ByName selects by name.
func ByName(name string) Key { return Key{Name: name} }

func (k Key) String() string {
	if k.ID != "" {
		return "id=" + k.ID
	}
	return "name=" + k.Name
}

// BindingKey selects a binding by ID or by its position in a playlist.
type BindingKey struct {
	ID         string
	PlaylistID string
	Rank       string
}

// ByBindingID selects a binding by ID.
func ByBindingID(id string) BindingKey { return BindingKey{ID: id} }

// ByPlaylistRank selects the binding at rank in a playlist.
func ByPlaylistRank(playlistID, rank string) BindingKey {
	return BindingKey{PlaylistID: playlistID, Rank: rank}
}

func (k BindingKey) String() string {
	if k.ID != "" {
		return "id=" + k.ID
	}
	return "playlist_id=" + k.PlaylistID + ",rank=" + k.Rank
}

// Include selects related rows to load with a playlist or media.
type Include struct {
	Bindings bool
}

// Order sorts a listing by a column.
type Order struct {
	Field string
	Desc  bool
}

// PlaylistFilter narrows playlist queries. Zero fields match everything.
type PlaylistFilter struct {
	ID   string
	Name string
	IDs  []string
}

// MediaFilter narrows media queries. Zero fields match everything.
type MediaFilter struct {
	ID   string
	Name string
	IDs  []string
}

// BindingFilter narrows binding queries. Zero fields match everything.
type BindingFilter struct {
	ID         string
	PlaylistID string
	MediaID    string
	IDs        []string
}

// IsZero reports whether f matches every binding.
func (f BindingFilter) IsZero() bool {
	return f.ID == "" && f.PlaylistID == "" && f.MediaID == "" && f.IDs == nil
}

// ListPlaylistsParams controls ListPlaylists.
type ListPlaylistsParams struct {
	Filter  PlaylistFilter
	Include Include
	Order   []Order
	Limit   int
	Offset  int
}

// ListMediaParams controls ListMedia.
type ListMediaParams struct {
	Filter  MediaFilter
	Include Include
	Order   []Order
	Limit   int
	Offset  int
}

// ListBindingsParams controls ListBindings.
type ListBindingsParams struct {
	Filter BindingFilter
	Order  []Order
	Limit  int
	Offset int
}

// PlaylistPatch holds the fields to change on a playlist. Nil fields are kept.
type PlaylistPatch struct {
	ID   *string
	Name *string
}

// MediaPatch holds the fields to change on a media. Nil fields are kept.
type MediaPatch struct {
	ID   *string
	Name *string
}

// BindingPatch holds the fields to change on a binding. Nil fields are kept.
type BindingPatch struct {
	PlaylistID *string
	MediaID    *string
	Rank       *string
}

// Sortable columns.
var (
	playlistOrderFields = []string{"id", "name"}
	mediaOrderFields    = []string{"id", "name"}
	bindingOrderFields  = []string{"id", "playlist_id", "media_id", "rank"}
)

// ObjectMeta describes a stored content object.
type ObjectMeta struct {
	Name     string    `json:"name"`
	Type     string    `json:"type"`
	Size     int64     `json:"size"`
	Tag      string    `json:"tag"`
	Modified time.Time `json:"modified"`
}

// Object is a stored content object opened for reading. The caller closes
// Body.
type Object struct {
	ObjectMeta
	Body io.ReadCloser
}

// Content is downloaded media content. Data yields the bytes in order; the
// caller closes it.
type Content struct {
	ObjectMeta
	Data bridge.Stream[[]byte]
}

// UploadContent is media content to store.
type UploadContent struct {
	Type string
	Data bridge.Stream[[]byte]
}

// Download is the result of DownloadMediaContent. Content is nil when the
// media exists but has no content.
type Download struct {
	Media   *Media
	Content *Content
}

// ContentStat is the result of StatMediaContent. Meta is nil when the media
// exists but has no content.
type ContentStat struct {
	Media *Media
	Meta  *ObjectMeta
}

// M3U is a rendered playlist file.
type M3U struct {
	Playlist *Playlist
	Text     string
}
