package simplemedia

import (
	"context"
	"io"
)

// Repository defines playlist, media and binding persistence.
// Lookups that match no row return ErrNotFound.
type Repository interface {
	// Playlist operations
	CountPlaylists(ctx context.Context, filter PlaylistFilter) (int, error)
	ListPlaylists(ctx context.Context, params ListPlaylistsParams) ([]*Playlist, error)
	GetPlaylist(ctx context.Context, key Key, include Include) (*Playlist, error)
	CreatePlaylist(ctx context.Context, playlist *Playlist) error
	UpdatePlaylist(ctx context.Context, key Key, patch PlaylistPatch) (*Playlist, error)
	DeletePlaylist(ctx context.Context, key Key) (*Playlist, error)

	// Media operations
	CountMedia(ctx context.Context, filter MediaFilter) (int, error)
	ListMedia(ctx context.Context, params ListMediaParams) ([]*Media, error)
	GetMedia(ctx context.Context, key Key, include Include) (*Media, error)
	CreateMedia(ctx context.Context, media *Media) error
	UpdateMedia(ctx context.Context, key Key, patch MediaPatch) (*Media, error)
	DeleteMedia(ctx context.Context, key Key) (*Media, error)

	// Binding operations
	CountBindings(ctx context.Context, filter BindingFilter) (int, error)
	ListBindings(ctx context.Context, params ListBindingsParams) ([]*Binding, error)
	GetBinding(ctx context.Context, key BindingKey) (*Binding, error)
	CreateBinding(ctx context.Context, binding *Binding) error
	CreateBindings(ctx context.Context, bindings []*Binding) error
	UpdateBinding(ctx context.Context, key BindingKey, patch BindingPatch) (*Binding, error)
	DeleteBinding(ctx context.Context, key BindingKey) (*Binding, error)
	// DeleteBindings deletes every binding matching filter and returns them
	DeleteBindings(ctx context.Context, filter BindingFilter) ([]*Binding, error)
}

// MetadataStore is a Repository that can run a unit of work atomically.
type MetadataStore interface {
	Repository

	// WithTx runs fn in a transaction. The transaction commits when fn
	// returns nil and rolls back otherwise.
	WithTx(ctx context.Context, fn func(tx Repository) error) error
}

// BlobStore defines the interface for content storage backends.
// A false found result means the named object does not exist.
type BlobStore interface {
	// Upload stores r under name, replacing any existing object
	Upload(ctx context.Context, name string, r io.Reader, contentType string) (*ObjectMeta, error)

	// Get retrieves metadata for an object
	Get(ctx context.Context, name string) (meta *ObjectMeta, found bool, err error)

	// Download opens an object for reading
	Download(ctx context.Context, name string) (obj *Object, found bool, err error)

	// Copy copies source to destination and returns the destination metadata
	Copy(ctx context.Context, source, destination string) (meta *ObjectMeta, found bool, err error)

	// Delete removes an object and returns its last metadata
	Delete(ctx context.Context, name string) (meta *ObjectMeta, found bool, err error)
}

// EventBus defines the interface for publishing change events
type EventBus interface {
	// Publish sends event to subscribers
	Publish(ctx context.Context, event Event) error
}
