package simplemedia

import "context"

// Service is the main interface for the simple-media library.
//
// Lookups that match nothing return a nil result and a nil error. Errors
// are *ValidationError, *InvalidRankError, *StoreError or
// *ContentStoreError.
type Service interface {
	// Playlist operations
	CountPlaylists(ctx context.Context, req CountPlaylistsRequest) (int, error)
	ListPlaylists(ctx context.Context, req ListPlaylistsRequest) ([]*Playlist, error)
	GetPlaylist(ctx context.Context, req GetPlaylistRequest) (*Playlist, error)
	CreatePlaylist(ctx context.Context, req CreatePlaylistRequest) (*Playlist, error)
	UpdatePlaylist(ctx context.Context, req UpdatePlaylistRequest) (*Playlist, error)
	DeletePlaylist(ctx context.Context, req DeletePlaylistRequest) (*Playlist, error)
	PlaylistM3U(ctx context.Context, req PlaylistM3URequest) (*M3U, error)

	// Media operations
	CountMedia(ctx context.Context, req CountMediaRequest) (int, error)
	ListMedia(ctx context.Context, req ListMediaRequest) ([]*Media, error)
	GetMedia(ctx context.Context, req GetMediaRequest) (*Media, error)
	CreateMedia(ctx context.Context, req CreateMediaRequest) (*Media, error)
	UpdateMedia(ctx context.Context, req UpdateMediaRequest) (*Media, error)
	DeleteMedia(ctx context.Context, req DeleteMediaRequest) (*Media, error)

	// Media content operations
	UploadMediaContent(ctx context.Context, req UploadMediaContentRequest) (*Media, error)
	DownloadMediaContent(ctx context.Context, req DownloadMediaContentRequest) (*Download, error)
	StatMediaContent(ctx context.Context, req StatMediaContentRequest) (*ContentStat, error)
	SyncMediaContent(ctx context.Context, req SyncMediaContentRequest) (*ObjectMeta, error)

	// Binding operations
	CountBindings(ctx context.Context, req CountBindingsRequest) (int, error)
	ListBindings(ctx context.Context, req ListBindingsRequest) ([]*Binding, error)
	GetBinding(ctx context.Context, req GetBindingRequest) (*Binding, error)
	CreateBinding(ctx context.Context, req CreateBindingRequest) (*Binding, error)
	UpdateBinding(ctx context.Context, req UpdateBindingRequest) (*Binding, error)
	DeleteBinding(ctx context.Context, req DeleteBindingRequest) (*Binding, error)
}
