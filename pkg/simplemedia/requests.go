package simplemedia

// Request DTOs

// CountPlaylistsRequest contains parameters for counting playlists
type CountPlaylistsRequest struct {
	Filter PlaylistFilter
}

// ListPlaylistsRequest contains parameters for listing playlists
type ListPlaylistsRequest struct {
	Filter  PlaylistFilter
	Include Include
	Order   []Order
	Limit   int `validate:"min=0"`
	Offset  int `validate:"min=0"`
}

// GetPlaylistRequest contains parameters for fetching a playlist
type GetPlaylistRequest struct {
	Key     Key
	Include Include
}

// CreatePlaylistRequest contains parameters for creating a playlist.
// ID defaults to Name.
type CreatePlaylistRequest struct {
	ID   string `validate:"omitempty,key"`
	Name string `validate:"required,max=255"`
}

// UpdatePlaylistRequest contains parameters for updating a playlist.
// Nil fields are left unchanged.
type UpdatePlaylistRequest struct {
	Key  Key
	ID   *string `validate:"omitempty,key"`
	Name *string `validate:"omitempty,min=1,max=255"`
}

// DeletePlaylistRequest contains parameters for deleting a playlist
type DeletePlaylistRequest struct {
	Key Key
}

// PlaylistM3URequest contains parameters for rendering a playlist as M3U.
// BaseURL prefixes every entry.
type PlaylistM3URequest struct {
	Key     Key
	BaseURL string
}

// CountMediaRequest contains parameters for counting media
type CountMediaRequest struct {
	Filter MediaFilter
}

// ListMediaRequest contains parameters for listing media
type ListMediaRequest struct {
	Filter  MediaFilter
	Include Include
	Order   []Order
	Limit   int `validate:"min=0"`
	Offset  int `validate:"min=0"`
}

// GetMediaRequest contains parameters for fetching a media
type GetMediaRequest struct {
	Key     Key
	Include Include
}

// CreateMediaRequest contains parameters for creating a media.
// ID defaults to Name.
type CreateMediaRequest struct {
	ID   string `validate:"omitempty,key"`
	Name string `validate:"required,max=255"`
}

// UpdateMediaRequest contains parameters for updating a media.
// Nil fields are left unchanged.
type UpdateMediaRequest struct {
	Key  Key
	ID   *string `validate:"omitempty,key"`
	Name *string `validate:"omitempty,min=1,max=255"`
}

// DeleteMediaRequest contains parameters for deleting a media
type DeleteMediaRequest struct {
	Key Key
}

// UploadMediaContentRequest contains parameters for uploading media content
type UploadMediaContentRequest struct {
	Key     Key
	Content UploadContent `validate:"-"`
}

// DownloadMediaContentRequest contains parameters for downloading media content
type DownloadMediaContentRequest struct {
	Key Key
}

// StatMediaContentRequest contains parameters for reading content metadata
type StatMediaContentRequest struct {
	Key Key
}

// SyncMediaContentRequest contains parameters for moving content between
// media IDs after a rename whose content step failed
type SyncMediaContentRequest struct {
	OldID string `validate:"required,key"`
	NewID string `validate:"required,key,nefield=OldID"`
}

// CountBindingsRequest contains parameters for counting bindings
type CountBindingsRequest struct {
	Filter BindingFilter
}

// ListBindingsRequest contains parameters for listing bindings
type ListBindingsRequest struct {
	Filter BindingFilter
	Order  []Order
	Limit  int `validate:"min=0"`
	Offset int `validate:"min=0"`
}

// GetBindingRequest contains parameters for fetching a binding
type GetBindingRequest struct {
	Key BindingKey
}

// CreateBindingRequest contains parameters for creating a binding.
// ID defaults to a new UUID. An empty Rank places the media after the
// playlist's last binding.
type CreateBindingRequest struct {
	ID         string `validate:"omitempty,max=255"`
	PlaylistID string `validate:"required"`
	MediaID    string `validate:"required"`
	Rank       string
}

// UpdateBindingRequest contains parameters for updating a binding.
// Nil fields are left unchanged.
type UpdateBindingRequest struct {
	Key        BindingKey
	PlaylistID *string `validate:"omitempty,min=1"`
	MediaID    *string `validate:"omitempty,min=1"`
	Rank       *string
}

// DeleteBindingRequest contains parameters for deleting a binding
type DeleteBindingRequest struct {
	Key BindingKey
}
