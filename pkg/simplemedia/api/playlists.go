package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/tendant/simple-media/pkg/simplemedia"
)

// CreateEntityRequest is the request body for creating a playlist or a
// media. ID defaults to Name.
type CreateEntityRequest struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
}

// UpdateEntityRequest is the request body for updating a playlist or a
// media. Absent fields are left unchanged.
type UpdateEntityRequest struct {
	ID   *string `json:"id,omitempty"`
	Name *string `json:"name,omitempty"`
}

// M3UContentType is the media type of rendered playlists
const M3UContentType = "audio/mpegurl"

// ListPlaylists lists playlists matching the query
func (h *Handler) ListPlaylists(w http.ResponseWriter, r *http.Request) {
	p, err := parseList(r)
	if err != nil {
		badRequest(w, r, err.Error())
		return
	}
	q := r.URL.Query()

	playlists, err := h.service.ListPlaylists(r.Context(), simplemedia.ListPlaylistsRequest{
		Filter:  simplemedia.PlaylistFilter{ID: q.Get("id"), Name: q.Get("name")},
		Include: p.include,
		Order:   p.order,
		Limit:   p.limit,
		Offset:  p.offset,
	})
	if err != nil {
		h.fail(w, r, "Failed to list playlists", err)
		return
	}
	if playlists == nil {
		playlists = []*simplemedia.Playlist{}
	}
	render.JSON(w, r, playlists)
}

// GetPlaylist retrieves a playlist by ID
func (h *Handler) GetPlaylist(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	include, err := parseInclude(r)
	if err != nil {
		badRequest(w, r, err.Error())
		return
	}

	playlist, err := h.service.GetPlaylist(r.Context(), simplemedia.GetPlaylistRequest{
		Key:     simplemedia.ByID(id),
		Include: include,
	})
	if err != nil {
		h.fail(w, r, "Failed to get playlist", err)
		return
	}
	if playlist == nil {
		notFound(w, r, "playlist", id)
		return
	}
	render.JSON(w, r, playlist)
}

// CreatePlaylist creates a new playlist
func (h *Handler) CreatePlaylist(w http.ResponseWriter, r *http.Request) {
	var req CreateEntityRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, r, err.Error())
		return
	}

	playlist, err := h.service.CreatePlaylist(r.Context(), simplemedia.CreatePlaylistRequest{
		ID:   req.ID,
		Name: req.Name,
	})
	if err != nil {
		h.fail(w, r, "Failed to create playlist", err)
		return
	}

	h.logger.Info("Playlist created", "playlist_id", playlist.ID)
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, playlist)
}

// UpdatePlaylist updates a playlist by ID. Renaming the ID moves its
// bindings along.
func (h *Handler) UpdatePlaylist(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req UpdateEntityRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, r, err.Error())
		return
	}

	playlist, err := h.service.UpdatePlaylist(r.Context(), simplemedia.UpdatePlaylistRequest{
		Key:  simplemedia.ByID(id),
		ID:   req.ID,
		Name: req.Name,
	})
	if err != nil {
		h.fail(w, r, "Failed to update playlist", err)
		return
	}
	if playlist == nil {
		notFound(w, r, "playlist", id)
		return
	}

	h.logger.Info("Playlist updated", "playlist_id", id, "new_id", playlist.ID)
	render.JSON(w, r, playlist)
}

// DeletePlaylist deletes a playlist and its bindings
func (h *Handler) DeletePlaylist(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	playlist, err := h.service.DeletePlaylist(r.Context(), simplemedia.DeletePlaylistRequest{
		Key: simplemedia.ByID(id),
	})
	if err != nil {
		h.fail(w, r, "Failed to delete playlist", err)
		return
	}
	if playlist == nil {
		notFound(w, r, "playlist", id)
		return
	}

	h.logger.Info("Playlist deleted", "playlist_id", id)
	render.JSON(w, r, playlist)
}

// PlaylistM3U renders a playlist as an M3U file
func (h *Handler) PlaylistM3U(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	m3u, err := h.service.PlaylistM3U(r.Context(), simplemedia.PlaylistM3URequest{
		Key:     simplemedia.ByID(id),
		BaseURL: h.baseURLFor(r),
	})
	if err != nil {
		h.fail(w, r, "Failed to render playlist", err)
		return
	}
	if m3u == nil {
		notFound(w, r, "playlist", id)
		return
	}

	w.Header().Set("Content-Type", M3UContentType)
	w.WriteHeader(http.StatusOK)
	if r.Method != http.MethodHead {
		_, _ = w.Write([]byte(m3u.Text))
	}
}
