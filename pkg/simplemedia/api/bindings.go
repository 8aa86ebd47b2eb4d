package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/tendant/simple-media/pkg/simplemedia"
)

// CreateBindingRequest is the request body for creating a binding. An empty
// rank appends the media to the playlist.
type CreateBindingRequest struct {
	ID         string `json:"id,omitempty"`
	PlaylistID string `json:"playlist_id"`
	MediaID    string `json:"media_id"`
	Rank       string `json:"rank,omitempty"`
}

// UpdateBindingRequest is the request body for updating a binding
type UpdateBindingRequest struct {
	PlaylistID *string `json:"playlist_id,omitempty"`
	MediaID    *string `json:"media_id,omitempty"`
	Rank       *string `json:"rank,omitempty"`
}

// ListBindings lists bindings, optionally those of one playlist or media
func (h *Handler) ListBindings(w http.ResponseWriter, r *http.Request) {
	p, err := parseList(r)
	if err != nil {
		badRequest(w, r, err.Error())
		return
	}
	q := r.URL.Query()

	bindings, err := h.service.ListBindings(r.Context(), simplemedia.ListBindingsRequest{
		Filter: simplemedia.BindingFilter{
			ID:         q.Get("id"),
			PlaylistID: q.Get("playlist_id"),
			MediaID:    q.Get("media_id"),
		},
		Order:  p.order,
		Limit:  p.limit,
		Offset: p.offset,
	})
	if err != nil {
		h.fail(w, r, "Failed to list bindings", err)
		return
	}
	if bindings == nil {
		bindings = []*simplemedia.Binding{}
	}
	render.JSON(w, r, bindings)
}

// GetBinding retrieves a binding by ID
func (h *Handler) GetBinding(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	binding, err := h.service.GetBinding(r.Context(), simplemedia.GetBindingRequest{
		Key: simplemedia.ByBindingID(id),
	})
	if err != nil {
		h.fail(w, r, "Failed to get binding", err)
		return
	}
	if binding == nil {
		notFound(w, r, "binding", id)
		return
	}
	render.JSON(w, r, binding)
}

// CreateBinding adds a media to a playlist
func (h *Handler) CreateBinding(w http.ResponseWriter, r *http.Request) {
	var req CreateBindingRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, r, err.Error())
		return
	}

	binding, err := h.service.CreateBinding(r.Context(), simplemedia.CreateBindingRequest{
		ID:         req.ID,
		PlaylistID: req.PlaylistID,
		MediaID:    req.MediaID,
		Rank:       req.Rank,
	})
	if err != nil {
		h.fail(w, r, "Failed to create binding", err)
		return
	}

	h.logger.Info("Binding created", "binding_id", binding.ID, "playlist_id", binding.PlaylistID, "media_id", binding.MediaID)
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, binding)
}

// UpdateBinding moves a binding to another playlist, media or rank
func (h *Handler) UpdateBinding(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req UpdateBindingRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, r, err.Error())
		return
	}

	binding, err := h.service.UpdateBinding(r.Context(), simplemedia.UpdateBindingRequest{
		Key:        simplemedia.ByBindingID(id),
		PlaylistID: req.PlaylistID,
		MediaID:    req.MediaID,
		Rank:       req.Rank,
	})
	if err != nil {
		h.fail(w, r, "Failed to update binding", err)
		return
	}
	if binding == nil {
		notFound(w, r, "binding", id)
		return
	}

	h.logger.Info("Binding updated", "binding_id", id)
	render.JSON(w, r, binding)
}

// DeleteBinding removes a media from a playlist
func (h *Handler) DeleteBinding(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	binding, err := h.service.DeleteBinding(r.Context(), simplemedia.DeleteBindingRequest{
		Key: simplemedia.ByBindingID(id),
	})
	if err != nil {
		h.fail(w, r, "Failed to delete binding", err)
		return
	}
	if binding == nil {
		notFound(w, r, "binding", id)
		return
	}

	h.logger.Info("Binding deleted", "binding_id", id)
	render.JSON(w, r, binding)
}
