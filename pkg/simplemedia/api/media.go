package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/tendant/simple-media/pkg/simplemedia"
	"github.com/tendant/simple-media/pkg/simplemedia/bridge"
)

// ListMedia lists media matching the query
func (h *Handler) ListMedia(w http.ResponseWriter, r *http.Request) {
	p, err := parseList(r)
	if err != nil {
		badRequest(w, r, err.Error())
		return
	}
	q := r.URL.Query()

	media, err := h.service.ListMedia(r.Context(), simplemedia.ListMediaRequest{
		Filter:  simplemedia.MediaFilter{ID: q.Get("id"), Name: q.Get("name")},
		Include: p.include,
		Order:   p.order,
		Limit:   p.limit,
		Offset:  p.offset,
	})
	if err != nil {
		h.fail(w, r, "Failed to list media", err)
		return
	}
	if media == nil {
		media = []*simplemedia.Media{}
	}
	render.JSON(w, r, media)
}

// GetMedia retrieves a media by ID
func (h *Handler) GetMedia(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	include, err := parseInclude(r)
	if err != nil {
		badRequest(w, r, err.Error())
		return
	}

	media, err := h.service.GetMedia(r.Context(), simplemedia.GetMediaRequest{
		Key:     simplemedia.ByID(id),
		Include: include,
	})
	if err != nil {
		h.fail(w, r, "Failed to get media", err)
		return
	}
	if media == nil {
		notFound(w, r, "media", id)
		return
	}
	render.JSON(w, r, media)
}

// CreateMedia creates a new media without content
func (h *Handler) CreateMedia(w http.ResponseWriter, r *http.Request) {
	var req CreateEntityRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, r, err.Error())
		return
	}

	media, err := h.service.CreateMedia(r.Context(), simplemedia.CreateMediaRequest{
		ID:   req.ID,
		Name: req.Name,
	})
	if err != nil {
		h.fail(w, r, "Failed to create media", err)
		return
	}

	h.logger.Info("Media created", "media_id", media.ID)
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, media)
}

// UpdateMedia updates a media by ID. Renaming the ID moves its bindings and
// its content along.
func (h *Handler) UpdateMedia(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req UpdateEntityRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, r, err.Error())
		return
	}

	media, err := h.service.UpdateMedia(r.Context(), simplemedia.UpdateMediaRequest{
		Key:  simplemedia.ByID(id),
		ID:   req.ID,
		Name: req.Name,
	})
	if err != nil {
		h.fail(w, r, "Failed to update media", err)
		return
	}
	if media == nil {
		notFound(w, r, "media", id)
		return
	}

	h.logger.Info("Media updated", "media_id", id, "new_id", media.ID)
	render.JSON(w, r, media)
}

// DeleteMedia deletes a media, its bindings and its content
func (h *Handler) DeleteMedia(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	media, err := h.service.DeleteMedia(r.Context(), simplemedia.DeleteMediaRequest{
		Key: simplemedia.ByID(id),
	})
	if err != nil {
		h.fail(w, r, "Failed to delete media", err)
		return
	}
	if media == nil {
		notFound(w, r, "media", id)
		return
	}

	h.logger.Info("Media deleted", "media_id", id)
	render.JSON(w, r, media)
}

// UploadContent stores the request body as the content of a media
func (h *Handler) UploadContent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	media, err := h.service.UploadMediaContent(r.Context(), simplemedia.UploadMediaContentRequest{
		Key: simplemedia.ByID(id),
		Content: simplemedia.UploadContent{
			Type: r.Header.Get("Content-Type"),
			Data: bridge.SyncToAsync(h.pool, bridge.Chunks(r.Body, h.chunkSize)),
		},
	})
	if err != nil {
		h.fail(w, r, "Failed to upload media content", err)
		return
	}
	if media == nil {
		notFound(w, r, "media", id)
		return
	}

	h.logger.Info("Media content uploaded", "media_id", media.ID)
	w.WriteHeader(http.StatusNoContent)
}

// DownloadContent streams the content of a media
func (h *Handler) DownloadContent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	dl, err := h.service.DownloadMediaContent(r.Context(), simplemedia.DownloadMediaContentRequest{
		Key: simplemedia.ByID(id),
	})
	if err != nil {
		h.fail(w, r, "Failed to download media content", err)
		return
	}
	if dl == nil {
		notFound(w, r, "media", id)
		return
	}
	if dl.Content == nil {
		notFound(w, r, "content of media", id)
		return
	}
	data := dl.Content.Data
	defer data.Close()

	setContentHeaders(w, dl.Content.ObjectMeta)
	w.WriteHeader(http.StatusOK)

	ctx := r.Context()
	for {
		chunk, err := data.Next(ctx)
		if errors.Is(err, io.EOF) {
			return
		}
		if err != nil {
			// Headers are gone; all that is left is to cut the response short.
			h.logger.Error("Failed to stream media content", "media_id", id, "error", err)
			return
		}
		if _, err := w.Write(chunk); err != nil {
			h.logger.Warn("Client went away during download", "media_id", id, "error", err)
			return
		}
	}
}

// HeadContent reports the headers DownloadContent would send
func (h *Handler) HeadContent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	st, err := h.service.StatMediaContent(r.Context(), simplemedia.StatMediaContentRequest{
		Key: simplemedia.ByID(id),
	})
	if err != nil {
		h.fail(w, r, "Failed to stat media content", err)
		return
	}
	if st == nil || st.Meta == nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	setContentHeaders(w, *st.Meta)
	w.WriteHeader(http.StatusOK)
}

func setContentHeaders(w http.ResponseWriter, meta simplemedia.ObjectMeta) {
	hdr := w.Header()
	hdr.Set("Content-Type", meta.Type)
	hdr.Set("Content-Length", strconv.FormatInt(meta.Size, 10))
	if meta.Tag != "" {
		tag := meta.Tag
		if !strings.HasPrefix(tag, `"`) && !strings.HasPrefix(tag, `W/"`) {
			tag = strconv.Quote(tag)
		}
		hdr.Set("ETag", tag)
	}
	if !meta.Modified.IsZero() {
		hdr.Set("Last-Modified", meta.Modified.UTC().Format(http.TimeFormat))
	}
}
