// Package api exposes a simplemedia.Service over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/tendant/simple-media/pkg/simplemedia"
	"github.com/tendant/simple-media/pkg/simplemedia/bridge"
)

// DefaultListLimit is used when a listing request has no limit parameter.
const DefaultListLimit = 10

// Handler serves playlists, media and bindings
type Handler struct {
	service   simplemedia.Service
	logger    *slog.Logger
	baseURL   string
	pool      *bridge.Pool
	chunkSize int
}

// Option configures a Handler
type Option func(*Handler)

// WithLogger sets the handler logger
func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) {
		h.logger = logger
	}
}

// WithBaseURL fixes the URL prefix of M3U entries. Without it the prefix is
// taken from the request.
func WithBaseURL(baseURL string) Option {
	return func(h *Handler) {
		h.baseURL = baseURL
	}
}

// WithPool sets the pool that runs blocking reads of upload bodies
func WithPool(pool *bridge.Pool) Option {
	return func(h *Handler) {
		h.pool = pool
	}
}

// WithChunkSize sets the size of upload body chunks
func WithChunkSize(size int) Option {
	return func(h *Handler) {
		h.chunkSize = size
	}
}

// NewHandler creates a new handler for service
func NewHandler(service simplemedia.Service, opts ...Option) *Handler {
	h := &Handler{
		service:   service,
		chunkSize: bridge.DefaultChunkSize,
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.logger == nil {
		h.logger = slog.Default()
	}
	if h.pool == nil {
		h.pool = bridge.NewPool(bridge.DefaultPoolSize)
	}
	if h.chunkSize <= 0 {
		h.chunkSize = bridge.DefaultChunkSize
	}
	return h
}

// Routes returns the API routes
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/ping", h.Ping)

	r.Route("/playlists", func(r chi.Router) {
		r.Get("/", h.ListPlaylists)
		r.Post("/", h.CreatePlaylist)
		r.Get("/{id}", h.GetPlaylist)
		r.Patch("/{id}", h.UpdatePlaylist)
		r.Delete("/{id}", h.DeletePlaylist)
		r.Get("/{id}/m3u", h.PlaylistM3U)
		r.Head("/{id}/m3u", h.PlaylistM3U)
	})

	r.Route("/media", func(r chi.Router) {
		r.Get("/", h.ListMedia)
		r.Post("/", h.CreateMedia)
		r.Get("/{id}", h.GetMedia)
		r.Patch("/{id}", h.UpdateMedia)
		r.Delete("/{id}", h.DeleteMedia)
		r.Put("/{id}/content", h.UploadContent)
		r.Get("/{id}/content", h.DownloadContent)
		r.Head("/{id}/content", h.HeadContent)
	})

	r.Route("/bindings", func(r chi.Router) {
		r.Get("/", h.ListBindings)
		r.Post("/", h.CreateBinding)
		r.Get("/{id}", h.GetBinding)
		r.Patch("/{id}", h.UpdateBinding)
		r.Delete("/{id}", h.DeleteBinding)
	})

	return r
}

// Ping reports that the server is up
func (h *Handler) Ping(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

// ErrorResponse is the body of every error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// fail writes err with the status its class maps to
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, msg string, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, simplemedia.ErrValidation) {
		status = http.StatusBadRequest
	}

	if status >= http.StatusInternalServerError {
		h.logger.Error(msg, "method", r.Method, "path", r.URL.Path, "error", err)
	} else {
		h.logger.Warn(msg, "method", r.Method, "path", r.URL.Path, "error", err)
	}

	render.Status(r, status)
	render.JSON(w, r, ErrorResponse{Error: err.Error()})
}

func badRequest(w http.ResponseWriter, r *http.Request, msg string) {
	render.Status(r, http.StatusBadRequest)
	render.JSON(w, r, ErrorResponse{Error: msg})
}

func notFound(w http.ResponseWriter, r *http.Request, what, id string) {
	render.Status(r, http.StatusNotFound)
	render.JSON(w, r, ErrorResponse{Error: fmt.Sprintf("%s %s not found", what, id)})
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// listParams holds the query parameters shared by listing routes
type listParams struct {
	limit   int
	offset  int
	order   []simplemedia.Order
	include simplemedia.Include
}

// parseList reads limit, offset, order and include. order is a comma
// separated list of fields, each optionally prefixed with "-" for
// descending order. include=bindings loads related bindings.
func parseList(r *http.Request) (listParams, error) {
	q := r.URL.Query()
	p := listParams{limit: DefaultListLimit}

	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return p, fmt.Errorf("invalid limit %q", v)
		}
		p.limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return p, fmt.Errorf("invalid offset %q", v)
		}
		p.offset = n
	}
	if v := q.Get("order"); v != "" {
		for _, field := range strings.Split(v, ",") {
			field = strings.TrimSpace(field)
			desc := strings.HasPrefix(field, "-")
			field = strings.TrimPrefix(field, "-")
			if field == "" {
				return p, fmt.Errorf("invalid order %q", v)
			}
			p.order = append(p.order, simplemedia.Order{Field: field, Desc: desc})
		}
	}
	for _, inc := range q["include"] {
		switch inc {
		case "bindings":
			p.include.Bindings = true
		default:
			return p, fmt.Errorf("unknown include %q", inc)
		}
	}
	return p, nil
}

// parseInclude reads only the include parameter
func parseInclude(r *http.Request) (simplemedia.Include, error) {
	var inc simplemedia.Include
	for _, v := range r.URL.Query()["include"] {
		if v != "bindings" {
			return inc, fmt.Errorf("unknown include %q", v)
		}
		inc.Bindings = true
	}
	return inc, nil
}

// baseURLFor returns the configured base URL or the one the request was
// addressed to
func (h *Handler) baseURLFor(r *http.Request) string {
	if h.baseURL != "" {
		return h.baseURL
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if fwd := r.Header.Get("X-Forwarded-Proto"); fwd != "" {
		scheme = fwd
	}
	return scheme + "://" + r.Host
}
