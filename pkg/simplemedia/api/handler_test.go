package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/simple-media/pkg/simplemedia"
	"github.com/tendant/simple-media/pkg/simplemedia/bridge"
	eventmemory "github.com/tendant/simple-media/pkg/simplemedia/eventbus/memory"
	"github.com/tendant/simple-media/pkg/simplemedia/repo/memory"
	memorystorage "github.com/tendant/simple-media/pkg/simplemedia/storage/memory"
)

// flakyBlobs fails uploads while broken is set
type flakyBlobs struct {
	*memorystorage.Backend
	broken bool
}

func (f *flakyBlobs) Upload(ctx context.Context, name string, r io.Reader, contentType string) (*simplemedia.ObjectMeta, error) {
	if f.broken {
		_, _ = io.Copy(io.Discard, r)
		return nil, errors.New("disk full")
	}
	return f.Backend.Upload(ctx, name, r, contentType)
}

type testServer struct {
	router http.Handler
	blobs  *flakyBlobs
	events *eventmemory.Bus
}

func setupHandlerTest(t *testing.T, opts ...Option) *testServer {
	t.Helper()
	blobs := &flakyBlobs{Backend: memorystorage.New()}
	events := eventmemory.New()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	svc, err := simplemedia.New(
		simplemedia.WithMetadataStore(memory.New()),
		simplemedia.WithBlobStore(blobs),
		simplemedia.WithEventBus(events),
		simplemedia.WithLogger(logger),
		simplemedia.WithPool(bridge.NewPool(2)),
		simplemedia.WithChunkSize(4),
	)
	require.NoError(t, err)

	opts = append([]Option{WithLogger(logger), WithPool(bridge.NewPool(2)), WithChunkSize(3)}, opts...)
	return &testServer{
		router: NewHandler(svc, opts...).Routes(),
		blobs:  blobs,
		events: events,
	}
}

func (s *testServer) do(t *testing.T, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = strings.NewReader(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, target, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) upload(t *testing.T, id, contentType, data string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPut, "/media/"+id+"/content", strings.NewReader(data))
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestPing(t *testing.T) {
	s := setupHandlerTest(t)
	w := s.do(t, http.MethodGet, "/ping", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestHandler_RenameScenario(t *testing.T) {
	s := setupHandlerTest(t, WithBaseURL("http://radio.example"))

	w := s.do(t, http.MethodPost, "/playlists", CreateEntityRequest{Name: "A"})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "A", decode[simplemedia.Playlist](t, w).ID)

	w = s.do(t, http.MethodPost, "/media", CreateEntityRequest{Name: "m1"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = s.do(t, http.MethodPost, "/bindings", CreateBindingRequest{PlaylistID: "A", MediaID: "m1", Rank: "a0"})
	require.Equal(t, http.StatusCreated, w.Code)
	binding := decode[simplemedia.Binding](t, w)
	assert.NotEmpty(t, binding.ID)

	w = s.upload(t, "m1", "audio/mpeg", "ID3 frames")
	require.Equal(t, http.StatusNoContent, w.Code)

	s.events.Reset()
	name := "m2"
	w = s.do(t, http.MethodPatch, "/media/m1", UpdateEntityRequest{Name: &name})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "m2", decode[simplemedia.Media](t, w).ID)
	assert.Equal(t, []simplemedia.EventType{simplemedia.EventMediaUpdated, simplemedia.EventBindingUpdated}, s.events.Types())

	w = s.do(t, http.MethodGet, "/playlists/A/m3u", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, M3UContentType, w.Header().Get("Content-Type"))
	assert.Equal(t, "http://radio.example/media/m2/content\n", w.Body.String())

	w = s.do(t, http.MethodGet, "/media/m2/content", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ID3 frames", w.Body.String())

	w = s.do(t, http.MethodGet, "/media/m1/content", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandler_M3UUsesRequestHost(t *testing.T) {
	s := setupHandlerTest(t)
	s.do(t, http.MethodPost, "/playlists", CreateEntityRequest{Name: "A"})
	s.do(t, http.MethodPost, "/media", CreateEntityRequest{Name: "m1"})
	s.do(t, http.MethodPost, "/bindings", CreateBindingRequest{PlaylistID: "A", MediaID: "m1"})

	req := httptest.NewRequest(http.MethodGet, "/playlists/A/m3u", nil)
	req.Host = "media.local:8080"
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "http://media.local:8080/media/m1/content\n", w.Body.String())

	req = httptest.NewRequest(http.MethodHead, "/playlists/A/m3u", nil)
	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Body.String())
}

func TestHandler_Content(t *testing.T) {
	s := setupHandlerTest(t)
	s.do(t, http.MethodPost, "/media", CreateEntityRequest{Name: "m1"})

	t.Run("MissingContent", func(t *testing.T) {
		assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/media/m1/content", nil).Code)
		assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodHead, "/media/m1/content", nil).Code)
	})

	t.Run("UnknownMedia", func(t *testing.T) {
		assert.Equal(t, http.StatusNotFound, s.upload(t, "nope", "audio/ogg", "x").Code)
		assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/media/nope/content", nil).Code)
	})

	t.Run("RoundTripWithHeaders", func(t *testing.T) {
		data := strings.Repeat("opus", 10)
		require.Equal(t, http.StatusNoContent, s.upload(t, "m1", "audio/ogg", data).Code)

		w := s.do(t, http.MethodGet, "/media/m1/content", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, data, w.Body.String())
		assert.Equal(t, "audio/ogg", w.Header().Get("Content-Type"))
		assert.Equal(t, "40", w.Header().Get("Content-Length"))
		assert.NotEmpty(t, w.Header().Get("ETag"))
		assert.NotEmpty(t, w.Header().Get("Last-Modified"))

		head := s.do(t, http.MethodHead, "/media/m1/content", nil)
		require.Equal(t, http.StatusOK, head.Code)
		assert.Equal(t, w.Header().Get("ETag"), head.Header().Get("ETag"))
		assert.Equal(t, "40", head.Header().Get("Content-Length"))
	})

	t.Run("StoreFailure", func(t *testing.T) {
		s.blobs.broken = true
		defer func() { s.blobs.broken = false }()

		w := s.upload(t, "m1", "audio/ogg", "data")
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Contains(t, decode[ErrorResponse](t, w).Error, "disk full")
	})
}

func TestHandler_ErrorMapping(t *testing.T) {
	s := setupHandlerTest(t)
	s.do(t, http.MethodPost, "/playlists", CreateEntityRequest{Name: "A"})

	tests := []struct {
		name   string
		method string
		target string
		body   any
		want   int
	}{
		{"malformed body", http.MethodPost, "/playlists", "{", http.StatusBadRequest},
		{"unknown field", http.MethodPost, "/playlists", `{"title":"x"}`, http.StatusBadRequest},
		{"missing name", http.MethodPost, "/playlists", CreateEntityRequest{}, http.StatusBadRequest},
		{"duplicate playlist", http.MethodPost, "/playlists", CreateEntityRequest{Name: "A"}, http.StatusBadRequest},
		{"missing reference", http.MethodPost, "/bindings", CreateBindingRequest{PlaylistID: "A", MediaID: "ghost"}, http.StatusBadRequest},
		{"invalid rank", http.MethodPost, "/bindings", CreateBindingRequest{PlaylistID: "A", MediaID: "m", Rank: "!"}, http.StatusBadRequest},
		{"bad limit", http.MethodGet, "/playlists?limit=many", nil, http.StatusBadRequest},
		{"bad order field", http.MethodGet, "/playlists?order=-color", nil, http.StatusBadRequest},
		{"bad include", http.MethodGet, "/media?include=tags", nil, http.StatusBadRequest},
		{"unknown playlist", http.MethodGet, "/playlists/B", nil, http.StatusNotFound},
		{"unknown media", http.MethodPatch, "/media/x", UpdateEntityRequest{}, http.StatusNotFound},
		{"unknown binding", http.MethodDelete, "/bindings/x", nil, http.StatusNotFound},
		{"unknown m3u", http.MethodGet, "/playlists/B/m3u", nil, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(t, tt.method, tt.target, tt.body)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
			assert.NotEmpty(t, decode[ErrorResponse](t, w).Error)
		})
	}
}

func TestHandler_ListAndInclude(t *testing.T) {
	s := setupHandlerTest(t)
	for _, name := range []string{"c", "a", "b"} {
		require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/media", CreateEntityRequest{Name: name}).Code)
	}
	s.do(t, http.MethodPost, "/playlists", CreateEntityRequest{Name: "P"})
	s.do(t, http.MethodPost, "/bindings", CreateBindingRequest{PlaylistID: "P", MediaID: "b"})
	s.do(t, http.MethodPost, "/bindings", CreateBindingRequest{PlaylistID: "P", MediaID: "a"})

	w := s.do(t, http.MethodGet, "/media?order=-name&limit=2", nil)
	require.Equal(t, http.StatusOK, w.Code)
	media := decode[[]simplemedia.Media](t, w)
	require.Len(t, media, 2)
	assert.Equal(t, "c", media[0].ID)
	assert.Equal(t, "b", media[1].ID)

	w = s.do(t, http.MethodGet, "/media?name=zzz", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "[]\n", w.Body.String())

	w = s.do(t, http.MethodGet, "/playlists/P?include=bindings", nil)
	require.Equal(t, http.StatusOK, w.Code)
	playlist := decode[simplemedia.Playlist](t, w)
	require.Len(t, playlist.Bindings, 2)
	assert.Equal(t, "b", playlist.Bindings[0].MediaID)
	assert.Equal(t, "a", playlist.Bindings[1].MediaID)

	w = s.do(t, http.MethodGet, "/bindings?media_id=a", nil)
	require.Equal(t, http.StatusOK, w.Code)
	bindings := decode[[]simplemedia.Binding](t, w)
	require.Len(t, bindings, 1)
	assert.Equal(t, "P", bindings[0].PlaylistID)
}

func TestHandler_BindingLifecycle(t *testing.T) {
	s := setupHandlerTest(t)
	s.do(t, http.MethodPost, "/playlists", CreateEntityRequest{Name: "P"})
	s.do(t, http.MethodPost, "/media", CreateEntityRequest{Name: "m1"})
	s.do(t, http.MethodPost, "/media", CreateEntityRequest{Name: "m2"})

	w := s.do(t, http.MethodPost, "/bindings", CreateBindingRequest{ID: "first", PlaylistID: "P", MediaID: "m1"})
	require.Equal(t, http.StatusCreated, w.Code)

	media := "m2"
	w = s.do(t, http.MethodPatch, "/bindings/first", UpdateBindingRequest{MediaID: &media})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "m2", decode[simplemedia.Binding](t, w).MediaID)

	w = s.do(t, http.MethodGet, "/bindings/first", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodDelete, "/playlists/P", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodGet, "/bindings/first", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestParseList(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?order=name,-id&offset=5&include=bindings", nil)
	p, err := parseList(req)
	require.NoError(t, err)

	assert.Equal(t, DefaultListLimit, p.limit)
	assert.Equal(t, 5, p.offset)
	assert.True(t, p.include.Bindings)
	assert.Equal(t, []simplemedia.Order{{Field: "name"}, {Field: "id", Desc: true}}, p.order)

	_, err = parseList(httptest.NewRequest(http.MethodGet, "/?order=name,", nil))
	assert.Error(t, err)
}
