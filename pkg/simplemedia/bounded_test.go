package simplemedia_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/simple-media/pkg/simplemedia"
	"github.com/tendant/simple-media/pkg/simplemedia/bridge"
	repomemory "github.com/tendant/simple-media/pkg/simplemedia/repo/memory"
	blobmemory "github.com/tendant/simple-media/pkg/simplemedia/storage/memory"
)

// trickleBlobStore reads uploads a few bytes per millisecond and ignores
// ctx, like an SDK that only notices cancellation through its reader.
type trickleBlobStore struct {
	*blobmemory.Backend
	returned atomic.Bool
}

func (s *trickleBlobStore) Upload(ctx context.Context, name string, r io.Reader, contentType string) (*simplemedia.ObjectMeta, error) {
	defer s.returned.Store(true)
	buf := make([]byte, 4)
	for {
		if _, err := r.Read(buf); err != nil {
			if errors.Is(err, io.EOF) {
				return s.Backend.Upload(ctx, name, strings.NewReader(""), contentType)
			}
			return nil, err
		}
		time.Sleep(time.Millisecond)
	}
}

// heldBlobStore blocks Get until release is closed.
type heldBlobStore struct {
	*blobmemory.Backend
	started chan struct{}
	release chan struct{}
	gets    atomic.Int32
}

func (s *heldBlobStore) Get(ctx context.Context, name string) (*simplemedia.ObjectMeta, bool, error) {
	if s.gets.Add(1) == 1 {
		close(s.started)
	}
	<-s.release
	return s.Backend.Get(ctx, name)
}

func TestBoundedBlobStore_UploadCancellation(t *testing.T) {
	blobs := &trickleBlobStore{Backend: blobmemory.New()}
	svc, err := simplemedia.New(
		simplemedia.WithMetadataStore(repomemory.New()),
		simplemedia.WithBlobStore(simplemedia.NewBoundedBlobStore(blobs, bridge.NewPool(1))),
		simplemedia.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	require.NoError(t, err)

	_, err = svc.CreateMedia(context.Background(), simplemedia.CreateMediaRequest{Name: "m1"})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	body := strings.Repeat("x", 1<<16)
	_, err = svc.UploadMediaContent(ctx, simplemedia.UploadMediaContentRequest{
		Key: simplemedia.ByID("m1"),
		Content: simplemedia.UploadContent{
			Type: "audio/mpeg",
			Data: bridge.SyncToAsync(bridge.NewPool(1), bridge.Chunks(strings.NewReader(body), 4)),
		},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, simplemedia.ErrContentStore)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	// The store call has finished by the time the upload returns.
	assert.True(t, blobs.returned.Load())
	assert.Empty(t, blobs.Names())
}

func TestBoundedBlobStore_BoundsCalls(t *testing.T) {
	ctx := context.Background()
	inner := &heldBlobStore{
		Backend: blobmemory.New(),
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	_, err := inner.Backend.Upload(ctx, "m1", strings.NewReader("abc"), "audio/mpeg")
	require.NoError(t, err)

	blobs := simplemedia.NewBoundedBlobStore(inner, bridge.NewPool(1))

	first := make(chan error, 1)
	go func() {
		_, _, err := blobs.Get(ctx, "m1")
		first <- err
	}()
	<-inner.started

	waitCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	_, _, err = blobs.Get(waitCtx, "m1")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, int32(1), inner.gets.Load())

	close(inner.release)
	require.NoError(t, <-first)

	meta, found, err := blobs.Get(ctx, "m1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, int64(3), meta.Size)
}
