package simplemedia

import (
	"context"
	"io"

	"github.com/tendant/simple-media/pkg/simplemedia/bridge"
)

// boundedBlobStore holds a Pool slot for the length of every BlobStore call
// so blocking SDK calls cannot exceed the pool's size. The call itself runs
// on the caller's goroutine and is cancelled through ctx.
type boundedBlobStore struct {
	store BlobStore
	pool  *bridge.Pool
}

// NewBoundedBlobStore wraps store so at most pool.Size() calls run at once.
// Reads from a downloaded object's body are not bounded.
func NewBoundedBlobStore(store BlobStore, pool *bridge.Pool) BlobStore {
	return &boundedBlobStore{store: store, pool: pool}
}

func runFound[T any](ctx context.Context, pool *bridge.Pool, fn func() (T, bool, error)) (T, bool, error) {
	var (
		v  T
		ok bool
	)
	err := pool.Run(ctx, func() error {
		var err error
		v, ok, err = fn()
		return err
	})
	return v, ok, err
}

func (b *boundedBlobStore) Upload(ctx context.Context, name string, r io.Reader, contentType string) (*ObjectMeta, error) {
	var meta *ObjectMeta
	err := b.pool.Run(ctx, func() error {
		var err error
		meta, err = b.store.Upload(ctx, name, r, contentType)
		return err
	})
	return meta, err
}

func (b *boundedBlobStore) Get(ctx context.Context, name string) (*ObjectMeta, bool, error) {
	return runFound(ctx, b.pool, func() (*ObjectMeta, bool, error) {
		return b.store.Get(ctx, name)
	})
}

func (b *boundedBlobStore) Download(ctx context.Context, name string) (*Object, bool, error) {
	return runFound(ctx, b.pool, func() (*Object, bool, error) {
		return b.store.Download(ctx, name)
	})
}

func (b *boundedBlobStore) Copy(ctx context.Context, source, destination string) (*ObjectMeta, bool, error) {
	return runFound(ctx, b.pool, func() (*ObjectMeta, bool, error) {
		return b.store.Copy(ctx, source, destination)
	})
}

func (b *boundedBlobStore) Delete(ctx context.Context, name string) (*ObjectMeta, bool, error) {
	return runFound(ctx, b.pool, func() (*ObjectMeta, bool, error) {
		return b.store.Delete(ctx, name)
	})
}
