package memory

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"io"
	"sync"
	"time"

	"github.com/tendant/simple-media/pkg/simplemedia"
)

// Backend is an in-memory implementation of the simplemedia.BlobStore interface
type Backend struct {
	mu      sync.RWMutex
	objects map[string]*object
}

type object struct {
	data []byte
	meta simplemedia.ObjectMeta
}

// New creates a new in-memory storage backend
func New() *Backend {
	return &Backend{
		objects: make(map[string]*object),
	}
}

var _ simplemedia.BlobStore = (*Backend)(nil)

func metaCopy(o *object, name string) *simplemedia.ObjectMeta {
	m := o.meta
	m.Name = name
	return &m
}

// Upload stores the content of r under name
func (b *Backend) Upload(ctx context.Context, name string, r io.Reader, contentType string) (*simplemedia.ObjectMeta, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sum := md5.Sum(data)
	o := &object{
		data: data,
		meta: simplemedia.ObjectMeta{
			Name:     name,
			Type:     contentType,
			Size:     int64(len(data)),
			Tag:      hex.EncodeToString(sum[:]),
			Modified: time.Now().UTC(),
		},
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects[name] = o
	return metaCopy(o, name), nil
}

// Get retrieves metadata for an object in memory
func (b *Backend) Get(ctx context.Context, name string) (*simplemedia.ObjectMeta, bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	o, exists := b.objects[name]
	if !exists {
		return nil, false, nil
	}
	return metaCopy(o, name), true, nil
}

// Download opens an object for reading
func (b *Backend) Download(ctx context.Context, name string) (*simplemedia.Object, bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	o, exists := b.objects[name]
	if !exists {
		return nil, false, nil
	}
	return &simplemedia.Object{
		ObjectMeta: *metaCopy(o, name),
		Body:       io.NopCloser(bytes.NewReader(o.data)),
	}, true, nil
}

// Copy copies source to destination
func (b *Backend) Copy(ctx context.Context, source, destination string) (*simplemedia.ObjectMeta, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	o, exists := b.objects[source]
	if !exists {
		return nil, false, nil
	}
	c := &object{data: o.data, meta: o.meta}
	c.meta.Name = destination
	c.meta.Modified = time.Now().UTC()
	b.objects[destination] = c
	return metaCopy(c, destination), true, nil
}

// Delete removes an object
func (b *Backend) Delete(ctx context.Context, name string) (*simplemedia.ObjectMeta, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	o, exists := b.objects[name]
	if !exists {
		return nil, false, nil
	}
	delete(b.objects, name)
	return metaCopy(o, name), true, nil
}

// Names returns the names of all stored objects
func (b *Backend) Names() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	names := make([]string, 0, len(b.objects))
	for name := range b.objects {
		names = append(names, name)
	}
	return names
}
