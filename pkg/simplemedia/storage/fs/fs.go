package fs

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/tendant/simple-media/pkg/simplemedia"
)

// Backend is a filesystem implementation of the simplemedia.BlobStore interface.
//
// Object bytes live under <BaseDir>/objects and their metadata as JSON under
// <BaseDir>/meta. Writes go to a temporary file that is renamed into place.
type Backend struct {
	mu      sync.RWMutex
	baseDir string
}

// Config options for the filesystem backend
type Config struct {
	BaseDir string // Base directory for storing files
}

type metaFile struct {
	Type     string    `json:"type"`
	Size     int64     `json:"size"`
	Tag      string    `json:"tag"`
	Modified time.Time `json:"modified"`
}

// New creates a new filesystem storage backend
func New(config Config) (*Backend, error) {
	if config.BaseDir == "" {
		return nil, errors.New("base directory is required")
	}

	for _, dir := range []string{"objects", "meta"} {
		if err := os.MkdirAll(filepath.Join(config.BaseDir, dir), 0755); err != nil {
			return nil, fmt.Errorf("failed to create base directory: %w", err)
		}
	}

	return &Backend{baseDir: config.BaseDir}, nil
}

var _ simplemedia.BlobStore = (*Backend)(nil)

func (b *Backend) paths(name string) (string, string, error) {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return "", "", fmt.Errorf("invalid object name %q", name)
	}
	return filepath.Join(b.baseDir, "objects", name), filepath.Join(b.baseDir, "meta", name+".json"), nil
}

func (b *Backend) readMeta(name, metaPath string) (*simplemedia.ObjectMeta, bool, error) {
	raw, err := os.ReadFile(metaPath)
	if os.IsNotExist(err) {
		return nil, false, nil
	} else if err != nil {
		return nil, false, fmt.Errorf("failed to read metadata: %w", err)
	}

	var m metaFile
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, false, fmt.Errorf("failed to decode metadata: %w", err)
	}
	return &simplemedia.ObjectMeta{
		Name:     name,
		Type:     m.Type,
		Size:     m.Size,
		Tag:      m.Tag,
		Modified: m.Modified,
	}, true, nil
}

func writeMeta(metaPath string, meta *simplemedia.ObjectMeta) error {
	raw, err := json.Marshal(metaFile{
		Type:     meta.Type,
		Size:     meta.Size,
		Tag:      meta.Tag,
		Modified: meta.Modified,
	})
	if err != nil {
		return err
	}
	return os.WriteFile(metaPath, raw, 0644)
}

// stage copies r into a temporary file in dir and returns its path, size
// and MD5 tag. The caller renames or removes the file.
func stage(dir string, r io.Reader) (string, int64, string, error) {
	file, err := os.CreateTemp(dir, ".stage-*")
	if err != nil {
		return "", 0, "", fmt.Errorf("failed to create file: %w", err)
	}

	hash := md5.New()
	size, err := io.Copy(io.MultiWriter(file, hash), r)
	if cerr := file.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(file.Name())
		return "", 0, "", fmt.Errorf("failed to write file: %w", err)
	}
	return file.Name(), size, hex.EncodeToString(hash.Sum(nil)), nil
}

// Upload stores the content of r under name
func (b *Backend) Upload(ctx context.Context, name string, r io.Reader, contentType string) (*simplemedia.ObjectMeta, error) {
	objectPath, metaPath, err := b.paths(name)
	if err != nil {
		return nil, err
	}

	// The body may be a slow stream, so it is written before taking the lock.
	staged, size, tag, err := stage(filepath.Dir(objectPath), r)
	if err != nil {
		return nil, err
	}
	defer os.Remove(staged)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	meta := &simplemedia.ObjectMeta{
		Name:     name,
		Type:     contentType,
		Size:     size,
		Tag:      tag,
		Modified: time.Now().UTC(),
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if err := os.Rename(staged, objectPath); err != nil {
		return nil, fmt.Errorf("failed to move file into place: %w", err)
	}
	if err := writeMeta(metaPath, meta); err != nil {
		return nil, fmt.Errorf("failed to write metadata: %w", err)
	}
	return meta, nil
}

// Get retrieves metadata for an object in the filesystem
func (b *Backend) Get(ctx context.Context, name string) (*simplemedia.ObjectMeta, bool, error) {
	_, metaPath, err := b.paths(name)
	if err != nil {
		return nil, false, err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.readMeta(name, metaPath)
}

// Download opens an object for reading
func (b *Backend) Download(ctx context.Context, name string) (*simplemedia.Object, bool, error) {
	objectPath, metaPath, err := b.paths(name)
	if err != nil {
		return nil, false, err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	meta, found, err := b.readMeta(name, metaPath)
	if err != nil || !found {
		return nil, found, err
	}
	file, err := os.Open(objectPath)
	if os.IsNotExist(err) {
		return nil, false, nil
	} else if err != nil {
		return nil, false, fmt.Errorf("failed to open file: %w", err)
	}
	return &simplemedia.Object{ObjectMeta: *meta, Body: file}, true, nil
}

// Copy copies source to destination
func (b *Backend) Copy(ctx context.Context, source, destination string) (*simplemedia.ObjectMeta, bool, error) {
	srcObject, srcMeta, err := b.paths(source)
	if err != nil {
		return nil, false, err
	}
	dstObject, dstMeta, err := b.paths(destination)
	if err != nil {
		return nil, false, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	meta, found, err := b.readMeta(source, srcMeta)
	if err != nil || !found {
		return nil, found, err
	}
	src, err := os.Open(srcObject)
	if os.IsNotExist(err) {
		return nil, false, nil
	} else if err != nil {
		return nil, false, fmt.Errorf("failed to open file: %w", err)
	}
	defer src.Close()

	staged, _, _, err := stage(filepath.Dir(dstObject), src)
	if err != nil {
		return nil, false, err
	}
	defer os.Remove(staged)
	if err := os.Rename(staged, dstObject); err != nil {
		return nil, false, fmt.Errorf("failed to move file into place: %w", err)
	}
	meta.Name = destination
	meta.Modified = time.Now().UTC()
	if err := writeMeta(dstMeta, meta); err != nil {
		return nil, false, fmt.Errorf("failed to write metadata: %w", err)
	}
	return meta, true, nil
}

// Delete removes an object from the filesystem
func (b *Backend) Delete(ctx context.Context, name string) (*simplemedia.ObjectMeta, bool, error) {
	objectPath, metaPath, err := b.paths(name)
	if err != nil {
		return nil, false, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	meta, found, err := b.readMeta(name, metaPath)
	if err != nil || !found {
		return nil, found, err
	}
	if err := os.Remove(objectPath); err != nil && !os.IsNotExist(err) {
		return nil, false, fmt.Errorf("failed to delete file: %w", err)
	}
	if err := os.Remove(metaPath); err != nil && !os.IsNotExist(err) {
		return nil, false, fmt.Errorf("failed to delete metadata: %w", err)
	}
	return meta, true, nil
}
