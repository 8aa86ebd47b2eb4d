// Package minio stores media content in a MinIO bucket using the MinIO
// client rather than the AWS SDK.
package minio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/tendant/simple-media/pkg/simplemedia"
)

// Config options for the MinIO backend
type Config struct {
	Endpoint        string // host:port of the MinIO server
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	UseSSL          bool
	CreateBucket    bool // Create the bucket if it doesn't exist
}

// Backend is a MinIO implementation of the simplemedia.BlobStore interface
type Backend struct {
	client *minio.Client
	bucket string
}

// New creates a new MinIO storage backend
func New(ctx context.Context, config Config) (*Backend, error) {
	if config.Endpoint == "" {
		return nil, errors.New("endpoint is required")
	}
	if config.Bucket == "" {
		return nil, errors.New("bucket name is required")
	}

	client, err := minio.New(config.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(config.AccessKeyID, config.SecretAccessKey, ""),
		Secure: config.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	b := &Backend{client: client, bucket: config.Bucket}
	if config.CreateBucket {
		if err := b.ensureBucket(ctx); err != nil {
			return nil, err
		}
	}
	return b, nil
}

var _ simplemedia.BlobStore = (*Backend)(nil)

func (b *Backend) ensureBucket(ctx context.Context) error {
	exists, err := b.client.BucketExists(ctx, b.bucket)
	if err != nil {
		return fmt.Errorf("failed to check if bucket exists: %w", err)
	}
	if exists {
		return nil
	}
	if err := b.client.MakeBucket(ctx, b.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	return nil
}

func isNotFound(err error) bool {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NotFound":
		return true
	}
	return false
}

func toMeta(name string, info minio.ObjectInfo) *simplemedia.ObjectMeta {
	return &simplemedia.ObjectMeta{
		Name:     name,
		Type:     info.ContentType,
		Size:     info.Size,
		Tag:      strings.Trim(info.ETag, `"`),
		Modified: info.LastModified,
	}
}

// Upload streams r to MinIO. The size is unknown, so the client uploads in
// parts.
func (b *Backend) Upload(ctx context.Context, name string, r io.Reader, contentType string) (*simplemedia.ObjectMeta, error) {
	if _, err := b.client.PutObject(ctx, b.bucket, name, r, -1, minio.PutObjectOptions{
		ContentType: contentType,
	}); err != nil {
		return nil, fmt.Errorf("failed to upload to MinIO: %w", err)
	}

	meta, found, err := b.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("object %s missing after upload", name)
	}
	return meta, nil
}

// Get retrieves metadata for an object
func (b *Backend) Get(ctx context.Context, name string) (*simplemedia.ObjectMeta, bool, error) {
	info, err := b.client.StatObject(ctx, b.bucket, name, minio.StatObjectOptions{})
	if err != nil {
		if isNotFound(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to stat object: %w", err)
	}
	return toMeta(name, info), true, nil
}

// Download opens an object for reading
func (b *Backend) Download(ctx context.Context, name string) (*simplemedia.Object, bool, error) {
	obj, err := b.client.GetObject(ctx, b.bucket, name, minio.GetObjectOptions{})
	if err != nil {
		return nil, false, fmt.Errorf("failed to download from MinIO: %w", err)
	}
	// GetObject is lazy; Stat issues the request.
	info, err := obj.Stat()
	if err != nil {
		obj.Close()
		if isNotFound(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to download from MinIO: %w", err)
	}
	return &simplemedia.Object{ObjectMeta: *toMeta(name, info), Body: obj}, true, nil
}

// Copy copies an object within the bucket
func (b *Backend) Copy(ctx context.Context, source, destination string) (*simplemedia.ObjectMeta, bool, error) {
	_, err := b.client.CopyObject(ctx,
		minio.CopyDestOptions{Bucket: b.bucket, Object: destination},
		minio.CopySrcOptions{Bucket: b.bucket, Object: source},
	)
	if err != nil {
		if isNotFound(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to copy in MinIO: %w", err)
	}
	return b.Get(ctx, destination)
}

// Delete removes an object. It is looked up first so a missing object is
// reported as not found.
func (b *Backend) Delete(ctx context.Context, name string) (*simplemedia.ObjectMeta, bool, error) {
	meta, found, err := b.Get(ctx, name)
	if err != nil || !found {
		return nil, found, err
	}
	if err := b.client.RemoveObject(ctx, b.bucket, name, minio.RemoveObjectOptions{}); err != nil {
		return nil, false, fmt.Errorf("failed to delete from MinIO: %w", err)
	}
	return meta, true, nil
}
