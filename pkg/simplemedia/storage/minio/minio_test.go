package minio

import (
	"context"
	"errors"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Validation(t *testing.T) {
	_, err := New(context.Background(), Config{Bucket: "media"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "endpoint is required")

	_, err = New(context.Background(), Config{Endpoint: "localhost:9000"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bucket name is required")

	b, err := New(context.Background(), Config{Endpoint: "localhost:9000", Bucket: "media"})
	require.NoError(t, err)
	assert.Equal(t, "media", b.bucket)
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, isNotFound(minio.ErrorResponse{Code: "NoSuchKey"}))
	assert.True(t, isNotFound(minio.ErrorResponse{Code: "NotFound"}))
	assert.False(t, isNotFound(minio.ErrorResponse{Code: "AccessDenied"}))
	assert.False(t, isNotFound(errors.New("dial tcp: refused")))
}
