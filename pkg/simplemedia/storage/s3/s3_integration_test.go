//go:build integration

package s3

import (
	"context"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Requires an S3-compatible endpoint, e.g. MinIO started with
// docker run -p 9000:9000 minio/minio server /data
func TestS3Backend_Integration(t *testing.T) {
	endpoint := os.Getenv("S3_TEST_ENDPOINT")
	if endpoint == "" {
		t.Skipf("S3_TEST_ENDPOINT not set")
	}

	backend, err := New(Config{
		Bucket:                 "simple-media-test",
		Endpoint:               endpoint,
		UsePathStyle:           true,
		AccessKeyID:            envOr("S3_TEST_ACCESS_KEY", "minioadmin"),
		SecretAccessKey:        envOr("S3_TEST_SECRET_KEY", "minioadmin"),
		CreateBucketIfNotExist: true,
	})
	if err != nil {
		t.Skipf("S3 not available: %v", err)
	}
	ctx := context.Background()

	meta, err := backend.Upload(ctx, "it-song", strings.NewReader("integration"), "audio/mpeg")
	require.NoError(t, err)
	assert.Equal(t, int64(11), meta.Size)

	copied, found, err := backend.Copy(ctx, "it-song", "it-song-2")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "audio/mpeg", copied.Type)

	obj, found, err := backend.Download(ctx, "it-song-2")
	require.NoError(t, err)
	require.True(t, found)
	data, err := io.ReadAll(obj.Body)
	require.NoError(t, err)
	obj.Body.Close()
	assert.Equal(t, "integration", string(data))

	for _, name := range []string{"it-song", "it-song-2"} {
		_, found, err := backend.Delete(ctx, name)
		require.NoError(t, err)
		assert.True(t, found)
	}

	_, found, err = backend.Get(ctx, "it-song")
	require.NoError(t, err)
	assert.False(t, found)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
