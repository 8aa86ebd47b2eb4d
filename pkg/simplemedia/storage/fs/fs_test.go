package fs

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFSBackend_BasicOps(t *testing.T) {
	tmp := t.TempDir()
	backend, err := New(Config{BaseDir: tmp})
	require.NoError(t, err)
	ctx := context.Background()

	meta, err := backend.Upload(ctx, "track", strings.NewReader("hello fs"), "audio/ogg")
	require.NoError(t, err)
	assert.Equal(t, int64(8), meta.Size)

	got, found, err := backend.Get(ctx, "track")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "audio/ogg", got.Type)
	assert.Equal(t, meta.Tag, got.Tag)

	obj, found, err := backend.Download(ctx, "track")
	require.NoError(t, err)
	require.True(t, found)
	data, err := io.ReadAll(obj.Body)
	require.NoError(t, err)
	require.NoError(t, obj.Body.Close())
	assert.Equal(t, "hello fs", string(data))

	copied, found, err := backend.Copy(ctx, "track", "renamed")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "renamed", copied.Name)
	assert.Equal(t, "audio/ogg", copied.Type)

	_, found, err = backend.Delete(ctx, "track")
	require.NoError(t, err)
	assert.True(t, found)
	_, err = os.Stat(filepath.Join(tmp, "objects", "track"))
	assert.True(t, os.IsNotExist(err))

	// No staging files are left behind.
	entries, err := os.ReadDir(filepath.Join(tmp, "objects"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "renamed", entries[0].Name())
}

func TestFSBackend_Missing(t *testing.T) {
	backend, err := New(Config{BaseDir: t.TempDir()})
	require.NoError(t, err)
	ctx := context.Background()

	_, found, err := backend.Download(ctx, "nope")
	assert.NoError(t, err)
	assert.False(t, found)

	_, found, err = backend.Copy(ctx, "nope", "other")
	assert.NoError(t, err)
	assert.False(t, found)

	_, found, err = backend.Delete(ctx, "nope")
	assert.NoError(t, err)
	assert.False(t, found)
}

func TestFSBackend_RejectsPathNames(t *testing.T) {
	backend, err := New(Config{BaseDir: t.TempDir()})
	require.NoError(t, err)

	for _, name := range []string{"", ".", "..", "a/b", `a\b`} {
		_, err := backend.Upload(context.Background(), name, strings.NewReader("x"), "text/plain")
		assert.Error(t, err, name)
	}
}

func TestNew_RequiresBaseDir(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}
