package memory_test

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/simple-media/pkg/simplemedia/storage/memory"
)

func TestMemoryBackend(t *testing.T) {
	ctx := context.Background()
	b := memory.New()

	meta, err := b.Upload(ctx, "song", strings.NewReader("la la la"), "audio/mpeg")
	require.NoError(t, err)
	assert.Equal(t, int64(8), meta.Size)
	assert.Equal(t, "audio/mpeg", meta.Type)
	assert.NotEmpty(t, meta.Tag)

	obj, found, err := b.Download(ctx, "song")
	require.NoError(t, err)
	require.True(t, found)
	data, err := io.ReadAll(obj.Body)
	require.NoError(t, err)
	assert.Equal(t, "la la la", string(data))

	copied, found, err := b.Copy(ctx, "song", "tune")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "tune", copied.Name)
	assert.Equal(t, meta.Tag, copied.Tag)

	_, found, err = b.Delete(ctx, "song")
	require.NoError(t, err)
	assert.True(t, found)
	assert.ElementsMatch(t, []string{"tune"}, b.Names())

	t.Run("MissingObjects", func(t *testing.T) {
		_, found, err := b.Get(ctx, "song")
		assert.NoError(t, err)
		assert.False(t, found)

		_, found, err = b.Copy(ctx, "song", "other")
		assert.NoError(t, err)
		assert.False(t, found)

		_, found, err = b.Delete(ctx, "song")
		assert.NoError(t, err)
		assert.False(t, found)
	})
}
