package sqlbuild

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/simple-media/pkg/simplemedia"
)

func TestQuery_Postgres(t *testing.T) {
	q := New(Postgres).BindingFilter(simplemedia.BindingFilter{
		PlaylistID: "p1",
		IDs:        []string{"a", "b"},
	})
	assert.Equal(t, " WHERE playlist_id = $1 AND id IN ($2, $3)", q.Where())
	assert.Equal(t, " LIMIT $4 OFFSET $5", q.Page(10, 20))
	assert.Equal(t, []any{"p1", "a", "b", 10, 20}, q.Args)
}

func TestQuery_SQLite(t *testing.T) {
	q := New(SQLite).Key(simplemedia.ByName("x"))
	assert.Equal(t, " WHERE name = ?", q.Where())
	assert.Equal(t, " LIMIT -1 OFFSET ?", q.Page(0, 3))
	assert.Equal(t, []any{"x", 3}, q.Args)
}

func TestQuery_EmptyFilters(t *testing.T) {
	q := New(Postgres).MediaFilter(simplemedia.MediaFilter{})
	assert.Empty(t, q.Where())
	assert.Empty(t, q.Page(0, 0))

	q = New(Postgres).PlaylistFilter(simplemedia.PlaylistFilter{IDs: []string{}})
	assert.Equal(t, " WHERE 1 = 0", q.Where())
}

func TestQuery_BindingKeyByPosition(t *testing.T) {
	q := New(Postgres).BindingKey(simplemedia.ByPlaylistRank("p", "a0"))
	assert.Equal(t, " WHERE playlist_id = $1 AND rank = $2", q.Where())
}

func TestOrder(t *testing.T) {
	s, err := EntityOrder(nil)
	require.NoError(t, err)
	assert.Equal(t, " ORDER BY id ASC", s)

	s, err = BindingOrder([]simplemedia.Order{{Field: "rank", Desc: true}, {Field: "id"}})
	require.NoError(t, err)
	assert.Equal(t, " ORDER BY rank DESC, id ASC", s)

	_, err = EntityOrder([]simplemedia.Order{{Field: "rank"}})
	assert.ErrorIs(t, err, simplemedia.ErrInvalidData)
}
