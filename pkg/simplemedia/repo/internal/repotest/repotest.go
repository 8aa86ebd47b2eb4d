// Package repotest holds behavior tests shared by every MetadataStore.
package repotest

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/simple-media/pkg/simplemedia"
)

// Factory returns an empty store. It is called once per subtest.
type Factory func(t *testing.T) simplemedia.MetadataStore

func strPtr(s string) *string { return &s }

func seed(t *testing.T, repo simplemedia.MetadataStore) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, repo.CreatePlaylist(ctx, &simplemedia.Playlist{ID: "p1", Name: "Playlist 1"}))
	require.NoError(t, repo.CreatePlaylist(ctx, &simplemedia.Playlist{ID: "p2", Name: "Playlist 2"}))
	require.NoError(t, repo.CreateMedia(ctx, &simplemedia.Media{ID: "m1", Name: "Media 1"}))
	require.NoError(t, repo.CreateMedia(ctx, &simplemedia.Media{ID: "m2", Name: "Media 2"}))
	require.NoError(t, repo.CreateBindings(ctx, []*simplemedia.Binding{
		{ID: "b1", PlaylistID: "p1", MediaID: "m1", Rank: "a1"},
		{ID: "b2", PlaylistID: "p1", MediaID: "m2", Rank: "a0"},
		{ID: "b3", PlaylistID: "p2", MediaID: "m1", Rank: "a0"},
	}))
}

// Run exercises newRepo against the behavior every store must share.
func Run(t *testing.T, newRepo Factory) {
	ctx := context.Background()

	t.Run("GetByIDAndName", func(t *testing.T) {
		repo := newRepo(t)
		seed(t, repo)

		m, err := repo.GetMedia(ctx, simplemedia.ByID("m1"), simplemedia.Include{})
		require.NoError(t, err)
		assert.Equal(t, "Media 1", m.Name)
		assert.Nil(t, m.Bindings)

		p, err := repo.GetPlaylist(ctx, simplemedia.ByName("Playlist 2"), simplemedia.Include{})
		require.NoError(t, err)
		assert.Equal(t, "p2", p.ID)

		_, err = repo.GetPlaylist(ctx, simplemedia.ByID("missing"), simplemedia.Include{})
		assert.ErrorIs(t, err, simplemedia.ErrNotFound)
	})

	t.Run("IncludeBindingsOrderedByRank", func(t *testing.T) {
		repo := newRepo(t)
		seed(t, repo)

		p, err := repo.GetPlaylist(ctx, simplemedia.ByID("p1"), simplemedia.Include{Bindings: true})
		require.NoError(t, err)
		require.Len(t, p.Bindings, 2)
		assert.Equal(t, "b2", p.Bindings[0].ID)
		assert.Equal(t, "b1", p.Bindings[1].ID)

		media, err := repo.ListMedia(ctx, simplemedia.ListMediaParams{Include: simplemedia.Include{Bindings: true}})
		require.NoError(t, err)
		require.Len(t, media, 2)
		assert.Len(t, media[0].Bindings, 2)
		assert.Len(t, media[1].Bindings, 1)
	})

	t.Run("ListFilterOrderPage", func(t *testing.T) {
		repo := newRepo(t)
		seed(t, repo)

		list, err := repo.ListPlaylists(ctx, simplemedia.ListPlaylistsParams{
			Order: []simplemedia.Order{{Field: "name", Desc: true}},
			Limit: 1,
		})
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, "p2", list[0].ID)

		list, err = repo.ListPlaylists(ctx, simplemedia.ListPlaylistsParams{Offset: 1})
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, "p2", list[0].ID)

		bindings, err := repo.ListBindings(ctx, simplemedia.ListBindingsParams{
			Filter: simplemedia.BindingFilter{IDs: []string{"b1", "b3"}},
		})
		require.NoError(t, err)
		require.Len(t, bindings, 2)
		assert.Equal(t, "b1", bindings[0].ID)
		assert.Equal(t, "b3", bindings[1].ID)

		n, err := repo.CountBindings(ctx, simplemedia.BindingFilter{MediaID: "m1"})
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		n, err = repo.CountMedia(ctx, simplemedia.MediaFilter{Name: "Media 2"})
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})

	t.Run("UniqueConstraints", func(t *testing.T) {
		repo := newRepo(t)
		seed(t, repo)

		err := repo.CreatePlaylist(ctx, &simplemedia.Playlist{ID: "p3", Name: "Playlist 1"})
		assert.ErrorIs(t, err, simplemedia.ErrDuplicate)

		err = repo.CreateMedia(ctx, &simplemedia.Media{ID: "m1", Name: "Other"})
		assert.ErrorIs(t, err, simplemedia.ErrDuplicate)

		err = repo.CreateBinding(ctx, &simplemedia.Binding{ID: "b4", PlaylistID: "p1", MediaID: "m1", Rank: "a0"})
		assert.ErrorIs(t, err, simplemedia.ErrDuplicate)

		_, err = repo.UpdateBinding(ctx, simplemedia.ByBindingID("b1"), simplemedia.BindingPatch{Rank: strPtr("a0")})
		assert.ErrorIs(t, err, simplemedia.ErrDuplicate)

		b, err := repo.GetBinding(ctx, simplemedia.ByBindingID("b1"))
		require.NoError(t, err)
		assert.Equal(t, "a1", b.Rank)
	})

	t.Run("MissingReference", func(t *testing.T) {
		repo := newRepo(t)
		seed(t, repo)

		err := repo.CreateBinding(ctx, &simplemedia.Binding{ID: "b4", PlaylistID: "nope", MediaID: "m1", Rank: "a5"})
		assert.ErrorIs(t, err, simplemedia.ErrReferenceNotFound)

		_, err = repo.GetBinding(ctx, simplemedia.ByBindingID("b4"))
		assert.ErrorIs(t, err, simplemedia.ErrNotFound)
	})

	t.Run("UpdateAndDelete", func(t *testing.T) {
		repo := newRepo(t)
		seed(t, repo)

		p, err := repo.UpdatePlaylist(ctx, simplemedia.ByID("p2"), simplemedia.PlaylistPatch{Name: strPtr("Renamed")})
		require.NoError(t, err)
		assert.Equal(t, "p2", p.ID)
		assert.Equal(t, "Renamed", p.Name)

		b, err := repo.GetBinding(ctx, simplemedia.ByPlaylistRank("p2", "a0"))
		require.NoError(t, err)
		assert.Equal(t, "b3", b.ID)

		b, err = repo.DeleteBinding(ctx, simplemedia.ByPlaylistRank("p2", "a0"))
		require.NoError(t, err)
		assert.Equal(t, "b3", b.ID)

		_, err = repo.DeleteBinding(ctx, simplemedia.ByBindingID("b3"))
		assert.ErrorIs(t, err, simplemedia.ErrNotFound)

		_, err = repo.UpdateMedia(ctx, simplemedia.ByID("missing"), simplemedia.MediaPatch{Name: strPtr("x")})
		assert.ErrorIs(t, err, simplemedia.ErrNotFound)

		deleted, err := repo.DeleteBindings(ctx, simplemedia.BindingFilter{PlaylistID: "p1"})
		require.NoError(t, err)
		require.Len(t, deleted, 2)
		assert.Equal(t, "b2", deleted[0].ID)

		m, err := repo.DeleteMedia(ctx, simplemedia.ByName("Media 1"))
		require.NoError(t, err)
		assert.Equal(t, "m1", m.ID)
	})

	t.Run("RollbackOnError", func(t *testing.T) {
		repo := newRepo(t)
		seed(t, repo)
		boom := errors.New("boom")

		err := repo.WithTx(ctx, func(tx simplemedia.Repository) error {
			if _, err := tx.DeleteBindings(ctx, simplemedia.BindingFilter{MediaID: "m1"}); err != nil {
				return err
			}
			if _, err := tx.DeleteMedia(ctx, simplemedia.ByID("m1")); err != nil {
				return err
			}
			return boom
		})
		assert.ErrorIs(t, err, boom)

		_, err = repo.GetMedia(ctx, simplemedia.ByID("m1"), simplemedia.Include{})
		assert.NoError(t, err)
		n, err := repo.CountBindings(ctx, simplemedia.BindingFilter{})
		require.NoError(t, err)
		assert.Equal(t, 3, n)
	})

	t.Run("ReferencesCheckedAtCommit", func(t *testing.T) {
		repo := newRepo(t)
		seed(t, repo)

		err := repo.WithTx(ctx, func(tx simplemedia.Repository) error {
			_, err := tx.UpdateMedia(ctx, simplemedia.ByID("m1"), simplemedia.MediaPatch{ID: strPtr("m9")})
			return err
		})
		assert.ErrorIs(t, err, simplemedia.ErrReferenceNotFound)

		err = repo.WithTx(ctx, func(tx simplemedia.Repository) error {
			if _, err := tx.UpdateMedia(ctx, simplemedia.ByID("m1"), simplemedia.MediaPatch{ID: strPtr("m9")}); err != nil {
				return err
			}
			moved, err := tx.DeleteBindings(ctx, simplemedia.BindingFilter{MediaID: "m1"})
			if err != nil {
				return err
			}
			for _, b := range moved {
				b.MediaID = "m9"
			}
			return tx.CreateBindings(ctx, moved)
		})
		require.NoError(t, err)

		n, err := repo.CountBindings(ctx, simplemedia.BindingFilter{MediaID: "m9"})
		require.NoError(t, err)
		assert.Equal(t, 2, n)
		_, err = repo.GetMedia(ctx, simplemedia.ByID("m1"), simplemedia.Include{})
		assert.ErrorIs(t, err, simplemedia.ErrNotFound)
	})
}
