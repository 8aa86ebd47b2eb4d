package simplemedia

import (
	"cmp"
	"context"
	"slices"
)

// Playlist operations

func (s *service) CountPlaylists(ctx context.Context, req CountPlaylistsRequest) (int, error) {
	n, err := s.store.CountPlaylists(ctx, req.Filter)
	if err != nil {
		return 0, classify("count playlists", err)
	}
	return n, nil
}

func (s *service) ListPlaylists(ctx context.Context, req ListPlaylistsRequest) ([]*Playlist, error) {
	const op = "list playlists"
	if err := validateRequest(op, req); err != nil {
		return nil, err
	}
	if err := validateOrder(op, req.Order, playlistOrderFields); err != nil {
		return nil, err
	}

	playlists, err := s.store.ListPlaylists(ctx, ListPlaylistsParams(req))
	if err != nil {
		return nil, classify(op, err)
	}
	return playlists, nil
}

func (s *service) GetPlaylist(ctx context.Context, req GetPlaylistRequest) (*Playlist, error) {
	const op = "get playlist"
	if err := validateRequest(op, req); err != nil {
		return nil, err
	}

	playlist, err := s.store.GetPlaylist(ctx, req.Key, req.Include)
	if notFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, classify(op, err)
	}
	return playlist, nil
}

func (s *service) CreatePlaylist(ctx context.Context, req CreatePlaylistRequest) (*Playlist, error) {
	const op = "create playlist"
	if req.ID == "" {
		req.ID = req.Name
	}
	if err := validateRequest(op, req); err != nil {
		return nil, err
	}

	playlist := &Playlist{ID: req.ID, Name: req.Name}
	if err := s.store.CreatePlaylist(ctx, playlist); err != nil {
		return nil, classify(op, err)
	}

	s.publish(ctx, PlaylistEvent(EventPlaylistCreated, playlist))
	return playlist, nil
}

func (s *service) UpdatePlaylist(ctx context.Context, req UpdatePlaylistRequest) (*Playlist, error) {
	const op = "update playlist"
	if err := validateRequest(op, req); err != nil {
		return nil, err
	}

	var (
		updated *Playlist
		rebound []*Binding
	)
	err := s.store.WithTx(ctx, func(tx Repository) error {
		old, err := tx.GetPlaylist(ctx, req.Key, Include{})
		if notFound(err) {
			return nil
		}
		if err != nil {
			return err
		}

		patch := PlaylistPatch{
			ID:   idFollowingName(old.ID, old.Name, req.ID, req.Name),
			Name: req.Name,
		}
		updated, err = tx.UpdatePlaylist(ctx, ByID(old.ID), patch)
		if notFound(err) {
			updated = nil
			return nil
		}
		if err != nil {
			return err
		}

		if updated.ID != old.ID {
			rebound, err = rebind(ctx, tx, BindingFilter{PlaylistID: old.ID}, func(b *Binding) {
				b.PlaylistID = updated.ID
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, classify(op, err)
	}
	if updated == nil {
		return nil, nil
	}

	s.publish(ctx, append(
		[]Event{PlaylistEvent(EventPlaylistUpdated, updated)},
		bindingEvents(EventBindingUpdated, rebound)...,
	)...)
	return updated, nil
}

func (s *service) DeletePlaylist(ctx context.Context, req DeletePlaylistRequest) (*Playlist, error) {
	const op = "delete playlist"
	if err := validateRequest(op, req); err != nil {
		return nil, err
	}

	var (
		deleted  *Playlist
		cascaded []*Binding
	)
	err := s.store.WithTx(ctx, func(tx Repository) error {
		var err error
		deleted, err = tx.DeletePlaylist(ctx, req.Key)
		if notFound(err) {
			deleted = nil
			return nil
		}
		if err != nil {
			return err
		}

		cascaded, err = tx.DeleteBindings(ctx, BindingFilter{PlaylistID: deleted.ID})
		return err
	})
	if err != nil {
		return nil, classify(op, err)
	}
	if deleted == nil {
		return nil, nil
	}

	s.publish(ctx, append(
		[]Event{PlaylistEvent(EventPlaylistDeleted, deleted)},
		bindingEvents(EventBindingDeleted, cascaded)...,
	)...)
	return deleted, nil
}

func (s *service) PlaylistM3U(ctx context.Context, req PlaylistM3URequest) (*M3U, error) {
	const op = "playlist m3u"
	if err := validateRequest(op, req); err != nil {
		return nil, err
	}

	playlist, err := s.store.GetPlaylist(ctx, req.Key, Include{Bindings: true})
	if notFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, classify(op, err)
	}

	bindings := slices.Clone(playlist.Bindings)
	slices.SortStableFunc(bindings, func(a, b *Binding) int {
		return cmp.Compare(a.Rank, b.Rank)
	})
	return &M3U{Playlist: playlist, Text: RenderM3U(req.BaseURL, bindings)}, nil
}
