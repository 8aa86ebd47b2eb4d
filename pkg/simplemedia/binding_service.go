package simplemedia

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/tendant/simple-media/pkg/simplemedia/orderkey"
)

// Binding operations

func (s *service) CountBindings(ctx context.Context, req CountBindingsRequest) (int, error) {
	n, err := s.store.CountBindings(ctx, req.Filter)
	if err != nil {
		return 0, classify("count bindings", err)
	}
	return n, nil
}

func (s *service) ListBindings(ctx context.Context, req ListBindingsRequest) ([]*Binding, error) {
	const op = "list bindings"
	if err := validateRequest(op, req); err != nil {
		return nil, err
	}
	if err := validateOrder(op, req.Order, bindingOrderFields); err != nil {
		return nil, err
	}

	bindings, err := s.store.ListBindings(ctx, ListBindingsParams(req))
	if err != nil {
		return nil, classify(op, err)
	}
	return bindings, nil
}

func (s *service) GetBinding(ctx context.Context, req GetBindingRequest) (*Binding, error) {
	const op = "get binding"
	if err := validateRequest(op, req); err != nil {
		return nil, err
	}

	binding, err := s.store.GetBinding(ctx, req.Key)
	if notFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, classify(op, err)
	}
	return binding, nil
}

func (s *service) CreateBinding(ctx context.Context, req CreateBindingRequest) (*Binding, error) {
	const op = "create binding"
	if err := validateRequest(op, req); err != nil {
		return nil, err
	}
	if req.Rank != "" {
		if err := ValidateRank(req.Rank); err != nil {
			return nil, err
		}
	}
	if req.ID == "" {
		req.ID = uuid.New().String()
	}

	binding := &Binding{
		ID:         req.ID,
		PlaylistID: req.PlaylistID,
		MediaID:    req.MediaID,
		Rank:       req.Rank,
	}
	err := s.store.WithTx(ctx, func(tx Repository) error {
		if err := checkReferences(ctx, tx, &binding.PlaylistID, &binding.MediaID); err != nil {
			return err
		}
		if binding.Rank == "" {
			rank, err := nextRank(ctx, tx, binding.PlaylistID)
			if err != nil {
				return err
			}
			binding.Rank = rank
		}
		return tx.CreateBinding(ctx, binding)
	})
	if err != nil {
		return nil, classify(op, err)
	}

	s.publish(ctx, BindingEvent(EventBindingCreated, binding))
	return binding, nil
}

func (s *service) UpdateBinding(ctx context.Context, req UpdateBindingRequest) (*Binding, error) {
	const op = "update binding"
	if err := validateRequest(op, req); err != nil {
		return nil, err
	}
	if req.Rank != nil {
		if err := ValidateRank(*req.Rank); err != nil {
			return nil, err
		}
	}

	var updated *Binding
	err := s.store.WithTx(ctx, func(tx Repository) error {
		if err := checkReferences(ctx, tx, req.PlaylistID, req.MediaID); err != nil {
			return err
		}
		var err error
		updated, err = tx.UpdateBinding(ctx, req.Key, BindingPatch{
			PlaylistID: req.PlaylistID,
			MediaID:    req.MediaID,
			Rank:       req.Rank,
		})
		if notFound(err) {
			updated = nil
			return nil
		}
		return err
	})
	if err != nil {
		return nil, classify(op, err)
	}
	if updated == nil {
		return nil, nil
	}

	s.publish(ctx, BindingEvent(EventBindingUpdated, updated))
	return updated, nil
}

func (s *service) DeleteBinding(ctx context.Context, req DeleteBindingRequest) (*Binding, error) {
	const op = "delete binding"
	if err := validateRequest(op, req); err != nil {
		return nil, err
	}

	deleted, err := s.store.DeleteBinding(ctx, req.Key)
	if notFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, classify(op, err)
	}

	s.publish(ctx, BindingEvent(EventBindingDeleted, deleted))
	return deleted, nil
}

// checkReferences verifies that the referenced playlist and media exist.
// Nil arguments are not checked.
func checkReferences(ctx context.Context, tx Repository, playlistID, mediaID *string) error {
	if playlistID != nil {
		if _, err := tx.GetPlaylist(ctx, ByID(*playlistID), Include{}); err != nil {
			if notFound(err) {
				return fmt.Errorf("playlist %s: %w", *playlistID, ErrReferenceNotFound)
			}
			return err
		}
	}
	if mediaID != nil {
		if _, err := tx.GetMedia(ctx, ByID(*mediaID), Include{}); err != nil {
			if notFound(err) {
				return fmt.Errorf("media %s: %w", *mediaID, ErrReferenceNotFound)
			}
			return err
		}
	}
	return nil
}

// nextRank returns a rank after the last binding of a playlist.
func nextRank(ctx context.Context, tx Repository, playlistID string) (string, error) {
	last, err := tx.ListBindings(ctx, ListBindingsParams{
		Filter: BindingFilter{PlaylistID: playlistID},
		Order:  []Order{{Field: "rank", Desc: true}},
		Limit:  1,
	})
	if err != nil {
		return "", err
	}
	after := ""
	if len(last) > 0 {
		after = last[0].Rank
	}
	rank, err := orderkey.KeyBetween(after, "")
	if err != nil {
		return "", &InvalidRankError{Rank: after, Err: err}
	}
	return rank, nil
}
