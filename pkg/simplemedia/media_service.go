package simplemedia

import (
	"context"
)

// Media operations

func (s *service) CountMedia(ctx context.Context, req CountMediaRequest) (int, error) {
	n, err := s.store.CountMedia(ctx, req.Filter)
	if err != nil {
		return 0, classify("count media", err)
	}
	return n, nil
}

func (s *service) ListMedia(ctx context.Context, req ListMediaRequest) ([]*Media, error) {
	const op = "list media"
	if err := validateRequest(op, req); err != nil {
		return nil, err
	}
	if err := validateOrder(op, req.Order, mediaOrderFields); err != nil {
		return nil, err
	}

	media, err := s.store.ListMedia(ctx, ListMediaParams(req))
	if err != nil {
		return nil, classify(op, err)
	}
	return media, nil
}

func (s *service) GetMedia(ctx context.Context, req GetMediaRequest) (*Media, error) {
	const op = "get media"
	if err := validateRequest(op, req); err != nil {
		return nil, err
	}

	media, err := s.store.GetMedia(ctx, req.Key, req.Include)
	if notFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, classify(op, err)
	}
	return media, nil
}

func (s *service) CreateMedia(ctx context.Context, req CreateMediaRequest) (*Media, error) {
	const op = "create media"
	if req.ID == "" {
		req.ID = req.Name
	}
	if err := validateRequest(op, req); err != nil {
		return nil, err
	}

	media := &Media{ID: req.ID, Name: req.Name}
	if err := s.store.CreateMedia(ctx, media); err != nil {
		return nil, classify(op, err)
	}

	s.publish(ctx, MediaEvent(EventMediaCreated, media))
	return media, nil
}

// UpdateMedia applies the patch and, when the ID changes, moves every
// binding and the content object to the new ID. Bindings move inside the
// transaction; content moves after it commits. If moving content fails the
// metadata change stands and events are still published; the updated media
// is returned together with a *ContentStoreError.
func (s *service) UpdateMedia(ctx context.Context, req UpdateMediaRequest) (*Media, error) {
	const op = "update media"
	if err := validateRequest(op, req); err != nil {
		return nil, err
	}

	var (
		old     *Media
		updated *Media
		rebound []*Binding
	)
	err := s.store.WithTx(ctx, func(tx Repository) error {
		var err error
		old, err = tx.GetMedia(ctx, req.Key, Include{})
		if notFound(err) {
			old = nil
			return nil
		}
		if err != nil {
			return err
		}

		patch := MediaPatch{
			ID:   idFollowingName(old.ID, old.Name, req.ID, req.Name),
			Name: req.Name,
		}
		updated, err = tx.UpdateMedia(ctx, ByID(old.ID), patch)
		if notFound(err) {
			updated = nil
			return nil
		}
		if err != nil {
			return err
		}

		if updated.ID != old.ID {
			rebound, err = rebind(ctx, tx, BindingFilter{MediaID: old.ID}, func(b *Binding) {
				b.MediaID = updated.ID
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

	var contentErr error
	if updated.ID != old.ID {
		if _, contentErr = s.moveContent(ctx, old.ID, updated.ID); contentErr != nil {
			s.logger.Error("failed to move media content",
				"old_id", old.ID, "new_id", updated.ID, "err", contentErr)
		}
	}

	s.publish(ctx, append(
		[]Event{MediaEvent(EventMediaUpdated, updated)},
		bindingEvents(EventBindingUpdated, rebound)...,
	)...)
	return updated, contentErr
}

// DeleteMedia deletes the media and its bindings, then its content object.
// A content failure after commit is returned as a *ContentStoreError, along
// with the deleted media, once events have been published.
func (s *service) DeleteMedia(ctx context.Context, req DeleteMediaRequest) (*Media, error) {
	const op = "delete media"
	if err := validateRequest(op, req); err != nil {
		return nil, err
	}

	var (
		deleted  *Media
		cascaded []*Binding
	)
	err := s.store.WithTx(ctx, func(tx Repository) error {
		var err error
		deleted, err = tx.DeleteMedia(ctx, req.Key)
		if notFound(err) {
			deleted = nil
			return nil
		}
		if err != nil {
			return err
		}

		cascaded, err = tx.DeleteBindings(ctx, BindingFilter{MediaID: deleted.ID})
		return err
	})
	if err != nil {
		return nil, classify(op, err)
	}
	if deleted == nil {
		return nil, nil
	}

	var contentErr error
	if _, _, err := s.blobs.Delete(context.WithoutCancel(ctx), deleted.ID); err != nil {
		contentErr = &ContentStoreError{Op: "delete", Key: deleted.ID, Err: err}
		s.logger.Error("failed to delete media content", "id", deleted.ID, "err", err)
	}

	s.publish(ctx, append(
		[]Event{MediaEvent(EventMediaDeleted, deleted)},
		bindingEvents(EventBindingDeleted, cascaded)...,
	)...)
	return deleted, contentErr
}
