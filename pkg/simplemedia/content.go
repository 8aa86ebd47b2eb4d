package simplemedia

import (
	"context"
	"errors"

	"github.com/tendant/simple-media/pkg/simplemedia/bridge"
)

// DefaultContentType is stored when an upload does not name one.
const DefaultContentType = "application/octet-stream"

// UploadMediaContent stores content under the media's current ID. It takes
// ownership of req.Content.Data and closes it. No event is published.
func (s *service) UploadMediaContent(ctx context.Context, req UploadMediaContentRequest) (*Media, error) {
	const op = "upload media content"
	if req.Content.Data == nil {
		return nil, &ValidationError{Op: op, Err: errors.New("content data is required")}
	}
	data := bridge.AsyncToSync(ctx, req.Content.Data)
	body := bridge.Reader(data)
	defer body.Close()

	if err := validateRequest(op, req); err != nil {
		return nil, err
	}

	media, err := s.store.GetMedia(ctx, req.Key, Include{})
	if notFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, classify(op, err)
	}

	contentType := req.Content.Type
	if contentType == "" {
		contentType = DefaultContentType
	}
	if _, err := s.blobs.Upload(ctx, media.ID, body, contentType); err != nil {
		return nil, &ContentStoreError{Op: "upload", Key: media.ID, Err: err}
	}
	return media, nil
}

// DownloadMediaContent opens the content of a media. The caller closes
// Content.Data.
func (s *service) DownloadMediaContent(ctx context.Context, req DownloadMediaContentRequest) (*Download, error) {
	const op = "download media content"
	if err := validateRequest(op, req); err != nil {
		return nil, err
	}

	media, err := s.store.GetMedia(ctx, req.Key, Include{})
	if notFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, classify(op, err)
	}

	obj, found, err := s.blobs.Download(ctx, media.ID)
	if err != nil {
		return nil, &ContentStoreError{Op: "download", Key: media.ID, Err: err}
	}
	if !found {
		return &Download{Media: media}, nil
	}

	data := bridge.SyncToAsync(s.pool, bridge.Chunks(obj.Body, s.chunkSize))
	return &Download{
		Media:   media,
		Content: &Content{ObjectMeta: obj.ObjectMeta, Data: data},
	}, nil
}

func (s *service) StatMediaContent(ctx context.Context, req StatMediaContentRequest) (*ContentStat, error) {
	const op = "stat media content"
	if err := validateRequest(op, req); err != nil {
		return nil, err
	}

	media, err := s.store.GetMedia(ctx, req.Key, Include{})
	if notFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, classify(op, err)
	}

	meta, found, err := s.blobs.Get(ctx, media.ID)
	if err != nil {
		return nil, &ContentStoreError{Op: "get", Key: media.ID, Err: err}
	}
	if !found {
		return &ContentStat{Media: media}, nil
	}
	return &ContentStat{Media: media, Meta: meta}, nil
}

// SyncMediaContent moves content from OldID to NewID. It returns nil when
// there is nothing at OldID.
func (s *service) SyncMediaContent(ctx context.Context, req SyncMediaContentRequest) (*ObjectMeta, error) {
	if err := validateRequest("sync media content", req); err != nil {
		return nil, err
	}
	return s.moveContent(ctx, req.OldID, req.NewID)
}

// moveContent copies oldID to newID and then deletes oldID. A missing
// object at either step is not an error. It runs to completion even if ctx
// is cancelled, since the metadata it follows is already committed.
func (s *service) moveContent(ctx context.Context, oldID, newID string) (*ObjectMeta, error) {
	ctx = context.WithoutCancel(ctx)

	meta, found, err := s.blobs.Copy(ctx, oldID, newID)
	if err != nil {
		return nil, &ContentStoreError{Op: "copy", Key: oldID, Err: err}
	}
	if !found {
		return nil, nil
	}

	if _, _, err := s.blobs.Delete(ctx, oldID); err != nil {
		return meta, &ContentStoreError{Op: "delete", Key: oldID, Err: err}
	}
	return meta, nil
}
