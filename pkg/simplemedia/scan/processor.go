package scan

import (
	"context"

	"github.com/tendant/simple-media/pkg/simplemedia"
)

// MediaProcessor processes individual media found during a scan.
type MediaProcessor interface {
	// Process is called for each media. An error marks the media as failed;
	// the scan continues with the next one.
	Process(ctx context.Context, media *simplemedia.Media) error
}

// ProcessorFunc adapts a function to the MediaProcessor interface.
type ProcessorFunc func(context.Context, *simplemedia.Media) error

func (f ProcessorFunc) Process(ctx context.Context, media *simplemedia.Media) error {
	return f(ctx, media)
}

// MissingContent records media that have no content in the blob store.
type MissingContent struct {
	svc simplemedia.Service
	ids []string
}

// NewMissingContent creates a MissingContent processor.
func NewMissingContent(svc simplemedia.Service) *MissingContent {
	return &MissingContent{svc: svc}
}

func (m *MissingContent) Process(ctx context.Context, media *simplemedia.Media) error {
	st, err := m.svc.StatMediaContent(ctx, simplemedia.StatMediaContentRequest{Key: simplemedia.ByID(media.ID)})
	if err != nil {
		return err
	}
	// A nil result means the media was removed since it was listed.
	if st != nil && st.Meta == nil {
		m.ids = append(m.ids, media.ID)
	}
	return nil
}

// IDs returns the media found without content, in scan order.
func (m *MissingContent) IDs() []string {
	return m.ids
}
