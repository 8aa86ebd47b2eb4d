// Package scan walks the media catalog in batches and hands each media to a
// processor. It is used for maintenance jobs such as finding media whose
// content is missing.
package scan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/tendant/simple-media/pkg/simplemedia"
)

// DefaultBatchSize is the page size used when ScanOptions.BatchSize is zero.
const DefaultBatchSize = 100

// Scanner queries media and processes them with the provided processor.
type Scanner struct {
	svc    simplemedia.Service
	logger *slog.Logger
}

// New creates a new Scanner instance.
func New(svc simplemedia.Service, logger *slog.Logger) *Scanner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scanner{svc: svc, logger: logger}
}

// ScanOptions configures the scan operation.
type ScanOptions struct {
	// Filter selects which media to process
	Filter simplemedia.MediaFilter

	// Processor is required unless DryRun is set
	Processor MediaProcessor

	BatchSize int

	// DryRun only logs what would be processed
	DryRun bool

	// OnProgress is called after each batch
	OnProgress func(processed, found int)
}

// ScanResult contains statistics about the scan operation.
type ScanResult struct {
	TotalFound     int
	TotalProcessed int
	TotalFailed    int
	FailedIDs      []string
}

// Scan pages through media ordered by ID and processes each one. A
// processor error marks that media as failed and the scan moves on; a
// listing error stops the scan.
func (s *Scanner) Scan(ctx context.Context, opts ScanOptions) (*ScanResult, error) {
	result := &ScanResult{}

	if !opts.DryRun && opts.Processor == nil {
		return result, errors.New("processor is required when DryRun is false")
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}

	for offset := 0; ; offset += opts.BatchSize {
		batch, err := s.svc.ListMedia(ctx, simplemedia.ListMediaRequest{
			Filter: opts.Filter,
			Order:  []simplemedia.Order{{Field: "id"}},
			Limit:  opts.BatchSize,
			Offset: offset,
		})
		if err != nil {
			return result, fmt.Errorf("failed to list media: %w", err)
		}
		result.TotalFound += len(batch)

		for _, media := range batch {
			if opts.DryRun {
				s.logger.Info("dry run: would process media", "media_id", media.ID, "name", media.Name)
				result.TotalProcessed++
				continue
			}
			if err := opts.Processor.Process(ctx, media); err != nil {
				result.TotalFailed++
				result.FailedIDs = append(result.FailedIDs, media.ID)
				s.logger.Error("failed to process media", "media_id", media.ID, "error", err)
				continue
			}
			result.TotalProcessed++
		}

		if opts.OnProgress != nil {
			opts.OnProgress(result.TotalProcessed+result.TotalFailed, result.TotalFound)
		}
		if len(batch) < opts.BatchSize {
			return result, nil
		}
	}
}

// ForEach processes every media matching filter with fn.
func (s *Scanner) ForEach(ctx context.Context, filter simplemedia.MediaFilter, fn func(context.Context, *simplemedia.Media) error) (*ScanResult, error) {
	return s.Scan(ctx, ScanOptions{
		Filter:    filter,
		Processor: ProcessorFunc(fn),
	})
}
