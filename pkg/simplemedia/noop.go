package simplemedia

import (
	"context"
	"log/slog"
)

// NoopEventBus is a no-operation implementation of EventBus
type NoopEventBus struct{}

// NewNoopEventBus creates a new no-operation event bus
func NewNoopEventBus() EventBus {
	return NoopEventBus{}
}

// Publish does nothing and returns nil
func (NoopEventBus) Publish(ctx context.Context, event Event) error {
	return nil
}

// LogEventBus is an event bus that logs events but takes no other action.
// Useful for development and debugging.
type LogEventBus struct {
	logger *slog.Logger
}

// NewLogEventBus creates a new logging event bus
func NewLogEventBus(logger *slog.Logger) EventBus {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogEventBus{logger: logger}
}

// Publish logs the event
func (b *LogEventBus) Publish(ctx context.Context, event Event) error {
	attrs := []any{"type", event.Type, "created_at", event.CreatedAt}
	switch {
	case event.Data.Playlist != nil:
		attrs = append(attrs, "playlist_id", event.Data.Playlist.ID)
	case event.Data.Media != nil:
		attrs = append(attrs, "media_id", event.Data.Media.ID)
	case event.Data.Binding != nil:
		attrs = append(attrs, "binding_id", event.Data.Binding.ID)
	}
	b.logger.InfoContext(ctx, "event", attrs...)
	return nil
}
