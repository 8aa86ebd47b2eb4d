package simplemedia

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/tendant/simple-media/pkg/simplemedia/bridge"
)

// service implements the Service interface
type service struct {
	store     MetadataStore
	blobs     BlobStore
	events    EventBus
	logger    *slog.Logger
	pool      *bridge.Pool
	chunkSize int
}

// Option represents a functional option for configuring the service
type Option func(*service)

// WithMetadataStore sets the metadata store for the service
func WithMetadataStore(store MetadataStore) Option {
	return func(s *service) {
		s.store = store
	}
}

// WithBlobStore sets the content store for the service
func WithBlobStore(store BlobStore) Option {
	return func(s *service) {
		s.blobs = store
	}
}

// WithEventBus sets the event bus for the service
func WithEventBus(bus EventBus) Option {
	return func(s *service) {
		s.events = bus
	}
}

// WithLogger sets the logger for the service
func WithLogger(logger *slog.Logger) Option {
	return func(s *service) {
		s.logger = logger
	}
}

// WithPool sets the pool that runs blocking reads of downloaded content.
// It must not be the pool given to NewBoundedBlobStore.
func WithPool(pool *bridge.Pool) Option {
	return func(s *service) {
		s.pool = pool
	}
}

// WithChunkSize sets the size of downloaded content chunks
func WithChunkSize(size int) Option {
	return func(s *service) {
		s.chunkSize = size
	}
}

// New creates a new service instance with the given options
func New(options ...Option) (Service, error) {
	s := &service{
		chunkSize: bridge.DefaultChunkSize,
	}

	for _, option := range options {
		option(s)
	}

	if s.store == nil {
		return nil, fmt.Errorf("metadata store is required")
	}
	if s.blobs == nil {
		return nil, fmt.Errorf("blob store is required")
	}
	if s.events == nil {
		s.events = NoopEventBus{}
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.pool == nil {
		s.pool = bridge.NewPool(bridge.DefaultPoolSize)
	}
	if s.chunkSize <= 0 {
		s.chunkSize = bridge.DefaultChunkSize
	}

	return s, nil
}

// publish sends events in order. Failures are logged and otherwise ignored;
// the change they describe is already committed.
func (s *service) publish(ctx context.Context, events ...Event) {
	ctx = context.WithoutCancel(ctx)
	for _, event := range events {
		if err := s.events.Publish(ctx, event); err != nil {
			s.logger.Error("failed to publish event", "type", event.Type, "err", err)
		}
	}
}

func bindingEvents(t EventType, bindings []*Binding) []Event {
	events := make([]Event, 0, len(bindings))
	for _, b := range bindings {
		events = append(events, BindingEvent(t, b))
	}
	return events
}

// rebind moves every binding matching filter to new foreign keys. Rows are
// deleted and inserted again with the same ID and rank, then read back.
func rebind(ctx context.Context, tx Repository, filter BindingFilter, set func(*Binding)) ([]*Binding, error) {
	bindings, err := tx.DeleteBindings(ctx, filter)
	if err != nil {
		return nil, err
	}
	if len(bindings) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(bindings))
	for _, b := range bindings {
		set(b)
		ids = append(ids, b.ID)
	}
	if err := tx.CreateBindings(ctx, bindings); err != nil {
		return nil, err
	}

	return tx.ListBindings(ctx, ListBindingsParams{
		Filter: BindingFilter{IDs: ids},
		Order:  []Order{{Field: "playlist_id"}, {Field: "rank"}},
	})
}

// idFollowingName returns the ID to write for a patch. An ID that was
// defaulted from the name follows the name unless one is given explicitly.
func idFollowingName(oldID, oldName string, id, name *string) *string {
	if id != nil || name == nil || oldID != oldName || *name == oldName {
		return id
	}
	if ValidateKey(*name) != nil {
		return nil
	}
	return name
}

func notFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
