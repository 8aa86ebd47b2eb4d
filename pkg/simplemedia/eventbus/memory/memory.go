// Package memory records published events in memory.
package memory

import (
	"context"
	"sync"

	"github.com/tendant/simple-media/pkg/simplemedia"
)

// Bus is a simplemedia.EventBus that keeps every published event.
type Bus struct {
	mu     sync.Mutex
	events []simplemedia.Event
	err    error
}

// New creates an empty Bus
func New() *Bus {
	return &Bus{}
}

var _ simplemedia.EventBus = (*Bus)(nil)

// Publish records event, or returns the error set by FailWith.
func (b *Bus) Publish(ctx context.Context, event simplemedia.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return b.err
	}
	b.events = append(b.events, event)
	return nil
}

// FailWith makes later Publish calls return err. A nil err restores normal
// behavior.
func (b *Bus) FailWith(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.err = err
}

// Events returns a copy of the recorded events in publish order
func (b *Bus) Events() []simplemedia.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]simplemedia.Event(nil), b.events...)
}

// Types returns the types of the recorded events in publish order
func (b *Bus) Types() []simplemedia.EventType {
	b.mu.Lock()
	defer b.mu.Unlock()
	types := make([]simplemedia.EventType, 0, len(b.events))
	for _, e := range b.events {
		types = append(types, e.Type)
	}
	return types
}

// Reset forgets recorded events
func (b *Bus) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = nil
}
