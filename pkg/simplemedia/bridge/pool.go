package bridge

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// DefaultPoolSize is used when NewPool is given a non-positive size.
const DefaultPoolSize = 16

// Pool bounds how many blocking calls run at once.
type Pool struct {
	sem  *semaphore.Weighted
	size int
}

// NewPool creates a Pool that runs at most size calls concurrently.
func NewPool(size int) *Pool {
	if size <= 0 {
		size = DefaultPoolSize
	}
	return &Pool{sem: semaphore.NewWeighted(int64(size)), size: size}
}

// Size returns the concurrency bound.
func (p *Pool) Size() int {
	if p == nil {
		return 0
	}
	return p.size
}

// Run acquires a slot on p and calls fn on the calling goroutine. Waiting
// for the slot honours ctx; once fn starts it runs to completion, so fn
// should honour ctx itself. A nil Pool calls fn directly.
func (p *Pool) Run(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if p != nil {
		if err := p.sem.Acquire(ctx, 1); err != nil {
			return err
		}
		defer p.sem.Release(1)
	}
	return fn()
}

// Offload runs fn on p and waits for its result or for ctx to be done,
// whichever comes first. Waiting for a free slot also honours ctx. When ctx
// wins, fn keeps its slot until it returns and its result is discarded;
// callers that own resources fn touches must not release them until fn is
// known to have returned.
func Offload[T any](ctx context.Context, p *Pool, fn func() (T, error)) (T, error) {
	c, err := start(ctx, p, fn)
	if err != nil {
		var zero T
		return zero, err
	}
	return c.wait(ctx)
}

// call is fn running on its own goroutine. done is closed after fn has
// returned and its slot is released.
type call[T any] struct {
	res  chan result[T]
	done chan struct{}
}

func start[T any](ctx context.Context, p *Pool, fn func() (T, error)) (*call[T], error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if p != nil {
		if err := p.sem.Acquire(ctx, 1); err != nil {
			return nil, err
		}
	}

	c := &call[T]{res: make(chan result[T], 1), done: make(chan struct{})}
	go func() {
		defer close(c.done)
		if p != nil {
			defer p.sem.Release(1)
		}
		v, err := fn()
		c.res <- result[T]{v: v, err: err}
	}()
	return c, nil
}

func (c *call[T]) wait(ctx context.Context) (T, error) {
	select {
	case r := <-c.res:
		return r.v, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
