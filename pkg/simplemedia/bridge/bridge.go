// Package bridge converts between two pull-based sequence styles.
//
// A Stream is advanced with a context and never blocks past that context's
// cancellation; request handlers consume and produce Streams. An Iterator is
// advanced with a plain blocking call; storage SDKs that read from an
// io.Reader or write to an io.Writer want Iterators. Both styles end with
// io.EOF and stop at the first error they return.
//
// AsyncToSync turns a Stream into an Iterator by running the Stream on one
// dedicated goroutine. SyncToAsync turns an Iterator into a Stream by running
// each blocking call on a bounded Pool. Neither reads ahead: one call on the
// result advances the source by exactly one item.
package bridge

import (
	"context"
	"errors"
	"io"
	"sync"
)

// ErrClosed is returned by Next after Close.
var ErrClosed = errors.New("bridge: sequence closed")

// Stream is a context-aware pull sequence. Next returns io.EOF after the
// last item.
type Stream[T any] interface {
	Next(ctx context.Context) (T, error)
	Close() error
}

// Iterator is a blocking pull sequence. Next returns io.EOF after the last
// item.
type Iterator[T any] interface {
	Next() (T, error)
	Close() error
}

type result[T any] struct {
	v   T
	err error
}

// AsyncToSync adapts s so it can be consumed by blocking code. Items are
// pulled from s on a goroutine owned by the returned Iterator; that goroutine
// exits when ctx is done or the Iterator is closed. Close always waits for
// it and then closes s.
//
// The returned Iterator must be used by one goroutine at a time.
func AsyncToSync[T any](ctx context.Context, s Stream[T]) Iterator[T] {
	parent := ctx
	ctx, cancel := context.WithCancel(ctx)
	it := &syncIterator[T]{
		parent:   parent,
		ctx:      ctx,
		src:      s,
		requests: make(chan struct{}),
		results:  make(chan result[T], 1),
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	go it.run()
	return it
}

type syncIterator[T any] struct {
	parent   context.Context
	ctx      context.Context
	src      Stream[T]
	requests chan struct{}
	results  chan result[T]
	cancel   context.CancelFunc
	done     chan struct{}

	err       error
	isClosed  bool
	closeOnce sync.Once
	closeErr  error
}

func (it *syncIterator[T]) run() {
	defer close(it.done)
	for {
		select {
		case <-it.ctx.Done():
			return
		case <-it.requests:
		}
		v, err := it.src.Next(it.ctx)
		it.results <- result[T]{v: v, err: err}
		if err != nil {
			return
		}
	}
}

func (it *syncIterator[T]) Next() (T, error) {
	var zero T
	if it.err != nil {
		return zero, it.err
	}
	select {
	case it.requests <- struct{}{}:
	case <-it.done:
		it.err = ErrClosed
		if err := it.parent.Err(); err != nil && !it.isClosed {
			it.err = err
		}
		return zero, it.err
	}
	r := <-it.results
	if r.err != nil {
		it.err = r.err
	}
	return r.v, r.err
}

func (it *syncIterator[T]) Close() error {
	it.closeOnce.Do(func() {
		it.cancel()
		<-it.done
		it.closeErr = it.src.Close()
	})
	it.isClosed = true
	it.err = ErrClosed
	return it.closeErr
}

// SyncToAsync adapts it so it can be consumed with a context. Each call to
// Next runs one blocking it.Next on p. If ctx is done first, Next returns the
// context error and the Stream is failed; the blocking call finishes in the
// background and its item is dropped. Close waits for that call before it
// closes it. A nil Pool runs every call on its own goroutine.
//
// The returned Stream must be used by one goroutine at a time.
func SyncToAsync[T any](p *Pool, it Iterator[T]) Stream[T] {
	return &asyncStream[T]{pool: p, src: it}
}

type asyncStream[T any] struct {
	pool *Pool
	src  Iterator[T]
	err  error

	// last is the most recent blocking call; it may outlive a cancelled Next
	last *call[T]
}

func (s *asyncStream[T]) Next(ctx context.Context) (T, error) {
	var zero T
	if s.err != nil {
		return zero, s.err
	}
	c, err := start(ctx, s.pool, s.src.Next)
	if err != nil {
		s.err = err
		return zero, err
	}
	s.last = c

	v, err := c.wait(ctx)
	if err != nil {
		s.err = err
	}
	return v, err
}

func (s *asyncStream[T]) Close() error {
	if s.err == nil {
		s.err = ErrClosed
	}
	if s.last != nil {
		<-s.last.done
		s.last = nil
	}
	return s.src.Close()
}

// Collect drains s into a slice. It does not close s.
func Collect[T any](ctx context.Context, s Stream[T]) ([]T, error) {
	var out []T
	for {
		v, err := s.Next(ctx)
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, v)
	}
}

// Slice returns an Iterator over xs.
func Slice[T any](xs []T) Iterator[T] {
	return &sliceIterator[T]{xs: xs}
}

type sliceIterator[T any] struct {
	xs []T
	i  int
}

func (s *sliceIterator[T]) Next() (T, error) {
	var zero T
	if s.i >= len(s.xs) {
		return zero, io.EOF
	}
	v := s.xs[s.i]
	s.i++
	return v, nil
}

func (s *sliceIterator[T]) Close() error {
	s.i = len(s.xs)
	return nil
}
