package bridge_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/simple-media/pkg/simplemedia/bridge"
)

// countingStream is a Stream over fixed items that records how often it
// was advanced.
type countingStream struct {
	items  [][]byte
	i      int
	fail   error
	calls  atomic.Int32
	closed atomic.Bool
}

func (s *countingStream) Next(ctx context.Context) ([]byte, error) {
	s.calls.Add(1)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.i >= len(s.items) {
		if s.fail != nil {
			return nil, s.fail
		}
		return nil, io.EOF
	}
	v := s.items[s.i]
	s.i++
	return v, nil
}

func (s *countingStream) Close() error {
	s.closed.Store(true)
	return nil
}

// blockingStream blocks until its context is done.
type blockingStream struct {
	closed atomic.Bool
}

func (s *blockingStream) Next(ctx context.Context) ([]byte, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (s *blockingStream) Close() error {
	s.closed.Store(true)
	return nil
}

// gateIterator blocks each Next until release is closed.
type gateIterator struct {
	release chan struct{}
}

func (g *gateIterator) Next() ([]byte, error) {
	<-g.release
	return []byte("late"), nil
}

func (g *gateIterator) Close() error { return nil }

func drain(t *testing.T, it bridge.Iterator[[]byte]) [][]byte {
	t.Helper()
	var out [][]byte
	for {
		v, err := it.Next()
		if errors.Is(err, io.EOF) {
			return out
		}
		require.NoError(t, err)
		out = append(out, v)
	}
}

func TestRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		items [][]byte
	}{
		{name: "empty", items: nil},
		{name: "single", items: [][]byte{[]byte("hello")}},
		{name: "several", items: [][]byte{[]byte("a"), []byte("bc"), []byte("def")}},
		{name: "zero length chunks", items: [][]byte{{}, []byte("x"), {}, {}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			pool := bridge.NewPool(2)

			stream := bridge.SyncToAsync(pool, bridge.Slice(tt.items))
			it := bridge.AsyncToSync(ctx, stream)
			defer it.Close()

			got := drain(t, it)
			require.Len(t, got, len(tt.items))
			for i := range tt.items {
				assert.Equal(t, len(tt.items[i]), len(got[i]))
				assert.True(t, bytes.Equal(tt.items[i], got[i]))
			}

			// Exhausted sequences keep reporting the end.
			_, err := it.Next()
			assert.ErrorIs(t, err, io.EOF)
		})
	}
}

func TestAsyncToSyncDoesNotReadAhead(t *testing.T) {
	src := &countingStream{items: [][]byte{[]byte("1"), []byte("2"), []byte("3")}}
	it := bridge.AsyncToSync(context.Background(), src)

	v, err := it.Next()
	require.NoError(t, err)
	assert.Equal(t, "1", string(v))
	assert.Equal(t, int32(1), src.calls.Load())

	v, err = it.Next()
	require.NoError(t, err)
	assert.Equal(t, "2", string(v))
	assert.Equal(t, int32(2), src.calls.Load())

	require.NoError(t, it.Close())
	assert.True(t, src.closed.Load())
	assert.Equal(t, int32(2), src.calls.Load())

	_, err = it.Next()
	assert.ErrorIs(t, err, bridge.ErrClosed)
}

func TestAsyncToSyncStopsAtFirstError(t *testing.T) {
	boom := errors.New("boom")
	src := &countingStream{items: [][]byte{[]byte("1")}, fail: boom}
	it := bridge.AsyncToSync(context.Background(), src)
	defer it.Close()

	_, err := it.Next()
	require.NoError(t, err)
	_, err = it.Next()
	assert.ErrorIs(t, err, boom)
	_, err = it.Next()
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, int32(2), src.calls.Load())
}

func TestAsyncToSyncCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	src := &blockingStream{}
	it := bridge.AsyncToSync(ctx, src)

	errCh := make(chan error, 1)
	go func() {
		_, err := it.Next()
		errCh <- err
	}()

	cancel()
	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("Next did not return after cancellation")
	}

	require.NoError(t, it.Close())
	assert.True(t, src.closed.Load())
}

func TestAsyncToSyncCloseWithoutConsuming(t *testing.T) {
	src := &blockingStream{}
	it := bridge.AsyncToSync(context.Background(), src)
	require.NoError(t, it.Close())
	require.NoError(t, it.Close())
	assert.True(t, src.closed.Load())
}

func TestSyncToAsyncCancellation(t *testing.T) {
	gate := &gateIterator{release: make(chan struct{})}

	stream := bridge.SyncToAsync(bridge.NewPool(1), bridge.Iterator[[]byte](gate))
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := stream.Next(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	// The stream stays failed even with a fresh context.
	_, err = stream.Next(context.Background())
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(gate.release)
	require.NoError(t, stream.Close())
}

// gatedReader blocks every Read until release is closed and records whether
// Close ran while a Read was in progress.
type gatedReader struct {
	release            chan struct{}
	reading            atomic.Bool
	closed             atomic.Bool
	closedWhileReading atomic.Bool
}

func (r *gatedReader) Read(p []byte) (int, error) {
	r.reading.Store(true)
	defer r.reading.Store(false)
	<-r.release
	return 0, io.EOF
}

func (r *gatedReader) Close() error {
	if r.reading.Load() {
		r.closedWhileReading.Store(true)
	}
	r.closed.Store(true)
	return nil
}

// closeAfterRelease closes c on another goroutine, checks that it is still
// blocked while release is open, then opens release and returns Close's
// result.
func closeAfterRelease(t *testing.T, c io.Closer, release chan struct{}) error {
	t.Helper()
	closed := make(chan error, 1)
	go func() { closed <- c.Close() }()

	select {
	case err := <-closed:
		t.Fatalf("Close returned before the blocking read finished: %v", err)
	case <-time.After(20 * time.Millisecond):
	}

	close(release)
	select {
	case err := <-closed:
		return err
	case <-time.After(time.Second):
		t.Fatal("Close did not return after the read finished")
		return nil
	}
}

func TestSyncToAsyncCloseWaitsForBlockingRead(t *testing.T) {
	body := &gatedReader{release: make(chan struct{})}
	stream := bridge.SyncToAsync(bridge.NewPool(1), bridge.Chunks(body, 4))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()
	_, err := stream.Next(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	require.NoError(t, closeAfterRelease(t, stream, body.release))
	assert.True(t, body.closed.Load())
	assert.False(t, body.closedWhileReading.Load())
}

func TestAsyncToSyncCloseJoinsBlockingSource(t *testing.T) {
	body := &gatedReader{release: make(chan struct{})}
	stream := bridge.SyncToAsync(bridge.NewPool(1), bridge.Chunks(body, 4))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()
	r := bridge.Reader(bridge.AsyncToSync(ctx, stream))

	_, err := r.Read(make([]byte, 8))
	require.ErrorIs(t, err, context.DeadlineExceeded)

	require.NoError(t, closeAfterRelease(t, r, body.release))
	assert.True(t, body.closed.Load())
	assert.False(t, body.closedWhileReading.Load())
}

func TestPoolRun(t *testing.T) {
	pool := bridge.NewPool(1)

	release := make(chan struct{})
	started := make(chan struct{})
	go func() {
		_ = pool.Run(context.Background(), func() error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	ran := false
	err := pool.Run(ctx, func() error {
		ran = true
		return nil
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, ran)

	close(release)
	boom := errors.New("boom")
	assert.ErrorIs(t, pool.Run(context.Background(), func() error { return boom }), boom)

	var nilPool *bridge.Pool
	assert.NoError(t, nilPool.Run(context.Background(), func() error { return nil }))
}

func TestPoolBoundsConcurrency(t *testing.T) {
	pool := bridge.NewPool(1)
	assert.Equal(t, 1, pool.Size())

	release := make(chan struct{})
	started := make(chan struct{})
	go func() {
		_, _ = bridge.Offload(context.Background(), pool, func() (int, error) {
			close(started)
			<-release
			return 1, nil
		})
	}()
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := bridge.Offload(ctx, pool, func() (int, error) { return 2, nil })
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)
	v, err := bridge.Offload(context.Background(), pool, func() (int, error) { return 3, nil })
	require.NoError(t, err)
	assert.Equal(t, 3, v)
}

func TestChunksAndReader(t *testing.T) {
	data := strings.Repeat("0123456789", 10)

	chunks := drain(t, bridge.Chunks(strings.NewReader(data), 32))
	require.Len(t, chunks, 4)
	assert.Len(t, chunks[0], 32)
	assert.Len(t, chunks[3], 4)

	r := bridge.Reader(bridge.Chunks(strings.NewReader(data), 7))
	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, data, string(got))
	require.NoError(t, r.Close())
}

func TestReaderSkipsZeroLengthChunks(t *testing.T) {
	it := bridge.Slice([][]byte{{}, []byte("ab"), {}, []byte("c")})
	got, err := io.ReadAll(bridge.Reader(it))
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))
}

func TestCollect(t *testing.T) {
	stream := bridge.SyncToAsync(nil, bridge.Slice([]int{1, 2, 3}))
	got, err := bridge.Collect(context.Background(), stream)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, got)
}
