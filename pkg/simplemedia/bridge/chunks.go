package bridge

import (
	"errors"
	"io"
)

// DefaultChunkSize is the chunk size used by Chunks for non-positive sizes.
const DefaultChunkSize = 64 * 1024

// Chunks returns an Iterator that reads r in chunks of at most size bytes.
// Each chunk is a fresh slice. Close closes r when it is an io.Closer.
func Chunks(r io.Reader, size int) Iterator[[]byte] {
	if size <= 0 {
		size = DefaultChunkSize
	}
	return &chunkIterator{r: r, size: size}
}

type chunkIterator struct {
	r    io.Reader
	size int
	err  error
}

func (c *chunkIterator) Next() ([]byte, error) {
	if c.err != nil {
		return nil, c.err
	}
	buf := make([]byte, c.size)
	n, err := io.ReadFull(c.r, buf)
	switch {
	case err == nil:
		return buf, nil
	case errors.Is(err, io.ErrUnexpectedEOF):
		c.err = io.EOF
		return buf[:n], nil
	default:
		c.err = err
		return nil, err
	}
}

func (c *chunkIterator) Close() error {
	if c.err == nil {
		c.err = ErrClosed
	}
	if rc, ok := c.r.(io.Closer); ok {
		return rc.Close()
	}
	return nil
}

// Reader exposes a byte-chunk Iterator as an io.ReadCloser. It holds at most
// the current chunk in memory. Zero-length chunks are skipped.
func Reader(it Iterator[[]byte]) io.ReadCloser {
	return &iteratorReader{it: it}
}

type iteratorReader struct {
	it  Iterator[[]byte]
	buf []byte
	err error
}

func (r *iteratorReader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	for len(r.buf) == 0 {
		if r.err != nil {
			return 0, r.err
		}
		chunk, err := r.it.Next()
		if err != nil {
			r.err = err
			return 0, err
		}
		r.buf = chunk
	}
	n := copy(p, r.buf)
	r.buf = r.buf[n:]
	return n, nil
}

func (r *iteratorReader) Close() error {
	r.buf = nil
	if r.err == nil {
		r.err = ErrClosed
	}
	return r.it.Close()
}
