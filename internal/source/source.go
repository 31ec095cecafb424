// Package source provides the chunk sources the driver pulls receiver bytes
// from: serial ports, the u-blox I2C (DDC) interface, TCP feeds, plain
// readers, and recorded chunk logs.
//
// Every source delivers bytes in arrival order and never duplicates them.
// A returned chunk is only valid until the next call to Next.
package source

import (
	"context"
	"errors"
	"io"
	"time"
)

// Source yields receiver bytes in chunks of arbitrary size.
//
// Next blocks for at most timeout. An empty chunk with a nil error means no
// data arrived this poll; a non-nil error means the transport is unusable
// (io.EOF for a clean end of stream).
type Source interface {
	Next(ctx context.Context, timeout time.Duration) ([]byte, error)
	Close() error
}

// Status is the outcome of one Next call.
type Status int

const (
	StatusData Status = iota
	StatusNoData
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusData:
		return "data"
	case StatusNoData:
		return "no_data"
	default:
		return "error"
	}
}

// Classify maps a Next result to its Status. A result carrying both data
// and an error is StatusError; its data must still be consumed.
func Classify(chunk []byte, err error) Status {
	switch {
	case err != nil:
		return StatusError
	case len(chunk) == 0:
		return StatusNoData
	default:
		return StatusData
	}
}

var ErrClosed = errors.New("source: closed")

var errNotWritable = errors.New("source: transport is read-only")

// Writable reports whether s can carry bytes back to the receiver.
func Writable(s Source) (io.Writer, bool) {
	if t, ok := s.(*Tee); ok {
		if _, ok := t.src.(io.Writer); !ok {
			return nil, false
		}
		return t, true
	}
	w, ok := s.(io.Writer)
	return w, ok
}

// Reader adapts any io.Reader (stdin, a file, a pipe). Reads are not
// interruptible, so the timeout only applies to readers that honor read
// deadlines themselves.
type Reader struct {
	r      io.Reader
	buf    []byte
	closed bool
}

func NewReader(r io.Reader, chunkSize int) *Reader {
	if chunkSize <= 0 {
		chunkSize = 1024
	}
	return &Reader{r: r, buf: make([]byte, chunkSize)}
}

func (s *Reader) Next(ctx context.Context, timeout time.Duration) ([]byte, error) {
	if s.closed {
		return nil, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, nil
	}
	n, err := s.r.Read(s.buf)
	if n > 0 {
		// Bytes read alongside an error are delivered first; the error
		// comes back on the next call.
		return s.buf[:n], nil
	}
	if err != nil {
		return nil, err
	}
	return nil, nil
}

func (s *Reader) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if c, ok := s.r.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
