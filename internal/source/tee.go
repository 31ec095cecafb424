package source

import (
	"context"
	"io"
	"log"
	"time"

	"gnss-relay/internal/replay"
)

// Tee records every data chunk from src into a chunk log so the session
// can be replayed with the same chunk boundaries.
//
// A recording failure is logged and disables recording; it never stops the
// stream.
type Tee struct {
	src    Source
	rec    *replay.Writer
	now    func() time.Time
	failed bool
}

func NewTee(src Source, rec *replay.Writer) *Tee {
	return &Tee{src: src, rec: rec, now: time.Now}
}

func (t *Tee) Next(ctx context.Context, timeout time.Duration) ([]byte, error) {
	chunk, err := t.src.Next(ctx, timeout)
	if len(chunk) > 0 && t.rec != nil && !t.failed {
		if werr := t.rec.WriteChunk(t.now(), chunk); werr != nil {
			log.Printf("record: disabled after write error: %v", werr)
			t.failed = true
		}
	}
	return chunk, err
}

// Write passes through to the wrapped source when it accepts writes.
func (t *Tee) Write(p []byte) (int, error) {
	w, ok := t.src.(io.Writer)
	if !ok {
		return 0, errNotWritable
	}
	return w.Write(p)
}

func (t *Tee) Close() error {
	err := t.src.Close()
	if t.rec != nil {
		if cerr := t.rec.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}
