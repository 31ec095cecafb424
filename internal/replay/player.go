package replay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"
)

// Player hands out the entries of a chunk log one per Next call, keeping the
// recorded spacing between them.
//
// Speed 1.0 is real time, 2.0 halves every wait, and <= 0 disables pacing.
// A wait longer than the poll timeout is spread over several Next calls that
// report no data, so a paced replay looks like a quiet receiver.
type Player struct {
	entries []Entry
	speed   float64
	loop    bool
	hasData bool

	// sleep returns false when ctx ended first.
	sleep func(ctx context.Context, d time.Duration) bool

	i         int
	origin    time.Duration
	lastAt    time.Duration
	haveLast  bool
	scheduled bool
	remaining time.Duration
}

func NewPlayer(entries []Entry, speed float64, loop bool) *Player {
	p := &Player{entries: entries, speed: speed, loop: loop, sleep: sleepCtx}
	for _, e := range entries {
		if e.Data != nil {
			p.hasData = true
			break
		}
	}
	return p
}

// OpenPlayer reads a chunk log from disk.
func OpenPlayer(path string, speed float64, loop bool) (*Player, error) {
	entries, err := ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("chunk log %s: %w", path, err)
	}
	if len(entries) == 0 {
		return nil, errors.New("chunk log " + path + " has no entries")
	}
	return NewPlayer(entries, speed, loop), nil
}

// Next returns the next recorded chunk, an empty chunk while a recorded gap
// is still running, or io.EOF after the last entry when not looping.
func (p *Player) Next(ctx context.Context, timeout time.Duration) ([]byte, error) {
	for {
		if p.i >= len(p.entries) {
			if !p.loop || !p.hasData {
				return nil, io.EOF
			}
			p.i = 0
			p.origin = 0
			p.haveLast = false
		}

		e := p.entries[p.i]
		if e.Data == nil {
			p.origin = e.At
			p.haveLast = false
			p.i++
			continue
		}

		at := e.At - p.origin
		if at < 0 {
			at = 0
		}
		if !p.scheduled {
			p.scheduled = true
			p.remaining = 0
			if p.haveLast && p.speed > 0 {
				wait := at - p.lastAt
				if wait < 0 {
					wait = 0
				}
				p.remaining = time.Duration(float64(wait) / p.speed)
			}
		}

		if p.remaining > 0 {
			d := p.remaining
			if timeout > 0 && d > timeout {
				d = timeout
			}
			if !p.sleep(ctx, d) {
				return nil, nil
			}
			p.remaining -= d
			if p.remaining > 0 {
				return nil, nil
			}
		}

		p.i++
		p.lastAt = at
		p.haveLast = true
		p.scheduled = false
		return e.Data, nil
	}
}

func (p *Player) Close() error { return nil }

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
