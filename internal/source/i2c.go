package source

import (
	"context"
	"fmt"
	"io"
	"time"

	"gnss-relay/internal/i2c"
)

// ReadyLine is the receiver's TX-ready pin: non-zero while output is pending.
type ReadyLine interface {
	Value() (int, error)
}

type I2CConfig struct {
	// ChunkSize bounds one bus read. Defaults to 64.
	ChunkSize int
	// PollInterval is how long Next waits when the receiver has nothing.
	PollInterval time.Duration
	// Raw skips the pending-length registers and reads ChunkSize bytes at the
	// current register pointer on every poll.
	Raw bool
	// Ready, when set, gates every bus transaction on the TX-ready pin.
	Ready ReadyLine
}

// ddcReader is the part of *i2c.DDC the source needs.
type ddcReader interface {
	Pending() (n int, ok bool, err error)
	ReadStream(p []byte) error
	ReadCurrent(p []byte) error
	Write(p []byte) error
}

// I2C polls a u-blox receiver over its DDC (I2C) port. Polling never
// blocks on the receiver: an empty buffer is a normal "no data" result.
type I2C struct {
	ddc     ddcReader
	cfg     I2CConfig
	buf     []byte
	closers []io.Closer
	closed  bool
}

func NewI2C(ddc ddcReader, cfg I2CConfig) *I2C {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 64
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 20 * time.Millisecond
	}
	return &I2C{ddc: ddc, cfg: cfg, buf: make([]byte, cfg.ChunkSize)}
}

// OpenI2C opens the bus and addresses the receiver at addr. The bus and
// any closable Ready line are closed by Close.
func OpenI2C(busPath string, addr uint16, cfg I2CConfig) (*I2C, error) {
	bus, err := i2c.Open(busPath)
	if err != nil {
		return nil, fmt.Errorf("open i2c %s: %w", busPath, err)
	}
	s := NewI2C(i2c.NewDDC(bus.Dev(addr)), cfg)
	s.closers = append(s.closers, bus)
	if c, ok := cfg.Ready.(io.Closer); ok {
		s.closers = append(s.closers, c)
	}
	return s, nil
}

func (s *I2C) Next(ctx context.Context, timeout time.Duration) ([]byte, error) {
	if s.closed {
		return nil, ErrClosed
	}
	if ctx.Err() != nil {
		return nil, nil
	}

	chunk, err := s.poll()
	if err != nil {
		return nil, err
	}
	if len(chunk) > 0 {
		return chunk, nil
	}

	wait := s.cfg.PollInterval
	if timeout > 0 && wait > timeout {
		wait = timeout
	}
	sleepCtx(ctx, wait)
	return nil, nil
}

func (s *I2C) poll() ([]byte, error) {
	if s.cfg.Ready != nil {
		v, err := s.cfg.Ready.Value()
		if err != nil {
			return nil, fmt.Errorf("i2c tx-ready: %w", err)
		}
		if v == 0 {
			return nil, nil
		}
	}

	n := len(s.buf)
	if !s.cfg.Raw {
		pending, ok, err := s.ddc.Pending()
		if err != nil {
			return nil, err
		}
		if ok {
			if pending == 0 {
				return nil, nil
			}
			if pending < n {
				n = pending
			}
		}
		if err := s.ddc.ReadStream(s.buf[:n]); err != nil {
			return nil, err
		}
	} else if err := s.ddc.ReadCurrent(s.buf[:n]); err != nil {
		return nil, err
	}
	return stripFiller(s.buf[:n]), nil
}

// stripFiller removes the 0xFF and 0x00 bytes an idle receiver returns,
// compacting p in place. Neither byte can occur in NMEA text.
func stripFiller(p []byte) []byte {
	out := p[:0]
	for _, b := range p {
		if b == 0xFF || b == 0x00 {
			continue
		}
		out = append(out, b)
	}
	return out
}

// Write sends bytes to the receiver, for example UBX configuration.
func (s *I2C) Write(p []byte) (int, error) {
	if s.closed {
		return 0, ErrClosed
	}
	if err := s.ddc.Write(p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (s *I2C) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	var first error
	for _, c := range s.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
