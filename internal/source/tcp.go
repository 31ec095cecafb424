package source

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"
)

type TCPConfig struct {
	Addr string
	// DialTimeout is used for the single connect attempt.
	DialTimeout time.Duration
	ChunkSize   int
}

// TCP reads a receiver stream relayed over TCP (ser2net, gpsd raw port).
// It connects once: a dropped connection ends the stream, and restarting
// is left to whoever runs the driver.
type TCP struct {
	conn   net.Conn
	buf    []byte
	closed bool
}

func DialTCP(ctx context.Context, cfg TCPConfig) (*TCP, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("tcp source addr is required")
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 2 * time.Second
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 1024
	}
	dialer := &net.Dialer{Timeout: cfg.DialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", cfg.Addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", cfg.Addr, err)
	}
	return NewConn(conn, cfg.ChunkSize), nil
}

// NewConn wraps an established connection.
func NewConn(conn net.Conn, chunkSize int) *TCP {
	if chunkSize <= 0 {
		chunkSize = 1024
	}
	return &TCP{conn: conn, buf: make([]byte, chunkSize)}
}

func (s *TCP) Next(ctx context.Context, timeout time.Duration) ([]byte, error) {
	if s.closed {
		return nil, ErrClosed
	}
	if ctx.Err() != nil {
		return nil, nil
	}
	deadline := time.Time{}
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}
	if err := s.conn.SetReadDeadline(deadline); err != nil {
		return nil, err
	}

	n, err := s.conn.Read(s.buf)
	if n > 0 {
		return s.buf[:n], nil
	}
	if err != nil {
		if errors.Is(err, os.ErrDeadlineExceeded) {
			return nil, nil
		}
		return nil, err
	}
	return nil, nil
}

// Write forwards bytes to the remote end, for example UBX configuration.
func (s *TCP) Write(p []byte) (int, error) {
	if s.closed {
		return 0, ErrClosed
	}
	return s.conn.Write(p)
}

func (s *TCP) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.conn.Close()
}
