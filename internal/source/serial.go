package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	tarm "github.com/tarm/serial"
	"go.bug.st/serial"
)

// BugSerial reads a serial port through go.bug.st/serial, which works on
// Linux, macOS and Windows. A read that times out returns zero bytes.
type BugSerial struct {
	device  string
	port    serial.Port
	buf     []byte
	timeout time.Duration
}

func OpenBugSerial(device string, baud int) (*BugSerial, error) {
	p, err := serial.Open(device, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, fmt.Errorf("open serial %s baud=%d: %w", device, baud, err)
	}
	return &BugSerial{device: device, port: p, buf: make([]byte, 1024)}, nil
}

func (s *BugSerial) Next(ctx context.Context, timeout time.Duration) ([]byte, error) {
	if s.port == nil {
		return nil, ErrClosed
	}
	if ctx.Err() != nil {
		return nil, nil
	}
	if timeout <= 0 {
		timeout = time.Millisecond
	}
	if timeout != s.timeout {
		if err := s.port.SetReadTimeout(timeout); err != nil {
			return nil, fmt.Errorf("serial %s set timeout: %w", s.device, err)
		}
		s.timeout = timeout
	}
	n, err := s.port.Read(s.buf)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.device, err)
	}
	return s.buf[:n], nil
}

func (s *BugSerial) Write(p []byte) (int, error) {
	if s.port == nil {
		return 0, ErrClosed
	}
	return s.port.Write(p)
}

func (s *BugSerial) Close() error {
	if s.port == nil {
		return nil
	}
	err := s.port.Close()
	s.port = nil
	return err
}

// TarmSerial reads a serial port through github.com/tarm/serial. Its read
// timeout is fixed when the port is opened, so the per-call timeout is
// ignored. tarm reports a timed-out read as io.EOF, which a tty never
// produces otherwise, so io.EOF is treated as no data.
type TarmSerial struct {
	device string
	port   *tarm.Port
	buf    []byte
}

func OpenTarmSerial(device string, baud int, readTimeout time.Duration) (*TarmSerial, error) {
	if readTimeout <= 0 {
		readTimeout = time.Second
	}
	p, err := tarm.OpenPort(&tarm.Config{Name: device, Baud: baud, ReadTimeout: readTimeout})
	if err != nil {
		return nil, fmt.Errorf("open serial %s baud=%d: %w", device, baud, err)
	}
	return &TarmSerial{device: device, port: p, buf: make([]byte, 1024)}, nil
}

func (s *TarmSerial) Next(ctx context.Context, timeout time.Duration) ([]byte, error) {
	if s.port == nil {
		return nil, ErrClosed
	}
	if ctx.Err() != nil {
		return nil, nil
	}
	n, err := s.port.Read(s.buf)
	if n > 0 {
		return s.buf[:n], nil
	}
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read %s: %w", s.device, err)
	}
	return nil, nil
}

func (s *TarmSerial) Write(p []byte) (int, error) {
	if s.port == nil {
		return 0, ErrClosed
	}
	return s.port.Write(p)
}

func (s *TarmSerial) Close() error {
	if s.port == nil {
		return nil
	}
	err := s.port.Close()
	s.port = nil
	return err
}
