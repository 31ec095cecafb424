//go:build !linux

package source

import (
	"context"
	"fmt"
	"time"
)

type Termios struct{}

func OpenTermios(path string, baud int) (*Termios, error) {
	return nil, fmt.Errorf("termios serial not supported on this platform (use driver bugst or tarm)")
}

func (t *Termios) Next(ctx context.Context, timeout time.Duration) ([]byte, error) {
	return nil, ErrClosed
}

func (t *Termios) Write(p []byte) (int, error) { return 0, ErrClosed }
func (t *Termios) Close() error                { return nil }
