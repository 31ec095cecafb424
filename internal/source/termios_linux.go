//go:build linux

package source

import (
	"context"
	"fmt"
	"io"
	"time"

	"golang.org/x/sys/unix"
)

// Termios reads a tty configured through raw termios ioctls. Each Next waits
// in poll(2) for up to the timeout, so "no data" costs no busy looping.
type Termios struct {
	path string
	fd   int
	buf  []byte
}

func OpenTermios(path string, baud int) (*Termios, error) {
	fd, err := openSerial(path, baud)
	if err != nil {
		return nil, fmt.Errorf("open serial %s baud=%d: %w", path, baud, err)
	}
	return &Termios{path: path, fd: fd, buf: make([]byte, 1024)}, nil
}

func (t *Termios) Next(ctx context.Context, timeout time.Duration) ([]byte, error) {
	if t.fd < 0 {
		return nil, ErrClosed
	}
	if ctx.Err() != nil {
		return nil, nil
	}

	ms := int(timeout / time.Millisecond)
	if ms < 0 {
		ms = 0
	}
	fds := []unix.PollFd{{Fd: int32(t.fd), Events: unix.POLLIN}}
	n, err := unix.Poll(fds, ms)
	if err == unix.EINTR {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("poll %s: %w", t.path, err)
	}
	if n == 0 {
		return nil, nil
	}
	if fds[0].Revents&unix.POLLIN == 0 && fds[0].Revents&(unix.POLLERR|unix.POLLHUP|unix.POLLNVAL) != 0 {
		return nil, fmt.Errorf("serial %s: device hung up (revents=0x%x)", t.path, fds[0].Revents)
	}

	r, err := unix.Read(t.fd, t.buf)
	if err == unix.EINTR || err == unix.EAGAIN {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", t.path, err)
	}
	if r == 0 {
		// Readable with nothing to read: the device went away.
		return nil, fmt.Errorf("read %s: %w", t.path, io.ErrUnexpectedEOF)
	}
	return t.buf[:r], nil
}

// Write sends bytes to the receiver, for example UBX configuration.
func (t *Termios) Write(p []byte) (int, error) {
	if t.fd < 0 {
		return 0, ErrClosed
	}
	written := 0
	for written < len(p) {
		n, err := unix.Write(t.fd, p[written:])
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return written, fmt.Errorf("write %s: %w", t.path, err)
		}
		written += n
	}
	return written, nil
}

func (t *Termios) Close() error {
	if t.fd < 0 {
		return nil
	}
	err := unix.Close(t.fd)
	t.fd = -1
	return err
}

func openSerial(path string, baud int) (int, error) {
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_NOCTTY|unix.O_CLOEXEC, 0)
	if err != nil {
		return -1, err
	}

	ok := false
	defer func() {
		if !ok {
			_ = unix.Close(fd)
		}
	}()

	t, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		return -1, err
	}

	spd, err := baudToUnix(baud)
	if err != nil {
		return -1, err
	}

	// Raw mode: NMEA must arrive byte for byte, CR included.
	t.Iflag &^= unix.IGNBRK | unix.BRKINT | unix.PARMRK | unix.ISTRIP | unix.INLCR | unix.IGNCR | unix.ICRNL | unix.IXON
	t.Oflag &^= unix.OPOST
	t.Lflag &^= unix.ECHO | unix.ECHONL | unix.ICANON | unix.ISIG | unix.IEXTEN
	t.Cflag &^= unix.CSIZE | unix.PARENB
	t.Cflag |= unix.CS8 | unix.CREAD | unix.CLOCAL

	// poll(2) does the waiting; a read after POLLIN returns what is buffered.
	t.Cc[unix.VMIN] = 1
	t.Cc[unix.VTIME] = 0

	t.Cflag &^= unix.CBAUD
	t.Cflag |= spd
	t.Ispeed = spd
	t.Ospeed = spd

	if err := unix.IoctlSetTermios(fd, unix.TCSETS, t); err != nil {
		return -1, err
	}
	ok = true
	return fd, nil
}

func baudToUnix(baud int) (uint32, error) {
	switch baud {
	case 4800:
		return unix.B4800, nil
	case 9600:
		return unix.B9600, nil
	case 19200:
		return unix.B19200, nil
	case 38400:
		return unix.B38400, nil
	case 57600:
		return unix.B57600, nil
	case 115200:
		return unix.B115200, nil
	case 230400:
		return unix.B230400, nil
	default:
		return 0, fmt.Errorf("unsupported baud %d", baud)
	}
}
