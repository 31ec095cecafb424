//go:build linux

package i2c

import (
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Linux exposes each adapter as /dev/i2c-N. Transfers go through the
// I2C_RDWR ioctl so a register read is one combined transaction (write the
// register, repeated start, read), which the u-blox DDC port needs to keep
// its register pointer.

const (
	ioctlRdwr   = 0x0707
	flagRead    = 0x0001
	maxMsgLen   = 8192 // kernel limit per message
	maxAddr7Bit = 0x7F
)

// i2cMsg mirrors struct i2c_msg.
type i2cMsg struct {
	addr  uint16
	flags uint16
	len   uint16
	buf   uintptr
}

// rdwrArgs mirrors struct i2c_rdwr_ioctl_data.
type rdwrArgs struct {
	msgs  uintptr
	nmsgs uint32
}

// Bus is an opened adapter. Transfers are not safe for concurrent use; the
// receiver is polled from a single loop.
type Bus struct {
	fd   int
	path string
	open bool
}

func Open(path string) (*Bus, error) {
	path = filepath.Clean(path)
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return &Bus{fd: fd, path: path, open: true}, nil
}

func (b *Bus) Path() string {
	if b == nil {
		return ""
	}
	return b.path
}

func (b *Bus) Close() error {
	if b == nil || !b.open {
		return nil
	}
	b.open = false
	return unix.Close(b.fd)
}

// Dev returns a handle for the device at a 7-bit address.
func (b *Bus) Dev(addr uint16) *Dev {
	if b == nil {
		return nil
	}
	return &Dev{bus: b, addr: addr}
}

type Dev struct {
	bus  *Bus
	addr uint16
}

func (d *Dev) Addr() uint16 { return d.addr }

func (d *Dev) Write(p []byte) error {
	return d.transfer(p, nil)
}

func (d *Dev) Read(p []byte) error {
	return d.transfer(nil, p)
}

// ReadReg sets the register pointer to reg and reads len(dst) bytes from it
// in one transaction.
func (d *Dev) ReadReg(reg byte, dst []byte) error {
	return d.transfer([]byte{reg}, dst)
}

func (d *Dev) transfer(w, r []byte) error {
	if d == nil || d.bus == nil || !d.bus.open {
		return errors.New("i2c device is not open")
	}
	if d.addr == 0 || d.addr > maxAddr7Bit {
		return fmt.Errorf("invalid i2c addr 0x%X", d.addr)
	}
	if len(w) > maxMsgLen || len(r) > maxMsgLen {
		return fmt.Errorf("i2c transfer too large (w=%d r=%d, max %d)", len(w), len(r), maxMsgLen)
	}

	var msgs [2]i2cMsg
	n := 0
	if len(w) > 0 {
		msgs[n] = i2cMsg{addr: d.addr, len: uint16(len(w)), buf: uintptr(unsafe.Pointer(&w[0]))}
		n++
	}
	if len(r) > 0 {
		msgs[n] = i2cMsg{addr: d.addr, flags: flagRead, len: uint16(len(r)), buf: uintptr(unsafe.Pointer(&r[0]))}
		n++
	}
	if n == 0 {
		return nil
	}

	args := rdwrArgs{msgs: uintptr(unsafe.Pointer(&msgs[0])), nmsgs: uint32(n)}
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(d.bus.fd), ioctlRdwr, uintptr(unsafe.Pointer(&args)))
	runtime.KeepAlive(w)
	runtime.KeepAlive(r)
	runtime.KeepAlive(&msgs)
	if errno != 0 {
		return fmt.Errorf("i2c %s addr 0x%02X: %w", d.bus.path, d.addr, errno)
	}
	return nil
}
