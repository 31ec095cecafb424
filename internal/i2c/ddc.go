package i2c

import "fmt"

// u-blox receivers expose their output stream over I2C as "DDC":
// registers 0xFD/0xFE hold the number of pending bytes (big endian) and
// register 0xFF drains the stream. Reading 0xFF with nothing pending
// returns 0xFF filler.
const (
	DDCDefaultAddr    = 0x42
	ddcRegLengthHigh  = 0xFD
	ddcRegStream      = 0xFF
	ddcUnknownPending = 0xFFFF
)

// RegDevice is the part of a Dev the DDC reader uses.
type RegDevice interface {
	Write(p []byte) error
	Read(p []byte) error
	ReadReg(reg byte, dst []byte) error
}

// DDC reads a u-blox receiver's stream over I2C.
type DDC struct {
	dev RegDevice
}

func NewDDC(dev RegDevice) *DDC {
	return &DDC{dev: dev}
}

// Pending returns how many stream bytes the receiver holds. ok is false when
// the receiver reports the 0xFFFF "unknown" value.
func (d *DDC) Pending() (n int, ok bool, err error) {
	var b [2]byte
	if err := d.dev.ReadReg(ddcRegLengthHigh, b[:]); err != nil {
		return 0, false, fmt.Errorf("ddc pending: %w", err)
	}
	v := int(b[0])<<8 | int(b[1])
	if v == ddcUnknownPending {
		return 0, false, nil
	}
	return v, true, nil
}

// ReadStream fills p from the stream register.
func (d *DDC) ReadStream(p []byte) error {
	if len(p) == 0 {
		return nil
	}
	if err := d.dev.ReadReg(ddcRegStream, p); err != nil {
		return fmt.Errorf("ddc stream: %w", err)
	}
	return nil
}

// ReadCurrent reads p without setting the register pointer first, the way
// simple firmware polls the receiver.
func (d *DDC) ReadCurrent(p []byte) error {
	if len(p) == 0 {
		return nil
	}
	if err := d.dev.Read(p); err != nil {
		return fmt.Errorf("ddc read: %w", err)
	}
	return nil
}

// Write sends bytes (UBX configuration) to the receiver.
func (d *DDC) Write(p []byte) error {
	return d.dev.Write(p)
}
