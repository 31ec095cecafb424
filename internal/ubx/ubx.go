// Package ubx encodes the u-blox binary configuration messages the relay
// sends to its receiver at startup.
package ubx

import (
	"encoding/binary"
	"fmt"
)

const (
	Sync1 = 0xB5
	Sync2 = 0x62

	ClassCFG   = 0x06
	IDCfgMsg   = 0x01
	IDCfgRate  = 0x08
	ClassNMEA  = 0xF0
	IDNMEAGGA  = 0x00
	IDNMEAGLL  = 0x01
	IDNMEAGSA  = 0x02
	IDNMEAGSV  = 0x03
	IDNMEARMC  = 0x04
	IDNMEAVTG  = 0x05
	headerLen  = 6
	trailerLen = 2
)

// TimeRef values for CFG-RATE.
const (
	TimeRefUTC = 0
	TimeRefGPS = 1
)

// Checksum is the 8-bit Fletcher checksum over class, id, length and payload.
func Checksum(data []byte) (ckA, ckB uint8) {
	for _, b := range data {
		ckA += b
		ckB += ckA
	}
	return ckA, ckB
}

// Encode builds a complete packet: sync, class, id, little-endian length,
// payload and checksum.
func Encode(class, id uint8, payload []byte) []byte {
	buf := make([]byte, 0, headerLen+len(payload)+trailerLen)
	buf = append(buf, Sync1, Sync2, class, id)
	buf = binary.LittleEndian.AppendUint16(buf, uint16(len(payload)))
	buf = append(buf, payload...)
	ckA, ckB := Checksum(buf[2:])
	return append(buf, ckA, ckB)
}

// Verify reports whether packet is a well formed UBX packet.
func Verify(packet []byte) error {
	if len(packet) < headerLen+trailerLen {
		return fmt.Errorf("ubx packet too short (%d bytes)", len(packet))
	}
	if packet[0] != Sync1 || packet[1] != Sync2 {
		return fmt.Errorf("ubx packet missing sync 0x%02X 0x%02X", packet[0], packet[1])
	}
	n := int(binary.LittleEndian.Uint16(packet[4:6]))
	if want := headerLen + n + trailerLen; len(packet) != want {
		return fmt.Errorf("ubx packet length=%d want %d", len(packet), want)
	}
	ckA, ckB := Checksum(packet[2 : len(packet)-trailerLen])
	if packet[len(packet)-2] != ckA || packet[len(packet)-1] != ckB {
		return fmt.Errorf("ubx checksum mismatch")
	}
	return nil
}

// CfgMsg sets the output rate of one message on each of the receiver's six
// ports (DDC, UART1, UART2, USB, SPI, reserved). A rate of 1 outputs the
// message every navigation solution.
func CfgMsg(msgClass, msgID uint8, rates [6]byte) []byte {
	payload := make([]byte, 0, 8)
	payload = append(payload, msgClass, msgID)
	payload = append(payload, rates[:]...)
	return Encode(ClassCFG, IDCfgMsg, payload)
}

// CfgRate sets the measurement period in milliseconds, the number of
// measurements per navigation solution and the time reference.
func CfgRate(measMs, navCycles, timeRef uint16) []byte {
	payload := make([]byte, 0, 6)
	payload = binary.LittleEndian.AppendUint16(payload, measMs)
	payload = binary.LittleEndian.AppendUint16(payload, navCycles)
	payload = binary.LittleEndian.AppendUint16(payload, timeRef)
	return Encode(ClassCFG, IDCfgRate, payload)
}

// DefaultSequence enables GGA on every port and then sets a 10 Hz
// navigation rate on GPS time.
func DefaultSequence() [][]byte {
	return [][]byte{
		CfgMsg(ClassNMEA, IDNMEAGGA, [6]byte{1, 1, 1, 1, 1, 1}),
		CfgRate(100, 1, TimeRefGPS),
	}
}
