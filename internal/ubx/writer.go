package ubx

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"
)

// PacketWriter delivers one complete packet to the receiver.
type PacketWriter interface {
	WritePacket(p []byte) error
}

// Writer sends a fixed packet sequence once. Receivers do not need to
// acknowledge: the packets are fire-and-forget, as the receiver keeps
// emitting NMEA whether or not it applied them.
type Writer struct {
	Dest    PacketWriter
	Packets [][]byte
	// Gap is the pause between packets; receivers drop commands that
	// arrive while they are still processing the previous one.
	Gap time.Duration
}

func (w *Writer) Configure(ctx context.Context) error {
	if w == nil || w.Dest == nil {
		return fmt.Errorf("ubx writer has no destination")
	}
	for i, p := range w.Packets {
		if i > 0 && w.Gap > 0 {
			t := time.NewTimer(w.Gap)
			select {
			case <-ctx.Done():
				t.Stop()
				return ctx.Err()
			case <-t.C:
			}
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := w.Dest.WritePacket(p); err != nil {
			return fmt.Errorf("ubx packet %d (class=0x%02X id=0x%02X): %w", i, classOf(p), idOf(p), err)
		}
	}
	log.Printf("ubx: configured receiver packets=%d", len(w.Packets))
	return nil
}

func classOf(p []byte) byte {
	if len(p) < 3 {
		return 0
	}
	return p[2]
}

func idOf(p []byte) byte {
	if len(p) < 4 {
		return 0
	}
	return p[3]
}

// StreamDest adapts a byte stream: a serial port, a TCP connection, or
// the I2C source, where every Write is one bus transaction.
type StreamDest struct {
	W io.Writer
}

func (d StreamDest) WritePacket(p []byte) error {
	n, err := d.W.Write(p)
	if err != nil {
		return err
	}
	if n != len(p) {
		return io.ErrShortWrite
	}
	return nil
}
