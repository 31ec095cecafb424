// Package sink holds the destinations the driver hands finished sentences
// and decoded records to.
package sink

import (
	"fmt"
	"io"

	"go.bug.st/serial"

	"gnss-relay/internal/nmea"
)

// SentenceSink receives every validated sentence, without its terminator.
type SentenceSink interface {
	AcceptSentence(s nmea.Sentence) error
}

// RecordSink receives every successfully decoded record.
type RecordSink interface {
	AcceptRecord(r nmea.Record) error
}

// Console prints the position of every record that carries one.
type Console struct {
	W io.Writer
}

func (c *Console) AcceptRecord(r nmea.Record) error {
	lat, okLat := r.Latitude()
	lon, okLon := r.Longitude()
	if !okLat || !okLon {
		return nil
	}
	_, err := fmt.Fprintf(c.W, "Lat: %v, Lon: %v\n", lat, lon)
	return err
}

// Writer relays raw sentences, re-terminated with CRLF, to a byte stream:
// stdout, a USB CDC serial port, a file.
type Writer struct {
	w   io.Writer
	buf []byte
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w, buf: make([]byte, 0, nmea.MaxSentenceLen+2)}
}

func (w *Writer) AcceptSentence(s nmea.Sentence) error {
	w.buf = append(w.buf[:0], s...)
	w.buf = append(w.buf, '\r', '\n')
	_, err := w.w.Write(w.buf)
	return err
}

// OpenSerialWriter relays to a serial device, typically a USB CDC gadget
// port a host reads NMEA from.
func OpenSerialWriter(device string, baud int) (*Writer, error) {
	p, err := serial.Open(device, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, fmt.Errorf("open relay %s baud=%d: %w", device, baud, err)
	}
	return NewWriter(p), nil
}

// Close closes the underlying stream when it is closable.
func (w *Writer) Close() error {
	if c, ok := w.w.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
