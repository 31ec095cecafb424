package sink

import (
	"fmt"
	"net"

	"gnss-relay/internal/nmea"
)

type udpConn interface {
	Write(p []byte) (int, error)
	Close() error
}

type resolveUDPAddrFunc func(network, address string) (*net.UDPAddr, error)
type dialUDPFunc func(network string, laddr, raddr *net.UDPAddr) (udpConn, error)

// UDP sends each sentence as one datagram, CRLF terminated, the way NMEA
// over UDP consumers (OpenCPN, gpsd) expect it.
type UDP struct {
	dest string
	conn udpConn
	buf  []byte
}

func NewUDP(dest string) (*UDP, error) {
	return newUDP(dest, net.ResolveUDPAddr, func(network string, laddr, raddr *net.UDPAddr) (udpConn, error) {
		return net.DialUDP(network, laddr, raddr)
	})
}

func newUDP(dest string, resolve resolveUDPAddrFunc, dial dialUDPFunc) (*UDP, error) {
	addr, err := resolve("udp", dest)
	if err != nil {
		return nil, fmt.Errorf("resolve dest: %w", err)
	}

	// DialUDP selects a suitable local address automatically.
	conn, err := dial("udp", nil, addr)
	if err != nil {
		return nil, fmt.Errorf("dial udp: %w", err)
	}

	return &UDP{dest: dest, conn: conn, buf: make([]byte, 0, nmea.MaxSentenceLen+2)}, nil
}

func (u *UDP) AcceptSentence(s nmea.Sentence) error {
	if len(s) == 0 {
		return nil
	}
	u.buf = append(u.buf[:0], s...)
	u.buf = append(u.buf, '\r', '\n')
	if _, err := u.conn.Write(u.buf); err != nil {
		return fmt.Errorf("udp %s: %w", u.dest, err)
	}
	return nil
}

func (u *UDP) Close() error {
	if u.conn == nil {
		return nil
	}
	return u.conn.Close()
}
