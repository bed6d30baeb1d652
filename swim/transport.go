package swim

import (
	"errors"
	"fmt"
	"net"
	"os"
	"sync/atomic"
	"time"
)

const receiveBufferSize = 1 * 1024 * 1024

var (
	ErrClosed          = errors.New("swim: transport closed")
	ErrTimeout         = errors.New("swim: read timeout")
	ErrMaxSizeExceeded = errors.New("swim: max payload size exceeded")
)

// UDPTransport is the datagram socket of the failure detector. It has a
// single reader: the inbound engine.
type UDPTransport struct {
	conn   *net.UDPConn
	buf    []byte
	closed int32
}

// Listen starts a UDP listener on the given address.
func Listen(addr string) (*UDPTransport, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve udp address %s: %w", addr, err)
	}

	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen udp port on %s: %w", addr, err)
	}

	// Set system buffer to larger size to reduce the number of packet drops
	// when the consumer is too busy to keep up with the incoming message rate.
	if err := conn.SetReadBuffer(receiveBufferSize); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to alter udp read buffer size: %w", err)
	}

	return &UDPTransport{
		conn: conn,
		buf:  make([]byte, MaxMessageSize),
	}, nil
}

// LocalAddr returns the bound address, with the actual port if port 0 was given.
func (t *UDPTransport) LocalAddr() *net.UDPAddr {
	return t.conn.LocalAddr().(*net.UDPAddr)
}

// ReadFrom waits up to the given timeout for a datagram. The returned slice is
// a copy and stays valid after the next call. ErrTimeout is returned when
// nothing arrived in time, ErrClosed after Close.
func (t *UDPTransport) ReadFrom(timeout time.Duration) ([]byte, *net.UDPAddr, error) {
	if err := t.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		if atomic.LoadInt32(&t.closed) == 1 {
			return nil, nil, ErrClosed
		}

		return nil, nil, err
	}

	n, addr, err := t.conn.ReadFromUDP(t.buf)
	if err != nil {
		if atomic.LoadInt32(&t.closed) == 1 {
			return nil, nil, ErrClosed
		}

		if errors.Is(err, os.ErrDeadlineExceeded) {
			return nil, nil, ErrTimeout
		}

		return nil, nil, fmt.Errorf("failed to read from udp: %w", err)
	}

	data := make([]byte, n)
	copy(data, t.buf[:n])

	return data, addr, nil
}

// WriteTo sends a single datagram.
func (t *UDPTransport) WriteTo(b []byte, addr *net.UDPAddr) error {
	if len(b) > MaxMessageSize {
		return ErrMaxSizeExceeded
	}

	if _, err := t.conn.WriteToUDP(b, addr); err != nil {
		if atomic.LoadInt32(&t.closed) == 1 {
			return ErrClosed
		}

		return fmt.Errorf("failed to send message to udp socket: %w", err)
	}

	return nil
}

// WriteToAddr resolves the host:port address and sends a datagram to it.
func (t *UDPTransport) WriteToAddr(b []byte, addr string) error {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", addr, err)
	}

	return t.WriteTo(b, udpAddr)
}

func (t *UDPTransport) Close() error {
	if !atomic.CompareAndSwapInt32(&t.closed, 0, 1) {
		return nil
	}

	return t.conn.Close()
}
