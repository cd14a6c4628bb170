// SPDX-License-Identifier: MIT
package udp

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"wavefield/internal/log"
	"wavefield/internal/uniform"
)

var (
	ErrSenderClosed = errors.New("udp: sender is closed")
	ErrPacketSize   = errors.New("udp: datagram is not a uniform packet")
)

// UDPSender writes framed uniform packets to one connected UDP peer. Sends
// may run concurrently with each other; Close waits for in-flight sends.
type UDPSender struct {
	target *net.UDPAddr

	mu   sync.RWMutex // Read-held by Send, write-held by Close.
	conn *net.UDPConn // Nil once closed.

	sent   atomic.Uint64
	failed atomic.Uint64
}

// NewUDPSender resolves "host:port" and connects an unbound local socket to
// it.
func NewUDPSender(targetAddress string) (*UDPSender, error) {
	target, err := net.ResolveUDPAddr("udp", targetAddress)
	if err != nil {
		return nil, fmt.Errorf("udp: resolving target %q: %w", targetAddress, err)
	}
	conn, err := net.DialUDP("udp", nil, target)
	if err != nil {
		return nil, fmt.Errorf("udp: dialing %s: %w", target, err)
	}
	return &UDPSender{target: target, conn: conn}, nil
}

// Target is the resolved peer address.
func (s *UDPSender) Target() *net.UDPAddr { return s.target }

// Stats reports datagrams written and writes that failed.
func (s *UDPSender) Stats() (sent, failed uint64) {
	return s.sent.Load(), s.failed.Load()
}

// Send writes one uniform.Packet encoding as a single datagram. The first
// write failure is logged at WARN; later ones only at DEBUG since the peer
// is often just not listening yet.
func (s *UDPSender) Send(data []byte) error {
	if len(data) != uniform.PacketSize {
		return fmt.Errorf("%w: %d bytes", ErrPacketSize, len(data))
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.conn == nil {
		return ErrSenderClosed
	}
	if _, err := s.conn.Write(data); err != nil {
		if s.failed.Add(1) == 1 {
			log.Warnf("UDPSender: writing to %s: %v", s.target, err)
		} else {
			log.Debugf("UDPSender: writing to %s: %v", s.target, err)
		}
		return fmt.Errorf("udp: writing packet: %w", err)
	}
	s.sent.Add(1)
	return nil
}

// Close releases the socket. Closing twice is a no-op.
func (s *UDPSender) Close() error {
	s.mu.Lock()
	conn := s.conn
	s.conn = nil
	s.mu.Unlock()
	if conn == nil {
		return nil
	}

	sent, failed := s.Stats()
	log.Infof("UDPSender: closing %s after %d packets (%d failed)", s.target, sent, failed)
	if err := conn.Close(); err != nil {
		return fmt.Errorf("udp: closing socket: %w", err)
	}
	return nil
}

var _ PacketSender = (*UDPSender)(nil)
