// SPDX-License-Identifier: MIT
package udp

import (
	"fmt"
	"sync"
	"time"

	"wavefield/internal/log"
	"wavefield/internal/transport"
	"wavefield/internal/uniform"
)

// PacketSender is the datagram sink a publisher writes to. *UDPSender
// satisfies it.
type PacketSender interface {
	Send(data []byte) error
	Close() error
}

// UDPPublisher rate limits uniform payloads onto UDP. Send stores the
// latest payload; a ticker goroutine frames it as a uniform.Packet and sends
// it at the configured interval, skipping ticks with nothing new. This
// decouples network rate from the render frame rate.
type UDPPublisher struct {
	sender   PacketSender
	interval time.Duration

	ticker   *time.Ticker   // Ticker that triggers packet sending.
	doneChan chan struct{}  // Signals the publisher goroutine to stop.
	stopOnce sync.Once      // Stop logic runs once per Start/Stop cycle.
	wg       sync.WaitGroup // Waits for the publisher goroutine during Stop.
	mu       sync.Mutex     // Protects ticker and doneChan during Start/Stop.

	latestMu sync.Mutex
	latest   uniform.Payload
	fresh    bool

	sequenceNum uint32 // Publisher goroutine only.
	packetBuf   []byte // Reused packet buffer.
}

// NewUDPPublisher creates a publisher. An interval <= 0 defaults to 16ms
// (~60Hz).
func NewUDPPublisher(interval time.Duration, sender PacketSender) (*UDPPublisher, error) {
	if sender == nil {
		return nil, fmt.Errorf("UDPPublisher: UDP sender cannot be nil")
	}
	if interval <= 0 {
		interval = 16 * time.Millisecond
		log.Warnf("UDPPublisher: Invalid interval provided, defaulting to %s", interval)
	}
	log.Infof("UDPPublisher: Initializing (Interval: %s)", interval)
	return &UDPPublisher{
		sender:    sender,
		interval:  interval,
		packetBuf: make([]byte, 0, uniform.PacketSize),
	}, nil
}

// Start launches the publisher goroutine. Calling Start while running is a
// no-op.
func (p *UDPPublisher) Start() {
	p.mu.Lock()
	if p.ticker != nil {
		p.mu.Unlock()
		log.Warnf("UDPPublisher: Start called but already running.")
		return
	}

	p.ticker = time.NewTicker(p.interval)
	p.doneChan = make(chan struct{})
	p.stopOnce = sync.Once{}

	ticker := p.ticker
	doneChan := p.doneChan
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		log.Debugf("UDPPublisher: Publisher goroutine started (Interval: %s)", p.interval)
		for {
			select {
			case <-ticker.C:
				p.publish()
			case <-doneChan:
				return
			}
		}
	}()
}

// Stop signals the publisher goroutine and waits for it to exit. Safe to
// call more than once.
func (p *UDPPublisher) Stop() error {
	p.mu.Lock()
	if p.ticker == nil {
		p.mu.Unlock()
		return nil
	}
	p.stopOnce.Do(func() {
		close(p.doneChan)
		p.ticker.Stop()
		p.ticker = nil
	})
	p.mu.Unlock()

	p.wg.Wait()
	log.Debugf("UDPPublisher: Publisher goroutine finished.")
	return nil
}

// Send records the latest payload. It accepts a uniform.Payload or its
// 32-byte encoding.
func (p *UDPPublisher) Send(data any) error {
	var payload uniform.Payload
	switch v := data.(type) {
	case uniform.Payload:
		payload = v
	case []byte:
		var err error
		if payload, err = uniform.Decode(v); err != nil {
			return err
		}
	default:
		return fmt.Errorf("UDPPublisher: unsupported message type %T", data)
	}

	p.latestMu.Lock()
	p.latest, p.fresh = payload, true
	p.latestMu.Unlock()
	return nil
}

func (p *UDPPublisher) publish() {
	p.latestMu.Lock()
	payload, fresh := p.latest, p.fresh
	p.fresh = false
	p.latestMu.Unlock()
	if !fresh {
		return
	}

	p.sequenceNum++
	pkt := uniform.Packet{
		Sequence:  p.sequenceNum,
		Timestamp: time.Now().UnixNano(),
		Payload:   payload,
	}
	buf, err := pkt.AppendBinary(p.packetBuf[:0])
	if err != nil {
		log.Errorf("UDPPublisher: Error packing packet: %v", err)
		return
	}
	p.packetBuf = buf

	if err := p.sender.Send(buf); err == nil {
		log.Debugf("UDPPublisher: Sent packet %d (%d bytes)", p.sequenceNum, len(buf))
	}
}

// Close stops publishing and closes the sender.
func (p *UDPPublisher) Close() error {
	if err := p.Stop(); err != nil {
		return err
	}
	return p.sender.Close()
}

var _ transport.Transport = (*UDPPublisher)(nil)
