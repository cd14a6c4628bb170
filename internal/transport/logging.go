// SPDX-License-Identifier: MIT
package transport

import (
	"sync/atomic"

	"wavefield/internal/log"
)

// LoggingTransport implements the Transport interface by logging a summary
// of each message at DEBUG. It is the fallback when no network transport
// is configured.
type LoggingTransport struct {
	sent atomic.Uint64
}

func NewLoggingTransport() *LoggingTransport {
	log.Infof("Transport: Using LoggingTransport")
	return &LoggingTransport{}
}

// Send records the message. It never fails.
func (lt *LoggingTransport) Send(data any) error {
	n := lt.sent.Add(1)
	if !log.Enabled(log.LevelDebug) {
		return nil
	}
	switch v := data.(type) {
	case []byte:
		log.Debugf("LoggingTransport: message %d (%d bytes)", n, len(v))
	default:
		log.Debugf("LoggingTransport: message %d (%T)", n, v)
	}
	return nil
}

// Sent returns the number of messages passed to Send.
func (lt *LoggingTransport) Sent() uint64 { return lt.sent.Load() }

func (lt *LoggingTransport) Close() error {
	log.Debugf("LoggingTransport: Close called after %d messages", lt.sent.Load())
	return nil
}

var _ Transport = (*LoggingTransport)(nil)
