// SPDX-License-Identifier: MIT
/*
Package transport ships encoded frame data to consumers outside the
process: WebSocket clients running the WGSL program in a browser, UDP
listeners, or the log.
*/
package transport

// Transport defines a generic interface for sending frame data or events.
// Implementations must be safe for concurrent use and must not block the
// caller: a slow consumer drops data rather than stalling the frame loop.
type Transport interface {
	Send(data any) error
	Close() error
}

// Multi fans one Send out to several transports. The first error is
// returned after every transport has been tried.
type Multi []Transport

func (m Multi) Send(data any) error {
	var first error
	for _, t := range m {
		if err := t.Send(data); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (m Multi) Close() error {
	var first error
	for _, t := range m {
		if err := t.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

var _ Transport = Multi(nil)
