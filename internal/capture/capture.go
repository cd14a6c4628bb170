// SPDX-License-Identifier: MIT
/*
Package capture provides the audio sources an analysis node is attached to:
a live PortAudio input (Microphone) and a decoded audio file played at
real-time pace (File). Both deliver mono float32 samples in [-1,1] to a Sink
from their own goroutine or OS thread.

Lifecycle:

	stream, err := device.Start()   // may fail: ErrPermissionDenied, ErrNoDevice
	err = stream.Attach(node)       // attachAnalysisNode
	...
	stream.Close()                  // detaches and releases the device
*/
package capture

import (
	"errors"
	"sync/atomic"
)

var (
	// ErrPermissionDenied means the device exists but input could not be
	// opened, typically because microphone access was refused.
	ErrPermissionDenied = errors.New("capture: permission denied")
	// ErrNoDevice means no usable input device or file was found.
	ErrNoDevice = errors.New("capture: no input device")
	// ErrClosed is returned by Attach on a closed stream.
	ErrClosed = errors.New("capture: stream closed")
)

// Sink receives mono samples. Write is called from the capture thread and
// must not block.
type Sink interface {
	Write(samples []float32)
}

// Stream is a started capture. Attach replaces any previously attached sink.
type Stream interface {
	Attach(sink Sink) error
	Close() error
}

// Device starts capture streams.
type Device interface {
	Start() (Stream, error)
}

// Tee fans samples out to several sinks in order.
type Tee []Sink

func (t Tee) Write(samples []float32) {
	for _, s := range t {
		s.Write(samples)
	}
}

// sinkSlot holds the attached sink for a stream. The capture thread loads it
// on every buffer, so swapping is lock free.
type sinkSlot struct {
	sink   atomic.Pointer[Sink]
	closed atomic.Bool
}

func (s *sinkSlot) attach(sink Sink) error {
	if s.closed.Load() {
		return ErrClosed
	}
	if sink == nil {
		s.sink.Store(nil)
		return nil
	}
	s.sink.Store(&sink)
	return nil
}

func (s *sinkSlot) write(samples []float32) {
	if p := s.sink.Load(); p != nil {
		(*p).Write(samples)
	}
}

// detach drops the sink and reports whether this call closed the slot.
func (s *sinkSlot) detach() bool {
	s.sink.Store(nil)
	return s.closed.CompareAndSwap(false, true)
}

// mixDown averages interleaved frames into mono. dst must hold
// len(in)/channels samples; the mono slice is returned.
func mixDown(dst, in []float32, channels int) []float32 {
	if channels <= 1 {
		return in
	}
	frames := len(in) / channels
	dst = dst[:frames]
	inv := 1 / float32(channels)
	for f := range frames {
		var sum float32
		for c := range channels {
			sum += in[f*channels+c]
		}
		dst[f] = sum * inv
	}
	return dst
}
