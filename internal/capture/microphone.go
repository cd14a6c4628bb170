// SPDX-License-Identifier: MIT
package capture

import (
	"errors"
	"fmt"
	"time"

	"wavefield/internal/log"

	"github.com/gordonklaus/portaudio"
)

// MicrophoneConfig selects and configures the PortAudio input.
type MicrophoneConfig struct {
	DeviceID        int     // DefaultDeviceID for the host default.
	SampleRate      float64 // Hz.
	FramesPerBuffer int     // Frames per callback.
	Channels        int     // Captured channels, mixed down to mono.
	LowLatency      bool    // Use the device's low input latency.
}

// Microphone is a Device backed by a PortAudio input stream. PortAudio must
// be initialized before Start.
type Microphone struct {
	cfg MicrophoneConfig
}

var _ Device = (*Microphone)(nil)

func NewMicrophone(cfg MicrophoneConfig) *Microphone {
	if cfg.Channels <= 0 {
		cfg.Channels = 1
	}
	return &Microphone{cfg: cfg}
}

// Start opens and starts the input stream. Failure to resolve the device is
// ErrNoDevice; failure to open or start it is ErrPermissionDenied.
func (m *Microphone) Start() (Stream, error) {
	device, err := InputDevice(m.cfg.DeviceID)
	if err != nil {
		return nil, err
	}

	channels := min(m.cfg.Channels, device.MaxInputChannels)
	latency := device.DefaultHighInputLatency
	if m.cfg.LowLatency {
		latency = device.DefaultLowInputLatency
	}

	s := &micStream{
		channels: channels,
		mono:     make([]float32, m.cfg.FramesPerBuffer),
	}

	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   device,
			Channels: channels,
			Latency:  latency,
		},
		FramesPerBuffer: m.cfg.FramesPerBuffer,
		SampleRate:      m.cfg.SampleRate,
	}

	stream, err := portaudio.OpenStream(params, s.process)
	if err != nil {
		return nil, classifyOpenError(err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return nil, classifyOpenError(err)
	}
	s.stream = stream

	log.Infof("Capture: microphone '%s' started (%d ch @ %.0f Hz, latency %s)",
		device.Name, channels, m.cfg.SampleRate, latency.Round(time.Microsecond))
	return s, nil
}

func classifyOpenError(err error) error {
	if errors.Is(err, portaudio.InvalidDevice) {
		return fmt.Errorf("%w: %v", ErrNoDevice, err)
	}
	return fmt.Errorf("%w: %v", ErrPermissionDenied, err)
}

type micStream struct {
	sinkSlot
	stream   *portaudio.Stream
	channels int
	mono     []float32 // Mix-down buffer, capture thread only.
}

// process is the PortAudio callback. It runs on the PortAudio thread and
// only touches pre-allocated buffers.
func (s *micStream) process(in []float32) {
	if cap(s.mono)*s.channels < len(in) {
		// Host delivered a larger buffer than requested; drop the excess.
		in = in[:cap(s.mono)*s.channels]
	}
	s.write(mixDown(s.mono[:cap(s.mono)], in, s.channels))
}

func (s *micStream) Attach(sink Sink) error {
	return s.attach(sink)
}

// Close stops the stream. It is safe to call more than once.
func (s *micStream) Close() error {
	if !s.detach() {
		return nil
	}
	if err := s.stream.Stop(); err != nil {
		s.stream.Close()
		return fmt.Errorf("capture: stopping microphone: %w", err)
	}
	if err := s.stream.Close(); err != nil {
		return fmt.Errorf("capture: closing microphone: %w", err)
	}
	log.Infof("Capture: microphone stopped")
	return nil
}
