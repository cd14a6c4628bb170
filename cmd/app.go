// SPDX-License-Identifier: MIT
package cmd

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"wavefield/internal/analysis"
	"wavefield/internal/capture"
	"wavefield/internal/config"
	"wavefield/internal/gpu"
	"wavefield/internal/log"
	"wavefield/internal/scheduler"
	"wavefield/internal/spectral"
	"wavefield/internal/transport"
	"wavefield/internal/transport/udp"
)

// app is one assembled visualiser: capture source, analyzer, backend,
// transports and the frame scheduler. Everything is built by newApp and
// released by Close in reverse order.
type app struct {
	cfg   *config.Config
	title string // Shown in the control panel.

	portaudio bool
	beats     *analysis.BeatDetector // Nil unless WebSocket clients are served.
	recorder  *capture.Recorder
	analyzer  *spectral.Analyzer
	backend   gpu.Backend
	software  *gpu.Software // Nil for the remote backend.
	ws        *transport.WebSocketTransport
	publisher *udp.UDPPublisher
	output    transport.Transport
	sched     *scheduler.Scheduler
}

func newApp(cfg *config.Config) (_ *app, err error) {
	a := &app{cfg: cfg}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	device, sampleRate, err := a.openSource()
	if err != nil {
		return nil, err
	}

	if err := a.openBackend(); err != nil {
		return nil, err
	}

	var taps []capture.Sink
	if a.ws != nil && cfg.Analysis.BeatThreshold > 0 {
		a.beats = analysis.NewBeatDetector(cfg.Analysis.BeatThreshold, cfg.Analysis.BeatRatio, analysis.DefaultBeatCooldown, a.ws)
		taps = append(taps, a.beats)
	}
	if cfg.Recording.Enabled {
		path := capture.RecordingName(cfg.Recording.OutputDir, time.Now())
		if a.recorder, err = capture.NewRecorder(path, int(sampleRate), cfg.Recording.BitDepth); err != nil {
			return nil, err
		}
		taps = append(taps, a.recorder)
	}

	node := cfg.NodeOptions()
	node.SampleRate = sampleRate
	a.analyzer, err = spectral.NewAnalyzer(spectral.Config{
		Device:  device,
		Node:    node,
		Policy:  cfg.Policy(),
		Taps:    taps,
		Gate:    cfg.Audio.GateThreshold,
		Enabled: cfg.Audio.StartEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("analyzer: %w", err)
	}

	a.sched, err = scheduler.New(scheduler.Config{
		Backend:    a.backend,
		Program:    gpu.DefaultProgram(),
		Source:     a.analyzer,
		Parameters: cfg.RenderParameters(),
		Bands:      cfg.Analysis.Bands,
		Width:      cfg.Render.Width,
		Height:     cfg.Render.Height,
		Interval:   cfg.FrameInterval(),
		Output:     a.output,
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

// openSource resolves the capture device and the rate it delivers at.
func (a *app) openSource() (capture.Device, float64, error) {
	audio := a.cfg.Audio
	if audio.Source == config.SourceMicrophone {
		if err := capture.Initialize(); err != nil {
			return nil, 0, err
		}
		a.portaudio = true
		a.title = "microphone"
		return capture.NewMicrophone(capture.MicrophoneConfig{
			DeviceID:        audio.InputDevice,
			SampleRate:      audio.SampleRate,
			FramesPerBuffer: audio.FramesPerBuffer,
			Channels:        audio.InputChannels,
			LowLatency:      audio.LowLatency,
		}), audio.SampleRate, nil
	}

	f := capture.NewFile(capture.FileConfig{
		Path:        audio.Source,
		Loop:        audio.Loop,
		ChunkFrames: audio.FramesPerBuffer,
	})
	a.title = filepath.Base(audio.Source)
	meta, err := f.Probe()
	if err != nil {
		// Not fatal: the analyzer stays idle and the field keeps moving.
		log.Warnf("App: cannot read %s: %v", audio.Source, err)
		return f, audio.SampleRate, nil
	}
	if meta.Title != "" {
		a.title = meta.Title
		if meta.Artist != "" {
			a.title = meta.Artist + " - " + meta.Title
		}
	}
	log.Infof("App: playing %s (%s, %d Hz, %d ch)", a.title, meta.Format, meta.SampleRate, meta.Channels)
	if meta.SampleRate <= 0 {
		return f, audio.SampleRate, nil
	}
	return f, float64(meta.SampleRate), nil
}

// openBackend builds the render backend and the payload fan-out.
func (a *app) openBackend() error {
	cfg := a.cfg
	if cfg.Transport.WSEnabled || cfg.Render.Backend == config.BackendRemote {
		a.ws = transport.NewWebSocketTransport(cfg.Transport.WSAddress)
	}

	var outputs transport.Multi
	if cfg.Transport.UDPEnabled {
		sender, err := udp.NewUDPSender(cfg.Transport.UDPTargetAddress)
		if err != nil {
			return err
		}
		if a.publisher, err = udp.NewUDPPublisher(cfg.Transport.UDPSendInterval, sender); err != nil {
			sender.Close()
			return err
		}
		log.Infof("App: uniform packets to %s every %s", sender.Target(), cfg.Transport.UDPSendInterval)
		outputs = append(outputs, a.publisher)
	}

	switch cfg.Render.Backend {
	case config.BackendRemote:
		remote, err := gpu.NewRemote(a.ws, a.ws)
		if err != nil {
			return err
		}
		a.backend = remote
	default:
		sw, err := gpu.NewSoftware(gpu.SoftwareOptions{
			Width:         cfg.Render.Width,
			Height:        cfg.Render.Height,
			Workers:       cfg.Render.Workers,
			SnapshotDir:   cfg.Render.SnapshotDir,
			SnapshotEvery: uint64(cfg.Render.SnapshotEvery),
		})
		if err != nil {
			return err
		}
		a.backend, a.software = sw, sw
		// Browser clients can still follow the software render.
		if a.ws != nil {
			outputs = append(outputs, a.ws)
		}
	}

	switch {
	case len(outputs) > 0:
		a.output = outputs
	case log.Enabled(log.LevelDebug):
		a.output = transport.NewLoggingTransport()
	}
	return nil
}

// startTransports starts network listeners. It runs after the scheduler
// has configured the backend, so the remote program handlers are mounted.
func (a *app) startTransports() error {
	if a.ws != nil {
		if err := a.ws.Start(); err != nil {
			return err
		}
		log.Infof("App: clients connect to ws://%s%s", a.ws.Addr(), transport.WebSocketPath)
	}
	if a.publisher != nil {
		a.publisher.Start()
	}
	return nil
}

// Close releases everything newApp acquired. The scheduler must be stopped.
func (a *app) Close() error {
	var errs []error
	if a.analyzer != nil {
		errs = append(errs, a.analyzer.Close())
	}
	if a.beats != nil {
		log.Infof("App: %d beats detected", a.beats.Beats())
	}
	if a.recorder != nil {
		errs = append(errs, a.recorder.Close())
		log.Infof("App: recording saved (%d frames)", a.recorder.Frames())
	}
	if a.backend != nil {
		// The remote backend owns the WebSocket transport.
		errs = append(errs, a.backend.Close())
	}
	if a.ws != nil && a.software != nil {
		errs = append(errs, a.ws.Close())
	}
	if a.publisher != nil {
		errs = append(errs, a.publisher.Close())
	}
	if a.portaudio {
		errs = append(errs, capture.Terminate())
		a.portaudio = false
	}
	return errors.Join(errs...)
}
