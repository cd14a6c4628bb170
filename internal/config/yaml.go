// SPDX-License-Identifier: MIT
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"wavefield/internal/analysis"
	"wavefield/internal/log"
	"wavefield/internal/params"
	"wavefield/internal/spectral"

	"gopkg.in/yaml.v3"
)

// Source value selecting live microphone capture.
const SourceMicrophone = "microphone"

// Render backends.
const (
	BackendSoftware = "software"
	BackendRemote   = "remote"
)

// MaxTargetFPS bounds render.target_fps.
const MaxTargetFPS = 240

// Config represents the main application configuration structure, loaded from YAML.
type Config struct {
	Debug     bool            `yaml:"debug"`     // Forces DEBUG logging.
	LogLevel  string          `yaml:"log_level"` // "debug", "info", "warn", "error".
	Audio     AudioConfig     `yaml:"audio"`
	Analysis  AnalysisConfig  `yaml:"analysis"`
	Render    RenderConfig    `yaml:"render"`
	Recording RecordingConfig `yaml:"recording"`
	Transport TransportConfig `yaml:"transport"`
}

// AudioConfig holds settings related to audio capture.
type AudioConfig struct {
	Source          string  `yaml:"source"`            // "microphone" or a path to a WAV/MP3/OGG file.
	Loop            bool    `yaml:"loop"`              // Loop file sources.
	InputDevice     int     `yaml:"input_device"`      // PortAudio device index (-1 for default).
	SampleRate      float64 `yaml:"sample_rate"`       // Capture sample rate in Hz.
	FramesPerBuffer int     `yaml:"frames_per_buffer"` // Frames per capture callback.
	InputChannels   int     `yaml:"input_channels"`    // Captured channels, mixed to mono.
	LowLatency      bool    `yaml:"low_latency"`       // Request the device's low input latency.
	GateThreshold   float64 `yaml:"gate_threshold"`    // Noise gate peak threshold in [0,1]; 0 disables.
	StartEnabled    bool    `yaml:"start_enabled"`     // Start capture with the session.
}

// AnalysisConfig configures the analysis node and spectral features.
type AnalysisConfig struct {
	FFTSize       int     `yaml:"fft_size"`       // Power of two.
	Smoothing     float64 `yaml:"smoothing"`      // Smoothing time constant in [0,1].
	MinDecibels   float64 `yaml:"min_decibels"`   // Floor of the reported spectrum.
	MaxDecibels   float64 `yaml:"max_decibels"`   // Ceiling of the reported spectrum.
	Window        string  `yaml:"window"`         // Window function name.
	Bands         int     `yaml:"bands"`          // Bands in the feature vector.
	Normalization string  `yaml:"normalization"`  // "linear" or "perceptual".
	BeatThreshold float64 `yaml:"beat_threshold"` // RMS level a beat must exceed; 0 disables beat events.
	BeatRatio     float64 `yaml:"beat_ratio"`     // Minimum energy rise over the previous buffer.
}

// RenderConfig holds the render target, initial parameters and backend.
type RenderConfig struct {
	Width         int     `yaml:"width"`
	Height        int     `yaml:"height"`
	TargetFPS     int     `yaml:"target_fps"`
	Mode          string  `yaml:"mode"` // Mode name or index.
	Amplitude     float64 `yaml:"amplitude"`
	Frequency     float64 `yaml:"frequency"`
	Speed         float64 `yaml:"speed"`
	Hue           float64 `yaml:"hue"`
	Backend       string  `yaml:"backend"`        // "software" or "remote".
	Workers       int     `yaml:"workers"`        // Software rasteriser workers; 0 for GOMAXPROCS.
	SnapshotDir   string  `yaml:"snapshot_dir"`   // Software backend PNG snapshots.
	SnapshotEvery int     `yaml:"snapshot_every"` // Frames between snapshots; 0 disables.
}

// RecordingConfig holds settings related to capture recording.
type RecordingConfig struct {
	Enabled   bool   `yaml:"enabled"`    // Record captured audio to WAV.
	OutputDir string `yaml:"output_dir"` // Directory for recordings.
	BitDepth  int    `yaml:"bit_depth"`  // 16, 24 or 32.
}

// TransportConfig holds settings related to sending frame data over the network.
type TransportConfig struct {
	WSEnabled        bool          `yaml:"ws_enabled"`         // Serve uniforms and the shader over WebSocket/HTTP.
	WSAddress        string        `yaml:"ws_address"`         // Listen address, e.g. "127.0.0.1:8080".
	UDPEnabled       bool          `yaml:"udp_enabled"`        // Send uniform packets over UDP.
	UDPTargetAddress string        `yaml:"udp_target_address"` // Target "host:port".
	UDPSendInterval  time.Duration `yaml:"udp_send_interval"`  // Interval between UDP packets.
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		LogLevel: "info",
		Audio: AudioConfig{
			Source:          SourceMicrophone,
			InputDevice:     -1,
			SampleRate:      44100,
			FramesPerBuffer: 512,
			InputChannels:   1,
		},
		Analysis: AnalysisConfig{
			FFTSize:       2048,
			Smoothing:     0.8,
			MinDecibels:   -100,
			MaxDecibels:   -10,
			Window:        analysis.Blackman.String(),
			Bands:         32,
			Normalization: spectral.Linear.Name,
			BeatThreshold: 0.1,
			BeatRatio:     1.5,
		},
		Render: RenderConfig{
			Width:     800,
			Height:    600,
			TargetFPS: 60,
			Mode:      params.Sine.String(),
			Amplitude: 1,
			Frequency: 3,
			Speed:     1,
			Hue:       180,
			Backend:   BackendSoftware,
		},
		Recording: RecordingConfig{
			OutputDir: "./recordings",
			BitDepth:  16,
		},
		Transport: TransportConfig{
			WSAddress:        "127.0.0.1:8080",
			UDPTargetAddress: "127.0.0.1:9090",
			UDPSendInterval:  33 * time.Millisecond, // ~30Hz.
		},
	}
}

// LoadConfig loads configuration from a YAML file specified by path. If path
// is empty it looks for "config.yaml" in the working directory and falls
// back to built-in defaults. Environment overrides are applied last, then
// the result is validated.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		if _, err := os.Stat("config.yaml"); err == nil {
			path = "config.yaml"
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

var ErrInvalid = errors.New("config: invalid value")

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if _, ok := log.ParseLevel(c.LogLevel); !ok {
		return invalid("log_level %q", c.LogLevel)
	}

	if err := c.NodeOptions().Validate(); err != nil {
		return fmt.Errorf("%w: analysis: %v", ErrInvalid, err)
	}
	if _, err := analysis.ParseWindowFunc(c.Analysis.Window); err != nil {
		return invalid("analysis.window %q", c.Analysis.Window)
	}
	if c.Analysis.Bands < 1 {
		return invalid("analysis.bands must be at least 1, got %d", c.Analysis.Bands)
	}
	policy, err := spectral.ParsePolicy(c.Analysis.Normalization)
	if err != nil {
		return invalid("analysis.normalization %q", c.Analysis.Normalization)
	}
	if _, err := policy.Fit(c.Analysis.MinDecibels, c.Analysis.MaxDecibels); err != nil {
		return fmt.Errorf("%w: analysis.min_decibels: %v", ErrInvalid, err)
	}
	if c.Analysis.BeatThreshold < 0 || c.Analysis.BeatThreshold > 1 {
		return invalid("analysis.beat_threshold must be within [0,1]")
	}
	if c.Analysis.BeatThreshold > 0 && c.Analysis.BeatRatio < 1 {
		return invalid("analysis.beat_ratio must be at least 1, got %v", c.Analysis.BeatRatio)
	}

	if c.Audio.Source == "" {
		return invalid("audio.source must be %q or a file path", SourceMicrophone)
	}
	if c.Audio.FramesPerBuffer <= 0 {
		return invalid("audio.frames_per_buffer must be positive")
	}
	if c.Audio.InputChannels <= 0 {
		return invalid("audio.input_channels must be positive")
	}
	if c.Audio.GateThreshold < 0 || c.Audio.GateThreshold > 1 {
		return invalid("audio.gate_threshold must be within [0,1]")
	}

	if c.Render.Width <= 0 || c.Render.Height <= 0 {
		return invalid("render size %dx%d", c.Render.Width, c.Render.Height)
	}
	if c.Render.TargetFPS <= 0 || c.Render.TargetFPS > MaxTargetFPS {
		return invalid("render.target_fps must be within (0,%d], got %d", MaxTargetFPS, c.Render.TargetFPS)
	}
	if _, err := params.ParseModeName(c.Render.Mode); err != nil {
		return invalid("render.mode %q", c.Render.Mode)
	}
	switch c.Render.Backend {
	case BackendSoftware, BackendRemote:
	default:
		return invalid("render.backend %q", c.Render.Backend)
	}
	if c.Render.SnapshotEvery < 0 {
		return invalid("render.snapshot_every must not be negative")
	}

	if c.Recording.Enabled {
		switch c.Recording.BitDepth {
		case 16, 24, 32:
		default:
			return invalid("recording.bit_depth %d", c.Recording.BitDepth)
		}
	}

	if c.Transport.UDPEnabled {
		if !strings.Contains(c.Transport.UDPTargetAddress, ":") {
			return invalid("transport.udp_target_address '%s' appears invalid (missing port?)", c.Transport.UDPTargetAddress)
		}
		if c.Transport.UDPSendInterval <= 0 {
			return invalid("transport.udp_send_interval must be positive when UDP is enabled")
		}
	}
	if (c.Transport.WSEnabled || c.Render.Backend == BackendRemote) && c.Transport.WSAddress == "" {
		return invalid("transport.ws_address must be set")
	}
	return nil
}

// Level resolves the effective log level.
func (c *Config) Level() log.Level {
	if c.Debug {
		return log.LevelDebug
	}
	if lvl, ok := log.ParseLevel(c.LogLevel); ok {
		return lvl
	}
	return log.LevelInfo
}

// NodeOptions converts the analysis section.
func (c *Config) NodeOptions() analysis.Options {
	window, _ := analysis.ParseWindowFunc(c.Analysis.Window)
	return analysis.Options{
		FFTSize:     c.Analysis.FFTSize,
		SampleRate:  c.Audio.SampleRate,
		Smoothing:   c.Analysis.Smoothing,
		MinDecibels: c.Analysis.MinDecibels,
		MaxDecibels: c.Analysis.MaxDecibels,
		Window:      window,
	}
}

// Policy resolves the normalization policy, Linear when unknown.
func (c *Config) Policy() spectral.Policy {
	p, _ := spectral.ParsePolicy(c.Analysis.Normalization)
	return p
}

// RenderParameters converts the render section's initial parameters.
func (c *Config) RenderParameters() params.RenderParameters {
	mode, _ := params.ParseModeName(c.Render.Mode)
	return params.RenderParameters{
		Amplitude: float32(c.Render.Amplitude),
		Frequency: float32(c.Render.Frequency),
		Speed:     float32(c.Render.Speed),
		Hue:       float32(c.Render.Hue),
		Mode:      mode,
	}.Sanitize()
}

// FrameInterval is the target time between frames.
func (c *Config) FrameInterval() time.Duration {
	return time.Second / time.Duration(max(c.Render.TargetFPS, 1))
}

// applyEnvOverrides applies ENV_* variables over file values.
func (cfg *Config) applyEnvOverrides() {
	// ENV_DEBUG
	if val, ok := os.LookupEnv("ENV_DEBUG"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			cfg.Debug = bVal
			log.Infof("Config: Overriding debug from env: %v", bVal)
		}
	}
	// ENV_LOG_LEVEL
	if val, ok := os.LookupEnv("ENV_LOG_LEVEL"); ok {
		cfg.LogLevel = val
		log.Infof("Config: Overriding log_level from env: %s", val)
	}
	// ENV_TARGET_FPS
	if val, ok := os.LookupEnv("ENV_TARGET_FPS"); ok {
		if fps, err := strconv.Atoi(val); err == nil {
			cfg.Render.TargetFPS = fps
			log.Infof("Config: Overriding render.target_fps from env: %d", fps)
		}
	}

	// ENV_WS_{...} and ENV_UDP_{...} are specific to the transport layer.

	// ENV_WS_ADDRESS
	if val, ok := os.LookupEnv("ENV_WS_ADDRESS"); ok {
		cfg.Transport.WSAddress = val
		log.Infof("Config: Overriding transport.ws_address from env: %s", val)
	}
	// ENV_UDP_ENABLED
	if val, ok := os.LookupEnv("ENV_UDP_ENABLED"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			cfg.Transport.UDPEnabled = bVal
			log.Infof("Config: Overriding transport.udp_enabled from env: %v", bVal)
		}
	}
	// ENV_UDP_TARGET_ADDRESS
	if val, ok := os.LookupEnv("ENV_UDP_TARGET_ADDRESS"); ok {
		cfg.Transport.UDPTargetAddress = val
		log.Infof("Config: Overriding transport.udp_target_address from env: %s", val)
	}
	// ENV_UDP_SEND_INTERVAL
	if val, ok := os.LookupEnv("ENV_UDP_SEND_INTERVAL"); ok {
		if dur, err := time.ParseDuration(val); err == nil {
			cfg.Transport.UDPSendInterval = dur
			log.Infof("Config: Overriding transport.udp_send_interval from env: %s", dur)
		}
	}
}
