// SPDX-License-Identifier: MIT
package cmd

import (
	"context"
	"fmt"

	"wavefield/internal/capture"
	"wavefield/internal/config"
	"wavefield/internal/log"
	"wavefield/pkg/build"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// options hold command line values. A flag only overrides the config file
// when it was set explicitly.
type options struct {
	configPath string

	// Audio
	source          string
	loop            bool
	deviceID        int
	sampleRate      float64
	framesPerBuffer int
	channels        int
	lowLatency      bool
	audio           bool

	// Render
	mode    string
	backend string
	width   int
	height  int
	fps     int

	// Recording
	record    bool
	outputDir string

	// Transport
	ws        string
	udpTarget string

	// Run
	noTUI   bool
	logFile string

	verbose bool
}

// Execute parses args and runs the selected command until ctx ends.
func Execute(ctx context.Context, args []string) error {
	root := NewRootCommand()
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

// NewRootCommand builds the command tree. The root command runs the
// visualiser.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&options{})
}

func newRootCommand(opts *options) *cobra.Command {
	buildInfo := build.GetBuildFlags()

	rootCmd := &cobra.Command{
		Use:           buildInfo.Name + " [audio file]",
		Short:         build.Description,
		Version:       buildInfo.String(),
		Args:          cobra.MaximumNArgs(1),
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts, args)
			if err != nil {
				return err
			}
			return runVisualiser(cmd.Context(), cfg, opts)
		},
	}

	// Display help message
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "f", "",
		"Path to a YAML config file (default ./config.yaml when present)")

	// Audio Device Configuration
	flags.StringVarP(&opts.source, "source", "i", config.SourceMicrophone,
		"Audio source: 'microphone' or a WAV/MP3/OGG file")
	flags.BoolVar(&opts.loop, "loop", false,
		"Loop file sources")
	flags.IntVarP(&opts.deviceID, "device", "d", capture.DefaultDeviceID,
		"Specify input device ID. Use 'list' command to see available devices.")
	flags.IntVarP(&opts.channels, "channels", "c", 1,
		"Number of channels to capture, mixed down to mono")
	flags.Float64VarP(&opts.sampleRate, "sample-rate", "s", 44100,
		"Sample rate, measured in Hertz (Hz)")
	flags.IntVarP(&opts.framesPerBuffer, "frames-per-buffer", "b", 512,
		"The number of frames per buffer (affects latency)")
	flags.BoolVarP(&opts.lowLatency, "low-latency", "l", false,
		"Use low latency mode for real-time processing")
	flags.BoolVarP(&opts.audio, "audio", "a", false,
		"Start audio capture immediately instead of waiting for the toggle")

	// Render Configuration
	flags.StringVarP(&opts.mode, "mode", "m", "sine",
		"Wave mode: sine, ripple, lissajous, plasma, surface (or 0-4)")
	flags.StringVar(&opts.backend, "backend", config.BackendSoftware,
		"Render backend: 'software' or 'remote' (browser over WebSocket)")
	flags.IntVar(&opts.width, "width", 800, "Render width in pixels")
	flags.IntVar(&opts.height, "height", 600, "Render height in pixels")
	flags.IntVar(&opts.fps, "fps", 60, "Target frames per second")

	// Recording Configuration
	flags.BoolVarP(&opts.record, "record", "r", false,
		"Record the captured audio to WAV")
	flags.StringVarP(&opts.outputDir, "output-dir", "o", "./recordings",
		"Directory for recordings")

	// Transport Configuration
	flags.StringVar(&opts.ws, "ws", "",
		"Serve uniforms over WebSocket on this address")
	flags.StringVar(&opts.udpTarget, "udp", "",
		"Send uniform packets over UDP to this host:port")

	// Debug Configuration
	flags.BoolVarP(&opts.verbose, "verbose", "v", false,
		"Show verbose output")

	rootCmd.Flags().BoolVar(&opts.noTUI, "no-tui", false,
		"Run without the control panel until interrupted")
	rootCmd.Flags().StringVar(&opts.logFile, "log-file", "",
		"Write logs here while the control panel is open (default: discard)")

	rootCmd.AddCommand(
		newListCommand(),
		newRenderCommand(opts),
		newShaderCommand(),
	)
	return rootCmd
}

// loadConfig reads the config file and environment, then applies the flags
// the user set explicitly. A positional argument selects a file source.
func loadConfig(cmd *cobra.Command, opts *options, args []string) (*config.Config, error) {
	cfg, err := config.LoadConfig(opts.configPath)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	set := func(name string, apply func()) {
		if f := flags.Lookup(name); f != nil && f.Changed {
			apply()
		}
	}

	set("source", func() { cfg.Audio.Source = opts.source })
	set("loop", func() { cfg.Audio.Loop = opts.loop })
	set("device", func() { cfg.Audio.InputDevice = opts.deviceID })
	set("channels", func() { cfg.Audio.InputChannels = opts.channels })
	set("sample-rate", func() { cfg.Audio.SampleRate = opts.sampleRate })
	set("frames-per-buffer", func() { cfg.Audio.FramesPerBuffer = opts.framesPerBuffer })
	set("low-latency", func() { cfg.Audio.LowLatency = opts.lowLatency })
	set("audio", func() { cfg.Audio.StartEnabled = opts.audio })
	set("mode", func() { cfg.Render.Mode = opts.mode })
	set("backend", func() { cfg.Render.Backend = opts.backend })
	set("width", func() { cfg.Render.Width = opts.width })
	set("height", func() { cfg.Render.Height = opts.height })
	set("fps", func() { cfg.Render.TargetFPS = opts.fps })
	set("record", func() { cfg.Recording.Enabled = opts.record })
	set("output-dir", func() { cfg.Recording.OutputDir = opts.outputDir })
	set("ws", func() {
		cfg.Transport.WSEnabled = true
		cfg.Transport.WSAddress = opts.ws
	})
	set("udp", func() {
		cfg.Transport.UDPEnabled = true
		cfg.Transport.UDPTargetAddress = opts.udpTarget
	})
	set("verbose", func() { cfg.Debug = opts.verbose })

	if len(args) == 1 {
		cfg.Audio.Source = args[0]
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	log.SetLevel(cfg.Level())
	logFlags(flags)
	return cfg, nil
}

func logFlags(flags *pflag.FlagSet) {
	if !log.Enabled(log.LevelDebug) {
		return
	}
	flags.Visit(func(f *pflag.Flag) {
		log.Debugf("CLI: --%s=%s", f.Name, f.Value)
	})
}
