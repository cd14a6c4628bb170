// SPDX-License-Identifier: MIT
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"wavefield/internal/config"
	"wavefield/internal/gpu"
	"wavefield/internal/log"

	"github.com/spf13/cobra"
)

type renderOptions struct {
	frames int
	every  int
	out    string
}

func newRenderCommand(opts *options) *cobra.Command {
	ropts := &renderOptions{}
	renderCmd := &cobra.Command{
		Use:   "render <audio file>",
		Short: "Render frames driven by an audio file to PNG",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts, args)
			if err != nil {
				return err
			}
			return renderFrames(cmd.Context(), cfg, ropts)
		},
	}
	renderCmd.Flags().IntVarP(&ropts.frames, "frames", "n", 120, "Frames to render")
	renderCmd.Flags().IntVar(&ropts.every, "every", 1, "Write a PNG every N drawn frames")
	renderCmd.Flags().StringVar(&ropts.out, "out", "frames", "Output directory")
	return renderCmd
}

// pollInterval is how often render checks the drawn frame count.
const pollInterval = 20 * time.Millisecond

// renderFrames plays the file through the software backend at the target
// frame rate, snapshotting drawn frames, and writes the last one as
// final.png.
func renderFrames(ctx context.Context, cfg *config.Config, ropts *renderOptions) error {
	if cfg.Audio.Source == config.SourceMicrophone {
		return errors.New("render: an audio file is required")
	}
	if ropts.frames <= 0 || ropts.every <= 0 {
		return fmt.Errorf("render: --frames and --every must be positive")
	}
	if err := os.MkdirAll(ropts.out, 0755); err != nil {
		return err
	}

	cfg.Render.Backend = config.BackendSoftware
	cfg.Render.SnapshotDir = ropts.out
	cfg.Render.SnapshotEvery = ropts.every
	cfg.Audio.StartEnabled = true

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.sched.Start(ctx); err != nil {
		return err
	}
	if err := a.startTransports(); err != nil {
		a.sched.Stop()
		return err
	}

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	want := uint64(ropts.frames)
	for a.software.Stats().Drawn < want {
		select {
		case <-ctx.Done():
			log.Warnf("Render: interrupted after %d frames", a.software.Stats().Drawn)
			want = 0
		case <-ticker.C:
		}
	}
	a.sched.Stop()

	final := filepath.Join(ropts.out, "final.png")
	if frame := a.software.Frame(); frame != nil {
		if err := gpu.WritePNG(final, frame); err != nil {
			return err
		}
	}

	st := a.software.Stats()
	log.Infof("Render: %d frames drawn, %d snapshots, %d replaced; last frame in %s",
		st.Drawn, st.Snapshots, st.Replaced, final)
	return nil
}
