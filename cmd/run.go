// SPDX-License-Identifier: MIT
package cmd

import (
	"context"
	"io"
	"os"

	"wavefield/internal/config"
	"wavefield/internal/log"
	"wavefield/internal/tui"
)

// runVisualiser runs the frame loop with the control panel, or headless
// until ctx ends when --no-tui is set. A backend that cannot be configured
// stops here, before the first frame.
func runVisualiser(ctx context.Context, cfg *config.Config, opts *options) error {
	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.sched.Start(ctx); err != nil {
		return err
	}
	defer a.sched.Stop()

	if err := a.startTransports(); err != nil {
		return err
	}

	if opts.noTUI {
		log.Infof("Run: %s, press Ctrl+C to stop", a.title)
		select {
		case <-ctx.Done():
		case <-a.sched.Done():
		}
		return nil
	}

	logOut := io.Discard
	if opts.logFile != "" {
		f, err := os.OpenFile(opts.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return err
		}
		defer f.Close()
		logOut = f
	}
	return tui.RunPanel(ctx, a.sched, a.title, logOut)
}
