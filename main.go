// SPDX-License-Identifier: MIT
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"wavefield/cmd"
	"wavefield/internal/log"
	"wavefield/pkg/build"
)

// main is the entry point for the wave field visualiser.
// The program flow is divided into three distinct phases:
//
// 1. Startup Phase (Cold Path):
//   - Initialize build information
//   - Parse command line arguments and load configuration
//   - Assemble capture, analysis, backend and transports
//
// 2. Concurrent Phase (Hot Path):
//   - Frame loop: poll features, build uniforms, submit draws
//   - Capture callbacks feed the analysis node
//   - Control panel applies parameter commands between frames
//
// 3. Shutdown Phase (Cold Path):
//   - Handle termination signals
//   - Stop the frame loop, close the recording and transports
func main() {
	if err := build.Initialize(); err != nil {
		log.Fatalf("%v", err)
	}

	// Setup signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.Execute(ctx, os.Args[1:]); err != nil {
		stop()
		log.Fatalf("%v", err)
	}
}
