// SPDX-License-Identifier: MIT
/*
Package gpu defines the render backend contract the frame scheduler drives
and provides two implementations:

  - Software rasterises the wave field on the CPU with a row-parallel
    worker pool.
  - Remote forwards every uniform upload to network clients that run the
    WGSL program on a real GPU (typically a browser over WebSocket).

Both are asynchronous: Draw hands the current uniform block to the backend
and returns immediately. At most one draw is pending; a newer one replaces
it.
*/
package gpu

import (
	"errors"
	"fmt"
	"strings"

	"wavefield/internal/uniform"
	"wavefield/internal/wavefield"
)

var (
	// ErrCapabilityUnavailable means the backend cannot run the program.
	ErrCapabilityUnavailable = errors.New("gpu: required capability unavailable")
	// ErrNoAdapter means no device is available to draw with.
	ErrNoAdapter = errors.New("gpu: no adapter")
	// ErrNotConfigured is returned by Draw before Configure.
	ErrNotConfigured = errors.New("gpu: backend not configured")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("gpu: backend closed")
)

// Program is everything a backend needs to set up its pipeline once.
type Program struct {
	Source        string // WGSL.
	VertexEntry   string
	FragmentEntry string
	Vertices      []byte // Interleaved vertex buffer.
	VertexStride  int
	VertexCount   int
	UniformSize   int
	ClearColor    [4]float64
}

// DefaultProgram is the wave field program with the fullscreen quad.
func DefaultProgram() Program {
	return Program{
		Source:        wavefield.Shader,
		VertexEntry:   wavefield.VertexEntry,
		FragmentEntry: wavefield.FragmentEntry,
		Vertices:      uniform.QuadBytes(),
		VertexStride:  uniform.VertexStride,
		VertexCount:   uniform.VertexCount,
		UniformSize:   uniform.Size,
		ClearColor:    uniform.ClearColor,
	}
}

// Validate checks the program against the host/GPU contract.
func (p Program) Validate() error {
	for _, entry := range []string{p.VertexEntry, p.FragmentEntry} {
		if entry == "" || !strings.Contains(p.Source, "fn "+entry+"(") {
			return fmt.Errorf("%w: entry point %q missing", ErrCapabilityUnavailable, entry)
		}
	}
	if p.UniformSize != uniform.Size {
		return fmt.Errorf("%w: uniform block of %d bytes, want %d", ErrCapabilityUnavailable, p.UniformSize, uniform.Size)
	}
	if p.VertexStride != uniform.VertexStride || len(p.Vertices) != p.VertexStride*p.VertexCount {
		return fmt.Errorf("%w: vertex layout %d×%d over %d bytes", ErrCapabilityUnavailable, p.VertexCount, p.VertexStride, len(p.Vertices))
	}
	return nil
}

// Backend is the render device the scheduler submits frames to.
type Backend interface {
	// Configure compiles the program. Errors are fatal for the session.
	Configure(p Program) error
	// WriteUniforms replaces the uniform block used by the next Draw.
	WriteUniforms(b []byte) error
	// Draw submits one frame without waiting for it to complete.
	Draw() error
	// Resize changes the target size. Zero dimensions are ignored.
	Resize(width, height int)
	Close() error
}
