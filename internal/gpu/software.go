// SPDX-License-Identifier: MIT
package gpu

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"

	"wavefield/internal/log"
	"wavefield/internal/uniform"
	"wavefield/internal/wavefield"

	"golang.org/x/sync/errgroup"
)

// SoftwareOptions configure the CPU backend.
type SoftwareOptions struct {
	Width, Height int
	Workers       int    // Row-parallel workers; GOMAXPROCS when zero.
	SnapshotDir   string // Write PNG snapshots here when set.
	SnapshotEvery uint64 // Snapshot every N drawn frames; 0 disables.
}

// SoftwareStats summarise backend activity.
type SoftwareStats struct {
	Submitted uint64 // Draw calls accepted.
	Drawn     uint64 // Frames rasterised.
	Replaced  uint64 // Pending draws overwritten by a newer one.
	Snapshots uint64
}

// Software is a Backend that rasterises on the CPU. A single goroutine
// consumes a one-slot mailbox; Draw never blocks.
type Software struct {
	opts SoftwareOptions

	mu         sync.Mutex
	configured bool
	closed     bool
	uniforms   [uniform.Size]byte
	pending    *uniform.Payload
	width      int
	height     int
	front      *image.RGBA // Last completed frame.

	wake chan struct{}
	done chan struct{}
	wg   sync.WaitGroup

	submitted, drawn, replaced, snapshots atomic.Uint64
}

var _ Backend = (*Software)(nil)

// NewSoftware creates a CPU backend and starts its render goroutine.
func NewSoftware(opts SoftwareOptions) (*Software, error) {
	if opts.Width <= 0 || opts.Height <= 0 {
		return nil, fmt.Errorf("%w: invalid target %dx%d", ErrNoAdapter, opts.Width, opts.Height)
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}
	if opts.SnapshotDir != "" && opts.SnapshotEvery > 0 {
		if err := os.MkdirAll(opts.SnapshotDir, 0o755); err != nil {
			return nil, fmt.Errorf("%w: snapshot dir: %v", ErrNoAdapter, err)
		}
	}

	s := &Software{
		opts:   opts,
		width:  opts.Width,
		height: opts.Height,
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	s.wg.Add(1)
	go s.run()
	log.Infof("GPU: software backend %dx%d, %d workers", opts.Width, opts.Height, opts.Workers)
	return s, nil
}

func (s *Software) Configure(p Program) error {
	if err := p.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.configured = true
	return nil
}

func (s *Software) WriteUniforms(b []byte) error {
	if len(b) != uniform.Size {
		return fmt.Errorf("gpu: uniform write of %d bytes, want %d", len(b), uniform.Size)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	copy(s.uniforms[:], b)
	return nil
}

// Draw snapshots the current uniforms into the mailbox and wakes the
// render goroutine.
func (s *Software) Draw() error {
	s.mu.Lock()
	switch {
	case s.closed:
		s.mu.Unlock()
		return ErrClosed
	case !s.configured:
		s.mu.Unlock()
		return ErrNotConfigured
	}
	p, err := uniform.Decode(s.uniforms[:])
	if err != nil {
		s.mu.Unlock()
		return err
	}
	if s.pending != nil {
		s.replaced.Add(1)
	}
	s.pending = &p
	s.mu.Unlock()

	s.submitted.Add(1)
	select {
	case s.wake <- struct{}{}:
	default:
	}
	return nil
}

func (s *Software) Resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	s.mu.Lock()
	s.width, s.height = width, height
	s.mu.Unlock()
}

// Frame returns a copy of the last completed frame, or nil before the
// first.
func (s *Software) Frame() *image.RGBA {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.front == nil {
		return nil
	}
	img := image.NewRGBA(s.front.Rect)
	copy(img.Pix, s.front.Pix)
	return img
}

func (s *Software) Stats() SoftwareStats {
	return SoftwareStats{
		Submitted: s.submitted.Load(),
		Drawn:     s.drawn.Load(),
		Replaced:  s.replaced.Load(),
		Snapshots: s.snapshots.Load(),
	}
}

func (s *Software) run() {
	defer s.wg.Done()
	var back *image.RGBA
	for {
		select {
		case <-s.done:
			return
		case <-s.wake:
		}

		s.mu.Lock()
		p := s.pending
		s.pending = nil
		w, h := s.width, s.height
		s.mu.Unlock()
		if p == nil {
			continue
		}

		if back == nil || back.Rect.Dx() != w || back.Rect.Dy() != h {
			back = image.NewRGBA(image.Rect(0, 0, w, h))
		}
		if err := s.rasterise(*p, back); err != nil {
			log.Errorf("GPU: rasterise failed: %v", err)
			continue
		}

		s.mu.Lock()
		back, s.front = s.front, back
		s.mu.Unlock()

		n := s.drawn.Add(1)
		if s.opts.SnapshotDir != "" && s.opts.SnapshotEvery > 0 && n%s.opts.SnapshotEvery == 0 {
			s.snapshot(n)
		}
	}
}

// rasterise splits the target into horizontal bands, one per worker.
func (s *Software) rasterise(p uniform.Payload, img *image.RGBA) error {
	h := img.Rect.Dy()
	workers := min(s.opts.Workers, h)
	rows := (h + workers - 1) / workers

	var g errgroup.Group
	g.SetLimit(workers)
	for y0 := 0; y0 < h; y0 += rows {
		y1 := min(y0+rows, h)
		g.Go(func() error {
			wavefield.RenderRows(p, img, y0, y1)
			return nil
		})
	}
	return g.Wait()
}

func (s *Software) snapshot(frame uint64) {
	s.mu.Lock()
	img := s.front
	s.mu.Unlock()

	path := filepath.Join(s.opts.SnapshotDir, fmt.Sprintf("frame-%06d.png", frame))
	if err := WritePNG(path, img); err != nil {
		log.Warnf("GPU: snapshot: %v", err)
		return
	}
	s.snapshots.Add(1)
	log.Debugf("GPU: wrote %s", path)
}

// WritePNG encodes img to path.
func WritePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	return f.Close()
}

// Close stops the render goroutine. A pending draw is discarded; a draw
// already rasterising completes first.
func (s *Software) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	close(s.done)
	s.wg.Wait()
	log.Debugf("GPU: software backend closed (%d frames)", s.drawn.Load())
	return nil
}
