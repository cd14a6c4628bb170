// SPDX-License-Identifier: MIT
package scheduler

import (
	"time"

	"wavefield/internal/params"
	"wavefield/internal/spectral"
)

// FeatureSource produces one feature vector per frame. *spectral.Analyzer
// satisfies it.
type FeatureSource interface {
	FeaturesInto(fv *spectral.FeatureVector)
	Toggle() error
	Active() bool
}

// Session is the state of one visualiser run. Only the frame goroutine
// touches it while the scheduler is running.
type Session struct {
	Source     FeatureSource
	Controller *params.Controller
	Width      int
	Height     int
	Started    time.Time // Zero until the first Start.
	Clock      *FrameClock

	features spectral.FeatureVector // Bands reused every frame.
}

func newSession(src FeatureSource, p params.RenderParameters, bands, width, height int) *Session {
	return &Session{
		Source:     src,
		Controller: params.NewController(p),
		Width:      width,
		Height:     height,
		features:   spectral.IdleFeatures(bands),
	}
}

// begin anchors shader time at the first start. Restarts keep the origin.
func (s *Session) begin(now time.Time) {
	if s.Clock != nil {
		return
	}
	s.Started = now
	s.Clock = NewFrameClock(now)
}

// resize applies new pixel dimensions. Zero or negative sizes are ignored,
// as are no-op resizes.
func (s *Session) resize(width, height int) bool {
	if width <= 0 || height <= 0 || (width == s.Width && height == s.Height) {
		return false
	}
	s.Width, s.Height = width, height
	return true
}
