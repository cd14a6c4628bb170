// SPDX-License-Identifier: MIT
package capture

import (
	"math"
	"sync/atomic"
)

// Gate is a noise gate Sink. Buffers whose peak does not exceed the
// threshold reach the next sink as silence, so the downstream time window
// still advances. Enable and threshold changes are safe from any goroutine.
type Gate struct {
	next      Sink
	enabled   atomic.Bool
	threshold atomic.Uint32 // float32 bits, 0..1
	silence   []float32     // Capture thread only.
}

var _ Sink = (*Gate)(nil)

// NewGate wraps next with a gate at threshold. The gate starts enabled.
func NewGate(next Sink, threshold float64) *Gate {
	g := &Gate{next: next}
	g.SetThreshold(threshold)
	g.enabled.Store(true)
	return g
}

func (g *Gate) Enable()  { g.enabled.Store(true) }
func (g *Gate) Disable() { g.enabled.Store(false) }

func (g *Gate) Enabled() bool { return g.enabled.Load() }

// SetThreshold sets the peak level in [0,1] a buffer must exceed to pass.
// 0 is always open, 1 always closed.
func (g *Gate) SetThreshold(threshold float64) {
	if threshold < 0 || math.IsNaN(threshold) {
		threshold = 0
	}
	if threshold > 1 {
		threshold = 1
	}
	g.threshold.Store(math.Float32bits(float32(threshold)))
}

func (g *Gate) Threshold() float64 {
	return float64(math.Float32frombits(g.threshold.Load()))
}

func (g *Gate) Write(samples []float32) {
	if !g.enabled.Load() || peak(samples) > math.Float32frombits(g.threshold.Load()) {
		g.next.Write(samples)
		return
	}
	if cap(g.silence) < len(samples) {
		g.silence = make([]float32, len(samples))
	}
	g.next.Write(g.silence[:len(samples)])
}

// peak returns the largest absolute sample. The sign bit is masked off
// rather than branched on.
func peak(samples []float32) float32 {
	var m float32
	for _, s := range samples {
		m = max(m, math.Float32frombits(math.Float32bits(s)&^(1<<31)))
	}
	return m
}
