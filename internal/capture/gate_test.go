// SPDX-License-Identifier: MIT
package capture

import (
	"fmt"
	"testing"
)

var (
	quietBuffer = []float32{0.001, -0.002, 0.0015, -0.001}
	loudBuffer  = []float32{0.4, -0.9, 0.7, -0.2}
)

func TestGateEnable(t *testing.T) {
	g := NewGate(&collectSink{}, 0.1)
	if !g.Enabled() {
		t.Error("Gate should be enabled initially")
	}

	g.Disable()
	g.Disable() // Multiple calls should be idempotent
	if g.Enabled() {
		t.Error("Gate should be disabled after Disable()")
	}

	g.Enable()
	g.Enable()
	if !g.Enabled() {
		t.Error("Gate should be enabled after Enable()")
	}
}

func TestGateThresholdBoundaries(t *testing.T) {
	tests := []struct {
		input    float64
		expected float64
	}{
		{-0.1, 0.0}, // Below min
		{0.0, 0.0},
		{0.5, 0.5},
		{1.0, 1.0},
		{1.5, 1.0}, // Above max
	}

	g := NewGate(&collectSink{}, 0)
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%.2f", tt.input), func(t *testing.T) {
			g.SetThreshold(tt.input)
			if got := g.Threshold(); got < tt.expected-1e-6 || got > tt.expected+1e-6 {
				t.Errorf("Threshold() = %.3f, want %.3f", got, tt.expected)
			}
		})
	}
}

func TestGateDetection(t *testing.T) {
	tests := []struct {
		desc       string
		buffer     []float32
		enabled    bool
		threshold  float64
		shouldPass bool
	}{
		{"Gate disabled/Quiet signal", quietBuffer, false, 0.1, true},
		{"Gate disabled/Loud signal", loudBuffer, false, 0.1, true},
		{"Gate enabled/Quiet signal/Low threshold", quietBuffer, true, 0.0001, true},
		{"Gate enabled/Quiet signal/Mid threshold", quietBuffer, true, 0.1, false},
		{"Gate enabled/Loud signal/Mid threshold", loudBuffer, true, 0.1, true},
		{"Gate enabled/Loud signal/Full threshold", loudBuffer, true, 1.0, false},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			sink := &collectSink{}
			g := NewGate(sink, tt.threshold)
			if !tt.enabled {
				g.Disable()
			}

			g.Write(tt.buffer)

			got, calls := sink.snapshot()
			if calls != 1 || len(got) != len(tt.buffer) {
				t.Fatalf("sink got %d calls with %d samples, want 1 call with %d", calls, len(got), len(tt.buffer))
			}
			passed := got[1] == tt.buffer[1]
			if passed != tt.shouldPass {
				t.Errorf("passed = %v, want %v", passed, tt.shouldPass)
			}
			if !passed {
				for i, s := range got {
					if s != 0 {
						t.Errorf("gated sample %d = %f, want 0", i, s)
					}
				}
			}
		})
	}
}

func TestPeak(t *testing.T) {
	if got := peak(loudBuffer); got != 0.9 {
		t.Errorf("peak = %f, want 0.9", got)
	}
	if got := peak(nil); got != 0 {
		t.Errorf("peak(nil) = %f, want 0", got)
	}
}

type discardSink struct{}

func (discardSink) Write([]float32) {}

func TestGateWriteNoAllocs(t *testing.T) {
	g := NewGate(discardSink{}, 0.5)
	buf := make([]float32, 1024)
	g.Write(buf) // warm the silence buffer

	allocs := testing.AllocsPerRun(100, func() { g.Write(buf) })
	if allocs != 0 {
		t.Errorf("Write allocated %.0f times, want 0", allocs)
	}
}

func BenchmarkGateWrite(b *testing.B) {
	benchmarks := []struct {
		name    string
		buffer  []float32
		enabled bool
	}{
		{"Gate disabled", loudBuffer, false},
		{"Gate enabled/Quiet", quietBuffer, true},
		{"Gate enabled/Loud", loudBuffer, true},
	}

	for _, bm := range benchmarks {
		b.Run(bm.name, func(b *testing.B) {
			g := NewGate(discardSink{}, 0.1)
			if !bm.enabled {
				g.Disable()
			}
			b.ReportAllocs()
			for b.Loop() {
				g.Write(bm.buffer)
			}
		})
	}
}
