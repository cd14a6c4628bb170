// SPDX-License-Identifier: MIT
package analysis

import (
	"math"
	"testing"
	"time"

	"wavefield/pkg/utils"
)

func constant(n int, v float32) []float32 {
	buf := make([]float32, n)
	for i := range buf {
		buf[i] = v
	}
	return buf
}

func TestCalculateRMS(t *testing.T) {
	tests := []struct {
		name string
		in   []float32
		want float64
	}{
		{"empty", nil, 0},
		{"constant", constant(64, 0.5), 0.5},
		{"sine", utils.GenerateSineWave(44100, 44100, 441, 1), 1 / math.Sqrt2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := calculateRMS(tt.in); math.Abs(got-tt.want) > 1e-3 {
				t.Errorf("calculateRMS() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBeatDetector(t *testing.T) {
	mock := &utils.MockTransport{}
	kd := NewBeatDetector(0.1, 1.5, 100*time.Millisecond, mock)
	clock := time.Unix(0, 0)
	kd.now = func() time.Time { return clock }

	quiet, loud := constant(512, 0.05), constant(512, 0.6)
	step := func(buf []float32, advance time.Duration) {
		clock = clock.Add(advance)
		kd.Write(buf)
	}

	step(quiet, 10*time.Millisecond)
	if kd.Beats() != 0 {
		t.Fatalf("quiet buffer below threshold produced a beat")
	}

	step(loud, 10*time.Millisecond)
	if kd.Beats() != 1 {
		t.Fatalf("Beats() = %d, want 1 after a loud onset", kd.Beats())
	}
	count, last := mock.Sent()
	event, ok := last.(BeatEvent)
	if count != 1 || !ok || event.Name != "kick" || event.Count != 1 {
		t.Fatalf("unexpected event %d %#v", count, last)
	}

	// Sustained energy is not a new onset.
	step(loud, 10*time.Millisecond)
	if kd.Beats() != 1 {
		t.Errorf("sustained level produced a beat")
	}

	// A new onset inside the cooldown is suppressed.
	step(quiet, 10*time.Millisecond)
	step(loud, 10*time.Millisecond)
	if kd.Beats() != 1 {
		t.Errorf("onset inside cooldown produced a beat")
	}

	step(quiet, 100*time.Millisecond)
	step(loud, 10*time.Millisecond)
	if kd.Beats() != 2 {
		t.Errorf("Beats() = %d, want 2 after the cooldown", kd.Beats())
	}
}

func TestBeatDetectorNilTransport(t *testing.T) {
	kd := NewBeatDetector(0.1, 1.5, 0, nil)
	kd.Write(constant(16, 0.9))
	if kd.Beats() != 1 {
		t.Errorf("Beats() = %d, want 1", kd.Beats())
	}
}
