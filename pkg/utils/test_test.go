// SPDX-License-Identifier: MIT
package utils

import (
	"math"
	"testing"
)

const (
	testSize       = 1024
	testSampleRate = 44100
)

func TestMockTransportCopiesBytes(t *testing.T) {
	mt := &MockTransport{}
	payload := []byte{1, 2, 3}

	if err := mt.Send(payload); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	payload[0] = 99

	count, last := mt.Sent()
	if count != 1 {
		t.Errorf("Count = %d, want 1", count)
	}
	got, ok := last.([]byte)
	if !ok {
		t.Fatalf("LastData type = %T, want []byte", last)
	}
	if got[0] != 1 {
		t.Errorf("MockTransport stored reference instead of copy")
	}

	_ = mt.Close()
	if !mt.Closed {
		t.Error("Close() did not mark transport closed")
	}
}

func TestGenerateSineWave(t *testing.T) {
	wave := GenerateSineWave(testSize, testSampleRate, 440, 0.5)
	if len(wave) != testSize {
		t.Fatalf("length = %d, want %d", len(wave), testSize)
	}
	var peak float64
	for _, s := range wave {
		peak = math.Max(peak, math.Abs(float64(s)))
	}
	if peak > 0.5+1e-6 || peak < 0.49 {
		t.Errorf("peak = %f, want ~0.5", peak)
	}
}

func TestGenerateComplexWaveBounded(t *testing.T) {
	for i, s := range GenerateComplexWave(testSize, testSampleRate) {
		if s < -1 || s > 1 {
			t.Fatalf("sample %d = %f out of [-1,1]", i, s)
		}
	}
}

func TestSpectra(t *testing.T) {
	c := ConstantSpectrum(8, -50)
	for i, v := range c {
		if v != -50 {
			t.Errorf("ConstantSpectrum[%d] = %f", i, v)
		}
	}

	s := StepSpectrum(8, -100, -10)
	want := []float32{-100, -100, -100, -100, -10, -10, -10, -10}
	for i := range want {
		if s[i] != want[i] {
			t.Errorf("StepSpectrum[%d] = %f, want %f", i, s[i], want[i])
		}
	}
}

func TestFindPeakBin(t *testing.T) {
	tests := []struct {
		name       string
		values     []float32
		start, end int
		want       int
	}{
		{"Empty", nil, 0, 10, 0},
		{"Whole range", []float32{1, 5, 3}, 0, 2, 1},
		{"Clamped bounds", []float32{1, 2, 9}, -3, 30, 2},
		{"Sub range", []float32{9, 1, 4, 2}, 1, 3, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FindPeakBin(tt.values, tt.start, tt.end); got != tt.want {
				t.Errorf("FindPeakBin() = %d, want %d", got, tt.want)
			}
		})
	}
}
