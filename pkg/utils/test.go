// Package utils provides deterministic signals and spectra shared by tests
// across the analysis, spectral and scheduler packages.
package utils

import (
	"math"
	"sync"
)

// MockTransport implements transport.Transport by recording what it is sent.
type MockTransport struct {
	mu       sync.Mutex
	LastData any
	Count    int
	Closed   bool
}

// Send stores a copy of byte slices (callers reuse their buffers) and the
// value itself for anything else.
func (m *MockTransport) Send(data any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b, ok := data.([]byte); ok {
		data = append([]byte(nil), b...)
	}
	m.LastData = data
	m.Count++
	return nil
}

func (m *MockTransport) Close() error {
	m.mu.Lock()
	m.Closed = true
	m.mu.Unlock()
	return nil
}

// Sent returns the number of Send calls and the last value.
func (m *MockTransport) Sent() (int, any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Count, m.LastData
}

// GenerateSineWave returns size float32 samples of a sine at frequency Hz
// with the given peak amplitude.
func GenerateSineWave(size int, sampleRate, frequency, amplitude float64) []float32 {
	buffer := make([]float32, size)
	for i := range buffer {
		t := float64(i) / sampleRate
		buffer[i] = float32(math.Sin(2*math.Pi*frequency*t) * amplitude)
	}
	return buffer
}

// GenerateComplexWave returns a 440 Hz fundamental with two harmonics.
func GenerateComplexWave(size int, sampleRate float64) []float32 {
	buffer := make([]float32, size)
	for i := range buffer {
		tm := float64(i) / sampleRate
		signal := math.Sin(2*math.Pi*440*tm)*0.5 +
			math.Sin(2*math.Pi*880*tm)*0.3 +
			math.Sin(2*math.Pi*1320*tm)*0.2
		buffer[i] = float32(signal * 0.9)
	}
	return buffer
}

// ConstantSpectrum returns a spectral frame of length bins with every bin
// set to db.
func ConstantSpectrum(bins int, db float32) []float32 {
	frame := make([]float32, bins)
	for i := range frame {
		frame[i] = db
	}
	return frame
}

// StepSpectrum returns a frame whose first half sits at low dB and second
// half at high dB.
func StepSpectrum(bins int, low, high float32) []float32 {
	frame := make([]float32, bins)
	for i := range frame {
		if i < bins/2 {
			frame[i] = low
		} else {
			frame[i] = high
		}
	}
	return frame
}

// FindPeakBin returns the index of the largest value in [startBin, endBin].
func FindPeakBin(values []float32, startBin, endBin int) int {
	if len(values) == 0 {
		return 0
	}
	if startBin < 0 {
		startBin = 0
	}
	if endBin >= len(values) {
		endBin = len(values) - 1
	}

	peakBin := startBin
	peakValue := values[startBin]
	for bin := startBin + 1; bin <= endBin; bin++ {
		if values[bin] > peakValue {
			peakValue = values[bin]
			peakBin = bin
		}
	}
	return peakBin
}
