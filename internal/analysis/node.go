// SPDX-License-Identifier: MIT
/*
Package analysis implements the analysis node a capture stream is attached
to. The node keeps a rolling buffer of the most recent FFTSize time-domain
samples and, when polled, turns it into decibel magnitudes:

	window -> real FFT -> |X[k]|/N -> s[k] = τ·s[k] + (1-τ)·|X[k]|/N -> 20·log10(s[k])

The smoothing state s lives in the node, so every Poll advances it. Callers
poll at most once per rendered frame to keep τ meaningful.

Thread Safety:
  - Write is called from the capture thread (PortAudio callback or file pump)
  - Poll is called from the frame loop
  - The rolling buffer is guarded by a mutex held only for a copy
  - The FFT workspace is owned by the poller and never shared
*/
package analysis

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"
	"sync"

	"wavefield/internal/log"
	"wavefield/pkg/bitint"

	"gonum.org/v1/gonum/dsp/fourier"
)

// Bounds for the analyser FFT size.
const (
	MinFFTSize = 32
	MaxFFTSize = 32768
)

// Options configure a Node. They are consumed once, at construction.
type Options struct {
	FFTSize     int        // Power of two, MinFFTSize..MaxFFTSize.
	SampleRate  float64    // Hz, used only for bin frequency lookups.
	Smoothing   float64    // Smoothing time constant τ in [0,1].
	MinDecibels float64    // Floor reported for silent bins.
	MaxDecibels float64    // Ceiling advertised to consumers.
	Window      WindowFunc // Window applied before the FFT.
}

// DefaultOptions mirror the browser analyser defaults the visualiser was
// tuned against, with the -100..-10 dB range.
func DefaultOptions() Options {
	return Options{
		FFTSize:     2048,
		SampleRate:  44100,
		Smoothing:   0.8,
		MinDecibels: -100,
		MaxDecibels: -10,
		Window:      Blackman,
	}
}

var (
	ErrFFTSize    = errors.New("analysis: fft size must be a power of two in range")
	ErrSmoothing  = errors.New("analysis: smoothing must be within [0,1]")
	ErrDecibels   = errors.New("analysis: min decibels must be below max decibels")
	ErrSampleRate = errors.New("analysis: sample rate must be positive")
)

// Validate reports the first invalid option.
func (o Options) Validate() error {
	if !bitint.IsPowerOfTwo(o.FFTSize) || o.FFTSize < MinFFTSize || o.FFTSize > MaxFFTSize {
		return fmt.Errorf("%w: got %d, nearest %d", ErrFFTSize, o.FFTSize,
			min(max(bitint.NextPowerOfTwo(o.FFTSize), MinFFTSize), MaxFFTSize))
	}
	if math.IsNaN(o.Smoothing) || o.Smoothing < 0 || o.Smoothing > 1 {
		return fmt.Errorf("%w: got %f", ErrSmoothing, o.Smoothing)
	}
	if !(o.MinDecibels < o.MaxDecibels) {
		return fmt.Errorf("%w: got %f..%f", ErrDecibels, o.MinDecibels, o.MaxDecibels)
	}
	if !(o.SampleRate > 0) {
		return fmt.Errorf("%w: got %f", ErrSampleRate, o.SampleRate)
	}
	return nil
}

// Node is the analysis node attached to a capture stream.
type Node struct {
	opts Options

	mu   sync.Mutex // Protects ring and head.
	ring []float32  // Rolling time-domain buffer, FFTSize samples.
	head int        // Index of the oldest sample in ring.

	fftCalculator *fourier.FFT
	input         []float64    // Windowed samples in chronological order.
	coeffs        []complex128 // FFT output, FFTSize/2+1 values.
	smoothed      []float64    // Smoothed linear magnitudes, one per bin.
	window        []float64    // Pre-computed window coefficients.
}

// NewNode validates opts and pre-allocates every buffer Poll needs.
func NewNode(opts Options) (*Node, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	window := make([]float64, opts.FFTSize)
	windowCoefficients(window, opts.Window)

	log.Debugf("Analysis: node ready (size %d, τ %.2f, %v..%v dB, %v window)",
		opts.FFTSize, opts.Smoothing, opts.MinDecibels, opts.MaxDecibels, opts.Window)

	return &Node{
		opts:          opts,
		ring:          make([]float32, opts.FFTSize),
		fftCalculator: fourier.NewFFT(opts.FFTSize),
		input:         make([]float64, opts.FFTSize),
		coeffs:        make([]complex128, opts.FFTSize/2+1),
		smoothed:      make([]float64, opts.FFTSize/2),
		window:        window,
	}, nil
}

// Options returns the options the node was built with.
func (n *Node) Options() Options { return n.opts }

// FrequencyBinCount is the length of every spectral frame: FFTSize/2.
func (n *Node) FrequencyBinCount() int { return n.opts.FFTSize / 2 }

// MinDecibels is the floor reported for silent bins.
func (n *Node) MinDecibels() float64 { return n.opts.MinDecibels }

// FrequencyForBin returns the centre frequency in Hz of a bin, or 0 when the
// index is out of range.
func (n *Node) FrequencyForBin(bin int) float64 {
	if bin < 0 || bin >= n.FrequencyBinCount() {
		return 0
	}
	return float64(bin) * n.opts.SampleRate / float64(n.opts.FFTSize)
}

// Write appends mono samples to the rolling buffer, discarding the oldest.
// It never allocates and is safe to call from the capture thread.
func (n *Node) Write(samples []float32) {
	size := len(n.ring)
	if len(samples) > size {
		samples = samples[len(samples)-size:]
	}

	n.mu.Lock()
	for len(samples) > 0 {
		c := copy(n.ring[n.head:], samples)
		samples = samples[c:]
		n.head = (n.head + c) % size
	}
	n.mu.Unlock()
}

// Reset clears the rolling buffer and the smoothing state.
func (n *Node) Reset() {
	n.mu.Lock()
	clear(n.ring)
	n.head = 0
	n.mu.Unlock()
	clear(n.smoothed)
}

// Poll writes the current decibel magnitudes into dst and returns the number
// of bins written (the smaller of len(dst) and FrequencyBinCount). Values are
// never below MinDecibels, so silence does not produce -Inf.
func (n *Node) Poll(dst []float32) int {
	size := n.opts.FFTSize

	n.mu.Lock()
	oldest := n.ring[n.head:]
	newest := n.ring[:n.head]
	for i, s := range oldest {
		n.input[i] = float64(s)
	}
	for i, s := range newest {
		n.input[len(oldest)+i] = float64(s)
	}
	n.mu.Unlock()

	for i := range n.input {
		n.input[i] *= n.window[i]
	}
	n.fftCalculator.Coefficients(n.coeffs, n.input)

	tau := n.opts.Smoothing
	scale := 1.0 / float64(size)
	floor := n.opts.MinDecibels

	count := min(len(dst), len(n.smoothed))
	for k := range n.smoothed {
		s := tau*n.smoothed[k] + (1-tau)*cmplx.Abs(n.coeffs[k])*scale
		if math.IsNaN(s) || math.IsInf(s, 0) {
			s = 0
		}
		n.smoothed[k] = s

		if k >= count {
			continue
		}
		db := floor
		if s > 0 {
			db = math.Max(20*math.Log10(s), floor)
		}
		dst[k] = float32(db)
	}
	return count
}
