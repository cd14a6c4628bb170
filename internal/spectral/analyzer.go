// SPDX-License-Identifier: MIT
/*
Package spectral turns the decibel spectrum of an analysis node into bounded
scalar features: overall amplitude, n equal-width bands and bass/mid/treble
ranges, all in [0,1].

An Analyzer is owned by a single goroutine (the frame loop). It holds the
capture lifecycle so that toggling the microphone fully connects or fully
tears down the capture graph. While inactive it reports the idle feature
vector: amplitude 0 and every band at IdleValue.
*/
package spectral

import (
	"fmt"

	"wavefield/internal/analysis"
	"wavefield/internal/capture"
	"wavefield/internal/log"
)

// IdleValue is reported for every band and range while no capture is
// active, so the renderer keeps gentle motion instead of flatlining.
const IdleValue float32 = 0.1

// Window is a half-open bin range [Start, End).
type Window struct {
	Start, End int
}

func (w Window) Len() int { return w.End - w.Start }

// Windows partitions length bins into n contiguous windows of width
// length/n. The last window absorbs the remainder. n <= 0 yields nil.
func Windows(length, n int) []Window {
	if n <= 0 {
		return nil
	}
	out := make([]Window, n)
	for i := range out {
		out[i] = window(length, n, i)
	}
	return out
}

func window(length, n, i int) Window {
	if length <= 0 {
		return Window{}
	}
	width := length / n
	w := Window{Start: i * width, End: (i + 1) * width}
	if i == n-1 {
		w.End = length
	}
	return w
}

// Ranges holds the energy of the lower, middle and upper thirds of the
// spectrum.
type Ranges struct {
	Bass, Mid, Treble float32
}

// FeatureVector is the per-frame audio summary. It is produced fresh each
// frame and never mutated afterwards.
type FeatureVector struct {
	Amplitude float32
	Bands     []float32
	Ranges
}

// IdleFeatures is the feature vector reported while inactive.
func IdleFeatures(n int) FeatureVector {
	return FeatureVector{
		Bands:  idleBands(make([]float32, max(n, 0))),
		Ranges: Ranges{Bass: IdleValue, Mid: IdleValue, Treble: IdleValue},
	}
}

func idleBands(dst []float32) []float32 {
	for i := range dst {
		dst[i] = IdleValue
	}
	return dst
}

// Config configures an Analyzer.
type Config struct {
	Device  capture.Device   // Capture source started by Enable.
	Node    analysis.Options // Analysis node options.
	Policy  Policy           // Normalization policy.
	Taps    []capture.Sink   // Extra sinks fed alongside the node (recorder).
	Gate    float64          // Noise gate threshold, 0 disables the gate.
	Enabled bool             // Try to enable capture at construction.
}

// Analyzer turns polled spectra into features. Not safe for concurrent use.
type Analyzer struct {
	cfg    Config
	policy Policy
	frame  []float32 // SpectralFrame, overwritten in place by Poll.
	floor  float32

	stream capture.Stream
	node   *analysis.Node
}

// NewAnalyzer validates cfg and allocates the spectral frame. When
// cfg.Enabled is set a failure to start capture is logged and the analyzer
// stays inactive.
func NewAnalyzer(cfg Config) (*Analyzer, error) {
	if err := cfg.Node.Validate(); err != nil {
		return nil, err
	}
	policy, err := cfg.Policy.Fit(cfg.Node.MinDecibels, cfg.Node.MaxDecibels)
	if err != nil {
		return nil, err
	}

	a := &Analyzer{
		cfg:    cfg,
		policy: policy,
		frame:  make([]float32, cfg.Node.FFTSize/2),
		floor:  float32(cfg.Node.MinDecibels),
	}
	a.silence()

	if cfg.Enabled {
		if err := a.Enable(); err != nil {
			log.Warnf("Spectral: capture unavailable, staying idle: %v", err)
		}
	}
	return a, nil
}

func (a *Analyzer) Policy() Policy { return a.policy }

// FrameLen is the constant length of the spectral frame.
func (a *Analyzer) FrameLen() int { return len(a.frame) }

// Active reports whether a capture stream is attached.
func (a *Analyzer) Active() bool { return a.stream != nil }

// Enable starts the capture device and attaches a fresh analysis node.
// Errors leave the analyzer inactive and are not fatal. Enabling an active
// analyzer is a no-op.
func (a *Analyzer) Enable() error {
	if a.stream != nil {
		return nil
	}
	if a.cfg.Device == nil {
		return fmt.Errorf("spectral: %w", capture.ErrNoDevice)
	}

	node, err := analysis.NewNode(a.cfg.Node)
	if err != nil {
		return err
	}
	stream, err := a.cfg.Device.Start()
	if err != nil {
		return fmt.Errorf("spectral: starting capture: %w", err)
	}

	var sink capture.Sink = node
	if len(a.cfg.Taps) > 0 {
		sink = append(capture.Tee{node}, a.cfg.Taps...)
	}
	if a.cfg.Gate > 0 {
		sink = capture.NewGate(sink, a.cfg.Gate)
	}
	if err := stream.Attach(sink); err != nil {
		stream.Close()
		return fmt.Errorf("spectral: attaching analysis node: %w", err)
	}

	a.stream, a.node = stream, node
	log.Infof("Spectral: capture enabled (%d bins up to %.0f Hz, %s policy %.0f..%.0f dB)",
		len(a.frame), node.FrequencyForBin(len(a.frame)-1), a.policy.Name, a.policy.FloorDB, a.policy.CeilingDB)
	return nil
}

// Disable detaches and closes the capture stream. The next poll reports the
// idle frame. Disabling an inactive analyzer is a no-op.
func (a *Analyzer) Disable() error {
	if a.stream == nil {
		return nil
	}
	stream := a.stream
	a.stream, a.node = nil, nil
	a.silence()

	if err := stream.Close(); err != nil {
		return fmt.Errorf("spectral: closing capture: %w", err)
	}
	log.Infof("Spectral: capture disabled")
	return nil
}

// Toggle flips between active and inactive.
func (a *Analyzer) Toggle() error {
	if a.Active() {
		return a.Disable()
	}
	return a.Enable()
}

// Close releases the capture stream.
func (a *Analyzer) Close() error { return a.Disable() }

func (a *Analyzer) silence() {
	for i := range a.frame {
		a.frame[i] = a.floor
	}
}

// Poll refreshes the spectral frame from the analysis node and returns it.
// The slice is reused by the next Poll. While inactive it is all floor.
func (a *Analyzer) Poll() []float32 {
	if a.node != nil {
		a.node.Poll(a.frame)
	}
	return a.frame
}

// Amplitude of the current frame, 0 while inactive.
func (a *Analyzer) Amplitude() float32 {
	if !a.Active() || len(a.frame) == 0 {
		return 0
	}
	return a.policy.Amplitude(a.frame)
}

// Bands returns n band values of the current frame.
func (a *Analyzer) Bands(n int) []float32 {
	if n <= 0 {
		return nil
	}
	dst := make([]float32, n)
	a.BandsInto(dst)
	return dst
}

// BandsInto is Bands without allocation; len(dst) selects n.
func (a *Analyzer) BandsInto(dst []float32) {
	if !a.Active() || len(a.frame) == 0 {
		idleBands(dst)
		return
	}
	a.policy.BandsInto(a.frame, dst)
}

// Ranges of the current frame.
func (a *Analyzer) Ranges() Ranges {
	if !a.Active() || len(a.frame) == 0 {
		return Ranges{Bass: IdleValue, Mid: IdleValue, Treble: IdleValue}
	}
	return a.policy.Ranges(a.frame)
}

// Features polls once and returns the full feature vector with n bands.
func (a *Analyzer) Features(n int) FeatureVector {
	a.Poll()
	return FeatureVector{
		Amplitude: a.Amplitude(),
		Bands:     a.Bands(n),
		Ranges:    a.Ranges(),
	}
}

// FeaturesInto is Features reusing fv.Bands; its length selects n.
func (a *Analyzer) FeaturesInto(fv *FeatureVector) {
	a.Poll()
	fv.Amplitude = a.Amplitude()
	a.BandsInto(fv.Bands)
	fv.Ranges = a.Ranges()
}
