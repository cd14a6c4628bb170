// SPDX-License-Identifier: MIT
/*
Package params holds the user-controlled render parameters and blends them
with live audio features.

Parameters have a single owner. The frame scheduler applies Commands
between frames, so setters never race with the uniform upload.
*/
package params

import (
	"math"

	"wavefield/internal/spectral"
)

// Setter ranges.
const (
	MinAmplitude = 0.0
	MaxAmplitude = 2.0
	MinFrequency = 0.1
	MaxFrequency = 20.0
	MinSpeed     = 0.1
	MaxSpeed     = 5.0
)

// RenderParameters are the user-set render inputs.
type RenderParameters struct {
	Amplitude float32
	Frequency float32
	Speed     float32
	Hue       float32 // Degrees in [0,360).
	Mode      Mode
}

// Defaults returns the start-up parameters.
func Defaults() RenderParameters {
	return RenderParameters{
		Amplitude: 1,
		Frequency: 3,
		Speed:     1,
		Hue:       180,
		Mode:      Sine,
	}
}

// Sanitize clamps every field into its setter range.
func (p RenderParameters) Sanitize() RenderParameters {
	c := NewController(Defaults())
	c.SetAmplitude(p.Amplitude)
	c.SetFrequency(p.Frequency)
	c.SetSpeed(p.Speed)
	c.SetHue(p.Hue)
	c.SetMode(p.Mode)
	return c.Parameters()
}

// EffectiveAmplitude scales the base amplitude by audio presence, between
// 50% and 200% of base for audio in [0,1].
func EffectiveAmplitude(base, audio float32) float32 {
	if !(audio >= 0) {
		audio = 0
	} else if audio > 1 {
		audio = 1
	}
	return base * (0.5 + audio*1.5)
}

// Controller owns RenderParameters and the last polled feature vector.
// Not safe for concurrent use.
type Controller struct {
	params   RenderParameters
	features spectral.FeatureVector
	bands    []float32 // Backs features.Bands.
}

func NewController(p RenderParameters) *Controller {
	c := &Controller{params: Defaults()}
	c.SetAmplitude(p.Amplitude)
	c.SetFrequency(p.Frequency)
	c.SetSpeed(p.Speed)
	c.SetHue(p.Hue)
	c.SetMode(p.Mode)
	return c
}

func (c *Controller) Parameters() RenderParameters { return c.params }

// Features returns the last feature vector passed to Update. Its Bands
// slice belongs to the controller and is rewritten by the next Update.
func (c *Controller) Features() spectral.FeatureVector { return c.features }

// Update records this frame's features. Bands are copied into a buffer the
// controller reuses, so the caller may overwrite fv.Bands afterwards.
func (c *Controller) Update(fv spectral.FeatureVector) {
	c.bands = append(c.bands[:0], fv.Bands...)
	fv.Bands = c.bands
	c.features = fv
}

// EffectiveAmplitude blends the base amplitude with the last features.
func (c *Controller) EffectiveAmplitude() float32 {
	return EffectiveAmplitude(c.params.Amplitude, c.features.Amplitude)
}

// Setters ignore NaN and infinite input.

func (c *Controller) SetAmplitude(v float32) {
	if finite(v) {
		c.params.Amplitude = clamp(v, MinAmplitude, MaxAmplitude)
	}
}

func (c *Controller) SetFrequency(v float32) {
	if finite(v) {
		c.params.Frequency = clamp(v, MinFrequency, MaxFrequency)
	}
}

func (c *Controller) SetSpeed(v float32) {
	if finite(v) {
		c.params.Speed = clamp(v, MinSpeed, MaxSpeed)
	}
}

// SetHue wraps v into [0,360).
func (c *Controller) SetHue(v float32) {
	if !finite(v) {
		return
	}
	h := float32(math.Mod(float64(v), 360))
	if h < 0 {
		h += 360
	}
	if h >= 360 {
		h = 0
	}
	c.params.Hue = h
}

// SetMode replaces the mode; invalid modes select Sine.
func (c *Controller) SetMode(m Mode) {
	c.params.Mode = ParseMode(uint32(m))
}

func finite(v float32) bool {
	f := float64(v)
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func clamp(v, lo, hi float32) float32 {
	return max(lo, min(hi, v))
}
