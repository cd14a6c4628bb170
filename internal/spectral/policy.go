// SPDX-License-Identifier: MIT
package spectral

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// Policy maps decibel magnitudes into [0,1]. One policy is chosen per
// analyzer and applied to amplitude, bands and ranges alike.
//
// Every magnitude m is normalized as clamp01((m - FloorDB) / (CeilingDB -
// FloorDB)). Amplitude additionally applies clamp01(pow(avg, Exponent) *
// Boost) to the mean.
type Policy struct {
	Name      string
	FloorDB   float64
	CeilingDB float64
	Exponent  float64
	Boost     float64
	NodeRange bool // Fit replaces FloorDB/CeilingDB with the node's range.
}

var (
	// Linear is a plain clamp-and-average over the analysis node's decibel
	// range, -100..-10 dB by default.
	Linear = Policy{Name: "linear", FloorDB: -100, CeilingDB: -10, Exponent: 1, Boost: 1, NodeRange: true}
	// Perceptual uses a tighter -90..-30 dB window with a power curve and
	// boost on amplitude, so quiet input still reads as motion.
	Perceptual = Policy{Name: "perceptual", FloorDB: -90, CeilingDB: -30, Exponent: 0.8, Boost: 1.5}
)

var ErrPolicy = errors.New("spectral: invalid normalization policy")

// ParsePolicy resolves a policy by name. The empty name selects Linear.
func ParsePolicy(name string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", Linear.Name:
		return Linear, nil
	case Perceptual.Name:
		return Perceptual, nil
	default:
		return Linear, fmt.Errorf("%w: unknown name %q", ErrPolicy, name)
	}
}

func (p Policy) Validate() error {
	if !(p.FloorDB < p.CeilingDB) {
		return fmt.Errorf("%w: floor %.1f not below ceiling %.1f", ErrPolicy, p.FloorDB, p.CeilingDB)
	}
	if !(p.Exponent > 0) || math.IsInf(p.Exponent, 0) {
		return fmt.Errorf("%w: exponent %f", ErrPolicy, p.Exponent)
	}
	if !(p.Boost >= 0) || math.IsInf(p.Boost, 0) {
		return fmt.Errorf("%w: boost %f", ErrPolicy, p.Boost)
	}
	return nil
}

// Fit binds p to an analysis node reporting magnitudes in
// [minDB, maxDB]. Policies with NodeRange adopt that range. The others keep
// their own window, which must not start below the node floor: a silent bin
// reads minDB and has to normalize to 0.
func (p Policy) Fit(minDB, maxDB float64) (Policy, error) {
	if p.NodeRange {
		p.FloorDB, p.CeilingDB = minDB, maxDB
	} else if minDB > p.FloorDB {
		return p, fmt.Errorf("%w: %s floor %.1f dB is below the analysis floor %.1f dB", ErrPolicy, p.Name, p.FloorDB, minDB)
	}
	if err := p.Validate(); err != nil {
		return p, err
	}
	return p, nil
}

// Normalize maps one magnitude into [0,1]. NaN maps to 0.
func (p Policy) Normalize(db float32) float32 {
	return clamp01(float32((float64(db) - p.FloorDB) / (p.CeilingDB - p.FloorDB)))
}

// mean of normalized magnitudes; 0 for an empty slice.
func (p Policy) mean(frame []float32) float32 {
	if len(frame) == 0 {
		return 0
	}
	var sum float32
	for _, m := range frame {
		sum += p.Normalize(m)
	}
	return sum / float32(len(frame))
}

// Amplitude is the overall loudness of frame in [0,1].
func (p Policy) Amplitude(frame []float32) float32 {
	avg := float64(p.mean(frame))
	if p.Exponent != 1 {
		avg = math.Pow(avg, p.Exponent)
	}
	return clamp01(float32(avg * p.Boost))
}

// BandsInto fills dst with len(dst) band averages of frame. Zero-width
// windows yield 0.
func (p Policy) BandsInto(frame, dst []float32) {
	n := len(dst)
	for i := range dst {
		w := window(len(frame), n, i)
		dst[i] = p.mean(frame[w.Start:w.End])
	}
}

// Ranges splits frame into thirds.
func (p Policy) Ranges(frame []float32) Ranges {
	var r [3]float32
	p.BandsInto(frame, r[:])
	return Ranges{Bass: r[0], Mid: r[1], Treble: r[2]}
}

func clamp01(v float32) float32 {
	switch {
	case v > 1:
		return 1
	case v >= 0:
		return v
	default: // negative or NaN
		return 0
	}
}
