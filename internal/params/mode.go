// SPDX-License-Identifier: MIT
package params

import (
	"fmt"
	"strconv"
	"strings"
)

// Mode selects one of the closed-form wave formulas.
type Mode uint32

const (
	Sine Mode = iota
	Ripple
	Lissajous
	Plasma
	Surface

	modeCount
)

var modeNames = [modeCount]string{"sine", "ripple", "lissajous", "plasma", "surface"}

// Modes lists every mode in index order.
func Modes() []Mode {
	return []Mode{Sine, Ripple, Lissajous, Plasma, Surface}
}

// ParseMode maps an index to a Mode. Out-of-range values fall back to Sine.
func ParseMode(v uint32) Mode {
	if v >= uint32(modeCount) {
		return Sine
	}
	return Mode(v)
}

// Valid reports whether m is one of the five modes.
func (m Mode) Valid() bool { return m < modeCount }

func (m Mode) String() string {
	if !m.Valid() {
		return "Mode(" + strconv.FormatUint(uint64(m), 10) + ")"
	}
	return modeNames[m]
}

// ParseModeName accepts a mode name (case insensitive) or its index.
func ParseModeName(s string) (Mode, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range modeNames {
		if s == name {
			return Mode(i), nil
		}
	}
	if v, err := strconv.ParseUint(s, 10, 32); err == nil && v < uint64(modeCount) {
		return Mode(v), nil
	}
	return Sine, fmt.Errorf("params: unknown mode %q", s)
}

// Next cycles to the following mode, wrapping after Surface.
func (m Mode) Next() Mode {
	return ParseMode((uint32(ParseMode(uint32(m))) + 1) % uint32(modeCount))
}
