// SPDX-License-Identifier: MIT
package wavefield

import (
	"math"

	"wavefield/internal/params"
	"wavefield/internal/uniform"
)

// Glow line thicknesses and their weights.
var (
	glowThickness = [3]float64{0.01, 0.04, 0.15}
	glowWeight    = [3]float64{1, 0.5, 0.25}
)

// RGB is a linear colour triple.
type RGB struct{ R, G, B float64 }

func (c RGB) add(o RGB) RGB       { return RGB{c.R + o.R, c.G + o.G, c.B + o.B} }
func (c RGB) scale(s float64) RGB { return RGB{c.R * s, c.G * s, c.B * s} }

func (c RGB) apply(f func(float64) float64) RGB {
	return RGB{f(c.R), f(c.G), f(c.B)}
}

// HSLToRGB converts hue in degrees [0,360), saturation and lightness in
// [0,1] using the hexagonal sector formula.
func HSLToRGB(h, s, l float64) RGB {
	c := (1 - math.Abs(2*l-1)) * s
	hp := h / 60
	x := c * (1 - math.Abs(math.Mod(hp, 2)-1))
	var rgb RGB
	switch {
	case hp < 1:
		rgb = RGB{c, x, 0}
	case hp < 2:
		rgb = RGB{x, c, 0}
	case hp < 3:
		rgb = RGB{0, c, x}
	case hp < 4:
		rgb = RGB{0, x, c}
	case hp < 5:
		rgb = RGB{x, 0, c}
	default:
		rgb = RGB{c, 0, x}
	}
	m := l - c/2
	return RGB{rgb.R + m, rgb.G + m, rgb.B + m}
}

// Glow returns the Gaussian falloff exp(-d²/thickness²).
func Glow(d, thickness float64) float64 {
	return math.Exp(-(d * d) / (thickness * thickness))
}

// Hue is (base + wave·30 + x·20) mod 360, kept non-negative.
func Hue(base, wave, x float64) float64 {
	h := math.Mod(base+wave*30+x*20, 360)
	if h < 0 {
		h += 360
	}
	return h
}

// ToneMap applies Reinhard c/(c+1) then gamma 1/2.2.
func ToneMap(c float64) float64 {
	c = max(c, 0)
	return math.Pow(c/(c+1), 1/2.2)
}

var (
	bgBottom = RGB{0.02, 0.02, 0.05}
	bgTop    = RGB{0.06, 0.03, 0.12}
)

// Fragment is the full per-pixel result.
type Fragment struct {
	Wave  float64
	Glow  float64 // Weighted sum of the three glow layers.
	Color RGB     // Tone mapped, gamma corrected.
}

// Shade evaluates pixel (px, py) for the payload.
func Shade(p uniform.Payload, px, py int) Fragment {
	x, y := UV(px, py, int(p.Resolution[0]), int(p.Resolution[1]))
	return ShadeUV(p, x, y)
}

// ShadeUV evaluates the field at wave-field coordinates.
func ShadeUV(p uniform.Payload, x, y float64) Fragment {
	t := float64(p.Time) * float64(p.Speed)
	mode := params.ParseMode(uint32(p.Mode))
	w := Evaluate(mode, x, y, t, float64(p.Frequency), float64(p.EffectiveAmplitude))

	d := math.Abs(y - w*0.5)
	var layers [3]float64
	var total float64
	for i, th := range glowThickness {
		layers[i] = Glow(d, th)
		total += glowWeight[i] * layers[i]
	}

	line := HSLToRGB(Hue(float64(p.Hue), w, x), 0.8, 0.6)
	bgT := (y + 1) * 0.5
	bg := bgBottom.add(bgTop.add(bgBottom.scale(-1)).scale(bgT))

	c := bg.add(line.scale(total)).add(RGB{layers[0] * 0.5, layers[0] * 0.5, layers[0] * 0.5})
	c = c.add(line.scale(math.Pow(total, 2) * 0.3))
	return Fragment{Wave: w, Glow: total, Color: c.apply(ToneMap)}
}
