// SPDX-License-Identifier: MIT
/*
Package wavefield evaluates the procedural wave field. The GPU program lives
in shaders/wave.wgsl; this package holds a CPU implementation of the same
per-pixel math used by the software backend, the offline renderer and the
tests.

Coordinates: pixel (px, py) of a w×h target maps to

	x = (2(px+0.5)/w - 1) · w/h
	y = 1 - 2(py+0.5)/h

so the origin is the centre, y grows upwards and x is aspect corrected.
*/
package wavefield

import (
	"math"

	"wavefield/internal/params"
)

// UV maps a pixel centre to wave-field coordinates.
func UV(px, py, width, height int) (x, y float64) {
	w, h := float64(width), float64(max(height, 1))
	x = (2*(float64(px)+0.5)/w - 1) * (w / h)
	y = 1 - 2*(float64(py)+0.5)/h
	return x, y
}

// Evaluate returns the wave height at (x, y) for scaled time t. The result
// is already multiplied by amplitude. Unknown modes evaluate as Sine.
func Evaluate(mode params.Mode, x, y, t, frequency, amplitude float64) float64 {
	var w float64
	switch mode {
	case params.Ripple:
		w = ripple(x, y, frequency, t)
	case params.Lissajous:
		w = lissajous(x, y, frequency, t)
	case params.Plasma:
		w = plasma(x, y, frequency, t)
	case params.Surface:
		w = surface(x, y, frequency, t)
	default:
		w = sine(x, y, frequency, t)
	}
	return w * amplitude
}

func sine(x, y, f, t float64) float64 {
	k := f / 3
	w := 0.4 * math.Sin(x*k*3+2*t)
	w += 0.3 * math.Sin(x*k*5-1.5*t)
	w += 0.2 * math.Sin(x*k*7+2.5*t)
	w += 0.1 * math.Sin(x*k*11-3*t)
	w += 0.2 * math.Sin(x*f*0.5+t) * math.Cos(y*f)
	return w
}

type rippleSource struct {
	x, y, weight, k, speed, decay float64
}

var rippleSources = [3]rippleSource{
	{0, 0, 1.0, 1.0, 2.0, 1.0},
	{0.5, 0.3, 0.5, 1.5, 3.0, 1.5},
	{-0.4, -0.2, 0.3, 2.0, 1.5, 2.0},
}

func ripple(x, y, f, t float64) float64 {
	var w float64
	for _, s := range rippleSources {
		d := math.Hypot(x-s.x, y-s.y)
		w += s.weight * math.Sin(d*f*s.k-t*s.speed) * math.Exp(-d*s.decay)
	}
	return w
}

func lissajous(x, y, f, t float64) float64 {
	kx, ky := f*3, f*2
	return math.Sin(x*kx+t)*math.Sin(y*ky+1.5*t) + 0.3*math.Sin(x*ky+y*kx+0.5*t)
}

func plasma(x, y, f, t float64) float64 {
	r := math.Hypot(x, y)
	w := math.Sin(x*f+t) + math.Sin(y*f+t) + math.Sin((x+y)*f+t) + math.Sin(r*f+t)
	w *= 0.25
	return w + 0.2*(fbm(x*f*0.5+t*0.1, y*f*0.5+t*0.1)-0.5)
}

func surface(x, y, f, t float64) float64 {
	persp := 1 / math.Max(1+y*0.5, 0.1)
	px := x * persp
	w := 0.6*math.Sin(px*f+t)*math.Cos(y*f*0.5+0.5*t) + 0.4*math.Sin((px+y)*f*0.7-1.3*t)
	return w * persp
}

func fract(v float64) float64 { return v - math.Floor(v) }

func hash(x, y float64) float64 {
	return fract(math.Sin(x*127.1+y*311.7) * 43758.5453)
}

func valueNoise(x, y float64) float64 {
	ix, iy := math.Floor(x), math.Floor(y)
	fx, fy := x-ix, y-iy
	sx, sy := fx*fx*(3-2*fx), fy*fy*(3-2*fy)
	a := hash(ix, iy)
	b := hash(ix+1, iy)
	c := hash(ix, iy+1)
	d := hash(ix+1, iy+1)
	return mix(mix(a, b, sx), mix(c, d, sx), sy)
}

// fbm sums four octaves of value noise, halving amplitude and doubling
// frequency each octave. The result lies in [0, 0.9375].
func fbm(x, y float64) float64 {
	var sum float64
	amp := 0.5
	for range 4 {
		sum += amp * valueNoise(x, y)
		x, y = x*2, y*2
		amp *= 0.5
	}
	return sum
}

func mix(a, b, t float64) float64 { return a + (b-a)*t }
