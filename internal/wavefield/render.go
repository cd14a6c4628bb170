// SPDX-License-Identifier: MIT
package wavefield

import (
	"image"
	"image/color"

	"wavefield/internal/uniform"
)

// Render rasterises a full frame into img. The payload resolution is
// overridden by the image bounds.
func Render(p uniform.Payload, img *image.RGBA) {
	b := img.Bounds()
	RenderRows(p, img, b.Min.Y, b.Max.Y)
}

// RenderRows rasterises rows [y0, y1) of img. Disjoint row ranges may be
// rendered concurrently.
func RenderRows(p uniform.Payload, img *image.RGBA, y0, y1 int) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	p.Resolution = [2]float32{float32(w), float32(h)}
	for py := max(y0, b.Min.Y); py < min(y1, b.Max.Y); py++ {
		for px := b.Min.X; px < b.Max.X; px++ {
			x, y := UV(px-b.Min.X, py-b.Min.Y, w, h)
			f := ShadeUV(p, x, y)
			img.SetRGBA(px, py, toRGBA(f.Color))
		}
	}
}

func toRGBA(c RGB) color.RGBA {
	return color.RGBA{R: to8(c.R), G: to8(c.G), B: to8(c.B), A: 0xff}
}

func to8(v float64) uint8 {
	switch {
	case v >= 1:
		return 0xff
	case v > 0:
		return uint8(v*255 + 0.5)
	default:
		return 0
	}
}
