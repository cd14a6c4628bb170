package wavefield

import (
	"image"
	"math"
	"strings"
	"testing"

	"wavefield/internal/params"
	"wavefield/internal/spectral"
	"wavefield/internal/uniform"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSineAtOriginIsZero(t *testing.T) {
	assert.Equal(t, 0.0, Evaluate(params.Sine, 0, 0, 0, 3, 1))

	p := uniform.Build(params.Defaults(), spectral.IdleFeatures(4), 0, 800, 600)
	f := ShadeUV(p, 0, 0)
	assert.Equal(t, 0.0, f.Wave)
	assert.InDelta(t, 1.75, f.Glow, 1e-12, "all three glow layers peak on the line")

	above := ShadeUV(p, 0, 0.2)
	assert.Less(t, above.Glow, f.Glow)
}

func TestEvaluateDeterministic(t *testing.T) {
	for _, mode := range params.Modes() {
		t.Run(mode.String(), func(t *testing.T) {
			for _, pt := range [][2]float64{{0, 0}, {0.3, -0.7}, {-1.2, 0.9}, {1.7, 0.1}} {
				first := Evaluate(mode, pt[0], pt[1], 1.234, 3, 1)
				for range 5 {
					again := Evaluate(mode, pt[0], pt[1], 1.234, 3, 1)
					require.Equal(t, math.Float64bits(first), math.Float64bits(again))
				}
				require.False(t, math.IsNaN(first) || math.IsInf(first, 0))
			}
		})
	}
}

func TestEvaluateUnknownModeIsSine(t *testing.T) {
	for _, x := range []float64{-1, 0.25, 0.8} {
		assert.Equal(t,
			Evaluate(params.Sine, x, 0.3, 2, 3, 1),
			Evaluate(params.Mode(17), x, 0.3, 2, 3, 1))
	}
}

func TestEvaluateScalesByAmplitude(t *testing.T) {
	for _, mode := range params.Modes() {
		one := Evaluate(mode, 0.4, -0.3, 0.7, 3, 1)
		assert.InDelta(t, 2*one, Evaluate(mode, 0.4, -0.3, 0.7, 3, 2), 1e-12, mode.String())
		assert.Zero(t, Evaluate(mode, 0.4, -0.3, 0.7, 3, 0), mode.String())
	}
}

func TestEvaluateBounded(t *testing.T) {
	limits := map[params.Mode]float64{
		params.Sine:      1.2,
		params.Ripple:    1.8,
		params.Lissajous: 1.3,
		params.Plasma:    1.2,
		params.Surface:   10, // perspective factor is capped at 10
	}
	for mode, limit := range limits {
		for i := range 200 {
			x := float64(i%20)/10 - 1
			y := float64(i/20)/5 - 1
			w := Evaluate(mode, x, y, float64(i)*0.05, 3, 1)
			require.LessOrEqual(t, math.Abs(w), limit, "%s at (%f,%f)", mode, x, y)
		}
	}
}

func TestLissajousMultiples(t *testing.T) {
	tests := []struct {
		name    string
		x, y, t float64
		want    float64
	}{
		// sin(3x) vanishes at x = π/3, leaving the cross term 0.3·sin(2x + 3y).
		{"x node", math.Pi / 3, 0.25, 0, 0.3 * math.Sin(2*math.Pi/3+0.75)},
		// sin(3x)·sin(2y) peaks at x = π/6, y = π/4.
		{"peak", math.Pi / 6, math.Pi / 4, 0, 1 + 0.3*math.Sin(math.Pi/3+3*math.Pi/4)},
		{"origin", 0, 0, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Evaluate(params.Lissajous, tt.x, tt.y, tt.t, 1, 1), 1e-12)
		})
	}
}

func TestSurfacePerspectiveGuard(t *testing.T) {
	// 1 + y·0.5 reaches zero at y = -2; the divide must stay finite.
	w := Evaluate(params.Surface, 0.3, -2, 0.5, 3, 1)
	assert.False(t, math.IsInf(w, 0) || math.IsNaN(w))
}

func TestFBMRange(t *testing.T) {
	for i := range 100 {
		v := fbm(float64(i)*0.37, float64(i)*-0.91)
		require.GreaterOrEqual(t, v, 0.0)
		require.LessOrEqual(t, v, 0.9375)
	}
}

func TestHSLToRGB(t *testing.T) {
	tests := []struct {
		hue  float64
		want RGB
	}{
		{0, RGB{1, 0, 0}},
		{60, RGB{1, 1, 0}},
		{120, RGB{0, 1, 0}},
		{180, RGB{0, 1, 1}},
		{240, RGB{0, 0, 1}},
		{300, RGB{1, 0, 1}},
		{30, RGB{1, 0.5, 0}},
		{330, RGB{1, 0, 0.5}},
	}
	for _, tt := range tests {
		got := HSLToRGB(tt.hue, 1, 0.5)
		assert.InDelta(t, tt.want.R, got.R, 1e-9, "hue %v R", tt.hue)
		assert.InDelta(t, tt.want.G, got.G, 1e-9, "hue %v G", tt.hue)
		assert.InDelta(t, tt.want.B, got.B, 1e-9, "hue %v B", tt.hue)
	}

	grey := HSLToRGB(200, 0, 0.3)
	assert.InDelta(t, 0.3, grey.R, 1e-12)
	assert.InDelta(t, 0.3, grey.B, 1e-12)
}

func TestHue(t *testing.T) {
	assert.InDelta(t, 180, Hue(180, 0, 0), 1e-12)
	// 350 + 30 - 20 wraps to 0
	assert.InDelta(t, 0, Hue(350, 1, -1), 1e-12)
	assert.InDelta(t, 5, Hue(350, 1.5, -1.5), 1e-12)
	// -20 wraps
	assert.InDelta(t, 340, Hue(10, -1, 0), 1e-12)
	assert.InDelta(t, 0, Hue(360, 0, 0), 1e-12)
}

func TestToneMap(t *testing.T) {
	assert.Equal(t, 0.0, ToneMap(0))
	assert.Equal(t, 0.0, ToneMap(-3))
	assert.InDelta(t, math.Pow(0.5, 1/2.2), ToneMap(1), 1e-12)
	prev := 0.0
	for c := 0.1; c < 100; c *= 1.5 {
		v := ToneMap(c)
		require.Greater(t, v, prev)
		require.Less(t, v, 1.0)
		prev = v
	}
}

func TestUV(t *testing.T) {
	x, y := UV(1, 1, 3, 3)
	assert.InDelta(t, 0, x, 1e-12)
	assert.InDelta(t, 0, y, 1e-12)

	// Top-left pixel of a 4:2 target sits near (-aspect, +1).
	x, y = UV(0, 0, 4, 2)
	assert.InDelta(t, -1.5, x, 1e-12)
	assert.InDelta(t, 0.5, y, 1e-12)
}

func TestShadeMatchesShadeUV(t *testing.T) {
	p := uniform.Build(params.Defaults(), spectral.FeatureVector{Amplitude: 0.4}, 1.5, 64, 48)
	x, y := UV(10, 20, 64, 48)
	assert.Equal(t, ShadeUV(p, x, y), Shade(p, 10, 20))
}

func TestRender(t *testing.T) {
	p := uniform.Build(params.Defaults(), spectral.IdleFeatures(4), 0.75, 0, 0)

	a := image.NewRGBA(image.Rect(0, 0, 16, 12))
	b := image.NewRGBA(image.Rect(0, 0, 16, 12))
	Render(p, a)
	RenderRows(p, b, 0, 6)
	RenderRows(p, b, 6, 12)
	assert.Equal(t, a.Pix, b.Pix, "split rendering matches a full pass")

	for i := 3; i < len(a.Pix); i += 4 {
		require.Equal(t, uint8(0xff), a.Pix[i])
	}

	// The wave line is brighter than the frame corner.
	var brightest uint8
	for i := 1; i < len(a.Pix); i += 4 {
		brightest = max(brightest, a.Pix[i])
	}
	assert.Greater(t, brightest, a.RGBAAt(0, 0).G)
}

func TestShaderContract(t *testing.T) {
	require.NotEmpty(t, Shader)
	assert.Contains(t, Shader, "fn "+VertexEntry+"(")
	assert.Contains(t, Shader, "fn "+FragmentEntry+"(")
	assert.Contains(t, Shader, "@group(0) @binding(0)")

	start := strings.Index(Shader, "struct Uniforms")
	require.GreaterOrEqual(t, start, 0)
	block := Shader[start : start+strings.Index(Shader[start:], "};")]
	fields := []string{"time: f32", "amplitude: f32", "frequency: f32", "speed: f32", "resolution: vec2<f32>", "hue: f32", "mode: u32"}
	last := -1
	for _, f := range fields {
		i := strings.Index(block, f)
		require.Greater(t, i, last, "field %q out of order", f)
		last = i
	}
}

func TestShadeNoAllocs(t *testing.T) {
	p := uniform.Build(params.Defaults(), spectral.FeatureVector{}, 1, 320, 240)
	allocs := testing.AllocsPerRun(100, func() { _ = Shade(p, 100, 80) })
	assert.Zero(t, allocs)
}

func BenchmarkShade(b *testing.B) {
	for _, mode := range params.Modes() {
		b.Run(mode.String(), func(b *testing.B) {
			pr := params.Defaults()
			pr.Mode = mode
			p := uniform.Build(pr, spectral.FeatureVector{Amplitude: 0.5}, 2, 640, 480)
			b.ReportAllocs()
			for b.Loop() {
				_ = Shade(p, 320, 200)
			}
		})
	}
}
