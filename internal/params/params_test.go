package params

import (
	"math"
	"testing"

	"wavefield/internal/spectral"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	assert.Equal(t, RenderParameters{Amplitude: 1, Frequency: 3, Speed: 1, Hue: 180, Mode: Sine}, Defaults())
}

func TestSetterClamps(t *testing.T) {
	nan := float32(math.NaN())
	inf := float32(math.Inf(1))

	tests := []struct {
		name string
		set  func(*Controller, float32)
		get  func(RenderParameters) float32
		in   float32
		want float32
	}{
		{"amplitude in range", (*Controller).SetAmplitude, amp, 1.5, 1.5},
		{"amplitude below", (*Controller).SetAmplitude, amp, -1, 0},
		{"amplitude above", (*Controller).SetAmplitude, amp, 9, 2},
		{"amplitude NaN ignored", (*Controller).SetAmplitude, amp, nan, 1},
		{"frequency below", (*Controller).SetFrequency, freq, 0, 0.1},
		{"frequency above", (*Controller).SetFrequency, freq, 50, 20},
		{"frequency Inf ignored", (*Controller).SetFrequency, freq, inf, 3},
		{"speed below", (*Controller).SetSpeed, speed, 0.01, 0.1},
		{"speed above", (*Controller).SetSpeed, speed, 6, 5},
		{"hue wraps", (*Controller).SetHue, hue, 370, 10},
		{"hue negative", (*Controller).SetHue, hue, -30, 330},
		{"hue 360", (*Controller).SetHue, hue, 360, 0},
		{"hue NaN ignored", (*Controller).SetHue, hue, nan, 180},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewController(Defaults())
			tt.set(c, tt.in)
			assert.InDelta(t, tt.want, tt.get(c.Parameters()), 1e-5)
		})
	}
}

func amp(p RenderParameters) float32   { return p.Amplitude }
func freq(p RenderParameters) float32  { return p.Frequency }
func speed(p RenderParameters) float32 { return p.Speed }
func hue(p RenderParameters) float32   { return p.Hue }

func TestSanitize(t *testing.T) {
	p := RenderParameters{Amplitude: 5, Frequency: 0, Speed: 100, Hue: 720.5, Mode: Mode(42)}.Sanitize()
	assert.Equal(t, float32(2), p.Amplitude)
	assert.Equal(t, float32(0.1), p.Frequency)
	assert.Equal(t, float32(5), p.Speed)
	assert.InDelta(t, 0.5, p.Hue, 1e-4)
	assert.Equal(t, Sine, p.Mode)
}

func TestEffectiveAmplitudeBounds(t *testing.T) {
	for _, base := range []float32{0, 0.25, 1, 2} {
		for a := float32(0); a <= 1; a += 0.05 {
			eff := EffectiveAmplitude(base, a)
			require.GreaterOrEqual(t, eff, 0.5*base-1e-6)
			require.LessOrEqual(t, eff, 2*base+1e-6)
		}
		assert.InDelta(t, 0.5*base, EffectiveAmplitude(base, 0), 1e-6)
		assert.InDelta(t, 2*base, EffectiveAmplitude(base, 1), 1e-6)
		assert.InDelta(t, 0.5*base, EffectiveAmplitude(base, float32(math.NaN())), 1e-6)
		assert.InDelta(t, 2*base, EffectiveAmplitude(base, 3), 1e-6)
	}
}

func TestControllerEffectiveAmplitude(t *testing.T) {
	c := NewController(Defaults())
	assert.InDelta(t, 0.5, c.EffectiveAmplitude(), 1e-6)

	c.Update(spectral.FeatureVector{Amplitude: 0.5})
	assert.InDelta(t, 1.25, c.EffectiveAmplitude(), 1e-6)
	assert.Equal(t, float32(0.5), c.Features().Amplitude)
}

func TestControllerUpdateCopiesBands(t *testing.T) {
	c := NewController(Defaults())
	bands := []float32{0.1, 0.2, 0.3}
	c.Update(spectral.FeatureVector{Amplitude: 0.4, Bands: bands})

	bands[0], bands[2] = 0.9, 0.9
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, c.Features().Bands)

	allocs := testing.AllocsPerRun(20, func() {
		c.Update(spectral.FeatureVector{Bands: bands})
	})
	assert.Zero(t, allocs)
	assert.Equal(t, bands, c.Features().Bands)
}

func TestParseMode(t *testing.T) {
	for i, m := range Modes() {
		assert.Equal(t, m, ParseMode(uint32(i)))
		assert.True(t, m.Valid())
	}
	assert.Equal(t, Sine, ParseMode(5))
	assert.Equal(t, Sine, ParseMode(math.MaxUint32))
	assert.False(t, Mode(7).Valid())
	assert.Equal(t, "Mode(7)", Mode(7).String())
}

func TestParseModeName(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"sine", Sine, false},
		{"Ripple", Ripple, false},
		{" LISSAJOUS ", Lissajous, false},
		{"plasma", Plasma, false},
		{"4", Surface, false},
		{"5", Sine, true},
		{"spiral", Sine, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseModeName(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestModeNext(t *testing.T) {
	assert.Equal(t, Ripple, Sine.Next())
	assert.Equal(t, Sine, Surface.Next())
	assert.Equal(t, Ripple, Mode(99).Next())
}

func TestCommandApply(t *testing.T) {
	c := NewController(Defaults())
	for _, cmd := range []Command{
		SetAmplitude(0.7),
		SetFrequency(8),
		SetSpeed(2),
		SetHue(-90),
		SetMode(Plasma),
	} {
		c.Apply(cmd)
	}
	assert.Equal(t, RenderParameters{Amplitude: 0.7, Frequency: 8, Speed: 2, Hue: 270, Mode: Plasma}, c.Parameters())

	assert.Equal(t, "mode=plasma", SetMode(Plasma).String())
	assert.Equal(t, "speed=2.000", SetSpeed(2).String())

	before := c.Parameters()
	c.Apply(Command{Field: Field(99), Value: 1})
	assert.Equal(t, before, c.Parameters())
}
