// SPDX-License-Identifier: MIT
/*
Package uniform builds the per-frame uniform block uploaded to the render
backend and the fixed fullscreen quad it draws.

Payload layout (little-endian, 32 bytes, matches the WGSL Uniforms struct):

	offset  size  field
	0       4     time                 f32
	4       4     effective_amplitude  f32
	8       4     frequency            f32
	12      4     speed                f32
	16      8     resolution           vec2<f32>
	24      4     hue                  f32
	28      4     mode                 u32
*/
package uniform

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"wavefield/internal/params"
	"wavefield/internal/spectral"
)

// Size is the encoded payload length in bytes.
const Size = 32

// Payload is the per-frame uniform block.
type Payload struct {
	Time               float32
	EffectiveAmplitude float32
	Frequency          float32
	Speed              float32
	Resolution         [2]float32
	Hue                float32
	Mode               params.Mode
}

// Build assembles the payload for one frame. It has no error cases: the
// inputs are validated by their owners.
func Build(p params.RenderParameters, fv spectral.FeatureVector, time float32, width, height float32) Payload {
	return Payload{
		Time:               time,
		EffectiveAmplitude: params.EffectiveAmplitude(p.Amplitude, fv.Amplitude),
		Frequency:          p.Frequency,
		Speed:              p.Speed,
		Resolution:         [2]float32{width, height},
		Hue:                p.Hue,
		Mode:               p.Mode,
	}
}

// Encode writes the payload into dst without allocating.
func (p Payload) Encode(dst *[Size]byte) {
	le := binary.LittleEndian
	le.PutUint32(dst[0:], math.Float32bits(p.Time))
	le.PutUint32(dst[4:], math.Float32bits(p.EffectiveAmplitude))
	le.PutUint32(dst[8:], math.Float32bits(p.Frequency))
	le.PutUint32(dst[12:], math.Float32bits(p.Speed))
	le.PutUint32(dst[16:], math.Float32bits(p.Resolution[0]))
	le.PutUint32(dst[20:], math.Float32bits(p.Resolution[1]))
	le.PutUint32(dst[24:], math.Float32bits(p.Hue))
	le.PutUint32(dst[28:], uint32(p.Mode))
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (p Payload) MarshalBinary() ([]byte, error) {
	var buf [Size]byte
	p.Encode(&buf)
	return buf[:], nil
}

var ErrShortPayload = errors.New("uniform: payload must be 32 bytes")

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (p *Payload) UnmarshalBinary(data []byte) error {
	d, err := Decode(data)
	if err != nil {
		return err
	}
	*p = d
	return nil
}

// Decode parses an encoded payload. The mode is kept as sent; consumers
// fall back to Sine for out-of-range values.
func Decode(data []byte) (Payload, error) {
	if len(data) != Size {
		return Payload{}, fmt.Errorf("%w: got %d", ErrShortPayload, len(data))
	}
	le := binary.LittleEndian
	f := func(off int) float32 { return math.Float32frombits(le.Uint32(data[off:])) }
	return Payload{
		Time:               f(0),
		EffectiveAmplitude: f(4),
		Frequency:          f(8),
		Speed:              f(12),
		Resolution:         [2]float32{f(16), f(20)},
		Hue:                f(24),
		Mode:               params.Mode(le.Uint32(data[28:])),
	}, nil
}
