// SPDX-License-Identifier: MIT
package uniform

import (
	"encoding/binary"
	"math"
)

// Vertex layout of the fullscreen quad: position xyz then uv, all f32.
const (
	VertexStride = 20
	VertexCount  = 6
	UVOffset     = 12
)

// Vertex is one interleaved quad vertex.
type Vertex struct {
	Position [3]float32
	UV       [2]float32
}

// Quad is two triangles covering clip space. UV origin is the top left.
var Quad = [VertexCount]Vertex{
	{Position: [3]float32{-1, -1, 0}, UV: [2]float32{0, 1}},
	{Position: [3]float32{1, -1, 0}, UV: [2]float32{1, 1}},
	{Position: [3]float32{1, 1, 0}, UV: [2]float32{1, 0}},
	{Position: [3]float32{-1, -1, 0}, UV: [2]float32{0, 1}},
	{Position: [3]float32{1, 1, 0}, UV: [2]float32{1, 0}},
	{Position: [3]float32{-1, 1, 0}, UV: [2]float32{0, 0}},
}

// QuadBytes returns the vertex buffer contents, little-endian.
func QuadBytes() []byte {
	buf := make([]byte, VertexCount*VertexStride)
	for i, v := range Quad {
		off := i * VertexStride
		vals := [5]float32{v.Position[0], v.Position[1], v.Position[2], v.UV[0], v.UV[1]}
		for j, f := range vals {
			binary.LittleEndian.PutUint32(buf[off+j*4:], math.Float32bits(f))
		}
	}
	return buf
}

// ClearColor is the RGBA the backend clears to before each draw.
var ClearColor = [4]float64{0.02, 0.02, 0.05, 1}
