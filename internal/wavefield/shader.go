// SPDX-License-Identifier: MIT
package wavefield

import _ "embed"

// Shader is the WGSL program the GPU backend compiles. It exposes vs_main
// and fs_main, binds the uniform block at group 0 binding 0 and expects the
// fullscreen quad layout from package uniform.
//
//go:embed shaders/wave.wgsl
var Shader string

// Entry points in Shader.
const (
	VertexEntry   = "vs_main"
	FragmentEntry = "fs_main"
)
