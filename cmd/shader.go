// SPDX-License-Identifier: MIT
package cmd

import (
	"fmt"

	"wavefield/internal/gpu"
	"wavefield/internal/uniform"
	"wavefield/internal/wavefield"

	"github.com/spf13/cobra"
)

func newShaderCommand() *cobra.Command {
	var layout bool
	shaderCmd := &cobra.Command{
		Use:   "shader",
		Short: "Print the WGSL program and its host contract",
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			if !layout {
				_, err := fmt.Fprint(w, wavefield.Shader)
				return err
			}
			p := gpu.DefaultProgram()
			if err := p.Validate(); err != nil {
				return err
			}
			fmt.Fprintf(w, "entry points: %s, %s\n", p.VertexEntry, p.FragmentEntry)
			fmt.Fprintf(w, "uniforms:     %d bytes, little endian\n", p.UniformSize)
			fmt.Fprintf(w, "  0 time f32   4 effective_amplitude f32   8 frequency f32  12 speed f32\n")
			fmt.Fprintf(w, " 16 resolution vec2<f32>  24 hue f32  28 mode u32\n")
			fmt.Fprintf(w, "vertices:     %d × %d bytes (position xyz @0, uv @%d)\n", p.VertexCount, p.VertexStride, uniform.UVOffset)
			fmt.Fprintf(w, "clear color:  %v\n", p.ClearColor)
			fmt.Fprintf(w, "http paths:   %s %s\n", gpu.ShaderPath, gpu.QuadPath)
			return nil
		},
	}
	shaderCmd.Flags().BoolVar(&layout, "layout", false, "Print the uniform and vertex layout instead of the source")
	return shaderCmd
}
