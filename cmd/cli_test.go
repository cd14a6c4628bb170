package cmd

import (
	"bytes"
	"context"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"wavefield/internal/capture"
	"wavefield/internal/config"
	"wavefield/internal/params"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_FlagsOverrideFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(`
render:
  mode: ripple
  target_fps: 50
  width: 1024
audio:
  loop: true
`), 0644))
	t.Chdir(dir)

	opts := &options{}
	root := newRootCommand(opts)
	require.NoError(t, root.ParseFlags([]string{"--mode", "plasma", "--udp", "127.0.0.1:9999", "-a"}))

	cfg, err := loadConfig(root, opts, []string{"song.mp3"})
	require.NoError(t, err)

	assert.Equal(t, params.Plasma, cfg.RenderParameters().Mode, "flag wins over file")
	assert.Equal(t, 50, cfg.Render.TargetFPS, "unset flag keeps file value")
	assert.Equal(t, 1024, cfg.Render.Width)
	assert.True(t, cfg.Audio.Loop)
	assert.True(t, cfg.Audio.StartEnabled)
	assert.True(t, cfg.Transport.UDPEnabled)
	assert.Equal(t, "127.0.0.1:9999", cfg.Transport.UDPTargetAddress)
	assert.Equal(t, "song.mp3", cfg.Audio.Source)
}

func TestLoadConfig_InvalidFlag(t *testing.T) {
	t.Chdir(t.TempDir())
	opts := &options{}
	root := newRootCommand(opts)
	require.NoError(t, root.ParseFlags([]string{"--fps", "0"}))

	_, err := loadConfig(root, opts, nil)
	assert.ErrorIs(t, err, config.ErrInvalid)
}

func TestShaderCommand(t *testing.T) {
	var out bytes.Buffer
	root := NewRootCommand()
	root.SetOut(&out)
	root.SetArgs([]string{"shader"})
	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "fn vs_main(")
	assert.Contains(t, out.String(), "fn fs_main(")

	out.Reset()
	root = NewRootCommand()
	root.SetOut(&out)
	root.SetArgs([]string{"shader", "--layout"})
	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "32 bytes")
	assert.Contains(t, out.String(), "6 × 20 bytes")
}

func TestRender_RequiresFile(t *testing.T) {
	cfg := config.Default()
	err := renderFrames(context.Background(), &cfg, &renderOptions{frames: 1, every: 1, out: t.TempDir()})
	assert.ErrorContains(t, err, "audio file is required")
}

func writeTone(t *testing.T, path string, seconds float64) {
	t.Helper()
	const rate = 22050
	rec, err := capture.NewRecorder(path, rate, 16)
	require.NoError(t, err)
	samples := make([]float32, int(seconds*rate))
	for i := range samples {
		samples[i] = float32(0.5 * math.Sin(2*math.Pi*440*float64(i)/rate))
	}
	rec.Write(samples)
	require.NoError(t, rec.Close())
}

func TestRender_WritesFrames(t *testing.T) {
	dir := t.TempDir()
	wav := filepath.Join(dir, "tone.wav")
	writeTone(t, wav, 1)
	out := filepath.Join(dir, "frames")

	cfg := config.Default()
	cfg.Audio.Source = wav
	cfg.Audio.Loop = true
	cfg.Render.Width, cfg.Render.Height = 32, 24
	cfg.Render.TargetFPS = 120
	require.NoError(t, cfg.Validate())

	require.NoError(t, renderFrames(context.Background(), &cfg, &renderOptions{frames: 3, every: 1, out: out}))

	_, err := os.Stat(filepath.Join(out, "final.png"))
	require.NoError(t, err)
	entries, err := os.ReadDir(out)
	require.NoError(t, err)
	var snapshots int
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".png") && e.Name() != "final.png" {
			snapshots++
		}
	}
	assert.GreaterOrEqual(t, snapshots, 3)
}
