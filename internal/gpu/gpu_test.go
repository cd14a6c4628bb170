package gpu

import (
	"image"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"wavefield/internal/params"
	"wavefield/internal/spectral"
	"wavefield/internal/uniform"
	"wavefield/internal/wavefield"
	"wavefield/pkg/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func payloadBytes(t *testing.T, time float32, w, h float32) []byte {
	t.Helper()
	b, err := uniform.Build(params.Defaults(), spectral.FeatureVector{Amplitude: 0.5}, time, w, h).MarshalBinary()
	require.NoError(t, err)
	return b
}

func TestProgramValidate(t *testing.T) {
	require.NoError(t, DefaultProgram().Validate())

	tests := []struct {
		name   string
		mutate func(*Program)
	}{
		{"missing vertex entry", func(p *Program) { p.VertexEntry = "main_vs" }},
		{"missing fragment entry", func(p *Program) { p.Source = strings.ReplaceAll(p.Source, "fn fs_main(", "fn other(") }},
		{"uniform size", func(p *Program) { p.UniformSize = 16 }},
		{"vertex stride", func(p *Program) { p.VertexStride = 24 }},
		{"vertex count", func(p *Program) { p.Vertices = p.Vertices[:40] }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultProgram()
			tt.mutate(&p)
			assert.ErrorIs(t, p.Validate(), ErrCapabilityUnavailable)
		})
	}
}

func TestSoftwareLifecycle(t *testing.T) {
	s, err := NewSoftware(SoftwareOptions{Width: 32, Height: 24, Workers: 3})
	require.NoError(t, err)
	defer s.Close()

	assert.ErrorIs(t, s.Draw(), ErrNotConfigured)
	require.NoError(t, s.Configure(DefaultProgram()))
	assert.Error(t, s.WriteUniforms([]byte{1, 2, 3}))

	require.NoError(t, s.WriteUniforms(payloadBytes(t, 1, 32, 24)))
	require.NoError(t, s.Draw())
	require.Eventually(t, func() bool { return s.Stats().Drawn >= 1 }, 2*time.Second, time.Millisecond)

	frame := s.Frame()
	require.NotNil(t, frame)
	assert.Equal(t, 32, frame.Rect.Dx())

	p, err := uniform.Decode(payloadBytes(t, 1, 32, 24))
	require.NoError(t, err)
	want := image.NewRGBA(frame.Rect)
	wavefield.Render(p, want)
	assert.Equal(t, want.Pix, s.Frame().Pix, "software backend matches the reference renderer")
}

func TestSoftwareResize(t *testing.T) {
	s, err := NewSoftware(SoftwareOptions{Width: 8, Height: 8})
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, s.Configure(DefaultProgram()))

	s.Resize(0, 50) // ignored
	s.Resize(20, 10)
	require.NoError(t, s.WriteUniforms(payloadBytes(t, 0, 20, 10)))
	require.NoError(t, s.Draw())
	require.Eventually(t, func() bool { return s.Stats().Drawn >= 1 }, 2*time.Second, time.Millisecond)
	assert.Equal(t, 20, s.Frame().Rect.Dx())
	assert.Equal(t, 10, s.Frame().Rect.Dy())
}

func TestSoftwareDrawNeverBlocks(t *testing.T) {
	s, err := NewSoftware(SoftwareOptions{Width: 256, Height: 256, Workers: 1})
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, s.Configure(DefaultProgram()))

	start := time.Now()
	for i := range 200 {
		require.NoError(t, s.WriteUniforms(payloadBytes(t, float32(i), 256, 256)))
		require.NoError(t, s.Draw())
	}
	assert.Less(t, time.Since(start), time.Second)

	st := s.Stats()
	assert.EqualValues(t, 200, st.Submitted)
	require.Eventually(t, func() bool {
		st := s.Stats()
		return st.Drawn+st.Replaced == st.Submitted
	}, 5*time.Second, time.Millisecond, "every submission is drawn or superseded")
}

func TestSoftwareSnapshots(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "snaps")
	s, err := NewSoftware(SoftwareOptions{Width: 8, Height: 6, SnapshotDir: dir, SnapshotEvery: 1})
	require.NoError(t, err)
	require.NoError(t, s.Configure(DefaultProgram()))
	require.NoError(t, s.WriteUniforms(payloadBytes(t, 0, 8, 6)))
	require.NoError(t, s.Draw())
	require.Eventually(t, func() bool { return s.Stats().Snapshots >= 1 }, 2*time.Second, time.Millisecond)
	require.NoError(t, s.Close())

	_, err = os.Stat(filepath.Join(dir, "frame-000001.png"))
	assert.NoError(t, err)
}

func TestSoftwareClosed(t *testing.T) {
	s, err := NewSoftware(SoftwareOptions{Width: 4, Height: 4})
	require.NoError(t, err)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	assert.ErrorIs(t, s.Draw(), ErrClosed)
	assert.ErrorIs(t, s.Configure(DefaultProgram()), ErrClosed)
}

func TestNewSoftwareInvalid(t *testing.T) {
	_, err := NewSoftware(SoftwareOptions{Width: 0, Height: 10})
	assert.ErrorIs(t, err, ErrNoAdapter)
}

type muxMounter struct{ *http.ServeMux }

func TestRemote(t *testing.T) {
	_, err := NewRemote(nil, nil)
	assert.ErrorIs(t, err, ErrNoAdapter)

	out := &utils.MockTransport{}
	mux := muxMounter{http.NewServeMux()}
	r, err := NewRemote(out, mux)
	require.NoError(t, err)

	assert.ErrorIs(t, r.Draw(), ErrNotConfigured)
	require.NoError(t, r.Configure(DefaultProgram()))

	b := payloadBytes(t, 2, 640, 480)
	require.NoError(t, r.WriteUniforms(b))
	require.NoError(t, r.Draw())
	n, last := out.Sent()
	assert.Equal(t, 1, n)
	assert.Equal(t, b, last)

	srv := httptest.NewServer(mux)
	defer srv.Close()
	client := &http.Client{Transport: &http.Transport{DisableKeepAlives: true}}

	resp, err := client.Get(srv.URL + ShaderPath)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, wavefield.Shader, string(body))

	resp, err = client.Get(srv.URL + QuadPath)
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, uniform.QuadBytes(), body)

	r.Resize(800, 600)
	require.NoError(t, r.Close())
	require.NoError(t, r.Close())
	assert.ErrorIs(t, r.Draw(), ErrClosed)
}
