// SPDX-License-Identifier: MIT
package capture

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	gomp3 "github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"
)

// pcmSource yields interleaved float32 samples in [-1,1].
type pcmSource interface {
	SampleRate() int
	Channels() int
	// ReadSamples fills dst and returns the number of values written.
	// io.EOF marks the end of the stream.
	ReadSamples(dst []float32) (int, error)
}

type decodeFunc func(r io.ReadSeeker) (pcmSource, error)

var decoders = map[string]decodeFunc{
	".wav":  decodeWAV,
	".wave": decodeWAV,
	".mp3":  decodeMP3,
	".ogg":  decodeOGG,
	".oga":  decodeOGG,
}

// ErrUnsupportedFormat is returned for file extensions with no decoder.
var ErrUnsupportedFormat = errors.New("capture: unsupported audio format")

func decoderFor(path string) (decodeFunc, error) {
	ext := strings.ToLower(filepath.Ext(path))
	dec, ok := decoders[ext]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	return dec, nil
}

// SupportedExtensions lists the extensions File can play.
func SupportedExtensions() []string {
	return []string{".wav", ".wave", ".mp3", ".ogg", ".oga"}
}

type wavSource struct {
	dec   *wav.Decoder
	buf   *audio.IntBuffer
	scale float32
}

func decodeWAV(r io.ReadSeeker) (pcmSource, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, errors.New("invalid WAV file")
	}
	if err := dec.FwdToPCM(); err != nil {
		return nil, fmt.Errorf("seeking PCM chunk: %w", err)
	}
	depth := int(dec.BitDepth)
	if depth == 0 {
		depth = 16
	}
	return &wavSource{
		dec: dec,
		buf: &audio.IntBuffer{
			Format: &audio.Format{NumChannels: int(dec.NumChans), SampleRate: int(dec.SampleRate)},
		},
		scale: 1 / float32(int64(1)<<(depth-1)),
	}, nil
}

func (s *wavSource) SampleRate() int { return int(s.dec.SampleRate) }
func (s *wavSource) Channels() int   { return int(s.dec.NumChans) }

func (s *wavSource) ReadSamples(dst []float32) (int, error) {
	if cap(s.buf.Data) < len(dst) {
		s.buf.Data = make([]int, len(dst))
	}
	s.buf.Data = s.buf.Data[:len(dst)]

	n, err := s.dec.PCMBuffer(s.buf)
	for i, v := range s.buf.Data[:n] {
		dst[i] = float32(v) * s.scale
	}
	if n == 0 && err == nil {
		err = io.EOF
	}
	return n, err
}

type mp3Source struct {
	dec *gomp3.Decoder
	raw []byte
}

func decodeMP3(r io.ReadSeeker) (pcmSource, error) {
	dec, err := gomp3.NewDecoder(r)
	if err != nil {
		return nil, err
	}
	return &mp3Source{dec: dec}, nil
}

func (s *mp3Source) SampleRate() int { return s.dec.SampleRate() }

// go-mp3 always decodes to 16-bit little-endian stereo.
func (s *mp3Source) Channels() int { return 2 }

func (s *mp3Source) ReadSamples(dst []float32) (int, error) {
	need := len(dst) * 2
	if cap(s.raw) < need {
		s.raw = make([]byte, need)
	}
	s.raw = s.raw[:need]

	n, err := io.ReadFull(s.dec, s.raw)
	if errors.Is(err, io.ErrUnexpectedEOF) {
		err = nil
	}
	samples := n / 2
	for i := range samples {
		v := int16(uint16(s.raw[2*i]) | uint16(s.raw[2*i+1])<<8)
		dst[i] = float32(v) / 32768
	}
	if samples == 0 && err == nil {
		err = io.EOF
	}
	return samples, err
}

type oggSource struct {
	dec *oggvorbis.Reader
}

func decodeOGG(r io.ReadSeeker) (pcmSource, error) {
	dec, err := oggvorbis.NewReader(r)
	if err != nil {
		return nil, err
	}
	return &oggSource{dec: dec}, nil
}

func (s *oggSource) SampleRate() int { return s.dec.SampleRate() }
func (s *oggSource) Channels() int   { return s.dec.Channels() }

func (s *oggSource) ReadSamples(dst []float32) (int, error) {
	// Keep requests frame aligned.
	ch := s.dec.Channels()
	dst = dst[:len(dst)/ch*ch]
	return s.dec.Read(dst)
}
