// SPDX-License-Identifier: MIT
package capture

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"wavefield/internal/log"

	"github.com/dhowden/tag"
)

// DefaultChunkFrames is the number of frames a File delivers per tick.
const DefaultChunkFrames = 512

// FileConfig configures a File source.
type FileConfig struct {
	Path        string
	Loop        bool // Restart from the beginning at end of stream.
	ChunkFrames int  // Frames per delivery; DefaultChunkFrames when zero.
}

// Metadata describes a decoded audio file.
type Metadata struct {
	Title      string
	Artist     string
	Album      string
	Format     string
	SampleRate int
	Channels   int
}

// File is a Device that plays a decoded audio file at real-time pace, so
// the analysis downstream sees the same cadence a microphone would produce.
// Playback holds at the current position while no sink is attached.
type File struct {
	cfg FileConfig
}

var _ Device = (*File)(nil)

func NewFile(cfg FileConfig) *File {
	if cfg.ChunkFrames <= 0 {
		cfg.ChunkFrames = DefaultChunkFrames
	}
	return &File{cfg: cfg}
}

// Probe reads the file header and tags without starting playback.
func (f *File) Probe() (Metadata, error) {
	fh, _, meta, err := f.open()
	if err != nil {
		return Metadata{}, err
	}
	fh.Close()
	return meta, nil
}

func (f *File) open() (*os.File, pcmSource, Metadata, error) {
	decode, err := decoderFor(f.cfg.Path)
	if err != nil {
		return nil, nil, Metadata{}, err
	}

	fh, err := os.Open(f.cfg.Path)
	if err != nil {
		if errors.Is(err, os.ErrPermission) {
			return nil, nil, Metadata{}, fmt.Errorf("%w: %v", ErrPermissionDenied, err)
		}
		return nil, nil, Metadata{}, fmt.Errorf("%w: %v", ErrNoDevice, err)
	}

	meta := readTags(fh)
	if _, err := fh.Seek(0, io.SeekStart); err != nil {
		fh.Close()
		return nil, nil, Metadata{}, fmt.Errorf("capture: rewinding %s: %w", f.cfg.Path, err)
	}

	src, err := decode(fh)
	if err != nil {
		fh.Close()
		return nil, nil, Metadata{}, fmt.Errorf("capture: decoding %s: %w", f.cfg.Path, err)
	}
	if src.Channels() <= 0 || src.SampleRate() <= 0 {
		fh.Close()
		return nil, nil, Metadata{}, fmt.Errorf("capture: %s: invalid stream format", f.cfg.Path)
	}
	meta.SampleRate = src.SampleRate()
	meta.Channels = src.Channels()
	return fh, src, meta, nil
}

func readTags(r io.ReadSeeker) Metadata {
	m, err := tag.ReadFrom(r)
	if err != nil {
		if !errors.Is(err, tag.ErrNoTagsFound) {
			log.Debugf("Capture: reading tags: %v", err)
		}
		return Metadata{}
	}
	return Metadata{
		Title:  m.Title(),
		Artist: m.Artist(),
		Album:  m.Album(),
		Format: string(m.Format()),
	}
}

// Start opens the file and begins pacing samples to the attached sink.
func (f *File) Start() (Stream, error) {
	fh, src, meta, err := f.open()
	if err != nil {
		return nil, err
	}

	s := &fileStream{
		cfg:  f.cfg,
		fh:   fh,
		src:  src,
		raw:  make([]float32, f.cfg.ChunkFrames*src.Channels()),
		mono: make([]float32, f.cfg.ChunkFrames),
		stop: make(chan struct{}),
	}

	interval := time.Duration(float64(time.Second) * float64(f.cfg.ChunkFrames) / float64(src.SampleRate()))
	s.wg.Add(1)
	go s.pump(interval)

	log.Infof("Capture: playing %s (%d ch @ %d Hz, loop=%t)", f.cfg.Path, meta.Channels, meta.SampleRate, f.cfg.Loop)
	if meta.Title != "" {
		log.Infof("Capture: %s - %s", meta.Artist, meta.Title)
	}
	return s, nil
}

type fileStream struct {
	sinkSlot
	cfg FileConfig

	fh   *os.File
	src  pcmSource
	raw  []float32
	mono []float32

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func (s *fileStream) Attach(sink Sink) error { return s.attach(sink) }

func (s *fileStream) pump(interval time.Duration) {
	defer s.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			if !s.deliver() {
				return
			}
		}
	}
}

// deliver reads one chunk and hands it to the sink. It returns false once
// playback has finished.
func (s *fileStream) deliver() bool {
	if s.sink.Load() == nil {
		// Playback is held until a sink is attached.
		return true
	}
	n, err := s.src.ReadSamples(s.raw)
	if n > 0 {
		ch := s.src.Channels()
		frames := n / ch
		s.write(mixDown(s.mono, s.raw[:frames*ch], ch))
	}
	if err == nil {
		return true
	}
	if !errors.Is(err, io.EOF) {
		log.Errorf("Capture: decoding %s: %v", s.cfg.Path, err)
		return false
	}
	if !s.cfg.Loop {
		log.Infof("Capture: end of %s", s.cfg.Path)
		return false
	}
	return s.rewind()
}

func (s *fileStream) rewind() bool {
	if _, err := s.fh.Seek(0, io.SeekStart); err != nil {
		log.Errorf("Capture: rewinding %s: %v", s.cfg.Path, err)
		return false
	}
	decode, _ := decoderFor(s.cfg.Path)
	src, err := decode(s.fh)
	if err != nil {
		log.Errorf("Capture: reopening %s: %v", s.cfg.Path, err)
		return false
	}
	if src.Channels() != s.src.Channels() {
		return false
	}
	s.src = src
	log.Debugf("Capture: looping %s", s.cfg.Path)
	return true
}

// Close stops playback and releases the file. It is safe to call more than
// once.
func (s *fileStream) Close() error {
	s.detach()
	var err error
	s.stopOnce.Do(func() {
		close(s.stop)
		s.wg.Wait()
		err = s.fh.Close()
	})
	return err
}
