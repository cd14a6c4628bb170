// SPDX-License-Identifier: MIT
package capture

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	"wavefield/internal/log"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// Recorder is a Sink that writes the mono capture signal to a WAV file.
// Insert it next to the analysis node with a Tee.
type Recorder struct {
	mu      sync.Mutex
	file    *os.File
	encoder *wav.Encoder
	buf     *audio.IntBuffer
	scale   float64
	maxVal  int
	frames  int64
}

var _ Sink = (*Recorder)(nil)

// NewRecorder creates the WAV file and prepares an encoder. Supported bit
// depths are 16, 24 and 32.
func NewRecorder(path string, sampleRate, bitDepth int) (*Recorder, error) {
	switch bitDepth {
	case 16, 24, 32:
	default:
		return nil, fmt.Errorf("capture: unsupported bit depth %d", bitDepth)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("capture: creating recording dir: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("capture: creating recording: %w", err)
	}

	maxVal := 1<<(bitDepth-1) - 1
	log.Infof("Capture: recording to %s (%d-bit @ %d Hz)", path, bitDepth, sampleRate)
	return &Recorder{
		file:    file,
		encoder: wav.NewEncoder(file, sampleRate, bitDepth, 1, 1),
		buf: &audio.IntBuffer{
			Format:         &audio.Format{NumChannels: 1, SampleRate: sampleRate},
			SourceBitDepth: bitDepth,
		},
		scale:  float64(maxVal),
		maxVal: maxVal,
	}, nil
}

// RecordingName returns a timestamped file name inside dir.
func RecordingName(dir string, t time.Time) string {
	return filepath.Join(dir, "capture-"+t.Format("20060102-150405")+".wav")
}

// Write encodes samples. Write after Close is a no-op.
func (r *Recorder) Write(samples []float32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.encoder == nil {
		return
	}

	if cap(r.buf.Data) < len(samples) {
		r.buf.Data = make([]int, len(samples))
	}
	r.buf.Data = r.buf.Data[:len(samples)]
	for i, s := range samples {
		v := int(math.Round(float64(s) * r.scale))
		r.buf.Data[i] = max(-r.maxVal, min(r.maxVal, v))
	}
	if err := r.encoder.Write(r.buf); err != nil {
		log.Errorf("Capture: recording write failed: %v", err)
		return
	}
	r.frames += int64(len(samples))
}

// Frames returns the number of frames written so far.
func (r *Recorder) Frames() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frames
}

// Close finalises the WAV header and closes the file. It is safe to call
// more than once.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.encoder == nil {
		return nil
	}

	encErr := r.encoder.Close()
	fileErr := r.file.Close()
	r.encoder, r.file = nil, nil
	if encErr != nil {
		return fmt.Errorf("capture: finalising recording: %w", encErr)
	}
	if fileErr != nil {
		return fmt.Errorf("capture: closing recording: %w", fileErr)
	}
	log.Infof("Capture: recording closed (%d frames)", r.frames)
	return nil
}
