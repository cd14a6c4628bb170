// SPDX-License-Identifier: MIT
package gpu

import (
	"fmt"
	"net/http"
	"sync"

	"wavefield/internal/log"
	"wavefield/internal/transport"
	"wavefield/internal/uniform"
)

// Mounter registers HTTP handlers. *transport.WebSocketTransport
// satisfies it.
type Mounter interface {
	Handle(pattern string, handler http.Handler)
}

// Paths the Remote backend serves its program on.
const (
	ShaderPath = "/shader.wgsl"
	QuadPath   = "/quad.bin"
)

// Remote is a Backend whose draws are executed by network clients. Each Draw
// sends the 32-byte uniform block through the transport; clients fetch the
// WGSL program and vertex buffer over HTTP once.
type Remote struct {
	out   transport.Transport
	mount Mounter

	mu         sync.Mutex
	configured bool
	closed     bool
	uniforms   [uniform.Size]byte
	width      int
	height     int
}

var _ Backend = (*Remote)(nil)

// NewRemote creates a Remote backend sending through out. mount may be nil
// when clients already hold the program.
func NewRemote(out transport.Transport, mount Mounter) (*Remote, error) {
	if out == nil {
		return nil, fmt.Errorf("%w: remote backend needs a transport", ErrNoAdapter)
	}
	return &Remote{out: out, mount: mount}, nil
}

// Configure publishes the program for clients.
func (r *Remote) Configure(p Program) error {
	if err := p.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}
	if r.mount != nil && !r.configured {
		source := []byte(p.Source)
		quad := append([]byte(nil), p.Vertices...)
		r.mount.Handle(ShaderPath, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/wgsl; charset=utf-8")
			w.Write(source)
		}))
		r.mount.Handle(QuadPath, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/octet-stream")
			w.Write(quad)
		}))
		log.Infof("GPU: remote backend serving %s and %s", ShaderPath, QuadPath)
	}
	r.configured = true
	return nil
}

func (r *Remote) WriteUniforms(b []byte) error {
	if len(b) != uniform.Size {
		return fmt.Errorf("gpu: uniform write of %d bytes, want %d", len(b), uniform.Size)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	copy(r.uniforms[:], b)
	return nil
}

// Draw forwards the uniform block. Transports queue and drop rather than
// block, so Draw returns promptly.
func (r *Remote) Draw() error {
	r.mu.Lock()
	switch {
	case r.closed:
		r.mu.Unlock()
		return ErrClosed
	case !r.configured:
		r.mu.Unlock()
		return ErrNotConfigured
	}
	frame := r.uniforms
	r.mu.Unlock()
	return r.out.Send(frame[:])
}

// Resize is recorded for logging only; clients take the resolution from
// the uniform block.
func (r *Remote) Resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	r.mu.Lock()
	r.width, r.height = width, height
	r.mu.Unlock()
	log.Debugf("GPU: remote target resized to %dx%d", width, height)
}

// Close closes the transport.
func (r *Remote) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	r.mu.Unlock()
	return r.out.Close()
}
