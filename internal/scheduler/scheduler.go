// SPDX-License-Identifier: MIT
/*
Package scheduler drives the frame loop:

	tick -> features -> controller -> uniform payload -> WriteUniforms -> Draw

One goroutine owns the Session while the scheduler is RUNNING. Parameter
commands, resizes and capture toggles are queued to that goroutine and run
between frames, so RenderParameters never has a second writer. Draw is
asynchronous; the loop never waits for a frame to finish rendering.
*/
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"wavefield/internal/gpu"
	"wavefield/internal/log"
	"wavefield/internal/params"
	"wavefield/internal/spectral"
	"wavefield/internal/transport"
	"wavefield/internal/uniform"
)

// State of the frame loop.
type State uint32

const (
	Idle State = iota
	Running
)

func (s State) String() string {
	if s == Running {
		return "RUNNING"
	}
	return "IDLE"
}

var (
	// ErrFatal wraps backend setup failures. The loop never starts.
	ErrFatal          = errors.New("scheduler: fatal render error")
	ErrAlreadyRunning = errors.New("scheduler: already running")
	ErrNotRunning     = errors.New("scheduler: not running")
)

// DefaultInterval is the frame period used when Config.Interval is unset.
const DefaultInterval = time.Second / 60

// Config wires a Scheduler.
type Config struct {
	Backend    gpu.Backend
	Program    gpu.Program
	Source     FeatureSource
	Parameters params.RenderParameters // Initial parameters, sanitized.
	Bands      int                     // Bands per feature vector.
	Width      int
	Height     int
	Interval   time.Duration       // Frame period.
	Output     transport.Transport // Optional, receives every encoded payload.
	Now        func() time.Time    // Defaults to time.Now.
}

// Stats is a snapshot for the control surface.
type Stats struct {
	State              State
	FPS                int
	Frames             uint64
	Time               float32
	Width, Height      int
	AudioActive        bool
	Parameters         params.RenderParameters
	EffectiveAmplitude float32
	Features           spectral.FeatureVector
	DrawErrors         uint64
}

type request struct {
	fn    func(*Session)
	reply chan struct{}
}

// Scheduler runs the frame loop against a backend.
type Scheduler struct {
	cfg      Config
	now      func() time.Time
	requests chan request

	mu         sync.Mutex // Protects state, cancel, done, configured and idle access to session.
	state      State
	cancel     context.CancelFunc
	done       chan struct{}
	configured bool
	session    *Session

	buf        [uniform.Size]byte // Frame goroutine only.
	drawErrors uint64

	statsMu sync.Mutex
	stats   Stats
}

// New validates cfg. The scheduler starts IDLE.
func New(cfg Config) (*Scheduler, error) {
	if cfg.Backend == nil {
		return nil, errors.New("scheduler: backend cannot be nil")
	}
	if cfg.Source == nil {
		return nil, errors.New("scheduler: feature source cannot be nil")
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("scheduler: invalid resolution %dx%d", cfg.Width, cfg.Height)
	}
	if cfg.Bands <= 0 {
		cfg.Bands = 32
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	s := &Scheduler{
		cfg:      cfg,
		now:      now,
		requests: make(chan request),
		session:  newSession(cfg.Source, cfg.Parameters.Sanitize(), cfg.Bands, cfg.Width, cfg.Height),
	}
	s.stats.Features.Bands = make([]float32, cfg.Bands)
	s.publishStats()
	return s, nil
}

// Start configures the backend on first use and begins the frame loop. A
// configuration failure is reported once, wrapped in ErrFatal, and leaves
// the scheduler IDLE.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Running {
		return ErrAlreadyRunning
	}

	if !s.configured {
		if err := s.cfg.Backend.Configure(s.cfg.Program); err != nil {
			err = fmt.Errorf("%w: %w", ErrFatal, err)
			log.Errorf("Scheduler: %v", err)
			return err
		}
		s.cfg.Backend.Resize(s.session.Width, s.session.Height)
		s.configured = true
	}

	s.session.begin(s.now())
	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.state, s.cancel, s.done = Running, cancel, done
	s.publishStats()

	go s.loop(loopCtx, done)
	log.Infof("Scheduler: started (%dx%d every %s)", s.session.Width, s.session.Height, s.cfg.Interval)
	return nil
}

// Stop ends the frame loop and waits for it. Draws already submitted are
// left to complete.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if s.state != Running {
		s.mu.Unlock()
		return ErrNotRunning
	}
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	cancel()
	<-done
	log.Infof("Scheduler: stopped after %d frames", s.Stats().Frames)
	return nil
}

// Done is closed when the current run ends, nil while IDLE.
func (s *Scheduler) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Running {
		return nil
	}
	return s.done
}

// State reports IDLE or RUNNING.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Send applies a parameter command before the next frame.
func (s *Scheduler) Send(cmd params.Command) {
	s.exec(func(sess *Session) {
		sess.Controller.Apply(cmd)
		log.Debugf("Scheduler: applied %v", cmd)
	})
}

// Resize updates the render resolution. Zero dimensions are ignored.
func (s *Scheduler) Resize(width, height int) {
	s.exec(func(sess *Session) {
		if sess.resize(width, height) {
			s.cfg.Backend.Resize(width, height)
			log.Debugf("Scheduler: resized to %dx%d", width, height)
		}
	})
}

// ToggleAudio flips audio capture. Failures such as a denied microphone are
// returned and leave the source idle; the loop keeps running.
func (s *Scheduler) ToggleAudio() error {
	var err error
	s.exec(func(sess *Session) {
		if err = sess.Source.Toggle(); err != nil {
			log.Warnf("Scheduler: audio toggle failed, continuing idle: %v", err)
		}
	})
	return err
}

// Stats returns the latest snapshot. Its Bands are a copy.
func (s *Scheduler) Stats() Stats {
	s.statsMu.Lock()
	defer s.statsMu.Unlock()
	st := s.stats
	st.Features.Bands = append([]float32(nil), s.stats.Features.Bands...)
	return st
}

// exec runs fn on the frame goroutine between frames, or inline while IDLE.
func (s *Scheduler) exec(fn func(*Session)) {
	for {
		s.mu.Lock()
		if s.state != Running {
			fn(s.session)
			s.publishStats()
			s.mu.Unlock()
			return
		}
		done := s.done
		s.mu.Unlock()

		req := request{fn: fn, reply: make(chan struct{})}
		select {
		case s.requests <- req:
			<-req.reply
			return
		case <-done:
			// The loop exited; retry inline.
		}
	}
}

func (s *Scheduler) loop(ctx context.Context, done chan struct{}) {
	ticker := time.NewTicker(s.cfg.Interval)
	defer func() {
		ticker.Stop()
		s.mu.Lock()
		s.state, s.cancel, s.done = Idle, nil, nil
		s.publishStats()
		s.mu.Unlock()
		close(done)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case req := <-s.requests:
			req.fn(s.session)
			s.publishStats()
			close(req.reply)
		case <-ticker.C:
			s.frame(s.now())
		}
	}
}

// frame renders one tick. Per-frame paths only log at DEBUG.
func (s *Scheduler) frame(now time.Time) {
	sess := s.session
	t := sess.Clock.Tick(now)

	sess.Source.FeaturesInto(&sess.features)
	sess.Controller.Update(sess.features)

	payload := uniform.Build(sess.Controller.Parameters(), sess.features, t, float32(sess.Width), float32(sess.Height))
	payload.Encode(&s.buf)

	if err := s.submit(); err != nil {
		s.drawErrors++
		if s.drawErrors == 1 {
			log.Warnf("Scheduler: draw failed: %v", err)
		} else {
			log.Debugf("Scheduler: draw failed: %v", err)
		}
	}
	if s.cfg.Output != nil {
		if err := s.cfg.Output.Send(s.buf[:]); err != nil {
			log.Debugf("Scheduler: output send failed: %v", err)
		}
	}
	s.publishStats()
}

func (s *Scheduler) submit() error {
	if err := s.cfg.Backend.WriteUniforms(s.buf[:]); err != nil {
		return err
	}
	return s.cfg.Backend.Draw()
}

// publishStats copies session state into the snapshot without allocating.
// Callers own the session: the frame goroutine, or any goroutine holding mu
// while IDLE.
func (s *Scheduler) publishStats() {
	sess := s.session
	s.statsMu.Lock()
	defer s.statsMu.Unlock()

	bands := s.stats.Features.Bands
	if sess.Clock != nil {
		s.stats.FPS = sess.Clock.FPS()
		s.stats.Frames = sess.Clock.Frames()
		s.stats.Time = sess.Clock.Time()
	}
	s.stats.State = s.state
	s.stats.Width, s.stats.Height = sess.Width, sess.Height
	s.stats.AudioActive = sess.Source.Active()
	s.stats.Parameters = sess.Controller.Parameters()
	s.stats.EffectiveAmplitude = sess.Controller.EffectiveAmplitude()
	s.stats.Features = sess.features
	s.stats.Features.Bands = bands[:copy(bands, sess.features.Bands)]
	s.stats.DrawErrors = s.drawErrors
}
