package camera

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/andresmejia3/biopass/internal/frame"
)

// ErrNoCameraAvailable is returned once every candidate has been tried without success.
var ErrNoCameraAvailable = errors.New("no working camera found")

var errNoWarmupFrames = errors.New("camera opened but produced no frames")

// State of the source. Transitions:
// Uninitialized -> Probing -> (WarmingUp -> Active | Probing next) ... -> NoCamera.
type State int

const (
	StateUninitialized State = iota
	StateProbing
	StateWarmingUp
	StateActive
	StateNoCamera
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateProbing:
		return "probing"
	case StateWarmingUp:
		return "warming up"
	case StateActive:
		return "active"
	case StateNoCamera:
		return "no camera available"
	case StateStopped:
		return "stopped"
	}
	return "unknown"
}

// Attempt is the outcome of trying one backend candidate.
type Attempt struct {
	Backend    Backend
	Opened     bool
	WarmFrames int
	Err        error
}

// Accepted reports whether the candidate produced at least one usable frame.
func (a Attempt) Accepted() bool {
	return a.Opened && a.WarmFrames > 0
}

// Options tune the warm-up and retry pacing.
type Options struct {
	WarmupReads int
	WarmupDelay time.Duration
	RetryDelay  time.Duration
}

// DefaultOptions reads 60 warm-up frames 50ms apart and retries failed reads after 100ms.
func DefaultOptions() Options {
	return Options{
		WarmupReads: 60,
		WarmupDelay: 50 * time.Millisecond,
		RetryDelay:  100 * time.Millisecond,
	}
}

// Source probes the configured backends in order and then runs the capture loop.
type Source struct {
	opener   Opener
	backends []Backend
	cell     *frame.Cell
	opts     Options
	log      *slog.Logger

	mu       sync.Mutex
	state    State
	active   Backend
	attempts []Attempt
}

// NewSource builds a source publishing into cell.
func NewSource(opener Opener, backends []Backend, cell *frame.Cell, opts Options, log *slog.Logger) *Source {
	if log == nil {
		log = slog.Default()
	}
	if opts.WarmupReads < 1 {
		opts.WarmupReads = 1
	}
	return &Source{
		opener:   opener,
		backends: append([]Backend(nil), backends...),
		cell:     cell,
		opts:     opts,
		log:      log,
	}
}

// State returns the current state.
func (s *Source) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Active returns the accepted backend once the source is capturing.
func (s *Source) Active() (Backend, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active, s.state == StateActive
}

// Attempts returns the probe history so far.
func (s *Source) Attempts() []Attempt {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Attempt(nil), s.attempts...)
}

// Run probes the backends and, once one is accepted, publishes frames until
// ctx is cancelled. It returns ErrNoCameraAvailable if every candidate fails
// and nil on shutdown. The candidate list is walked only once per Run.
func (s *Source) Run(ctx context.Context) error {
	dev, err := s.acquire(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}
	defer func() {
		if err := dev.Close(); err != nil {
			s.log.Warn("failed to release camera", slog.Any("error", err))
		}
	}()

	s.capture(ctx, dev)
	return nil
}

// Probe runs the probing phase only and releases the accepted device. It is
// used to diagnose the backend list without starting capture.
func (s *Source) Probe(ctx context.Context) ([]Attempt, error) {
	dev, err := s.acquire(ctx)
	if err == nil {
		dev.Close()
		s.setState(StateStopped)
	}
	return s.Attempts(), err
}

func (s *Source) acquire(ctx context.Context) (Device, error) {
	if s.State() == StateNoCamera {
		return nil, ErrNoCameraAvailable
	}
	for _, b := range s.backends {
		if ctx.Err() != nil {
			s.setState(StateStopped)
			return nil, ctx.Err()
		}
		s.mu.Lock()
		s.state = StateProbing
		s.mu.Unlock()

		s.log.Info("probing camera backend", slog.String("backend", b.String()))
		att, dev := s.try(ctx, b)

		s.mu.Lock()
		s.attempts = append(s.attempts, att)
		if att.Accepted() {
			s.state = StateActive
			s.active = b
		}
		s.mu.Unlock()

		if att.Accepted() {
			s.log.Info("camera ready", slog.String("backend", b.String()), slog.Int("warmup_frames", att.WarmFrames))
			return dev, nil
		}
		s.log.Warn("camera backend rejected", slog.String("backend", b.String()), slog.Any("error", att.Err))
	}

	if ctx.Err() != nil {
		s.setState(StateStopped)
		return nil, ctx.Err()
	}
	s.setState(StateNoCamera)
	s.log.Error("no working camera found", slog.Int("candidates", len(s.backends)))
	return nil, ErrNoCameraAvailable
}

// try opens b and performs the warm-up reads. The device is returned only
// when the attempt is accepted; otherwise it has already been released.
func (s *Source) try(ctx context.Context, b Backend) (Attempt, Device) {
	att := Attempt{Backend: b}
	dev, err := s.opener.Open(ctx, b)
	if err != nil {
		att.Err = err
		return att, nil
	}
	att.Opened = true
	s.setState(StateWarmingUp)

	var last frame.Frame
	for i := 0; i < s.opts.WarmupReads; i++ {
		if ctx.Err() != nil {
			break
		}
		if f, ok := dev.Read(); ok && !f.Empty() {
			att.WarmFrames++
			last = f
			if i%10 == 0 {
				s.log.Debug("warm-up frame", slog.Int("read", i), slog.Float64("brightness", f.Brightness()))
			}
		}
		if !sleepCtx(ctx, s.opts.WarmupDelay) {
			break
		}
	}

	if att.WarmFrames == 0 {
		att.Err = errNoWarmupFrames
		if ctx.Err() != nil {
			att.Err = ctx.Err()
		}
		if err := dev.Close(); err != nil {
			s.log.Warn("failed to release camera", slog.String("backend", b.String()), slog.Any("error", err))
		}
		return att, nil
	}
	s.cell.Publish(last)
	return att, dev
}

func (s *Source) capture(ctx context.Context, dev Device) {
	for {
		if ctx.Err() != nil {
			s.setState(StateStopped)
			return
		}
		f, ok := dev.Read()
		if ok && !f.Empty() {
			s.cell.Publish(f)
			continue
		}
		if !sleepCtx(ctx, s.opts.RetryDelay) {
			s.setState(StateStopped)
			return
		}
	}
}

func (s *Source) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

// sleepCtx waits for d and reports false if ctx ended first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
