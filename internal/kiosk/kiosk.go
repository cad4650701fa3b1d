// Package kiosk is the operator-facing consumer: a fixed-cadence redraw loop
// over the latest frame and one-shot Register/Login tasks that report back
// to it.
package kiosk

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/andresmejia3/biopass/internal/access"
	"github.com/andresmejia3/biopass/internal/camera"
	"github.com/andresmejia3/biopass/internal/frame"
	"github.com/andresmejia3/biopass/internal/match"
)

// ErrStopped is the error of a task submitted after Run has begun shutting down.
var ErrStopped = errors.New("kiosk is shutting down")

// RedrawInterval is the default redraw cadence.
const RedrawInterval = 30 * time.Millisecond

// Flows are the operations the kiosk dispatches. *access.Controller implements it.
type Flows interface {
	Register(ctx context.Context, name string) (access.Enrollment, error)
	Login(ctx context.Context) (match.Result, error)
}

// CameraState reports the capture source state. *camera.Source implements it.
type CameraState interface {
	State() camera.State
}

type TaskKind string

const (
	TaskRegister TaskKind = "register"
	TaskLogin    TaskKind = "login"
)

// Completion is the outcome of one task, delivered to the redraw loop.
type Completion struct {
	TaskID     uuid.UUID
	Kind       TaskKind
	Enrollment access.Enrollment
	Result     match.Result
	Err        error
	Duration   time.Duration
}

// Message is the operator-facing text for c.
func (c Completion) Message() string {
	if c.Err != nil {
		return "❌ " + c.Err.Error()
	}
	if c.Kind == TaskRegister {
		return fmt.Sprintf("✅ User '%s' registered", c.Enrollment.Name)
	}
	switch c.Result.Outcome {
	case match.Accepted:
		return fmt.Sprintf("✅ Access granted: %s (%.3f)", c.Result.Name, c.Result.Score)
	case match.Unknown:
		return fmt.Sprintf("⛔ Access denied: user not recognized (%.3f)", c.Result.Score)
	default:
		return "⚠️  No users registered or loaded"
	}
}

// View is what one redraw shows.
type View struct {
	Frame    frame.Frame
	HasFrame bool
	Camera   camera.State
	Status   string
	Enrolled int
}

// Renderer draws views. Render is only ever called from the redraw loop.
type Renderer interface {
	Render(View)
}

// Options configure a Kiosk. Enrolled may be nil.
type Options struct {
	Frames   access.Snapshotter
	Flows    Flows
	Camera   CameraState
	Renderer Renderer
	Enrolled func() int
	Interval time.Duration
	Log      *slog.Logger
}

// Kiosk owns the redraw loop and the task dispatch.
type Kiosk struct {
	frames   access.Snapshotter
	flows    Flows
	camera   CameraState
	renderer Renderer
	enrolled func() int
	interval time.Duration
	log      *slog.Logger

	completions chan Completion
	stopped     chan struct{}
	tasks       sync.WaitGroup

	// mu also orders tasks.Add against shutdown: once closing is set no
	// task is added.
	mu      sync.Mutex
	closing bool
	status  string
	last    *Completion
}

func New(o Options) *Kiosk {
	if o.Interval <= 0 {
		o.Interval = RedrawInterval
	}
	if o.Log == nil {
		o.Log = slog.Default()
	}
	if o.Enrolled == nil {
		o.Enrolled = func() int { return 0 }
	}
	return &Kiosk{
		frames:      o.Frames,
		flows:       o.Flows,
		camera:      o.Camera,
		renderer:    o.Renderer,
		enrolled:    o.Enrolled,
		interval:    o.Interval,
		log:         o.Log,
		completions: make(chan Completion, 16),
		stopped:     make(chan struct{}),
	}
}

// Run redraws every interval until ctx is cancelled, applying task
// completions as they arrive. It waits for in-flight tasks before returning.
func (k *Kiosk) Run(ctx context.Context) error {
	ticker := time.NewTicker(k.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			k.stop()
			k.tasks.Wait()
			for {
				select {
				case c := <-k.completions:
					k.apply(c)
				default:
					return nil
				}
			}
		case c := <-k.completions:
			k.apply(c)
		case <-ticker.C:
			k.redraw()
		}
	}
}

// Register dispatches a registration. The returned channel receives the
// completion once; the redraw loop receives it too.
func (k *Kiosk) Register(ctx context.Context, name string) (uuid.UUID, <-chan Completion) {
	return k.submit(ctx, TaskRegister, func(ctx context.Context, c *Completion) {
		c.Enrollment, c.Err = k.flows.Register(ctx, name)
	})
}

// Login dispatches an identification.
func (k *Kiosk) Login(ctx context.Context) (uuid.UUID, <-chan Completion) {
	return k.submit(ctx, TaskLogin, func(ctx context.Context, c *Completion) {
		c.Result, c.Err = k.flows.Login(ctx)
	})
}

func (k *Kiosk) submit(ctx context.Context, kind TaskKind, run func(context.Context, *Completion)) (uuid.UUID, <-chan Completion) {
	id := uuid.New()
	out := make(chan Completion, 1)

	k.mu.Lock()
	if k.closing {
		k.mu.Unlock()
		out <- Completion{TaskID: id, Kind: kind, Err: ErrStopped}
		return id, out
	}
	k.status = fmt.Sprintf("⏳ %s in progress...", kind)
	k.tasks.Add(1)
	k.mu.Unlock()

	go func() {
		defer k.tasks.Done()
		start := time.Now()
		c := Completion{TaskID: id, Kind: kind}
		run(ctx, &c)
		c.Duration = time.Since(start)

		k.log.Debug("task finished", slog.String("task", id.String()), slog.String("kind", string(kind)), slog.Duration("took", c.Duration))
		out <- c
		select {
		case k.completions <- c:
		case <-k.stopped:
			k.apply(c)
		case <-ctx.Done():
			k.apply(c)
		}
	}()
	return id, out
}

// stop refuses new tasks and releases the ones waiting to report.
func (k *Kiosk) stop() {
	k.mu.Lock()
	defer k.mu.Unlock()
	if !k.closing {
		k.closing = true
		close(k.stopped)
	}
}

// Status returns the current status line and the last completion, if any.
// A missing camera is always reported, ahead of the last task message.
func (k *Kiosk) Status() (string, *Completion) {
	k.mu.Lock()
	defer k.mu.Unlock()
	status := k.status
	if k.camera != nil {
		st := k.camera.State()
		switch {
		case status == "":
			status = cameraMessage(st)
		case st == camera.StateNoCamera:
			status = cameraMessage(st) + " | " + status
		}
	}
	if k.last == nil {
		return status, nil
	}
	last := *k.last
	return status, &last
}

func (k *Kiosk) apply(c Completion) {
	k.mu.Lock()
	k.last = &c
	k.status = c.Message()
	k.mu.Unlock()
}

func (k *Kiosk) redraw() {
	if k.renderer == nil {
		return
	}
	v := View{Enrolled: k.enrolled()}
	if k.camera != nil {
		v.Camera = k.camera.State()
	}
	if k.frames != nil {
		v.Frame, v.HasFrame = k.frames.Snapshot()
	}
	v.Status, _ = k.Status()
	k.renderer.Render(v)
}

func cameraMessage(s camera.State) string {
	switch s {
	case camera.StateActive:
		return "📷 Camera active"
	case camera.StateNoCamera:
		return "❌ Camera error: not detected"
	case camera.StateStopped:
		return "Camera stopped"
	}
	return "⏳ Starting camera..."
}
