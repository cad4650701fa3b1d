// Package access runs the Register and Login flows: snapshot, detect,
// extract, then persist-and-enroll or match.
package access

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/andresmejia3/biopass/internal/enroll"
	"github.com/andresmejia3/biopass/internal/events"
	"github.com/andresmejia3/biopass/internal/frame"
	"github.com/andresmejia3/biopass/internal/match"
	"github.com/andresmejia3/biopass/internal/vision"
)

// Snapshotter hands out a private copy of the latest frame.
type Snapshotter interface {
	Snapshot() (frame.Frame, bool)
}

// Persister is the write side of the persistence collaborator.
type Persister interface {
	Insert(ctx context.Context, name string, photo []byte) (int64, error)
}

// Deps are the services a Controller composes. Frames may be nil when only
// the *Frame variants are used. A nil Matcher uses match.New().
type Deps struct {
	Frames  Snapshotter
	Models  vision.Models
	Users   Persister
	Cache   *enroll.Cache
	Matcher *match.Matcher
	Events  events.Publisher
	Log     *slog.Logger
}

// Enrollment describes a successful registration.
type Enrollment struct {
	UserID    int64
	Name      string
	Region    vision.FaceRegion
	Thumbnail []byte
	CacheSize int
}

// Controller is safe for concurrent use. Registrations are serialized so
// the persisted order matches the cache order.
type Controller struct {
	frames  Snapshotter
	models  vision.Models
	users   Persister
	cache   *enroll.Cache
	matcher match.Matcher
	events  events.Publisher
	log     *slog.Logger

	regMu sync.Mutex
}

func New(d Deps) *Controller {
	if d.Cache == nil {
		d.Cache = enroll.NewCache()
	}
	if d.Models.Detector == nil || d.Models.Extractor == nil {
		d.Models = vision.Degraded(fmt.Errorf("%w: no models configured", vision.ErrModelLoadFailed), nil)
	}
	if d.Events == nil {
		d.Events = events.Nop{}
	}
	if d.Log == nil {
		d.Log = slog.Default()
	}
	matcher := match.New()
	if d.Matcher != nil {
		matcher = *d.Matcher
	}
	return &Controller{
		frames:  d.Frames,
		models:  d.Models,
		users:   d.Users,
		cache:   d.Cache,
		matcher: matcher,
		events:  d.Events,
		log:     d.Log,
	}
}

// Cache exposes the enrollment cache for status reporting.
func (c *Controller) Cache() *enroll.Cache {
	return c.cache
}

// Register enrolls name using the latest camera frame.
func (c *Controller) Register(ctx context.Context, name string) (Enrollment, error) {
	f, err := c.snapshot()
	if err != nil {
		return Enrollment{}, err
	}
	return c.RegisterFrame(ctx, name, f)
}

// RegisterFrame enrolls name using f. The user is persisted before the cache
// is touched; if persisting fails the cache is unchanged.
func (c *Controller) RegisterFrame(ctx context.Context, name string, f frame.Frame) (Enrollment, error) {
	if f.Empty() {
		return Enrollment{}, ErrCameraNotReady
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return Enrollment{}, ErrInvalidName
	}

	region, sig, err := c.signature(f)
	if err != nil {
		return Enrollment{}, err
	}

	thumb, err := f.Thumbnail(region.Rect())
	if err != nil {
		return Enrollment{}, ErrThumbnailFailed.WithError(err)
	}

	c.regMu.Lock()
	defer c.regMu.Unlock()

	id, err := c.users.Insert(ctx, name, thumb)
	if err != nil {
		c.log.Error("failed to persist user", slog.String("name", name), slog.Any("error", err))
		return Enrollment{}, ErrPersistenceFailed.WithError(err)
	}
	size := c.cache.Append(enroll.Identity{Name: name, Signature: sig})

	c.log.Info("user registered", slog.Int64("id", id), slog.String("name", name), slog.Int("enrolled", size))
	e := events.New(events.KindRegistered, "registered")
	e.Name, e.UserID = name, id
	c.publish(ctx, e)

	return Enrollment{UserID: id, Name: name, Region: region, Thumbnail: thumb, CacheSize: size}, nil
}

// Login identifies whoever is in front of the camera.
func (c *Controller) Login(ctx context.Context) (match.Result, error) {
	f, err := c.snapshot()
	if err != nil {
		return match.Result{}, err
	}
	return c.IdentifyFrame(ctx, f)
}

// IdentifyFrame matches the face in f against the cache. CacheEmpty and
// Unknown are outcomes, not errors.
func (c *Controller) IdentifyFrame(ctx context.Context, f frame.Frame) (match.Result, error) {
	if f.Empty() {
		return match.Result{}, ErrCameraNotReady
	}
	_, sig, err := c.signature(f)
	if err != nil {
		return match.Result{}, err
	}

	res := c.matcher.Identify(sig, c.cache.Snapshot())
	c.log.Info("login attempt",
		slog.String("outcome", res.Outcome.String()),
		slog.String("name", res.Name),
		slog.Float64("score", res.Score),
	)

	e := events.New(events.KindLogin, res.Outcome.String())
	e.Name, e.Score = res.Name, res.Score
	c.publish(ctx, e)
	return res, nil
}

func (c *Controller) snapshot() (frame.Frame, error) {
	if c.frames == nil {
		return frame.Frame{}, ErrCameraNotReady
	}
	f, ok := c.frames.Snapshot()
	if !ok {
		return frame.Frame{}, ErrCameraNotReady
	}
	return f, nil
}

func (c *Controller) signature(f frame.Frame) (vision.FaceRegion, vision.Signature, error) {
	if !c.models.Available() {
		return vision.FaceRegion{}, nil, ErrModelUnavailable.WithError(c.models.Err)
	}
	region, ok := c.models.Detector.Detect(f)
	if !ok {
		return vision.FaceRegion{}, nil, ErrNoFaceDetected
	}
	sig, ok := c.models.Extractor.Extract(f, region)
	if !ok {
		return region, nil, ErrEmbeddingFailed
	}
	return region, sig, nil
}

// publish reports e; a broker failure never fails the flow that produced it.
func (c *Controller) publish(ctx context.Context, e events.Event) {
	if err := c.events.Publish(ctx, e); err != nil {
		c.log.Warn("failed to publish access event", slog.String("kind", string(e.Kind)), slog.Any("error", err))
	}
}
