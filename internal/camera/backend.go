// Package camera finds a working capture backend and keeps the latest frame
// flowing into a frame.Cell.
package camera

import (
	"context"
	"fmt"
	"strings"

	"github.com/andresmejia3/biopass/internal/frame"
)

// Backend is one candidate combination of device index and driver hint.
type Backend struct {
	Device int    `yaml:"device"`
	Hint   string `yaml:"backend"`
	Label  string `yaml:"label"`
	// Format and Input override the ffmpeg demuxer and device string.
	// They are ignored by the other backends.
	Format string `yaml:"format,omitempty"`
	Input  string `yaml:"input,omitempty"`
}

func (b Backend) String() string {
	if b.Label != "" {
		return b.Label
	}
	return fmt.Sprintf("Index %d - %s", b.Device, strings.ToUpper(b.Hint))
}

// Device is an opened, exclusively held camera handle.
type Device interface {
	// Read blocks until the next frame. ok is false on a transient failure.
	Read() (f frame.Frame, ok bool)
	Close() error
}

// Opener opens a backend candidate. An error means the candidate is not
// usable; it is an expected outcome, not an anomaly.
type Opener interface {
	Open(ctx context.Context, b Backend) (Device, error)
}

// OpenerFunc adapts a function to Opener.
type OpenerFunc func(ctx context.Context, b Backend) (Device, error)

func (f OpenerFunc) Open(ctx context.Context, b Backend) (Device, error) { return f(ctx, b) }

// Router dispatches to an opener by backend hint, falling back to Default.
type Router struct {
	ByHint  map[string]Opener
	Default Opener
}

func (r Router) Open(ctx context.Context, b Backend) (Device, error) {
	if o, ok := r.ByHint[strings.ToLower(b.Hint)]; ok {
		return o.Open(ctx, b)
	}
	if r.Default == nil {
		return nil, fmt.Errorf("no opener for backend %q", b.Hint)
	}
	return r.Default.Open(ctx, b)
}
