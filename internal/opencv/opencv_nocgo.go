//go:build !cgo

package opencv

import (
	"context"
	"errors"
	"io"

	"github.com/andresmejia3/biopass/internal/camera"
	"github.com/andresmejia3/biopass/internal/vision"
)

// ErrNoNative is returned when the binary was built without cgo.
var ErrNoNative = errors.New("built without cgo: OpenCV support is not available")

// LoadModels always fails; the caller falls back to the null capabilities.
func LoadModels(vision.ModelConfig) (vision.Detector, vision.Extractor, io.Closer, error) {
	return nil, nil, nil, ErrNoNative
}

// Opener rejects every candidate so probing moves on to the ffmpeg backends.
type Opener struct {
	Width, Height int
}

func (Opener) Open(context.Context, camera.Backend) (camera.Device, error) {
	return nil, ErrNoNative
}
