// Package frame holds captured camera images and the single-slot cell that
// hands the latest one from the capture loop to its readers.
package frame

import (
	"fmt"
	"time"
)

// Channels is the number of bytes per pixel. Pixels are stored in BGR order,
// the layout camera drivers and the face models work in.
const Channels = 3

// Frame is a timestamped BGR pixel buffer.
type Frame struct {
	CapturedAt time.Time
	Width      int
	Height     int
	Pix        []byte
}

// New validates the buffer size against the dimensions.
func New(width, height int, pix []byte, capturedAt time.Time) (Frame, error) {
	if width <= 0 || height <= 0 {
		return Frame{}, fmt.Errorf("invalid frame size %dx%d", width, height)
	}
	if want := width * height * Channels; len(pix) != want {
		return Frame{}, fmt.Errorf("frame buffer is %d bytes, expected %d for %dx%d", len(pix), want, width, height)
	}
	return Frame{CapturedAt: capturedAt, Width: width, Height: height, Pix: pix}, nil
}

// Empty reports whether the frame carries no pixels.
func (f Frame) Empty() bool {
	return f.Width == 0 || f.Height == 0 || len(f.Pix) == 0
}

// Clone returns a deep copy so the caller owns its pixels exclusively.
func (f Frame) Clone() Frame {
	pix := make([]byte, len(f.Pix))
	copy(pix, f.Pix)
	f.Pix = pix
	return f
}

// Brightness is the mean channel value in [0, 255]. 0 means a black frame.
func (f Frame) Brightness() float64 {
	if len(f.Pix) == 0 {
		return 0
	}
	var sum uint64
	for _, v := range f.Pix {
		sum += uint64(v)
	}
	return float64(sum) / float64(len(f.Pix))
}
