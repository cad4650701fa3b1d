package frame

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/disintegration/imaging"
)

// JPEGQuality is used for stored thumbnails and HTTP previews.
const JPEGQuality = 90

// ErrEmptyRegion is returned when a crop does not intersect the frame.
var ErrEmptyRegion = errors.New("crop region is outside the frame")

// Image converts the BGR buffer into an NRGBA image.
func (f Frame) Image() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, f.Width, f.Height))
	for i, j := 0, 0; i+2 < len(f.Pix) && j < len(img.Pix); i, j = i+Channels, j+4 {
		img.Pix[j] = f.Pix[i+2]
		img.Pix[j+1] = f.Pix[i+1]
		img.Pix[j+2] = f.Pix[i]
		img.Pix[j+3] = 0xFF
	}
	return img
}

// FromImage converts any image into a BGR frame. Alpha is dropped.
func FromImage(img image.Image, capturedAt time.Time) Frame {
	src := imaging.Clone(img)
	w, h := src.Bounds().Dx(), src.Bounds().Dy()
	pix := make([]byte, w*h*Channels)
	for i, j := 0, 0; i < len(pix); i, j = i+Channels, j+4 {
		pix[i] = src.Pix[j+2]
		pix[i+1] = src.Pix[j+1]
		pix[i+2] = src.Pix[j]
	}
	return Frame{CapturedAt: capturedAt, Width: w, Height: h, Pix: pix}
}

// Decode reads an encoded image (JPEG, PNG, ...) into a frame.
func Decode(data []byte) (Frame, error) {
	if len(data) == 0 {
		return Frame{}, errors.New("empty image data")
	}
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return Frame{}, fmt.Errorf("decode image: %w", err)
	}
	return FromImage(img, time.Now()), nil
}

// EncodeJPEG encodes the whole frame.
func (f Frame) EncodeJPEG() ([]byte, error) {
	if f.Empty() {
		return nil, errors.New("cannot encode an empty frame")
	}
	return encodeJPEG(f.Image())
}

// Crop clamps rect to the frame bounds and returns the covered pixels as a new frame.
func (f Frame) Crop(rect image.Rectangle) (Frame, error) {
	r := rect.Intersect(image.Rect(0, 0, f.Width, f.Height))
	if r.Empty() {
		return Frame{}, ErrEmptyRegion
	}
	cropped := imaging.Crop(f.Image(), r)
	return FromImage(cropped, f.CapturedAt), nil
}

// Thumbnail crops rect out of the frame and encodes it as JPEG. This is the
// visual copy kept in storage; it plays no part in matching.
func (f Frame) Thumbnail(rect image.Rectangle) ([]byte, error) {
	r := rect.Intersect(image.Rect(0, 0, f.Width, f.Height))
	if r.Empty() {
		return nil, ErrEmptyRegion
	}
	return encodeJPEG(imaging.Crop(f.Image(), r))
}

func encodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(JPEGQuality)); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}
