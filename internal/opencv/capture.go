//go:build cgo

package opencv

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/andresmejia3/biopass/internal/camera"
	"github.com/andresmejia3/biopass/internal/frame"
	"gocv.io/x/gocv"
)

var captureAPIs = map[string]gocv.VideoCaptureAPI{
	"any":          gocv.VideoCaptureAny,
	"dshow":        gocv.VideoCaptureDshow,
	"msmf":         gocv.VideoCaptureMSMF,
	"v4l2":         gocv.VideoCaptureV4L2,
	"avfoundation": gocv.VideoCaptureAVFoundation,
	"gstreamer":    gocv.VideoCaptureGstreamer,
	"ffmpeg-gocv":  gocv.VideoCaptureFFmpeg,
}

// Opener opens cameras through OpenCV's VideoCapture with an explicit backend API.
type Opener struct {
	Width, Height int
}

func (o Opener) Open(_ context.Context, b camera.Backend) (camera.Device, error) {
	api, ok := captureAPIs[strings.ToLower(b.Hint)]
	if !ok {
		return nil, fmt.Errorf("unsupported capture backend %q", b.Hint)
	}
	vc, err := gocv.VideoCaptureDeviceWithAPI(b.Device, api)
	if err != nil {
		return nil, err
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("device %d did not open with %s", b.Device, b.Hint)
	}
	// A resolution hint only; drivers may ignore it.
	if o.Width > 0 && o.Height > 0 {
		vc.Set(gocv.VideoCaptureFrameWidth, float64(o.Width))
		vc.Set(gocv.VideoCaptureFrameHeight, float64(o.Height))
	}
	return &capture{vc: vc, img: gocv.NewMat(), bgr: gocv.NewMat()}, nil
}

type capture struct {
	mu     sync.Mutex
	vc     *gocv.VideoCapture
	img    gocv.Mat
	bgr    gocv.Mat
	closed bool
}

func (c *capture) Read() (frame.Frame, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || !c.vc.Read(&c.img) || c.img.Empty() {
		return frame.Frame{}, false
	}
	at := time.Now()

	src := c.img
	switch c.img.Channels() {
	case 3:
	case 4:
		gocv.CvtColor(c.img, &c.bgr, gocv.ColorBGRAToBGR)
		src = c.bgr
	case 1:
		gocv.CvtColor(c.img, &c.bgr, gocv.ColorGrayToBGR)
		src = c.bgr
	default:
		return frame.Frame{}, false
	}

	// ToBytes copies, so the frame does not alias the reused Mat.
	f, err := frame.New(src.Cols(), src.Rows(), src.ToBytes(), at)
	if err != nil {
		return frame.Frame{}, false
	}
	return f, true
}

func (c *capture) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	c.img.Close()
	c.bgr.Close()
	return c.vc.Close()
}
