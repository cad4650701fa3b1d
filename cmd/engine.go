package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/andresmejia3/biopass/internal/access"
	"github.com/andresmejia3/biopass/internal/camera"
	"github.com/andresmejia3/biopass/internal/enroll"
	"github.com/andresmejia3/biopass/internal/events"
	"github.com/andresmejia3/biopass/internal/frame"
	"github.com/andresmejia3/biopass/internal/opencv"
	"github.com/andresmejia3/biopass/internal/vision"
)

// Shared wiring for the commands that run the biometric pipeline.

func loadModels() vision.Models {
	return vision.Load(Cfg.Models(), opencv.LoadModels, Log)
}

func newOpener() camera.Opener {
	ffmpeg := camera.FFmpegOpener{Width: Cfg.FrameWidth, Height: Cfg.FrameHeight, Log: Log}
	return camera.Router{
		ByHint:  map[string]camera.Opener{"ffmpeg": ffmpeg},
		Default: opencv.Opener{Width: Cfg.FrameWidth, Height: Cfg.FrameHeight},
	}
}

func newSource(cell *frame.Cell) (*camera.Source, error) {
	backends, err := Cfg.Backends()
	if err != nil {
		return nil, err
	}
	return camera.NewSource(newOpener(), backends, cell, Cfg.Camera(), Log), nil
}

func loadCache(ctx context.Context, models vision.Models) (*enroll.Cache, error) {
	fmt.Fprintln(os.Stderr, "🗄️  Loading enrolled users...")
	cache, report, err := enroll.Loader{
		Users:     DB,
		Detector:  models.Detector,
		Extractor: models.Extractor,
		Log:       Log,
		Progress:  os.Stderr,
	}.Load(ctx)
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(os.Stderr, "✅ %s\n", report)
	return cache, nil
}

// newPublisher connects to the MQTT broker when one is configured. A broker
// that cannot be reached disables events instead of failing the command.
func newPublisher() (events.Publisher, func()) {
	if Cfg.MQTTBroker == "" {
		return events.Nop{}, func() {}
	}
	p, err := events.DialMQTT(events.MQTTConfig{Broker: Cfg.MQTTBroker, Topic: Cfg.MQTTTopic}, Log)
	if err != nil {
		Log.Warn("access events disabled", "error", err)
		return events.Nop{}, func() {}
	}
	return p, p.Close
}

func newController(frames access.Snapshotter, models vision.Models, cache *enroll.Cache, pub events.Publisher) *access.Controller {
	matcher := Cfg.Matcher()
	return access.New(access.Deps{
		Frames:  frames,
		Models:  models,
		Users:   DB,
		Cache:   cache,
		Matcher: &matcher,
		Events:  pub,
		Log:     Log,
	})
}

// frameFromFile decodes a photo into a frame.
func frameFromFile(path string) (frame.Frame, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return frame.Frame{}, err
	}
	return frame.Decode(data)
}

// captureFrame starts the camera, waits for it to become active and returns
// one frame. The camera is released before returning.
func captureFrame(ctx context.Context, timeout time.Duration) (frame.Frame, error) {
	cell := &frame.Cell{}
	src, err := newSource(cell)
	if err != nil {
		return frame.Frame{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	errc := make(chan error, 1)
	go func() { errc <- src.Run(ctx) }()
	defer func() {
		cancel()
		<-errc
	}()

	fmt.Fprintln(os.Stderr, "📷 Starting camera...")
	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return frame.Frame{}, fmt.Errorf("camera did not deliver a frame: %w", ctx.Err())
		case err := <-errc:
			// Put it back for the deferred wait.
			errc <- err
			if err == nil {
				err = errors.New("camera stopped")
			}
			return frame.Frame{}, err
		case <-ticker.C:
			if _, active := src.Active(); !active {
				continue
			}
			if f, ok := cell.Snapshot(); ok {
				return f, nil
			}
		}
	}
}
