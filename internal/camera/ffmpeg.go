package camera

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"sync"
	"time"

	"github.com/andresmejia3/biopass/internal/frame"
	"github.com/andresmejia3/biopass/internal/utils"
)

// FFmpegOpener captures through an ffmpeg subprocess that emits MJPEG on
// stdout. It works wherever ffmpeg is installed, without native bindings.
type FFmpegOpener struct {
	Width, Height int
	// ReadTimeout bounds how long Read waits for the next frame.
	ReadTimeout time.Duration
	Log         *slog.Logger
}

func (o FFmpegOpener) Open(_ context.Context, b Backend) (Device, error) {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return nil, fmt.Errorf("ffmpeg not found: %w", err)
	}

	format, input, ok := utils.CaptureInput(b.Device)
	if b.Format != "" {
		format = b.Format
	}
	if b.Input != "" {
		input, ok = b.Input, true
	}
	if !ok || format == "" {
		return nil, fmt.Errorf("no ffmpeg input for device %d; set format and input", b.Device)
	}

	// The process outlives the probe call and is stopped by Close.
	ctx, cancel := context.WithCancel(context.Background())
	cmd := utils.NewFFmpegCaptureCmd(ctx, format, input, o.Width, o.Height)
	out, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	log := o.Log
	if log == nil {
		log = slog.Default()
	}
	wait := func() error {
		if err := cmd.Wait(); err != nil {
			log.Debug("ffmpeg exited", slog.Any("error", err), slog.String("logs", cmd.Logs()))
		}
		return nil
	}
	return newPipeDevice(out, cancel, wait, o.ReadTimeout, log), nil
}

// pipeDevice splits an MJPEG stream and keeps only the newest decoded frame.
// Close calls kill, which must end the stream, then waits for the reader to
// finish before calling wait.
type pipeDevice struct {
	frames  chan frame.Frame
	timeout time.Duration
	kill    func()
	wait    func() error
	done    chan struct{}
	once    sync.Once
	err     error
}

func newPipeDevice(r io.Reader, kill func(), wait func() error, timeout time.Duration, log *slog.Logger) *pipeDevice {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	d := &pipeDevice{
		frames:  make(chan frame.Frame, 1),
		timeout: timeout,
		kill:    kill,
		wait:    wait,
		done:    make(chan struct{}),
	}
	go d.pump(r, log)
	return d
}

func (d *pipeDevice) pump(r io.Reader, log *slog.Logger) {
	defer close(d.done)
	scanner := bufio.NewScanner(r)
	// 8MB is enough for a 4K MJPEG frame
	scanner.Buffer(make([]byte, 1024*1024), 8*1024*1024)
	scanner.Split(utils.SplitJpeg)

	for scanner.Scan() {
		f, err := frame.Decode(scanner.Bytes())
		if err != nil {
			log.Debug("dropping undecodable frame", slog.Any("error", err))
			continue
		}
		// Latest wins: drop the unread frame if the consumer is behind.
		select {
		case d.frames <- f:
		default:
			select {
			case <-d.frames:
			default:
			}
			select {
			case d.frames <- f:
			default:
			}
		}
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, io.ErrClosedPipe) {
		log.Debug("capture stream ended", slog.Any("error", err))
	}
}

func (d *pipeDevice) Read() (frame.Frame, bool) {
	t := time.NewTimer(d.timeout)
	defer t.Stop()
	select {
	case f := <-d.frames:
		return f, true
	case <-d.done:
		// Drain a frame that raced with the end of the stream.
		select {
		case f := <-d.frames:
			return f, true
		default:
			return frame.Frame{}, false
		}
	case <-t.C:
		return frame.Frame{}, false
	}
}

func (d *pipeDevice) Close() error {
	d.once.Do(func() {
		if d.kill != nil {
			d.kill()
		}
		<-d.done
		if d.wait != nil {
			d.err = d.wait()
		}
	})
	return d.err
}
