package camera

import (
	"image"
	"image/color"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresmejia3/biopass/internal/frame"
)

func jpegOf(t *testing.T, w, h int, c color.NRGBA) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	data, err := frame.FromImage(img, time.Now()).EncodeJPEG()
	require.NoError(t, err)
	return data
}

func TestPipeDevice_DecodesStream(t *testing.T) {
	pr, pw := io.Pipe()
	var pumpFinished bool
	var dev *pipeDevice
	dev = newPipeDevice(pr, func() { pr.Close() }, func() error {
		select {
		case <-dev.done:
			pumpFinished = true
		default:
		}
		return nil
	}, 500*time.Millisecond, slog.Default())

	data := jpegOf(t, 16, 8, color.NRGBA{R: 200, G: 200, B: 200, A: 255})
	go func() {
		pw.Write([]byte{0x00, 0x01}) // noise before the first frame
		pw.Write(data)
	}()

	f, ok := dev.Read()
	require.True(t, ok)
	assert.Equal(t, 16, f.Width)
	assert.Equal(t, 8, f.Height)
	assert.Greater(t, f.Brightness(), 150.0)

	require.NoError(t, dev.Close())
	assert.True(t, pumpFinished, "wait runs only after the reader is done")
	require.NoError(t, dev.Close(), "close is idempotent")
}

func TestPipeDevice_ReadTimesOut(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	dev := newPipeDevice(pr, func() { pr.Close() }, nil, 10*time.Millisecond, slog.Default())
	defer dev.Close()

	_, ok := dev.Read()
	assert.False(t, ok)
}

func TestPipeDevice_EndOfStream(t *testing.T) {
	pr, pw := io.Pipe()
	dev := newPipeDevice(pr, nil, nil, time.Second, slog.Default())
	pw.Close()

	start := time.Now()
	_, ok := dev.Read()
	assert.False(t, ok)
	assert.Less(t, time.Since(start), 500*time.Millisecond, "a finished stream fails fast")
}
