package frame

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// filled builds a frame whose every byte equals v, so a torn read shows up as mixed bytes.
func filled(w, h int, v byte) Frame {
	pix := make([]byte, w*h*Channels)
	for i := range pix {
		pix[i] = v
	}
	return Frame{CapturedAt: time.Unix(int64(v), 0), Width: w, Height: h, Pix: pix}
}

func TestCell_EmptySnapshot(t *testing.T) {
	var c Cell
	_, ok := c.Snapshot()
	assert.False(t, ok, "empty cell must report no frame")
	assert.Equal(t, uint64(0), c.Seq())
}

func TestCell_LatestWins(t *testing.T) {
	var c Cell
	c.Publish(filled(4, 4, 1))
	c.Publish(filled(4, 4, 2))

	f, ok := c.Snapshot()
	require.True(t, ok)
	assert.Equal(t, byte(2), f.Pix[0])
	assert.Equal(t, uint64(2), c.Seq())
}

func TestCell_SnapshotIsCopy(t *testing.T) {
	var c Cell
	c.Publish(filled(2, 2, 7))

	f, ok := c.Snapshot()
	require.True(t, ok)
	f.Pix[0] = 99

	again, _ := c.Snapshot()
	assert.Equal(t, byte(7), again.Pix[0], "mutating a snapshot must not reach the cell")
}

func TestCell_Reset(t *testing.T) {
	var c Cell
	c.Publish(filled(2, 2, 3))
	c.Reset()
	_, ok := c.Snapshot()
	assert.False(t, ok)
}

// TestCell_NoTornFrames runs one producer against many consumers and checks
// that every snapshot is internally consistent.
func TestCell_NoTornFrames(t *testing.T) {
	var c Cell
	const readers = 8
	stop := make(chan struct{})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for v := 0; ; v++ {
			select {
			case <-stop:
				return
			default:
			}
			// Sizes change with the value so a mix of headers and buffers is also caught.
			size := 8 + v%5
			c.Publish(filled(size, size, byte(v)))
		}
	}()

	errs := make(chan string, readers)
	for r := 0; r < readers; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 2000; i++ {
				f, ok := c.Snapshot()
				if !ok {
					continue
				}
				if len(f.Pix) != f.Width*f.Height*Channels {
					errs <- "buffer length does not match dimensions"
					return
				}
				want := f.Pix[0]
				if f.CapturedAt.Unix() != int64(want) {
					errs <- "timestamp does not match pixels"
					return
				}
				for _, b := range f.Pix {
					if b != want {
						errs <- "mixed pixel values in one frame"
						return
					}
				}
			}
		}()
	}

	// Let readers finish, then stop the producer.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if len(errs) > 0 {
				return
			}
			time.Sleep(10 * time.Millisecond)
			if c.Seq() > 5000 {
				return
			}
		}
	}()
	<-done
	close(stop)
	wg.Wait()
	close(errs)

	for msg := range errs {
		t.Fatal(msg)
	}
}
