package frame

import "sync"

// Cell is a single-slot holder for the latest captured frame.
// One writer publishes, any number of readers copy the current value out.
// Nothing is queued: a publish overwrites whatever was there.
type Cell struct {
	mu  sync.Mutex
	cur Frame
	ok  bool
	seq uint64
}

// Publish replaces the slot. The cell takes ownership of f.Pix; the writer
// must not touch the buffer afterwards.
func (c *Cell) Publish(f Frame) {
	c.mu.Lock()
	c.cur = f
	c.ok = !f.Empty()
	c.seq++
	c.mu.Unlock()
}

// Snapshot copies the current frame out under the lock. ok is false while
// nothing has been published (camera not warm yet).
func (c *Cell) Snapshot() (Frame, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.ok {
		return Frame{}, false
	}
	return c.cur.Clone(), true
}

// Seq is the number of publishes so far. Readers use it to skip redraws
// when nothing changed.
func (c *Cell) Seq() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seq
}

// Reset empties the slot.
func (c *Cell) Reset() {
	c.mu.Lock()
	c.cur = Frame{}
	c.ok = false
	c.mu.Unlock()
}
