// Package enroll holds the in-memory list of enrolled identities and builds it
// from the persisted users at startup.
package enroll

import (
	"sync"

	"github.com/andresmejia3/biopass/internal/vision"
)

// Identity is a name paired with the signature computed from its stored photo.
type Identity struct {
	Name      string
	Signature vision.Signature
}

// Cache is an ordered list of identities. Order is enrollment order and
// decides match ties, so entries are only ever appended.
type Cache struct {
	mu      sync.RWMutex
	entries []Identity
}

// NewCache returns a cache seeded with ids, in order.
func NewCache(ids ...Identity) *Cache {
	return &Cache{entries: append([]Identity(nil), ids...)}
}

// Append adds id at the end and returns the new length.
func (c *Cache) Append(id Identity) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, id)
	return len(c.entries)
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Snapshot returns the entries as of now. The slice header is copied; the
// signatures are shared and must be treated as read-only.
func (c *Cache) Snapshot() []Identity {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.entries[:len(c.entries):len(c.entries)]
}

// Names lists the enrolled names in order.
func (c *Cache) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, len(c.entries))
	for i, e := range c.entries {
		names[i] = e.Name
	}
	return names
}
