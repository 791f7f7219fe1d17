// Package listcache implements a short-lived in-process cache of activity
// listings, keyed by the exact query that produced them. Entries are never
// persisted.
package listcache

import (
	"sync"
	"time"

	"github.com/lildude/fitsync/internal/platform"
)

// Key identifies one listing query. Two queries share an entry only when
// every field matches exactly; no normalisation is applied.
type Key struct {
	Platform     string
	Limit        int
	ActivityType string
	StartDate    string
	EndDate      string
}

type entry struct {
	activities []platform.Activity
	fetchedAt  time.Time
}

// Cache is safe for concurrent use, though the orchestrator itself runs
// single-threaded.
type Cache struct {
	mu      sync.Mutex
	entries map[Key]entry
	now     func() time.Time
}

// New returns an empty cache using the wall clock.
func New() *Cache {
	return NewWithClock(time.Now)
}

// NewWithClock returns an empty cache with an injected clock, used in tests.
func NewWithClock(now func() time.Time) *Cache {
	return &Cache{entries: make(map[Key]entry), now: now}
}

// Get returns the cached listing for key unless it is older than maxAge.
func (c *Cache) Get(key Key, maxAge time.Duration) ([]platform.Activity, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok || c.now().Sub(e.fetchedAt) > maxAge {
		return nil, false
	}
	return e.activities, true
}

// Put stores a listing for key, stamped with the current time.
func (c *Cache) Put(key Key, activities []platform.Activity) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry{activities: activities, fetchedAt: c.now()}
}

// Clear drops all entries unconditionally.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[Key]entry)
}
