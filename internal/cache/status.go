// Package cache holds the single-slot TTL memo for status responses.
package cache

import (
	"sync"
	"time"

	"github.com/michaelfortunato/pueue-webui/internal/domain"
	"github.com/michaelfortunato/pueue-webui/internal/stats"
)

// DefaultTTL is how long a cached status response stays fresh. Short enough
// that the UI never sees stale data it would act on, long enough to absorb
// render-storm polling.
const DefaultTTL = 500 * time.Millisecond

// Entry is one cached status fetch plus its derived stats.
type Entry struct {
	CapturedAt time.Time
	Payload    domain.Snapshot
	Stats      stats.Stats
	Digest     string
}

// StatusCache is a single-slot cache. Entries are replaced wholesale, never
// mutated; concurrent misses may both hit the backend and the last writer
// wins, which is acceptable for an idempotent read. The lock is only held
// for the read-or-replace critical section, never across a backend call.
type StatusCache struct {
	mu    sync.Mutex
	ttl   time.Duration
	now   func() time.Time
	entry *Entry
}

// New creates a cache with the given TTL; ttl <= 0 selects DefaultTTL.
func New(ttl time.Duration) *StatusCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &StatusCache{ttl: ttl, now: time.Now}
}

// Get returns the cached entry if it is within the TTL.
func (c *StatusCache) Get() (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.entry == nil || c.now().Sub(c.entry.CapturedAt) > c.ttl {
		return Entry{}, false
	}
	return *c.entry, true
}

// Put unconditionally replaces the slot and returns the stored entry.
func (c *StatusCache) Put(payload domain.Snapshot, derived stats.Stats, digest string) Entry {
	entry := Entry{
		CapturedAt: c.now(),
		Payload:    payload,
		Stats:      derived,
		Digest:     digest,
	}
	c.mu.Lock()
	c.entry = &entry
	c.mu.Unlock()
	return entry
}

// setClock swaps the time source; tests use it to step through the TTL
// window without sleeping.
func (c *StatusCache) setClock(now func() time.Time) { c.now = now }
