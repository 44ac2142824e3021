// Package dedupe tracks which works already have a refresh pending so a burst
// of refresh requests collapses into one feed fetch.
package dedupe

import (
	"context"
	"sync"
	"time"
)

// Deduper records in-flight keys to ensure at-most-one pending job per key.
type Deduper interface {
	// SeenAndRecord atomically checks if id is in flight and records it if not.
	// Returns true if id was already in flight, false if it was newly recorded.
	SeenAndRecord(ctx context.Context, id string) bool

	// Unrecord releases id once its job finished or could not be queued.
	Unrecord(ctx context.Context, id string)

	// Size returns the number of keys currently in flight.
	Size() int64
}

// inMemoryDeduper implements Deduper with a map of record times. Entries older
// than ttl are treated as abandoned so a crashed job cannot block its key
// forever.
type inMemoryDeduper struct {
	mu      sync.Mutex
	seen    map[string]time.Time
	ttl     time.Duration // <= 0 disables expiry
	maxSize int           // <= 0 means unbounded
	now     func() time.Time
}

// NewInMemoryDeduper creates a new in-memory deduper with configuration options.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{
		seen:    make(map[string]time.Time),
		ttl:     defaultTTL,
		maxSize: defaultMaxSize,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// SeenAndRecord atomically checks if id was seen and records it if not.
func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	if at, ok := d.seen[id]; ok {
		if d.ttl <= 0 || now.Sub(at) < d.ttl {
			return true
		}
	}

	if d.maxSize > 0 && len(d.seen) >= d.maxSize {
		d.evictExpired(now)
		if len(d.seen) >= d.maxSize {
			d.evictOldest()
		}
	}
	d.seen[id] = now
	return false
}

// Unrecord removes an ID from the in-flight set.
func (d *inMemoryDeduper) Unrecord(_ context.Context, id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.seen, id)
}

// Size returns the current number of entries in the deduper.
func (d *inMemoryDeduper) Size() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return int64(len(d.seen))
}

// evictExpired drops entries past their ttl. Must be called with d.mu held.
func (d *inMemoryDeduper) evictExpired(now time.Time) {
	if d.ttl <= 0 {
		return
	}
	for id, at := range d.seen {
		if now.Sub(at) >= d.ttl {
			delete(d.seen, id)
		}
	}
}

// evictOldest drops the earliest recorded entry. Must be called with d.mu held.
func (d *inMemoryDeduper) evictOldest() {
	var (
		oldestID string
		oldestAt time.Time
		found    bool
	)
	for id, at := range d.seen {
		if !found || at.Before(oldestAt) {
			oldestID, oldestAt, found = id, at, true
		}
	}
	if found {
		delete(d.seen, oldestID)
	}
}
