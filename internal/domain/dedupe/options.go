// Package dedupe tracks which works already have a refresh pending.
package dedupe

import "time"

const (
	defaultTTL     = 2 * time.Minute
	defaultMaxSize = 10_000
)

// Option applies a configuration option to the InMemoryDeduper.
type Option func(*inMemoryDeduper)

// WithMaxSize caps the number of tracked keys. When full, expired keys are
// dropped first, then the oldest one. maxSize <= 0 means unbounded.
func WithMaxSize(maxSize int) Option {
	return func(d *inMemoryDeduper) {
		d.maxSize = maxSize
	}
}

// WithTTL sets how long a key stays in flight without being released.
// ttl <= 0 keeps keys until Unrecord.
func WithTTL(ttl time.Duration) Option {
	return func(d *inMemoryDeduper) {
		d.ttl = ttl
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(d *inMemoryDeduper) {
		if now != nil {
			d.now = now
		}
	}
}
