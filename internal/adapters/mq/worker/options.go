package worker

import (
	"time"

	"github.com/okian/calmark/pkg/logger"
)

// Option applies a configuration option to the InMemoryWorker.
type Option func(*InMemoryWorker)

// WithName sets the worker name for identification and logging.
func WithName(name string) Option {
	return func(w *InMemoryWorker) {
		if name != "" {
			w.name = name
		}
	}
}

// WithLogger sets a custom logger for the worker.
func WithLogger(l logger.Logger) Option {
	return func(w *InMemoryWorker) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithReleaser releases the pending-refresh marker when a job ends.
func WithReleaser(r Releaser) Option {
	return func(w *InMemoryWorker) { w.releaser = r }
}

// WithOnDone registers a callback run after each job.
func WithOnDone(fn DoneFunc) Option {
	return func(w *InMemoryWorker) { w.onDone = fn }
}

// WithJobTimeout bounds a single fetch and store.
func WithJobTimeout(d time.Duration) Option {
	return func(w *InMemoryWorker) {
		if d > 0 {
			w.timeout = d
		}
	}
}
