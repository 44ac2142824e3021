// Package repository holds the per-work event snapshots the calendar is built from.
package repository

import (
	"context"
	"time"

	"github.com/okian/calmark/internal/domain/model"
)

// Snapshot is the event list of one work as of its last refresh.
// Events keep feed order; color assignment depends on it.
type Snapshot struct {
	WorkID    string
	Events    []model.Event
	FetchedAt time.Time
	Version   uint64
}

// Store provides read/write access to work snapshots.
type Store interface {
	// Put replaces the events of a work and returns the stored snapshot.
	Put(ctx context.Context, workID string, events []model.Event) (Snapshot, error)

	// Get returns the latest snapshot for a work.
	// Returns ErrNotFound if the work was never stored.
	Get(ctx context.Context, workID string) (Snapshot, error)

	// Works returns the stored work IDs in ascending order.
	Works(ctx context.Context) []string

	// Count returns the number of events across all works.
	Count(ctx context.Context) int
}
