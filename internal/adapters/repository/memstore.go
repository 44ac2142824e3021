package repository

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/okian/calmark/internal/domain/model"
	"github.com/okian/calmark/pkg/metrics"
)

// MemoryStore is an in-memory Store. Snapshots are immutable once stored;
// Put swaps the whole snapshot so readers never see a partial list.
type MemoryStore struct {
	mu     sync.RWMutex
	byWork map[string]*Snapshot
	events int
	now    func() time.Time
}

// NewMemoryStore constructs an empty store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{
		byWork: make(map[string]*Snapshot),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	metrics.UpdateCacheSize(0, 0)
	return s
}

// Put implements Store.Put.
func (s *MemoryStore) Put(_ context.Context, workID string, events []model.Event) (Snapshot, error) {
	if strings.TrimSpace(workID) == "" {
		metrics.RecordErrorByComponent("repository", "invalid_work_id")
		return Snapshot{}, ErrInvalidWorkID
	}

	snap := &Snapshot{
		WorkID:    workID,
		Events:    slices.Clone(events),
		FetchedAt: s.now(),
	}
	if snap.Events == nil {
		snap.Events = []model.Event{}
	}

	s.mu.Lock()
	if prev, ok := s.byWork[workID]; ok {
		snap.Version = prev.Version + 1
		s.events -= len(prev.Events)
	} else {
		snap.Version = 1
	}
	s.byWork[workID] = snap
	s.events += len(snap.Events)
	works, total := len(s.byWork), s.events
	s.mu.Unlock()

	metrics.UpdateCacheSize(works, total)
	return snap.copy(), nil
}

// Get implements Store.Get.
func (s *MemoryStore) Get(_ context.Context, workID string) (Snapshot, error) {
	s.mu.RLock()
	snap, ok := s.byWork[workID]
	s.mu.RUnlock()
	if !ok {
		metrics.RecordErrorByComponent("repository", "not_found")
		return Snapshot{}, ErrNotFound
	}
	return snap.copy(), nil
}

// Works implements Store.Works.
func (s *MemoryStore) Works(_ context.Context) []string {
	s.mu.RLock()
	ids := make([]string, 0, len(s.byWork))
	for id := range s.byWork {
		ids = append(ids, id)
	}
	s.mu.RUnlock()
	slices.Sort(ids)
	return ids
}

// Count implements Store.Count.
func (s *MemoryStore) Count(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.events
}

func (s *Snapshot) copy() Snapshot {
	out := *s
	out.Events = slices.Clone(s.Events)
	return out
}
