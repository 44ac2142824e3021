// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/okian/calmark/internal/adapters/ics"
	"github.com/okian/calmark/internal/adapters/mq/queue"
	"github.com/okian/calmark/internal/adapters/mq/worker"
	"github.com/okian/calmark/internal/adapters/repository"
	"github.com/okian/calmark/internal/adapters/schedule"
	"github.com/okian/calmark/internal/domain/dedupe"
	"github.com/okian/calmark/internal/domain/marking"
	"github.com/okian/calmark/internal/domain/model"
	"github.com/okian/calmark/internal/domain/types"
	"github.com/okian/calmark/pkg/logger"
	"github.com/okian/calmark/pkg/metrics"
)

const (
	defaultQueueSize   = 1_000
	defaultInflightTTL = 2 * time.Minute
	stopTimeout        = 30 * time.Second
)

// Service implements the API dependencies for the marked-date calendar.
type Service struct {
	mu sync.RWMutex

	// Core components
	store    repository.Store
	deduper  dedupe.Deduper
	queue    queue.Queue
	fetcher  worker.Fetcher
	pool     *worker.Pool
	sched    *schedule.Scheduler
	builder  *marking.Builder
	encoder  *ics.Encoder
	cronSpec string
	works    []string

	// Configuration
	workerCount   int
	queueSize     int
	inflightTTL   time.Duration
	staleFallback bool
	now           func() time.Time

	// State
	started bool
	stopped bool

	logger logger.Logger
}

// New constructs a Service. Components are ready for reads and writes right
// away; Start launches the refresh workers and the schedule.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:   runtime.NumCPU(),
		queueSize:     defaultQueueSize,
		inflightTTL:   defaultInflightTTL,
		staleFallback: true,
		now:           time.Now,
		logger:        logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.builder == nil {
		s.builder = marking.NewBuilder()
	}
	if s.store == nil {
		s.store = repository.NewMemoryStore()
	}
	// Pending plus running jobs; a smaller bound would evict live markers.
	s.deduper = dedupe.NewInMemoryDeduper(
		dedupe.WithMaxSize(s.queueSize+s.workerCount),
		dedupe.WithTTL(s.inflightTTL),
	)
	s.queue = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	s.encoder = ics.NewEncoder(
		ics.WithPalette(s.builder.Palette()),
		ics.WithLocation(s.builder.Location()),
		ics.WithClock(s.now),
	)
	return s
}

// Start launches the worker pool and, when configured, the refresh schedule.
// Configured works are refreshed once right away.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.stopped {
		return ErrStopped
	}

	s.logger.Info(ctx, "starting calendar service...")

	if s.cronSpec != "" && len(s.works) > 0 {
		sched, err := schedule.New(s.cronSpec, s.works, s, schedule.WithLogger(s.logger))
		if err != nil {
			return fmt.Errorf("start: %w", err)
		}
		s.sched = sched
	}

	if s.fetcher != nil {
		s.pool = worker.NewPool(s.workerCount, s.queue, s.fetcher, s.store,
			worker.WithLogger(s.logger),
			worker.WithReleaser(s.deduper),
			worker.WithOnDone(s.refreshDone),
		)
		s.pool.Start(ctx)
	}

	// started must be set before the warm-up refreshes; they re-enter via
	// RequestRefresh which does not take the lock.
	s.started = true

	if s.fetcher != nil {
		for _, w := range s.works {
			if _, err := s.RequestRefresh(ctx, w, queue.ReasonStartup); err != nil {
				s.logger.Warn(ctx, "startup refresh rejected", logger.String("work", w), logger.Error(err))
			}
		}
	}
	if s.sched != nil {
		s.sched.Start(ctx)
	}

	s.logger.Info(ctx, "calendar service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("works", len(s.works)),
		logger.Bool("feed", s.fetcher != nil),
	)
	return nil
}

// Stop halts the schedule and drains the refresh workers.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()

	s.logger.Info(ctx, "stopping calendar service...")

	if s.sched != nil {
		if err := s.sched.Stop(ctx); err != nil {
			s.logger.Warn(ctx, "schedule stop", logger.Error(err))
		}
	}
	if s.pool != nil {
		if err := s.pool.Shutdown(ctx); err != nil {
			s.logger.Warn(ctx, "worker pool shutdown", logger.Error(err))
		}
	} else {
		_ = s.queue.Close()
	}

	s.started = false
	s.stopped = true
	s.logger.Info(ctx, "calendar service stopped")
}

// Today returns the current date in the builder's zone, or local time when
// the builder truncates as written.
func (s *Service) Today() model.CalendarDate {
	loc := s.builder.Location()
	if loc == nil {
		loc = time.Local
	}
	return model.DateOf(s.now().In(loc))
}

// MarkedDates builds the marked-date index of workID with selected highlighted.
func (s *Service) MarkedDates(ctx context.Context, workID string, selected model.CalendarDate) (marking.Index, error) {
	snap, err := s.store.Get(ctx, workID)
	if err != nil {
		return nil, err
	}
	return s.buildIndex(workID, snap.Events, selected)
}

func (s *Service) buildIndex(workID string, events []model.Event, selected model.CalendarDate) (marking.Index, error) {
	start := time.Now()
	idx, err := s.builder.Build(events, selected)
	if err != nil {
		metrics.RecordIndexBuildError()
		if errors.Is(err, model.ErrInvalidDate) {
			metrics.RecordInvalidDate()
		}
		return nil, fmt.Errorf("build index for %s: %w", workID, err)
	}
	metrics.RecordIndexBuild(idx.DotCount(), float64(time.Since(start).Milliseconds()))
	return idx, nil
}

// Day lists the events of workID on date with the color of their dot.
func (s *Service) Day(ctx context.Context, workID string, date model.CalendarDate) (types.Day, error) {
	snap, err := s.store.Get(ctx, workID)
	if err != nil {
		return types.Day{}, err
	}
	idx, err := s.buildIndex(workID, snap.Events, date)
	if err != nil {
		return types.Day{}, err
	}

	sel := marking.NewSelector(s.builder, snap.Events, marking.WithStaleFallback(s.staleFallback))
	evs, err := sel.Day(idx, date)
	if err != nil {
		return types.Day{}, fmt.Errorf("day %s for %s: %w", date, workID, err)
	}

	day := types.Day{WorkID: workID, Date: string(date), Events: make([]types.DayEvent, len(evs))}
	for i, ev := range evs {
		metrics.RecordColorLookup(ev.Source.String())
		day.Events[i] = types.DayEvent{
			ID:      ev.ID,
			Date:    ev.Date,
			Title:   ev.Title,
			Address: ev.Address,
			Color:   string(ev.Color),
		}
	}
	return day, nil
}

// ExportICS writes the events of workID as an iCalendar document.
func (s *Service) ExportICS(ctx context.Context, workID string, w io.Writer) error {
	snap, err := s.store.Get(ctx, workID)
	if err != nil {
		return err
	}
	if err := s.encoder.Encode(w, workID, snap.Events); err != nil {
		if errors.Is(err, model.ErrInvalidDate) {
			metrics.RecordInvalidDate()
		}
		return fmt.Errorf("export %s: %w", workID, err)
	}
	return nil
}

// ReplaceEvents stores events as the current list of workID.
func (s *Service) ReplaceEvents(ctx context.Context, workID string, events []model.Event) error {
	snap, err := s.store.Put(ctx, workID, events)
	if err != nil {
		return err
	}
	s.logger.Debug(ctx, "events replaced",
		logger.String("work", workID),
		logger.Int("events", len(snap.Events)),
		logger.Any("version", snap.Version))
	return nil
}

// RequestRefresh queues a re-fetch of workID. A work with a refresh already
// pending reports types.RefreshInFlight and queues nothing.
func (s *Service) RequestRefresh(ctx context.Context, workID, reason string) (string, error) {
	workID = strings.TrimSpace(workID)
	if workID == "" {
		return "", queue.ErrEmptyWorkID
	}
	if s.fetcher == nil {
		return "", ErrNoFeed
	}

	if s.deduper.SeenAndRecord(ctx, workID) {
		metrics.RecordRefreshDuplicate()
		s.logger.Debug(ctx, "refresh already pending", logger.String("work", workID))
		return types.RefreshInFlight, nil
	}

	job := queue.Job{WorkID: workID, Reason: reason, RequestedAt: s.now()}
	if err := s.queue.Enqueue(ctx, job); err != nil {
		s.deduper.Unrecord(ctx, workID)
		metrics.UpdateRefreshInFlight(s.deduper.Size())
		return "", fmt.Errorf("queue refresh of %s: %w", workID, err)
	}
	metrics.UpdateRefreshInFlight(s.deduper.Size())
	return types.RefreshAccepted, nil
}

// refreshDone runs after every refresh job, once the pending marker is released.
func (s *Service) refreshDone(ctx context.Context, job queue.Job, snap repository.Snapshot, err error) {
	metrics.UpdateRefreshInFlight(s.deduper.Size())
	if err != nil {
		return
	}
	s.logger.Info(ctx, "work refreshed",
		logger.String("work", job.WorkID),
		logger.String("reason", job.Reason),
		logger.Int("events", len(snap.Events)),
		logger.Any("version", snap.Version))
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	works := s.store.Works(ctx)
	stats := map[string]interface{}{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"queueLength": s.queue.Len(ctx),
		"inFlight":    s.deduper.Size(),
		"works":       len(works),
		"events":      s.store.Count(ctx),
		"palette":     s.builder.Palette().Len(),
	}
	if s.sched != nil {
		stats["nextRefresh"] = s.sched.Next()
	}
	return stats
}
