// Package schedule keeps configured works warm by requesting refreshes on a cron spec.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/okian/calmark/internal/adapters/mq/queue"
	"github.com/okian/calmark/internal/domain/types"
	"github.com/okian/calmark/pkg/logger"
)

// ErrNoSpec is returned by New when scheduling is disabled.
var ErrNoSpec = errors.New("empty refresh schedule")

// Refresher asks for a work to be refreshed. A work that already has a
// refresh pending is not an error.
type Refresher interface {
	RequestRefresh(ctx context.Context, workID, reason string) (string, error)
}

// Scheduler triggers refreshes of a fixed set of works.
type Scheduler struct {
	cron      *cron.Cron
	entry     cron.EntryID
	works     []string
	refresher Refresher
	log       logger.Logger
	ctx       context.Context //nolint:containedctx // cron jobs take no context; this is the one Start received
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLogger sets the scheduler logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Scheduler) {
		if l != nil {
			s.log = l
		}
	}
}

// New parses spec (standard 5-field or @descriptor) and prepares the job.
// Overlapping ticks are skipped while a previous one is still running.
func New(spec string, works []string, r Refresher, opts ...Option) (*Scheduler, error) {
	if spec == "" {
		return nil, ErrNoSpec
	}
	s := &Scheduler{
		works:     append([]string(nil), works...),
		refresher: r,
		log:       logger.Nop(),
		ctx:       context.Background(),
	}
	for _, opt := range opts {
		opt(s)
	}

	cl := cronLogger{log: s.log}
	s.cron = cron.New(
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	id, err := s.cron.AddFunc(spec, func() { s.Tick(s.ctx) })
	if err != nil {
		return nil, fmt.Errorf("refresh schedule %q: %w", spec, err)
	}
	s.entry = id
	return s, nil
}

// Start begins firing on schedule. Refresh requests made by ticks use ctx.
func (s *Scheduler) Start(ctx context.Context) {
	s.ctx = ctx
	s.cron.Start()
	s.log.Info(ctx, "refresh schedule started",
		logger.Int("works", len(s.works)),
		logger.Any("next", s.Next()))
}

// Stop halts the schedule and waits for a running tick, bounded by ctx.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return fmt.Errorf("stop schedule: %w", ctx.Err())
	}
}

// Next reports when the schedule fires next; zero before Start.
func (s *Scheduler) Next() time.Time {
	return s.cron.Entry(s.entry).Next
}

// Tick requests a refresh of every configured work and returns how many
// were accepted. Failures are logged and do not stop the round.
func (s *Scheduler) Tick(ctx context.Context) int {
	accepted := 0
	for _, work := range s.works {
		status, err := s.refresher.RequestRefresh(ctx, work, queue.ReasonSchedule)
		if err != nil {
			s.log.Warn(ctx, "scheduled refresh rejected",
				logger.String("work", work),
				logger.Error(err))
			continue
		}
		if status == types.RefreshAccepted {
			accepted++
		}
	}
	s.log.Debug(ctx, "refresh tick",
		logger.Int("works", len(s.works)),
		logger.Int("accepted", accepted))
	return accepted
}

// cronLogger routes cron's own logging into ours.
type cronLogger struct {
	log logger.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.log.Debug(context.Background(), "cron: "+msg, kvFields(keysAndValues)...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.log.Error(context.Background(), "cron: "+msg, append(kvFields(keysAndValues), logger.Error(err))...)
}

func kvFields(kv []interface{}) []logger.Field {
	out := make([]logger.Field, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			key = fmt.Sprint(kv[i])
		}
		out = append(out, logger.Any(key, kv[i+1]))
	}
	return out
}
