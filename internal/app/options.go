package service

import (
	"time"

	"github.com/okian/calmark/internal/adapters/mq/worker"
	"github.com/okian/calmark/internal/adapters/repository"
	"github.com/okian/calmark/internal/config"
	"github.com/okian/calmark/internal/domain/marking"
	"github.com/okian/calmark/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of refresh workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum number of pending refresh jobs.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithInflightTTL bounds how long a pending refresh blocks another one.
func WithInflightTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.inflightTTL = ttl
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithBuilder sets the index builder; its palette and zone apply to every
// view the service produces.
func WithBuilder(b *marking.Builder) Option {
	return func(s *Service) {
		if b != nil {
			s.builder = b
		}
	}
}

// WithStaleFallback toggles position based colors for events missing from
// the index.
func WithStaleFallback(enabled bool) Option {
	return func(s *Service) {
		s.staleFallback = enabled
	}
}

// WithStore replaces the default in-memory snapshot store.
func WithStore(st repository.Store) Option {
	return func(s *Service) {
		if st != nil {
			s.store = st
		}
	}
}

// WithFetcher sets the feed refresh jobs pull from. Without one refresh
// requests fail with ErrNoFeed.
func WithFetcher(f worker.Fetcher) Option {
	return func(s *Service) {
		s.fetcher = f
	}
}

// WithSchedule refreshes works on the cron spec and once at Start.
func WithSchedule(spec string, works []string) Option {
	return func(s *Service) {
		s.cronSpec = spec
		s.works = append([]string(nil), works...)
	}
}

// WithClock overrides the time source used for "today".
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// OptionsFromConfig translates cfg into service options. The fetcher is
// passed separately since it owns network settings.
func OptionsFromConfig(cfg *config.Config, fetcher worker.Fetcher) ([]Option, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	p, err := cfg.DotPalette()
	if err != nil {
		return nil, err
	}
	return []Option{
		WithBuilder(marking.NewBuilder(marking.WithPalette(p), marking.WithLocation(loc))),
		WithStaleFallback(cfg.StaleColorFallback),
		WithWorkerCount(cfg.WorkerCount),
		WithQueueSize(cfg.QueueSize),
		WithInflightTTL(cfg.InflightTTL()),
		WithFetcher(fetcher),
		WithSchedule(cfg.RefreshCron, cfg.Works),
	}, nil
}
