package service

import (
	"time"

	"github.com/okian/huikao/internal/adapters/localstore"
	"github.com/okian/huikao/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of submission writers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize bounds the submission queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets how many submission ids are remembered. Zero is unbounded.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size >= 0 {
			s.dedupeSize = size
		}
	}
}

// WithPageSize sets the initial page size and the selectable sizes of new sessions.
func WithPageSize(size int, options []int) Option {
	return func(s *Service) {
		if size > 0 {
			s.pageSize = size
		}
		if len(options) > 0 {
			s.pageSizes = options
		}
	}
}

// WithSubmitCooldown sets the minimum gap between two submissions of a session.
func WithSubmitCooldown(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.cooldown = d
		}
	}
}

// WithMaxSessions caps the sessions kept in memory.
func WithMaxSessions(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxSessions = n
		}
	}
}

// WithMaxCompare caps the comparison selection of each session.
func WithMaxCompare(n int) Option {
	return func(s *Service) {
		s.maxCompare = n
	}
}

// WithTrendYears sets the years shown by the comparison trend.
func WithTrendYears(years []string) Option {
	return func(s *Service) {
		if len(years) > 0 {
			s.trendYears = years
		}
	}
}

// WithLocalStore sets where favorites and preferences are persisted.
func WithLocalStore(store localstore.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.local = store
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

// WithClock replaces the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}
