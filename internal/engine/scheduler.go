package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"tourneysync/internal/domain"
)

const (
	// DefaultRefreshInterval matches the observed client's poll cadence.
	DefaultRefreshInterval = 30 * time.Second
	// DefaultRefreshTimeout bounds one authoritative fetch; past it the
	// refresh counts as failed and cached state is retained.
	DefaultRefreshTimeout = 10 * time.Second
	// DefaultMutationDelay is how soon after a locally-issued mutation a
	// forced refresh runs, shortening the optimistic divergence window.
	DefaultMutationDelay = 500 * time.Millisecond
)

// Scheduler owns when authoritative refreshes happen: on a fixed interval
// while the session lives, and shortly after every local mutation.
// Concurrent refresh requests coalesce onto the in-flight call instead of
// fetching twice.
type Scheduler struct {
	refresh  func(context.Context) error
	interval time.Duration
	timeout  time.Duration
	delay    time.Duration
	logger   *slog.Logger

	kick chan struct{}

	mu       sync.Mutex
	inflight chan struct{}
	lastErr  error
}

func NewScheduler(refresh func(context.Context) error, interval, timeout, delay time.Duration, logger *slog.Logger) *Scheduler {
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	if timeout <= 0 {
		timeout = DefaultRefreshTimeout
	}
	if delay <= 0 {
		delay = DefaultMutationDelay
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		refresh:  refresh,
		interval: interval,
		timeout:  timeout,
		delay:    delay,
		logger:   logger,
		kick:     make(chan struct{}, 1),
	}
}

// Run polls until ctx is cancelled or authorization is lost. It performs an
// immediate refresh before settling into the interval.
func (s *Scheduler) Run(ctx context.Context) {
	if err := s.RefreshNow(ctx); s.fatal(err) {
		return
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-s.kick:
		}
		if err := s.RefreshNow(ctx); s.fatal(err) {
			return
		}
	}
}

func (s *Scheduler) fatal(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, domain.ErrAuthExpired):
		s.logger.Info("refresh stopped: authorization expired")
		return true
	case errors.Is(err, context.Canceled):
		return true
	default:
		s.logger.Warn("refresh failed, cache retained", "err", err)
		return false
	}
}

// Kick schedules a forced refresh after the mutation delay. Multiple kicks
// inside the window collapse into one refresh.
func (s *Scheduler) Kick() {
	time.AfterFunc(s.delay, func() {
		select {
		case s.kick <- struct{}{}:
		default:
		}
	})
}

// RefreshNow performs (or joins) one refresh. If a refresh is already in
// flight the call waits for its result instead of starting a second fetch.
func (s *Scheduler) RefreshNow(ctx context.Context) error {
	s.mu.Lock()
	if ch := s.inflight; ch != nil {
		s.mu.Unlock()
		select {
		case <-ch:
			s.mu.Lock()
			err := s.lastErr
			s.mu.Unlock()
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	done := make(chan struct{})
	s.inflight = done
	s.mu.Unlock()

	rctx, cancel := context.WithTimeout(ctx, s.timeout)
	err := s.refresh(rctx)
	cancel()
	if err != nil && errors.Is(err, context.DeadlineExceeded) {
		err = domain.NewNetworkError("refresh", err)
	}

	s.mu.Lock()
	s.lastErr = err
	s.inflight = nil
	s.mu.Unlock()
	close(done)
	return err
}
