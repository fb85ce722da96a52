package auth

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cfressle/webshelf/internal/logging"
)

// DefaultRefreshInterval is the background refresh period. It must stay well
// under the shortest access-token lifetime minus the refresh threshold, or a
// request could observe an expired credential between ticks.
const DefaultRefreshInterval = 45 * time.Minute

// minAccessTokenLifetime is the shortest plausible lifetime of a Google
// access token, used to enforce the interval/threshold invariant.
const minAccessTokenLifetime = time.Hour

// Scheduler re-validates the credential on a fixed period, off the request
// path. A failed tick is logged and the next tick retries; this is the only
// retry mechanism in the system.
type Scheduler struct {
	manager     *Manager
	interval    time.Duration
	authTimeout time.Duration
	logger      *slog.Logger
	wg          sync.WaitGroup
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithInterval overrides the refresh period.
func WithInterval(d time.Duration) SchedulerOption {
	return func(s *Scheduler) { s.interval = d }
}

// WithAuthTimeout bounds an interactive authorization triggered from a tick.
// Zero means no bound: a hung consent flow blocks the scheduler until it
// resolves, and the server keeps serving on the last good credential.
func WithAuthTimeout(d time.Duration) SchedulerOption {
	return func(s *Scheduler) { s.authTimeout = d }
}

// WithSchedulerLogger sets the scheduler's logger.
func WithSchedulerLogger(logger *slog.Logger) SchedulerOption {
	return func(s *Scheduler) { s.logger = logger }
}

// NewScheduler creates a background refresh scheduler for the manager. It
// rejects intervals that could let a credential expire between ticks.
func NewScheduler(manager *Manager, opts ...SchedulerOption) (*Scheduler, error) {
	s := &Scheduler{
		manager:  manager,
		interval: DefaultRefreshInterval,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.interval <= 0 {
		return nil, fmt.Errorf("refresh interval must be positive, got %v", s.interval)
	}
	if s.interval >= minAccessTokenLifetime-manager.Threshold() {
		return nil, fmt.Errorf("refresh interval %v must be below %v (token lifetime minus refresh threshold)",
			s.interval, minAccessTokenLifetime-manager.Threshold())
	}

	return s, nil
}

// Start launches the refresh loop. It returns immediately; the loop stops
// when ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run(ctx)
	}()
}

// Wait blocks until the refresh loop has exited.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

func (s *Scheduler) run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// tick makes exactly one EnsureValid attempt. Failures never terminate the
// loop; the next tick is the retry.
func (s *Scheduler) tick(ctx context.Context) {
	tickCtx := ctx
	if s.authTimeout > 0 {
		var cancel context.CancelFunc
		tickCtx, cancel = context.WithTimeout(ctx, s.authTimeout)
		defer cancel()
	}

	if _, err := s.manager.EnsureValid(tickCtx); err != nil {
		s.logger.Error("scheduled credential refresh failed, will retry next tick",
			logging.Operation("refresh_tick"), logging.Err(err))
		return
	}

	s.logger.Debug("scheduled credential refresh completed",
		logging.Operation("refresh_tick"), logging.Status(logging.StatusSuccess))
}
