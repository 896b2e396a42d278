// Package scheduler drives time-based contest transitions: it sweeps
// non-terminal contests on an interval and asks the engine to apply
// whatever transition is due. All sweep work is idempotent, so
// overlapping instances or missed ticks only delay transitions, never
// corrupt them.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Raman-Maurya/mystartup-sub001/internal/contest"
	"github.com/Raman-Maurya/mystartup-sub001/internal/observability"
)

// Lifecycle is the slice of the engine the scheduler needs.
type Lifecycle interface {
	ListContests(ctx context.Context, statuses ...contest.Status) ([]*contest.Contest, error)
	AdvanceLifecycle(ctx context.Context, contestID uuid.UUID, now time.Time) error
}

// Scheduler periodically sweeps contests whose next transition may be due.
type Scheduler struct {
	engine   Lifecycle
	interval time.Duration
	metrics  *observability.Metrics
	log      zerolog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(engine Lifecycle, interval time.Duration, metrics *observability.Metrics, log zerolog.Logger) *Scheduler {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Scheduler{
		engine:   engine,
		interval: interval,
		metrics:  metrics,
		log:      log.With().Str("component", "scheduler").Logger(),
	}
}

// Start launches the sweep loop. Non-blocking; call Stop to terminate.
func (s *Scheduler) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.log.Info().Dur("interval", s.interval).Msg("scheduler started")
		for {
			select {
			case <-ctx.Done():
				s.log.Info().Msg("scheduler stopped")
				return
			case <-ticker.C:
				s.Sweep(ctx, time.Now().UTC())
			}
		}
	}()
}

// Stop cancels the loop and waits for in-flight sweep work.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

// Sweep examines every non-terminal contest once and dispatches due
// transitions concurrently, one goroutine per contest. Contest-level
// serialization is the engine's job; the sweep only fans out.
func (s *Scheduler) Sweep(ctx context.Context, now time.Time) {
	start := time.Now()

	contests, err := s.engine.ListContests(ctx,
		contest.StatusUpcoming,
		contest.StatusRegistrationOpen,
		contest.StatusActive,
	)
	if err != nil {
		s.log.Error().Err(err).Msg("sweep failed to list contests")
		return
	}

	s.metrics.SweepContests.Set(float64(len(contests)))

	var wg sync.WaitGroup
	for _, c := range contests {
		if _, due := contest.NextStatusAt(c, now); !due {
			continue
		}

		wg.Add(1)
		go func(c *contest.Contest) {
			defer wg.Done()
			if err := s.engine.AdvanceLifecycle(ctx, c.ID, now); err != nil {
				s.log.Error().Err(err).
					Str("contest_id", c.ID.String()).
					Str("status", c.Status.String()).
					Msg("lifecycle advance failed")
			}
		}(c)
	}
	wg.Wait()

	s.metrics.SweepDuration.Observe(time.Since(start).Seconds())
}
