// Package engine is the orchestration facade over the contest domain:
// every mutation flows through a per-contest optimistic read-modify-write
// cycle, so two concurrent operations on the same contest never
// interleave partial updates.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Raman-Maurya/mystartup-sub001/errs"
	"github.com/Raman-Maurya/mystartup-sub001/internal/contest"
	"github.com/Raman-Maurya/mystartup-sub001/internal/ledger"
	"github.com/Raman-Maurya/mystartup-sub001/internal/marketdata"
	"github.com/Raman-Maurya/mystartup-sub001/internal/observability"
	"github.com/Raman-Maurya/mystartup-sub001/internal/settlement"
	"github.com/Raman-Maurya/mystartup-sub001/internal/store"
	"github.com/Raman-Maurya/mystartup-sub001/internal/wallet"
)

// maxMutationRetries bounds the optimistic retry loop. Conflicts beyond
// this surface as concurrent_modification and the client retries.
const maxMutationRetries = 5

// Engine wires the stores, the price cache, the wallet service, and the
// settlement coordinator behind the operation API used by the HTTP
// server and the scheduler.
type Engine struct {
	contests store.ContestStore
	trades   store.TradeStore
	points   store.PointsStore
	wallets  *wallet.Service
	prices   *marketdata.Cache
	settler  *settlement.Coordinator
	executor *ledger.Executor
	metrics  *observability.Metrics
	log      zerolog.Logger
}

func New(
	contests store.ContestStore,
	trades store.TradeStore,
	points store.PointsStore,
	wallets *wallet.Service,
	prices *marketdata.Cache,
	settler *settlement.Coordinator,
	metrics *observability.Metrics,
	log zerolog.Logger,
) *Engine {
	return &Engine{
		contests: contests,
		trades:   trades,
		points:   points,
		wallets:  wallets,
		prices:   prices,
		settler:  settler,
		executor: ledger.NewExecutor(),
		metrics:  metrics,
		log:      log.With().Str("component", "engine").Logger(),
	}
}

// mutateContest runs fn against a fresh copy of the contest and
// persists the result, retrying with backoff on version conflicts. fn
// must be side-effect free until the returned error is nil: it may run
// several times against different snapshots.
func (e *Engine) mutateContest(
	ctx context.Context,
	op string,
	id uuid.UUID,
	fn func(c *contest.Contest) error,
) (*contest.Contest, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 10 * time.Millisecond
	bo.MaxInterval = 250 * time.Millisecond

	var attempts int
	for {
		c, err := e.contests.GetContest(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			return nil, errs.Wrap(errs.KindNotFound, err, "contest %s", id)
		}
		if err != nil {
			return nil, fmt.Errorf("load contest %s: %w", id, err)
		}

		if err := fn(c); err != nil {
			return nil, err
		}

		err = e.contests.UpdateContest(ctx, c)
		if err == nil {
			e.metrics.MutationRetries.Observe(float64(attempts))
			return c, nil
		}
		if !errors.Is(err, store.ErrVersionConflict) {
			return nil, fmt.Errorf("%s contest %s: %w", op, id, err)
		}

		e.metrics.VersionConflicts.WithLabelValues(op).Inc()
		attempts++
		if attempts >= maxMutationRetries {
			return nil, errs.Wrap(errs.KindConcurrentModification, err,
				"%s on contest %s failed after %d attempts", op, id, attempts)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(bo.NextBackOff()):
		}
	}
}
