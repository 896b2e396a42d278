package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Raman-Maurya/mystartup-sub001/errs"
	"github.com/Raman-Maurya/mystartup-sub001/internal/contest"
	"github.com/Raman-Maurya/mystartup-sub001/internal/store"
)

// CreateContest validates and persists a new contest in DRAFT. Fills
// the virtual money amount from the capacity tier when unset.
func (e *Engine) CreateContest(ctx context.Context, c *contest.Contest, now time.Time) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.VirtualMoneyAmount == 0 {
		c.VirtualMoneyAmount = contest.DefaultVirtualMoney(c.Capacity.MaxParticipants)
	}
	c.Status = contest.StatusDraft
	c.CreatedAt = now
	c.UpdatedAt = now

	if err := c.Validate(); err != nil {
		return err
	}

	if err := e.contests.CreateContest(ctx, c); err != nil {
		return fmt.Errorf("create contest: %w", err)
	}

	e.log.Info().
		Str("contest_id", c.ID.String()).
		Str("name", c.Name).
		Int64("entry_fee", c.EntryFee).
		Int64("prize_pool", c.PrizePool).
		Msg("contest created")
	return nil
}

// Publish moves a DRAFT contest to UPCOMING, making it visible and
// eligible for the scheduler's lifecycle sweep.
func (e *Engine) Publish(ctx context.Context, contestID uuid.UUID) error {
	_, err := e.mutateContest(ctx, "publish", contestID, func(c *contest.Contest) error {
		return transition(c, contest.StatusUpcoming)
	})
	if err != nil {
		return err
	}
	e.metrics.ContestTransitions.WithLabelValues(contest.StatusUpcoming.String()).Inc()
	return nil
}

// Cancel aborts a contest that has not started trading, then refunds
// every collected entry fee. The CANCELLED transition persists first so
// a crash mid-refund resumes from the refund loop, which is
// at-most-once per participant.
func (e *Engine) Cancel(ctx context.Context, contestID uuid.UUID, now time.Time) error {
	c, err := e.mutateContest(ctx, "cancel", contestID, func(c *contest.Contest) error {
		return transition(c, contest.StatusCancelled)
	})
	if err != nil {
		if errs.IsKind(err, errs.KindValidation) {
			// Idempotent cancel: an already-cancelled contest still needs
			// its refund pass re-run.
			existing, gerr := e.contests.GetContest(ctx, contestID)
			if gerr == nil && existing.Status == contest.StatusCancelled {
				return e.refundCancelled(ctx, existing, now)
			}
		}
		return err
	}

	e.metrics.ContestTransitions.WithLabelValues(contest.StatusCancelled.String()).Inc()
	e.log.Info().Str("contest_id", contestID.String()).Msg("contest cancelled")

	return e.refundCancelled(ctx, c, now)
}

func (e *Engine) refundCancelled(ctx context.Context, c *contest.Contest, now time.Time) error {
	if err := e.settler.Refund(ctx, c, now); err != nil {
		return err
	}
	e.metrics.RefundsIssued.Add(float64(len(c.Participants)))
	return nil
}

// AdvanceLifecycle applies the single time-driven transition due for a
// contest, if any. The ACTIVE→COMPLETED edge routes through full
// settlement rather than a bare status flip. No-op when nothing is due,
// so the scheduler can call this blindly every sweep.
func (e *Engine) AdvanceLifecycle(ctx context.Context, contestID uuid.UUID, now time.Time) error {
	c, err := e.contests.GetContest(ctx, contestID)
	if errors.Is(err, store.ErrNotFound) {
		return errs.Wrap(errs.KindNotFound, err, "contest %s", contestID)
	}
	if err != nil {
		return fmt.Errorf("load contest %s: %w", contestID, err)
	}

	next, due := contest.NextStatusAt(c, now)
	if !due {
		return nil
	}

	if next == contest.StatusCompleted {
		return e.Settle(ctx, contestID, now)
	}

	_, err = e.mutateContest(ctx, "advance", contestID, func(c *contest.Contest) error {
		// Re-derive inside the mutation: another instance may have
		// already advanced this contest.
		fresh, stillDue := contest.NextStatusAt(c, now)
		if !stillDue || fresh == contest.StatusCompleted {
			return errs.New(errs.KindSettlementConflict, "transition no longer due for contest %s", c.ID)
		}
		return transition(c, fresh)
	})
	if err != nil {
		if errs.IsKind(err, errs.KindSettlementConflict) {
			return nil
		}
		return err
	}

	e.metrics.ContestTransitions.WithLabelValues(next.String()).Inc()
	e.log.Info().
		Str("contest_id", contestID.String()).
		Str("to", next.String()).
		Msg("contest advanced")
	return nil
}

// Settle runs settlement, absorbing lost version races by retrying: the
// loser of a race re-reads and observes either a settled contest
// (no-op) or resumable partial progress.
func (e *Engine) Settle(ctx context.Context, contestID uuid.UUID, now time.Time) error {
	start := time.Now()
	var err error
	for attempt := 0; attempt < maxMutationRetries; attempt++ {
		err = e.settler.Settle(ctx, contestID, now)
		if err == nil {
			e.metrics.SettlementsCompleted.Inc()
			e.metrics.SettlementDuration.Observe(time.Since(start).Seconds())
			return nil
		}
		if !errs.Retryable(err) {
			break
		}
		e.metrics.VersionConflicts.WithLabelValues("settle").Inc()
	}

	e.metrics.SettlementsFailed.Inc()
	return err
}

func transition(c *contest.Contest, next contest.Status) error {
	if !c.Status.CanTransitionTo(next) {
		return errs.New(errs.KindValidation,
			"contest %s cannot move %s -> %s", c.ID, c.Status, next)
	}
	c.Status = next
	return nil
}
