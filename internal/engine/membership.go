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
	"github.com/Raman-Maurya/mystartup-sub001/internal/wallet"
)

// JoinContest registers a user, collecting the entry fee first. The fee
// collection is idempotent per (contest, user), so a retried join never
// double-charges; if the registration itself cannot be committed the
// fee is returned.
func (e *Engine) JoinContest(ctx context.Context, contestID, userID uuid.UUID, now time.Time) error {
	c, err := e.contests.GetContest(ctx, contestID)
	if errors.Is(err, store.ErrNotFound) {
		return errs.Wrap(errs.KindNotFound, err, "contest %s", contestID)
	}
	if err != nil {
		return fmt.Errorf("load contest %s: %w", contestID, err)
	}
	if err := joinable(c, userID, now); err != nil {
		return err
	}

	if err := e.wallets.CollectEntry(ctx, contestID, userID, c.EntryFee, now); err != nil {
		if errors.Is(err, wallet.ErrInsufficientFunds) {
			return errs.Wrap(errs.KindInsufficientBalance, err,
				"wallet cannot cover entry fee %d", c.EntryFee)
		}
		return errs.Wrap(errs.KindUnavailable, err, "collect entry fee for contest %s", contestID)
	}

	_, err = e.mutateContest(ctx, "join", contestID, func(c *contest.Contest) error {
		if err := joinable(c, userID, now); err != nil {
			return err
		}
		c.AddParticipant(userID, now)
		return nil
	})
	if err != nil {
		// Registration did not commit; return the collected fee.
		if _, rerr := e.wallets.RefundEntry(ctx, contestID, userID, c.EntryFee, now); rerr != nil {
			e.log.Error().Err(rerr).
				Str("contest_id", contestID.String()).
				Str("user_id", userID.String()).
				Msg("failed to return entry fee after aborted join")
		}
		return err
	}

	e.metrics.ParticipantJoins.Inc()
	e.log.Info().
		Str("contest_id", contestID.String()).
		Str("user_id", userID.String()).
		Msg("participant joined")
	return nil
}

// LeaveContest unregisters a user before the contest starts and refunds
// the entry fee.
func (e *Engine) LeaveContest(ctx context.Context, contestID, userID uuid.UUID, now time.Time) error {
	c, err := e.mutateContest(ctx, "leave", contestID, func(c *contest.Contest) error {
		if c.Status != contest.StatusRegistrationOpen && c.Status != contest.StatusUpcoming {
			return errs.New(errs.KindValidation,
				"cannot leave contest %s in status %s", c.ID, c.Status)
		}
		if !c.RemoveParticipant(userID) {
			return errs.New(errs.KindNotFound,
				"user %s is not a participant of contest %s", userID, c.ID)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if c.EntryFee > 0 {
		if _, err := e.wallets.RefundEntry(ctx, contestID, userID, c.EntryFee, now); err != nil {
			return errs.Wrap(errs.KindUnavailable, err,
				"refund entry fee for contest %s", contestID)
		}
	}

	e.metrics.ParticipantLeaves.Inc()
	e.log.Info().
		Str("contest_id", contestID.String()).
		Str("user_id", userID.String()).
		Msg("participant left")
	return nil
}

func joinable(c *contest.Contest, userID uuid.UUID, now time.Time) error {
	if !c.Status.Joinable() {
		return errs.New(errs.KindContestNotJoinable,
			"contest %s is %s, registration is not open", c.ID, c.Status)
	}
	if !c.Window.RegistrationEnd.IsZero() && now.After(c.Window.RegistrationEnd) {
		return errs.New(errs.KindContestNotJoinable,
			"registration for contest %s closed at %s", c.ID, c.Window.RegistrationEnd)
	}
	if c.IsFull() {
		return errs.New(errs.KindContestNotJoinable,
			"contest %s is full (%d participants)", c.ID, c.Capacity.MaxParticipants)
	}
	if c.Participant(userID) != nil {
		return errs.New(errs.KindContestNotJoinable,
			"user %s already joined contest %s", userID, c.ID)
	}
	return nil
}
