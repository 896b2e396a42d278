// Package settlement drives the exactly-once closing of a contest:
// forced position closes at a frozen price snapshot, final scoring and
// ranking, floored prize computation, at-most-once payouts, and the
// write-once financial record. Every step is idempotent so the whole
// sequence can be re-run after a crash at any point.
package settlement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Raman-Maurya/mystartup-sub001/errs"
	"github.com/Raman-Maurya/mystartup-sub001/internal/contest"
	"github.com/Raman-Maurya/mystartup-sub001/internal/leaderboard"
	"github.com/Raman-Maurya/mystartup-sub001/internal/ledger"
	"github.com/Raman-Maurya/mystartup-sub001/internal/marketdata"
	"github.com/Raman-Maurya/mystartup-sub001/internal/scoring"
	"github.com/Raman-Maurya/mystartup-sub001/internal/store"
	"github.com/Raman-Maurya/mystartup-sub001/internal/wallet"
)

// Coordinator executes settlement and cancellation flows.
type Coordinator struct {
	contests  store.ContestStore
	trades    store.TradeStore
	points    store.PointsStore
	wallets   *wallet.Service
	snapshots *marketdata.Snapshots
	executor  *ledger.Executor
	log       zerolog.Logger
}

func NewCoordinator(
	contests store.ContestStore,
	trades store.TradeStore,
	points store.PointsStore,
	wallets *wallet.Service,
	snapshots *marketdata.Snapshots,
	log zerolog.Logger,
) *Coordinator {
	return &Coordinator{
		contests:  contests,
		trades:    trades,
		points:    points,
		wallets:   wallets,
		snapshots: snapshots,
		executor:  ledger.NewExecutor(),
		log:       log.With().Str("component", "settlement").Logger(),
	}
}

// Settle runs the full settlement sequence for a contest whose trading
// window has ended. Safe to call repeatedly: a contest that is already
// COMPLETED with recorded financials is a no-op, and a partially
// settled contest resumes from wherever the previous attempt stopped.
// The COMPLETED transition is persisted last, so the scheduler keeps
// re-dispatching the contest until everything before it succeeded.
func (co *Coordinator) Settle(ctx context.Context, contestID uuid.UUID, now time.Time) error {
	c, err := co.contests.GetContest(ctx, contestID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return errs.Wrap(errs.KindNotFound, err, "contest %s", contestID)
		}
		return fmt.Errorf("load contest %s: %w", contestID, err)
	}

	if c.Status == contest.StatusCompleted && c.Financials.Recorded() {
		co.log.Debug().Str("contest_id", contestID.String()).Msg("contest already settled")
		return nil
	}
	if c.Status != contest.StatusActive && c.Status != contest.StatusCompleted {
		return errs.New(errs.KindSettlementConflict,
			"contest %s is %s, settlement requires ACTIVE", contestID, c.Status)
	}

	log := co.log.With().Str("contest_id", contestID.String()).Logger()
	log.Info().Int("participants", len(c.Participants)).Msg("settlement started")

	trades, err := co.trades.TradesByContest(ctx, contestID)
	if err != nil {
		return fmt.Errorf("load trades: %w", err)
	}

	// Step 1: freeze prices and force-close every open position. The
	// snapshot is captured once per contest; retries reuse it.
	snap := co.snapshots.Capture(contestID, openSymbols(trades), now)
	if err := co.forceCloseAll(ctx, c, trades, snap, now); err != nil {
		return err
	}

	// Step 2: recompute final scores from fully realized PnL.
	if err := co.finalizeScores(ctx, c, trades, now); err != nil {
		return err
	}

	// Step 3: final ranking. All trades are closed, so the price
	// function is never consulted.
	entries := leaderboard.Build(c, trades, func(string) (int64, bool) { return 0, false })
	for _, e := range entries {
		p := c.Participant(e.UserID)
		if p == nil {
			continue
		}
		rank := e.Rank
		p.FinalPosition = &rank
	}

	// Steps 4+5: compute prizes and pay each winner at most once.
	totalPaid, err := co.payPrizes(ctx, c, entries, now)
	if err != nil {
		return err
	}

	// Step 6: write-once financial record. Platform revenue is the
	// configured cut of entry fees, independent of what the pool paid out.
	if !c.Financials.Recorded() {
		settledAt := now
		totalFees := c.EntryFee * int64(len(c.Participants))
		c.Financials = contest.Financials{
			TotalEntryFees:  totalFees,
			TotalPrizePaid:  totalPaid,
			PlatformRevenue: totalFees * c.PlatformFeePercent / 100,
			SettledAt:       &settledAt,
		}
	}

	// Step 7: the terminal transition commits the run. A version
	// conflict means another settler won; the retry will observe the
	// settled contest and no-op.
	if c.Status != contest.StatusCompleted {
		if !c.Status.CanTransitionTo(contest.StatusCompleted) {
			return errs.New(errs.KindSettlementConflict,
				"contest %s cannot complete from %s", contestID, c.Status)
		}
		c.Status = contest.StatusCompleted
	}

	if err := co.contests.UpdateContest(ctx, c); err != nil {
		if errors.Is(err, store.ErrVersionConflict) {
			return errs.Wrap(errs.KindConcurrentModification, err, "persist settled contest %s", contestID)
		}
		return fmt.Errorf("persist settled contest %s: %w", contestID, err)
	}

	co.snapshots.Forget(contestID)

	log.Info().
		Int64("total_prize_paid", totalPaid).
		Int64("platform_revenue", c.Financials.PlatformRevenue).
		Msg("settlement completed")
	return nil
}

// forceCloseAll closes every still-open trade at its snapshot price.
// Trades missing from the snapshot close at entry price (zero PnL),
// which keeps a dead feed from blocking settlement forever.
func (co *Coordinator) forceCloseAll(
	ctx context.Context,
	c *contest.Contest,
	trades []*ledger.Trade,
	snap *marketdata.Snapshot,
	now time.Time,
) error {
	for _, t := range trades {
		if !t.IsOpen() {
			continue
		}
		p := c.Participant(t.UserID)
		if p == nil {
			co.log.Warn().
				Str("trade_id", t.ID.String()).
				Str("user_id", t.UserID.String()).
				Msg("trade references unknown participant, skipping")
			continue
		}

		price := snap.PriceOr(t.Symbol, t.EntryPrice)
		if err := co.executor.ForceClose(p, t, price, now); err != nil {
			return fmt.Errorf("force close trade %s: %w", t.ID, err)
		}
		if err := co.trades.UpdateTrade(ctx, t); err != nil {
			return fmt.Errorf("persist forced close %s: %w", t.ID, err)
		}
	}
	return nil
}

// finalizeScores recomputes Points and RankingScore for every
// participant from realized PnL, and freezes their points records.
func (co *Coordinator) finalizeScores(
	ctx context.Context,
	c *contest.Contest,
	trades []*ledger.Trade,
	now time.Time,
) error {
	countByUser := make(map[uuid.UUID]int)
	pnlByUser := make(map[uuid.UUID]int64)
	for _, t := range trades {
		countByUser[t.UserID]++
		pnlByUser[t.UserID] += t.RealizedPnL
	}

	for _, p := range c.Participants {
		p.CurrentPnL = pnlByUser[p.UserID]
		p.Points = scoring.Score(p.CurrentPnL, c.VirtualMoneyAmount, countByUser[p.UserID])
		p.RankingScore = scoring.RankingScore(p.CurrentPnL, c.VirtualMoneyAmount)

		rec, err := co.points.GetPoints(ctx, c.ID, p.UserID)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return fmt.Errorf("load points record for %s: %w", p.UserID, err)
		}
		rec.Finalize()
		if err := co.points.SavePoints(ctx, rec); err != nil {
			return fmt.Errorf("finalize points record for %s: %w", p.UserID, err)
		}
	}
	return nil
}

// payPrizes pays every ranked winner at most once and records the prize
// on the participant. Returns the total actually owed, which is stable
// across retries because prizes derive from frozen final positions.
func (co *Coordinator) payPrizes(
	ctx context.Context,
	c *contest.Contest,
	entries []leaderboard.Entry,
	now time.Time,
) (int64, error) {
	var total int64
	for _, e := range entries {
		prize := leaderboard.PrizeForRank(c, e.Rank)
		if prize <= 0 {
			continue
		}
		total += prize

		p := c.Participant(e.UserID)
		if p != nil {
			amount := prize
			p.PrizeMoney = &amount
		}

		paid, err := co.wallets.PayPrize(ctx, c.ID, e.UserID, prize, now)
		if err != nil {
			return 0, errs.Wrap(errs.KindUnavailable, err,
				"pay prize to %s in contest %s", e.UserID, c.ID)
		}
		if paid {
			co.log.Info().
				Str("contest_id", c.ID.String()).
				Str("user_id", e.UserID.String()).
				Int("rank", e.Rank).
				Int64("prize", prize).
				Msg("prize paid")
		}
	}
	return total, nil
}

// Refund returns every participant's entry fee for a cancelled contest,
// at most once per participant. Runs after the CANCELLED transition has
// been persisted, and is safe to re-run.
func (co *Coordinator) Refund(ctx context.Context, c *contest.Contest, now time.Time) error {
	if c.Status != contest.StatusCancelled {
		return errs.New(errs.KindSettlementConflict,
			"contest %s is %s, refunds require CANCELLED", c.ID, c.Status)
	}
	if c.EntryFee == 0 {
		return nil
	}

	for _, p := range c.Participants {
		refunded, err := co.wallets.RefundEntry(ctx, c.ID, p.UserID, c.EntryFee, now)
		if err != nil {
			return errs.Wrap(errs.KindUnavailable, err,
				"refund %s in contest %s", p.UserID, c.ID)
		}
		if refunded {
			co.log.Info().
				Str("contest_id", c.ID.String()).
				Str("user_id", p.UserID.String()).
				Int64("amount", c.EntryFee).
				Msg("entry fee refunded")
		}
	}
	return nil
}

func openSymbols(trades []*ledger.Trade) []string {
	seen := make(map[string]bool)
	var out []string
	for _, t := range trades {
		if t.IsOpen() && !seen[t.Symbol] {
			seen[t.Symbol] = true
			out = append(out, t.Symbol)
		}
	}
	return out
}
