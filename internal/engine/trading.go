package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Raman-Maurya/mystartup-sub001/errs"
	"github.com/Raman-Maurya/mystartup-sub001/internal/contest"
	"github.com/Raman-Maurya/mystartup-sub001/internal/ledger"
	"github.com/Raman-Maurya/mystartup-sub001/internal/scoring"
	"github.com/Raman-Maurya/mystartup-sub001/internal/store"
)

// PlaceTrade opens a position at the current market price. The price is
// fetched before the mutation loop so a feed outage fails fast without
// touching any state.
func (e *Engine) PlaceTrade(
	ctx context.Context,
	contestID, userID uuid.UUID,
	symbol string,
	direction ledger.Direction,
	quantity int64,
	now time.Time,
) (*ledger.Trade, error) {
	price, err := e.prices.Price(symbol)
	if err != nil {
		return nil, err
	}

	var trade *ledger.Trade
	_, err = e.mutateContest(ctx, "place_trade", contestID, func(c *contest.Contest) error {
		p := c.Participant(userID)
		if p == nil {
			return errs.New(errs.KindNotFound,
				"user %s is not a participant of contest %s", userID, c.ID)
		}

		t, err := e.executor.Open(c, p, symbol, direction, quantity, price, now)
		if err != nil {
			return err
		}
		trade = t
		return nil
	})
	if err != nil {
		e.metrics.TradesRejected.WithLabelValues(string(errs.KindOf(err))).Inc()
		return nil, err
	}

	// The contest update is the commit point: the participant's balance
	// debit and trade reference are already durable. The trade row is
	// derived state written afterward.
	if err := e.trades.CreateTrade(ctx, trade); err != nil {
		e.log.Error().Err(err).
			Str("trade_id", trade.ID.String()).
			Str("contest_id", contestID.String()).
			Msg("trade committed on contest but row insert failed")
		return nil, fmt.Errorf("persist trade %s: %w", trade.ID, err)
	}

	e.metrics.TradesOpened.Inc()
	e.log.Info().
		Str("trade_id", trade.ID.String()).
		Str("contest_id", contestID.String()).
		Str("user_id", userID.String()).
		Str("symbol", symbol).
		Str("direction", direction.String()).
		Int64("quantity", quantity).
		Int64("price", price).
		Msg("trade opened")
	return trade, nil
}

// CloseTrade realizes PnL for an open trade at the current market
// price, then feeds the close into the participant's points record.
func (e *Engine) CloseTrade(ctx context.Context, contestID, userID, tradeID uuid.UUID, now time.Time) (*ledger.Trade, error) {
	initial, err := e.loadOwnedTrade(ctx, contestID, userID, tradeID)
	if err != nil {
		return nil, err
	}
	if !initial.IsOpen() {
		return nil, errs.New(errs.KindAlreadyClosed, "trade %s is already closed", tradeID)
	}

	price, err := e.prices.Price(initial.Symbol)
	if err != nil {
		return nil, err
	}

	var trade *ledger.Trade
	_, err = e.mutateContest(ctx, "close_trade", contestID, func(c *contest.Contest) error {
		p := c.Participant(userID)
		if p == nil {
			return errs.New(errs.KindNotFound,
				"user %s is not a participant of contest %s", userID, c.ID)
		}

		// Reload per attempt: a lost race may have closed it meanwhile.
		t, err := e.loadOwnedTrade(ctx, contestID, userID, tradeID)
		if err != nil {
			return err
		}
		if err := e.executor.Close(p, t, price, now); err != nil {
			return err
		}
		// Keep the aggregate's live scores in step with realized PnL so
		// contest reads agree with the leaderboard between closes.
		p.Points = scoring.Score(p.CurrentPnL, c.VirtualMoneyAmount, p.TradeCount())
		p.RankingScore = scoring.RankingScore(p.CurrentPnL, c.VirtualMoneyAmount)
		trade = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := e.trades.UpdateTrade(ctx, trade); err != nil {
		return nil, fmt.Errorf("persist closed trade %s: %w", tradeID, err)
	}

	if err := e.recordPoints(ctx, contestID, userID, trade, now); err != nil {
		// Points are a derived reward stream; a failed write must not
		// fail the close that already committed.
		e.log.Error().Err(err).
			Str("trade_id", tradeID.String()).
			Msg("failed to record points for closed trade")
	}

	e.metrics.TradesClosed.WithLabelValues("user").Inc()
	e.log.Info().
		Str("trade_id", tradeID.String()).
		Str("contest_id", contestID.String()).
		Str("user_id", userID.String()).
		Int64("exit_price", price).
		Int64("realized_pnl", trade.RealizedPnL).
		Msg("trade closed")
	return trade, nil
}

func (e *Engine) loadOwnedTrade(ctx context.Context, contestID, userID, tradeID uuid.UUID) (*ledger.Trade, error) {
	t, err := e.trades.GetTrade(ctx, tradeID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, errs.Wrap(errs.KindNotFound, err, "trade %s", tradeID)
	}
	if err != nil {
		return nil, fmt.Errorf("load trade %s: %w", tradeID, err)
	}
	if t.ContestID != contestID || t.UserID != userID {
		// Ownership failures report not_found rather than leaking that
		// the trade exists.
		return nil, errs.New(errs.KindNotFound, "trade %s", tradeID)
	}
	return t, nil
}

func (e *Engine) recordPoints(ctx context.Context, contestID, userID uuid.UUID, t *ledger.Trade, now time.Time) error {
	rec, err := e.points.GetPoints(ctx, contestID, userID)
	if errors.Is(err, store.ErrNotFound) {
		rec = scoring.NewPointsRecord(userID, contestID)
	} else if err != nil {
		return fmt.Errorf("load points record: %w", err)
	}

	rec.RecordClose(t, now)
	return e.points.SavePoints(ctx, rec)
}
