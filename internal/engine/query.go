package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/Raman-Maurya/mystartup-sub001/errs"
	"github.com/Raman-Maurya/mystartup-sub001/internal/contest"
	"github.com/Raman-Maurya/mystartup-sub001/internal/leaderboard"
	"github.com/Raman-Maurya/mystartup-sub001/internal/ledger"
	"github.com/Raman-Maurya/mystartup-sub001/internal/store"
)

// ContestStats summarizes a contest for listings and admin views.
type ContestStats struct {
	ContestID        uuid.UUID `json:"contest_id"`
	Name             string    `json:"name"`
	Status           string    `json:"status"`
	ParticipantCount int       `json:"participant_count"`
	MaxParticipants  int       `json:"max_participants"`
	TradeCount       int       `json:"trade_count"`
	OpenTradeCount   int       `json:"open_trade_count"`
	TotalVolume      int64     `json:"total_volume"`
	EntryFee         int64     `json:"entry_fee"`
	PrizePool        int64     `json:"prize_pool"`
}

// GetContest returns the contest aggregate.
func (e *Engine) GetContest(ctx context.Context, contestID uuid.UUID) (*contest.Contest, error) {
	c, err := e.contests.GetContest(ctx, contestID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, errs.Wrap(errs.KindNotFound, err, "contest %s", contestID)
	}
	if err != nil {
		return nil, fmt.Errorf("load contest %s: %w", contestID, err)
	}
	return c, nil
}

// ListContests returns contests, optionally filtered by status.
func (e *Engine) ListContests(ctx context.Context, statuses ...contest.Status) ([]*contest.Contest, error) {
	return e.contests.ListContests(ctx, statuses...)
}

// Leaderboard computes the live ranking with open positions marked to
// the latest cached prices.
func (e *Engine) Leaderboard(ctx context.Context, contestID uuid.UUID) ([]leaderboard.Entry, error) {
	c, err := e.GetContest(ctx, contestID)
	if err != nil {
		return nil, err
	}

	trades, err := e.trades.TradesByContest(ctx, contestID)
	if err != nil {
		return nil, fmt.Errorf("load trades for contest %s: %w", contestID, err)
	}

	return leaderboard.Build(c, trades, e.prices.Get), nil
}

// ParticipantTrades returns a user's trades within a contest, ordered
// by open time.
func (e *Engine) ParticipantTrades(ctx context.Context, contestID, userID uuid.UUID) ([]*ledger.Trade, error) {
	c, err := e.GetContest(ctx, contestID)
	if err != nil {
		return nil, err
	}
	if c.Participant(userID) == nil {
		return nil, errs.New(errs.KindNotFound,
			"user %s is not a participant of contest %s", userID, contestID)
	}
	return e.trades.TradesByParticipant(ctx, contestID, userID)
}

// Stats aggregates counts and volume for a contest.
func (e *Engine) Stats(ctx context.Context, contestID uuid.UUID) (*ContestStats, error) {
	c, err := e.GetContest(ctx, contestID)
	if err != nil {
		return nil, err
	}

	trades, err := e.trades.TradesByContest(ctx, contestID)
	if err != nil {
		return nil, fmt.Errorf("load trades for contest %s: %w", contestID, err)
	}

	stats := &ContestStats{
		ContestID:        c.ID,
		Name:             c.Name,
		Status:           c.Status.String(),
		ParticipantCount: len(c.Participants),
		MaxParticipants:  c.Capacity.MaxParticipants,
		TradeCount:       len(trades),
		EntryFee:         c.EntryFee,
		PrizePool:        c.PrizePool,
	}
	for _, t := range trades {
		if t.IsOpen() {
			stats.OpenTradeCount++
		}
		stats.TotalVolume += t.Cost()
	}
	return stats, nil
}
