// Package leaderboard computes the totally ordered ranking of contest
// participants with deterministic tie-breaks, plus point-in-time
// projected prize estimates.
package leaderboard

import (
	"sort"

	"github.com/google/uuid"

	"github.com/Raman-Maurya/mystartup-sub001/internal/contest"
	"github.com/Raman-Maurya/mystartup-sub001/internal/ledger"
	"github.com/Raman-Maurya/mystartup-sub001/internal/scoring"
)

// PriceFunc resolves the current marking price for a symbol. A false
// return means no price has ever been observed; the open trade is then
// marked at its entry price (zero unrealized PnL) rather than failing
// the whole build.
type PriceFunc func(symbol string) (int64, bool)

// Entry is one row of the computed leaderboard.
type Entry struct {
	UserID         uuid.UUID `json:"user_id"`
	Rank           int       `json:"rank"`
	TotalPnL       int64     `json:"total_pnl"`
	Points         int64     `json:"points"`
	RankingScore   int64     `json:"ranking_score"`
	TradeCount     int       `json:"trade_count"`
	ProjectedPrize int64     `json:"projected_prize"`
}

// Build produces the ranking for a contest from its participants and
// every trade referencing it. Ordering: rankingScore desc, then points
// desc, then raw totalPnL desc; remaining ties keep the original
// participant-list order. The sort is stable, so re-running the builder
// on unchanged input yields an identical leaderboard.
func Build(c *contest.Contest, trades []*ledger.Trade, price PriceFunc) []Entry {
	pnlByUser := make(map[uuid.UUID]int64, len(c.Participants))
	countByUser := make(map[uuid.UUID]int, len(c.Participants))

	for _, t := range trades {
		countByUser[t.UserID]++
		if t.IsOpen() {
			mark := t.EntryPrice
			if p, ok := price(t.Symbol); ok {
				mark = p
			}
			pnlByUser[t.UserID] += t.PnLAt(mark)
		} else {
			pnlByUser[t.UserID] += t.RealizedPnL
		}
	}

	entries := make([]Entry, 0, len(c.Participants))
	for _, p := range c.Participants {
		pnl := pnlByUser[p.UserID]
		entries = append(entries, Entry{
			UserID:       p.UserID,
			TotalPnL:     pnl,
			Points:       scoring.Score(pnl, c.VirtualMoneyAmount, countByUser[p.UserID]),
			RankingScore: scoring.RankingScore(pnl, c.VirtualMoneyAmount),
			TradeCount:   countByUser[p.UserID],
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].RankingScore != entries[j].RankingScore {
			return entries[i].RankingScore > entries[j].RankingScore
		}
		if entries[i].Points != entries[j].Points {
			return entries[i].Points > entries[j].Points
		}
		return entries[i].TotalPnL > entries[j].TotalPnL
	})

	for i := range entries {
		entries[i].Rank = i + 1
		entries[i].ProjectedPrize = PrizeForRank(c, entries[i].Rank)
	}

	return entries
}

// PrizeForRank computes the prize amount for a final rank. Floor
// rounding via integer division guarantees the allocated total never
// exceeds the pool. Head-to-head contests award the full pool to rank 1
// regardless of the configured distribution table.
func PrizeForRank(c *contest.Contest, rank int) int64 {
	if c.IsHeadToHead() {
		if rank == 1 {
			return c.PrizePool
		}
		return 0
	}

	pct := c.PrizeDistribution.PercentForRank(rank)
	return c.PrizePool * pct / 100
}
