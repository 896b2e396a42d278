// Package scoring holds the pure scoring functions. Both functions are
// deterministic in their inputs — no clock, no randomness — so scores
// can be recomputed after a crash mid-settlement and reproduce exactly.
package scoring

import "math"

const (
	baseScore          = 200.0
	participationCap   = 30.0
	participationRate  = 2.0
	lossFloor          = 100.0
	rankingBase        = 1000.0
	rankingLossBase    = 500.0
	rankingLossFloor   = 100.0
)

// pnlPercent converts fixed-point cents to a percentage return.
func pnlPercent(pnl, initialBalance int64) float64 {
	if initialBalance == 0 {
		return 0
	}
	return 100 * float64(pnl) / float64(initialBalance)
}

// Score maps (cumulative PnL, initial balance, trade count) to the
// participant-visible points total, rounded to the nearest integer.
//
// Gains earn logarithmic points so a 10x return does not earn 10x
// points; losses are floored at 100 so a blowup cannot go to zero. A
// capped participation bonus rewards activity without dominating PnL.
func Score(pnl, initialBalance int64, tradeCount int) int64 {
	pct := pnlPercent(pnl, initialBalance)

	var points float64
	switch {
	case pct > 0:
		points = baseScore + 500*math.Log10(pct+1)
	case pct < 0:
		points = math.Max(lossFloor, baseScore+8*pct)
	default:
		points = baseScore
	}

	points += math.Min(participationCap, participationRate*float64(tradeCount))

	return int64(math.Round(points))
}

// RankingScore is the payout-authoritative ordering key. It weights PnL
// more aggressively than Score and carries no participation bonus, so
// promotional point multipliers can never change who gets paid.
func RankingScore(pnl, initialBalance int64) int64 {
	pct := pnlPercent(pnl, initialBalance)

	if pct > 0 {
		return int64(math.Round(rankingBase + 300*math.Sqrt(pct)))
	}
	return int64(math.Round(math.Max(rankingLossFloor, rankingLossBase+20*pct)))
}
