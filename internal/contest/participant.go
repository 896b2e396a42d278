package contest

import (
	"time"

	"github.com/google/uuid"
)

// Participant is a user's standing inside one contest. Embedded in the
// Contest aggregate and mutated only through the engine. Trades are
// referenced by ID, not embedded, so trade rows can be updated without
// re-serializing the whole contest.
type Participant struct {
	UserID         uuid.UUID `json:"user_id"`
	JoinedAt       time.Time `json:"joined_at"`
	VirtualBalance int64     `json:"virtual_balance"` // spendable capital, never negative
	CurrentPnL     int64     `json:"current_pnl"`     // realized, cents
	Points         int64     `json:"points"`          // user-facing score
	RankingScore   int64     `json:"ranking_score"`   // payout-authoritative score
	TradeIDs       []uuid.UUID `json:"trade_ids"`
	OpenPositions  int       `json:"open_positions"`

	// Settlement output. Nil until the contest is settled.
	FinalPosition *int   `json:"final_position,omitempty"`
	PrizeMoney    *int64 `json:"prize_money,omitempty"`
}

// TradeCount returns the total number of trades ever opened.
func (p *Participant) TradeCount() int {
	return len(p.TradeIDs)
}

// Settled reports whether settlement has assigned a final rank.
func (p *Participant) Settled() bool {
	return p.FinalPosition != nil
}
