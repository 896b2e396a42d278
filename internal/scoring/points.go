package scoring

import (
	"time"

	"github.com/google/uuid"

	"github.com/Raman-Maurya/mystartup-sub001/internal/ledger"
)

// Point awards per closed trade. The event log exists for auditability:
// every award references the trade that triggered it.
const (
	profitableTradeAward = 5
	streakAward          = 10
	streakLength         = 3
)

// RecordStatus mirrors the contest lifecycle for the points accumulator.
type RecordStatus int32

const (
	RecordStatusActive RecordStatus = iota
	RecordStatusCompleted
)

func (s RecordStatus) String() string {
	if s == RecordStatusCompleted {
		return "COMPLETED"
	}
	return "ACTIVE"
}

// PointEvent is one append-only entry in the earning log.
type PointEvent struct {
	TradeID uuid.UUID `json:"trade_id"`
	Points  int64     `json:"points"`
	Reason  string    `json:"reason"`
	At      time.Time `json:"at"`
}

// PointsRecord is the per-(user, contest) accumulator. Created on first
// trade, finalized at settlement.
type PointsRecord struct {
	UserID                          uuid.UUID    `json:"user_id"`
	ContestID                       uuid.UUID    `json:"contest_id"`
	TotalPoints                     int64        `json:"total_points"`
	ConsecutiveProfitableTrades     int          `json:"consecutive_profitable_trades"`
	MaxConsecutiveProfitableTrades  int          `json:"max_consecutive_profitable_trades"`
	Status                          RecordStatus `json:"status"`
	Log                             []PointEvent `json:"log"`
}

// NewPointsRecord creates the accumulator for a (user, contest) pair.
func NewPointsRecord(userID, contestID uuid.UUID) *PointsRecord {
	return &PointsRecord{
		UserID:    userID,
		ContestID: contestID,
		Status:    RecordStatusActive,
	}
}

// RecordClose applies a closed trade to the accumulator: profitable
// closes extend the streak and earn award events, losses reset it.
func (r *PointsRecord) RecordClose(t *ledger.Trade, now time.Time) {
	if r.Status != RecordStatusActive || t.Status != ledger.TradeStatusClosed {
		return
	}

	if t.RealizedPnL <= 0 {
		r.ConsecutiveProfitableTrades = 0
		return
	}

	r.ConsecutiveProfitableTrades++
	if r.ConsecutiveProfitableTrades > r.MaxConsecutiveProfitableTrades {
		r.MaxConsecutiveProfitableTrades = r.ConsecutiveProfitableTrades
	}

	r.award(t.ID, profitableTradeAward, "profitable_trade", now)
	if r.ConsecutiveProfitableTrades > 0 && r.ConsecutiveProfitableTrades%streakLength == 0 {
		r.award(t.ID, streakAward, "profit_streak", now)
	}
}

func (r *PointsRecord) award(tradeID uuid.UUID, points int64, reason string, now time.Time) {
	r.TotalPoints += points
	r.Log = append(r.Log, PointEvent{
		TradeID: tradeID,
		Points:  points,
		Reason:  reason,
		At:      now,
	})
}

// Finalize freezes the record at settlement. Idempotent.
func (r *PointsRecord) Finalize() {
	r.Status = RecordStatusCompleted
}
