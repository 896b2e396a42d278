// Package ledger owns trade execution against per-participant virtual
// balances: opening and closing positions, realized PnL, and the
// non-negative balance invariant. Amounts are fixed-point cents.
package ledger

import (
	"time"

	"github.com/google/uuid"
)

// Direction is the trade side.
type Direction int32

const (
	DirectionBuy Direction = iota
	DirectionSell
)

func (d Direction) String() string {
	switch d {
	case DirectionBuy:
		return "BUY"
	case DirectionSell:
		return "SELL"
	default:
		return "UNKNOWN"
	}
}

// ParseDirection converts the wire/storage representation.
func ParseDirection(s string) (Direction, bool) {
	switch s {
	case "BUY":
		return DirectionBuy, true
	case "SELL":
		return DirectionSell, true
	}
	return DirectionBuy, false
}

// TradeStatus tracks a trade's open/closed state.
type TradeStatus int32

const (
	TradeStatusOpen TradeStatus = iota
	TradeStatusClosed
)

func (s TradeStatus) String() string {
	if s == TradeStatusClosed {
		return "CLOSED"
	}
	return "OPEN"
}

// ParseTradeStatus converts the wire/storage representation.
func ParseTradeStatus(s string) (TradeStatus, bool) {
	switch s {
	case "OPEN":
		return TradeStatusOpen, true
	case "CLOSED":
		return TradeStatusClosed, true
	}
	return TradeStatusOpen, false
}

// Trade belongs to exactly one (user, contest) pair. Created on entry,
// mutated once on close, immutable afterward.
type Trade struct {
	ID        uuid.UUID   `json:"id"`
	ContestID uuid.UUID   `json:"contest_id"`
	UserID    uuid.UUID   `json:"user_id"`
	Symbol    string      `json:"symbol"`
	Direction Direction   `json:"direction"`
	Quantity  int64       `json:"quantity"`
	EntryPrice int64      `json:"entry_price"` // cents
	Status    TradeStatus `json:"status"`

	// Valid only when Status == CLOSED.
	ExitPrice   int64      `json:"exit_price"`
	RealizedPnL int64      `json:"realized_pnl"`
	OpenedAt    time.Time  `json:"opened_at"`
	ClosedAt    *time.Time `json:"closed_at,omitempty"`
}

// Cost returns the capital debited from the virtual balance at entry.
func (t *Trade) Cost() int64 {
	return t.Quantity * t.EntryPrice
}

// IsOpen reports whether the trade still has market exposure.
func (t *Trade) IsOpen() bool {
	return t.Status == TradeStatusOpen
}

// PnLAt marks the trade to a price: (price-entry)*qty for a BUY, the
// mirror for a SELL. For closed trades this equals RealizedPnL when
// called with the exit price.
func (t *Trade) PnLAt(price int64) int64 {
	if t.Direction == DirectionBuy {
		return (price - t.EntryPrice) * t.Quantity
	}
	return (t.EntryPrice - price) * t.Quantity
}
