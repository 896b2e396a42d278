package ledger

import (
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/Raman-Maurya/mystartup-sub001/errs"
	"github.com/Raman-Maurya/mystartup-sub001/internal/contest"
)

// Executor validates and executes trades against a participant's virtual
// balance. It is stateless: all state lives in the contest aggregate and
// the trade record, so the engine can serialize mutations per contest.
type Executor struct{}

func NewExecutor() *Executor {
	return &Executor{}
}

// Open validates the preconditions from the contest's trading rules and,
// if they all hold, debits the cost and returns the new OPEN trade.
// A precondition failure leaves the participant untouched.
func (e *Executor) Open(
	c *contest.Contest,
	p *contest.Participant,
	symbol string,
	direction Direction,
	quantity, price int64,
	now time.Time,
) (*Trade, error) {
	if symbol == "" {
		return nil, errs.New(errs.KindValidation, "symbol is required")
	}
	if quantity <= 0 {
		return nil, errs.New(errs.KindValidation, "quantity must be positive, got %d", quantity)
	}
	if price <= 0 {
		return nil, errs.New(errs.KindValidation, "price must be positive, got %d", price)
	}
	// quantity*price must not wrap: an overflowed cost would slip past the
	// cap and affordability checks and corrupt the balance on debit.
	if quantity > math.MaxInt64/price {
		return nil, errs.New(errs.KindValidation,
			"position size overflows: quantity %d at price %d", quantity, price)
	}
	if c.Status != contest.StatusActive {
		return nil, errs.New(errs.KindValidation, "contest %s is %s, trading requires ACTIVE", c.ID, c.Status)
	}

	if c.Rules.MaxTradesPerParticipant > 0 && p.TradeCount() >= c.Rules.MaxTradesPerParticipant {
		return nil, errs.New(errs.KindTradeLimitExceeded,
			"trade limit reached: %d of %d", p.TradeCount(), c.Rules.MaxTradesPerParticipant)
	}
	if c.Rules.MaxOpenPositions > 0 && p.OpenPositions >= c.Rules.MaxOpenPositions {
		return nil, errs.New(errs.KindTradeLimitExceeded,
			"open position limit reached: %d of %d", p.OpenPositions, c.Rules.MaxOpenPositions)
	}

	cost := quantity * price

	// Position size cap is a percentage of the contest's initial virtual
	// money, checked before affordability so the caller gets the more
	// specific error.
	maxPosition := c.VirtualMoneyAmount * c.Rules.MaxPositionSizePercent / 100
	if cost > maxPosition {
		return nil, errs.New(errs.KindTradeLimitExceeded,
			"position size %d exceeds %d%% of initial capital (%d)", cost, c.Rules.MaxPositionSizePercent, maxPosition)
	}

	if cost > p.VirtualBalance {
		return nil, errs.New(errs.KindInsufficientBalance,
			"cost %d exceeds virtual balance %d", cost, p.VirtualBalance)
	}

	trade := &Trade{
		ID:         uuid.New(),
		ContestID:  c.ID,
		UserID:     p.UserID,
		Symbol:     symbol,
		Direction:  direction,
		Quantity:   quantity,
		EntryPrice: price,
		Status:     TradeStatusOpen,
		OpenedAt:   now,
	}

	// All preconditions held: mutate.
	p.VirtualBalance -= cost
	p.TradeIDs = append(p.TradeIDs, trade.ID)
	p.OpenPositions++

	return trade, nil
}

// Close realizes PnL at the exit price and credits the entry cost plus
// PnL back to the virtual balance. Closing an already-CLOSED trade fails
// with AlreadyClosed and has no side effect.
func (e *Executor) Close(p *contest.Participant, t *Trade, exitPrice int64, now time.Time) error {
	if t.Status == TradeStatusClosed {
		return errs.New(errs.KindAlreadyClosed, "trade %s is already closed", t.ID)
	}
	if exitPrice <= 0 {
		return errs.New(errs.KindValidation, "exit price must be positive, got %d", exitPrice)
	}

	pnl := t.PnLAt(exitPrice)

	t.Status = TradeStatusClosed
	t.ExitPrice = exitPrice
	t.RealizedPnL = pnl
	closedAt := now
	t.ClosedAt = &closedAt

	// Returned capital may be less than the entry cost on a loss; it can
	// never drive the balance negative because the loss is bounded by the
	// debited cost for BUY trades. SELL losses are clamped the same way.
	returned := t.Cost() + pnl
	if returned < 0 {
		returned = 0
	}
	p.VirtualBalance += returned
	p.CurrentPnL += pnl
	if p.OpenPositions > 0 {
		p.OpenPositions--
	}

	return nil
}

// ForceClose closes an open trade at the contest's settlement price.
// Identical to Close except an already-closed trade is a silent no-op,
// so settlement retries are idempotent.
func (e *Executor) ForceClose(p *contest.Participant, t *Trade, settlementPrice int64, now time.Time) error {
	if t.Status == TradeStatusClosed {
		return nil
	}
	return e.Close(p, t, settlementPrice, now)
}
