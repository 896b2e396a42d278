// Package wallet owns the money-movement records around a contest:
// entry fees, prize payouts, and refunds, plus the external wallet
// balances they credit. Payment rows are the idempotency anchor — a
// payout for a given (contest, user, type) is created at most once.
package wallet

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// PaymentType classifies a fund movement.
type PaymentType string

const (
	PaymentTypeContestEntry PaymentType = "CONTEST_ENTRY"
	PaymentTypePrizePayout  PaymentType = "PRIZE_PAYOUT"
	PaymentTypeRefund       PaymentType = "REFUND"
)

// PaymentStatus tracks a payment through its lifecycle.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusCompleted PaymentStatus = "COMPLETED"
	PaymentStatusFailed    PaymentStatus = "FAILED"
)

// Payment is an immutable record of one fund movement.
type Payment struct {
	ID          uuid.UUID     `json:"id"`
	UserID      uuid.UUID     `json:"user_id"`
	ContestID   uuid.UUID     `json:"contest_id"`
	Type        PaymentType   `json:"type"`
	Status      PaymentStatus `json:"status"`
	Amount      int64         `json:"amount"` // cents
	CreatedAt   time.Time     `json:"created_at"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`
}

// ErrDuplicatePayment signals that a payment for the same
// (contest, user, type) already exists. Callers treat it as success.
var ErrDuplicatePayment = errors.New("wallet: duplicate payment")

// ErrInsufficientFunds signals a wallet debit exceeding the balance.
var ErrInsufficientFunds = errors.New("wallet: insufficient funds")

// PaymentStore persists payment records. CreatePayment must be atomic:
// a second create for the same (contest, user, type) returns
// ErrDuplicatePayment without inserting. DeletePayment removes the row
// for a (contest, user, type) if present; deleting an absent row is not
// an error.
type PaymentStore interface {
	CreatePayment(ctx context.Context, p *Payment) error
	CompletePayment(ctx context.Context, id uuid.UUID, at time.Time) error
	FindPayment(ctx context.Context, contestID, userID uuid.UUID, typ PaymentType) (*Payment, error)
	DeletePayment(ctx context.Context, contestID, userID uuid.UUID, typ PaymentType) error
	PaymentsByContest(ctx context.Context, contestID uuid.UUID) ([]*Payment, error)
}

// BalanceStore persists external wallet balances.
type BalanceStore interface {
	CreditWallet(ctx context.Context, userID uuid.UUID, amount int64) (int64, error)
	DebitWallet(ctx context.Context, userID uuid.UUID, amount int64) (int64, error)
	WalletBalance(ctx context.Context, userID uuid.UUID) (int64, error)
}
