package wallet

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Service applies contest fund movements with at-most-once semantics.
// The external payment gateway is never called from here; the service
// only records verified movements and mutates wallet balances.
type Service struct {
	payments PaymentStore
	balances BalanceStore
	log      zerolog.Logger
}

func NewService(payments PaymentStore, balances BalanceStore, log zerolog.Logger) *Service {
	return &Service{payments: payments, balances: balances, log: log}
}

// PayPrize credits a winner's external wallet exactly once per
// (contest, user). Returns (false, nil) when the payout already exists —
// settlement retries treat that as success. The wallet is credited only
// on the PENDING→COMPLETED transition, so a crash between create and
// complete leaves a PENDING row that the retry path finishes.
func (s *Service) PayPrize(ctx context.Context, contestID, userID uuid.UUID, amount int64, now time.Time) (bool, error) {
	return s.applyOnce(ctx, contestID, userID, PaymentTypePrizePayout, amount, now)
}

// RefundEntry returns a collected entry fee, with the same at-most-once
// guarantee as prize payouts. The CONTEST_ENTRY record is released once
// the refund is in place, so a later rejoin collects a fresh fee instead
// of deduping against the refunded one.
func (s *Service) RefundEntry(ctx context.Context, contestID, userID uuid.UUID, amount int64, now time.Time) (bool, error) {
	applied, err := s.applyOnce(ctx, contestID, userID, PaymentTypeRefund, amount, now)
	if err != nil {
		return applied, err
	}
	if err := s.payments.DeletePayment(ctx, contestID, userID, PaymentTypeContestEntry); err != nil {
		return applied, fmt.Errorf("release entry payment after refund: %w", err)
	}
	return applied, nil
}

func (s *Service) applyOnce(ctx context.Context, contestID, userID uuid.UUID, typ PaymentType, amount int64, now time.Time) (bool, error) {
	payment := &Payment{
		ID:        uuid.New(),
		UserID:    userID,
		ContestID: contestID,
		Type:      typ,
		Status:    PaymentStatusPending,
		Amount:    amount,
		CreatedAt: now,
	}

	err := s.payments.CreatePayment(ctx, payment)
	if errors.Is(err, ErrDuplicatePayment) {
		// Already recorded. Finish the credit if a previous attempt
		// crashed between create and complete; otherwise a no-op.
		existing, ferr := s.payments.FindPayment(ctx, contestID, userID, typ)
		if ferr != nil {
			return false, fmt.Errorf("find existing %s payment: %w", typ, ferr)
		}
		if existing.Status == PaymentStatusPending {
			return false, s.complete(ctx, existing, now)
		}
		s.log.Debug().
			Str("contest_id", contestID.String()).
			Str("user_id", userID.String()).
			Str("type", string(typ)).
			Msg("payment already completed, skipping")
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("create %s payment: %w", typ, err)
	}

	if err := s.complete(ctx, payment, now); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Service) complete(ctx context.Context, p *Payment, now time.Time) error {
	if _, err := s.balances.CreditWallet(ctx, p.UserID, p.Amount); err != nil {
		return fmt.Errorf("credit wallet for payment %s: %w", p.ID, err)
	}
	if err := s.payments.CompletePayment(ctx, p.ID, now); err != nil {
		return fmt.Errorf("complete payment %s: %w", p.ID, err)
	}

	s.log.Info().
		Str("payment_id", p.ID.String()).
		Str("user_id", p.UserID.String()).
		Str("contest_id", p.ContestID.String()).
		Str("type", string(p.Type)).
		Int64("amount", p.Amount).
		Msg("payment completed")
	return nil
}

// CollectEntry debits the entry fee from the user's external wallet and
// records a CONTEST_ENTRY payment. Zero-fee contests record nothing.
func (s *Service) CollectEntry(ctx context.Context, contestID, userID uuid.UUID, amount int64, now time.Time) error {
	if amount == 0 {
		return nil
	}

	if _, err := s.balances.DebitWallet(ctx, userID, amount); err != nil {
		return err
	}

	completedAt := now
	payment := &Payment{
		ID:          uuid.New(),
		UserID:      userID,
		ContestID:   contestID,
		Type:        PaymentTypeContestEntry,
		Status:      PaymentStatusCompleted,
		Amount:      amount,
		CreatedAt:   now,
		CompletedAt: &completedAt,
	}

	if err := s.payments.CreatePayment(ctx, payment); err != nil {
		if errors.Is(err, ErrDuplicatePayment) {
			// Entry fee already collected for this contest; return the debit.
			if _, cerr := s.balances.CreditWallet(ctx, userID, amount); cerr != nil {
				return fmt.Errorf("revert duplicate entry debit: %w", cerr)
			}
			return nil
		}
		// Compensate the debit so a storage failure never eats money.
		if _, cerr := s.balances.CreditWallet(ctx, userID, amount); cerr != nil {
			return fmt.Errorf("revert entry debit after %v: %w", err, cerr)
		}
		return fmt.Errorf("record entry payment: %w", err)
	}

	// A refund from a previous join/leave cycle is spent: the new entry
	// starts a fresh cycle, and a later leave must refund again.
	if err := s.payments.DeletePayment(ctx, contestID, userID, PaymentTypeRefund); err != nil {
		return fmt.Errorf("release stale refund record: %w", err)
	}

	return nil
}

// Balance returns the user's external wallet balance.
func (s *Service) Balance(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.balances.WalletBalance(ctx, userID)
}
