package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Raman-Maurya/mystartup-sub001/internal/contest"
	"github.com/Raman-Maurya/mystartup-sub001/internal/ledger"
	"github.com/Raman-Maurya/mystartup-sub001/internal/store"
	"github.com/Raman-Maurya/mystartup-sub001/internal/testutil"
	"github.com/Raman-Maurya/mystartup-sub001/internal/wallet"
)

// setupPostgres opens the integration database and runs migrations.
func setupPostgres(t *testing.T) *store.Postgres {
	t.Helper()
	testutil.RequireIntegration(t)

	db, cleanup := testutil.SetupTestDB(t)
	t.Cleanup(cleanup)

	m := store.NewMigrator(db, "../../migrations", zerolog.Nop())
	if err := m.Up(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return store.NewPostgres(db)
}

// ============================================================================
// Test: contest persistence (integration)
// ============================================================================

func TestPostgres_ContestRoundTrip(t *testing.T) {
	pg := setupPostgres(t)
	ctx := context.Background()
	now := time.Now().UTC()

	c := testutil.NewContest(now)
	c.AddParticipant(uuid.New(), now)
	if err := pg.CreateContest(ctx, c); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := pg.GetContest(ctx, c.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != c.Name || got.Status != c.Status || len(got.Participants) != 1 {
		t.Errorf("round trip mismatch: %+v", got)
	}
	if got.Version != 1 {
		t.Errorf("version: got %d, want 1", got.Version)
	}
}

func TestPostgres_VersionConflict(t *testing.T) {
	pg := setupPostgres(t)
	ctx := context.Background()

	c := testutil.NewContest(time.Now().UTC())
	if err := pg.CreateContest(ctx, c); err != nil {
		t.Fatalf("create: %v", err)
	}

	first, _ := pg.GetContest(ctx, c.ID)
	second, _ := pg.GetContest(ctx, c.ID)

	first.Name = "winner"
	if err := pg.UpdateContest(ctx, first); err != nil {
		t.Fatalf("first update: %v", err)
	}

	second.Name = "loser"
	if err := pg.UpdateContest(ctx, second); !errors.Is(err, store.ErrVersionConflict) {
		t.Fatalf("want ErrVersionConflict, got %v", err)
	}
}

func TestPostgres_ListByStatus(t *testing.T) {
	pg := setupPostgres(t)
	ctx := context.Background()
	now := time.Now().UTC()

	open := testutil.NewContest(now)
	draft := testutil.NewContest(now)
	draft.Status = contest.StatusDraft
	pg.CreateContest(ctx, open)
	pg.CreateContest(ctx, draft)

	got, err := pg.ListContests(ctx, contest.StatusRegistrationOpen)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 || got[0].ID != open.ID {
		t.Errorf("list: got %d contests", len(got))
	}
}

// ============================================================================
// Test: trades and payments (integration)
// ============================================================================

func TestPostgres_TradeRoundTrip(t *testing.T) {
	pg := setupPostgres(t)
	ctx := context.Background()
	now := time.Now().UTC()

	trade := &ledger.Trade{
		ID: uuid.New(), ContestID: uuid.New(), UserID: uuid.New(),
		Symbol: "BTC", Direction: ledger.DirectionSell,
		Quantity: 2, EntryPrice: 4_500_000,
		Status: ledger.TradeStatusOpen, OpenedAt: now,
	}
	if err := pg.CreateTrade(ctx, trade); err != nil {
		t.Fatalf("create: %v", err)
	}

	closed := now.Add(time.Minute)
	trade.Status = ledger.TradeStatusClosed
	trade.ExitPrice = 4_400_000
	trade.RealizedPnL = 200_000
	trade.ClosedAt = &closed
	if err := pg.UpdateTrade(ctx, trade); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, err := pg.GetTrade(ctx, trade.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Direction != ledger.DirectionSell || got.RealizedPnL != 200_000 {
		t.Errorf("round trip mismatch: %+v", got)
	}
	if got.ClosedAt == nil {
		t.Error("closed_at should persist")
	}
}

func TestPostgres_DuplicatePayment(t *testing.T) {
	pg := setupPostgres(t)
	ctx := context.Background()
	contestID, userID := uuid.New(), uuid.New()

	p := &wallet.Payment{
		ID: uuid.New(), ContestID: contestID, UserID: userID,
		Type: wallet.PaymentTypePrizePayout, Status: wallet.PaymentStatusPending,
		Amount: 500, CreatedAt: time.Now().UTC(),
	}
	if err := pg.CreatePayment(ctx, p); err != nil {
		t.Fatalf("create: %v", err)
	}

	dup := &wallet.Payment{
		ID: uuid.New(), ContestID: contestID, UserID: userID,
		Type: wallet.PaymentTypePrizePayout, Status: wallet.PaymentStatusPending,
		Amount: 500, CreatedAt: time.Now().UTC(),
	}
	if err := pg.CreatePayment(ctx, dup); !errors.Is(err, wallet.ErrDuplicatePayment) {
		t.Fatalf("want ErrDuplicatePayment, got %v", err)
	}
}

func TestPostgres_WalletDebitGuard(t *testing.T) {
	pg := setupPostgres(t)
	ctx := context.Background()
	userID := uuid.New()

	if _, err := pg.DebitWallet(ctx, userID, 100); !errors.Is(err, wallet.ErrInsufficientFunds) {
		t.Fatalf("want ErrInsufficientFunds, got %v", err)
	}

	if _, err := pg.CreditWallet(ctx, userID, 300); err != nil {
		t.Fatalf("credit: %v", err)
	}
	balance, err := pg.DebitWallet(ctx, userID, 100)
	if err != nil {
		t.Fatalf("debit: %v", err)
	}
	if balance != 200 {
		t.Errorf("balance: got %d, want 200", balance)
	}
}
