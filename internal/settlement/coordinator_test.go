package settlement_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Raman-Maurya/mystartup-sub001/internal/contest"
	"github.com/Raman-Maurya/mystartup-sub001/internal/ledger"
	"github.com/Raman-Maurya/mystartup-sub001/internal/marketdata"
	"github.com/Raman-Maurya/mystartup-sub001/internal/settlement"
	"github.com/Raman-Maurya/mystartup-sub001/internal/store"
	"github.com/Raman-Maurya/mystartup-sub001/internal/testutil"
	"github.com/Raman-Maurya/mystartup-sub001/internal/wallet"
)

type fixture struct {
	mem       *store.Memory
	wallets   *wallet.Service
	prices    *marketdata.Cache
	snapshots *marketdata.Snapshots
	co        *settlement.Coordinator
}

func newFixture() *fixture {
	mem := store.NewMemory()
	prices := marketdata.NewCache()
	snapshots := marketdata.NewSnapshots(prices)
	wallets := wallet.NewService(mem, mem, zerolog.Nop())
	co := settlement.NewCoordinator(mem, mem, mem, wallets, snapshots, zerolog.Nop())
	return &fixture{mem: mem, wallets: wallets, prices: prices, snapshots: snapshots, co: co}
}

// seedContest persists an ACTIVE contest with closed trades carrying
// the given realized PnL per user.
func seedContest(t *testing.T, f *fixture, pnls map[uuid.UUID]int64, now time.Time) *contest.Contest {
	t.Helper()
	ctx := context.Background()

	users := make([]uuid.UUID, 0, len(pnls))
	for u := range pnls {
		users = append(users, u)
	}
	c := testutil.ActiveContest(now, users...)
	c.VirtualMoneyAmount = 50_000
	c.PrizePool = 1_000
	if err := f.mem.CreateContest(ctx, c); err != nil {
		t.Fatalf("seed contest: %v", err)
	}

	for u, pnl := range pnls {
		closed := now.Add(-time.Minute)
		trade := &ledger.Trade{
			ID: uuid.New(), ContestID: c.ID, UserID: u,
			Symbol: "BTC", Direction: ledger.DirectionBuy,
			Quantity: 1, EntryPrice: 10_000,
			Status: ledger.TradeStatusClosed, ExitPrice: 10_000 + pnl,
			RealizedPnL: pnl, OpenedAt: now.Add(-time.Hour), ClosedAt: &closed,
		}
		if err := f.mem.CreateTrade(ctx, trade); err != nil {
			t.Fatalf("seed trade: %v", err)
		}
	}
	return c
}

// ============================================================================
// Test: full settlement
// ============================================================================

func TestSettle_PaysPrizesByRank(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	now := time.Now().UTC()

	first, second, third := uuid.New(), uuid.New(), uuid.New()
	c := seedContest(t, f, map[uuid.UUID]int64{
		first:  5_000,
		second: 1_000,
		third:  -500,
	}, now)

	if err := f.co.Settle(ctx, c.ID, now); err != nil {
		t.Fatalf("settle: %v", err)
	}

	wantPrizes := map[uuid.UUID]int64{first: 600, second: 300, third: 100}
	for user, want := range wantPrizes {
		balance, _ := f.mem.WalletBalance(ctx, user)
		if balance != want {
			t.Errorf("user prize: got %d, want %d", balance, want)
		}
	}

	settled, _ := f.mem.GetContest(ctx, c.ID)
	if settled.Status != contest.StatusCompleted {
		t.Errorf("status: got %s, want COMPLETED", settled.Status)
	}
	if !settled.Financials.Recorded() {
		t.Fatal("financials should be recorded")
	}
	if settled.Financials.TotalPrizePaid != 1_000 {
		t.Errorf("total paid: got %d, want 1000", settled.Financials.TotalPrizePaid)
	}

	for _, p := range settled.Participants {
		if p.FinalPosition == nil {
			t.Errorf("participant %s missing final position", p.UserID)
		}
	}
	winner := settled.Participant(first)
	if winner.FinalPosition == nil || *winner.FinalPosition != 1 {
		t.Error("top PnL should settle at rank 1")
	}
	if winner.PrizeMoney == nil || *winner.PrizeMoney != 600 {
		t.Error("rank 1 prize money should be recorded on the participant")
	}
}

func TestSettle_Idempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	now := time.Now().UTC()

	winner := uuid.New()
	c := seedContest(t, f, map[uuid.UUID]int64{winner: 5_000, uuid.New(): 0}, now)

	if err := f.co.Settle(ctx, c.ID, now); err != nil {
		t.Fatalf("first settle: %v", err)
	}
	firstPass, _ := f.mem.GetContest(ctx, c.ID)

	// Replays at a later time must not move money or rewrite financials.
	for i := 0; i < 3; i++ {
		if err := f.co.Settle(ctx, c.ID, now.Add(time.Hour)); err != nil {
			t.Fatalf("replay %d: %v", i, err)
		}
	}

	balance, _ := f.mem.WalletBalance(ctx, winner)
	if balance != 600 {
		t.Errorf("winner balance after replays: got %d, want 600", balance)
	}

	replayed, _ := f.mem.GetContest(ctx, c.ID)
	if !replayed.Financials.SettledAt.Equal(*firstPass.Financials.SettledAt) {
		t.Error("financials must be write-once")
	}
}

func TestSettle_ForceClosesOpenTradesAtSnapshot(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	now := time.Now().UTC()

	userID := uuid.New()
	c := testutil.ActiveContest(now, userID)
	c.VirtualMoneyAmount = 50_000
	c.PrizePool = 1_000
	p := c.Participant(userID)
	p.VirtualBalance = c.VirtualMoneyAmount

	// An open position: 2 @ 1000, cost already debited.
	trade := &ledger.Trade{
		ID: uuid.New(), ContestID: c.ID, UserID: userID,
		Symbol: "BTC", Direction: ledger.DirectionBuy,
		Quantity: 2, EntryPrice: 1_000,
		Status: ledger.TradeStatusOpen, OpenedAt: now.Add(-time.Hour),
	}
	p.VirtualBalance -= trade.Cost()
	p.TradeIDs = append(p.TradeIDs, trade.ID)
	p.OpenPositions = 1

	if err := f.mem.CreateContest(ctx, c); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := f.mem.CreateTrade(ctx, trade); err != nil {
		t.Fatalf("seed trade: %v", err)
	}

	f.prices.Set("BTC", 1_200)

	if err := f.co.Settle(ctx, c.ID, now); err != nil {
		t.Fatalf("settle: %v", err)
	}

	stored, _ := f.mem.GetTrade(ctx, trade.ID)
	if stored.IsOpen() {
		t.Fatal("open trade should be force-closed at settlement")
	}
	if stored.ExitPrice != 1_200 {
		t.Errorf("exit price: got %d, want snapshot 1200", stored.ExitPrice)
	}
	if stored.RealizedPnL != 400 {
		t.Errorf("pnl: got %d, want 400", stored.RealizedPnL)
	}

	settled, _ := f.mem.GetContest(ctx, c.ID)
	sp := settled.Participant(userID)
	if sp.OpenPositions != 0 {
		t.Errorf("open positions after settlement: got %d, want 0", sp.OpenPositions)
	}
	if sp.VirtualBalance != 50_400 {
		t.Errorf("final balance: got %d, want 50400", sp.VirtualBalance)
	}
}

func TestSettle_NoPriceClosesAtEntry(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	now := time.Now().UTC()

	userID := uuid.New()
	c := testutil.ActiveContest(now, userID)
	p := c.Participant(userID)

	trade := &ledger.Trade{
		ID: uuid.New(), ContestID: c.ID, UserID: userID,
		Symbol: "OBSCURE", Direction: ledger.DirectionBuy,
		Quantity: 1, EntryPrice: 500,
		Status: ledger.TradeStatusOpen, OpenedAt: now.Add(-time.Hour),
	}
	p.VirtualBalance -= trade.Cost()
	p.TradeIDs = append(p.TradeIDs, trade.ID)
	p.OpenPositions = 1

	f.mem.CreateContest(ctx, c)
	f.mem.CreateTrade(ctx, trade)

	// No tick for OBSCURE ever arrived; settlement must still finish.
	if err := f.co.Settle(ctx, c.ID, now); err != nil {
		t.Fatalf("settle: %v", err)
	}

	stored, _ := f.mem.GetTrade(ctx, trade.ID)
	if stored.RealizedPnL != 0 {
		t.Errorf("pnl without price: got %d, want 0", stored.RealizedPnL)
	}
}

func TestSettle_HeadToHeadWinnerTakesAll(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	now := time.Now().UTC()

	winner, loser := uuid.New(), uuid.New()
	c := testutil.NewHeadToHead(now)
	c.AddParticipant(winner, now.Add(-time.Minute))
	c.AddParticipant(loser, now.Add(-time.Minute))
	c.Status = contest.StatusActive
	f.mem.CreateContest(ctx, c)

	closed := now.Add(-time.Minute)
	f.mem.CreateTrade(ctx, &ledger.Trade{
		ID: uuid.New(), ContestID: c.ID, UserID: winner,
		Symbol: "BTC", Direction: ledger.DirectionBuy, Quantity: 1, EntryPrice: 100,
		Status: ledger.TradeStatusClosed, ExitPrice: 600, RealizedPnL: 500,
		OpenedAt: now.Add(-time.Hour), ClosedAt: &closed,
	})

	if err := f.co.Settle(ctx, c.ID, now); err != nil {
		t.Fatalf("settle: %v", err)
	}

	winBalance, _ := f.mem.WalletBalance(ctx, winner)
	if winBalance != c.PrizePool {
		t.Errorf("winner: got %d, want full pool %d", winBalance, c.PrizePool)
	}
	loseBalance, _ := f.mem.WalletBalance(ctx, loser)
	if loseBalance != 0 {
		t.Errorf("loser: got %d, want 0", loseBalance)
	}
}

func TestSettle_TotalNeverExceedsPool(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	now := time.Now().UTC()

	pnls := make(map[uuid.UUID]int64)
	for i := 0; i < 5; i++ {
		pnls[uuid.New()] = int64(1_000 * (i + 1))
	}
	c := seedContest(t, f, pnls, now)

	// Indivisible pool exercises floor rounding on every tier.
	fresh, _ := f.mem.GetContest(ctx, c.ID)
	fresh.PrizePool = 997
	if err := f.mem.UpdateContest(ctx, fresh); err != nil {
		t.Fatalf("set pool: %v", err)
	}

	if err := f.co.Settle(ctx, c.ID, now); err != nil {
		t.Fatalf("settle: %v", err)
	}

	var total int64
	for u := range pnls {
		balance, _ := f.mem.WalletBalance(ctx, u)
		total += balance
	}
	if total > 997 {
		t.Fatalf("paid %d exceeds pool 997", total)
	}
}

func TestSettle_RecordsFinancials(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	now := time.Now().UTC()

	c := seedContest(t, f, map[uuid.UUID]int64{uuid.New(): 100, uuid.New(): 50, uuid.New(): 10}, now)

	if err := f.co.Settle(ctx, c.ID, now); err != nil {
		t.Fatalf("settle: %v", err)
	}

	settled, _ := f.mem.GetContest(ctx, c.ID)
	fin := settled.Financials
	wantFees := settled.EntryFee * int64(len(settled.Participants))
	if fin.TotalEntryFees != wantFees {
		t.Errorf("entry fees: got %d, want %d", fin.TotalEntryFees, wantFees)
	}
	// 20% platform cut of 3 × 1000 in entry fees.
	if fin.PlatformRevenue != wantFees*settled.PlatformFeePercent/100 {
		t.Errorf("platform revenue: got %d, want %d", fin.PlatformRevenue, wantFees*settled.PlatformFeePercent/100)
	}
	if fin.PlatformRevenue != 600 {
		t.Errorf("platform revenue: got %d, want 600", fin.PlatformRevenue)
	}
}

// ============================================================================
// Test: refunds
// ============================================================================

func TestRefund_AtMostOncePerParticipant(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	now := time.Now().UTC()

	a, b := uuid.New(), uuid.New()
	c := testutil.NewContest(now)
	c.AddParticipant(a, now)
	c.AddParticipant(b, now)
	c.Status = contest.StatusCancelled

	for i := 0; i < 3; i++ {
		if err := f.co.Refund(ctx, c, now); err != nil {
			t.Fatalf("refund pass %d: %v", i, err)
		}
	}

	for _, u := range []uuid.UUID{a, b} {
		balance, _ := f.mem.WalletBalance(ctx, u)
		if balance != c.EntryFee {
			t.Errorf("refund balance: got %d, want %d", balance, c.EntryFee)
		}
	}
}

func TestRefund_RequiresCancelled(t *testing.T) {
	f := newFixture()
	now := time.Now().UTC()
	c := testutil.ActiveContest(now, uuid.New())

	if err := f.co.Refund(context.Background(), c, now); err == nil {
		t.Fatal("refunding a non-cancelled contest should fail")
	}
}
