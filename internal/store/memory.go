package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Raman-Maurya/mystartup-sub001/internal/contest"
	"github.com/Raman-Maurya/mystartup-sub001/internal/ledger"
	"github.com/Raman-Maurya/mystartup-sub001/internal/scoring"
	"github.com/Raman-Maurya/mystartup-sub001/internal/wallet"
)

// Memory is an in-memory implementation of every store contract, used
// in tests and for running without Postgres. All entities are deep
// copied on the way in and out so callers never share mutable state
// with the store.
type Memory struct {
	mu       sync.RWMutex
	contests map[uuid.UUID]*contest.Contest
	trades   map[uuid.UUID]*ledger.Trade
	points   map[pointsKey]*scoring.PointsRecord
	payments map[uuid.UUID]*wallet.Payment
	wallets  map[uuid.UUID]int64
}

type pointsKey struct {
	contestID uuid.UUID
	userID    uuid.UUID
}

func NewMemory() *Memory {
	return &Memory{
		contests: make(map[uuid.UUID]*contest.Contest),
		trades:   make(map[uuid.UUID]*ledger.Trade),
		points:   make(map[pointsKey]*scoring.PointsRecord),
		payments: make(map[uuid.UUID]*wallet.Payment),
		wallets:  make(map[uuid.UUID]int64),
	}
}

// --- ContestStore ---

func (m *Memory) CreateContest(ctx context.Context, c *contest.Contest) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := cloneContest(c)
	cp.Version = 1
	m.contests[c.ID] = cp
	c.Version = 1
	return nil
}

func (m *Memory) GetContest(ctx context.Context, id uuid.UUID) (*contest.Contest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.contests[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneContest(c), nil
}

func (m *Memory) UpdateContest(ctx context.Context, c *contest.Contest) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.contests[c.ID]
	if !ok {
		return ErrNotFound
	}
	if stored.Version != c.Version {
		return ErrVersionConflict
	}

	cp := cloneContest(c)
	cp.Version = c.Version + 1
	cp.UpdatedAt = time.Now().UTC()
	m.contests[c.ID] = cp
	c.Version = cp.Version
	return nil
}

func (m *Memory) ListContests(ctx context.Context, statuses ...contest.Status) ([]*contest.Contest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*contest.Contest
	for _, c := range m.contests {
		if len(statuses) == 0 || containsStatus(statuses, c.Status) {
			out = append(out, cloneContest(c))
		}
	}
	return out, nil
}

func containsStatus(statuses []contest.Status, s contest.Status) bool {
	for _, st := range statuses {
		if st == s {
			return true
		}
	}
	return false
}

// --- TradeStore ---

func (m *Memory) CreateTrade(ctx context.Context, t *ledger.Trade) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.trades[t.ID] = cloneTrade(t)
	return nil
}

func (m *Memory) GetTrade(ctx context.Context, id uuid.UUID) (*ledger.Trade, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.trades[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneTrade(t), nil
}

func (m *Memory) UpdateTrade(ctx context.Context, t *ledger.Trade) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.trades[t.ID]; !ok {
		return ErrNotFound
	}
	m.trades[t.ID] = cloneTrade(t)
	return nil
}

func (m *Memory) TradesByContest(ctx context.Context, contestID uuid.UUID) ([]*ledger.Trade, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*ledger.Trade
	for _, t := range m.trades {
		if t.ContestID == contestID {
			out = append(out, cloneTrade(t))
		}
	}
	sortTradesByOpenedAt(out)
	return out, nil
}

func (m *Memory) TradesByParticipant(ctx context.Context, contestID, userID uuid.UUID) ([]*ledger.Trade, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*ledger.Trade
	for _, t := range m.trades {
		if t.ContestID == contestID && t.UserID == userID {
			out = append(out, cloneTrade(t))
		}
	}
	sortTradesByOpenedAt(out)
	return out, nil
}

// --- PointsStore ---

func (m *Memory) SavePoints(ctx context.Context, r *scoring.PointsRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.points[pointsKey{r.ContestID, r.UserID}] = clonePoints(r)
	return nil
}

func (m *Memory) GetPoints(ctx context.Context, contestID, userID uuid.UUID) (*scoring.PointsRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.points[pointsKey{contestID, userID}]
	if !ok {
		return nil, ErrNotFound
	}
	return clonePoints(r), nil
}

func (m *Memory) PointsByContest(ctx context.Context, contestID uuid.UUID) ([]*scoring.PointsRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*scoring.PointsRecord
	for k, r := range m.points {
		if k.contestID == contestID {
			out = append(out, clonePoints(r))
		}
	}
	return out, nil
}

// --- wallet.PaymentStore ---

func (m *Memory) CreatePayment(ctx context.Context, p *wallet.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.payments {
		if existing.ContestID == p.ContestID && existing.UserID == p.UserID && existing.Type == p.Type {
			return wallet.ErrDuplicatePayment
		}
	}

	cp := *p
	m.payments[p.ID] = &cp
	return nil
}

func (m *Memory) CompletePayment(ctx context.Context, id uuid.UUID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.payments[id]
	if !ok {
		return ErrNotFound
	}
	p.Status = wallet.PaymentStatusCompleted
	completedAt := at
	p.CompletedAt = &completedAt
	return nil
}

func (m *Memory) FindPayment(ctx context.Context, contestID, userID uuid.UUID, typ wallet.PaymentType) (*wallet.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, p := range m.payments {
		if p.ContestID == contestID && p.UserID == userID && p.Type == typ {
			cp := *p
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) DeletePayment(ctx context.Context, contestID, userID uuid.UUID, typ wallet.PaymentType) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, p := range m.payments {
		if p.ContestID == contestID && p.UserID == userID && p.Type == typ {
			delete(m.payments, id)
			return nil
		}
	}
	return nil
}

func (m *Memory) PaymentsByContest(ctx context.Context, contestID uuid.UUID) ([]*wallet.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*wallet.Payment
	for _, p := range m.payments {
		if p.ContestID == contestID {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

// --- wallet.BalanceStore ---

func (m *Memory) CreditWallet(ctx context.Context, userID uuid.UUID, amount int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.wallets[userID] += amount
	return m.wallets[userID], nil
}

func (m *Memory) DebitWallet(ctx context.Context, userID uuid.UUID, amount int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.wallets[userID] < amount {
		return m.wallets[userID], wallet.ErrInsufficientFunds
	}
	m.wallets[userID] -= amount
	return m.wallets[userID], nil
}

func (m *Memory) WalletBalance(ctx context.Context, userID uuid.UUID) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.wallets[userID], nil
}

// --- clone helpers ---

func cloneContest(c *contest.Contest) *contest.Contest {
	cp := *c

	cp.PrizeDistribution = append(contest.PrizeDistribution(nil), c.PrizeDistribution...)

	if c.Financials.SettledAt != nil {
		at := *c.Financials.SettledAt
		cp.Financials.SettledAt = &at
	}

	cp.Participants = make([]*contest.Participant, len(c.Participants))
	for i, p := range c.Participants {
		pc := *p
		pc.TradeIDs = append([]uuid.UUID(nil), p.TradeIDs...)
		if p.FinalPosition != nil {
			fp := *p.FinalPosition
			pc.FinalPosition = &fp
		}
		if p.PrizeMoney != nil {
			pm := *p.PrizeMoney
			pc.PrizeMoney = &pm
		}
		cp.Participants[i] = &pc
	}

	return &cp
}

func cloneTrade(t *ledger.Trade) *ledger.Trade {
	cp := *t
	if t.ClosedAt != nil {
		at := *t.ClosedAt
		cp.ClosedAt = &at
	}
	return &cp
}

func clonePoints(r *scoring.PointsRecord) *scoring.PointsRecord {
	cp := *r
	cp.Log = append([]scoring.PointEvent(nil), r.Log...)
	return &cp
}

func sortTradesByOpenedAt(trades []*ledger.Trade) {
	sort.Slice(trades, func(i, j int) bool {
		return trades[i].OpenedAt.Before(trades[j].OpenedAt)
	})
}
