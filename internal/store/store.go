// Package store defines the persistence contracts for contests, trades,
// points, payments, and wallets, with in-memory and Postgres
// implementations. Contest updates are guarded by an optimistic version
// check so concurrent read-modify-write cycles never silently clobber
// each other.
package store

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/Raman-Maurya/mystartup-sub001/internal/contest"
	"github.com/Raman-Maurya/mystartup-sub001/internal/ledger"
	"github.com/Raman-Maurya/mystartup-sub001/internal/scoring"
)

var (
	// ErrNotFound signals that the requested entity does not exist.
	ErrNotFound = errors.New("store: not found")

	// ErrVersionConflict signals that a contest update carried a stale
	// version. The caller re-reads and retries.
	ErrVersionConflict = errors.New("store: version conflict")
)

// ContestStore persists contest aggregates.
//
// UpdateContest succeeds only when the stored version equals the
// aggregate's Version field, and bumps the version on success. The
// caller's in-memory copy is updated to the new version.
type ContestStore interface {
	CreateContest(ctx context.Context, c *contest.Contest) error
	GetContest(ctx context.Context, id uuid.UUID) (*contest.Contest, error)
	UpdateContest(ctx context.Context, c *contest.Contest) error
	ListContests(ctx context.Context, statuses ...contest.Status) ([]*contest.Contest, error)
}

// TradeStore persists trades.
type TradeStore interface {
	CreateTrade(ctx context.Context, t *ledger.Trade) error
	GetTrade(ctx context.Context, id uuid.UUID) (*ledger.Trade, error)
	UpdateTrade(ctx context.Context, t *ledger.Trade) error
	TradesByContest(ctx context.Context, contestID uuid.UUID) ([]*ledger.Trade, error)
	TradesByParticipant(ctx context.Context, contestID, userID uuid.UUID) ([]*ledger.Trade, error)
}

// PointsStore persists per-(user, contest) point accumulators.
type PointsStore interface {
	SavePoints(ctx context.Context, r *scoring.PointsRecord) error
	GetPoints(ctx context.Context, contestID, userID uuid.UUID) (*scoring.PointsRecord, error)
	PointsByContest(ctx context.Context, contestID uuid.UUID) ([]*scoring.PointsRecord, error)
}
