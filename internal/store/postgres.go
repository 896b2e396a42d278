package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/Raman-Maurya/mystartup-sub001/internal/contest"
	"github.com/Raman-Maurya/mystartup-sub001/internal/ledger"
	"github.com/Raman-Maurya/mystartup-sub001/internal/scoring"
	"github.com/Raman-Maurya/mystartup-sub001/internal/wallet"
)

// Postgres implements every store contract on a SQL database.
//
// Contest aggregates are stored as JSONB documents with the status and
// version lifted into columns: the version column backs the optimistic
// concurrency check and status backs the scheduler's sweep query, while
// the document spares a table-per-nested-type schema for an aggregate
// that is always read and written whole.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// Open connects to Postgres and verifies the connection.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// --- ContestStore ---

func (s *Postgres) CreateContest(ctx context.Context, c *contest.Contest) error {
	c.Version = 1
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal contest: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO contests (id, status, version, data, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, c.ID, c.Status.String(), c.Version, data, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert contest: %w", err)
	}
	return nil
}

func (s *Postgres) GetContest(ctx context.Context, id uuid.UUID) (*contest.Contest, error) {
	var data []byte
	var version int64
	err := s.db.QueryRowContext(ctx,
		`SELECT data, version FROM contests WHERE id = $1`, id,
	).Scan(&data, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select contest: %w", err)
	}

	var c contest.Contest
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("unmarshal contest %s: %w", id, err)
	}
	c.Version = version
	return &c, nil
}

func (s *Postgres) UpdateContest(ctx context.Context, c *contest.Contest) error {
	newVersion := c.Version + 1
	c.UpdatedAt = time.Now().UTC()

	// Version is lifted into a column; keep the document copy in sync.
	prev := c.Version
	c.Version = newVersion
	data, err := json.Marshal(c)
	if err != nil {
		c.Version = prev
		return fmt.Errorf("marshal contest: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE contests
		SET status = $1, version = $2, data = $3, updated_at = $4
		WHERE id = $5 AND version = $6
	`, c.Status.String(), newVersion, data, c.UpdatedAt, c.ID, prev)
	if err != nil {
		c.Version = prev
		return fmt.Errorf("update contest: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		c.Version = prev
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		c.Version = prev
		var exists bool
		if err := s.db.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM contests WHERE id = $1)`, c.ID,
		).Scan(&exists); err != nil {
			return fmt.Errorf("check contest exists: %w", err)
		}
		if !exists {
			return ErrNotFound
		}
		return ErrVersionConflict
	}
	return nil
}

func (s *Postgres) ListContests(ctx context.Context, statuses ...contest.Status) ([]*contest.Contest, error) {
	query := `SELECT data, version FROM contests`
	var args []interface{}
	if len(statuses) > 0 {
		names := make([]string, len(statuses))
		for i, st := range statuses {
			names[i] = st.String()
		}
		query += ` WHERE status = ANY($1)`
		args = append(args, pq.Array(names))
	}
	query += ` ORDER BY created_at`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list contests: %w", err)
	}
	defer rows.Close()

	var out []*contest.Contest
	for rows.Next() {
		var data []byte
		var version int64
		if err := rows.Scan(&data, &version); err != nil {
			return nil, err
		}
		var c contest.Contest
		if err := json.Unmarshal(data, &c); err != nil {
			return nil, fmt.Errorf("unmarshal contest: %w", err)
		}
		c.Version = version
		out = append(out, &c)
	}
	return out, rows.Err()
}

// --- TradeStore ---

func (s *Postgres) CreateTrade(ctx context.Context, t *ledger.Trade) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO trades
			(id, contest_id, user_id, symbol, direction, quantity, entry_price,
			 status, exit_price, realized_pnl, opened_at, closed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, t.ID, t.ContestID, t.UserID, t.Symbol, t.Direction.String(), t.Quantity,
		t.EntryPrice, t.Status.String(), t.ExitPrice, t.RealizedPnL, t.OpenedAt, t.ClosedAt)
	if err != nil {
		return fmt.Errorf("insert trade: %w", err)
	}
	return nil
}

func (s *Postgres) GetTrade(ctx context.Context, id uuid.UUID) (*ledger.Trade, error) {
	t, err := scanTrade(s.db.QueryRowContext(ctx, `
		SELECT id, contest_id, user_id, symbol, direction, quantity, entry_price,
		       status, exit_price, realized_pnl, opened_at, closed_at
		FROM trades WHERE id = $1
	`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return t, err
}

func (s *Postgres) UpdateTrade(ctx context.Context, t *ledger.Trade) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE trades
		SET status = $1, exit_price = $2, realized_pnl = $3, closed_at = $4
		WHERE id = $5
	`, t.Status.String(), t.ExitPrice, t.RealizedPnL, t.ClosedAt, t.ID)
	if err != nil {
		return fmt.Errorf("update trade: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Postgres) TradesByContest(ctx context.Context, contestID uuid.UUID) ([]*ledger.Trade, error) {
	return s.queryTrades(ctx, `
		SELECT id, contest_id, user_id, symbol, direction, quantity, entry_price,
		       status, exit_price, realized_pnl, opened_at, closed_at
		FROM trades WHERE contest_id = $1 ORDER BY opened_at
	`, contestID)
}

func (s *Postgres) TradesByParticipant(ctx context.Context, contestID, userID uuid.UUID) ([]*ledger.Trade, error) {
	return s.queryTrades(ctx, `
		SELECT id, contest_id, user_id, symbol, direction, quantity, entry_price,
		       status, exit_price, realized_pnl, opened_at, closed_at
		FROM trades WHERE contest_id = $1 AND user_id = $2 ORDER BY opened_at
	`, contestID, userID)
}

func (s *Postgres) queryTrades(ctx context.Context, query string, args ...interface{}) ([]*ledger.Trade, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query trades: %w", err)
	}
	defer rows.Close()

	var out []*ledger.Trade
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTrade(row rowScanner) (*ledger.Trade, error) {
	var t ledger.Trade
	var direction, status string
	if err := row.Scan(
		&t.ID, &t.ContestID, &t.UserID, &t.Symbol, &direction, &t.Quantity,
		&t.EntryPrice, &status, &t.ExitPrice, &t.RealizedPnL, &t.OpenedAt, &t.ClosedAt,
	); err != nil {
		return nil, err
	}

	d, ok := ledger.ParseDirection(direction)
	if !ok {
		return nil, fmt.Errorf("trade %s: unknown direction %q", t.ID, direction)
	}
	t.Direction = d

	st, ok := ledger.ParseTradeStatus(status)
	if !ok {
		return nil, fmt.Errorf("trade %s: unknown status %q", t.ID, status)
	}
	t.Status = st
	return &t, nil
}

// --- PointsStore ---

func (s *Postgres) SavePoints(ctx context.Context, r *scoring.PointsRecord) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal points record: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO points_records (contest_id, user_id, data)
		VALUES ($1, $2, $3)
		ON CONFLICT (contest_id, user_id) DO UPDATE SET data = EXCLUDED.data
	`, r.ContestID, r.UserID, data)
	if err != nil {
		return fmt.Errorf("upsert points record: %w", err)
	}
	return nil
}

func (s *Postgres) GetPoints(ctx context.Context, contestID, userID uuid.UUID) (*scoring.PointsRecord, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM points_records WHERE contest_id = $1 AND user_id = $2`,
		contestID, userID,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select points record: %w", err)
	}

	var r scoring.PointsRecord
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("unmarshal points record: %w", err)
	}
	return &r, nil
}

func (s *Postgres) PointsByContest(ctx context.Context, contestID uuid.UUID) ([]*scoring.PointsRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT data FROM points_records WHERE contest_id = $1`, contestID)
	if err != nil {
		return nil, fmt.Errorf("query points records: %w", err)
	}
	defer rows.Close()

	var out []*scoring.PointsRecord
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var r scoring.PointsRecord
		if err := json.Unmarshal(data, &r); err != nil {
			return nil, fmt.Errorf("unmarshal points record: %w", err)
		}
		out = append(out, &r)
	}
	return out, rows.Err()
}

// --- wallet.PaymentStore ---

// CreatePayment relies on the partial unique index over
// (contest_id, user_id, type) to enforce at-most-once payouts. A
// conflicting insert affects zero rows and maps to ErrDuplicatePayment.
func (s *Postgres) CreatePayment(ctx context.Context, p *wallet.Payment) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO payments
			(id, user_id, contest_id, type, status, amount, created_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (contest_id, user_id, type) DO NOTHING
	`, p.ID, p.UserID, p.ContestID, string(p.Type), string(p.Status),
		p.Amount, p.CreatedAt, p.CompletedAt)
	if err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return wallet.ErrDuplicatePayment
	}
	return nil
}

func (s *Postgres) CompletePayment(ctx context.Context, id uuid.UUID, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE payments SET status = $1, completed_at = $2 WHERE id = $3
	`, string(wallet.PaymentStatusCompleted), at, id)
	if err != nil {
		return fmt.Errorf("complete payment: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Postgres) FindPayment(ctx context.Context, contestID, userID uuid.UUID, typ wallet.PaymentType) (*wallet.Payment, error) {
	p, err := scanPayment(s.db.QueryRowContext(ctx, `
		SELECT id, user_id, contest_id, type, status, amount, created_at, completed_at
		FROM payments WHERE contest_id = $1 AND user_id = $2 AND type = $3
	`, contestID, userID, string(typ)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return p, err
}

func (s *Postgres) DeletePayment(ctx context.Context, contestID, userID uuid.UUID, typ wallet.PaymentType) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM payments WHERE contest_id = $1 AND user_id = $2 AND type = $3
	`, contestID, userID, string(typ))
	if err != nil {
		return fmt.Errorf("delete payment: %w", err)
	}
	return nil
}

func (s *Postgres) PaymentsByContest(ctx context.Context, contestID uuid.UUID) ([]*wallet.Payment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, contest_id, type, status, amount, created_at, completed_at
		FROM payments WHERE contest_id = $1 ORDER BY created_at
	`, contestID)
	if err != nil {
		return nil, fmt.Errorf("query payments: %w", err)
	}
	defer rows.Close()

	var out []*wallet.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanPayment(row rowScanner) (*wallet.Payment, error) {
	var p wallet.Payment
	var typ, status string
	if err := row.Scan(
		&p.ID, &p.UserID, &p.ContestID, &typ, &status,
		&p.Amount, &p.CreatedAt, &p.CompletedAt,
	); err != nil {
		return nil, err
	}
	p.Type = wallet.PaymentType(typ)
	p.Status = wallet.PaymentStatus(status)
	return &p, nil
}

// --- wallet.BalanceStore ---

func (s *Postgres) CreditWallet(ctx context.Context, userID uuid.UUID, amount int64) (int64, error) {
	var balance int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO wallets (user_id, balance) VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET balance = wallets.balance + $2
		RETURNING balance
	`, userID, amount).Scan(&balance)
	if err != nil {
		return 0, fmt.Errorf("credit wallet: %w", err)
	}
	return balance, nil
}

func (s *Postgres) DebitWallet(ctx context.Context, userID uuid.UUID, amount int64) (int64, error) {
	var balance int64
	err := s.db.QueryRowContext(ctx, `
		UPDATE wallets SET balance = balance - $2
		WHERE user_id = $1 AND balance >= $2
		RETURNING balance
	`, userID, amount).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, wallet.ErrInsufficientFunds
	}
	if err != nil {
		return 0, fmt.Errorf("debit wallet: %w", err)
	}
	return balance, nil
}

func (s *Postgres) WalletBalance(ctx context.Context, userID uuid.UUID) (int64, error) {
	var balance int64
	err := s.db.QueryRowContext(ctx,
		`SELECT balance FROM wallets WHERE user_id = $1`, userID,
	).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("select wallet balance: %w", err)
	}
	return balance, nil
}
