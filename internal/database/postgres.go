package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"tradegate/internal/model"
)

const createDecisionsSQL = `
CREATE TABLE IF NOT EXISTS trade_decisions (
	id SERIAL PRIMARY KEY,
	run_id UUID NOT NULL UNIQUE,
	timestamp TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	pair_address VARCHAR(128) NOT NULL,
	outcome VARCHAR(16) NOT NULL,
	detail TEXT NOT NULL,
	failed_check VARCHAR(32) NOT NULL DEFAULT '',
	amount NUMERIC(38, 18),
	price NUMERIC(38, 18),
	confirmation JSONB
);
CREATE INDEX IF NOT EXISTS trade_decisions_pair_idx ON trade_decisions (lower(pair_address), outcome);`

// PostgresRepository implements Repository on a pgx connection pool.
type PostgresRepository struct {
	Pool *pgxpool.Pool
}

// NewPostgresRepository connects to dsn and returns a repository backed by the pool.
func NewPostgresRepository(ctx context.Context, dsn string) (*PostgresRepository, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &PostgresRepository{Pool: pool}, nil
}

// Close releases the pool.
func (r *PostgresRepository) Close() {
	r.Pool.Close()
}

// Migrate creates the journal table if it does not exist.
func (r *PostgresRepository) Migrate(ctx context.Context) error {
	if _, err := r.Pool.Exec(ctx, createDecisionsSQL); err != nil {
		return fmt.Errorf("migrate trade_decisions: %w", err)
	}
	return nil
}

// LogDecision stores one workflow outcome.
func (r *PostgresRepository) LogDecision(ctx context.Context, rec model.DecisionRecord) error {
	const insertSQL = `
		INSERT INTO trade_decisions (
			run_id, timestamp, pair_address, outcome, detail, failed_check, amount, price, confirmation
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	var confirmation []byte
	if len(rec.Confirmation) > 0 {
		confirmation = rec.Confirmation
	}

	_, err := r.Pool.Exec(ctx, insertSQL,
		rec.RunID,
		rec.Timestamp,
		rec.PairAddress,
		string(rec.Outcome),
		rec.Detail,
		rec.FailedCheck,
		toNumeric(rec.Amount),
		toNumeric(rec.Price),
		confirmation,
	)
	if err != nil {
		return fmt.Errorf("insert decision %s: %w", rec.RunID, err)
	}
	return nil
}

// WasTraded reports whether a successful order was already placed for pair.
func (r *PostgresRepository) WasTraded(ctx context.Context, pairAddress string) (bool, error) {
	const query = `
		SELECT EXISTS (
			SELECT 1 FROM trade_decisions WHERE lower(pair_address) = $1 AND outcome = $2
		)`

	var exists bool
	err := r.Pool.QueryRow(ctx, query, strings.ToLower(pairAddress), string(model.OutcomeSuccess)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("query decisions for %s: %w", pairAddress, err)
	}
	return exists, nil
}

// toNumeric maps zero (unknown) to NULL.
func toNumeric(d decimal.Decimal) pgtype.Numeric {
	if d.IsZero() {
		return pgtype.Numeric{}
	}
	return pgtype.Numeric{Int: d.Coefficient(), Exp: d.Exponent(), Valid: true}
}
