package quota

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	pgUniqueViolation   = "23505"
	pgUndefinedFunction = "42883"
)

type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresStore keeps one ai_usage row per (user, bot, date).
type PostgresStore struct {
	db DB
}

func NewPostgresStore(db DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the usage table and the increment_ai_usage function.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS ai_usage (
			id BIGSERIAL PRIMARY KEY,
			user_id TEXT NOT NULL,
			bot_type TEXT NOT NULL,
			date DATE NOT NULL,
			request_count INTEGER NOT NULL DEFAULT 0 CHECK (request_count >= 0),
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			UNIQUE (user_id, bot_type, date)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_ai_usage_user_date ON ai_usage (user_id, date)`,
		`CREATE OR REPLACE FUNCTION increment_ai_usage(p_user_id TEXT, p_bot_type TEXT, p_date DATE)
		RETURNS INTEGER AS $$
			INSERT INTO ai_usage (user_id, bot_type, date, request_count)
			VALUES (p_user_id, p_bot_type, p_date, 1)
			ON CONFLICT (user_id, bot_type, date)
			DO UPDATE SET request_count = ai_usage.request_count + 1, updated_at = now()
			RETURNING request_count;
		$$ LANGUAGE sql`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure ai_usage schema: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, key Key) (*UsageRecord, error) {
	query := `
		SELECT user_id, bot_type, date, request_count
		FROM ai_usage
		WHERE user_id = $1 AND bot_type = $2 AND date = $3
		LIMIT 1
	`

	var r UsageRecord
	err := s.db.QueryRow(ctx, query, key.UserID, key.BotID, key.Date).Scan(
		&r.UserID, &r.BotID, &r.Date, &r.RequestCount,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get usage: %w", err)
	}

	return &r, nil
}

func (s *PostgresStore) Insert(ctx context.Context, rec *UsageRecord) error {
	query := `
		INSERT INTO ai_usage (user_id, bot_type, date, request_count)
		VALUES ($1, $2, $3, $4)
	`

	_, err := s.db.Exec(ctx, query, rec.UserID, rec.BotID, rec.Date, rec.RequestCount)
	if err != nil {
		if pgCode(err) == pgUniqueViolation {
			return ErrConflict
		}
		return fmt.Errorf("failed to insert usage: %w", err)
	}

	return nil
}

func (s *PostgresStore) Increment(ctx context.Context, key Key) (int, error) {
	query := `
		UPDATE ai_usage
		SET request_count = request_count + 1, updated_at = now()
		WHERE user_id = $1 AND bot_type = $2 AND date = $3
		RETURNING request_count
	`

	var count int
	err := s.db.QueryRow(ctx, query, key.UserID, key.BotID, key.Date).Scan(&count)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("failed to increment usage: %w", err)
	}

	return count, nil
}

func (s *PostgresStore) IncrementOrCreate(ctx context.Context, key Key) (int, error) {
	var count int
	err := s.db.QueryRow(ctx, `SELECT increment_ai_usage($1, $2, $3)`, key.UserID, key.BotID, key.Date).Scan(&count)
	if err != nil {
		if pgCode(err) == pgUndefinedFunction {
			return 0, ErrIncrementUnavailable
		}
		return 0, fmt.Errorf("failed to increment usage: %w", err)
	}

	return count, nil
}

func (s *PostgresStore) ListByDay(ctx context.Context, userID string, day time.Time) ([]*UsageRecord, error) {
	query := `
		SELECT user_id, bot_type, date, request_count
		FROM ai_usage
		WHERE user_id = $1 AND date = $2
	`
	rows, err := s.db.Query(ctx, query, userID, day)
	if err != nil {
		return nil, fmt.Errorf("failed to query usage: %w", err)
	}
	defer rows.Close()

	var records []*UsageRecord
	for rows.Next() {
		var r UsageRecord
		if err := rows.Scan(&r.UserID, &r.BotID, &r.Date, &r.RequestCount); err != nil {
			return nil, fmt.Errorf("failed to scan usage: %w", err)
		}
		records = append(records, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating usage: %w", err)
	}

	return records, nil
}

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}
