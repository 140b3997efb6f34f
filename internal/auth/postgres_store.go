package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type PostgresStore struct {
	db DB
}

func NewPostgresStore(db DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS profiles (
			id TEXT PRIMARY KEY,
			email TEXT NOT NULL UNIQUE,
			full_name TEXT NOT NULL DEFAULT '',
			subscription_tier TEXT NOT NULL DEFAULT 'free',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS sessions (
			token_hash TEXT PRIMARY KEY,
			user_id TEXT NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
			expires_at TIMESTAMPTZ NOT NULL,
			revoked BOOLEAN NOT NULL DEFAULT false,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure auth schema: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) GetSession(ctx context.Context, token string) (*Session, error) {
	query := `
		SELECT s.user_id, COALESCE(NULLIF(p.subscription_tier, ''), 'free'), s.expires_at
		FROM sessions s
		JOIN profiles p ON p.id = s.user_id
		WHERE s.token_hash = $1 AND s.revoked = false AND s.expires_at > now()
	`

	var sess Session
	err := s.db.QueryRow(ctx, query, hashToken(token)).Scan(&sess.UserID, &sess.Tier, &sess.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	return &sess, nil
}

func (s *PostgresStore) CreateProfile(ctx context.Context, p *Profile) error {
	if p.ID == "" || p.Email == "" {
		return fmt.Errorf("profile id and email are required")
	}
	if p.SubscriptionTier == "" {
		p.SubscriptionTier = DefaultTier
	}

	query := `
		INSERT INTO profiles (id, email, full_name, subscription_tier)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`
	err := s.db.QueryRow(ctx, query, p.ID, p.Email, p.FullName, p.SubscriptionTier).Scan(&p.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create profile: %w", err)
	}

	return nil
}

func (s *PostgresStore) CreateSession(ctx context.Context, userID, token string, ttl time.Duration) error {
	query := `
		INSERT INTO sessions (token_hash, user_id, expires_at)
		VALUES ($1, $2, $3)
	`
	_, err := s.db.Exec(ctx, query, hashToken(token), userID, time.Now().Add(ttl))
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	return nil
}

func (s *PostgresStore) RevokeSession(ctx context.Context, token string) error {
	query := `UPDATE sessions SET revoked = true WHERE token_hash = $1`
	tag, err := s.db.Exec(ctx, query, hashToken(token))
	if err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrSessionNotFound
	}

	return nil
}
