package chat

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/vnmchuo/eagleeye/internal/provider"
)

var ErrNotFound = errors.New("chat not found")

// Chat is the stored conversation between a user and one persona.
type Chat struct {
	ID        string
	UserID    string
	BotID     string
	Messages  []provider.Message
	CreatedAt time.Time
}

type HistoryStore interface {
	// Latest returns the user's most recent chat with botID, or ErrNotFound.
	Latest(ctx context.Context, userID, botID string) (*Chat, error)
	// Save inserts the chat when ID is empty and replaces its messages otherwise.
	Save(ctx context.Context, chat *Chat) error
}

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
		`CREATE TABLE IF NOT EXISTS ai_chats (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			bot_type TEXT NOT NULL,
			messages JSONB NOT NULL DEFAULT '[]',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_ai_chats_user_bot ON ai_chats (user_id, bot_type, created_at DESC)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure ai_chats schema: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) Latest(ctx context.Context, userID, botID string) (*Chat, error) {
	query := `
		SELECT id, user_id, bot_type, messages, created_at
		FROM ai_chats
		WHERE user_id = $1 AND bot_type = $2
		ORDER BY created_at DESC
		LIMIT 1
	`

	var c Chat
	err := s.db.QueryRow(ctx, query, userID, botID).Scan(&c.ID, &c.UserID, &c.BotID, &c.Messages, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get chat: %w", err)
	}

	return &c, nil
}

func (s *PostgresStore) Save(ctx context.Context, chat *Chat) error {
	if chat.ID == "" {
		chat.ID = uuid.New().String()
		query := `
			INSERT INTO ai_chats (id, user_id, bot_type, messages)
			VALUES ($1, $2, $3, $4)
			RETURNING created_at
		`
		err := s.db.QueryRow(ctx, query, chat.ID, chat.UserID, chat.BotID, chat.Messages).Scan(&chat.CreatedAt)
		if err != nil {
			chat.ID = ""
			return fmt.Errorf("failed to create chat: %w", err)
		}
		return nil
	}

	query := `UPDATE ai_chats SET messages = $2, updated_at = now() WHERE id = $1`
	tag, err := s.db.Exec(ctx, query, chat.ID, chat.Messages)
	if err != nil {
		return fmt.Errorf("failed to update chat: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}
