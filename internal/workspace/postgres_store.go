package workspace

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type PostgresStore struct {
	db DB
}

func NewPostgresStore(db DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const todoColumns = `id, user_id, title, priority, date::text, completed, position, created_at`

func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS daily_todos (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			title TEXT NOT NULL,
			priority TEXT NOT NULL DEFAULT 'medium',
			date DATE NOT NULL,
			completed BOOLEAN NOT NULL DEFAULT false,
			position INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_daily_todos_user_date ON daily_todos (user_id, date)`,
		`CREATE TABLE IF NOT EXISTS business_goals (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			title TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			type TEXT NOT NULL DEFAULT 'weekly',
			progress INTEGER NOT NULL DEFAULT 0,
			target_date DATE NOT NULL,
			status TEXT NOT NULL DEFAULT 'active',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_business_goals_user ON business_goals (user_id, status)`,
		`CREATE TABLE IF NOT EXISTS business_context (
			user_id TEXT PRIMARY KEY,
			target_market TEXT NOT NULL DEFAULT '',
			challenges TEXT[] NOT NULL DEFAULT '{}',
			strengths TEXT[] NOT NULL DEFAULT '{}',
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure workspace schema: %w", err)
		}
	}
	return nil
}

func scanTodo(row pgx.Row) (*Todo, error) {
	var t Todo
	err := row.Scan(&t.ID, &t.UserID, &t.Title, &t.Priority, &t.Date, &t.Completed, &t.Position, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *PostgresStore) queryTodos(ctx context.Context, query string, args ...any) ([]*Todo, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query todos: %w", err)
	}
	defer rows.Close()

	todos := []*Todo{}
	for rows.Next() {
		t, err := scanTodo(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan todo: %w", err)
		}
		todos = append(todos, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating todos: %w", err)
	}

	return todos, nil
}

func (s *PostgresStore) ListTodos(ctx context.Context, userID, date string) ([]*Todo, error) {
	query := `SELECT ` + todoColumns + `
		FROM daily_todos
		WHERE user_id = $1 AND date = $2::date
		ORDER BY position`
	return s.queryTodos(ctx, query, userID, date)
}

func (s *PostgresStore) OpenTodos(ctx context.Context, userID, date string) ([]*Todo, error) {
	query := `SELECT ` + todoColumns + `
		FROM daily_todos
		WHERE user_id = $1 AND date = $2::date AND completed = false
		ORDER BY position`
	return s.queryTodos(ctx, query, userID, date)
}

func (s *PostgresStore) CreateTodo(ctx context.Context, todo *Todo) error {
	if todo.ID == "" {
		todo.ID = uuid.New().String()
	}

	query := `
		INSERT INTO daily_todos (id, user_id, title, priority, date, position)
		SELECT $1, $2, $3, $4, $5::date, COALESCE(MAX(position) + 1, 0)
		FROM daily_todos
		WHERE user_id = $2 AND date = $5::date
		RETURNING ` + todoColumns

	created, err := scanTodo(s.db.QueryRow(ctx, query, todo.ID, todo.UserID, todo.Title, todo.Priority, todo.Date))
	if err != nil {
		return fmt.Errorf("failed to create todo: %w", err)
	}
	*todo = *created

	return nil
}

func (s *PostgresStore) UpdateTodo(ctx context.Context, userID, id string, patch TodoPatch) (*Todo, error) {
	query := `
		UPDATE daily_todos SET
			title = COALESCE($3, title),
			priority = COALESCE($4, priority),
			date = COALESCE($5::date, date),
			completed = COALESCE($6, completed),
			position = COALESCE($7, position)
		WHERE id = $1 AND user_id = $2
		RETURNING ` + todoColumns

	t, err := scanTodo(s.db.QueryRow(ctx, query, id, userID,
		patch.Title, patch.Priority, patch.Date, patch.Completed, patch.Position,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to update todo: %w", err)
	}

	return t, nil
}

const goalColumns = `id, user_id, title, description, type, progress, target_date, status, created_at`

func scanGoal(row pgx.Row) (*Goal, error) {
	var g Goal
	err := row.Scan(&g.ID, &g.UserID, &g.Title, &g.Description, &g.Type, &g.Progress, &g.TargetDate, &g.Status, &g.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &g, nil
}

func (s *PostgresStore) queryGoals(ctx context.Context, query string, args ...any) ([]*Goal, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query goals: %w", err)
	}
	defer rows.Close()

	var goals []*Goal
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan goal: %w", err)
		}
		goals = append(goals, g)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating goals: %w", err)
	}

	return goals, nil
}

func (s *PostgresStore) ListGoals(ctx context.Context, userID string) ([]*Goal, error) {
	query := `SELECT ` + goalColumns + `
		FROM business_goals
		WHERE user_id = $1
		ORDER BY status, target_date`
	return s.queryGoals(ctx, query, userID)
}

func (s *PostgresStore) ActiveGoals(ctx context.Context, userID string) ([]*Goal, error) {
	query := `SELECT ` + goalColumns + `
		FROM business_goals
		WHERE user_id = $1 AND status = 'active'
		ORDER BY target_date`
	return s.queryGoals(ctx, query, userID)
}

func (s *PostgresStore) CreateGoal(ctx context.Context, goal *Goal) error {
	if goal.ID == "" {
		goal.ID = uuid.New().String()
	}

	query := `
		INSERT INTO business_goals (id, user_id, title, description, type, target_date)
		VALUES ($1, $2, $3, $4, $5, $6::date)
		RETURNING ` + goalColumns

	created, err := scanGoal(s.db.QueryRow(ctx, query,
		goal.ID, goal.UserID, goal.Title, goal.Description, goal.Type, goal.TargetDate.Format(DateLayout),
	))
	if err != nil {
		return fmt.Errorf("failed to create goal: %w", err)
	}
	*goal = *created

	return nil
}

func (s *PostgresStore) UpdateGoal(ctx context.Context, userID, id string, patch GoalPatch) (*Goal, error) {
	query := `
		UPDATE business_goals SET
			title = COALESCE($3, title),
			description = COALESCE($4, description),
			progress = COALESCE($5, progress),
			status = COALESCE($6, status),
			target_date = COALESCE($7::date, target_date)
		WHERE id = $1 AND user_id = $2
		RETURNING ` + goalColumns

	g, err := scanGoal(s.db.QueryRow(ctx, query, id, userID,
		patch.Title, patch.Description, patch.Progress, patch.Status, patch.TargetDate,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to update goal: %w", err)
	}

	return g, nil
}

func (s *PostgresStore) GetBusinessContext(ctx context.Context, userID string) (*BusinessContext, error) {
	query := `
		SELECT user_id, target_market, challenges, strengths
		FROM business_context
		WHERE user_id = $1
	`

	var bc BusinessContext
	err := s.db.QueryRow(ctx, query, userID).Scan(&bc.UserID, &bc.TargetMarket, &bc.Challenges, &bc.Strengths)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get business context: %w", err)
	}

	return &bc, nil
}

func (s *PostgresStore) UpsertBusinessContext(ctx context.Context, bc *BusinessContext) error {
	if bc.Challenges == nil {
		bc.Challenges = []string{}
	}
	if bc.Strengths == nil {
		bc.Strengths = []string{}
	}

	query := `
		INSERT INTO business_context (user_id, target_market, challenges, strengths, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (user_id) DO UPDATE SET
			target_market = EXCLUDED.target_market,
			challenges = EXCLUDED.challenges,
			strengths = EXCLUDED.strengths,
			updated_at = now()
	`
	if _, err := s.db.Exec(ctx, query, bc.UserID, bc.TargetMarket, bc.Challenges, bc.Strengths); err != nil {
		return fmt.Errorf("failed to save business context: %w", err)
	}

	return nil
}
