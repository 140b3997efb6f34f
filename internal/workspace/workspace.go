// Package workspace holds the user's todos, goals and business context and
// renders them into the context block sent with every AI chat.
package workspace

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("not found")

const DateLayout = time.DateOnly

type Todo struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	Priority  string    `json:"priority"`
	Date      string    `json:"date"`
	Completed bool      `json:"completed"`
	Position  int       `json:"position"`
	CreatedAt time.Time `json:"created_at"`
}

// TodoPatch carries the fields to change. Nil fields are left alone.
type TodoPatch struct {
	Title     *string `json:"title,omitempty"`
	Priority  *string `json:"priority,omitempty"`
	Date      *string `json:"date,omitempty"`
	Completed *bool   `json:"completed,omitempty"`
	Position  *int    `json:"position,omitempty"`
}

const (
	GoalWeekly  = "weekly"
	GoalMonthly = "monthly"

	GoalActive    = "active"
	GoalCompleted = "completed"
)

type Goal struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Type        string    `json:"type"`
	Progress    int       `json:"progress"`
	TargetDate  time.Time `json:"target_date"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

// GoalPatch carries the fields to change. Nil fields are left alone.
type GoalPatch struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Progress    *int    `json:"progress,omitempty"`
	Status      *string `json:"status,omitempty"`
	TargetDate  *string `json:"target_date,omitempty"`
}

type BusinessContext struct {
	UserID       string   `json:"user_id"`
	TargetMarket string   `json:"target_market"`
	Challenges   []string `json:"challenges"`
	Strengths    []string `json:"strengths"`
}

type Store interface {
	ListTodos(ctx context.Context, userID, date string) ([]*Todo, error)
	OpenTodos(ctx context.Context, userID, date string) ([]*Todo, error)
	// CreateTodo appends the todo after the user's last todo for its date.
	CreateTodo(ctx context.Context, todo *Todo) error
	UpdateTodo(ctx context.Context, userID, id string, patch TodoPatch) (*Todo, error)
	ListGoals(ctx context.Context, userID string) ([]*Goal, error)
	ActiveGoals(ctx context.Context, userID string) ([]*Goal, error)
	CreateGoal(ctx context.Context, goal *Goal) error
	UpdateGoal(ctx context.Context, userID, id string, patch GoalPatch) (*Goal, error)
	GetBusinessContext(ctx context.Context, userID string) (*BusinessContext, error)
	// UpsertBusinessContext replaces the user's business context.
	UpsertBusinessContext(ctx context.Context, bc *BusinessContext) error
}

var priorities = map[string]bool{"low": true, "medium": true, "high": true}

func ValidPriority(p string) bool {
	return priorities[p]
}

func ValidGoalType(t string) bool {
	return t == GoalWeekly || t == GoalMonthly
}

func ValidGoalStatus(s string) bool {
	return s == GoalActive || s == GoalCompleted
}
