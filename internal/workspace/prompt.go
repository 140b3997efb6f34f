package workspace

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

// ContextPrompt loads today's open todos, active goals and business context
// for userID and renders them with BuildContextPrompt.
func ContextPrompt(ctx context.Context, store Store, userID string, now time.Time) (string, error) {
	var (
		todos []*Todo
		goals []*Goal
		bc    *BusinessContext
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		todos, err = store.OpenTodos(gctx, userID, now.Format(DateLayout))
		return err
	})
	g.Go(func() error {
		var err error
		goals, err = store.ActiveGoals(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		bc, err = store.GetBusinessContext(gctx, userID)
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return err
	})
	if err := g.Wait(); err != nil {
		return "", fmt.Errorf("load context: %w", err)
	}

	return BuildContextPrompt(todos, goals, bc, now), nil
}

// BuildContextPrompt renders the context block appended to a persona's
// system prompt. Empty sections are omitted.
func BuildContextPrompt(todos []*Todo, goals []*Goal, bc *BusinessContext, now time.Time) string {
	var b strings.Builder
	b.WriteString("\n\nCurrent Context:\n")

	if len(todos) > 0 {
		b.WriteString("\nToday's Tasks:\n")
		for _, t := range todos {
			fmt.Fprintf(&b, "- %s (Priority: %s)\n", t.Title, t.Priority)
		}
	}

	if len(goals) > 0 {
		b.WriteString("\nActive Goals:\n")
		for _, g := range goals {
			daysLeft := int(math.Ceil(g.TargetDate.Sub(now).Hours() / 24))
			fmt.Fprintf(&b, "- %s (%s, %d%% complete, %d days left)\n", g.Title, g.Type, g.Progress, daysLeft)
		}
	}

	if bc != nil {
		b.WriteString("\nBusiness Context:\n")
		if bc.TargetMarket != "" {
			fmt.Fprintf(&b, "Target Market: %s\n", bc.TargetMarket)
		}
		if len(bc.Challenges) > 0 {
			fmt.Fprintf(&b, "Challenges: %s\n", strings.Join(bc.Challenges, ", "))
		}
		if len(bc.Strengths) > 0 {
			fmt.Fprintf(&b, "Strengths: %s\n", strings.Join(bc.Strengths, ", "))
		}
	}

	return b.String()
}
