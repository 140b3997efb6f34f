package quota

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/vnmchuo/eagleeye/internal/telemetry"
)

// Tracker gates AI persona usage against a per-tier daily allowance.
//
// CheckLimit fails open on storage errors, IncrementUsage swallows them and
// GetUsageStats reports them. The three policies differ on purpose and must
// stay separate.
type Tracker struct {
	store   Store
	tiers   Tiers
	bots    []string
	logger  *slog.Logger
	sink    telemetry.Sink
	metrics *telemetry.Metrics
	now     func() time.Time
	loc     *time.Location
}

type Option func(*Tracker)

func WithLogger(l *slog.Logger) Option {
	return func(t *Tracker) { t.logger = l }
}

func WithSink(s telemetry.Sink) Option {
	return func(t *Tracker) { t.sink = s }
}

func WithMetrics(m *telemetry.Metrics) Option {
	return func(t *Tracker) { t.metrics = m }
}

// WithClock replaces the wall clock, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// WithLocation sets the zone whose calendar day bounds the quota.
func WithLocation(loc *time.Location) Option {
	return func(t *Tracker) { t.loc = loc }
}

func NewTracker(store Store, tiers Tiers, bots []string, opts ...Option) *Tracker {
	if tiers == nil {
		tiers = DefaultTiers()
	}
	t := &Tracker{
		store:  store,
		tiers:  tiers,
		bots:   bots,
		logger: slog.Default(),
		sink:   telemetry.NopSink{},
		now:    time.Now,
		loc:    time.Local,
	}
	for _, opt := range opts {
		opt(t)
	}
	t.logger = t.logger.With("component", "ai-rate-limit")
	return t
}

// Limit returns the daily allowance for tier.
func (t *Tracker) Limit(tier string) int {
	return t.tiers.Limit(tier)
}

// Tier normalizes tier to a known name.
func (t *Tracker) Tier(tier string) string {
	return t.tiers.Normalize(tier)
}

func (t *Tracker) clock() time.Time {
	return t.now().In(t.loc)
}

// CheckLimit reports whether userID may issue one more request to botID today.
func (t *Tracker) CheckLimit(ctx context.Context, userID, botID, tier string) Decision {
	now := t.clock()
	limit := t.tiers.Limit(tier)
	key := Key{UserID: userID, BotID: botID, Date: dayOf(now)}
	resetAt := nextMidnight(now)

	count, err := t.getOrCreate(ctx, key)
	if err != nil {
		t.logger.Error("Error checking AI bot limit", "error", err, "userId", userID, "botType", botID)
		t.sink.Record(telemetry.LevelError, "quota check failed open", map[string]any{
			"error":   err.Error(),
			"userId":  userID,
			"botType": botID,
		})
		t.metrics.QuotaDecision(botID, telemetry.OutcomeFailOpen)
		return Decision{
			Allowed:      true,
			Remaining:    limit,
			Limit:        limit,
			ResetAt:      resetAt,
			CurrentUsage: 0,
		}
	}

	remaining := max(0, limit-count)
	d := Decision{
		Allowed:      count < limit,
		Remaining:    remaining,
		Limit:        limit,
		ResetAt:      resetAt,
		CurrentUsage: count,
	}

	outcome := telemetry.OutcomeAllowed
	if !d.Allowed {
		outcome = telemetry.OutcomeDenied
	}
	t.metrics.QuotaDecision(botID, outcome)
	t.logger.Info("AI bot limit check",
		"userId", userID,
		"botType", botID,
		"currentUsage", count,
		"limit", limit,
		"remaining", remaining,
		"allowed", d.Allowed,
	)

	return d
}

// getOrCreate returns today's count, creating an empty record when none exists.
// A concurrent creator winning the insert is resolved by reading its record.
func (t *Tracker) getOrCreate(ctx context.Context, key Key) (int, error) {
	rec, err := t.store.Get(ctx, key)
	if err == nil {
		return rec.RequestCount, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return 0, fmt.Errorf("get usage: %w", err)
	}

	err = t.store.Insert(ctx, &UsageRecord{UserID: key.UserID, BotID: key.BotID, Date: key.Date})
	if err == nil {
		return 0, nil
	}
	if !errors.Is(err, ErrConflict) {
		return 0, fmt.Errorf("create usage: %w", err)
	}

	rec, err = t.store.Get(ctx, key)
	switch {
	case err == nil:
		return rec.RequestCount, nil
	case errors.Is(err, ErrNotFound):
		return 0, nil
	default:
		return 0, fmt.Errorf("re-read usage: %w", err)
	}
}

// IncrementUsage records one completed request. It never returns an error;
// failures are logged and reported through Success.
func (t *Tracker) IncrementUsage(ctx context.Context, userID, botID string) IncrementResult {
	now := t.clock()
	key := Key{UserID: userID, BotID: botID, Date: dayOf(now)}

	count, err := t.increment(ctx, key)
	if err != nil {
		t.logger.Error("Error incrementing AI bot usage", "error", err, "userId", userID, "botType", botID)
		t.sink.Record(telemetry.LevelError, "quota increment failed", map[string]any{
			"error":   err.Error(),
			"userId":  userID,
			"botType": botID,
		})
		t.metrics.IncrementFailed(botID)
		return IncrementResult{Success: false, Err: err}
	}

	t.logger.Info("AI bot usage incremented",
		"userId", userID,
		"botType", botID,
		"date", key.Date.Format(time.DateOnly),
		"newCount", count,
	)
	return IncrementResult{Success: true, Count: count}
}

func (t *Tracker) increment(ctx context.Context, key Key) (int, error) {
	count, err := t.store.IncrementOrCreate(ctx, key)
	if err == nil {
		return count, nil
	}
	if !errors.Is(err, ErrIncrementUnavailable) {
		return 0, fmt.Errorf("increment usage: %w", err)
	}

	err = t.store.Insert(ctx, &UsageRecord{UserID: key.UserID, BotID: key.BotID, Date: key.Date, RequestCount: 1})
	if err == nil {
		return 1, nil
	}
	if !errors.Is(err, ErrConflict) {
		return 0, fmt.Errorf("create usage: %w", err)
	}

	count, err = t.store.Increment(ctx, key)
	if err != nil {
		return 0, fmt.Errorf("increment existing usage: %w", err)
	}
	return count, nil
}

// GetUsageStats returns today's usage for every persona. A storage error is
// returned to the caller rather than masked.
func (t *Tracker) GetUsageStats(ctx context.Context, userID, tier string) (map[string]BotUsage, error) {
	now := t.clock()
	limit := t.tiers.Limit(tier)

	records, err := t.store.ListByDay(ctx, userID, dayOf(now))
	if err != nil {
		t.logger.Error("Error getting AI usage stats", "error", err, "userId", userID)
		t.sink.Record(telemetry.LevelError, "quota stats unavailable", map[string]any{
			"error":  err.Error(),
			"userId": userID,
		})
		return nil, fmt.Errorf("list usage: %w", err)
	}

	used := make(map[string]int, len(records))
	for _, r := range records {
		used[r.BotID] = r.RequestCount
	}

	stats := make(map[string]BotUsage, len(t.bots))
	for _, bot := range t.bots {
		n := used[bot]
		stats[bot] = BotUsage{
			Used:      n,
			Remaining: max(0, limit-n),
			Limit:     limit,
		}
	}
	return stats, nil
}
