package quota

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound = errors.New("usage record not found")
	// ErrConflict is returned by Insert when a record for the same
	// (user, bot, date) already exists.
	ErrConflict = errors.New("usage record already exists")
	// ErrIncrementUnavailable means the store has no atomic
	// increment-or-create primitive and the caller must fall back.
	ErrIncrementUnavailable = errors.New("atomic increment unavailable")
)

const (
	TierFree    = "free"
	TierPremium = "premium"
)

// Tiers maps a subscription tier to its daily request allowance.
type Tiers map[string]int

func DefaultTiers() Tiers {
	return Tiers{
		TierFree:    10,
		TierPremium: 100,
	}
}

// Limit returns the allowance for tier. Unknown tiers get the free allowance.
func (t Tiers) Limit(tier string) int {
	if limit, ok := t[tier]; ok {
		return limit
	}
	return t[TierFree]
}

// Normalize returns tier if it is known, otherwise the free tier.
func (t Tiers) Normalize(tier string) string {
	if _, ok := t[tier]; ok {
		return tier
	}
	return TierFree
}

// Key identifies one usage record. Date carries the calendar day only.
type Key struct {
	UserID string
	BotID  string
	Date   time.Time
}

type UsageRecord struct {
	UserID       string
	BotID        string
	Date         time.Time
	RequestCount int
}

func (r *UsageRecord) Key() Key {
	return Key{UserID: r.UserID, BotID: r.BotID, Date: r.Date}
}

type Store interface {
	Get(ctx context.Context, key Key) (*UsageRecord, error)
	Insert(ctx context.Context, rec *UsageRecord) error
	// Increment atomically adds one to an existing record and returns the new count.
	Increment(ctx context.Context, key Key) (int, error)
	// IncrementOrCreate atomically adds one to the record, creating it with a
	// count of one when absent, and returns the new count.
	IncrementOrCreate(ctx context.Context, key Key) (int, error)
	ListByDay(ctx context.Context, userID string, day time.Time) ([]*UsageRecord, error)
}

// Decision is the outcome of a daily limit check.
type Decision struct {
	Allowed      bool      `json:"allowed"`
	Remaining    int       `json:"remaining"`
	Limit        int       `json:"limit"`
	ResetAt      time.Time `json:"resetAt"`
	CurrentUsage int       `json:"currentUsage"`
}

type IncrementResult struct {
	Success bool  `json:"success"`
	Count   int   `json:"count"`
	Err     error `json:"-"`
}

type BotUsage struct {
	Used      int `json:"used"`
	Remaining int `json:"remaining"`
	Limit     int `json:"limit"`
}

// dayOf truncates t to its calendar date in t's location, returned as
// midnight UTC so it round-trips through DATE columns unchanged.
func dayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func nextMidnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, t.Location())
}
