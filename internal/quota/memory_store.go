package quota

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-process Store for development and tests.
type MemoryStore struct {
	mu       sync.Mutex
	records  map[string]*UsageRecord
	noUpsert bool
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]*UsageRecord)}
}

// DisableAtomicIncrement makes IncrementOrCreate report ErrIncrementUnavailable,
// as a database without the increment function would.
func (s *MemoryStore) DisableAtomicIncrement() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.noUpsert = true
}

func memKey(userID, botID string, date time.Time) string {
	return userID + "|" + botID + "|" + date.Format(time.DateOnly)
}

func (s *MemoryStore) Get(_ context.Context, key Key) (*UsageRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.records[memKey(key.UserID, key.BotID, key.Date)]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (s *MemoryStore) Insert(_ context.Context, rec *UsageRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := memKey(rec.UserID, rec.BotID, rec.Date)
	if _, ok := s.records[k]; ok {
		return ErrConflict
	}
	cp := *rec
	s.records[k] = &cp
	return nil
}

func (s *MemoryStore) Increment(_ context.Context, key Key) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.records[memKey(key.UserID, key.BotID, key.Date)]
	if !ok {
		return 0, ErrNotFound
	}
	r.RequestCount++
	return r.RequestCount, nil
}

func (s *MemoryStore) IncrementOrCreate(_ context.Context, key Key) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.noUpsert {
		return 0, ErrIncrementUnavailable
	}

	k := memKey(key.UserID, key.BotID, key.Date)
	r, ok := s.records[k]
	if !ok {
		r = &UsageRecord{UserID: key.UserID, BotID: key.BotID, Date: key.Date}
		s.records[k] = r
	}
	r.RequestCount++
	return r.RequestCount, nil
}

func (s *MemoryStore) ListByDay(_ context.Context, userID string, day time.Time) ([]*UsageRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	date := day.Format(time.DateOnly)
	var out []*UsageRecord
	for _, r := range s.records {
		if r.UserID == userID && r.Date.Format(time.DateOnly) == date {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}
