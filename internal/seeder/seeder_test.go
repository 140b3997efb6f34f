package seeder

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/vnmchuo/eagleeye/internal/auth"
)

type mockStore struct {
	createProfileFunc func(ctx context.Context, p *auth.Profile) error
	createSessionFunc func(ctx context.Context, userID, token string, ttl time.Duration) error
	sessions          map[string]string
}

func (m *mockStore) GetSession(ctx context.Context, token string) (*auth.Session, error) {
	return nil, auth.ErrSessionNotFound
}

func (m *mockStore) CreateProfile(ctx context.Context, p *auth.Profile) error {
	if m.createProfileFunc != nil {
		return m.createProfileFunc(ctx, p)
	}
	return nil
}

func (m *mockStore) CreateSession(ctx context.Context, userID, token string, ttl time.Duration) error {
	if m.createSessionFunc != nil {
		return m.createSessionFunc(ctx, userID, token, ttl)
	}
	if m.sessions == nil {
		m.sessions = map[string]string{}
	}
	m.sessions[token] = userID
	return nil
}

func (m *mockStore) RevokeSession(ctx context.Context, token string) error { return nil }

func TestSeedDevSession(t *testing.T) {
	var profile *auth.Profile
	store := &mockStore{
		createProfileFunc: func(ctx context.Context, p *auth.Profile) error {
			profile = p
			return nil
		},
	}

	token, err := SeedDevSession(context.Background(), store)
	if err != nil {
		t.Fatalf("SeedDevSession failed: %v", err)
	}
	if _, err := uuid.Parse(token); err != nil {
		t.Errorf("Expected a uuid token, got %q", token)
	}
	if store.sessions[token] != DevUserID {
		t.Errorf("Expected session for %s, got %v", DevUserID, store.sessions)
	}
	if profile == nil || profile.SubscriptionTier != auth.DefaultTier {
		t.Errorf("Expected a free dev profile, got %+v", profile)
	}
}

func TestSeedDevSession_ExistingProfile(t *testing.T) {
	store := &mockStore{
		createProfileFunc: func(ctx context.Context, p *auth.Profile) error {
			return errors.New("duplicate key")
		},
	}

	token, err := SeedDevSession(context.Background(), store)
	if err != nil {
		t.Fatalf("Existing profile should not fail seeding: %v", err)
	}
	if token == "" {
		t.Error("Expected a token")
	}
}

func TestSeedDevSession_SessionError(t *testing.T) {
	store := &mockStore{
		createSessionFunc: func(ctx context.Context, userID, token string, ttl time.Duration) error {
			return errors.New("db down")
		},
	}

	if _, err := SeedDevSession(context.Background(), store); err == nil {
		t.Error("Expected an error when the session cannot be stored")
	}
}
