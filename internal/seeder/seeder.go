package seeder

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/vnmchuo/eagleeye/internal/auth"
)

const (
	DevUserID  = "00000000-0000-0000-0000-000000000001"
	DevEmail   = "dev@eagleeye.local"
	SessionTTL = 30 * 24 * time.Hour
)

// SeedDevSession creates the development profile, if missing, and issues a
// fresh session token for it.
func SeedDevSession(ctx context.Context, store auth.Store) (string, error) {
	profile := &auth.Profile{
		ID:               DevUserID,
		Email:            DevEmail,
		FullName:         "EagleEye Developer",
		SubscriptionTier: auth.DefaultTier,
	}
	if err := store.CreateProfile(ctx, profile); err != nil {
		log.Printf("[Seeder] Profile may already exist, skipping: %v", err)
	}

	token := uuid.NewString()
	if err := store.CreateSession(ctx, DevUserID, token, SessionTTL); err != nil {
		return "", fmt.Errorf("failed to seed session: %w", err)
	}

	log.Printf("[Seeder] Dev session created successfully")
	log.Printf("[Seeder] UserID: %s", DevUserID)
	log.Printf("[Seeder] Token: %s", token)
	return token, nil
}
