package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
)

// seedPasswordBytes is the number of random bytes for the seed account password.
const seedPasswordBytes = 16

// SeedTeacher creates the initial TEACHER account on first boot if no
// accounts exist. Without it there is no key capable of creating further
// accounts. The generated API key is logged once - it must be captured and
// rotated into real provisioning immediately.
//
// Returns the generated API key (empty string if seeding was skipped).
func SeedTeacher(ctx context.Context, accounts AccountRepository, logger *slog.Logger) (string, error) {
	count, err := accounts.Count(ctx)
	if err != nil {
		return "", fmt.Errorf("checking account count: %w", err)
	}

	if count > 0 {
		logger.Info("accounts exist, skipping teacher seed")
		return "", nil
	}

	passwordBytes := make([]byte, seedPasswordBytes)
	if _, err := rand.Read(passwordBytes); err != nil {
		return "", fmt.Errorf("generating seed password: %w", err)
	}

	teacher := &Account{
		Username: "teacher",
		Password: hex.EncodeToString(passwordBytes),
		Role:     RoleTeacher,
		APIKey:   NewAPIKey(),
	}

	if err := accounts.Insert(ctx, teacher); err != nil {
		return "", fmt.Errorf("creating seed teacher: %w", err)
	}

	logger.Warn("seed teacher account created",
		"username", teacher.Username,
		"api_key", teacher.APIKey,
		"action_required", "store this key securely and create real accounts with it",
	)

	return teacher.APIKey, nil
}
