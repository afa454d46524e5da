package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/oksasatya/otp-auth-gateway/config"
	"github.com/oksasatya/otp-auth-gateway/internal/application"
	"github.com/oksasatya/otp-auth-gateway/internal/infrastructure/backend"
	"github.com/oksasatya/otp-auth-gateway/internal/infrastructure/search"
	"github.com/oksasatya/otp-auth-gateway/pkg/helpers"
)

// seed signs up a demo user through the auth service unless one already exists for the
// email. Sign-up sends the demo user a passcode.
func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	if cfg.BackendProvider == config.ProviderMemory {
		log.Fatal("seeding the memory backend has no lasting effect; set BACKEND_PROVIDER")
	}
	logger := helpers.NewLogger(cfg.AppName+"-seed", cfg.Env)

	email := getenv("SEED_EMAIL", "demo@example.com")
	fullName := getenv("SEED_FULL_NAME", "Demo User")

	ctx := context.Background()
	be, err := backend.Open(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("open backend: %v", err)
	}
	defer be.Close()

	es, err := helpers.NewESClient(cfg)
	if err != nil {
		logger.WithError(err).Warn("elasticsearch unavailable, seeded user will not be indexed")
	}
	svc := application.NewAuthService(
		be.Clients,
		cfg.DatabaseID,
		cfg.UsersCollectionID,
		cfg.AvatarPlaceholderURL,
		cfg.SignInPath,
		search.NewUserIndex(es, cfg.ESUsersIndex, logger),
		logger,
	)

	existing, err := svc.LookupUserByEmail(ctx, email)
	if err != nil {
		log.Fatalf("lookup: %v", err)
	}
	if existing != nil {
		fmt.Printf("user already seeded: id=%s email=%s\n", existing.ID, email)
		return
	}

	res, err := svc.CreateAccount(ctx, fullName, email)
	if err != nil {
		log.Fatalf("failed to seed user: %v", err)
	}
	fmt.Printf("seeded user: email=%s accountId=%s\n", email, res.AccountID)
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
