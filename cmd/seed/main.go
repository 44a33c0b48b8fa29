package main

import (
	"context"
	"flag"
	"os"

	"github.com/docgate/docgate/internal/config"
	"github.com/docgate/docgate/internal/database"
	"github.com/docgate/docgate/internal/users"
	"github.com/docgate/docgate/pkg/logger"
)

// Seeds (or resets) a local account so the service can be logged into
// without an external identity provider.
func main() {
	username := flag.String("username", "admin", "account username")
	email := flag.String("email", "admin@example.com", "account email")
	password := flag.String("password", "", "account password (required)")
	flag.Parse()

	logger.Init(os.Getenv("LOG_LEVEL"))
	if *password == "" {
		logger.Fatalf("-password is required")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}

	ctx := context.Background()
	store, err := database.Connect(ctx, cfg.MongoDB.URI, cfg.MongoDB.Database, cfg.MongoDB.Timeout)
	if err != nil {
		logger.Fatalf("failed to connect to MongoDB: %v", err)
	}
	defer func() { _ = store.Close(ctx) }()

	svc := users.NewService(users.NewMongoUserRepository(store.Collection("users")))
	u, err := svc.Register(ctx, *username, *email, *password)
	if err != nil {
		logger.Fatalf("failed to seed user: %v", err)
	}
	logger.Infof("seeded user %q (%s)", u.Username, u.Email)
}
