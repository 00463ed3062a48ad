package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/codegenius/codegenius/pkg/persistence"
	"github.com/codegenius/codegenius/pkg/persistence/file"
	"github.com/codegenius/codegenius/pkg/persistence/memory"
	"github.com/codegenius/codegenius/pkg/persistence/postgresql"
	"github.com/codegenius/codegenius/pkg/persistence/redis"
)

var supportedPersistenceProviders = []string{"memory", "file", "postgres", "postgresql", "redis"}

// NewPersistence creates the workflow store named by databaseURL's scheme.
// URLs without a recognized scheme are treated as file store roots.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) persistence.Persistence {
	switch parsePersistenceProvider(databaseURL) {
	case "memory":
		return memory.NewPersistence()
	case "postgres", "postgresql":
		store, err := postgresql.NewPersistence(ctx, logger, databaseURL)
		if err != nil {
			panic(fmt.Errorf("failed to create PostgreSQL persistence: %w", err))
		}

		return store
	case "redis":
		store, err := redis.NewPersistence(ctx, logger, databaseURL)
		if err != nil {
			panic(fmt.Errorf("failed to create Redis persistence: %w", err))
		}

		return store
	default:
		store, err := file.NewPersistence(strings.TrimPrefix(databaseURL, "file://"))
		if err != nil {
			panic(fmt.Errorf("failed to create file persistence: %w", err))
		}

		return store
	}
}

func parsePersistenceProvider(databaseURL string) string {
	parts := strings.Split(databaseURL, "://")

	provider := parts[0]
	for _, supported := range supportedPersistenceProviders {
		if provider == supported {
			return provider
		}
	}

	return "file"
}
