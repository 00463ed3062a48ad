// Package redis provides Redis-based workflow persistence.
package redis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	redis "github.com/redis/go-redis/v9"
)

const (
	workflowKeyPrefix = "codegenius:workflow:"
	workflowIndexKey  = "codegenius:workflows"

	connectTimeout = 5 * time.Second
)

type Persistence struct {
	client *redis.Client
	logger *slog.Logger
}

// NewPersistence connects to the Redis instance described by redisURL
// (redis://[user:password@]host:port[/db]) and verifies it with a ping.
func NewPersistence(ctx context.Context, logger *slog.Logger, redisURL string) (*Persistence, error) {
	options, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := redis.NewClient(options)

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	err = client.Ping(pingCtx).Err()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.InfoContext(ctx, "Connected to Redis", "addr", options.Addr, "db", options.DB)

	return &Persistence{
		client: client,
		logger: logger.With("module", "redis_persistence"),
	}, nil
}

func (p *Persistence) HealthCheck(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

func (p *Persistence) Close(_ context.Context) error {
	return p.client.Close()
}

func workflowKey(id string) string {
	return workflowKeyPrefix + id
}
