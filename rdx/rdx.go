// Package rdx wraps the Redis features the store uses: short-lived locks,
// the product list cache and the revoked-token list. Each has an in-process
// implementation for running without Redis.
package rdx

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// NewClient dials Redis and pings it.
func NewClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password, // Empty if no password
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	return client, nil
}
