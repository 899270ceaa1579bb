package redis

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// Healthcheck returns a readiness probe backed by client.Ping.
func Healthcheck(client *redis.Client) func(context.Context) error {
	return func(ctx context.Context) error {
		if client == nil {
			return ErrFailedToPing
		}
		return client.Ping(ctx).Err()
	}
}
