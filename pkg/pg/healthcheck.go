package pg

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Healthcheck returns a readiness probe backed by pool.Ping.
func Healthcheck(pool *pgxpool.Pool) func(context.Context) error {
	return func(ctx context.Context) error {
		if pool == nil {
			return ErrFailedToOpenDB
		}
		return pool.Ping(ctx)
	}
}
