package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

// Connect opens a MongoDB client, verifies connectivity with a retry loop,
// and returns the configured database handle alongside the client.
func Connect(ctx context.Context, cfg Config) (*mongo.Client, *mongo.Database, error) {
	if cfg.ConnectionURL == "" {
		return nil, nil, ErrEmptyConnectionURL
	}
	if cfg.Database == "" {
		return nil, nil, ErrEmptyDatabaseName
	}

	opts := options.Client().
		ApplyURI(cfg.ConnectionURL).
		SetConnectTimeout(cfg.ConnectTimeout).
		SetMaxPoolSize(cfg.MaxPoolSize).
		SetMinPoolSize(cfg.MinPoolSize)

	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, nil, errors.Join(ErrFailedToConnect, err)
	}

	attempts := cfg.RetryAttempts
	if attempts < 1 {
		attempts = 1
	}
	interval := cfg.RetryInterval
	if interval <= 0 {
		interval = time.Second
	}

	var pingErr error
	for i := 0; i < attempts; i++ {
		if pingErr = client.Ping(ctx, readpref.Primary()); pingErr == nil {
			return client, client.Database(cfg.Database), nil
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			_ = client.Disconnect(context.WithoutCancel(ctx))
			return nil, nil, errors.Join(ErrFailedToPing, ctx.Err())
		case <-time.After(interval):
		}
	}

	_ = client.Disconnect(context.WithoutCancel(ctx))
	return nil, nil, errors.Join(ErrFailedToPing, fmt.Errorf("after %d attempts: %w", attempts, pingErr))
}
