package redis

import "time"

// Config is the env-tagged Redis client configuration.
type Config struct {
	ConnectionURL  string        `env:"REDIS_URL,required"`
	ConnectTimeout time.Duration `env:"REDIS_CONNECT_TIMEOUT" envDefault:"5s"`

	RetryAttempts int           `env:"REDIS_RETRY_ATTEMPTS" envDefault:"3"`
	RetryInterval time.Duration `env:"REDIS_RETRY_INTERVAL" envDefault:"5s"`

	// Lock settings for the distributed per-subscriber lock.
	LockTTL           time.Duration `env:"REDIS_LOCK_TTL" envDefault:"30s"`
	LockRetryInterval time.Duration `env:"REDIS_LOCK_RETRY_INTERVAL" envDefault:"50ms"`
}
