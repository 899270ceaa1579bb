package billing

import (
	"github.com/linkdeck/linkdeck/pkg/billing"
	"github.com/linkdeck/linkdeck/pkg/httpserver"
)

// StoreDriver selects the SubscriberStore backend.
type StoreDriver string

const (
	DriverPostgres StoreDriver = "postgres"
	DriverMongo    StoreDriver = "mongo"
	DriverMemory   StoreDriver = "memory"
)

// Config is the top-level service configuration. Backend-specific configs
// (postgres, mongo, redis, email) are loaded lazily in New only when the
// corresponding driver or feature is enabled, so their required variables
// don't have to be present in every deployment.
type Config struct {
	Billing billing.Config
	HTTP    httpserver.Config

	StoreDriver StoreDriver `env:"BILLING_STORE_DRIVER" envDefault:"memory"`

	// RedisLockEnabled switches the per-subscriber webhook lock from the
	// in-process keyed mutex to the Redis-backed one. Required for
	// multi-instance deployments.
	RedisLockEnabled bool `env:"REDIS_LOCK_ENABLED" envDefault:"false"`

	// ProviderAPIEnabled turns on outbound Paystack API calls: charge
	// verification on webhooks and subscription disable/create on
	// cancel/reactivate. Webhook processing works without it.
	ProviderAPIEnabled bool `env:"PAYSTACK_API_ENABLED" envDefault:"false"`

	// EmailProvider selects the notification backend: "postmark", "dev"
	// (writes sends to EmailDevDir) or "noop".
	EmailProvider string `env:"EMAIL_PROVIDER" envDefault:"noop"`
	EmailDevDir   string `env:"EMAIL_DEV_DIR" envDefault:"./tmp/emails"`
}
