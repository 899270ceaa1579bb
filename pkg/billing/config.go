package billing

import "time"

// Config holds the billing engine settings, populated from environment
// variables via github.com/caarlos0/env. Secrets are injected here rather
// than read from package-level state so tests and multi-tenant deployments
// can run with distinct credentials.
type Config struct {
	// WebhookSecret authenticates inbound deliveries. For Paystack this is
	// the account secret key; kept separate from PaystackConfig so the
	// webhook boundary can run without an outbound API client.
	WebhookSecret string `env:"BILLING_WEBHOOK_SECRET,required"`

	// PlanCatalogPath points to the YAML plan catalog. Empty means the
	// built-in defaults.
	PlanCatalogPath string `env:"BILLING_PLAN_CATALOG"`

	// SweepInterval is the maintenance sweep period.
	SweepInterval time.Duration `env:"BILLING_SWEEP_INTERVAL" envDefault:"1h"`
}
