package billing_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linkdeck/linkdeck/pkg/billing"
)

func TestEffectivePlan(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	future := now.Add(24 * time.Hour)
	past := now.Add(-24 * time.Hour)

	tests := []struct {
		name      string
		status    billing.SubscriptionStatus
		expiresAt *time.Time
		want      billing.PlanType
	}{
		{
			name:      "active without expiry",
			status:    billing.StatusActive,
			expiresAt: nil,
			want:      billing.PlanPro,
		},
		{
			name:      "active with future expiry",
			status:    billing.StatusActive,
			expiresAt: &future,
			want:      billing.PlanPro,
		},
		{
			name:      "active but lapsed",
			status:    billing.StatusActive,
			expiresAt: &past,
			want:      billing.PlanFree,
		},
		{
			name:      "cancelled within grace period",
			status:    billing.StatusCancelled,
			expiresAt: &future,
			want:      billing.PlanPro,
		},
		{
			name:      "cancelled past expiry",
			status:    billing.StatusCancelled,
			expiresAt: &past,
			want:      billing.PlanFree,
		},
		{
			name:      "cancelled without expiry",
			status:    billing.StatusCancelled,
			expiresAt: nil,
			want:      billing.PlanFree,
		},
		{
			name:      "expired",
			status:    billing.StatusExpired,
			expiresAt: nil,
			want:      billing.PlanFree,
		},
		{
			name:      "no billing relationship",
			status:    billing.StatusNone,
			expiresAt: nil,
			want:      billing.PlanFree,
		},
		{
			name:      "expired with stale future expiry",
			status:    billing.StatusExpired,
			expiresAt: &future,
			want:      billing.PlanFree,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := billing.EffectivePlan(tt.status, tt.expiresAt, now)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEffectivePlan_ExpiryBoundary(t *testing.T) {
	t.Parallel()

	// Exactly at the expiry instant the entitlement is gone: only a
	// strictly future expiry grants pro.
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	at := now

	assert.Equal(t, billing.PlanFree, billing.EffectivePlan(billing.StatusActive, &at, now))
	assert.Equal(t, billing.PlanFree, billing.EffectivePlan(billing.StatusCancelled, &at, now))
}

func TestBillingCycle_Next(t *testing.T) {
	t.Parallel()

	from := time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)

	monthly := billing.CycleMonthly.Next(from)
	require.Equal(t, time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC), monthly,
		"AddDate normalizes Jan 31 + 1 month")

	annual := billing.CycleAnnually.Next(from)
	require.Equal(t, time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC), annual)
}

func TestBillingCycle_Valid(t *testing.T) {
	t.Parallel()

	assert.True(t, billing.CycleMonthly.Valid())
	assert.True(t, billing.CycleAnnually.Valid())
	assert.False(t, billing.BillingCycle("weekly").Valid())
	assert.False(t, billing.BillingCycle("").Valid())
}
