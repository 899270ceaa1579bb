package billing

import "time"

// PlanType is the entitlement tier currently granted to a subscriber.
type PlanType string

const (
	PlanFree PlanType = "free"
	PlanPro  PlanType = "pro"
)

// SubscriptionStatus is the billing-provider-facing lifecycle state.
type SubscriptionStatus string

const (
	StatusNone      SubscriptionStatus = "none"
	StatusActive    SubscriptionStatus = "active"
	StatusCancelled SubscriptionStatus = "cancelled"
	StatusExpired   SubscriptionStatus = "expired"
)

// BillingCycle is the renewal period of a paid plan.
type BillingCycle string

const (
	CycleMonthly  BillingCycle = "monthly"
	CycleAnnually BillingCycle = "annually"
)

// Next returns the expiry timestamp one billing cycle after from.
// Calendar-based arithmetic keeps renewal dates stable across month lengths.
func (c BillingCycle) Next(from time.Time) time.Time {
	if c == CycleAnnually {
		return from.AddDate(1, 0, 0)
	}
	return from.AddDate(0, 1, 0)
}

// Valid reports whether the cycle is one of the supported values.
func (c BillingCycle) Valid() bool {
	return c == CycleMonthly || c == CycleAnnually
}
