package billing

import (
	"time"

	"github.com/google/uuid"
)

// Subscriber is the durable billing record for a single account.
// Plan is a cache of EffectivePlan over Status and ExpiresAt; the two may
// transiently drift after an out-of-order delivery, and Sync restores them.
type Subscriber struct {
	ID     uuid.UUID
	Email  string
	Plan   PlanType
	Status SubscriptionStatus

	// StartedAt is set at the original activation and never reassigned
	// by later lifecycle transitions. ExpiresAt is nil only when no
	// billing relationship exists.
	StartedAt *time.Time
	ExpiresAt *time.Time

	// Opaque identifiers assigned by the payment provider.
	CustomerRef     string
	SubscriptionRef string

	// Version is the optimistic-concurrency token; stores reject updates
	// whose Version does not match the persisted record.
	Version   int64
	UpdatedAt time.Time
}

// EffectivePlan derives the entitlement tier from the lifecycle state alone.
// It is the single source of truth the cached Subscriber.Plan must agree with.
func EffectivePlan(status SubscriptionStatus, expiresAt *time.Time, now time.Time) PlanType {
	switch status {
	case StatusActive:
		if expiresAt == nil || expiresAt.After(now) {
			return PlanPro
		}
		return PlanFree
	case StatusCancelled:
		// Grace period: entitlement holds until the expiry captured at
		// cancellation time.
		if expiresAt != nil && expiresAt.After(now) {
			return PlanPro
		}
		return PlanFree
	default:
		return PlanFree
	}
}

// EffectivePlanAt returns the subscriber's derived entitlement at the given time.
func (s *Subscriber) EffectivePlanAt(now time.Time) PlanType {
	return EffectivePlan(s.Status, s.ExpiresAt, now)
}

// IsPro reports whether the cached entitlement tier is pro.
func (s *Subscriber) IsPro() bool {
	return s.Plan == PlanPro
}

// HasBillingRelationship reports whether the subscriber ever went through checkout.
func (s *Subscriber) HasBillingRelationship() bool {
	return s.Status != StatusNone
}

// clone returns a deep copy so callers can mutate without aliasing stored state.
func (s *Subscriber) clone() *Subscriber {
	dup := *s
	if s.StartedAt != nil {
		t := *s.StartedAt
		dup.StartedAt = &t
	}
	if s.ExpiresAt != nil {
		t := *s.ExpiresAt
		dup.ExpiresAt = &t
	}
	return &dup
}
