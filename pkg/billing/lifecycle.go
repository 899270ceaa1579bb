package billing

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// ProviderRefs are the opaque provider-side identifiers tied to a subscription.
type ProviderRefs struct {
	CustomerRef     string
	SubscriptionRef string
}

// Activation carries the inputs of an activate transition.
// ExpiresAt, when set, is the provider-supplied next payment date; otherwise
// the expiry is one billing cycle from now.
type Activation struct {
	Cycle     BillingCycle
	Refs      ProviderRefs
	ExpiresAt *time.Time
}

// Issue flags a state that needs manual intervention rather than automatic repair.
type Issue struct {
	SubscriberID string
	Detail       string
}

// Manager applies lifecycle transitions to subscriber records.
// Every operation is idempotent: re-applying the same inputs leaves the
// record as if the operation ran once. Writes go through the store's
// conditional update, so concurrent duplicate deliveries lose cleanly with
// ErrVersionConflict instead of clobbering each other.
type Manager struct {
	store    SubscriberStore
	provider ProviderClient
	notifier Notifier
	now      func() time.Time
	logger   *slog.Logger
}

// ManagerOption configures optional Manager dependencies.
type ManagerOption func(*Manager)

// WithProvider attaches the payment provider client used for best-effort
// provider-side calls during cancel and reactivate.
func WithProvider(provider ProviderClient) ManagerOption {
	return func(m *Manager) { m.provider = provider }
}

// WithNotifier attaches the outbound notification dispatcher.
func WithNotifier(notifier Notifier) ManagerOption {
	return func(m *Manager) {
		if notifier != nil {
			m.notifier = notifier
		}
	}
}

// WithClock overrides the time source. Tests use fixed clocks to pin expiry math.
func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) ManagerOption {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewManager creates a lifecycle manager around the given store.
// Panics on a nil store to fail fast during initialization.
func NewManager(store SubscriberStore, opts ...ManagerOption) *Manager {
	if store == nil {
		panic("billing: SubscriberStore is required")
	}
	m := &Manager{
		store:    store,
		notifier: NoopNotifier{},
		now:      func() time.Time { return time.Now().UTC() },
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Activate grants pro entitlement after a verified payment or a provider
// subscription.create event.
//
// A subscriber whose effective plan is already pro is not re-activated:
// a true duplicate delivery (identical refs) is a silent no-op so replays
// converge, anything else returns ErrAlreadyActive without mutating.
// StartedAt is assigned only when no prior activation is in effect; stale
// refs from a defunct relationship are replaced wholesale.
func (m *Manager) Activate(ctx context.Context, subscriber *Subscriber, activation Activation) error {
	now := m.now()

	if subscriber.EffectivePlanAt(now) == PlanPro {
		if subscriber.Status == StatusActive &&
			subscriber.CustomerRef == activation.Refs.CustomerRef &&
			subscriber.SubscriptionRef == activation.Refs.SubscriptionRef {
			// Duplicate create replay; state already converged.
			return nil
		}
		return ErrAlreadyActive
	}

	if subscriber.StartedAt == nil || subscriber.Status == StatusExpired || subscriber.Status == StatusNone {
		started := now
		subscriber.StartedAt = &started
	}

	expiresAt := activation.ExpiresAt
	if expiresAt == nil {
		next := activation.Cycle.Next(now)
		expiresAt = &next
	} else {
		utc := expiresAt.UTC()
		expiresAt = &utc
	}

	subscriber.Status = StatusActive
	subscriber.Plan = PlanPro
	subscriber.ExpiresAt = expiresAt
	if activation.Refs.CustomerRef != "" {
		subscriber.CustomerRef = activation.Refs.CustomerRef
	}
	subscriber.SubscriptionRef = activation.Refs.SubscriptionRef

	if err := m.store.Update(ctx, subscriber); err != nil {
		return fmt.Errorf("activate subscriber %s: %w", subscriber.ID, err)
	}

	m.notify(ctx, subscriber, TemplateSubscriptionActivated, map[string]string{
		"expires_at": expiresAt.Format(time.RFC3339),
	})
	return nil
}

// Renew extends the paid period after a successful recurring invoice
// payment. The provider-supplied next payment date is authoritative when
// present; without one the extension is one billing cycle anchored at the
// current expiry, not at the delivery time, so late webhooks don't shorten
// the period. Replays converge: a renewal that would not move the expiry
// forward is a no-op, so a redelivered invoice never double-extends.
func (m *Manager) Renew(ctx context.Context, subscriber *Subscriber, cycle BillingCycle, until *time.Time) error {
	now := m.now()

	var next time.Time
	if until != nil {
		next = until.UTC()
		if subscriber.Status == StatusActive && subscriber.Plan == PlanPro &&
			subscriber.ExpiresAt != nil && subscriber.ExpiresAt.Equal(next) {
			// Duplicate invoice replay; state already converged.
			return nil
		}
	} else {
		// A fresh renewal arrives near the period boundary, so an expiry
		// already covering a full cycle from now identifies a redelivery.
		if subscriber.Status == StatusActive && subscriber.Plan == PlanPro &&
			subscriber.ExpiresAt != nil && !subscriber.ExpiresAt.Before(cycle.Next(now)) {
			return nil
		}
		base := now
		if subscriber.ExpiresAt != nil && subscriber.ExpiresAt.After(now) {
			base = *subscriber.ExpiresAt
		}
		next = cycle.Next(base)
	}

	subscriber.Status = StatusActive
	subscriber.Plan = PlanPro
	subscriber.ExpiresAt = &next

	if err := m.store.Update(ctx, subscriber); err != nil {
		return fmt.Errorf("renew subscriber %s: %w", subscriber.ID, err)
	}

	m.logger.InfoContext(ctx, "subscription renewed",
		slog.String("subscriber_id", subscriber.ID.String()),
		slog.Time("expires_at", next))
	return nil
}

// Cancel stops auto-renewal. The local record is authoritative for
// entitlement: the provider-side disable call is best-effort and its failure
// never blocks the local transition. An unexpired subscription enters the
// grace period with its expiry untouched; a lapsed one expires outright.
// StartedAt is never reassigned here.
func (m *Manager) Cancel(ctx context.Context, subscriber *Subscriber) error {
	now := m.now()

	if subscriber.Status != StatusActive {
		return ErrNotActive
	}

	if m.provider != nil && subscriber.SubscriptionRef != "" {
		if err := m.provider.DisableSubscription(ctx, subscriber.SubscriptionRef, ""); err != nil {
			m.logger.WarnContext(ctx, "provider disable call failed, proceeding with local cancellation",
				slog.String("subscriber_id", subscriber.ID.String()),
				slog.String("error", err.Error()))
		}
	}

	if subscriber.ExpiresAt != nil && subscriber.ExpiresAt.After(now) {
		// Grace period: entitlement holds until the already-paid-for expiry.
		subscriber.Status = StatusCancelled
	} else {
		subscriber.Status = StatusExpired
		subscriber.Plan = PlanFree
		subscriber.ExpiresAt = nil
		subscriber.CustomerRef = ""
		subscriber.SubscriptionRef = ""
	}

	if err := m.store.Update(ctx, subscriber); err != nil {
		return fmt.Errorf("cancel subscriber %s: %w", subscriber.ID, err)
	}

	params := map[string]string{}
	if subscriber.ExpiresAt != nil {
		params["access_until"] = subscriber.ExpiresAt.Format(time.RFC3339)
	}
	m.notify(ctx, subscriber, TemplateSubscriptionCancelled, params)
	return nil
}

// ExpireNow drops entitlement immediately in response to an explicit
// non-renewal notice. Repeat deliveries are no-ops.
func (m *Manager) ExpireNow(ctx context.Context, subscriber *Subscriber) error {
	if subscriber.Status == StatusExpired && subscriber.Plan == PlanFree &&
		subscriber.ExpiresAt == nil && subscriber.SubscriptionRef == "" {
		return nil
	}

	subscriber.Status = StatusExpired
	subscriber.Plan = PlanFree
	subscriber.ExpiresAt = nil
	subscriber.CustomerRef = ""
	subscriber.SubscriptionRef = ""

	if err := m.store.Update(ctx, subscriber); err != nil {
		return fmt.Errorf("expire subscriber %s: %w", subscriber.ID, err)
	}

	m.logger.InfoContext(ctx, "subscription expired",
		slog.String("subscriber_id", subscriber.ID.String()))
	return nil
}

// Reactivate starts a fresh paid period for a previously cancelled or
// expired subscriber. Stale provider refs are cleared first so the new
// activation cannot be conflated with a defunct provider-side subscription.
// When a provider client and a retained customer ref are available, a new
// provider subscription is created best-effort; failure falls back to a
// locally computed expiry.
func (m *Manager) Reactivate(ctx context.Context, subscriber *Subscriber, cycle BillingCycle, providerPlanCode string) error {
	now := m.now()

	if subscriber.Status == StatusActive {
		return ErrAlreadyActive
	}

	customerRef := subscriber.CustomerRef
	subscriber.CustomerRef = ""
	subscriber.SubscriptionRef = ""

	next := cycle.Next(now)
	expiresAt := &next

	if m.provider != nil && customerRef != "" && providerPlanCode != "" {
		created, err := m.provider.CreateSubscription(ctx, customerRef, providerPlanCode)
		if err != nil {
			m.logger.WarnContext(ctx, "provider subscription create failed, using local expiry",
				slog.String("subscriber_id", subscriber.ID.String()),
				slog.String("error", err.Error()))
		} else {
			subscriber.CustomerRef = customerRef
			subscriber.SubscriptionRef = created.SubscriptionCode
			if ts, parseErr := time.Parse(time.RFC3339, created.NextPaymentDate); parseErr == nil {
				utc := ts.UTC()
				expiresAt = &utc
			}
		}
	}

	started := now
	subscriber.StartedAt = &started
	subscriber.Status = StatusActive
	subscriber.Plan = PlanPro
	subscriber.ExpiresAt = expiresAt

	if err := m.store.Update(ctx, subscriber); err != nil {
		return fmt.Errorf("reactivate subscriber %s: %w", subscriber.ID, err)
	}

	m.notify(ctx, subscriber, TemplateSubscriptionReactivated, map[string]string{
		"expires_at": expiresAt.Format(time.RFC3339),
	})
	return nil
}

// RecordPaymentFailure logs a failed recurring payment without touching
// state. Grace-period suspension on repeated failures is a documented
// extension point; today the provider keeps retrying and either an
// invoice.update or a subscription.disable follows.
func (m *Manager) RecordPaymentFailure(ctx context.Context, subscriber *Subscriber) error {
	m.logger.WarnContext(ctx, "recurring payment failed",
		slog.String("subscriber_id", subscriber.ID.String()),
		slog.String("status", string(subscriber.Status)))
	return nil
}

// Sync reconciles the cached entitlement with the derived one, flipping a
// lapsed active or cancelled subscription to expired. It reports whether a
// write happened; a second call on the result is always a no-op.
func (m *Manager) Sync(ctx context.Context, subscriber *Subscriber) (bool, error) {
	now := m.now()
	changed := false

	lapsed := subscriber.ExpiresAt != nil && !subscriber.ExpiresAt.After(now)
	if (subscriber.Status == StatusActive || subscriber.Status == StatusCancelled) && lapsed {
		subscriber.Status = StatusExpired
		subscriber.ExpiresAt = nil
		subscriber.CustomerRef = ""
		subscriber.SubscriptionRef = ""
		changed = true
	}

	if effective := subscriber.EffectivePlanAt(now); subscriber.Plan != effective {
		subscriber.Plan = effective
		changed = true
	}

	if !changed {
		return false, nil
	}
	if err := m.store.Update(ctx, subscriber); err != nil {
		return false, fmt.Errorf("sync subscriber %s: %w", subscriber.ID, err)
	}

	m.logger.InfoContext(ctx, "subscriber state synced",
		slog.String("subscriber_id", subscriber.ID.String()),
		slog.String("status", string(subscriber.Status)),
		slog.String("plan", string(subscriber.Plan)))
	return true, nil
}

// ValidateAndRepair runs Sync and flags conditions that need manual
// intervention instead of silent repair. An active subscription with no
// expiry means a lost or unprocessed webhook and requires a replay.
func (m *Manager) ValidateAndRepair(ctx context.Context, subscriber *Subscriber) ([]Issue, error) {
	if _, err := m.Sync(ctx, subscriber); err != nil {
		return nil, err
	}

	var issues []Issue
	if subscriber.Status == StatusActive && subscriber.ExpiresAt == nil {
		issues = append(issues, Issue{
			SubscriberID: subscriber.ID.String(),
			Detail:       "active subscription without expiry; replay the provider webhook",
		})
	}
	return issues, nil
}

// notify dispatches a transition notification. Failures are logged and never
// affect the committed transition.
func (m *Manager) notify(ctx context.Context, subscriber *Subscriber, templateID int64, params map[string]string) {
	notification := Notification{
		TemplateID: templateID,
		Recipient:  subscriber.Email,
		Params:     params,
	}
	if err := m.notifier.Send(ctx, notification); err != nil {
		m.logger.WarnContext(ctx, "notification dispatch failed",
			slog.String("subscriber_id", subscriber.ID.String()),
			slog.Int64("template_id", templateID),
			slog.String("error", err.Error()))
	}
}
