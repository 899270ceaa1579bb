package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

// Outcome classifies how a delivery was handled.
type Outcome string

const (
	// OutcomeProcessed means a lifecycle transition was applied.
	OutcomeProcessed Outcome = "processed"
	// OutcomeSkipped means the event was understood and deliberately not
	// applied (unknown subscriber, failed precondition). Not an error:
	// the HTTP layer answers 200 to stop redelivery storms.
	OutcomeSkipped Outcome = "skipped"
	// OutcomeIgnored means the event type carries nothing for us.
	OutcomeIgnored Outcome = "ignored"
)

// Result reports the disposition of a routed event.
type Result struct {
	Outcome Outcome
	Reason  string
}

// Router resolves the target subscriber for a parsed event and dispatches it
// to exactly one lifecycle operation. It never creates subscriber records.
type Router struct {
	store    SubscriberStore
	manager  *Manager
	catalog  *Catalog
	provider ProviderClient
	logger   *slog.Logger
}

// RouterOption configures optional Router dependencies.
type RouterOption func(*Router)

// WithChargeVerification attaches a provider client used to double-check
// charge references before activation. Verification failures are logged and
// do not block processing; the signed webhook is already authenticated.
func WithChargeVerification(provider ProviderClient) RouterOption {
	return func(r *Router) { r.provider = provider }
}

// WithRouterLogger sets the structured logger.
func WithRouterLogger(logger *slog.Logger) RouterOption {
	return func(r *Router) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRouter creates an event router. Panics on nil store, manager, or
// catalog to fail fast during initialization.
func NewRouter(store SubscriberStore, manager *Manager, catalog *Catalog, opts ...RouterOption) *Router {
	if store == nil {
		panic("billing: SubscriberStore is required")
	}
	if manager == nil {
		panic("billing: Manager is required")
	}
	if catalog == nil {
		panic("billing: Catalog is required")
	}
	r := &Router{
		store:   store,
		manager: manager,
		catalog: catalog,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Route applies a parsed event to the resolved subscriber.
// A nil error with a skipped or ignored outcome is a terminal 200 at the
// HTTP boundary; a non-nil error means the datastore or an internal step
// failed and the delivery is safe to retry.
func (r *Router) Route(ctx context.Context, event *Event) (Result, error) {
	if !event.Known {
		return Result{Outcome: OutcomeIgnored, Reason: "unrecognized event type"}, nil
	}

	subscriber, err := r.resolve(ctx, event)
	if err != nil {
		if errors.Is(err, ErrSubscriberNotFound) {
			r.logger.WarnContext(ctx, "webhook for unknown subscriber",
				slog.String("event", string(event.Type)),
				slog.String("email", event.Email))
			return Result{Outcome: OutcomeSkipped, Reason: "subscriber not found"}, nil
		}
		return Result{}, err
	}

	result, err := r.dispatch(ctx, event, subscriber)
	if err != nil {
		if errors.Is(err, ErrAlreadyActive) || errors.Is(err, ErrNotActive) {
			// Understood and deliberately not re-applied.
			return Result{Outcome: OutcomeSkipped, Reason: err.Error()}, nil
		}
		return Result{}, err
	}
	return result, nil
}

// resolve finds the target subscriber: explicit subscriber ID from checkout
// metadata first, then the customer email on the event.
func (r *Router) resolve(ctx context.Context, event *Event) (*Subscriber, error) {
	if event.SubscriberID != uuid.Nil {
		subscriber, err := r.store.GetByID(ctx, event.SubscriberID)
		if err == nil {
			return subscriber, nil
		}
		if !errors.Is(err, ErrSubscriberNotFound) {
			return nil, err
		}
		// Stale metadata; fall back to the email lookup.
	}
	if event.Email == "" {
		return nil, ErrSubscriberNotFound
	}
	return r.store.GetByEmail(ctx, event.Email)
}

func (r *Router) dispatch(ctx context.Context, event *Event, subscriber *Subscriber) (Result, error) {
	switch event.Type {
	case EventChargeSuccess:
		return r.handleChargeSuccess(ctx, event, subscriber)

	case EventSubscriptionCreate:
		activation := Activation{
			Cycle: r.cycleFor(event),
			Refs: ProviderRefs{
				CustomerRef:     event.CustomerCode,
				SubscriptionRef: event.SubscriptionCode,
			},
			ExpiresAt: event.NextPaymentAt,
		}
		if err := r.manager.Activate(ctx, subscriber, activation); err != nil {
			return Result{}, err
		}
		return Result{Outcome: OutcomeProcessed, Reason: "subscription activated"}, nil

	case EventSubscriptionDisable:
		if err := r.manager.Cancel(ctx, subscriber); err != nil {
			return Result{}, err
		}
		return Result{Outcome: OutcomeProcessed, Reason: "subscription cancelled"}, nil

	case EventSubscriptionNotRenew:
		if err := r.manager.ExpireNow(ctx, subscriber); err != nil {
			return Result{}, err
		}
		return Result{Outcome: OutcomeProcessed, Reason: "subscription expired"}, nil

	case EventInvoiceUpdate:
		if event.Status != "success" {
			return Result{Outcome: OutcomeIgnored, Reason: fmt.Sprintf("invoice status %q", event.Status)}, nil
		}
		if err := r.manager.Renew(ctx, subscriber, r.cycleFor(event), event.NextPaymentAt); err != nil {
			return Result{}, err
		}
		return Result{Outcome: OutcomeProcessed, Reason: "subscription renewed"}, nil

	case EventInvoicePaymentFailed:
		if err := r.manager.RecordPaymentFailure(ctx, subscriber); err != nil {
			return Result{}, err
		}
		return Result{Outcome: OutcomeProcessed, Reason: "payment failure recorded"}, nil

	case EventInvoiceCreate, EventCustomerIdentification:
		return Result{Outcome: OutcomeIgnored, Reason: "informational event"}, nil
	}

	return Result{Outcome: OutcomeIgnored, Reason: "no operation mapped"}, nil
}

// handleChargeSuccess activates a subscription for a one-off card payment
// whose checkout metadata marks it as a pro upgrade.
func (r *Router) handleChargeSuccess(ctx context.Context, event *Event, subscriber *Subscriber) (Result, error) {
	if event.Status != "success" || event.PlanType != string(PlanPro) {
		return Result{Outcome: OutcomeIgnored, Reason: "charge not a plan upgrade"}, nil
	}

	if r.provider != nil {
		transaction, err := r.provider.VerifyTransaction(ctx, event.Reference)
		if err != nil {
			// The webhook signature already authenticated the delivery;
			// a verification outage must not block entitlement.
			r.logger.WarnContext(ctx, "charge verification failed, trusting signed webhook",
				slog.String("reference", event.Reference),
				slog.String("error", err.Error()))
		} else if transaction.Status != "success" {
			return Result{Outcome: OutcomeSkipped, Reason: "charge did not verify as successful"}, nil
		}
	}

	activation := Activation{
		Cycle: r.cycleFor(event),
		Refs:  ProviderRefs{CustomerRef: event.CustomerCode},
	}
	if err := r.manager.Activate(ctx, subscriber, activation); err != nil {
		return Result{}, err
	}
	return Result{Outcome: OutcomeProcessed, Reason: "subscription activated"}, nil
}

// cycleFor picks the billing cycle from checkout metadata when present and
// from the plan catalog otherwise.
func (r *Router) cycleFor(event *Event) BillingCycle {
	if event.Cycle.Valid() {
		return event.Cycle
	}
	return r.catalog.CycleFor(event.PlanCode)
}
