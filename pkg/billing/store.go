package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// SubscriberStore is the persistence contract for billing records.
// The webhook pipeline never creates subscribers; Create exists for the
// signup flow and tests. Update is a conditional write on Version so that
// duplicate or out-of-order deliveries racing on the same subscriber cannot
// produce lost updates: the loser gets ErrVersionConflict and the provider
// retries the delivery against fresh state.
type SubscriberStore interface {
	// GetByID retrieves a subscriber by ID.
	// Returns ErrSubscriberNotFound if no record exists.
	GetByID(ctx context.Context, id uuid.UUID) (*Subscriber, error)

	// GetByEmail retrieves a subscriber by email, matched case-insensitively.
	GetByEmail(ctx context.Context, email string) (*Subscriber, error)

	// Create inserts a new subscriber record.
	Create(ctx context.Context, subscriber *Subscriber) error

	// Update persists the record if subscriber.Version still matches the
	// stored version, then increments it. Returns ErrVersionConflict
	// otherwise and ErrSubscriberNotFound for unknown IDs.
	Update(ctx context.Context, subscriber *Subscriber) error

	// ListBilled returns all subscribers with a billing relationship
	// (Status != none). Used by the maintenance sweep's drift pass.
	ListBilled(ctx context.Context) ([]*Subscriber, error)

	// ListLapsedPro returns subscribers still cached as pro whose expiry
	// is before now. Used by the maintenance sweep's entitlement pass.
	ListLapsedPro(ctx context.Context, now time.Time) ([]*Subscriber, error)
}
