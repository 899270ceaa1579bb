package billing_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linkdeck/linkdeck/pkg/billing"
)

func TestMemoryStore_VersionConflict(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store := billing.NewMemoryStore()
	subscriber := &billing.Subscriber{ID: uuid.New(), Email: "ada@example.com", Status: billing.StatusNone, Plan: billing.PlanFree}
	require.NoError(t, store.Create(ctx, subscriber))

	first, err := store.GetByID(ctx, subscriber.ID)
	require.NoError(t, err)
	second, err := store.GetByID(ctx, subscriber.ID)
	require.NoError(t, err)

	first.Status = billing.StatusActive
	require.NoError(t, store.Update(ctx, first))
	assert.Equal(t, int64(1), first.Version, "committed version reflected back")

	second.Status = billing.StatusExpired
	err = store.Update(ctx, second)
	require.ErrorIs(t, err, billing.ErrVersionConflict)

	// The losing write left the stored record untouched.
	stored, err := store.GetByID(ctx, subscriber.ID)
	require.NoError(t, err)
	assert.Equal(t, billing.StatusActive, stored.Status)
}

func TestMemoryStore_EmailLookupIsCaseInsensitive(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store := billing.NewMemoryStore()
	subscriber := &billing.Subscriber{ID: uuid.New(), Email: "Ada@Example.COM"}
	require.NoError(t, store.Create(ctx, subscriber))

	found, err := store.GetByEmail(ctx, "  ada@example.com ")
	require.NoError(t, err)
	assert.Equal(t, subscriber.ID, found.ID)
}

func TestMemoryStore_EmailChangeReindexes(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store := billing.NewMemoryStore()
	subscriber := &billing.Subscriber{ID: uuid.New(), Email: "old@example.com"}
	require.NoError(t, store.Create(ctx, subscriber))

	updated, err := store.GetByID(ctx, subscriber.ID)
	require.NoError(t, err)
	updated.Email = "new@example.com"
	require.NoError(t, store.Update(ctx, updated))

	found, err := store.GetByEmail(ctx, "new@example.com")
	require.NoError(t, err)
	assert.Equal(t, subscriber.ID, found.ID)

	_, err = store.GetByEmail(ctx, "old@example.com")
	require.ErrorIs(t, err, billing.ErrSubscriberNotFound,
		"the previous address must not keep resolving")
}

func TestMemoryStore_NotFound(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store := billing.NewMemoryStore()

	_, err := store.GetByID(ctx, uuid.New())
	require.ErrorIs(t, err, billing.ErrSubscriberNotFound)

	_, err = store.GetByEmail(ctx, "nobody@example.com")
	require.ErrorIs(t, err, billing.ErrSubscriberNotFound)

	err = store.Update(ctx, &billing.Subscriber{ID: uuid.New()})
	require.ErrorIs(t, err, billing.ErrSubscriberNotFound)
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store := billing.NewMemoryStore()
	expiry := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	subscriber := &billing.Subscriber{
		ID:        uuid.New(),
		Email:     "ada@example.com",
		Status:    billing.StatusActive,
		Plan:      billing.PlanPro,
		ExpiresAt: &expiry,
	}
	require.NoError(t, store.Create(ctx, subscriber))

	got, err := store.GetByID(ctx, subscriber.ID)
	require.NoError(t, err)
	got.Status = billing.StatusExpired
	*got.ExpiresAt = expiry.AddDate(1, 0, 0)

	stored, err := store.GetByID(ctx, subscriber.ID)
	require.NoError(t, err)
	assert.Equal(t, billing.StatusActive, stored.Status)
	assert.Equal(t, expiry, *stored.ExpiresAt)
}

func TestMemoryStore_Listings(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	past := now.AddDate(0, 0, -3)
	future := now.AddDate(0, 0, 3)

	store := billing.NewMemoryStore()
	require.NoError(t, store.Create(ctx, &billing.Subscriber{
		ID: uuid.New(), Email: "free@example.com", Status: billing.StatusNone, Plan: billing.PlanFree,
	}))
	lapsed := &billing.Subscriber{
		ID: uuid.New(), Email: "lapsed@example.com", Status: billing.StatusActive,
		Plan: billing.PlanPro, ExpiresAt: &past,
	}
	require.NoError(t, store.Create(ctx, lapsed))
	require.NoError(t, store.Create(ctx, &billing.Subscriber{
		ID: uuid.New(), Email: "current@example.com", Status: billing.StatusActive,
		Plan: billing.PlanPro, ExpiresAt: &future,
	}))

	billed, err := store.ListBilled(ctx)
	require.NoError(t, err)
	assert.Len(t, billed, 2, "records without a billing relationship are excluded")

	lapsedPro, err := store.ListLapsedPro(ctx, now)
	require.NoError(t, err)
	require.Len(t, lapsedPro, 1)
	assert.Equal(t, lapsed.ID, lapsedPro[0].ID)
}
