package billing_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linkdeck/linkdeck/pkg/billing"
)

func TestSweeper_SweepOnce(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store := billing.NewMemoryStore()
	manager := billing.NewManager(store, fixedClock())

	past := fixedNow.AddDate(0, 0, -2)
	future := fixedNow.AddDate(0, 0, 20)

	lapsed := &billing.Subscriber{
		ID: uuid.New(), Email: "lapsed@example.com",
		Status: billing.StatusActive, Plan: billing.PlanPro, ExpiresAt: &past,
	}
	require.NoError(t, store.Create(ctx, lapsed))

	graceLapsed := &billing.Subscriber{
		ID: uuid.New(), Email: "grace@example.com",
		Status: billing.StatusCancelled, Plan: billing.PlanPro, ExpiresAt: &past,
	}
	require.NoError(t, store.Create(ctx, graceLapsed))

	healthy := &billing.Subscriber{
		ID: uuid.New(), Email: "healthy@example.com",
		Status: billing.StatusActive, Plan: billing.PlanPro, ExpiresAt: &future,
	}
	require.NoError(t, store.Create(ctx, healthy))

	sweeper := billing.NewSweeper(store, manager, time.Hour, nil)
	report := sweeper.SweepOnce(ctx)

	assert.Equal(t, 2, report.Updated)
	assert.Equal(t, 0, report.Errors)
	// Lapsed records appear in both the lapsed-pro pass and the billed
	// pass; the second visit is a no-op.
	assert.GreaterOrEqual(t, report.Processed, 3)

	for _, id := range []uuid.UUID{lapsed.ID, graceLapsed.ID} {
		stored, err := store.GetByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, billing.StatusExpired, stored.Status)
		assert.Equal(t, billing.PlanFree, stored.Plan)
		assert.Nil(t, stored.ExpiresAt)
	}

	stored, err := store.GetByID(ctx, healthy.ID)
	require.NoError(t, err)
	assert.Equal(t, billing.StatusActive, stored.Status)
	assert.Equal(t, billing.PlanPro, stored.Plan)

	// A second sweep finds nothing to repair.
	report = sweeper.SweepOnce(ctx)
	assert.Equal(t, 0, report.Updated)
	assert.Equal(t, 0, report.Errors)
}

type listFailingStore struct {
	billing.SubscriberStore
	listErr error
}

func (f *listFailingStore) ListBilled(ctx context.Context) ([]*billing.Subscriber, error) {
	return nil, f.listErr
}

func TestSweeper_ListingFailureIsCounted(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store := &listFailingStore{
		SubscriberStore: billing.NewMemoryStore(),
		listErr:         errors.New("connection reset"),
	}
	manager := billing.NewManager(store, fixedClock())
	sweeper := billing.NewSweeper(store, manager, time.Hour, nil)

	report := sweeper.SweepOnce(ctx)
	assert.Equal(t, 1, report.Errors)
	assert.Equal(t, 0, report.Updated)
}

type updateFailingStore struct {
	billing.SubscriberStore
	failID uuid.UUID
}

func (f *updateFailingStore) Update(ctx context.Context, subscriber *billing.Subscriber) error {
	if subscriber.ID == f.failID {
		return errors.New("write rejected")
	}
	return f.SubscriberStore.Update(ctx, subscriber)
}

func TestSweeper_RecordFailureIsIsolated(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	inner := billing.NewMemoryStore()
	past := fixedNow.AddDate(0, 0, -2)

	poisoned := &billing.Subscriber{
		ID: uuid.New(), Email: "poisoned@example.com",
		Status: billing.StatusActive, Plan: billing.PlanPro, ExpiresAt: &past,
	}
	require.NoError(t, inner.Create(ctx, poisoned))

	repairable := &billing.Subscriber{
		ID: uuid.New(), Email: "repairable@example.com",
		Status: billing.StatusActive, Plan: billing.PlanPro, ExpiresAt: &past,
	}
	require.NoError(t, inner.Create(ctx, repairable))

	store := &updateFailingStore{SubscriberStore: inner, failID: poisoned.ID}
	manager := billing.NewManager(store, fixedClock())
	sweeper := billing.NewSweeper(store, manager, time.Hour, nil)

	report := sweeper.SweepOnce(ctx)
	assert.GreaterOrEqual(t, report.Errors, 1)
	assert.Equal(t, 1, report.Updated, "the healthy record is still repaired")

	stored, err := inner.GetByID(ctx, repairable.ID)
	require.NoError(t, err)
	assert.Equal(t, billing.StatusExpired, stored.Status)
}

func TestSweeper_RunStopsOnContextCancel(t *testing.T) {
	t.Parallel()

	store := billing.NewMemoryStore()
	manager := billing.NewManager(store, fixedClock())
	sweeper := billing.NewSweeper(store, manager, time.Hour, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sweeper.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("sweeper did not stop after cancellation")
	}
}
