package billing_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linkdeck/linkdeck/pkg/billing"
)

func TestKeyedMutex_SerializesSameKey(t *testing.T) {
	t.Parallel()

	locker := billing.NewKeyedMutex()
	ctx := context.Background()

	const workers = 16
	var counter int
	var wg sync.WaitGroup
	wg.Add(workers)

	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()

			release, err := locker.Acquire(ctx, "subscriber:1")
			assert.NoError(t, err)
			defer release()

			// Unsynchronized increment; the lock is the only guard.
			counter++
		}()
	}

	wg.Wait()
	assert.Equal(t, workers, counter)
}

func TestKeyedMutex_IndependentKeysDoNotBlock(t *testing.T) {
	t.Parallel()

	locker := billing.NewKeyedMutex()
	ctx := context.Background()

	releaseA, err := locker.Acquire(ctx, "subscriber:a")
	require.NoError(t, err)
	defer releaseA()

	done := make(chan struct{})
	go func() {
		defer close(done)
		releaseB, err := locker.Acquire(ctx, "subscriber:b")
		assert.NoError(t, err)
		releaseB()
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("independent key blocked behind a held lock")
	}
}

func TestKeyedMutex_AcquireHonorsContext(t *testing.T) {
	t.Parallel()

	locker := billing.NewKeyedMutex()

	release, err := locker.Acquire(context.Background(), "subscriber:1")
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err = locker.Acquire(ctx, "subscriber:1")
	require.Error(t, err)
}
