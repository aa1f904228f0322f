package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgo/raidplan/api/internal/model"
)

func testLock(eventID, pid, holder string, now time.Time, ttl time.Duration) *model.DraftLock {
	return &model.DraftLock{
		EventID:         eventID,
		ParticipantID:   pid,
		ParticipantType: model.ParticipantTypeHelper,
		LockedBy:        holder,
		LockedByName:    "Leader " + holder,
		CreatedAt:       now,
		ExpiresAt:       now.Add(ttl),
	}
}

func TestMemoryLockStore_AcquireConflictAndRenew(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryLockStore()
	now := time.Date(2026, 10, 19, 18, 0, 0, 0, time.UTC)

	_, err := store.Acquire(ctx, testLock("e1", "h1", "tl-1", now, 5*time.Minute), now)
	require.NoError(t, err)

	_, err = store.Acquire(ctx, testLock("e1", "h1", "tl-2", now, 5*time.Minute), now.Add(time.Minute))
	require.Error(t, err)
	var conflict *model.LockConflictError
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, "tl-1", conflict.Holder.LockedBy)
	assert.True(t, errors.Is(err, model.ErrLockHeld))

	later := now.Add(2 * time.Minute)
	renewed, err := store.Acquire(ctx, testLock("e1", "h1", "tl-1", later, 5*time.Minute), later)
	require.NoError(t, err)
	assert.Equal(t, now, renewed.CreatedAt)
	assert.Equal(t, later.Add(5*time.Minute), renewed.ExpiresAt)

	// Same participant in another event is an independent lock.
	_, err = store.Acquire(ctx, testLock("e2", "h1", "tl-2", now, 5*time.Minute), now)
	assert.NoError(t, err)
}

func TestMemoryLockStore_ExpiredLockIsAbsent(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryLockStore()
	now := time.Date(2026, 10, 19, 18, 0, 0, 0, time.UTC)
	lock := testLock("e1", "h1", "tl-1", now, time.Minute)

	_, err := store.Acquire(ctx, lock, now)
	require.NoError(t, err)

	got, err := store.Get(ctx, lock.Key(), now.Add(time.Minute))
	require.NoError(t, err)
	assert.NotNil(t, got, "lock is live until strictly after expiry")

	got, err = store.Get(ctx, lock.Key(), now.Add(time.Minute+time.Second))
	require.NoError(t, err)
	assert.Nil(t, got)

	after := now.Add(2 * time.Minute)
	_, err = store.Acquire(ctx, testLock("e1", "h1", "tl-2", after, time.Minute), after)
	assert.NoError(t, err)
}

func TestMemoryLockStore_Release(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryLockStore()
	now := time.Date(2026, 10, 19, 18, 0, 0, 0, time.UTC)
	lock := testLock("e1", "h1", "tl-1", now, time.Minute)
	_, err := store.Acquire(ctx, lock, now)
	require.NoError(t, err)

	released, err := store.Release(ctx, lock.Key(), "tl-2", now)
	assert.False(t, released)
	assert.True(t, errors.Is(err, model.ErrLockNotHeld))

	released, err = store.Release(ctx, lock.Key(), "tl-1", now)
	require.NoError(t, err)
	assert.True(t, released)

	released, err = store.Release(ctx, lock.Key(), "tl-1", now)
	require.NoError(t, err)
	assert.False(t, released)
}

func TestMemoryLockStore_DeleteByEventAndSweep(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryLockStore()
	now := time.Date(2026, 10, 19, 18, 0, 0, 0, time.UTC)

	for _, l := range []*model.DraftLock{
		testLock("e1", "h1", "tl-1", now, time.Minute),
		testLock("e1", "h2", "tl-1", now, time.Minute),
		testLock("e1", "h3", "tl-2", now, 10*time.Minute),
		testLock("e2", "h1", "tl-1", now, time.Second),
	} {
		_, err := store.Acquire(ctx, l, now)
		require.NoError(t, err)
	}

	n, err := store.DeleteByEvent(ctx, "e1", "tl-1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	live, err := store.ListByEvent(ctx, "e1", now)
	require.NoError(t, err)
	require.Len(t, live, 1)
	assert.Equal(t, "tl-2", live[0].LockedBy)

	swept, err := store.Sweep(ctx, now.Add(5*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 1, swept)
	assert.Equal(t, 1, store.Len())

	n, err = store.DeleteByEvent(ctx, "e1", "")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Zero(t, store.Len())
}
