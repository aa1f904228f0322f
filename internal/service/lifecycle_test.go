package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgo/raidplan/api/internal/model"
)

func TestCanTransition(t *testing.T) {
	t.Parallel()

	allowed := map[[2]model.EventStatus]bool{
		{model.EventStatusDraft, model.EventStatusPublished}:      true,
		{model.EventStatusPublished, model.EventStatusInProgress}: true,
		{model.EventStatusInProgress, model.EventStatusCompleted}: true,
		{model.EventStatusDraft, model.EventStatusCancelled}:      true,
		{model.EventStatusPublished, model.EventStatusCancelled}:  true,
		{model.EventStatusPublished, model.EventStatusDraft}:      true,
	}
	all := []model.EventStatus{
		model.EventStatusDraft, model.EventStatusPublished, model.EventStatusInProgress,
		model.EventStatusCompleted, model.EventStatusCancelled,
	}
	for _, from := range all {
		for _, to := range all {
			want := allowed[[2]model.EventStatus{from, to}]
			assert.Equal(t, want, CanTransition(from, to), "%s -> %s", from, to)
		}
	}
}

func TestPublish_MissingHealerIsRejected(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	ev := f.createEvent(t)
	filled := f.fillRoster(t, ev.ID, "healer-2")
	require.Equal(t, 7, filled.Roster.FilledSlots)

	_, err := f.service.UpdateEvent(ctx, ev.ID, leaderOne, &model.UpdateEventRequest{
		Status: statusPtr(model.EventStatusPublished),
	})
	require.ErrorIs(t, err, ErrIncompleteRoster)
	assert.Contains(t, err.Error(), "Healer")

	var incomplete *model.IncompleteRosterError
	require.True(t, errors.As(err, &incomplete))
	assert.Equal(t, 7, incomplete.Filled)
	assert.Equal(t, 8, incomplete.Total)
	assert.Equal(t, model.RoleCounts{Healer: 1}, incomplete.Missing)

	stored, _ := f.events.Get(ctx, ev.ID)
	assert.Equal(t, model.EventStatusDraft, stored.Status)
	assert.Equal(t, filled.Version, stored.Version)
}

func TestPublish_OffRoleRosterIsRejected(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	ev := f.createEvent(t)
	f.addProgger(t, "dps-in-healer", model.JobRedMage)
	_, err := f.assign(ctx, ev.ID, "dps-in-healer", model.ParticipantTypeProgger, "healer-2", model.JobRedMage)
	require.NoError(t, err)
	filled := f.fillRoster(t, ev.ID)
	require.Equal(t, 8, filled.Roster.FilledSlots)

	_, err = f.lifecycle.Transition(ctx, ev.ID, leaderOne.ID, model.EventStatusPublished, nil)
	require.ErrorIs(t, err, ErrIncompleteRoster)
	assert.Contains(t, err.Error(), "1 Healer")
}

func TestPublish_CompleteRoster(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	ev := f.createEvent(t)
	filled := f.fillRoster(t, ev.ID)

	published, err := f.lifecycle.Transition(ctx, ev.ID, leaderOne.ID, model.EventStatusPublished, intPtr(filled.Version))
	require.NoError(t, err)
	assert.Equal(t, model.EventStatusPublished, published.Status)
	assert.Equal(t, filled.Version+1, published.Version)
	assert.Equal(t, ChangeEventUpdated, f.publisher.last().Type)

	// Roster edits stay open while published.
	_, err = f.coordinator.Unassign(ctx, ev.ID, leaderOne.ID, "dps-1", nil)
	require.NoError(t, err)
}

func TestTransition_RejectsInvalidAndForeign(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	ev := f.createEvent(t)

	_, err := f.lifecycle.Transition(ctx, ev.ID, leaderOne.ID, model.EventStatusCompleted, nil)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = f.lifecycle.Transition(ctx, ev.ID, leaderTwo.ID, model.EventStatusCancelled, nil)
	assert.ErrorIs(t, err, ErrNotTeamLeader)

	_, err = f.lifecycle.Transition(ctx, ev.ID, leaderOne.ID, model.EventStatusCancelled, intPtr(ev.Version+5))
	assert.ErrorIs(t, err, ErrVersionConflict)

	cancelled, err := f.lifecycle.Transition(ctx, ev.ID, leaderOne.ID, model.EventStatusCancelled, nil)
	require.NoError(t, err)
	_, err = f.lifecycle.Transition(ctx, ev.ID, leaderOne.ID, model.EventStatusDraft, nil)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = f.coordinator.Unassign(ctx, ev.ID, leaderOne.ID, "tank-1", intPtr(cancelled.Version))
	assert.ErrorIs(t, err, ErrEventLocked)
}

func TestCancel_ReleasesOwnerLocksOnly(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	ev := f.createEvent(t)

	for _, l := range []struct {
		leader TeamLeader
		pid    string
	}{{leaderOne, "P1"}, {leaderOne, "P2"}, {leaderTwo, "P3"}} {
		_, err := f.service.LockParticipant(ctx, ev.ID, l.leader, &model.LockParticipantRequest{
			ParticipantID: l.pid, ParticipantType: model.ParticipantTypeProgger,
		})
		require.NoError(t, err)
	}

	_, err := f.service.CancelEvent(ctx, ev.ID, leaderOne, nil)
	require.NoError(t, err)

	locks, err := f.locks.ListEventLocks(ctx, ev.ID)
	require.NoError(t, err)
	require.Len(t, locks, 1)
	assert.Equal(t, leaderTwo.ID, locks[0].LockedBy)
}

func TestAdvanceScheduled(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	ev := f.createEvent(t)
	f.fillRoster(t, ev.ID)
	_, err := f.lifecycle.Transition(ctx, ev.ID, leaderOne.ID, model.EventStatusPublished, nil)
	require.NoError(t, err)
	draft := f.createEvent(t)

	n, err := f.lifecycle.AdvanceScheduled(ctx, raidNight.Add(-time.Minute))
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = f.lifecycle.AdvanceScheduled(ctx, raidNight)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	stored, _ := f.events.Get(ctx, ev.ID)
	assert.Equal(t, model.EventStatusInProgress, stored.Status)

	n, err = f.lifecycle.AdvanceScheduled(ctx, raidNight.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	stored, _ = f.events.Get(ctx, ev.ID)
	assert.Equal(t, model.EventStatusCompleted, stored.Status)

	untouched, _ := f.events.Get(ctx, draft.ID)
	assert.Equal(t, model.EventStatusDraft, untouched.Status)
}
