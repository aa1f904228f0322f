package model

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func helperSnapshot(id string, job Job) *SlotAssignment {
	h := &Helper{ID: id, Name: "Helper " + id, DiscordID: "d-" + id, Jobs: []Job{job}}
	return NewSlotAssignment(h, job, "leader-1", time.Now())
}

func fillRoster(t *testing.T, r *EventRoster) {
	t.Helper()
	jobs := map[Role]Job{RoleTank: JobWarrior, RoleHealer: JobWhiteMage, RoleDPS: JobNinja}
	for i, slot := range r.Slots {
		if !slot.IsEmpty() {
			continue
		}
		_, err := r.Assign(slot.ID, helperSnapshot(fmt.Sprintf("h%d", i), jobs[slot.Role]))
		require.NoError(t, err)
	}
}

func TestNewRoster_StandardComposition(t *testing.T) {
	t.Parallel()

	r, err := NewRoster(StandardPartySize)
	require.NoError(t, err)

	assert.Equal(t, 8, r.TotalSlots)
	assert.Equal(t, 0, r.FilledSlots)
	assert.Equal(t, RoleCounts{Tank: 2, Healer: 2, DPS: 4}, r.RequiredRoles())

	ids := make([]string, 0, len(r.Slots))
	for _, s := range r.Slots {
		ids = append(ids, s.ID)
	}
	assert.Equal(t, []string{"tank-1", "tank-2", "healer-1", "healer-2", "dps-1", "dps-2", "dps-3", "dps-4"}, ids)
	assert.NoError(t, r.Validate())
}

func TestNewRoster_LightParty(t *testing.T) {
	t.Parallel()

	r, err := NewRoster(LightPartySize)
	require.NoError(t, err)
	assert.Equal(t, RoleCounts{Tank: 1, Healer: 1, DPS: 2}, r.RequiredRoles())
}

func TestNewRoster_UnsupportedSize(t *testing.T) {
	t.Parallel()

	_, err := NewRoster(6)
	assert.ErrorIs(t, err, ErrUnsupportedPartySize)
}

func TestRoster_AssignIncrementsOnlyWhenEmpty(t *testing.T) {
	t.Parallel()

	r, _ := NewRoster(StandardPartySize)

	prev, err := r.Assign("tank-1", helperSnapshot("a", JobWarrior))
	require.NoError(t, err)
	assert.Nil(t, prev)
	assert.Equal(t, 1, r.FilledSlots)

	prev, err = r.Assign("tank-1", helperSnapshot("b", JobPaladin))
	require.NoError(t, err)
	require.NotNil(t, prev)
	assert.Equal(t, "a", prev.ID)
	assert.Equal(t, 1, r.FilledSlots)
	assert.NoError(t, r.Validate())
}

func TestRoster_AssignRejectsDuplicateOccupancy(t *testing.T) {
	t.Parallel()

	r, _ := NewRoster(StandardPartySize)
	_, err := r.Assign("dps-1", helperSnapshot("a", JobNinja))
	require.NoError(t, err)

	_, err = r.Assign("dps-2", helperSnapshot("a", JobNinja))
	assert.ErrorIs(t, err, ErrAlreadyAssigned)
	assert.Equal(t, 1, r.FilledSlots)
	assert.True(t, r.Slot("dps-2").IsEmpty())
}

func TestRoster_SameIDDifferentTypeIsNotDuplicate(t *testing.T) {
	t.Parallel()

	r, _ := NewRoster(StandardPartySize)
	_, err := r.Assign("dps-1", helperSnapshot("x", JobNinja))
	require.NoError(t, err)

	p := &Progger{ID: "x", Name: "Prog", Job: JobBard}
	_, err = r.Assign("dps-2", NewSlotAssignment(p, JobBard, "leader-1", time.Now()))
	assert.NoError(t, err)
	assert.Equal(t, 2, r.FilledSlots)
}

func TestRoster_OffRoleOccupantFailsPublishGate(t *testing.T) {
	t.Parallel()

	r, _ := NewRoster(StandardPartySize)
	fillRoster(t, r)
	_, err := r.Assign("healer-1", helperSnapshot("off-role", JobWarrior))
	require.NoError(t, err)
	assert.Equal(t, 8, r.FilledSlots)

	err = r.CheckComplete()
	var incomplete *IncompleteRosterError
	require.True(t, errors.As(err, &incomplete))
	assert.Equal(t, RoleCounts{Healer: 1}, incomplete.Missing)
	assert.Contains(t, err.Error(), "Healer")
}

func TestRoster_AssignHonorsJobRestriction(t *testing.T) {
	t.Parallel()

	r, _ := NewRoster(StandardPartySize)
	restricted := JobScholar
	r.Slot("healer-2").JobRestriction = &restricted

	_, err := r.Assign("healer-2", helperSnapshot("a", JobWhiteMage))
	assert.ErrorIs(t, err, ErrJobRestricted)

	_, err = r.Assign("healer-2", helperSnapshot("a", JobScholar))
	assert.NoError(t, err)
}

func TestRoster_UnknownSlot(t *testing.T) {
	t.Parallel()

	r, _ := NewRoster(StandardPartySize)
	_, err := r.Assign("dps-9", helperSnapshot("a", JobNinja))
	assert.ErrorIs(t, err, ErrSlotNotFound)
	_, err = r.Unassign("dps-9")
	assert.ErrorIs(t, err, ErrSlotNotFound)
}

func TestRoster_UnassignEmptySlot(t *testing.T) {
	t.Parallel()

	r, _ := NewRoster(StandardPartySize)
	_, err := r.Unassign("healer-1")
	assert.ErrorIs(t, err, ErrSlotAlreadyEmpty)
	assert.Equal(t, 0, r.FilledSlots)
}

func TestRoster_FilledSlotsTracksSequence(t *testing.T) {
	t.Parallel()

	r, _ := NewRoster(StandardPartySize)
	steps := []struct {
		assign bool
		slot   string
		id     string
		job    Job
	}{
		{true, "tank-1", "a", JobWarrior},
		{true, "dps-1", "b", JobNinja},
		{true, "dps-2", "c", JobBard},
		{false, "dps-1", "", ""},
		{true, "dps-1", "d", JobSamurai},
		{false, "tank-1", "", ""},
		{true, "healer-1", "e", JobSage},
	}
	for _, s := range steps {
		if s.assign {
			_, err := r.Assign(s.slot, helperSnapshot(s.id, s.job))
			require.NoError(t, err)
		} else {
			_, err := r.Unassign(s.slot)
			require.NoError(t, err)
		}
		require.NoError(t, r.Validate())
	}
	assert.Equal(t, 3, r.FilledSlots)
	assert.Equal(t, RoleCounts{Healer: 1, DPS: 2}, r.FilledRoles())
}

func TestRoster_CheckComplete(t *testing.T) {
	t.Parallel()

	r, _ := NewRoster(StandardPartySize)
	_, _ = r.Assign("tank-1", helperSnapshot("a", JobWarrior))

	err := r.CheckComplete()
	require.ErrorIs(t, err, ErrIncompleteRoster)

	var incomplete *IncompleteRosterError
	require.True(t, errors.As(err, &incomplete))
	assert.Equal(t, 1, incomplete.Filled)
	assert.Equal(t, 8, incomplete.Total)
	assert.Equal(t, RoleCounts{Tank: 1, Healer: 2, DPS: 4}, incomplete.Missing)
	assert.Contains(t, err.Error(), "1 Tank, 2 Healer, 4 DPS")

	fillRoster(t, r)
	assert.NoError(t, r.CheckComplete())
}

func TestRoster_CloneIsDeep(t *testing.T) {
	t.Parallel()

	r, _ := NewRoster(StandardPartySize)
	_, _ = r.Assign("tank-1", helperSnapshot("a", JobWarrior))

	c := r.Clone()
	_, err := c.Unassign("tank-1")
	require.NoError(t, err)
	c.Slots[0].Role = RoleDPS

	assert.Equal(t, 1, r.FilledSlots)
	assert.False(t, r.Slot("tank-1").IsEmpty())
	assert.Equal(t, RoleTank, r.Slots[0].Role)
}

func TestRoster_ValidateDetectsDrift(t *testing.T) {
	t.Parallel()

	r, _ := NewRoster(StandardPartySize)
	_, _ = r.Assign("tank-1", helperSnapshot("a", JobWarrior))
	r.FilledSlots = 2
	assert.ErrorIs(t, r.Validate(), ErrRosterInvariantBroken)

	r.FilledSlots = 2
	r.Slots[1].AssignedParticipant = helperSnapshot("a", JobWarrior)
	assert.ErrorIs(t, r.Validate(), ErrRosterInvariantBroken)
}
