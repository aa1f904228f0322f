package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/forgo/raidplan/api/internal/model"
	"github.com/forgo/raidplan/api/internal/repository"
)

// ============================================================================
// Mocks
// ============================================================================

type mockDirectory struct {
	getParticipantFunc func(ctx context.Context, id string, typ model.ParticipantType) (model.Participant, error)
}

func (m *mockDirectory) GetParticipant(ctx context.Context, id string, typ model.ParticipantType) (model.Participant, error) {
	if m.getParticipantFunc != nil {
		return m.getParticipantFunc(ctx, id, typ)
	}
	return nil, nil
}

type mockAvailability struct {
	isAvailableFunc func(ctx context.Context, helperID string, start, end time.Time) (bool, error)
}

func (m *mockAvailability) IsAvailable(ctx context.Context, helperID string, start, end time.Time) (bool, error) {
	if m.isAvailableFunc != nil {
		return m.isAvailableFunc(ctx, helperID, start, end)
	}
	return true, nil
}

type recordingPublisher struct {
	mu      sync.Mutex
	changes []*Change
}

func (p *recordingPublisher) Publish(change *Change) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.changes = append(p.changes, change)
}

func (p *recordingPublisher) types() []ChangeType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]ChangeType, len(p.changes))
	for i, c := range p.changes {
		out[i] = c.Type
	}
	return out
}

func (p *recordingPublisher) last() *Change {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.changes) == 0 {
		return nil
	}
	return p.changes[len(p.changes)-1]
}

// ============================================================================
// Fixture
// ============================================================================

var (
	leaderOne = TeamLeader{ID: "tl-1", Name: "Ysolde"}
	leaderTwo = TeamLeader{ID: "tl-2", Name: "Tataru"}

	// 2026-10-19 is a Monday
	raidNight = time.Date(2026, 10, 19, 20, 0, 0, 0, time.UTC)
)

type fixture struct {
	events      *repository.MemoryEventStore
	lockStore   *repository.MemoryLockStore
	directory   *repository.MemoryParticipantDirectory
	publisher   *recordingPublisher
	locks       *DraftLockManager
	lifecycle   *LifecycleController
	coordinator *AssignmentCoordinator
	service     *EventService
	clock       time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		events:    repository.NewMemoryEventStore(),
		lockStore: repository.NewMemoryLockStore(),
		directory: repository.NewMemoryParticipantDirectory(),
		publisher: &recordingPublisher{},
		clock:     raidNight.Add(-48 * time.Hour),
	}
	now := func() time.Time { return f.clock }

	f.locks = NewDraftLockManager(f.lockStore, 0, nil)
	f.locks.now = now
	f.lifecycle = NewLifecycleController(f.events, f.locks, f.publisher, nil)
	f.lifecycle.now = now
	f.coordinator = NewAssignmentCoordinator(f.events, f.locks, f.directory, f.directory, f.publisher, nil)
	f.coordinator.now = now
	f.service = NewEventService(f.events, f.locks, f.lifecycle, f.publisher, nil)
	f.service.now = now
	return f
}

func (f *fixture) advance(d time.Duration) {
	f.clock = f.clock.Add(d)
}

// createEvent schedules an 8-slot TOP event owned by leaderOne
func (f *fixture) createEvent(t *testing.T) *model.ScheduledEvent {
	t.Helper()
	ev, err := f.service.CreateEvent(context.Background(), leaderOne, &model.CreateEventRequest{
		Name:          "TOP prog",
		Encounter:     model.EncounterTOP,
		ScheduledTime: raidNight,
	})
	require.NoError(t, err)
	return ev
}

// addHelper registers a helper free all Monday evening
func (f *fixture) addHelper(t *testing.T, id string, jobs ...model.Job) *model.Helper {
	t.Helper()
	h := &model.Helper{
		ID:        id,
		DiscordID: "discord-" + id,
		Name:      "Helper " + id,
		Jobs:      jobs,
		Availability: []model.AvailabilityWindow{
			{Weekday: time.Monday, StartMinute: 17 * 60, EndMinute: 24 * 60},
		},
	}
	require.NoError(t, f.directory.SaveHelper(context.Background(), h))
	return h
}

func (f *fixture) addProgger(t *testing.T, id string, job model.Job) *model.Progger {
	t.Helper()
	p := &model.Progger{ID: id, DiscordID: "discord-" + id, Name: "Progger " + id, Job: job, Encounter: model.EncounterTOP}
	require.NoError(t, f.directory.SaveProgger(context.Background(), p))
	return p
}

func (f *fixture) assign(ctx context.Context, eventID, participantID string, typ model.ParticipantType, slotID string, job model.Job) (*model.ScheduledEvent, error) {
	return f.coordinator.Assign(ctx, AssignRequest{
		EventID:         eventID,
		TeamLeaderID:    leaderOne.ID,
		ParticipantID:   participantID,
		ParticipantType: typ,
		SlotID:          slotID,
		Job:             job,
	})
}

// fillRoster assigns a fresh progger to every empty slot except skip
func (f *fixture) fillRoster(t *testing.T, eventID string, skip ...string) *model.ScheduledEvent {
	t.Helper()
	ctx := context.Background()
	jobs := map[model.Role]model.Job{
		model.RoleTank:   model.JobPaladin,
		model.RoleHealer: model.JobAstrologian,
		model.RoleDPS:    model.JobReaper,
	}
	skipped := make(map[string]bool, len(skip))
	for _, s := range skip {
		skipped[s] = true
	}

	ev, err := f.events.Get(ctx, eventID)
	require.NoError(t, err)
	for _, slot := range ev.Roster.Slots {
		if skipped[slot.ID] || !slot.IsEmpty() {
			continue
		}
		id := fmt.Sprintf("fill-%s", slot.ID)
		f.addProgger(t, id, jobs[slot.Role])
		ev, err = f.assign(ctx, eventID, id, model.ParticipantTypeProgger, slot.ID, jobs[slot.Role])
		require.NoError(t, err)
	}
	return ev
}

func intPtr(v int) *int { return &v }

func statusPtr(s model.EventStatus) *model.EventStatus { return &s }
