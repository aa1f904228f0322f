package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/forgo/raidplan/api/internal/database"
	"github.com/forgo/raidplan/api/internal/model"
)

// TeamLeader identifies the acting organizer
type TeamLeader struct {
	ID   string
	Name string
}

// EventService handles event CRUD and draft lock requests. Roster contents
// change only through the AssignmentCoordinator; status only through the
// LifecycleController.
type EventService struct {
	events    EventStore
	locks     *DraftLockManager
	lifecycle *LifecycleController
	notifier  ChangePublisher
	logger    *slog.Logger
	now       func() time.Time
	newID     func() string
}

// NewEventService creates a new event service
func NewEventService(
	events EventStore,
	locks *DraftLockManager,
	lifecycle *LifecycleController,
	notifier ChangePublisher,
	logger *slog.Logger,
) *EventService {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventService{
		events:    events,
		locks:     locks,
		lifecycle: lifecycle,
		notifier:  notifier,
		logger:    logger,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// CreateEvent schedules a new draft event with an empty roster
func (s *EventService) CreateEvent(ctx context.Context, leader TeamLeader, req *model.CreateEventRequest) (*model.ScheduledEvent, error) {
	if leader.ID == "" {
		return nil, ErrTeamLeaderRequired
	}
	size := req.PartySize
	if size == 0 {
		size = model.StandardPartySize
	}
	roster, err := model.NewRoster(size)
	if err != nil {
		return nil, err
	}
	duration := req.DurationMinutes
	if duration == 0 {
		duration = model.DefaultEventMinutes
	}

	now := s.now().UTC()
	event := &model.ScheduledEvent{
		ID:              s.newID(),
		Name:            strings.TrimSpace(req.Name),
		Encounter:       req.Encounter,
		ScheduledTime:   req.ScheduledTime.UTC(),
		DurationMinutes: duration,
		TeamLeaderID:    leader.ID,
		TeamLeaderName:  leader.Name,
		Status:          model.EventStatusDraft,
		Roster:          roster,
		CreatedAt:       now,
		LastModified:    now,
		Version:         1,
	}
	if err := s.events.Create(ctx, event); err != nil {
		return nil, err
	}

	s.logger.Info("event created",
		slog.String("event_id", event.ID),
		slog.String("team_leader_id", leader.ID),
		slog.String("encounter", string(event.Encounter)),
		slog.Int("slots", roster.TotalSlots))
	return event, nil
}

// GetEvent returns the event with drafted_by filled in from live locks held
// by anyone other than the owner
func (s *EventService) GetEvent(ctx context.Context, eventID string) (*model.ScheduledEvent, error) {
	ev, err := s.events.Get(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if ev == nil {
		return nil, ErrEventNotFound
	}

	locks, err := s.locks.ListEventLocks(ctx, eventID)
	if err != nil {
		// Decoration is advisory; serve the roster without it.
		s.logger.Warn("failed to load draft locks",
			slog.String("event_id", eventID),
			slog.String("error", err.Error()))
		return ev, nil
	}
	decorateDraftedBy(ev, locks)
	return ev, nil
}

func decorateDraftedBy(ev *model.ScheduledEvent, locks []*model.DraftLock) {
	for _, l := range locks {
		if l.SlotID == "" || l.LockedBy == ev.TeamLeaderID {
			continue
		}
		if slot := ev.Roster.Slot(l.SlotID); slot != nil {
			by := l.LockedBy
			slot.DraftedBy = &by
		}
	}
}

// ListEvents returns matching events sorted by scheduled time
func (s *EventService) ListEvents(ctx context.Context, filters model.EventFilters) ([]*model.ScheduledEvent, error) {
	return s.events.List(ctx, filters)
}

// UpdateEvent applies field edits and an optional status change in one
// versioned write. A request that changes nothing returns the event as is.
func (s *EventService) UpdateEvent(ctx context.Context, eventID string, leader TeamLeader, req *model.UpdateEventRequest) (*model.ScheduledEvent, error) {
	current, err := loadOwnedEvent(ctx, s.events, eventID, leader.ID)
	if err != nil {
		return nil, err
	}
	if req.HasFieldChanges() && current.Status.IsTerminal() {
		return nil, &EventLockedError{Status: current.Status}
	}
	if err := checkExpectedVersion(current, req.ExpectedVersion); err != nil {
		return nil, err
	}

	next := current.Clone()
	changed := applyFieldChanges(next, req)
	if req.Status != nil && *req.Status != current.Status {
		if err := s.lifecycle.Apply(next, *req.Status); err != nil {
			return nil, err
		}
		changed = true
	}
	if !changed {
		return current, nil
	}

	next.Version = current.Version + 1
	next.LastModified = s.now().UTC()
	if err := s.events.Save(ctx, next, current.Version); err != nil {
		return nil, translateStoreError(err)
	}

	if next.Status != current.Status {
		s.lifecycle.AfterTransition(ctx, next, current.Status)
	}
	s.notifier.Publish(&Change{
		Type:    ChangeEventUpdated,
		EventID: next.ID,
		Version: next.Version,
		Data:    next,
	})
	return next, nil
}

func applyFieldChanges(ev *model.ScheduledEvent, req *model.UpdateEventRequest) bool {
	changed := false
	if req.Name != nil {
		if name := strings.TrimSpace(*req.Name); name != ev.Name {
			ev.Name = name
			changed = true
		}
	}
	if req.Encounter != nil && *req.Encounter != ev.Encounter {
		ev.Encounter = *req.Encounter
		changed = true
	}
	if req.ScheduledTime != nil && !req.ScheduledTime.Equal(ev.ScheduledTime) {
		ev.ScheduledTime = req.ScheduledTime.UTC()
		changed = true
	}
	if req.DurationMinutes != nil && *req.DurationMinutes != ev.DurationMinutes {
		ev.DurationMinutes = *req.DurationMinutes
		changed = true
	}
	return changed
}

// CancelEvent moves an owned event to cancelled
func (s *EventService) CancelEvent(ctx context.Context, eventID string, leader TeamLeader, expectedVersion *int) (*model.ScheduledEvent, error) {
	return s.lifecycle.Transition(ctx, eventID, leader.ID, model.EventStatusCancelled, expectedVersion)
}

// DeleteEvent removes an owned event and every lock in it
func (s *EventService) DeleteEvent(ctx context.Context, eventID string, leader TeamLeader) error {
	ev, err := loadOwnedEvent(ctx, s.events, eventID, leader.ID)
	if err != nil {
		return err
	}
	if err := s.events.Delete(ctx, eventID); err != nil {
		return translateStoreError(err)
	}

	if _, err := s.locks.ReleaseAllForEvent(ctx, eventID); err != nil {
		s.logger.Warn("failed to release locks of deleted event",
			slog.String("event_id", eventID),
			slog.String("error", err.Error()))
	}
	s.logger.Info("event deleted", slog.String("event_id", eventID), slog.String("team_leader_id", leader.ID))
	s.notifier.Publish(&Change{Type: ChangeEventDeleted, EventID: eventID, Version: ev.Version})
	return nil
}

// LockParticipant takes a draft lock on a participant in an event. Any team
// leader may draft; only the owner may then assign.
func (s *EventService) LockParticipant(ctx context.Context, eventID string, leader TeamLeader, req *model.LockParticipantRequest) (*model.DraftLock, error) {
	ev, err := s.events.Get(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if ev == nil {
		return nil, ErrEventNotFound
	}
	if !ev.Status.AllowsRosterEdits() {
		return nil, &EventLockedError{Status: ev.Status}
	}
	if req.SlotID != "" && ev.Roster.Slot(req.SlotID) == nil {
		return nil, fmt.Errorf("%w: %s", ErrSlotNotFound, req.SlotID)
	}

	lock, err := s.locks.Acquire(ctx, AcquireLockRequest{
		EventID:         eventID,
		ParticipantID:   req.ParticipantID,
		ParticipantType: req.ParticipantType,
		RequestedBy:     leader.ID,
		RequestedByName: leader.Name,
		SlotID:          req.SlotID,
		TTL:             time.Duration(req.TTLSeconds) * time.Second,
	})
	if err != nil {
		return nil, err
	}
	s.publishDraft(ctx, eventID)
	return lock, nil
}

// ReleaseLock drops the leader's lock. Releasing an absent lock succeeds.
func (s *EventService) ReleaseLock(ctx context.Context, eventID string, leader TeamLeader, participantID string, participantType model.ParticipantType) error {
	released, err := s.locks.Release(ctx, eventID, participantID, participantType, leader.ID)
	if err != nil {
		return err
	}
	if released {
		s.publishDraft(ctx, eventID)
	}
	return nil
}

// ListLocks returns the live draft locks of an event
func (s *EventService) ListLocks(ctx context.Context, eventID string) ([]*model.DraftLock, error) {
	ev, err := s.events.Get(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if ev == nil {
		return nil, ErrEventNotFound
	}
	return s.locks.ListEventLocks(ctx, eventID)
}

// publishDraft tells viewers the set of live locks changed
func (s *EventService) publishDraft(ctx context.Context, eventID string) {
	locks, err := s.locks.ListEventLocks(ctx, eventID)
	if err != nil {
		s.logger.Warn("failed to list draft locks", slog.String("event_id", eventID), slog.String("error", err.Error()))
		return
	}
	if locks == nil {
		locks = []*model.DraftLock{}
	}
	s.notifier.Publish(&Change{Type: ChangeDraftUpdated, EventID: eventID, Data: locks})
}

// IsVersionConflict reports whether err is a stale-write rejection and
// returns the stored version when known
func IsVersionConflict(err error) (int, bool) {
	var vc *database.VersionConflictError
	if errors.As(err, &vc) {
		return vc.Actual, true
	}
	return 0, errors.Is(err, ErrVersionConflict)
}
