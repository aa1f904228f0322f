package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/forgo/raidplan/api/internal/model"
)

// AssignRequest places a participant into a slot on behalf of the event's
// team leader
type AssignRequest struct {
	EventID         string
	TeamLeaderID    string
	ParticipantID   string
	ParticipantType model.ParticipantType
	SlotID          string
	Job             model.Job
	ExpectedVersion *int
}

// SlotChange is the payload of assignment notifications
type SlotChange struct {
	SlotID      string                `json:"slot_id"`
	Participant *model.SlotAssignment `json:"participant,omitempty"`
	Replaced    *model.SlotAssignment `json:"replaced,omitempty"`
	FilledSlots int                   `json:"filled_slots"`
	TotalSlots  int                   `json:"total_slots"`
}

// AssignmentCoordinator is the only writer of roster contents. Every change
// is applied to a copy and committed with a version check, so a failed step
// leaves the stored event untouched.
type AssignmentCoordinator struct {
	events       EventStore
	locks        *DraftLockManager
	directory    ParticipantDirectory
	availability AvailabilityChecker
	notifier     ChangePublisher
	logger       *slog.Logger
	now          func() time.Time
}

// NewAssignmentCoordinator creates an assignment coordinator
func NewAssignmentCoordinator(
	events EventStore,
	locks *DraftLockManager,
	directory ParticipantDirectory,
	availability AvailabilityChecker,
	notifier ChangePublisher,
	logger *slog.Logger,
) *AssignmentCoordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &AssignmentCoordinator{
		events:       events,
		locks:        locks,
		directory:    directory,
		availability: availability,
		notifier:     notifier,
		logger:       logger,
		now:          time.Now,
	}
}

// Assign places a participant into a slot
func (c *AssignmentCoordinator) Assign(ctx context.Context, req AssignRequest) (*model.ScheduledEvent, error) {
	current, err := c.loadEditable(ctx, req.EventID, req.TeamLeaderID, req.ExpectedVersion)
	if err != nil {
		return nil, err
	}

	slot := current.Roster.Slot(req.SlotID)
	if slot == nil {
		return nil, fmt.Errorf("%w: %s", ErrSlotNotFound, req.SlotID)
	}

	holder, err := c.locks.LockHolder(ctx, req.EventID, req.ParticipantID, req.ParticipantType, req.TeamLeaderID)
	if err != nil {
		return nil, fmt.Errorf("check draft lock: %w", err)
	}
	if holder != nil {
		return nil, &model.LockConflictError{Holder: holder}
	}

	participant, err := c.directory.GetParticipant(ctx, req.ParticipantID, req.ParticipantType)
	if err != nil {
		return nil, fmt.Errorf("look up participant: %w", err)
	}
	if participant == nil {
		return nil, ErrParticipantNotFound
	}
	if !req.Job.IsValid() || !participant.CanPlay(req.Job) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidJob, req.Job)
	}
	if slot.JobRestriction != nil && *slot.JobRestriction != req.Job {
		return nil, fmt.Errorf("%w: %s", ErrJobRestricted, *slot.JobRestriction)
	}

	if err := c.checkAvailability(ctx, participant, current); err != nil {
		return nil, err
	}

	now := c.now().UTC()
	next := current.Clone()
	assignment := model.NewSlotAssignment(participant, req.Job, req.TeamLeaderID, now)
	replaced, err := next.Roster.Assign(req.SlotID, assignment)
	if err != nil {
		return nil, err
	}
	next.Version = current.Version + 1
	next.LastModified = now
	if err := c.events.Save(ctx, next, current.Version); err != nil {
		return nil, translateStoreError(err)
	}

	c.locks.releaseQuietly(ctx, req.EventID, assignment.Ref(), req.TeamLeaderID)

	c.logger.Info("participant assigned",
		slog.String("event_id", next.ID),
		slog.String("slot_id", req.SlotID),
		slog.String("participant", assignment.Ref().String()),
		slog.String("job", string(req.Job)),
		slog.Int("version", next.Version))

	c.notifier.Publish(&Change{
		Type:    ChangeParticipantAssigned,
		EventID: next.ID,
		Version: next.Version,
		Data: SlotChange{
			SlotID:      req.SlotID,
			Participant: assignment,
			Replaced:    replaced,
			FilledSlots: next.Roster.FilledSlots,
			TotalSlots:  next.Roster.TotalSlots,
		},
	})
	return next, nil
}

// Unassign empties a slot. An already-empty slot fails without a write.
// Draft locks are left alone.
func (c *AssignmentCoordinator) Unassign(ctx context.Context, eventID, teamLeaderID, slotID string, expectedVersion *int) (*model.ScheduledEvent, error) {
	current, err := c.loadEditable(ctx, eventID, teamLeaderID, expectedVersion)
	if err != nil {
		return nil, err
	}

	next := current.Clone()
	removed, err := next.Roster.Unassign(slotID)
	if err != nil {
		return nil, err
	}
	next.Version = current.Version + 1
	next.LastModified = c.now().UTC()
	if err := c.events.Save(ctx, next, current.Version); err != nil {
		return nil, translateStoreError(err)
	}

	c.logger.Info("participant unassigned",
		slog.String("event_id", next.ID),
		slog.String("slot_id", slotID),
		slog.String("participant", removed.Ref().String()),
		slog.Int("version", next.Version))

	c.notifier.Publish(&Change{
		Type:    ChangeParticipantUnassigned,
		EventID: next.ID,
		Version: next.Version,
		Data: SlotChange{
			SlotID:      slotID,
			Replaced:    removed,
			FilledSlots: next.Roster.FilledSlots,
			TotalSlots:  next.Roster.TotalSlots,
		},
	})
	return next, nil
}

// loadEditable loads the event and runs the checks shared by every roster
// write: owner, status, then client version
func (c *AssignmentCoordinator) loadEditable(ctx context.Context, eventID, teamLeaderID string, expectedVersion *int) (*model.ScheduledEvent, error) {
	ev, err := loadOwnedEvent(ctx, c.events, eventID, teamLeaderID)
	if err != nil {
		return nil, err
	}
	if !ev.Status.AllowsRosterEdits() {
		return nil, &EventLockedError{Status: ev.Status}
	}
	if err := checkExpectedVersion(ev, expectedVersion); err != nil {
		return nil, err
	}
	return ev, nil
}

// checkAvailability applies to helpers only; proggers sign up per encounter
func (c *AssignmentCoordinator) checkAvailability(ctx context.Context, p model.Participant, ev *model.ScheduledEvent) error {
	switch p.(type) {
	case *model.Helper:
		ok, err := c.availability.IsAvailable(ctx, p.ParticipantID(), ev.ScheduledTime, ev.EndTime())
		if err != nil {
			return fmt.Errorf("check availability: %w", err)
		}
		if !ok {
			return ErrHelperUnavailable
		}
	case *model.Progger:
	}
	return nil
}
