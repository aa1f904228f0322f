package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/forgo/raidplan/api/internal/database"
	"github.com/forgo/raidplan/api/internal/model"
)

// transitions lists the allowed target states per state
var transitions = map[model.EventStatus][]model.EventStatus{
	model.EventStatusDraft:      {model.EventStatusPublished, model.EventStatusCancelled},
	model.EventStatusPublished:  {model.EventStatusInProgress, model.EventStatusCancelled, model.EventStatusDraft},
	model.EventStatusInProgress: {model.EventStatusCompleted},
}

// CanTransition reports whether from -> to is an allowed lifecycle step
func CanTransition(from, to model.EventStatus) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// LifecycleController owns event status changes and their side effects
type LifecycleController struct {
	events   EventStore
	locks    *DraftLockManager
	notifier ChangePublisher
	logger   *slog.Logger
	now      func() time.Time
}

// NewLifecycleController creates a lifecycle controller
func NewLifecycleController(events EventStore, locks *DraftLockManager, notifier ChangePublisher, logger *slog.Logger) *LifecycleController {
	if logger == nil {
		logger = slog.Default()
	}
	return &LifecycleController{
		events:   events,
		locks:    locks,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

// Apply moves ev to target in memory. Publishing requires a complete
// roster. The caller persists the result.
func (c *LifecycleController) Apply(ev *model.ScheduledEvent, target model.EventStatus) error {
	if ev.Status == target {
		return nil
	}
	if !CanTransition(ev.Status, target) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, ev.Status, target)
	}
	if target == model.EventStatusPublished {
		if err := ev.Roster.CheckComplete(); err != nil {
			return err
		}
	}
	ev.Status = target
	return nil
}

// Transition changes the status of an owned event in one versioned write
func (c *LifecycleController) Transition(ctx context.Context, eventID, actingLeaderID string, target model.EventStatus, expectedVersion *int) (*model.ScheduledEvent, error) {
	current, err := loadOwnedEvent(ctx, c.events, eventID, actingLeaderID)
	if err != nil {
		return nil, err
	}
	if err := checkExpectedVersion(current, expectedVersion); err != nil {
		return nil, err
	}
	if current.Status == target {
		return current, nil
	}

	next := current.Clone()
	if err := c.Apply(next, target); err != nil {
		return nil, err
	}
	next.Version = current.Version + 1
	next.LastModified = c.now().UTC()
	if err := c.events.Save(ctx, next, current.Version); err != nil {
		return nil, translateStoreError(err)
	}

	c.AfterTransition(ctx, next, current.Status)
	c.notifier.Publish(&Change{
		Type:    ChangeEventUpdated,
		EventID: next.ID,
		Version: next.Version,
		Data:    next,
	})
	return next, nil
}

// AfterTransition runs the side effects of a committed status change.
// Cancelling releases the team leader's locks in the event.
func (c *LifecycleController) AfterTransition(ctx context.Context, ev *model.ScheduledEvent, from model.EventStatus) {
	c.logger.Info("event status changed",
		slog.String("event_id", ev.ID),
		slog.String("from", string(from)),
		slog.String("to", string(ev.Status)),
		slog.Int("version", ev.Version))

	if ev.Status != model.EventStatusCancelled {
		return
	}
	n, err := c.locks.ReleaseAllForLeader(ctx, ev.ID, ev.TeamLeaderID)
	if err != nil {
		c.logger.Error("failed to release locks for cancelled event",
			slog.String("event_id", ev.ID),
			slog.String("error", err.Error()))
		return
	}
	if n > 0 {
		c.notifier.Publish(&Change{Type: ChangeDraftUpdated, EventID: ev.ID, Version: ev.Version, Data: []*model.DraftLock{}})
	}
}

// AdvanceScheduled starts published events whose time has come and
// completes running events past their end. It acts as the system, so no
// ownership check applies. Returns the number of events moved.
func (c *LifecycleController) AdvanceScheduled(ctx context.Context, now time.Time) (int, error) {
	moved := 0

	published := model.EventStatusPublished
	starting, err := c.events.List(ctx, model.EventFilters{Status: &published, DateTo: &now})
	if err != nil {
		return 0, fmt.Errorf("list published events: %w", err)
	}
	for _, ev := range starting {
		if c.advance(ctx, ev, model.EventStatusInProgress, now) {
			moved++
		}
	}

	running := model.EventStatusInProgress
	active, err := c.events.List(ctx, model.EventFilters{Status: &running})
	if err != nil {
		return moved, fmt.Errorf("list running events: %w", err)
	}
	for _, ev := range active {
		if ev.EndTime().After(now) {
			continue
		}
		if c.advance(ctx, ev, model.EventStatusCompleted, now) {
			moved++
		}
	}
	return moved, nil
}

func (c *LifecycleController) advance(ctx context.Context, ev *model.ScheduledEvent, target model.EventStatus, now time.Time) bool {
	next := ev.Clone()
	if err := c.Apply(next, target); err != nil {
		return false
	}
	next.Version = ev.Version + 1
	next.LastModified = now.UTC()
	if err := c.events.Save(ctx, next, ev.Version); err != nil {
		// A concurrent edit wins; the next run sees the new version.
		c.logger.Warn("failed to advance event status",
			slog.String("event_id", ev.ID),
			slog.String("target", string(target)),
			slog.String("error", err.Error()))
		return false
	}
	c.AfterTransition(ctx, next, ev.Status)
	c.notifier.Publish(&Change{Type: ChangeEventUpdated, EventID: next.ID, Version: next.Version, Data: next})
	return true
}

// loadOwnedEvent loads an event for a write by its team leader
func loadOwnedEvent(ctx context.Context, events EventStore, eventID, actingLeaderID string) (*model.ScheduledEvent, error) {
	if actingLeaderID == "" {
		return nil, ErrTeamLeaderRequired
	}
	ev, err := events.Get(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if ev == nil {
		return nil, ErrEventNotFound
	}
	if !ev.IsOwnedBy(actingLeaderID) {
		return nil, ErrNotTeamLeader
	}
	return ev, nil
}

// checkExpectedVersion rejects a write based on a stale client copy
func checkExpectedVersion(ev *model.ScheduledEvent, expected *int) error {
	if expected != nil && *expected != ev.Version {
		return &database.VersionConflictError{Expected: *expected, Actual: ev.Version}
	}
	return nil
}

// translateStoreError maps a vanished record to ErrEventNotFound
func translateStoreError(err error) error {
	if errors.Is(err, database.ErrNotFound) {
		return ErrEventNotFound
	}
	return err
}
