package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/forgo/raidplan/api/internal/database"
	"github.com/forgo/raidplan/api/internal/model"
)

// SurrealEventStore persists events as scheduled_event records keyed by event id
type SurrealEventStore struct {
	db database.Database
}

// NewSurrealEventStore creates a new SurrealDB event store
func NewSurrealEventStore(db database.Database) *SurrealEventStore {
	return &SurrealEventStore{db: db}
}

// Create stores a new event
func (r *SurrealEventStore) Create(ctx context.Context, event *model.ScheduledEvent) error {
	doc, err := eventContent(event)
	if err != nil {
		return err
	}
	query := `CREATE type::thing("scheduled_event", $id) CONTENT $doc`
	vars := map[string]interface{}{"id": event.ID, "doc": doc}

	if err := r.db.Execute(ctx, query, vars); err != nil {
		if isUniqueConstraintError(err) {
			return fmt.Errorf("%w: event %s", database.ErrDuplicate, event.ID)
		}
		return err
	}
	return nil
}

// Get retrieves an event by id, or nil when absent
func (r *SurrealEventStore) Get(ctx context.Context, eventID string) (*model.ScheduledEvent, error) {
	query := `SELECT * FROM type::thing("scheduled_event", $id)`
	vars := map[string]interface{}{"id": eventID}

	result, err := r.db.QueryOne(ctx, query, vars)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return parseEventRecord(result)
}

// List returns matching events ordered by scheduled time
func (r *SurrealEventStore) List(ctx context.Context, filters model.EventFilters) ([]*model.ScheduledEvent, error) {
	query := `SELECT * FROM scheduled_event WHERE true`
	vars := map[string]interface{}{}

	if filters.TeamLeaderID != "" {
		query += ` AND team_leader_id = $team_leader_id`
		vars["team_leader_id"] = filters.TeamLeaderID
	}
	if filters.Status != nil {
		query += ` AND status = $status`
		vars["status"] = string(*filters.Status)
	}
	if filters.Encounter != nil {
		query += ` AND encounter = $encounter`
		vars["encounter"] = string(*filters.Encounter)
	}
	if filters.DateFrom != nil {
		query += ` AND scheduled_time >= $date_from`
		vars["date_from"] = filters.DateFrom.UTC()
	}
	if filters.DateTo != nil {
		query += ` AND scheduled_time <= $date_to`
		vars["date_to"] = filters.DateTo.UTC()
	}
	query += ` ORDER BY scheduled_time ASC`

	results, err := r.db.Query(ctx, query, vars)
	if err != nil {
		return nil, err
	}

	rows := statementRows(results, 0)
	events := make([]*model.ScheduledEvent, 0, len(rows))
	for _, row := range rows {
		event, err := parseEventRecord(row)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, nil
}

// Save replaces the record only when its stored version equals expectedVersion
func (r *SurrealEventStore) Save(ctx context.Context, event *model.ScheduledEvent, expectedVersion int) error {
	doc, err := eventContent(event)
	if err != nil {
		return err
	}
	query := `UPDATE type::thing("scheduled_event", $id) CONTENT $doc WHERE version = $expected RETURN AFTER`
	vars := map[string]interface{}{
		"id":       event.ID,
		"doc":      doc,
		"expected": expectedVersion,
	}

	results, err := r.db.Query(ctx, query, vars)
	if err != nil {
		return err
	}
	if len(statementRows(results, 0)) > 0 {
		return nil
	}

	stored, err := r.Get(ctx, event.ID)
	if err != nil {
		return err
	}
	if stored == nil {
		return fmt.Errorf("%w: event %s", database.ErrNotFound, event.ID)
	}
	return &database.VersionConflictError{Expected: expectedVersion, Actual: stored.Version}
}

// Delete removes the event
func (r *SurrealEventStore) Delete(ctx context.Context, eventID string) error {
	query := `DELETE type::thing("scheduled_event", $id) RETURN BEFORE`
	vars := map[string]interface{}{"id": eventID}

	results, err := r.db.Query(ctx, query, vars)
	if err != nil {
		return err
	}
	if len(statementRows(results, 0)) == 0 {
		return fmt.Errorf("%w: event %s", database.ErrNotFound, eventID)
	}
	return nil
}

// eventContent builds the record body. Times stay native so range filters
// compare datetimes; the roster is stored as a nested document.
func eventContent(event *model.ScheduledEvent) (map[string]interface{}, error) {
	roster, err := toDocument(event.Roster)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"event_id":         event.ID,
		"name":             event.Name,
		"encounter":        string(event.Encounter),
		"scheduled_time":   event.ScheduledTime.UTC(),
		"duration_minutes": event.DurationMinutes,
		"team_leader_id":   event.TeamLeaderID,
		"team_leader_name": event.TeamLeaderName,
		"status":           string(event.Status),
		"roster":           roster,
		"created_at":       event.CreatedAt.UTC(),
		"last_modified":    event.LastModified.UTC(),
		"version":          event.Version,
	}, nil
}

func parseEventRecord(result interface{}) (*model.ScheduledEvent, error) {
	data, ok := result.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: unexpected event record %T", database.ErrQuery, result)
	}

	event := &model.ScheduledEvent{
		ID:              getString(data, "event_id"),
		Name:            getString(data, "name"),
		Encounter:       model.Encounter(getString(data, "encounter")),
		ScheduledTime:   parseTime(data["scheduled_time"]).UTC(),
		DurationMinutes: getInt(data, "duration_minutes"),
		TeamLeaderID:    getString(data, "team_leader_id"),
		TeamLeaderName:  getString(data, "team_leader_name"),
		Status:          model.EventStatus(getString(data, "status")),
		CreatedAt:       parseTime(data["created_at"]).UTC(),
		LastModified:    parseTime(data["last_modified"]).UTC(),
		Version:         getInt(data, "version"),
	}

	var roster model.EventRoster
	if err := decodeInto(data["roster"], &roster); err != nil {
		return nil, err
	}
	event.Roster = &roster
	return event, nil
}
