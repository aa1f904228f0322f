package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/forgo/raidplan/api/internal/database"
	"github.com/forgo/raidplan/api/internal/model"
)

const pgUniqueViolation = "23505"

// PostgresSchema creates the scheduled_events table. Filterable columns are
// denormalized next to the JSON document.
const PostgresSchema = `
CREATE TABLE IF NOT EXISTS scheduled_events (
	id             TEXT PRIMARY KEY,
	team_leader_id TEXT NOT NULL,
	status         TEXT NOT NULL,
	encounter      TEXT NOT NULL,
	scheduled_time TIMESTAMPTZ NOT NULL,
	version        INTEGER NOT NULL,
	document       JSONB NOT NULL,
	created_at     TIMESTAMPTZ NOT NULL,
	last_modified  TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS scheduled_events_time_idx ON scheduled_events (scheduled_time);
CREATE INDEX IF NOT EXISTS scheduled_events_leader_idx ON scheduled_events (team_leader_id);
`

// PgxPool is the subset of *pgxpool.Pool the store uses
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresEventStore persists events in PostgreSQL
type PostgresEventStore struct {
	pool PgxPool
}

// NewPostgresEventStore creates a new PostgreSQL event store
func NewPostgresEventStore(pool PgxPool) *PostgresEventStore {
	return &PostgresEventStore{pool: pool}
}

// Migrate applies PostgresSchema
func (r *PostgresEventStore) Migrate(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, PostgresSchema); err != nil {
		return fmt.Errorf("%w: migrate: %v", database.ErrQuery, err)
	}
	return nil
}

// Create stores a new event
func (r *PostgresEventStore) Create(ctx context.Context, event *model.ScheduledEvent) error {
	doc, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO scheduled_events
			(id, team_leader_id, status, encounter, scheduled_time, version, document, created_at, last_modified)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		event.ID, event.TeamLeaderID, string(event.Status), string(event.Encounter),
		event.ScheduledTime, event.Version, doc, event.CreatedAt, event.LastModified,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return fmt.Errorf("%w: event %s", database.ErrDuplicate, event.ID)
		}
		return fmt.Errorf("%w: %v", database.ErrQuery, err)
	}
	return nil
}

// Get retrieves an event by id, or nil when absent
func (r *PostgresEventStore) Get(ctx context.Context, eventID string) (*model.ScheduledEvent, error) {
	var doc []byte
	err := r.pool.QueryRow(ctx, `SELECT document FROM scheduled_events WHERE id = $1`, eventID).Scan(&doc)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", database.ErrQuery, err)
	}
	return decodeEventDocument(doc)
}

// List returns matching events ordered by scheduled time
func (r *PostgresEventStore) List(ctx context.Context, filters model.EventFilters) ([]*model.ScheduledEvent, error) {
	var (
		where []string
		args  []any
	)
	add := func(clause string, arg any) {
		args = append(args, arg)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}
	if filters.TeamLeaderID != "" {
		add("team_leader_id = $%d", filters.TeamLeaderID)
	}
	if filters.Status != nil {
		add("status = $%d", string(*filters.Status))
	}
	if filters.Encounter != nil {
		add("encounter = $%d", string(*filters.Encounter))
	}
	if filters.DateFrom != nil {
		add("scheduled_time >= $%d", *filters.DateFrom)
	}
	if filters.DateTo != nil {
		add("scheduled_time <= $%d", *filters.DateTo)
	}

	query := `SELECT document FROM scheduled_events`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY scheduled_time ASC, id ASC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", database.ErrQuery, err)
	}
	defer rows.Close()

	var events []*model.ScheduledEvent
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("%w: %v", database.ErrQuery, err)
		}
		event, err := decodeEventDocument(doc)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", database.ErrQuery, err)
	}
	return events, nil
}

// Save replaces the row only when its stored version equals expectedVersion
func (r *PostgresEventStore) Save(ctx context.Context, event *model.ScheduledEvent, expectedVersion int) error {
	doc, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	tag, err := r.pool.Exec(ctx, `
		UPDATE scheduled_events
		SET team_leader_id = $2, status = $3, encounter = $4, scheduled_time = $5,
			version = $6, document = $7, last_modified = $8
		WHERE id = $1 AND version = $9`,
		event.ID, event.TeamLeaderID, string(event.Status), string(event.Encounter),
		event.ScheduledTime, event.Version, doc, event.LastModified, expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("%w: %v", database.ErrQuery, err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	var stored int
	err = r.pool.QueryRow(ctx, `SELECT version FROM scheduled_events WHERE id = $1`, event.ID).Scan(&stored)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("%w: event %s", database.ErrNotFound, event.ID)
		}
		return fmt.Errorf("%w: %v", database.ErrQuery, err)
	}
	return &database.VersionConflictError{Expected: expectedVersion, Actual: stored}
}

// Delete removes the event
func (r *PostgresEventStore) Delete(ctx context.Context, eventID string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM scheduled_events WHERE id = $1`, eventID)
	if err != nil {
		return fmt.Errorf("%w: %v", database.ErrQuery, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: event %s", database.ErrNotFound, eventID)
	}
	return nil
}

func decodeEventDocument(doc []byte) (*model.ScheduledEvent, error) {
	var event model.ScheduledEvent
	if err := json.Unmarshal(doc, &event); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}
	return &event, nil
}
