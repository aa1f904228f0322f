package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/forgo/raidplan/api/internal/database"
	"github.com/forgo/raidplan/api/internal/model"
)

// SurrealParticipantDirectory reads helpers and proggers from SurrealDB.
// Helper availability lives in helper_window rows, one per weekly block.
type SurrealParticipantDirectory struct {
	db database.Database
}

// NewSurrealParticipantDirectory creates a new directory
func NewSurrealParticipantDirectory(db database.Database) *SurrealParticipantDirectory {
	return &SurrealParticipantDirectory{db: db}
}

// SaveHelper upserts the helper and replaces its availability windows in one transaction
func (r *SurrealParticipantDirectory) SaveHelper(ctx context.Context, h *model.Helper) error {
	jobs := make([]string, len(h.Jobs))
	for i, j := range h.Jobs {
		jobs[i] = string(j)
	}

	batch := database.NewBatch()
	batch.Add(`UPSERT type::thing("helper", $id) CONTENT $doc`, map[string]interface{}{
		"id": h.ID,
		"doc": map[string]interface{}{
			"helper_id":  h.ID,
			"discord_id": h.DiscordID,
			"name":       h.Name,
			"jobs":       jobs,
		},
	})
	batch.Add(`DELETE helper_window WHERE helper_id = $id`, map[string]interface{}{"id": h.ID})
	for _, w := range h.Availability {
		batch.Add(`CREATE helper_window CONTENT $doc`, map[string]interface{}{
			"doc": map[string]interface{}{
				"helper_id":    h.ID,
				"weekday":      int(w.Weekday),
				"start_minute": w.StartMinute,
				"end_minute":   w.EndMinute,
			},
		})
	}
	return batch.Execute(ctx, r.db)
}

// SaveProgger upserts a progger
func (r *SurrealParticipantDirectory) SaveProgger(ctx context.Context, p *model.Progger) error {
	query := `UPSERT type::thing("progger", $id) CONTENT $doc`
	vars := map[string]interface{}{
		"id": p.ID,
		"doc": map[string]interface{}{
			"progger_id": p.ID,
			"discord_id": p.DiscordID,
			"name":       p.Name,
			"job":        string(p.Job),
			"encounter":  string(p.Encounter),
			"prog_point":   p.ProgPoint,
			"availability": p.Availability,
		},
	}
	return r.db.Execute(ctx, query, vars)
}

// GetParticipant returns the participant, or nil when unknown
func (r *SurrealParticipantDirectory) GetParticipant(ctx context.Context, id string, typ model.ParticipantType) (model.Participant, error) {
	switch typ {
	case model.ParticipantTypeHelper:
		h, err := r.getHelper(ctx, id)
		if err != nil || h == nil {
			return nil, err
		}
		return h, nil
	case model.ParticipantTypeProgger:
		p, err := r.getProgger(ctx, id)
		if err != nil || p == nil {
			return nil, err
		}
		return p, nil
	}
	return nil, fmt.Errorf("unknown participant type %q", typ)
}

// IsAvailable reports whether the helper's weekly windows cover [start, end)
func (r *SurrealParticipantDirectory) IsAvailable(ctx context.Context, helperID string, start, end time.Time) (bool, error) {
	h, err := r.getHelper(ctx, helperID)
	if err != nil {
		return false, err
	}
	if h == nil {
		return false, nil
	}
	return h.AvailableDuring(start, end), nil
}

func (r *SurrealParticipantDirectory) getHelper(ctx context.Context, id string) (*model.Helper, error) {
	query := `
		SELECT * FROM type::thing("helper", $id);
		SELECT weekday, start_minute, end_minute FROM helper_window WHERE helper_id = $id ORDER BY weekday, start_minute;
	`
	results, err := r.db.Query(ctx, query, map[string]interface{}{"id": id})
	if err != nil {
		return nil, err
	}

	rows := statementRows(results, 0)
	if len(rows) == 0 {
		return nil, nil
	}
	data, ok := rows[0].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: unexpected helper record %T", database.ErrQuery, rows[0])
	}

	h := &model.Helper{
		ID:        getString(data, "helper_id"),
		DiscordID: getString(data, "discord_id"),
		Name:      getString(data, "name"),
	}
	for _, j := range getStringSlice(data, "jobs") {
		h.Jobs = append(h.Jobs, model.Job(j))
	}
	for _, row := range statementRows(results, 1) {
		w, ok := row.(map[string]interface{})
		if !ok {
			continue
		}
		h.Availability = append(h.Availability, model.AvailabilityWindow{
			Weekday:     time.Weekday(getInt(w, "weekday")),
			StartMinute: getInt(w, "start_minute"),
			EndMinute:   getInt(w, "end_minute"),
		})
	}
	return h, nil
}

func (r *SurrealParticipantDirectory) getProgger(ctx context.Context, id string) (*model.Progger, error) {
	query := `SELECT * FROM type::thing("progger", $id)`
	result, err := r.db.QueryOne(ctx, query, map[string]interface{}{"id": id})
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	data, ok := result.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: unexpected progger record %T", database.ErrQuery, result)
	}
	return &model.Progger{
		ID:        getString(data, "progger_id"),
		DiscordID: getString(data, "discord_id"),
		Name:      getString(data, "name"),
		Job:       model.Job(getString(data, "job")),
		Encounter: model.Encounter(getString(data, "encounter")),
		ProgPoint:    getString(data, "prog_point"),
		Availability: getString(data, "availability"),
	}, nil
}
