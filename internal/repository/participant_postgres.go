package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/forgo/raidplan/api/internal/database"
	"github.com/forgo/raidplan/api/internal/model"
)

// PostgresParticipantSchema creates the participant tables. Profiles are
// stored whole; availability travels inside the helper document.
const PostgresParticipantSchema = `
CREATE TABLE IF NOT EXISTS helpers (
	id         TEXT PRIMARY KEY,
	document   JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS proggers (
	id         TEXT PRIMARY KEY,
	encounter  TEXT NOT NULL,
	document   JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// PostgresParticipantDirectory stores helpers and proggers in PostgreSQL
type PostgresParticipantDirectory struct {
	pool PgxPool
}

// NewPostgresParticipantDirectory creates a new directory
func NewPostgresParticipantDirectory(pool PgxPool) *PostgresParticipantDirectory {
	return &PostgresParticipantDirectory{pool: pool}
}

// Migrate applies PostgresParticipantSchema
func (r *PostgresParticipantDirectory) Migrate(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, PostgresParticipantSchema); err != nil {
		return fmt.Errorf("%w: migrate participants: %v", database.ErrQuery, err)
	}
	return nil
}

// SaveHelper inserts or replaces a helper
func (r *PostgresParticipantDirectory) SaveHelper(ctx context.Context, h *model.Helper) error {
	doc, err := json.Marshal(h)
	if err != nil {
		return fmt.Errorf("encode helper: %w", err)
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO helpers (id, document, updated_at) VALUES ($1, $2, now())
		ON CONFLICT (id) DO UPDATE SET document = EXCLUDED.document, updated_at = now()`,
		h.ID, doc)
	if err != nil {
		return fmt.Errorf("%w: %v", database.ErrQuery, err)
	}
	return nil
}

// SaveProgger inserts or replaces a progger
func (r *PostgresParticipantDirectory) SaveProgger(ctx context.Context, p *model.Progger) error {
	doc, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode progger: %w", err)
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO proggers (id, encounter, document, updated_at) VALUES ($1, $2, $3, now())
		ON CONFLICT (id) DO UPDATE SET encounter = EXCLUDED.encounter, document = EXCLUDED.document, updated_at = now()`,
		p.ID, string(p.Encounter), doc)
	if err != nil {
		return fmt.Errorf("%w: %v", database.ErrQuery, err)
	}
	return nil
}

// GetParticipant returns the participant, or nil when unknown
func (r *PostgresParticipantDirectory) GetParticipant(ctx context.Context, id string, typ model.ParticipantType) (model.Participant, error) {
	switch typ {
	case model.ParticipantTypeHelper:
		h, err := r.getHelper(ctx, id)
		if h == nil || err != nil {
			return nil, err
		}
		return h, nil
	case model.ParticipantTypeProgger:
		var p model.Progger
		found, err := r.getDocument(ctx, `SELECT document FROM proggers WHERE id = $1`, id, &p)
		if !found || err != nil {
			return nil, err
		}
		return &p, nil
	}
	return nil, fmt.Errorf("unknown participant type %q", typ)
}

// IsAvailable reports whether the helper's weekly windows cover [start, end)
func (r *PostgresParticipantDirectory) IsAvailable(ctx context.Context, helperID string, start, end time.Time) (bool, error) {
	h, err := r.getHelper(ctx, helperID)
	if err != nil || h == nil {
		return false, err
	}
	return h.AvailableDuring(start, end), nil
}

func (r *PostgresParticipantDirectory) getHelper(ctx context.Context, id string) (*model.Helper, error) {
	var h model.Helper
	found, err := r.getDocument(ctx, `SELECT document FROM helpers WHERE id = $1`, id, &h)
	if !found || err != nil {
		return nil, err
	}
	return &h, nil
}

func (r *PostgresParticipantDirectory) getDocument(ctx context.Context, query, id string, dst any) (bool, error) {
	var doc []byte
	if err := r.pool.QueryRow(ctx, query, id).Scan(&doc); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("%w: %v", database.ErrQuery, err)
	}
	if err := json.Unmarshal(doc, dst); err != nil {
		return false, fmt.Errorf("decode participant %s: %w", id, err)
	}
	return true, nil
}
