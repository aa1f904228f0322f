package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/forgo/raidplan/api/internal/model"
)

// ParticipantRegistry stores helper and progger profiles
type ParticipantRegistry interface {
	ParticipantDirectory
	SaveHelper(ctx context.Context, h *model.Helper) error
	SaveProgger(ctx context.Context, p *model.Progger) error
}

// ParticipantService maintains the participant directory
type ParticipantService struct {
	registry ParticipantRegistry
	logger   *slog.Logger
}

// NewParticipantService creates a new participant service
func NewParticipantService(registry ParticipantRegistry, logger *slog.Logger) *ParticipantService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ParticipantService{registry: registry, logger: logger}
}

// SaveHelper creates or replaces a helper profile
func (s *ParticipantService) SaveHelper(ctx context.Context, h *model.Helper) (*model.Helper, error) {
	if errs := ValidateHelper(h); len(errs) > 0 {
		return nil, model.NewValidationError(errs)
	}
	if err := s.registry.SaveHelper(ctx, h); err != nil {
		return nil, fmt.Errorf("save helper: %w", err)
	}
	s.logger.Info("helper saved", slog.String("helper_id", h.ID), slog.Int("jobs", len(h.Jobs)))
	return h, nil
}

// SaveProgger creates or replaces a progger profile
func (s *ParticipantService) SaveProgger(ctx context.Context, p *model.Progger) (*model.Progger, error) {
	if errs := ValidateProgger(p); len(errs) > 0 {
		return nil, model.NewValidationError(errs)
	}
	if err := s.registry.SaveProgger(ctx, p); err != nil {
		return nil, fmt.Errorf("save progger: %w", err)
	}
	s.logger.Info("progger saved", slog.String("progger_id", p.ID), slog.String("job", string(p.Job)))
	return p, nil
}

// GetParticipant returns a participant or ErrParticipantNotFound
func (s *ParticipantService) GetParticipant(ctx context.Context, id string, typ model.ParticipantType) (model.Participant, error) {
	p, err := s.registry.GetParticipant(ctx, id, typ)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrParticipantNotFound
	}
	return p, nil
}

// ValidateHelper normalizes job codes in place and reports invalid fields
func ValidateHelper(h *model.Helper) []model.FieldError {
	var errs []model.FieldError
	if strings.TrimSpace(h.ID) == "" {
		errs = append(errs, model.FieldError{Field: "id", Message: "id is required"})
	}
	if strings.TrimSpace(h.Name) == "" {
		errs = append(errs, model.FieldError{Field: "name", Message: "name is required"})
	}
	if len(h.Jobs) == 0 {
		errs = append(errs, model.FieldError{Field: "jobs", Message: "at least one job is required"})
	}
	for i, j := range h.Jobs {
		job, ok := model.ParseJob(string(j))
		if !ok {
			errs = append(errs, model.FieldError{Field: fmt.Sprintf("jobs[%d]", i), Message: "unknown job"})
			continue
		}
		h.Jobs[i] = job
	}
	for i, w := range h.Availability {
		if err := w.Validate(); err != nil {
			errs = append(errs, model.FieldError{Field: fmt.Sprintf("availability[%d]", i), Message: err.Error()})
		}
	}
	return errs
}

// ValidateProgger normalizes the job code in place and reports invalid fields
func ValidateProgger(p *model.Progger) []model.FieldError {
	var errs []model.FieldError
	if strings.TrimSpace(p.ID) == "" {
		errs = append(errs, model.FieldError{Field: "id", Message: "id is required"})
	}
	if strings.TrimSpace(p.Name) == "" {
		errs = append(errs, model.FieldError{Field: "name", Message: "name is required"})
	}
	if job, ok := model.ParseJob(string(p.Job)); ok {
		p.Job = job
	} else {
		errs = append(errs, model.FieldError{Field: "job", Message: "unknown job"})
	}
	if !p.Encounter.IsValid() {
		errs = append(errs, model.FieldError{Field: "encounter", Message: "unknown encounter"})
	}
	return errs
}
