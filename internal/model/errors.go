package model

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// ErrorCode represents API error codes
type ErrorCode int

const (
	// Authentication errors (1xxx)
	ErrCodeUnauthorized ErrorCode = 1001

	// Authorization errors (2xxx)
	ErrCodeForbidden ErrorCode = 2001
	ErrCodeNotOwner  ErrorCode = 2002

	// Resource errors (3xxx)
	ErrCodeNotFound         ErrorCode = 3001
	ErrCodeConflict         ErrorCode = 3003
	ErrCodeParticipantLock  ErrorCode = 3004
	ErrCodeVersionConflict  ErrorCode = 3005
	ErrCodeIncompleteRoster ErrorCode = 3006
	ErrCodeEventLocked      ErrorCode = 3007

	// Validation errors (4xxx)
	ErrCodeValidation   ErrorCode = 4001
	ErrCodeInvalidInput ErrorCode = 4002
	ErrCodeUnavailable  ErrorCode = 4004

	// Internal errors (5xxx)
	ErrCodeInternal ErrorCode = 5001
)

const problemTypeBase = "https://raidplan.forgo.software/errors/"

// ProblemDetails represents RFC 9457 Problem Details for HTTP APIs
type ProblemDetails struct {
	Type     string       `json:"type"`
	Title    string       `json:"title"`
	Status   int          `json:"status"`
	Detail   string       `json:"detail,omitempty"`
	Instance string       `json:"instance,omitempty"`
	Errors   []FieldError `json:"errors,omitempty"`
	// Extension fields
	Code           ErrorCode   `json:"code,omitempty"`
	Limit          *int        `json:"limit,omitempty"`
	Current        *int        `json:"current,omitempty"`
	Missing        *RoleCounts `json:"missing,omitempty"`
	LockedBy       string      `json:"locked_by,omitempty"`
	LockedByName   string      `json:"locked_by_name,omitempty"`
	LockExpiresAt  *time.Time  `json:"lock_expires_at,omitempty"`
	CurrentVersion *int        `json:"current_version,omitempty"`
}

// FieldError represents a validation error on a specific field
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error implements the error interface
func (p *ProblemDetails) Error() string {
	return fmt.Sprintf("[%d] %s: %s", p.Status, p.Title, p.Detail)
}

// WriteJSON writes the problem details as JSON response
func (p *ProblemDetails) WriteJSON(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(p.Status)
	_ = json.NewEncoder(w).Encode(p)
}

// Common error constructors

func NewUnauthorizedError(detail string) *ProblemDetails {
	return &ProblemDetails{
		Type:   problemTypeBase + "unauthorized",
		Title:  "Unauthorized",
		Status: http.StatusUnauthorized,
		Detail: detail,
		Code:   ErrCodeUnauthorized,
	}
}

func NewForbiddenError(detail string) *ProblemDetails {
	return &ProblemDetails{
		Type:   problemTypeBase + "forbidden",
		Title:  "Forbidden",
		Status: http.StatusForbidden,
		Detail: detail,
		Code:   ErrCodeForbidden,
	}
}

func NewNotFoundError(resource string) *ProblemDetails {
	return &ProblemDetails{
		Type:   problemTypeBase + "not-found",
		Title:  "Not Found",
		Status: http.StatusNotFound,
		Detail: fmt.Sprintf("%s not found", resource),
		Code:   ErrCodeNotFound,
	}
}

func NewValidationError(errors []FieldError) *ProblemDetails {
	detail := "One or more fields failed validation"
	if len(errors) > 0 {
		detail = fmt.Sprintf("%s: %s", errors[0].Field, errors[0].Message)
		if len(errors) > 1 {
			detail = fmt.Sprintf("%s (and %d more errors)", detail, len(errors)-1)
		}
	}
	return &ProblemDetails{
		Type:   problemTypeBase + "validation",
		Title:  "Validation Error",
		Status: http.StatusUnprocessableEntity,
		Detail: detail,
		Code:   ErrCodeValidation,
		Errors: errors,
	}
}

func NewConflictError(detail string) *ProblemDetails {
	return &ProblemDetails{
		Type:   problemTypeBase + "conflict",
		Title:  "Conflict",
		Status: http.StatusConflict,
		Detail: detail,
		Code:   ErrCodeConflict,
	}
}

// NewParticipantLockedError names the holder of the blocking draft lock
func NewParticipantLockedError(holder *DraftLock) *ProblemDetails {
	pd := &ProblemDetails{
		Type:   problemTypeBase + "participant-locked",
		Title:  "Participant Locked",
		Status: http.StatusConflict,
		Detail: ErrLockHeld.Error(),
		Code:   ErrCodeParticipantLock,
	}
	if holder != nil {
		expires := holder.ExpiresAt.UTC()
		pd.Detail = fmt.Sprintf("participant is being drafted by %s", holder.LockedByName)
		pd.LockedBy = holder.LockedBy
		pd.LockedByName = holder.LockedByName
		pd.LockExpiresAt = &expires
	}
	return pd
}

// NewVersionConflictError tells the client to reload before retrying
func NewVersionConflictError(currentVersion int) *ProblemDetails {
	pd := &ProblemDetails{
		Type:   problemTypeBase + "version-conflict",
		Title:  "Version Conflict",
		Status: http.StatusConflict,
		Detail: "event was modified by someone else; reload and retry",
		Code:   ErrCodeVersionConflict,
	}
	if currentVersion > 0 {
		pd.CurrentVersion = &currentVersion
	}
	return pd
}

// NewIncompleteRosterError reports filled against total slots and the
// roles still missing
func NewIncompleteRosterError(e *IncompleteRosterError) *ProblemDetails {
	filled, total, missing := e.Filled, e.Total, e.Missing
	return &ProblemDetails{
		Type:    problemTypeBase + "incomplete-roster",
		Title:   "Incomplete Roster",
		Status:  http.StatusConflict,
		Detail:  e.Error(),
		Code:    ErrCodeIncompleteRoster,
		Limit:   &total,
		Current: &filled,
		Missing: &missing,
	}
}

func NewEventLockedError(status EventStatus) *ProblemDetails {
	return &ProblemDetails{
		Type:   problemTypeBase + "event-locked",
		Title:  "Event Locked",
		Status: http.StatusConflict,
		Detail: fmt.Sprintf("roster cannot change while event is %s", status),
		Code:   ErrCodeEventLocked,
	}
}

func NewInternalError(detail string) *ProblemDetails {
	if detail == "" {
		detail = "An unexpected error occurred"
	}
	return &ProblemDetails{
		Type:   problemTypeBase + "internal",
		Title:  "Internal Server Error",
		Status: http.StatusInternalServerError,
		Detail: detail,
		Code:   ErrCodeInternal,
	}
}

func NewBadRequestError(detail string) *ProblemDetails {
	return &ProblemDetails{
		Type:   problemTypeBase + "bad-request",
		Title:  "Bad Request",
		Status: http.StatusBadRequest,
		Detail: detail,
		Code:   ErrCodeInvalidInput,
	}
}

func NewServiceUnavailableError(detail string) *ProblemDetails {
	return &ProblemDetails{
		Type:   problemTypeBase + "unavailable",
		Title:  "Service Unavailable",
		Status: http.StatusServiceUnavailable,
		Detail: detail,
	}
}

func NewRateLimitError(retryAfter int) *ProblemDetails {
	return &ProblemDetails{
		Type:   problemTypeBase + "rate-limited",
		Title:  "Too Many Requests",
		Status: http.StatusTooManyRequests,
		Detail: fmt.Sprintf("Rate limit exceeded. Retry after %d seconds", retryAfter),
	}
}
