package handler

import (
	"net/http"

	"github.com/forgo/raidplan/api/internal/middleware"
)

// Handlers groups the endpoint handlers served under /v1
type Handlers struct {
	Health       *HealthHandler
	Events       *EventHandler
	Locks        *LockHandler
	Assignments  *AssignmentHandler
	Participants *ParticipantHandler
	Stream       *StreamHandler
}

// RegisterRoutes mounts every endpoint on mux. auth wraps all /v1 routes.
func RegisterRoutes(mux *http.ServeMux, h Handlers, auth middleware.Middleware) {
	protected := func(fn http.HandlerFunc) http.Handler {
		return auth(fn)
	}

	mux.HandleFunc("GET /health", h.Health.Health)

	// Events
	mux.Handle("POST /v1/events", protected(h.Events.CreateEvent))
	mux.Handle("GET /v1/events", protected(h.Events.ListEvents))
	mux.Handle("GET /v1/events/{eventId}", protected(h.Events.GetEvent))
	mux.Handle("PATCH /v1/events/{eventId}", protected(h.Events.UpdateEvent))
	mux.Handle("DELETE /v1/events/{eventId}", protected(h.Events.DeleteEvent))
	mux.Handle("POST /v1/events/{eventId}/cancel", protected(h.Events.CancelEvent))

	// Draft locks
	mux.Handle("GET /v1/events/{eventId}/locks", protected(h.Locks.List))
	mux.Handle("POST /v1/events/{eventId}/locks", protected(h.Locks.Lock))
	mux.Handle("DELETE /v1/events/{eventId}/locks/{participantType}/{participantId}", protected(h.Locks.Release))

	// Roster
	mux.Handle("POST /v1/events/{eventId}/assignments", protected(h.Assignments.Assign))
	mux.Handle("DELETE /v1/events/{eventId}/slots/{slotId}/assignment", protected(h.Assignments.Unassign))

	// Live updates
	mux.Handle("GET /v1/events/{eventId}/stream", protected(h.Stream.Stream))

	// Participant directory
	mux.Handle("PUT /v1/helpers/{helperId}", protected(h.Participants.PutHelper))
	mux.Handle("GET /v1/helpers/{helperId}", protected(h.Participants.GetHelper))
	mux.Handle("PUT /v1/proggers/{proggerId}", protected(h.Participants.PutProgger))
	mux.Handle("GET /v1/proggers/{proggerId}", protected(h.Participants.GetProgger))
}

// RouterConfig carries the shared middleware state for NewRouter. A nil
// RateLimiter or Idempotency store leaves that layer out.
type RouterConfig struct {
	Verifier       middleware.TokenVerifier
	AllowedOrigins []string
	RateLimiter    *middleware.RateLimiter
	Idempotency    *middleware.IdempotencyStore
}

// NewRouter mounts the routes and wraps them in the global middleware.
// Identify runs ahead of logging, rate limiting and idempotency so all of
// them key on the acting team leader.
func NewRouter(h Handlers, cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()
	RegisterRoutes(mux, h, middleware.ServiceAuth(cfg.Verifier))

	chain := []middleware.Middleware{
		middleware.RequestID,
		middleware.Identify(cfg.Verifier),
		middleware.Logger,
		middleware.Recovery,
		middleware.CORS(cfg.AllowedOrigins),
	}
	if cfg.RateLimiter != nil {
		chain = append(chain, middleware.RateLimit(cfg.RateLimiter))
	}
	if cfg.Idempotency != nil {
		chain = append(chain, middleware.Idempotency(cfg.Idempotency))
	}
	chain = append(chain, middleware.Compress)

	return middleware.Chain(mux, chain...)
}
