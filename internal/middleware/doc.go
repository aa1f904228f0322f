// Package middleware provides HTTP middleware for the raid planning API.
//
// # Available Middleware
//
//   - ServiceAuth: bearer service token check plus team leader identity
//   - RateLimit: token bucket per team leader, falling back to client address
//   - Idempotency: replays responses for repeated Idempotency-Key requests
//   - RequestID, Logger, Recovery, CORS, Compress
//
// # Identity
//
// The API sits behind a trusted bot front end that holds the service token.
// The acting organizer is named by the X-Team-Leader-ID and
// X-Team-Leader-Name headers:
//
//	leaderID := middleware.GetTeamLeaderID(r.Context())
//
// # Context Values
//
//   - GetTeamLeaderID(ctx): acting team leader ID
//   - GetTeamLeaderName(ctx): acting team leader display name
//   - GetRequestID(ctx): unique request identifier
package middleware
