package middleware

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"net/http"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"github.com/forgo/raidplan/api/internal/model"
)

// Headers the bot front end uses to name the acting team leader
const (
	TeamLeaderIDHeader   = "X-Team-Leader-ID"
	TeamLeaderNameHeader = "X-Team-Leader-Name"
)

// TokenVerifier checks a bearer token
type TokenVerifier interface {
	Verify(token string) bool
}

// ServiceTokenVerifier compares tokens against a bcrypt hash. A token that
// passed once is remembered by its SHA-256 digest so bcrypt runs once per
// distinct token.
type ServiceTokenVerifier struct {
	hash []byte

	mu       sync.RWMutex
	accepted [][sha256.Size]byte
}

// NewServiceTokenVerifier creates a verifier for a bcrypt hash
func NewServiceTokenVerifier(bcryptHash string) *ServiceTokenVerifier {
	return &ServiceTokenVerifier{hash: []byte(bcryptHash)}
}

// Verify reports whether token matches the configured hash
func (v *ServiceTokenVerifier) Verify(token string) bool {
	if token == "" || len(v.hash) == 0 {
		return false
	}
	digest := sha256.Sum256([]byte(token))

	v.mu.RLock()
	for _, d := range v.accepted {
		if subtle.ConstantTimeCompare(d[:], digest[:]) == 1 {
			v.mu.RUnlock()
			return true
		}
	}
	v.mu.RUnlock()

	if bcrypt.CompareHashAndPassword(v.hash, []byte(token)) != nil {
		return false
	}

	v.mu.Lock()
	v.accepted = append(v.accepted, digest)
	v.mu.Unlock()
	return true
}

// Identify verifies the service token and records the acting team leader
// before the request reaches the mux, so request logging, rate limiting and
// idempotency can key on the leader. It never rejects; ServiceAuth does that
// on protected routes, reusing the verdict recorded here.
func Identify(verifier TokenVerifier) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}
			valid := verifier.Verify(token)
			ctx := context.WithValue(r.Context(), tokenVerdictKey, valid)
			if valid {
				ctx = withTeamLeader(ctx, r)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ServiceAuth requires a valid service token and records the acting team
// leader from the identity headers. EventSource clients cannot set headers,
// so GET requests may pass the token as ?access_token=.
func ServiceAuth(verifier TokenVerifier) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if valid, seen := r.Context().Value(tokenVerdictKey).(bool); seen {
				if !valid {
					model.NewUnauthorizedError("invalid service token").WriteJSON(w)
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			token, ok := bearerToken(r)
			if !ok {
				model.NewUnauthorizedError("missing authorization header").WriteJSON(w)
				return
			}
			if !verifier.Verify(token) {
				model.NewUnauthorizedError("invalid service token").WriteJSON(w)
				return
			}
			next.ServeHTTP(w, r.WithContext(withTeamLeader(r.Context(), r)))
		})
	}
}

// withTeamLeader copies the identity headers into ctx. The name defaults to the id.
func withTeamLeader(ctx context.Context, r *http.Request) context.Context {
	id := strings.TrimSpace(r.Header.Get(TeamLeaderIDHeader))
	if id == "" {
		return ctx
	}
	name := strings.TrimSpace(r.Header.Get(TeamLeaderNameHeader))
	if name == "" {
		name = id
	}
	ctx = context.WithValue(ctx, TeamLeaderIDKey, id)
	return context.WithValue(ctx, TeamLeaderNameKey, name)
}

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		if r.Method == http.MethodGet {
			if t := r.URL.Query().Get("access_token"); t != "" {
				return t, true
			}
		}
		return "", false
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	return parts[1], true
}

// GetTeamLeaderID extracts the acting team leader ID from context
func GetTeamLeaderID(ctx context.Context) string {
	if id, ok := ctx.Value(TeamLeaderIDKey).(string); ok {
		return id
	}
	return ""
}

// GetTeamLeaderName extracts the acting team leader display name from context
func GetTeamLeaderName(ctx context.Context) string {
	if name, ok := ctx.Value(TeamLeaderNameKey).(string); ok {
		return name
	}
	return ""
}
