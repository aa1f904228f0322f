package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testServiceToken = "s3rvice-token"

func testVerifier(t *testing.T) *ServiceTokenVerifier {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(testServiceToken), bcrypt.MinCost)
	require.NoError(t, err)
	return NewServiceTokenVerifier(string(hash))
}

type contextCapture struct {
	ctx    context.Context
	called bool
}

func (c *contextCapture) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c.ctx = r.Context()
	c.called = true
	w.WriteHeader(http.StatusOK)
}

func TestServiceTokenVerifier(t *testing.T) {
	t.Parallel()
	v := testVerifier(t)

	assert.False(t, v.Verify(""))
	assert.False(t, v.Verify("wrong"))
	assert.True(t, v.Verify(testServiceToken))
	assert.Len(t, v.accepted, 1)

	// cached path
	assert.True(t, v.Verify(testServiceToken))
	assert.Len(t, v.accepted, 1)
	assert.False(t, v.Verify("wrong"))
}

func TestServiceTokenVerifier_EmptyHashRejectsEverything(t *testing.T) {
	t.Parallel()
	assert.False(t, NewServiceTokenVerifier("").Verify(testServiceToken))
}

func TestServiceAuth(t *testing.T) {
	t.Parallel()
	verifier := testVerifier(t)

	tests := []struct {
		name       string
		method     string
		target     string
		header     map[string]string
		wantStatus int
		wantLeader string
		wantName   string
	}{
		{
			name:       "missing header",
			method:     http.MethodGet,
			target:     "/v1/events",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "wrong scheme",
			method:     http.MethodGet,
			target:     "/v1/events",
			header:     map[string]string{"Authorization": "Basic " + testServiceToken},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "bad token",
			method:     http.MethodGet,
			target:     "/v1/events",
			header:     map[string]string{"Authorization": "Bearer nope"},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:   "token with leader",
			method: http.MethodPost,
			target: "/v1/events",
			header: map[string]string{
				"Authorization":      "Bearer " + testServiceToken,
				TeamLeaderIDHeader:   "tl-1",
				TeamLeaderNameHeader: "Ysolde",
			},
			wantStatus: http.StatusOK,
			wantLeader: "tl-1",
			wantName:   "Ysolde",
		},
		{
			name:   "name defaults to id",
			method: http.MethodPost,
			target: "/v1/events",
			header: map[string]string{
				"Authorization":    "bearer " + testServiceToken,
				TeamLeaderIDHeader: " tl-2 ",
			},
			wantStatus: http.StatusOK,
			wantLeader: "tl-2",
			wantName:   "tl-2",
		},
		{
			name:       "query token on GET",
			method:     http.MethodGet,
			target:     "/v1/events/e/stream?access_token=" + testServiceToken,
			wantStatus: http.StatusOK,
		},
		{
			name:       "query token ignored on POST",
			method:     http.MethodPost,
			target:     "/v1/events?access_token=" + testServiceToken,
			wantStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			capture := &contextCapture{}
			h := ServiceAuth(verifier)(capture)

			req := httptest.NewRequest(tt.method, tt.target, nil)
			for k, v := range tt.header {
				req.Header.Set(k, v)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)

			assert.Equal(t, tt.wantStatus, rr.Code)
			if tt.wantStatus != http.StatusOK {
				assert.False(t, capture.called)
				assert.Equal(t, "application/problem+json", rr.Header().Get("Content-Type"))
				return
			}
			require.True(t, capture.called)
			assert.Equal(t, tt.wantLeader, GetTeamLeaderID(capture.ctx))
			assert.Equal(t, tt.wantName, GetTeamLeaderName(capture.ctx))
		})
	}
}

func TestGetTeamLeader_EmptyContext(t *testing.T) {
	t.Parallel()
	assert.Empty(t, GetTeamLeaderID(context.Background()))
	assert.Empty(t, GetTeamLeaderName(context.Background()))
}

// countingVerifier counts Verify calls against a fixed token
type countingVerifier struct {
	token string
	calls int
}

func (v *countingVerifier) Verify(token string) bool {
	v.calls++
	return token == v.token
}

func TestIdentify_ResolvesLeaderBeforeOuterMiddleware(t *testing.T) {
	t.Parallel()
	verifier := &countingVerifier{token: testServiceToken}

	var seenByOuter string
	outer := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seenByOuter = GetTeamLeaderID(r.Context())
			next.ServeHTTP(w, r)
		})
	}
	capture := &contextCapture{}
	h := Chain(ServiceAuth(verifier)(capture), Identify(verifier), outer)

	req := httptest.NewRequest(http.MethodGet, "/v1/events", nil)
	req.Header.Set("Authorization", "Bearer "+testServiceToken)
	req.Header.Set(TeamLeaderIDHeader, "tl-7")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "tl-7", seenByOuter)
	require.True(t, capture.called)
	assert.Equal(t, "tl-7", GetTeamLeaderName(capture.ctx))
	assert.Equal(t, 1, verifier.calls, "ServiceAuth reuses the verdict")
}

func TestIdentify_InvalidTokenIsNotIdentified(t *testing.T) {
	t.Parallel()
	verifier := &countingVerifier{token: testServiceToken}

	var seenByOuter string
	outer := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seenByOuter = GetTeamLeaderID(r.Context())
			next.ServeHTTP(w, r)
		})
	}
	capture := &contextCapture{}
	h := Chain(ServiceAuth(verifier)(capture), Identify(verifier), outer)

	req := httptest.NewRequest(http.MethodPost, "/v1/events", nil)
	req.Header.Set("Authorization", "Bearer forged")
	req.Header.Set(TeamLeaderIDHeader, "tl-7")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Empty(t, seenByOuter)
	assert.False(t, capture.called)
	assert.Equal(t, 1, verifier.calls)
}

func TestIdentify_PassesAnonymousRequestsThrough(t *testing.T) {
	t.Parallel()
	capture := &contextCapture{}
	h := Identify(&countingVerifier{token: testServiceToken})(capture)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	require.True(t, capture.called)
	assert.Empty(t, GetTeamLeaderID(capture.ctx))
}
