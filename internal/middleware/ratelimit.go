package middleware

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/forgo/raidplan/api/internal/model"
)

// Rate limit scopes. Identified team leaders each get their own bucket; all
// other traffic is bucketed by client host.
const (
	scopeLeader = "leader"
	scopeAddr   = "addr"
)

// RateLimiter implements token bucket rate limiting with continuous refill
type RateLimiter struct {
	mu       sync.Mutex
	buckets  map[string]*bucket
	limits   map[string]limit // scope -> limit
	window   time.Duration
	cleanup  time.Duration
	now      func() time.Time
	stopChan chan struct{}
	stopOnce sync.Once
}

type limit struct {
	rate     int     // requests per window
	capacity float64 // rate + burst
}

type bucket struct {
	tokens   float64
	capacity float64
	updated  time.Time
}

// Decision is the outcome of one Allow call
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// RateLimitConfig holds rate limiter configuration
type RateLimitConfig struct {
	Rate          int           // Requests per window per team leader (default 100)
	AnonymousRate int           // Requests per window per client host (default Rate)
	Window        time.Duration // Time window (default 1 minute)
	Burst         int           // Extra requests allowed on top of Rate (default 20)
	Cleanup       time.Duration // Cleanup interval (default 5 minutes)
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	if cfg.Rate <= 0 {
		cfg.Rate = 100
	}
	if cfg.AnonymousRate <= 0 {
		cfg.AnonymousRate = cfg.Rate
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	if cfg.Burst < 0 {
		cfg.Burst = 0
	} else if cfg.Burst == 0 {
		cfg.Burst = 20
	}
	if cfg.Cleanup <= 0 {
		cfg.Cleanup = 5 * time.Minute
	}

	rl := &RateLimiter{
		buckets: make(map[string]*bucket),
		limits: map[string]limit{
			scopeLeader: {rate: cfg.Rate, capacity: float64(cfg.Rate + cfg.Burst)},
			scopeAddr:   {rate: cfg.AnonymousRate, capacity: float64(cfg.AnonymousRate + cfg.Burst)},
		},
		window:   cfg.Window,
		cleanup:  cfg.Cleanup,
		now:      time.Now,
		stopChan: make(chan struct{}),
	}

	go rl.cleanupLoop()

	return rl
}

// Stop stops the cleanup goroutine. Calling it twice is harmless.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stopChan) })
}

func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.cleanup)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanupExpired()
		case <-rl.stopChan:
			return
		}
	}
}

// cleanupExpired drops buckets idle long enough to have refilled completely
func (rl *RateLimiter) cleanupExpired() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-rl.window * 2)
	for key, b := range rl.buckets {
		if b.updated.Before(cutoff) {
			delete(rl.buckets, key)
		}
	}
}

// Allow takes one token from the bucket for key. Keys are "<scope>:<id>";
// unknown scopes use the anonymous limit.
func (rl *RateLimiter) Allow(key string) Decision {
	lim, ok := rl.limits[scopeOf(key)]
	if !ok {
		lim = rl.limits[scopeAddr]
	}
	perToken := rl.window / time.Duration(lim.rate)

	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	b, exists := rl.buckets[key]
	if !exists {
		b = &bucket{tokens: lim.capacity, capacity: lim.capacity, updated: now}
		rl.buckets[key] = b
	} else if elapsed := now.Sub(b.updated); elapsed > 0 {
		b.tokens = math.Min(b.capacity, b.tokens+float64(elapsed)/float64(perToken))
		b.updated = now
	}

	d := Decision{Limit: lim.rate}
	if b.tokens >= 1 {
		b.tokens--
		d.Allowed = true
	}
	d.Remaining = int(b.tokens)
	// ResetAt is when the next whole token is available
	d.ResetAt = now
	if b.tokens < 1 {
		d.ResetAt = now.Add(time.Duration((1 - b.tokens) * float64(perToken)))
	}
	return d
}

func scopeOf(key string) string {
	scope, _, _ := strings.Cut(key, ":")
	return scope
}

// rateLimitKey buckets by team leader when Identify named one, otherwise by client host
func rateLimitKey(r *http.Request) string {
	if leaderID := GetTeamLeaderID(r.Context()); leaderID != "" {
		return scopeLeader + ":" + leaderID
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return scopeAddr + ":" + host
}

// RateLimit returns a middleware that applies rate limiting. It must run
// after Identify to key on the team leader.
func RateLimit(limiter *RateLimiter) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d := limiter.Allow(rateLimitKey(r))

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(d.ResetAt.Unix(), 10))

			if !d.Allowed {
				retryAfter := int(math.Ceil(d.ResetAt.Sub(limiter.now()).Seconds()))
				if retryAfter < 1 {
					retryAfter = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))

				model.NewRateLimitError(retryAfter).WriteJSON(w)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
