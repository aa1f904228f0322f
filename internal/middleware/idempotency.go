package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"sync"
	"time"
)

const idempotencyKeyHeader = "Idempotency-Key"

// IdempotencyStore stores idempotency key results
type IdempotencyStore struct {
	mu       sync.RWMutex
	entries  map[string]*idempotencyEntry
	ttl      time.Duration
	stopChan chan struct{}
}

type idempotencyEntry struct {
	status    int
	headers   http.Header
	body      []byte
	expiresAt time.Time
	inFlight  bool
	done      chan struct{}
}

// IdempotencyConfig holds configuration for idempotency middleware
type IdempotencyConfig struct {
	TTL     time.Duration // How long to keep idempotency results (default 24h)
	Cleanup time.Duration // Cleanup interval (default 1h)
}

// NewIdempotencyStore creates a new idempotency store
func NewIdempotencyStore(cfg IdempotencyConfig) *IdempotencyStore {
	if cfg.TTL == 0 {
		cfg.TTL = 24 * time.Hour
	}
	if cfg.Cleanup == 0 {
		cfg.Cleanup = time.Hour
	}

	store := &IdempotencyStore{
		entries:  make(map[string]*idempotencyEntry),
		ttl:      cfg.TTL,
		stopChan: make(chan struct{}),
	}

	go store.cleanupLoop(cfg.Cleanup)

	return store
}

// Stop stops the cleanup goroutine
func (s *IdempotencyStore) Stop() {
	close(s.stopChan)
}

func (s *IdempotencyStore) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.cleanup()
		case <-s.stopChan:
			return
		}
	}
}

func (s *IdempotencyStore) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for key, entry := range s.entries {
		if entry.expiresAt.Before(now) && !entry.inFlight {
			delete(s.entries, key)
		}
	}
}

// generateKey creates a unique key from caller, idempotency key, and request fingerprint
func generateKey(caller, idempotencyKey, method, path string, body []byte) string {
	h := sha256.New()
	h.Write([]byte(caller))
	h.Write([]byte(idempotencyKey))
	h.Write([]byte(method))
	h.Write([]byte(path))
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

// idempotencyResponseWriter captures the response for caching
type idempotencyResponseWriter struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (w *idempotencyResponseWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (w *idempotencyResponseWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

// replay writes a cached response
func (e *idempotencyEntry) replay(w http.ResponseWriter) {
	for k, v := range e.headers {
		for _, val := range v {
			w.Header().Add(k, val)
		}
	}
	w.Header().Set("X-Idempotency-Replayed", "true")
	w.WriteHeader(e.status)
	_, _ = w.Write(e.body)
}

// Idempotency returns middleware that replays the stored response for a
// repeated Idempotency-Key on POST and PATCH. Server errors are not stored
// so the client can retry them.
func Idempotency(store *IdempotencyStore) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost && r.Method != http.MethodPatch {
				next.ServeHTTP(w, r)
				return
			}

			idempotencyKey := r.Header.Get(idempotencyKeyHeader)
			if idempotencyKey == "" {
				next.ServeHTTP(w, r)
				return
			}

			caller := GetTeamLeaderID(r.Context())
			if caller == "" {
				caller = r.RemoteAddr
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			key := generateKey(caller, idempotencyKey, r.Method, r.URL.Path, body)

			store.mu.Lock()
			entry, exists := store.entries[key]
			if exists {
				if entry.inFlight {
					store.mu.Unlock()
					<-entry.done

					store.mu.RLock()
					entry = store.entries[key]
					store.mu.RUnlock()

					if entry != nil && !entry.inFlight {
						entry.replay(w)
						return
					}
					// the first attempt failed; run this one normally
					next.ServeHTTP(w, r)
					return
				}
				if entry.expiresAt.After(time.Now()) {
					store.mu.Unlock()
					entry.replay(w)
					return
				}
			}

			entry = &idempotencyEntry{
				inFlight: true,
				done:     make(chan struct{}),
			}
			store.entries[key] = entry
			store.mu.Unlock()

			irw := &idempotencyResponseWriter{
				ResponseWriter: w,
				status:         http.StatusOK,
			}

			// A panic or 5xx leaves nothing cached so the retry runs again.
			// Waiters are released either way; the panic keeps unwinding.
			completed := false
			defer func() {
				store.mu.Lock()
				if !completed || irw.status >= http.StatusInternalServerError {
					delete(store.entries, key)
				} else {
					entry.status = irw.status
					entry.headers = irw.Header().Clone()
					entry.body = irw.body.Bytes()
					entry.expiresAt = time.Now().Add(store.ttl)
					entry.inFlight = false
				}
				close(entry.done)
				store.mu.Unlock()
			}()

			next.ServeHTTP(irw, r)
			completed = true
		})
	}
}
