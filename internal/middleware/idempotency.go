package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net"
	"net/http"
	"slices"
	"sync"
	"time"
)

const (
	// IdempotencyKeyHeader names the client-chosen retry key
	IdempotencyKeyHeader = "Idempotency-Key"
	// IdempotencyReplayedHeader marks a response served from the store
	IdempotencyReplayedHeader = "X-Idempotency-Replayed"
)

// IdempotencyStore remembers responses to keyed POST requests so a client
// retrying a pool commit or promotion gets the original outcome instead of
// a second write.
type IdempotencyStore struct {
	mu       sync.Mutex
	entries  map[string]*idempotencyEntry
	ttl      time.Duration
	now      func() time.Time
	stopChan chan struct{}
	stopOnce sync.Once
}

type idempotencyEntry struct {
	status    int
	headers   http.Header
	body      []byte
	expiresAt time.Time
	done      chan struct{} // closed once the first request finishes
}

func (e *idempotencyEntry) inFlight() bool {
	select {
	case <-e.done:
		return false
	default:
		return true
	}
}

// IdempotencyConfig holds configuration for idempotency middleware
type IdempotencyConfig struct {
	TTL     time.Duration    // How long to keep results (default 24h)
	Cleanup time.Duration    // Cleanup interval (default 1h)
	Clock   func() time.Time // Optional, defaults to time.Now
}

// NewIdempotencyStore creates a store and starts its cleanup loop
func NewIdempotencyStore(cfg IdempotencyConfig) *IdempotencyStore {
	if cfg.TTL <= 0 {
		cfg.TTL = 24 * time.Hour
	}
	if cfg.Cleanup <= 0 {
		cfg.Cleanup = time.Hour
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}

	store := &IdempotencyStore{
		entries:  make(map[string]*idempotencyEntry),
		ttl:      cfg.TTL,
		now:      cfg.Clock,
		stopChan: make(chan struct{}),
	}
	go store.cleanupLoop(cfg.Cleanup)
	return store
}

// Stop stops the cleanup goroutine. Safe to call more than once.
func (s *IdempotencyStore) Stop() {
	s.stopOnce.Do(func() { close(s.stopChan) })
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

	now := s.now()
	for key, entry := range s.entries {
		if !entry.inFlight() && entry.expiresAt.Before(now) {
			delete(s.entries, key)
		}
	}
}

// claim returns the entry for key. owner is true when the caller must run
// the request and then call finish or abandon.
func (s *IdempotencyStore) claim(key string) (entry *idempotencyEntry, owner bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.entries[key]; ok && (e.inFlight() || e.expiresAt.After(s.now())) {
		return e, false
	}
	e := &idempotencyEntry{done: make(chan struct{})}
	s.entries[key] = e
	return e, true
}

func (s *IdempotencyStore) finish(entry *idempotencyEntry, rec *capturingWriter) {
	s.mu.Lock()
	entry.status = rec.status
	entry.headers = rec.Header().Clone()
	entry.body = bytes.Clone(rec.body.Bytes())
	entry.expiresAt = s.now().Add(s.ttl)
	s.mu.Unlock()
	close(entry.done)
}

// abandon drops an entry whose request failed on the server side so that a
// retry runs again.
func (s *IdempotencyStore) abandon(key string, entry *idempotencyEntry) {
	s.mu.Lock()
	if s.entries[key] == entry {
		delete(s.entries, key)
	}
	s.mu.Unlock()
	close(entry.done)
}

// requestKey fingerprints the client, its key and the exact request
func requestKey(client, idempotencyKey, method, path string, body []byte) string {
	h := sha256.New()
	for _, part := range []string{client, idempotencyKey, method, path} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

// clientHost strips the port so retries over a new connection match
func clientHost(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}

// capturingWriter tees the response so it can be stored
type capturingWriter struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (w *capturingWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (w *capturingWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

// Idempotency replays stored responses for POST requests that repeat an
// Idempotency-Key. Concurrent duplicates wait for the first to finish.
// 5xx responses are not stored.
func Idempotency(store *IdempotencyStore) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			idempotencyKey := r.Header.Get(IdempotencyKeyHeader)
			if r.Method != http.MethodPost || idempotencyKey == "" {
				next.ServeHTTP(w, r)
				return
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			key := requestKey(clientHost(r.RemoteAddr), idempotencyKey, r.Method, r.URL.Path, body)

			for {
				entry, owner := store.claim(key)
				if owner {
					serveOwner(store, key, entry, next, w, r)
					return
				}

				select {
				case <-entry.done:
				case <-r.Context().Done():
					return
				}
				// an abandoned entry is gone; claim again
				if entry.status != 0 {
					replay(w, entry)
					return
				}
			}
		})
	}
}

func serveOwner(store *IdempotencyStore, key string, entry *idempotencyEntry, next http.Handler, w http.ResponseWriter, r *http.Request) {
	rec := &capturingWriter{ResponseWriter: w, status: http.StatusOK}
	completed := false
	defer func() {
		// release waiters if the handler panicked
		if !completed {
			store.abandon(key, entry)
		}
	}()

	next.ServeHTTP(rec, r)
	completed = true
	if rec.status >= http.StatusInternalServerError {
		store.abandon(key, entry)
		return
	}
	store.finish(entry, rec)
}

func replay(w http.ResponseWriter, entry *idempotencyEntry) {
	for k, v := range entry.headers {
		if k == RequestIDHeader {
			continue
		}
		w.Header()[k] = slices.Clone(v)
	}
	w.Header().Set(IdempotencyReplayedHeader, "true")
	w.WriteHeader(entry.status)
	_, _ = w.Write(entry.body)
}
