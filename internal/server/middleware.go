package server

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/Raman-Maurya/mystartup-sub001/internal/observability"
)

type ctxKey int

const userIDKey ctxKey = iota

// userIDFrom extracts the authenticated user from the request context.
func userIDFrom(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(userIDKey).(uuid.UUID)
	return id, ok
}

// requireUser authenticates via the X-User-ID header set by the edge
// gateway. Requests without a valid UUID are rejected before reaching
// any handler.
func requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := r.Header.Get("X-User-ID")
		if raw == "" {
			writeError(w, "missing X-User-ID header", http.StatusUnauthorized)
			return
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			writeError(w, "invalid X-User-ID header", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userIDKey, id)))
	})
}

// userLimiter rate-limits per authenticated user. Entries idle past the
// TTL are dropped by a background janitor so the map cannot grow
// unboundedly with one-shot users.
type userLimiter struct {
	mu       sync.Mutex
	limiters map[uuid.UUID]*limiterEntry
	limit    rate.Limit
	burst    int
	metrics  *observability.Metrics
	stop     chan struct{}
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newUserLimiter(rps float64, burst int, metrics *observability.Metrics) *userLimiter {
	ul := &userLimiter{
		limiters: make(map[uuid.UUID]*limiterEntry),
		limit:    rate.Limit(rps),
		burst:    burst,
		metrics:  metrics,
		stop:     make(chan struct{}),
	}
	go ul.janitor()
	return ul
}

// close terminates the janitor goroutine. Safe to call once.
func (ul *userLimiter) close() {
	close(ul.stop)
}

func (ul *userLimiter) allow(userID uuid.UUID) bool {
	ul.mu.Lock()
	entry, ok := ul.limiters[userID]
	if !ok {
		entry = &limiterEntry{limiter: rate.NewLimiter(ul.limit, ul.burst)}
		ul.limiters[userID] = entry
	}
	entry.lastSeen = time.Now()
	ul.mu.Unlock()

	return entry.limiter.Allow()
}

func (ul *userLimiter) janitor() {
	const ttl = 10 * time.Minute
	ticker := time.NewTicker(ttl)
	defer ticker.Stop()

	for {
		select {
		case <-ul.stop:
			return
		case <-ticker.C:
			ul.mu.Lock()
			for id, entry := range ul.limiters {
				if time.Since(entry.lastSeen) > ttl {
					delete(ul.limiters, id)
				}
			}
			ul.mu.Unlock()
		}
	}
}

func (ul *userLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := userIDFrom(r.Context())
		if ok && !ul.allow(userID) {
			ul.metrics.RateLimited.Inc()
			writeError(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// instrument records request counts and latency per route pattern.
func instrument(metrics *observability.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			route := chi.RouteContext(r.Context()).RoutePattern()
			if route == "" {
				route = "unmatched"
			}
			metrics.HTTPRequests.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
			metrics.HTTPDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
