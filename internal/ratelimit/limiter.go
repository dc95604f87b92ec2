// Package ratelimit implements an in-memory fixed-window rate limiter keyed
// by (scope, client). It is intentionally single-process: deployments that
// need multi-instance limiting should put a shared store in front.
package ratelimit

import (
	"context"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Config describes one limiting policy.
type Config struct {
	MaxRequests int           // max requests per window
	Window      time.Duration // window size
}

// Preset policies. Scope name plus client identifier form the counting key,
// so the same client has an independent budget per scope.
var (
	// Standard bounds ordinary reads.
	Standard = Config{MaxRequests: 60, Window: time.Minute}
	// AI bounds AI-backed writes, which are expensive.
	AI = Config{MaxRequests: 10, Window: time.Minute}
	// Public bounds unauthenticated public API reads.
	Public = Config{MaxRequests: 30, Window: time.Minute}
	// Create bounds plain create operations.
	Create = Config{MaxRequests: 20, Window: time.Minute}
	// Query bounds conversational queries.
	Query = Config{MaxRequests: 30, Window: time.Minute}
)

// Result reports the outcome of one Check.
type Result struct {
	Allowed    bool
	Remaining  int
	ResetAt    time.Time
	RetryAfter int // seconds until the window resets; set only when rejected
}

type record struct {
	count   int
	resetAt time.Time
}

// Limiter owns its record table exclusively. The zero value is not usable;
// construct with New or NewWithClock.
type Limiter struct {
	mu      sync.Mutex
	records map[string]*record
	now     func() time.Time
}

// New creates a limiter using the wall clock.
func New() *Limiter {
	return NewWithClock(time.Now)
}

// NewWithClock creates a limiter with an injectable clock so window-expiry
// tests can be deterministic rather than sleep-based.
func NewWithClock(now func() time.Time) *Limiter {
	return &Limiter{
		records: make(map[string]*record),
		now:     now,
	}
}

// Check records one request for (scope, clientID) and reports whether it is
// within budget. The increment-and-compare runs under the table lock so
// concurrent requests for the same key cannot both claim the last slot.
func (l *Limiter) Check(scope, clientID string, cfg Config) Result {
	key := scope + ":" + clientID
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	rec, ok := l.records[key]
	if !ok || rec.resetAt.Before(now) {
		// First request for this key, or the previous window has passed:
		// expired records behave as absent whether or not swept.
		resetAt := now.Add(cfg.Window)
		l.records[key] = &record{count: 1, resetAt: resetAt}
		return Result{Allowed: true, Remaining: cfg.MaxRequests - 1, ResetAt: resetAt}
	}

	rec.count++

	if rec.count > cfg.MaxRequests {
		retryAfter := int(math.Ceil(rec.resetAt.Sub(now).Seconds()))
		return Result{Allowed: false, Remaining: 0, ResetAt: rec.resetAt, RetryAfter: retryAfter}
	}

	return Result{Allowed: true, Remaining: cfg.MaxRequests - rec.count, ResetAt: rec.resetAt}
}

// Sweep periodically removes expired records until ctx is cancelled. It is
// purely a memory-reclamation pass; correctness never depends on its timing.
func (l *Limiter) Sweep(ctx context.Context, interval time.Duration, logger *slog.Logger) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := l.removeExpired(); removed > 0 && logger != nil {
				logger.Debug("ratelimit: swept expired records", slog.Int("removed", removed))
			}
		}
	}
}

func (l *Limiter) removeExpired() int {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for key, rec := range l.records {
		if rec.resetAt.Before(now) {
			delete(l.records, key)
			removed++
		}
	}
	return removed
}

// size returns the number of tracked keys. Test helper.
func (l *Limiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}

// ClientIP extracts the client identifier from proxy headers: the first
// X-Forwarded-For entry, then X-Real-IP, then a loopback fallback. The
// ordering reflects trust in proxy-supplied headers and must be preserved
// for deployments behind a reverse proxy.
func ClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		return strings.TrimSpace(strings.Split(forwarded, ",")[0])
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}
	return "127.0.0.1"
}

// SetHeaders writes the X-RateLimit-* response headers, plus Retry-After
// when the request was rejected.
func SetHeaders(h http.Header, res Result) {
	h.Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(int64(math.Ceil(float64(res.ResetAt.UnixMilli())/1000)), 10))
	if !res.Allowed {
		h.Set("Retry-After", strconv.Itoa(res.RetryAfter))
	}
}
