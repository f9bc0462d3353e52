package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLimiter struct {
	allow bool
	err   error
	keys  []string
}

func (f *fakeLimiter) Allow(_ context.Context, key string, limit int, window time.Duration) (bool, error) {
	f.keys = append(f.keys, key)
	return f.allow, f.err
}

func limitedHandler(l *fakeLimiter, window time.Duration) http.Handler {
	return RateLimit(l, "orders", 10, window)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
}

func TestRateLimitDeniesWithRetryAfter(t *testing.T) {
	l := &fakeLimiter{allow: false}
	h := limitedHandler(l, time.Minute)

	req := httptest.NewRequest(http.MethodPost, "/api/orders", nil)
	req.RemoteAddr = "10.1.2.3:55000"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), "rate limit exceeded")
}

func TestRateLimitScopesKeyByClientIP(t *testing.T) {
	l := &fakeLimiter{allow: true}
	h := limitedHandler(l, time.Minute)

	req := httptest.NewRequest(http.MethodPost, "/api/orders", nil)
	req.RemoteAddr = "10.1.2.3:55000"
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, l.keys, 1)
	assert.Equal(t, "ratelimit:orders:203.0.113.9", l.keys[0])
}

func TestRateLimitFailsOpenOnLimiterError(t *testing.T) {
	l := &fakeLimiter{err: errors.New("redis: connection refused")}
	h := limitedHandler(l, time.Minute)

	req := httptest.NewRequest(http.MethodPost, "/api/orders", nil)
	req.RemoteAddr = "10.1.2.3:55000"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}
