package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/psipractice/booking-api/pkg/logging"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestTokenBucket_EnforcesBurst(t *testing.T) {
	limiter := NewTokenBucketLimiter(0.0001, 2)
	handler := RateLimit(limiter)(okHandler())

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/contact", nil)
		req.Header.Set("X-Real-Ip", "10.0.0.1")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("request %d: expected status %d, got %d", i, http.StatusOK, w.Code)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/contact", nil)
	req.Header.Set("X-Real-Ip", "10.0.0.1")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusTooManyRequests {
		t.Errorf("expected status %d, got %d", http.StatusTooManyRequests, w.Code)
	}
}

func TestTokenBucket_IsolatesClients(t *testing.T) {
	limiter := NewTokenBucketLimiter(0.0001, 1)
	handler := RateLimit(limiter)(okHandler())

	first := httptest.NewRequest(http.MethodGet, "/contact", nil)
	first.Header.Set("X-Real-Ip", "10.0.0.1")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, first)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}

	other := httptest.NewRequest(http.MethodGet, "/contact", nil)
	other.Header.Set("X-Real-Ip", "10.0.0.2")
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, other)
	if w.Code != http.StatusOK {
		t.Errorf("expected a different client to have its own bucket, got %d", w.Code)
	}
}

func TestRedisLimiter_FixedWindow(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	limiter := NewRedisLimiter(client, 3, time.Minute, logging.Default())

	for i := 0; i < 3; i++ {
		if !limiter.Allow(t.Context(), "10.0.0.1") {
			t.Fatalf("request %d: expected to be allowed", i)
		}
	}
	if limiter.Allow(t.Context(), "10.0.0.1") {
		t.Error("expected the fourth request in the window to be rejected")
	}
	if !limiter.Allow(t.Context(), "10.0.0.2") {
		t.Error("expected a different key to have its own window")
	}
}

func TestRedisLimiter_FailsOpenWhenRedisDown(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	limiter := NewRedisLimiter(client, 1, time.Minute, logging.Default())
	mr.Close()

	if !limiter.Allow(t.Context(), "10.0.0.1") {
		t.Error("expected the limiter to fail open when redis is unreachable")
	}
}
