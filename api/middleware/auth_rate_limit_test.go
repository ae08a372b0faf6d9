package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	pkgerrors "github.com/dvellmar/storeratings-backend/pkg/errors"
)

type fakeRateStore struct {
	mu     sync.Mutex
	counts map[string]int64
}

func newFakeRateStore() *fakeRateStore {
	return &fakeRateStore{counts: map[string]int64{}}
}

func (s *fakeRateStore) IncrWithTTL(_ context.Context, key string, _ time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counts[key]++
	return s.counts[key], nil
}

func TestAuthRateLimitAllowsUnderLimit(t *testing.T) {
	store := newFakeRateStore()
	policy := NewAuthRateLimitPolicy("login", time.Minute, 2, 2)
	handler := AuthRateLimit(policy, store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{"email":"tester@example.com","password":"secret"}`))
	req.RemoteAddr = "1.2.3.4:5678"
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestAuthRateLimitEmailLimitTriggers(t *testing.T) {
	store := newFakeRateStore()
	policy := NewAuthRateLimitPolicy("login", time.Minute, 0, 2)
	handler := AuthRateLimit(policy, store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{"email":"blocked@example.com","password":"secret"}`))
		req.RemoteAddr = "1.2.3.4:5678"
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		if i < 2 {
			if rec.Code != http.StatusOK {
				t.Fatalf("expected success before limit, got %d", rec.Code)
			}
			continue
		}
		if rec.Code != http.StatusTooManyRequests {
			t.Fatalf("expected 429, got %d", rec.Code)
		}
		var payload struct {
			Error struct {
				Code string `json:"code"`
			} `json:"error"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
			t.Fatalf("decode error: %v", err)
		}
		if payload.Error.Code != string(pkgerrors.CodeRateLimit) {
			t.Fatalf("unexpected code: %s", payload.Error.Code)
		}
	}
}

func TestAuthRateLimitIPLimitTriggers(t *testing.T) {
	store := newFakeRateStore()
	policy := NewAuthRateLimitPolicy("register", time.Minute, 1, 0)
	handler := AuthRateLimit(policy, store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", strings.NewReader(`{}`))
		req.RemoteAddr = "5.6.7.8:443"
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		if i == 0 && rec.Code != http.StatusOK {
			t.Fatalf("first attempt should pass, got %d", rec.Code)
		}
		if i == 1 && rec.Code != http.StatusTooManyRequests {
			t.Fatalf("second attempt should be limited, got %d", rec.Code)
		}
	}
}

func TestAuthRateLimitDisabledPolicyPassesThrough(t *testing.T) {
	policy := NewAuthRateLimitPolicy("login", 0, 0, 0)
	handler := AuthRateLimit(policy, newFakeRateStore(), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
