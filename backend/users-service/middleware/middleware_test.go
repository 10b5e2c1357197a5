package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	userutils "micro-crm/backend/users-service/utils"
)

func TestRateLimiterPerKey(t *testing.T) {
	limiter := NewRateLimiter(5)
	for i := 0; i < 5; i++ {
		if !limiter.Allow("10.0.0.1") {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if limiter.Allow("10.0.0.1") {
		t.Fatalf("sixth request within a minute should be rejected")
	}
	if !limiter.Allow("10.0.0.2") {
		t.Fatalf("other clients keep their own budget")
	}
}

func TestLimitRespondsTooManyRequests(t *testing.T) {
	limiter := NewRateLimiter(1)
	handler := limiter.Limit(ClientIP)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	codes := []int{}
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
		req.RemoteAddr = "192.168.1.9:5555"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusTooManyRequests {
		t.Fatalf("unexpected status codes %v", codes)
	}
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "172.16.0.4:1234"
	if got := ClientIP(req); got != "172.16.0.4" {
		t.Errorf("got %q", got)
	}
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 172.16.0.4")
	if got := ClientIP(req); got != "203.0.113.7" {
		t.Errorf("got %q", got)
	}
}

func TestJWTAuthMiddleware(t *testing.T) {
	tokens := userutils.NewTokenManager("test-secret", time.Hour)
	valid, err := tokens.GenerateToken("u1", "ana@example.com")
	if err != nil {
		t.Fatal(err)
	}

	var seen string
	handler := JWTAuthMiddleware(tokens)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, _ := ClaimsFrom(r.Context())
		seen = claims.Subject
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"no bearer prefix", valid, http.StatusUnauthorized},
		{"garbage token", "Bearer abc.def.ghi", http.StatusUnauthorized},
		{"valid token", "Bearer " + valid, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, rec.Code)
			}
		})
	}
	if seen != "u1" {
		t.Errorf("claims not propagated, got subject %q", seen)
	}
}
