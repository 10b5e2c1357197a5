package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	userutils "micro-crm/backend/users-service/utils"
	"micro-crm/backend/utils"
	"micro-crm/backend/utils/logging"

	"golang.org/x/time/rate"
)

type contextKey string

const claimsKey contextKey = "claims"

type TokenValidator interface {
	ValidateToken(tokenStr string) (*userutils.Claims, error)
}

// ClaimsFrom returns the claims stored by JWTAuthMiddleware.
func ClaimsFrom(ctx context.Context) (*userutils.Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(*userutils.Claims)
	return claims, ok
}

func JWTAuthMiddleware(tokens TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				logging.Logger.Warnf("Event ID: JWT_AUTH_MISSING_HEADER, Description: Authorization header missing for request to %s %s", r.Method, r.URL.Path)
				utils.WriteError(w, r, http.StatusUnauthorized, "Unauthorized", "Authorization header missing")
				return
			}

			tokenStr := strings.TrimPrefix(authHeader, "Bearer ")
			if tokenStr == authHeader {
				logging.Logger.Warnf("Event ID: JWT_AUTH_BEARER_PREFIX_MISSING, Description: Bearer prefix missing for request to %s %s", r.Method, r.URL.Path)
				utils.WriteError(w, r, http.StatusUnauthorized, "Unauthorized", "Bearer token required")
				return
			}

			claims, err := tokens.ValidateToken(tokenStr)
			if err != nil {
				logging.Logger.Warnf("Event ID: JWT_AUTH_INVALID_TOKEN, Description: Invalid token for request to %s %s: %v", r.Method, r.URL.Path, err)
				utils.WriteError(w, r, http.StatusUnauthorized, "Unauthorized", "Invalid token")
				return
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey, claims)))
		})
	}
}

// RateLimiter allows perMinute requests per key with a matching burst.
type RateLimiter struct {
	mu        sync.Mutex
	limiters  map[string]*rate.Limiter
	perMinute int
}

func NewRateLimiter(perMinute int) *RateLimiter {
	if perMinute < 1 {
		perMinute = 1
	}
	return &RateLimiter{limiters: make(map[string]*rate.Limiter), perMinute: perMinute}
}

func (l *RateLimiter) Allow(key string) bool {
	l.mu.Lock()
	limiter, ok := l.limiters[key]
	if !ok {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(l.perMinute)), l.perMinute)
		l.limiters[key] = limiter
	}
	l.mu.Unlock()
	return limiter.Allow()
}

// Limit rejects requests over the limit with 429. keyFn picks the bucket.
func (l *RateLimiter) Limit(keyFn func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := keyFn(r)
			if !l.Allow(key) {
				logging.Logger.Warnf("Event ID: RATE_LIMITED, Description: Too many requests from %s to %s", key, r.URL.Path)
				utils.WriteError(w, r, http.StatusTooManyRequests, "Too Many Requests", "Too Many Requests")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP prefers the first X-Forwarded-For entry set by the gateway.
func ClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		return strings.TrimSpace(strings.Split(forwarded, ",")[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// SubjectOrIP keys authenticated requests by user and the rest by client IP.
func SubjectOrIP(r *http.Request) string {
	if claims, ok := ClaimsFrom(r.Context()); ok {
		return claims.Subject
	}
	return ClientIP(r)
}
