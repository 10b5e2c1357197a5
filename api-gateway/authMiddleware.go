package main

import (
	"net/http"
	"strings"

	gatewayutils "micro-crm/api-gateway/utils"
	"micro-crm/backend/utils"
	"micro-crm/backend/utils/logging"
)

var publicRoutes = map[string]bool{
	"/api/auth/register": true,
	"/api/auth/login":    true,
	"/health":            true,
}

// authMiddleware drops any client supplied identity header, then injects the
// token subject as X-User-ID for every non-public route.
func authMiddleware(next http.Handler, secret []byte) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Header.Del(utils.UserIDHeader)

		if r.Method == http.MethodOptions || publicRoutes[strings.TrimRight(r.URL.Path, "/")] {
			next.ServeHTTP(w, r)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			utils.WriteError(w, r, http.StatusUnauthorized, "Unauthorized", "Missing Authorization header")
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		claims, err := gatewayutils.ValidateToken(secret, tokenString)
		if err != nil {
			logging.Logger.Warnf("Event ID: GATEWAY_INVALID_TOKEN, Description: %s %s: %v", r.Method, r.URL.Path, err)
			utils.WriteError(w, r, http.StatusUnauthorized, "Unauthorized", "Invalid or expired credentials")
			return
		}

		r.Header.Set(utils.UserIDHeader, claims.Subject)
		next.ServeHTTP(w, r)
	})
}
