package handler

import (
	"net/http"
	"strings"

	"github.com/yega-app/yega-api/internal/domain/auth"
)

// Authenticate verifies the bearer token of every request and stores the
// caller identity in the request context.
func Authenticate(tokens TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || strings.TrimSpace(raw) == "" {
				writeError(w, http.StatusUnauthorized, codeUnauthorized, "Missing or invalid authentication token")
				return
			}

			id, err := tokens.ParseAccess(strings.TrimSpace(raw))
			if err != nil {
				writeError(w, http.StatusUnauthorized, codeUnauthorized, "Invalid or expired token")
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), id)))
		})
	}
}

// RequireRole rejects callers whose role is not one of roles. It must run
// after Authenticate.
func RequireRole(roles ...auth.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := auth.FromContext(r.Context())
			if !ok || !id.Role.In(roles...) {
				writeError(w, http.StatusForbidden, codeForbidden, "You do not have permission to access this resource.")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// caller returns the authenticated identity. Routes using it are always
// behind Authenticate.
func caller(r *http.Request) auth.Identity {
	id, _ := auth.FromContext(r.Context())
	return id
}
