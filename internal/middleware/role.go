package middleware

import (
	"net/http"
	"slices"

	"github.com/wisedom/wisedom/internal/apperr"
	"github.com/wisedom/wisedom/internal/auth"
	"github.com/wisedom/wisedom/internal/model"
)

// RequireRole allows the request when the caller has any of roles.
// Admins pass every check. Must be applied after Auth.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ac := auth.AuthFromContext(r.Context())
			if ac == nil {
				WriteError(w, apperr.Unauthorized(unauthorizedMessage))
				return
			}

			if ac.Role == model.RoleAdmin || slices.Contains(roles, ac.Role) {
				next.ServeHTTP(w, r)
				return
			}

			WriteError(w, apperr.Forbidden("Insufficient permissions"))
		})
	}
}
