package httpx

import (
	"net/http"
	"slices"
	"strings"
)

// RequireRole the caller must hold one of the listed roles. Must run after
// AuthnMiddleware.
func RequireRole(roles ...string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if slices.Contains(roles, roleFromCtx(r.Context())) {
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("WWW-Authenticate",
				`Bearer error="insufficient_scope", error_description="requires role `+strings.Join(roles, " or ")+`"`)
			WriteError(w, http.StatusForbidden, ErrorCodeAccessDenied, "insufficient role")
		})
	}
}
