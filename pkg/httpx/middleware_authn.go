package httpx

import (
	"context"
	"net/http"
	"strings"

	"github.com/aussiebroadwan/agentauth/pkg/slogx"
)

// BearerVerifier resolves a bearer token to the caller it was issued to.
type BearerVerifier interface {
	VerifyBearer(ctx context.Context, token string) (Principal, bool)
}

// BearerVerifierFunc adapts a function to BearerVerifier.
type BearerVerifierFunc func(ctx context.Context, token string) (Principal, bool)

func (f BearerVerifierFunc) VerifyBearer(ctx context.Context, token string) (Principal, bool) {
	return f(ctx, token)
}

// BearerToken extracts the token from an "Authorization: Bearer" header.
func BearerToken(r *http.Request) (string, bool) {
	authz := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(authz, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// AuthnMiddleware rejects requests without a bearer token v accepts and
// stores the resolved Principal on the request context.
func AuthnMiddleware(v BearerVerifier) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			raw, ok := BearerToken(r)
			if !ok {
				writeBearerError(w, "missing bearer token")
				return
			}

			p, ok := v.VerifyBearer(ctx, raw)
			if !ok {
				log.Warn("bearer token rejected")
				writeBearerError(w, "invalid or expired token")
				return
			}

			ctx = WithPrincipal(ctx, p, raw)
			ctx = slogx.WithContext(ctx, log.With("user_id", p.ID))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RFC 6750-compliant error response for bearer auth.
func writeBearerError(w http.ResponseWriter, desc string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token", error_description="`+desc+`"`)
	WriteError(w, http.StatusUnauthorized, ErrorCodeInvalidToken, desc)
}
