package httpx

import "context"

type ctxKey string

const (
	CtxKeyUserID    ctxKey = "user_id"
	CtxKeyRole      ctxKey = "role"
	CtxKeyPrincipal ctxKey = "principal"
	CtxKeyToken     ctxKey = "token"
)

// Principal is the authenticated caller as seen by the HTTP layer.
type Principal struct {
	ID       string
	Fullname string
	Email    string
	Role     string
}

// WithPrincipal stores p and the raw bearer token on ctx.
func WithPrincipal(ctx context.Context, p Principal, token string) context.Context {
	ctx = context.WithValue(ctx, CtxKeyUserID, p.ID)
	ctx = context.WithValue(ctx, CtxKeyRole, p.Role)
	ctx = context.WithValue(ctx, CtxKeyPrincipal, p)
	ctx = context.WithValue(ctx, CtxKeyToken, token)
	return ctx
}

// PrincipalFromContext returns the caller set by AuthnMiddleware.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(CtxKeyPrincipal).(Principal)
	return p, ok
}

// UserIDFromContext returns the authenticated user ID, or "".
func UserIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(CtxKeyUserID).(string)
	return id
}

// TokenFromContext returns the bearer token the request was authenticated
// with, or "".
func TokenFromContext(ctx context.Context) string {
	tok, _ := ctx.Value(CtxKeyToken).(string)
	return tok
}

func roleFromCtx(ctx context.Context) string {
	role, _ := ctx.Value(CtxKeyRole).(string)
	return role
}
