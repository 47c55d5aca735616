package graph

import "context"

// AuthUser identifies the authenticated principal.
type AuthUser struct {
	ID uint64
}

// AuthContext is the per-request principal resolution: a nil User means the
// request is anonymous. The middleware builds one value per request before
// the executor runs and it is never mutated afterwards.
type AuthContext struct {
	User *AuthUser
}

type authCtxKey struct{}

// WithAuthContext attaches a resolved AuthContext to a request context.
func WithAuthContext(ctx context.Context, ac AuthContext) context.Context {
	return context.WithValue(ctx, authCtxKey{}, ac)
}

// AuthFromContext returns the resolved AuthContext. A context that never
// went through resolution counts as anonymous.
func AuthFromContext(ctx context.Context) AuthContext {
	if ac, ok := ctx.Value(authCtxKey{}).(AuthContext); ok {
		return ac
	}
	return AuthContext{}
}

// Authenticated guards operations that require a logged-in user.
func Authenticated(ctx context.Context) (AuthContext, error) {
	ac := AuthFromContext(ctx)
	if ac.User == nil {
		return ac, NewForbiddenError("must_be_logged_in")
	}
	return ac, nil
}
