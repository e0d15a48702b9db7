package auth

import "context"

// Level is the authentication state of a request.
type Level uint8

const (
	LevelPublic Level = iota
	LevelAuthenticated
)

func (l Level) String() string {
	if l == LevelAuthenticated {
		return "AUTHENTICATED"
	}
	return "PUBLIC"
}

// AuthContext is the per-request outcome of token verification. It is either
// public (no principal) or authenticated with a principal.
type AuthContext struct {
	Level     Level
	principal *Principal
}

// Public returns the anonymous context.
func Public() AuthContext {
	return AuthContext{Level: LevelPublic}
}

// Authenticated returns a context carrying p.
func Authenticated(p Principal) AuthContext {
	return AuthContext{Level: LevelAuthenticated, principal: &p}
}

// Principal returns the resolved principal, if any.
func (c AuthContext) Principal() (Principal, bool) {
	if c.Level != LevelAuthenticated || c.principal == nil {
		return Principal{}, false
	}
	return *c.principal, true
}

func (c AuthContext) IsAuthenticated() bool {
	_, ok := c.Principal()
	return ok
}

type authContextKey struct{}
type tokenContextKey struct{}

// WithAuthContext attaches ac to ctx.
func WithAuthContext(ctx context.Context, ac AuthContext) context.Context {
	return context.WithValue(ctx, authContextKey{}, ac)
}

// FromContext returns the AuthContext attached to ctx. A context that never
// went through authentication is public.
func FromContext(ctx context.Context) AuthContext {
	if ctx == nil {
		return Public()
	}
	ac, ok := ctx.Value(authContextKey{}).(AuthContext)
	if !ok {
		return Public()
	}
	return ac
}

// PrincipalFromContext extracts the authenticated principal from the context.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	return FromContext(ctx).Principal()
}

// ContextWithToken stores the raw bearer token inside the context.
func ContextWithToken(ctx context.Context, token string) context.Context {
	if token == "" {
		return ctx
	}
	return context.WithValue(ctx, tokenContextKey{}, token)
}

// TokenFromContext returns the bearer token if it was previously attached.
func TokenFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	v, ok := ctx.Value(tokenContextKey{}).(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}
