package identity

import (
	"context"
	"slices"
)

// Principal is the resolved, authenticated actor for the duration of one
// request. It is built fresh from a verified credential plus the profile
// record and is never persisted.
type Principal struct {
	ID            string
	Email         string
	DisplayName   string
	Roles         []string
	CustomClaims  map[string]any
	Active        bool
	EmailVerified bool
}

// HasRole reports whether the principal holds the given role.
func (p *Principal) HasRole(role string) bool {
	return slices.Contains(p.Roles, role)
}

// Claim returns the named custom claim and whether it is present.
func (p *Principal) Claim(name string) (any, bool) {
	v, ok := p.CustomClaims[name]
	return v, ok
}

type contextKey int

const principalContextKey contextKey = iota

// WithPrincipal returns a context carrying the resolved principal.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalContextKey, p)
}

// PrincipalFromContext extracts the resolved principal from the request
// context. Returns nil for unauthenticated requests.
func PrincipalFromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalContextKey).(*Principal)
	return p
}
