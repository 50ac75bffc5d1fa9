package server

import (
	"context"
	"net/http"

	"connectrpc.com/authn"

	"github.com/authgate/authgate/internal/identity"
)

type authContextKey int

const authErrContextKey authContextKey = iota

// authenticate resolves the bearer credential, if any, and attaches the
// principal to the request context. Resolution failures are remembered but
// not fatal here: endpoints that serve anonymous callers proceed without a
// principal, while requirePrincipal surfaces the stored failure on strict
// endpoints. This mirrors the strict/optional resolver split.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := authn.BearerToken(r)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		ctx := r.Context()

		principal, err := s.resolver.Resolve(ctx, token)
		if err != nil {
			ctx = context.WithValue(ctx, authErrContextKey, err)
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		next.ServeHTTP(w, r.WithContext(identity.WithPrincipal(ctx, principal)))
	})
}

// authErrFromContext returns the resolution failure stored by authenticate,
// if any.
func authErrFromContext(ctx context.Context) error {
	err, _ := ctx.Value(authErrContextKey).(error)
	return err
}

// requirePrincipal returns the resolved principal or writes the appropriate
// authentication failure response and returns nil.
func (s *Server) requirePrincipal(w http.ResponseWriter, r *http.Request) *identity.Principal {
	if principal := identity.PrincipalFromContext(r.Context()); principal != nil {
		return principal
	}

	if err := authErrFromContext(r.Context()); err != nil {
		respondAuthError(w, err)
		return nil
	}

	respondError(w, http.StatusUnauthorized, "authentication required")
	return nil
}

// optionalPrincipal returns the resolved principal or nil, never writing a
// response. Used by endpoints open to anonymous callers.
func optionalPrincipal(r *http.Request) *identity.Principal {
	return identity.PrincipalFromContext(r.Context())
}
