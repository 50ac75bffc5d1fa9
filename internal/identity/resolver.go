package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/authgate/authgate/internal/audit"
	"github.com/authgate/authgate/internal/store"
	"github.com/authgate/authgate/internal/telemetry"
)

// Token is the result of verifying a bearer credential against the external
// identity provider.
type Token struct {
	SubjectID string
	ExpiresAt time.Time
	Revoked   bool
}

// TokenVerifier verifies an opaque bearer credential. Implementations report
// failures as AuthError with codes CodeInvalidCredential, CodeExpired or
// CodeRevoked; any other error is treated as CodeInvalidCredential (fail
// closed).
type TokenVerifier interface {
	Verify(ctx context.Context, credential string) (*Token, error)
}

// Resolver turns bearer credentials into verified principals. Collaborators
// are injected explicitly so tests can substitute fakes.
type Resolver struct {
	verifier TokenVerifier
	profiles store.ProfileStore
	sink     audit.Sink
}

// NewResolver creates a resolver from its collaborators.
func NewResolver(verifier TokenVerifier, profiles store.ProfileStore, sink audit.Sink) *Resolver {
	return &Resolver{
		verifier: verifier,
		profiles: profiles,
		sink:     sink,
	}
}

// Resolve verifies the credential and loads the matching profile, returning a
// principal scoped to this request. Failures are classified AuthErrors; every
// failure is audited. On success the profile's last-seen timestamp is updated
// in the background, and a failure there never fails resolution.
func (r *Resolver) Resolve(ctx context.Context, credential string) (*Principal, error) {
	metrics := telemetry.GetMetrics()
	metrics.ResolveTotal.Add(ctx, 1)

	if credential == "" {
		metrics.ResolveFailuresTotal.Add(ctx, 1)
		return nil, NewAuthError(CodeInvalidCredential, errors.New("empty credential"))
	}

	token, err := r.verifier.Verify(ctx, credential)
	if err != nil {
		metrics.ResolveFailuresTotal.Add(ctx, 1)
		r.sink.Record(ctx, audit.NewEvent(authFailureEvent(AuthCodeOf(err)), "", map[string]any{
			"error": err.Error(),
		}))
		if !isAuthError(err) {
			// Collaborator timeouts and transport failures fail closed.
			return nil, NewAuthError(CodeInvalidCredential, err)
		}
		return nil, err
	}

	if token.Revoked {
		metrics.ResolveFailuresTotal.Add(ctx, 1)
		r.sink.Record(ctx, audit.NewEvent("revoked_token", token.SubjectID, nil))
		return nil, NewAuthError(CodeRevoked, fmt.Errorf("credential for subject %s is revoked", token.SubjectID))
	}

	profile, err := r.profiles.Get(ctx, token.SubjectID)
	if err != nil {
		metrics.ResolveFailuresTotal.Add(ctx, 1)
		if errors.Is(err, store.ErrProfileNotFound) {
			r.sink.Record(ctx, audit.NewEvent("user_not_found", token.SubjectID, nil))
			return nil, NewAuthError(CodeNotFound, err)
		}
		// Store unavailable: fail closed rather than guessing.
		return nil, NewAuthError(CodeInvalidCredential, err)
	}

	if profile.Disabled {
		metrics.ResolveFailuresTotal.Add(ctx, 1)
		r.sink.Record(ctx, audit.NewEvent("disabled_user_access_attempt", token.SubjectID, nil))
		return nil, NewAuthError(CodeDisabled, fmt.Errorf("account %s is disabled", token.SubjectID))
	}

	r.touchLastSeen(token.SubjectID)

	return principalFromProfile(profile), nil
}

// ResolveOptional resolves the credential if possible and reports absence
// otherwise. It never returns an error: an empty credential, a failed
// verification or a missing profile all yield nil. Used by endpoints that
// serve both anonymous and authenticated callers.
func (r *Resolver) ResolveOptional(ctx context.Context, credential string) *Principal {
	if credential == "" {
		return nil
	}

	principal, err := r.Resolve(ctx, credential)
	if err != nil {
		log.Debug().Err(err).Msg("optional authentication failed")
		return nil
	}

	return principal
}

// touchLastSeen updates the profile's last-seen timestamp without holding up
// the request. Errors are logged and dropped.
func (r *Resolver) touchLastSeen(subjectID string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := r.profiles.TouchLastSeen(ctx, subjectID); err != nil {
			log.Warn().Err(err).Str("subject_id", subjectID).Msg("failed to update last seen")
		}
	}()
}

func principalFromProfile(profile *store.ProfileRecord) *Principal {
	return &Principal{
		ID:            profile.SubjectID,
		Email:         profile.Email,
		DisplayName:   profile.DisplayName,
		Roles:         profile.Roles,
		CustomClaims:  profile.CustomClaims,
		Active:        !profile.Disabled,
		EmailVerified: profile.EmailVerified,
	}
}

func isAuthError(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae)
}

func authFailureEvent(code AuthCode) string {
	switch code {
	case CodeExpired:
		return "expired_token"
	case CodeRevoked:
		return "revoked_token"
	default:
		return "invalid_token"
	}
}
