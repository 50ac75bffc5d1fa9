package identity

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/authgate/authgate/internal/audit"
	"github.com/authgate/authgate/internal/store"
)

// ProfileService performs administrative profile mutations. Every mutation
// that changes who a user is or what they may do is audited.
type ProfileService struct {
	profiles store.ProfileStore
	sink     audit.Sink
}

// NewProfileService creates a profile service from its collaborators.
func NewProfileService(profiles store.ProfileStore, sink audit.Sink) *ProfileService {
	return &ProfileService{
		profiles: profiles,
		sink:     sink,
	}
}

// CreateProfile creates a new profile record.
func (s *ProfileService) CreateProfile(ctx context.Context, profile *store.ProfileRecord) (*store.ProfileRecord, error) {
	now := time.Now().UTC()
	profile.CreatedAt = now
	profile.UpdatedAt = now

	if err := s.profiles.Create(ctx, profile); err != nil {
		return nil, fmt.Errorf("failed to create profile: %w", err)
	}

	s.sink.Record(ctx, audit.NewEvent("user_created", profile.SubjectID, map[string]any{
		"email": profile.Email,
	}))

	log.Info().Str("subject_id", profile.SubjectID).Msg("Created profile")

	return s.profiles.Get(ctx, profile.SubjectID)
}

// UpdateProfile replaces mutable profile fields.
func (s *ProfileService) UpdateProfile(ctx context.Context, profile *store.ProfileRecord) (*store.ProfileRecord, error) {
	profile.UpdatedAt = time.Now().UTC()

	if err := s.profiles.Update(ctx, profile); err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	s.sink.Record(ctx, audit.NewEvent("user_updated", profile.SubjectID, nil))

	return s.profiles.Get(ctx, profile.SubjectID)
}

// SetRoles replaces a user's role set. actorID is the administrator making
// the change.
func (s *ProfileService) SetRoles(ctx context.Context, actorID, subjectID string, roles []string) error {
	if err := s.profiles.SetRoles(ctx, subjectID, roles); err != nil {
		return fmt.Errorf("failed to set roles: %w", err)
	}

	s.sink.Record(ctx, audit.NewEvent("roles_changed", subjectID, map[string]any{
		"actor_id": actorID,
		"roles":    roles,
	}))

	log.Info().
		Str("subject_id", subjectID).
		Str("actor_id", actorID).
		Strs("roles", roles).
		Msg("Replaced roles")

	return nil
}

// SetCustomClaims replaces a user's custom claims.
func (s *ProfileService) SetCustomClaims(ctx context.Context, actorID, subjectID string, claims map[string]any) error {
	if err := s.profiles.SetCustomClaims(ctx, subjectID, claims); err != nil {
		return fmt.Errorf("failed to set custom claims: %w", err)
	}

	s.sink.Record(ctx, audit.NewEvent("claims_changed", subjectID, map[string]any{
		"actor_id": actorID,
	}))

	log.Info().
		Str("subject_id", subjectID).
		Str("actor_id", actorID).
		Msg("Replaced custom claims")

	return nil
}

// DeleteProfile removes a profile record.
func (s *ProfileService) DeleteProfile(ctx context.Context, actorID, subjectID string) error {
	if err := s.profiles.Delete(ctx, subjectID); err != nil {
		return fmt.Errorf("failed to delete profile: %w", err)
	}

	s.sink.Record(ctx, audit.NewEvent("user_deleted", subjectID, map[string]any{
		"actor_id": actorID,
	}))

	log.Info().Str("subject_id", subjectID).Str("actor_id", actorID).Msg("Deleted profile")

	return nil
}
