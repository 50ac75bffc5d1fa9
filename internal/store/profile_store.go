package store

import (
	"context"
	"errors"
	"time"
)

// Errors
var (
	ErrProfileNotFound      = errors.New("profile not found")
	ErrProfileAlreadyExists = errors.New("profile already exists")
)

// ProfileRecord is the stored user profile keyed by the identity provider's
// subject id. It carries everything the access layer needs to build a
// principal: status flags, role membership and custom claims.
type ProfileRecord struct {
	SubjectID     string         `json:"subject_id"`
	Email         string         `json:"email"`
	DisplayName   string         `json:"display_name,omitempty"`
	PhotoURL      string         `json:"photo_url,omitempty"`
	EmailVerified bool           `json:"email_verified"`
	Disabled      bool           `json:"disabled"`
	Roles         []string       `json:"roles"`
	CustomClaims  map[string]any `json:"custom_claims,omitempty"`
	Provider      string         `json:"provider,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	LastSeenAt    *time.Time     `json:"last_seen_at,omitempty"`
}

// ProfileStore manages user profile records.
type ProfileStore interface {
	// Get retrieves a profile by subject id
	Get(ctx context.Context, subjectID string) (*ProfileRecord, error)

	// GetByEmail retrieves a profile by email address
	GetByEmail(ctx context.Context, email string) (*ProfileRecord, error)

	// Create creates a new profile
	Create(ctx context.Context, profile *ProfileRecord) error

	// Update replaces an existing profile
	Update(ctx context.Context, profile *ProfileRecord) error

	// Delete removes a profile
	Delete(ctx context.Context, subjectID string) error

	// List returns profiles matching filters
	List(ctx context.Context, opts ListProfilesOptions) ([]*ProfileRecord, error)

	// SetRoles replaces the role set of a profile
	SetRoles(ctx context.Context, subjectID string, roles []string) error

	// SetCustomClaims replaces the custom claims of a profile
	SetCustomClaims(ctx context.Context, subjectID string, claims map[string]any) error

	// TouchLastSeen updates the last_seen_at timestamp. Best-effort; callers
	// are expected to ignore failures.
	TouchLastSeen(ctx context.Context, subjectID string) error
}

// ListProfilesOptions specifies filters for listing profiles.
type ListProfilesOptions struct {
	Role     string // Filter by role membership (empty = all)
	Disabled *bool  // Filter by disabled flag (nil = all)
	Limit    int    // Max results (0 = default)
}
