package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/authgate/authgate/internal/store"
)

// ProfileStore implements store.ProfileStore using PostgreSQL.
type ProfileStore struct {
	pool *pgxpool.Pool
}

// NewProfileStore creates a new PostgreSQL-backed profile store. It shares
// the connection pool with other stores.
func NewProfileStore(pool *pgxpool.Pool) *ProfileStore {
	return &ProfileStore{
		pool: pool,
	}
}

const profileColumns = `
	subject_id, email, display_name, photo_url,
	email_verified, disabled, roles, custom_claims,
	provider, created_at, updated_at, last_seen_at
`

// Get retrieves a profile by subject id.
func (s *ProfileStore) Get(ctx context.Context, subjectID string) (*store.ProfileRecord, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE subject_id = $1`

	return s.scanProfile(s.pool.QueryRow(ctx, query, subjectID))
}

// GetByEmail retrieves a profile by email address.
func (s *ProfileStore) GetByEmail(ctx context.Context, email string) (*store.ProfileRecord, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE email = $1`

	return s.scanProfile(s.pool.QueryRow(ctx, query, email))
}

// Create creates a new profile.
func (s *ProfileStore) Create(ctx context.Context, profile *store.ProfileRecord) error {
	query := `
		INSERT INTO profiles (
			subject_id, email, display_name, photo_url,
			email_verified, disabled, roles, custom_claims,
			provider, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11
		)
	`

	claims, err := marshalClaims(profile.CustomClaims)
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx, query,
		profile.SubjectID,
		profile.Email,
		profile.DisplayName,
		profile.PhotoURL,
		profile.EmailVerified,
		profile.Disabled,
		profile.Roles,
		claims,
		profile.Provider,
		profile.CreatedAt,
		profile.UpdatedAt,
	)

	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrProfileAlreadyExists
		}
		return fmt.Errorf("failed to create profile: %w", mapPostgresError(err))
	}

	log.Debug().
		Str("subject_id", profile.SubjectID).
		Str("email", profile.Email).
		Msg("Created profile")

	return nil
}

// Update replaces mutable profile fields.
func (s *ProfileStore) Update(ctx context.Context, profile *store.ProfileRecord) error {
	query := `
		UPDATE profiles SET
			email = $2,
			display_name = $3,
			photo_url = $4,
			email_verified = $5,
			disabled = $6,
			provider = $7,
			updated_at = $8
		WHERE subject_id = $1
	`

	tag, err := s.pool.Exec(ctx, query,
		profile.SubjectID,
		profile.Email,
		profile.DisplayName,
		profile.PhotoURL,
		profile.EmailVerified,
		profile.Disabled,
		profile.Provider,
		profile.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update profile: %w", mapPostgresError(err))
	}
	if tag.RowsAffected() == 0 {
		return store.ErrProfileNotFound
	}

	return nil
}

// Delete removes a profile.
func (s *ProfileStore) Delete(ctx context.Context, subjectID string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM profiles WHERE subject_id = $1`, subjectID)
	if err != nil {
		return fmt.Errorf("failed to delete profile: %w", mapPostgresError(err))
	}
	if tag.RowsAffected() == 0 {
		return store.ErrProfileNotFound
	}

	return nil
}

// List returns profiles matching the filters, newest first.
func (s *ProfileStore) List(ctx context.Context, opts store.ListProfilesOptions) ([]*store.ProfileRecord, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE 1=1`
	args := []any{}

	if opts.Role != "" {
		args = append(args, opts.Role)
		query += fmt.Sprintf(" AND $%d = ANY(roles)", len(args))
	}
	if opts.Disabled != nil {
		args = append(args, *opts.Disabled)
		query += fmt.Sprintf(" AND disabled = $%d", len(args))
	}

	query += " ORDER BY created_at DESC"

	limit := opts.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit)
	query += fmt.Sprintf(" LIMIT $%d", len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", mapPostgresError(err))
	}
	defer rows.Close()

	var profiles []*store.ProfileRecord
	for rows.Next() {
		profile, err := s.scanProfile(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, profile)
	}

	return profiles, rows.Err()
}

// SetRoles replaces the role set of a profile.
func (s *ProfileStore) SetRoles(ctx context.Context, subjectID string, roles []string) error {
	query := `UPDATE profiles SET roles = $2, updated_at = $3 WHERE subject_id = $1`

	tag, err := s.pool.Exec(ctx, query, subjectID, roles, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to set roles: %w", mapPostgresError(err))
	}
	if tag.RowsAffected() == 0 {
		return store.ErrProfileNotFound
	}

	return nil
}

// SetCustomClaims replaces the custom claims of a profile.
func (s *ProfileStore) SetCustomClaims(ctx context.Context, subjectID string, claims map[string]any) error {
	payload, err := marshalClaims(claims)
	if err != nil {
		return err
	}

	query := `UPDATE profiles SET custom_claims = $2, updated_at = $3 WHERE subject_id = $1`

	tag, err := s.pool.Exec(ctx, query, subjectID, payload, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to set custom claims: %w", mapPostgresError(err))
	}
	if tag.RowsAffected() == 0 {
		return store.ErrProfileNotFound
	}

	return nil
}

// TouchLastSeen updates the last_seen_at timestamp.
func (s *ProfileStore) TouchLastSeen(ctx context.Context, subjectID string) error {
	query := `UPDATE profiles SET last_seen_at = $2 WHERE subject_id = $1`

	tag, err := s.pool.Exec(ctx, query, subjectID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to touch last seen: %w", mapPostgresError(err))
	}
	if tag.RowsAffected() == 0 {
		return store.ErrProfileNotFound
	}

	return nil
}

// rowScanner is satisfied by both pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func (s *ProfileStore) scanProfile(row rowScanner) (*store.ProfileRecord, error) {
	var (
		p      store.ProfileRecord
		claims []byte
	)

	err := row.Scan(
		&p.SubjectID,
		&p.Email,
		&p.DisplayName,
		&p.PhotoURL,
		&p.EmailVerified,
		&p.Disabled,
		&p.Roles,
		&claims,
		&p.Provider,
		&p.CreatedAt,
		&p.UpdatedAt,
		&p.LastSeenAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to scan profile: %w", mapPostgresError(err))
	}

	if len(claims) > 0 {
		if err := json.Unmarshal(claims, &p.CustomClaims); err != nil {
			return nil, fmt.Errorf("failed to decode custom claims: %w", err)
		}
	}

	return &p, nil
}

func marshalClaims(claims map[string]any) ([]byte, error) {
	if claims == nil {
		return []byte("{}"), nil
	}
	payload, err := json.Marshal(claims)
	if err != nil {
		return nil, fmt.Errorf("failed to encode custom claims: %w", err)
	}
	return payload, nil
}
