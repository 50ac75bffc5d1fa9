package store

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"
)

// MemoryProfileStore is an in-memory implementation of ProfileStore for
// development and testing.
type MemoryProfileStore struct {
	mu       sync.RWMutex
	profiles map[string]*ProfileRecord
}

// NewMemoryProfileStore creates a new in-memory profile store.
func NewMemoryProfileStore() *MemoryProfileStore {
	return &MemoryProfileStore{
		profiles: make(map[string]*ProfileRecord),
	}
}

func copyProfile(p *ProfileRecord) *ProfileRecord {
	cp := *p
	cp.Roles = slices.Clone(p.Roles)
	if p.CustomClaims != nil {
		cp.CustomClaims = maps.Clone(p.CustomClaims)
	}
	if p.LastSeenAt != nil {
		t := *p.LastSeenAt
		cp.LastSeenAt = &t
	}
	return &cp
}

// Get retrieves a profile by subject id.
func (s *MemoryProfileStore) Get(ctx context.Context, subjectID string) (*ProfileRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	profile, exists := s.profiles[subjectID]
	if !exists {
		return nil, ErrProfileNotFound
	}

	return copyProfile(profile), nil
}

// GetByEmail retrieves a profile by email address.
func (s *MemoryProfileStore) GetByEmail(ctx context.Context, email string) (*ProfileRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, profile := range s.profiles {
		if profile.Email == email {
			return copyProfile(profile), nil
		}
	}

	return nil, ErrProfileNotFound
}

// Create creates a new profile.
func (s *MemoryProfileStore) Create(ctx context.Context, profile *ProfileRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.profiles[profile.SubjectID]; exists {
		return ErrProfileAlreadyExists
	}

	s.profiles[profile.SubjectID] = copyProfile(profile)
	return nil
}

// Update replaces an existing profile.
func (s *MemoryProfileStore) Update(ctx context.Context, profile *ProfileRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.profiles[profile.SubjectID]; !exists {
		return ErrProfileNotFound
	}

	s.profiles[profile.SubjectID] = copyProfile(profile)
	return nil
}

// Delete removes a profile.
func (s *MemoryProfileStore) Delete(ctx context.Context, subjectID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.profiles[subjectID]; !exists {
		return ErrProfileNotFound
	}

	delete(s.profiles, subjectID)
	return nil
}

// List returns profiles matching filters.
func (s *MemoryProfileStore) List(ctx context.Context, opts ListProfilesOptions) ([]*ProfileRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*ProfileRecord

	for _, profile := range s.profiles {
		if opts.Role != "" && !slices.Contains(profile.Roles, opts.Role) {
			continue
		}
		if opts.Disabled != nil && profile.Disabled != *opts.Disabled {
			continue
		}

		result = append(result, copyProfile(profile))

		if opts.Limit > 0 && len(result) >= opts.Limit {
			break
		}
	}

	return result, nil
}

// SetRoles replaces the role set of a profile.
func (s *MemoryProfileStore) SetRoles(ctx context.Context, subjectID string, roles []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	profile, exists := s.profiles[subjectID]
	if !exists {
		return ErrProfileNotFound
	}

	profile.Roles = slices.Clone(roles)
	profile.UpdatedAt = time.Now()
	return nil
}

// SetCustomClaims replaces the custom claims of a profile.
func (s *MemoryProfileStore) SetCustomClaims(ctx context.Context, subjectID string, claims map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	profile, exists := s.profiles[subjectID]
	if !exists {
		return ErrProfileNotFound
	}

	if claims == nil {
		profile.CustomClaims = nil
	} else {
		profile.CustomClaims = maps.Clone(claims)
	}
	profile.UpdatedAt = time.Now()
	return nil
}

// TouchLastSeen updates the last_seen_at timestamp.
func (s *MemoryProfileStore) TouchLastSeen(ctx context.Context, subjectID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	profile, exists := s.profiles[subjectID]
	if !exists {
		return ErrProfileNotFound
	}

	now := time.Now()
	profile.LastSeenAt = &now
	return nil
}
