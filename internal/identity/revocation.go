package identity

import (
	"context"
	"sync"
)

// MemoryRevocationList is a RevocationChecker backed by an in-memory set.
// Suitable for single-instance deployments and tests; a shared deployment
// would back this with the profile store instead.
type MemoryRevocationList struct {
	mu      sync.RWMutex
	revoked map[string]bool
}

// NewMemoryRevocationList creates an empty revocation list.
func NewMemoryRevocationList() *MemoryRevocationList {
	return &MemoryRevocationList{
		revoked: make(map[string]bool),
	}
}

// Revoke adds an id (token id or subject id) to the list.
func (l *MemoryRevocationList) Revoke(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.revoked[id] = true
}

// Restore removes an id from the list.
func (l *MemoryRevocationList) Restore(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.revoked, id)
}

// IsRevoked reports whether the id is revoked. An empty id is never revoked.
func (l *MemoryRevocationList) IsRevoked(ctx context.Context, id string) bool {
	if id == "" {
		return false
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.revoked[id]
}
