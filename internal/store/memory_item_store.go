package store

import (
	"context"
	"slices"
	"sort"
	"sync"
)

// MemoryItemStore is an in-memory implementation of ItemStore for
// development and testing.
type MemoryItemStore struct {
	mu    sync.RWMutex
	items map[string]*Item
}

// NewMemoryItemStore creates a new in-memory item store.
func NewMemoryItemStore() *MemoryItemStore {
	return &MemoryItemStore{
		items: make(map[string]*Item),
	}
}

func copyItem(i *Item) *Item {
	cp := *i
	cp.Tags = slices.Clone(i.Tags)
	return &cp
}

// Get retrieves an item by id.
func (s *MemoryItemStore) Get(ctx context.Context, itemID string) (*Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, exists := s.items[itemID]
	if !exists {
		return nil, ErrItemNotFound
	}

	return copyItem(item), nil
}

// Create creates a new item.
func (s *MemoryItemStore) Create(ctx context.Context, item *Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items[item.ItemID] = copyItem(item)
	return nil
}

// Update replaces an existing item.
func (s *MemoryItemStore) Update(ctx context.Context, item *Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.items[item.ItemID]
	if !exists {
		return ErrItemNotFound
	}

	// Counters are owned by the increment operations.
	cp := copyItem(item)
	cp.LikeCount = existing.LikeCount
	cp.ShareCount = existing.ShareCount
	s.items[item.ItemID] = cp
	return nil
}

// Delete removes an item.
func (s *MemoryItemStore) Delete(ctx context.Context, itemID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.items[itemID]; !exists {
		return ErrItemNotFound
	}

	delete(s.items, itemID)
	return nil
}

// List returns items matching filters, newest first.
func (s *MemoryItemStore) List(ctx context.Context, opts ListItemsOptions) ([]*Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*Item

	for _, item := range s.items {
		if opts.OwnerID != "" && item.OwnerID != opts.OwnerID {
			continue
		}
		if opts.Visibility != "" && item.Visibility != opts.Visibility {
			continue
		}

		result = append(result, copyItem(item))
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	if opts.Limit > 0 && len(result) > opts.Limit {
		result = result[:opts.Limit]
	}

	return result, nil
}

// IncrementLikes atomically adds delta to the like counter.
func (s *MemoryItemStore) IncrementLikes(ctx context.Context, itemID string, delta int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, exists := s.items[itemID]
	if !exists {
		return ErrItemNotFound
	}

	item.LikeCount += delta
	return nil
}

// IncrementShares atomically adds delta to the share counter.
func (s *MemoryItemStore) IncrementShares(ctx context.Context, itemID string, delta int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, exists := s.items[itemID]
	if !exists {
		return ErrItemNotFound
	}

	item.ShareCount += delta
	return nil
}
