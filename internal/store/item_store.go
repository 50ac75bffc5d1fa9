package store

import (
	"context"
	"errors"
	"time"
)

// Errors
var (
	ErrItemNotFound = errors.New("item not found")
)

// Visibility controls who may read an item.
type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
)

// Item is a user-owned generic resource record.
type Item struct {
	ItemID      string     `json:"item_id"`
	OwnerID     string     `json:"owner_id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Tags        []string   `json:"tags,omitempty"`
	Visibility  Visibility `json:"visibility"`
	LikeCount   int64      `json:"like_count"`
	ShareCount  int64      `json:"share_count"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// ItemStore manages item records.
type ItemStore interface {
	// Get retrieves an item by id
	Get(ctx context.Context, itemID string) (*Item, error)

	// Create creates a new item
	Create(ctx context.Context, item *Item) error

	// Update replaces an existing item
	Update(ctx context.Context, item *Item) error

	// Delete removes an item
	Delete(ctx context.Context, itemID string) error

	// List returns items matching filters
	List(ctx context.Context, opts ListItemsOptions) ([]*Item, error)

	// IncrementLikes atomically adds delta to the like counter
	IncrementLikes(ctx context.Context, itemID string, delta int64) error

	// IncrementShares atomically adds delta to the share counter
	IncrementShares(ctx context.Context, itemID string, delta int64) error
}

// ListItemsOptions specifies filters for listing items.
type ListItemsOptions struct {
	OwnerID    string     // Filter by owner (empty = all)
	Visibility Visibility // Filter by visibility (empty = all)
	Limit      int        // Max results (0 = default)
}
