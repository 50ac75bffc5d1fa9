package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/authgate/authgate/internal/store"
)

// ItemStore implements store.ItemStore using PostgreSQL.
type ItemStore struct {
	pool *pgxpool.Pool
}

// NewItemStore creates a new PostgreSQL-backed item store.
func NewItemStore(pool *pgxpool.Pool) *ItemStore {
	return &ItemStore{
		pool: pool,
	}
}

const itemColumns = `
	item_id, owner_id, title, description, tags,
	visibility, like_count, share_count, created_at, updated_at
`

// Get retrieves an item by id.
func (s *ItemStore) Get(ctx context.Context, itemID string) (*store.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE item_id = $1`

	return s.scanItem(s.pool.QueryRow(ctx, query, itemID))
}

// Create creates a new item.
func (s *ItemStore) Create(ctx context.Context, item *store.Item) error {
	query := `
		INSERT INTO items (
			item_id, owner_id, title, description, tags,
			visibility, like_count, share_count, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10
		)
	`

	_, err := s.pool.Exec(ctx, query,
		item.ItemID,
		item.OwnerID,
		item.Title,
		item.Description,
		item.Tags,
		item.Visibility,
		item.LikeCount,
		item.ShareCount,
		item.CreatedAt,
		item.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create item: %w", mapPostgresError(err))
	}

	return nil
}

// Update replaces mutable item fields. Counters are owned by the increment
// operations and are not written here.
func (s *ItemStore) Update(ctx context.Context, item *store.Item) error {
	query := `
		UPDATE items SET
			title = $2,
			description = $3,
			tags = $4,
			visibility = $5,
			updated_at = $6
		WHERE item_id = $1
	`

	tag, err := s.pool.Exec(ctx, query,
		item.ItemID,
		item.Title,
		item.Description,
		item.Tags,
		item.Visibility,
		item.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update item: %w", mapPostgresError(err))
	}
	if tag.RowsAffected() == 0 {
		return store.ErrItemNotFound
	}

	return nil
}

// Delete removes an item.
func (s *ItemStore) Delete(ctx context.Context, itemID string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM items WHERE item_id = $1`, itemID)
	if err != nil {
		return fmt.Errorf("failed to delete item: %w", mapPostgresError(err))
	}
	if tag.RowsAffected() == 0 {
		return store.ErrItemNotFound
	}

	return nil
}

// List returns items matching the filters, newest first.
func (s *ItemStore) List(ctx context.Context, opts store.ListItemsOptions) ([]*store.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE 1=1`
	args := []any{}

	if opts.OwnerID != "" {
		args = append(args, opts.OwnerID)
		query += fmt.Sprintf(" AND owner_id = $%d", len(args))
	}
	if opts.Visibility != "" {
		args = append(args, opts.Visibility)
		query += fmt.Sprintf(" AND visibility = $%d", len(args))
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
		return nil, fmt.Errorf("failed to list items: %w", mapPostgresError(err))
	}
	defer rows.Close()

	var items []*store.Item
	for rows.Next() {
		item, err := s.scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	return items, rows.Err()
}

// IncrementLikes atomically adds delta to the like counter. The increment
// happens in SQL so concurrent requests never lose updates.
func (s *ItemStore) IncrementLikes(ctx context.Context, itemID string, delta int64) error {
	return s.increment(ctx, "like_count", itemID, delta)
}

// IncrementShares atomically adds delta to the share counter.
func (s *ItemStore) IncrementShares(ctx context.Context, itemID string, delta int64) error {
	return s.increment(ctx, "share_count", itemID, delta)
}

func (s *ItemStore) increment(ctx context.Context, column, itemID string, delta int64) error {
	query := fmt.Sprintf(`UPDATE items SET %s = %s + $2 WHERE item_id = $1`, column, column)

	tag, err := s.pool.Exec(ctx, query, itemID, delta)
	if err != nil {
		return fmt.Errorf("failed to increment %s: %w", column, mapPostgresError(err))
	}
	if tag.RowsAffected() == 0 {
		return store.ErrItemNotFound
	}

	return nil
}

func (s *ItemStore) scanItem(row rowScanner) (*store.Item, error) {
	var item store.Item

	err := row.Scan(
		&item.ItemID,
		&item.OwnerID,
		&item.Title,
		&item.Description,
		&item.Tags,
		&item.Visibility,
		&item.LikeCount,
		&item.ShareCount,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrItemNotFound
		}
		return nil, fmt.Errorf("failed to scan item: %w", mapPostgresError(err))
	}

	return &item, nil
}
