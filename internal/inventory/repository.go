package inventory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Repository defines the interface for inventory persistence operations.
// This abstraction allows for different implementations (SQLite, mock, etc.)
// and enables unit testing without database dependencies.
type Repository interface {
	// List retrieves all items, ordered by key.
	List(ctx context.Context) ([]Item, error)

	// Get retrieves an item by its canonical key.
	// Returns ErrItemNotFound if the item does not exist.
	Get(ctx context.Context, key string) (*Item, error)

	// Upsert inserts or replaces an item.
	Upsert(ctx context.Context, item Item) error
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
// The db parameter should be an open SQLite connection.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// List retrieves all items, ordered by key.
func (r *SQLiteRepository) List(ctx context.Context) ([]Item, error) {
	query := `
		SELECT item_key, display_name, quantity, status, image_path, updated_at
		FROM fridge_items
		ORDER BY item_key`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying items: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating items: %w", err)
	}
	return items, nil
}

// Get retrieves an item by its canonical key.
func (r *SQLiteRepository) Get(ctx context.Context, key string) (*Item, error) {
	query := `
		SELECT item_key, display_name, quantity, status, image_path, updated_at
		FROM fridge_items
		WHERE item_key = ?`

	item, err := scanItem(r.db.QueryRowContext(ctx, query, key))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrItemNotFound
		}
		return nil, fmt.Errorf("querying item %q: %w", key, err)
	}
	return item, nil
}

// Upsert inserts or replaces an item.
func (r *SQLiteRepository) Upsert(ctx context.Context, item Item) error {
	query := `
		INSERT INTO fridge_items (item_key, display_name, quantity, status, image_path, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(item_key) DO UPDATE SET
			display_name = excluded.display_name,
			quantity = excluded.quantity,
			status = excluded.status,
			image_path = excluded.image_path,
			updated_at = excluded.updated_at`

	var imagePath sql.NullString
	if item.ImagePath != "" {
		imagePath = sql.NullString{String: item.ImagePath, Valid: true}
	}

	status := item.Status
	if status == "" {
		status = StatusOK
	}

	_, err := r.db.ExecContext(ctx, query,
		item.Key,
		item.Name,
		item.Quantity,
		status,
		imagePath,
		item.UpdatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("upserting item %q: %w", item.Key, err)
	}
	return nil
}

// rowScanner abstracts sql.Row and sql.Rows for shared scanning.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanItem scans a single item row.
func scanItem(row rowScanner) (*Item, error) {
	var item Item
	var imagePath sql.NullString
	var updatedAt string

	if err := row.Scan(&item.Key, &item.Name, &item.Quantity, &item.Status, &imagePath, &updatedAt); err != nil {
		return nil, err
	}

	if imagePath.Valid {
		item.ImagePath = imagePath.String
	}
	// Timestamp format is controlled by us
	item.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt) //nolint:errcheck // Format is controlled

	return &item, nil
}
