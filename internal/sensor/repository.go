package sensor

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// History query limit bounds.
const (
	minHistoryLimit     = 1
	maxHistoryLimit     = 1000
	defaultHistoryLimit = 100
)

// Reading is a stored sensor payload.
type Reading struct {
	// ID is the database row ID.
	ID int64 `json:"id"`

	// Topic is the MQTT topic the payload arrived on.
	Topic string `json:"topic"`

	// Payload is the raw JSON payload text.
	Payload string `json:"payload"`

	// ReceivedAt is when the reading was stored.
	ReceivedAt time.Time `json:"received_at"`
}

// Repository defines the interface for sensor reading persistence.
type Repository interface {
	// Append stores a reading.
	Append(ctx context.Context, topic string, payload string) error

	// History retrieves recent readings, newest first. An empty topic
	// matches all topics; a zero since imposes no lower time bound.
	History(ctx context.Context, topic string, since time.Time, limit int) ([]Reading, error)
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

// Append stores a reading.
func (r *SQLiteRepository) Append(ctx context.Context, topic string, payload string) error {
	query := `
		INSERT INTO sensor_readings (topic, payload, received_at)
		VALUES (?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		topic,
		payload,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("appending reading: %w", err)
	}
	return nil
}

// History retrieves recent readings, newest first.
//
// The limit is clamped to the range 1 to 1000; zero or negative values
// use the default of 100.
func (r *SQLiteRepository) History(ctx context.Context, topic string, since time.Time, limit int) ([]Reading, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit < minHistoryLimit {
		limit = minHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	query := `
		SELECT id, topic, payload, received_at
		FROM sensor_readings`
	conditions := []string{}
	args := []interface{}{}
	if topic != "" {
		conditions = append(conditions, "topic = ?")
		args = append(args, topic)
	}
	if !since.IsZero() {
		conditions = append(conditions, "received_at >= ?")
		args = append(args, since.UTC().Format(time.RFC3339))
	}
	for i, cond := range conditions {
		if i == 0 {
			query += " WHERE " + cond
		} else {
			query += " AND " + cond
		}
	}
	query += " ORDER BY received_at DESC, id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	var readings []Reading
	for rows.Next() {
		var reading Reading
		var receivedAt string
		if err := rows.Scan(&reading.ID, &reading.Topic, &reading.Payload, &receivedAt); err != nil {
			return nil, fmt.Errorf("scanning reading: %w", err)
		}
		// Timestamp format is controlled by us
		reading.ReceivedAt, _ = time.Parse(time.RFC3339, receivedAt) //nolint:errcheck // Format is controlled
		readings = append(readings, reading)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating readings: %w", err)
	}
	return readings, nil
}
