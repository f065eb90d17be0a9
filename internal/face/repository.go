package face

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Repository defines the interface for face event persistence.
// This abstraction allows for different implementations (SQLite, mock, etc.)
// and enables unit testing without database dependencies.
type Repository interface {
	// InsertDetection appends a detection event to the log.
	InsertDetection(ctx context.Context, d Detection) error

	// RecentDetections retrieves the newest events, newest first.
	RecentDetections(ctx context.Context, limit int) ([]Detection, error)

	// UpsertVisit bumps a person's visit counter and last-seen time,
	// registering them if they are not yet known.
	UpsertVisit(ctx context.Context, name string, seenAt time.Time) error

	// ListKnownPersons retrieves all registered people, ordered by name.
	ListKnownPersons(ctx context.Context) ([]KnownPerson, error)

	// CreateKnownPerson registers a new person with zero visits.
	// Returns ErrPersonExists if the name is already registered.
	CreateKnownPerson(ctx context.Context, name string) error

	// Stats summarises recognition activity.
	Stats(ctx context.Context) (Stats, error)
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

// InsertDetection appends a detection event to the log.
func (r *SQLiteRepository) InsertDetection(ctx context.Context, d Detection) error {
	query := `
		INSERT INTO face_detections (name, status, confidence, detected_at)
		VALUES (?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		d.Name,
		d.Status,
		d.Confidence,
		d.DetectedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting detection: %w", err)
	}
	return nil
}

// RecentDetections retrieves the newest events, newest first.
func (r *SQLiteRepository) RecentDetections(ctx context.Context, limit int) ([]Detection, error) {
	query := `
		SELECT id, name, status, confidence, detected_at
		FROM face_detections
		ORDER BY detected_at DESC, id DESC
		LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("querying detections: %w", err)
	}
	defer rows.Close()

	var detections []Detection
	for rows.Next() {
		var d Detection
		var detectedAt string
		if err := rows.Scan(&d.ID, &d.Name, &d.Status, &d.Confidence, &detectedAt); err != nil {
			return nil, fmt.Errorf("scanning detection: %w", err)
		}
		// Timestamp format is controlled by us
		d.DetectedAt, _ = time.Parse(time.RFC3339, detectedAt) //nolint:errcheck // Format is controlled
		detections = append(detections, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating detections: %w", err)
	}
	return detections, nil
}

// UpsertVisit bumps a person's visit counter and last-seen time.
func (r *SQLiteRepository) UpsertVisit(ctx context.Context, name string, seenAt time.Time) error {
	query := `
		INSERT INTO known_persons (name, first_seen, last_seen, visit_count)
		VALUES (?, ?, ?, 1)
		ON CONFLICT(name) DO UPDATE SET
			last_seen = excluded.last_seen,
			visit_count = visit_count + 1`

	ts := seenAt.UTC().Format(time.RFC3339)
	if _, err := r.db.ExecContext(ctx, query, name, ts, ts); err != nil {
		return fmt.Errorf("upserting visit for %q: %w", name, err)
	}
	return nil
}

// ListKnownPersons retrieves all registered people, ordered by name.
func (r *SQLiteRepository) ListKnownPersons(ctx context.Context) ([]KnownPerson, error) {
	query := `
		SELECT name, first_seen, last_seen, visit_count
		FROM known_persons
		ORDER BY name`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying known persons: %w", err)
	}
	defer rows.Close()

	var persons []KnownPerson
	for rows.Next() {
		var p KnownPerson
		var firstSeen, lastSeen string
		if err := rows.Scan(&p.Name, &firstSeen, &lastSeen, &p.VisitCount); err != nil {
			return nil, fmt.Errorf("scanning known person: %w", err)
		}
		p.FirstSeen, _ = time.Parse(time.RFC3339, firstSeen) //nolint:errcheck // Format is controlled
		p.LastSeen, _ = time.Parse(time.RFC3339, lastSeen)   //nolint:errcheck // Format is controlled
		persons = append(persons, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating known persons: %w", err)
	}
	return persons, nil
}

// CreateKnownPerson registers a new person with zero visits.
func (r *SQLiteRepository) CreateKnownPerson(ctx context.Context, name string) error {
	var exists int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM known_persons WHERE name = ?", name,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("checking known person %q: %w", name, err)
	}
	if exists > 0 {
		return ErrPersonExists
	}

	ts := time.Now().UTC().Format(time.RFC3339)
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO known_persons (name, first_seen, last_seen, visit_count)
		VALUES (?, ?, ?, 0)`,
		name, ts, ts,
	)
	if err != nil {
		return fmt.Errorf("creating known person %q: %w", name, err)
	}
	return nil
}

// Stats summarises recognition activity.
func (r *SQLiteRepository) Stats(ctx context.Context) (Stats, error) {
	var stats Stats

	err := r.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN status = 'known' THEN 1 ELSE 0 END), 0)
		FROM face_detections`,
	).Scan(&stats.TotalDetections, &stats.KnownDetections)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return Stats{}, fmt.Errorf("querying detection stats: %w", err)
		}
	}
	stats.UnknownDetections = stats.TotalDetections - stats.KnownDetections

	err = r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM known_persons",
	).Scan(&stats.KnownPersons)
	if err != nil {
		return Stats{}, fmt.Errorf("querying person count: %w", err)
	}

	return stats, nil
}
