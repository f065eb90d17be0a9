package face

import (
	"context"
	"strings"
	"time"
)

// Recent detection limit bounds for queries.
const (
	minRecentLimit     = 1
	maxRecentLimit     = 100
	defaultRecentLimit = 20
)

// Logger defines the logging interface used by the Recorder.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Recorder applies recognition events and answers queries about them.
type Recorder struct {
	repo   Repository
	logger Logger
}

// NewRecorder creates a recorder over the given repository.
func NewRecorder(repo Repository) *Recorder {
	return &Recorder{
		repo:   repo,
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the recorder.
func (r *Recorder) SetLogger(logger Logger) {
	r.logger = logger
}

// Record applies a recognition event.
//
// Every event is appended to the detection log; events without a name
// are recorded as "Unknown". Events for a known, named person also bump
// that person's visit counter. Storage failures are logged, not
// returned - the caller broadcasts the event regardless.
//
// Parameters:
//   - ctx: Context for the storage writes
//   - name: Matched person's name (empty for unknown faces)
//   - status: Recognition outcome ("known" or "unknown")
//   - confidence: Recogniser confidence score
//
// Returns:
//   - Detection: The recorded event with its timestamp
func (r *Recorder) Record(ctx context.Context, name string, status string, confidence float64) Detection {
	d := Detection{
		Name:       strings.TrimSpace(name),
		Status:     status,
		Confidence: confidence,
		DetectedAt: time.Now(),
	}
	hasName := d.Name != ""
	if !hasName {
		d.Name = UnknownName
	}

	if err := r.repo.InsertDetection(ctx, d); err != nil {
		r.logger.Error("face detection persist failed",
			"name", d.Name,
			"status", d.Status,
			"error", err,
		)
	}

	if d.Status == StatusKnown && hasName {
		if err := r.repo.UpsertVisit(ctx, d.Name, d.DetectedAt); err != nil {
			r.logger.Error("visit counter update failed",
				"name", d.Name,
				"error", err,
			)
		}
	}

	r.logger.Debug("face event recorded",
		"name", d.Name,
		"status", d.Status,
		"confidence", d.Confidence,
	)

	return d
}

// Recent returns the newest detection events, newest first.
// The limit is clamped to the range 1 to 100; zero or negative values
// use the default of 20.
func (r *Recorder) Recent(ctx context.Context, limit int) ([]Detection, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	if limit < minRecentLimit {
		limit = minRecentLimit
	}
	if limit > maxRecentLimit {
		limit = maxRecentLimit
	}
	return r.repo.RecentDetections(ctx, limit)
}

// KnownPersons returns all registered people, ordered by name.
func (r *Recorder) KnownPersons(ctx context.Context) ([]KnownPerson, error) {
	return r.repo.ListKnownPersons(ctx)
}

// AddKnownPerson registers a person so future detections count as visits.
//
// Returns ErrInvalidName for an empty name and ErrPersonExists if the
// name is already registered.
func (r *Recorder) AddKnownPerson(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrInvalidName
	}
	if err := r.repo.CreateKnownPerson(ctx, name); err != nil {
		return err
	}
	r.logger.Info("known person registered", "name", name)
	return nil
}

// Stats summarises recognition activity.
func (r *Recorder) Stats(ctx context.Context) (Stats, error) {
	return r.repo.Stats(ctx)
}
