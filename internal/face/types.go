package face

import "time"

// Detection statuses reported by the camera unit.
const (
	// StatusKnown means the face matched a registered person.
	StatusKnown = "known"

	// StatusUnknown means a face was seen but not matched.
	StatusUnknown = "unknown"
)

// UnknownName is recorded when a detection carries no name.
const UnknownName = "Unknown"

// Detection is a single recognition event from the camera.
type Detection struct {
	// ID is the database row ID. Zero until stored.
	ID int64 `json:"id,omitempty"`

	// Name is the matched person's name, or "Unknown".
	Name string `json:"name"`

	// Status is the recognition outcome ("known" or "unknown").
	Status string `json:"status"`

	// Confidence is the recogniser's confidence score, 0 to 1.
	Confidence float64 `json:"confidence"`

	// DetectedAt is when the event was recorded.
	DetectedAt time.Time `json:"detected_at"`
}

// KnownPerson is a registered person with visit tracking.
type KnownPerson struct {
	// Name is the person's registered name.
	Name string `json:"name"`

	// FirstSeen is when the person was registered or first detected.
	FirstSeen time.Time `json:"first_seen"`

	// LastSeen is the most recent known detection.
	LastSeen time.Time `json:"last_seen"`

	// VisitCount is how many known detections have been recorded.
	VisitCount int `json:"visit_count"`
}

// Stats summarises recognition activity.
type Stats struct {
	// TotalDetections is the count of all recorded events.
	TotalDetections int `json:"total_detections"`

	// KnownDetections is the count of events with status "known".
	KnownDetections int `json:"known_detections"`

	// UnknownDetections is the count of events with any other status.
	UnknownDetections int `json:"unknown_detections"`

	// KnownPersons is the number of registered people.
	KnownPersons int `json:"known_persons"`
}
