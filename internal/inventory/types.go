package inventory

import (
	"strings"
	"time"
)

// Item statuses. Manual updates mark items "ok"; the camera detection
// pipeline marks items it spotted as "detected".
const (
	StatusOK       = "ok"
	StatusDetected = "detected"
)

// Valid update actions.
const (
	// ActionAdd increments the quantity by one.
	ActionAdd = "add"

	// ActionRemove decrements the quantity by one, floored at zero.
	ActionRemove = "remove"

	// ActionSet replaces the quantity outright.
	ActionSet = "set"
)

// Item is a single tracked inventory item.
type Item struct {
	// Key is the canonical lower-case identity.
	Key string `json:"key"`

	// Name is the display name, keeping first-seen casing.
	Name string `json:"name"`

	// Quantity is the current stock count. Never negative.
	Quantity int `json:"quantity"`

	// Status is StatusOK or StatusDetected.
	Status string `json:"status"`

	// ImagePath is the stored photo path, if one has been uploaded.
	ImagePath string `json:"image_path,omitempty"`

	// UpdatedAt is when the item last changed.
	UpdatedAt time.Time `json:"updated_at"`
}

// Update describes the outcome of applying an inventory change.
type Update struct {
	// Item is the state after the change.
	Item Item

	// Action is the action that was applied.
	Action string

	// LowStock is true when the resulting quantity is at or below
	// the configured threshold.
	LowStock bool
}

// Normalise returns the canonical item key for a display name.
func Normalise(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
