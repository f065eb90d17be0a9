package device

import "time"

// Source identifies where a device state update originated.
type Source string

// Valid state update sources.
const (
	// SourceLocal is a control request handled by this backend's REST API.
	SourceLocal Source = "local"

	// SourceExternal is a command observed on the shared MQTT control
	// topic, issued by another app or service.
	SourceExternal Source = "external"

	// SourceStatusEcho is a confirmation published by the hardware after
	// it acted on a command.
	SourceStatusEcho Source = "status-echo"
)

// State is the current known state of a single device.
type State struct {
	// Name is the device identifier (e.g., "fan", "water-motor").
	Name string `json:"name"`

	// IsOn is the current on/off state.
	IsOn bool `json:"is_on"`

	// Source is where the most recent update came from.
	Source Source `json:"source"`

	// UpdatedAt is when the most recent update was applied.
	UpdatedAt time.Time `json:"updated_at"`
}

// Change describes the outcome of applying a state update.
type Change struct {
	// Device is the device the update was applied to.
	Device string

	// IsOn is the state after the update.
	IsOn bool

	// Source is where the update came from.
	Source Source

	// Previous is the state before the update. False for devices seen
	// for the first time.
	Previous bool

	// Known is false if the device was auto-registered by this update.
	Known bool
}
