package mqtt

// Well-known topics for the home message bus.
//
// The hardware side publishes on the esp/ hierarchy; the backend and external
// apps use the home/ hierarchy. The full subscription set is configurable
// (home.topics.subscribe); these builders cover the fixed, well-known names.
const (
	// TopicPrefixESP is the base for all hardware (ESP firmware) topics.
	TopicPrefixESP = "esp"

	// TopicPrefixHome is the base for backend and external-app topics.
	TopicPrefixHome = "home"
)

// Topics provides builders for the home bus MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	statusTopic := topics.DeviceStatus("water-motor")
//	// Returns: "home/sensors/water-motor"
type Topics struct{}

// SensorData returns the primary JSON sensor payload topic.
//
// Example: esp/sensors
func (Topics) SensorData() string {
	return TopicPrefixESP + "/sensors"
}

// Camera returns the face-recognition event topic.
//
// Example: esp/cam
func (Topics) Camera() string {
	return TopicPrefixESP + "/cam"
}

// Control returns the shared control-command topic.
// Commands are plain text: "<device> <action>".
//
// Example: home/control
func (Topics) Control() string {
	return TopicPrefixHome + "/control"
}

// DeviceControl returns the per-device control topic used by the
// voice-command pass-through.
//
// Example: home/control/fan
func (Topics) DeviceControl(device string) string {
	return TopicPrefixHome + "/control/" + device
}

// DeviceStatus returns the status echo topic for a device.
// Payload is JSON: {"state":"on"} or {"state":"off"}.
//
// Example: home/sensors/water-motor
func (Topics) DeviceStatus(device string) string {
	return TopicPrefixHome + "/sensors/" + device
}

// FridgeInventory returns the fridge inventory event topic.
//
// Example: fridge/inventory
func (Topics) FridgeInventory() string {
	return "fridge/inventory"
}

// SystemStatus returns the backend online/offline status topic.
// Used for the LWT and graceful shutdown announcements.
//
// Example: home/backend/status
func (Topics) SystemStatus() string {
	return TopicPrefixHome + "/backend/status"
}

// AllESP returns a pattern matching every hardware topic.
// Use with caution - this receives ALL ESP traffic including debug chatter.
//
// Pattern: esp/#
func (Topics) AllESP() string {
	return TopicPrefixESP + "/#"
}
