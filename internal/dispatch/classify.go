package dispatch

import (
	"encoding/json"
	"strings"

	"homecore/internal/infrastructure/config"
)

// Kind is the classification of an incoming MQTT message.
type Kind int

// Message classifications, checked in this order.
const (
	// KindNoise is firmware debug or status chatter. Dropped.
	KindNoise Kind = iota

	// KindSwitchEcho is a physical switch or button press echo,
	// identified by a "switch" or "button" topic segment.
	// Cached and broadcast, never persisted.
	KindSwitchEcho

	// KindExternalControl is a device command from another app on the
	// shared control topic.
	KindExternalControl

	// KindStatusUpdate is a hardware confirmation on a per-device
	// status topic.
	KindStatusUpdate

	// KindFaceEvent is a camera recognition payload.
	KindFaceEvent

	// KindGenericSensor is any other sensor payload.
	KindGenericSensor
)

// String returns the classification name for logging.
func (k Kind) String() string {
	switch k {
	case KindNoise:
		return "noise"
	case KindSwitchEcho:
		return "switch_echo"
	case KindExternalControl:
		return "external_control"
	case KindStatusUpdate:
		return "status_update"
	case KindFaceEvent:
		return "face_event"
	case KindGenericSensor:
		return "generic_sensor"
	default:
		return "unknown"
	}
}

// Classification is the outcome of classifying a message.
type Classification struct {
	Kind Kind

	// Device is set for KindExternalControl and KindStatusUpdate.
	Device string

	// IsOn is the decoded device state for KindExternalControl and
	// KindStatusUpdate.
	IsOn bool
}

// ControlDevice is a device recognisable on the shared control topic.
type ControlDevice struct {
	// Name is the device identifier.
	Name string

	// Match is the substring that identifies the device in a command.
	Match string
}

// Rules holds the topic map and device list that drive classification.
type Rules struct {
	// ControlTopic is the shared control-command topic.
	ControlTopic string

	// CameraTopic is the face recognition event topic.
	CameraTopic string

	// StatusPrefix is the prefix of per-device status topics.
	StatusPrefix string

	// ControlDevices are the devices recognisable on the control topic.
	ControlDevices []ControlDevice
}

// NewRules builds classification rules from configuration.
func NewRules(cfg config.HomeConfig) Rules {
	rules := Rules{
		ControlTopic: cfg.Topics.Control,
		CameraTopic:  cfg.Topics.Camera,
		StatusPrefix: cfg.Topics.StatusPrefix + "/",
	}
	for _, d := range cfg.ControlDevices {
		rules.ControlDevices = append(rules.ControlDevices, ControlDevice{
			Name:  d.Name,
			Match: strings.ToLower(d.Match),
		})
	}
	return rules
}

// noiseMarkers are topic substrings that mark firmware chatter.
var noiseMarkers = []string{"/debug", "/status"}

// logTags are payload prefixes used by the firmware's serial logger.
var logTags = []string{"[D]", "[I]", "[W]", "[E]"}

// Classify determines what an incoming message is and, for device
// traffic, which device it concerns and the decoded on/off state.
//
// Classification is pure: it inspects only the topic and payload and
// never touches state.
func (r Rules) Classify(topic string, payload []byte) Classification {
	if isNoise(topic, payload) {
		return Classification{Kind: KindNoise}
	}

	if strings.Contains(topic, "/switch/") || strings.Contains(topic, "/button/") {
		return Classification{Kind: KindSwitchEcho}
	}

	if topic == r.ControlTopic {
		command := strings.ToLower(string(payload))
		for _, d := range r.ControlDevices {
			if d.Match != "" && strings.Contains(command, d.Match) {
				return Classification{
					Kind:   KindExternalControl,
					Device: d.Name,
					IsOn:   strings.Contains(command, "on"),
				}
			}
		}
		// Control traffic for devices we don't track falls through
		// to generic handling so it still reaches the dashboard.
		return Classification{Kind: KindGenericSensor}
	}

	if device, ok := strings.CutPrefix(topic, r.StatusPrefix); ok && device != "" {
		return Classification{
			Kind:   KindStatusUpdate,
			Device: device,
			IsOn:   decodeState(payload),
		}
	}

	if topic == r.CameraTopic {
		return Classification{Kind: KindFaceEvent}
	}

	return Classification{Kind: KindGenericSensor}
}

// isNoise reports whether a message is firmware chatter.
func isNoise(topic string, payload []byte) bool {
	for _, marker := range noiseMarkers {
		if strings.Contains(topic, marker) {
			return true
		}
	}
	text := string(payload)
	for _, tag := range logTags {
		if strings.HasPrefix(text, tag) {
			return true
		}
	}
	return false
}

// decodeState extracts an on/off state from a status payload.
//
// The hardware publishes JSON like {"state":"on"}; older firmware sends
// a bare string. Truthy values are the string "on"/"1"/"true" (any
// casing), the number 1 and the boolean true.
func decodeState(payload []byte) bool {
	var body struct {
		State interface{} `json:"state"`
	}
	if err := json.Unmarshal(payload, &body); err == nil && body.State != nil {
		return truthy(body.State)
	}
	return truthy(strings.TrimSpace(string(payload)))
}

// truthy interprets the loosely-typed state values the firmware sends.
func truthy(v interface{}) bool {
	switch s := v.(type) {
	case bool:
		return s
	case float64:
		return s == 1
	case string:
		return strings.EqualFold(s, "on") || s == "1" || strings.EqualFold(s, "true")
	default:
		return false
	}
}
