package dispatch

import (
	"testing"

	"homecore/internal/infrastructure/config"
)

func testRules() Rules {
	return NewRules(config.HomeConfig{
		Topics: config.TopicsConfig{
			Sensors:      "esp/sensors",
			Camera:       "esp/cam",
			Control:      "home/control",
			StatusPrefix: "home/sensors",
		},
		ControlDevices: []config.ControlDeviceConfig{
			{Name: "water-motor", Match: "water-motor"},
		},
	})
}

func TestClassify(t *testing.T) {
	rules := testRules()

	tests := []struct {
		name    string
		topic   string
		payload string
		want    Classification
	}{
		{
			name:    "debug topic is noise",
			topic:   "esp/debug",
			payload: "boot sequence complete",
			want:    Classification{Kind: KindNoise},
		},
		{
			name:    "status topic is noise",
			topic:   "esp/status",
			payload: "alive",
			want:    Classification{Kind: KindNoise},
		},
		{
			name:    "debug log tag is noise",
			topic:   "esp/sensors",
			payload: "[D] wifi reconnected",
			want:    Classification{Kind: KindNoise},
		},
		{
			name:    "error log tag is noise",
			topic:   "esp/sensors",
			payload: "[E] sensor read failed",
			want:    Classification{Kind: KindNoise},
		},
		{
			name:    "switch topic is echo",
			topic:   "esp/switch/kitchen",
			payload: `{"pressed":true}`,
			want:    Classification{Kind: KindSwitchEcho},
		},
		{
			name:    "button topic is echo",
			topic:   "esp/button/1",
			payload: "1",
			want:    Classification{Kind: KindSwitchEcho},
		},
		{
			name:    "switch as bare substring is not an echo",
			topic:   "esp/switcher",
			payload: "42",
			want:    Classification{Kind: KindGenericSensor},
		},
		{
			name:    "button as bare substring is not an echo",
			topic:   "esp/pushbutton",
			payload: "42",
			want:    Classification{Kind: KindGenericSensor},
		},
		{
			name:    "external on command",
			topic:   "home/control",
			payload: "water-motor on",
			want:    Classification{Kind: KindExternalControl, Device: "water-motor", IsOn: true},
		},
		{
			name:    "external off command",
			topic:   "home/control",
			payload: "water-motor off",
			want:    Classification{Kind: KindExternalControl, Device: "water-motor", IsOn: false},
		},
		{
			name:    "external command is case-insensitive",
			topic:   "home/control",
			payload: "WATER-MOTOR ON",
			want:    Classification{Kind: KindExternalControl, Device: "water-motor", IsOn: true},
		},
		{
			name:    "control command for untracked device falls through",
			topic:   "home/control",
			payload: "garage-door open",
			want:    Classification{Kind: KindGenericSensor},
		},
		{
			name:    "status update on",
			topic:   "home/sensors/water-motor",
			payload: `{"state":"on"}`,
			want:    Classification{Kind: KindStatusUpdate, Device: "water-motor", IsOn: true},
		},
		{
			name:    "status update off",
			topic:   "home/sensors/water-motor",
			payload: `{"state":"off"}`,
			want:    Classification{Kind: KindStatusUpdate, Device: "water-motor", IsOn: false},
		},
		{
			name:    "face event",
			topic:   "esp/cam",
			payload: `{"name":"alice","status":"known","confidence":0.97}`,
			want:    Classification{Kind: KindFaceEvent},
		},
		{
			name:    "sensor payload is generic",
			topic:   "esp/sensors",
			payload: `{"temperature":21.5,"humidity":48}`,
			want:    Classification{Kind: KindGenericSensor},
		},
		{
			name:    "unknown topic is generic",
			topic:   "esp/other",
			payload: "42",
			want:    Classification{Kind: KindGenericSensor},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := rules.Classify(tt.topic, []byte(tt.payload))
			if got != tt.want {
				t.Errorf("Classify(%q, %q) = %+v, want %+v", tt.topic, tt.payload, got, tt.want)
			}
		})
	}
}

func TestDecodeState(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    bool
	}{
		{"json state on", `{"state":"on"}`, true},
		{"json state upper", `{"state":"ON"}`, true},
		{"json state numeric one", `{"state":1}`, true},
		{"json state bool", `{"state":true}`, true},
		{"json state off", `{"state":"off"}`, false},
		{"json state zero", `{"state":0}`, false},
		{"json state bool false", `{"state":false}`, false},
		{"bare on", "on", true},
		{"bare ON", "ON", true},
		{"bare one", "1", true},
		{"bare true", "TRUE", true},
		{"bare off", "off", false},
		{"garbage", "???", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := decodeState([]byte(tt.payload)); got != tt.want {
				t.Errorf("decodeState(%q) = %v, want %v", tt.payload, got, tt.want)
			}
		})
	}
}

func TestKindString(t *testing.T) {
	kinds := map[Kind]string{
		KindNoise:           "noise",
		KindSwitchEcho:      "switch_echo",
		KindExternalControl: "external_control",
		KindStatusUpdate:    "status_update",
		KindFaceEvent:       "face_event",
		KindGenericSensor:   "generic_sensor",
	}
	for kind, want := range kinds {
		if kind.String() != want {
			t.Errorf("Kind(%d).String() = %q, want %q", kind, kind.String(), want)
		}
	}
}
