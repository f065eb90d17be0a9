package dispatch

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"homecore/internal/device"
	"homecore/internal/face"
	"homecore/internal/inventory"
	"homecore/internal/sensor"
)

// mockBroadcaster records broadcast events in order.
type mockBroadcaster struct {
	events []broadcastEvent
}

type broadcastEvent struct {
	event string
	data  interface{}
}

func (m *mockBroadcaster) Broadcast(event string, data interface{}) {
	m.events = append(m.events, broadcastEvent{event: event, data: data})
}

func (m *mockBroadcaster) count(event string) int {
	n := 0
	for _, e := range m.events {
		if e.event == event {
			n++
		}
	}
	return n
}

// last returns the payload of the most recent broadcast of an event.
func (m *mockBroadcaster) last(event string) (interface{}, bool) {
	for i := len(m.events) - 1; i >= 0; i-- {
		if m.events[i].event == event {
			return m.events[i].data, true
		}
	}
	return nil, false
}

// index returns the position of the first broadcast of an event.
func (m *mockBroadcaster) index(event string) int {
	for i, e := range m.events {
		if e.event == event {
			return i
		}
	}
	return -1
}

// mockFaceRepo is a minimal face.Repository for dispatcher tests.
type mockFaceRepo struct {
	detections []face.Detection
	visits     map[string]int
}

func newMockFaceRepo() *mockFaceRepo {
	return &mockFaceRepo{visits: make(map[string]int)}
}

func (m *mockFaceRepo) InsertDetection(_ context.Context, d face.Detection) error {
	m.detections = append(m.detections, d)
	return nil
}

func (m *mockFaceRepo) RecentDetections(_ context.Context, _ int) ([]face.Detection, error) {
	return m.detections, nil
}

func (m *mockFaceRepo) UpsertVisit(_ context.Context, name string, _ time.Time) error {
	m.visits[name]++
	return nil
}

func (m *mockFaceRepo) ListKnownPersons(_ context.Context) ([]face.KnownPerson, error) {
	return nil, nil
}

func (m *mockFaceRepo) CreateKnownPerson(_ context.Context, _ string) error {
	return nil
}

func (m *mockFaceRepo) Stats(_ context.Context) (face.Stats, error) {
	return face.Stats{}, nil
}

// mockReadings records appended sensor readings.
type mockReadings struct {
	appended []string
}

func (m *mockReadings) Append(_ context.Context, topic string, payload string) error {
	m.appended = append(m.appended, topic+"="+payload)
	return nil
}

func (m *mockReadings) History(_ context.Context, _ string, _ time.Time, _ int) ([]sensor.Reading, error) {
	return nil, nil
}

// mockMetrics records mirrored metric writes.
type mockMetrics struct {
	sensorWrites []string
	stateWrites  []string
}

func (m *mockMetrics) WriteSensorMetric(topic string, field string, _ float64) {
	m.sensorWrites = append(m.sensorWrites, topic+"/"+field)
}

func (m *mockMetrics) WriteDeviceState(device string, _ bool, source string) {
	m.stateWrites = append(m.stateWrites, device+"@"+source)
}

type testHarness struct {
	dispatcher  *Dispatcher
	broadcaster *mockBroadcaster
	faceRepo    *mockFaceRepo
	readings    *mockReadings
	metrics     *mockMetrics
	cache       *Cache
	devices     *device.Reconciler
	inventory   *inventory.Reconciler
}

func newTestHarness() *testHarness {
	h := &testHarness{
		broadcaster: &mockBroadcaster{},
		faceRepo:    newMockFaceRepo(),
		readings:    &mockReadings{},
		metrics:     &mockMetrics{},
		cache:       NewCache(),
		devices:     device.NewReconciler([]string{"fan", "light"}),
		inventory:   inventory.NewReconciler(nil, 2),
	}
	h.dispatcher = New(Deps{
		Rules:       testRules(),
		Cache:       h.cache,
		Devices:     h.devices,
		Inventory:   h.inventory,
		Faces:       face.NewRecorder(h.faceRepo),
		Readings:    h.readings,
		Metrics:     h.metrics,
		Broadcaster: h.broadcaster,
		FridgeTopic: "fridge/inventory",
	})
	return h
}

func TestHandleMessage_NoiseDropped(t *testing.T) {
	h := newTestHarness()

	if err := h.dispatcher.HandleMessage("esp/debug", []byte("[D] booting")); err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}

	if len(h.broadcaster.events) != 0 {
		t.Errorf("noise produced %d broadcasts, want 0", len(h.broadcaster.events))
	}
	if h.cache.Len() != 0 {
		t.Error("noise was cached")
	}
}

func TestHandleMessage_SwitchEchoCachedNotPersisted(t *testing.T) {
	h := newTestHarness()

	if err := h.dispatcher.HandleMessage("esp/switch/kitchen", []byte(`{"pressed":true}`)); err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}

	if h.broadcaster.count(EventSensorUpdate) != 1 {
		t.Errorf("sensor_update broadcasts = %d, want 1", h.broadcaster.count(EventSensorUpdate))
	}
	if _, ok := h.cache.Get("esp/switch/kitchen"); !ok {
		t.Error("switch echo not cached")
	}
	if len(h.readings.appended) != 0 {
		t.Errorf("switch echo persisted: %v", h.readings.appended)
	}
}

func TestHandleMessage_ExternalControl(t *testing.T) {
	h := newTestHarness()

	if err := h.dispatcher.HandleMessage("home/control", []byte("water-motor on")); err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}

	state, ok := h.devices.Get("water-motor")
	if !ok || !state.IsOn {
		t.Errorf("device state = %+v, want water-motor on", state)
	}
	if state.Source != device.SourceExternal {
		t.Errorf("Source = %q, want external", state.Source)
	}
	if h.broadcaster.count(EventDeviceStateChange) != 1 {
		t.Errorf("device_state_change broadcasts = %d, want 1", h.broadcaster.count(EventDeviceStateChange))
	}
	if h.broadcaster.count(EventNotification) != 1 {
		t.Errorf("notification broadcasts = %d, want 1 for external control", h.broadcaster.count(EventNotification))
	}
	if len(h.metrics.stateWrites) != 1 || h.metrics.stateWrites[0] != "water-motor@external" {
		t.Errorf("metrics stateWrites = %v", h.metrics.stateWrites)
	}
}

func TestHandleMessage_StatusUpdateNoNotification(t *testing.T) {
	h := newTestHarness()

	if err := h.dispatcher.HandleMessage("home/sensors/water-motor", []byte(`{"state":"on"}`)); err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}

	state, _ := h.devices.Get("water-motor")
	if !state.IsOn || state.Source != device.SourceStatusEcho {
		t.Errorf("state = %+v, want on via status-echo", state)
	}
	if h.broadcaster.count(EventDeviceStateChange) != 1 {
		t.Errorf("device_state_change broadcasts = %d, want 1", h.broadcaster.count(EventDeviceStateChange))
	}
	if h.broadcaster.count(EventNotification) != 0 {
		t.Error("status echo raised a notification")
	}
}

func TestHandleMessage_FaceEvent(t *testing.T) {
	h := newTestHarness()

	payload := `{"name":"alice","status":"known","confidence":0.97}`
	if err := h.dispatcher.HandleMessage("esp/cam", []byte(payload)); err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}

	if len(h.faceRepo.detections) != 1 {
		t.Fatalf("detections = %d, want 1", len(h.faceRepo.detections))
	}
	if h.faceRepo.visits["alice"] != 1 {
		t.Errorf("visits[alice] = %d, want 1", h.faceRepo.visits["alice"])
	}
	if h.broadcaster.count(EventFaceDetected) != 1 {
		t.Errorf("face_detected broadcasts = %d, want 1", h.broadcaster.count(EventFaceDetected))
	}
	if h.broadcaster.count(EventSensorUpdate) != 1 {
		t.Errorf("sensor_update broadcasts = %d, want 1", h.broadcaster.count(EventSensorUpdate))
	}
}

func TestHandleMessage_FaceEventBadPayload(t *testing.T) {
	h := newTestHarness()

	if err := h.dispatcher.HandleMessage("esp/cam", []byte("not json")); err == nil {
		t.Error("HandleMessage() error = nil for malformed face payload")
	}
	if len(h.faceRepo.detections) != 0 {
		t.Error("malformed payload was recorded")
	}
}

func TestHandleMessage_GenericSensorPersisted(t *testing.T) {
	h := newTestHarness()

	payload := `{"temperature":21.5,"humidity":48,"unit":"C"}`
	if err := h.dispatcher.HandleMessage("esp/sensors", []byte(payload)); err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}

	if len(h.readings.appended) != 1 {
		t.Fatalf("readings appended = %d, want 1", len(h.readings.appended))
	}
	// Only numeric fields mirror to the time-series store
	if len(h.metrics.sensorWrites) != 2 {
		t.Errorf("metrics sensorWrites = %v, want temperature and humidity only", h.metrics.sensorWrites)
	}
	if h.broadcaster.count(EventSensorUpdate) != 1 {
		t.Errorf("sensor_update broadcasts = %d, want 1", h.broadcaster.count(EventSensorUpdate))
	}
}

func TestHandleMessage_GenericNonJSONNotPersisted(t *testing.T) {
	h := newTestHarness()

	if err := h.dispatcher.HandleMessage("esp/other", []byte("42")); err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}

	if len(h.readings.appended) != 0 {
		t.Errorf("non-object payload persisted: %v", h.readings.appended)
	}
	if h.broadcaster.count(EventSensorUpdate) != 1 {
		t.Error("non-object payload not broadcast")
	}
}

func TestHandleMessage_FridgeUpdate(t *testing.T) {
	h := newTestHarness()

	if err := h.dispatcher.HandleMessage("fridge/inventory", []byte(`{"item":"Milk","action":"add"}`)); err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}

	item, ok := h.inventory.Get("milk")
	if !ok || item.Quantity != 1 {
		t.Errorf("item = %+v, want milk quantity 1", item)
	}
	if h.broadcaster.count(EventFridgeUpdate) != 1 {
		t.Errorf("fridge_update broadcasts = %d, want 1", h.broadcaster.count(EventFridgeUpdate))
	}
	// Quantity 1 is at or below the threshold of 2
	if h.broadcaster.count(EventFridgeAlert) != 1 {
		t.Errorf("fridge_alert broadcasts = %d, want 1", h.broadcaster.count(EventFridgeAlert))
	}
}

func TestHandleMessage_FridgeDefaultActionIsSet(t *testing.T) {
	h := newTestHarness()

	if err := h.dispatcher.HandleMessage("fridge/inventory", []byte(`{"item":"eggs","quantity":12}`)); err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}

	item, _ := h.inventory.Get("eggs")
	if item.Quantity != 12 {
		t.Errorf("Quantity = %d, want 12", item.Quantity)
	}
	if h.broadcaster.count(EventFridgeAlert) != 0 {
		t.Error("fridge_alert raised above threshold")
	}
}

func TestHandleMessage_FridgeBadPayload(t *testing.T) {
	h := newTestHarness()

	if err := h.dispatcher.HandleMessage("fridge/inventory", []byte("oops")); err == nil {
		t.Error("HandleMessage() error = nil for malformed fridge payload")
	}
}

func TestHandleMessage_FridgeTopicCachedAndPersisted(t *testing.T) {
	h := newTestHarness()

	payload := `{"item":"eggs","quantity":12}`
	if err := h.dispatcher.HandleMessage("fridge/inventory", []byte(payload)); err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}

	if _, ok := h.cache.Get("fridge/inventory"); !ok {
		t.Error("fridge message not cached")
	}
	if h.broadcaster.count(EventSensorUpdate) != 1 {
		t.Errorf("sensor_update broadcasts = %d, want 1", h.broadcaster.count(EventSensorUpdate))
	}
	if len(h.readings.appended) != 1 {
		t.Errorf("readings appended = %d, want 1", len(h.readings.appended))
	}
	if item, ok := h.inventory.Get("eggs"); !ok || item.Quantity != 12 {
		t.Errorf("item = %+v, want eggs quantity 12", item)
	}
}

func TestHandleMessage_LocalCommandEchoAbsorbed(t *testing.T) {
	h := newTestHarness()

	h.dispatcher.ApplyDeviceCommand(context.Background(), "water-motor", true, device.SourceLocal)

	if err := h.dispatcher.HandleMessage("home/control", []byte("water-motor on")); err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}

	state, _ := h.devices.Get("water-motor")
	if state.Source != device.SourceLocal {
		t.Errorf("Source = %q, want local after absorbed echo", state.Source)
	}
	if h.broadcaster.count(EventNotification) != 0 {
		t.Error("absorbed echo raised a notification")
	}
	if h.broadcaster.count(EventDeviceStateChange) != 1 {
		t.Errorf("device_state_change broadcasts = %d, want 1 (local apply only)", h.broadcaster.count(EventDeviceStateChange))
	}

	// The echo is consumed; a second identical command is genuinely external.
	if err := h.dispatcher.HandleMessage("home/control", []byte("water-motor on")); err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}
	if h.broadcaster.count(EventNotification) != 1 {
		t.Errorf("notification broadcasts = %d, want 1 for repeated command", h.broadcaster.count(EventNotification))
	}
}

func TestHandleMessage_MismatchedEchoAppliesAsExternal(t *testing.T) {
	h := newTestHarness()

	h.dispatcher.ApplyDeviceCommand(context.Background(), "water-motor", true, device.SourceLocal)

	if err := h.dispatcher.HandleMessage("home/control", []byte("water-motor off")); err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}

	state, _ := h.devices.Get("water-motor")
	if state.IsOn || state.Source != device.SourceExternal {
		t.Errorf("state = %+v, want off via external", state)
	}
	if h.broadcaster.count(EventNotification) != 1 {
		t.Errorf("notification broadcasts = %d, want 1", h.broadcaster.count(EventNotification))
	}
}

func TestApplyDeviceCommand_LocalNoNotification(t *testing.T) {
	h := newTestHarness()

	change := h.dispatcher.ApplyDeviceCommand(context.Background(), "fan", true, device.SourceLocal)
	if !change.IsOn {
		t.Error("Change.IsOn = false")
	}
	if h.broadcaster.count(EventNotification) != 0 {
		t.Error("local command raised a notification")
	}
	if h.broadcaster.count(EventDeviceStateChange) != 1 {
		t.Error("local command not broadcast")
	}
}

func TestApplyInventoryUpdate_InvalidAction(t *testing.T) {
	h := newTestHarness()

	_, err := h.dispatcher.ApplyInventoryUpdate(context.Background(), "milk", 0, "increment")
	if err == nil {
		t.Error("ApplyInventoryUpdate() error = nil for invalid action")
	}
	if len(h.broadcaster.events) != 0 {
		t.Error("invalid update was broadcast")
	}
}

func TestAttachItemImage_Broadcasts(t *testing.T) {
	h := newTestHarness()

	item, err := h.dispatcher.AttachItemImage(context.Background(), "Milk", "uploads/fridge_1_milk.jpg")
	if err != nil {
		t.Fatalf("AttachItemImage() error = %v", err)
	}
	if item.ImagePath == "" {
		t.Error("ImagePath not set")
	}
	if h.broadcaster.count(EventFridgeUpdate) != 1 {
		t.Error("image attach not broadcast")
	}
	data, _ := h.broadcaster.last(EventFridgeUpdate)
	update, ok := data.(fridgeUpdateEvent)
	if !ok {
		t.Fatalf("fridge_update payload type = %T", data)
	}
	if update.Action != "update" || update.Image != item.ImagePath || update.Alert != nil {
		t.Errorf("fridge_update = %+v, want action update with image and no alert", update)
	}
}

func TestApplyDeviceCommand_BroadcastPayloads(t *testing.T) {
	h := newTestHarness()

	h.dispatcher.ApplyDeviceCommand(context.Background(), "fan", true, device.SourceExternal)

	data, ok := h.broadcaster.last(EventDeviceStateChange)
	if !ok {
		t.Fatal("device_state_change not broadcast")
	}
	change, ok := data.(deviceStateEvent)
	if !ok {
		t.Fatalf("device_state_change payload type = %T", data)
	}
	if change.Device != "fan" || change.State != "on" {
		t.Errorf("payload = %+v, want fan state on", change)
	}
	if change.Timestamp.IsZero() {
		t.Error("Timestamp not set")
	}

	raw, err := json.Marshal(change)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	for _, key := range []string{`"device"`, `"state":"on"`, `"source"`, `"timestamp"`} {
		if !strings.Contains(string(raw), key) {
			t.Errorf("device_state_change JSON %s missing %s", raw, key)
		}
	}

	data, _ = h.broadcaster.last(EventNotification)
	note, ok := data.(notificationEvent)
	if !ok {
		t.Fatalf("notification payload type = %T", data)
	}
	if note.Type != "info" || note.Message == "" || note.Timestamp.IsZero() {
		t.Errorf("notification = %+v, want type info with message and timestamp", note)
	}
}

func TestApplyInventoryUpdate_LowStockPayloads(t *testing.T) {
	h := newTestHarness()

	update, err := h.dispatcher.ApplyInventoryUpdate(context.Background(), "Milk", 0, inventory.ActionAdd)
	if err != nil {
		t.Fatalf("ApplyInventoryUpdate() error = %v", err)
	}
	if !update.LowStock {
		t.Fatal("LowStock = false at quantity 1 with threshold 2")
	}

	// The alert goes out before the update that carries it.
	alertIdx := h.broadcaster.index(EventFridgeAlert)
	updateIdx := h.broadcaster.index(EventFridgeUpdate)
	if alertIdx == -1 || updateIdx == -1 || alertIdx > updateIdx {
		t.Errorf("broadcast order alert=%d update=%d, want alert first", alertIdx, updateIdx)
	}

	data, _ := h.broadcaster.last(EventFridgeAlert)
	alert, ok := data.(fridgeAlertEvent)
	if !ok {
		t.Fatalf("fridge_alert payload type = %T", data)
	}
	if alert.Type != "low_stock" || alert.Item != "Milk" || alert.Quantity != 1 {
		t.Errorf("fridge_alert = %+v", alert)
	}
	if alert.Message == "" || alert.Timestamp.IsZero() {
		t.Errorf("fridge_alert = %+v, want message and timestamp", alert)
	}

	data, _ = h.broadcaster.last(EventFridgeUpdate)
	fu, ok := data.(fridgeUpdateEvent)
	if !ok {
		t.Fatalf("fridge_update payload type = %T", data)
	}
	if fu.Item != "Milk" || fu.Quantity != 1 || fu.Action != inventory.ActionAdd {
		t.Errorf("fridge_update = %+v", fu)
	}
	if fu.Alert == nil || fu.Alert.Type != "low_stock" {
		t.Errorf("fridge_update alert = %+v, want embedded low_stock alert", fu.Alert)
	}

	raw, err := json.Marshal(fu)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	for _, key := range []string{`"item"`, `"quantity"`, `"action"`, `"alert"`} {
		if !strings.Contains(string(raw), key) {
			t.Errorf("fridge_update JSON %s missing %s", raw, key)
		}
	}
}

func TestApplyInventoryUpdate_NoAlertAboveThreshold(t *testing.T) {
	h := newTestHarness()

	if _, err := h.dispatcher.ApplyInventoryUpdate(context.Background(), "eggs", 12, inventory.ActionSet); err != nil {
		t.Fatalf("ApplyInventoryUpdate() error = %v", err)
	}

	if h.broadcaster.count(EventFridgeAlert) != 0 {
		t.Error("fridge_alert raised above threshold")
	}
	data, _ := h.broadcaster.last(EventFridgeUpdate)
	fu := data.(fridgeUpdateEvent)
	if fu.Alert != nil {
		t.Errorf("Alert = %+v, want nil", fu.Alert)
	}
	raw, err := json.Marshal(fu)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if !strings.Contains(string(raw), `"alert":null`) {
		t.Errorf("fridge_update JSON = %s, want explicit null alert", raw)
	}
}
