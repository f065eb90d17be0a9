package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"homecore/internal/device"
	"homecore/internal/face"
	"homecore/internal/inventory"
	"homecore/internal/sensor"
)

// WebSocket event names pushed to dashboard clients.
const (
	EventSensorUpdate      = "sensor_update"
	EventDeviceStateChange = "device_state_change"
	EventFridgeUpdate      = "fridge_update"
	EventFridgeAlert       = "fridge_alert"
	EventFaceDetected      = "face_detected"
	EventNotification      = "notification"
)

// Broadcaster pushes events to connected dashboard clients.
type Broadcaster interface {
	Broadcast(event string, data interface{})
}

// Metrics mirrors numeric readings into a time-series store.
type Metrics interface {
	WriteSensorMetric(topic string, field string, value float64)
	WriteDeviceState(device string, isOn bool, source string)
}

// Logger defines the logging interface used by the Dispatcher.
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

// Deps are the collaborators a Dispatcher coordinates.
//
// Readings and Metrics may be nil; persistence and telemetry mirroring
// are then skipped.
type Deps struct {
	Rules       Rules
	Cache       *Cache
	Devices     *device.Reconciler
	Inventory   *inventory.Reconciler
	Faces       *face.Recorder
	Readings    sensor.Repository
	Metrics     Metrics
	Broadcaster Broadcaster
	Logger      Logger

	// FridgeTopic is the MQTT topic carrying inventory events.
	FridgeTopic string
}

// Dispatcher is the single reconciliation authority. MQTT subscriptions
// and REST handlers both funnel state changes through it so the cache,
// the reconcilers, persistence and WebSocket broadcast stay consistent.
type Dispatcher struct {
	rules       Rules
	cache       *Cache
	devices     *device.Reconciler
	inventory   *inventory.Reconciler
	faces       *face.Recorder
	readings    sensor.Repository
	metrics     Metrics
	broadcaster Broadcaster
	logger      Logger
	fridgeTopic string

	// Commands published by this backend loop back on the shared control
	// topic. They are remembered briefly so the echo is not re-applied as
	// an external command.
	mu          sync.Mutex
	localEchoes map[string]localEcho
}

// localEcho is a recently issued local command awaiting its bus echo.
type localEcho struct {
	isOn bool
	at   time.Time
}

// localEchoWindow is how long a local command absorbs a matching echo.
const localEchoWindow = 5 * time.Second

// New creates a dispatcher from its dependencies.
func New(deps Deps) *Dispatcher {
	if deps.Logger == nil {
		deps.Logger = noopLogger{}
	}
	return &Dispatcher{
		rules:       deps.Rules,
		cache:       deps.Cache,
		devices:     deps.Devices,
		inventory:   deps.Inventory,
		faces:       deps.Faces,
		readings:    deps.Readings,
		metrics:     deps.Metrics,
		broadcaster: deps.Broadcaster,
		logger:      deps.Logger,
		fridgeTopic: deps.FridgeTopic,
		localEchoes: make(map[string]localEcho),
	}
}

// deviceStateEvent is the device_state_change broadcast payload.
type deviceStateEvent struct {
	Device    string        `json:"device"`
	State     string        `json:"state"`
	Source    device.Source `json:"source"`
	Timestamp time.Time     `json:"timestamp"`
}

// notificationEvent is the notification broadcast payload.
type notificationEvent struct {
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// fridgeAlertEvent is the fridge_alert broadcast payload. It doubles as
// the alert field of fridge_update events.
type fridgeAlertEvent struct {
	Type      string    `json:"type"`
	Item      string    `json:"item"`
	Quantity  int       `json:"quantity"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// alertTypeLowStock is the only alert type currently emitted.
const alertTypeLowStock = "low_stock"

// fridgeUpdateEvent is the fridge_update broadcast payload. Alert is
// nil unless the mutation left the item low on stock.
type fridgeUpdateEvent struct {
	Item     string            `json:"item"`
	Quantity int               `json:"quantity"`
	Action   string            `json:"action"`
	Image    string            `json:"image,omitempty"`
	Alert    *fridgeAlertEvent `json:"alert"`
}

// HandleMessage processes one incoming MQTT message.
//
// The signature matches mqtt.MessageHandler so the dispatcher can be
// subscribed directly. Returned errors are logged by the MQTT client
// wrapper; message handling never panics upward.
func (d *Dispatcher) HandleMessage(topic string, payload []byte) error {
	if topic == d.fridgeTopic {
		// The fridge topic is handled like any other sensor topic
		// (cache, broadcast, persist) with the inventory apply on top.
		d.cacheAndBroadcast(topic, payload)
		d.persistReading(topic, payload)
		return d.handleFridgeMessage(payload)
	}

	c := d.rules.Classify(topic, payload)

	d.logger.Debug("message classified",
		"topic", topic,
		"kind", c.Kind.String(),
	)

	switch c.Kind {
	case KindNoise:
		return nil

	case KindSwitchEcho:
		d.cacheAndBroadcast(topic, payload)
		return nil

	case KindExternalControl:
		d.cacheAndBroadcast(topic, payload)
		if d.absorbLocalEcho(c.Device, c.IsOn) {
			d.logger.Debug("own control command echoed back", "device", c.Device)
			return nil
		}
		d.ApplyDeviceCommand(context.Background(), c.Device, c.IsOn, device.SourceExternal)
		return nil

	case KindStatusUpdate:
		d.cacheAndBroadcast(topic, payload)
		d.ApplyDeviceCommand(context.Background(), c.Device, c.IsOn, device.SourceStatusEcho)
		return nil

	case KindFaceEvent:
		d.cacheAndBroadcast(topic, payload)
		return d.handleFaceMessage(payload)

	case KindGenericSensor:
		d.cacheAndBroadcast(topic, payload)
		d.persistReading(topic, payload)
		return nil
	}

	return nil
}

// ApplyDeviceCommand reconciles a device state update and broadcasts
// the outcome. External commands additionally raise a notification so
// the dashboard can tell the user another app changed something.
func (d *Dispatcher) ApplyDeviceCommand(_ context.Context, name string, isOn bool, source device.Source) device.Change {
	change := d.devices.Apply(name, isOn, source)

	if source == device.SourceLocal {
		d.markLocalCommand(change.Device, change.IsOn)
	}

	state := "off"
	if change.IsOn {
		state = "on"
	}
	d.broadcaster.Broadcast(EventDeviceStateChange, deviceStateEvent{
		Device:    change.Device,
		State:     state,
		Source:    change.Source,
		Timestamp: time.Now(),
	})

	if d.metrics != nil {
		d.metrics.WriteDeviceState(change.Device, change.IsOn, string(change.Source))
	}

	if source == device.SourceExternal {
		label := "OFF"
		if isOn {
			label = "ON"
		}
		d.broadcaster.Broadcast(EventNotification, notificationEvent{
			Type:      "info",
			Message:   fmt.Sprintf("%s turned %s by external app", name, label),
			Timestamp: time.Now(),
		})
	}

	return change
}

// markLocalCommand remembers a locally issued command so its echo on the
// shared control topic is absorbed instead of re-applied as external.
func (d *Dispatcher) markLocalCommand(name string, isOn bool) {
	d.mu.Lock()
	d.localEchoes[name] = localEcho{isOn: isOn, at: time.Now()}
	d.mu.Unlock()
}

// absorbLocalEcho reports whether an inbound control command matches a
// recently issued local one. A match is consumed.
func (d *Dispatcher) absorbLocalEcho(name string, isOn bool) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	echo, ok := d.localEchoes[name]
	if !ok {
		return false
	}
	if echo.isOn != isOn || time.Since(echo.at) > localEchoWindow {
		return false
	}
	delete(d.localEchoes, name)
	return true
}

// ApplyInventoryUpdate reconciles an inventory change and broadcasts
// the result, raising a fridge_alert when stock runs low.
func (d *Dispatcher) ApplyInventoryUpdate(ctx context.Context, name string, quantity int, action string) (inventory.Update, error) {
	update, err := d.inventory.Apply(ctx, name, quantity, action)
	if err != nil {
		return inventory.Update{}, err
	}

	var alert *fridgeAlertEvent
	if update.LowStock {
		alert = &fridgeAlertEvent{
			Type:      alertTypeLowStock,
			Item:      update.Item.Name,
			Quantity:  update.Item.Quantity,
			Message:   fmt.Sprintf("Low stock: %s (%d left)", update.Item.Name, update.Item.Quantity),
			Timestamp: time.Now(),
		}
		d.broadcaster.Broadcast(EventFridgeAlert, *alert)
	}

	d.broadcaster.Broadcast(EventFridgeUpdate, fridgeUpdateEvent{
		Item:     update.Item.Name,
		Quantity: update.Item.Quantity,
		Action:   update.Action,
		Alert:    alert,
	})

	return update, nil
}

// AttachItemImage records an uploaded photo for an inventory item and
// broadcasts the updated item.
func (d *Dispatcher) AttachItemImage(ctx context.Context, name string, path string) (inventory.Item, error) {
	item, err := d.inventory.AttachImage(ctx, name, path)
	if err != nil {
		return inventory.Item{}, err
	}
	d.broadcaster.Broadcast(EventFridgeUpdate, fridgeUpdateEvent{
		Item:     item.Name,
		Quantity: item.Quantity,
		Action:   "update",
		Image:    item.ImagePath,
		Alert:    nil,
	})
	return item, nil
}

// RecordDetection records a face recognition event and broadcasts it.
// Storage failures inside the recorder are logged, not returned; the
// broadcast always happens.
func (d *Dispatcher) RecordDetection(ctx context.Context, name string, status string, confidence float64) face.Detection {
	detection := d.faces.Record(ctx, name, status, confidence)
	d.broadcaster.Broadcast(EventFaceDetected, detection)
	return detection
}

// cacheAndBroadcast stores the latest value and pushes it to clients.
func (d *Dispatcher) cacheAndBroadcast(topic string, payload []byte) {
	d.cache.Set(topic, payload)
	entry, _ := d.cache.Get(topic)
	d.broadcaster.Broadcast(EventSensorUpdate, entry)
}

// handleFridgeMessage decodes an inventory event from the fridge unit.
func (d *Dispatcher) handleFridgeMessage(payload []byte) error {
	var body struct {
		Item     string `json:"item"`
		Quantity int    `json:"quantity"`
		Action   string `json:"action"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return fmt.Errorf("decoding fridge payload: %w", err)
	}
	if body.Action == "" {
		body.Action = inventory.ActionSet
	}

	_, err := d.ApplyInventoryUpdate(context.Background(), body.Item, body.Quantity, body.Action)
	if err != nil {
		return fmt.Errorf("applying fridge update: %w", err)
	}
	return nil
}

// handleFaceMessage decodes a camera recognition event.
func (d *Dispatcher) handleFaceMessage(payload []byte) error {
	var body struct {
		Name       string  `json:"name"`
		Status     string  `json:"status"`
		Confidence float64 `json:"confidence"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return fmt.Errorf("decoding face payload: %w", err)
	}
	if body.Status == "" {
		body.Status = face.StatusUnknown
	}

	d.RecordDetection(context.Background(), body.Name, body.Status, body.Confidence)
	return nil
}

// persistReading stores a generic sensor payload and mirrors numeric
// fields to the time-series store. Both are best-effort.
func (d *Dispatcher) persistReading(topic string, payload []byte) {
	// Only structured payloads are worth keeping
	if !strings.HasPrefix(strings.TrimSpace(string(payload)), "{") {
		return
	}

	var fields map[string]interface{}
	if err := json.Unmarshal(payload, &fields); err != nil {
		return
	}

	if d.readings != nil {
		if err := d.readings.Append(context.Background(), topic, string(payload)); err != nil {
			d.logger.Error("sensor reading persist failed",
				"topic", topic,
				"error", err,
			)
		}
	}

	if d.metrics != nil {
		for field, value := range fields {
			if v, ok := value.(float64); ok {
				d.metrics.WriteSensorMetric(topic, field, v)
			}
		}
	}
}
