package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteSensorMetric writes a single numeric sensor field to InfluxDB.
//
// This is the primary method for mirroring sensor telemetry. The write is
// non-blocking; data is batched and sent asynchronously.
//
// Parameters:
//   - topic: The MQTT topic the reading arrived on (e.g., "esp/sensors")
//   - field: The field name within the payload (e.g., "temperature")
//   - value: The numeric value to record
//
// Example:
//
//	client.WriteSensorMetric("esp/sensors", "temperature", 21.5)
//	client.WriteSensorMetric("esp/sensors", "humidity", 48.0)
func (c *Client) WriteSensorMetric(topic string, field string, value float64) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"sensor_data",
		map[string]string{
			"topic": topic,
			"field": field,
		},
		map[string]interface{}{
			"value": value,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteDeviceState records an on/off transition for a controlled device.
//
// State is stored as 1 (on) or 0 (off) so dashboards can plot duty cycles.
//
// Parameters:
//   - device: Device identifier (e.g., "water-motor")
//   - isOn: The new state
//   - source: What caused the change ("local", "external", "status-echo")
func (c *Client) WriteDeviceState(device string, isOn bool, source string) {
	if !c.IsConnected() {
		return
	}

	state := 0.0
	if isOn {
		state = 1.0
	}

	point := write.NewPoint(
		"device_state",
		map[string]string{
			"device": device,
			"source": source,
		},
		map[string]interface{}{
			"state": state,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for custom measurements that don't fit the helper methods.
//
// Parameters:
//   - measurement: The measurement name (table)
//   - tags: Key-value pairs for indexing (low cardinality)
//   - fields: Key-value pairs for the actual data
//
// Example:
//
//	client.WritePoint("system_stats",
//	    map[string]string{"host": "core-01"},
//	    map[string]interface{}{"cpu_percent": 45.2, "memory_mb": 512})
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}

// WritePointWithTime writes a custom point with a specific timestamp.
//
// Use this when the timestamp is not "now" (e.g., delayed data).
//
// Parameters:
//   - measurement: The measurement name
//   - tags: Key-value pairs for indexing
//   - fields: Key-value pairs for the data
//   - timestamp: The exact time for this data point
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, timestamp)
	c.writeAPI.WritePoint(point)
}
