// Package influxdb provides time-series telemetry mirroring for Home Core.
//
// Numeric fields from incoming sensor payloads and device state changes
// are mirrored into InfluxDB for dashboards and historical queries. The
// SQLite database remains the source of truth; this mirror is best-effort
// and failures never affect message handling.
//
// # Features
//
//   - Non-blocking writes with automatic batching
//   - Async error reporting via callback
//   - Health monitoring
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    // InfluxDB is optional; log and continue
//	}
//	defer client.Close()
//
//	client.WriteSensorMetric("esp/sensors", "temperature", 21.5)
package influxdb
