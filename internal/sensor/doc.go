// Package sensor persists raw sensor payloads for history queries.
//
// Readings are appended as they arrive from MQTT and served back through
// the history API. The payload is stored verbatim as JSON text; no
// interpretation happens here.
package sensor
