// Package inventory tracks fridge stock levels.
//
// Updates arrive from the fridge camera unit over MQTT and from the REST
// API. Item identity is case-insensitive: "Milk", "milk" and "MILK" are
// the same item. The display name keeps the casing from whichever update
// was seen first.
//
// Quantities never go below zero. When an update leaves an item at or
// below the low-stock threshold, the update is flagged so observers can
// raise an alert.
//
// The in-memory table is the runtime source of truth; SQLite persistence
// is best-effort. A failed write is logged and the update still takes
// effect, so a flaky disk never blocks inventory tracking.
package inventory
