// Package device tracks the on/off state of controllable home devices.
//
// State changes arrive from three directions:
//   - local: REST control requests handled by this backend
//   - external: commands observed on the shared MQTT control topic,
//     published by other apps or services
//   - status-echo: confirmation messages published by the hardware itself
//
// The Reconciler applies last-write-wins semantics across all three
// sources. Whichever update arrives last becomes the current state; there
// is no conflict resolution beyond arrival order. This matches how the
// physical devices behave - the most recent command wins.
package device
