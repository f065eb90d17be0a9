// Package dispatch routes incoming MQTT traffic to the right handler.
//
// Every message is first classified by topic shape and payload:
//
//   - noise: firmware debug chatter, dropped silently
//   - switch echo: physical switch/button presses, cached and broadcast
//     but never persisted (they are transient UI events)
//   - external control: commands from other apps on the shared control
//     topic, reconciled into device state with a user notification
//   - status update: hardware confirmations on the per-device status
//     topics, reconciled without a notification
//   - face event: camera recognition payloads
//   - generic sensor: everything else, cached, broadcast and persisted
//
// The Dispatcher is the single reconciliation authority: REST handlers
// and MQTT subscriptions both funnel state changes through it so cache,
// reconcilers, persistence and WebSocket broadcast stay consistent.
package dispatch
