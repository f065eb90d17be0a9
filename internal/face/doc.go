// Package face records camera face-recognition events.
//
// The camera unit publishes a JSON event on esp/cam for every recognition
// attempt. Every event is appended to the detection log. Events for a
// known, named person additionally bump that person's visit counter and
// last-seen timestamp.
//
// Storage is fire-and-forget: a failed write is logged and the event is
// still broadcast to dashboard clients, so recognition stays live even
// when the database misbehaves.
package face
