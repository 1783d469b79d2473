// Package device manages the hardware configuration: controllers and
// the addressable devices attached to their channels.
//
// ┌─────────────────────────────────────────────────────────┐
// │                       Registry                          │
// │                                                         │
// │   controllers ───┐                                      │
// │                  ├── in-memory cache (deep copies)      │
// │   devices ───────┘                                      │
// │                           │                             │
// │                           ▼                             │
// │                   SQLiteRepository                      │
// └─────────────────────────────────────────────────────────┘
//
// A Controller is one hardware board on the MQTT bus; a Device is one
// channel on a board (servo, stepper axis, or digital output), with
// optional motion limits and a broadcast group.
//
// The registry serves ControllerFor lookups during playback: the
// gateway resolves every action step's device id to its controller to
// build the command topic. Lookups are cache-only, so routing never
// blocks on the database mid-sequence.
//
// Deleting a controller with attached devices is rejected; a sequence
// step referencing a deleted device fails at send time with an unknown
// device error, which aborts the run cleanly.
package device
