// Package gateway binds the playback engine to the hardware
// controllers over MQTT.
//
// ┌─────────────────────────────────────────────────────────────┐
// │                         Gateway                             │
// │                                                             │
// │  playback.Command ──► motion/command/{controller}/{device}  │
// │                                                             │
// │  motion/ack/+/+ ──────► AckHandler (engine correlator)      │
// │  motion/health/+ ─────► controller health map               │
// │                                                             │
// │  playback.Event ──────► motion/core/run/{seq}/event         │
// │                         motion/core/run/{seq}/progress (R)  │
// └─────────────────────────────────────────────────────────────┘
//
// Commands are routed by looking the target device up in the device
// registry; a device with no known controller is a synchronous send
// error, which the engine turns into a failed run.
//
// Acknowledgments are forwarded unfiltered. The broker connection is
// shared with manual jog and status-poll traffic, so acknowledgments
// for commands the engine never sent are normal; the engine's
// correlator discards them by command id. The gateway itself only
// consults its own sent-command timestamps for round-trip latency
// telemetry.
//
// Connection loss is not observed here: the MQTT client's disconnect
// callback is wired straight to the engine in main, keeping the
// gateway free of engine lifecycle concerns.
package gateway
