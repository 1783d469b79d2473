// Package api implements the HTTP REST API and WebSocket server for
// Motion Core.
//
// This package provides:
//   - REST endpoints for sequence CRUD and hardware configuration
//   - Run control endpoints driving the playback engine
//   - WebSocket hub for real-time playback event broadcasts
//   - Middleware stack (request ID, logging, recovery, CORS)
//
// # Architecture
//
// The API server sits between the operator UI and the playback engine +
// registries. Run control commands are accepted synchronously (the
// engine validates and queues them); progress flows back through the
// engine's event stream, which the server relays to WebSocket clients
// on the "sequence.event" channel and mirrors onto the MQTT bus.
//
// # Graceful Degradation
//
// The server operates without MQTT: sequence and device CRUD and
// WebSocket connections keep working, only playback start fails at the
// first action step's send.
package api
