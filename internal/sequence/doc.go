// Package sequence provides sequence definition management for Motion Core.
//
// ┌─────────────────────────────────────────────────────────┐
// │                       sequence                          │
// │                                                         │
// │   API handlers ──► Registry (cache) ──► Repository      │
// │                        │                  (SQLite)      │
// │                        │                                │
// │   playback engine ◄────┘  read-only snapshots           │
// └─────────────────────────────────────────────────────────┘
//
// A sequence is a named, ordered list of steps: device actions (moveTo,
// clamp, setAngle...) and pure delays. Sequences are authored through
// the HTTP API and replayed by the playback engine.
//
// # Immutability During Playback
//
// Once a run starts, the running sequence's steps are frozen: Update
// and Delete return ErrRunning until the run ends. The engine itself
// works from a deep copy taken at start, so even a racing edit cannot
// affect an in-flight run.
//
// # Caching
//
// The Registry keeps all sequences in memory and hands out deep copies,
// so callers never share mutable state with the cache. The cache is
// rebuilt from SQLite at startup and kept in sync by CRUD operations.
package sequence
