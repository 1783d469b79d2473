// Package playback implements the sequence execution engine: the
// scheduler that replays a recorded list of timed hardware actions
// against the device gateway.
//
// ┌────────────────────────────────────────────────────────────────┐
// │                          playback                              │
// │                                                                │
// │  Start/Pause/Resume/Stop/SetSpeed                              │
// │        │                                                       │
// │        ▼                                                       │
// │  command queue ──► worker ──► Wait (timing)                    │
// │                      │   └──► Correlator ──► Gateway (MQTT)    │
// │                      │              ▲                          │
// │                      │         HandleAck                       │
// │                      ▼                                         │
// │                  Publisher ──► subscribers (WS relay, logs)    │
// └────────────────────────────────────────────────────────────────┘
//
// # Execution Model
//
// The engine is logically single-threaded: every run state mutation
// happens on one worker goroutine consuming a serialized command
// queue. The worker suspends at exactly one multi-way select, waiting
// for whichever comes first: the active step's timer, a device
// acknowledgment, a gateway disconnect, or a new external command.
// There is no polling, and a stop takes effect within one scheduling
// quantum regardless of what the worker is awaiting.
//
// # Step Semantics
//
// Delay steps wait durationMs / speedMultiplier wall-clock time.
// Action steps dispatch a correlated command and complete on whichever
// resolves first: the device's acknowledgment, or a bounded timeout
// derived from the step's declared speed and acceleration. The timeout
// is a soft success (the device is assumed to have reached target); a
// gateway disconnect is a hard failure that aborts the run.
//
// # Timing Under Pause and Speed Change
//
// Remaining time is tracked in nominal (unscaled) milliseconds.
// Pausing converts elapsed wall-clock time back to nominal time at the
// active speed and freezes the remainder; resuming or changing speed
// rescales only that remainder. Elapsed time is never revisited, so
// there is no drift across arbitrarily many pause/resume/speed cycles.
//
// # Error Surface
//
// Validation errors are returned synchronously from Start. Runtime
// failures during playback are never returned from the command API:
// they are reported through the error event, after which the engine
// resets to idle, immediately ready for a new Start.
package playback
