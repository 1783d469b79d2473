package playback

import "errors"

// Domain errors for the playback package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, playback.ErrAlreadyRunning) {
//	    // handle busy engine
//	}
var (
	// ErrInvalidStep is returned from Start when step validation fails.
	// The sequence never enters playback.
	ErrInvalidStep = errors.New("playback: invalid step")

	// ErrAlreadyRunning is returned from Start while a run is in progress.
	ErrAlreadyRunning = errors.New("playback: already running")

	// ErrNotRunning is returned when pause, resume, stop, or setSpeed
	// is called from an incompatible phase.
	ErrNotRunning = errors.New("playback: not running")

	// ErrNotPaused is returned when resume is called while not paused.
	ErrNotPaused = errors.New("playback: not paused")

	// ErrGatewayDisconnected indicates the device gateway dropped while
	// a run was in progress. Reported through the error event; the run
	// aborts and the engine resets to idle.
	ErrGatewayDisconnected = errors.New("playback: gateway disconnected")

	// ErrEngineClosed is returned from commands after Close.
	ErrEngineClosed = errors.New("playback: engine closed")
)
