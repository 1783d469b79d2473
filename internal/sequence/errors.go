package sequence

import "errors"

// Domain errors for the sequence package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, sequence.ErrNotFound) {
//	    // handle not found case
//	}
var (
	// ErrNotFound is returned when a sequence ID does not exist.
	ErrNotFound = errors.New("sequence: not found")

	// ErrExists is returned when creating a sequence with an ID that already exists.
	ErrExists = errors.New("sequence: already exists")

	// ErrInvalid is returned when sequence validation fails.
	ErrInvalid = errors.New("sequence: invalid")

	// ErrInvalidStep is returned when a step fails validation.
	ErrInvalidStep = errors.New("sequence: invalid step")

	// ErrInvalidName is returned when a sequence name is empty or too long.
	ErrInvalidName = errors.New("sequence: invalid name")

	// ErrNoSteps is returned when a sequence has no steps defined.
	ErrNoSteps = errors.New("sequence: no steps")

	// ErrRunning is returned when modifying or deleting a sequence
	// that is currently being replayed. Steps are immutable once a
	// run starts.
	ErrRunning = errors.New("sequence: currently running")
)
