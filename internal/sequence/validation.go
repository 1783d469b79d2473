package sequence

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Validation constants.
const (
	maxNameLength     = 100
	maxDescriptionLen = 500
	maxSteps          = 1000
	maxDelayMS        = 3600000 // 1 hour
	minSpeedValue     = 0.0
)

// Validate performs comprehensive validation on a sequence.
// Returns an error describing the first validation failure found.
func Validate(s *Sequence) error {
	if s == nil {
		return ErrInvalid
	}

	if err := ValidateName(s.Name); err != nil {
		return err
	}

	if s.Description != nil && len(*s.Description) > maxDescriptionLen {
		return fmt.Errorf("%w: description exceeds %d characters", ErrInvalid, maxDescriptionLen)
	}

	if len(s.Steps) == 0 {
		return ErrNoSteps
	}
	if len(s.Steps) > maxSteps {
		return fmt.Errorf("%w: exceeds maximum of %d steps", ErrInvalidStep, maxSteps)
	}

	return ValidateSteps(s.Steps)
}

// ValidateName checks if a sequence name is valid.
func ValidateName(name string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return fmt.Errorf("%w: name cannot be empty", ErrInvalidName)
	}
	if len(name) > maxNameLength {
		return fmt.Errorf("%w: name exceeds %d characters", ErrInvalidName, maxNameLength)
	}
	return nil
}

// ValidateSteps checks every step in order, returning the first failure
// with its index. The playback engine runs this once at start; a
// malformed sequence never begins playing.
func ValidateSteps(steps []Step) error {
	for i, step := range steps {
		if err := ValidateStep(step); err != nil {
			return fmt.Errorf("step[%d]: %w", i, err)
		}
	}
	return nil
}

// ValidateStep checks a single step.
//
// Action steps require a device ID and an action verb. Delay steps
// require a non-negative duration.
func ValidateStep(step Step) error {
	switch step.Type {
	case StepTypeAction:
		if step.DeviceID == "" {
			return fmt.Errorf("%w: device_id is required", ErrInvalidStep)
		}
		if step.Action == "" {
			return fmt.Errorf("%w: action is required", ErrInvalidStep)
		}
		if step.Speed != nil && *step.Speed <= minSpeedValue {
			return fmt.Errorf("%w: speed must be positive", ErrInvalidStep)
		}
		if step.Acceleration != nil && *step.Acceleration <= minSpeedValue {
			return fmt.Errorf("%w: acceleration must be positive", ErrInvalidStep)
		}
		return nil
	case StepTypeDelay:
		if step.DurationMS < 0 {
			return fmt.Errorf("%w: duration_ms cannot be negative", ErrInvalidStep)
		}
		if step.DurationMS > maxDelayMS {
			return fmt.Errorf("%w: duration_ms exceeds %d", ErrInvalidStep, maxDelayMS)
		}
		return nil
	default:
		return fmt.Errorf("%w: unrecognised step type %q", ErrInvalidStep, step.Type)
	}
}

// GenerateID creates a new UUID for a sequence or step.
func GenerateID() string {
	return uuid.New().String()
}
