package device

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Validation limits.
const (
	// maxNameLength is the maximum length for controller and device names.
	maxNameLength = 100

	// maxDescriptionLen is the maximum length for controller descriptions.
	maxDescriptionLen = 500

	// maxChannel is the highest channel index a controller board exposes.
	maxChannel = 255
)

// GenerateID returns a new unique identifier.
func GenerateID() string {
	return uuid.New().String()
}

// ValidateController checks a controller record for structural validity.
//
// Returns:
//   - error: ErrInvalid (wrapped) describing the first problem found
func ValidateController(c *Controller) error {
	if c == nil {
		return fmt.Errorf("%w: controller is nil", ErrInvalid)
	}
	if err := validateName(c.Name); err != nil {
		return err
	}
	if c.Description != nil && len(*c.Description) > maxDescriptionLen {
		return fmt.Errorf("%w: description exceeds %d characters", ErrInvalid, maxDescriptionLen)
	}
	return nil
}

// ValidateDevice checks a device record for structural validity.
// Controller existence and channel uniqueness are registry concerns;
// this checks only the record itself.
func ValidateDevice(d *Device) error {
	if d == nil {
		return fmt.Errorf("%w: device is nil", ErrInvalid)
	}
	if err := validateName(d.Name); err != nil {
		return err
	}
	if d.ControllerID == "" {
		return fmt.Errorf("%w: device requires a controller_id", ErrInvalid)
	}

	switch d.Type {
	case DeviceTypeServo, DeviceTypeStepper, DeviceTypeDigitalOutput:
	default:
		return fmt.Errorf("%w: unrecognised device type %q", ErrInvalid, d.Type)
	}

	if d.Channel < 0 || d.Channel > maxChannel {
		return fmt.Errorf("%w: channel %d out of range [0,%d]", ErrInvalid, d.Channel, maxChannel)
	}
	if d.Group != nil && strings.TrimSpace(*d.Group) == "" {
		return fmt.Errorf("%w: group must not be blank", ErrInvalid)
	}

	if d.Limits != nil {
		if err := validateLimits(d.Limits); err != nil {
			return err
		}
	}
	return nil
}

// validateLimits checks motion bounds for internal consistency.
func validateLimits(l *MotionLimits) error {
	if l.MinPosition > l.MaxPosition {
		return fmt.Errorf("%w: min_position %v exceeds max_position %v", ErrInvalid, l.MinPosition, l.MaxPosition)
	}
	if l.MaxSpeed < 0 {
		return fmt.Errorf("%w: max_speed must not be negative", ErrInvalid)
	}
	if l.MaxAcceleration < 0 {
		return fmt.Errorf("%w: max_acceleration must not be negative", ErrInvalid)
	}
	return nil
}

func validateName(name string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return fmt.Errorf("%w: name must not be empty", ErrInvalid)
	}
	if len(name) > maxNameLength {
		return fmt.Errorf("%w: name exceeds %d characters", ErrInvalid, maxNameLength)
	}
	return nil
}
