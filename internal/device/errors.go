package device

import "errors"

var (
	// ErrNotFound indicates the requested device does not exist.
	ErrNotFound = errors.New("device: not found")

	// ErrControllerNotFound indicates the requested controller does not
	// exist.
	ErrControllerNotFound = errors.New("device: controller not found")

	// ErrExists indicates a create collided with an existing record.
	ErrExists = errors.New("device: already exists")

	// ErrInvalid indicates a validation failure.
	ErrInvalid = errors.New("device: invalid")

	// ErrControllerInUse indicates a controller delete was rejected
	// because devices are still attached to it.
	ErrControllerInUse = errors.New("device: controller has attached devices")

	// ErrChannelInUse indicates two devices on one controller claimed
	// the same channel.
	ErrChannelInUse = errors.New("device: channel already in use")
)
