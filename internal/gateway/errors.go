package gateway

import "errors"

var (
	// ErrUnknownDevice indicates no configured controller drives the
	// addressed device.
	ErrUnknownDevice = errors.New("gateway: unknown device")

	// ErrInvalidMessage indicates an inbound payload that could not be
	// decoded.
	ErrInvalidMessage = errors.New("gateway: invalid message")

	// ErrInvalidTopic indicates an inbound topic that does not match the
	// expected shape.
	ErrInvalidTopic = errors.New("gateway: invalid topic")
)
