package device

import "time"

// Controller represents one hardware controller board: the network
// endpoint that owns a set of channels and executes motion commands
// published to its command topic.
type Controller struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Host        *string `json:"host,omitempty"`
	Description *string `json:"description,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DeepCopy creates a complete independent copy of the Controller.
func (c *Controller) DeepCopy() *Controller {
	if c == nil {
		return nil
	}
	cpy := *c
	cpy.Host = cloneStringPtr(c.Host)
	cpy.Description = cloneStringPtr(c.Description)
	return &cpy
}

// DeviceType classifies what kind of actuator a device channel drives.
type DeviceType string

const (
	// DeviceTypeServo is a positional servo (angle setpoints).
	DeviceTypeServo DeviceType = "servo"

	// DeviceTypeStepper is a stepper axis (absolute/relative moves).
	DeviceTypeStepper DeviceType = "stepper"

	// DeviceTypeDigitalOutput is a simple on/off output (relay, solenoid).
	DeviceTypeDigitalOutput DeviceType = "digital-output"
)

// MotionLimits bounds what a device may be commanded to do. Optional;
// digital outputs typically have none.
type MotionLimits struct {
	MinPosition     float64 `json:"min_position"`
	MaxPosition     float64 `json:"max_position"`
	MaxSpeed        float64 `json:"max_speed,omitempty"`
	MaxAcceleration float64 `json:"max_acceleration,omitempty"`
}

// Device represents one addressable channel on a controller. Sequence
// action steps reference devices by id; the gateway resolves the owning
// controller to route the command.
type Device struct {
	ID           string     `json:"id"`
	ControllerID string     `json:"controller_id"`
	Name         string     `json:"name"`
	Type         DeviceType `json:"type"`

	// Channel is the device's index on its controller board.
	Channel int `json:"channel"`

	// Group optionally names a broadcast group (e.g. "grippers") that
	// action steps can target alongside the device id.
	Group *string `json:"group,omitempty"`

	Limits *MotionLimits `json:"limits,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DeepCopy creates a complete independent copy of the Device.
// Essential for cache isolation: callers may mutate the copy freely.
func (d *Device) DeepCopy() *Device {
	if d == nil {
		return nil
	}
	cpy := *d
	cpy.Group = cloneStringPtr(d.Group)
	if d.Limits != nil {
		limits := *d.Limits
		cpy.Limits = &limits
	}
	return &cpy
}

func cloneStringPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
