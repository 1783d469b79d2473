package sequence

import "time"

// Sequence represents a named, ordered list of timed hardware steps
// recorded against a device configuration. Sequences are replayed by
// the playback engine; the engine borrows a read-only snapshot for the
// duration of one run.
type Sequence struct {
	// Identity
	ID   string `json:"id"`
	Name string `json:"name"`

	// Description (optional)
	Description *string `json:"description,omitempty"`

	// Steps to replay (ordered)
	Steps []Step `json:"steps"`

	// Timestamps
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// StepType discriminates the step union.
type StepType string

const (
	// StepTypeAction is a command applied to one addressed device.
	StepTypeAction StepType = "action"

	// StepTypeDelay is a pure wait with no device interaction.
	StepTypeDelay StepType = "delay"
)

// Step is one unit of playback: an action (device command) or a delay
// (pure wait). The Type field selects which of the remaining fields are
// meaningful.
//
// Action steps address a device and carry the command verb plus target
// value. Speed and Acceleration mirror the device's own motion profile
// and, when set, drive the acknowledgment timeout estimate.
//
// Delay steps carry only DurationMS.
type Step struct {
	ID   string   `json:"id"`
	Type StepType `json:"type"`

	// Action step fields
	DeviceID     string   `json:"device_id,omitempty"`
	DeviceGroup  string   `json:"device_group,omitempty"`
	Action       string   `json:"action,omitempty"`
	Value        float64  `json:"value,omitempty"`
	Speed        *float64 `json:"speed,omitempty"`
	Acceleration *float64 `json:"acceleration,omitempty"`

	// Delay step fields
	DurationMS int `json:"duration_ms,omitempty"`
}

// IsAction reports whether the step is a device command.
func (s Step) IsAction() bool {
	return s.Type == StepTypeAction
}

// IsDelay reports whether the step is a pure wait.
func (s Step) IsDelay() bool {
	return s.Type == StepTypeDelay
}

// DeepCopy creates a complete independent copy of the Sequence.
// All pointer and slice fields are cloned so modifications to the copy
// do not affect the original. This is essential for cache isolation.
func (s *Sequence) DeepCopy() *Sequence {
	if s == nil {
		return nil
	}

	cpy := *s // Shallow copy of value fields

	cpy.Description = cloneStringPtr(s.Description)

	if s.Steps != nil {
		cpy.Steps = make([]Step, len(s.Steps))
		for i, step := range s.Steps {
			cpy.Steps[i] = step
			cpy.Steps[i].Speed = cloneFloatPtr(step.Speed)
			cpy.Steps[i].Acceleration = cloneFloatPtr(step.Acceleration)
		}
	}

	return &cpy
}

// cloneStringPtr creates an independent copy of a *string.
func cloneStringPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

// cloneFloatPtr creates an independent copy of a *float64.
func cloneFloatPtr(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}
