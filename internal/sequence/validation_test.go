package sequence

import (
	"errors"
	"strings"
	"testing"
)

func floatPtr(f float64) *float64 { return &f }

// ─── Step Validation ────────────────────────────────────────────────────────

func TestValidateStep_ValidAction(t *testing.T) {
	step := Step{
		ID:       "step-1",
		Type:     StepTypeAction,
		DeviceID: "axis-x",
		Action:   "moveTo",
		Value:    120,
	}

	if err := ValidateStep(step); err != nil {
		t.Errorf("ValidateStep() error = %v, want nil", err)
	}
}

func TestValidateStep_ValidDelay(t *testing.T) {
	step := Step{
		ID:         "step-1",
		Type:       StepTypeDelay,
		DurationMS: 1000,
	}

	if err := ValidateStep(step); err != nil {
		t.Errorf("ValidateStep() error = %v, want nil", err)
	}
}

func TestValidateStep_Invalid(t *testing.T) {
	tests := []struct {
		name string
		step Step
	}{
		{
			name: "action missing device_id",
			step: Step{Type: StepTypeAction, Action: "moveTo"},
		},
		{
			name: "action missing action verb",
			step: Step{Type: StepTypeAction, DeviceID: "axis-x"},
		},
		{
			name: "action zero speed",
			step: Step{Type: StepTypeAction, DeviceID: "axis-x", Action: "moveTo", Speed: floatPtr(0)},
		},
		{
			name: "action negative acceleration",
			step: Step{Type: StepTypeAction, DeviceID: "axis-x", Action: "moveTo", Acceleration: floatPtr(-5)},
		},
		{
			name: "delay negative duration",
			step: Step{Type: StepTypeDelay, DurationMS: -1},
		},
		{
			name: "delay over maximum",
			step: Step{Type: StepTypeDelay, DurationMS: maxDelayMS + 1},
		},
		{
			name: "unknown type",
			step: Step{Type: "jog"},
		},
		{
			name: "empty type",
			step: Step{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStep(tt.step)
			if !errors.Is(err, ErrInvalidStep) {
				t.Errorf("ValidateStep() error = %v, want ErrInvalidStep", err)
			}
		})
	}
}

func TestValidateSteps_ReportsIndex(t *testing.T) {
	steps := []Step{
		{Type: StepTypeDelay, DurationMS: 100},
		{Type: StepTypeAction}, // invalid at index 1
	}

	err := ValidateSteps(steps)
	if !errors.Is(err, ErrInvalidStep) {
		t.Fatalf("ValidateSteps() error = %v, want ErrInvalidStep", err)
	}
	if !strings.Contains(err.Error(), "step[1]") {
		t.Errorf("error %q should name the failing index", err)
	}
}

// ─── Sequence Validation ────────────────────────────────────────────────────

func TestValidate_ValidSequence(t *testing.T) {
	seq := &Sequence{
		ID:   "seq-1",
		Name: "Homing cycle",
		Steps: []Step{
			{Type: StepTypeAction, DeviceID: "axis-x", Action: "home"},
			{Type: StepTypeDelay, DurationMS: 500},
		},
	}

	if err := Validate(seq); err != nil {
		t.Errorf("Validate() error = %v, want nil", err)
	}
}

func TestValidate_Nil(t *testing.T) {
	if err := Validate(nil); !errors.Is(err, ErrInvalid) {
		t.Errorf("Validate(nil) error = %v, want ErrInvalid", err)
	}
}

func TestValidate_EmptyName(t *testing.T) {
	seq := &Sequence{
		Name:  "   ",
		Steps: []Step{{Type: StepTypeDelay, DurationMS: 100}},
	}

	if err := Validate(seq); !errors.Is(err, ErrInvalidName) {
		t.Errorf("Validate() error = %v, want ErrInvalidName", err)
	}
}

func TestValidate_NoSteps(t *testing.T) {
	seq := &Sequence{Name: "Empty"}

	if err := Validate(seq); !errors.Is(err, ErrNoSteps) {
		t.Errorf("Validate() error = %v, want ErrNoSteps", err)
	}
}

// ─── DeepCopy ───────────────────────────────────────────────────────────────

func TestDeepCopy_Isolation(t *testing.T) {
	desc := "original"
	seq := &Sequence{
		ID:          "seq-1",
		Name:        "Homing cycle",
		Description: &desc,
		Steps: []Step{
			{Type: StepTypeAction, DeviceID: "axis-x", Action: "moveTo", Speed: floatPtr(80)},
		},
	}

	cpy := seq.DeepCopy()

	// Mutate the copy
	*cpy.Description = "changed"
	cpy.Steps[0].DeviceID = "axis-y"
	*cpy.Steps[0].Speed = 999

	if *seq.Description != "original" {
		t.Error("DeepCopy() shares description pointer with original")
	}
	if seq.Steps[0].DeviceID != "axis-x" {
		t.Error("DeepCopy() shares steps slice with original")
	}
	if *seq.Steps[0].Speed != 80 {
		t.Error("DeepCopy() shares step speed pointer with original")
	}
}

func TestDeepCopy_Nil(t *testing.T) {
	var seq *Sequence
	if seq.DeepCopy() != nil {
		t.Error("DeepCopy() on nil should return nil")
	}
}
