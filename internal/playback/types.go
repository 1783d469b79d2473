package playback

// Phase represents the engine's lifecycle state.
type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseRunning   Phase = "running"
	PhasePaused    Phase = "paused"
	PhaseStopping  Phase = "stopping"
	PhaseCompleted Phase = "completed"
	PhaseFailed    Phase = "failed"
)

// Speed multiplier bounds. SetSpeed and Start clamp into this range.
const (
	MinSpeedMultiplier = 0.25
	MaxSpeedMultiplier = 2.0
)

// RunState is a snapshot of an in-progress (or idle) playback.
//
// The live state is owned exclusively by the engine worker; State()
// returns copies, never a shared reference. PendingCommandID is
// non-empty only while an action step is awaiting acknowledgment.
type RunState struct {
	SequenceID       string  `json:"sequence_id"`
	SequenceName     string  `json:"sequence_name"`
	StepIndex        int     `json:"step_index"`
	TotalSteps       int     `json:"total_steps"`
	Phase            Phase   `json:"phase"`
	SpeedMultiplier  float64 `json:"speed_multiplier"`
	PendingCommandID string  `json:"pending_command_id,omitempty"`
}

// idleState is the zero RunState returned while no run exists.
func idleState() RunState {
	return RunState{
		Phase:           PhaseIdle,
		SpeedMultiplier: 1.0,
	}
}

// Command is the payload dispatched to the device gateway for one
// action step. CommandID is attached before sending so the matching
// acknowledgment can be correlated back to this step.
type Command struct {
	CommandID    string   `json:"command_id"`
	DeviceID     string   `json:"device_id"`
	DeviceGroup  string   `json:"device_group,omitempty"`
	Action       string   `json:"action"`
	Value        float64  `json:"value"`
	Speed        *float64 `json:"speed,omitempty"`
	Acceleration *float64 `json:"acceleration,omitempty"`
}

// Gateway is the transport contract the engine depends on.
//
// Send is fire-and-forget: a transport failure surfaces as a later
// disconnect notification, not a synchronous error the engine acts on.
// The gateway delivers inbound acknowledgments by calling the engine's
// HandleAck, and connection loss via NotifyDisconnect.
type Gateway interface {
	Send(cmd Command) error
}

// AckOutcome describes how a pending acknowledgment resolved.
type AckOutcome int

const (
	// AckSuccess means the device confirmed completion.
	AckSuccess AckOutcome = iota

	// AckFailed means the device reported a fault for the command.
	AckFailed

	// AckCancelled means the run was stopped before resolution.
	AckCancelled
)

// AckResult is delivered on a waiter channel when an acknowledgment
// resolves.
type AckResult struct {
	CommandID string
	Outcome   AckOutcome
	Detail    string
}

// clampSpeed bounds a speed multiplier into the supported range.
func clampSpeed(s float64) float64 {
	if s < MinSpeedMultiplier {
		return MinSpeedMultiplier
	}
	if s > MaxSpeedMultiplier {
		return MaxSpeedMultiplier
	}
	return s
}
