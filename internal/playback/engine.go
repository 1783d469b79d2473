package playback

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/nberridge/motion-core/internal/sequence"
)

// Logger defines the logging interface used by the Engine.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// MetricsRecorder receives run and step telemetry. Optional; satisfied
// by telemetry.Client.
type MetricsRecorder interface {
	WriteStepMetric(sequenceID, deviceID, action string, durationMS int64, ackTimedOut bool)
	WriteRunMetric(sequenceID, outcome string, totalSteps, completedSteps int, durationMS int64)
}

// Options tunes acknowledgment timeout estimation for action steps.
type Options struct {
	// AckSafetyMargin is added on top of the motion duration estimate.
	AckSafetyMargin time.Duration

	// MinAckTimeout and MaxAckTimeout clamp the final estimate.
	MinAckTimeout time.Duration
	MaxAckTimeout time.Duration
}

// withDefaults fills unset options.
func (o Options) withDefaults() Options {
	if o.AckSafetyMargin <= 0 {
		o.AckSafetyMargin = time.Second
	}
	if o.MinAckTimeout <= 0 {
		o.MinAckTimeout = 500 * time.Millisecond
	}
	if o.MaxAckTimeout <= 0 {
		o.MaxAckTimeout = 60 * time.Second
	}
	return o
}

// cmdKind discriminates commands on the engine's serialized queue.
type cmdKind int

const (
	cmdStart cmdKind = iota
	cmdPause
	cmdResume
	cmdStop
	cmdSetSpeed
	cmdClose
)

// engineCmd is one external command funnelled through the worker.
type engineCmd struct {
	kind       cmdKind
	seq        *sequence.Sequence
	startIndex int
	speed      float64
	reply      chan error
}

// activeRun is the worker-private context for one run. It never leaves
// the worker goroutine.
type activeRun struct {
	seq   *sequence.Sequence
	wait  *Wait
	ackCh <-chan AckResult

	// pendingCmdID matches RunState.PendingCommandID; kept here so the
	// worker never reads shared state.
	pendingCmdID string

	// stepDoneWhilePaused records that the current step finished (its
	// ack arrived) while paused; the advance happens on resume.
	stepDoneWhilePaused bool

	startedAt      time.Time
	stepStartedAt  time.Time
	completedSteps int
}

// Engine replays sequences of timed hardware actions: it drives the
// step cursor, correlates device acknowledgments, and supports pause,
// resume, speed change, and stop with exact timing semantics.
//
// All run state mutation happens on a single worker goroutine fed by a
// serialized command queue, so a user-issued stop can never race a
// just-arrived acknowledgment. Commands return once accepted, not when
// the run finishes; progress is reported through the event publisher.
type Engine struct {
	gateway    Gateway
	correlator *Correlator
	events     *Publisher
	logger     Logger
	metrics    MetricsRecorder
	opts       Options

	cmds        chan engineCmd
	disconnects chan error
	closed      chan struct{}

	stateMu sync.RWMutex
	state   RunState
}

// New creates an engine dispatching through the given gateway and
// starts its worker goroutine.
func New(gateway Gateway, opts Options) *Engine {
	e := &Engine{
		gateway:     gateway,
		correlator:  NewCorrelator(gateway),
		events:      NewPublisher(),
		logger:      noopLogger{},
		opts:        opts.withDefaults(),
		cmds:        make(chan engineCmd),
		disconnects: make(chan error, 1),
		closed:      make(chan struct{}),
		state:       idleState(),
	}
	go e.worker()
	return e
}

// SetLogger sets the logger for the engine.
func (e *Engine) SetLogger(logger Logger) {
	e.logger = logger
}

// SetMetrics installs an optional telemetry recorder.
func (e *Engine) SetMetrics(metrics MetricsRecorder) {
	e.metrics = metrics
}

// Subscribe registers an observer for run lifecycle events.
func (e *Engine) Subscribe() *Subscription {
	return e.events.Subscribe()
}

// HandleAck resolves a pending command acknowledgment. Wire this to
// the gateway's inbound ack handler. Unknown ids are ignored, so
// unrelated traffic on a shared connection is harmless.
func (e *Engine) HandleAck(commandID string, success bool, detail string) {
	e.correlator.Complete(commandID, success, detail)
}

// NotifyDisconnect signals that the gateway connection dropped. If a
// run is in progress it fails hard; otherwise the signal is ignored.
// Never blocks; repeated signals coalesce.
func (e *Engine) NotifyDisconnect(err error) {
	select {
	case e.disconnects <- err:
	default:
	}
}

// Start begins replaying a sequence from startIndex at the given speed
// multiplier (clamped to [0.25, 2.0]).
//
// Validation runs before the run is accepted: a malformed sequence
// never enters playback. Returns ErrAlreadyRunning if a run is already
// in progress.
func (e *Engine) Start(seq *sequence.Sequence, startIndex int, speedMultiplier float64) error {
	if seq == nil || len(seq.Steps) == 0 {
		return fmt.Errorf("%w: sequence has no steps", ErrInvalidStep)
	}
	if startIndex < 0 || startIndex >= len(seq.Steps) {
		return fmt.Errorf("%w: start index %d out of range [0,%d)", ErrInvalidStep, startIndex, len(seq.Steps))
	}
	if err := sequence.ValidateSteps(seq.Steps); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidStep, err)
	}
	if speedMultiplier <= 0 {
		speedMultiplier = 1.0
	}

	return e.do(engineCmd{
		kind:       cmdStart,
		seq:        seq.DeepCopy(),
		startIndex: startIndex,
		speed:      clampSpeed(speedMultiplier),
	})
}

// Pause freezes the current step's wait. A pending device
// acknowledgment keeps being awaited even while paused: in-flight
// motion completes, pausing only stops the next step from beginning.
func (e *Engine) Pause() error {
	return e.do(engineCmd{kind: cmdPause})
}

// Resume restarts a paused run, rescaling only the remaining portion
// of the current wait.
func (e *Engine) Resume() error {
	return e.do(engineCmd{kind: cmdResume})
}

// Stop aborts the run from any non-idle phase: pending waiters are
// cancelled, the active timer is discarded, a stopped event is
// emitted, and the engine resets to idle ready for a new Start.
func (e *Engine) Stop() error {
	return e.do(engineCmd{kind: cmdStop})
}

// SetSpeed changes the playback speed multiplier, clamped to
// [0.25, 2.0]. The active delay wait is rescaled without losing
// elapsed progress. Action acknowledgment timeouts are unaffected:
// the device's physical motion does not speed up with playback.
func (e *Engine) SetSpeed(speedMultiplier float64) error {
	return e.do(engineCmd{kind: cmdSetSpeed, speed: clampSpeed(speedMultiplier)})
}

// State returns an immutable snapshot of the current run state.
// Always safe to call, including while idle.
func (e *Engine) State() RunState {
	e.stateMu.RLock()
	defer e.stateMu.RUnlock()
	return e.state
}

// IsRunning reports whether the given sequence is mid-playback.
// Used by the sequence registry to reject edits during a run.
func (e *Engine) IsRunning(sequenceID string) bool {
	s := e.State()
	switch s.Phase {
	case PhaseRunning, PhasePaused, PhaseStopping:
		return s.SequenceID == sequenceID
	default:
		return false
	}
}

// Close shuts down the worker. Any in-progress run is stopped first.
func (e *Engine) Close() {
	_ = e.do(engineCmd{kind: cmdClose})
}

// do submits a command to the worker and waits for accept/reject.
func (e *Engine) do(cmd engineCmd) error {
	cmd.reply = make(chan error, 1)
	select {
	case e.cmds <- cmd:
		return <-cmd.reply
	case <-e.closed:
		return ErrEngineClosed
	}
}

// ─── Worker ─────────────────────────────────────────────────────────────────

// worker is the engine's single mutation point. It waits on exactly one
// multi-way select: an external command, the active wait firing, a
// pending acknowledgment resolving, or a gateway disconnect.
func (e *Engine) worker() {
	var run *activeRun

	for {
		var waitC <-chan time.Time
		var ackC <-chan AckResult
		if run != nil {
			if run.wait != nil {
				waitC = run.wait.C()
			}
			ackC = run.ackCh
		}

		select {
		case cmd := <-e.cmds:
			var quit bool
			run, quit = e.handleCommand(run, cmd)
			if quit {
				return
			}

		case <-waitC:
			run = e.handleWaitFired(run)

		case res := <-ackC:
			run = e.handleAck(run, res)

		case err := <-e.disconnects:
			run = e.handleDisconnect(run, err)
		}
	}
}

// handleCommand applies one external command. Returns the (possibly
// replaced) run and whether the worker should exit.
func (e *Engine) handleCommand(run *activeRun, cmd engineCmd) (*activeRun, bool) {
	switch cmd.kind {
	case cmdStart:
		if run != nil {
			cmd.reply <- ErrAlreadyRunning
			return run, false
		}
		run = e.beginRun(cmd.seq, cmd.startIndex, cmd.speed)
		cmd.reply <- nil
		return run, false

	case cmdPause:
		if run == nil || e.State().Phase != PhaseRunning {
			cmd.reply <- ErrNotRunning
			return run, false
		}
		if run.wait != nil {
			run.wait.Pause()
		}
		e.setPhase(PhasePaused)
		e.emit(EventPaused, "")
		e.logger.Info("playback paused",
			"sequence_id", run.seq.ID,
			"step_index", e.State().StepIndex,
		)
		cmd.reply <- nil
		return run, false

	case cmdResume:
		if run == nil || e.State().Phase != PhasePaused {
			cmd.reply <- ErrNotPaused
			return run, false
		}
		e.setPhase(PhaseRunning)
		e.emit(EventResumed, "")
		e.logger.Info("playback resumed", "sequence_id", run.seq.ID)
		cmd.reply <- nil

		if run.stepDoneWhilePaused {
			// The step's ack arrived mid-pause; advance now.
			run.stepDoneWhilePaused = false
			return e.advance(run), false
		}
		if run.wait != nil {
			run.wait.Resume(e.waitSpeed(run))
		}
		return run, false

	case cmdStop:
		if run == nil {
			cmd.reply <- ErrNotRunning
			return run, false
		}
		e.teardown(run, PhaseStopping)
		e.emit(EventStopped, "")
		e.logger.Info("playback stopped", "sequence_id", run.seq.ID)
		e.recordRun(run, "stopped")
		e.resetState()
		cmd.reply <- nil
		return nil, false

	case cmdSetSpeed:
		if run == nil || e.State().Phase != PhaseRunning {
			cmd.reply <- ErrNotRunning
			return run, false
		}
		e.setSpeedState(cmd.speed)
		// Only delay waits rescale; ack timeouts track the device's
		// physical motion, which playback speed does not change.
		if run.wait != nil && run.pendingCmdID == "" {
			run.wait.ChangeSpeed(cmd.speed)
		}
		e.emit(EventSpeedChanged, "")
		e.logger.Info("playback speed changed", "sequence_id", run.seq.ID, "speed", cmd.speed)
		cmd.reply <- nil
		return run, false

	case cmdClose:
		if run != nil {
			e.teardown(run, PhaseStopping)
			e.emit(EventStopped, "")
			e.resetState()
		}
		e.events.Close()
		close(e.closed)
		cmd.reply <- nil
		return nil, true

	default:
		cmd.reply <- fmt.Errorf("playback: unrecognised command %d", cmd.kind)
		return run, false
	}
}

// beginRun initialises run state and starts the first step.
func (e *Engine) beginRun(seq *sequence.Sequence, startIndex int, speed float64) *activeRun {
	run := &activeRun{
		seq:       seq,
		startedAt: time.Now(),
	}

	e.stateMu.Lock()
	e.state = RunState{
		SequenceID:      seq.ID,
		SequenceName:    seq.Name,
		StepIndex:       startIndex,
		TotalSteps:      len(seq.Steps),
		Phase:           PhaseRunning,
		SpeedMultiplier: speed,
	}
	e.stateMu.Unlock()

	e.logger.Info("playback started",
		"sequence_id", seq.ID,
		"name", seq.Name,
		"start_index", startIndex,
		"total_steps", len(seq.Steps),
		"speed", speed,
	)

	return e.beginStep(run)
}

// beginStep starts the step at the current cursor: arms the wait and,
// for action steps, dispatches the command and registers its waiter.
func (e *Engine) beginStep(run *activeRun) *activeRun {
	state := e.State()
	step := run.seq.Steps[state.StepIndex]
	run.stepStartedAt = time.Now()

	e.emit(EventStepStart, "")

	if step.IsDelay() {
		run.wait = NewWait(float64(step.DurationMS), state.SpeedMultiplier)
		run.ackCh = nil
		run.pendingCmdID = ""
		e.setPendingCommand("")
		return run
	}

	// Action step: dispatch and race the ack against a bounded timeout.
	commandID, ackCh, err := e.correlator.Send(Command{
		DeviceID:     step.DeviceID,
		DeviceGroup:  step.DeviceGroup,
		Action:       step.Action,
		Value:        step.Value,
		Speed:        step.Speed,
		Acceleration: step.Acceleration,
	})
	if err != nil {
		// The gateway refused the send outright (e.g. not connected).
		e.logger.Error("command dispatch failed",
			"sequence_id", run.seq.ID,
			"step_index", state.StepIndex,
			"error", err,
		)
		return e.failRun(run, err)
	}

	timeout := e.estimateAckTimeout(step)
	run.wait = NewWait(float64(timeout)/float64(time.Millisecond), 1.0)
	run.ackCh = ackCh
	run.pendingCmdID = commandID
	e.setPendingCommand(commandID)

	e.logger.Debug("command dispatched",
		"sequence_id", run.seq.ID,
		"step_index", state.StepIndex,
		"command_id", commandID,
		"device_id", step.DeviceID,
		"action", step.Action,
		"ack_timeout", timeout,
	)
	return run
}

// handleWaitFired processes the active wait elapsing: a delay step
// finishing, or an action step's ack timeout (soft success).
func (e *Engine) handleWaitFired(run *activeRun) *activeRun {
	if run == nil {
		return nil
	}

	if run.pendingCmdID != "" {
		// Ack timeout: assume the device reached target. Remove the
		// waiter so a late ack cannot leak into a future step or run.
		e.correlator.Cancel(run.pendingCmdID)
		e.logger.Warn("ack timeout, treating step as complete",
			"sequence_id", run.seq.ID,
			"step_index", e.State().StepIndex,
			"command_id", run.pendingCmdID,
		)
		e.recordStep(run, true)
	} else {
		e.recordStep(run, false)
	}

	return e.completeStep(run)
}

// handleAck processes a resolved acknowledgment for the current step.
// Stale results (wrong id, cancelled) are ignored.
func (e *Engine) handleAck(run *activeRun, res AckResult) *activeRun {
	if run == nil || res.CommandID != run.pendingCmdID {
		return run
	}
	if res.Outcome == AckCancelled {
		return run
	}

	if res.Outcome == AckFailed {
		e.logger.Error("device reported command failure",
			"sequence_id", run.seq.ID,
			"command_id", res.CommandID,
			"detail", res.Detail,
		)
		return e.failRun(run, fmt.Errorf("device fault: %s", res.Detail))
	}

	e.recordStep(run, false)
	return e.completeStep(run)
}

// handleDisconnect aborts a run when the gateway drops mid-playback.
func (e *Engine) handleDisconnect(run *activeRun, cause error) *activeRun {
	if run == nil {
		return nil
	}
	e.logger.Error("gateway disconnected during playback",
		"sequence_id", run.seq.ID,
		"step_index", e.State().StepIndex,
		"cause", cause,
	)
	return e.failRun(run, ErrGatewayDisconnected)
}

// completeStep emits step-complete and advances the cursor, or defers
// the advance until resume when the ack arrived mid-pause.
func (e *Engine) completeStep(run *activeRun) *activeRun {
	run.completedSteps++
	run.wait.Cancel()
	run.wait = nil
	run.ackCh = nil
	run.pendingCmdID = ""
	e.setPendingCommand("")

	e.emit(EventStepComplete, "")

	if e.State().Phase == PhasePaused {
		// In-flight motion completed while paused; the next step must
		// not begin until resume.
		run.stepDoneWhilePaused = true
		return run
	}

	return e.advance(run)
}

// advance moves the cursor to the next step or finishes the run.
func (e *Engine) advance(run *activeRun) *activeRun {
	state := e.State()
	next := state.StepIndex + 1

	if next >= state.TotalSteps {
		e.setPhase(PhaseCompleted)
		e.emit(EventCompleted, "")
		e.logger.Info("playback completed",
			"sequence_id", run.seq.ID,
			"total_steps", state.TotalSteps,
			"duration", time.Since(run.startedAt),
		)
		e.recordRun(run, "completed")
		e.resetState()
		return nil
	}

	e.setStepIndex(next)
	return e.beginStep(run)
}

// failRun aborts the run: cancels all waiters and the active timer,
// emits the error event, and resets to idle. No partial state remains.
func (e *Engine) failRun(run *activeRun, cause error) *activeRun {
	e.teardown(run, PhaseFailed)
	e.emit(EventError, cause.Error())
	e.recordRun(run, "failed")
	e.resetState()
	return nil
}

// teardown cancels every pending wait and waiter for the run.
func (e *Engine) teardown(run *activeRun, phase Phase) {
	e.setPhase(phase)
	if run.wait != nil {
		run.wait.Cancel()
		run.wait = nil
	}
	run.ackCh = nil
	run.pendingCmdID = ""
	e.correlator.CancelAll()
}

// waitSpeed returns the speed the current wait should run at: playback
// speed for delays, wall-clock for ack timeouts.
func (e *Engine) waitSpeed(run *activeRun) float64 {
	if run.pendingCmdID != "" {
		return 1.0
	}
	return e.State().SpeedMultiplier
}

// estimateAckTimeout mirrors the device's own motion duration estimate:
// travel time at the step's declared speed plus the acceleration ramp,
// plus a safety margin, clamped to the configured bounds. Steps with no
// declared speed fall back to the margin alone (then the minimum).
func (e *Engine) estimateAckTimeout(step sequence.Step) time.Duration {
	est := e.opts.AckSafetyMargin

	if step.Speed != nil && *step.Speed > 0 {
		travelSec := math.Abs(step.Value) / *step.Speed
		est += time.Duration(travelSec * float64(time.Second))

		if step.Acceleration != nil && *step.Acceleration > 0 {
			rampSec := *step.Speed / *step.Acceleration
			est += time.Duration(rampSec * float64(time.Second))
		}
	}

	if est < e.opts.MinAckTimeout {
		est = e.opts.MinAckTimeout
	}
	if est > e.opts.MaxAckTimeout {
		est = e.opts.MaxAckTimeout
	}
	return est
}

// ─── State Snapshot Helpers ─────────────────────────────────────────────────

func (e *Engine) setPhase(phase Phase) {
	e.stateMu.Lock()
	e.state.Phase = phase
	e.stateMu.Unlock()
}

func (e *Engine) setStepIndex(idx int) {
	e.stateMu.Lock()
	e.state.StepIndex = idx
	e.stateMu.Unlock()
}

func (e *Engine) setSpeedState(speed float64) {
	e.stateMu.Lock()
	e.state.SpeedMultiplier = speed
	e.stateMu.Unlock()
}

func (e *Engine) setPendingCommand(id string) {
	e.stateMu.Lock()
	e.state.PendingCommandID = id
	e.stateMu.Unlock()
}

func (e *Engine) resetState() {
	e.stateMu.Lock()
	e.state = idleState()
	e.stateMu.Unlock()
}

// emit publishes an event reflecting the current state snapshot.
func (e *Engine) emit(kind EventType, errMsg string) {
	s := e.State()
	e.events.Publish(Event{
		Type:             kind,
		SequenceID:       s.SequenceID,
		SequenceName:     s.SequenceName,
		CurrentStepIndex: s.StepIndex,
		TotalSteps:       s.TotalSteps,
		SpeedMultiplier:  s.SpeedMultiplier,
		Error:            errMsg,
	})
}

// recordStep writes step telemetry if a recorder is installed.
func (e *Engine) recordStep(run *activeRun, ackTimedOut bool) {
	if e.metrics == nil {
		return
	}
	s := e.State()
	step := run.seq.Steps[s.StepIndex]
	e.metrics.WriteStepMetric(
		run.seq.ID,
		step.DeviceID,
		step.Action,
		time.Since(run.stepStartedAt).Milliseconds(),
		ackTimedOut,
	)
}

// recordRun writes run telemetry if a recorder is installed.
func (e *Engine) recordRun(run *activeRun, outcome string) {
	if e.metrics == nil {
		return
	}
	e.metrics.WriteRunMetric(
		run.seq.ID,
		outcome,
		len(run.seq.Steps),
		run.completedSteps,
		time.Since(run.startedAt).Milliseconds(),
	)
}
