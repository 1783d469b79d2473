package playback

import "time"

// Wait is the single active wait for the current step: a delay's
// scheduled duration, or an action step's acknowledgment timeout.
//
// All clock arithmetic for pause, resume, and speed changes lives
// here. The invariant is that remaining time is tracked in *nominal*
// milliseconds (unscaled sequence time); the effective wall-clock wait
// is always remainingNominal / currentSpeed. Pausing converts elapsed
// wall-clock time back to nominal time at the speed that was active,
// so the elapsed portion is never revisited and changing speed only
// rescales the remaining portion.
//
// A Wait is owned by the engine worker goroutine; it is not safe for
// concurrent use.
type Wait struct {
	timer *time.Timer

	// remainingNominal is the unscaled time still owed, in ms.
	remainingNominal float64

	// speed is the multiplier the current timer was armed with.
	speed float64

	// armedAt is when the current timer started, for elapsed accounting.
	armedAt time.Time

	paused bool
	done   bool
}

// NewWait arms a timer for nominalMS / speed effective milliseconds
// from now.
func NewWait(nominalMS float64, speed float64) *Wait {
	w := &Wait{
		remainingNominal: nominalMS,
		speed:            speed,
	}
	w.arm()
	return w
}

// C returns the channel that fires when the wait is satisfied.
// While paused it returns nil, which blocks forever in a select.
func (w *Wait) C() <-chan time.Time {
	if w.timer == nil {
		return nil
	}
	return w.timer.C
}

// arm starts a fresh timer for the remaining nominal time at the
// current speed. A non-positive remainder fires immediately.
func (w *Wait) arm() {
	effective := time.Duration(w.remainingNominal / w.speed * float64(time.Millisecond))
	if effective < 0 {
		effective = 0
	}
	w.timer = time.NewTimer(effective)
	w.armedAt = time.Now()
	w.paused = false
}

// Pause freezes the remaining time and cancels the underlying timer.
// Idempotent: pausing an already-paused wait keeps the frozen value.
//
// Returns the remaining nominal milliseconds.
func (w *Wait) Pause() float64 {
	if w.paused || w.done {
		return w.remainingNominal
	}

	elapsed := time.Since(w.armedAt)
	w.stopTimer()

	// Convert elapsed wall-clock back to nominal time at the speed the
	// timer was armed with.
	elapsedNominal := float64(elapsed) / float64(time.Millisecond) * w.speed
	w.remainingNominal -= elapsedNominal
	if w.remainingNominal < 0 {
		w.remainingNominal = 0
	}
	w.paused = true

	return w.remainingNominal
}

// Resume re-arms the timer for the frozen remaining time, rescaled to
// the new speed. The elapsed portion before pause is never revisited.
func (w *Wait) Resume(newSpeed float64) {
	if !w.paused || w.done {
		return
	}
	w.speed = newSpeed
	w.arm()
}

// ChangeSpeed rescales the remaining time at the instant of the call
// and re-arms without losing elapsed progress. No-op while paused; the
// new speed takes effect through Resume instead.
func (w *Wait) ChangeSpeed(newSpeed float64) {
	if w.done {
		return
	}
	if w.paused {
		w.speed = newSpeed
		return
	}

	w.Pause()
	w.Resume(newSpeed)
}

// Cancel discards the timer. The wait can no longer fire or be resumed.
func (w *Wait) Cancel() {
	w.stopTimer()
	w.done = true
}

// Remaining returns the nominal milliseconds still owed. Accurate only
// while paused or cancelled; mid-flight the timer owns the countdown.
func (w *Wait) Remaining() float64 {
	return w.remainingNominal
}

// stopTimer cancels and detaches the current timer, discarding any
// undelivered fire.
func (w *Wait) stopTimer() {
	if w.timer == nil {
		return
	}
	w.timer.Stop()
	// Detach rather than drain: a fresh timer (and channel) is created
	// on each arm, so a stale fire in the old channel is unreachable.
	w.timer = nil
}
