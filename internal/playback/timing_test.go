package playback

import (
	"testing"
	"time"
)

// waitFor waits for the wait's channel to fire, failing the test if it
// takes longer than limit.
func waitFor(t *testing.T, w *Wait, limit time.Duration) time.Duration {
	t.Helper()
	start := time.Now()
	select {
	case <-w.C():
		return time.Since(start)
	case <-time.After(limit):
		t.Fatalf("wait did not fire within %v", limit)
		return 0
	}
}

// ─── Basic Firing ───────────────────────────────────────────────────────────

func TestWait_FiresAfterDuration(t *testing.T) {
	w := NewWait(100, 1.0)

	elapsed := waitFor(t, w, 500*time.Millisecond)
	if elapsed < 80*time.Millisecond {
		t.Errorf("fired after %v, want >= ~100ms", elapsed)
	}
}

func TestWait_SpeedScalesDuration(t *testing.T) {
	// 200 nominal ms at 2x speed should fire in ~100ms.
	w := NewWait(200, 2.0)

	elapsed := waitFor(t, w, 500*time.Millisecond)
	if elapsed < 80*time.Millisecond || elapsed > 180*time.Millisecond {
		t.Errorf("fired after %v, want ~100ms", elapsed)
	}
}

func TestWait_ZeroDurationFiresImmediately(t *testing.T) {
	w := NewWait(0, 1.0)
	waitFor(t, w, 100*time.Millisecond)
}

// ─── Pause / Resume ─────────────────────────────────────────────────────────

func TestWait_PauseFreezesRemaining(t *testing.T) {
	w := NewWait(1000, 1.0)

	time.Sleep(100 * time.Millisecond)
	remaining := w.Pause()

	if remaining < 800 || remaining > 950 {
		t.Errorf("Pause() remaining = %v, want ~900", remaining)
	}
	if w.C() != nil {
		t.Error("C() should be nil while paused")
	}

	// Remaining must not shrink while paused.
	time.Sleep(100 * time.Millisecond)
	if got := w.Remaining(); got != remaining {
		t.Errorf("Remaining() = %v after pause, want frozen %v", got, remaining)
	}
}

func TestWait_PauseIdempotent(t *testing.T) {
	w := NewWait(1000, 1.0)

	time.Sleep(50 * time.Millisecond)
	first := w.Pause()
	time.Sleep(50 * time.Millisecond)
	second := w.Pause()

	if first != second {
		t.Errorf("second Pause() = %v, want frozen %v", second, first)
	}
}

func TestWait_ResumeCompletesRemaining(t *testing.T) {
	// Pause ~100ms into a 300ms wait, then resume: should fire ~200ms
	// after resume, not immediately, not after another 300ms.
	w := NewWait(300, 1.0)
	time.Sleep(100 * time.Millisecond)
	w.Pause()
	time.Sleep(150 * time.Millisecond) // Arbitrary paused interval

	resumedAt := time.Now()
	w.Resume(1.0)
	elapsed := waitForSince(t, w, resumedAt, time.Second)

	if elapsed < 150*time.Millisecond || elapsed > 300*time.Millisecond {
		t.Errorf("fired %v after resume, want ~200ms", elapsed)
	}
}

func TestWait_ResumeAtDifferentSpeed(t *testing.T) {
	// Pause halfway through 400 nominal ms at 1x (~200 remaining),
	// resume at 2x: should fire ~100ms after resume.
	w := NewWait(400, 1.0)
	time.Sleep(200 * time.Millisecond)
	w.Pause()

	resumedAt := time.Now()
	w.Resume(2.0)
	elapsed := waitForSince(t, w, resumedAt, time.Second)

	if elapsed < 60*time.Millisecond || elapsed > 180*time.Millisecond {
		t.Errorf("fired %v after resume at 2x, want ~100ms", elapsed)
	}
}

func waitForSince(t *testing.T, w *Wait, since time.Time, limit time.Duration) time.Duration {
	t.Helper()
	select {
	case <-w.C():
		return time.Since(since)
	case <-time.After(limit):
		t.Fatalf("wait did not fire within %v", limit)
		return 0
	}
}

// ─── Speed Change ───────────────────────────────────────────────────────────

func TestWait_ChangeSpeedRescalesRemaining(t *testing.T) {
	// 400 nominal ms at 1x; after ~200ms, switch to 2x. Remaining ~200
	// nominal at 2x is ~100ms wall clock, so total ~300ms.
	start := time.Now()
	w := NewWait(400, 1.0)
	time.Sleep(200 * time.Millisecond)
	w.ChangeSpeed(2.0)

	select {
	case <-w.C():
	case <-time.After(time.Second):
		t.Fatal("wait did not fire")
	}
	total := time.Since(start)

	if total < 250*time.Millisecond || total > 400*time.Millisecond {
		t.Errorf("total elapsed %v, want ~300ms", total)
	}
}

// ─── Cancel ─────────────────────────────────────────────────────────────────

func TestWait_CancelDiscardsTimer(t *testing.T) {
	w := NewWait(50, 1.0)
	w.Cancel()

	if w.C() != nil {
		t.Error("C() should be nil after Cancel()")
	}

	// A cancelled wait cannot be resumed.
	w.Resume(1.0)
	if w.C() != nil {
		t.Error("Resume() after Cancel() should not re-arm")
	}
}
