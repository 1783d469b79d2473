package playback

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Correlator bridges asynchronous device acknowledgments to the
// engine's per-step execution.
//
// Outgoing commands are tagged with a fresh id and registered as
// pending waiters; when the gateway delivers a message whose id matches
// a pending waiter, the waiter resolves exactly once. Completions for
// unknown or already-resolved ids are silently ignored: they may arrive
// late after a timeout already fired, or belong to manual jogging
// traffic sharing the same connection.
//
// Thread Safety: all methods are safe for concurrent use. Send is only
// called by the engine worker, but Complete arrives on gateway handler
// goroutines and CancelAll on the worker during stop.
type Correlator struct {
	gateway Gateway

	mu      sync.Mutex
	waiters map[string]chan AckResult
}

// NewCorrelator creates a correlator that dispatches through the given
// gateway.
func NewCorrelator(gateway Gateway) *Correlator {
	return &Correlator{
		gateway: gateway,
		waiters: make(map[string]chan AckResult),
	}
}

// Send tags the command with a fresh id, registers a pending waiter,
// and forwards the command to the gateway.
//
// The returned channel delivers exactly one AckResult: when Complete
// fires for this id, or when CancelAll resolves it as cancelled. The
// engine races this channel against its own timeout wait.
//
// Returns:
//   - string: The generated command id
//   - <-chan AckResult: Single-delivery result channel
//   - error: If the gateway rejects the send outright
func (c *Correlator) Send(cmd Command) (string, <-chan AckResult, error) {
	commandID := uuid.New().String()
	cmd.CommandID = commandID

	// Buffered so a resolution never blocks the resolver, even if the
	// engine has already stopped listening.
	ch := make(chan AckResult, 1)

	c.mu.Lock()
	c.waiters[commandID] = ch
	c.mu.Unlock()

	if err := c.gateway.Send(cmd); err != nil {
		c.mu.Lock()
		delete(c.waiters, commandID)
		c.mu.Unlock()
		return "", nil, fmt.Errorf("dispatching command: %w", err)
	}

	return commandID, ch, nil
}

// Complete resolves the pending waiter for commandID, exactly once.
// Unknown or already-resolved ids are ignored.
func (c *Correlator) Complete(commandID string, success bool, detail string) {
	c.mu.Lock()
	ch, ok := c.waiters[commandID]
	if ok {
		delete(c.waiters, commandID)
	}
	c.mu.Unlock()

	if !ok {
		return
	}

	outcome := AckSuccess
	if !success {
		outcome = AckFailed
	}
	ch <- AckResult{CommandID: commandID, Outcome: outcome, Detail: detail}
}

// Cancel discards a single pending waiter without resolving it to the
// engine. Used when a timeout fires first: the waiter is removed so a
// late acknowledgment cannot resolve into a future run.
func (c *Correlator) Cancel(commandID string) {
	c.mu.Lock()
	delete(c.waiters, commandID)
	c.mu.Unlock()
}

// CancelAll resolves every pending waiter as cancelled. Used on stop
// so no stray resolution can affect a future run.
func (c *Correlator) CancelAll() {
	c.mu.Lock()
	waiters := c.waiters
	c.waiters = make(map[string]chan AckResult)
	c.mu.Unlock()

	for id, ch := range waiters {
		ch <- AckResult{CommandID: id, Outcome: AckCancelled}
	}
}

// PendingCount returns the number of unresolved waiters.
func (c *Correlator) PendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.waiters)
}
