package telemetry

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteStepMetric records the outcome of a single executed step.
//
// The write is non-blocking; data is batched and sent asynchronously.
//
// Parameters:
//   - sequenceID: The sequence the step belongs to
//   - deviceID: Target device for action steps (empty for delays)
//   - action: The hardware action name (e.g., "moveTo", "clamp")
//   - durationMS: Wall-clock time from dispatch to completion
//   - ackTimedOut: Whether the step completed via ack timeout rather than a real ack
//
// Example:
//
//	client.WriteStepMetric("seq-homing", "axis-x", "moveTo", 842, false)
func (c *Client) WriteStepMetric(sequenceID, deviceID, action string, durationMS int64, ackTimedOut bool) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"step_metrics",
		map[string]string{
			"sequence_id": sequenceID,
			"device_id":   deviceID,
			"action":      action,
		},
		map[string]interface{}{
			"duration_ms":   durationMS,
			"ack_timed_out": ackTimedOut,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteRunMetric records the outcome of a completed or terminated run.
//
// Parameters:
//   - sequenceID: The sequence that ran
//   - outcome: Terminal state ("completed", "stopped", "failed")
//   - totalSteps: Number of steps in the sequence
//   - completedSteps: Number of steps that finished before termination
//   - durationMS: Total wall-clock run time
func (c *Client) WriteRunMetric(sequenceID, outcome string, totalSteps, completedSteps int, durationMS int64) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"run_metrics",
		map[string]string{
			"sequence_id": sequenceID,
			"outcome":     outcome,
		},
		map[string]interface{}{
			"total_steps":     totalSteps,
			"completed_steps": completedSteps,
			"duration_ms":     durationMS,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteAckLatency records the round-trip time from command dispatch to ack.
//
// Used for tracking gateway responsiveness over time. Steps that complete
// via timeout are not recorded here; use WriteStepMetric for those.
//
// Parameters:
//   - controllerID: The gateway controller that acknowledged
//   - deviceID: The device the command targeted
//   - latencyMS: Dispatch-to-ack round trip in milliseconds
func (c *Client) WriteAckLatency(controllerID, deviceID string, latencyMS int64) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"ack_latency",
		map[string]string{
			"controller_id": controllerID,
			"device_id":     deviceID,
		},
		map[string]interface{}{
			"latency_ms": latencyMS,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for custom measurements that don't fit the helper methods.
//
// Parameters:
//   - measurement: The measurement name (table)
//   - tags: Key-value pairs for indexing (low cardinality)
//   - fields: Key-value pairs for the actual data
//
// Example:
//
//	client.WritePoint("system_stats",
//	    map[string]string{"host": "bench-01"},
//	    map[string]interface{}{"cpu_percent": 45.2, "memory_mb": 512})
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}

// WritePointWithTime writes a custom point with a specific timestamp.
//
// Use this when the timestamp is not "now" (e.g., delayed data).
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, timestamp)
	c.writeAPI.WritePoint(point)
}
