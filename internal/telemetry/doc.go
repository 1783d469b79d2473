// Package telemetry provides time-series metrics storage for Motion Core.
//
// It wraps the official influxdb-client-go v2 library with connection
// management, metric writing, and health monitoring.
//
// # Purpose
//
// This package records historical run data for:
//   - Per-step execution timing and ack outcomes
//   - Run-level summaries (completed, stopped, failed)
//   - Gateway ack latency trends
//
// # Usage
//
//	cfg := config.InfluxDBConfig{
//	    URL:    "http://localhost:8086",
//	    Token:  "your-token",
//	    Org:    "motioncore",
//	    Bucket: "metrics",
//	}
//
//	client, err := telemetry.Connect(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	client.WriteStepMetric("seq-homing", "axis-x", "moveTo", 842, false)
//
// # Thread Safety
//
// All methods are safe for concurrent use from multiple goroutines.
// The underlying write API uses non-blocking batched writes.
//
// # Error Handling
//
// Write operations are non-blocking and batch errors are delivered via a
// callback. Connection and health check errors are returned directly.
// Telemetry is optional: when disabled in config the engine runs without it.
package telemetry
