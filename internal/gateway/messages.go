package gateway

import (
	"fmt"
	"strings"
	"time"
)

// ackMessage is the payload controllers publish on
// motion/ack/{controller}/{device} when a command finishes.
type ackMessage struct {
	CommandID string `json:"command_id"`
	Success   bool   `json:"success"`
	Detail    string `json:"detail,omitempty"`
}

// healthMessage is the payload controllers publish on
// motion/health/{controller}, typically retained with an LWT fallback.
type healthMessage struct {
	Status        string `json:"status"`
	UptimeSeconds int64  `json:"uptime_seconds,omitempty"`
	Firmware      string `json:"firmware,omitempty"`
}

// runProgress is the compact retained payload on
// motion/core/run/{sequence}/progress.
type runProgress struct {
	StepIndex  int       `json:"step_index"`
	TotalSteps int       `json:"total_steps"`
	Timestamp  time.Time `json:"timestamp"`
}

// parseAckTopic extracts controller and device ids from an ack topic
// of the form motion/ack/{controller}/{device}.
func parseAckTopic(topic string) (controllerID, deviceID string, err error) {
	parts := strings.Split(topic, "/")
	if len(parts) != 4 || parts[0] != "motion" || parts[1] != "ack" || parts[2] == "" || parts[3] == "" {
		return "", "", fmt.Errorf("%w: ack topic %q", ErrInvalidTopic, topic)
	}
	return parts[2], parts[3], nil
}

// parseHealthTopic extracts the controller id from a health topic of
// the form motion/health/{controller}.
func parseHealthTopic(topic string) (string, error) {
	parts := strings.Split(topic, "/")
	if len(parts) != 3 || parts[0] != "motion" || parts[1] != "health" || parts[2] == "" {
		return "", fmt.Errorf("%w: health topic %q", ErrInvalidTopic, topic)
	}
	return parts[2], nil
}
