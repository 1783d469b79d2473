package mqtt

import "fmt"

// Topic prefixes for the Motion Core MQTT namespace.
//
// Controller topics use the flat scheme: motion/{category}/{controller}/{device}
// This matches the gateway firmware's topic layout on the bench controllers.
const (
	// TopicPrefix is the base for all controller-facing topics.
	// Flat scheme: motion/{category}/{controller_id}/{device_id}
	TopicPrefix = "motion"

	// TopicPrefixCore is the base for topics published by the daemon itself.
	TopicPrefixCore = "motion/core"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "motion/system"
)

// Topics provides builders for Motion Core MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	cmdTopic := topics.ControllerCommand("gantry-01", "axis-x")
//	// Returns: "motion/command/gantry-01/axis-x"
type Topics struct{}

// =============================================================================
// Controller Topics
// =============================================================================

// ControllerCommand returns the topic for hardware commands to a controller.
//
// Example: motion/command/gantry-01/axis-x
func (Topics) ControllerCommand(controllerID, deviceID string) string {
	return fmt.Sprintf("%s/command/%s/%s", TopicPrefix, controllerID, deviceID)
}

// ControllerAck returns the topic for command acknowledgements from a controller.
//
// Example: motion/ack/gantry-01/axis-x
func (Topics) ControllerAck(controllerID, deviceID string) string {
	return fmt.Sprintf("%s/ack/%s/%s", TopicPrefix, controllerID, deviceID)
}

// ControllerHealth returns the topic for controller health status.
//
// Example: motion/health/gantry-01
func (Topics) ControllerHealth(controllerID string) string {
	return fmt.Sprintf("%s/health/%s", TopicPrefix, controllerID)
}

// =============================================================================
// Core Topics
// =============================================================================

// CoreRunEvent returns the topic for run lifecycle events.
//
// Example: motion/core/run/seq-homing/event
func (Topics) CoreRunEvent(sequenceID string) string {
	return fmt.Sprintf("%s/run/%s/event", TopicPrefixCore, sequenceID)
}

// CoreRunProgress returns the topic for run progress updates.
//
// Example: motion/core/run/seq-homing/progress
func (Topics) CoreRunProgress(sequenceID string) string {
	return fmt.Sprintf("%s/run/%s/progress", TopicPrefixCore, sequenceID)
}

// =============================================================================
// System Topics
// =============================================================================

// SystemStatus returns the system status topic.
// The daemon publishes online/offline status here (retained), and
// the LWT fires here on unexpected disconnect.
//
// Example: motion/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}

// =============================================================================
// Wildcard Patterns for Subscriptions
// =============================================================================

// AllControllerAcks returns a pattern matching all controller acknowledgements.
//
// Pattern: motion/ack/+/+
func (Topics) AllControllerAcks() string {
	return fmt.Sprintf("%s/ack/+/+", TopicPrefix)
}

// AllControllerHealth returns a pattern matching all controller health updates.
//
// Pattern: motion/health/+
func (Topics) AllControllerHealth() string {
	return fmt.Sprintf("%s/health/+", TopicPrefix)
}

// AllTopics returns a pattern matching all Motion Core topics.
// Use with caution - this receives ALL traffic.
//
// Pattern: motion/#
func (Topics) AllTopics() string {
	return "motion/#"
}
