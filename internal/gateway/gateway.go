package gateway

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nberridge/motion-core/internal/infrastructure/mqtt"
	"github.com/nberridge/motion-core/internal/playback"
)

const (
	// maxPendingAge bounds how long a sent command's timestamp is kept
	// for ack latency measurement before being pruned.
	maxPendingAge = 5 * time.Minute

	// healthOffline marks a controller whose health topic reported offline.
	healthOffline = "offline"

	// healthOnline marks a controller whose health topic reported online.
	healthOnline = "online"
)

// MQTTClient is the interface for MQTT operations the gateway needs.
// This allows mocking in tests and flexibility in implementation.
type MQTTClient interface {
	// Publish sends a message to a topic.
	Publish(topic string, payload []byte, qos byte, retained bool) error

	// Subscribe registers a handler for a topic pattern.
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error

	// IsConnected returns true if connected to the broker.
	IsConnected() bool
}

// ControllerResolver maps a device id to the controller that drives it.
// Satisfied by *device.Registry.
type ControllerResolver interface {
	// ControllerFor returns the controller id for a device.
	ControllerFor(deviceID string) (string, error)
}

// AckHandler receives every acknowledgment arriving on the wire,
// including ones for commands sent outside sequence playback. The
// consumer filters by command id.
type AckHandler func(commandID string, success bool, detail string)

// LatencyRecorder receives command round-trip telemetry. Optional;
// satisfied by *telemetry.Client.
type LatencyRecorder interface {
	WriteAckLatency(controllerID, deviceID string, latencyMS int64)
}

// Logger defines the logging interface used by the gateway.
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

// ControllerHealth is the last reported health of one controller.
type ControllerHealth struct {
	Status   string    `json:"status"`
	LastSeen time.Time `json:"last_seen"`
}

// Gateway is the MQTT transport binding between the playback engine and
// the hardware controllers. It routes outgoing commands to
// motion/command/{controller}/{device}, feeds inbound acknowledgments
// from motion/ack/+/+ to the registered handler, and tracks controller
// health reports.
//
// The broker connection is shared with unrelated traffic (manual jog,
// status polling); the gateway forwards every acknowledgment and lets
// the consumer discard the ones it did not cause.
//
// Thread Safety: All methods are safe for concurrent use.
type Gateway struct {
	client   MQTTClient
	resolver ControllerResolver
	topics   mqtt.Topics
	qos      byte
	logger   Logger

	onAck   AckHandler
	latency LatencyRecorder

	// sentAt tracks publish timestamps by command id for latency
	// measurement. Pruned on every send.
	sentMu sync.Mutex
	sentAt map[string]time.Time

	healthMu sync.RWMutex
	health   map[string]ControllerHealth
}

// New creates a gateway publishing through the given MQTT client and
// routing commands via the resolver.
//
// Parameters:
//   - client: Connected MQTT client (or mock)
//   - resolver: Device id to controller id mapping
//   - qos: QoS level for command publishes
//
// Returns:
//   - *Gateway: Ready to Start
func New(client MQTTClient, resolver ControllerResolver, qos byte) *Gateway {
	return &Gateway{
		client:   client,
		resolver: resolver,
		qos:      qos,
		logger:   noopLogger{},
		sentAt:   make(map[string]time.Time),
		health:   make(map[string]ControllerHealth),
	}
}

// SetLogger sets the logger for the gateway.
func (g *Gateway) SetLogger(logger Logger) {
	g.logger = logger
}

// SetOnAck registers the acknowledgment handler. Must be called before
// Start; acknowledgments arriving with no handler are dropped with a
// warning.
func (g *Gateway) SetOnAck(handler AckHandler) {
	g.onAck = handler
}

// SetLatencyRecorder installs an optional ack round-trip recorder.
func (g *Gateway) SetLatencyRecorder(rec LatencyRecorder) {
	g.latency = rec
}

// Start subscribes to the acknowledgment and controller health topics.
//
// Returns:
//   - error: If either subscription fails
func (g *Gateway) Start() error {
	if err := g.client.Subscribe(g.topics.AllControllerAcks(), g.qos, g.handleAckMessage); err != nil {
		return fmt.Errorf("subscribing to acks: %w", err)
	}
	if err := g.client.Subscribe(g.topics.AllControllerHealth(), g.qos, g.handleHealthMessage); err != nil {
		return fmt.Errorf("subscribing to controller health: %w", err)
	}
	g.logger.Info("gateway started",
		"ack_topic", g.topics.AllControllerAcks(),
		"health_topic", g.topics.AllControllerHealth(),
	)
	return nil
}

// Send publishes a command to its controller's command topic. Satisfies
// the playback engine's transport contract: an error here means the
// command never left this process (unknown device, broker unreachable).
//
// Parameters:
//   - cmd: Command with correlation id already assigned
//
// Returns:
//   - error: ErrUnknownDevice if no controller drives cmd.DeviceID, or
//     the publish error
func (g *Gateway) Send(cmd playback.Command) error {
	controllerID, err := g.resolver.ControllerFor(cmd.DeviceID)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrUnknownDevice, cmd.DeviceID)
	}

	payload, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("encoding command: %w", err)
	}

	topic := g.topics.ControllerCommand(controllerID, cmd.DeviceID)
	if err := g.client.Publish(topic, payload, g.qos, false); err != nil {
		return fmt.Errorf("publishing command: %w", err)
	}

	g.recordSent(cmd.CommandID)

	g.logger.Debug("command published",
		"topic", topic,
		"command_id", cmd.CommandID,
		"device_id", cmd.DeviceID,
		"action", cmd.Action,
	)
	return nil
}

// PublishRunEvent mirrors an engine lifecycle event onto the MQTT bus
// for external observers (dashboards, recorders). Step events also
// refresh the retained progress topic so late joiners see the current
// cursor without waiting for the next transition.
func (g *Gateway) PublishRunEvent(evt playback.Event) error {
	if evt.SequenceID == "" {
		return nil
	}

	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("encoding run event: %w", err)
	}
	if err := g.client.Publish(g.topics.CoreRunEvent(evt.SequenceID), payload, 0, false); err != nil {
		return fmt.Errorf("publishing run event: %w", err)
	}

	switch evt.Type {
	case playback.EventStepStart, playback.EventStepComplete, playback.EventCompleted:
		progress, err := json.Marshal(runProgress{
			StepIndex:  evt.CurrentStepIndex,
			TotalSteps: evt.TotalSteps,
			Timestamp:  evt.Timestamp,
		})
		if err != nil {
			return fmt.Errorf("encoding run progress: %w", err)
		}
		if err := g.client.Publish(g.topics.CoreRunProgress(evt.SequenceID), progress, 0, true); err != nil {
			return fmt.Errorf("publishing run progress: %w", err)
		}
	}
	return nil
}

// ControllerHealthSnapshot returns the last reported health of every
// controller seen on the health topic.
func (g *Gateway) ControllerHealthSnapshot() map[string]ControllerHealth {
	g.healthMu.RLock()
	defer g.healthMu.RUnlock()

	snapshot := make(map[string]ControllerHealth, len(g.health))
	for id, h := range g.health {
		snapshot[id] = h
	}
	return snapshot
}

// IsConnected reports whether the underlying broker connection is up.
func (g *Gateway) IsConnected() bool {
	return g.client.IsConnected()
}

// handleAckMessage processes one inbound acknowledgment.
func (g *Gateway) handleAckMessage(topic string, payload []byte) error {
	controllerID, deviceID, err := parseAckTopic(topic)
	if err != nil {
		return err
	}

	var msg ackMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	if msg.CommandID == "" {
		return fmt.Errorf("%w: missing command_id", ErrInvalidMessage)
	}

	if latency, ok := g.takeSent(msg.CommandID); ok && g.latency != nil {
		g.latency.WriteAckLatency(controllerID, deviceID, latency.Milliseconds())
	}

	if g.onAck == nil {
		g.logger.Warn("acknowledgment dropped, no handler registered",
			"command_id", msg.CommandID,
		)
		return nil
	}

	g.logger.Debug("acknowledgment received",
		"command_id", msg.CommandID,
		"controller_id", controllerID,
		"device_id", deviceID,
		"success", msg.Success,
	)
	g.onAck(msg.CommandID, msg.Success, msg.Detail)
	return nil
}

// handleHealthMessage updates the controller health map.
func (g *Gateway) handleHealthMessage(topic string, payload []byte) error {
	controllerID, err := parseHealthTopic(topic)
	if err != nil {
		return err
	}

	var msg healthMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}

	status := msg.Status
	if status != healthOnline && status != healthOffline {
		return fmt.Errorf("%w: unrecognised health status %q", ErrInvalidMessage, msg.Status)
	}

	g.healthMu.Lock()
	g.health[controllerID] = ControllerHealth{
		Status:   status,
		LastSeen: time.Now(),
	}
	g.healthMu.Unlock()

	if status == healthOffline {
		g.logger.Warn("controller reported offline", "controller_id", controllerID)
	}
	return nil
}

// recordSent stamps a command id and prunes stale entries.
func (g *Gateway) recordSent(commandID string) {
	now := time.Now()

	g.sentMu.Lock()
	defer g.sentMu.Unlock()

	for id, at := range g.sentAt {
		if now.Sub(at) > maxPendingAge {
			delete(g.sentAt, id)
		}
	}
	g.sentAt[commandID] = now
}

// takeSent removes a command id's timestamp and returns the elapsed
// time since publish. ok is false for commands this gateway never sent.
func (g *Gateway) takeSent(commandID string) (time.Duration, bool) {
	g.sentMu.Lock()
	defer g.sentMu.Unlock()

	at, ok := g.sentAt[commandID]
	if !ok {
		return 0, false
	}
	delete(g.sentAt, commandID)
	return time.Since(at), true
}
