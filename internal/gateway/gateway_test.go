package gateway

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nberridge/motion-core/internal/infrastructure/mqtt"
	"github.com/nberridge/motion-core/internal/playback"
)

// fakeMQTT records publishes and stores subscription handlers so tests
// can inject inbound messages.
type fakeMQTT struct {
	mu        sync.Mutex
	published []publishedMessage
	handlers  map[string]mqtt.MessageHandler
	pubErr    error
	subErr    error
	connected bool
}

type publishedMessage struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

func newFakeMQTT() *fakeMQTT {
	return &fakeMQTT{
		handlers:  make(map[string]mqtt.MessageHandler),
		connected: true,
	}
}

func (f *fakeMQTT) Publish(topic string, payload []byte, qos byte, retained bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pubErr != nil {
		return f.pubErr
	}
	f.published = append(f.published, publishedMessage{topic, payload, qos, retained})
	return nil
}

func (f *fakeMQTT) Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.subErr != nil {
		return f.subErr
	}
	f.handlers[topic] = handler
	return nil
}

func (f *fakeMQTT) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

// inject delivers a message to the handler whose subscription pattern
// matches the given wildcard key.
func (f *fakeMQTT) inject(t *testing.T, pattern, topic string, payload []byte) error {
	t.Helper()
	f.mu.Lock()
	handler, ok := f.handlers[pattern]
	f.mu.Unlock()
	if !ok {
		t.Fatalf("no subscription for %q", pattern)
	}
	return handler(topic, payload)
}

func (f *fakeMQTT) messages() []publishedMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]publishedMessage, len(f.published))
	copy(out, f.published)
	return out
}

// fakeResolver maps device ids to controller ids.
type fakeResolver struct {
	controllers map[string]string
}

func (r *fakeResolver) ControllerFor(deviceID string) (string, error) {
	c, ok := r.controllers[deviceID]
	if !ok {
		return "", errors.New("not found")
	}
	return c, nil
}

// ackRecorder captures forwarded acknowledgments.
type ackRecorder struct {
	mu   sync.Mutex
	acks []recordedAck
}

type recordedAck struct {
	commandID string
	success   bool
	detail    string
}

func (a *ackRecorder) handle(commandID string, success bool, detail string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.acks = append(a.acks, recordedAck{commandID, success, detail})
}

func (a *ackRecorder) all() []recordedAck {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]recordedAck, len(a.acks))
	copy(out, a.acks)
	return out
}

func newTestGateway() (*Gateway, *fakeMQTT, *ackRecorder) {
	client := newFakeMQTT()
	resolver := &fakeResolver{controllers: map[string]string{
		"servo1": "ctrl-a",
		"axis-x": "ctrl-b",
	}}
	acks := &ackRecorder{}

	g := New(client, resolver, 1)
	g.SetOnAck(acks.handle)
	return g, client, acks
}

// ─── Send ───────────────────────────────────────────────────────────────────

func TestGateway_SendRoutesToControllerTopic(t *testing.T) {
	g, client, _ := newTestGateway()

	speed := 45.0
	err := g.Send(playback.Command{
		CommandID: "cmd-1",
		DeviceID:  "servo1",
		Action:    "setAngle",
		Value:     90,
		Speed:     &speed,
	})
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	msgs := client.messages()
	if len(msgs) != 1 {
		t.Fatalf("published %d messages, want 1", len(msgs))
	}
	if msgs[0].topic != "motion/command/ctrl-a/servo1" {
		t.Errorf("topic = %q, want motion/command/ctrl-a/servo1", msgs[0].topic)
	}
	if msgs[0].qos != 1 || msgs[0].retained {
		t.Errorf("qos = %d retained = %v, want 1/false", msgs[0].qos, msgs[0].retained)
	}

	var cmd playback.Command
	if err := json.Unmarshal(msgs[0].payload, &cmd); err != nil {
		t.Fatalf("payload not valid JSON: %v", err)
	}
	if cmd.CommandID != "cmd-1" || cmd.Action != "setAngle" || cmd.Value != 90 {
		t.Errorf("decoded command = %+v", cmd)
	}
	if cmd.Speed == nil || *cmd.Speed != 45.0 {
		t.Errorf("decoded speed = %v, want 45", cmd.Speed)
	}
}

func TestGateway_SendUnknownDevice(t *testing.T) {
	g, client, _ := newTestGateway()

	err := g.Send(playback.Command{CommandID: "cmd-1", DeviceID: "ghost", Action: "moveTo"})
	if !errors.Is(err, ErrUnknownDevice) {
		t.Errorf("Send() error = %v, want ErrUnknownDevice", err)
	}
	if len(client.messages()) != 0 {
		t.Error("command published despite unknown device")
	}
}

func TestGateway_SendPublishError(t *testing.T) {
	g, client, _ := newTestGateway()
	client.pubErr = errors.New("broker unreachable")

	err := g.Send(playback.Command{CommandID: "cmd-1", DeviceID: "servo1", Action: "setAngle"})
	if err == nil {
		t.Error("Send() error = nil, want publish failure")
	}
}

// ─── Acknowledgments ────────────────────────────────────────────────────────

func TestGateway_AckForwardedToHandler(t *testing.T) {
	g, client, acks := newTestGateway()
	if err := g.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	payload := []byte(`{"command_id":"cmd-7","success":true,"detail":"reached target"}`)
	if err := client.inject(t, "motion/ack/+/+", "motion/ack/ctrl-a/servo1", payload); err != nil {
		t.Fatalf("handler error = %v", err)
	}

	got := acks.all()
	if len(got) != 1 {
		t.Fatalf("forwarded %d acks, want 1", len(got))
	}
	if got[0].commandID != "cmd-7" || !got[0].success || got[0].detail != "reached target" {
		t.Errorf("ack = %+v", got[0])
	}
}

func TestGateway_AckFailureForwarded(t *testing.T) {
	g, client, acks := newTestGateway()
	if err := g.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	payload := []byte(`{"command_id":"cmd-8","success":false,"detail":"limit switch"}`)
	if err := client.inject(t, "motion/ack/+/+", "motion/ack/ctrl-b/axis-x", payload); err != nil {
		t.Fatalf("handler error = %v", err)
	}

	got := acks.all()
	if len(got) != 1 || got[0].success || got[0].detail != "limit switch" {
		t.Errorf("acks = %+v", got)
	}
}

func TestGateway_UnrelatedAckStillForwarded(t *testing.T) {
	// Acks for commands this gateway never sent (manual jog from a UI)
	// reach the handler too; the engine filters by id.
	g, client, acks := newTestGateway()
	if err := g.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	payload := []byte(`{"command_id":"jog-1","success":true}`)
	if err := client.inject(t, "motion/ack/+/+", "motion/ack/ctrl-a/servo1", payload); err != nil {
		t.Fatalf("handler error = %v", err)
	}

	if got := acks.all(); len(got) != 1 || got[0].commandID != "jog-1" {
		t.Errorf("acks = %+v", got)
	}
}

func TestGateway_MalformedAckRejected(t *testing.T) {
	g, client, acks := newTestGateway()
	if err := g.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	tests := []struct {
		name    string
		topic   string
		payload []byte
	}{
		{"bad json", "motion/ack/ctrl-a/servo1", []byte(`{not json`)},
		{"missing command_id", "motion/ack/ctrl-a/servo1", []byte(`{"success":true}`)},
		{"short topic", "motion/ack/ctrl-a", []byte(`{"command_id":"c1","success":true}`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := client.inject(t, "motion/ack/+/+", tt.topic, tt.payload); err == nil {
				t.Error("handler error = nil, want rejection")
			}
		})
	}

	if got := acks.all(); len(got) != 0 {
		t.Errorf("malformed messages forwarded: %+v", got)
	}
}

// ─── Latency Telemetry ──────────────────────────────────────────────────────

type latencyRecorderMock struct {
	mu      sync.Mutex
	records []string
}

func (l *latencyRecorderMock) WriteAckLatency(controllerID, deviceID string, latencyMS int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, controllerID+"/"+deviceID)
}

func (l *latencyRecorderMock) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}

func TestGateway_AckLatencyRecordedForOwnCommands(t *testing.T) {
	g, client, _ := newTestGateway()
	rec := &latencyRecorderMock{}
	g.SetLatencyRecorder(rec)
	if err := g.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	if err := g.Send(playback.Command{CommandID: "cmd-1", DeviceID: "servo1", Action: "setAngle"}); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	// An ack for a foreign command records nothing.
	foreign := []byte(`{"command_id":"jog-1","success":true}`)
	if err := client.inject(t, "motion/ack/+/+", "motion/ack/ctrl-a/servo1", foreign); err != nil {
		t.Fatalf("handler error = %v", err)
	}
	if rec.count() != 0 {
		t.Error("latency recorded for a command the gateway never sent")
	}

	// The ack for our own command does.
	own := []byte(`{"command_id":"cmd-1","success":true}`)
	if err := client.inject(t, "motion/ack/+/+", "motion/ack/ctrl-a/servo1", own); err != nil {
		t.Fatalf("handler error = %v", err)
	}
	if rec.count() != 1 {
		t.Errorf("latency records = %d, want 1", rec.count())
	}
}

// ─── Controller Health ──────────────────────────────────────────────────────

func TestGateway_HealthTracked(t *testing.T) {
	g, client, _ := newTestGateway()
	if err := g.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	online := []byte(`{"status":"online","uptime_seconds":120,"firmware":"2.4.1"}`)
	if err := client.inject(t, "motion/health/+", "motion/health/ctrl-a", online); err != nil {
		t.Fatalf("handler error = %v", err)
	}

	snapshot := g.ControllerHealthSnapshot()
	h, ok := snapshot["ctrl-a"]
	if !ok {
		t.Fatal("ctrl-a missing from health snapshot")
	}
	if h.Status != "online" {
		t.Errorf("status = %q, want online", h.Status)
	}
	if time.Since(h.LastSeen) > time.Second {
		t.Errorf("LastSeen = %v, want recent", h.LastSeen)
	}

	offline := []byte(`{"status":"offline"}`)
	if err := client.inject(t, "motion/health/+", "motion/health/ctrl-a", offline); err != nil {
		t.Fatalf("handler error = %v", err)
	}
	if got := g.ControllerHealthSnapshot()["ctrl-a"].Status; got != "offline" {
		t.Errorf("status after offline report = %q", got)
	}
}

func TestGateway_HealthUnknownStatusRejected(t *testing.T) {
	g, client, _ := newTestGateway()
	if err := g.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	payload := []byte(`{"status":"rebooting"}`)
	if err := client.inject(t, "motion/health/+", "motion/health/ctrl-a", payload); err == nil {
		t.Error("handler error = nil, want rejection of unrecognised status")
	}
	if _, ok := g.ControllerHealthSnapshot()["ctrl-a"]; ok {
		t.Error("rejected health report recorded anyway")
	}
}

// ─── Run Events ─────────────────────────────────────────────────────────────

func TestGateway_PublishRunEvent(t *testing.T) {
	g, client, _ := newTestGateway()

	evt := playback.Event{
		Type:             playback.EventStepComplete,
		SequenceID:       "seq-1",
		SequenceName:     "demo",
		CurrentStepIndex: 2,
		TotalSteps:       5,
		SpeedMultiplier:  1.0,
		Timestamp:        time.Now(),
	}
	if err := g.PublishRunEvent(evt); err != nil {
		t.Fatalf("PublishRunEvent() error = %v", err)
	}

	msgs := client.messages()
	if len(msgs) != 2 {
		t.Fatalf("published %d messages, want event + progress", len(msgs))
	}
	if msgs[0].topic != "motion/core/run/seq-1/event" {
		t.Errorf("event topic = %q", msgs[0].topic)
	}
	if msgs[1].topic != "motion/core/run/seq-1/progress" {
		t.Errorf("progress topic = %q", msgs[1].topic)
	}
	if !msgs[1].retained {
		t.Error("progress message not retained")
	}

	var progress struct {
		StepIndex  int `json:"step_index"`
		TotalSteps int `json:"total_steps"`
	}
	if err := json.Unmarshal(msgs[1].payload, &progress); err != nil {
		t.Fatalf("progress payload: %v", err)
	}
	if progress.StepIndex != 2 || progress.TotalSteps != 5 {
		t.Errorf("progress = %+v", progress)
	}
}

func TestGateway_PublishRunEventPausedNoProgress(t *testing.T) {
	// Non-step events go to the event topic only.
	g, client, _ := newTestGateway()

	evt := playback.Event{Type: playback.EventPaused, SequenceID: "seq-1"}
	if err := g.PublishRunEvent(evt); err != nil {
		t.Fatalf("PublishRunEvent() error = %v", err)
	}
	if msgs := client.messages(); len(msgs) != 1 {
		t.Errorf("published %d messages, want 1", len(msgs))
	}
}

func TestGateway_PublishRunEventNoSequenceIgnored(t *testing.T) {
	g, client, _ := newTestGateway()

	if err := g.PublishRunEvent(playback.Event{Type: playback.EventStopped}); err != nil {
		t.Fatalf("PublishRunEvent() error = %v", err)
	}
	if msgs := client.messages(); len(msgs) != 0 {
		t.Errorf("published %d messages for an idle-state event, want 0", len(msgs))
	}
}
