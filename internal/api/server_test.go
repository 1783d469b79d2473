package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/nberridge/motion-core/internal/device"
	"github.com/nberridge/motion-core/internal/infrastructure/config"
	"github.com/nberridge/motion-core/internal/infrastructure/logging"
	"github.com/nberridge/motion-core/internal/playback"
	"github.com/nberridge/motion-core/internal/sequence"
)

// ─── Test Fixtures ──────────────────────────────────────────────────────────

// memSequenceRepo is an in-memory sequence.Repository.
type memSequenceRepo struct {
	mu   sync.Mutex
	data map[string]*sequence.Sequence
}

func newMemSequenceRepo() *memSequenceRepo {
	return &memSequenceRepo{data: make(map[string]*sequence.Sequence)}
}

func (m *memSequenceRepo) GetByID(_ context.Context, id string) (*sequence.Sequence, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.data[id]
	if !ok {
		return nil, sequence.ErrNotFound
	}
	return s.DeepCopy(), nil
}

func (m *memSequenceRepo) List(_ context.Context) ([]sequence.Sequence, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []sequence.Sequence
	for _, s := range m.data {
		out = append(out, *s.DeepCopy())
	}
	return out, nil
}

func (m *memSequenceRepo) Create(_ context.Context, s *sequence.Sequence) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.data[s.ID]; exists {
		return sequence.ErrExists
	}
	m.data[s.ID] = s.DeepCopy()
	return nil
}

func (m *memSequenceRepo) Update(_ context.Context, s *sequence.Sequence) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.data[s.ID]; !exists {
		return sequence.ErrNotFound
	}
	m.data[s.ID] = s.DeepCopy()
	return nil
}

func (m *memSequenceRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.data[id]; !exists {
		return sequence.ErrNotFound
	}
	delete(m.data, id)
	return nil
}

// memDeviceRepo is an in-memory device.Repository.
type memDeviceRepo struct {
	mu          sync.Mutex
	controllers map[string]*device.Controller
	devices     map[string]*device.Device
}

func newMemDeviceRepo() *memDeviceRepo {
	return &memDeviceRepo{
		controllers: make(map[string]*device.Controller),
		devices:     make(map[string]*device.Device),
	}
}

func (m *memDeviceRepo) GetController(_ context.Context, id string) (*device.Controller, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.controllers[id]
	if !ok {
		return nil, device.ErrControllerNotFound
	}
	return c.DeepCopy(), nil
}

func (m *memDeviceRepo) ListControllers(_ context.Context) ([]device.Controller, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []device.Controller
	for _, c := range m.controllers {
		out = append(out, *c.DeepCopy())
	}
	return out, nil
}

func (m *memDeviceRepo) CreateController(_ context.Context, c *device.Controller) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.controllers[c.ID]; exists {
		return device.ErrExists
	}
	m.controllers[c.ID] = c.DeepCopy()
	return nil
}

func (m *memDeviceRepo) UpdateController(_ context.Context, c *device.Controller) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.controllers[c.ID]; !exists {
		return device.ErrControllerNotFound
	}
	m.controllers[c.ID] = c.DeepCopy()
	return nil
}

func (m *memDeviceRepo) DeleteController(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.controllers[id]; !exists {
		return device.ErrControllerNotFound
	}
	for _, d := range m.devices {
		if d.ControllerID == id {
			return device.ErrControllerInUse
		}
	}
	delete(m.controllers, id)
	return nil
}

func (m *memDeviceRepo) GetDevice(_ context.Context, id string) (*device.Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.devices[id]
	if !ok {
		return nil, device.ErrNotFound
	}
	return d.DeepCopy(), nil
}

func (m *memDeviceRepo) ListDevices(_ context.Context) ([]device.Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []device.Device
	for _, d := range m.devices {
		out = append(out, *d.DeepCopy())
	}
	return out, nil
}

func (m *memDeviceRepo) CreateDevice(_ context.Context, d *device.Device) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.devices[d.ID]; exists {
		return device.ErrExists
	}
	for _, other := range m.devices {
		if other.ControllerID == d.ControllerID && other.Channel == d.Channel {
			return device.ErrChannelInUse
		}
	}
	m.devices[d.ID] = d.DeepCopy()
	return nil
}

func (m *memDeviceRepo) UpdateDevice(_ context.Context, d *device.Device) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.devices[d.ID]; !exists {
		return device.ErrNotFound
	}
	m.devices[d.ID] = d.DeepCopy()
	return nil
}

func (m *memDeviceRepo) DeleteDevice(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.devices[id]; !exists {
		return device.ErrNotFound
	}
	delete(m.devices, id)
	return nil
}

// stubGateway accepts every command.
type stubGateway struct {
	mu   sync.Mutex
	sent []playback.Command
}

func (g *stubGateway) Send(cmd playback.Command) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sent = append(g.sent, cmd)
	return nil
}

type testHarness struct {
	server  *Server
	handler http.Handler
	engine  *playback.Engine
}

func newTestHarness(t *testing.T) *testHarness {
	t.Helper()

	logger := logging.New(config.LoggingConfig{Level: "error", Format: "text", Output: "stderr"}, "test")

	seqReg := sequence.NewRegistry(newMemSequenceRepo())
	if err := seqReg.RefreshCache(context.Background()); err != nil {
		t.Fatalf("RefreshCache() error = %v", err)
	}

	devReg := device.NewRegistry(newMemDeviceRepo())
	if err := devReg.RefreshCache(context.Background()); err != nil {
		t.Fatalf("RefreshCache() error = %v", err)
	}

	engine := playback.New(&stubGateway{}, playback.Options{})
	t.Cleanup(engine.Close)
	seqReg.SetRunningCheck(engine.IsRunning)

	srv, err := New(Deps{
		Config:    config.APIConfig{Host: "127.0.0.1", Port: 0},
		WS:        config.WebSocketConfig{MaxMessageSize: 4096, PingInterval: 30, PongTimeout: 60},
		Logger:    logger,
		Sequences: seqReg,
		Devices:   devReg,
		Engine:    engine,
		Version:   "test",
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	srv.hub = NewHub(srv.wsCfg, logger)

	return &testHarness{
		server:  srv,
		handler: srv.buildRouter(),
		engine:  engine,
	}
}

// do performs a request against the router and decodes the JSON body.
func (h *testHarness) do(t *testing.T, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	var reqBody *bytes.Buffer
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshalling request body: %v", err)
		}
		reqBody = bytes.NewBuffer(data)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)

	var decoded map[string]any
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &decoded); err != nil {
			t.Fatalf("response body is not JSON: %v\nbody: %s", err, rec.Body.String())
		}
	}
	return rec, decoded
}

func (h *testHarness) createSequence(t *testing.T, name string, steps []map[string]any) string {
	t.Helper()
	rec, body := h.do(t, http.MethodPost, "/api/v1/sequences", map[string]any{
		"name":  name,
		"steps": steps,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create sequence status = %d, body = %v", rec.Code, body)
	}
	id, _ := body["id"].(string)
	if id == "" {
		t.Fatal("created sequence has no id")
	}
	return id
}

func delayStep(ms int) map[string]any {
	return map[string]any{"type": "delay", "duration_ms": ms}
}

// ─── Health and System ──────────────────────────────────────────────────────

func TestHandleHealth(t *testing.T) {
	h := newTestHarness(t)

	rec, body := h.do(t, http.MethodGet, "/api/v1/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if body["status"] != "ok" || body["version"] != "test" {
		t.Errorf("body = %v", body)
	}
}

func TestHandleSystemStatus(t *testing.T) {
	h := newTestHarness(t)

	rec, body := h.do(t, http.MethodGet, "/api/v1/system/status", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if body["status"] != "ok" {
		t.Errorf("status field = %v", body["status"])
	}
	run, ok := body["run"].(map[string]any)
	if !ok {
		t.Fatalf("run field = %v", body["run"])
	}
	if run["phase"] != string(playback.PhaseIdle) {
		t.Errorf("run phase = %v, want idle", run["phase"])
	}
}

// ─── Sequences ──────────────────────────────────────────────────────────────

func TestSequenceCRUD(t *testing.T) {
	h := newTestHarness(t)

	id := h.createSequence(t, "demo", []map[string]any{delayStep(100)})

	rec, body := h.do(t, http.MethodGet, "/api/v1/sequences/"+id, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}
	if body["name"] != "demo" {
		t.Errorf("name = %v", body["name"])
	}

	rec, body = h.do(t, http.MethodPut, "/api/v1/sequences/"+id, map[string]any{
		"name":  "demo renamed",
		"steps": []map[string]any{delayStep(200)},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d, body = %v", rec.Code, body)
	}

	rec, body = h.do(t, http.MethodGet, "/api/v1/sequences/", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	if body["count"] != float64(1) {
		t.Errorf("count = %v, want 1", body["count"])
	}

	rec, _ = h.do(t, http.MethodDelete, "/api/v1/sequences/"+id, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d", rec.Code)
	}

	rec, _ = h.do(t, http.MethodGet, "/api/v1/sequences/"+id, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("get after delete status = %d, want 404", rec.Code)
	}
}

func TestCreateSequenceValidationError(t *testing.T) {
	h := newTestHarness(t)

	rec, body := h.do(t, http.MethodPost, "/api/v1/sequences", map[string]any{
		"name":  "",
		"steps": []map[string]any{delayStep(100)},
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if body["code"] != ErrCodeValidation {
		t.Errorf("code = %v", body["code"])
	}
}

func TestUpdateSequenceWhileRunningConflict(t *testing.T) {
	h := newTestHarness(t)
	id := h.createSequence(t, "long run", []map[string]any{delayStep(60000)})

	rec, body := h.do(t, http.MethodPost, "/api/v1/run/start", map[string]any{"sequence_id": id})
	if rec.Code != http.StatusAccepted {
		t.Fatalf("start status = %d, body = %v", rec.Code, body)
	}

	rec, body = h.do(t, http.MethodPut, "/api/v1/sequences/"+id, map[string]any{
		"name":  "edited mid-run",
		"steps": []map[string]any{delayStep(1)},
	})
	if rec.Code != http.StatusConflict {
		t.Errorf("update while running status = %d, want 409; body = %v", rec.Code, body)
	}

	// Stop unblocks editing.
	rec, _ = h.do(t, http.MethodPost, "/api/v1/run/stop", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("stop status = %d", rec.Code)
	}
	rec, _ = h.do(t, http.MethodPut, "/api/v1/sequences/"+id, map[string]any{
		"name":  "edited after stop",
		"steps": []map[string]any{delayStep(1)},
	})
	if rec.Code != http.StatusOK {
		t.Errorf("update after stop status = %d", rec.Code)
	}
}

// ─── Run Control ────────────────────────────────────────────────────────────

func TestRunLifecycle(t *testing.T) {
	h := newTestHarness(t)
	id := h.createSequence(t, "lifecycle", []map[string]any{delayStep(60000)})

	rec, body := h.do(t, http.MethodPost, "/api/v1/run/start", map[string]any{"sequence_id": id})
	if rec.Code != http.StatusAccepted {
		t.Fatalf("start status = %d, body = %v", rec.Code, body)
	}
	state, _ := body["state"].(map[string]any)
	if state["phase"] != string(playback.PhaseRunning) {
		t.Errorf("phase after start = %v", state["phase"])
	}

	rec, body = h.do(t, http.MethodPost, "/api/v1/run/pause", nil)
	if rec.Code != http.StatusOK || body["accepted"] != true {
		t.Fatalf("pause = %d %v", rec.Code, body)
	}

	rec, body = h.do(t, http.MethodPost, "/api/v1/run/resume", nil)
	if rec.Code != http.StatusOK || body["accepted"] != true {
		t.Fatalf("resume = %d %v", rec.Code, body)
	}

	rec, body = h.do(t, http.MethodPut, "/api/v1/run/speed", map[string]any{"speed_multiplier": 2.0})
	if rec.Code != http.StatusOK || body["accepted"] != true {
		t.Fatalf("speed = %d %v", rec.Code, body)
	}
	state, _ = body["state"].(map[string]any)
	if state["speed_multiplier"] != 2.0 {
		t.Errorf("speed = %v, want 2", state["speed_multiplier"])
	}

	rec, _ = h.do(t, http.MethodGet, "/api/v1/run/state", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("state status = %d", rec.Code)
	}

	rec, body = h.do(t, http.MethodPost, "/api/v1/run/stop", nil)
	if rec.Code != http.StatusOK || body["accepted"] != true {
		t.Fatalf("stop = %d %v", rec.Code, body)
	}
}

func TestRunStartUnknownSequence(t *testing.T) {
	h := newTestHarness(t)

	rec, _ := h.do(t, http.MethodPost, "/api/v1/run/start", map[string]any{"sequence_id": "ghost"})
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestRunStartWhileRunningConflict(t *testing.T) {
	h := newTestHarness(t)
	id := h.createSequence(t, "busy", []map[string]any{delayStep(60000)})

	rec, _ := h.do(t, http.MethodPost, "/api/v1/run/start", map[string]any{"sequence_id": id})
	if rec.Code != http.StatusAccepted {
		t.Fatalf("first start status = %d", rec.Code)
	}

	rec, body := h.do(t, http.MethodPost, "/api/v1/run/start", map[string]any{"sequence_id": id})
	if rec.Code != http.StatusConflict {
		t.Errorf("second start status = %d, want 409; body = %v", rec.Code, body)
	}
}

func TestRunPauseWhileIdleNotAccepted(t *testing.T) {
	h := newTestHarness(t)

	rec, body := h.do(t, http.MethodPost, "/api/v1/run/pause", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if body["accepted"] != false {
		t.Errorf("accepted = %v, want false", body["accepted"])
	}
}

func TestRunSpeedInvalidBody(t *testing.T) {
	h := newTestHarness(t)

	rec, _ := h.do(t, http.MethodPut, "/api/v1/run/speed", map[string]any{"speed_multiplier": -1})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

// ─── Controllers and Devices ────────────────────────────────────────────────

func TestControllerAndDeviceCRUD(t *testing.T) {
	h := newTestHarness(t)

	rec, body := h.do(t, http.MethodPost, "/api/v1/controllers", map[string]any{"name": "Bench A"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create controller = %d %v", rec.Code, body)
	}
	ctrlID, _ := body["id"].(string)

	rec, body = h.do(t, http.MethodPost, "/api/v1/devices", map[string]any{
		"controller_id": ctrlID,
		"name":          "X axis",
		"type":          "stepper",
		"channel":       0,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create device = %d %v", rec.Code, body)
	}
	devID, _ := body["id"].(string)

	// Duplicate channel on the same controller conflicts.
	rec, _ = h.do(t, http.MethodPost, "/api/v1/devices", map[string]any{
		"controller_id": ctrlID,
		"name":          "Y axis",
		"type":          "stepper",
		"channel":       0,
	})
	if rec.Code != http.StatusConflict {
		t.Errorf("duplicate channel status = %d, want 409", rec.Code)
	}

	// Controller with attached devices cannot be deleted.
	rec, _ = h.do(t, http.MethodDelete, "/api/v1/controllers/"+ctrlID, nil)
	if rec.Code != http.StatusConflict {
		t.Errorf("delete in-use controller status = %d, want 409", rec.Code)
	}

	rec, _ = h.do(t, http.MethodDelete, "/api/v1/devices/"+devID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete device status = %d", rec.Code)
	}
	rec, _ = h.do(t, http.MethodDelete, "/api/v1/controllers/"+ctrlID, nil)
	if rec.Code != http.StatusOK {
		t.Errorf("delete controller status = %d", rec.Code)
	}
}

func TestCreateDeviceUnknownType(t *testing.T) {
	h := newTestHarness(t)

	rec, body := h.do(t, http.MethodPost, "/api/v1/controllers", map[string]any{"name": "Bench A"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create controller = %d", rec.Code)
	}
	ctrlID, _ := body["id"].(string)

	rec, body = h.do(t, http.MethodPost, "/api/v1/devices", map[string]any{
		"controller_id": ctrlID,
		"name":          "mystery",
		"type":          "hydraulic",
		"channel":       1,
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400; body = %v", rec.Code, body)
	}
}

// ─── Middleware ─────────────────────────────────────────────────────────────

func TestRequestIDHeader(t *testing.T) {
	h := newTestHarness(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)

	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("X-Request-ID header not set")
	}

	// A client-supplied id is echoed back.
	req = httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("X-Request-ID", "fixed-id")
	rec = httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Request-ID"); got != "fixed-id" {
		t.Errorf("X-Request-ID = %q, want fixed-id", got)
	}
}

func TestCORSPreflight(t *testing.T) {
	h := newTestHarness(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/health", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d, want 204", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "http://localhost:3000" {
		t.Errorf("Allow-Origin = %q", rec.Header().Get("Access-Control-Allow-Origin"))
	}
}

// TestRunStateEventuallyIdle exercises a short real run end to end
// through the HTTP surface.
func TestRunStateEventuallyIdle(t *testing.T) {
	h := newTestHarness(t)
	id := h.createSequence(t, "quick", []map[string]any{delayStep(30)})

	rec, _ := h.do(t, http.MethodPost, "/api/v1/run/start", map[string]any{"sequence_id": id})
	if rec.Code != http.StatusAccepted {
		t.Fatalf("start status = %d", rec.Code)
	}

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		_, body := h.do(t, http.MethodGet, "/api/v1/run/state", nil)
		if body["phase"] == string(playback.PhaseIdle) {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("run never returned to idle")
}
