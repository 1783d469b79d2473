package api

import (
	"net/http"
	"time"
)

// SystemStatus is the response body for GET /api/v1/system/status.
type SystemStatus struct {
	Status        string         `json:"status"`
	Version       string         `json:"version"`
	UptimeSeconds int64          `json:"uptime_seconds"`
	MQTTConnected bool           `json:"mqtt_connected"`
	Run           any            `json:"run"`
	Sequences     int            `json:"sequences"`
	Controllers   map[string]any `json:"controllers"`
	WSClients     int            `json:"ws_clients"`
}

// handleSystemStatus reports daemon-wide status: broker connectivity,
// the current run snapshot, registry counts, and controller health as
// last reported on the bus.
func (s *Server) handleSystemStatus(w http.ResponseWriter, r *http.Request) {
	status := SystemStatus{
		Status:        "ok",
		Version:       s.version,
		UptimeSeconds: int64(time.Since(s.startedAt).Seconds()),
		Run:           s.engine.State(),
		Sequences:     s.sequences.Count(),
		Controllers:   make(map[string]any),
	}

	if s.mqtt != nil {
		status.MQTTConnected = s.mqtt.IsConnected()
	}
	if s.hub != nil {
		status.WSClients = s.hub.ClientCount()
	}

	controllers, _ := s.devices.ListControllers(r.Context()) //nolint:errcheck // cache-only read cannot fail
	for _, c := range controllers {
		entry := map[string]any{"name": c.Name, "health": "unknown"}
		status.Controllers[c.ID] = entry
	}
	if s.gateway != nil {
		for id, h := range s.gateway.ControllerHealthSnapshot() {
			entry, ok := status.Controllers[id].(map[string]any)
			if !ok {
				entry = map[string]any{}
				status.Controllers[id] = entry
			}
			entry["health"] = h.Status
			entry["last_seen"] = h.LastSeen.UTC().Format(time.RFC3339)
		}
	}

	writeJSON(w, http.StatusOK, status)
}
