package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nberridge/motion-core/internal/device"
)

// ControllerRequest is the request body for creating or updating a
// controller.
type ControllerRequest struct {
	Name        string  `json:"name"`
	Host        *string `json:"host,omitempty"`
	Description *string `json:"description,omitempty"`
}

// DeviceRequest is the request body for creating or updating a device.
type DeviceRequest struct {
	ControllerID string               `json:"controller_id"`
	Name         string               `json:"name"`
	Type         device.DeviceType    `json:"type"`
	Channel      int                  `json:"channel"`
	Group        *string              `json:"group,omitempty"`
	Limits       *device.MotionLimits `json:"limits,omitempty"`
}

// ─── Controllers ────────────────────────────────────────────────────────────

// handleListControllers returns all controllers.
func (s *Server) handleListControllers(w http.ResponseWriter, r *http.Request) {
	controllers, err := s.devices.ListControllers(r.Context())
	if err != nil {
		writeInternalError(w, "failed to list controllers")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"controllers": controllers,
		"count":       len(controllers),
	})
}

// handleGetController returns one controller by id.
func (s *Server) handleGetController(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	c, err := s.devices.GetController(r.Context(), id)
	if err != nil {
		writeDeviceError(w, err, "failed to get controller")
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// handleCreateController creates a new controller.
func (s *Server) handleCreateController(w http.ResponseWriter, r *http.Request) {
	var req ControllerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	c := &device.Controller{
		Name:        req.Name,
		Host:        req.Host,
		Description: req.Description,
	}
	if err := s.devices.CreateController(r.Context(), c); err != nil {
		writeDeviceError(w, err, "failed to create controller")
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// handleUpdateController replaces an existing controller.
func (s *Server) handleUpdateController(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req ControllerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	existing, err := s.devices.GetController(r.Context(), id)
	if err != nil {
		writeDeviceError(w, err, "failed to get controller")
		return
	}

	existing.Name = req.Name
	existing.Host = req.Host
	existing.Description = req.Description

	if err := s.devices.UpdateController(r.Context(), existing); err != nil {
		writeDeviceError(w, err, "failed to update controller")
		return
	}
	writeJSON(w, http.StatusOK, existing)
}

// handleDeleteController removes a controller.
func (s *Server) handleDeleteController(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.devices.DeleteController(r.Context(), id); err != nil {
		writeDeviceError(w, err, "failed to delete controller")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted", "id": id})
}

// ─── Devices ────────────────────────────────────────────────────────────────

// handleListDevices returns all devices, optionally filtered by group.
func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	var (
		devices []device.Device
		err     error
	)
	if group := r.URL.Query().Get("group"); group != "" {
		devices, err = s.devices.DevicesByGroup(r.Context(), group)
	} else {
		devices, err = s.devices.ListDevices(r.Context())
	}
	if err != nil {
		writeInternalError(w, "failed to list devices")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"devices": devices,
		"count":   len(devices),
	})
}

// handleGetDevice returns one device by id.
func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	d, err := s.devices.GetDevice(r.Context(), id)
	if err != nil {
		writeDeviceError(w, err, "failed to get device")
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// handleCreateDevice creates a new device.
func (s *Server) handleCreateDevice(w http.ResponseWriter, r *http.Request) {
	var req DeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	d := &device.Device{
		ControllerID: req.ControllerID,
		Name:         req.Name,
		Type:         req.Type,
		Channel:      req.Channel,
		Group:        req.Group,
		Limits:       req.Limits,
	}
	if err := s.devices.CreateDevice(r.Context(), d); err != nil {
		writeDeviceError(w, err, "failed to create device")
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

// handleUpdateDevice replaces an existing device.
func (s *Server) handleUpdateDevice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req DeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	existing, err := s.devices.GetDevice(r.Context(), id)
	if err != nil {
		writeDeviceError(w, err, "failed to get device")
		return
	}

	existing.ControllerID = req.ControllerID
	existing.Name = req.Name
	existing.Type = req.Type
	existing.Channel = req.Channel
	existing.Group = req.Group
	existing.Limits = req.Limits

	if err := s.devices.UpdateDevice(r.Context(), existing); err != nil {
		writeDeviceError(w, err, "failed to update device")
		return
	}
	writeJSON(w, http.StatusOK, existing)
}

// handleDeleteDevice removes a device.
func (s *Server) handleDeleteDevice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.devices.DeleteDevice(r.Context(), id); err != nil {
		writeDeviceError(w, err, "failed to delete device")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted", "id": id})
}

// writeDeviceError maps device registry errors to HTTP responses.
func writeDeviceError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, device.ErrNotFound):
		writeNotFound(w, "device not found")
	case errors.Is(err, device.ErrControllerNotFound):
		writeNotFound(w, "controller not found")
	case errors.Is(err, device.ErrControllerInUse):
		writeConflict(w, "controller has attached devices")
	case errors.Is(err, device.ErrChannelInUse):
		writeConflict(w, "channel already in use on this controller")
	case errors.Is(err, device.ErrExists):
		writeConflict(w, "already exists")
	case errors.Is(err, device.ErrInvalid):
		writeValidationError(w, err.Error())
	default:
		writeInternalError(w, fallback)
	}
}
