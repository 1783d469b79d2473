package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nberridge/motion-core/internal/playback"
	"github.com/nberridge/motion-core/internal/sequence"
)

// RunStartRequest is the request body for starting playback.
type RunStartRequest struct {
	SequenceID      string  `json:"sequence_id"`
	StartIndex      int     `json:"start_index,omitempty"`
	SpeedMultiplier float64 `json:"speed_multiplier,omitempty"`
}

// RunSpeedRequest is the request body for changing playback speed.
type RunSpeedRequest struct {
	SpeedMultiplier float64 `json:"speed_multiplier"`
}

// handleRunStart begins replaying a sequence.
//
// The engine accepts or rejects the run synchronously; progress is
// delivered through the WebSocket event stream, not this response.
func (s *Server) handleRunStart(w http.ResponseWriter, r *http.Request) {
	var req RunStartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.SequenceID == "" {
		writeBadRequest(w, "sequence_id is required")
		return
	}

	seq, err := s.sequences.Get(r.Context(), req.SequenceID)
	if err != nil {
		if errors.Is(err, sequence.ErrNotFound) {
			writeNotFound(w, "sequence not found")
			return
		}
		writeInternalError(w, "failed to load sequence")
		return
	}

	speed := req.SpeedMultiplier
	if speed == 0 {
		speed = 1.0
	}

	if err := s.engine.Start(seq, req.StartIndex, speed); err != nil {
		writeEngineError(w, err, "failed to start playback")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{
		"accepted": true,
		"state":    s.engine.State(),
	})
}

// handleRunPause freezes the current run.
func (s *Server) handleRunPause(w http.ResponseWriter, _ *http.Request) {
	s.writeRunCommand(w, s.engine.Pause())
}

// handleRunResume restarts a paused run.
func (s *Server) handleRunResume(w http.ResponseWriter, _ *http.Request) {
	s.writeRunCommand(w, s.engine.Resume())
}

// handleRunStop aborts the current run.
func (s *Server) handleRunStop(w http.ResponseWriter, _ *http.Request) {
	s.writeRunCommand(w, s.engine.Stop())
}

// handleRunSpeed changes the playback speed multiplier. The engine
// clamps out-of-range values rather than rejecting them.
func (s *Server) handleRunSpeed(w http.ResponseWriter, r *http.Request) {
	var req RunSpeedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.SpeedMultiplier <= 0 {
		writeBadRequest(w, "speed_multiplier must be positive")
		return
	}
	s.writeRunCommand(w, s.engine.SetSpeed(req.SpeedMultiplier))
}

// handleRunState returns a snapshot of the engine's run state.
func (s *Server) handleRunState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.State())
}

// writeRunCommand reports a pause/resume/stop/speed outcome. Rejected
// transitions are not errors in the HTTP sense: the response carries
// accepted=false with a 200 so UIs can retry without error handling.
func (s *Server) writeRunCommand(w http.ResponseWriter, err error) {
	if err != nil {
		switch {
		case errors.Is(err, playback.ErrNotRunning),
			errors.Is(err, playback.ErrNotPaused):
			writeJSON(w, http.StatusOK, map[string]any{
				"accepted": false,
				"reason":   err.Error(),
				"state":    s.engine.State(),
			})
			return
		default:
			writeEngineError(w, err, "playback command failed")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"accepted": true,
		"state":    s.engine.State(),
	})
}

// writeEngineError maps playback engine errors to HTTP responses.
func writeEngineError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, playback.ErrInvalidStep):
		writeValidationError(w, err.Error())
	case errors.Is(err, playback.ErrAlreadyRunning):
		writeConflict(w, "a sequence is already running")
	case errors.Is(err, playback.ErrEngineClosed):
		writeError(w, http.StatusServiceUnavailable, ErrCodeInternal, "playback engine is shut down")
	default:
		writeInternalError(w, fallback)
	}
}
