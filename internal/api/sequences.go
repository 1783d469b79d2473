package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nberridge/motion-core/internal/sequence"
)

// SequenceRequest is the request body for creating or updating a
// sequence.
type SequenceRequest struct {
	Name        string          `json:"name"`
	Description *string         `json:"description,omitempty"`
	Steps       []sequence.Step `json:"steps"`
}

// handleListSequences returns all sequences.
func (s *Server) handleListSequences(w http.ResponseWriter, r *http.Request) {
	sequences, err := s.sequences.List(r.Context())
	if err != nil {
		writeInternalError(w, "failed to list sequences")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"sequences": sequences,
		"count":     len(sequences),
	})
}

// handleGetSequence returns one sequence by id.
func (s *Server) handleGetSequence(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	seq, err := s.sequences.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, sequence.ErrNotFound) {
			writeNotFound(w, "sequence not found")
			return
		}
		writeInternalError(w, "failed to get sequence")
		return
	}
	writeJSON(w, http.StatusOK, seq)
}

// handleCreateSequence creates a new sequence.
func (s *Server) handleCreateSequence(w http.ResponseWriter, r *http.Request) {
	var req SequenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	seq := &sequence.Sequence{
		Name:        req.Name,
		Description: req.Description,
		Steps:       req.Steps,
	}

	if err := s.sequences.Create(r.Context(), seq); err != nil {
		writeSequenceError(w, err, "failed to create sequence")
		return
	}
	writeJSON(w, http.StatusCreated, seq)
}

// handleUpdateSequence replaces an existing sequence.
func (s *Server) handleUpdateSequence(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req SequenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	existing, err := s.sequences.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, sequence.ErrNotFound) {
			writeNotFound(w, "sequence not found")
			return
		}
		writeInternalError(w, "failed to get sequence")
		return
	}

	existing.Name = req.Name
	existing.Description = req.Description
	existing.Steps = req.Steps

	if err := s.sequences.Update(r.Context(), existing); err != nil {
		writeSequenceError(w, err, "failed to update sequence")
		return
	}
	writeJSON(w, http.StatusOK, existing)
}

// handleDeleteSequence removes a sequence.
func (s *Server) handleDeleteSequence(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.sequences.Delete(r.Context(), id); err != nil {
		writeSequenceError(w, err, "failed to delete sequence")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted", "id": id})
}

// writeSequenceError maps sequence registry errors to HTTP responses.
func writeSequenceError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, sequence.ErrNotFound):
		writeNotFound(w, "sequence not found")
	case errors.Is(err, sequence.ErrRunning):
		writeConflict(w, "sequence is currently being replayed")
	case errors.Is(err, sequence.ErrExists):
		writeConflict(w, "sequence already exists")
	case errors.Is(err, sequence.ErrInvalid),
		errors.Is(err, sequence.ErrInvalidStep),
		errors.Is(err, sequence.ErrInvalidName),
		errors.Is(err, sequence.ErrNoSteps):
		writeValidationError(w, err.Error())
	default:
		writeInternalError(w, fallback)
	}
}
