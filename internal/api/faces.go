package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"homecore/internal/face"
)

// addKnownRequest is the body for POST /api/face/add-known.
type addKnownRequest struct {
	Name string `json:"name"`
}

// handleFaceRecent returns the most recent face detections.
// Query parameter: limit (default 20, max 100).
func (s *Server) handleFaceRecent(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeBadRequest(w, "limit must be an integer")
			return
		}
		limit = parsed
	}

	detections, err := s.faces.Recent(r.Context(), limit)
	if err != nil {
		s.logger.Error("recent detections query failed", "error", err)
		writeInternalError(w, "failed to query detections")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"detections": detections,
		"count":      len(detections),
	})
}

// handleFaceKnown returns every registered known person.
func (s *Server) handleFaceKnown(w http.ResponseWriter, r *http.Request) {
	persons, err := s.faces.KnownPersons(r.Context())
	if err != nil {
		s.logger.Error("known persons query failed", "error", err)
		writeInternalError(w, "failed to query known persons")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"persons": persons,
		"count":   len(persons),
	})
}

// handleFaceAddKnown registers a new known person.
func (s *Server) handleFaceAddKnown(w http.ResponseWriter, r *http.Request) {
	var req addKnownRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if err := s.faces.AddKnownPerson(r.Context(), req.Name); err != nil {
		switch {
		case errors.Is(err, face.ErrInvalidName):
			writeBadRequest(w, "name is required")
		case errors.Is(err, face.ErrPersonExists):
			writeConflict(w, "person already registered")
		default:
			s.logger.Error("add known person failed", "name", req.Name, "error", err)
			writeInternalError(w, "failed to add person")
		}
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"name": req.Name,
	})
}

// handleFaceStats returns aggregate detection statistics.
func (s *Server) handleFaceStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.faces.Stats(r.Context())
	if err != nil {
		s.logger.Error("face stats query failed", "error", err)
		writeInternalError(w, "failed to query stats")
		return
	}

	writeJSON(w, http.StatusOK, stats)
}
