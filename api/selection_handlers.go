package api

import (
	"encoding/json"
	"net/http"

	"krx-signal-board/simulation"
)

// Selection API Handlers

// handleGetSelection returns the full selection state.
func (s *Server) handleGetSelection(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Store().State())
}

// handleSetMode switches the simulated sell-price basis.
func (s *Server) handleSetMode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Mode simulation.Mode `json:"mode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if req.Mode != simulation.ModeClose && req.Mode != simulation.ModeHigh {
		respondWithError(w, http.StatusUnprocessableEntity, "mode must be close or high", nil)
		return
	}

	s.engine.Store().SetMode(req.Mode)
	writeJSON(w, http.StatusOK, s.engine.Store().State())
}

// handleSetCategory enables or disables one category.
func (s *Server) handleSetCategory(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Category simulation.Source `json:"category"`
		Enabled  bool              `json:"enabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if !validSource(req.Category) {
		respondWithError(w, http.StatusUnprocessableEntity, "unknown category", nil)
		return
	}

	s.engine.Store().SetCategory(req.Category, req.Enabled)
	writeJSON(w, http.StatusOK, s.engine.Store().State())
}

// handleSelectAllDates replaces the whole date selection.
func (s *Server) handleSelectAllDates(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Dates []string `json:"dates"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	s.engine.Store().SelectAllDates(req.Dates)
	writeJSON(w, http.StatusOK, s.engine.Store().State())
}

// handleToggleDate adds or removes one date from the selection.
func (s *Server) handleToggleDate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Date string `json:"date"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Date == "" {
		respondWithError(w, http.StatusBadRequest, "date is required", err)
		return
	}

	s.engine.Store().ToggleDate(req.Date)
	writeJSON(w, http.StatusOK, s.engine.Store().State())
}

// handleToggleExcluded flips one stock's exclusion from return aggregation.
func (s *Server) handleToggleExcluded(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Date     string            `json:"date"`
		Category simulation.Source `json:"category"`
		Code     string            `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Date == "" || req.Code == "" {
		respondWithError(w, http.StatusBadRequest, "date, category and code are required", err)
		return
	}
	if !validSource(req.Category) {
		respondWithError(w, http.StatusUnprocessableEntity, "unknown category", nil)
		return
	}

	s.engine.Store().ToggleExcluded(req.Date, req.Category, req.Code)
	writeJSON(w, http.StatusOK, s.engine.Store().State())
}

// handleBulkExcluded excludes or includes many composite keys at once.
func (s *Server) handleBulkExcluded(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Keys     []string `json:"keys"`
		Excluded bool     `json:"excluded"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	s.engine.Store().SetExcludedBulk(req.Keys, req.Excluded)
	writeJSON(w, http.StatusOK, s.engine.Store().State())
}

func validSource(src simulation.Source) bool {
	for _, known := range simulation.Sources {
		if src == known {
			return true
		}
	}
	return false
}
