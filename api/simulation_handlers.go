package api

import (
	"encoding/json"
	"net/http"

	"krx-signal-board/simulation"
)

// Simulation API Handlers

// handleGetSimulation returns the dataset displayed for a date: the baseline,
// or the reconciled override when the user selected an alternate analysis time.
func (s *Server) handleGetSimulation(w http.ResponseWriter, r *http.Request) {
	date, ok := requireDate(w, r)
	if !ok {
		return
	}

	result, err := s.engine.DataForDate(r.Context(), date)
	if err != nil {
		respondWithError(w, http.StatusBadGateway, "failed to load simulation data", err)
		return
	}
	if result.Data == nil {
		respondWithError(w, http.StatusNotFound, "no simulation data for date", nil)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleGetAvailableTimes returns the selectable collection times for a date.
func (s *Server) handleGetAvailableTimes(w http.ResponseWriter, r *http.Request) {
	date, ok := requireDate(w, r)
	if !ok {
		return
	}

	times := s.engine.AvailableTimes(r.Context(), date)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"date":  date,
		"times": times,
		"count": len(times),
	})
}

type overrideRequest struct {
	Date string `json:"date"`
	Time string `json:"time"`
}

// handleSetOverride stores a per-date analysis-time selection. Selecting the
// earliest time clears the override instead of storing the baseline value.
func (s *Server) handleSetOverride(w http.ResponseWriter, r *http.Request) {
	var req overrideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Date == "" || req.Time == "" {
		respondWithError(w, http.StatusBadRequest, "date and time are required", err)
		return
	}

	times := s.engine.AvailableTimes(r.Context(), req.Date)
	earliest := ""
	valid := false
	for _, t := range times {
		if t.IsEarliest {
			earliest = t.Time
		}
		if t.Time == req.Time {
			valid = true
		}
	}
	if !valid {
		respondWithError(w, http.StatusUnprocessableEntity, "time is not available for date", nil)
		return
	}

	s.engine.Store().SetTimeOverride(req.Date, req.Time, earliest)

	overridden := simulation.NeedsOverride(req.Time, earliest)
	event := "override_set"
	if !overridden {
		event = "override_cleared"
	}
	s.webhook.Notify(event, req.Date, req.Time)
	s.broker.Broadcast(event, req)
	s.hub.Broadcast(event, req)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"date":       req.Date,
		"time":       req.Time,
		"overridden": overridden,
	})
}

// handleClearOverride restores the baseline for a date.
func (s *Server) handleClearOverride(w http.ResponseWriter, r *http.Request) {
	date, ok := requireDate(w, r)
	if !ok {
		return
	}

	s.engine.Store().ClearTimeOverride(date)
	s.webhook.Notify("override_cleared", date, "")
	s.broker.Broadcast("override_cleared", map[string]string{"date": date})
	s.hub.Broadcast("override_cleared", map[string]string{"date": date})

	w.WriteHeader(http.StatusNoContent)
}

// handleGetSummary returns per-category membership counts for the dataset
// currently displayed for a date.
func (s *Server) handleGetSummary(w http.ResponseWriter, r *http.Request) {
	date, ok := requireDate(w, r)
	if !ok {
		return
	}

	result, err := s.engine.DataForDate(r.Context(), date)
	if err != nil {
		respondWithError(w, http.StatusBadGateway, "failed to load simulation data", err)
		return
	}
	if result.Data == nil {
		respondWithError(w, http.StatusNotFound, "no simulation data for date", nil)
		return
	}

	distinct := make(map[string]bool)
	for _, list := range [][]simulation.SimulationStock{
		result.Data.Categories.Vision,
		result.Data.Categories.KIS,
		result.Data.Categories.Combined,
	} {
		for _, stock := range list {
			distinct[stock.Code] = true
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"date":       date,
		"overridden": result.Overridden,
		"counts": map[string]int{
			"vision":   len(result.Data.Categories.Vision),
			"kis":      len(result.Data.Categories.KIS),
			"combined": len(result.Data.Categories.Combined),
			"distinct": len(distinct),
		},
	})
}

// handleGetReport renders the displayed dataset as a markdown table.
func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	date, ok := requireDate(w, r)
	if !ok {
		return
	}

	result, err := s.engine.DataForDate(r.Context(), date)
	if err != nil {
		respondWithError(w, http.StatusBadGateway, "failed to load simulation data", err)
		return
	}
	if result.Data == nil {
		respondWithError(w, http.StatusNotFound, "no simulation data for date", nil)
		return
	}

	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.Write([]byte(BuildMarkdownReport(result)))
}
