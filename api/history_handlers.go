package api

import (
	"encoding/json"
	"net/http"

	"krx-signal-board/database"
)

// View History API Handlers

// handleGetViews returns a user's most recent stock views.
func (s *Server) handleGetViews(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		respondWithError(w, http.StatusBadRequest, "user_id parameter is required", nil)
		return
	}
	if s.viewRepo == nil {
		respondWithError(w, http.StatusServiceUnavailable, "view history disabled", nil)
		return
	}

	minLimit, maxLimit := 1, 500
	limit := getIntParam(r, "limit", 50, &minLimit, &maxLimit)

	views, err := s.viewRepo.GetRecentViews(userID, limit)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "failed to load view history", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"data":  views,
		"count": len(views),
		"limit": limit,
	})
}

// handleRecordView records one stock view. The write is fire-and-forget; the
// response acknowledges acceptance, not persistence.
func (s *Server) handleRecordView(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string `json:"user_id"`
		Code   string `json:"code"`
		Name   string `json:"name"`
		Market string `json:"market"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" || req.Code == "" {
		respondWithError(w, http.StatusBadRequest, "user_id and code are required", err)
		return
	}

	s.recorder.RecordView(database.StockView{
		UserID: req.UserID,
		Code:   req.Code,
		Name:   req.Name,
		Market: req.Market,
	})

	w.WriteHeader(http.StatusAccepted)
}

// handleGetDailyViews returns a user's per-day view counts.
func (s *Server) handleGetDailyViews(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		respondWithError(w, http.StatusBadRequest, "user_id parameter is required", nil)
		return
	}
	if s.viewRepo == nil {
		respondWithError(w, http.StatusServiceUnavailable, "view history disabled", nil)
		return
	}

	minDays, maxDays := 1, 365
	daysBack := getIntParam(r, "days", 30, &minDays, &maxDays)

	counts, err := s.viewRepo.GetDailyViewCounts(userID, daysBack)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "failed to load daily view counts", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"data":  counts,
		"count": len(counts),
		"days":  daysBack,
	})
}
