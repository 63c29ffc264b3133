package api

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"krx-signal-board/database/views"
	"krx-signal-board/notifications"
	"krx-signal-board/realtime"
	"krx-signal-board/simulation"
	"krx-signal-board/websocket"
)

// Server handles HTTP API requests
type Server struct {
	engine   *simulation.Engine
	viewRepo *views.Repository
	recorder *notifications.ViewRecorder
	webhook  *notifications.OverrideWebhook
	broker   *realtime.Broker
	hub      *websocket.Hub
}

// NewServer creates a new API server instance
func NewServer(engine *simulation.Engine, viewRepo *views.Repository, recorder *notifications.ViewRecorder, webhook *notifications.OverrideWebhook, broker *realtime.Broker, hub *websocket.Hub) *Server {
	return &Server{
		engine:   engine,
		viewRepo: viewRepo,
		recorder: recorder,
		webhook:  webhook,
		broker:   broker,
		hub:      hub,
	}
}

// Start starts the HTTP server on the specified port
func (s *Server) Start(port int) error {
	mux := http.NewServeMux()

	// Realtime endpoints
	mux.Handle("GET /api/events", s.broker) // SSE Endpoint
	mux.Handle("GET /ws", s.hub)

	// Simulation Routes
	mux.HandleFunc("GET /api/simulation", s.handleGetSimulation)
	mux.HandleFunc("GET /api/simulation/times", s.handleGetAvailableTimes)
	mux.HandleFunc("PUT /api/simulation/override", s.handleSetOverride)
	mux.HandleFunc("DELETE /api/simulation/override", s.handleClearOverride)
	mux.HandleFunc("GET /api/simulation/summary", s.handleGetSummary)
	mux.HandleFunc("GET /api/report", s.handleGetReport)

	// Selection Routes
	mux.HandleFunc("GET /api/selection", s.handleGetSelection)
	mux.HandleFunc("POST /api/selection/mode", s.handleSetMode)
	mux.HandleFunc("POST /api/selection/categories", s.handleSetCategory)
	mux.HandleFunc("POST /api/selection/dates", s.handleSelectAllDates)
	mux.HandleFunc("POST /api/selection/dates/toggle", s.handleToggleDate)
	mux.HandleFunc("POST /api/selection/excluded/toggle", s.handleToggleExcluded)
	mux.HandleFunc("POST /api/selection/excluded/bulk", s.handleBulkExcluded)

	// View History Routes
	mux.HandleFunc("GET /api/history/views", s.handleGetViews)
	mux.HandleFunc("POST /api/history/views", s.handleRecordView)
	mux.HandleFunc("GET /api/history/views/daily", s.handleGetDailyViews)

	mux.HandleFunc("GET /health", s.handleHealth)

	// Serve Static Files (Public UI)
	fs := http.FileServer(http.Dir("./public"))
	mux.Handle("GET /", fs)

	// Add middleware
	handler := s.corsMiddleware(s.loggingMiddleware(mux))

	serverAddr := fmt.Sprintf("0.0.0.0:%d", port)
	log.Printf("🚀 API Server starting on %s", serverAddr)
	return http.ListenAndServe(serverAddr, handler)
}

// Middleware
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s %v", r.Method, r.URL.Path, time.Since(start))
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
