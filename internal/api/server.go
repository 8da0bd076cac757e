package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"pairchat/pkg/interfaces"
	"pairchat/pkg/types"
)

// StatsSource reports room occupancy
type StatsSource interface {
	Stats() (rooms, members int)
}

// ConnectionCounter reports open transport connections
type ConnectionCounter interface {
	Count() int
	GetStats() map[string]int
}

// StatsReporter exposes component statistics for the health check
type StatsReporter interface {
	GetStats() map[string]int
}

// ARCHITECTURAL DISCOVERY: HTTP API layer is a pure interface between
// operators and the relay; no room logic lives here
type Server struct {
	stats       StatsSource
	connections ConnectionCounter
	sessions    StatsReporter
	audit       interfaces.AuditLog
	logger      zerolog.Logger
	router      *chi.Mux
	started     time.Time
}

// Deps groups what the HTTP surface reads from. Sessions and Audit may be nil.
type Deps struct {
	Stats       StatsSource
	Connections ConnectionCounter
	Sessions    StatsReporter
	Audit       interfaces.AuditLog
	WebSocket   http.HandlerFunc
	CORSOrigins []string
	Logger      zerolog.Logger
}

// NewServer wires middleware and routes
func NewServer(deps Deps) *Server {
	s := &Server{
		stats:       deps.Stats,
		connections: deps.Connections,
		sessions:    deps.Sessions,
		audit:       deps.Audit,
		logger:      deps.Logger.With().Str("component", "api").Logger(),
		router:      chi.NewRouter(),
		started:     time.Now(),
	}
	s.setupRoutes(deps)
	return s
}

func (s *Server) setupRoutes(deps Deps) {
	r := s.router

	// Metrics first so every request is counted
	r.Use(metricsMiddleware)
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(chimw.Recoverer)

	origins := deps.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	if deps.WebSocket != nil {
		r.Get("/ws", deps.WebSocket)
	}
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/health", s.healthCheck)

	r.Route("/api", func(r chi.Router) {
		r.Use(jsonContent)
		r.Get("/stats", s.getStats)
		r.Get("/events", s.listEvents)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.sendError(w, "Route not found", http.StatusNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		s.sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
	})
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

type HealthResponse struct {
	Status      string         `json:"status"`
	Timestamp   time.Time      `json:"timestamp"`
	Database    string         `json:"database"`
	Connections map[string]int `json:"connections"`
	Sessions    map[string]int `json:"sessions,omitempty"`
	Uptime      string         `json:"uptime"`
}

type EventsResponse struct {
	Events []*types.AuditEvent `json:"events"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// FUNCTIONAL DISCOVERY: GET /health returns 503 when the audit store is unreachable
func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ok"
	dbStatus := "disabled"
	if s.audit != nil {
		dbStatus = "ok"
		if err := s.audit.HealthCheck(ctx); err != nil {
			status = "unhealthy"
			dbStatus = fmt.Sprintf("error: %v", err)
			s.logger.Warn().Err(err).Msg("health check failed")
		}
	}

	code := http.StatusOK
	if status != "ok" {
		code = http.StatusServiceUnavailable
	}

	resp := HealthResponse{
		Status:      status,
		Timestamp:   time.Now().UTC(),
		Database:    dbStatus,
		Connections: s.connections.GetStats(),
		Uptime:      time.Since(s.started).Round(time.Second).String(),
	}
	if s.sessions != nil {
		resp.Sessions = s.sessions.GetStats()
	}

	s.writeJSON(w, code, resp)
}

// GET /api/stats
func (s *Server) getStats(w http.ResponseWriter, r *http.Request) {
	rooms, members := s.stats.Stats()
	s.writeJSON(w, http.StatusOK, types.Stats{
		Rooms:       rooms,
		Members:     members,
		Connections: s.connections.Count(),
	})
}

// GET /api/events?limit=N lists recent room lifecycle events, newest first
func (s *Server) listEvents(w http.ResponseWriter, r *http.Request) {
	if s.audit == nil {
		s.sendError(w, "Audit log disabled", http.StatusServiceUnavailable)
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			s.sendError(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = n
	}

	events, err := s.audit.RecentEvents(r.Context(), limit)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list room events")
		s.sendError(w, "Failed to list events", http.StatusInternalServerError)
		return
	}
	if events == nil {
		events = []*types.AuditEvent{}
	}

	s.writeJSON(w, http.StatusOK, EventsResponse{Events: events})
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Debug().Err(err).Msg("failed to write response")
	}
}

// FUNCTIONAL DISCOVERY: Consistent error response format
func (s *Server) sendError(w http.ResponseWriter, message string, code int) {
	s.writeJSON(w, code, ErrorResponse{
		Error:   http.StatusText(code),
		Code:    code,
		Message: message,
	})
}

func jsonContent(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}
