// Package server exposes the fund monitor over HTTP and WebSocket.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/alanyoungcy/lofbot/internal/domain"
	"github.com/alanyoungcy/lofbot/internal/server/handler"
	"github.com/alanyoungcy/lofbot/internal/server/middleware"
	"github.com/alanyoungcy/lofbot/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	APIKey      string // if empty, authentication is disabled
	AdminKey    string // if empty, admin routes are refused
	RateLimit   int
	RateWindow  time.Duration
}

// Handlers aggregates all HTTP handlers that the server needs to register.
type Handlers struct {
	Health  *handler.HealthHandler
	Status  *handler.StatusHandler
	Funds   *handler.FundHandler
	Records *handler.RecordHandler
	Admin   *handler.AdminHandler
	Metrics http.Handler
}

// Deps are the optional collaborators wired into the middleware chain.
type Deps struct {
	Limiter  domain.RateLimiter
	Observer middleware.HTTPObserver
	Hub      *ws.Hub
}

// Server is the HTTP + WebSocket API server.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// unauthenticated paths bypass the API key and the rate limiter.
var unauthenticated = []string{"/api/health", "/metrics"}

// NewServer registers every route and builds the middleware chain.
func NewServer(cfg Config, h Handlers, deps Deps, logger *slog.Logger) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      NewHandler(cfg, h, deps, logger),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 2 * time.Minute,
			IdleTimeout:  60 * time.Second,
		},
		logger: logger,
	}
}

// NewHandler returns the routed, middleware-wrapped handler. It is split out
// from NewServer so tests can drive it with httptest.
func NewHandler(cfg Config, h Handlers, deps Deps, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", h.Health.HealthCheck)
	if h.Status != nil {
		mux.HandleFunc("GET /api/status", h.Status.GetStatus)
	}
	if h.Metrics != nil {
		mux.Handle("GET /metrics", h.Metrics)
	}

	mux.HandleFunc("GET /api/funds", h.Funds.ListFunds)
	mux.HandleFunc("GET /api/funds/{code}", h.Funds.GetFund)
	mux.HandleFunc("GET /api/funds/{code}/opportunity", h.Funds.GetOpportunity)
	mux.HandleFunc("GET /api/funds/{code}/limit", h.Funds.GetLimit)
	mux.HandleFunc("POST /api/screen", h.Funds.Screen)

	mux.HandleFunc("POST /api/limits/check", h.Records.CheckLimit)
	mux.HandleFunc("GET /api/records", h.Records.ListRecords)
	mux.HandleFunc("POST /api/records", h.Records.CreateRecord)
	mux.HandleFunc("GET /api/records/daily-total", h.Records.DailyTotal)
	mux.HandleFunc("GET /api/records/stats", h.Records.Statistics)
	mux.HandleFunc("GET /api/records/{id}", h.Records.GetRecord)
	mux.HandleFunc("DELETE /api/records/{id}", h.Records.DeleteRecord)
	mux.HandleFunc("POST /api/records/{id}/complete", h.Records.CompleteRecord)
	mux.HandleFunc("POST /api/records/{id}/cancel", h.Records.CancelRecord)

	if h.Admin != nil {
		mux.HandleFunc("GET /api/admin/stats", middleware.Admin(cfg.AdminKey, h.Admin.Statistics))
		mux.HandleFunc("GET /api/admin/records", middleware.Admin(cfg.AdminKey, h.Admin.ListRecords))
		mux.HandleFunc("GET /api/admin/reports", middleware.Admin(cfg.AdminKey, h.Admin.ListReports))
		mux.HandleFunc("POST /api/admin/reports", middleware.Admin(cfg.AdminKey, h.Admin.ExportReport))
		mux.HandleFunc("GET /api/admin/reports/{path...}", middleware.Admin(cfg.AdminKey, h.Admin.GetReport))
	}

	if deps.Hub != nil {
		mux.HandleFunc("GET /ws", deps.Hub.HandleWS)
	}

	var out http.Handler = mux
	out = middleware.Auth(cfg.APIKey, unauthenticated...)(out)
	out = middleware.RateLimit(deps.Limiter, cfg.RateLimit, cfg.RateWindow, logger, unauthenticated...)(out)
	out = middleware.Logging(logger, deps.Observer)(out)
	out = middleware.CORS(cfg.CORSOrigins)(out)
	return out
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting", slog.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
