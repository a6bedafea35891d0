// internal/api/server.go
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	handler "github.com/newthinker/algotrade/internal/api/handler/api"
	"github.com/newthinker/algotrade/internal/api/job"
	"github.com/newthinker/algotrade/internal/api/middleware"
	"github.com/newthinker/algotrade/internal/api/response"
	"github.com/newthinker/algotrade/internal/app"
	"github.com/newthinker/algotrade/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const (
	healthPath         = "/api/health"
	defaultMetricsPath = "/metrics"
	defaultMaxJobs     = 100
	jobCleanupInterval = 10 * time.Minute
)

// Server represents the HTTP server for algotrade
type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
	mux        *http.ServeMux
	handler    http.Handler
	jobs       *job.Store
	app        *app.App
	stop       chan struct{}
}

// Config holds server configuration
type Config struct {
	Host        string
	Port        int
	APIKey      string
	MaxJobs     int
	JobTTL      time.Duration
	MetricsPath string
}

// NewServer creates a new HTTP server backed by the app
func NewServer(cfg Config, a *app.App, logger *zap.Logger) (*Server, error) {
	if a == nil {
		return nil, errors.New("api: app is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxJobs <= 0 {
		cfg.MaxJobs = defaultMaxJobs
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = time.Hour
	}
	if cfg.MetricsPath == "" {
		cfg.MetricsPath = defaultMetricsPath
	}

	mux := http.NewServeMux()

	s := &Server{
		logger: logger,
		mux:    mux,
		jobs:   job.NewStore(cfg.MaxJobs, cfg.JobTTL),
		app:    a,
		stop:   make(chan struct{}),
	}

	s.setupRoutes(cfg.MetricsPath)

	var h http.Handler = mux
	h = middleware.APIKeyAuth(cfg.APIKey, healthPath, cfg.MetricsPath)(h)
	if reg := a.Metrics(); reg != nil {
		h = metrics.HTTPMiddleware(reg)(h)
	}
	h = metrics.LoggingMiddleware(logger)(h)
	s.handler = h

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes(metricsPath string) {
	signals := handler.NewSignalsHandler(s.app.Signals(), s.app, s.logger)
	backtests := handler.NewBacktestHandler(s.jobs, s.app, s.app.Results(), s.app.Metrics(), s.logger)

	s.mux.HandleFunc("GET "+healthPath, s.handleHealth)

	s.mux.HandleFunc("GET /api/signals", signals.List)
	s.mux.HandleFunc("GET /api/signals/{id}", signals.GetByID)
	s.mux.HandleFunc("GET /api/signals/stock/{symbol}", signals.ForSymbol)
	s.mux.HandleFunc("POST /api/signals/generate", signals.Generate)

	s.mux.HandleFunc("POST /api/backtest", backtests.Create)
	s.mux.HandleFunc("GET /api/backtest/{id}", backtests.GetStatus)
	s.mux.HandleFunc("GET /api/backtest/results/{symbol}", backtests.ListResults)
	s.mux.HandleFunc("GET /api/backtest/results/{symbol}/{run_id}", backtests.GetResult)

	s.mux.HandleFunc("GET /api/strategies", s.handleStrategies)

	if reg := s.app.Metrics(); reg != nil {
		s.mux.Handle("GET "+metricsPath, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	}
}

// Handler returns the root handler including middleware
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start starts the HTTP server and the job cleanup loop
func (s *Server) Start() error {
	go s.cleanupJobs()

	s.logger.Info("starting HTTP server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	select {
	case <-s.stop:
	default:
		close(s.stop)
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) cleanupJobs() {
	ticker := time.NewTicker(jobCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			if n := s.jobs.Cleanup(); n > 0 {
				s.logger.Debug("cleaned up finished jobs", zap.Int("count", n))
			}
		}
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"strategies": s.app.Strategies(),
		"scanner":    s.app.GetStats(),
	})
}

func (s *Server) handleStrategies(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, map[string]any{
		"strategies": s.app.Strategies(),
	})
}
