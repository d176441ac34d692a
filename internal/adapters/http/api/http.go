// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"

	service "github.com/okian/covidmap/internal/app"
	"github.com/okian/covidmap/pkg/logger"
)

// Dependencies required by HTTP handlers.
type Dependencies interface {
	// Dashboard builds the page values from a fresh report.
	Dashboard(ctx context.Context) (service.View, error)
}

// Server wires HTTP routes for the dashboard.
type Server struct {
	healthHandler    *HealthHandler
	dashboardHandler *DashboardHandler
	logger           logger.Logger
}

// Option applies a configuration option to the Server.
type Option func(*Server)

// WithLogger sets a custom logger for the handlers.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, opts ...Option) *Server {
	s := &Server{}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}
	s.healthHandler = NewHealthHandler()
	s.dashboardHandler = NewDashboardHandler(deps, s.logger)
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/", MetricsMiddleware(s.dashboardHandler.HandleDashboard, "dashboard"))
}
