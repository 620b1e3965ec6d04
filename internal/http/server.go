// Package http provides the optional operational sidecar for vibed:
// liveness, readiness, Prometheus metrics, and a status snapshot.
//
// The MCP transport itself is stdio; this listener exists only so
// supervisors and dashboards can observe a long-running daemon. It is
// off by default.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/vibed/internal/logging"
)

// Server serves the operational endpoints.
type Server struct {
	echo    *echo.Echo
	log     *logging.Logger
	config  *Config
	status  StatusSource
	checks  []ReadyCheck
	metrics *HTTPMetrics
}

// Config holds the sidecar listener configuration.
type Config struct {
	Addr string
}

// StatusSource produces the snapshot served at /api/v1/status. The
// sidecar owns the transport, not the answer.
type StatusSource func(ctx context.Context) *StatusResponse

// ReadyCheck is one named readiness probe. A failing check turns
// /readyz into a 503 naming the check.
type ReadyCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// NewServer creates the sidecar. status may be nil; the status endpoint
// then reports only liveness.
func NewServer(status StatusSource, log *logging.Logger, cfg *Config, checks ...ReadyCheck) (*Server, error) {
	if log == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = &Config{Addr: "127.0.0.1:9180"}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	metrics := NewHTTPMetrics(log)

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(metrics.MetricsMiddleware())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			duration := time.Since(start)

			log.Debug(c.Request().Context(), "http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", duration),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)

			return err
		}
	})

	s := &Server{
		echo:    e,
		log:     log,
		config:  cfg,
		status:  status,
		checks:  checks,
		metrics: metrics,
	}
	s.registerRoutes()

	return s, nil
}

func (s *Server) registerRoutes() {
	s.echo.GET("/healthz", s.handleHealth)
	s.echo.GET("/readyz", s.handleReady)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := s.echo.Group("/api/v1")
	v1.GET("/status", s.handleStatus)
}

// HealthResponse is the response body for GET /healthz.
type HealthResponse struct {
	Status string `json:"status"`
}

// ReadyResponse is the response body for GET /readyz.
type ReadyResponse struct {
	Status string `json:"status"`
	Failed string `json:"failed,omitempty"`
	Error  string `json:"error,omitempty"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

func (s *Server) handleReady(c echo.Context) error {
	ctx := c.Request().Context()
	for _, check := range s.checks {
		if err := check.Check(ctx); err != nil {
			s.log.Warn(ctx, "readiness check failed",
				zap.String("check", check.Name), zap.Error(err))
			return c.JSON(http.StatusServiceUnavailable, ReadyResponse{
				Status: "unready",
				Failed: check.Name,
				Error:  err.Error(),
			})
		}
	}
	return c.JSON(http.StatusOK, ReadyResponse{Status: "ready"})
}

func (s *Server) handleStatus(c echo.Context) error {
	if s.status == nil {
		return c.JSON(http.StatusOK, &StatusResponse{Status: "ok"})
	}
	return c.JSON(http.StatusOK, s.status(c.Request().Context()))
}

// Start starts the listener. Blocks until Shutdown or failure.
func (s *Server) Start() error {
	s.log.Info(context.Background(), "starting http sidecar", zap.String("addr", s.config.Addr))
	return s.echo.Start(s.config.Addr)
}

// Shutdown gracefully drains and stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info(ctx, "shutting down http sidecar")
	return s.echo.Shutdown(ctx)
}
