// Package server serves generated artifacts and their JSON models for
// previewing a run locally.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/activitymap/internal/config"
	"github.com/fyrsmithlabs/activitymap/internal/logging"
	"github.com/fyrsmithlabs/activitymap/internal/metrics"
	"github.com/fyrsmithlabs/activitymap/internal/render"
	"github.com/fyrsmithlabs/activitymap/internal/telemetry"
)

// Server provides the preview endpoints.
type Server struct {
	echo    *echo.Echo
	dir     string
	metrics *metrics.Metrics
	logger  *logging.Logger
	config  *Config
	tel     *telemetry.Telemetry
}

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port int
}

// ConfigFrom maps the application configuration onto a server Config.
func ConfigFrom(c config.ServeConfig) *Config {
	return &Config{Host: c.Host, Port: c.Port}
}

// Option configures a Server.
type Option func(*Server)

// WithHTTPMetrics records request metrics through m.
func WithHTTPMetrics(m *HTTPMetrics) Option {
	return func(s *Server) { s.echo.Use(m.MetricsMiddleware()) }
}

// WithTelemetry reports the exporter state of tel on /health.
func WithTelemetry(tel *telemetry.Telemetry) Option {
	return func(s *Server) { s.tel = tel }
}

// NewServer creates a server for the artifacts in dir.
func NewServer(dir string, m *metrics.Metrics, logger *logging.Logger, cfg *Config, opts ...Option) (*Server, error) {
	if dir == "" {
		return nil, fmt.Errorf("output directory is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = &Config{Host: "127.0.0.1", Port: 8080}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			logger.Info(c.Request().Context(), "http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)
			return nil
		}
	})

	s := &Server{
		echo:    e,
		dir:     dir,
		metrics: m,
		logger:  logger,
		config:  cfg,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerRoutes()
	return s, nil
}

// registerRoutes sets up the HTTP endpoints.
func (s *Server) registerRoutes() {
	s.echo.GET("/", func(c echo.Context) error {
		return c.Redirect(http.StatusFound, "/"+render.HeatmapHTMLFile)
	})
	s.echo.Static("/", s.dir)
	s.echo.GET("/health", s.handleHealth)
	if s.metrics != nil {
		s.echo.GET("/metrics", echo.WrapHandler(s.metrics.Handler()))
	}

	v1 := s.echo.Group("/api/v1")
	v1.GET("/heatmap", s.handleModel(render.HeatmapJSONFile, "heatmap"))
	v1.GET("/tags", s.handleModel(render.WordCloudJSONFile, "word cloud"))
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status    string          `json:"status"`
	Artifacts map[string]bool `json:"artifacts"`
	Telemetry string          `json:"telemetry,omitempty"`
}

// handleHealth reports which JSON models exist. A degraded exporter marks
// the server degraded but still answers 200; previews work without it.
func (s *Server) handleHealth(c echo.Context) error {
	resp := HealthResponse{
		Status: "ok",
		Artifacts: map[string]bool{
			"heatmap":    s.exists(render.HeatmapJSONFile),
			"word_cloud": s.exists(render.WordCloudJSONFile),
		},
	}
	if s.tel != nil {
		switch h := s.tel.Health(); {
		case h.Degraded:
			resp.Status = "degraded"
			resp.Telemetry = "degraded"
			if h.Err != nil {
				resp.Telemetry += ": " + h.Err.Error()
			}
		case s.tel.IsEnabled():
			resp.Telemetry = "exporting"
		default:
			resp.Telemetry = "disabled"
		}
	}
	return c.JSON(http.StatusOK, resp)
}

// handleModel serves the last JSON model written for an artifact.
func (s *Server) handleModel(name, what string) echo.HandlerFunc {
	return func(c echo.Context) error {
		data, err := os.ReadFile(filepath.Join(s.dir, name))
		if errors.Is(err, os.ErrNotExist) {
			return echo.NewHTTPError(http.StatusNotFound, what+" has not been generated")
		}
		if err != nil {
			s.logger.Warn(c.Request().Context(), "reading model failed", zap.String("file", name), zap.Error(err))
			return echo.NewHTTPError(http.StatusInternalServerError, "reading "+what+" failed")
		}
		c.Response().Header().Set(echo.HeaderCacheControl, "no-store")
		return c.Blob(http.StatusOK, echo.MIMEApplicationJSON, data)
	}
}

func (s *Server) exists(name string) bool {
	_, err := os.Stat(filepath.Join(s.dir, name))
	return err == nil
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info(ctx, "starting http server", zap.String("addr", s.Addr()), zap.String("dir", s.dir))
	if err := s.echo.Start(s.Addr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info(ctx, "shutting down http server")
	return s.echo.Shutdown(ctx)
}
