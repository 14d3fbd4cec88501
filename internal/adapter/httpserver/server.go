// Package httpserver exposes the REST surface, the live channel route, health
// probes, metrics and the static frontend on one echo instance.
package httpserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/YuxiangWang0525/miband-heart-rate-RESTful/internal/adapter/metrics"
	"github.com/YuxiangWang0525/miband-heart-rate-RESTful/internal/domain"
	"github.com/YuxiangWang0525/miband-heart-rate-RESTful/internal/hub"
	"github.com/YuxiangWang0525/miband-heart-rate-RESTful/internal/platform/config"
	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
)

type latestReading interface {
	Get() (domain.Reading, bool)
}

type hubStatus interface {
	State() hub.State
	SubscriberCount() int
	Reconnects() int64
}

type Server struct {
	echo   *echo.Echo
	config *config.Config
	clock  clockwork.Clock

	store       latestReading
	hub         hubStatus
	liveChannel echo.HandlerFunc

	registry     *prometheus.Registry
	httpMetrics  *metrics.HTTPMetrics
	healthChecks []HealthCheck
	startTime    time.Time
}

// NewServer wires the routes. registry and httpMetrics may be nil.
func NewServer(
	cfg *config.Config,
	clock clockwork.Clock,
	store latestReading,
	hubStatus hubStatus,
	liveChannel echo.HandlerFunc,
	registry *prometheus.Registry,
	httpMetrics *metrics.HTTPMetrics,
	healthChecks []HealthCheck,
) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	srv := &Server{
		echo:         e,
		config:       cfg,
		clock:        clock,
		store:        store,
		hub:          hubStatus,
		liveChannel:  liveChannel,
		registry:     registry,
		httpMetrics:  httpMetrics,
		healthChecks: healthChecks,
		startTime:    clock.Now(),
	}

	srv.registerRoutes()

	return srv
}

// Start blocks serving HTTP until Shutdown is called.
func (s *Server) Start() error {
	slog.Info("Starting server", "port", s.config.Port, "static_dir", s.config.StaticDir)
	if err := s.echo.Start(":" + s.config.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown stops accepting requests. Upgraded live channel connections are
// not tracked here; they end when the hub closes their subscribers.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}
