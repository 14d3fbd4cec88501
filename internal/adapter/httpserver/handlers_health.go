package httpserver

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/YuxiangWang0525/miband-heart-rate-RESTful/internal/platform/version"
	"github.com/labstack/echo/v4"
)

const (
	startupProbeTimeout   = 2 * time.Second
	readinessProbeTimeout = 5 * time.Second
)

// HealthCheck is a named probe run by /health/startup and /health/ready.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

type checkResult struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type healthResponse struct {
	Status string        `json:"status"`
	Checks []checkResult `json:"checks"`
}

func (s *Server) registerHealthRoutes() {
	s.echo.GET("/health/startup", s.handleStartup)
	s.echo.GET("/health/live", s.handleLiveness)
	s.echo.GET("/health/ready", s.handleReadiness)
	s.echo.GET("/version", s.handleVersion)
}

func (s *Server) handleStartup(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), startupProbeTimeout)
	defer cancel()

	return s.runHealthChecks(ctx, c)
}

// handleLiveness only proves the process serves HTTP; it never consults the source.
func (s *Server) handleLiveness(c echo.Context) error {
	response := map[string]any{
		"status": "ok",
		"uptime": s.clock.Since(s.startTime).Seconds(),
	}
	if err := c.JSON(http.StatusOK, response); err != nil {
		return fmt.Errorf("failed to write liveness response: %w", err)
	}
	return nil
}

func (s *Server) handleReadiness(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), readinessProbeTimeout)
	defer cancel()

	return s.runHealthChecks(ctx, c)
}

// runHealthChecks runs every check so the response names all failures at once.
func (s *Server) runHealthChecks(ctx context.Context, c echo.Context) error {
	resp := healthResponse{Status: "ready", Checks: make([]checkResult, 0, len(s.healthChecks))}
	status := http.StatusOK

	for _, hc := range s.healthChecks {
		result := checkResult{Name: hc.Name, Status: "ok"}
		if err := hc.Check(ctx); err != nil {
			result.Status = "failing"
			result.Error = err.Error()
			resp.Status = "unhealthy"
			status = http.StatusServiceUnavailable
		}
		resp.Checks = append(resp.Checks, result)
	}

	if err := c.JSON(status, resp); err != nil {
		return fmt.Errorf("failed to send health response: %w", err)
	}
	return nil
}

func (s *Server) handleVersion(c echo.Context) error {
	if err := c.JSON(http.StatusOK, version.Get()); err != nil {
		return fmt.Errorf("failed to write version response: %w", err)
	}
	return nil
}
