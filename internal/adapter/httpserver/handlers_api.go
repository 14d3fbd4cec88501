package httpserver

import (
	"net/http"

	"github.com/YuxiangWang0525/miband-heart-rate-RESTful/internal/hub"
	apperrors "github.com/YuxiangWang0525/miband-heart-rate-RESTful/internal/platform/errors"
	"github.com/labstack/echo/v4"
)

type statusResponse struct {
	State       hub.State `json:"state"`
	Subscribers int       `json:"subscribers"`
	Reconnects  int64     `json:"reconnects"`
	HasReading  bool      `json:"has_reading"`
}

// handleHeartRate returns the latest reading. Before the first reading it
// answers 200 with zero values so polling clients never have to special-case.
func (s *Server) handleHeartRate(c echo.Context) error {
	r, _ := s.store.Get()

	c.Response().Header().Set(echo.HeaderCacheControl, "no-store")
	if err := c.JSON(http.StatusOK, r); err != nil {
		return apperrors.InternalError("failed to write heart rate response", err)
	}
	return nil
}

func (s *Server) handleStatus(c echo.Context) error {
	_, hasReading := s.store.Get()

	resp := statusResponse{
		State:       s.hub.State(),
		Subscribers: s.hub.SubscriberCount(),
		Reconnects:  s.hub.Reconnects(),
		HasReading:  hasReading,
	}

	c.Response().Header().Set(echo.HeaderCacheControl, "no-store")
	if err := c.JSON(http.StatusOK, resp); err != nil {
		return apperrors.InternalError("failed to write status response", err)
	}
	return nil
}

// handleUnknownAPI answers unrouted /api paths with a JSON error instead of
// falling through to the static frontend.
func (s *Server) handleUnknownAPI(c echo.Context) error {
	return apperrors.NotFoundError("no such endpoint").WithContext("path", c.Request().URL.Path)
}
