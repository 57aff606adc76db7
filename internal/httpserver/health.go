package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/projects_api/internal/apperr"
	"github.com/Skotchmaster/projects_api/internal/logging"
)

// Pinger reports whether a dependency is reachable.
type Pinger func(ctx context.Context) error

type HealthHTTP struct {
	Service string
	Ready   Pinger
}

func (h *HealthHTTP) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"status": "UP", "service": h.Service})
}

func (h *HealthHTTP) Live(c echo.Context) error {
	return c.NoContent(http.StatusOK)
}

func (h *HealthHTTP) ReadyCheck(c echo.Context) error {
	if h.Ready == nil {
		return c.NoContent(http.StatusOK)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()
	if err := h.Ready(ctx); err != nil {
		logging.FromContext(ctx).Warn("readiness_failed", "status", 503, "error", err)
		return echo.NewHTTPError(http.StatusServiceUnavailable, apperr.MsgServiceUnavailable)
	}
	return c.NoContent(http.StatusOK)
}
