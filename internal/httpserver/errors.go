package httpserver

import (
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/projects_api/internal/transport"
)

// ErrorHandler is the single place where errors become HTTP responses.
func ErrorHandler(err error, c echo.Context) {
	_ = transport.WriteError(c, err)
}
