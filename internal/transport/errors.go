package transport

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/projects_api/internal/apperr"
	"github.com/Skotchmaster/projects_api/internal/logging"
)

type ErrorResponse struct {
	Timestamp time.Time     `json:"timestamp"`
	Status    int           `json:"status"`
	Error     string        `json:"error"`
	Message   string        `json:"message"`
	Path      string        `json:"path"`
	Details   *ErrorDetails `json:"details,omitempty"`
}

type ErrorDetails struct {
	Fields map[string]string `json:"fields,omitempty"`
	Code   string            `json:"code,omitempty"`
}

// WriteError renders err as the JSON error envelope. Nothing is written once
// the response is committed. Unauthorized responses carry a Bearer challenge.
func WriteError(c echo.Context, err error) error {
	if c.Response().Committed {
		return nil
	}

	status, message, details := classify(err)
	if status >= http.StatusInternalServerError {
		logging.FromContext(c.Request().Context()).Error("unexpected_error", "status", status, "error", err)
	}
	if status == http.StatusUnauthorized {
		c.Response().Header().Set(echo.HeaderWWWAuthenticate, challenge(details))
	}

	body := ErrorResponse{
		Timestamp: time.Now().UTC(),
		Status:    status,
		Error:     http.StatusText(status),
		Message:   message,
		Path:      c.Request().URL.Path,
		Details:   details,
	}
	if c.Request().Method == http.MethodHead {
		return c.NoContent(status)
	}
	return c.JSON(status, body)
}

func classify(err error) (int, string, *ErrorDetails) {
	var ae *apperr.Error
	if errors.As(err, &ae) {
		status := apperr.Status(ae)
		var details *ErrorDetails
		switch {
		case len(ae.Fields) > 0:
			details = &ErrorDetails{Fields: ae.Fields}
		case ae.Code != "":
			details = &ErrorDetails{Code: ae.Code}
		}
		return status, ae.Error(), details
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, httpErrorMessage(he), nil
	}

	switch status := apperr.Status(err); status {
	case http.StatusConflict:
		return status, apperr.MsgResourceExists, nil
	case http.StatusInternalServerError:
		return status, apperr.MsgUnexpected, nil
	default:
		return status, http.StatusText(status), nil
	}
}

func httpErrorMessage(he *echo.HTTPError) string {
	switch he.Code {
	case http.StatusNotFound:
		return apperr.MsgNotFound
	case http.StatusMethodNotAllowed:
		return apperr.MsgMethodNotAllowed
	case http.StatusUnauthorized:
		return apperr.MsgUnauthorized
	case http.StatusForbidden:
		return apperr.MsgAccessDenied
	case http.StatusServiceUnavailable:
		return apperr.MsgServiceUnavailable
	case http.StatusBadRequest:
		return apperr.MsgInvalidJSON
	}
	if he.Code >= http.StatusInternalServerError {
		return apperr.MsgUnexpected
	}
	return http.StatusText(he.Code)
}

func challenge(d *ErrorDetails) string {
	if d == nil || d.Code == "" {
		return "Bearer"
	}
	desc := apperr.MsgInvalidToken
	switch d.Code {
	case apperr.CodeTokenExpired:
		desc = apperr.MsgTokenExpired
	case apperr.CodeTokenRevoked:
		desc = apperr.MsgTokenRevoked
	}
	return fmt.Sprintf(`Bearer error="%s", error_description="%s"`, d.Code, desc)
}
