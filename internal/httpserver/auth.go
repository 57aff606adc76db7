package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/projects_api/internal/apperr"
	"github.com/Skotchmaster/projects_api/internal/logging"
	authmw "github.com/Skotchmaster/projects_api/internal/middleware/auth"
	"github.com/Skotchmaster/projects_api/internal/principal"
	"github.com/Skotchmaster/projects_api/internal/service"
	"github.com/Skotchmaster/projects_api/internal/transport"
)

type AuthHTTP struct {
	Svc *service.AuthService
}

func (h *AuthHTTP) Register(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_register")

	var req transport.CredentialsRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("register_error", "status", 400, "error", err)
		return apperr.Validation(apperr.MsgInvalidJSON, nil)
	}

	if _, err := h.Svc.Register(ctx, req.Email, req.Password); err != nil {
		return err
	}
	return c.NoContent(http.StatusCreated)
}

func (h *AuthHTTP) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_login")

	var req transport.CredentialsRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("login_error", "status", 400, "error", err)
		return apperr.Validation(apperr.MsgInvalidJSON, nil)
	}

	pair, err := h.Svc.Login(ctx, req.Email, req.Password)
	if err != nil {
		return err
	}
	l.Info("login_successful")
	return c.JSON(http.StatusOK, authResponse(pair))
}

func (h *AuthHTTP) Refresh(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_refresh")

	var req transport.RefreshRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("refresh_error", "status", 400, "error", err)
		return apperr.Validation(apperr.MsgInvalidJSON, nil)
	}

	pair, err := h.Svc.Refresh(ctx, req.RefreshToken)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, authResponse(pair))
}

func (h *AuthHTTP) Logout(c echo.Context) error {
	ctx := c.Request().Context()

	var p *principal.Principal
	if got, ok := principal.FromContext(ctx); ok {
		p = &got
	}
	bearer, _ := authmw.BearerToken(c.Request())

	if err := h.Svc.Logout(ctx, p, bearer); err != nil {
		return err
	}
	return c.NoContent(http.StatusOK)
}

func authResponse(p *service.TokenPair) transport.AuthResponse {
	return transport.AuthResponse{
		AccessToken:             p.AccessToken,
		TokenType:               "Bearer",
		AccessExpiresInSeconds:  p.AccessExpiresIn,
		RefreshToken:            p.RefreshToken,
		RefreshExpiresInSeconds: p.RefreshExpiresIn,
	}
}
