// Package auth holds the request authentication gate and the RequireAuth
// guard for protected route groups.
package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/projects_api/internal/apperr"
	"github.com/Skotchmaster/projects_api/internal/logging"
	"github.com/Skotchmaster/projects_api/internal/metrics"
	"github.com/Skotchmaster/projects_api/internal/principal"
	"github.com/Skotchmaster/projects_api/internal/transport"
)

type Authenticator interface {
	Authenticate(ctx context.Context, bearer string) (principal.Principal, error)
}

// DefaultPublicPaths never go through the gate. A trailing "/*" matches the
// prefix and everything below it.
var DefaultPublicPaths = []string{
	"/auth/login",
	"/auth/register",
	"/auth/refresh",
	"/health",
	"/health/*",
	"/metrics",
}

type Gate struct {
	Authenticator Authenticator
	PublicPaths   []string
	Metrics       *metrics.Metrics
}

func (g *Gate) Middleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := c.Request()
		if g.isPublic(req.URL.Path) {
			return next(c)
		}

		token, ok := BearerToken(req)
		if !ok {
			return next(c)
		}
		if _, ok := principal.FromContext(req.Context()); ok {
			return next(c)
		}

		p, err := g.Authenticator.Authenticate(req.Context(), token)
		if err != nil {
			var ae *apperr.Error
			if errors.As(err, &ae) && errors.Is(err, apperr.ErrUnauthorized) {
				g.Metrics.GateRejected(ae.Code)
				logging.FromContext(req.Context()).Warn("auth_rejected", "status", http.StatusUnauthorized, "reason", ae.Code)
				return transport.WriteError(c, ae)
			}
			return err
		}

		ctx := principal.IntoContext(req.Context(), p)
		ctx = logging.IntoContext(ctx, logging.FromContext(ctx).With("user_id", p.UserID))
		c.SetRequest(req.WithContext(ctx))
		return next(c)
	}
}

func (g *Gate) isPublic(path string) bool {
	paths := g.PublicPaths
	if paths == nil {
		paths = DefaultPublicPaths
	}
	for _, p := range paths {
		if prefix, ok := strings.CutSuffix(p, "/*"); ok {
			if path == prefix || strings.HasPrefix(path, prefix+"/") {
				return true
			}
			continue
		}
		if path == p {
			return true
		}
	}
	return false
}

// BearerToken extracts the credential of an "Authorization: Bearer" header.
func BearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get(echo.HeaderAuthorization)
	scheme, token, ok := strings.Cut(strings.TrimSpace(h), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// RequireAuth rejects requests that reached it without a principal.
func RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, ok := principal.FromContext(c.Request().Context()); !ok {
			return apperr.Unauthorized(apperr.MsgUnauthorized)
		}
		return next(c)
	}
}
