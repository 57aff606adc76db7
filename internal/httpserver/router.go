package httpserver

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/Skotchmaster/projects_api/internal/metrics"
	authmw "github.com/Skotchmaster/projects_api/internal/middleware/auth"
	loggingmw "github.com/Skotchmaster/projects_api/internal/middleware/logging"
)

type Deps struct {
	Logger         *slog.Logger
	Metrics        *metrics.Metrics
	Gate           *authmw.Gate
	AuthHandler    *AuthHTTP
	ProjectHandler *ProjectHTTP
	HealthHandler  *HealthHTTP
	AllowedOrigins []string
}

// New builds the echo instance. Middleware order is fixed: request id,
// logging, panic recovery, CORS, security headers, then the auth gate.
func New(d *Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = ErrorHandler

	e.Use(middleware.RequestID())
	e.Use(loggingmw.RequestLogger(d.Logger, d.Metrics))
	e.Use(middleware.Recover())
	if len(d.AllowedOrigins) > 0 {
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: d.AllowedOrigins,
			AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowHeaders: []string{echo.HeaderAuthorization, echo.HeaderContentType},
		}))
	}
	e.Use(middleware.Secure())
	e.Use(d.Gate.Middleware)

	Register(e, d)
	return e
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health", d.HealthHandler.Health)
	e.GET("/health/live", d.HealthHandler.Live)
	e.GET("/health/ready", d.HealthHandler.ReadyCheck)
	e.GET("/metrics", echo.WrapHandler(d.Metrics.Handler()))

	auth := e.Group("/auth")
	auth.POST("/register", d.AuthHandler.Register)
	auth.POST("/login", d.AuthHandler.Login)
	auth.POST("/refresh", d.AuthHandler.Refresh)
	auth.POST("/logout", d.AuthHandler.Logout, authmw.RequireAuth)

	projects := e.Group("/projects", authmw.RequireAuth)
	projects.POST("", d.ProjectHandler.Create)
	projects.GET("", d.ProjectHandler.List)
	projects.GET("/:id", d.ProjectHandler.Get)
	projects.PUT("/:id", d.ProjectHandler.Update)
	projects.DELETE("/:id", d.ProjectHandler.Delete)
}
