package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/vigilo-edu/vigilo-go-api/internal/config"
	"github.com/vigilo-edu/vigilo-go-api/internal/handler"
	"github.com/vigilo-edu/vigilo-go-api/internal/middleware"
	"github.com/vigilo-edu/vigilo-go-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	SessionHandler      *handler.SessionHandler
	PolicyHandler       *handler.PolicyHandler
	VerificationHandler *handler.VerificationHandler
	AnalyticsHandler    *handler.AnalyticsHandler
	MonitorHandler      *handler.MonitorHandler
	JWTMiddleware       fiber.Handler
	EventRateLimiter    fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	// Common v1 group for health & headers
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))

	app.Get("/metrics", observability.MetricsHandler())

	// Use provided JWT middleware, or a no-op if nil
	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	security := app.Group("/api/v2/security", jwtMiddleware)

	if deps.SessionHandler != nil {
		sessionGroup := security.Group("/sessions")
		if deps.EventRateLimiter != nil {
			sessionGroup.Use(deps.EventRateLimiter)
		}
		deps.SessionHandler.Register(sessionGroup, middleware.RequireRole("teacher", "admin"))
	}

	if deps.PolicyHandler != nil {
		quizGroup := security.Group("/quizzes", middleware.RequireRole("teacher", "admin"))
		deps.PolicyHandler.Register(quizGroup)
	}

	if deps.VerificationHandler != nil {
		verificationGroup := security.Group("/verification", middleware.RequireRole("teacher", "admin"))
		deps.VerificationHandler.Register(verificationGroup)
	}

	if deps.AnalyticsHandler != nil {
		analyticsGroup := security.Group("/analytics", middleware.WithAuth(func(c *fiber.Ctx) error {
			return c.Next()
		}, middleware.AuthOptions{Role: middleware.AuthRoleAdmin}))
		deps.AnalyticsHandler.Register(analyticsGroup)
	}

	if deps.MonitorHandler != nil {
		monitorGroup := security.Group("/monitor", middleware.RequireRole("teacher", "admin"))
		deps.MonitorHandler.Register(monitorGroup)
	}
}
