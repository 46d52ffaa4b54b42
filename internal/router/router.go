package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/cseasy-api/internal/config"
	"github.com/noah-isme/cseasy-api/internal/handler"
	"github.com/noah-isme/cseasy-api/internal/middleware"
	"github.com/noah-isme/cseasy-api/internal/observability"
	"github.com/noah-isme/cseasy-api/internal/service"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	AuthHandler             *handler.AuthHandler
	StudentHandler          *handler.StudentHandler
	StudentDashboardHandler *handler.StudentDashboardHandler
	FeedHandler             *handler.FeedHandler
	AssistantHandler        *handler.AssistantHandler
	IntegrityHandler        *handler.IntegrityHandler
	// StudentMiddleware guards the student group. Defaults to RequireRole(student).
	StudentMiddleware fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/metrics", observability.MetricsHandler())

	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))

	if deps.AuthHandler != nil {
		deps.AuthHandler.Register(api.Group("/auth"))
	}

	studentMiddleware := deps.StudentMiddleware
	if studentMiddleware == nil {
		studentMiddleware = middleware.RequireRole(service.RoleStudent)
	}

	student := api.Group("/student", studentMiddleware)
	if deps.StudentDashboardHandler != nil {
		deps.StudentDashboardHandler.Register(student)
	}
	if deps.FeedHandler != nil {
		deps.FeedHandler.Register(student)
	}
	if deps.StudentHandler != nil {
		deps.StudentHandler.Register(student)
	}

	if deps.AssistantHandler != nil {
		assistant := api.Group("/ai", middleware.RateLimit("assistant", cfg.AssistantRateLimitPerMin, time.Minute))
		deps.AssistantHandler.Register(assistant)
	}

	if deps.IntegrityHandler != nil {
		deps.IntegrityHandler.Register(api.Group("/admin"))
	}
}
