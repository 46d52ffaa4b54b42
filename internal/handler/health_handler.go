package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/cseasy-api/internal/config"
	"github.com/noah-isme/cseasy-api/internal/utils"
)

// HealthResponse represents the payload returned by the health endpoint.
type HealthResponse struct {
	Status      string    `json:"status"`
	Timestamp   time.Time `json:"timestamp"`
	Service     string    `json:"service"`
	Environment string    `json:"environment"`
	Store       string    `json:"store"`
	Assistant   bool      `json:"assistant_enabled"`
}

// HealthCheck reports liveness along with the configured store driver and
// whether a language model key is present.
func HealthCheck(cfg config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		payload := HealthResponse{
			Status:      "ok",
			Timestamp:   time.Now().UTC(),
			Service:     cfg.AppName,
			Environment: cfg.AppEnv,
			Store:       cfg.StoreDriver,
			Assistant:   cfg.OpenAIAPIKey != "",
		}

		return utils.SendSuccess(c, "service healthy", payload)
	}
}
