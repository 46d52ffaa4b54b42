package handler

import (
	"crypto/subtle"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/cseasy-api/internal/service"
	"github.com/noah-isme/cseasy-api/internal/utils"
)

// AdminTokenHeader carries the operator token for admin tooling routes.
const AdminTokenHeader = "X-Admin-Token"

// IntegrityHandler exposes the on-demand data integrity report.
type IntegrityHandler struct {
	service service.IntegrityService
	token   string
	logger  zerolog.Logger
}

// NewIntegrityHandler constructs the handler. An empty token disables the route.
func NewIntegrityHandler(service service.IntegrityService, token string, logger zerolog.Logger) *IntegrityHandler {
	return &IntegrityHandler{
		service: service,
		token:   token,
		logger:  logger.With().Str("component", "integrity_handler").Logger(),
	}
}

// Register wires admin routes.
func (h *IntegrityHandler) Register(router fiber.Router) {
	router.Get("/integrity", h.report)
}

func (h *IntegrityHandler) report(c *fiber.Ctx) error {
	if h.token == "" {
		return utils.SendError(c, fiber.StatusForbidden, "integrity check disabled")
	}
	if subtle.ConstantTimeCompare([]byte(c.Get(AdminTokenHeader)), []byte(h.token)) != 1 {
		return utils.SendError(c, fiber.StatusForbidden, "invalid token")
	}

	report, err := h.service.Check(requestContext(c))
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("integrity check failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "integrity check failed")
	}

	return utils.OK(c, report, "integrity report", fiber.Map{"warning_count": report.WarningCount})
}
