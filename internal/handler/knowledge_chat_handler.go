package handler

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/cseasy-api/internal/dto"
	"github.com/noah-isme/cseasy-api/internal/service"
)

// KnowledgeChatHandler serves the standalone knowledge base chat. Its replies
// are bare JSON objects rather than the API envelope.
type KnowledgeChatHandler struct {
	service service.KnowledgeChatService
	logger  zerolog.Logger
}

// NewKnowledgeChatHandler constructs the handler.
func NewKnowledgeChatHandler(service service.KnowledgeChatService, logger zerolog.Logger) *KnowledgeChatHandler {
	return &KnowledgeChatHandler{
		service: service,
		logger:  logger.With().Str("component", "knowledge_chat_handler").Logger(),
	}
}

// Register wires POST /chat.
func (h *KnowledgeChatHandler) Register(router fiber.Router) {
	router.Post("/chat", h.chat)
}

func (h *KnowledgeChatHandler) chat(c *fiber.Ctx) error {
	var payload dto.KnowledgeChatRequest
	if err := c.BodyParser(&payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": service.ErrMessageRequired.Error()})
	}
	if strings.TrimSpace(payload.Message) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": service.ErrMessageRequired.Error()})
	}

	reply, err := h.service.Reply(requestContext(c), payload.UserID, payload.Message)
	if err != nil {
		if errors.Is(err, service.ErrMessageRequired) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		requestLogger(h.logger, c).Error().Err(err).Str("user_id", payload.UserID).Msg("knowledge chat failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Chat failed."})
	}

	return c.JSON(dto.KnowledgeChatResponse{Reply: reply})
}
