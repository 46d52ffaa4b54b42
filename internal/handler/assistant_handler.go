package handler

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/cseasy-api/internal/dto"
	"github.com/noah-isme/cseasy-api/internal/middleware"
	"github.com/noah-isme/cseasy-api/internal/service"
	"github.com/noah-isme/cseasy-api/internal/utils"
)

// AssistantHandler exposes the planning assistant and the bulk todo importer.
type AssistantHandler struct {
	assistant    service.AssistantService
	importer     service.SuggestionImporter
	validator    *validator.Validate
	allowDefault bool
	logger       zerolog.Logger
}

// NewAssistantHandler creates the handler. allowDefault lets the importer fall
// back to the first registered student when no identity is available.
func NewAssistantHandler(assistant service.AssistantService, importer service.SuggestionImporter, validate *validator.Validate, allowDefault bool, logger zerolog.Logger) *AssistantHandler {
	return &AssistantHandler{
		assistant:    assistant,
		importer:     importer,
		validator:    validate,
		allowDefault: allowDefault,
		logger:       logger.With().Str("component", "assistant_handler").Logger(),
	}
}

// Register wires the assistant routes.
func (h *AssistantHandler) Register(router fiber.Router) {
	router.Post("/suggestions", h.suggest)
	router.Post("/estimate", h.estimate)
	router.Post("/chat", h.chat)
	router.Post("/add-todos", h.addTodos)
}

func (h *AssistantHandler) suggest(c *fiber.Ctx) error {
	var payload dto.SuggestTasksRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}
	payload.Content = strings.TrimSpace(payload.Content)
	if err := h.validator.Struct(payload); err != nil {
		return utils.Fail(c, fiber.StatusBadRequest, "content is required", validationDetails(err))
	}

	identity := service.ResolveRequest{ExplicitID: payload.StudentID, SessionID: middleware.StudentIDFromContext(c)}
	response, err := h.assistant.SuggestTasks(requestContext(c), payload.Content, identity)
	if err != nil {
		return sendServiceError(c, h.logger, err, "unable to suggest tasks")
	}
	return utils.SendSuccess(c, "tasks suggested", response)
}

func (h *AssistantHandler) estimate(c *fiber.Ctx) error {
	var payload dto.EstimateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}
	payload.TaskDescription = strings.TrimSpace(payload.TaskDescription)
	if err := h.validator.Struct(payload); err != nil {
		return utils.Fail(c, fiber.StatusBadRequest, "task_description is required", validationDetails(err))
	}

	response, err := h.assistant.EstimateTime(requestContext(c), payload)
	if err != nil {
		return sendServiceError(c, h.logger, err, "unable to estimate")
	}
	return utils.SendSuccess(c, "estimate ready", response)
}

func (h *AssistantHandler) chat(c *fiber.Ctx) error {
	var payload dto.ChatRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}
	payload.Message = strings.TrimSpace(payload.Message)
	if err := h.validator.Struct(payload); err != nil {
		return utils.Fail(c, fiber.StatusBadRequest, service.ErrMessageRequired.Error(), validationDetails(err))
	}

	identity := service.ResolveRequest{ExplicitID: payload.StudentID, SessionID: middleware.StudentIDFromContext(c)}
	response, err := h.assistant.Chat(requestContext(c), payload.Message, identity)
	if err != nil {
		return sendServiceError(c, h.logger, err, "chat failed")
	}
	return utils.SendSuccess(c, "reply ready", response)
}

func (h *AssistantHandler) addTodos(c *fiber.Ctx) error {
	var payload dto.AddTodosRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	raw := bytes.TrimSpace(payload.Tasks)
	if len(raw) == 0 || raw[0] != '[' {
		return utils.SendError(c, fiber.StatusBadRequest, "tasks must be an array")
	}
	var tasks []string
	if err := json.Unmarshal(raw, &tasks); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "tasks must be an array of strings")
	}
	if len(tasks) == 0 {
		return utils.SendError(c, fiber.StatusBadRequest, "No tasks provided")
	}

	identity := service.ResolveRequest{
		ExplicitID:   payload.StudentID,
		SessionID:    middleware.StudentIDFromContext(c),
		AllowDefault: h.allowDefault,
	}
	result, err := h.importer.Import(requestContext(c), tasks, identity)
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to add todos")
	}
	return utils.SendSuccess(c, "todos imported", result)
}
