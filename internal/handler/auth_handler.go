package handler

import (
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/cseasy-api/internal/dto"
	"github.com/noah-isme/cseasy-api/internal/middleware"
	"github.com/noah-isme/cseasy-api/internal/service"
	"github.com/noah-isme/cseasy-api/internal/utils"
)

// AuthHandler serves the demo login flow.
type AuthHandler struct {
	service      service.AuthService
	validator    *validator.Validate
	secureCookie bool
	logger       zerolog.Logger
}

// NewAuthHandler creates an auth handler. secureCookie marks the session
// cookie Secure, which browsers only honour over HTTPS.
func NewAuthHandler(service service.AuthService, validate *validator.Validate, secureCookie bool, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		service:      service,
		validator:    validate,
		secureCookie: secureCookie,
		logger:       logger.With().Str("component", "auth_handler").Logger(),
	}
}

// Register wires auth routes.
func (h *AuthHandler) Register(router fiber.Router) {
	router.Post("/login", h.login)
	router.Post("/logout", h.logout)
	router.Get("/students", h.students)
}

func (h *AuthHandler) login(c *fiber.Ctx) error {
	var payload dto.LoginRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}
	if err := h.validator.Struct(payload); err != nil {
		return utils.Fail(c, fiber.StatusBadRequest, "zID and password are required", validationDetails(err))
	}

	response, err := h.service.Login(requestContext(c), payload)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			return utils.SendError(c, fiber.StatusUnauthorized, err.Error())
		}
		return sendServiceError(c, h.logger, err, "login failed")
	}

	c.Cookie(&fiber.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    response.Token,
		Path:     "/",
		Expires:  response.ExpiresAt,
		HTTPOnly: true,
		Secure:   h.secureCookie,
		SameSite: fiber.CookieSameSiteLaxMode,
	})

	return utils.SendSuccess(c, "login successful", response)
}

func (h *AuthHandler) logout(c *fiber.Ctx) error {
	c.Cookie(&fiber.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		HTTPOnly: true,
		Secure:   h.secureCookie,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return utils.SendSuccess(c, "logged out", nil)
}

func (h *AuthHandler) students(c *fiber.Ctx) error {
	items, err := h.service.ListStudents(requestContext(c))
	if err != nil {
		return sendServiceError(c, h.logger, err, "failed to list students")
	}
	return utils.SendSuccess(c, "students retrieved", items)
}
