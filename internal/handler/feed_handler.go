package handler

import (
	"context"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/cseasy-api/internal/middleware"
	"github.com/noah-isme/cseasy-api/internal/service"
)

const feedContextLocal = "request_ctx"

// FeedHandler upgrades dashboard tabs to the live student event feed.
type FeedHandler struct {
	service service.FeedService
	logger  zerolog.Logger
}

// NewFeedHandler creates a feed handler instance.
func NewFeedHandler(service service.FeedService, logger zerolog.Logger) *FeedHandler {
	return &FeedHandler{
		service: service,
		logger:  logger.With().Str("component", "feed_handler").Logger(),
	}
}

// Register binds the feed routes under the student group.
func (h *FeedHandler) Register(router fiber.Router) {
	router.Use("/feed/ws", h.upgradeGuard)
	router.Get("/feed/ws", websocket.New(h.handleConnection))
}

func (h *FeedHandler) upgradeGuard(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	c.Locals(feedContextLocal, requestContext(c))
	return c.Next()
}

func (h *FeedHandler) handleConnection(conn *websocket.Conn) {
	studentID := feedStudentID(conn)
	if studentID == "" {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "student session required"))
		_ = conn.Close()
		return
	}

	baseCtx, _ := conn.Locals(feedContextLocal).(context.Context)
	opts := service.FeedConnectionOptions{
		StudentID:     studentID,
		CorrelationID: middleware.CorrelationIDFromContext(baseCtx),
		Context:       baseCtx,
	}

	h.logger.Info().Str("student_id", studentID).Msg("feed websocket connected")
	h.service.ServeConnection(conn, opts)
	h.logger.Info().Str("student_id", studentID).Msg("feed websocket disconnected")
}

func feedStudentID(conn *websocket.Conn) string {
	value := conn.Locals(middleware.LocalStudentID)
	if value == nil {
		return ""
	}
	if id, ok := value.(string); ok {
		return id
	}
	return fmt.Sprint(value)
}
