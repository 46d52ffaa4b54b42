package handler_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/cseasy-api/internal/handler"
)

type stubKnowledgeChat struct {
	reply      string
	err        error
	lastUserID string
	lastMsg    string
}

func (s *stubKnowledgeChat) Reply(_ context.Context, userID, message string) (string, error) {
	s.lastUserID = userID
	s.lastMsg = message
	return s.reply, s.err
}

func newKnowledgeChatApp(svc *stubKnowledgeChat) *fiber.App {
	app := fiber.New()
	handler.NewKnowledgeChatHandler(svc, zerolog.Nop()).Register(app)
	return app
}

func TestKnowledgeChatHandler_Reply(t *testing.T) {
	svc := &stubKnowledgeChat{reply: "Lab 3 takes about 3h."}

	resp, payload := doJSON(t, newKnowledgeChatApp(svc), http.MethodPost, "/chat", `{"message":"how long is lab 3?","userId":"z5555555"}`)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, map[string]interface{}{"reply": "Lab 3 takes about 3h."}, payload)
	require.Equal(t, "z5555555", svc.lastUserID)
}

func TestKnowledgeChatHandler_Errors(t *testing.T) {
	svc := &stubKnowledgeChat{}
	app := newKnowledgeChatApp(svc)

	resp, payload := doJSON(t, app, http.MethodPost, "/chat", `{"message":"   "}`)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "Missing 'message'.", payload["error"])
	require.Empty(t, svc.lastMsg)

	svc.err = errors.New("upstream down")
	resp, payload = doJSON(t, app, http.MethodPost, "/chat", `{"message":"plan my week"}`)
	require.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
	require.Equal(t, "Chat failed.", payload["error"])
}
