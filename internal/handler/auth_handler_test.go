package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/cseasy-api/internal/dto"
	"github.com/noah-isme/cseasy-api/internal/handler"
	"github.com/noah-isme/cseasy-api/internal/middleware"
	"github.com/noah-isme/cseasy-api/internal/service"
)

type stubAuthService struct {
	lastLogin dto.LoginRequest
	response  dto.LoginResponse
	err       error
	students  []dto.StudentListItem
}

func (s *stubAuthService) Login(_ context.Context, req dto.LoginRequest) (dto.LoginResponse, error) {
	s.lastLogin = req
	if s.err != nil {
		return dto.LoginResponse{}, s.err
	}
	return s.response, nil
}

func (s *stubAuthService) ListStudents(context.Context) ([]dto.StudentListItem, error) {
	return s.students, nil
}

func newAuthApp(svc service.AuthService) *fiber.App {
	app := fiber.New()
	handler.NewAuthHandler(svc, validator.New(), false, zerolog.Nop()).Register(app.Group("/api/v1/auth"))
	return app
}

func postJSON(t *testing.T, app *fiber.App, path string, payload interface{}) *http.Response {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func sessionCookie(resp *http.Response) *http.Cookie {
	for _, cookie := range resp.Cookies() {
		if cookie.Name == middleware.SessionCookieName {
			return cookie
		}
	}
	return nil
}

func TestAuthHandler_LoginSetsSessionCookie(t *testing.T) {
	svc := &stubAuthService{response: dto.LoginResponse{
		Token:     "signed-token",
		ExpiresAt: time.Now().Add(time.Hour).UTC(),
		Student:   dto.StudentListItem{ID: "student-1", Name: "Jane Doe", ZID: "z5555555"},
	}}

	resp := postJSON(t, newAuthApp(svc), "/api/v1/auth/login", fiber.Map{"z_id": "z5555555", "password": "password123"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, "z5555555", svc.lastLogin.ZID)

	cookie := sessionCookie(resp)
	require.NotNil(t, cookie)
	require.Equal(t, "signed-token", cookie.Value)
	require.True(t, cookie.HttpOnly)
}

func TestAuthHandler_LoginFailures(t *testing.T) {
	app := newAuthApp(&stubAuthService{err: service.ErrInvalidCredentials})

	resp := postJSON(t, app, "/api/v1/auth/login", fiber.Map{"z_id": "z5555555", "password": "nope"})
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	var payload struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	resp.Body.Close()
	require.Equal(t, "Invalid zID or password", payload.Message)
	require.Nil(t, sessionCookie(resp))

	resp = postJSON(t, app, "/api/v1/auth/login", fiber.Map{"z_id": "z5555555"})
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestAuthHandler_LogoutClearsCookie(t *testing.T) {
	resp := postJSON(t, newAuthApp(&stubAuthService{}), "/api/v1/auth/logout", fiber.Map{})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	cookie := sessionCookie(resp)
	require.NotNil(t, cookie)
	require.Empty(t, cookie.Value)
}

func TestAuthHandler_ListStudents(t *testing.T) {
	svc := &stubAuthService{students: []dto.StudentListItem{{ID: "student-1", Name: "Jane Doe", ZID: "z5555555"}}}

	resp, err := newAuthApp(svc).Test(httptest.NewRequest(http.MethodGet, "/api/v1/auth/students", nil), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var payload struct {
		Data []dto.StudentListItem `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	resp.Body.Close()
	require.Equal(t, svc.students, payload.Data)
}
