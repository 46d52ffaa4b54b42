package handler_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/cseasy-api/internal/dto"
	"github.com/noah-isme/cseasy-api/internal/handler"
)

type stubIntegrityService struct {
	report dto.IntegrityReport
	err    error
	calls  int
}

func (s *stubIntegrityService) Check(context.Context) (dto.IntegrityReport, error) {
	s.calls++
	return s.report, s.err
}

func (s *stubIntegrityService) Schedule(string) (*cron.Cron, error) {
	return cron.New(), nil
}

func newIntegrityApp(svc *stubIntegrityService, token string) *fiber.App {
	app := fiber.New()
	handler.NewIntegrityHandler(svc, token, zerolog.Nop()).Register(app.Group("/api/v1/admin"))
	return app
}

func integrityRequest(t *testing.T, app *fiber.App, token string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/integrity", nil)
	if token != "" {
		req.Header.Set(handler.AdminTokenHeader, token)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func TestIntegrityHandler_TokenGuard(t *testing.T) {
	svc := &stubIntegrityService{}

	resp := integrityRequest(t, newIntegrityApp(svc, ""), "anything")
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp = integrityRequest(t, newIntegrityApp(svc, "secret"), "wrong")
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp = integrityRequest(t, newIntegrityApp(svc, "secret"), "")
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	require.Zero(t, svc.calls)
}

func TestIntegrityHandler_Report(t *testing.T) {
	svc := &stubIntegrityService{report: dto.IntegrityReport{
		CheckedAt:    time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC),
		Students:     []dto.StudentIntegrity{{StudentID: "student-1", MissingCourseIDs: []string{"retired"}, OrphanedTaskIDs: []string{}}},
		WarningCount: 1,
	}}

	resp := integrityRequest(t, newIntegrityApp(svc, "secret"), "secret")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, 1, svc.calls)

	svc.err = errors.New("store offline")
	resp = integrityRequest(t, newIntegrityApp(svc, "secret"), "secret")
	require.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
}
