package handler_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/cseasy-api/internal/dto"
	"github.com/noah-isme/cseasy-api/internal/handler"
	"github.com/noah-isme/cseasy-api/internal/models"
	"github.com/noah-isme/cseasy-api/internal/service"
)

type stubStudentDashboardService struct {
	response dto.StudentDashboardResponse
	err      error
	calls    int
	lastID   string
	cacheHit bool
}

func (s *stubStudentDashboardService) GetDashboard(_ context.Context, studentID string) (dto.StudentDashboardResponse, bool, error) {
	s.calls++
	s.lastID = studentID
	if s.err != nil {
		return dto.StudentDashboardResponse{}, false, s.err
	}
	return s.response, s.cacheHit, nil
}

func withStudent(studentID string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals("student_id", studentID)
		c.Locals("user_role", "student")
		return c.Next()
	}
}

func sampleDashboard(now time.Time) dto.StudentDashboardResponse {
	return dto.StudentDashboardResponse{
		Student: dto.StudentSummary{ID: "student-1", Name: "Jane Doe"},
		Summary: dto.ProgressSummary{TotalTasks: 4, Completed: 2, Pending: 2, Urgent: 1, CompletionRate: 50, LabsCompleted: 2, AssignmentsPending: 2},
		Upcoming: []dto.DashboardTask{{
			TaskID:     "assg-cs101-1",
			CourseID:   "cs101",
			CourseCode: "COMP1511",
			SourceType: models.UnitTypeAssignment,
			Title:      "Assignment 1",
			DueDate:    now.Add(12 * time.Hour),
			DueLabel:   "due in 1d",
		}},
		Courses:       []dto.CourseProgress{{CourseID: "cs101", Code: "COMP1511", Progress: 50, CompletedUnits: 2, PlannedUnits: 4}},
		Announcements: []models.Announcement{},
		GeneratedAt:   now,
	}
}

func TestStudentDashboardHandler_Success(t *testing.T) {
	now := time.Now().UTC()
	svc := &stubStudentDashboardService{response: sampleDashboard(now), cacheHit: true}

	app := fiber.New()
	group := app.Group("/api/v1/student", withStudent("student-1"))
	handler.NewStudentDashboardHandler(svc, zerolog.Nop()).Register(group)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/student/dashboard", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var payload struct {
		Success bool                         `json:"success"`
		Message string                       `json:"message"`
		Data    dto.StudentDashboardResponse `json:"data"`
		Meta    map[string]interface{}       `json:"meta"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	resp.Body.Close()

	require.True(t, payload.Success)
	require.Equal(t, "dashboard retrieved", payload.Message)
	require.Equal(t, 4, payload.Data.Summary.TotalTasks)
	require.Equal(t, "student-1", svc.lastID)
	require.Equal(t, 1, svc.calls)
	require.Equal(t, true, payload.Meta["cache_hit"])
}

func TestStudentDashboardHandler_MatchesContract(t *testing.T) {
	svc := &stubStudentDashboardService{response: sampleDashboard(time.Now().UTC())}

	app := fiber.New()
	handler.NewStudentDashboardHandler(svc, zerolog.Nop()).Register(app.Group("/api/v1/student", withStudent("student-1")))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/student/dashboard", nil), -1)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()

	schemaPath, err := filepath.Abs(filepath.Join("testdata", "student_dashboard.schema.json"))
	require.NoError(t, err)

	compiler := jsonschema.NewCompiler()
	compiler.AssertFormat = true
	schema, err := compiler.Compile("file://" + schemaPath)
	require.NoError(t, err)

	var document interface{}
	require.NoError(t, json.Unmarshal(body, &document))
	require.NoError(t, schema.Validate(document))
}

func TestStudentDashboardHandler_Unauthorized(t *testing.T) {
	svc := &stubStudentDashboardService{}

	app := fiber.New()
	handler.NewStudentDashboardHandler(svc, zerolog.Nop()).Register(app.Group("/api/v1/student"))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/student/dashboard", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	var payload struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	resp.Body.Close()

	require.False(t, payload.Success)
	require.NotEmpty(t, payload.Message)
	require.Equal(t, 0, svc.calls)
}

func TestStudentDashboardHandler_UnknownStudent(t *testing.T) {
	svc := &stubStudentDashboardService{err: service.ErrStudentNotFound}

	app := fiber.New()
	handler.NewStudentDashboardHandler(svc, zerolog.Nop()).Register(app.Group("/api/v1/student", withStudent("ghost")))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/student/dashboard", nil), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

var _ service.StudentDashboardService = (*stubStudentDashboardService)(nil)
