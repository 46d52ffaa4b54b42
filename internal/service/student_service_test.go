package service

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/cseasy-api/internal/models"
	"github.com/noah-isme/cseasy-api/internal/repository"
)

func newTestCatalog(t *testing.T, due time.Time) repository.CatalogRepository {
	t.Helper()
	courses := sampleCatalog(due)
	courses[0].Announcements = []models.Announcement{{ID: "ann-old", CourseID: "cs101", Date: due.Add(-72 * time.Hour)}}
	courses[1].Announcements = []models.Announcement{{ID: "ann-new", CourseID: "ds202", Date: due.Add(-time.Hour)}}
	courses[2].Announcements = []models.Announcement{{ID: "ann-other", CourseID: "empty", Date: due}}
	catalog, err := repository.NewCatalogRepository(courses)
	require.NoError(t, err)
	return catalog
}

func TestStudentServiceReadViews(t *testing.T) {
	due := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	completedAt := due.Add(-time.Hour)
	store := newTestStudentStore(t, models.Student{
		ID:                "student-1",
		Name:              "Jane Doe",
		ZID:               "z5555555",
		PasswordHash:      "secret",
		EnrolledCourseIDs: []string{"cs101", "ds202"},
		Todos:             []models.Todo{{ID: "todo-1", Text: "Review"}},
		TaskStates: map[string]models.TaskState{
			"lab-cs101-1":  {Completed: true, CompletedAt: &completedAt},
			"assg-ds202-1": {Completed: true, CompletedAt: &completedAt},
		},
	})
	svc := NewStudentService(newTestCatalog(t, due), store, zerolog.Nop())
	ctx := context.Background()

	profile, err := svc.GetStudent(ctx, "student-1")
	require.NoError(t, err)
	require.Equal(t, "Jane Doe", profile.Name)

	courses, err := svc.ListCourses(ctx, "student-1")
	require.NoError(t, err)
	require.Len(t, courses, 2)
	require.Equal(t, 33, courses[0].Progress)
	require.Equal(t, 7, courses[1].Progress)

	tasks, err := svc.ListTasks(ctx, "student-1")
	require.NoError(t, err)
	require.Len(t, tasks, 7)

	metadata, err := svc.ListTaskMetadata(ctx, "student-1")
	require.NoError(t, err)
	require.Len(t, metadata, 7)

	detail, err := svc.GetCourseDetail(ctx, "student-1", "ds202")
	require.NoError(t, err)
	require.Equal(t, "ds202", detail.Course.ID)
	require.Len(t, detail.Tasks, 4)
	require.True(t, detail.Tasks[2].Completed)

	announcements, err := svc.ListAnnouncements(ctx, "student-1")
	require.NoError(t, err)
	require.Len(t, announcements, 2)
	require.Equal(t, "ann-new", announcements[0].ID)

	todos, err := svc.ListTodos(ctx, "student-1")
	require.NoError(t, err)
	todos[0].Text = "mutated"
	again, err := svc.ListTodos(ctx, "student-1")
	require.NoError(t, err)
	require.Equal(t, "Review", again[0].Text)

	course, err := svc.CourseForTask(ctx, "assg-ds202-2")
	require.NoError(t, err)
	require.Equal(t, "COMP2521", course.Code)
}

func TestStudentServiceErrors(t *testing.T) {
	due := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	store := newTestStudentStore(t,
		models.Student{ID: "student-1", EnrolledCourseIDs: []string{"cs101"}},
		models.Student{ID: "student-2", EnrolledCourseIDs: []string{"cs101", "retired"}},
	)
	svc := NewStudentService(newTestCatalog(t, due), store, zerolog.Nop())
	ctx := context.Background()

	_, err := svc.GetStudent(ctx, "nobody")
	require.ErrorIs(t, err, ErrStudentNotFound)

	_, err = svc.GetCourseDetail(ctx, "student-1", "ds202")
	require.ErrorIs(t, err, ErrCourseNotEnrolled)

	_, err = svc.GetCourseDetail(ctx, "student-2", "retired")
	require.ErrorIs(t, err, ErrCourseNotFound)

	_, err = svc.ListCourses(ctx, "student-2")
	require.ErrorIs(t, err, ErrCourseNotFound)

	tasks, err := svc.ListTasks(ctx, "student-2")
	require.NoError(t, err, "derivation skips unknown courses")
	require.Len(t, tasks, 3)

	_, err = svc.CourseForTask(ctx, "ghost-1")
	require.ErrorIs(t, err, ErrCourseNotFound)
}

func newCatalogFromCourses(t *testing.T, courses []models.Course) repository.CatalogRepository {
	t.Helper()
	catalog, err := repository.NewCatalogRepository(courses)
	require.NoError(t, err)
	return catalog
}
