package service

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/cseasy-api/internal/dto"
	"github.com/noah-isme/cseasy-api/internal/models"
	"github.com/noah-isme/cseasy-api/internal/repository"
)

func TestStudentDashboardServiceAggregationAndCaching(t *testing.T) {
	mini, err := miniredis.Run()
	require.NoError(t, err)
	defer mini.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: mini.Addr()})

	now := time.Date(2025, 4, 1, 12, 0, 0, 0, time.UTC)
	completedAt := now.Add(-time.Hour)
	courses := []models.Course{
		{
			ID:               "cs101",
			Code:             "COMP1511",
			Name:             "Introduction to Programming",
			TotalLabs:        intPointer(8),
			TotalAssignments: intPointer(6),
			Labs: []models.LabUnit{
				{ID: "lab-1", Title: "Lab 1", DueDate: now.Add(6 * time.Hour)},
				{ID: "lab-2", Title: "Lab 2", DueDate: now.Add(-24 * time.Hour)},
			},
			Assignments: []models.AssignmentUnit{
				{ID: "assg-1", Title: "Assignment 1", DueDate: now.Add(72 * time.Hour)},
				{ID: "assg-2", Title: "Assignment 2", DueDate: now.Add(96 * time.Hour)},
			},
			Announcements: []models.Announcement{{ID: "ann-1", CourseID: "cs101", Title: "Guest Lecture", Date: now.Add(-24 * time.Hour)}},
		},
	}
	catalog := newCatalogFromCourses(t, courses)
	store := newTestStudentStore(t, models.Student{
		ID:                "student-1",
		Name:              "Jane Doe",
		EnrolledCourseIDs: []string{"cs101", "retired"},
		Todos:             []models.Todo{{ID: "todo-1", Text: "x"}, {ID: "todo-2", Text: "y", Completed: true}},
		TaskStates: map[string]models.TaskState{
			"assg-2": {Completed: true, CompletedAt: &completedAt},
		},
	})

	svc := NewStudentDashboardService(catalog, store, redisClient, time.Minute, zerolog.Nop()).(*studentDashboardService)
	svc.now = func() time.Time { return now }

	ctx := context.Background()
	first, cacheHit, err := svc.GetDashboard(ctx, "student-1")
	require.NoError(t, err)
	require.False(t, cacheHit)
	require.Equal(t, 4, first.Summary.TotalTasks)
	require.Equal(t, 1, first.Summary.Completed)
	require.Equal(t, 3, first.Summary.Pending)
	require.Equal(t, 1, first.Summary.Urgent)
	require.Equal(t, 1, first.Summary.Overdue)
	require.Equal(t, 2, first.Summary.LabsPending)
	require.Equal(t, 1, first.Summary.AssignmentsCompleted)
	require.Equal(t, 1, first.Summary.OpenTodos)
	require.InDelta(t, 25.0, first.Summary.CompletionRate, 0.01)

	require.Len(t, first.Upcoming, 3)
	require.Equal(t, "lab-2", first.Upcoming[0].TaskID)
	require.True(t, first.Upcoming[0].Overdue)
	require.Equal(t, "OVERDUE 1d", first.Upcoming[0].DueLabel)
	require.Equal(t, "COMP1511", first.Upcoming[1].CourseCode)

	require.Len(t, first.Courses, 1)
	require.Equal(t, 7, first.Courses[0].Progress)
	require.Equal(t, 14, first.Courses[0].PlannedUnits)
	require.Len(t, first.Announcements, 1)

	_, err = store.Update(ctx, "student-1", func(s *models.Student) error {
		s.TaskStates["lab-1"] = models.CompletedState(true, now)
		return nil
	})
	require.NoError(t, err)

	second, cacheHit, err := svc.GetDashboard(ctx, "student-1")
	require.NoError(t, err)
	require.True(t, cacheHit)
	require.Equal(t, first, second, "cached response is returned until invalidated")

	svc.Invalidate(ctx, "student-1")
	third, cacheHit, err := svc.GetDashboard(ctx, "student-1")
	require.NoError(t, err)
	require.False(t, cacheHit)
	require.Equal(t, 2, third.Summary.Completed)
}

func TestStudentDashboardCacheHit(t *testing.T) {
	mini, err := miniredis.Run()
	require.NoError(t, err)
	defer mini.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: mini.Addr()})
	svc := NewStudentDashboardService(newCatalogFromCourses(t, nil), newTestStudentStore(t), redisClient, time.Minute, zerolog.Nop())
	ctx := context.Background()

	cached := dto.StudentDashboardResponse{
		Student: dto.StudentSummary{ID: "student-10", Name: "Cached"},
		Summary: dto.ProgressSummary{TotalTasks: 1},
	}
	payload, err := json.Marshal(cached)
	require.NoError(t, err)
	require.NoError(t, redisClient.Set(ctx, dashboardCacheKey("student-10", 0), payload, time.Minute).Err())

	response, cacheHit, err := svc.GetDashboard(ctx, "student-10")
	require.NoError(t, err)
	require.True(t, cacheHit)
	require.Equal(t, cached, response)
}

func TestStudentDashboardWithoutCache(t *testing.T) {
	svc := NewStudentDashboardService(newCatalogFromCourses(t, nil), newTestStudentStore(t, models.Student{ID: "student-1"}), nil, time.Minute, zerolog.Nop())
	ctx := context.Background()

	response, cacheHit, err := svc.GetDashboard(ctx, "student-1")
	require.NoError(t, err)
	require.False(t, cacheHit)
	require.Zero(t, response.Summary.TotalTasks)
	require.Zero(t, response.Summary.CompletionRate)
	svc.Invalidate(ctx, "student-1")

	_, _, err = svc.GetDashboard(ctx, "nobody")
	require.ErrorIs(t, err, ErrStudentNotFound)
}

// writeDuringReadRepository runs a write once, right after the first snapshot
// is taken and before the dashboard stores it.
type writeDuringReadRepository struct {
	repository.StudentRepository
	once  sync.Once
	write func()
}

func (r *writeDuringReadRepository) GetByID(ctx context.Context, id string) (models.Student, error) {
	student, err := r.StudentRepository.GetByID(ctx, id)
	r.once.Do(r.write)
	return student, err
}

func TestStudentDashboardDoesNotCacheSnapshotOlderThanInvalidation(t *testing.T) {
	mini, err := miniredis.Run()
	require.NoError(t, err)
	defer mini.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: mini.Addr()})
	now := time.Date(2025, 4, 1, 12, 0, 0, 0, time.UTC)
	catalog := newCatalogFromCourses(t, []models.Course{{
		ID:   "cs101",
		Code: "COMP1511",
		Labs: []models.LabUnit{{ID: "lab-1", Title: "Lab 1", DueDate: now.Add(48 * time.Hour)}},
	}})
	store := newTestStudentStore(t, models.Student{ID: "student-1", EnrolledCourseIDs: []string{"cs101"}})
	ctx := context.Background()

	racing := &writeDuringReadRepository{StudentRepository: store}
	svc := NewStudentDashboardService(catalog, racing, redisClient, time.Minute, zerolog.Nop()).(*studentDashboardService)
	svc.now = func() time.Time { return now }
	gw, _, _ := newTestGateway(store, now)
	gw.cache = svc
	racing.write = func() {
		_, err := gw.ToggleTaskCompletion(ctx, "lab-1", "student-1")
		require.NoError(t, err)
	}

	stale, cacheHit, err := svc.GetDashboard(ctx, "student-1")
	require.NoError(t, err)
	require.False(t, cacheHit)
	require.Zero(t, stale.Summary.Completed)

	fresh, cacheHit, err := svc.GetDashboard(ctx, "student-1")
	require.NoError(t, err)
	require.False(t, cacheHit)
	require.Equal(t, 1, fresh.Summary.Completed)
	require.Len(t, fresh.Courses, 1)
	require.Equal(t, 100, fresh.Courses[0].Progress)

	cached, cacheHit, err := svc.GetDashboard(ctx, "student-1")
	require.NoError(t, err)
	require.True(t, cacheHit)
	require.Equal(t, fresh, cached)
}
