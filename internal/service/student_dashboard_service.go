package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/cseasy-api/internal/dto"
	"github.com/noah-isme/cseasy-api/internal/models"
	"github.com/noah-isme/cseasy-api/internal/observability"
	"github.com/noah-isme/cseasy-api/internal/repository"
)

const urgentWindow = 24 * time.Hour

// StudentDashboardService produces aggregated dashboard metrics.
type StudentDashboardService interface {
	GetDashboard(ctx context.Context, studentID string) (dto.StudentDashboardResponse, bool, error)
}

// CachedDashboardService is a dashboard service whose cache entries can be dropped.
type CachedDashboardService interface {
	StudentDashboardService
	DashboardInvalidator
}

type studentDashboardService struct {
	catalog  repository.CatalogRepository
	students repository.StudentRepository
	cache    *redis.Client
	cacheTTL time.Duration
	logger   zerolog.Logger
	now      func() time.Time
}

// NewStudentDashboardService builds the dashboard aggregator. cache may be nil.
func NewStudentDashboardService(catalog repository.CatalogRepository, students repository.StudentRepository, cache *redis.Client, ttl time.Duration, logger zerolog.Logger) CachedDashboardService {
	return &studentDashboardService{
		catalog:  catalog,
		students: students,
		cache:    cache,
		cacheTTL: ttl,
		logger:   logger.With().Str("component", "student_dashboard_service").Logger(),
		now:      time.Now,
	}
}

func dashboardCacheKey(studentID string, generation int64) string {
	return fmt.Sprintf("dashboard:student:%s:g%d", studentID, generation)
}

func dashboardGenerationKey(studentID string) string {
	return fmt.Sprintf("dashboard:student:%s:generation", studentID)
}

// cacheGeneration returns the student's current cache generation. ok is false
// when the cache cannot be trusted for this read.
func (s *studentDashboardService) cacheGeneration(ctx context.Context, studentID string) (int64, bool) {
	generation, err := s.cache.Get(ctx, dashboardGenerationKey(studentID)).Int64()
	if err == nil {
		return generation, true
	}
	if errors.Is(err, redis.Nil) {
		return 0, true
	}
	s.logger.Warn().Err(err).Str("student_id", studentID).Msg("failed to read dashboard cache generation")
	return 0, false
}

// GetDashboard reads through the cache. Entries are keyed by the generation
// observed before the record is loaded, so a snapshot that races with a write
// lands under a generation no later reader will ask for.
func (s *studentDashboardService) GetDashboard(ctx context.Context, studentID string) (dto.StudentDashboardResponse, bool, error) {
	useCache := false
	cacheKey := ""
	if s.cache != nil {
		generation, ok := s.cacheGeneration(ctx, studentID)
		useCache = ok
		cacheKey = dashboardCacheKey(studentID, generation)
	}

	if useCache {
		if cached, err := s.cache.Get(ctx, cacheKey).Result(); err == nil {
			var response dto.StudentDashboardResponse
			if unmarshalErr := json.Unmarshal([]byte(cached), &response); unmarshalErr == nil {
				s.logger.Debug().Str("student_id", studentID).Msg("dashboard cache hit")
				observability.DashboardCache().WithLabelValues("hit").Inc()
				return response, true, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			s.logger.Warn().Err(err).Msg("failed to read dashboard cache")
		}
		observability.DashboardCache().WithLabelValues("miss").Inc()
	}

	student, err := s.students.GetByID(ctx, studentID)
	if err != nil {
		return dto.StudentDashboardResponse{}, false, studentLookupError(err)
	}

	courses, err := s.catalog.List(ctx)
	if err != nil {
		return dto.StudentDashboardResponse{}, false, err
	}

	response := s.buildResponse(student, courses)

	if useCache {
		payload, err := json.Marshal(response)
		if err == nil {
			if err := s.cache.Set(ctx, cacheKey, payload, s.cacheTTL).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to store dashboard cache")
			}
		}
	}

	return response, false, nil
}

// Invalidate bumps the student's cache generation and drops the entry it replaced.
func (s *studentDashboardService) Invalidate(ctx context.Context, studentID string) {
	if s.cache == nil {
		return
	}
	generation, err := s.cache.Incr(ctx, dashboardGenerationKey(studentID)).Result()
	if err != nil {
		s.logger.Warn().Err(err).Str("student_id", studentID).Msg("failed to invalidate dashboard cache")
		return
	}
	if err := s.cache.Del(ctx, dashboardCacheKey(studentID, generation-1)).Err(); err != nil {
		s.logger.Warn().Err(err).Str("student_id", studentID).Msg("failed to drop stale dashboard entry")
	}
}

func (s *studentDashboardService) buildResponse(student models.Student, courses []models.Course) dto.StudentDashboardResponse {
	now := s.now().UTC()

	metadata, missing := BuildTaskMetadata(student, courses)
	logMissingCourses(s.logger, student.ID, missing)
	tasks := DeriveStudentTasks(metadata, student.TaskStates)

	codes := make(map[string]string, len(courses))
	for _, course := range courses {
		codes[course.ID] = course.Code
	}

	summary := dto.ProgressSummary{TotalTasks: len(tasks)}
	upcoming := make([]dto.DashboardTask, 0)
	for _, task := range tasks {
		isLab := task.SourceType == models.UnitTypeLab
		if task.Completed {
			summary.Completed++
			if isLab {
				summary.LabsCompleted++
			} else {
				summary.AssignmentsCompleted++
			}
			continue
		}

		summary.Pending++
		if isLab {
			summary.LabsPending++
		} else {
			summary.AssignmentsPending++
		}

		overdue := task.IsPastDue(now)
		if overdue {
			summary.Overdue++
		} else if task.DueDate.Sub(now) < urgentWindow {
			summary.Urgent++
		}

		upcoming = append(upcoming, dto.DashboardTask{
			TaskID:     task.ID,
			CourseID:   task.CourseID,
			CourseCode: codes[task.CourseID],
			SourceType: task.SourceType,
			Title:      task.Title,
			DueDate:    task.DueDate,
			DueLabel:   RelativeDueLabel(task.DueDate, now),
			Overdue:    overdue,
		})
	}

	sort.SliceStable(upcoming, func(i, j int) bool {
		return upcoming[i].DueDate.Before(upcoming[j].DueDate)
	})

	if summary.TotalTasks > 0 {
		summary.CompletionRate = (float64(summary.Completed) / float64(summary.TotalTasks)) * 100
	}
	for _, todo := range student.Todos {
		if !todo.Completed {
			summary.OpenTodos++
		}
	}

	progress := make([]dto.CourseProgress, 0, len(student.EnrolledCourseIDs))
	byID := make(map[string]models.Course, len(courses))
	for _, course := range courses {
		byID[course.ID] = course
	}
	for _, courseID := range student.EnrolledCourseIDs {
		course, ok := byID[courseID]
		if !ok {
			continue
		}
		completed := CompletedUnits(course, student.TaskStates)
		progress = append(progress, dto.CourseProgress{
			CourseID:       course.ID,
			Code:           course.Code,
			Name:           course.Name,
			Color:          course.Color,
			Initials:       course.Initials,
			Progress:       progressPercent(completed, course.PlannedUnits()),
			CompletedUnits: completed,
			PlannedUnits:   course.PlannedUnits(),
		})
	}

	return dto.StudentDashboardResponse{
		Student:       dto.StudentSummary{ID: student.ID, Name: student.Name},
		Summary:       summary,
		Upcoming:      upcoming,
		Courses:       progress,
		Announcements: collectAnnouncements(student, courses),
		GeneratedAt:   now,
	}
}
