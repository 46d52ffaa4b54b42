package service

import (
	"context"
	"errors"
	"sort"

	"github.com/rs/zerolog"

	"github.com/noah-isme/cseasy-api/internal/dto"
	"github.com/noah-isme/cseasy-api/internal/models"
	"github.com/noah-isme/cseasy-api/internal/repository"
)

// StudentService exposes read-only, derived views of a student record.
type StudentService interface {
	GetStudent(ctx context.Context, studentID string) (dto.StudentResponse, error)
	ListTodos(ctx context.Context, studentID string) ([]models.Todo, error)
	ListCourses(ctx context.Context, studentID string) ([]dto.StudentCourseView, error)
	GetCourseDetail(ctx context.Context, studentID, courseID string) (dto.CourseDetailResponse, error)
	ListTasks(ctx context.Context, studentID string) ([]models.StudentTask, error)
	ListTaskMetadata(ctx context.Context, studentID string) ([]models.TaskMetadata, error)
	ListAnnouncements(ctx context.Context, studentID string) ([]models.Announcement, error)
	CourseForTask(ctx context.Context, taskID string) (models.Course, error)
}

type studentService struct {
	catalog  repository.CatalogRepository
	students repository.StudentRepository
	logger   zerolog.Logger
}

// NewStudentService builds the read service.
func NewStudentService(catalog repository.CatalogRepository, students repository.StudentRepository, logger zerolog.Logger) StudentService {
	return &studentService{
		catalog:  catalog,
		students: students,
		logger:   logger.With().Str("component", "student_service").Logger(),
	}
}

func (s *studentService) GetStudent(ctx context.Context, studentID string) (dto.StudentResponse, error) {
	student, err := s.load(ctx, studentID)
	if err != nil {
		return dto.StudentResponse{}, err
	}
	return dto.NewStudentResponse(student), nil
}

func (s *studentService) ListTodos(ctx context.Context, studentID string) ([]models.Todo, error) {
	student, err := s.load(ctx, studentID)
	if err != nil {
		return nil, err
	}
	return append([]models.Todo{}, student.Todos...), nil
}

// ListCourses is a structural lookup: an enrolled course missing from the
// catalog fails the call instead of being skipped.
func (s *studentService) ListCourses(ctx context.Context, studentID string) ([]dto.StudentCourseView, error) {
	student, err := s.load(ctx, studentID)
	if err != nil {
		return nil, err
	}

	views := make([]dto.StudentCourseView, 0, len(student.EnrolledCourseIDs))
	for _, courseID := range student.EnrolledCourseIDs {
		course, err := s.catalog.GetByID(ctx, courseID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				s.logger.Warn().Str("student_id", studentID).Str("course_id", courseID).Msg("enrolled course missing from catalog")
				return nil, ErrCourseNotFound
			}
			return nil, err
		}
		views = append(views, dto.StudentCourseView{Course: course, Progress: CourseProgress(course, student.TaskStates)})
	}
	return views, nil
}

func (s *studentService) GetCourseDetail(ctx context.Context, studentID, courseID string) (dto.CourseDetailResponse, error) {
	student, err := s.load(ctx, studentID)
	if err != nil {
		return dto.CourseDetailResponse{}, err
	}
	if !student.IsEnrolled(courseID) {
		return dto.CourseDetailResponse{}, ErrCourseNotEnrolled
	}

	course, err := s.catalog.GetByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return dto.CourseDetailResponse{}, ErrCourseNotFound
		}
		return dto.CourseDetailResponse{}, err
	}

	metadata, _ := BuildTaskMetadata(models.Student{EnrolledCourseIDs: []string{courseID}}, []models.Course{course})
	return dto.CourseDetailResponse{
		Course: dto.StudentCourseView{Course: course, Progress: CourseProgress(course, student.TaskStates)},
		Tasks:  DeriveStudentTasks(metadata, student.TaskStates),
	}, nil
}

func (s *studentService) ListTasks(ctx context.Context, studentID string) ([]models.StudentTask, error) {
	student, metadata, err := s.metadata(ctx, studentID)
	if err != nil {
		return nil, err
	}
	return DeriveStudentTasks(metadata, student.TaskStates), nil
}

func (s *studentService) ListTaskMetadata(ctx context.Context, studentID string) ([]models.TaskMetadata, error) {
	_, metadata, err := s.metadata(ctx, studentID)
	return metadata, err
}

// ListAnnouncements returns announcements of enrolled courses, newest first.
func (s *studentService) ListAnnouncements(ctx context.Context, studentID string) ([]models.Announcement, error) {
	student, err := s.load(ctx, studentID)
	if err != nil {
		return nil, err
	}
	courses, err := s.catalog.List(ctx)
	if err != nil {
		return nil, err
	}
	return collectAnnouncements(student, courses), nil
}

func (s *studentService) CourseForTask(ctx context.Context, taskID string) (models.Course, error) {
	courseID, err := s.catalog.CourseIDForUnit(ctx, taskID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return models.Course{}, ErrCourseNotFound
		}
		return models.Course{}, err
	}
	course, err := s.catalog.GetByID(ctx, courseID)
	if err != nil {
		return models.Course{}, err
	}
	return course, nil
}

func (s *studentService) load(ctx context.Context, studentID string) (models.Student, error) {
	student, err := s.students.GetByID(ctx, studentID)
	if err != nil {
		return models.Student{}, studentLookupError(err)
	}
	return student, nil
}

func (s *studentService) metadata(ctx context.Context, studentID string) (models.Student, []models.TaskMetadata, error) {
	student, err := s.load(ctx, studentID)
	if err != nil {
		return models.Student{}, nil, err
	}
	courses, err := s.catalog.List(ctx)
	if err != nil {
		return models.Student{}, nil, err
	}

	metadata, missing := BuildTaskMetadata(student, courses)
	logMissingCourses(s.logger, student.ID, missing)
	return student, metadata, nil
}

func logMissingCourses(logger zerolog.Logger, studentID string, missing []string) {
	for _, courseID := range missing {
		logger.Warn().Str("student_id", studentID).Str("course_id", courseID).Msg("enrolled course missing from catalog, skipped")
	}
}

func collectAnnouncements(student models.Student, courses []models.Course) []models.Announcement {
	result := make([]models.Announcement, 0)
	for _, course := range courses {
		if !student.IsEnrolled(course.ID) {
			continue
		}
		result = append(result, course.Announcements...)
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Date.After(result[j].Date)
	})
	return result
}
