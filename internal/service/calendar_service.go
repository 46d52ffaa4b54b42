package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/rs/zerolog"

	"github.com/noah-isme/cseasy-api/internal/models"
	"github.com/noah-isme/cseasy-api/internal/repository"
)

const calendarProductID = "-//CSEasy//Deadlines//EN"

// CalendarService renders a student's open deadlines as an iCalendar feed.
type CalendarService interface {
	Export(ctx context.Context, studentID string) (string, error)
}

type calendarService struct {
	catalog  repository.CatalogRepository
	students repository.StudentRepository
	logger   zerolog.Logger
	now      func() time.Time
}

// NewCalendarService creates the ICS exporter.
func NewCalendarService(catalog repository.CatalogRepository, students repository.StudentRepository, logger zerolog.Logger) CalendarService {
	return &calendarService{
		catalog:  catalog,
		students: students,
		logger:   logger.With().Str("component", "calendar_service").Logger(),
		now:      time.Now,
	}
}

// Export emits one VEVENT per open task, ordered by due date. The event uid
// is the task id so calendar clients update events in place.
func (s *calendarService) Export(ctx context.Context, studentID string) (string, error) {
	student, err := s.students.GetByID(ctx, studentID)
	if err != nil {
		return "", studentLookupError(err)
	}
	courses, err := s.catalog.List(ctx)
	if err != nil {
		return "", err
	}

	metadata, missing := BuildTaskMetadata(student, courses)
	logMissingCourses(s.logger, studentID, missing)
	tasks := DeriveStudentTasks(metadata, student.TaskStates)
	sort.SliceStable(tasks, func(i, j int) bool {
		return tasks[i].DueDate.Before(tasks[j].DueDate)
	})

	codes := make(map[string]string, len(courses))
	for _, course := range courses {
		codes[course.ID] = course.Code
	}

	stamp := s.now().UTC()
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(calendarProductID)
	cal.SetName(fmt.Sprintf("%s deadlines", student.Name))

	for _, task := range tasks {
		if task.Completed {
			continue
		}
		event := cal.AddEvent(task.ID)
		event.SetDtStampTime(stamp)
		event.SetStartAt(task.DueDate.UTC())
		event.SetEndAt(task.DueDate.UTC())
		event.SetSummary(calendarSummary(codes[task.CourseID], task))
		event.SetDescription(fmt.Sprintf("%s due %s", task.SourceType, task.DueDate.UTC().Format(time.RFC1123)))
	}

	return cal.Serialize(), nil
}

func calendarSummary(code string, task models.StudentTask) string {
	if code == "" {
		code = task.CourseID
	}
	return code + " " + task.Title
}
