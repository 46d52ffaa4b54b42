package service

import (
	"fmt"
	"math"
	"time"

	"github.com/noah-isme/cseasy-api/internal/models"
)

// BuildTaskMetadata flattens the student's enrolled courses into one entry
// per lab and assignment, in enrolment order with labs before assignments.
// Enrolled ids missing from the catalog are skipped and returned separately.
func BuildTaskMetadata(student models.Student, catalog []models.Course) ([]models.TaskMetadata, []string) {
	byID := make(map[string]models.Course, len(catalog))
	for _, course := range catalog {
		byID[course.ID] = course
	}

	var missing []string
	tasks := make([]models.TaskMetadata, 0)
	for _, courseID := range student.EnrolledCourseIDs {
		course, ok := byID[courseID]
		if !ok {
			missing = append(missing, courseID)
			continue
		}
		for _, lab := range course.Labs {
			tasks = append(tasks, models.TaskMetadata{
				ID:         lab.ID,
				CourseID:   course.ID,
				SourceType: models.UnitTypeLab,
				SourceID:   lab.ID,
				Title:      lab.Title,
				DueDate:    lab.DueDate,
			})
		}
		for _, assignment := range course.Assignments {
			tasks = append(tasks, models.TaskMetadata{
				ID:         assignment.ID,
				CourseID:   course.ID,
				SourceType: models.UnitTypeAssignment,
				SourceID:   assignment.ID,
				Title:      assignment.Title,
				DueDate:    assignment.DueDate,
			})
		}
	}

	return tasks, missing
}

// DeriveStudentTasks joins metadata with completion state. Missing state
// entries read as never touched, so every metadata entry yields one task.
func DeriveStudentTasks(metadata []models.TaskMetadata, states map[string]models.TaskState) []models.StudentTask {
	tasks := make([]models.StudentTask, 0, len(metadata))
	for _, meta := range metadata {
		state := states[meta.ID]
		task := models.StudentTask{TaskMetadata: meta, Completed: state.Completed}
		if state.Completed && state.CompletedAt != nil {
			at := *state.CompletedAt
			task.CompletedAt = &at
		}
		tasks = append(tasks, task)
	}
	return tasks
}

// CompletedUnits counts completed states whose id belongs to the course.
func CompletedUnits(course models.Course, states map[string]models.TaskState) int {
	completed := 0
	for taskID, state := range states {
		if state.Completed && course.HasUnit(taskID) {
			completed++
		}
	}
	return completed
}

// CourseProgress returns the rounded completion percentage against the
// course's planned unit count. Planned totals may exceed released units.
func CourseProgress(course models.Course, states map[string]models.TaskState) int {
	return progressPercent(CompletedUnits(course, states), course.PlannedUnits())
}

func progressPercent(completed, total int) int {
	if total <= 0 {
		return 0
	}
	value := int(math.Floor(float64(completed)*100/float64(total) + 0.5))
	if value < 0 {
		return 0
	}
	if value > 100 {
		return 100
	}
	return value
}

// RelativeDueLabel renders a due date relative to now, rounding to whole days.
func RelativeDueLabel(due, now time.Time) string {
	days := int(math.Floor(due.Sub(now).Hours()/24 + 0.5))
	switch {
	case days < 0:
		return fmt.Sprintf("OVERDUE %dd", -days)
	case days == 0:
		return "due TODAY"
	default:
		return fmt.Sprintf("due in %dd", days)
	}
}
