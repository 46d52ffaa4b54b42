package dto

import (
	"time"

	"github.com/noah-isme/cseasy-api/internal/models"
)

// StudentResponse is the public view of a student record. Credentials never leave the service.
type StudentResponse struct {
	ID                string        `json:"id"`
	Name              string        `json:"name"`
	ZID               string        `json:"z_id"`
	EnrolledCourseIDs []string      `json:"enrolled_course_ids"`
	Todos             []models.Todo `json:"todos"`
}

// NewStudentResponse converts a stored record into its public view.
func NewStudentResponse(student models.Student) StudentResponse {
	todos := append([]models.Todo{}, student.Todos...)
	return StudentResponse{
		ID:                student.ID,
		Name:              student.Name,
		ZID:               student.ZID,
		EnrolledCourseIDs: append([]string{}, student.EnrolledCourseIDs...),
		Todos:             todos,
	}
}

// StudentCourseView is an enrolled course with the student's derived progress.
type StudentCourseView struct {
	models.Course
	Progress int `json:"progress"`
}

// CourseDetailResponse bundles one course with the student's tasks for it.
type CourseDetailResponse struct {
	Course StudentCourseView    `json:"course"`
	Tasks  []models.StudentTask `json:"tasks"`
}

// StudentDashboardResponse aggregates course progress and deadlines for a student.
type StudentDashboardResponse struct {
	Student       StudentSummary        `json:"student"`
	Summary       ProgressSummary       `json:"summary"`
	Upcoming      []DashboardTask       `json:"upcoming"`
	Courses       []CourseProgress      `json:"courses"`
	Announcements []models.Announcement `json:"announcements"`
	GeneratedAt   time.Time             `json:"generated_at"`
}

// StudentSummary identifies the dashboard owner.
type StudentSummary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ProgressSummary captures aggregated task statistics for the dashboard.
type ProgressSummary struct {
	TotalTasks           int     `json:"total_tasks"`
	Completed            int     `json:"completed"`
	Pending              int     `json:"pending"`
	Urgent               int     `json:"urgent"`
	Overdue              int     `json:"overdue"`
	CompletionRate       float64 `json:"completion_rate"`
	LabsCompleted        int     `json:"labs_completed"`
	LabsPending          int     `json:"labs_pending"`
	AssignmentsCompleted int     `json:"assignments_completed"`
	AssignmentsPending   int     `json:"assignments_pending"`
	OpenTodos            int     `json:"open_todos"`
}

// DashboardTask is an open task shown in the upcoming deadlines list.
type DashboardTask struct {
	TaskID     string          `json:"task_id"`
	CourseID   string          `json:"course_id"`
	CourseCode string          `json:"course_code"`
	SourceType models.UnitType `json:"source_type"`
	Title      string          `json:"title"`
	DueDate    time.Time       `json:"due_date"`
	DueLabel   string          `json:"due_label"`
	Overdue    bool            `json:"overdue"`
}

// CourseProgress is the per-course progress bar entry.
type CourseProgress struct {
	CourseID       string `json:"course_id"`
	Code           string `json:"code"`
	Name           string `json:"name"`
	Color          string `json:"color"`
	Initials       string `json:"initials"`
	Progress       int    `json:"progress"`
	CompletedUnits int    `json:"completed_units"`
	PlannedUnits   int    `json:"planned_units"`
}

// TaskCompletionRequest sets the completion flag of a lab or assignment.
type TaskCompletionRequest struct {
	Completed *bool `json:"completed" validate:"required"`
}

// TaskStateResponse reports the state of a task after a mutation.
type TaskStateResponse struct {
	TaskID      string     `json:"task_id"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// TodoCreateRequest adds a personal todo.
type TodoCreateRequest struct {
	Text string `json:"text" validate:"required,max=500"`
}
