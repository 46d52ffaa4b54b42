package dto

import "time"

// Student event types emitted after successful mutations.
const (
	EventTaskUpdated = "task.updated"
	EventTodoAdded   = "todo.added"
	EventTodoUpdated = "todo.updated"
)

// StudentEvent notifies dashboards that a student record changed.
type StudentEvent struct {
	Type      string    `json:"type"`
	StudentID string    `json:"student_id"`
	TaskID    string    `json:"task_id,omitempty"`
	TodoID    string    `json:"todo_id,omitempty"`
	Completed *bool     `json:"completed,omitempty"`
	At        time.Time `json:"at"`
}

// IntegrityReport lists non-fatal data issues across all students.
type IntegrityReport struct {
	CheckedAt    time.Time          `json:"checked_at"`
	Students     []StudentIntegrity `json:"students"`
	WarningCount int                `json:"warning_count"`
}

// StudentIntegrity lists the dangling references held by one student record.
type StudentIntegrity struct {
	StudentID        string   `json:"student_id"`
	MissingCourseIDs []string `json:"missing_course_ids"`
	OrphanedTaskIDs  []string `json:"orphaned_task_ids"`
}
