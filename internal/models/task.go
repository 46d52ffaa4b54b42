package models

import "time"

// TaskMetadata is the catalog view of a lab or assignment reachable from a
// student's enrolments. ID equals the underlying unit id.
type TaskMetadata struct {
	ID         string    `json:"id"`
	CourseID   string    `json:"course_id"`
	SourceType UnitType  `json:"source_type"`
	SourceID   string    `json:"source_id"`
	Title      string    `json:"title"`
	DueDate    time.Time `json:"due_date"`
}

// StudentTask joins task metadata with the student's completion state.
type StudentTask struct {
	TaskMetadata
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// IsPastDue returns true when the task deadline has already passed.
func (t StudentTask) IsPastDue(reference time.Time) bool {
	return reference.After(t.DueDate)
}
