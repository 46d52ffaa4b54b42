package models

import "time"

// Student is the per-student record: enrolments, todos and task completion state.
type Student struct {
	ID                string               `json:"id"`
	Name              string               `json:"name"`
	ZID               string               `json:"z_id"`
	PasswordHash      string               `json:"-"`
	EnrolledCourseIDs []string             `json:"enrolled_course_ids"`
	Todos             []Todo               `json:"todos"`
	TaskStates        map[string]TaskState `json:"task_states"`
}

// TaskState is the completion record of one task for one student.
// CompletedAt is set if and only if Completed is true.
type TaskState struct {
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Todo is a free-form personal task.
type Todo struct {
	ID            string `json:"id"`
	Text          string `json:"text"`
	Completed     bool   `json:"completed"`
	EstimatedTime string `json:"estimated_time,omitempty"`
	Reasoning     string `json:"reasoning,omitempty"`
}

// IsEnrolled reports whether the student is enrolled in the course.
func (s Student) IsEnrolled(courseID string) bool {
	for _, id := range s.EnrolledCourseIDs {
		if id == courseID {
			return true
		}
	}
	return false
}

// State returns the task state, treating a missing entry as never touched.
func (s Student) State(taskID string) TaskState {
	state, ok := s.TaskStates[taskID]
	if !ok {
		return TaskState{}
	}
	return state
}

// Clone returns a deep copy of the record. Mutations on the copy never reach s.
func (s Student) Clone() Student {
	out := s
	out.EnrolledCourseIDs = append([]string(nil), s.EnrolledCourseIDs...)
	out.Todos = append([]Todo(nil), s.Todos...)
	out.TaskStates = make(map[string]TaskState, len(s.TaskStates))
	for id, state := range s.TaskStates {
		if state.CompletedAt != nil {
			at := *state.CompletedAt
			state.CompletedAt = &at
		}
		out.TaskStates[id] = state
	}
	return out
}

// CompletedState builds a state honouring the completed/completedAt invariant.
func CompletedState(completed bool, at time.Time) TaskState {
	if !completed {
		return TaskState{}
	}
	stamp := at
	return TaskState{Completed: true, CompletedAt: &stamp}
}
