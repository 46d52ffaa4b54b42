package service

import (
	"errors"

	"github.com/noah-isme/cseasy-api/internal/repository"
)

var (
	// ErrStudentNotFound indicates the referenced student record does not exist.
	ErrStudentNotFound = errors.New("student not found")
	// ErrCourseNotFound indicates the referenced course is not in the catalog.
	ErrCourseNotFound = errors.New("course not found")
	// ErrCourseNotEnrolled indicates the student is not enrolled in the requested course.
	ErrCourseNotEnrolled = errors.New("course not enrolled")
	// ErrTodoNotFound indicates the referenced todo does not exist where it is required.
	ErrTodoNotFound = errors.New("todo not found")
	// ErrTodoTextRequired indicates the todo text was empty after cleaning.
	ErrTodoTextRequired = errors.New("todo text is required")
	// ErrInvalidCredentials is returned for any unknown zID or wrong password.
	ErrInvalidCredentials = errors.New("Invalid zID or password")
	// ErrStudentRequired indicates no student identity could be resolved for the request.
	ErrStudentRequired = errors.New("student identity required")
	// ErrNoStudentAvailable indicates the fallback student could not be chosen because the store is empty.
	ErrNoStudentAvailable = errors.New("no student available")
	// ErrMessageRequired indicates an empty chat message.
	ErrMessageRequired = errors.New("Missing 'message'.")
	// ErrUpstream wraps failures of the language model collaborator.
	ErrUpstream = errors.New("assistant upstream unavailable")
)

func studentLookupError(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrStudentNotFound
	}
	return err
}
