package service

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"github.com/noah-isme/cseasy-api/internal/repository"
)

// ResolveRequest lists the identity sources available to one request.
type ResolveRequest struct {
	// ExplicitID is a student id or zID named by the caller.
	ExplicitID string
	// SessionID comes from the authenticated session.
	SessionID string
	// AllowDefault permits falling back to the first registered student.
	AllowDefault bool
}

// StudentResolver turns request identity hints into a student id.
type StudentResolver interface {
	Resolve(ctx context.Context, req ResolveRequest) (string, error)
}

type studentResolver struct {
	students repository.StudentRepository
	logger   zerolog.Logger
}

// NewStudentResolver creates the ordered resolver.
func NewStudentResolver(students repository.StudentRepository, logger zerolog.Logger) StudentResolver {
	return &studentResolver{
		students: students,
		logger:   logger.With().Str("component", "student_resolver").Logger(),
	}
}

// Resolve tries, in order:
//  1. the explicit id or zID; an unknown explicit reference is NotFound,
//  2. the session identity; a stale session is ignored,
//  3. the first registered student, only when AllowDefault is set.
func (r *studentResolver) Resolve(ctx context.Context, req ResolveRequest) (string, error) {
	if explicit := strings.TrimSpace(req.ExplicitID); explicit != "" {
		id, err := r.lookup(ctx, explicit)
		if err != nil {
			return "", err
		}
		return id, nil
	}

	if session := strings.TrimSpace(req.SessionID); session != "" {
		id, err := r.lookup(ctx, session)
		switch {
		case err == nil:
			return id, nil
		case errors.Is(err, ErrStudentNotFound):
			r.logger.Warn().Str("session_student_id", session).Msg("session references unknown student")
		default:
			return "", err
		}
	}

	if !req.AllowDefault {
		return "", ErrStudentRequired
	}

	first, err := r.students.First(ctx)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", ErrNoStudentAvailable
		}
		return "", err
	}
	r.logger.Debug().Str("student_id", first.ID).Msg("falling back to default student")
	return first.ID, nil
}

func (r *studentResolver) lookup(ctx context.Context, ref string) (string, error) {
	student, err := r.students.GetByID(ctx, ref)
	if err == nil {
		return student.ID, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return "", err
	}

	student, err = r.students.GetByZID(ctx, ref)
	if err != nil {
		return "", studentLookupError(err)
	}
	return student.ID, nil
}
