package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/noah-isme/cseasy-api/internal/dto"
	"github.com/noah-isme/cseasy-api/internal/observability"
	"github.com/noah-isme/cseasy-api/internal/repository"
)

const integrityRunTimeout = time.Minute

// IntegrityService reports dangling references between student records and
// the catalog. Findings are warnings only and never block reads or writes.
type IntegrityService interface {
	Check(ctx context.Context) (dto.IntegrityReport, error)
	Schedule(spec string) (*cron.Cron, error)
}

type integrityService struct {
	catalog  repository.CatalogRepository
	students repository.StudentRepository
	logger   zerolog.Logger
	now      func() time.Time
}

// NewIntegrityService creates the integrity checker.
func NewIntegrityService(catalog repository.CatalogRepository, students repository.StudentRepository, logger zerolog.Logger) IntegrityService {
	return &integrityService{
		catalog:  catalog,
		students: students,
		logger:   logger.With().Str("component", "integrity_service").Logger(),
		now:      time.Now,
	}
}

// Check lists, per student, enrolled course ids missing from the catalog and
// task states whose id matches no unit of an enrolled course. Students with
// no findings are left out of the report.
func (s *integrityService) Check(ctx context.Context) (dto.IntegrityReport, error) {
	courses, err := s.catalog.List(ctx)
	if err != nil {
		return dto.IntegrityReport{}, err
	}
	students, err := s.students.List(ctx)
	if err != nil {
		return dto.IntegrityReport{}, err
	}

	report := dto.IntegrityReport{CheckedAt: s.now().UTC(), Students: make([]dto.StudentIntegrity, 0)}
	for _, student := range students {
		metadata, missing := BuildTaskMetadata(student, courses)
		known := make(map[string]struct{}, len(metadata))
		for _, meta := range metadata {
			known[meta.ID] = struct{}{}
		}

		orphaned := make([]string, 0)
		for taskID := range student.TaskStates {
			if _, ok := known[taskID]; !ok {
				orphaned = append(orphaned, taskID)
			}
		}
		sort.Strings(orphaned)

		if len(missing) == 0 && len(orphaned) == 0 {
			continue
		}
		if missing == nil {
			missing = []string{}
		}

		logMissingCourses(s.logger, student.ID, missing)
		for _, taskID := range orphaned {
			s.logger.Warn().Str("student_id", student.ID).Str("task_id", taskID).Msg("task state references no enrolled unit")
		}

		report.Students = append(report.Students, dto.StudentIntegrity{
			StudentID:        student.ID,
			MissingCourseIDs: missing,
			OrphanedTaskIDs:  orphaned,
		})
		report.WarningCount += len(missing) + len(orphaned)
	}

	observability.IntegrityWarnings().Set(float64(report.WarningCount))
	s.logger.Info().Int("students", len(students)).Int("warnings", report.WarningCount).Msg("integrity check finished")
	return report, nil
}

// Schedule starts a cron runner that repeats Check. Overlapping runs are skipped.
func (s *integrityService) Schedule(spec string) (*cron.Cron, error) {
	runner := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
	if _, err := runner.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), integrityRunTimeout)
		defer cancel()
		if _, err := s.Check(ctx); err != nil {
			s.logger.Error().Err(err).Msg("scheduled integrity check failed")
		}
	}); err != nil {
		return nil, fmt.Errorf("schedule integrity check %q: %w", spec, err)
	}
	runner.Start()
	s.logger.Info().Str("schedule", spec).Msg("integrity check scheduled")
	return runner, nil
}
