package repository

import (
	"context"
	"fmt"

	"github.com/noah-isme/cseasy-api/internal/models"
)

// CatalogRepository is the read-only course registry.
type CatalogRepository interface {
	List(ctx context.Context) ([]models.Course, error)
	GetByID(ctx context.Context, id string) (models.Course, error)
	CourseIDForUnit(ctx context.Context, unitID string) (string, error)
}

type catalogRepository struct {
	courses   []models.Course
	byID      map[string]int
	unitOwner map[string]string
}

// NewCatalogRepository builds the catalog from seed courses. Course ids and
// lab/assignment ids must be unique across the whole catalog.
func NewCatalogRepository(courses []models.Course) (CatalogRepository, error) {
	repo := &catalogRepository{
		courses:   make([]models.Course, 0, len(courses)),
		byID:      make(map[string]int, len(courses)),
		unitOwner: make(map[string]string),
	}

	for _, course := range courses {
		if course.ID == "" {
			return nil, fmt.Errorf("catalog: course without id")
		}
		if _, exists := repo.byID[course.ID]; exists {
			return nil, fmt.Errorf("catalog: duplicate course id %q", course.ID)
		}

		unitIDs := make([]string, 0, len(course.Labs)+len(course.Assignments))
		for _, lab := range course.Labs {
			unitIDs = append(unitIDs, lab.ID)
		}
		for _, assignment := range course.Assignments {
			unitIDs = append(unitIDs, assignment.ID)
		}
		for _, unitID := range unitIDs {
			if owner, exists := repo.unitOwner[unitID]; exists {
				return nil, fmt.Errorf("catalog: unit id %q used by both %q and %q", unitID, owner, course.ID)
			}
			repo.unitOwner[unitID] = course.ID
		}

		repo.byID[course.ID] = len(repo.courses)
		repo.courses = append(repo.courses, course.Clone())
	}

	return repo, nil
}

func (r *catalogRepository) List(ctx context.Context) ([]models.Course, error) {
	result := make([]models.Course, 0, len(r.courses))
	for _, course := range r.courses {
		result = append(result, course.Clone())
	}
	return result, nil
}

func (r *catalogRepository) GetByID(ctx context.Context, id string) (models.Course, error) {
	idx, ok := r.byID[id]
	if !ok {
		return models.Course{}, ErrNotFound
	}
	return r.courses[idx].Clone(), nil
}

func (r *catalogRepository) CourseIDForUnit(ctx context.Context, unitID string) (string, error) {
	owner, ok := r.unitOwner[unitID]
	if !ok {
		return "", ErrNotFound
	}
	return owner, nil
}
