package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/cseasy-api/internal/models"
)

func TestCatalogRepositoryLookups(t *testing.T) {
	due := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	repo, err := NewCatalogRepository([]models.Course{
		{
			ID:          "cs101",
			Code:        "COMP1511",
			Labs:        []models.LabUnit{{ID: "lab-1", Title: "Lab 1", DueDate: due}},
			Assignments: []models.AssignmentUnit{{ID: "assg-1", Title: "Assignment 1", DueDate: due}},
		},
		{ID: "ds202", Code: "COMP2521"},
	})
	require.NoError(t, err)

	ctx := context.Background()
	courses, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, courses, 2)
	require.Equal(t, "cs101", courses[0].ID)

	courses[0].Labs[0].Title = "changed"
	again, err := repo.GetByID(ctx, "cs101")
	require.NoError(t, err)
	require.Equal(t, "Lab 1", again.Labs[0].Title, "callers must not be able to edit the catalog")

	owner, err := repo.CourseIDForUnit(ctx, "assg-1")
	require.NoError(t, err)
	require.Equal(t, "cs101", owner)

	_, err = repo.GetByID(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)
	_, err = repo.CourseIDForUnit(ctx, "ghost-1")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCatalogRepositoryRejectsDuplicateIDs(t *testing.T) {
	_, err := NewCatalogRepository([]models.Course{{ID: "a"}, {ID: "a"}})
	require.Error(t, err)

	_, err = NewCatalogRepository([]models.Course{
		{ID: "a", Labs: []models.LabUnit{{ID: "lab-1"}}},
		{ID: "b", Assignments: []models.AssignmentUnit{{ID: "lab-1"}}},
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "lab-1")
}
