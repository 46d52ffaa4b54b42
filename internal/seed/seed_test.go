package seed

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/cseasy-api/internal/repository"
)

func fixedLoader() Loader {
	now := time.Date(2025, 5, 10, 9, 0, 0, 0, time.UTC)
	return Loader{Now: func() time.Time { return now }, HashCost: bcrypt.MinCost}
}

func TestLoaderCoursesResolvesRelativeDates(t *testing.T) {
	loader := fixedLoader()
	courses, err := loader.Courses()
	require.NoError(t, err)
	require.Len(t, courses, 3)

	cs := courses[0]
	require.Equal(t, "COMP1511", cs.Code)
	require.Equal(t, 8, cs.PlannedLabs())
	require.Equal(t, 6, cs.PlannedAssignments())
	require.Len(t, cs.Labs, 2)
	require.Equal(t, loader.Now().Add(48*time.Hour), cs.Labs[0].DueDate)
	require.Equal(t, "cs101", cs.Announcements[0].CourseID)

	se := courses[2]
	require.True(t, se.Labs[1].DueDate.Before(loader.Now()), "lab 2 of os301 is seeded overdue")
}

func TestLoaderStudentsHashesPasswords(t *testing.T) {
	students, err := fixedLoader().Students()
	require.NoError(t, err)
	require.Len(t, students, 2)

	jane := students[0]
	require.Equal(t, "z5555555", jane.ZID)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(jane.PasswordHash), []byte("password123")))
	require.Len(t, jane.Todos, 3)
	require.True(t, jane.Todos[0].Completed)

	state := jane.State("lab-os301-2")
	require.True(t, state.Completed)
	require.NotNil(t, state.CompletedAt)
	require.False(t, jane.State("lab-cs101-1").Completed)
}

func TestApplyIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStudentRepository()
	loader := fixedLoader()

	catalog, err := Apply(ctx, loader, store, zerolog.Nop())
	require.NoError(t, err)
	owner, err := catalog.CourseIDForUnit(ctx, "assg-ds202-2")
	require.NoError(t, err)
	require.Equal(t, "ds202", owner)

	_, err = Apply(ctx, loader, store, zerolog.Nop())
	require.NoError(t, err)

	students, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, students, 2)
}

func TestLoaderReadsFilesFromDisk(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.yaml")
	content := `courses:
  - id: x1
    code: COMP9999
    labs:
      - { id: lab-x1, title: Only Lab, due_at: 2025-06-01T10:00:00Z }
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	loader := fixedLoader()
	loader.CatalogPath = path
	courses, err := loader.Courses()
	require.NoError(t, err)
	require.Len(t, courses, 1)
	require.Nil(t, courses[0].TotalLabs)
	require.Equal(t, 1, courses[0].PlannedLabs())
	require.Equal(t, time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC), courses[0].Labs[0].DueDate)

	loader.CatalogPath = filepath.Join(dir, "missing.yaml")
	_, err = loader.Courses()
	require.Error(t, err)
}
