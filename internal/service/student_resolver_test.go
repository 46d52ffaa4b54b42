package service

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/cseasy-api/internal/models"
	"github.com/noah-isme/cseasy-api/internal/repository"
)

func TestStudentResolverOrder(t *testing.T) {
	store := newTestStudentStore(t,
		models.Student{ID: "student-1", ZID: "z5555555"},
		models.Student{ID: "student-2", ZID: "z1234567"},
	)
	resolver := NewStudentResolver(store, zerolog.Nop())
	ctx := context.Background()

	id, err := resolver.Resolve(ctx, ResolveRequest{ExplicitID: "z1234567", SessionID: "student-1"})
	require.NoError(t, err)
	require.Equal(t, "student-2", id, "explicit reference wins and zIDs are normalised")

	_, err = resolver.Resolve(ctx, ResolveRequest{ExplicitID: "nobody", SessionID: "student-1", AllowDefault: true})
	require.ErrorIs(t, err, ErrStudentNotFound)

	id, err = resolver.Resolve(ctx, ResolveRequest{SessionID: "student-2"})
	require.NoError(t, err)
	require.Equal(t, "student-2", id)

	_, err = resolver.Resolve(ctx, ResolveRequest{SessionID: "stale"})
	require.ErrorIs(t, err, ErrStudentRequired)

	id, err = resolver.Resolve(ctx, ResolveRequest{SessionID: "stale", AllowDefault: true})
	require.NoError(t, err)
	require.Equal(t, "student-1", id)

	_, err = resolver.Resolve(ctx, ResolveRequest{})
	require.ErrorIs(t, err, ErrStudentRequired)
}

func TestStudentResolverEmptyStore(t *testing.T) {
	resolver := NewStudentResolver(repository.NewMemoryStudentRepository(), zerolog.Nop())

	_, err := resolver.Resolve(context.Background(), ResolveRequest{AllowDefault: true})
	require.ErrorIs(t, err, ErrNoStudentAvailable)
}
