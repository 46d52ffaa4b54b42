package service

import (
	"context"
	"strings"
	"testing"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/cseasy-api/internal/models"
)

func TestCalendarServiceExportsOpenTasks(t *testing.T) {
	due := time.Date(2025, 4, 1, 10, 0, 0, 0, time.UTC)
	store := newTestStudentStore(t, models.Student{
		ID:                "student-1",
		Name:              "Jane Doe",
		EnrolledCourseIDs: []string{"cs101"},
		TaskStates:        map[string]models.TaskState{"lab-cs101-2": models.CompletedState(true, due)},
	})
	svc := NewCalendarService(newTestCatalog(t, due), store, zerolog.Nop())

	out, err := svc.Export(context.Background(), "student-1")
	require.NoError(t, err)

	cal, err := ics.ParseCalendar(strings.NewReader(out))
	require.NoError(t, err)

	events := cal.Events()
	require.Len(t, events, 2)
	require.Equal(t, "lab-cs101-1", events[0].Id())
	require.Equal(t, "COMP1511 Lab 1", events[0].GetProperty(ics.ComponentPropertySummary).Value)
	start, err := events[0].GetStartAt()
	require.NoError(t, err)
	require.True(t, start.Equal(due))
	require.Equal(t, "assg-cs101-1", events[1].Id())
}

func TestCalendarServiceUnknownStudent(t *testing.T) {
	svc := NewCalendarService(newTestCatalog(t, time.Now()), newTestStudentStore(t), zerolog.Nop())

	_, err := svc.Export(context.Background(), "ghost")
	require.ErrorIs(t, err, ErrStudentNotFound)
}
