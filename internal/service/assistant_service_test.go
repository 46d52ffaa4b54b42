package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/cseasy-api/internal/dto"
	"github.com/noah-isme/cseasy-api/internal/models"
	"github.com/noah-isme/cseasy-api/internal/repository"
	"github.com/noah-isme/cseasy-api/pkg/ai"
)

type stubAssistant struct {
	tasks       []string
	suggestErr  error
	estimate    ai.Estimate
	estimateErr error
	reply       string
	chatErr     error

	lastSuggest ai.SuggestInput
	lastChat    ai.ChatInput
}

func (s *stubAssistant) SuggestTasks(_ context.Context, input ai.SuggestInput) ([]string, error) {
	s.lastSuggest = input
	return s.tasks, s.suggestErr
}

func (s *stubAssistant) EstimateTime(_ context.Context, _, _ string) (ai.Estimate, error) {
	return s.estimate, s.estimateErr
}

func (s *stubAssistant) Chat(_ context.Context, input ai.ChatInput) (string, error) {
	s.lastChat = input
	return s.reply, s.chatErr
}

type assistantFixture struct {
	svc         *assistantService
	store       repository.StudentRepository
	transcripts repository.TranscriptRepository
	now         time.Time
}

func newAssistantFixture(t *testing.T, model ai.Assistant) assistantFixture {
	t.Helper()
	now := time.Date(2025, 4, 1, 12, 0, 0, 0, time.UTC)
	catalog := newTestCatalog(t, now.Add(36*time.Hour))
	store := newTestStudentStore(t,
		models.Student{
			ID:                "student-1",
			EnrolledCourseIDs: []string{"cs101"},
			Todos:             []models.Todo{{ID: "todo-1", Text: "Write essay"}},
			TaskStates:        map[string]models.TaskState{"lab-cs101-2": models.CompletedState(true, now)},
		},
	)
	gw, _, _ := newTestGateway(store, now)
	transcripts := repository.NewMemoryTranscriptRepository(10)
	resolver := NewStudentResolver(store, zerolog.Nop())

	svc := NewAssistantService(model, catalog, store, resolver, gw, transcripts, zerolog.Nop()).(*assistantService)
	svc.now = func() time.Time { return now }
	return assistantFixture{svc: svc, store: store, transcripts: transcripts, now: now}
}

func TestPendingTaskSummary(t *testing.T) {
	now := time.Date(2025, 4, 1, 12, 0, 0, 0, time.UTC)
	student := models.Student{
		EnrolledCourseIDs: []string{"cs101"},
		TaskStates:        map[string]models.TaskState{"lab-cs101-2": models.CompletedState(true, now)},
	}
	courses := sampleCatalog(now.Add(-30 * time.Hour))

	summary := PendingTaskSummary(student, courses, now)
	require.Equal(t, strings.Join([]string{
		"# CURRENT_PENDING_TASKS",
		"COMP1511 Lab: Lab 1 (OVERDUE 1d)",
		"COMP1511 Assignment: Assignment 1 (due in 1d)",
	}, "\n"), summary)

	require.Empty(t, PendingTaskSummary(models.Student{}, courses, now))
}

func TestFallbackSuggestions(t *testing.T) {
	require.Equal(t, []string{
		"Create spaced review plan for upcoming exam",
		"Break assignment into subtasks with mini-deadlines",
		"Summarize this week's lecture concepts",
		"Prepare lab environment and skim starter code",
	}, FallbackSuggestions("Midterm next WEEK, assignment 2 and Lab 3 due"))
	require.Equal(t, []string{"Draft concise study notes from provided content"}, FallbackSuggestions("pointers"))
}

func TestAssistantSuggestTasksUsesModelWithEnrichment(t *testing.T) {
	model := &stubAssistant{tasks: []string{"Finish Lab 1"}}
	fx := newAssistantFixture(t, model)

	resp, err := fx.svc.SuggestTasks(context.Background(), "  week 4 notes ", ResolveRequest{SessionID: "student-1"})
	require.NoError(t, err)
	require.Equal(t, dto.SuggestionSourceAI, resp.Source)
	require.Equal(t, []string{"Finish Lab 1"}, resp.Tasks)
	require.Equal(t, "week 4 notes", model.lastSuggest.Content)
	require.Contains(t, model.lastSuggest.PendingSummary, "COMP1511 Lab: Lab 1 (due in 2d)")
	require.NotContains(t, model.lastSuggest.PendingSummary, "Lab 2")
}

func TestAssistantSuggestTasksFallsBack(t *testing.T) {
	model := &stubAssistant{suggestErr: errors.New("timeout")}
	fx := newAssistantFixture(t, model)

	resp, err := fx.svc.SuggestTasks(context.Background(), "pointers", ResolveRequest{ExplicitID: "ghost"})
	require.NoError(t, err)
	require.Equal(t, dto.SuggestionSourceFallback, resp.Source)
	require.Equal(t, []string{"Draft concise study notes from provided content"}, resp.Tasks)
	require.Empty(t, model.lastSuggest.PendingSummary, "enrichment failure is swallowed")

	noModel := newAssistantFixture(t, nil)
	resp, err = noModel.svc.SuggestTasks(context.Background(), "pointers", ResolveRequest{SessionID: "student-1"})
	require.NoError(t, err)
	require.Equal(t, dto.SuggestionSourceFallback, resp.Source)
	require.Contains(t, resp.Tasks, "Prepare lab environment and skim starter code", "pending labs feed the heuristic")
}

func TestAssistantEstimate(t *testing.T) {
	model := &stubAssistant{estimate: ai.Estimate{EstimatedTime: "2 hours", Reasoning: "short"}}
	fx := newAssistantFixture(t, model)
	ctx := context.Background()

	resp, err := fx.svc.EstimateTime(ctx, dto.EstimateRequest{TaskDescription: "Essay"})
	require.NoError(t, err)
	require.Equal(t, "2 hours", resp.EstimatedTime)

	todo, err := fx.svc.EstimateTodo(ctx, "todo-1", "student-1")
	require.NoError(t, err)
	require.Equal(t, "2 hours", todo.EstimatedTime)

	stored, err := fx.store.GetByID(ctx, "student-1")
	require.NoError(t, err)
	require.Equal(t, "short", stored.Todos[0].Reasoning)

	_, err = fx.svc.EstimateTodo(ctx, "todo-x", "student-1")
	require.ErrorIs(t, err, ErrTodoNotFound)

	model.estimateErr = errors.New("boom")
	_, err = fx.svc.EstimateTime(ctx, dto.EstimateRequest{TaskDescription: "Essay"})
	require.ErrorIs(t, err, ErrUpstream)

	_, err = newAssistantFixture(t, nil).svc.EstimateTime(ctx, dto.EstimateRequest{TaskDescription: "Essay"})
	require.ErrorIs(t, err, ErrUpstream)
}

func TestAssistantChatKeepsBoundedTranscript(t *testing.T) {
	model := &stubAssistant{reply: "Hey! Finish COMP1511 Lab 1 tonight.\n- Review arrays"}
	fx := newAssistantFixture(t, model)
	ctx := context.Background()
	identity := ResolveRequest{SessionID: "student-1"}

	resp, err := fx.svc.Chat(ctx, "What should I do?", identity)
	require.NoError(t, err)
	require.Equal(t, "Finish COMP1511 Lab 1 tonight.\n- Review arrays", resp.Reply)
	require.Equal(t, []string{"Finish COMP1511 Lab 1 tonight", "COMP1511 - Review arrays"}, resp.Tasks)
	require.Equal(t, "Today: 2025-04-01T12:00:00Z", model.lastChat.System[1])
	require.Len(t, model.lastChat.Turns, 1)

	for i := 0; i < 6; i++ {
		_, err = fx.svc.Chat(ctx, "again", identity)
		require.NoError(t, err)
	}
	require.Len(t, model.lastChat.Turns, 11, "ten stored turns plus the new message")

	resp, err = fx.svc.Chat(ctx, "reset", identity)
	require.NoError(t, err)
	require.True(t, resp.Reset)
	require.Equal(t, ResetReply, resp.Reply)

	turns, err := fx.transcripts.Load(ctx, "student-1")
	require.NoError(t, err)
	require.Empty(t, turns)
}

func TestAssistantChatDegrades(t *testing.T) {
	ctx := context.Background()

	resp, err := newAssistantFixture(t, nil).svc.Chat(ctx, "help", ResolveRequest{})
	require.NoError(t, err)
	require.Equal(t, MissingKeyReply, resp.Reply)

	failing := newAssistantFixture(t, &stubAssistant{chatErr: errors.New("rate limited")})
	_, err = failing.svc.Chat(ctx, "help", ResolveRequest{})
	require.ErrorIs(t, err, ErrUpstream)

	_, err = failing.svc.Chat(ctx, "help", ResolveRequest{ExplicitID: "ghost"})
	require.ErrorIs(t, err, ErrStudentNotFound)
}
