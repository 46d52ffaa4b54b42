package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/cseasy-api/internal/dto"
	"github.com/noah-isme/cseasy-api/internal/models"
	"github.com/noah-isme/cseasy-api/internal/observability"
	"github.com/noah-isme/cseasy-api/internal/repository"
)

// MutationGateway is the only write path into student records.
type MutationGateway interface {
	SetTaskCompletion(ctx context.Context, taskID string, completed bool, studentID string) (models.TaskState, error)
	ToggleTaskCompletion(ctx context.Context, taskID, studentID string) (models.TaskState, error)
	AddTodo(ctx context.Context, text, studentID string) (models.Todo, error)
	ToggleTodo(ctx context.Context, todoID, studentID string) (models.Todo, bool, error)
	AttachTodoEstimate(ctx context.Context, todoID, studentID string, estimate dto.EstimateResponse) (models.Todo, error)
}

// DashboardInvalidator drops cached views of a student after a write.
type DashboardInvalidator interface {
	Invalidate(ctx context.Context, studentID string)
}

// StudentEventPublisher fans student events out to live feed subscribers.
type StudentEventPublisher interface {
	Publish(ctx context.Context, event dto.StudentEvent)
}

type mutationGateway struct {
	students  repository.StudentRepository
	cache     DashboardInvalidator
	events    StudentEventPublisher
	tracer    trace.Tracer
	logger    zerolog.Logger
	now       func() time.Time
	newID     func() string
}

// NewMutationGateway builds the gateway. cache and events may be nil.
func NewMutationGateway(students repository.StudentRepository, cache DashboardInvalidator, events StudentEventPublisher, logger zerolog.Logger) MutationGateway {
	return &mutationGateway{
		students:  students,
		cache:     cache,
		events:    events,
		tracer:    otel.Tracer("github.com/noah-isme/cseasy-api/internal/service/gateway"),
		logger:    logger.With().Str("component", "mutation_gateway").Logger(),
		now:       time.Now,
		newID:     func() string { return "todo-" + uuid.NewString() },
	}
}

func (g *mutationGateway) SetTaskCompletion(ctx context.Context, taskID string, completed bool, studentID string) (models.TaskState, error) {
	var state models.TaskState
	err := g.mutate(ctx, "set_task_completion", studentID, func(student *models.Student) error {
		state = models.CompletedState(completed, g.now().UTC())
		student.TaskStates[taskID] = state
		return nil
	})
	if err != nil {
		return models.TaskState{}, err
	}

	g.afterWrite(ctx, dto.StudentEvent{Type: dto.EventTaskUpdated, StudentID: studentID, TaskID: taskID, Completed: boolPointer(state.Completed)})
	return state, nil
}

func (g *mutationGateway) ToggleTaskCompletion(ctx context.Context, taskID, studentID string) (models.TaskState, error) {
	var state models.TaskState
	err := g.mutate(ctx, "toggle_task_completion", studentID, func(student *models.Student) error {
		state = models.CompletedState(!student.State(taskID).Completed, g.now().UTC())
		student.TaskStates[taskID] = state
		return nil
	})
	if err != nil {
		return models.TaskState{}, err
	}

	g.afterWrite(ctx, dto.StudentEvent{Type: dto.EventTaskUpdated, StudentID: studentID, TaskID: taskID, Completed: boolPointer(state.Completed)})
	return state, nil
}

func (g *mutationGateway) AddTodo(ctx context.Context, text, studentID string) (models.Todo, error) {
	clean := g.cleanText(text)
	if clean == "" {
		observability.StudentMutations().WithLabelValues("add_todo", "invalid").Inc()
		return models.Todo{}, ErrTodoTextRequired
	}

	todo := models.Todo{ID: g.newID(), Text: clean}
	err := g.mutate(ctx, "add_todo", studentID, func(student *models.Student) error {
		student.Todos = append(student.Todos, todo)
		return nil
	})
	if err != nil {
		return models.Todo{}, err
	}

	g.afterWrite(ctx, dto.StudentEvent{Type: dto.EventTodoAdded, StudentID: studentID, TodoID: todo.ID})
	return todo, nil
}

// ToggleTodo flips the todo's completion flag. An unknown todo id is a no-op
// and reports found=false without an error.
func (g *mutationGateway) ToggleTodo(ctx context.Context, todoID, studentID string) (models.Todo, bool, error) {
	var (
		toggled models.Todo
		found   bool
	)
	err := g.mutate(ctx, "toggle_todo", studentID, func(student *models.Student) error {
		for i := range student.Todos {
			if student.Todos[i].ID == todoID {
				student.Todos[i].Completed = !student.Todos[i].Completed
				toggled = student.Todos[i]
				found = true
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return models.Todo{}, false, err
	}

	if found {
		g.afterWrite(ctx, dto.StudentEvent{Type: dto.EventTodoUpdated, StudentID: studentID, TodoID: todoID, Completed: boolPointer(toggled.Completed)})
	} else {
		g.logger.Debug().Str("student_id", studentID).Str("todo_id", todoID).Msg("toggle for unknown todo ignored")
	}
	return toggled, found, nil
}

func (g *mutationGateway) AttachTodoEstimate(ctx context.Context, todoID, studentID string, estimate dto.EstimateResponse) (models.Todo, error) {
	var updated models.Todo
	err := g.mutate(ctx, "attach_todo_estimate", studentID, func(student *models.Student) error {
		for i := range student.Todos {
			if student.Todos[i].ID == todoID {
				student.Todos[i].EstimatedTime = strings.TrimSpace(estimate.EstimatedTime)
				student.Todos[i].Reasoning = strings.TrimSpace(estimate.Reasoning)
				updated = student.Todos[i]
				return nil
			}
		}
		return ErrTodoNotFound
	})
	if err != nil {
		return models.Todo{}, err
	}

	g.afterWrite(ctx, dto.StudentEvent{Type: dto.EventTodoUpdated, StudentID: studentID, TodoID: todoID})
	return updated, nil
}

// mutate runs one copy-on-write update. The repository hands the mutator a
// private copy and only publishes it when the mutator succeeds.
func (g *mutationGateway) mutate(ctx context.Context, operation, studentID string, apply func(student *models.Student) error) error {
	ctx, span := g.tracer.Start(ctx, "student."+operation, trace.WithAttributes(
		attribute.String("student.id", studentID),
	))
	defer span.End()

	_, err := g.students.Update(ctx, studentID, func(student *models.Student) error {
		if student.TaskStates == nil {
			student.TaskStates = map[string]models.TaskState{}
		}
		return apply(student)
	})
	if err != nil {
		err = studentLookupError(err)
		outcome := "error"
		switch {
		case errors.Is(err, ErrStudentNotFound):
			outcome = "not_found"
		case errors.Is(err, ErrTodoNotFound):
			outcome = "todo_not_found"
		default:
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			g.logger.Error().Err(err).Str("operation", operation).Str("student_id", studentID).Msg("student mutation failed")
		}
		observability.StudentMutations().WithLabelValues(operation, outcome).Inc()
		return err
	}

	observability.StudentMutations().WithLabelValues(operation, "ok").Inc()
	return nil
}

func (g *mutationGateway) afterWrite(ctx context.Context, event dto.StudentEvent) {
	if g.cache != nil {
		g.cache.Invalidate(ctx, event.StudentID)
	}
	if g.events != nil {
		event.At = g.now().UTC()
		g.events.Publish(ctx, event)
	}
}

// cleanText only trims. Todo text is free text and is escaped where it is rendered.
func (g *mutationGateway) cleanText(text string) string {
	return strings.TrimSpace(text)
}

func boolPointer(v bool) *bool {
	return &v
}
