package service

import (
	"context"
	"errors"
	"fmt"
	"html"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/cseasy-api/internal/dto"
	"github.com/noah-isme/cseasy-api/internal/models"
	"github.com/noah-isme/cseasy-api/internal/repository"
	"github.com/noah-isme/cseasy-api/pkg/ai"
)

const (
	// MissingKeyReply is returned by Chat when no model is configured.
	MissingKeyReply = "(OpenAI API key missing) Example plan: 1) List all due tasks. 2) Block 90m deep work now. 3) Finish nearest due lab. 4) Draft notes summary."
	// ResetReply acknowledges a transcript reset.
	ResetReply = "Conversation reset 👍"

	pendingTasksHeader  = "# CURRENT_PENDING_TASKS"
	chatTemperature     = 0.55
	guestConversationID = "global"
	emptyReply          = "Not sure yet."
	assistantPrompt     = "You are CSEasy Assistant, a warm and succinct study buddy for UNSW CSE students. " +
		"Focus on actionable planning. Never give solutions to graded work. Encourage prioritization. " +
		"Tone: friendly, brief, confident."
)

var (
	examKeywords       = regexp.MustCompile(`exam|midterm|final`)
	assignmentKeywords = regexp.MustCompile(`assignment|project`)
	lectureKeywords    = regexp.MustCompile(`lecture|week`)
	labKeywords        = regexp.MustCompile(`lab`)
)

// AssistantService wraps the language model collaborator. Model failures
// degrade to local fallback content instead of surfacing raw errors.
type AssistantService interface {
	SuggestTasks(ctx context.Context, content string, identity ResolveRequest) (dto.SuggestTasksResponse, error)
	EstimateTime(ctx context.Context, req dto.EstimateRequest) (dto.EstimateResponse, error)
	EstimateTodo(ctx context.Context, todoID, studentID string) (models.Todo, error)
	Chat(ctx context.Context, message string, identity ResolveRequest) (dto.ChatResponse, error)
}

type assistantService struct {
	model       ai.Assistant
	catalog     repository.CatalogRepository
	students    repository.StudentRepository
	resolver    StudentResolver
	gateway     MutationGateway
	transcripts repository.TranscriptRepository
	sanitizer   *bluemonday.Policy
	logger      zerolog.Logger
	now         func() time.Time
}

// NewAssistantService builds the assistant. model may be nil when no API key is configured.
func NewAssistantService(model ai.Assistant, catalog repository.CatalogRepository, students repository.StudentRepository, resolver StudentResolver, gateway MutationGateway, transcripts repository.TranscriptRepository, logger zerolog.Logger) AssistantService {
	return &assistantService{
		model:       model,
		catalog:     catalog,
		students:    students,
		resolver:    resolver,
		gateway:     gateway,
		transcripts: transcripts,
		sanitizer:   bluemonday.StrictPolicy(),
		logger:      logger.With().Str("component", "assistant_service").Logger(),
		now:         time.Now,
	}
}

func (s *assistantService) SuggestTasks(ctx context.Context, content string, identity ResolveRequest) (dto.SuggestTasksResponse, error) {
	content = strings.TrimSpace(content)
	summary := s.pendingSummary(ctx, identity)

	if s.model != nil {
		tasks, err := s.model.SuggestTasks(ctx, ai.SuggestInput{Content: content, PendingSummary: summary})
		if err == nil && len(tasks) > 0 {
			return dto.SuggestTasksResponse{Tasks: tasks, Source: dto.SuggestionSourceAI}, nil
		}
		if err != nil {
			s.logger.Warn().Err(err).Msg("task suggestion failed, using fallback")
		}
	}

	enriched := content
	if summary != "" {
		enriched = content + "\n\n" + summary
	}
	return dto.SuggestTasksResponse{Tasks: FallbackSuggestions(enriched), Source: dto.SuggestionSourceFallback}, nil
}

func (s *assistantService) EstimateTime(ctx context.Context, req dto.EstimateRequest) (dto.EstimateResponse, error) {
	if s.model == nil {
		return dto.EstimateResponse{}, fmt.Errorf("%w: no model configured", ErrUpstream)
	}

	estimate, err := s.model.EstimateTime(ctx, strings.TrimSpace(req.TaskDescription), strings.TrimSpace(req.UserDetails))
	if err != nil {
		s.logger.Warn().Err(err).Msg("time estimate failed")
		return dto.EstimateResponse{}, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	return dto.EstimateResponse{EstimatedTime: estimate.EstimatedTime, Reasoning: estimate.Reasoning}, nil
}

// EstimateTodo estimates an existing todo and stores the result on it.
func (s *assistantService) EstimateTodo(ctx context.Context, todoID, studentID string) (models.Todo, error) {
	student, err := s.students.GetByID(ctx, studentID)
	if err != nil {
		return models.Todo{}, studentLookupError(err)
	}

	var text string
	for _, todo := range student.Todos {
		if todo.ID == todoID {
			text = todo.Text
			break
		}
	}
	if text == "" {
		return models.Todo{}, ErrTodoNotFound
	}

	estimate, err := s.EstimateTime(ctx, dto.EstimateRequest{TaskDescription: text})
	if err != nil {
		return models.Todo{}, err
	}
	return s.gateway.AttachTodoEstimate(ctx, todoID, studentID, estimate)
}

// Chat keeps one bounded transcript per student. The message "reset" clears it.
func (s *assistantService) Chat(ctx context.Context, message string, identity ResolveRequest) (dto.ChatResponse, error) {
	message = strings.TrimSpace(html.UnescapeString(s.sanitizer.Sanitize(message)))
	conversationID := guestConversationID
	if studentID, err := s.resolver.Resolve(ctx, identity); err == nil {
		conversationID = studentID
	} else if !errors.Is(err, ErrStudentRequired) {
		return dto.ChatResponse{}, err
	}

	if strings.EqualFold(message, "reset") {
		if err := s.transcripts.Reset(ctx, conversationID); err != nil {
			return dto.ChatResponse{}, err
		}
		return dto.ChatResponse{Reply: ResetReply, Tasks: []string{}, Reset: true}, nil
	}

	if s.model == nil {
		return dto.ChatResponse{Reply: MissingKeyReply, Tasks: ExtractTasksFromReply(MissingKeyReply)}, nil
	}

	prior, err := s.transcripts.Load(ctx, conversationID)
	if err != nil {
		s.logger.Warn().Err(err).Str("conversation_id", conversationID).Msg("failed to load chat transcript")
		prior = nil
	}

	turns := append(prior, ai.ChatTurn{Role: ai.RoleUser, Content: message})
	reply, err := s.model.Chat(ctx, ai.ChatInput{
		System:      []string{assistantPrompt, "Today: " + s.now().UTC().Format(time.RFC3339)},
		Turns:       turns,
		Temperature: chatTemperature,
	})
	if err != nil {
		s.logger.Warn().Err(err).Msg("assistant chat failed")
		return dto.ChatResponse{}, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	reply = StripGreeting(reply)
	if reply == "" {
		reply = emptyReply
	}

	if err := s.transcripts.Append(ctx, conversationID,
		ai.ChatTurn{Role: ai.RoleUser, Content: message},
		ai.ChatTurn{Role: ai.RoleAssistant, Content: reply},
	); err != nil {
		s.logger.Warn().Err(err).Str("conversation_id", conversationID).Msg("failed to store chat transcript")
	}

	return dto.ChatResponse{Reply: reply, Tasks: ExtractTasksFromReply(reply)}, nil
}

// pendingSummary lists the student's open tasks, nearest due first. Any
// failure yields an empty summary.
func (s *assistantService) pendingSummary(ctx context.Context, identity ResolveRequest) string {
	if strings.TrimSpace(identity.ExplicitID) == "" && strings.TrimSpace(identity.SessionID) == "" {
		return ""
	}
	studentID, err := s.resolver.Resolve(ctx, ResolveRequest{ExplicitID: identity.ExplicitID, SessionID: identity.SessionID})
	if err != nil {
		s.logger.Debug().Err(err).Msg("suggestion enrichment skipped")
		return ""
	}

	var (
		student models.Student
		courses []models.Course
	)
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		var err error
		student, err = s.students.GetByID(groupCtx, studentID)
		return err
	})
	group.Go(func() error {
		var err error
		courses, err = s.catalog.List(groupCtx)
		return err
	})
	if err := group.Wait(); err != nil {
		s.logger.Warn().Err(err).Str("student_id", studentID).Msg("suggestion enrichment failed")
		return ""
	}

	return PendingTaskSummary(student, courses, s.now())
}

// PendingTaskSummary renders open tasks as "<CODE> <type>: <title> (<due label>)"
// lines under a header, sorted by due date. It is empty when nothing is open.
func PendingTaskSummary(student models.Student, courses []models.Course, now time.Time) string {
	metadata, _ := BuildTaskMetadata(student, courses)
	tasks := DeriveStudentTasks(metadata, student.TaskStates)

	codes := make(map[string]string, len(courses))
	for _, course := range courses {
		codes[course.ID] = course.Code
	}

	pending := make([]models.StudentTask, 0, len(tasks))
	for _, task := range tasks {
		if !task.Completed {
			pending = append(pending, task)
		}
	}
	if len(pending) == 0 {
		return ""
	}
	sort.SliceStable(pending, func(i, j int) bool {
		return pending[i].DueDate.Before(pending[j].DueDate)
	})

	lines := make([]string, 0, len(pending)+1)
	lines = append(lines, pendingTasksHeader)
	for _, task := range pending {
		code := codes[task.CourseID]
		if code == "" {
			code = task.CourseID
		}
		lines = append(lines, fmt.Sprintf("%s %s: %s (%s)", code, task.SourceType, task.Title, RelativeDueLabel(task.DueDate, now)))
	}
	return strings.Join(lines, "\n")
}

// FallbackSuggestions derives generic study tasks from keywords in the content.
func FallbackSuggestions(content string) []string {
	lower := strings.ToLower(content)
	tasks := make([]string, 0, 4)
	if examKeywords.MatchString(lower) {
		tasks = append(tasks, "Create spaced review plan for upcoming exam")
	}
	if assignmentKeywords.MatchString(lower) {
		tasks = append(tasks, "Break assignment into subtasks with mini-deadlines")
	}
	if lectureKeywords.MatchString(lower) {
		tasks = append(tasks, "Summarize this week's lecture concepts")
	}
	if labKeywords.MatchString(lower) {
		tasks = append(tasks, "Prepare lab environment and skim starter code")
	}
	if len(tasks) == 0 {
		tasks = append(tasks, "Draft concise study notes from provided content")
	}
	return tasks
}
