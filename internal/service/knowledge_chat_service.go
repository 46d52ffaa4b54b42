package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/cseasy-api/internal/repository"
	"github.com/noah-isme/cseasy-api/pkg/ai"
	"github.com/noah-isme/cseasy-api/pkg/knowledge"
)

const (
	// DefaultKnowledgeContextChars caps the knowledge base context sent per request.
	DefaultKnowledgeContextChars = 12000

	knowledgeTemperature     = 0.65
	knowledgeTopP            = 0.9
	knowledgePresencePenalty = 0.2
	knowledgeUserNotes       = "Notes for assistant: it's okay to infer and be chatty; avoid greetings unless user greets first; " +
		"if hours aren't stated, you may assume ~3h and say so gently; never produce coursework solutions."
	knowledgePrompt = "You are CSEasy Assistant, a friendly, down-to-earth study coach for UNSW CSE students. " +
		"Base answers only on the provided context (student block + their enrolled courses). " +
		"Mission: estimate roughly how long released tasks will take and suggest what to focus on next to make the best progress with the time they have. " +
		"Be conversational, encouraging, and specific. Do not start with a greeting unless the user greets first. " +
		"Boundaries: never generate solutions or code for labs/assignments/quizzes; if something is outside your ability, explain that kindly and suggest next steps."
)

var greetingLinePattern = regexp.MustCompile(`(?i)^(?:hi|hey|hello)\b[^.\n]*[.\n]+\s*`)

// KnowledgeChatService answers questions grounded in the markdown knowledge base.
type KnowledgeChatService interface {
	Reply(ctx context.Context, userID, message string) (string, error)
}

type knowledgeChatService struct {
	model           ai.Assistant
	base            *knowledge.Base
	transcripts     repository.TranscriptRepository
	maxContextChars int
	logger          zerolog.Logger
	now             func() time.Time
}

// NewKnowledgeChatService wires the standalone chat. Memory is only kept for
// requests that carry a user id.
func NewKnowledgeChatService(model ai.Assistant, base *knowledge.Base, transcripts repository.TranscriptRepository, maxContextChars int, logger zerolog.Logger) KnowledgeChatService {
	if maxContextChars <= 0 {
		maxContextChars = DefaultKnowledgeContextChars
	}
	return &knowledgeChatService{
		model:           model,
		base:            base,
		transcripts:     transcripts,
		maxContextChars: maxContextChars,
		logger:          logger.With().Str("component", "knowledge_chat_service").Logger(),
		now:             time.Now,
	}
}

func (s *knowledgeChatService) Reply(ctx context.Context, userID, message string) (string, error) {
	userID = strings.TrimSpace(userID)
	if strings.TrimSpace(message) == "" {
		return "", ErrMessageRequired
	}

	if strings.EqualFold(strings.TrimSpace(message), "reset") {
		if userID != "" {
			if err := s.transcripts.Reset(ctx, userID); err != nil {
				return "", err
			}
		}
		return ResetReply, nil
	}

	if s.model == nil {
		return "", fmt.Errorf("%w: no model configured", ErrUpstream)
	}

	var memory []ai.ChatTurn
	if userID != "" {
		loaded, err := s.transcripts.Load(ctx, userID)
		if err != nil {
			s.logger.Warn().Err(err).Str("user_id", userID).Msg("failed to load chat memory")
		} else {
			memory = loaded
		}
	}

	scoped := knowledge.Truncate(s.base.ContextFor(userID), s.maxContextChars)
	turns := make([]ai.ChatTurn, 0, len(memory)+2)
	turns = append(turns, ai.ChatTurn{
		Role:    ai.RoleUser,
		Content: fmt.Sprintf("Today: %s\n\nContext:\n%s", s.now().UTC().Format(time.RFC3339), scoped),
	})
	turns = append(turns, memory...)
	turns = append(turns, ai.ChatTurn{Role: ai.RoleUser, Content: message + "\n\n" + knowledgeUserNotes})

	reply, err := s.model.Chat(ctx, ai.ChatInput{
		System:          []string{knowledgePrompt},
		Turns:           turns,
		Temperature:     knowledgeTemperature,
		TopP:            knowledgeTopP,
		PresencePenalty: knowledgePresencePenalty,
	})
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("knowledge chat failed")
		return "", fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	reply = strings.TrimSpace(greetingLinePattern.ReplaceAllString(strings.TrimSpace(reply), ""))

	if userID != "" {
		if err := s.transcripts.Append(ctx, userID,
			ai.ChatTurn{Role: ai.RoleUser, Content: message},
			ai.ChatTurn{Role: ai.RoleAssistant, Content: reply},
		); err != nil {
			s.logger.Warn().Err(err).Str("user_id", userID).Msg("failed to store chat memory")
		}
	}
	return reply, nil
}
