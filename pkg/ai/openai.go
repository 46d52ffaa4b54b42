package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	aiDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "cseasy",
		Subsystem: "ai",
		Name:      "request_duration_seconds",
		Help:      "Duration of language model requests",
	}, []string{"model", "operation"})

	aiFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cseasy",
		Subsystem: "ai",
		Name:      "request_failures_total",
		Help:      "Number of failed language model requests",
	}, []string{"model", "operation"})
)

// OpenAIConfig defines configuration options for the OpenAI assistant.
type OpenAIConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float32
	Timeout     time.Duration
	Logger      zerolog.Logger
}

// OpenAIAssistant implements Assistant against the OpenAI chat completion API.
type OpenAIAssistant struct {
	client *openai.Client
	cfg    OpenAIConfig
	tracer trace.Tracer
	logger zerolog.Logger
}

// NewOpenAIAssistant builds a new assistant using the provided configuration.
func NewOpenAIAssistant(cfg OpenAIConfig) (*OpenAIAssistant, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}

	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}

	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 700
	}

	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	tracer := otel.Tracer("github.com/noah-isme/cseasy-api/pkg/ai/openai")
	logger := cfg.Logger
	if logger.GetLevel() == zerolog.Disabled {
		logger = zerolog.Nop()
	}

	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}
	client := openai.NewClientWithConfig(config)

	return &OpenAIAssistant{
		client: client,
		cfg:    cfg,
		tracer: tracer,
		logger: logger.With().Str("component", "openai_assistant").Logger(),
	}, nil
}

// SuggestTasks asks the model for short actionable tasks as {"tasks": [...]}.
func (a *OpenAIAssistant) SuggestTasks(ctx context.Context, input SuggestInput) ([]string, error) {
	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: suggestSystemPrompt()},
		{Role: openai.ChatMessageRoleUser, Content: buildSuggestPrompt(input)},
	}

	content, err := a.complete(ctx, "suggest_tasks", messages, 0.4, true)
	if err != nil {
		return nil, err
	}

	tasks, err := ParseTasks(content)
	if err != nil {
		aiFailures.WithLabelValues(a.cfg.Model, "suggest_tasks").Inc()
		return nil, err
	}
	return tasks, nil
}

// EstimateTime asks the model how long a task will take.
func (a *OpenAIAssistant) EstimateTime(ctx context.Context, description, details string) (Estimate, error) {
	var prompt strings.Builder
	prompt.WriteString("# Task\n")
	prompt.WriteString(description)
	if strings.TrimSpace(details) != "" {
		prompt.WriteString("\n\n## About the student\n")
		prompt.WriteString(details)
	}
	prompt.WriteString("\nReturn JSON.")

	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: estimateSystemPrompt()},
		{Role: openai.ChatMessageRoleUser, Content: prompt.String()},
	}

	content, err := a.complete(ctx, "estimate_time", messages, 0.2, true)
	if err != nil {
		return Estimate{}, err
	}

	estimate, err := ParseEstimate(content)
	if err != nil {
		aiFailures.WithLabelValues(a.cfg.Model, "estimate_time").Inc()
		return Estimate{}, err
	}
	return estimate, nil
}

// Chat sends the system instructions followed by the transcript and returns the raw reply.
func (a *OpenAIAssistant) Chat(ctx context.Context, input ChatInput) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(input.System)+len(input.Turns))
	for _, system := range input.System {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: system})
	}
	for _, turn := range input.Turns {
		role := openai.ChatMessageRoleUser
		if turn.Role == RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: turn.Content})
	}

	temperature := input.Temperature
	if temperature == 0 {
		temperature = a.cfg.Temperature
	}
	return a.complete(ctx, "chat", messages, temperature, false, func(request *openai.ChatCompletionRequest) {
		request.TopP = input.TopP
		request.PresencePenalty = input.PresencePenalty
	})
}

func (a *OpenAIAssistant) complete(parent context.Context, operation string, messages []openai.ChatCompletionMessage, temperature float32, jsonMode bool, options ...func(*openai.ChatCompletionRequest)) (string, error) {
	ctx, cancel := context.WithTimeout(parent, a.cfg.Timeout)
	defer cancel()

	ctx, span := a.tracer.Start(ctx, "openai."+operation, trace.WithAttributes(
		attribute.String("model", a.cfg.Model),
	))
	defer span.End()

	request := openai.ChatCompletionRequest{
		Model:       a.cfg.Model,
		MaxTokens:   a.cfg.MaxTokens,
		Temperature: temperature,
		Messages:    messages,
	}
	if jsonMode {
		request.ResponseFormat = &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject}
	}
	for _, option := range options {
		option(&request)
	}

	start := time.Now()
	resp, err := a.client.CreateChatCompletion(ctx, request)
	aiDuration.WithLabelValues(a.cfg.Model, operation).Observe(time.Since(start).Seconds())
	if err != nil {
		aiFailures.WithLabelValues(a.cfg.Model, operation).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", fmt.Errorf("openai %s: %w", operation, err)
	}

	if len(resp.Choices) == 0 {
		err := fmt.Errorf("no choices returned from openai")
		aiFailures.WithLabelValues(a.cfg.Model, operation).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	a.logger.Debug().
		Str("operation", operation).
		Int("prompt_tokens", resp.Usage.PromptTokens).
		Int("completion_tokens", resp.Usage.CompletionTokens).
		Msg("openai completion finished")

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func suggestSystemPrompt() string {
	return "You turn course material into short, concrete study tasks for a university student. " +
		"Respond with a JSON object {\"tasks\": [string]} holding at most 15 tasks, each under 90 characters. " +
		"Prefer tasks that move the nearest pending deadlines forward."
}

func estimateSystemPrompt() string {
	return "You estimate how long a study task takes a typical undergraduate. " +
		"Respond with a JSON object containing estimatedTime (e.g. \"2 hours\") and reasoning (one or two sentences)."
}

func buildSuggestPrompt(input SuggestInput) string {
	builder := strings.Builder{}
	if input.PendingSummary != "" {
		builder.WriteString(input.PendingSummary)
		builder.WriteString("\n\n")
	}
	builder.WriteString("# Course Content\n")
	builder.WriteString(input.Content)
	builder.WriteString("\nReturn JSON.")
	return builder.String()
}
