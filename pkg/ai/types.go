package ai

import (
	"context"
	"errors"
)

// ErrMalformedResponse indicates the model reply did not match the expected JSON shape.
var ErrMalformedResponse = errors.New("malformed model response")

// Chat roles accepted in a transcript.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatTurn is one message of a conversation transcript.
type ChatTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// SuggestInput carries course content and an optional summary of the student's pending work.
type SuggestInput struct {
	Content        string
	PendingSummary string
}

// Estimate is a free-text time estimate with the model's reasoning.
type Estimate struct {
	EstimatedTime string `json:"estimatedTime"`
	Reasoning     string `json:"reasoning"`
}

// ChatInput is a bounded transcript plus the system instructions that frame it.
// Zero sampling values fall back to the client defaults.
type ChatInput struct {
	System          []string
	Turns           []ChatTurn
	Temperature     float32
	TopP            float32
	PresencePenalty float32
}

// Assistant is the language model collaborator used for planning help.
type Assistant interface {
	SuggestTasks(ctx context.Context, input SuggestInput) ([]string, error)
	EstimateTime(ctx context.Context, description, details string) (Estimate, error)
	Chat(ctx context.Context, input ChatInput) (string, error)
}
