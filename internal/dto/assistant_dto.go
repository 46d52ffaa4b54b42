package dto

import "encoding/json"

// Suggestion sources.
const (
	SuggestionSourceAI       = "ai"
	SuggestionSourceFallback = "fallback"
)

// SuggestTasksRequest asks the assistant for actionable tasks derived from free text.
type SuggestTasksRequest struct {
	Content   string `json:"content" validate:"required,max=20000"`
	StudentID string `json:"student_id"`
}

// SuggestTasksResponse lists suggested tasks and whether they came from the model.
type SuggestTasksResponse struct {
	Tasks  []string `json:"tasks"`
	Source string   `json:"source"`
}

// EstimateRequest asks for a completion time estimate.
type EstimateRequest struct {
	TaskDescription string `json:"task_description" validate:"required,max=2000"`
	UserDetails     string `json:"user_details" validate:"max=2000"`
}

// EstimateResponse is the model's free-text estimate.
type EstimateResponse struct {
	EstimatedTime string `json:"estimated_time"`
	Reasoning     string `json:"reasoning"`
}

// ChatRequest is one user turn for the planning assistant.
type ChatRequest struct {
	Message   string `json:"message" validate:"required,max=4000"`
	StudentID string `json:"student_id"`
}

// ChatResponse carries the assistant reply and any tasks found in it.
type ChatResponse struct {
	Reply string   `json:"reply"`
	Tasks []string `json:"tasks"`
	Reset bool     `json:"reset,omitempty"`
}

// AddTodosRequest is a batch of suggested task strings. Tasks is kept raw so a
// non-array payload can be rejected explicitly.
type AddTodosRequest struct {
	Tasks     json.RawMessage `json:"tasks"`
	StudentID string          `json:"student_id"`
}

// ImportResult reports how a suggestion batch was applied.
type ImportResult struct {
	Added       []string `json:"added"`
	Skipped     []string `json:"skipped"`
	StudentID   string   `json:"student_id"`
	Unprocessed int      `json:"unprocessed"`
}

// KnowledgeChatRequest is the payload accepted by the standalone chat server.
type KnowledgeChatRequest struct {
	Message string `json:"message"`
	UserID  string `json:"userId"`
}

// KnowledgeChatResponse is the standalone chat server reply.
type KnowledgeChatResponse struct {
	Reply string `json:"reply"`
}
