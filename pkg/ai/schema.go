package ai

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// MaxSuggestedTasks bounds the number of tasks taken from one model reply.
const MaxSuggestedTasks = 15

const tasksSchemaJSON = `{
  "type": "object",
  "required": ["tasks"],
  "properties": {
    "tasks": {"type": "array", "items": {"type": "string"}}
  }
}`

const estimateSchemaJSON = `{
  "type": "object",
  "required": ["estimatedTime"],
  "properties": {
    "estimatedTime": {"type": "string", "minLength": 1},
    "reasoning": {"type": "string"}
  }
}`

var (
	tasksSchema    = mustCompile("mem://tasks.json", tasksSchemaJSON)
	estimateSchema = mustCompile("mem://estimate.json", estimateSchemaJSON)
	codeFence      = regexp.MustCompile("(?s)^```(?:json)?\\s*(.*?)\\s*```$")
)

func mustCompile(url, schema string) *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(url, strings.NewReader(schema)); err != nil {
		panic(err)
	}
	return compiler.MustCompile(url)
}

// ParseTasks validates a {"tasks": [...]} reply, tolerating a markdown code
// fence around the JSON. Blank entries are dropped and the list is capped.
func ParseTasks(content string) ([]string, error) {
	raw, err := decodeValidated(content, tasksSchema)
	if err != nil {
		return nil, err
	}

	var payload struct {
		Tasks []string `json:"tasks"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	tasks := make([]string, 0, len(payload.Tasks))
	for _, task := range payload.Tasks {
		task = strings.TrimSpace(task)
		if task == "" {
			continue
		}
		tasks = append(tasks, task)
		if len(tasks) == MaxSuggestedTasks {
			break
		}
	}
	return tasks, nil
}

// ParseEstimate validates an {"estimatedTime", "reasoning"} reply.
func ParseEstimate(content string) (Estimate, error) {
	raw, err := decodeValidated(content, estimateSchema)
	if err != nil {
		return Estimate{}, err
	}

	var estimate Estimate
	if err := json.Unmarshal(raw, &estimate); err != nil {
		return Estimate{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	estimate.EstimatedTime = strings.TrimSpace(estimate.EstimatedTime)
	estimate.Reasoning = strings.TrimSpace(estimate.Reasoning)
	return estimate, nil
}

// StripCodeFence removes a surrounding ```json fence, if any.
func StripCodeFence(content string) string {
	trimmed := strings.TrimSpace(content)
	if match := codeFence.FindStringSubmatch(trimmed); match != nil {
		return match[1]
	}
	return trimmed
}

func decodeValidated(content string, schema *jsonschema.Schema) ([]byte, error) {
	raw := []byte(StripCodeFence(content))

	var document interface{}
	if err := json.Unmarshal(raw, &document); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if err := schema.Validate(document); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return raw, nil
}
