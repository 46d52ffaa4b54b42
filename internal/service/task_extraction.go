package service

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/noah-isme/cseasy-api/pkg/ai"
)

var (
	greetingPattern     = regexp.MustCompile(`(?i)^(?:hi|hey|hello)\b[,!\s-]*`)
	markdownEmphasis    = regexp.MustCompile(`\*\*|__`)
	metaLinePattern     = regexp.MustCompile(`(?i)^(?:primary recommendation|focus\s*:|time\s*:)`)
	preamblePattern     = regexp.MustCompile(`(?i)^here\s+(?:are|is)\b`)
	bulletPattern       = regexp.MustCompile(`^(?:[-*]|\d+[.)])\s*`)
	taskLabelPattern    = regexp.MustCompile(`(?i)^task\s*\d*\s*[:\-]\s*`)
	actionVerbPattern   = regexp.MustCompile(`(?i)^(?:complete|start|begin|finish|work on|review|implement)\b`)
	focusTimePattern    = regexp.MustCompile(`(?i)^(?:focus|time)\b`)
	trailingPunctuation = regexp.MustCompile(`[.!?]\s*$`)
	dueLinePattern      = regexp.MustCompile(`(?i)^due\b`)
	courseCodePattern   = regexp.MustCompile(`(?i)COMP\d{4}`)
)

// StripGreeting removes a leading "hi", "hey" or "hello" from a model reply.
func StripGreeting(reply string) string {
	return greetingPattern.ReplaceAllString(strings.TrimSpace(reply), "")
}

// ExtractTasksFromReply pulls actionable lines out of an assistant reply.
// Only lines that start with an action verb count. When the whole reply
// mentions exactly one course code, lines without one are prefixed with it.
func ExtractTasksFromReply(reply string) []string {
	content := strings.TrimSpace(reply)
	if content == "" {
		return []string{}
	}

	codes := uniqueCourseCodes(content)
	tasks := make([]string, 0)
	for _, line := range strings.Split(content, "\n") {
		raw := stripEmphasis(line)
		if len(raw) < 4 || metaLinePattern.MatchString(raw) || preamblePattern.MatchString(raw) {
			continue
		}

		raw = strings.TrimSpace(bulletPattern.ReplaceAllString(raw, ""))
		raw = strings.TrimSpace(taskLabelPattern.ReplaceAllString(raw, ""))
		if metaLinePattern.MatchString(raw) || !actionVerbPattern.MatchString(raw) || focusTimePattern.MatchString(raw) {
			continue
		}

		raw = trailingPunctuation.ReplaceAllString(raw, "")
		if raw == "" || dueLinePattern.MatchString(raw) {
			continue
		}

		if !courseCodePattern.MatchString(raw) && len(codes) == 1 {
			raw = codes[0] + " - " + raw
		}
		tasks = append(tasks, raw)
	}

	if len(tasks) == 0 {
		tasks = tasksFromJSON(content)
	}
	return dedupeFold(tasks)
}

func stripEmphasis(line string) string {
	return strings.TrimSpace(markdownEmphasis.ReplaceAllString(strings.TrimSpace(line), ""))
}

func uniqueCourseCodes(content string) []string {
	seen := map[string]struct{}{}
	codes := make([]string, 0)
	for _, match := range courseCodePattern.FindAllString(content, -1) {
		code := strings.ToUpper(match)
		if _, ok := seen[code]; ok {
			continue
		}
		seen[code] = struct{}{}
		codes = append(codes, code)
	}
	return codes
}

func tasksFromJSON(content string) []string {
	var payload struct {
		Tasks []interface{} `json:"tasks"`
	}
	if err := json.Unmarshal([]byte(ai.StripCodeFence(content)), &payload); err != nil {
		return []string{}
	}

	tasks := make([]string, 0, len(payload.Tasks))
	for _, item := range payload.Tasks {
		text, ok := item.(string)
		if !ok {
			continue
		}
		text = strings.TrimSpace(trailingPunctuation.ReplaceAllString(stripEmphasis(text), ""))
		if text != "" {
			tasks = append(tasks, text)
		}
	}
	return tasks
}

func dedupeFold(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		key := strings.ToLower(item)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, item)
	}
	return out
}
