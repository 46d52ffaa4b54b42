package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/noah-isme/cseasy-api/internal/dto"
	"github.com/noah-isme/cseasy-api/internal/observability"
)

const (
	// DefaultImportCap bounds how many todos one batch may add.
	DefaultImportCap    = 20
	minSuggestionLength = 3
	wrappingQuotes      = "\"'`“”‘’"
)

// SuggestionImporter adds a batch of suggested tasks as todos.
type SuggestionImporter interface {
	Import(ctx context.Context, tasks []string, req ResolveRequest) (dto.ImportResult, error)
}

type suggestionImporter struct {
	gateway  MutationGateway
	resolver StudentResolver
	maxAdded int
	logger   zerolog.Logger
}

// NewSuggestionImporter creates the importer. maxAdded <= 0 uses DefaultImportCap.
func NewSuggestionImporter(gateway MutationGateway, resolver StudentResolver, maxAdded int, logger zerolog.Logger) SuggestionImporter {
	if maxAdded <= 0 {
		maxAdded = DefaultImportCap
	}
	return &suggestionImporter{
		gateway:  gateway,
		resolver: resolver,
		maxAdded: maxAdded,
		logger:   logger.With().Str("component", "suggestion_importer").Logger(),
	}
}

// Import processes items strictly in order. Only student resolution errors
// are returned; per-item failures land in Skipped. Items left once the cap
// is reached are counted in Unprocessed and never classified.
func (s *suggestionImporter) Import(ctx context.Context, tasks []string, req ResolveRequest) (dto.ImportResult, error) {
	studentID, err := s.resolver.Resolve(ctx, req)
	if err != nil {
		return dto.ImportResult{}, err
	}

	result := dto.ImportResult{
		Added:     make([]string, 0, len(tasks)),
		Skipped:   make([]string, 0),
		StudentID: studentID,
	}
	seen := make(map[string]struct{}, len(tasks))

	for idx, raw := range tasks {
		if len(result.Added) >= s.maxAdded {
			result.Unprocessed = len(tasks) - idx
			break
		}

		text := cleanSuggestion(raw)
		if utf8.RuneCountInString(text) < minSuggestionLength {
			result.Skipped = append(result.Skipped, raw)
			continue
		}

		key := strings.ToLower(text)
		if _, dup := seen[key]; dup {
			result.Skipped = append(result.Skipped, raw)
			continue
		}
		seen[key] = struct{}{}

		todo, err := s.gateway.AddTodo(ctx, text, studentID)
		if err != nil {
			s.logger.Debug().Err(err).Str("student_id", studentID).Msg("suggested task not added")
			result.Skipped = append(result.Skipped, raw)
			continue
		}

		result.Added = append(result.Added, todo.Text)
	}

	observability.ImportedSuggestions().WithLabelValues("added").Add(float64(len(result.Added)))
	observability.ImportedSuggestions().WithLabelValues("skipped").Add(float64(len(result.Skipped)))
	observability.ImportedSuggestions().WithLabelValues("unprocessed").Add(float64(result.Unprocessed))
	s.logger.Info().
		Str("student_id", studentID).
		Int("added", len(result.Added)).
		Int("skipped", len(result.Skipped)).
		Int("unprocessed", result.Unprocessed).
		Msg("suggestion batch imported")

	return result, nil
}

func cleanSuggestion(raw string) string {
	text := strings.TrimSpace(raw)
	for {
		trimmed := strings.TrimSpace(strings.TrimRight(strings.TrimLeft(text, wrappingQuotes), wrappingQuotes))
		if trimmed == text {
			return text
		}
		text = trimmed
	}
}
