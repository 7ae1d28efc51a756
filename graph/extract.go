package graph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/brunobiangulo/conceptgraph/llm"
)

// ErrMalformedResponse is returned when the model reply holds no decodable
// JSON object.
var ErrMalformedResponse = errors.New("graph: malformed model response")

// ExtractorConfig tunes the extraction chat calls.
type ExtractorConfig struct {
	Model       string
	Temperature float64
	MaxTokens   int
	// MaxInputChars truncates the document text before it is sent to the
	// model. Zero disables truncation.
	MaxInputChars int
}

// Extractor asks a chat model for concepts, relationships and groupings and
// validates what comes back.
type Extractor struct {
	chat llm.Provider
	cfg  ExtractorConfig
}

// NewExtractor creates an extractor using chat for completions.
func NewExtractor(chat llm.Provider, cfg ExtractorConfig) *Extractor {
	return &Extractor{chat: chat, cfg: cfg}
}

// Extract runs one extraction over text. A non-positive maxConcepts uses the
// default budget. Transport failures are returned as-is; an unusable reply
// wraps ErrMalformedResponse.
func (x *Extractor) Extract(ctx context.Context, text string, maxConcepts int) (*ExtractionResult, error) {
	if maxConcepts <= 0 {
		maxConcepts = defaultConceptBudget
	}
	text = truncateText(text, x.cfg.MaxInputChars)

	raw, err := x.complete(ctx, extractionPrompt(text, maxConcepts))
	if err != nil {
		return nil, fmt.Errorf("concept extraction: %w", err)
	}

	result := Validate(raw)
	slog.Info("graph: extraction complete",
		"concepts", len(result.Concepts),
		"relationships", len(result.Relationships),
		"max_concepts", maxConcepts)
	return result, nil
}

// Group asks the model to cluster concepts into themed groups.
func (x *Extractor) Group(ctx context.Context, concepts []Concept) ([]Group, error) {
	if len(concepts) == 0 {
		return []Group{}, nil
	}
	prompt, err := groupingPrompt(concepts)
	if err != nil {
		return nil, fmt.Errorf("rendering grouping prompt: %w", err)
	}

	raw, err := x.complete(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("concept grouping: %w", err)
	}
	groups := ValidateGroups(raw, concepts)
	slog.Debug("graph: grouping complete", "groups", len(groups))
	return groups, nil
}

func (x *Extractor) complete(ctx context.Context, prompt string) (map[string]any, error) {
	resp, err := x.chat.Chat(ctx, llm.ChatRequest{
		Model: x.cfg.Model,
		Messages: []llm.Message{
			{Role: "system", Content: extractionSystemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature: x.cfg.Temperature,
		MaxTokens:   x.cfg.MaxTokens,
	})
	if err != nil {
		return nil, err
	}
	return decodeObject(resp.Content)
}

// decodeObject pulls the JSON object out of a model reply and decodes it.
func decodeObject(content string) (map[string]any, error) {
	jsonStr, err := extractJSON(content)
	if err != nil {
		return nil, err
	}
	var raw map[string]any
	if err := json.Unmarshal([]byte(jsonStr), &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return raw, nil
}

// extractJSON returns the span from the first "{" to the last "}" of a model
// reply. Markdown fences and prose around the object fall outside that span.
func extractJSON(raw string) (string, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1], nil
	}
	return "", fmt.Errorf("%w: no JSON object found", ErrMalformedResponse)
}

// truncateText cuts text to at most limit characters, backing off to a word
// boundary when one is near.
func truncateText(text string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(text) <= limit {
		return text
	}
	cut, n := 0, 0
	for i := range text {
		if n == limit {
			cut = i
			break
		}
		n++
	}
	if i := strings.LastIndexAny(text[:cut], " \n\t"); i > cut/2 {
		cut = i
	}
	slog.Warn("graph: document truncated for extraction",
		"chars", utf8.RuneCountInString(text), "kept", utf8.RuneCountInString(text[:cut]))
	return text[:cut]
}
