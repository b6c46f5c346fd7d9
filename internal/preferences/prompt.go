// Reelcast - Video Platform Recommendation and Moderation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelcast

package preferences

import (
	"errors"
	"fmt"
	"strings"

	"github.com/goccy/go-json"

	"github.com/tomtom215/reelcast/internal/models"
)

// ErrInvalidResponse marks a model answer that cannot be stored.
var ErrInvalidResponse = errors.New("invalid preference response")

const systemPrompt = `You are a content recommendation system. Your task is to analyze user interaction data and suggest relevant content categories.

Rules:
1. Return between 1 and %d categories based on relevance
2. Consider higher weight for categories with more likes and comments
3. Look for categories with consistent engagement across all metrics
4. Consider recent viewing patterns
5. Choose ONLY from the provided category list`

func buildSystemPrompt(maxCategories int) string {
	return fmt.Sprintf(systemPrompt, maxCategories)
}

// BuildPrompt renders one user's engagement for the model.
func BuildPrompt(stats []models.CategoryStat, maxCategories int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Based on this user's detailed interaction data, suggest up to %d most relevant content categories from the following list:\n\n", maxCategories)
	for _, c := range models.PlatformCategories {
		b.WriteString(c)
		b.WriteByte('\n')
	}
	b.WriteString("\nUser Interaction Data by Category:\n")
	for _, s := range stats {
		fmt.Fprintf(&b, "- %s:\n  * Views: %d\n  * Likes: %d\n  * Comments: %d\n", s.Category, s.Views, s.Likes, s.Comments)
	}
	return b.String()
}

// responseSchema is the JSON schema passed as the Ollama format.
func responseSchema(maxCategories int) []byte {
	schema, err := json.Marshal(map[string]any{
		"type": "object",
		"properties": map[string]any{
			"categories": map[string]any{
				"type":     "array",
				"items":    map[string]any{"type": "string", "enum": models.PlatformCategories},
				"minItems": 1,
				"maxItems": maxCategories,
			},
		},
		"required": []string{"categories"},
	})
	if err != nil {
		panic(err)
	}
	return schema
}

var canonical = func() map[string]string {
	m := make(map[string]string, len(models.PlatformCategories))
	for _, c := range models.PlatformCategories {
		m[strings.ToLower(c)] = c
	}
	return m
}()

// ParseCategories validates a model answer of the form
// {"categories": [...]}. Names are matched case-insensitively and returned
// in canonical form, duplicates are dropped, and the result must hold
// between 1 and maxCategories known categories.
func ParseCategories(response string, maxCategories int) ([]string, error) {
	start, end := strings.Index(response, "{"), strings.LastIndex(response, "}")
	if start < 0 || end < start {
		return nil, fmt.Errorf("%w: no JSON object", ErrInvalidResponse)
	}

	var doc struct {
		Categories []string `json:"categories"`
	}
	if err := json.Unmarshal([]byte(response[start:end+1]), &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidResponse, err)
	}

	seen := make(map[string]bool, len(doc.Categories))
	out := make([]string, 0, len(doc.Categories))
	for _, raw := range doc.Categories {
		name, ok := canonical[strings.ToLower(strings.TrimSpace(raw))]
		if !ok {
			return nil, fmt.Errorf("%w: unknown category %q", ErrInvalidResponse, raw)
		}
		if seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no categories", ErrInvalidResponse)
	}
	if len(out) > maxCategories {
		return nil, fmt.Errorf("%w: %d categories, at most %d allowed", ErrInvalidResponse, len(out), maxCategories)
	}
	return out, nil
}
