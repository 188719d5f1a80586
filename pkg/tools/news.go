package tools

import (
	"context"
	"fmt"
	"strings"
)

// NewsTool answers headline requests by running a news-flavored query
// through the configured search backend.
type NewsTool struct {
	provider   SearchProvider
	maxResults int
}

func NewNewsTool(provider SearchProvider, maxResults int) *NewsTool {
	if maxResults <= 0 {
		maxResults = 5
	}
	return &NewsTool{provider: provider, maxResults: maxResults}
}

func (t *NewsTool) Name() string {
	return "news"
}

func (t *NewsTool) Description() string {
	return "Get recent news headlines, optionally about a specific topic."
}

func (t *NewsTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"topic": map[string]interface{}{
				"type":        "string",
				"description": "Topic to get news about; empty for general headlines",
			},
		},
	}
}

func (t *NewsTool) Execute(ctx context.Context, args map[string]interface{}) *ToolResult {
	query := "latest news headlines today"
	if topic, ok := args["topic"].(string); ok && strings.TrimSpace(topic) != "" {
		query = fmt.Sprintf("latest news %s", strings.TrimSpace(topic))
	}

	result, err := t.provider.Search(ctx, query, t.maxResults)
	if err != nil {
		return ErrorResult(fmt.Sprintf("news lookup failed: %v", err)).WithError(err)
	}

	return OKResult(result)
}
