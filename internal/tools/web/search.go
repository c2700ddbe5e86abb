package web

import (
	"context"
	"encoding/json"

	"github.com/haasonsaas/relay/internal/tools"
)

// SearchTool is a stub. It keeps the web_search schema stable so tool-aware
// backends can be configured uniformly, but always reports that search is
// not configured.
type SearchTool struct{}

// NewSearchTool creates the web search stub.
func NewSearchTool() *SearchTool { return &SearchTool{} }

func (t *SearchTool) Name() string { return "web_search" }

func (t *SearchTool) Description() string {
	return "Search the web for a query (requires a configured search provider)."
}

func (t *SearchTool) Schema() json.RawMessage {
	return tools.MustSchema(map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"query": map[string]interface{}{
				"type":        "string",
				"description": "Search query.",
			},
		},
		"required": []string{"query"},
	})
}

// Execute always fails: no search provider is wired in.
func (t *SearchTool) Execute(ctx context.Context, params json.RawMessage) (*tools.Result, error) {
	_ = ctx
	_ = params
	return tools.Errorf("web search is not implemented: no search provider configured"), nil
}
