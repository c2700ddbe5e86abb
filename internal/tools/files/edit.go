package files

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/haasonsaas/relay/internal/tools"
)

// EditTool implements in-place text edits on files. Each edit's search text
// must occur exactly once unless replace_all is set; zero or multiple
// matches fail explicitly rather than guessing.
type EditTool struct {
	resolver Resolver
}

// NewEditTool creates an edit tool scoped to the sandbox roots.
func NewEditTool(cfg Config) *EditTool {
	return &EditTool{resolver: cfg.resolver()}
}

func (t *EditTool) Name() string { return "edit" }

func (t *EditTool) Description() string {
	return "Apply one or more find/replace edits to a file in the sandbox."
}

func (t *EditTool) Schema() json.RawMessage {
	return tools.MustSchema(map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"path": map[string]interface{}{
				"type":        "string",
				"description": "Path to edit (relative to the sandbox root).",
			},
			"edits": map[string]interface{}{
				"type": "array",
				"items": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"old_text": map[string]interface{}{
							"type":        "string",
							"description": "Text to replace. Must match exactly once unless replace_all is set.",
						},
						"new_text": map[string]interface{}{
							"type":        "string",
							"description": "Replacement text.",
						},
						"replace_all": map[string]interface{}{
							"type":        "boolean",
							"description": "Replace all occurrences (default: false).",
						},
					},
					"required": []string{"old_text", "new_text"},
				},
			},
		},
		"required": []string{"path", "edits"},
	})
}

// Execute applies edits to the file.
func (t *EditTool) Execute(ctx context.Context, params json.RawMessage) (*tools.Result, error) {
	_ = ctx
	var input struct {
		Path  string `json:"path"`
		Edits []struct {
			OldText    string `json:"old_text"`
			NewText    string `json:"new_text"`
			ReplaceAll bool   `json:"replace_all"`
		} `json:"edits"`
	}
	if err := json.Unmarshal(params, &input); err != nil {
		return tools.Errorf(fmt.Sprintf("invalid parameters: %v", err)), nil
	}
	if strings.TrimSpace(input.Path) == "" {
		return tools.Errorf("path is required"), nil
	}
	if len(input.Edits) == 0 {
		return tools.Errorf("edits are required"), nil
	}

	resolved, err := t.resolver.Resolve(input.Path)
	if err != nil {
		return tools.Errorf(err.Error()), nil
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		return tools.Errorf(fmt.Sprintf("open %s: %v", input.Path, openErrReason(err))), nil
	}

	content := string(data)
	replacements := 0
	for _, edit := range input.Edits {
		if edit.OldText == "" {
			return tools.Errorf("old_text is required"), nil
		}
		count := strings.Count(content, edit.OldText)
		switch {
		case count == 0:
			return tools.Errorf("old_text not found"), nil
		case count > 1 && !edit.ReplaceAll:
			return tools.Errorf(fmt.Sprintf("old_text matches %d times; set replace_all or disambiguate", count)), nil
		case edit.ReplaceAll:
			content = strings.ReplaceAll(content, edit.OldText, edit.NewText)
			replacements += count
		default:
			content = strings.Replace(content, edit.OldText, edit.NewText, 1)
			replacements++
		}
	}

	if err := os.WriteFile(resolved, []byte(content), 0o644); err != nil {
		return tools.Errorf(fmt.Sprintf("write %s failed", input.Path)), nil
	}

	payload, err := json.MarshalIndent(map[string]interface{}{
		"path":         input.Path,
		"replacements": replacements,
	}, "", "  ")
	if err != nil {
		return tools.Errorf("encode result failed"), nil
	}
	return &tools.Result{Content: string(payload)}, nil
}
