package files

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/haasonsaas/relay/internal/tools"
)

// WriteTool implements file writes within the sandbox.
type WriteTool struct {
	resolver Resolver
}

// NewWriteTool creates a write tool scoped to the sandbox roots.
func NewWriteTool(cfg Config) *WriteTool {
	return &WriteTool{resolver: cfg.resolver()}
}

func (t *WriteTool) Name() string { return "write" }

func (t *WriteTool) Description() string {
	return "Write content to a file in the sandbox (overwrites by default)."
}

func (t *WriteTool) Schema() json.RawMessage {
	return tools.MustSchema(map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"path": map[string]interface{}{
				"type":        "string",
				"description": "Path to write (relative to the sandbox root).",
			},
			"content": map[string]interface{}{
				"type":        "string",
				"description": "File contents to write.",
			},
			"append": map[string]interface{}{
				"type":        "boolean",
				"description": "Append instead of overwrite (default: false).",
			},
		},
		"required": []string{"path", "content"},
	})
}

// Execute writes file contents.
func (t *WriteTool) Execute(ctx context.Context, params json.RawMessage) (*tools.Result, error) {
	_ = ctx
	var input struct {
		Path    string `json:"path"`
		Content string `json:"content"`
		Append  bool   `json:"append"`
	}
	if err := json.Unmarshal(params, &input); err != nil {
		return tools.Errorf(fmt.Sprintf("invalid parameters: %v", err)), nil
	}
	if strings.TrimSpace(input.Path) == "" {
		return tools.Errorf("path is required"), nil
	}

	resolved, err := t.resolver.Resolve(input.Path)
	if err != nil {
		return tools.Errorf(err.Error()), nil
	}

	if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
		return tools.Errorf(fmt.Sprintf("create directory for %s failed", input.Path)), nil
	}

	flags := os.O_CREATE | os.O_WRONLY
	if input.Append {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}
	file, err := os.OpenFile(resolved, flags, 0o644)
	if err != nil {
		return tools.Errorf(fmt.Sprintf("open %s: %v", input.Path, openErrReason(err))), nil
	}
	defer file.Close()

	n, err := file.WriteString(input.Content)
	if err != nil {
		return tools.Errorf(fmt.Sprintf("write %s failed", input.Path)), nil
	}

	payload, err := json.MarshalIndent(map[string]interface{}{
		"path":          input.Path,
		"bytes_written": n,
		"append":        input.Append,
	}, "", "  ")
	if err != nil {
		return tools.Errorf("encode result failed"), nil
	}
	return &tools.Result{Content: string(payload)}, nil
}
