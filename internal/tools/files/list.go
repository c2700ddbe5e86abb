package files

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/haasonsaas/relay/internal/tools"
)

// maxListEntries bounds a single directory listing.
const maxListEntries = 500

// ListTool lists directory entries inside the sandbox.
type ListTool struct {
	resolver Resolver
}

// NewListTool creates a list tool scoped to the sandbox roots.
func NewListTool(cfg Config) *ListTool {
	return &ListTool{resolver: cfg.resolver()}
}

func (t *ListTool) Name() string { return "list" }

func (t *ListTool) Description() string {
	return "List directory entries in the sandbox with name, size, and type."
}

func (t *ListTool) Schema() json.RawMessage {
	return tools.MustSchema(map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"path": map[string]interface{}{
				"type":        "string",
				"description": "Directory to list (default: the sandbox root).",
			},
		},
	})
}

// Execute lists a directory.
func (t *ListTool) Execute(ctx context.Context, params json.RawMessage) (*tools.Result, error) {
	_ = ctx
	var input struct {
		Path string `json:"path"`
	}
	if err := json.Unmarshal(params, &input); err != nil {
		return tools.Errorf(fmt.Sprintf("invalid parameters: %v", err)), nil
	}
	path := strings.TrimSpace(input.Path)
	if path == "" {
		path = "."
	}

	resolved, err := t.resolver.Resolve(path)
	if err != nil {
		return tools.Errorf(err.Error()), nil
	}

	entries, err := os.ReadDir(resolved)
	if err != nil {
		return tools.Errorf(fmt.Sprintf("open %s: %v", path, openErrReason(err))), nil
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	type entry struct {
		Name  string `json:"name"`
		IsDir bool   `json:"is_dir"`
		Size  int64  `json:"size,omitempty"`
	}
	listed := make([]entry, 0, len(entries))
	truncated := false
	for _, de := range entries {
		if len(listed) >= maxListEntries {
			truncated = true
			break
		}
		e := entry{Name: de.Name(), IsDir: de.IsDir()}
		if info, err := de.Info(); err == nil && !de.IsDir() {
			e.Size = info.Size()
		}
		listed = append(listed, e)
	}

	payload, err := json.MarshalIndent(map[string]interface{}{
		"path":      path,
		"entries":   listed,
		"truncated": truncated,
	}, "", "  ")
	if err != nil {
		return tools.Errorf("encode result failed"), nil
	}
	return &tools.Result{Content: string(payload)}, nil
}
