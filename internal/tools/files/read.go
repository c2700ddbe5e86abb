package files

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/haasonsaas/relay/internal/tools"
)

// Config controls filesystem tool defaults.
type Config struct {
	// Root is the primary sandbox root; relative paths resolve against it.
	Root string
	// ExtraDirs are additional allowed roots.
	ExtraDirs []string
	// MaxReadBytes caps a single read (default 200000).
	MaxReadBytes int
}

func (c Config) resolver() Resolver {
	return NewResolver(c.Root, c.ExtraDirs...)
}

// ReadTool implements a bounded file reader.
type ReadTool struct {
	resolver   Resolver
	maxReadLen int
}

// NewReadTool creates a read tool scoped to the sandbox roots.
func NewReadTool(cfg Config) *ReadTool {
	limit := cfg.MaxReadBytes
	if limit <= 0 {
		limit = 200000
	}
	return &ReadTool{resolver: cfg.resolver(), maxReadLen: limit}
}

func (t *ReadTool) Name() string { return "read" }

func (t *ReadTool) Description() string {
	return "Read a file from the sandbox with optional offset and byte limit."
}

func (t *ReadTool) Schema() json.RawMessage {
	return tools.MustSchema(map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"path": map[string]interface{}{
				"type":        "string",
				"description": "Path to the file (relative to the sandbox root).",
			},
			"offset": map[string]interface{}{
				"type":        "integer",
				"description": "Byte offset to start reading from (default: 0).",
				"minimum":     0,
			},
			"max_bytes": map[string]interface{}{
				"type":        "integer",
				"description": "Maximum bytes to read (capped by tool default).",
				"minimum":     0,
			},
		},
		"required": []string{"path"},
	})
}

// Execute reads a file with safety limits.
func (t *ReadTool) Execute(ctx context.Context, params json.RawMessage) (*tools.Result, error) {
	_ = ctx
	var input struct {
		Path     string `json:"path"`
		Offset   int64  `json:"offset"`
		MaxBytes int    `json:"max_bytes"`
	}
	if err := json.Unmarshal(params, &input); err != nil {
		return tools.Errorf(fmt.Sprintf("invalid parameters: %v", err)), nil
	}
	if strings.TrimSpace(input.Path) == "" {
		return tools.Errorf("path is required"), nil
	}
	if input.Offset < 0 {
		return tools.Errorf("offset must be >= 0"), nil
	}

	resolved, err := t.resolver.Resolve(input.Path)
	if err != nil {
		return tools.Errorf(err.Error()), nil
	}

	file, err := os.Open(resolved)
	if err != nil {
		return tools.Errorf(fmt.Sprintf("open %s: %v", input.Path, openErrReason(err))), nil
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return tools.Errorf(fmt.Sprintf("stat %s failed", input.Path)), nil
	}
	if input.Offset > 0 {
		if _, err := file.Seek(input.Offset, io.SeekStart); err != nil {
			return tools.Errorf(fmt.Sprintf("seek %s failed", input.Path)), nil
		}
	}

	limit := t.maxReadLen
	if input.MaxBytes > 0 && input.MaxBytes < limit {
		limit = input.MaxBytes
	}

	buf, err := io.ReadAll(io.LimitReader(file, int64(limit)))
	if err != nil {
		return tools.Errorf(fmt.Sprintf("read %s failed", input.Path)), nil
	}

	truncated := input.Offset+int64(len(buf)) < info.Size()

	payload, err := json.MarshalIndent(map[string]interface{}{
		"path":      input.Path,
		"content":   string(buf),
		"offset":    input.Offset,
		"bytes":     len(buf),
		"truncated": truncated,
	}, "", "  ")
	if err != nil {
		return tools.Errorf("encode result failed"), nil
	}
	return &tools.Result{Content: string(payload)}, nil
}

// openErrReason strips OS path detail out of open errors, keeping only the
// coarse reason.
func openErrReason(err error) string {
	switch {
	case os.IsNotExist(err):
		return "no such file"
	case os.IsPermission(err):
		return "permission denied"
	default:
		return "cannot open"
	}
}
