package files

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/haasonsaas/relay/internal/tools"
)

const (
	// maxSearchMatches bounds the number of returned matches.
	maxSearchMatches = 100
	// maxSearchFileSize skips files larger than this.
	maxSearchFileSize = 1 << 20
	// maxMatchLineLen truncates long matching lines.
	maxMatchLineLen = 400
)

// SearchTool searches file contents under a sandbox directory with a
// regular expression.
type SearchTool struct {
	resolver Resolver
}

// NewSearchTool creates a content search tool scoped to the sandbox roots.
func NewSearchTool(cfg Config) *SearchTool {
	return &SearchTool{resolver: cfg.resolver()}
}

func (t *SearchTool) Name() string { return "search" }

func (t *SearchTool) Description() string {
	return "Search file contents under a sandbox directory with a regular expression."
}

func (t *SearchTool) Schema() json.RawMessage {
	return tools.MustSchema(map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"pattern": map[string]interface{}{
				"type":        "string",
				"description": "Go regular expression to search for.",
			},
			"path": map[string]interface{}{
				"type":        "string",
				"description": "Directory to search (default: the sandbox root).",
			},
		},
		"required": []string{"pattern"},
	})
}

// Execute walks the directory and reports matching lines.
func (t *SearchTool) Execute(ctx context.Context, params json.RawMessage) (*tools.Result, error) {
	var input struct {
		Pattern string `json:"pattern"`
		Path    string `json:"path"`
	}
	if err := json.Unmarshal(params, &input); err != nil {
		return tools.Errorf(fmt.Sprintf("invalid parameters: %v", err)), nil
	}
	if strings.TrimSpace(input.Pattern) == "" {
		return tools.Errorf("pattern is required"), nil
	}
	re, err := regexp.Compile(input.Pattern)
	if err != nil {
		return tools.Errorf(fmt.Sprintf("invalid pattern: %v", err)), nil
	}

	dir := strings.TrimSpace(input.Path)
	if dir == "" {
		dir = "."
	}
	resolved, err := t.resolver.Resolve(dir)
	if err != nil {
		return tools.Errorf(err.Error()), nil
	}

	type match struct {
		Path string `json:"path"`
		Line int    `json:"line"`
		Text string `json:"text"`
	}
	var matches []match
	truncated := false

	walkErr := filepath.WalkDir(resolved, func(path string, de fs.DirEntry, err error) error {
		if err != nil {
			return nil // skip unreadable entries
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if de.IsDir() {
			if name := de.Name(); name == ".git" || name == "node_modules" {
				return filepath.SkipDir
			}
			return nil
		}
		if info, err := de.Info(); err != nil || info.Size() > maxSearchFileSize {
			return nil
		}
		file, err := os.Open(path)
		if err != nil {
			return nil
		}
		defer file.Close()

		rel, err := filepath.Rel(resolved, path)
		if err != nil {
			rel = de.Name()
		}

		scanner := bufio.NewScanner(file)
		scanner.Buffer(make([]byte, 0, 64*1024), maxSearchFileSize)
		lineNo := 0
		for scanner.Scan() {
			lineNo++
			line := scanner.Text()
			if !re.MatchString(line) {
				continue
			}
			if len(line) > maxMatchLineLen {
				line = line[:maxMatchLineLen] + "..."
			}
			matches = append(matches, match{Path: rel, Line: lineNo, Text: line})
			if len(matches) >= maxSearchMatches {
				truncated = true
				return filepath.SkipAll
			}
		}
		return nil
	})
	if walkErr != nil && ctx.Err() != nil {
		return tools.Errorf("search cancelled"), nil
	}

	payload, err := json.MarshalIndent(map[string]interface{}{
		"pattern":   input.Pattern,
		"matches":   matches,
		"truncated": truncated,
	}, "", "  ")
	if err != nil {
		return tools.Errorf("encode result failed"), nil
	}
	return &tools.Result{Content: string(payload)}, nil
}
