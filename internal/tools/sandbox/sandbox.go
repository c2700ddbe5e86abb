// Package sandbox assembles the standard tool set for an invocation:
// filesystem tools scoped to the allowed roots, the shell tool, and the
// web tools, filtered by the caller's allowlist.
package sandbox

import (
	"github.com/haasonsaas/relay/internal/tools"
	"github.com/haasonsaas/relay/internal/tools/files"
	"github.com/haasonsaas/relay/internal/tools/shell"
	"github.com/haasonsaas/relay/internal/tools/web"
)

// Config describes the sandbox for one invocation.
type Config struct {
	// Root is the primary sandbox root (the invocation working directory).
	Root string
	// ExtraDirs are additional directories tools may access.
	ExtraDirs []string
	// Enabled is the tool-name allowlist. Empty means no tools.
	Enabled []string
}

// New builds an executor with the configured tools registered. Tool names
// outside the standard set are ignored; callers discover what actually
// registered through Executor.Names.
func New(cfg Config) *tools.Executor {
	fileCfg := files.Config{Root: cfg.Root, ExtraDirs: cfg.ExtraDirs}

	available := map[string]func() tools.Tool{
		"read":   func() tools.Tool { return files.NewReadTool(fileCfg) },
		"write":  func() tools.Tool { return files.NewWriteTool(fileCfg) },
		"edit":   func() tools.Tool { return files.NewEditTool(fileCfg) },
		"list":   func() tools.Tool { return files.NewListTool(fileCfg) },
		"search": func() tools.Tool { return files.NewSearchTool(fileCfg) },
		"shell": func() tools.Tool {
			return shell.New(shell.Config{Root: cfg.Root, ExtraDirs: cfg.ExtraDirs})
		},
		"web_fetch":  func() tools.Tool { return web.NewFetchTool(nil) },
		"web_search": func() tools.Tool { return web.NewSearchTool() },
	}

	executor := tools.NewExecutor()
	for _, name := range cfg.Enabled {
		if build, ok := available[name]; ok {
			executor.Register(build())
		}
	}
	return executor
}

// StandardTools lists the tool names the sandbox can provide.
func StandardTools() []string {
	return []string{"read", "write", "edit", "list", "search", "shell", "web_fetch", "web_search"}
}
