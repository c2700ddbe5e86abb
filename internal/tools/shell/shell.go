// Package shell implements the sandbox shell tool: one command string run
// through the system shell with a fixed timeout and bounded output capture.
package shell

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/haasonsaas/relay/internal/procattr"
	"github.com/haasonsaas/relay/internal/tools"
	"github.com/haasonsaas/relay/internal/tools/files"
)

const (
	// defaultTimeout bounds a single command.
	defaultTimeout = 60 * time.Second
	// maxStreamBytes caps captured stdout and stderr, each.
	maxStreamBytes = 32 * 1024
)

// Config controls the shell tool.
type Config struct {
	// Root is the sandbox root used as the working directory.
	Root string
	// ExtraDirs are additional allowed working directories.
	ExtraDirs []string
	// Timeout overrides the default per-command timeout.
	Timeout time.Duration
}

// Tool runs shell commands inside the sandbox.
type Tool struct {
	resolver files.Resolver
	timeout  time.Duration
}

// New creates the shell tool.
func New(cfg Config) *Tool {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Tool{
		resolver: files.NewResolver(cfg.Root, cfg.ExtraDirs...),
		timeout:  timeout,
	}
}

func (t *Tool) Name() string { return "shell" }

func (t *Tool) Description() string {
	return "Run a shell command in the sandbox working directory with a fixed timeout."
}

func (t *Tool) Schema() json.RawMessage {
	return tools.MustSchema(map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"command": map[string]interface{}{
				"type":        "string",
				"description": "Shell command to execute.",
			},
			"cwd": map[string]interface{}{
				"type":        "string",
				"description": "Working directory (relative to the sandbox root).",
			},
		},
		"required": []string{"command"},
	})
}

// Execute runs the command and reports stdout, stderr, and the exit code.
// A timeout is reported distinctly from a non-zero exit.
func (t *Tool) Execute(ctx context.Context, params json.RawMessage) (*tools.Result, error) {
	var input struct {
		Command string `json:"command"`
		Cwd     string `json:"cwd"`
	}
	if err := json.Unmarshal(params, &input); err != nil {
		return tools.Errorf(fmt.Sprintf("invalid parameters: %v", err)), nil
	}
	command := strings.TrimSpace(input.Command)
	if command == "" {
		return tools.Errorf("command is required"), nil
	}

	cwd := strings.TrimSpace(input.Cwd)
	if cwd == "" {
		cwd = "."
	}
	dir, err := t.resolver.Resolve(cwd)
	if err != nil {
		return tools.Errorf(err.Error()), nil
	}

	runCtx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, "sh", "-c", command)
	cmd.Dir = dir
	// Commands fork freely; kill the whole group on timeout so descendants
	// holding the output pipes cannot stall Run past the deadline.
	procattr.Set(cmd)
	cmd.Cancel = func() error { return procattr.KillGroup(cmd.Process) }
	cmd.WaitDelay = 2 * time.Second
	stdout := newLimitedBuffer(maxStreamBytes)
	stderr := newLimitedBuffer(maxStreamBytes)
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	start := time.Now()
	runErr := cmd.Run()
	elapsed := time.Since(start)

	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return tools.Errorf(fmt.Sprintf("command timed out after %s", t.timeout)), nil
	}

	result := map[string]interface{}{
		"stdout":      stdout.String(),
		"stderr":      stderr.String(),
		"exit_code":   exitCode(runErr),
		"duration_ms": elapsed.Milliseconds(),
	}
	payload, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return tools.Errorf("encode result failed"), nil
	}
	if runErr != nil {
		return &tools.Result{Content: string(payload), IsError: true}, nil
	}
	return &tools.Result{Content: string(payload)}, nil
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

// limitedBuffer captures at most max bytes and discards the rest.
type limitedBuffer struct {
	mu        sync.Mutex
	buf       []byte
	max       int
	truncated bool
}

func newLimitedBuffer(max int) *limitedBuffer {
	return &limitedBuffer{max: max}
}

func (b *limitedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if remaining := b.max - len(b.buf); remaining > 0 {
		if len(p) > remaining {
			b.buf = append(b.buf, p[:remaining]...)
			b.truncated = true
		} else {
			b.buf = append(b.buf, p...)
		}
	} else if len(p) > 0 {
		b.truncated = true
	}
	return len(p), nil
}

func (b *limitedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.truncated {
		return string(b.buf) + "\n[output truncated]"
	}
	return string(b.buf)
}
