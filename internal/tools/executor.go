package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/haasonsaas/relay/internal/observability"
)

// Executor dispatches tool calls by name. It recovers panics from handlers
// and converts every failure mode into a failed result, so a misbehaving
// tool can never take down the invocation that called it.
type Executor struct {
	mu      sync.RWMutex
	tools   map[string]Tool
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewExecutor creates an executor with the given tools registered.
func NewExecutor(ts ...Tool) *Executor {
	e := &Executor{
		tools:  make(map[string]Tool),
		logger: slog.Default().With("component", "tools"),
	}
	for _, t := range ts {
		e.Register(t)
	}
	return e
}

// SetMetrics attaches a metrics sink. Nil is allowed and disables metrics.
func (e *Executor) SetMetrics(m *observability.Metrics) { e.metrics = m }

// Register adds a tool. A later registration under the same name replaces
// the earlier one.
func (e *Executor) Register(t Tool) {
	if t == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tools[t.Name()] = t
}

// Get returns the tool registered under name.
func (e *Executor) Get(name string) (Tool, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	t, ok := e.tools[name]
	return t, ok
}

// Names returns the registered tool names in sorted order.
func (e *Executor) Names() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	names := make([]string, 0, len(e.tools))
	for name := range e.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Execute runs one tool call and returns the result payload and whether it
// succeeded. Unknown tools, handler errors, and handler panics all come
// back as a failed result, never as a raised error.
func (e *Executor) Execute(ctx context.Context, name string, args json.RawMessage) (result string, ok bool) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("tool handler panicked", "tool", name)
			result, ok = fmt.Sprintf("tool %s failed internally", name), false
		}
		e.metrics.ObserveTool(name, ok, time.Since(start))
	}()

	tool, found := e.Get(name)
	if !found {
		return fmt.Sprintf("unknown tool: %s", name), false
	}
	if len(args) == 0 {
		args = json.RawMessage(`{}`)
	}

	res, err := tool.Execute(ctx, args)
	if err != nil {
		e.logger.Warn("tool execution failed", "tool", name, "elapsed", time.Since(start))
		return err.Error(), false
	}
	if res == nil {
		return fmt.Sprintf("tool %s returned no result", name), false
	}
	e.logger.Debug("tool executed", "tool", name, "ok", !res.IsError, "elapsed", time.Since(start))
	return res.Content, !res.IsError
}
