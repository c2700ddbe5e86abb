// handlers.go implements the command handlers: config loading, registry
// assembly, event consumption, and graceful shutdown of subprocesses.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/haasonsaas/relay/internal/config"
	"github.com/haasonsaas/relay/internal/engine"
	"github.com/haasonsaas/relay/internal/engine/subproc"
	"github.com/haasonsaas/relay/internal/observability"
)

type invokeOptions struct {
	configPath string
	backend    string
	model      string
	workDir    string
	extraDirs  []string
	tools      []string
	maxTokens  int
	timeout    time.Duration
	sessionKey string
	asJSON     bool
	args       []string
}

func runInvoke(ctx context.Context, opts invokeOptions) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}

	procs := subproc.NewProcessRegistry()
	registry, err := config.BuildRegistry(cfg, procs, observability.NewMetrics())
	if err != nil {
		return err
	}

	adapter, err := registry.Get(opts.backend)
	if err != nil {
		return err
	}

	prompt, err := readPrompt(opts.args)
	if err != nil {
		return err
	}

	workDir := opts.workDir
	if workDir == "" {
		if workDir, err = os.Getwd(); err != nil {
			return fmt.Errorf("resolve working directory: %w", err)
		}
	}

	// Ctrl-C cancels the invocation; in-flight subprocesses are force-killed
	// before exit.
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	defer func() {
		if killed := procs.KillAll(); killed > 0 {
			slog.Default().Info("killed in-flight subprocesses", "count", killed)
		}
	}()

	extraDirs := append([]string(nil), cfg.Sandbox.ExtraDirs...)
	extraDirs = append(extraDirs, opts.extraDirs...)

	events, err := adapter.Invoke(ctx, &engine.Params{
		Prompt:     prompt,
		Model:      opts.model,
		WorkDir:    workDir,
		ExtraDirs:  extraDirs,
		Tools:      opts.tools,
		MaxTokens:  opts.maxTokens,
		Timeout:    opts.timeout,
		SessionKey: opts.sessionKey,
	})
	if err != nil {
		return err
	}

	return printEvents(events, opts.asJSON)
}

// printEvents consumes the stream until done, rendering for a terminal or as
// JSON lines. A terminal error event becomes the process exit error.
func printEvents(events <-chan engine.Event, asJSON bool) error {
	enc := json.NewEncoder(os.Stdout)
	var failure error
	sawFinal := false

	for ev := range events {
		if asJSON {
			if err := enc.Encode(ev); err != nil {
				return err
			}
			if ev.Type == engine.EventError {
				failure = fmt.Errorf("%s", ev.Message)
			}
			continue
		}

		switch ev.Type {
		case engine.EventTextDelta:
			// Deltas render live; the final text supersedes them, so a
			// newline separates the two renderings when both appear.
			fmt.Print(ev.Text)
		case engine.EventTextFinal:
			if !sawFinal {
				fmt.Print("\n")
			}
			sawFinal = true
			fmt.Println(ev.Text)
		case engine.EventToolStart:
			fmt.Fprintf(os.Stderr, "[tool %s started]\n", ev.ToolName)
		case engine.EventToolEnd:
			outcome := "ok"
			if !ev.ToolOK {
				outcome = "failed"
			}
			fmt.Fprintf(os.Stderr, "[tool %s %s]\n", ev.ToolName, outcome)
		case engine.EventError:
			failure = fmt.Errorf("%s", ev.Message)
		case engine.EventDone:
		}
	}
	return failure
}

func runBackends(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	registry, err := config.BuildRegistry(cfg, subproc.NewProcessRegistry(), nil)
	if err != nil {
		return err
	}

	for _, name := range registry.List() {
		adapter, err := registry.Get(name)
		if err != nil {
			continue
		}
		caps := adapter.Capabilities().List()
		labels := make([]string, 0, len(caps))
		for _, c := range caps {
			labels = append(labels, string(c))
		}
		fmt.Printf("%-12s %s\n", name, strings.Join(labels, ", "))
	}
	return nil
}

// readPrompt takes the prompt from the argument or, when omitted, stdin.
func readPrompt(args []string) (string, error) {
	if len(args) == 1 && strings.TrimSpace(args[0]) != "" {
		return args[0], nil
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("read prompt from stdin: %w", err)
	}
	prompt := strings.TrimSpace(string(data))
	if prompt == "" {
		return "", fmt.Errorf("prompt is required (argument or stdin)")
	}
	return prompt, nil
}
