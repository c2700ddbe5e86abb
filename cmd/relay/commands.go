// commands.go contains the cobra command definitions and their flag wiring.
// Each builder creates a command and delegates to its handler.
package main

import (
	"time"

	"github.com/spf13/cobra"
)

const defaultConfigPath = "relay.yaml"

func buildInvokeCmd() *cobra.Command {
	var (
		configPath string
		backend    string
		model      string
		workDir    string
		extraDirs  []string
		toolNames  []string
		maxTokens  int
		timeout    time.Duration
		sessionKey string
		asJSON     bool
	)

	cmd := &cobra.Command{
		Use:   "invoke [prompt]",
		Short: "Run a prompt against a backend and stream its events",
		Long: `Run a single prompt against a configured backend.

The prompt is taken from the argument, or from stdin when omitted. Events
stream to stdout as they arrive: text deltas, tool executions, and the final
text. With --json every engine event is printed as one JSON line instead.`,
		Example: `  # Ask the claude backend
  relay invoke --backend claude "explain this stack trace"

  # Pipe a large prompt via stdin with tools enabled
  git diff | relay invoke --backend openai --tools read,search

  # Resume a conversation
  relay invoke --backend claude --session ticket-42 "and the second file?"`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInvoke(cmd.Context(), invokeOptions{
				configPath: resolveConfigPath(configPath),
				backend:    backend,
				model:      model,
				workDir:    workDir,
				extraDirs:  extraDirs,
				tools:      toolNames,
				maxTokens:  maxTokens,
				timeout:    timeout,
				sessionKey: sessionKey,
				asJSON:     asJSON,
				args:       args,
			})
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "Path to YAML configuration file")
	cmd.Flags().StringVarP(&backend, "backend", "b", "", "Backend name (required)")
	cmd.Flags().StringVarP(&model, "model", "m", "", "Model override (default: backend default)")
	cmd.Flags().StringVarP(&workDir, "dir", "C", "", "Working directory (default: current directory)")
	cmd.Flags().StringSliceVar(&extraDirs, "extra-dir", nil, "Additional directory tools may access (repeatable)")
	cmd.Flags().StringSliceVar(&toolNames, "tools", nil, "Tool allowlist for tool-capable backends")
	cmd.Flags().IntVar(&maxTokens, "max-tokens", 0, "Response token cap (0 = backend default)")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Minute, "Invocation timeout")
	cmd.Flags().StringVar(&sessionKey, "session", "", "Session key for backends that support resumption")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print raw engine events as JSON lines")
	cmd.MarkFlagRequired("backend")

	return cmd
}

func buildBackendsCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "backends",
		Short: "List configured backends and their capabilities",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBackends(resolveConfigPath(configPath))
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "Path to YAML configuration file")
	return cmd
}
