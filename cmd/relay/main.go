// Package main provides the relay CLI: run prompts against configured AI
// agent backends and stream the engine events they produce.
//
// # Basic Usage
//
// Run a prompt:
//
//	relay invoke --backend claude "summarize this repo"
//
// List configured backends and their capabilities:
//
//	relay backends
//
// Configuration is YAML (see --config); RELAY_CONFIG overrides the default
// path. Secrets are referenced as ${ENV_VAR} in the file.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var debug bool

	cmd := &cobra.Command{
		Use:           "relay",
		Short:         "Execution layer for interchangeable AI agent backends",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelInfo
			if debug {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
				Level: level,
			})))
		},
	}
	cmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "Enable debug logging")

	cmd.AddCommand(buildInvokeCmd())
	cmd.AddCommand(buildBackendsCmd())
	return cmd
}

// resolveConfigPath applies the RELAY_CONFIG override when the flag is left
// at its default.
func resolveConfigPath(flagValue string) string {
	if flagValue != defaultConfigPath {
		return flagValue
	}
	if env := os.Getenv("RELAY_CONFIG"); env != "" {
		return env
	}
	return flagValue
}
