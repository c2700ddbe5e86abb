// Package geminicli adapts the Gemini CLI as a single-shot plain-text
// subprocess backend: stdout streams through as deltas, the whole buffer is
// the final text, and no session is kept between calls.
package geminicli

import (
	"github.com/haasonsaas/relay/internal/engine"
	"github.com/haasonsaas/relay/internal/engine/subproc"
)

// Strategy implements subproc.Strategy for the gemini CLI.
type Strategy struct{}

// New creates the gemini strategy.
func New() *Strategy { return &Strategy{} }

func (s *Strategy) CommandName() string { return "gemini" }

func (s *Strategy) DefaultModel() string { return "gemini-2.5-pro" }

func (s *Strategy) Capabilities() engine.CapabilitySet {
	return engine.NewCapabilitySet(
		engine.CapStreamingText,
		engine.CapWorkspaceInstructions,
	)
}

func (s *Strategy) OutputMode(p *engine.Params) subproc.OutputMode { return subproc.ModeText }

func (s *Strategy) BuildArgs(p *engine.Params, sessionHandle string, promptViaStdin bool) []string {
	var args []string
	if p.Model != "" {
		args = append(args, "-m", p.Model)
	}
	if !promptViaStdin {
		args = append(args, "-p", p.Prompt)
	}
	return args
}

// StdinPayload is nil: with no prompt argument the CLI reads stdin.
func (s *Strategy) StdinPayload(p *engine.Params) ([]byte, error) { return nil, nil }

// ParseLine is unused in text mode.
func (s *Strategy) ParseLine(line []byte) (subproc.Parsed, error) {
	return subproc.Parsed{}, nil
}

func (s *Strategy) SanitizeError(stderr string, exitCode int) string {
	return subproc.DefaultSanitizeError(stderr, exitCode)
}

func (s *Strategy) ClassifySpawnError(err error) string {
	return subproc.DefaultClassifySpawnError(s.CommandName(), err)
}
