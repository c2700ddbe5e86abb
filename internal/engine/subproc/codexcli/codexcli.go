// Package codexcli adapts the Codex CLI as a subprocess backend. Unlike the
// ephemeral-per-call claude runs, codex keeps a long-lived thread that is
// resumed externally: the thread id arrives in the thread.started frame and
// later calls pass it back through `exec resume`.
package codexcli

import (
	"encoding/json"

	"github.com/haasonsaas/relay/internal/engine"
	"github.com/haasonsaas/relay/internal/engine/subproc"
)

// Strategy implements subproc.Strategy for the codex CLI.
type Strategy struct{}

// New creates the codex strategy.
func New() *Strategy { return &Strategy{} }

func (s *Strategy) CommandName() string { return "codex" }

func (s *Strategy) DefaultModel() string { return "gpt-5-codex" }

func (s *Strategy) Capabilities() engine.CapabilitySet {
	return engine.NewCapabilitySet(
		engine.CapStreamingText,
		engine.CapSessions,
		engine.CapToolsFS,
		engine.CapToolsExec,
		engine.CapWorkspaceInstructions,
		engine.CapMCP,
	)
}

func (s *Strategy) OutputMode(p *engine.Params) subproc.OutputMode { return subproc.ModeJSONL }

func (s *Strategy) BuildArgs(p *engine.Params, sessionHandle string, promptViaStdin bool) []string {
	args := []string{"exec"}
	if sessionHandle != "" {
		args = append(args, "resume", sessionHandle)
	}
	args = append(args, "--json")
	if p.Model != "" {
		args = append(args, "--model", p.Model)
	}
	if promptViaStdin {
		// "-" makes codex read the prompt from stdin.
		args = append(args, "-")
	} else {
		args = append(args, p.Prompt)
	}
	return args
}

// StdinPayload is nil: codex takes the raw prompt on stdin.
func (s *Strategy) StdinPayload(p *engine.Params) ([]byte, error) { return nil, nil }

type frame struct {
	Type     string `json:"type"`
	ThreadID string `json:"thread_id"`
	Item     struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"item"`
}

// ParseLine interprets one codex jsonl frame. thread.started yields the
// resumption handle, completed agent messages yield text, turn.completed
// closes the stream with the accumulated text standing as final.
func (s *Strategy) ParseLine(line []byte) (subproc.Parsed, error) {
	var f frame
	if err := json.Unmarshal(line, &f); err != nil {
		return subproc.Parsed{}, err
	}
	switch f.Type {
	case "thread.started":
		return subproc.Parsed{Handle: f.ThreadID}, nil
	case "item.completed":
		if f.Item.Type == "agent_message" {
			return subproc.Parsed{Delta: f.Item.Text}, nil
		}
		return subproc.Parsed{}, nil
	case "turn.completed":
		return subproc.Parsed{Final: &subproc.FinalResult{}}, nil
	default:
		return subproc.Parsed{}, nil
	}
}

func (s *Strategy) SanitizeError(stderr string, exitCode int) string {
	return subproc.DefaultSanitizeError(stderr, exitCode)
}

func (s *Strategy) ClassifySpawnError(err error) string {
	return subproc.DefaultClassifySpawnError(s.CommandName(), err)
}
