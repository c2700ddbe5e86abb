// Package claudecli adapts the Claude Code CLI as a subprocess backend. The
// CLI emits stream-json envelopes; only assistant message text is visible,
// system and metadata frames are control traffic, and the result frame
// carries the final text plus the session handle used for --resume.
package claudecli

import (
	"encoding/base64"
	"encoding/json"

	"github.com/haasonsaas/relay/internal/engine"
	"github.com/haasonsaas/relay/internal/engine/subproc"
)

// Strategy implements subproc.Strategy for the claude CLI.
type Strategy struct{}

// New creates the claude strategy.
func New() *Strategy { return &Strategy{} }

func (s *Strategy) CommandName() string { return "claude" }

func (s *Strategy) DefaultModel() string { return "sonnet" }

func (s *Strategy) Capabilities() engine.CapabilitySet {
	return engine.NewCapabilitySet(
		engine.CapStreamingText,
		engine.CapSessions,
		engine.CapToolsFS,
		engine.CapToolsExec,
		engine.CapToolsWeb,
		engine.CapWorkspaceInstructions,
		engine.CapMCP,
	)
}

// OutputMode is always jsonl: the CLI is driven in stream-json mode so the
// session handle can be harvested from the result frame.
func (s *Strategy) OutputMode(p *engine.Params) subproc.OutputMode { return subproc.ModeJSONL }

func (s *Strategy) BuildArgs(p *engine.Params, sessionHandle string, promptViaStdin bool) []string {
	args := []string{"-p", "--output-format", "stream-json", "--verbose"}
	model := p.Model
	if model == "" {
		model = s.DefaultModel()
	}
	args = append(args, "--model", model)
	if sessionHandle != "" {
		args = append(args, "--resume", sessionHandle)
	}
	if promptViaStdin {
		args = append(args, "--input-format", "stream-json")
	} else {
		args = append(args, p.Prompt)
	}
	return args
}

// StdinPayload serializes the prompt and any images as one stream-json user
// message.
func (s *Strategy) StdinPayload(p *engine.Params) ([]byte, error) {
	type block map[string]interface{}
	content := []block{{"type": "text", "text": p.Prompt}}
	for _, img := range p.Images {
		content = append(content, block{
			"type": "image",
			"source": block{
				"type":       "base64",
				"media_type": img.MediaType,
				"data":       base64.StdEncoding.EncodeToString(img.Data),
			},
		})
	}
	return json.Marshal(block{
		"type": "user",
		"message": block{
			"role":    "user",
			"content": content,
		},
	})
}

// envelope is the outer stream-json frame.
type envelope struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
	Result    string `json:"result"`
	Message   struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	} `json:"message"`
}

// ParseLine interprets one stream-json frame. Assistant text blocks become
// deltas; the result frame is the final text and session handle; everything
// else is consumed silently.
func (s *Strategy) ParseLine(line []byte) (subproc.Parsed, error) {
	var env envelope
	if err := json.Unmarshal(line, &env); err != nil {
		return subproc.Parsed{}, err
	}
	switch env.Type {
	case "assistant":
		var delta string
		for _, block := range env.Message.Content {
			if block.Type == "text" {
				delta += block.Text
			}
		}
		return subproc.Parsed{Delta: delta}, nil
	case "result":
		return subproc.Parsed{Final: &subproc.FinalResult{
			Text:          env.Result,
			SessionHandle: env.SessionID,
		}}, nil
	case "system":
		// The init frame announces the session id before any output.
		return subproc.Parsed{Handle: env.SessionID}, nil
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
