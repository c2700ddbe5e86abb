// Package subproc runs command-line agent backends. One runner owns the
// spawn/stream/terminate lifecycle; everything backend-specific lives in a
// Strategy value, so new CLI backends implement only the Strategy contract
// and never duplicate process handling.
package subproc

import (
	"github.com/haasonsaas/relay/internal/engine"
)

// OutputMode selects how the runner interprets subprocess stdout.
type OutputMode string

const (
	// ModeText streams raw stdout bytes as text deltas and emits the whole
	// buffer as the final text at exit.
	ModeText OutputMode = "text"
	// ModeJSONL parses stdout line-by-line through the Strategy's ParseLine.
	ModeJSONL OutputMode = "jsonl"
)

// FinalResult is the terminal frame of a structured stream.
type FinalResult struct {
	// Text is the authoritative response text. Empty means the accumulated
	// deltas stand.
	Text string
	// SessionHandle is the backend-native resumption handle, if any.
	SessionHandle string
}

// Parsed is the outcome of parsing one stdout line in jsonl mode. The zero
// value means a control frame that is consumed silently.
type Parsed struct {
	// Delta is incremental visible text.
	Delta string
	// Handle is a resumption handle discovered mid-stream.
	Handle string
	// Final marks the stream's terminal result frame.
	Final *FinalResult
}

// Strategy is the per-backend policy consumed by the runner. Implementations
// must be stateless; one value serves all invocations.
type Strategy interface {
	// CommandName returns the default binary name.
	CommandName() string

	// DefaultModel returns the model used when the caller does not pick one.
	DefaultModel() string

	// Capabilities returns the backend's declared feature set.
	Capabilities() engine.CapabilitySet

	// OutputMode selects text or jsonl interpretation for this invocation.
	// The runner forces jsonl when images are attached.
	OutputMode(p *engine.Params) OutputMode

	// BuildArgs returns the argv tail. sessionHandle is the cached
	// resumption handle ("" for a fresh run); promptViaStdin reports that
	// the prompt arrives on stdin and must not appear as an argument.
	BuildArgs(p *engine.Params, sessionHandle string, promptViaStdin bool) []string

	// StdinPayload serializes the prompt (and images) for stdin delivery.
	// A nil payload falls back to the raw prompt text.
	StdinPayload(p *engine.Params) ([]byte, error)

	// ParseLine interprets one stdout line in jsonl mode. Unrecognized
	// frames return the zero Parsed and a nil error.
	ParseLine(line []byte) (Parsed, error)

	// SanitizeError converts captured stderr and an exit code into a
	// caller-safe message. It must never return prompt text, command lines,
	// or paths outside the sandbox roots.
	SanitizeError(stderr string, exitCode int) string

	// ClassifySpawnError converts a process start failure into a safe
	// message, distinguishing a missing binary from other failures.
	ClassifySpawnError(err error) string
}
