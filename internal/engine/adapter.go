package engine

import (
	"context"
	"time"
)

// Capability is a declared backend feature. Callers must check capabilities
// before relying on session resumption, tool execution, or image input;
// capabilities are declarative and never emulated.
type Capability string

const (
	// CapStreamingText means the backend produces incremental text deltas.
	CapStreamingText Capability = "streaming_text"
	// CapSessions means the backend can resume a conversation identified by
	// a session key.
	CapSessions Capability = "sessions"
	// CapToolsFS means the backend may execute filesystem tools.
	CapToolsFS Capability = "tools_fs"
	// CapToolsExec means the backend may execute shell commands.
	CapToolsExec Capability = "tools_exec"
	// CapToolsWeb means the backend may perform outbound web requests.
	CapToolsWeb Capability = "tools_web"
	// CapWorkspaceInstructions means the backend reads workspace-level
	// instruction files from the working directory.
	CapWorkspaceInstructions Capability = "workspace_instructions"
	// CapMCP means the backend speaks the Model Context Protocol.
	CapMCP Capability = "mcp"
)

// CapabilitySet is the set of features a backend declares.
type CapabilitySet map[Capability]bool

// NewCapabilitySet builds a set from the given capabilities.
func NewCapabilitySet(caps ...Capability) CapabilitySet {
	set := make(CapabilitySet, len(caps))
	for _, c := range caps {
		set[c] = true
	}
	return set
}

// Has reports whether the capability is declared.
func (s CapabilitySet) Has(c Capability) bool { return s[c] }

// List returns the declared capabilities in the fixed vocabulary order.
func (s CapabilitySet) List() []Capability {
	order := []Capability{
		CapStreamingText, CapSessions, CapToolsFS, CapToolsExec,
		CapToolsWeb, CapWorkspaceInstructions, CapMCP,
	}
	out := make([]Capability, 0, len(s))
	for _, c := range order {
		if s[c] {
			out = append(out, c)
		}
	}
	return out
}

// Image is an attachment passed to backends that accept image input.
type Image struct {
	// MediaType is the MIME type, e.g. "image/png".
	MediaType string
	// Data is the raw image bytes.
	Data []byte
}

// Params carries everything a single invocation needs.
type Params struct {
	// Prompt is the user request. Never logged and never embedded in error
	// messages.
	Prompt string

	// Model selects the backend model. Empty means the backend default.
	Model string

	// WorkDir is the working directory for subprocess backends and the
	// first sandbox root for tool execution.
	WorkDir string

	// ExtraDirs are additional directories tools may access.
	ExtraDirs []string

	// Tools is the allowlist of tool names offered to tool-capable
	// backends. Empty disables tool execution.
	Tools []string

	// MaxTokens caps the response length. Zero means backend default.
	MaxTokens int

	// Timeout bounds the whole invocation. Zero means no limit.
	Timeout time.Duration

	// SessionKey identifies a resumable conversation. Opaque to the
	// engine; distinct keys never share backend session state.
	SessionKey string

	// SessionID is an explicit low-level backend session or thread id,
	// used by backends with externally managed sessions.
	SessionID string

	// Images are attachments for image-capable backends.
	Images []Image
}

// Adapter is one concrete execution backend.
//
// Invoke starts one invocation and returns its event stream. The stream is
// lazy, forward-only and single-consumer; it always terminates with exactly
// one done event. An error return means the invocation could not start at
// all and no stream exists.
type Adapter interface {
	// ID returns the immutable backend identifier, e.g. "claude" or
	// "openai".
	ID() string

	// Capabilities returns the backend's declared feature set.
	Capabilities() CapabilitySet

	// Invoke runs one request and streams engine events.
	Invoke(ctx context.Context, p *Params) (<-chan Event, error)
}
