package subproc

import (
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// maxErrorLen caps sanitized error messages.
const maxErrorLen = 200

// injectionMarkers are substrings that indicate stderr has started echoing
// the invocation itself (binary flags, positional separators). Everything
// from the first marker on is dropped.
var injectionMarkers = []string{
	" -- ",
	" -p ",
	"--prompt",
	"usage:",
	"Usage:",
}

// SanitizeStderr reduces captured stderr to its first non-empty line,
// stripped of anything after a detected injection marker and capped in
// length. Returns "" when stderr carries nothing usable.
func SanitizeStderr(stderr string) string {
	for _, line := range strings.Split(stderr, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		for _, marker := range injectionMarkers {
			if idx := strings.Index(line, marker); idx >= 0 {
				line = strings.TrimSpace(line[:idx])
			}
		}
		if line == "" {
			return ""
		}
		if len(line) > maxErrorLen {
			line = line[:maxErrorLen]
		}
		return line
	}
	return ""
}

// DefaultSanitizeError is the SanitizeError most strategies delegate to:
// first usable stderr line, or a generic exit-code message.
func DefaultSanitizeError(stderr string, exitCode int) string {
	if msg := SanitizeStderr(stderr); msg != "" {
		return msg
	}
	return fmt.Sprintf("exited with code %d", exitCode)
}

// DefaultClassifySpawnError distinguishes a missing binary from other start
// failures without leaking the raw OS error, which may embed the command
// line.
func DefaultClassifySpawnError(command string, err error) string {
	if errors.Is(err, exec.ErrNotFound) {
		return fmt.Sprintf("%s is not installed", command)
	}
	return fmt.Sprintf("%s failed to start", command)
}
