package httpchat

import (
	"bufio"
	"errors"
	"io"
	"strings"
)

// doneSentinel is the literal terminator of a chat-completion event stream.
const doneSentinel = "[DONE]"

// parseSSE reads an event-stream body and calls emit for every data payload
// before the [DONE] terminator. Framing rules:
//   - only "data:" lines carry payloads; the space after the colon is
//     optional; other lines (comments, event names, blanks) are skipped
//   - a missing [DONE] terminator does not fail the stream; EOF completes it
//   - trailing buffered data without a final newline is still parsed
func parseSSE(r io.Reader, emit func(data string) error) error {
	reader := bufio.NewReader(r)
	for {
		line, err := reader.ReadString('\n')
		if line != "" {
			payload, ok := dataPayload(line)
			if ok {
				if payload == doneSentinel {
					return nil
				}
				if emitErr := emit(payload); emitErr != nil {
					return emitErr
				}
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
	}
}

// dataPayload extracts the payload of one "data:" line.
func dataPayload(line string) (string, bool) {
	line = strings.TrimRight(line, "\r\n")
	rest, ok := strings.CutPrefix(line, "data:")
	if !ok {
		return "", false
	}
	rest = strings.TrimPrefix(rest, " ")
	if rest == "" {
		return "", false
	}
	return rest, true
}
