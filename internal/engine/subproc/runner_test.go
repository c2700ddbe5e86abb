package subproc

import (
	"context"
	"encoding/json"
	"io"
	"os/exec"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/haasonsaas/relay/internal/engine"
	"github.com/haasonsaas/relay/internal/procattr"
)

// fakeStrategy drives the runner through a shell script, recording the
// session handle each BuildArgs call receives.
type fakeStrategy struct {
	command string
	mode    OutputMode
	script  string
	caps    engine.CapabilitySet

	mu      sync.Mutex
	handles []string
}

func (f *fakeStrategy) CommandName() string  { return f.command }
func (f *fakeStrategy) DefaultModel() string { return "fake-model" }

func (f *fakeStrategy) Capabilities() engine.CapabilitySet {
	if f.caps != nil {
		return f.caps
	}
	return engine.NewCapabilitySet(engine.CapStreamingText)
}

func (f *fakeStrategy) OutputMode(p *engine.Params) OutputMode { return f.mode }

func (f *fakeStrategy) BuildArgs(p *engine.Params, sessionHandle string, promptViaStdin bool) []string {
	f.mu.Lock()
	f.handles = append(f.handles, sessionHandle)
	f.mu.Unlock()
	if f.script == "" {
		return nil
	}
	return []string{"-c", f.script}
}

func (f *fakeStrategy) StdinPayload(p *engine.Params) ([]byte, error) { return nil, nil }

func (f *fakeStrategy) ParseLine(line []byte) (Parsed, error) {
	var frame struct {
		Delta  string `json:"delta"`
		Handle string `json:"handle"`
		Final  string `json:"final"`
		IsEnd  bool   `json:"is_end"`
	}
	if err := json.Unmarshal(line, &frame); err != nil {
		return Parsed{}, err
	}
	p := Parsed{Delta: frame.Delta, Handle: frame.Handle}
	if frame.IsEnd {
		p.Final = &FinalResult{Text: frame.Final}
	}
	return p, nil
}

func (f *fakeStrategy) SanitizeError(stderr string, exitCode int) string {
	return DefaultSanitizeError(stderr, exitCode)
}

func (f *fakeStrategy) ClassifySpawnError(err error) string {
	return DefaultClassifySpawnError(f.command, err)
}

func (f *fakeStrategy) recordedHandles() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.handles...)
}

func collect(t *testing.T, ch <-chan engine.Event) []engine.Event {
	t.Helper()
	var events []engine.Event
	deadline := time.After(10 * time.Second)
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return events
			}
			events = append(events, ev)
		case <-deadline:
			t.Fatalf("stream did not finish; got %d events", len(events))
		}
	}
}

func assertTerminated(t *testing.T, events []engine.Event) {
	t.Helper()
	if len(events) == 0 {
		t.Fatal("empty stream")
	}
	doneCount := 0
	for _, ev := range events {
		if ev.Type == engine.EventDone {
			doneCount++
		}
	}
	if doneCount != 1 {
		t.Fatalf("done count = %d, want 1", doneCount)
	}
	if events[len(events)-1].Type != engine.EventDone {
		t.Fatalf("last event = %s, want done", events[len(events)-1].Type)
	}
}

func TestTextModeStreamsAndFinalizes(t *testing.T) {
	strat := &fakeStrategy{command: "sh", mode: ModeText, script: `printf 'hello world'`}
	a := New("fake", strat)

	ch, err := a.Invoke(context.Background(), &engine.Params{Prompt: "hi"})
	if err != nil {
		t.Fatal(err)
	}
	events := collect(t, ch)
	assertTerminated(t, events)

	var deltas strings.Builder
	var final string
	for _, ev := range events {
		switch ev.Type {
		case engine.EventTextDelta:
			deltas.WriteString(ev.Text)
		case engine.EventTextFinal:
			final = ev.Text
		case engine.EventError:
			t.Fatalf("unexpected error event: %s", ev.Message)
		}
	}
	if deltas.String() != "hello world" || final != "hello world" {
		t.Errorf("deltas = %q, final = %q", deltas.String(), final)
	}
}

func TestStderrIsSanitizedOnFailure(t *testing.T) {
	strat := &fakeStrategy{
		command: "sh",
		mode:    ModeText,
		script:  `printf 'auth token expired\nfull prompt: secret stuff\nsession: /tmp/x\n' >&2; exit 1`,
	}
	a := New("fake", strat)

	ch, err := a.Invoke(context.Background(), &engine.Params{Prompt: "secret stuff"})
	if err != nil {
		t.Fatal(err)
	}
	events := collect(t, ch)
	assertTerminated(t, events)

	var errs []string
	for _, ev := range events {
		if ev.Type == engine.EventError {
			errs = append(errs, ev.Message)
		}
	}
	if len(errs) != 1 || errs[0] != "auth token expired" {
		t.Errorf("errors = %q, want exactly [\"auth token expired\"]", errs)
	}
}

func TestJSONLFinalSupersedesDeltas(t *testing.T) {
	strat := &fakeStrategy{
		command: "sh",
		mode:    ModeJSONL,
		script: `printf '%s\n%s\n%s\n' ` +
			`'{"delta":"partial "}' ` +
			`'{"delta":"text"}' ` +
			`'{"is_end":true,"final":"authoritative text"}'`,
	}
	a := New("fake", strat)

	ch, err := a.Invoke(context.Background(), &engine.Params{Prompt: "hi"})
	if err != nil {
		t.Fatal(err)
	}
	events := collect(t, ch)
	assertTerminated(t, events)

	var deltas []string
	var final string
	for _, ev := range events {
		switch ev.Type {
		case engine.EventTextDelta:
			deltas = append(deltas, ev.Text)
		case engine.EventTextFinal:
			final = ev.Text
		}
	}
	if len(deltas) != 2 {
		t.Errorf("deltas = %q, want 2", deltas)
	}
	if final != "authoritative text" {
		t.Errorf("final = %q, want the result frame text", final)
	}
}

func TestSessionHandleReuse(t *testing.T) {
	strat := &fakeStrategy{
		command: "sh",
		mode:    ModeJSONL,
		script:  `printf '{"handle":"h1","delta":"ok"}\n'`,
		caps:    engine.NewCapabilitySet(engine.CapStreamingText, engine.CapSessions),
	}
	a := New("fake", strat)

	invoke := func(key string) {
		ch, err := a.Invoke(context.Background(), &engine.Params{Prompt: "hi", SessionKey: key})
		if err != nil {
			t.Fatal(err)
		}
		assertTerminated(t, collect(t, ch))
	}

	invoke("conv-1")
	invoke("conv-1")
	invoke("conv-2")

	handles := strat.recordedHandles()
	want := []string{"", "h1", ""}
	if len(handles) != len(want) {
		t.Fatalf("handles = %q", handles)
	}
	for i := range want {
		if handles[i] != want[i] {
			t.Errorf("call %d handle = %q, want %q", i, handles[i], want[i])
		}
	}
}

func TestExplicitSessionIDWins(t *testing.T) {
	strat := &fakeStrategy{
		command: "sh",
		mode:    ModeJSONL,
		script:  `printf '{"delta":"ok"}\n'`,
		caps:    engine.NewCapabilitySet(engine.CapStreamingText, engine.CapSessions),
	}
	a := New("fake", strat)
	a.Sessions().Put("conv-1", "cached")

	ch, err := a.Invoke(context.Background(), &engine.Params{
		Prompt: "hi", SessionKey: "conv-1", SessionID: "explicit-thread",
	})
	if err != nil {
		t.Fatal(err)
	}
	assertTerminated(t, collect(t, ch))

	if handles := strat.recordedHandles(); handles[0] != "explicit-thread" {
		t.Errorf("handle = %q, want explicit-thread", handles[0])
	}
}

func TestTimeoutEmitsFixedError(t *testing.T) {
	strat := &fakeStrategy{command: "sh", mode: ModeText, script: `sleep 30`}
	a := New("fake", strat)

	ch, err := a.Invoke(context.Background(), &engine.Params{
		Prompt:  "hi",
		Timeout: 100 * time.Millisecond,
	})
	if err != nil {
		t.Fatal(err)
	}
	events := collect(t, ch)
	assertTerminated(t, events)

	found := false
	for _, ev := range events {
		if ev.Type == engine.EventError {
			found = true
			if ev.Message != "fake timed out" {
				t.Errorf("error = %q, want fixed timeout text", ev.Message)
			}
		}
	}
	if !found {
		t.Error("no error event after timeout")
	}
}

func TestTimeoutKillsForkedDescendants(t *testing.T) {
	// The forked sleep inherits the stdout pipe; without a group kill the
	// read loop would block until it exits on its own.
	strat := &fakeStrategy{command: "sh", mode: ModeText, script: `sleep 30 & sleep 30`}
	a := New("fake", strat)

	start := time.Now()
	ch, err := a.Invoke(context.Background(), &engine.Params{
		Prompt:  "hi",
		Timeout: 100 * time.Millisecond,
	})
	if err != nil {
		t.Fatal(err)
	}
	events := collect(t, ch)
	assertTerminated(t, events)

	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("stream took %s after a 100ms deadline", elapsed)
	}
	var msg string
	for _, ev := range events {
		if ev.Type == engine.EventError {
			msg = ev.Message
		}
	}
	if msg != "fake timed out" {
		t.Errorf("error = %q, want fixed timeout text", msg)
	}
}

func TestMissingBinaryIsClassified(t *testing.T) {
	strat := &fakeStrategy{command: "definitely-not-a-real-binary-xyz", mode: ModeText}
	a := New("fake", strat)

	ch, err := a.Invoke(context.Background(), &engine.Params{Prompt: "hi"})
	if err != nil {
		t.Fatal(err)
	}
	events := collect(t, ch)
	assertTerminated(t, events)

	var msg string
	for _, ev := range events {
		if ev.Type == engine.EventError {
			msg = ev.Message
		}
	}
	if !strings.Contains(msg, "not installed") {
		t.Errorf("error = %q, want not-installed classification", msg)
	}
	if strings.Contains(msg, "hi") {
		t.Errorf("error leaks prompt: %q", msg)
	}
}

func TestOversizedPromptGoesToStdin(t *testing.T) {
	// cat echoes stdin, so the final text must equal the prompt delivered
	// through the pipe.
	strat := &fakeStrategy{command: "cat", mode: ModeText}
	a := New("fake", strat)

	prompt := strings.Repeat("p", stdinThreshold+1)
	ch, err := a.Invoke(context.Background(), &engine.Params{Prompt: prompt})
	if err != nil {
		t.Fatal(err)
	}
	events := collect(t, ch)
	assertTerminated(t, events)

	var final string
	for _, ev := range events {
		if ev.Type == engine.EventTextFinal {
			final = ev.Text
		}
	}
	if final != prompt {
		t.Errorf("final length = %d, want %d", len(final), len(prompt))
	}
}

func TestProcessRegistryKillAll(t *testing.T) {
	reg := NewProcessRegistry()

	// Started the way the runner starts subprocesses: as a group leader
	// with a forked child holding the stdout pipe.
	cmd := exec.Command("sh", "-c", "sleep 60 & sleep 60")
	procattr.Set(cmd)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		t.Fatal(err)
	}
	if err := cmd.Start(); err != nil {
		t.Fatal(err)
	}
	reg.Add("p1", cmd.Process)

	if reg.Len() != 1 {
		t.Fatalf("Len = %d", reg.Len())
	}
	if killed := reg.KillAll(); killed != 1 {
		t.Errorf("KillAll = %d, want 1", killed)
	}
	if reg.Len() != 0 {
		t.Errorf("Len after KillAll = %d", reg.Len())
	}

	// EOF arrives only once the forked sleep is dead too.
	eof := make(chan struct{})
	go func() {
		io.Copy(io.Discard, stdout)
		close(eof)
	}()
	select {
	case <-eof:
	case <-time.After(3 * time.Second):
		t.Fatal("forked child survived KillAll")
	}
	cmd.Wait()
}

func TestSessionCache(t *testing.T) {
	c := NewSessionCache()
	if _, ok := c.Get("a"); ok {
		t.Error("empty cache returned a handle")
	}
	c.Put("a", "h1")
	c.Put("", "ignored")
	c.Put("b", "")
	if h, ok := c.Get("a"); !ok || h != "h1" {
		t.Errorf("Get(a) = %q, %v", h, ok)
	}
	if c.Len() != 1 {
		t.Errorf("Len = %d", c.Len())
	}
	c.Put("a", "h2")
	if h, _ := c.Get("a"); h != "h2" {
		t.Errorf("handle not updated: %q", h)
	}
}
