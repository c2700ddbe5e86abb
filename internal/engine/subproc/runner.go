package subproc

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/haasonsaas/relay/internal/engine"
	"github.com/haasonsaas/relay/internal/observability"
	"github.com/haasonsaas/relay/internal/procattr"
)

const (
	// stdinThreshold switches prompt delivery from a positional argument to
	// stdin. Large prompts would hit argv length limits and leak into
	// process listings.
	stdinThreshold = 32 * 1024
	// maxStderrBytes caps captured stderr.
	maxStderrBytes = 8 * 1024
	// maxLineBytes caps one jsonl stdout line.
	maxLineBytes = 4 << 20
)

// Adapter runs one CLI backend through its Strategy. Implements
// engine.Adapter.
type Adapter struct {
	id       string
	strategy Strategy
	binary   string
	sessions *SessionCache
	procs    *ProcessRegistry
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithBinary overrides the strategy's default binary path.
func WithBinary(path string) Option {
	return func(a *Adapter) {
		if strings.TrimSpace(path) != "" {
			a.binary = path
		}
	}
}

// WithProcessRegistry injects the shutdown kill registry.
func WithProcessRegistry(r *ProcessRegistry) Option {
	return func(a *Adapter) {
		if r != nil {
			a.procs = r
		}
	}
}

// WithMetrics attaches a metrics sink.
func WithMetrics(m *observability.Metrics) Option {
	return func(a *Adapter) { a.metrics = m }
}

// New creates an adapter for the given backend id and strategy.
func New(id string, s Strategy, opts ...Option) *Adapter {
	a := &Adapter{
		id:       id,
		strategy: s,
		binary:   s.CommandName(),
		sessions: NewSessionCache(),
		procs:    NewProcessRegistry(),
		logger:   slog.Default().With("component", "subproc", "backend", id),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Adapter) ID() string { return a.id }

func (a *Adapter) Capabilities() engine.CapabilitySet { return a.strategy.Capabilities() }

// Sessions exposes the adapter's resumption-handle cache.
func (a *Adapter) Sessions() *SessionCache { return a.sessions }

// Invoke spawns one subprocess and streams its lifecycle as engine events.
func (a *Adapter) Invoke(ctx context.Context, p *engine.Params) (<-chan engine.Event, error) {
	if p == nil {
		return nil, fmt.Errorf("params are required")
	}

	out := make(chan engine.Event)
	go a.run(ctx, p, out)
	return out, nil
}

func (a *Adapter) run(ctx context.Context, p *engine.Params, out chan<- engine.Event) {
	defer close(out)

	start := time.Now()
	a.metrics.InvocationStarted(a.id)
	status := "success"
	defer func() {
		a.metrics.InvocationFinished(a.id)
		a.metrics.ObserveInvocation(a.id, status, time.Since(start))
	}()

	// Consumer abandonment is signalled by the parent context; sends race
	// against it so a stopped consumer never wedges the producer.
	send := func(ev engine.Event) bool {
		select {
		case out <- ev:
			return true
		case <-ctx.Done():
			return false
		}
	}
	fail := func(message string) {
		status = "error"
		send(engine.Errorf(message))
		send(engine.Done())
	}

	runCtx := ctx
	var cancel context.CancelFunc
	if p.Timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}

	handle := a.sessionHandle(p)
	viaStdin := len(p.Images) > 0 || len(p.Prompt) >= stdinThreshold

	mode := a.strategy.OutputMode(p)
	if len(p.Images) > 0 {
		mode = ModeJSONL
	}

	cmd := exec.CommandContext(runCtx, a.binary, a.strategy.BuildArgs(p, handle, viaStdin)...)
	cmd.Dir = p.WorkDir
	// Agent CLIs fork helpers that inherit the stdout pipe. Kill the whole
	// group on cancel, or the read loop blocks until every descendant exits.
	procattr.Set(cmd)
	cmd.Cancel = func() error { return procattr.KillGroup(cmd.Process) }
	cmd.WaitDelay = 2 * time.Second

	if viaStdin {
		payload, err := a.strategy.StdinPayload(p)
		if err != nil {
			a.logger.Warn("stdin payload build failed", "err", err)
			fail("failed to prepare backend input")
			return
		}
		if payload == nil {
			payload = []byte(p.Prompt)
		}
		cmd.Stdin = bytes.NewReader(payload)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		fail(a.strategy.ClassifySpawnError(err))
		return
	}
	stderr := &cappedBuffer{max: maxStderrBytes}
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		a.logger.Warn("spawn failed", "err", errKind(err))
		fail(a.strategy.ClassifySpawnError(err))
		return
	}

	procID := uuid.NewString()
	a.procs.Add(procID, cmd.Process)
	defer a.procs.Remove(procID)

	a.logger.Debug("subprocess started", "mode", string(mode), "stdin", viaStdin, "resumed", handle != "")

	var (
		accumulated strings.Builder
		final       *FinalResult
		newHandle   string
	)

	switch mode {
	case ModeJSONL:
		scanner := bufio.NewScanner(stdout)
		scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
		for scanner.Scan() {
			line := bytes.TrimSpace(scanner.Bytes())
			if len(line) == 0 {
				continue
			}
			parsed, err := a.strategy.ParseLine(line)
			if err != nil {
				a.logger.Debug("unparseable output line skipped")
				continue
			}
			if parsed.Delta != "" {
				accumulated.WriteString(parsed.Delta)
				if !send(engine.TextDelta(parsed.Delta)) {
					status = "error"
					drain(stdout)
					cmd.Wait()
					return
				}
			}
			if parsed.Handle != "" {
				newHandle = parsed.Handle
			}
			if parsed.Final != nil {
				final = parsed.Final
			}
		}
	default:
		buf := make([]byte, 4096)
		for {
			n, err := stdout.Read(buf)
			if n > 0 {
				chunk := string(buf[:n])
				accumulated.WriteString(chunk)
				if !send(engine.TextDelta(chunk)) {
					status = "error"
					drain(stdout)
					cmd.Wait()
					return
				}
			}
			if err != nil {
				break
			}
		}
	}

	waitErr := cmd.Wait()
	elapsed := time.Since(start)

	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		a.logger.Warn("subprocess timed out", "elapsed", elapsed)
		status = "timeout"
		send(engine.Errorf(fmt.Sprintf("%s timed out", a.id)))
		send(engine.Done())
		return
	}

	if waitErr != nil {
		code := exitCode(waitErr)
		a.logger.Warn("subprocess failed", "exit_code", code, "elapsed", elapsed)
		fail(a.strategy.SanitizeError(stderr.String(), code))
		return
	}

	text := accumulated.String()
	if final != nil {
		if final.Text != "" {
			text = final.Text
		}
		if final.SessionHandle != "" {
			newHandle = final.SessionHandle
		}
	}
	if p.SessionKey != "" && newHandle != "" {
		a.sessions.Put(p.SessionKey, newHandle)
	}

	if text != "" {
		if !send(engine.TextFinal(text)) {
			status = "error"
			return
		}
	}
	a.logger.Debug("subprocess finished", "elapsed", elapsed, "bytes", len(text))
	send(engine.Done())
}

// sessionHandle resolves the resumption handle for this invocation. An
// explicit session id wins; otherwise the cache is consulted for
// session-capable backends.
func (a *Adapter) sessionHandle(p *engine.Params) string {
	if p.SessionID != "" {
		return p.SessionID
	}
	if p.SessionKey == "" || !a.strategy.Capabilities().Has(engine.CapSessions) {
		return ""
	}
	handle, _ := a.sessions.Get(p.SessionKey)
	return handle
}

func drain(r io.Reader) {
	io.Copy(io.Discard, r)
}

func exitCode(err error) int {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

// errKind strips detail from a spawn error for logging; the raw error can
// embed the full command line.
func errKind(err error) string {
	if errors.Is(err, exec.ErrNotFound) {
		return "not_found"
	}
	return "start_failed"
}

// cappedBuffer retains the first max bytes written.
type cappedBuffer struct {
	mu  sync.Mutex
	buf []byte
	max int
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if remaining := b.max - len(b.buf); remaining > 0 {
		if len(p) > remaining {
			b.buf = append(b.buf, p[:remaining]...)
		} else {
			b.buf = append(b.buf, p...)
		}
	}
	return len(p), nil
}

func (b *cappedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.buf)
}
