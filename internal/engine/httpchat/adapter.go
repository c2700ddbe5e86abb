// Package httpchat implements the OpenAI-compatible chat-completion backend.
// Request and response bodies use the go-openai types, but transport is an
// explicit http.Client: the adapter owns SSE framing, the single 401 retry
// for refreshable credentials, and network-call accounting.
//
// An invocation runs in one of two modes. Without tools it streams
// (stream=true) and hand-parses the event stream into text deltas. With at
// least one supported tool it runs the non-streaming tool-calling loop:
// each assistant turn may request tool executions, every request gets
// exactly one tool-result message, and the loop re-posts until plain text
// arrives or the round cap trips.
package httpchat

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/haasonsaas/relay/internal/engine"
	"github.com/haasonsaas/relay/internal/observability"
	"github.com/haasonsaas/relay/internal/tools"
	"github.com/haasonsaas/relay/internal/tools/sandbox"
)

const (
	// maxToolRounds caps the tool-calling loop. Exceeding it is a terminal
	// error, not a silent truncation.
	maxToolRounds = 25

	defaultTimeout = 5 * time.Minute
)

// reasoningPrefixes name the model families that take the output cap as
// max_completion_tokens instead of max_tokens. Never both.
var reasoningPrefixes = []string{"o1", "o3", "o4", "gpt-5"}

// Config describes one chat-completion backend.
type Config struct {
	// ID is the backend identifier, e.g. "openai".
	ID string
	// BaseURL is the API root, e.g. "https://api.openai.com/v1".
	BaseURL string
	// Model is the default model when the caller does not pick one.
	Model string
	// Credentials supply the bearer token.
	Credentials Credentials
	// HTTPClient overrides the transport. Nil gets a default client.
	HTTPClient *http.Client
	// Metrics is optional.
	Metrics *observability.Metrics
}

// Adapter implements engine.Adapter over an OpenAI-compatible endpoint.
type Adapter struct {
	id      string
	baseURL string
	model   string
	creds   Credentials
	client  *http.Client
	logger  *slog.Logger
	metrics *observability.Metrics

	// newExecutor is swappable in tests.
	newExecutor func(p *engine.Params) *tools.Executor
}

// New creates the adapter.
func New(cfg Config) *Adapter {
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	a := &Adapter{
		id:      cfg.ID,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		model:   cfg.Model,
		creds:   cfg.Credentials,
		client:  client,
		logger:  slog.Default().With("component", "httpchat", "backend", cfg.ID),
		metrics: cfg.Metrics,
	}
	a.newExecutor = func(p *engine.Params) *tools.Executor {
		e := sandbox.New(sandbox.Config{Root: p.WorkDir, ExtraDirs: p.ExtraDirs, Enabled: p.Tools})
		e.SetMetrics(a.metrics)
		return e
	}
	return a
}

func (a *Adapter) ID() string { return a.id }

func (a *Adapter) Capabilities() engine.CapabilitySet {
	return engine.NewCapabilitySet(
		engine.CapStreamingText,
		engine.CapToolsFS,
		engine.CapToolsExec,
		engine.CapToolsWeb,
	)
}

// Invoke runs one chat completion and streams engine events.
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

	timeout := p.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	executor := a.newExecutor(p)
	supported := executor.Names()

	var err error
	if len(supported) > 0 {
		err = a.runToolLoop(runCtx, p, executor, send)
	} else {
		err = a.runStreaming(runCtx, p, send)
	}
	if err != nil {
		if runCtx.Err() != nil {
			status = "timeout"
			send(engine.Errorf("request timed out"))
			send(engine.Done())
			return
		}
		fail(err.Error())
	}
}

// runStreaming posts stream=true and forwards SSE content deltas.
func (a *Adapter) runStreaming(ctx context.Context, p *engine.Params, send func(engine.Event) bool) error {
	req := a.baseRequest(p)
	req.Stream = true

	resp, err := a.post(ctx, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(resp.StatusCode)
	}

	var accumulated strings.Builder
	parseErr := parseSSE(resp.Body, func(data string) error {
		var chunk openai.ChatCompletionStreamResponse
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			// Unrecognized frames are skipped, not fatal.
			return nil
		}
		for _, choice := range chunk.Choices {
			if choice.Delta.Content == "" {
				continue
			}
			accumulated.WriteString(choice.Delta.Content)
			if !send(engine.TextDelta(choice.Delta.Content)) {
				return context.Canceled
			}
		}
		return nil
	})
	if parseErr != nil {
		if ctx.Err() != nil {
			return parseErr
		}
		return fmt.Errorf("response stream failed")
	}

	if text := accumulated.String(); text != "" {
		if !send(engine.TextFinal(text)) {
			return nil
		}
	}
	send(engine.Done())
	return nil
}

// runToolLoop posts stream=false with tool schemas and resolves tool-call
// rounds until the model answers with plain text or the cap trips.
func (a *Adapter) runToolLoop(ctx context.Context, p *engine.Params, executor *tools.Executor, send func(engine.Event) bool) error {
	req := a.baseRequest(p)
	req.Tools = toolSchemas(executor)

	for round := 0; round < maxToolRounds; round++ {
		resp, err := a.post(ctx, req)
		if err != nil {
			return err
		}
		body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("response read failed")
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return statusError(resp.StatusCode)
		}

		var completion openai.ChatCompletionResponse
		if err := json.Unmarshal(body, &completion); err != nil {
			return fmt.Errorf("malformed completion response")
		}
		if len(completion.Choices) == 0 {
			return fmt.Errorf("completion response had no choices")
		}
		msg := completion.Choices[0].Message

		if len(msg.ToolCalls) == 0 {
			if msg.Content != "" {
				if !send(engine.TextFinal(msg.Content)) {
					return nil
				}
			}
			send(engine.Done())
			return nil
		}

		req.Messages = append(req.Messages, msg)
		for _, call := range msg.ToolCalls {
			name := call.Function.Name
			args := json.RawMessage(call.Function.Arguments)

			if !send(engine.ToolStart(name, args)) {
				return nil
			}

			var result string
			var ok bool
			if len(args) == 0 || !json.Valid(args) {
				// Malformed argument JSON never reaches the executor; the
				// model gets a failed result and may correct itself.
				result, ok = fmt.Sprintf("invalid tool arguments for %s", name), false
			} else {
				result, ok = executor.Execute(ctx, name, args)
			}

			if !send(engine.ToolEnd(name, ok, result)) {
				return nil
			}
			req.Messages = append(req.Messages, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    result,
				Name:       name,
				ToolCallID: call.ID,
			})
		}
		a.logger.Debug("tool round resolved", "round", round+1, "calls", len(msg.ToolCalls))
	}
	return fmt.Errorf("tool-calling safety cap reached (%d rounds)", maxToolRounds)
}

// baseRequest builds the request body shared by both modes.
func (a *Adapter) baseRequest(p *engine.Params) openai.ChatCompletionRequest {
	model := p.Model
	if model == "" {
		model = a.model
	}

	user := openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser}
	if len(p.Images) > 0 {
		parts := []openai.ChatMessagePart{{
			Type: openai.ChatMessagePartTypeText,
			Text: p.Prompt,
		}}
		for _, img := range p.Images {
			parts = append(parts, openai.ChatMessagePart{
				Type: openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{
					URL: fmt.Sprintf("data:%s;base64,%s",
						img.MediaType, base64.StdEncoding.EncodeToString(img.Data)),
				},
			})
		}
		user.MultiContent = parts
	} else {
		user.Content = p.Prompt
	}

	req := openai.ChatCompletionRequest{
		Model:    model,
		Messages: []openai.ChatCompletionMessage{user},
	}
	if p.MaxTokens > 0 {
		if isReasoningModel(model) {
			req.MaxCompletionTokens = p.MaxTokens
		} else {
			req.MaxTokens = p.MaxTokens
		}
	}
	return req
}

// post sends one completion request with the bearer token. Refreshable
// credentials get exactly one forced-refresh retry on 401; the retry's
// response is returned as-is, so a second 401 surfaces to the caller.
func (a *Adapter) post(ctx context.Context, req openai.ChatCompletionRequest) (*http.Response, error) {
	token, err := a.creds.Authorization(ctx)
	if err != nil {
		return nil, fmt.Errorf("credentials unavailable")
	}

	resp, err := a.send(ctx, req, token)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized || !a.creds.CanRefresh() {
		return resp, nil
	}

	resp.Body.Close()
	a.logger.Info("401 response, forcing token refresh")
	token, err = a.creds.ForceRefresh(ctx)
	if err != nil {
		return nil, fmt.Errorf("token refresh failed")
	}
	return a.send(ctx, req, token)
}

func (a *Adapter) send(ctx context.Context, req openai.ChatCompletionRequest, token string) (*http.Response, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("request encode failed")
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		a.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("request build failed")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+token)
	if req.Stream {
		httpReq.Header.Set("Accept", "text/event-stream")
	}

	resp, err := a.client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("backend unreachable")
	}
	return resp, nil
}

// toolSchemas converts the executor's registered tools into the wire format.
func toolSchemas(executor *tools.Executor) []openai.Tool {
	names := executor.Names()
	schemas := make([]openai.Tool, 0, len(names))
	for _, name := range names {
		tool, ok := executor.Get(name)
		if !ok {
			continue
		}
		schemas = append(schemas, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        tool.Name(),
				Description: tool.Description(),
				Parameters:  tool.Schema(),
			},
		})
	}
	return schemas
}

func statusError(code int) error {
	return fmt.Errorf("backend returned status %d", code)
}

func isReasoningModel(model string) bool {
	for _, prefix := range reasoningPrefixes {
		if strings.HasPrefix(model, prefix) {
			return true
		}
	}
	return false
}
