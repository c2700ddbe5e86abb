// Package web implements the outbound web tools: a guarded HTTPS fetch and
// a stub web search that keeps the tool schema stable when unconfigured.
package web

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/haasonsaas/relay/internal/net/ssrf"
	"github.com/haasonsaas/relay/internal/tools"
)

const (
	// defaultMaxBody caps a fetched response body.
	defaultMaxBody = 100 * 1024
	// fetchTimeout bounds one fetch.
	fetchTimeout = 30 * time.Second
)

// FetchTool fetches HTTPS URLs with SSRF guarding, no redirects, and a
// bounded response size. The SSRF guard is hostname-literal based and does
// not resolve DNS; see the ssrf package doc for the boundary.
type FetchTool struct {
	client  *http.Client
	maxBody int64
}

// NewFetchTool creates the fetch tool. The tool always refuses redirects;
// an injected client is copied so the policy never leaks into the caller's
// client.
func NewFetchTool(client *http.Client) *FetchTool {
	if client == nil {
		client = &http.Client{Timeout: fetchTimeout}
	} else {
		clone := *client
		client = &clone
	}
	client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		return http.ErrUseLastResponse
	}
	return &FetchTool{client: client, maxBody: defaultMaxBody}
}

func (t *FetchTool) Name() string { return "web_fetch" }

func (t *FetchTool) Description() string {
	return "Fetch an HTTPS URL and return the response body (no redirects, bounded size)."
}

func (t *FetchTool) Schema() json.RawMessage {
	return tools.MustSchema(map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"url": map[string]interface{}{
				"type":        "string",
				"description": "HTTPS URL to fetch.",
			},
		},
		"required": []string{"url"},
	})
}

// Execute performs the guarded fetch.
func (t *FetchTool) Execute(ctx context.Context, params json.RawMessage) (*tools.Result, error) {
	var input struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(params, &input); err != nil {
		return tools.Errorf(fmt.Sprintf("invalid parameters: %v", err)), nil
	}
	raw := strings.TrimSpace(input.URL)
	if raw == "" {
		return tools.Errorf("url is required"), nil
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return tools.Errorf("invalid url"), nil
	}
	if parsed.Scheme != "https" {
		return tools.Errorf("only https urls are allowed"), nil
	}
	if err := ssrf.ValidateHost(parsed.Hostname()); err != nil {
		return tools.Errorf(err.Error()), nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, parsed.String(), nil)
	if err != nil {
		return tools.Errorf("build request failed"), nil
	}
	req.Header.Set("User-Agent", "relay-fetch/1.0")

	resp, err := t.client.Do(req)
	if err != nil {
		return tools.Errorf("fetch failed"), nil
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 && resp.StatusCode < 400 {
		return tools.Errorf(fmt.Sprintf("redirects are not followed (status %d)", resp.StatusCode)), nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, t.maxBody+1))
	if err != nil {
		return tools.Errorf("read response failed"), nil
	}
	truncated := false
	if int64(len(body)) > t.maxBody {
		body = body[:t.maxBody]
		truncated = true
	}

	payload, err := json.MarshalIndent(map[string]interface{}{
		"url":          parsed.String(),
		"status":       resp.StatusCode,
		"content_type": resp.Header.Get("Content-Type"),
		"body":         string(body),
		"truncated":    truncated,
	}, "", "  ")
	if err != nil {
		return tools.Errorf("encode result failed"), nil
	}
	if resp.StatusCode >= 400 {
		return &tools.Result{Content: string(payload), IsError: true}, nil
	}
	return &tools.Result{Content: string(payload)}, nil
}
