package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/haasonsaas/relay/internal/engine"
	"github.com/haasonsaas/relay/internal/engine/subproc"
)

const validYAML = `
max_concurrent_invocations: 2
sandbox:
  extra_dirs:
    - /srv/shared
backends:
  claude:
    type: subprocess
    strategy: claude
  codex:
    type: subprocess
    strategy: codex
    binary: /opt/codex/bin/codex
  gemini:
    type: subprocess
    strategy: gemini
  openai:
    type: http
    base_url: https://api.openai.com/v1
    model: gpt-4o
    api_key: sk-test
  portal:
    type: http
    base_url: https://portal.example.com/v1
    oauth:
      client_id: cid
      token_url: https://portal.example.com/oauth/token
      refresh_token: rt-1
`

func TestParseValidConfig(t *testing.T) {
	cfg, err := Parse([]byte(validYAML))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.MaxConcurrentInvocations != 2 {
		t.Errorf("limit = %d", cfg.MaxConcurrentInvocations)
	}
	if len(cfg.Backends) != 5 {
		t.Errorf("backends = %d", len(cfg.Backends))
	}
	if cfg.Backends["codex"].Binary != "/opt/codex/bin/codex" {
		t.Errorf("codex binary = %q", cfg.Backends["codex"].Binary)
	}
	if cfg.Backends["portal"].OAuth == nil {
		t.Error("portal oauth missing")
	}
}

func TestLoadExpandsEnvironment(t *testing.T) {
	t.Setenv("RELAY_TEST_KEY", "sk-from-env")
	path := filepath.Join(t.TempDir(), "relay.yaml")
	body := `
backends:
  openai:
    type: http
    base_url: https://api.openai.com/v1
    api_key: ${RELAY_TEST_KEY}
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Backends["openai"].APIKey != "sk-from-env" {
		t.Errorf("api_key = %q", cfg.Backends["openai"].APIKey)
	}
}

func TestParseRejectsInvalid(t *testing.T) {
	cases := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "no backends",
			yaml: `max_concurrent_invocations: 1`,
			want: "at least one backend",
		},
		{
			name: "missing strategy",
			yaml: "backends:\n  x:\n    type: subprocess",
			want: "strategy is required",
		},
		{
			name: "unknown strategy",
			yaml: "backends:\n  x:\n    type: subprocess\n    strategy: cursor",
			want: "unknown strategy",
		},
		{
			name: "http without base_url",
			yaml: "backends:\n  x:\n    type: http\n    api_key: k",
			want: "base_url is required",
		},
		{
			name: "http without credentials",
			yaml: "backends:\n  x:\n    type: http\n    base_url: https://a/v1",
			want: "api_key or oauth",
		},
		{
			name: "both credential kinds",
			yaml: "backends:\n  x:\n    type: http\n    base_url: https://a/v1\n    api_key: k\n    oauth:\n      token_url: https://a/t\n      refresh_token: r",
			want: "mutually exclusive",
		},
		{
			name: "oauth missing refresh token",
			yaml: "backends:\n  x:\n    type: http\n    base_url: https://a/v1\n    oauth:\n      token_url: https://a/t",
			want: "refresh_token",
		},
		{
			name: "unknown type",
			yaml: "backends:\n  x:\n    type: grpc",
			want: "unknown type",
		},
		{
			name: "negative limit",
			yaml: "max_concurrent_invocations: -1\nbackends:\n  x:\n    type: subprocess\n    strategy: claude",
			want: "must be >= 0",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.yaml))
			if err == nil {
				t.Fatal("Parse succeeded, want error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("error = %v, want mention of %q", err, tc.want)
			}
		})
	}
}

func TestBuildRegistry(t *testing.T) {
	cfg, err := Parse([]byte(validYAML))
	if err != nil {
		t.Fatal(err)
	}
	registry, err := BuildRegistry(cfg, subproc.NewProcessRegistry(), nil)
	if err != nil {
		t.Fatal(err)
	}

	names := registry.List()
	if len(names) != 5 {
		t.Fatalf("registered = %v", names)
	}

	claude, err := registry.Get("claude")
	if err != nil {
		t.Fatal(err)
	}
	if !claude.Capabilities().Has(engine.CapSessions) {
		t.Error("claude adapter lost its capabilities through wrapping")
	}

	openai, err := registry.Get("openai")
	if err != nil {
		t.Fatal(err)
	}
	if openai.ID() != "openai" {
		t.Errorf("id = %q", openai.ID())
	}
	if !openai.Capabilities().Has(engine.CapStreamingText) {
		t.Error("http adapter missing streaming capability")
	}

	if _, err := registry.Get("missing"); err == nil {
		t.Error("unknown backend lookup succeeded")
	}
}
