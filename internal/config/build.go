package config

import (
	"fmt"

	"golang.org/x/oauth2"

	"github.com/haasonsaas/relay/internal/engine"
	"github.com/haasonsaas/relay/internal/engine/httpchat"
	"github.com/haasonsaas/relay/internal/engine/subproc"
	"github.com/haasonsaas/relay/internal/engine/subproc/claudecli"
	"github.com/haasonsaas/relay/internal/engine/subproc/codexcli"
	"github.com/haasonsaas/relay/internal/engine/subproc/geminicli"
	"github.com/haasonsaas/relay/internal/observability"
)

// BuildRegistry constructs every configured adapter and registers it. All
// adapters share one limiter, so max_concurrent_invocations bounds the whole
// process, and all subprocess adapters share the injected kill registry.
func BuildRegistry(cfg *Config, procs *subproc.ProcessRegistry, metrics *observability.Metrics) (*engine.Registry, error) {
	registry := engine.NewRegistry()
	limiter := engine.NewLimiter(cfg.MaxConcurrentInvocations)

	for name, b := range cfg.Backends {
		adapter, err := buildAdapter(name, b, procs, metrics)
		if err != nil {
			return nil, fmt.Errorf("backend %s: %w", name, err)
		}
		registry.Register(limiter.Wrap(adapter))
	}
	return registry, nil
}

func buildAdapter(name string, b BackendConfig, procs *subproc.ProcessRegistry, metrics *observability.Metrics) (engine.Adapter, error) {
	switch b.Type {
	case BackendSubprocess:
		strategy, err := strategyFor(b.Strategy)
		if err != nil {
			return nil, err
		}
		opts := []subproc.Option{
			subproc.WithProcessRegistry(procs),
			subproc.WithMetrics(metrics),
		}
		if b.Binary != "" {
			opts = append(opts, subproc.WithBinary(b.Binary))
		}
		return subproc.New(name, strategy, opts...), nil

	case BackendHTTP:
		creds, err := credentialsFor(b)
		if err != nil {
			return nil, err
		}
		return httpchat.New(httpchat.Config{
			ID:          name,
			BaseURL:     b.BaseURL,
			Model:       b.Model,
			Credentials: creds,
			Metrics:     metrics,
		}), nil

	default:
		return nil, fmt.Errorf("unknown backend type %q", b.Type)
	}
}

func strategyFor(name string) (subproc.Strategy, error) {
	switch name {
	case "claude":
		return claudecli.New(), nil
	case "codex":
		return codexcli.New(), nil
	case "gemini":
		return geminicli.New(), nil
	default:
		return nil, fmt.Errorf("unknown strategy %q", name)
	}
}

func credentialsFor(b BackendConfig) (httpchat.Credentials, error) {
	if b.APIKey != "" {
		return httpchat.StaticKey(b.APIKey), nil
	}
	if b.OAuth == nil {
		return nil, fmt.Errorf("no credentials configured")
	}
	oc := &oauth2.Config{
		ClientID:     b.OAuth.ClientID,
		ClientSecret: b.OAuth.ClientSecret,
		Endpoint:     oauth2.Endpoint{TokenURL: b.OAuth.TokenURL},
	}
	token := &oauth2.Token{
		AccessToken:  b.OAuth.AccessToken,
		RefreshToken: b.OAuth.RefreshToken,
	}
	return httpchat.NewOAuthCredentials(oc, token), nil
}
