// Package config loads the relay configuration: which backends exist, how
// they authenticate, the global concurrency bound, and the sandbox roots.
// Files are YAML with ${ENV_VAR} expansion before parsing.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// BackendType selects the adapter family for a backend entry.
type BackendType string

const (
	// BackendSubprocess runs a local CLI agent.
	BackendSubprocess BackendType = "subprocess"
	// BackendHTTP talks to an OpenAI-compatible chat-completion endpoint.
	BackendHTTP BackendType = "http"
)

// Config is the root of the relay configuration file.
type Config struct {
	// MaxConcurrentInvocations bounds parallel invocations across all
	// backends. 0 disables the bound.
	MaxConcurrentInvocations int `yaml:"max_concurrent_invocations"`

	// Sandbox configures tool containment.
	Sandbox SandboxConfig `yaml:"sandbox"`

	// Backends maps backend name to its definition.
	Backends map[string]BackendConfig `yaml:"backends"`
}

// SandboxConfig lists directories tools may touch beyond the per-invocation
// working directory.
type SandboxConfig struct {
	ExtraDirs []string `yaml:"extra_dirs"`
}

// BackendConfig defines one backend.
type BackendConfig struct {
	Type BackendType `yaml:"type"`

	// Strategy names the CLI strategy for subprocess backends:
	// claude, codex, or gemini.
	Strategy string `yaml:"strategy"`

	// Binary overrides the strategy's default binary path.
	Binary string `yaml:"binary"`

	// BaseURL is the API root for http backends.
	BaseURL string `yaml:"base_url"`

	// Model is the default model.
	Model string `yaml:"model"`

	// APIKey is a static bearer token for http backends.
	APIKey string `yaml:"api_key"`

	// OAuth configures refreshable credentials for http backends. Set
	// either APIKey or OAuth, not both.
	OAuth *OAuthConfig `yaml:"oauth"`
}

// OAuthConfig holds a refresh-token grant.
type OAuthConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	TokenURL     string `yaml:"token_url"`
	RefreshToken string `yaml:"refresh_token"`
	AccessToken  string `yaml:"access_token"`
}

// Load reads and validates a configuration file. Environment variables in
// the file body are expanded before parsing, so secrets can stay out of the
// file itself.
func Load(path string) (*Config, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("config path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse([]byte(os.ExpandEnv(string(data))))
}

// Parse decodes and validates raw YAML config bytes.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.MaxConcurrentInvocations < 0 {
		return fmt.Errorf("max_concurrent_invocations must be >= 0")
	}
	if len(c.Backends) == 0 {
		return fmt.Errorf("at least one backend is required")
	}
	for name, b := range c.Backends {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("backend name must not be empty")
		}
		switch b.Type {
		case BackendSubprocess:
			switch b.Strategy {
			case "claude", "codex", "gemini":
			case "":
				return fmt.Errorf("backend %s: strategy is required", name)
			default:
				return fmt.Errorf("backend %s: unknown strategy %q", name, b.Strategy)
			}
		case BackendHTTP:
			if strings.TrimSpace(b.BaseURL) == "" {
				return fmt.Errorf("backend %s: base_url is required", name)
			}
			if b.APIKey == "" && b.OAuth == nil {
				return fmt.Errorf("backend %s: api_key or oauth is required", name)
			}
			if b.APIKey != "" && b.OAuth != nil {
				return fmt.Errorf("backend %s: api_key and oauth are mutually exclusive", name)
			}
			if b.OAuth != nil {
				if b.OAuth.TokenURL == "" || b.OAuth.RefreshToken == "" {
					return fmt.Errorf("backend %s: oauth needs token_url and refresh_token", name)
				}
			}
		case "":
			return fmt.Errorf("backend %s: type is required", name)
		default:
			return fmt.Errorf("backend %s: unknown type %q", name, b.Type)
		}
	}
	return nil
}
