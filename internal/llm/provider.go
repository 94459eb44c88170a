// Package llm provides a provider-agnostic completion adapter for cg5.
// Every extraction, paraphrase, and validation call goes through Provider.
// Zero external dependencies — uses net/http directly.
package llm

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// Provider is the interface for LLM completions.
type Provider interface {
	// Complete sends a prompt and returns the response text.
	Complete(ctx context.Context, prompt string, opts CompletionOpts) (string, error)
	// Name returns a human-readable provider name (e.g., "azure/gpt-4o-mini").
	Name() string
}

// CompletionOpts configures a single completion request.
type CompletionOpts struct {
	MaxTokens   int     // Max tokens to generate (0 = provider default)
	Temperature float64 // 0.0-2.0 (0 = deterministic)
	Model       string  // Override model for this request (empty = use provider default)
	Format      string  // "json" for structured output, empty for plain text
	System      string  // System prompt (optional)
}

// Config holds provider configuration.
type Config struct {
	Provider string // "azure", "google", "openrouter"
	Model    string // e.g., "gpt-4o-mini", "gemini-2.5-flash"
	APIKey   string // API key (empty = read from env)
	BaseURL  string // Optional URL override; required for azure (the resource endpoint)
}

// NewProvider creates an LLM provider from the given config.
func NewProvider(cfg Config) (Provider, error) {
	switch strings.ToLower(cfg.Provider) {
	case "azure":
		key := apiKey(cfg.APIKey, "AZURE_OPENAI_API_KEY")
		if key == "" {
			return nil, fmt.Errorf("azure provider requires AZURE_OPENAI_API_KEY env var")
		}
		endpoint := cfg.BaseURL
		if endpoint == "" {
			endpoint = os.Getenv("AZURE_OPENAI_ENDPOINT")
		}
		if endpoint == "" {
			return nil, fmt.Errorf("azure provider requires an endpoint (config base_url or AZURE_OPENAI_ENDPOINT)")
		}
		return &azureProvider{
			apiKey:     key,
			deployment: orDefault(cfg.Model, "gpt-4o-mini"),
			endpoint:   strings.TrimRight(endpoint, "/"),
		}, nil

	case "google":
		key := apiKey(cfg.APIKey, "GEMINI_API_KEY", "GOOGLE_API_KEY")
		if key == "" {
			return nil, fmt.Errorf("google provider requires GEMINI_API_KEY or GOOGLE_API_KEY env var")
		}
		return &googleProvider{
			apiKey:  key,
			model:   orDefault(cfg.Model, "gemini-2.5-flash"),
			baseURL: orDefault(cfg.BaseURL, "https://generativelanguage.googleapis.com/v1beta"),
		}, nil

	case "openrouter":
		key := apiKey(cfg.APIKey, "OPENROUTER_API_KEY")
		if key == "" {
			return nil, fmt.Errorf("openrouter provider requires OPENROUTER_API_KEY env var")
		}
		return &openrouterProvider{
			apiKey:  key,
			model:   orDefault(cfg.Model, "openai/gpt-4o-mini"),
			baseURL: orDefault(cfg.BaseURL, "https://openrouter.ai/api/v1"),
		}, nil

	default:
		return nil, fmt.Errorf("unknown LLM provider: %q (supported: azure, google, openrouter)", cfg.Provider)
	}
}

// apiKey returns the configured key, falling back through the given
// environment variables in order.
func apiKey(configured string, envs ...string) string {
	if configured != "" {
		return configured
	}
	for _, env := range envs {
		if v := os.Getenv(env); v != "" {
			return v
		}
	}
	return ""
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// ParseLLMFlag parses a --llm flag value into a Config.
// Format: "provider/model" e.g., "azure/gpt-4o-mini", "google/gemini-2.5-flash",
// "openrouter/openai/gpt-4o-mini"
func ParseLLMFlag(flag string) (Config, error) {
	if flag == "" {
		return Config{Provider: "azure", Model: "gpt-4o-mini"}, nil
	}

	parts := strings.SplitN(flag, "/", 2)
	if len(parts) < 2 {
		return Config{}, fmt.Errorf("invalid --llm format %q: expected provider/model (e.g., azure/gpt-4o-mini)", flag)
	}

	provider := strings.ToLower(parts[0])
	model := parts[1]

	switch provider {
	case "azure", "google", "openrouter":
		return Config{Provider: provider, Model: model}, nil
	default:
		return Config{}, fmt.Errorf("unknown provider %q in --llm flag (supported: azure, google, openrouter)", provider)
	}
}
