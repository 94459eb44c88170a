// Package config resolves cg5 settings from file, environment, and CLI
// flags, tracking where each effective value came from.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

type ValueSource string

const (
	SourceUnknown ValueSource = "unknown"
	SourceConfig  ValueSource = "config"
	SourceEnv     ValueSource = "env"
	SourceCLI     ValueSource = "cli"
	SourceDefault ValueSource = "default"
)

// ResolvedValue is one effective setting plus its provenance, so
// `cg5 config` can show users exactly why a value won.
type ResolvedValue struct {
	Value  string      `json:"value"`
	Source ValueSource `json:"source"`
	From   string      `json:"from,omitempty"`
}

type ResolveOptions struct {
	ConfigPath  string
	CLILLM      string
	CLIDBPath   string
	CLIRulesDir string
}

type ResolvedConfig struct {
	ConfigPath string `json:"config_path"`

	DBPath   ResolvedValue `json:"db_path"`
	RulesDir ResolvedValue `json:"rules_dir"`

	LLMProvider         ResolvedValue `json:"llm_provider"`
	LLMExtractModel     ResolvedValue `json:"llm_extract_model"`
	LLMParaphraseModel  ResolvedValue `json:"llm_paraphrase_model"`
	LLMValidateModel    ResolvedValue `json:"llm_validate_model"`

	LLMKeys map[string]ResolvedValue `json:"llm_keys,omitempty"`
}

type fileConfig struct {
	DBPath   string `yaml:"db_path"`
	RulesDir string `yaml:"rules_dir"`
	LLM      struct {
		Provider        string `yaml:"provider"`
		APIKey          string `yaml:"api_key"`
		ExtractModel    string `yaml:"extract_model"`
		ParaphraseModel string `yaml:"paraphrase_model"`
		ValidateModel   string `yaml:"validate_model"`
	} `yaml:"llm"`
}

func DefaultConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".cg5", "config.yaml")
}

// DefaultDBPath is where the run log lives when nothing overrides it.
func DefaultDBPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".cg5", "cg5.db")
}

// ResolveConfig layers file, env, and CLI values. Precedence, lowest to
// highest: config file, environment, CLI flags.
func ResolveConfig(opts ResolveOptions) (ResolvedConfig, error) {
	path := strings.TrimSpace(opts.ConfigPath)
	if path == "" {
		path = DefaultConfigPath()
	}

	out := ResolvedConfig{
		ConfigPath: path,
		LLMKeys:    map[string]ResolvedValue{},
	}

	cfg, err := loadConfig(path)
	if err != nil {
		return out, err
	}

	if cfg != nil {
		apply(&out.DBPath, cfg.DBPath, SourceConfig, path)
		apply(&out.RulesDir, cfg.RulesDir, SourceConfig, path)
		apply(&out.LLMProvider, cfg.LLM.Provider, SourceConfig, path)
		apply(&out.LLMExtractModel, cfg.LLM.ExtractModel, SourceConfig, path)
		apply(&out.LLMParaphraseModel, cfg.LLM.ParaphraseModel, SourceConfig, path)
		apply(&out.LLMValidateModel, cfg.LLM.ValidateModel, SourceConfig, path)

		if key := strings.TrimSpace(cfg.LLM.APIKey); key != "" {
			providers := map[string]struct{}{}
			for _, v := range []string{cfg.LLM.Provider, cfg.LLM.ExtractModel, cfg.LLM.ParaphraseModel, cfg.LLM.ValidateModel} {
				p := providerOf(v)
				if p != "" {
					providers[p] = struct{}{}
				}
			}
			if len(providers) == 0 {
				providers["default"] = struct{}{}
			}
			for p := range providers {
				out.LLMKeys[p] = ResolvedValue{Value: key, Source: SourceConfig, From: path}
			}
		}
	}

	applyEnv(&out.DBPath, "CG5_DB")
	applyEnv(&out.DBPath, "CG5_DB_PATH")
	applyEnv(&out.RulesDir, "CG5_RULES_DIR")

	applyEnv(&out.LLMProvider, "CG5_LLM")
	applyEnv(&out.LLMExtractModel, "CG5_LLM_EXTRACT")
	applyEnv(&out.LLMParaphraseModel, "CG5_LLM_PARAPHRASE")
	applyEnv(&out.LLMValidateModel, "CG5_LLM_VALIDATE")

	for env, provider := range map[string]string{
		"AZURE_OPENAI_API_KEY": "azure",
		"OPENROUTER_API_KEY":   "openrouter",
		"GEMINI_API_KEY":       "google",
		"GOOGLE_API_KEY":       "google",
	} {
		if v := strings.TrimSpace(os.Getenv(env)); v != "" {
			out.LLMKeys[provider] = ResolvedValue{Value: v, Source: SourceEnv, From: env}
		}
	}

	apply(&out.LLMProvider, opts.CLILLM, SourceCLI, "--llm")
	apply(&out.DBPath, opts.CLIDBPath, SourceCLI, "--db")
	apply(&out.RulesDir, opts.CLIRulesDir, SourceCLI, "--rules")

	if out.DBPath.Value != "" {
		out.DBPath.Value = expandUserPath(out.DBPath.Value)
	}
	if out.RulesDir.Value != "" {
		out.RulesDir.Value = expandUserPath(out.RulesDir.Value)
	}

	return out, nil
}

// EffectiveLLMModel resolves the model spec for one purpose ("extract",
// "paraphrase", "validate") falling back to the general provider and then
// the built-in default. Specs are provider/model strings; a bare provider
// name adopts the fallback's model when the providers agree.
func (r ResolvedConfig) EffectiveLLMModel(purpose, fallback string) ResolvedValue {
	purpose = strings.ToLower(strings.TrimSpace(purpose))

	candidates := []ResolvedValue{}
	switch purpose {
	case "extract":
		candidates = append(candidates, r.LLMExtractModel)
	case "paraphrase":
		candidates = append(candidates, r.LLMParaphraseModel)
	case "validate":
		candidates = append(candidates, r.LLMValidateModel)
	}
	candidates = append(candidates, r.LLMProvider)

	for _, c := range candidates {
		if strings.TrimSpace(c.Value) == "" {
			continue
		}
		if strings.Contains(c.Value, "/") {
			return c
		}
		if fallback != "" && strings.HasPrefix(strings.ToLower(fallback), strings.ToLower(strings.TrimSpace(c.Value))+"/") {
			return ResolvedValue{Value: fallback, Source: c.Source, From: c.From}
		}
	}

	if strings.TrimSpace(fallback) != "" {
		return ResolvedValue{Value: fallback, Source: SourceDefault, From: "built-in default"}
	}
	return ResolvedValue{}
}

// APIKeyForProvider returns the key for a provider or provider/model spec.
func (r ResolvedConfig) APIKeyForProvider(providerOrModel string) ResolvedValue {
	provider := providerOf(providerOrModel)
	if provider == "" {
		return ResolvedValue{}
	}
	if v, ok := r.LLMKeys[provider]; ok && strings.TrimSpace(v.Value) != "" {
		return v
	}
	if v, ok := r.LLMKeys["default"]; ok && strings.TrimSpace(v.Value) != "" {
		return v
	}
	return ResolvedValue{}
}

func providerOf(providerOrModel string) string {
	v := strings.ToLower(strings.TrimSpace(providerOrModel))
	if v == "" {
		return ""
	}
	if idx := strings.Index(v, "/"); idx > 0 {
		return v[:idx]
	}
	return v
}

func apply(dst *ResolvedValue, raw string, source ValueSource, from string) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return
	}
	*dst = ResolvedValue{Value: v, Source: source, From: from}
}

func applyEnv(dst *ResolvedValue, envKey string) {
	if v := strings.TrimSpace(os.Getenv(envKey)); v != "" {
		*dst = ResolvedValue{Value: v, Source: SourceEnv, From: envKey}
	}
}

func loadConfig(path string) (*fileConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var cfg fileConfig
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &cfg, nil
}

func expandUserPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
