package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResolveConfig_Precedence_ConfigEnvCLI(t *testing.T) {
	tmp := t.TempDir()
	cfgPath := filepath.Join(tmp, "config.yaml")
	yaml := `db_path: ~/.cg5/from-config.db
rules_dir: ~/.cg5/rules
llm:
  provider: azure/gpt-4o-mini
  validate_model: azure/gpt-4o
`
	if err := os.WriteFile(cfgPath, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("CG5_DB", "~/from-env.db")
	t.Setenv("CG5_LLM", "google/gemini-2.5-flash")

	resolved, err := ResolveConfig(ResolveOptions{
		ConfigPath: cfgPath,
		CLILLM:     "openrouter/openai/gpt-4o-mini",
		CLIDBPath:  "~/from-cli.db",
	})
	if err != nil {
		t.Fatalf("ResolveConfig: %v", err)
	}

	if resolved.DBPath.Source != SourceCLI {
		t.Fatalf("expected DB path source cli, got %s", resolved.DBPath.Source)
	}
	if resolved.LLMProvider.Source != SourceCLI {
		t.Fatalf("expected llm provider source cli, got %s", resolved.LLMProvider.Source)
	}
	if resolved.LLMValidateModel.Source != SourceConfig {
		t.Fatalf("expected validate model from config, got %s", resolved.LLMValidateModel.Source)
	}
	if resolved.RulesDir.Source != SourceConfig {
		t.Fatalf("expected rules dir from config, got %s", resolved.RulesDir.Source)
	}
}

func TestResolveConfig_RulesDirEnvAndCLI(t *testing.T) {
	t.Setenv("CG5_RULES_DIR", "/env/rules")

	resolved, err := ResolveConfig(ResolveOptions{
		ConfigPath: filepath.Join(t.TempDir(), "missing.yaml"),
	})
	if err != nil {
		t.Fatalf("ResolveConfig: %v", err)
	}
	if resolved.RulesDir.Value != "/env/rules" || resolved.RulesDir.Source != SourceEnv {
		t.Fatalf("rules dir = %+v, want env /env/rules", resolved.RulesDir)
	}

	resolved, err = ResolveConfig(ResolveOptions{
		ConfigPath:  filepath.Join(t.TempDir(), "missing.yaml"),
		CLIRulesDir: "/cli/rules",
	})
	if err != nil {
		t.Fatalf("ResolveConfig: %v", err)
	}
	if resolved.RulesDir.Value != "/cli/rules" || resolved.RulesDir.Source != SourceCLI {
		t.Fatalf("rules dir = %+v, want cli /cli/rules", resolved.RulesDir)
	}
}

func TestEffectiveLLMModel_PurposeFallback(t *testing.T) {
	resolved := ResolvedConfig{
		LLMProvider:      ResolvedValue{Value: "azure", Source: SourceConfig},
		LLMValidateModel: ResolvedValue{Value: "", Source: SourceUnknown},
	}

	m := resolved.EffectiveLLMModel("validate", "azure/gpt-4o-mini")
	if m.Value != "azure/gpt-4o-mini" {
		t.Fatalf("unexpected effective model: %q", m.Value)
	}
	if m.Source != SourceConfig {
		t.Fatalf("expected source=config from provider fallback, got %s", m.Source)
	}
}

func TestEffectiveLLMModel_PurposeWins(t *testing.T) {
	resolved := ResolvedConfig{
		LLMProvider:        ResolvedValue{Value: "azure/gpt-4o-mini", Source: SourceConfig},
		LLMParaphraseModel: ResolvedValue{Value: "google/gemini-2.5-flash", Source: SourceEnv},
	}

	m := resolved.EffectiveLLMModel("paraphrase", "azure/gpt-4o-mini")
	if m.Value != "google/gemini-2.5-flash" {
		t.Fatalf("unexpected effective model: %q", m.Value)
	}
	if m.Source != SourceEnv {
		t.Fatalf("expected source=env, got %s", m.Source)
	}
}

func TestAPIKeyForProvider_EnvOverridesConfig(t *testing.T) {
	tmp := t.TempDir()
	cfgPath := filepath.Join(tmp, "config.yaml")
	yaml := `llm:
  provider: azure/gpt-4o-mini
  api_key: config-key
`
	if err := os.WriteFile(cfgPath, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("AZURE_OPENAI_API_KEY", "env-key")

	resolved, err := ResolveConfig(ResolveOptions{ConfigPath: cfgPath})
	if err != nil {
		t.Fatalf("ResolveConfig: %v", err)
	}
	k := resolved.APIKeyForProvider("azure/some-deployment")
	if k.Value != "env-key" {
		t.Fatalf("expected env key, got %q", k.Value)
	}
	if k.Source != SourceEnv {
		t.Fatalf("expected source env, got %s", k.Source)
	}
}
