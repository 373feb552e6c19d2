package config

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/thywilljoshua/legal-agent/internal/ai"
	"github.com/thywilljoshua/legal-agent/internal/legal"
)

var envKeys = []string{
	"LLM_PROVIDER", "GEMINI_API_KEY", "GOOGLE_API_KEY", "GEMINI_MODEL",
	"OPENAI_API_KEY", "OPENAI_BASE_URL", "OPENAI_MODEL",
	"LLM_TEMPERATURE", "LLM_MAX_OUTPUT_TOKENS", "LLM_RESPONSE_FORMAT",
	"LLM_MAX_ATTEMPTS", "LLM_CALL_TIMEOUT", "LLM_BASE_BACKOFF", "LLM_MAX_BACKOFF",
	"LLM_MAX_CONCURRENT", "PROMPT_MAX_INPUT_CHARS",
	"COMPLIANCE_THRESHOLD", "COMPLIANCE_KEYWORD_WEIGHT", "COMPLIANCE_SEMANTIC_WEIGHT",
	"COMPLIANCE_CONCURRENCY", "EXTRACT_CLEAN", "HTTP_ADDR", "HTTP_MAX_UPLOAD_MB", "LOG_LEVEL",
}

// clearEnv blanks every key Load reads; blank values count as unset.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "legalagent.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if diff := cmp.Diff(Default(), cfg); diff != "" {
		t.Errorf("defaults (-want +got):\n%s", diff)
	}
	if cfg.Level() != slog.LevelInfo {
		t.Errorf("level = %v", cfg.Level())
	}
}

func TestLoad_FileThenEnv(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, `
llm:
  provider: openai
  temperature: 0.7
  call_timeout: 15s
compliance:
  threshold: 0.65
  keyword_weight: 1
  semantic_weight: 1
rules:
  - Act must define key terms
log_level: debug
`)
	t.Setenv("LLM_TEMPERATURE", "0.1")
	t.Setenv("OPENAI_API_KEY", "sk-env")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.LLM.Provider != ProviderOpenAI {
		t.Errorf("provider = %q", cfg.LLM.Provider)
	}
	if cfg.LLM.Temperature != 0.1 {
		t.Errorf("env must override file: temperature = %v", cfg.LLM.Temperature)
	}
	if cfg.LLM.CallTimeout != 15*time.Second {
		t.Errorf("call timeout = %v", cfg.LLM.CallTimeout)
	}
	if cfg.LLM.MaxOutputTokens != DefaultMaxOutputTokens {
		t.Errorf("unset file keys must keep defaults: tokens = %d", cfg.LLM.MaxOutputTokens)
	}
	if cfg.Compliance.Threshold != 0.65 {
		t.Errorf("threshold = %v", cfg.Compliance.Threshold)
	}
	if diff := cmp.Diff([]string{"Act must define key terms"}, cfg.RuleSet()); diff != "" {
		t.Errorf("rules (-want +got):\n%s", diff)
	}
	if cfg.Level() != slog.LevelDebug {
		t.Errorf("level = %v", cfg.Level())
	}
	if cfg.LLM.OpenAIAPIKey != "sk-env" {
		t.Errorf("api key not read from env")
	}
}

func TestLoad_GeminiKeyFallback(t *testing.T) {
	clearEnv(t)
	t.Setenv("GOOGLE_API_KEY", "google-key")
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.LLM.GeminiAPIKey != "google-key" {
		t.Errorf("GOOGLE_API_KEY not used as fallback")
	}

	t.Setenv("GEMINI_API_KEY", "gemini-key")
	cfg, err = Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.LLM.GeminiAPIKey != "gemini-key" {
		t.Errorf("GEMINI_API_KEY must take precedence")
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := map[string]map[string]string{
		"malformed number":  {"LLM_MAX_ATTEMPTS": "three"},
		"malformed bool":    {"EXTRACT_CLEAN": "sometimes"},
		"zero tokens":       {"LLM_MAX_OUTPUT_TOKENS": "0"},
		"hot temperature":   {"LLM_TEMPERATURE": "1.5"},
		"unknown provider":  {"LLM_PROVIDER": "carrier-pigeon"},
		"unknown format":    {"LLM_RESPONSE_FORMAT": "xml"},
		"threshold of one":  {"COMPLIANCE_THRESHOLD": "1"},
		"negative weight":   {"COMPLIANCE_KEYWORD_WEIGHT": "-0.2"},
		"backoff inverted":  {"LLM_BASE_BACKOFF": "10s", "LLM_MAX_BACKOFF": "1s"},
		"unknown log level": {"LOG_LEVEL": "chatty"},
	}
	for name, env := range tests {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := Load("")
			if legal.KindOf(err) != legal.KindConfig {
				t.Fatalf("want ConfigError, got %v", err)
			}
		})
	}
}

func TestLoad_BadFile(t *testing.T) {
	clearEnv(t)
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); legal.KindOf(err) != legal.KindConfig {
		t.Errorf("missing file: want ConfigError, got %v", err)
	}
	if _, err := Load(writeFile(t, "llm: [not, a, map]")); legal.KindOf(err) != legal.KindConfig {
		t.Errorf("bad yaml: want ConfigError, got %v", err)
	}
	if _, err := Load(writeFile(t, "rules: [\"\"]")); legal.KindOf(err) != legal.KindConfig {
		t.Errorf("empty rule: want ConfigError, got %v", err)
	}
}

func TestNewBackend_MissingKey(t *testing.T) {
	clearEnv(t)
	for _, provider := range []string{ProviderGemini, ProviderOpenAI} {
		t.Setenv("LLM_PROVIDER", provider)
		cfg, err := Load("")
		if err != nil {
			t.Fatal(err)
		}
		if _, err := cfg.NewBackend(context.Background(), nil); legal.KindOf(err) != legal.KindConfig {
			t.Errorf("%s: want ConfigError, got %v", provider, err)
		}
	}
}

func TestNewPipeline(t *testing.T) {
	clearEnv(t)
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	backend := ai.BackendFunc(func(ctx context.Context, req legal.ModelRequest) (string, error) {
		return `{"purpose":"p","obligations":[],"exceptions":[]}`, nil
	})
	p, err := cfg.NewPipeline(backend, cfg.NewLimiter(), nil)
	if err != nil {
		t.Fatal(err)
	}
	sum, err := p.Summarize(context.Background(), legal.Document{Pages: []string{"An Act."}})
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if sum.Purpose != "p" {
		t.Errorf("summary = %+v", sum)
	}
}
