// Package config loads runtime settings from the environment, an optional
// .env file and an optional YAML file. Environment variables win over the
// file, and the file wins over built-in defaults. API keys are read from the
// environment only.
package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/thywilljoshua/legal-agent/internal/ai"
	"github.com/thywilljoshua/legal-agent/internal/compliance"
	"github.com/thywilljoshua/legal-agent/internal/legal"
	"github.com/thywilljoshua/legal-agent/internal/prompt"
)

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"

	DefaultTemperature     = 0.2
	DefaultMaxOutputTokens = 8192
	DefaultHTTPAddr        = ":8080"
	DefaultMaxUploadMB     = 200
)

type Config struct {
	LLM        LLMConfig         `yaml:"llm"`
	Prompt     PromptConfig      `yaml:"prompt"`
	Compliance compliance.Config `yaml:"compliance"`
	Extract    ExtractConfig     `yaml:"extract"`
	HTTP       HTTPConfig        `yaml:"http"`
	LogLevel   string            `yaml:"log_level"`
	// Rules replaces the built-in rule set when non-empty.
	Rules []string `yaml:"rules"`
}

type LLMConfig struct {
	Provider        string        `yaml:"provider"`
	GeminiAPIKey    string        `yaml:"-"`
	GeminiModel     string        `yaml:"gemini_model"`
	OpenAIAPIKey    string        `yaml:"-"`
	OpenAIBaseURL   string        `yaml:"openai_base_url"`
	OpenAIModel     string        `yaml:"openai_model"`
	Temperature     float64       `yaml:"temperature"`
	MaxOutputTokens int           `yaml:"max_output_tokens"`
	ResponseFormat  string        `yaml:"response_format"`
	MaxAttempts     int           `yaml:"max_attempts"`
	CallTimeout     time.Duration `yaml:"call_timeout"`
	BaseBackoff     time.Duration `yaml:"base_backoff"`
	MaxBackoff      time.Duration `yaml:"max_backoff"`
	MaxConcurrent   int           `yaml:"max_concurrent"`
}

type PromptConfig struct {
	MaxInputChars int `yaml:"max_input_chars"`
}

type ExtractConfig struct {
	Clean bool `yaml:"clean"`
}

type HTTPConfig struct {
	Addr        string `yaml:"addr"`
	MaxUploadMB int64  `yaml:"max_upload_mb"`
}

func Default() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:        ProviderGemini,
			GeminiModel:     ai.DefaultGeminiModel,
			OpenAIBaseURL:   ai.DefaultOpenAIBaseURL,
			OpenAIModel:     ai.DefaultOpenAIModel,
			Temperature:     DefaultTemperature,
			MaxOutputTokens: DefaultMaxOutputTokens,
			ResponseFormat:  legal.FormatJSON.String(),
			MaxAttempts:     ai.DefaultMaxAttempts,
			CallTimeout:     ai.DefaultCallTimeout,
			BaseBackoff:     ai.DefaultBaseBackoff,
			MaxBackoff:      ai.DefaultMaxBackoff,
			MaxConcurrent:   4,
		},
		Prompt:     PromptConfig{MaxInputChars: prompt.DefaultMaxInputChars},
		Compliance: compliance.DefaultConfig(),
		Extract:    ExtractConfig{Clean: true},
		HTTP:       HTTPConfig{Addr: DefaultHTTPAddr, MaxUploadMB: DefaultMaxUploadMB},
		LogLevel:   "info",
	}
}

// Load reads ./.env when present, then the YAML file at path (if any), then
// the environment, and validates the result.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, legal.Wrap(legal.KindConfig, "config.dotenv", err)
	}

	cfg := Default()
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return legal.Wrap(legal.KindConfig, "config.file", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return legal.Wrap(legal.KindConfig, "config.file", err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	e := &envReader{}
	c.LLM.Provider = e.str("LLM_PROVIDER", c.LLM.Provider)
	c.LLM.GeminiAPIKey = e.str("GEMINI_API_KEY", e.str("GOOGLE_API_KEY", c.LLM.GeminiAPIKey))
	c.LLM.GeminiModel = e.str("GEMINI_MODEL", c.LLM.GeminiModel)
	c.LLM.OpenAIAPIKey = e.str("OPENAI_API_KEY", c.LLM.OpenAIAPIKey)
	c.LLM.OpenAIBaseURL = e.str("OPENAI_BASE_URL", c.LLM.OpenAIBaseURL)
	c.LLM.OpenAIModel = e.str("OPENAI_MODEL", c.LLM.OpenAIModel)
	c.LLM.Temperature = e.asFloat("LLM_TEMPERATURE", c.LLM.Temperature)
	c.LLM.MaxOutputTokens = e.asInt("LLM_MAX_OUTPUT_TOKENS", c.LLM.MaxOutputTokens)
	c.LLM.ResponseFormat = e.str("LLM_RESPONSE_FORMAT", c.LLM.ResponseFormat)
	c.LLM.MaxAttempts = e.asInt("LLM_MAX_ATTEMPTS", c.LLM.MaxAttempts)
	c.LLM.CallTimeout = e.asDuration("LLM_CALL_TIMEOUT", c.LLM.CallTimeout)
	c.LLM.BaseBackoff = e.asDuration("LLM_BASE_BACKOFF", c.LLM.BaseBackoff)
	c.LLM.MaxBackoff = e.asDuration("LLM_MAX_BACKOFF", c.LLM.MaxBackoff)
	c.LLM.MaxConcurrent = e.asInt("LLM_MAX_CONCURRENT", c.LLM.MaxConcurrent)
	c.Prompt.MaxInputChars = e.asInt("PROMPT_MAX_INPUT_CHARS", c.Prompt.MaxInputChars)
	c.Compliance.Threshold = e.asFloat("COMPLIANCE_THRESHOLD", c.Compliance.Threshold)
	c.Compliance.KeywordWeight = e.asFloat("COMPLIANCE_KEYWORD_WEIGHT", c.Compliance.KeywordWeight)
	c.Compliance.SemanticWeight = e.asFloat("COMPLIANCE_SEMANTIC_WEIGHT", c.Compliance.SemanticWeight)
	c.Compliance.Concurrency = e.asInt("COMPLIANCE_CONCURRENCY", c.Compliance.Concurrency)
	c.Extract.Clean = e.asBool("EXTRACT_CLEAN", c.Extract.Clean)
	c.HTTP.Addr = e.str("HTTP_ADDR", c.HTTP.Addr)
	c.HTTP.MaxUploadMB = int64(e.asInt("HTTP_MAX_UPLOAD_MB", int(c.HTTP.MaxUploadMB)))
	c.LogLevel = e.str("LOG_LEVEL", c.LogLevel)
	return e.err
}

func (c *Config) applyDefaults() {
	c.LLM.Provider = strings.ToLower(strings.TrimSpace(c.LLM.Provider))
	if c.LLM.Provider == "" {
		c.LLM.Provider = ProviderGemini
	}
	if c.LLM.GeminiModel == "" {
		c.LLM.GeminiModel = ai.DefaultGeminiModel
	}
	if c.LLM.OpenAIBaseURL == "" {
		c.LLM.OpenAIBaseURL = ai.DefaultOpenAIBaseURL
	}
	if c.LLM.OpenAIModel == "" {
		c.LLM.OpenAIModel = ai.DefaultOpenAIModel
	}
	if c.Prompt.MaxInputChars <= 0 {
		c.Prompt.MaxInputChars = prompt.DefaultMaxInputChars
	}
	if c.Compliance.Concurrency == 0 {
		c.Compliance.Concurrency = compliance.DefaultConcurrency
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = DefaultHTTPAddr
	}
	if c.HTTP.MaxUploadMB <= 0 {
		c.HTTP.MaxUploadMB = DefaultMaxUploadMB
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// Validate reports the first setting that cannot be used, as a ConfigError.
// Missing API keys are reported when the backend is built, so commands that
// never call a model can still run.
func (c *Config) Validate() error {
	const op = "config.validate"
	if c.LLM.Provider != ProviderGemini && c.LLM.Provider != ProviderOpenAI {
		return legal.Errorf(legal.KindConfig, op, "unknown LLM_PROVIDER %q (want gemini or openai)", c.LLM.Provider)
	}
	opts, err := c.Options()
	if err != nil {
		return err
	}
	if err := prompt.ValidateOptions(opts); err != nil {
		return err
	}
	if c.LLM.MaxAttempts < 1 {
		return legal.Errorf(legal.KindConfig, op, "LLM_MAX_ATTEMPTS must be >= 1, got %d", c.LLM.MaxAttempts)
	}
	if c.LLM.CallTimeout <= 0 {
		return legal.Errorf(legal.KindConfig, op, "LLM_CALL_TIMEOUT must be > 0, got %s", c.LLM.CallTimeout)
	}
	if c.LLM.BaseBackoff < 0 || c.LLM.MaxBackoff < c.LLM.BaseBackoff {
		return legal.Errorf(legal.KindConfig, op, "backoff bounds invalid: base %s, max %s", c.LLM.BaseBackoff, c.LLM.MaxBackoff)
	}
	if c.LLM.MaxConcurrent < 0 {
		return legal.Errorf(legal.KindConfig, op, "LLM_MAX_CONCURRENT must be >= 0, got %d", c.LLM.MaxConcurrent)
	}
	if err := c.Compliance.Validate(); err != nil {
		return err
	}
	for i, r := range c.Rules {
		if strings.TrimSpace(r) == "" {
			return legal.Errorf(legal.KindConfig, op, "rule %d is empty", i)
		}
	}
	if _, ok := parseLevel(c.LogLevel); !ok {
		return legal.Errorf(legal.KindConfig, op, "unknown LOG_LEVEL %q", c.LogLevel)
	}
	return nil
}

// Options returns the generation options shared by every task.
func (c *Config) Options() (legal.Options, error) {
	format, ok := legal.ParseResponseFormat(c.LLM.ResponseFormat)
	if !ok {
		return legal.Options{}, legal.Errorf(legal.KindConfig, "config.options", "unknown LLM_RESPONSE_FORMAT %q", c.LLM.ResponseFormat)
	}
	return legal.Options{
		Temperature:     c.LLM.Temperature,
		MaxOutputTokens: c.LLM.MaxOutputTokens,
		Format:          format,
	}, nil
}

func (c *Config) ClientConfig() ai.Config {
	return ai.Config{
		MaxAttempts: c.LLM.MaxAttempts,
		CallTimeout: c.LLM.CallTimeout,
		BaseBackoff: c.LLM.BaseBackoff,
		MaxBackoff:  c.LLM.MaxBackoff,
	}
}

// RuleSet returns the configured rules, or nil for the built-in set.
func (c *Config) RuleSet() []string {
	if len(c.Rules) == 0 {
		return nil
	}
	return c.Rules
}

func (c *Config) Level() slog.Level {
	l, _ := parseLevel(c.LogLevel)
	return l
}

func parseLevel(s string) (slog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, true
	case "", "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	}
	return slog.LevelInfo, false
}
