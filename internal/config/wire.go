package config

import (
	"context"
	"log/slog"

	"github.com/thywilljoshua/legal-agent/internal/ai"
	"github.com/thywilljoshua/legal-agent/internal/compliance"
	"github.com/thywilljoshua/legal-agent/internal/extract"
	"github.com/thywilljoshua/legal-agent/internal/pipeline"
	"github.com/thywilljoshua/legal-agent/internal/prompt"
)

// NewBackend builds the configured model backend. A missing API key is a
// ConfigError.
func (c *Config) NewBackend(ctx context.Context, logger *slog.Logger) (ai.Backend, error) {
	if c.LLM.Provider == ProviderOpenAI {
		return ai.NewOpenAI(c.LLM.OpenAIBaseURL, c.LLM.OpenAIAPIKey, c.LLM.OpenAIModel, logger)
	}
	return ai.NewGemini(ctx, c.LLM.GeminiAPIKey, c.LLM.GeminiModel, logger)
}

func (c *Config) NewLimiter() *ai.Limiter {
	return ai.NewLimiter(c.LLM.MaxConcurrent)
}

func (c *Config) NewExtractor(logger *slog.Logger) *extract.Extractor {
	return extract.New(c.Extract.Clean, logger)
}

// NewPipeline wires backend through a retrying client that draws from
// limiter. Pass the same limiter to every pipeline in a process.
func (c *Config) NewPipeline(backend ai.Backend, limiter *ai.Limiter, logger *slog.Logger) (*pipeline.Pipeline, error) {
	opts, err := c.Options()
	if err != nil {
		return nil, err
	}
	client := ai.NewClient(backend, c.ClientConfig(), limiter, logger)
	builder := prompt.NewBuilder(c.Prompt.MaxInputChars)
	judge := compliance.ModelJudge{Builder: builder, Client: client, Options: opts}
	matcher := compliance.NewMatcher(judge, c.Compliance, logger)
	return pipeline.New(builder, client, matcher, opts, logger), nil
}
