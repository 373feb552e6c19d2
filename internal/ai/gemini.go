package ai

import (
	"context"
	"errors"
	"log/slog"
	"time"

	genai "google.golang.org/genai"

	"github.com/thywilljoshua/legal-agent/internal/legal"
)

const DefaultGeminiModel = "gemini-2.5-flash"

type Gemini struct {
	client *genai.Client
	model  string
	log    *slog.Logger
}

func NewGemini(ctx context.Context, apiKey, model string, logger *slog.Logger) (*Gemini, error) {
	if apiKey == "" {
		return nil, legal.Errorf(legal.KindConfig, "ai.gemini", "missing GEMINI_API_KEY")
	}
	if model == "" {
		model = DefaultGeminiModel
	}
	if logger == nil {
		logger = slog.Default()
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey, Backend: genai.BackendGeminiAPI})
	if err != nil {
		return nil, legal.Wrap(legal.KindConfig, "ai.gemini", err)
	}
	return &Gemini{client: c, model: model, log: logger}, nil
}

func (g *Gemini) Generate(ctx context.Context, req legal.ModelRequest) (string, error) {
	start := time.Now()
	res, err := g.client.Models.GenerateContent(ctx, g.model, []*genai.Content{
		genai.NewContentFromText(req.Prompt, genai.RoleUser),
	}, generationConfig(req.Options))
	if err != nil {
		return "", geminiError(err)
	}
	text := res.Text()
	if text == "" {
		g.log.Warn("ai.gemini.empty_text", "task", req.Task.String(), "elapsed_ms", time.Since(start).Milliseconds())
	}
	return text, nil
}

func generationConfig(opts legal.Options) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(opts.Temperature)),
		MaxOutputTokens: int32(opts.MaxOutputTokens),
	}
	if opts.Format == legal.FormatJSON {
		cfg.ResponseMIMEType = "application/json"
	}
	return cfg
}

// geminiError lifts API rejections into StatusError so the client can
// classify them like any other HTTP backend.
func geminiError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &StatusError{Code: apiErr.Code, Body: apiErr.Message, Cause: err}
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return &StatusError{Code: apiErrPtr.Code, Body: apiErrPtr.Message, Cause: err}
	}
	return err
}
