package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/thywilljoshua/legal-agent/internal/legal"
)

const (
	DefaultOpenAIBaseURL = "https://api.openai.com/v1"
	DefaultOpenAIModel   = "gpt-4o-mini"
	maxErrorBody         = 512
)

// OpenAI speaks the chat/completions protocol, which most hosted and
// self-hosted model gateways also accept.
type OpenAI struct {
	BaseURL string
	APIKey  string
	Model   string
	http    *http.Client
	log     *slog.Logger
}

func NewOpenAI(baseURL, apiKey, model string, logger *slog.Logger) (*OpenAI, error) {
	if apiKey == "" {
		return nil, legal.Errorf(legal.KindConfig, "ai.openai", "missing OPENAI_API_KEY")
	}
	if baseURL == "" {
		baseURL = DefaultOpenAIBaseURL
	}
	if model == "" {
		model = DefaultOpenAIModel
	}
	if logger == nil {
		logger = slog.Default()
	}
	// Per-call deadlines come from the Client's context.
	return &OpenAI{BaseURL: baseURL, APIKey: apiKey, Model: model, http: &http.Client{}, log: logger}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string            `json:"model"`
	Temperature    float64           `json:"temperature"`
	MaxTokens      int               `json:"max_tokens"`
	Messages       []chatMessage     `json:"messages"`
	ResponseFormat map[string]string `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (o *OpenAI) Generate(ctx context.Context, req legal.ModelRequest) (string, error) {
	body := chatRequest{
		Model:       o.Model,
		Temperature: req.Options.Temperature,
		MaxTokens:   req.Options.MaxOutputTokens,
		Messages:    []chatMessage{{Role: "user", Content: req.Prompt}},
	}
	if req.Options.Format == legal.FormatJSON {
		body.ResponseFormat = map[string]string{"type": "json_object"}
	}

	endpoint := strings.TrimRight(o.BaseURL, "/") + "/chat/completions"
	raw, err := o.post(ctx, endpoint, body)
	if err != nil {
		return "", err
	}

	var cc chatResponse
	if err := json.Unmarshal(raw, &cc); err != nil {
		return "", fmt.Errorf("decode chat response: %w", err)
	}
	if len(cc.Choices) == 0 {
		return "", fmt.Errorf("no choices in chat response")
	}
	return strings.TrimSpace(cc.Choices[0].Message.Content), nil
}

func (o *OpenAI) post(ctx context.Context, url string, body any) ([]byte, error) {
	start := time.Now()
	b, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.APIKey)

	resp, err := o.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			o.log.Warn("ai.openai.body_close_error", "error", err)
		}
	}(resp.Body)

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	o.log.Debug("ai.openai.response",
		"status", resp.StatusCode,
		"bytes", len(raw),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	if resp.StatusCode/100 != 2 {
		msg := string(raw)
		if len(msg) > maxErrorBody {
			msg = msg[:maxErrorBody]
		}
		return nil, &StatusError{Code: resp.StatusCode, Body: msg}
	}
	return raw, nil
}
