package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/thywilljoshua/legal-agent/internal/legal"
)

func TestOpenAI_Generate(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer sk-test" {
			t.Errorf("authorization = %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"  {\"outcome\":\"pass\"}  "}}]}`))
	}))
	defer srv.Close()

	o, err := NewOpenAI(srv.URL+"/v1/", "sk-test", "test-model", nil)
	if err != nil {
		t.Fatal(err)
	}
	text, err := o.Generate(context.Background(), legal.ModelRequest{
		Task:    legal.TaskCheckCompliance,
		Prompt:  "check",
		Options: legal.Options{Temperature: 0.1, MaxOutputTokens: 64, Format: legal.FormatJSON},
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if text != `{"outcome":"pass"}` {
		t.Errorf("text = %q", text)
	}
	if got.Model != "test-model" || got.MaxTokens != 64 || got.Temperature != 0.1 {
		t.Errorf("request = %+v", got)
	}
	if got.ResponseFormat["type"] != "json_object" {
		t.Errorf("response_format = %v", got.ResponseFormat)
	}
	if len(got.Messages) != 1 || got.Messages[0].Content != "check" {
		t.Errorf("messages = %+v", got.Messages)
	}
}

func TestOpenAI_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid api key"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	o, err := NewOpenAI(srv.URL, "sk-bad", "", nil)
	if err != nil {
		t.Fatal(err)
	}
	_, err = o.Generate(context.Background(), legal.ModelRequest{Task: legal.TaskSummarize, Prompt: "p"})
	var se *StatusError
	if !errors.As(err, &se) || se.Code != http.StatusUnauthorized {
		t.Fatalf("want 401 StatusError, got %v", err)
	}
}

func TestOpenAI_RetriedThroughClient(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		if hits == 1 {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	}))
	defer srv.Close()

	o, err := NewOpenAI(srv.URL, "sk-test", "", nil)
	if err != nil {
		t.Fatal(err)
	}
	c := NewClient(o, testConfig(), nil, nil)
	resp, err := c.Send(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if resp.Attempts != 2 || resp.Text != "ok" {
		t.Errorf("resp = %+v", resp)
	}
}

func TestNewOpenAI_MissingKey(t *testing.T) {
	if _, err := NewOpenAI("", "", "", nil); legal.KindOf(err) != legal.KindConfig {
		t.Fatalf("want ConfigError, got %v", err)
	}
}
