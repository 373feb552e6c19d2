// Package ai talks to hosted generative models. Backends perform one call;
// Client adds retries, timeouts and the shared request limit.
package ai

import (
	"context"
	"fmt"

	"github.com/thywilljoshua/legal-agent/internal/legal"
)

// Backend sends one rendered request and returns the model's raw text.
type Backend interface {
	Generate(ctx context.Context, req legal.ModelRequest) (string, error)
}

// BackendFunc adapts a plain function to Backend.
type BackendFunc func(ctx context.Context, req legal.ModelRequest) (string, error)

func (f BackendFunc) Generate(ctx context.Context, req legal.ModelRequest) (string, error) {
	return f(ctx, req)
}

// StatusError is an HTTP-level rejection from a backend.
type StatusError struct {
	Code  int
	Body  string
	Cause error
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("backend status %d", e.Code)
	}
	return fmt.Sprintf("backend status %d: %s", e.Code, e.Body)
}

func (e *StatusError) Unwrap() error { return e.Cause }
