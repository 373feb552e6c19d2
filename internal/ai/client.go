package ai

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/thywilljoshua/legal-agent/internal/legal"
)

const (
	DefaultMaxAttempts = 3
	DefaultCallTimeout = 60 * time.Second
	DefaultBaseBackoff = 500 * time.Millisecond
	DefaultMaxBackoff  = 8 * time.Second
)

type Config struct {
	MaxAttempts int
	CallTimeout time.Duration
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
}

func (c *Config) applyDefaults() {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.CallTimeout <= 0 {
		c.CallTimeout = DefaultCallTimeout
	}
	if c.BaseBackoff <= 0 {
		c.BaseBackoff = DefaultBaseBackoff
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = DefaultMaxBackoff
	}
}

// Client sends requests through a Backend, retrying transient failures with
// jittered exponential backoff. It is safe for concurrent use.
type Client struct {
	backend Backend
	cfg     Config
	limiter *Limiter
	log     *slog.Logger
	jitter  func(n int64) int64
}

func NewClient(backend Backend, cfg Config, limiter *Limiter, logger *slog.Logger) *Client {
	cfg.applyDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{backend: backend, cfg: cfg, limiter: limiter, log: logger, jitter: rand.Int64N}
}

// Send performs req, making at most MaxAttempts calls. Auth and malformed
// request rejections return immediately; transient failures that outlast
// the attempt budget return TimeoutError; caller cancellation returns
// CancelledError without retrying.
func (c *Client) Send(ctx context.Context, req legal.ModelRequest) (legal.ModelResponse, error) {
	rid := uuid.NewString()
	start := time.Now()
	log := c.log.With("req_id", rid, "task", req.Task.String())

	var lastErr error
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return legal.ModelResponse{}, c.fail(legal.KindCancelled, req, attempt-1, err)
		}

		log.Debug("ai.send.attempt", "attempt", attempt, "prompt_len", len(req.Prompt))
		text, err := c.call(ctx, req)
		if err == nil {
			log.Info("ai.send.ok",
				"attempts", attempt,
				"response_len", len(text),
				"elapsed_ms", time.Since(start).Milliseconds(),
			)
			return legal.ModelResponse{
				Task:     req.Task,
				Format:   req.Options.Format,
				Text:     text,
				Attempts: attempt,
			}, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return legal.ModelResponse{}, c.fail(legal.KindCancelled, req, attempt, ctx.Err())
		}
		kind, transient := classify(err)
		if !transient {
			log.Error("ai.send.rejected", "attempt", attempt, "kind", string(kind), "error", err)
			return legal.ModelResponse{}, c.fail(kind, req, attempt, err)
		}
		if attempt >= c.cfg.MaxAttempts {
			break
		}

		wait := c.backoff(attempt)
		log.Warn("ai.send.retry",
			"attempt", attempt,
			"max_attempts", c.cfg.MaxAttempts,
			"backoff_ms", wait.Milliseconds(),
			"error", err,
		)
		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return legal.ModelResponse{}, c.fail(legal.KindCancelled, req, attempt, ctx.Err())
		case <-t.C:
		}
	}

	log.Error("ai.send.exhausted",
		"attempts", c.cfg.MaxAttempts,
		"elapsed_ms", time.Since(start).Milliseconds(),
		"error", lastErr,
	)
	return legal.ModelResponse{}, c.fail(legal.KindTimeout, req, c.cfg.MaxAttempts, lastErr)
}

// call runs one attempt under the shared limit and the per-call timeout.
func (c *Client) call(ctx context.Context, req legal.ModelRequest) (string, error) {
	if err := c.limiter.Acquire(ctx); err != nil {
		return "", err
	}
	defer c.limiter.Release()

	callCtx, cancel := context.WithTimeout(ctx, c.cfg.CallTimeout)
	defer cancel()
	return c.backend.Generate(callCtx, req)
}

// backoff returns BaseBackoff*2^(attempt-1), capped at MaxBackoff, jittered
// uniformly into [d/2, d].
func (c *Client) backoff(attempt int) time.Duration {
	d := c.cfg.BaseBackoff
	for i := 1; i < attempt && d < c.cfg.MaxBackoff; i++ {
		d *= 2
	}
	if d > c.cfg.MaxBackoff {
		d = c.cfg.MaxBackoff
	}
	if d <= 0 {
		return 0
	}
	half := int64(d) / 2
	return time.Duration(half + c.jitter(int64(d)-half+1))
}

func (c *Client) fail(kind legal.Kind, req legal.ModelRequest, attempts int, err error) error {
	return &legal.Error{Kind: kind, Op: "ai.send", Task: req.Task, Attempts: attempts, Err: err}
}

// classify maps a backend error to its kind and whether it is worth retrying.
func classify(err error) (legal.Kind, bool) {
	var se *StatusError
	if errors.As(err, &se) {
		switch {
		case se.Code == http.StatusUnauthorized || se.Code == http.StatusForbidden:
			return legal.KindAuth, false
		case se.Code == http.StatusRequestTimeout || se.Code == http.StatusTooManyRequests || se.Code >= 500:
			return legal.KindTimeout, true
		default:
			return legal.KindRequest, false
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return legal.KindTimeout, true
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return legal.KindTimeout, true
	}
	return legal.KindRequest, false
}
