package ai

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// Limiter caps concurrent outbound model requests. One Limiter is shared by
// every Client in a process so concurrent analyses draw from one budget.
// A nil Limiter imposes no cap.
type Limiter struct {
	sem *semaphore.Weighted
	max int64
}

func NewLimiter(maxConcurrent int) *Limiter {
	if maxConcurrent <= 0 {
		return nil
	}
	return &Limiter{sem: semaphore.NewWeighted(int64(maxConcurrent)), max: int64(maxConcurrent)}
}

func (l *Limiter) Acquire(ctx context.Context) error {
	if l == nil {
		return ctx.Err()
	}
	return l.sem.Acquire(ctx, 1)
}

func (l *Limiter) Release() {
	if l == nil {
		return
	}
	l.sem.Release(1)
}

func (l *Limiter) Max() int {
	if l == nil {
		return 0
	}
	return int(l.max)
}
