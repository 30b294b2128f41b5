// Package resilience spaces calls to the LLM provider.
package resilience

import (
	"context"
	"time"

	"github.com/sanjuz-cas/llm-kg-project/pkg/fn"
	"golang.org/x/time/rate"
)

// Limiter spaces calls to at most PerMinute per minute, allowing Burst at
// once. A nil *Limiter never blocks.
type Limiter struct {
	rl *rate.Limiter
}

// NewLimiter returns nil when perMinute is not positive.
func NewLimiter(perMinute, burst int) *Limiter {
	if perMinute <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = 1
	}
	return &Limiter{rl: rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), burst)}
}

// Wait blocks until a call may run or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	if l == nil {
		return ctx.Err()
	}
	return l.rl.Wait(ctx)
}

// LimiterStage waits on l before running stage.
func LimiterStage[In, Out any](l *Limiter, stage fn.Stage[In, Out]) fn.Stage[In, Out] {
	return func(ctx context.Context, in In) fn.Result[Out] {
		if err := l.Wait(ctx); err != nil {
			return fn.Err[Out](err)
		}
		return stage(ctx, in)
	}
}
