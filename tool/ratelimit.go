package tool

import (
	"context"

	"golang.org/x/time/rate"
)

type rateLimitedTool struct {
	Tool
	limiter *rate.Limiter
}

// RateLimited wraps t so that every call first waits for a token from
// limiter. A call whose context ends while waiting fails with RATE_LIMITED.
func RateLimited(t Tool, limiter *rate.Limiter) Tool {
	if limiter == nil {
		return t
	}
	return &rateLimitedTool{Tool: t, limiter: limiter}
}

func (r *rateLimitedTool) Call(ctx context.Context, args map[string]any) (any, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, &ToolError{
			Tool:    r.Name(),
			Message: err.Error(),
			Code:    CodeRateLimited,
		}
	}
	return r.Tool.Call(ctx, args)
}
