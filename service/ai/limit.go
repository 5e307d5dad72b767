package ai

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// RateLimited spaces out requests to g so bursts of bot activity stay inside provider quotas
type RateLimited struct {
	g       Generator
	limiter *rate.Limiter
}

func NewRateLimited(g Generator, every time.Duration, burst int) *RateLimited {
	return &RateLimited{g: g, limiter: rate.NewLimiter(rate.Every(every), burst)}
}

func (r *RateLimited) Generate(ctx context.Context, prompt string) Result {
	if err := r.limiter.Wait(ctx); err != nil {
		return Failure(err)
	}
	return r.g.Generate(ctx, prompt)
}
