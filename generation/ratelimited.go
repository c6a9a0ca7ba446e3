package generation

import (
	"context"
	"fmt"

	"github.com/Aditya-Lingam-9000/pharma-safe-lens/interfaces"
	"github.com/Aditya-Lingam-9000/pharma-safe-lens/refdata/entities"
	"golang.org/x/time/rate"
)

// RateLimitedGenerator waits for a token before each call to next.
type RateLimitedGenerator struct {
	next    interfaces.Generator
	limiter *rate.Limiter
}

// NewRateLimitedGenerator allows perSecond calls with the given burst.
func NewRateLimitedGenerator(next interfaces.Generator, perSecond float64, burst int) *RateLimitedGenerator {
	if burst <= 0 {
		burst = 1
	}
	return &RateLimitedGenerator{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(perSecond), burst),
	}
}

func (g *RateLimitedGenerator) Name() string {
	return g.next.Name()
}

func (g *RateLimitedGenerator) Generate(ctx context.Context, req entities.GenerationRequest) (string, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("generation rate limit: %w", err)
	}
	return g.next.Generate(ctx, req)
}
