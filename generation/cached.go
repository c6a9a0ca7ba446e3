package generation

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	"github.com/Aditya-Lingam-9000/pharma-safe-lens/interfaces"
	"github.com/Aditya-Lingam-9000/pharma-safe-lens/logging"
	"github.com/Aditya-Lingam-9000/pharma-safe-lens/refdata/entities"
)

// CachedGenerator serves repeated prompts from a cache. Only successful
// generations are stored. Entries are keyed by provider and model, so a
// shared cache never serves text written by another model.
type CachedGenerator struct {
	next  interfaces.Generator
	model string
	cache interfaces.Cache
}

func NewCachedGenerator(next interfaces.Generator, model string, cache interfaces.Cache) *CachedGenerator {
	return &CachedGenerator{next: next, model: model, cache: cache}
}

func (g *CachedGenerator) Name() string {
	return g.next.Name()
}

func (g *CachedGenerator) Generate(ctx context.Context, req entities.GenerationRequest) (string, error) {
	key := CacheKey(g.next.Name(), g.model, req.Prompt)
	if text, ok := g.cache.Get(ctx, key); ok {
		logging.Debug("Explanation cache hit", "provider", g.next.Name())
		return text, nil
	}

	text, err := g.next.Generate(ctx, req)
	if err != nil {
		return "", err
	}
	if err := g.cache.Set(ctx, key, text); err != nil {
		logging.Warn("Failed to cache explanation", "provider", g.next.Name(), "error", err)
	}
	return text, nil
}

// CacheKey is the sha256 of provider, model and prompt.
func CacheKey(provider, model, prompt string) string {
	sum := sha256.Sum256([]byte(provider + "\x00" + model + "\x00" + prompt))
	return "explanation:" + hex.EncodeToString(sum[:])
}
