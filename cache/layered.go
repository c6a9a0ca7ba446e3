package cache

import (
	"context"
	"errors"

	"github.com/Aditya-Lingam-9000/pharma-safe-lens/interfaces"
)

// LayeredCache reads through its layers in order and back-fills the faster
// layers on a hit. Writes go to every layer.
type LayeredCache struct {
	layers []interfaces.Cache
}

func NewLayeredCache(layers ...interfaces.Cache) *LayeredCache {
	return &LayeredCache{layers: layers}
}

func (c *LayeredCache) Get(ctx context.Context, key string) (string, bool) {
	for i, layer := range c.layers {
		if val, ok := layer.Get(ctx, key); ok {
			for _, upper := range c.layers[:i] {
				_ = upper.Set(ctx, key, val)
			}
			return val, true
		}
	}
	return "", false
}

func (c *LayeredCache) Set(ctx context.Context, key, value string) error {
	var errs []error
	for _, layer := range c.layers {
		if err := layer.Set(ctx, key, value); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (c *LayeredCache) Delete(ctx context.Context, key string) error {
	var errs []error
	for _, layer := range c.layers {
		if err := layer.Delete(ctx, key); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (c *LayeredCache) Clear(ctx context.Context) error {
	var errs []error
	for _, layer := range c.layers {
		if err := layer.Clear(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
