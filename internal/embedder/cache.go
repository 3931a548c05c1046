package embedder

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"
)

// CachingEmbedder wraps an Embedder with an LRU cache keyed by input text.
// Memory retrieval embeds the same user queries repeatedly within a
// conversation; caching avoids paying for the round trip each time.
type CachingEmbedder struct {
	inner Embedder
	cache *lru.Cache[string, []float32]
}

// NewCachingEmbedder wraps inner with an LRU cache of the given size.
func NewCachingEmbedder(inner Embedder, size int) (*CachingEmbedder, error) {
	if size <= 0 {
		size = 512
	}
	cache, err := lru.New[string, []float32](size)
	if err != nil {
		return nil, err
	}
	return &CachingEmbedder{inner: inner, cache: cache}, nil
}

func (c *CachingEmbedder) Name() string {
	return c.inner.Name()
}

func (c *CachingEmbedder) Dimensions() int {
	return c.inner.Dimensions()
}

func (c *CachingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if vec, ok := c.cache.Get(text); ok {
		return vec, nil
	}

	vec, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	c.cache.Add(text, vec)
	return vec, nil
}

// Len reports the number of cached embeddings.
func (c *CachingEmbedder) Len() int {
	return c.cache.Len()
}
