package embedding

import (
	"context"
	"fmt"

	"github.com/Abhi260105/ai-agent-sub001/internal/index"
	"github.com/Abhi260105/ai-agent-sub001/internal/store"
)

// CachedEmbedder wraps an Embedder with a SQLite-backed cache keyed by
// content hash, so re-embedding unchanged text costs a single row read.
type CachedEmbedder struct {
	inner Embedder
	cache *store.EmbeddingCacheStore
	model string
	dim   int
}

func NewCachedEmbedder(inner Embedder, cache *store.EmbeddingCacheStore, model string, dim int) *CachedEmbedder {
	return &CachedEmbedder{inner: inner, cache: cache, model: model, dim: dim}
}

// Embed returns the cached vector when the text and model match a prior
// call, otherwise embeds through the inner collaborator and caches. Cache
// write failures are swallowed: the vector is already in hand.
func (e *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	hash := ContentHash(text)

	cached, err := e.cache.Get(hash)
	if err == nil && cached != nil && cached.Model == e.model && cached.Dimension == e.dim {
		if vec := index.BytesToFloat32(cached.Embedding); vec != nil {
			return vec, nil
		}
	}

	vec, err := e.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	if len(vec) != e.dim {
		return nil, fmt.Errorf("embedder returned %d dimensions, expected %d", len(vec), e.dim)
	}

	_ = e.cache.Put(&store.EmbeddingCacheEntry{
		ContentHash: hash,
		Embedding:   index.Float32ToBytes(vec),
		Dimension:   e.dim,
		Model:       e.model,
	})

	return vec, nil
}
