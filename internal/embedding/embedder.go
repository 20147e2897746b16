// Package embedding is the narrow interface to the external text-to-vector
// capability. The core treats it as a pure function with no side effects on
// the store.
package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
)

// Embedder produces a fixed-dimensionality vector for a piece of text.
// Implementations map unreachability onto models.ErrEmbeddingUnavailable so
// callers can degrade instead of failing.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// ContentHash returns the SHA-256 hex digest of the text, the cache key for
// embeddings.
func ContentHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
