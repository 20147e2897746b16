package embedding

import (
	"context"
	"crypto/sha256"
	"math"

	"github.com/Abhi260105/ai-agent-sub001/internal/models"
)

// MockEmbedder is a deterministic, offline embedder for tests. Vectors are
// derived from the text's hash, so identical text always embeds identically
// and different texts land apart.
type MockEmbedder struct {
	Dim  int
	Fail bool // when set, every call reports the collaborator unavailable
}

func NewMockEmbedder(dim int) *MockEmbedder {
	return &MockEmbedder{Dim: dim}
}

func (m *MockEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if m.Fail {
		return nil, models.ErrEmbeddingUnavailable
	}

	sum := sha256.Sum256([]byte(text))
	vec := make([]float32, m.Dim)
	var norm float64
	for i := range vec {
		b := sum[i%len(sum)]
		// Spread values over [-1, 1), perturbed by position so the vector
		// is not periodic in the hash length.
		v := float64(b)/127.5 - 1.0
		v += 0.01 * float64(i)
		vec[i] = float32(v)
		norm += v * v
	}
	norm = math.Sqrt(norm)
	if norm > 0 {
		for i := range vec {
			vec[i] = float32(float64(vec[i]) / norm)
		}
	}
	return vec, nil
}
