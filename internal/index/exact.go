package index

import (
	"fmt"
	"sync"

	"github.com/Abhi260105/ai-agent-sub001/internal/models"
)

// ExactIndex is the linear-scan backend: every Search computes cosine
// similarity against the whole partition. Exactly correct at any size, fast
// enough under ExactScanMax.
type ExactIndex struct {
	mu         sync.RWMutex
	dimensions int
	partitions map[models.EntityType]map[string][]float32
}

func NewExactIndex(dimensions int) *ExactIndex {
	return &ExactIndex{
		dimensions: dimensions,
		partitions: map[models.EntityType]map[string][]float32{
			models.EntityMemory:    {},
			models.EntityKnowledge: {},
		},
	}
}

// Upsert stores or replaces the vector for the reference. Dimension
// mismatches fail; the index never pads or truncates.
func (x *ExactIndex) Upsert(refID string, entityType models.EntityType, vector []float32) error {
	if !entityType.IsValid() {
		return &models.IndexError{RefID: refID, Reason: "unknown entity type " + string(entityType)}
	}
	if len(vector) != x.dimensions {
		return &models.IndexError{
			RefID:  refID,
			Reason: fmt.Sprintf("dimension mismatch: got %d, index holds %d", len(vector), x.dimensions),
		}
	}

	x.mu.Lock()
	defer x.mu.Unlock()
	owned := make([]float32, len(vector))
	copy(owned, vector)
	x.partitions[entityType][refID] = owned
	return nil
}

// Remove drops the reference from whichever partition holds it. Removing an
// unknown reference is a no-op, which keeps deletion cascades idempotent.
func (x *ExactIndex) Remove(refID string) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	for _, part := range x.partitions {
		delete(part, refID)
	}
	return nil
}

// Search returns the top k references by cosine similarity, descending, ties
// broken by ascending ref id.
func (x *ExactIndex) Search(entityType models.EntityType, query []float32, k int) ([]Scored, error) {
	if !entityType.IsValid() {
		return nil, &models.IndexError{Reason: "unknown entity type " + string(entityType)}
	}
	if len(query) != x.dimensions {
		return nil, &models.IndexError{
			Reason: fmt.Sprintf("query dimension mismatch: got %d, index holds %d", len(query), x.dimensions),
		}
	}
	if k <= 0 {
		return nil, nil
	}

	x.mu.RLock()
	defer x.mu.RUnlock()

	part := x.partitions[entityType]
	results := make([]Scored, 0, len(part))
	for refID, vec := range part {
		results = append(results, Scored{RefID: refID, Score: CosineSimilarity(query, vec)})
	}
	sortScored(results)
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// Len returns the number of vectors in the partition.
func (x *ExactIndex) Len(entityType models.EntityType) int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.partitions[entityType])
}
