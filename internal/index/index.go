// Package index provides the vector similarity index over embedding
// references. Memory and knowledge vectors live in separate partitions and
// are never ranked against each other.
//
// Two backends implement the same contract: an exact linear scan for small
// data and a chromem-go backed index for larger sets. Both return results in
// strictly descending score order with ties broken by ascending reference id,
// and must agree on ordering for small inputs.
package index

import (
	"sort"

	"github.com/Abhi260105/ai-agent-sub001/internal/models"
)

// ExactScanMax is the data size under which the exact backend is the default
// choice: below it the linear scan is both fast enough and exactly correct.
const ExactScanMax = 1000

// Scored pairs a reference id with its cosine similarity in [-1, 1].
type Scored struct {
	RefID string
	Score float64
}

// VectorIndex is the similarity index contract. Upsert and Remove for a
// given ref id are serialized relative to Search, so a Search never returns
// a reference whose vector has been fully removed.
type VectorIndex interface {
	Upsert(refID string, entityType models.EntityType, vector []float32) error
	Remove(refID string) error
	Search(entityType models.EntityType, query []float32, k int) ([]Scored, error)
	Len(entityType models.EntityType) int
}

// sortScored orders by descending score, ascending ref id on exact ties.
func sortScored(results []Scored) {
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].RefID < results[j].RefID
	})
}
