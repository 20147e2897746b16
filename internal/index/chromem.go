package index

import (
	"context"
	"fmt"
	"sync"

	chromem "github.com/philippgille/chromem-go"

	"github.com/Abhi260105/ai-agent-sub001/internal/models"
)

// ChromemIndex backs the similarity index with chromem-go, an embedded pure
// Go vector database. One collection per entity partition; vectors are
// provided externally so no embedding function is configured.
type ChromemIndex struct {
	mu          sync.RWMutex
	dimensions  int
	collections map[models.EntityType]*chromem.Collection
	membership  map[string]models.EntityType
}

func NewChromemIndex(dimensions int) (*ChromemIndex, error) {
	db := chromem.NewDB()

	collections := make(map[models.EntityType]*chromem.Collection, 2)
	for _, et := range []models.EntityType{models.EntityMemory, models.EntityKnowledge} {
		col, err := db.CreateCollection("refs_"+string(et), nil, nil)
		if err != nil {
			return nil, fmt.Errorf("create %s collection: %w", et, err)
		}
		collections[et] = col
	}

	return &ChromemIndex{
		dimensions:  dimensions,
		collections: collections,
		membership:  make(map[string]models.EntityType),
	}, nil
}

// Upsert stores or replaces the vector for the reference.
func (x *ChromemIndex) Upsert(refID string, entityType models.EntityType, vector []float32) error {
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

	// A ref that moved partitions would leave a stale vector behind; drop it
	// from its old collection first.
	if prev, ok := x.membership[refID]; ok && prev != entityType {
		if err := x.collections[prev].Delete(context.Background(), nil, nil, refID); err != nil {
			return &models.IndexError{RefID: refID, Reason: fmt.Sprintf("evict from %s partition: %v", prev, err)}
		}
	}

	doc := chromem.Document{
		ID:        refID,
		Content:   refID, // chromem requires content; the vector is what matters
		Embedding: vector,
	}
	if err := x.collections[entityType].AddDocument(context.Background(), doc); err != nil {
		return &models.IndexError{RefID: refID, Reason: err.Error()}
	}
	x.membership[refID] = entityType
	return nil
}

// Remove drops the reference. Unknown references are a no-op.
func (x *ChromemIndex) Remove(refID string) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	et, ok := x.membership[refID]
	if !ok {
		return nil
	}
	if err := x.collections[et].Delete(context.Background(), nil, nil, refID); err != nil {
		return &models.IndexError{RefID: refID, Reason: err.Error()}
	}
	delete(x.membership, refID)
	return nil
}

// Search returns the top k references by cosine similarity. chromem does not
// define a tie order, so results are re-sorted to the index contract:
// descending score, ascending ref id.
func (x *ChromemIndex) Search(entityType models.EntityType, query []float32, k int) ([]Scored, error) {
	if !entityType.IsValid() {
		return nil, &models.IndexError{Reason: "unknown entity type " + string(entityType)}
	}
	if len(query) != x.dimensions {
		return nil, &models.IndexError{
			Reason: fmt.Sprintf("query dimension mismatch: got %d, index holds %d", len(query), x.dimensions),
		}
	}

	x.mu.RLock()
	defer x.mu.RUnlock()

	col := x.collections[entityType]
	// chromem requires nResults <= collection size.
	if n := col.Count(); k > n {
		k = n
	}
	if k <= 0 {
		return nil, nil
	}

	found, err := col.QueryEmbedding(context.Background(), query, k, nil, nil)
	if err != nil {
		return nil, &models.IndexError{Reason: fmt.Sprintf("query %s partition: %v", entityType, err)}
	}

	results := make([]Scored, 0, len(found))
	for _, r := range found {
		results = append(results, Scored{RefID: r.ID, Score: float64(r.Similarity)})
	}
	sortScored(results)
	return results, nil
}

// Len returns the number of vectors in the partition.
func (x *ChromemIndex) Len(entityType models.EntityType) int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	if col, ok := x.collections[entityType]; ok {
		return col.Count()
	}
	return 0
}
