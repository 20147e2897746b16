package memory

import (
	"context"
	"errors"

	"github.com/Abhi260105/ai-agent-sub001/internal/graph"
	"github.com/Abhi260105/ai-agent-sub001/internal/models"
	"github.com/Abhi260105/ai-agent-sub001/internal/store"
)

// CreateKnowledge stores the record, then embeds and indexes it. Title and
// content both feed the embedded text.
func (s *Service) CreateKnowledge(ctx context.Context, k *models.Knowledge) (*models.Knowledge, error) {
	if _, err := s.knowledge.Create(k); err != nil {
		return nil, err
	}

	if err := s.embedEntity(ctx, models.EntityKnowledge, k.ID, embedText(k)); err != nil {
		if errors.Is(err, models.ErrEmbeddingUnavailable) {
			s.logger.Warn("embedding unavailable, knowledge deferred", "id", k.ID)
			if err := s.knowledge.MarkEmbeddingPending(k.ID); err != nil {
				return nil, err
			}
			return s.knowledge.Peek(k.ID)
		}
		return nil, err
	}
	return s.knowledge.Peek(k.ID)
}

// GetKnowledge reads a knowledge record, counting the access and attaching
// the derived relationships projection.
func (s *Service) GetKnowledge(id int64) (*models.Knowledge, error) {
	k, err := s.knowledge.Get(id)
	if err != nil {
		return nil, err
	}
	rels, err := s.graph.RelationshipsFor(id)
	if err != nil {
		return nil, err
	}
	k.Relationships = rels
	return k, nil
}

// UpdateKnowledge applies a partial merge and refreshes the vector when
// title or content changed.
func (s *Service) UpdateKnowledge(ctx context.Context, id int64, u *models.KnowledgeUpdate) (*models.Knowledge, error) {
	k, err := s.knowledge.Update(id, u)
	if err != nil {
		return nil, err
	}
	if !u.ContentChanged() {
		return k, nil
	}

	if err := s.embedEntity(ctx, models.EntityKnowledge, id, embedText(k)); err != nil {
		if errors.Is(err, models.ErrEmbeddingUnavailable) {
			s.logger.Warn("embedding unavailable, knowledge re-embed deferred", "id", id)
			if err := s.knowledge.MarkEmbeddingPending(id); err != nil {
				return nil, err
			}
			return s.knowledge.Peek(id)
		}
		return nil, err
	}
	return s.knowledge.Peek(id)
}

// DeleteKnowledge removes the record, its embedding reference, and every
// incident relationship edge in one transaction, then drops the index
// vector so no dangling reference survives.
func (s *Service) DeleteKnowledge(id int64) error {
	refID, err := s.knowledge.Delete(id)
	if err != nil {
		return err
	}
	if refID != "" {
		if err := s.idx.Remove(refID); err != nil {
			s.logger.Warn("index removal failed, will be fixed by rebuild", "ref", refID, "error", err)
		}
	}
	return nil
}

// ListKnowledge returns a filtered page with relationship projections
// attached, plus the total match count.
func (s *Service) ListKnowledge(f store.KnowledgeFilters, p store.Page) ([]*models.Knowledge, int, error) {
	items, total, err := s.knowledge.List(f, p)
	if err != nil {
		return nil, 0, err
	}

	ids := make([]int64, len(items))
	for i, k := range items {
		ids[i] = k.ID
	}
	projections, err := s.graph.ProjectionsFor(ids)
	if err != nil {
		return nil, 0, err
	}
	for _, k := range items {
		k.Relationships = projections[k.ID]
	}
	return items, total, nil
}

// AddRelationship creates a typed, weighted edge between two knowledge
// records, validating both endpoints.
func (s *Service) AddRelationship(e *models.Edge) error {
	return s.graph.AddEdge(e)
}

// Neighbors returns the edges incident to a knowledge record.
func (s *Service) Neighbors(id int64) ([]models.Edge, error) {
	return s.graph.Neighbors(id)
}

// Traverse runs a bounded breadth-first expansion from the center record.
func (s *Service) Traverse(centerID int64, depth int) (*graph.Traversal, error) {
	return s.graph.Traverse(centerID, depth)
}

func embedText(k *models.Knowledge) string {
	return k.Title + "\n\n" + k.Content
}
