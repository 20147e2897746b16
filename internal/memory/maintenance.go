package memory

import (
	"context"
	"errors"
	"fmt"

	"github.com/Abhi260105/ai-agent-sub001/internal/index"
	"github.com/Abhi260105/ai-agent-sub001/internal/models"
	"github.com/Abhi260105/ai-agent-sub001/internal/store"
)

// RetryPendingEmbeddings re-embeds every record flagged pending. It stops
// early when the collaborator is still unreachable; everything left stays
// pending for the next pass. Returns the number of records repaired.
func (s *Service) RetryPendingEmbeddings(ctx context.Context) (int, error) {
	repaired := 0

	pendingMems, err := s.memories.ListPending()
	if err != nil {
		return repaired, err
	}
	for _, m := range pendingMems {
		if err := s.embedEntity(ctx, models.EntityMemory, m.ID, m.Content); err != nil {
			if errors.Is(err, models.ErrEmbeddingUnavailable) {
				return repaired, nil
			}
			return repaired, fmt.Errorf("retry memory %d: %w", m.ID, err)
		}
		repaired++
	}

	pendingKnow, err := s.knowledge.ListPending()
	if err != nil {
		return repaired, err
	}
	for _, k := range pendingKnow {
		if err := s.embedEntity(ctx, models.EntityKnowledge, k.ID, embedText(k)); err != nil {
			if errors.Is(err, models.ErrEmbeddingUnavailable) {
				return repaired, nil
			}
			return repaired, fmt.Errorf("retry knowledge %d: %w", k.ID, err)
		}
		repaired++
	}

	return repaired, nil
}

// RebuildIndex repopulates the similarity index from the embedding
// reference table. The index is a cache: losing it loses search capability
// until this runs, never data.
func (s *Service) RebuildIndex() (int, error) {
	refs, err := s.refs.All()
	if err != nil {
		return 0, err
	}

	loaded := 0
	for _, ref := range refs {
		vec := index.BytesToFloat32(ref.Vector)
		if vec == nil {
			s.logger.Warn("skipping corrupt vector during rebuild", "ref", ref.ID)
			continue
		}
		if err := s.idx.Upsert(ref.ID, ref.EntityType, vec); err != nil {
			var ie *models.IndexError
			if errors.As(err, &ie) {
				s.logger.Warn("skipping unindexable vector during rebuild", "ref", ref.ID, "error", err)
				continue
			}
			return loaded, err
		}
		loaded++
	}
	return loaded, nil
}

// Stats summarizes store usage for the stats endpoint.
type Stats struct {
	MemoryCount        int                 `json:"memoryCount"`
	KnowledgeCount     int                 `json:"knowledgeCount"`
	IndexedMemories    int                 `json:"indexedMemories"`
	IndexedKnowledge   int                 `json:"indexedKnowledge"`
	MostAccessedMemory []*models.Memory    `json:"mostAccessedMemories"`
	MostAccessedKnow   []*models.Knowledge `json:"mostAccessedKnowledge"`
	RecentMemories     []*models.Memory    `json:"recentMemories"`
	RecentKnowledge    []*models.Knowledge `json:"recentKnowledge"`
}

// UsageStats builds the summaries that depend on consistent access tracking.
func (s *Service) UsageStats(topN int) (*Stats, error) {
	mems, err := s.memories.MostAccessed(topN)
	if err != nil {
		return nil, err
	}
	know, err := s.knowledge.MostAccessed(topN)
	if err != nil {
		return nil, err
	}
	recentMems, _, err := s.memories.List(store.MemoryFilters{}, store.Page{Page: 1, PageSize: topN})
	if err != nil {
		return nil, err
	}
	recentKnow, _, err := s.knowledge.List(store.KnowledgeFilters{}, store.Page{Page: 1, PageSize: topN})
	if err != nil {
		return nil, err
	}
	memCount, knowCount, err := s.db.Counts()
	if err != nil {
		return nil, err
	}
	return &Stats{
		MemoryCount:        memCount,
		KnowledgeCount:     knowCount,
		IndexedMemories:    s.idx.Len(models.EntityMemory),
		IndexedKnowledge:   s.idx.Len(models.EntityKnowledge),
		MostAccessedMemory: mems,
		MostAccessedKnow:   know,
		RecentMemories:     recentMems,
		RecentKnowledge:    recentKnow,
	}, nil
}

// MemoryProjections returns export-ready projections of all memories,
// newest first. limit <= 0 means everything.
func (s *Service) MemoryProjections(limit int) ([]map[string]any, error) {
	items, err := s.memories.Filter(store.MemoryFilters{})
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	out := make([]map[string]any, len(items))
	for i, m := range items {
		out[i] = m.Projection()
	}
	return out, nil
}

// KnowledgeProjections returns export-ready projections of all knowledge
// records with relationships attached, newest first. limit <= 0 means
// everything.
func (s *Service) KnowledgeProjections(limit int) ([]map[string]any, error) {
	items, err := s.knowledge.Filter(store.KnowledgeFilters{})
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}

	ids := make([]int64, len(items))
	for i, k := range items {
		ids[i] = k.ID
	}
	projections, err := s.graph.ProjectionsFor(ids)
	if err != nil {
		return nil, err
	}

	out := make([]map[string]any, len(items))
	for i, k := range items {
		k.Relationships = projections[k.ID]
		out[i] = k.Projection()
	}
	return out, nil
}
