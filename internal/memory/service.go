// Package memory is the facade over the record stores, embedding reference
// table, similarity index, and relationship graph. It owns write-path
// orchestration and the deletion cascade.
package memory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/Abhi260105/ai-agent-sub001/internal/embedding"
	"github.com/Abhi260105/ai-agent-sub001/internal/graph"
	"github.com/Abhi260105/ai-agent-sub001/internal/index"
	"github.com/Abhi260105/ai-agent-sub001/internal/models"
	"github.com/Abhi260105/ai-agent-sub001/internal/query"
	"github.com/Abhi260105/ai-agent-sub001/internal/store"
)

// Service composes the store components behind the operations callers invoke.
type Service struct {
	db        *store.DB
	memories  *store.MemoryStore
	knowledge *store.KnowledgeStore
	refs      *store.RefStore
	idx       index.VectorIndex
	embedder  embedding.Embedder
	graph     *graph.Graph
	engine    *query.Engine
	modelName string
	dim       int
	logger    *slog.Logger
}

func NewService(
	db *store.DB,
	memories *store.MemoryStore,
	knowledge *store.KnowledgeStore,
	refs *store.RefStore,
	idx index.VectorIndex,
	embedder embedding.Embedder,
	g *graph.Graph,
	engine *query.Engine,
	modelName string,
	dim int,
	logger *slog.Logger,
) *Service {
	return &Service{
		db:        db,
		memories:  memories,
		knowledge: knowledge,
		refs:      refs,
		idx:       idx,
		embedder:  embedder,
		graph:     g,
		engine:    engine,
		modelName: modelName,
		dim:       dim,
		logger:    logger,
	}
}

// CreateMemory stores the record, then embeds and indexes its content. When
// the embedding collaborator is unreachable the record still lands, flagged
// embedding-pending for a later retry.
func (s *Service) CreateMemory(ctx context.Context, m *models.Memory) (*models.Memory, error) {
	if _, err := s.memories.Create(m); err != nil {
		return nil, err
	}

	if err := s.embedEntity(ctx, models.EntityMemory, m.ID, m.Content); err != nil {
		if errors.Is(err, models.ErrEmbeddingUnavailable) {
			s.logger.Warn("embedding unavailable, memory deferred", "id", m.ID)
			if err := s.memories.MarkEmbeddingPending(m.ID); err != nil {
				return nil, err
			}
			return s.memories.Peek(m.ID)
		}
		return nil, err
	}
	return s.memories.Peek(m.ID)
}

// GetMemory reads a memory, counting the access.
func (s *Service) GetMemory(id int64) (*models.Memory, error) {
	return s.memories.Get(id)
}

// UpdateMemory applies a partial merge and refreshes the vector when the
// content changed.
func (s *Service) UpdateMemory(ctx context.Context, id int64, u *models.MemoryUpdate) (*models.Memory, error) {
	m, err := s.memories.Update(id, u)
	if err != nil {
		return nil, err
	}
	if !u.ContentChanged() {
		return m, nil
	}

	if err := s.embedEntity(ctx, models.EntityMemory, id, m.Content); err != nil {
		if errors.Is(err, models.ErrEmbeddingUnavailable) {
			s.logger.Warn("embedding unavailable, memory re-embed deferred", "id", id)
			if err := s.memories.MarkEmbeddingPending(id); err != nil {
				return nil, err
			}
			return s.memories.Peek(id)
		}
		return nil, err
	}
	return s.memories.Peek(id)
}

// DeleteMemory removes the record and its embedding reference atomically,
// then drops the index vector. Index removal is idempotent, so a retried
// cascade converges.
func (s *Service) DeleteMemory(id int64) error {
	refID, err := s.memories.Delete(id)
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

// ListMemories returns a filtered page plus the total match count.
func (s *Service) ListMemories(f store.MemoryFilters, p store.Page) ([]*models.Memory, int, error) {
	return s.memories.List(f, p)
}

// Search delegates to the query engine.
func (s *Service) Search(ctx context.Context, req query.Request) (*query.Response, error) {
	return s.engine.Search(ctx, req)
}

// embedEntity generates the vector for a record, upserts the embedding
// reference, and updates the index. An index failure is isolated: the
// reference row is durable and the vector reappears on the next rebuild.
func (s *Service) embedEntity(ctx context.Context, entityType models.EntityType, entityID int64, text string) error {
	vec, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return err
	}

	refID := uuid.New().String()
	if existing, err := s.refs.ByEntity(entityType, entityID); err == nil {
		refID = existing.ID // keep the reference id stable across re-embeds
	}

	ref := &models.EmbeddingRef{
		ID:         refID,
		EntityType: entityType,
		EntityID:   entityID,
		Vector:     index.Float32ToBytes(vec),
		Dimensions: len(vec),
		ModelName:  s.modelName,
	}
	if err := s.refs.Upsert(ref); err != nil {
		return err
	}

	switch entityType {
	case models.EntityMemory:
		err = s.memories.SetEmbeddingRef(entityID, refID)
	case models.EntityKnowledge:
		err = s.knowledge.SetEmbeddingRef(entityID, refID)
	}
	if err != nil {
		return err
	}

	if err := s.idx.Upsert(refID, entityType, vec); err != nil {
		var ie *models.IndexError
		if errors.As(err, &ie) {
			s.logger.Warn("index upsert failed, record kept", "ref", refID, "error", err)
			return nil
		}
		return fmt.Errorf("index upsert: %w", err)
	}
	return nil
}
