package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/Abhi260105/ai-agent-sub001/internal/models"
)

// RefStore handles the embedding reference table: one row per
// (entity_type, entity_id), holding the vector bytes the similarity index is
// rebuilt from.
type RefStore struct {
	db *DB
}

func NewRefStore(db *DB) *RefStore {
	return &RefStore{db: db}
}

// Upsert inserts or replaces the reference for the entity. The reference id
// is stable across replacements so index entries stay addressable.
func (s *RefStore) Upsert(ref *models.EmbeddingRef) error {
	ref.CreatedAt = time.Now().Unix()
	_, err := s.db.execRetry(`
		INSERT INTO embedding_refs (id, entity_type, entity_id, vector, dimensions, model_name, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(entity_type, entity_id) DO UPDATE SET
			vector = excluded.vector,
			dimensions = excluded.dimensions,
			model_name = excluded.model_name,
			created_at = excluded.created_at
	`, ref.ID, string(ref.EntityType), ref.EntityID, ref.Vector, ref.Dimensions, ref.ModelName, ref.CreatedAt)
	if err != nil {
		return fmt.Errorf("upsert embedding ref: %w", err)
	}
	return nil
}

// ByEntity returns the reference for a record, or ErrNotFound.
func (s *RefStore) ByEntity(entityType models.EntityType, entityID int64) (*models.EmbeddingRef, error) {
	row := s.db.QueryRow(`
		SELECT id, entity_type, entity_id, vector, dimensions, model_name, created_at
		FROM embedding_refs WHERE entity_type = ? AND entity_id = ?
	`, string(entityType), entityID)
	return scanRef(row)
}

// Get returns a reference by its id, or ErrNotFound.
func (s *RefStore) Get(id string) (*models.EmbeddingRef, error) {
	row := s.db.QueryRow(`
		SELECT id, entity_type, entity_id, vector, dimensions, model_name, created_at
		FROM embedding_refs WHERE id = ?
	`, id)
	return scanRef(row)
}

// All returns every reference. Index rebuilds iterate this.
func (s *RefStore) All() ([]*models.EmbeddingRef, error) {
	rows, err := s.db.Query(`
		SELECT id, entity_type, entity_id, vector, dimensions, model_name, created_at
		FROM embedding_refs ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list embedding refs: %w", err)
	}
	defer rows.Close()

	var refs []*models.EmbeddingRef
	for rows.Next() {
		var r models.EmbeddingRef
		if err := rows.Scan(&r.ID, &r.EntityType, &r.EntityID, &r.Vector, &r.Dimensions, &r.ModelName, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan embedding ref: %w", err)
		}
		refs = append(refs, &r)
	}
	return refs, rows.Err()
}

// Count returns the number of references, used to pick the index backend.
func (s *RefStore) Count() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM embedding_refs`).Scan(&n)
	return n, err
}

func scanRef(row *sql.Row) (*models.EmbeddingRef, error) {
	var r models.EmbeddingRef
	err := row.Scan(&r.ID, &r.EntityType, &r.EntityID, &r.Vector, &r.Dimensions, &r.ModelName, &r.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get embedding ref: %w", err)
	}
	return &r, nil
}

// EmbeddingCacheEntry stores a cached embedding keyed by content hash.
type EmbeddingCacheEntry struct {
	ContentHash string
	Embedding   []byte
	Dimension   int
	Model       string
	UpdatedAt   int64
}

// EmbeddingCacheStore handles embedding cache operations in SQLite.
type EmbeddingCacheStore struct {
	db *DB
}

func NewEmbeddingCacheStore(db *DB) *EmbeddingCacheStore {
	return &EmbeddingCacheStore{db: db}
}

// Get returns a cached embedding by content hash, or nil if not found.
func (s *EmbeddingCacheStore) Get(contentHash string) (*EmbeddingCacheEntry, error) {
	var e EmbeddingCacheEntry
	err := s.db.QueryRow(`
		SELECT content_hash, embedding, dimension, model, updated_at
		FROM embedding_cache WHERE content_hash = ?
	`, contentHash).Scan(&e.ContentHash, &e.Embedding, &e.Dimension, &e.Model, &e.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get embedding cache: %w", err)
	}
	return &e, nil
}

// Put upserts an embedding cache entry.
func (s *EmbeddingCacheStore) Put(entry *EmbeddingCacheEntry) error {
	entry.UpdatedAt = time.Now().Unix()
	_, err := s.db.execRetry(`
		INSERT INTO embedding_cache (content_hash, embedding, dimension, model, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(content_hash) DO UPDATE SET
			embedding = excluded.embedding,
			dimension = excluded.dimension,
			model = excluded.model,
			updated_at = excluded.updated_at
	`, entry.ContentHash, entry.Embedding, entry.Dimension, entry.Model, entry.UpdatedAt)
	if err != nil {
		return fmt.Errorf("put embedding cache: %w", err)
	}
	return nil
}
