package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/Abhi260105/ai-agent-sub001/internal/models"
)

// knowledgeColumns is the canonical column list for all SELECT queries.
// Order must match scanKnowledge.
const knowledgeColumns = `id, title, content, category, confidence, source,
	source_url, embedding_ref, metadata, tags, verified, access_count,
	created_at, updated_at, last_accessed, embedding_pending`

// KnowledgeFilters is the structured pre-filter for knowledge records.
type KnowledgeFilters struct {
	Categories   []models.Category   `json:"categories,omitempty"`
	Confidences  []models.Confidence `json:"confidences,omitempty"`
	Sources      []models.Source     `json:"sources,omitempty"`
	Tags         []string            `json:"tags,omitempty"`
	VerifiedOnly bool                `json:"verified_only,omitempty"`
}

// KnowledgeStore handles knowledge record CRUD on SQLite.
type KnowledgeStore struct {
	db *DB
}

func NewKnowledgeStore(db *DB) *KnowledgeStore {
	return &KnowledgeStore{db: db}
}

// Create validates and inserts a new knowledge record, assigning its
// identity and timestamps.
func (s *KnowledgeStore) Create(k *models.Knowledge) (int64, error) {
	if err := k.Validate(); err != nil {
		return 0, err
	}

	now := time.Now().Unix()
	k.CreatedAt = now
	k.UpdatedAt = now
	k.AccessCount = 0
	metaJSON, _ := json.Marshal(k.Metadata)
	tagsJSON, _ := json.Marshal(k.Tags)

	res, err := s.db.execRetry(`
		INSERT INTO knowledge (
			title, content, category, confidence, source, source_url,
			embedding_ref, metadata, tags, verified, access_count,
			created_at, updated_at, last_accessed, embedding_pending
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?, NULL, ?)
	`,
		k.Title, k.Content, string(k.Category), string(k.Confidence),
		string(k.Source), k.SourceURL, k.EmbeddingRef,
		string(metaJSON), string(tagsJSON), boolInt(k.Verified),
		k.CreatedAt, k.UpdatedAt, boolInt(k.EmbeddingPending),
	)
	if err != nil {
		return 0, fmt.Errorf("insert knowledge: %w", err)
	}
	k.ID, _ = res.LastInsertId()
	return k.ID, nil
}

// Get fetches a knowledge record, bumping access_count and last_accessed as
// an atomic side effect of the read.
func (s *KnowledgeStore) Get(id int64) (*models.Knowledge, error) {
	now := time.Now().Unix()
	res, err := s.db.execRetry(`
		UPDATE knowledge SET access_count = access_count + 1, last_accessed = ?
		WHERE id = ?
	`, now, id)
	if err != nil {
		return nil, fmt.Errorf("track knowledge access: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, models.ErrNotFound
	}
	return s.Peek(id)
}

// Peek fetches a knowledge record without touching its access tracking.
func (s *KnowledgeStore) Peek(id int64) (*models.Knowledge, error) {
	row := s.db.QueryRow(fmt.Sprintf(`SELECT %s FROM knowledge WHERE id = ?`, knowledgeColumns), id)
	k, err := scanKnowledge(row)
	if err == sql.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get knowledge: %w", err)
	}
	return k, nil
}

// Exists reports whether a knowledge record is present, without any side
// effect. Edge validation uses this.
func (s *KnowledgeStore) Exists(id int64) (bool, error) {
	var one int
	err := s.db.QueryRow(`SELECT 1 FROM knowledge WHERE id = ?`, id).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check knowledge exists: %w", err)
	}
	return true, nil
}

// Update applies a partial merge. updated_at is refreshed only when the
// update carries a content-bearing change.
func (s *KnowledgeStore) Update(id int64, u *models.KnowledgeUpdate) (*models.Knowledge, error) {
	if err := u.Validate(); err != nil {
		return nil, err
	}

	var sets []string
	var args []any

	if u.Title != nil {
		sets = append(sets, "title = ?")
		args = append(args, *u.Title)
	}
	if u.Content != nil {
		sets = append(sets, "content = ?")
		args = append(args, *u.Content)
	}
	if u.Category != nil {
		sets = append(sets, "category = ?")
		args = append(args, string(*u.Category))
	}
	if u.Confidence != nil {
		sets = append(sets, "confidence = ?")
		args = append(args, string(*u.Confidence))
	}
	if u.Source != nil {
		sets = append(sets, "source = ?")
		args = append(args, string(*u.Source))
	}
	if u.SourceURL != nil {
		sets = append(sets, "source_url = ?")
		if *u.SourceURL == "" {
			args = append(args, nil)
		} else {
			args = append(args, *u.SourceURL)
		}
	}
	if u.Metadata != nil {
		metaJSON, _ := json.Marshal(u.Metadata)
		sets = append(sets, "metadata = ?")
		args = append(args, string(metaJSON))
	}
	if u.Tags != nil {
		tagsJSON, _ := json.Marshal(*u.Tags)
		sets = append(sets, "tags = ?")
		args = append(args, string(tagsJSON))
	}
	if u.Verified != nil {
		sets = append(sets, "verified = ?")
		args = append(args, boolInt(*u.Verified))
	}

	if len(sets) == 0 {
		return s.Peek(id)
	}
	if u.ContentChanged() {
		sets = append(sets, "updated_at = ?")
		args = append(args, time.Now().Unix())
	}

	args = append(args, id)
	query := fmt.Sprintf("UPDATE knowledge SET %s WHERE id = ?", strings.Join(sets, ", "))
	res, err := s.db.execRetry(query, args...)
	if err != nil {
		return nil, fmt.Errorf("update knowledge: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, models.ErrNotFound
	}
	return s.Peek(id)
}

// Delete removes a knowledge record and cascades, in one transaction, to its
// embedding reference and every incident relationship edge so no dangling
// graph reference survives. It returns the removed reference id, if any.
func (s *KnowledgeStore) Delete(id int64) (refID string, err error) {
	tx, err := s.db.Begin()
	if err != nil {
		return "", fmt.Errorf("begin delete: %w", err)
	}
	defer tx.Rollback()

	var ref sql.NullString
	err = tx.QueryRow(`SELECT id FROM embedding_refs WHERE entity_type = 'knowledge' AND entity_id = ?`, id).Scan(&ref)
	if err != nil && err != sql.ErrNoRows {
		return "", fmt.Errorf("lookup embedding ref: %w", err)
	}
	if ref.Valid {
		if _, err := tx.Exec(`DELETE FROM embedding_refs WHERE id = ?`, ref.String); err != nil {
			return "", fmt.Errorf("delete embedding ref: %w", err)
		}
	}

	if _, err := tx.Exec(`DELETE FROM relationship_edges WHERE source_id = ? OR target_id = ?`, id, id); err != nil {
		return "", fmt.Errorf("delete incident edges: %w", err)
	}

	res, err := tx.Exec(`DELETE FROM knowledge WHERE id = ?`, id)
	if err != nil {
		return "", fmt.Errorf("delete knowledge: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return "", models.ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit delete: %w", err)
	}
	return ref.String, nil
}

// Filter returns every knowledge record matching the structured filters,
// newest first.
func (s *KnowledgeStore) Filter(f KnowledgeFilters) ([]*models.Knowledge, error) {
	var conditions []string
	var args []any

	if len(f.Categories) > 0 {
		placeholders := make([]string, len(f.Categories))
		for i, c := range f.Categories {
			placeholders[i] = "?"
			args = append(args, string(c))
		}
		conditions = append(conditions, fmt.Sprintf("category IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(f.Confidences) > 0 {
		placeholders := make([]string, len(f.Confidences))
		for i, c := range f.Confidences {
			placeholders[i] = "?"
			args = append(args, string(c))
		}
		conditions = append(conditions, fmt.Sprintf("confidence IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(f.Sources) > 0 {
		placeholders := make([]string, len(f.Sources))
		for i, v := range f.Sources {
			placeholders[i] = "?"
			args = append(args, string(v))
		}
		conditions = append(conditions, fmt.Sprintf("source IN (%s)", strings.Join(placeholders, ",")))
	}
	if f.VerifiedOnly {
		conditions = append(conditions, "verified = 1")
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf(`SELECT %s FROM knowledge %s ORDER BY created_at DESC, id DESC`, knowledgeColumns, where)
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("filter knowledge: %w", err)
	}
	defer rows.Close()

	var result []*models.Knowledge
	for rows.Next() {
		k, err := scanKnowledge(rows)
		if err != nil {
			return nil, fmt.Errorf("scan knowledge: %w", err)
		}
		if !hasAllTags(k.Tags, f.Tags) {
			continue
		}
		result = append(result, k)
	}
	return result, rows.Err()
}

// List returns a filtered page of knowledge records plus the total match count.
func (s *KnowledgeStore) List(f KnowledgeFilters, p Page) ([]*models.Knowledge, int, error) {
	all, err := s.Filter(f)
	if err != nil {
		return nil, 0, err
	}
	lo, hi := p.bounds(len(all))
	return all[lo:hi], len(all), nil
}

// SetEmbeddingRef records the reference id on the knowledge row and clears
// the pending flag.
func (s *KnowledgeStore) SetEmbeddingRef(id int64, refID string) error {
	_, err := s.db.execRetry(`
		UPDATE knowledge SET embedding_ref = ?, embedding_pending = 0 WHERE id = ?
	`, refID, id)
	if err != nil {
		return fmt.Errorf("set knowledge embedding ref: %w", err)
	}
	return nil
}

// MarkEmbeddingPending flags a record whose vector could not be generated.
func (s *KnowledgeStore) MarkEmbeddingPending(id int64) error {
	_, err := s.db.execRetry(`UPDATE knowledge SET embedding_pending = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark knowledge pending: %w", err)
	}
	return nil
}

// ListPending returns knowledge records awaiting an embedding retry.
func (s *KnowledgeStore) ListPending() ([]*models.Knowledge, error) {
	rows, err := s.db.Query(fmt.Sprintf(`SELECT %s FROM knowledge WHERE embedding_pending = 1`, knowledgeColumns))
	if err != nil {
		return nil, fmt.Errorf("list pending knowledge: %w", err)
	}
	defer rows.Close()

	var result []*models.Knowledge
	for rows.Next() {
		k, err := scanKnowledge(rows)
		if err != nil {
			return nil, fmt.Errorf("scan knowledge: %w", err)
		}
		result = append(result, k)
	}
	return result, rows.Err()
}

// MostAccessed returns the top knowledge records by access count.
func (s *KnowledgeStore) MostAccessed(limit int) ([]*models.Knowledge, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.Query(
		fmt.Sprintf(`SELECT %s FROM knowledge ORDER BY access_count DESC, id ASC LIMIT ?`, knowledgeColumns), limit)
	if err != nil {
		return nil, fmt.Errorf("most accessed knowledge: %w", err)
	}
	defer rows.Close()

	var result []*models.Knowledge
	for rows.Next() {
		k, err := scanKnowledge(rows)
		if err != nil {
			return nil, fmt.Errorf("scan knowledge: %w", err)
		}
		result = append(result, k)
	}
	return result, rows.Err()
}

func scanKnowledge(row rowScanner) (*models.Knowledge, error) {
	var k models.Knowledge
	var sourceURL, embeddingRef sql.NullString
	var metaJSON, tagsJSON sql.NullString
	var verified, pending int
	var lastAccessed sql.NullInt64

	err := row.Scan(
		&k.ID, &k.Title, &k.Content, &k.Category, &k.Confidence, &k.Source,
		&sourceURL, &embeddingRef, &metaJSON, &tagsJSON, &verified,
		&k.AccessCount, &k.CreatedAt, &k.UpdatedAt, &lastAccessed, &pending,
	)
	if err != nil {
		return nil, err
	}

	if sourceURL.Valid {
		k.SourceURL = &sourceURL.String
	}
	if embeddingRef.Valid {
		k.EmbeddingRef = &embeddingRef.String
	}
	if metaJSON.Valid {
		json.Unmarshal([]byte(metaJSON.String), &k.Metadata)
	}
	if tagsJSON.Valid {
		json.Unmarshal([]byte(tagsJSON.String), &k.Tags)
	}
	if lastAccessed.Valid {
		k.LastAccessed = &lastAccessed.Int64
	}
	k.Verified = verified != 0
	k.EmbeddingPending = pending != 0
	return &k, nil
}
