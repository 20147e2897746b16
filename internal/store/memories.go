package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/Abhi260105/ai-agent-sub001/internal/models"
)

// memoryColumns is the canonical column list for all SELECT queries.
// Order must match scanMemory.
const memoryColumns = `id, content, memory_type, importance, embedding_ref,
	metadata, tags, access_count, created_at, last_accessed,
	related_memories, embedding_pending`

// MemoryFilters is the structured pre-filter for memory records. All present
// fields must match; tag filters require every listed tag.
type MemoryFilters struct {
	Types       []models.MemoryType `json:"types,omitempty"`
	Importances []models.Importance `json:"importances,omitempty"`
	Tags        []string            `json:"tags,omitempty"`
}

// Page selects a slice of a result set. Zero values fall back to defaults.
type Page struct {
	Page     int
	PageSize int
}

func (p Page) bounds(total int) (lo, hi int) {
	size := p.PageSize
	if size <= 0 || size > 200 {
		size = 50
	}
	page := p.Page
	if page < 1 {
		page = 1
	}
	lo = (page - 1) * size
	if lo > total {
		lo = total
	}
	hi = lo + size
	if hi > total {
		hi = total
	}
	return lo, hi
}

// MemoryStore handles memory record CRUD on SQLite.
type MemoryStore struct {
	db *DB
}

func NewMemoryStore(db *DB) *MemoryStore {
	return &MemoryStore{db: db}
}

// Create validates and inserts a new memory, assigning its identity and
// creation timestamp.
func (s *MemoryStore) Create(m *models.Memory) (int64, error) {
	if err := m.Validate(); err != nil {
		return 0, err
	}

	m.CreatedAt = time.Now().Unix()
	m.AccessCount = 0
	metaJSON, _ := json.Marshal(m.Metadata)
	tagsJSON, _ := json.Marshal(m.Tags)
	relatedJSON, _ := json.Marshal(m.RelatedMemories)

	res, err := s.db.execRetry(`
		INSERT INTO memories (
			content, memory_type, importance, embedding_ref,
			metadata, tags, access_count, created_at, last_accessed,
			related_memories, embedding_pending
		) VALUES (?, ?, ?, ?, ?, ?, 0, ?, NULL, ?, ?)
	`,
		m.Content, string(m.MemoryType), string(m.Importance), m.EmbeddingRef,
		string(metaJSON), string(tagsJSON), m.CreatedAt,
		string(relatedJSON), boolInt(m.EmbeddingPending),
	)
	if err != nil {
		return 0, fmt.Errorf("insert memory: %w", err)
	}
	m.ID, _ = res.LastInsertId()
	return m.ID, nil
}

// Get fetches a memory and, as a deliberate usage-tracking side effect,
// atomically bumps access_count and last_accessed. The increment is a single
// SQL UPDATE so concurrent reads never lose a count.
func (s *MemoryStore) Get(id int64) (*models.Memory, error) {
	now := time.Now().Unix()
	res, err := s.db.execRetry(`
		UPDATE memories SET access_count = access_count + 1, last_accessed = ?
		WHERE id = ?
	`, now, id)
	if err != nil {
		return nil, fmt.Errorf("track memory access: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, models.ErrNotFound
	}
	return s.Peek(id)
}

// Peek fetches a memory without touching its access tracking. Internal
// consumers (search candidates, cascades) use this so only caller-visible
// reads count.
func (s *MemoryStore) Peek(id int64) (*models.Memory, error) {
	row := s.db.QueryRow(fmt.Sprintf(`SELECT %s FROM memories WHERE id = ?`, memoryColumns), id)
	m, err := scanMemory(row)
	if err == sql.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get memory: %w", err)
	}
	return m, nil
}

// Update applies a partial merge: nil fields are untouched.
func (s *MemoryStore) Update(id int64, u *models.MemoryUpdate) (*models.Memory, error) {
	if err := u.Validate(); err != nil {
		return nil, err
	}

	var sets []string
	var args []any

	if u.Content != nil {
		sets = append(sets, "content = ?")
		args = append(args, *u.Content)
	}
	if u.MemoryType != nil {
		sets = append(sets, "memory_type = ?")
		args = append(args, string(*u.MemoryType))
	}
	if u.Importance != nil {
		sets = append(sets, "importance = ?")
		args = append(args, string(*u.Importance))
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
	if u.RelatedMemories != nil {
		relatedJSON, _ := json.Marshal(*u.RelatedMemories)
		sets = append(sets, "related_memories = ?")
		args = append(args, string(relatedJSON))
	}

	if len(sets) == 0 {
		return s.Peek(id)
	}

	args = append(args, id)
	query := fmt.Sprintf("UPDATE memories SET %s WHERE id = ?", strings.Join(sets, ", "))
	res, err := s.db.execRetry(query, args...)
	if err != nil {
		return nil, fmt.Errorf("update memory: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, models.ErrNotFound
	}
	return s.Peek(id)
}

// Delete removes a memory and cascades to its embedding reference in one
// transaction. It returns the removed reference id, if any, so the caller
// can drop the index vector.
func (s *MemoryStore) Delete(id int64) (refID string, err error) {
	tx, err := s.db.Begin()
	if err != nil {
		return "", fmt.Errorf("begin delete: %w", err)
	}
	defer tx.Rollback()

	var ref sql.NullString
	err = tx.QueryRow(`SELECT id FROM embedding_refs WHERE entity_type = 'memory' AND entity_id = ?`, id).Scan(&ref)
	if err != nil && err != sql.ErrNoRows {
		return "", fmt.Errorf("lookup embedding ref: %w", err)
	}
	if ref.Valid {
		if _, err := tx.Exec(`DELETE FROM embedding_refs WHERE id = ?`, ref.String); err != nil {
			return "", fmt.Errorf("delete embedding ref: %w", err)
		}
	}

	res, err := tx.Exec(`DELETE FROM memories WHERE id = ?`, id)
	if err != nil {
		return "", fmt.Errorf("delete memory: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return "", models.ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit delete: %w", err)
	}
	return ref.String, nil
}

// Filter returns every memory matching the structured filters, newest first.
// Tag matching happens in Go since tags are stored as a JSON array.
func (s *MemoryStore) Filter(f MemoryFilters) ([]*models.Memory, error) {
	var conditions []string
	var args []any

	if len(f.Types) > 0 {
		placeholders := make([]string, len(f.Types))
		for i, t := range f.Types {
			placeholders[i] = "?"
			args = append(args, string(t))
		}
		conditions = append(conditions, fmt.Sprintf("memory_type IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(f.Importances) > 0 {
		placeholders := make([]string, len(f.Importances))
		for i, v := range f.Importances {
			placeholders[i] = "?"
			args = append(args, string(v))
		}
		conditions = append(conditions, fmt.Sprintf("importance IN (%s)", strings.Join(placeholders, ",")))
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf(`SELECT %s FROM memories %s ORDER BY created_at DESC, id DESC`, memoryColumns, where)
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("filter memories: %w", err)
	}
	defer rows.Close()

	var result []*models.Memory
	for rows.Next() {
		m, err := scanMemory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan memory: %w", err)
		}
		if !hasAllTags(m.Tags, f.Tags) {
			continue
		}
		result = append(result, m)
	}
	return result, rows.Err()
}

// List returns a filtered page of memories plus the total match count.
func (s *MemoryStore) List(f MemoryFilters, p Page) ([]*models.Memory, int, error) {
	all, err := s.Filter(f)
	if err != nil {
		return nil, 0, err
	}
	lo, hi := p.bounds(len(all))
	return all[lo:hi], len(all), nil
}

// SetEmbeddingRef records the reference id on the memory row and clears the
// pending flag.
func (s *MemoryStore) SetEmbeddingRef(id int64, refID string) error {
	_, err := s.db.execRetry(`
		UPDATE memories SET embedding_ref = ?, embedding_pending = 0 WHERE id = ?
	`, refID, id)
	if err != nil {
		return fmt.Errorf("set memory embedding ref: %w", err)
	}
	return nil
}

// MarkEmbeddingPending flags a memory whose vector could not be generated.
func (s *MemoryStore) MarkEmbeddingPending(id int64) error {
	_, err := s.db.execRetry(`UPDATE memories SET embedding_pending = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark memory pending: %w", err)
	}
	return nil
}

// ListPending returns memories awaiting an embedding retry.
func (s *MemoryStore) ListPending() ([]*models.Memory, error) {
	rows, err := s.db.Query(fmt.Sprintf(`SELECT %s FROM memories WHERE embedding_pending = 1`, memoryColumns))
	if err != nil {
		return nil, fmt.Errorf("list pending memories: %w", err)
	}
	defer rows.Close()

	var result []*models.Memory
	for rows.Next() {
		m, err := scanMemory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan memory: %w", err)
		}
		result = append(result, m)
	}
	return result, rows.Err()
}

// MostAccessed returns the top memories by access count. Consumers of the
// access-tracking side effect (usage summaries) read through here.
func (s *MemoryStore) MostAccessed(limit int) ([]*models.Memory, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.Query(
		fmt.Sprintf(`SELECT %s FROM memories ORDER BY access_count DESC, id ASC LIMIT ?`, memoryColumns), limit)
	if err != nil {
		return nil, fmt.Errorf("most accessed memories: %w", err)
	}
	defer rows.Close()

	var result []*models.Memory
	for rows.Next() {
		m, err := scanMemory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan memory: %w", err)
		}
		result = append(result, m)
	}
	return result, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMemory(row rowScanner) (*models.Memory, error) {
	var m models.Memory
	var embeddingRef sql.NullString
	var metaJSON, tagsJSON, relatedJSON sql.NullString
	var lastAccessed sql.NullInt64
	var pending int

	err := row.Scan(
		&m.ID, &m.Content, &m.MemoryType, &m.Importance, &embeddingRef,
		&metaJSON, &tagsJSON, &m.AccessCount, &m.CreatedAt, &lastAccessed,
		&relatedJSON, &pending,
	)
	if err != nil {
		return nil, err
	}

	if embeddingRef.Valid {
		m.EmbeddingRef = &embeddingRef.String
	}
	if metaJSON.Valid {
		json.Unmarshal([]byte(metaJSON.String), &m.Metadata)
	}
	if tagsJSON.Valid {
		json.Unmarshal([]byte(tagsJSON.String), &m.Tags)
	}
	if relatedJSON.Valid {
		json.Unmarshal([]byte(relatedJSON.String), &m.RelatedMemories)
	}
	if lastAccessed.Valid {
		m.LastAccessed = &lastAccessed.Int64
	}
	m.EmbeddingPending = pending != 0
	return &m, nil
}

// hasAllTags reports whether every wanted tag appears in the record's tags.
func hasAllTags(have, want []string) bool {
	if len(want) == 0 {
		return true
	}
	set := make(map[string]bool, len(have))
	for _, t := range have {
		set[t] = true
	}
	for _, t := range want {
		if !set[t] {
			return false
		}
	}
	return true
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
