package models

// Memory is a time- or context-bound note with a temporal relevance
// classification. Identity is assigned by the record store on creation.
type Memory struct {
	ID              int64          `json:"id"`
	Content         string         `json:"content"`
	MemoryType      MemoryType     `json:"memoryType"`
	Importance      Importance     `json:"importance"`
	EmbeddingRef    *string        `json:"embeddingRef,omitempty"`
	Metadata        map[string]any `json:"metadata,omitempty"`
	Tags            []string       `json:"tags"`
	AccessCount     int            `json:"accessCount"`
	CreatedAt       int64          `json:"createdAt"`
	LastAccessed    *int64         `json:"lastAccessed,omitempty"`
	RelatedMemories []int64        `json:"relatedMemories,omitempty"`

	// EmbeddingPending is set when the embedding collaborator was
	// unavailable at write time. The vector is generated on a later retry.
	EmbeddingPending bool `json:"embeddingPending,omitempty"`
}

// Validate checks the enum and non-empty-text invariants enforced at the
// record store boundary.
func (m *Memory) Validate() error {
	if m.Content == "" {
		return &ValidationError{Field: "content", Reason: "must not be empty"}
	}
	if !m.MemoryType.IsValid() {
		return &ValidationError{Field: "memory_type", Reason: "unknown value " + string(m.MemoryType)}
	}
	if !m.Importance.IsValid() {
		return &ValidationError{Field: "importance", Reason: "unknown value " + string(m.Importance)}
	}
	return nil
}

// Projection renders the memory as a string-keyed map for the export
// collaborator. All values are JSON-serializable.
func (m *Memory) Projection() map[string]any {
	p := map[string]any{
		"id":           m.ID,
		"content":      m.Content,
		"memory_type":  string(m.MemoryType),
		"importance":   string(m.Importance),
		"tags":         m.Tags,
		"access_count": m.AccessCount,
		"created_at":   m.CreatedAt,
	}
	if m.LastAccessed != nil {
		p["last_accessed"] = *m.LastAccessed
	}
	if len(m.Metadata) > 0 {
		p["metadata"] = m.Metadata
	}
	if len(m.RelatedMemories) > 0 {
		p["related_memories"] = m.RelatedMemories
	}
	return p
}

// MemoryUpdate is a partial update: nil fields are untouched.
type MemoryUpdate struct {
	Content         *string        `json:"content,omitempty"`
	MemoryType      *MemoryType    `json:"memoryType,omitempty"`
	Importance      *Importance    `json:"importance,omitempty"`
	Metadata        map[string]any `json:"metadata,omitempty"`
	Tags            *[]string      `json:"tags,omitempty"`
	RelatedMemories *[]int64       `json:"relatedMemories,omitempty"`
}

// Validate checks only the fields present in the partial update.
func (u *MemoryUpdate) Validate() error {
	if u.Content != nil && *u.Content == "" {
		return &ValidationError{Field: "content", Reason: "must not be empty"}
	}
	if u.MemoryType != nil && !u.MemoryType.IsValid() {
		return &ValidationError{Field: "memory_type", Reason: "unknown value " + string(*u.MemoryType)}
	}
	if u.Importance != nil && !u.Importance.IsValid() {
		return &ValidationError{Field: "importance", Reason: "unknown value " + string(*u.Importance)}
	}
	return nil
}

// ContentChanged reports whether the update carries new content that
// requires a fresh embedding.
func (u *MemoryUpdate) ContentChanged() bool {
	return u.Content != nil
}

// EmbeddingRef maps a record to an externally-produced vector. The reference
// table owns the vector bytes so the similarity index can always be rebuilt
// from it (losing the index loses search capability, never data).
type EmbeddingRef struct {
	ID         string     `json:"id"`
	EntityType EntityType `json:"entityType"`
	EntityID   int64      `json:"entityId"`
	Vector     []byte     `json:"-"`
	Dimensions int        `json:"vectorDimensions"`
	ModelName  string     `json:"modelName"`
	CreatedAt  int64      `json:"createdAt"`
}

// Edge is a typed, weighted, optionally bidirectional relationship between
// two knowledge records. A bidirectional edge is persisted as two rows.
type Edge struct {
	ID            int64   `json:"id"`
	SourceID      int64   `json:"sourceId"`
	TargetID      int64   `json:"targetId"`
	Type          string  `json:"relationshipType"`
	Weight        float64 `json:"weight"`
	Bidirectional bool    `json:"bidirectional"`
	CreatedAt     int64   `json:"createdAt"`
}

func (e *Edge) Validate() error {
	if e.Type == "" {
		return &ValidationError{Field: "relationship_type", Reason: "must not be empty"}
	}
	return nil
}
