package models

import "net/url"

// Knowledge is a structured, classifiable item with provenance and
// confidence. Relationships is a read-only projection of the edge store and
// is never written back; the edge table is the single source of truth.
type Knowledge struct {
	ID            int64              `json:"id"`
	Title         string             `json:"title"`
	Content       string             `json:"content"`
	Category      Category           `json:"category"`
	Confidence    Confidence         `json:"confidence"`
	Source        Source             `json:"source"`
	SourceURL     *string            `json:"sourceUrl,omitempty"`
	EmbeddingRef  *string            `json:"embeddingRef,omitempty"`
	Metadata      map[string]any     `json:"metadata,omitempty"`
	Tags          []string           `json:"tags"`
	Relationships map[string][]int64 `json:"relationships,omitempty"`
	Verified      bool               `json:"verified"`
	AccessCount   int                `json:"accessCount"`
	CreatedAt     int64              `json:"createdAt"`
	UpdatedAt     int64              `json:"updatedAt"`
	LastAccessed  *int64             `json:"lastAccessed,omitempty"`

	EmbeddingPending bool `json:"embeddingPending,omitempty"`
}

func (k *Knowledge) Validate() error {
	if k.Title == "" {
		return &ValidationError{Field: "title", Reason: "must not be empty"}
	}
	if k.Content == "" {
		return &ValidationError{Field: "content", Reason: "must not be empty"}
	}
	if !k.Category.IsValid() {
		return &ValidationError{Field: "category", Reason: "unknown value " + string(k.Category)}
	}
	if !k.Confidence.IsValid() {
		return &ValidationError{Field: "confidence", Reason: "unknown value " + string(k.Confidence)}
	}
	if !k.Source.IsValid() {
		return &ValidationError{Field: "source", Reason: "unknown value " + string(k.Source)}
	}
	if k.SourceURL != nil {
		if err := validateURL(*k.SourceURL); err != nil {
			return err
		}
	}
	return nil
}

// Projection renders the knowledge item for the export collaborator.
func (k *Knowledge) Projection() map[string]any {
	p := map[string]any{
		"id":           k.ID,
		"title":        k.Title,
		"content":      k.Content,
		"category":     string(k.Category),
		"confidence":   string(k.Confidence),
		"source":       string(k.Source),
		"tags":         k.Tags,
		"verified":     k.Verified,
		"access_count": k.AccessCount,
		"created_at":   k.CreatedAt,
		"updated_at":   k.UpdatedAt,
	}
	if k.SourceURL != nil {
		p["source_url"] = *k.SourceURL
	}
	if k.LastAccessed != nil {
		p["last_accessed"] = *k.LastAccessed
	}
	if len(k.Metadata) > 0 {
		p["metadata"] = k.Metadata
	}
	if len(k.Relationships) > 0 {
		p["relationships"] = k.Relationships
	}
	return p
}

// KnowledgeUpdate is a partial update: nil fields are untouched.
type KnowledgeUpdate struct {
	Title      *string        `json:"title,omitempty"`
	Content    *string        `json:"content,omitempty"`
	Category   *Category      `json:"category,omitempty"`
	Confidence *Confidence    `json:"confidence,omitempty"`
	Source     *Source        `json:"source,omitempty"`
	SourceURL  *string        `json:"sourceUrl,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Tags       *[]string      `json:"tags,omitempty"`
	Verified   *bool          `json:"verified,omitempty"`
}

func (u *KnowledgeUpdate) Validate() error {
	if u.Title != nil && *u.Title == "" {
		return &ValidationError{Field: "title", Reason: "must not be empty"}
	}
	if u.Content != nil && *u.Content == "" {
		return &ValidationError{Field: "content", Reason: "must not be empty"}
	}
	if u.Category != nil && !u.Category.IsValid() {
		return &ValidationError{Field: "category", Reason: "unknown value " + string(*u.Category)}
	}
	if u.Confidence != nil && !u.Confidence.IsValid() {
		return &ValidationError{Field: "confidence", Reason: "unknown value " + string(*u.Confidence)}
	}
	if u.Source != nil && !u.Source.IsValid() {
		return &ValidationError{Field: "source", Reason: "unknown value " + string(*u.Source)}
	}
	if u.SourceURL != nil && *u.SourceURL != "" {
		if err := validateURL(*u.SourceURL); err != nil {
			return err
		}
	}
	return nil
}

// ContentChanged reports whether the update needs a fresh embedding. Title
// and content both feed the embedded text.
func (u *KnowledgeUpdate) ContentChanged() bool {
	return u.Title != nil || u.Content != nil
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return &ValidationError{Field: "source_url", Reason: "must be an absolute URL"}
	}
	return nil
}
