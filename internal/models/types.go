package models

// EntityType distinguishes the two record kinds held in the store.
// Memory and knowledge vectors live in separate index partitions and are
// never ranked against each other.
type EntityType string

const (
	EntityMemory    EntityType = "memory"
	EntityKnowledge EntityType = "knowledge"
)

func (t EntityType) IsValid() bool {
	return t == EntityMemory || t == EntityKnowledge
}

// MemoryType classifies the temporal scope of a memory.
type MemoryType string

const (
	MemoryShortTerm MemoryType = "short_term"
	MemoryLongTerm  MemoryType = "long_term"
	MemoryEpisodic  MemoryType = "episodic"
	MemorySemantic  MemoryType = "semantic"
)

var validMemoryTypes = map[MemoryType]bool{
	MemoryShortTerm: true,
	MemoryLongTerm:  true,
	MemoryEpisodic:  true,
	MemorySemantic:  true,
}

func (t MemoryType) IsValid() bool {
	return validMemoryTypes[t]
}

// Importance ranks how much a memory matters for recall.
type Importance string

const (
	ImportanceLow      Importance = "low"
	ImportanceMedium   Importance = "medium"
	ImportanceHigh     Importance = "high"
	ImportanceCritical Importance = "critical"
)

var importanceRank = map[Importance]int{
	ImportanceLow:      0,
	ImportanceMedium:   1,
	ImportanceHigh:     2,
	ImportanceCritical: 3,
}

func (i Importance) IsValid() bool {
	_, ok := importanceRank[i]
	return ok
}

// Rank returns the ordinal position of the importance level, used as a
// tie-break when similarity scores are within epsilon of each other.
func (i Importance) Rank() int {
	return importanceRank[i]
}

// Category classifies what kind of knowledge an item represents.
type Category string

const (
	CategoryFact      Category = "fact"
	CategoryConcept   Category = "concept"
	CategoryProcedure Category = "procedure"
	CategoryRelation  Category = "relation"
	CategoryEvent     Category = "event"
	CategoryEntity    Category = "entity"
)

var validCategories = map[Category]bool{
	CategoryFact:      true,
	CategoryConcept:   true,
	CategoryProcedure: true,
	CategoryRelation:  true,
	CategoryEvent:     true,
	CategoryEntity:    true,
}

func (c Category) IsValid() bool {
	return validCategories[c]
}

// Confidence grades how much a knowledge item is trusted.
type Confidence string

const (
	ConfidenceVeryLow  Confidence = "very_low"
	ConfidenceLow      Confidence = "low"
	ConfidenceMedium   Confidence = "medium"
	ConfidenceHigh     Confidence = "high"
	ConfidenceVeryHigh Confidence = "very_high"
)

var confidenceRank = map[Confidence]int{
	ConfidenceVeryLow:  0,
	ConfidenceLow:      1,
	ConfidenceMedium:   2,
	ConfidenceHigh:     3,
	ConfidenceVeryHigh: 4,
}

func (c Confidence) IsValid() bool {
	_, ok := confidenceRank[c]
	return ok
}

func (c Confidence) Rank() int {
	return confidenceRank[c]
}

// Source records the provenance of a knowledge item.
type Source string

const (
	SourceUserInput   Source = "user_input"
	SourceDocument    Source = "document"
	SourceWebSearch   Source = "web_search"
	SourceInference   Source = "inference"
	SourceExternalAPI Source = "external_api"
)

var validSources = map[Source]bool{
	SourceUserInput:   true,
	SourceDocument:    true,
	SourceWebSearch:   true,
	SourceInference:   true,
	SourceExternalAPI: true,
}

func (s Source) IsValid() bool {
	return validSources[s]
}
