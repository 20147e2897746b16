// Package query fuses structured filtering, similarity ranking, and graph
// expansion into the single search contract callers invoke.
package query

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/Abhi260105/ai-agent-sub001/internal/embedding"
	"github.com/Abhi260105/ai-agent-sub001/internal/graph"
	"github.com/Abhi260105/ai-agent-sub001/internal/index"
	"github.com/Abhi260105/ai-agent-sub001/internal/models"
	"github.com/Abhi260105/ai-agent-sub001/internal/store"
)

// scoreEpsilon is the similarity band within which confidence/importance
// breaks ties instead of raw score.
const scoreEpsilon = 1e-4

// defaultOverFetch is how many times limit is requested from the index to
// survive post-filtering.
const defaultOverFetch = 4

// Request describes one search call.
type Request struct {
	Query       string
	EntityType  models.EntityType
	Memory      *store.MemoryFilters
	Knowledge   *store.KnowledgeFilters
	Threshold   float64 // hard cutoff on the rescaled [0, 1] similarity
	Limit       int
	Page        store.Page
	ExpandGraph bool
}

// Result is one ranked hit. Exactly one of Memory/Knowledge is set,
// matching the request's entity type.
type Result struct {
	Score     float64           `json:"score"`
	Memory    *models.Memory    `json:"memory,omitempty"`
	Knowledge *models.Knowledge `json:"knowledge,omitempty"`
}

// Response carries the ranked page plus metadata. TotalCount is the number
// of hits after filtering and thresholding, before pagination. Degraded is
// set when the embedding collaborator was unreachable and only structured
// filters were applied.
type Response struct {
	Results    []Result         `json:"results"`
	TotalCount int              `json:"totalCount"`
	Degraded   bool             `json:"degraded"`
	Expansion  *graph.Traversal `json:"expansion,omitempty"`
}

// Engine composes the record store, similarity index, relationship graph,
// and embedding collaborator.
type Engine struct {
	memories     *store.MemoryStore
	knowledge    *store.KnowledgeStore
	idx          index.VectorIndex
	embedder     embedding.Embedder
	graph        *graph.Graph
	embedTimeout time.Duration
	overFetch    int
}

func NewEngine(
	memories *store.MemoryStore,
	knowledge *store.KnowledgeStore,
	idx index.VectorIndex,
	embedder embedding.Embedder,
	g *graph.Graph,
	embedTimeout time.Duration,
) *Engine {
	if embedTimeout <= 0 {
		embedTimeout = 10 * time.Second
	}
	return &Engine{
		memories:     memories,
		knowledge:    knowledge,
		idx:          idx,
		embedder:     embedder,
		graph:        g,
		embedTimeout: embedTimeout,
		overFetch:    defaultOverFetch,
	}
}

type candidate struct {
	score     float64
	tieRank   int
	id        int64
	memory    *models.Memory
	knowledge *models.Knowledge
}

// Search runs the full pipeline: structured pre-filter, similarity scoring,
// hard threshold, fused ranking, optional one-hop graph expansion off the
// top knowledge hit, then pagination.
func (e *Engine) Search(ctx context.Context, req Request) (*Response, error) {
	if req.Query == "" {
		return nil, &models.ValidationError{Field: "query_text", Reason: "must not be empty"}
	}
	if req.Threshold < 0 || req.Threshold > 1 {
		return nil, &models.ValidationError{Field: "similarity_threshold", Reason: "must be in [0, 1]"}
	}
	entityType := req.EntityType
	if entityType == "" {
		entityType = models.EntityKnowledge
	}
	if !entityType.IsValid() {
		return nil, &models.ValidationError{Field: "entity_type", Reason: "unknown value " + string(entityType)}
	}
	limit := req.Limit
	if limit <= 0 {
		limit = 10
	}

	// Structured pre-filter is hard: nothing outside it is ever returned.
	candidates, err := e.prefilter(entityType, req)
	if err != nil {
		return nil, err
	}

	// The embedding call is bounded; unavailability degrades to structured
	// results instead of failing the request.
	embedCtx, cancel := context.WithTimeout(ctx, e.embedTimeout)
	defer cancel()
	queryVec, err := e.embedder.Embed(embedCtx, req.Query)
	if err != nil {
		if isEmbeddingUnavailable(err) {
			return e.degraded(candidates, limit, req)
		}
		return nil, fmt.Errorf("embed query: %w", err)
	}

	byRef := make(map[string]*candidate, len(candidates))
	for _, c := range candidates {
		if ref := c.refID(); ref != "" {
			byRef[ref] = c
		}
	}

	scored, err := e.idx.Search(entityType, queryVec, limit*e.overFetch)
	if err != nil {
		return nil, fmt.Errorf("similarity search: %w", err)
	}

	var survivors []*candidate
	for _, s := range scored {
		c, ok := byRef[s.RefID]
		if !ok {
			continue // outside the structured filter
		}
		score := index.RescaleScore(s.Score)
		if score < req.Threshold {
			continue // hard cutoff, not a soft penalty
		}
		c.score = score
		survivors = append(survivors, c)
	}

	rankCandidates(survivors)
	total := len(survivors)
	if len(survivors) > limit {
		survivors = survivors[:limit]
	}

	resp := &Response{TotalCount: total, Results: toResults(survivors)}
	if req.ExpandGraph {
		e.attachExpansion(resp, survivors)
	}
	paginate(resp, req.Page)
	return resp, nil
}

// prefilter applies the structured filters against the record store.
func (e *Engine) prefilter(entityType models.EntityType, req Request) ([]*candidate, error) {
	var candidates []*candidate
	switch entityType {
	case models.EntityMemory:
		var f store.MemoryFilters
		if req.Memory != nil {
			f = *req.Memory
		}
		records, err := e.memories.Filter(f)
		if err != nil {
			return nil, fmt.Errorf("filter memories: %w", err)
		}
		for _, m := range records {
			candidates = append(candidates, &candidate{
				id:      m.ID,
				tieRank: m.Importance.Rank(),
				memory:  m,
			})
		}
	case models.EntityKnowledge:
		var f store.KnowledgeFilters
		if req.Knowledge != nil {
			f = *req.Knowledge
		}
		records, err := e.knowledge.Filter(f)
		if err != nil {
			return nil, fmt.Errorf("filter knowledge: %w", err)
		}
		for _, k := range records {
			candidates = append(candidates, &candidate{
				id:        k.ID,
				tieRank:   k.Confidence.Rank(),
				knowledge: k,
			})
		}
	}
	return candidates, nil
}

// degraded answers with structured-filter-only results, newest first.
func (e *Engine) degraded(candidates []*candidate, limit int, req Request) (*Response, error) {
	total := len(candidates)
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	resp := &Response{TotalCount: total, Degraded: true, Results: toResults(candidates)}
	if req.ExpandGraph {
		e.attachExpansion(resp, candidates)
	}
	paginate(resp, req.Page)
	return resp, nil
}

// attachExpansion adds a one-hop traversal from the top hit when it is a
// knowledge record. Auxiliary context only: ranking and pagination of the
// primary set are untouched, and traversal failures drop the expansion
// rather than the response.
func (e *Engine) attachExpansion(resp *Response, ranked []*candidate) {
	if len(ranked) == 0 || ranked[0].knowledge == nil {
		return
	}
	t, err := e.graph.Traverse(ranked[0].id, 1)
	if err == nil {
		resp.Expansion = t
	}
}

// rankCandidates orders by similarity descending; within scoreEpsilon,
// higher confidence/importance wins, and ascending id makes the order total.
func rankCandidates(cands []*candidate) {
	sort.Slice(cands, func(i, j int) bool {
		di := cands[i].score - cands[j].score
		if di > scoreEpsilon {
			return true
		}
		if di < -scoreEpsilon {
			return false
		}
		if cands[i].tieRank != cands[j].tieRank {
			return cands[i].tieRank > cands[j].tieRank
		}
		return cands[i].id < cands[j].id
	})
}

func paginate(resp *Response, p store.Page) {
	lo := 0
	hi := len(resp.Results)
	size := p.PageSize
	if size <= 0 || size > 200 {
		size = 50
	}
	page := p.Page
	if page < 1 {
		page = 1
	}
	lo = (page - 1) * size
	if lo > hi {
		lo = hi
	}
	if lo+size < hi {
		hi = lo + size
	}
	resp.Results = resp.Results[lo:hi]
}

func toResults(cands []*candidate) []Result {
	results := make([]Result, 0, len(cands))
	for _, c := range cands {
		results = append(results, Result{Score: c.score, Memory: c.memory, Knowledge: c.knowledge})
	}
	return results
}

func (c *candidate) refID() string {
	if c.memory != nil && c.memory.EmbeddingRef != nil {
		return *c.memory.EmbeddingRef
	}
	if c.knowledge != nil && c.knowledge.EmbeddingRef != nil {
		return *c.knowledge.EmbeddingRef
	}
	return ""
}

func isEmbeddingUnavailable(err error) bool {
	return errors.Is(err, models.ErrEmbeddingUnavailable)
}
