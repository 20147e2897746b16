package api

import (
	"net/http"

	"github.com/Abhi260105/ai-agent-sub001/internal/memory"
	"github.com/Abhi260105/ai-agent-sub001/internal/models"
	"github.com/Abhi260105/ai-agent-sub001/internal/query"
	"github.com/Abhi260105/ai-agent-sub001/internal/store"
)

type SearchHandler struct {
	svc              *memory.Service
	defaultThreshold float64
	defaultLimit     int
}

func NewSearchHandler(svc *memory.Service, defaultThreshold float64, defaultLimit int) *SearchHandler {
	return &SearchHandler{svc: svc, defaultThreshold: defaultThreshold, defaultLimit: defaultLimit}
}

type searchRequest struct {
	Query       string                  `json:"query"`
	EntityType  models.EntityType       `json:"entity_type"`
	Memory      *store.MemoryFilters    `json:"memory_filters,omitempty"`
	Knowledge   *store.KnowledgeFilters `json:"knowledge_filters,omitempty"`
	Threshold   *float64                `json:"threshold,omitempty"`
	Limit       int                     `json:"limit"`
	Page        int                     `json:"page"`
	PageSize    int                     `json:"page_size"`
	ExpandGraph bool                    `json:"expand_graph"`
}

// Search handles POST /search
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	var body searchRequest
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	// An absent threshold means the configured default; an explicit zero
	// means no cutoff.
	threshold := h.defaultThreshold
	if body.Threshold != nil {
		threshold = *body.Threshold
	}
	limit := body.Limit
	if limit <= 0 {
		limit = h.defaultLimit
	}

	resp, err := h.svc.Search(r.Context(), query.Request{
		Query:       body.Query,
		EntityType:  body.EntityType,
		Memory:      body.Memory,
		Knowledge:   body.Knowledge,
		Threshold:   threshold,
		Limit:       limit,
		Page:        store.Page{Page: body.Page, PageSize: body.PageSize},
		ExpandGraph: body.ExpandGraph,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
