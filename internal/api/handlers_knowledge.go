package api

import (
	"net/http"
	"strconv"

	"github.com/Abhi260105/ai-agent-sub001/internal/memory"
	"github.com/Abhi260105/ai-agent-sub001/internal/models"
	"github.com/Abhi260105/ai-agent-sub001/internal/store"
)

type KnowledgeHandler struct {
	svc *memory.Service
}

func NewKnowledgeHandler(svc *memory.Service) *KnowledgeHandler {
	return &KnowledgeHandler{svc: svc}
}

// List handles GET /knowledge
func (h *KnowledgeHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := store.KnowledgeFilters{
		Categories:   splitAs(q.Get("category"), func(s string) models.Category { return models.Category(s) }),
		Confidences:  splitAs(q.Get("confidence"), func(s string) models.Confidence { return models.Confidence(s) }),
		Sources:      splitAs(q.Get("source"), func(s string) models.Source { return models.Source(s) }),
		Tags:         splitCSV(q.Get("tags")),
		VerifiedOnly: q.Get("verified") == "true",
	}

	items, total, err := h.svc.ListKnowledge(f, pageParams(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if items == nil {
		items = []*models.Knowledge{}
	}
	writeJSON(w, http.StatusOK, listResponse[*models.Knowledge]{Items: items, Total: total})
}

// Create handles POST /knowledge
func (h *KnowledgeHandler) Create(w http.ResponseWriter, r *http.Request) {
	var k models.Knowledge
	if err := decodeJSON(r, &k); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	created, err := h.svc.CreateKnowledge(r.Context(), &k)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// Get handles GET /knowledge/{id}
func (h *KnowledgeHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	k, err := h.svc.GetKnowledge(id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, k)
}

// Update handles PATCH /knowledge/{id}
func (h *KnowledgeHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	var u models.KnowledgeUpdate
	if err := decodeJSON(r, &u); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	k, err := h.svc.UpdateKnowledge(r.Context(), id, &u)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, k)
}

// Delete handles DELETE /knowledge/{id}
func (h *KnowledgeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	if err := h.svc.DeleteKnowledge(id); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Neighbors handles GET /knowledge/{id}/neighbors
func (h *KnowledgeHandler) Neighbors(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	edges, err := h.svc.Neighbors(id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if edges == nil {
		edges = []models.Edge{}
	}
	writeJSON(w, http.StatusOK, edges)
}

// Traverse handles GET /knowledge/{id}/graph?depth=N
func (h *KnowledgeHandler) Traverse(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	depth := 1
	if d := r.URL.Query().Get("depth"); d != "" {
		depth, err = strconv.Atoi(d)
		if err != nil || depth < 0 {
			writeError(w, http.StatusBadRequest, "invalid depth")
			return
		}
	}
	t, err := h.svc.Traverse(id, depth)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// AddRelationship handles POST /relationships
func (h *KnowledgeHandler) AddRelationship(w http.ResponseWriter, r *http.Request) {
	var e models.Edge
	if err := decodeJSON(r, &e); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if err := h.svc.AddRelationship(&e); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}
