package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Abhi260105/ai-agent-sub001/internal/memory"
	"github.com/Abhi260105/ai-agent-sub001/internal/models"
	"github.com/Abhi260105/ai-agent-sub001/internal/store"
)

type MemoryHandler struct {
	svc *memory.Service
}

func NewMemoryHandler(svc *memory.Service) *MemoryHandler {
	return &MemoryHandler{svc: svc}
}

type listResponse[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
}

// List handles GET /memories
func (h *MemoryHandler) List(w http.ResponseWriter, r *http.Request) {
	f := store.MemoryFilters{
		Types:       splitAs(r.URL.Query().Get("memory_type"), func(s string) models.MemoryType { return models.MemoryType(s) }),
		Importances: splitAs(r.URL.Query().Get("importance"), func(s string) models.Importance { return models.Importance(s) }),
		Tags:        splitCSV(r.URL.Query().Get("tags")),
	}

	items, total, err := h.svc.ListMemories(f, pageParams(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if items == nil {
		items = []*models.Memory{}
	}
	writeJSON(w, http.StatusOK, listResponse[*models.Memory]{Items: items, Total: total})
}

// Create handles POST /memories
func (h *MemoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	var m models.Memory
	if err := decodeJSON(r, &m); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	created, err := h.svc.CreateMemory(r.Context(), &m)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// Get handles GET /memories/{id}
func (h *MemoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	m, err := h.svc.GetMemory(id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// Update handles PATCH /memories/{id}
func (h *MemoryHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	var u models.MemoryUpdate
	if err := decodeJSON(r, &u); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	m, err := h.svc.UpdateMemory(r.Context(), id, &u)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// Delete handles DELETE /memories/{id}
func (h *MemoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	if err := h.svc.DeleteMemory(id); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

func pageParams(r *http.Request) store.Page {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	size, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
	return store.Page{Page: page, PageSize: size}
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func splitAs[T any](s string, conv func(string) T) []T {
	parts := splitCSV(s)
	if parts == nil {
		return nil
	}
	out := make([]T, len(parts))
	for i, p := range parts {
		out[i] = conv(p)
	}
	return out
}
