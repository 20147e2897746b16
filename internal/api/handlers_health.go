package api

import (
	"net/http"
	"strconv"

	"github.com/Abhi260105/ai-agent-sub001/internal/embedding"
	"github.com/Abhi260105/ai-agent-sub001/internal/memory"
	"github.com/Abhi260105/ai-agent-sub001/internal/store"
)

type serviceCheck struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

type healthResponse struct {
	Status         string       `json:"status"`
	DB             serviceCheck `json:"db"`
	Embedder       serviceCheck `json:"embedder"`
	MemoryCount    int          `json:"memoryCount"`
	KnowledgeCount int          `json:"knowledgeCount"`
}

type HealthHandler struct {
	db     *store.DB
	ollama *embedding.OllamaClient
}

func NewHealthHandler(db *store.DB, ollama *embedding.OllamaClient) *HealthHandler {
	return &HealthHandler{db: db, ollama: ollama}
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok"}

	if h.ollama != nil {
		if err := h.ollama.HealthCheck(); err != nil {
			resp.Embedder = serviceCheck{Status: "error", Message: err.Error()}
			resp.Status = "degraded"
		} else {
			resp.Embedder = serviceCheck{Status: "ok"}
		}
	} else {
		resp.Embedder = serviceCheck{Status: "ok", Message: "in-process"}
	}

	memCount, knowCount, err := h.db.Counts()
	if err != nil {
		resp.DB = serviceCheck{Status: "error", Message: err.Error()}
		resp.Status = "degraded"
	} else {
		resp.DB = serviceCheck{Status: "ok"}
		resp.MemoryCount = memCount
		resp.KnowledgeCount = knowCount
	}

	status := http.StatusOK
	if resp.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

type AdminHandler struct {
	svc *memory.Service
}

func NewAdminHandler(svc *memory.Service) *AdminHandler {
	return &AdminHandler{svc: svc}
}

// Stats handles GET /admin/stats
func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	topN := 5
	if s := r.URL.Query().Get("top"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "invalid top")
			return
		}
		topN = n
	}
	stats, err := h.svc.UsageStats(topN)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// Reindex handles POST /admin/reindex
func (h *AdminHandler) Reindex(w http.ResponseWriter, r *http.Request) {
	loaded, err := h.svc.RebuildIndex()
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"indexed": loaded})
}

// RetryPending handles POST /admin/retry-pending
func (h *AdminHandler) RetryPending(w http.ResponseWriter, r *http.Request) {
	repaired, err := h.svc.RetryPendingEmbeddings(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"repaired": repaired})
}
