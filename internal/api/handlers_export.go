package api

import (
	"net/http"
	"strconv"

	"github.com/Abhi260105/ai-agent-sub001/internal/export"
	"github.com/Abhi260105/ai-agent-sub001/internal/memory"
	"github.com/Abhi260105/ai-agent-sub001/internal/models"
)

type ExportHandler struct {
	svc     *memory.Service
	history *export.History
}

func NewExportHandler(svc *memory.Service, history *export.History) *ExportHandler {
	return &ExportHandler{svc: svc, history: history}
}

// Export handles GET /export?entity_type=memory|knowledge&format=json|csv|markdown
func (h *ExportHandler) Export(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	format := export.Format(q.Get("format"))
	if format == "" {
		format = export.FormatJSON
	}
	if !format.IsValid() {
		writeError(w, http.StatusBadRequest, "unknown format: "+string(format))
		return
	}

	entityType := models.EntityType(q.Get("entity_type"))
	if entityType == "" {
		entityType = models.EntityKnowledge
	}

	limit := 0
	if s := q.Get("limit"); s != "" {
		var err error
		limit, err = strconv.Atoi(s)
		if err != nil || limit < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
	}

	var records []map[string]any
	var err error
	switch entityType {
	case models.EntityMemory:
		records, err = h.svc.MemoryProjections(limit)
	case models.EntityKnowledge:
		records, err = h.svc.KnowledgeProjections(limit)
	default:
		writeError(w, http.StatusBadRequest, "unknown entity_type: "+string(entityType))
		return
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}

	out, err := export.Render(format, records)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.history.Record(format, string(entityType), len(records), len(out))

	w.Header().Set("Content-Type", format.ContentType())
	w.WriteHeader(http.StatusOK)
	w.Write(out)
}

// History handles GET /export/history
func (h *ExportHandler) History(w http.ResponseWriter, r *http.Request) {
	entries := h.history.Recent()
	if entries == nil {
		entries = []export.HistoryEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}
