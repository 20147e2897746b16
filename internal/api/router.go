package api

import (
	"log/slog"

	"github.com/go-chi/chi/v5"

	"github.com/Abhi260105/ai-agent-sub001/internal/embedding"
	"github.com/Abhi260105/ai-agent-sub001/internal/export"
	"github.com/Abhi260105/ai-agent-sub001/internal/memory"
	"github.com/Abhi260105/ai-agent-sub001/internal/store"
)

// NewRouter creates the chi router with all routes and middleware.
func NewRouter(
	db *store.DB,
	svc *memory.Service,
	ollama *embedding.OllamaClient,
	history *export.History,
	apiKey string,
	defaultThreshold float64,
	defaultLimit int,
	logger *slog.Logger,
) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware (runs on ALL routes including /health)
	r.Use(RequestID)
	r.Use(Logger(logger))
	r.Use(Recovery(logger))

	healthH := NewHealthHandler(db, ollama)
	memoryH := NewMemoryHandler(svc)
	knowledgeH := NewKnowledgeHandler(svc)
	searchH := NewSearchHandler(svc, defaultThreshold, defaultLimit)
	exportH := NewExportHandler(svc, history)
	adminH := NewAdminHandler(svc)

	// Unauthenticated routes
	r.Get("/health", healthH.Health)

	// Authenticated routes
	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(apiKey))

		r.Route("/memories", func(r chi.Router) {
			r.Get("/", memoryH.List)
			r.Post("/", memoryH.Create)
			r.Get("/{id}", memoryH.Get)
			r.Patch("/{id}", memoryH.Update)
			r.Delete("/{id}", memoryH.Delete)
		})

		r.Route("/knowledge", func(r chi.Router) {
			r.Get("/", knowledgeH.List)
			r.Post("/", knowledgeH.Create)
			r.Get("/{id}", knowledgeH.Get)
			r.Patch("/{id}", knowledgeH.Update)
			r.Delete("/{id}", knowledgeH.Delete)
			r.Get("/{id}/neighbors", knowledgeH.Neighbors)
			r.Get("/{id}/graph", knowledgeH.Traverse)
		})

		r.Post("/relationships", knowledgeH.AddRelationship)
		r.Post("/search", searchH.Search)

		r.Route("/export", func(r chi.Router) {
			r.Get("/", exportH.Export)
			r.Get("/history", exportH.History)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Get("/stats", adminH.Stats)
			r.Post("/reindex", adminH.Reindex)
			r.Post("/retry-pending", adminH.RetryPending)
		})
	})

	return r
}
