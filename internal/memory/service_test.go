package memory

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/Abhi260105/ai-agent-sub001/internal/embedding"
	"github.com/Abhi260105/ai-agent-sub001/internal/graph"
	"github.com/Abhi260105/ai-agent-sub001/internal/index"
	"github.com/Abhi260105/ai-agent-sub001/internal/models"
	"github.com/Abhi260105/ai-agent-sub001/internal/query"
	"github.com/Abhi260105/ai-agent-sub001/internal/store"
)

const testDim = 8

func setupService(t *testing.T) (*Service, *embedding.MockEmbedder, index.VectorIndex) {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	ms := store.NewMemoryStore(db)
	ks := store.NewKnowledgeStore(db)
	refs := store.NewRefStore(db)
	idx := index.NewExactIndex(testDim)
	emb := embedding.NewMockEmbedder(testDim)
	g := graph.New(store.NewEdgeStore(db), ks)
	engine := query.NewEngine(ms, ks, idx, emb, g, time.Second)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	svc := NewService(db, ms, ks, refs, idx, emb, g, engine, "mock", testDim, logger)
	return svc, emb, idx
}

func TestCreateMemoryIndexes(t *testing.T) {
	svc, _, idx := setupService(t)
	ctx := context.Background()

	m, err := svc.CreateMemory(ctx, &models.Memory{
		Content:    "remember this",
		MemoryType: models.MemoryLongTerm,
		Importance: models.ImportanceHigh,
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if m.EmbeddingRef == nil {
		t.Fatal("expected embedding ref on created memory")
	}
	if m.EmbeddingPending {
		t.Fatal("memory flagged pending with a healthy embedder")
	}
	if idx.Len(models.EntityMemory) != 1 {
		t.Fatalf("vector not indexed: %d", idx.Len(models.EntityMemory))
	}
}

func TestCreateMemoryDegradesToPending(t *testing.T) {
	svc, emb, idx := setupService(t)
	ctx := context.Background()
	emb.Fail = true

	m, err := svc.CreateMemory(ctx, &models.Memory{
		Content:    "stored despite outage",
		MemoryType: models.MemoryShortTerm,
		Importance: models.ImportanceLow,
	})
	if err != nil {
		t.Fatalf("create should survive embedder outage: %v", err)
	}
	if !m.EmbeddingPending {
		t.Fatal("expected pending flag")
	}
	if m.EmbeddingRef != nil {
		t.Fatal("unexpected embedding ref")
	}
	if idx.Len(models.EntityMemory) != 0 {
		t.Fatal("vector indexed without an embedding")
	}

	t.Run("retry repairs pending records", func(t *testing.T) {
		emb.Fail = false
		repaired, err := svc.RetryPendingEmbeddings(ctx)
		if err != nil {
			t.Fatalf("retry failed: %v", err)
		}
		if repaired != 1 {
			t.Fatalf("expected 1 repaired, got %d", repaired)
		}

		got, err := svc.GetMemory(m.ID)
		if err != nil {
			t.Fatalf("get failed: %v", err)
		}
		if got.EmbeddingPending || got.EmbeddingRef == nil {
			t.Fatalf("record not repaired: pending=%v ref=%v", got.EmbeddingPending, got.EmbeddingRef)
		}
		if idx.Len(models.EntityMemory) != 1 {
			t.Fatal("repaired vector not indexed")
		}
	})

	t.Run("retry stops early while still unavailable", func(t *testing.T) {
		emb.Fail = true
		if _, err := svc.CreateMemory(ctx, &models.Memory{
			Content:    "still down",
			MemoryType: models.MemoryShortTerm,
			Importance: models.ImportanceLow,
		}); err != nil {
			t.Fatalf("create failed: %v", err)
		}
		repaired, err := svc.RetryPendingEmbeddings(ctx)
		if err != nil {
			t.Fatalf("retry should not error: %v", err)
		}
		if repaired != 0 {
			t.Fatalf("expected 0 repaired, got %d", repaired)
		}
	})
}

func TestUpdateMemoryReembedsOnContentChange(t *testing.T) {
	svc, _, _ := setupService(t)
	ctx := context.Background()

	m, err := svc.CreateMemory(ctx, &models.Memory{
		Content:    "v1",
		MemoryType: models.MemoryLongTerm,
		Importance: models.ImportanceMedium,
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	origRef := *m.EmbeddingRef

	newContent := "v2"
	updated, err := svc.UpdateMemory(ctx, m.ID, &models.MemoryUpdate{Content: &newContent})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if updated.EmbeddingRef == nil || *updated.EmbeddingRef != origRef {
		t.Fatalf("ref id should stay stable across re-embeds: %v", updated.EmbeddingRef)
	}
}

func TestDeleteMemoryCleansIndex(t *testing.T) {
	svc, _, idx := setupService(t)
	ctx := context.Background()

	m, err := svc.CreateMemory(ctx, &models.Memory{
		Content:    "short lived",
		MemoryType: models.MemoryShortTerm,
		Importance: models.ImportanceLow,
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if err := svc.DeleteMemory(m.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if idx.Len(models.EntityMemory) != 0 {
		t.Fatal("vector survived delete")
	}
	if _, err := svc.GetMemory(m.ID); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestKnowledgeLifecycle(t *testing.T) {
	svc, _, _ := setupService(t)
	ctx := context.Background()

	python, err := svc.CreateKnowledge(ctx, &models.Knowledge{
		Title: "Python", Content: "A programming language.",
		Category: models.CategoryEntity, Confidence: models.ConfidenceVeryHigh,
		Source: models.SourceUserInput,
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	fastapi, err := svc.CreateKnowledge(ctx, &models.Knowledge{
		Title: "FastAPI", Content: "A web framework.",
		Category: models.CategoryEntity, Confidence: models.ConfidenceHigh,
		Source: models.SourceUserInput,
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if err := svc.AddRelationship(&models.Edge{
		SourceID: python.ID, TargetID: fastapi.ID, Type: "used_by",
	}); err != nil {
		t.Fatalf("add relationship failed: %v", err)
	}

	t.Run("get attaches the derived relationships projection", func(t *testing.T) {
		got, err := svc.GetKnowledge(python.ID)
		if err != nil {
			t.Fatalf("get failed: %v", err)
		}
		targets := got.Relationships["used_by"]
		if len(targets) != 1 || targets[0] != fastapi.ID {
			t.Fatalf("projection wrong: %v", got.Relationships)
		}
	})

	t.Run("delete cascades relationships", func(t *testing.T) {
		if err := svc.DeleteKnowledge(fastapi.ID); err != nil {
			t.Fatalf("delete failed: %v", err)
		}
		got, err := svc.GetKnowledge(python.ID)
		if err != nil {
			t.Fatalf("get failed: %v", err)
		}
		if len(got.Relationships) != 0 {
			t.Fatalf("dangling relationship: %v", got.Relationships)
		}
	})
}

func TestRebuildIndex(t *testing.T) {
	svc, _, idx := setupService(t)
	ctx := context.Background()

	for _, content := range []string{"one", "two", "three"} {
		if _, err := svc.CreateMemory(ctx, &models.Memory{
			Content:    content,
			MemoryType: models.MemoryLongTerm,
			Importance: models.ImportanceMedium,
		}); err != nil {
			t.Fatalf("create failed: %v", err)
		}
	}

	// Simulate losing the in-process index.
	fresh := index.NewExactIndex(testDim)
	svc.idx = fresh
	svc.engine = nil // rebuild must not need the engine

	loaded, err := svc.RebuildIndex()
	if err != nil {
		t.Fatalf("rebuild failed: %v", err)
	}
	if loaded != 3 {
		t.Fatalf("expected 3 vectors loaded, got %d", loaded)
	}
	if fresh.Len(models.EntityMemory) != 3 {
		t.Fatalf("index not repopulated: %d", fresh.Len(models.EntityMemory))
	}
	_ = idx
}

func TestSearchThroughService(t *testing.T) {
	svc, _, _ := setupService(t)
	ctx := context.Background()

	target, err := svc.CreateKnowledge(ctx, &models.Knowledge{
		Title: "WAL mode", Content: "SQLite write-ahead logging.",
		Category: models.CategoryConcept, Confidence: models.ConfidenceHigh,
		Source: models.SourceDocument,
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	// The mock embedder is deterministic: the same text scores 1.0 against
	// itself.
	resp, err := svc.Search(ctx, query.Request{
		Query:     "WAL mode\n\nSQLite write-ahead logging.",
		Threshold: 0.9,
	})
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if resp.TotalCount < 1 {
		t.Fatal("expected at least one hit")
	}
	if resp.Results[0].Knowledge.ID != target.ID {
		t.Fatalf("expected exact-text match first, got %d", resp.Results[0].Knowledge.ID)
	}
}

func TestUsageStats(t *testing.T) {
	svc, _, _ := setupService(t)
	ctx := context.Background()

	m, err := svc.CreateMemory(ctx, &models.Memory{
		Content:    "popular",
		MemoryType: models.MemoryLongTerm,
		Importance: models.ImportanceHigh,
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := svc.GetMemory(m.ID); err != nil {
			t.Fatalf("get failed: %v", err)
		}
	}

	stats, err := svc.UsageStats(5)
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if stats.MemoryCount != 1 || stats.IndexedMemories != 1 {
		t.Fatalf("counts wrong: %+v", stats)
	}
	if len(stats.MostAccessedMemory) != 1 || stats.MostAccessedMemory[0].AccessCount != 3 {
		t.Fatalf("most accessed wrong: %+v", stats.MostAccessedMemory)
	}
	if len(stats.RecentMemories) != 1 || stats.RecentMemories[0].ID != m.ID {
		t.Fatalf("recent list wrong: %+v", stats.RecentMemories)
	}
}
