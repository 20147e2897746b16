package store

import (
	"errors"
	"testing"
	"time"

	"github.com/Abhi260105/ai-agent-sub001/internal/models"
)

func createKnowledge(t *testing.T, ks *KnowledgeStore, title string) int64 {
	t.Helper()
	id, err := ks.Create(&models.Knowledge{
		Title:      title,
		Content:    "content for " + title,
		Category:   models.CategoryConcept,
		Confidence: models.ConfidenceHigh,
		Source:     models.SourceUserInput,
	})
	if err != nil {
		t.Fatalf("create knowledge %q failed: %v", title, err)
	}
	return id
}

func TestKnowledgeStore(t *testing.T) {
	db := setupTestDB(t)
	ks := NewKnowledgeStore(db)

	t.Run("Create and Peek round-trips fields", func(t *testing.T) {
		url := "https://go.dev/doc"
		k := &models.Knowledge{
			Title:      "Go concurrency",
			Content:    "Goroutines are cheap.",
			Category:   models.CategoryConcept,
			Confidence: models.ConfidenceVeryHigh,
			Source:     models.SourceDocument,
			SourceURL:  &url,
			Tags:       []string{"go"},
			Verified:   true,
		}
		id, err := ks.Create(k)
		if err != nil {
			t.Fatalf("create failed: %v", err)
		}

		got, err := ks.Peek(id)
		if err != nil {
			t.Fatalf("peek failed: %v", err)
		}
		if got.Title != k.Title || got.Content != k.Content {
			t.Fatal("text mismatch")
		}
		if got.SourceURL == nil || *got.SourceURL != url {
			t.Fatal("source url mismatch")
		}
		if !got.Verified {
			t.Fatal("verified flag lost")
		}
		if got.CreatedAt == 0 || got.UpdatedAt == 0 {
			t.Fatal("timestamps missing")
		}
	})

	t.Run("Create rejects relative source URL", func(t *testing.T) {
		url := "docs/readme.md"
		_, err := ks.Create(&models.Knowledge{
			Title:      "bad url",
			Content:    "x",
			Category:   models.CategoryFact,
			Confidence: models.ConfidenceLow,
			Source:     models.SourceInference,
			SourceURL:  &url,
		})
		var ve *models.ValidationError
		if !errors.As(err, &ve) || ve.Field != "source_url" {
			t.Fatalf("expected source_url validation error, got %v", err)
		}
	})

	t.Run("Create rejects unknown category", func(t *testing.T) {
		_, err := ks.Create(&models.Knowledge{
			Title:      "bad",
			Content:    "x",
			Category:   "opinion",
			Confidence: models.ConfidenceLow,
			Source:     models.SourceInference,
		})
		var ve *models.ValidationError
		if !errors.As(err, &ve) || ve.Field != "category" {
			t.Fatalf("expected category validation error, got %v", err)
		}
	})

	t.Run("content update refreshes updated_at, metadata update does not", func(t *testing.T) {
		id := createKnowledge(t, ks, "timestamps")
		before, _ := ks.Peek(id)

		// Wall-clock seconds; force a visible delta.
		time.Sleep(1100 * time.Millisecond)

		got, err := ks.Update(id, &models.KnowledgeUpdate{Metadata: map[string]any{"k": "v"}})
		if err != nil {
			t.Fatalf("update failed: %v", err)
		}
		if got.UpdatedAt != before.UpdatedAt {
			t.Fatalf("metadata-only update moved updated_at: %d -> %d", before.UpdatedAt, got.UpdatedAt)
		}

		newContent := "rewritten"
		got, err = ks.Update(id, &models.KnowledgeUpdate{Content: &newContent})
		if err != nil {
			t.Fatalf("update failed: %v", err)
		}
		if got.UpdatedAt <= before.UpdatedAt {
			t.Fatalf("content update did not move updated_at: %d", got.UpdatedAt)
		}
	})

	t.Run("Exists does not touch access tracking", func(t *testing.T) {
		id := createKnowledge(t, ks, "exists")
		ok, err := ks.Exists(id)
		if err != nil || !ok {
			t.Fatalf("exists failed: %v %v", ok, err)
		}
		got, _ := ks.Peek(id)
		if got.AccessCount != 0 {
			t.Fatalf("exists moved access count: %d", got.AccessCount)
		}
		ok, err = ks.Exists(999999)
		if err != nil || ok {
			t.Fatalf("expected false for unknown id, got %v %v", ok, err)
		}
	})

	t.Run("VerifiedOnly filter", func(t *testing.T) {
		_, err := ks.Create(&models.Knowledge{
			Title: "verified", Content: "x",
			Category: models.CategoryFact, Confidence: models.ConfidenceHigh,
			Source: models.SourceUserInput, Verified: true,
		})
		if err != nil {
			t.Fatalf("create failed: %v", err)
		}
		got, err := ks.Filter(KnowledgeFilters{VerifiedOnly: true})
		if err != nil {
			t.Fatalf("filter failed: %v", err)
		}
		for _, k := range got {
			if !k.Verified {
				t.Fatalf("unverified record %d in verified-only result", k.ID)
			}
		}
	})
}

func TestKnowledgeDeleteCascadesEdges(t *testing.T) {
	db := setupTestDB(t)
	ks := NewKnowledgeStore(db)
	es := NewEdgeStore(db)

	a := createKnowledge(t, ks, "a")
	b := createKnowledge(t, ks, "b")
	c := createKnowledge(t, ks, "c")

	for _, e := range []*models.Edge{
		{SourceID: a, TargetID: b, Type: "depends_on"},
		{SourceID: c, TargetID: a, Type: "used_by"},
		{SourceID: b, TargetID: c, Type: "related_to"},
	} {
		if err := es.Insert(e); err != nil {
			t.Fatalf("insert edge failed: %v", err)
		}
	}

	if _, err := ks.Delete(a); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	// Every edge touching a is gone, the unrelated one survives.
	for _, id := range []int64{b, c} {
		edges, err := es.Incident(id)
		if err != nil {
			t.Fatalf("incident failed: %v", err)
		}
		for _, e := range edges {
			if e.SourceID == a || e.TargetID == a {
				t.Fatalf("dangling edge %d -> %d after delete", e.SourceID, e.TargetID)
			}
		}
	}
	remaining, err := es.From(b)
	if err != nil {
		t.Fatalf("from failed: %v", err)
	}
	if len(remaining) != 1 || remaining[0].TargetID != c {
		t.Fatalf("unrelated edge lost: %v", remaining)
	}
}
