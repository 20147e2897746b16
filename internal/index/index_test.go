package index

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/Abhi260105/ai-agent-sub001/internal/models"
)

func unit(angle float64) []float32 {
	return []float32{float32(math.Cos(angle)), float32(math.Sin(angle))}
}

func TestCosineSimilarity(t *testing.T) {
	t.Run("identical vectors score 1", func(t *testing.T) {
		v := []float32{0.3, 0.4, 0.5}
		if got := CosineSimilarity(v, v); math.Abs(got-1) > 1e-6 {
			t.Fatalf("expected 1, got %f", got)
		}
	})

	t.Run("opposite vectors score -1", func(t *testing.T) {
		a := []float32{1, 0}
		b := []float32{-1, 0}
		if got := CosineSimilarity(a, b); math.Abs(got+1) > 1e-6 {
			t.Fatalf("expected -1, got %f", got)
		}
	})

	t.Run("orthogonal vectors score 0", func(t *testing.T) {
		a := []float32{1, 0}
		b := []float32{0, 1}
		if got := CosineSimilarity(a, b); math.Abs(got) > 1e-6 {
			t.Fatalf("expected 0, got %f", got)
		}
	})

	t.Run("mismatched lengths score 0", func(t *testing.T) {
		if got := CosineSimilarity([]float32{1, 0}, []float32{1}); got != 0 {
			t.Fatalf("expected 0, got %f", got)
		}
	})
}

func TestRescaleScore(t *testing.T) {
	cases := []struct {
		cos  float64
		want float64
	}{
		{1, 1},
		{-1, 0},
		{0, 0.5},
	}
	for _, c := range cases {
		if got := RescaleScore(c.cos); math.Abs(got-c.want) > 1e-9 {
			t.Fatalf("rescale(%f) = %f, want %f", c.cos, got, c.want)
		}
	}
}

func TestVectorBytes(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		v := []float32{1.5, -2.25, 0, 3.14}
		got := BytesToFloat32(Float32ToBytes(v))
		if len(got) != len(v) {
			t.Fatalf("length mismatch: %d", len(got))
		}
		for i := range v {
			if got[i] != v[i] {
				t.Fatalf("element %d: %f != %f", i, got[i], v[i])
			}
		}
	})

	t.Run("truncated bytes rejected", func(t *testing.T) {
		if got := BytesToFloat32([]byte{1, 2, 3}); got != nil {
			t.Fatalf("expected nil, got %v", got)
		}
	})
}

func TestExactIndex(t *testing.T) {
	idx := NewExactIndex(2)

	t.Run("dimension mismatch is an index error", func(t *testing.T) {
		err := idx.Upsert("ref-a", models.EntityMemory, []float32{1, 2, 3})
		var ie *models.IndexError
		if !errors.As(err, &ie) {
			t.Fatalf("expected index error, got %v", err)
		}
	})

	t.Run("search respects partitions", func(t *testing.T) {
		if err := idx.Upsert("mem-1", models.EntityMemory, unit(0)); err != nil {
			t.Fatalf("upsert failed: %v", err)
		}
		if err := idx.Upsert("know-1", models.EntityKnowledge, unit(0)); err != nil {
			t.Fatalf("upsert failed: %v", err)
		}

		got, err := idx.Search(models.EntityMemory, unit(0), 10)
		if err != nil {
			t.Fatalf("search failed: %v", err)
		}
		if len(got) != 1 || got[0].RefID != "mem-1" {
			t.Fatalf("partition leak: %v", got)
		}
	})

	t.Run("results are ordered by descending score", func(t *testing.T) {
		idx := NewExactIndex(2)
		angles := []float64{0.1, 0.9, 0.5, 1.4, 0.3}
		for i, a := range angles {
			if err := idx.Upsert(fmt.Sprintf("v-%d", i), models.EntityKnowledge, unit(a)); err != nil {
				t.Fatalf("upsert failed: %v", err)
			}
		}
		got, err := idx.Search(models.EntityKnowledge, unit(0), len(angles))
		if err != nil {
			t.Fatalf("search failed: %v", err)
		}
		if len(got) != len(angles) {
			t.Fatalf("expected %d results, got %d", len(angles), len(got))
		}
		for i := 1; i < len(got); i++ {
			if got[i].Score > got[i-1].Score {
				t.Fatalf("results out of order at %d: %f > %f", i, got[i].Score, got[i-1].Score)
			}
		}
		if got[0].RefID != "v-0" {
			t.Fatalf("closest vector not first: %s", got[0].RefID)
		}
	})

	t.Run("exact ties break by ascending ref id", func(t *testing.T) {
		idx := NewExactIndex(2)
		for _, id := range []string{"b", "a", "c"} {
			if err := idx.Upsert(id, models.EntityKnowledge, unit(0.2)); err != nil {
				t.Fatalf("upsert failed: %v", err)
			}
		}
		got, err := idx.Search(models.EntityKnowledge, unit(0), 3)
		if err != nil {
			t.Fatalf("search failed: %v", err)
		}
		want := []string{"a", "b", "c"}
		for i, id := range want {
			if got[i].RefID != id {
				t.Fatalf("tie order wrong at %d: got %s want %s", i, got[i].RefID, id)
			}
		}
	})

	t.Run("k caps the result set", func(t *testing.T) {
		got, err := idx.Search(models.EntityMemory, unit(0), 0)
		if err != nil {
			t.Fatalf("search failed: %v", err)
		}
		if len(got) != 0 {
			t.Fatalf("expected empty for k=0, got %d", len(got))
		}
	})

	t.Run("upsert replaces and remove is idempotent", func(t *testing.T) {
		idx := NewExactIndex(2)
		if err := idx.Upsert("x", models.EntityMemory, unit(1.5)); err != nil {
			t.Fatalf("upsert failed: %v", err)
		}
		if err := idx.Upsert("x", models.EntityMemory, unit(0)); err != nil {
			t.Fatalf("re-upsert failed: %v", err)
		}
		if idx.Len(models.EntityMemory) != 1 {
			t.Fatalf("expected 1 vector, got %d", idx.Len(models.EntityMemory))
		}
		got, _ := idx.Search(models.EntityMemory, unit(0), 1)
		if math.Abs(got[0].Score-1) > 1e-6 {
			t.Fatalf("stale vector after upsert: %f", got[0].Score)
		}

		if err := idx.Remove("x"); err != nil {
			t.Fatalf("remove failed: %v", err)
		}
		if err := idx.Remove("x"); err != nil {
			t.Fatalf("second remove failed: %v", err)
		}
		if idx.Len(models.EntityMemory) != 0 {
			t.Fatal("vector not removed")
		}
	})
}

func TestChromemIndexMatchesExact(t *testing.T) {
	const dim = 4
	exact := NewExactIndex(dim)
	approx, err := NewChromemIndex(dim)
	if err != nil {
		t.Fatalf("chromem index failed: %v", err)
	}

	vecs := map[string][]float32{
		"r-00": {1, 0, 0, 0},
		"r-01": {0.9, 0.1, 0, 0},
		"r-02": {0, 1, 0, 0},
		"r-03": {0, 0, 1, 0},
		"r-04": {0.5, 0.5, 0.5, 0.5},
	}
	for id, v := range vecs {
		if err := exact.Upsert(id, models.EntityKnowledge, v); err != nil {
			t.Fatalf("exact upsert failed: %v", err)
		}
		if err := approx.Upsert(id, models.EntityKnowledge, v); err != nil {
			t.Fatalf("chromem upsert failed: %v", err)
		}
	}

	query := []float32{1, 0.05, 0, 0}
	want, err := exact.Search(models.EntityKnowledge, query, 3)
	if err != nil {
		t.Fatalf("exact search failed: %v", err)
	}
	got, err := approx.Search(models.EntityKnowledge, query, 3)
	if err != nil {
		t.Fatalf("chromem search failed: %v", err)
	}

	if len(got) != len(want) {
		t.Fatalf("result count mismatch: %d vs %d", len(got), len(want))
	}
	for i := range want {
		if got[i].RefID != want[i].RefID {
			t.Fatalf("rank %d differs: %s vs %s", i, got[i].RefID, want[i].RefID)
		}
		if math.Abs(got[i].Score-want[i].Score) > 1e-3 {
			t.Fatalf("score %d differs: %f vs %f", i, got[i].Score, want[i].Score)
		}
	}
}

func TestChromemIndexRemoveAndMove(t *testing.T) {
	idx, err := NewChromemIndex(2)
	if err != nil {
		t.Fatalf("chromem index failed: %v", err)
	}

	if err := idx.Upsert("ref-1", models.EntityMemory, unit(0)); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}
	if idx.Len(models.EntityMemory) != 1 {
		t.Fatalf("expected 1, got %d", idx.Len(models.EntityMemory))
	}

	// Moving a ref between partitions evicts the old entry.
	if err := idx.Upsert("ref-1", models.EntityKnowledge, unit(0)); err != nil {
		t.Fatalf("move failed: %v", err)
	}
	if idx.Len(models.EntityMemory) != 0 || idx.Len(models.EntityKnowledge) != 1 {
		t.Fatalf("partition counts wrong: %d/%d", idx.Len(models.EntityMemory), idx.Len(models.EntityKnowledge))
	}

	if err := idx.Remove("ref-1"); err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	if err := idx.Remove("ref-1"); err != nil {
		t.Fatalf("second remove failed: %v", err)
	}
	if idx.Len(models.EntityKnowledge) != 0 {
		t.Fatal("vector not removed")
	}
}
