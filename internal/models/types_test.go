package models

import (
	"errors"
	"testing"
)

func TestEnumValidity(t *testing.T) {
	t.Run("memory types", func(t *testing.T) {
		for _, v := range []MemoryType{MemoryShortTerm, MemoryLongTerm, MemoryEpisodic, MemorySemantic} {
			if !v.IsValid() {
				t.Fatalf("%s should be valid", v)
			}
		}
		if MemoryType("permanent").IsValid() {
			t.Fatal("unknown memory type accepted")
		}
		if MemoryType("").IsValid() {
			t.Fatal("empty memory type accepted")
		}
	})

	t.Run("importance ranks are ordered", func(t *testing.T) {
		order := []Importance{ImportanceLow, ImportanceMedium, ImportanceHigh, ImportanceCritical}
		for i := 1; i < len(order); i++ {
			if order[i].Rank() <= order[i-1].Rank() {
				t.Fatalf("%s should outrank %s", order[i], order[i-1])
			}
		}
	})

	t.Run("confidence ranks are ordered", func(t *testing.T) {
		order := []Confidence{ConfidenceVeryLow, ConfidenceLow, ConfidenceMedium, ConfidenceHigh, ConfidenceVeryHigh}
		for i := 1; i < len(order); i++ {
			if order[i].Rank() <= order[i-1].Rank() {
				t.Fatalf("%s should outrank %s", order[i], order[i-1])
			}
		}
	})

	t.Run("categories and sources", func(t *testing.T) {
		if !CategoryProcedure.IsValid() || !SourceWebSearch.IsValid() {
			t.Fatal("known values rejected")
		}
		if Category("opinion").IsValid() || Source("telepathy").IsValid() {
			t.Fatal("unknown values accepted")
		}
	})
}

func TestMemoryValidate(t *testing.T) {
	valid := Memory{Content: "x", MemoryType: MemoryShortTerm, Importance: ImportanceLow}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid memory rejected: %v", err)
	}

	cases := []struct {
		name  string
		m     Memory
		field string
	}{
		{"empty content", Memory{MemoryType: MemoryShortTerm, Importance: ImportanceLow}, "content"},
		{"bad type", Memory{Content: "x", MemoryType: "forever", Importance: ImportanceLow}, "memory_type"},
		{"bad importance", Memory{Content: "x", MemoryType: MemoryShortTerm, Importance: "extreme"}, "importance"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			var ve *ValidationError
			if err := c.m.Validate(); !errors.As(err, &ve) || ve.Field != c.field {
				t.Fatalf("expected %s validation error, got %v", c.field, err)
			}
		})
	}
}

func TestKnowledgeValidate(t *testing.T) {
	base := Knowledge{
		Title: "t", Content: "c",
		Category: CategoryFact, Confidence: ConfidenceMedium, Source: SourceInference,
	}
	if err := base.Validate(); err != nil {
		t.Fatalf("valid knowledge rejected: %v", err)
	}

	t.Run("absolute url accepted", func(t *testing.T) {
		k := base
		u := "https://example.com/page"
		k.SourceURL = &u
		if err := k.Validate(); err != nil {
			t.Fatalf("absolute url rejected: %v", err)
		}
	})

	t.Run("relative url rejected", func(t *testing.T) {
		k := base
		u := "page.html"
		k.SourceURL = &u
		var ve *ValidationError
		if err := k.Validate(); !errors.As(err, &ve) || ve.Field != "source_url" {
			t.Fatalf("expected source_url error, got %v", k.Validate())
		}
	})
}

func TestErrorTexts(t *testing.T) {
	ve := &ValidationError{Field: "content", Reason: "must not be empty"}
	if ve.Error() == "" {
		t.Fatal("empty validation message")
	}
	re := &ReferenceError{NodeID: 7}
	if re.Error() == "" {
		t.Fatal("empty reference message")
	}
	ie := &IndexError{RefID: "r", Reason: "dim"}
	if ie.Error() == "" {
		t.Fatal("empty index message")
	}
}
