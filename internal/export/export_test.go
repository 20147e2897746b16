package export

import (
	"encoding/json"
	"strings"
	"testing"
)

func sampleRecords() []map[string]any {
	return []map[string]any{
		{"id": int64(1), "title": "Go", "verified": true},
		{"id": int64(2), "title": "SQLite", "tags": []string{"db"}},
	}
}

func TestRender(t *testing.T) {
	t.Run("json round-trips records", func(t *testing.T) {
		out, err := Render(FormatJSON, sampleRecords())
		if err != nil {
			t.Fatalf("render failed: %v", err)
		}
		var decoded []map[string]any
		if err := json.Unmarshal(out, &decoded); err != nil {
			t.Fatalf("output not valid json: %v", err)
		}
		if len(decoded) != 2 || decoded[0]["title"] != "Go" {
			t.Fatalf("content mismatch: %v", decoded)
		}
	})

	t.Run("csv has stable header of union keys", func(t *testing.T) {
		out, err := Render(FormatCSV, sampleRecords())
		if err != nil {
			t.Fatalf("render failed: %v", err)
		}
		lines := strings.Split(strings.TrimSpace(string(out)), "\n")
		if len(lines) != 3 {
			t.Fatalf("expected header plus 2 rows, got %d lines", len(lines))
		}
		header := lines[0]
		// Sorted union of keys across both records.
		if header != "id,tags,title,verified" {
			t.Fatalf("unexpected header: %s", header)
		}
	})

	t.Run("markdown escapes pipes", func(t *testing.T) {
		out, err := Render(FormatMarkdown, []map[string]any{{"title": "a|b"}})
		if err != nil {
			t.Fatalf("render failed: %v", err)
		}
		if strings.Contains(string(out), " a|b ") {
			t.Fatal("pipe not escaped in cell")
		}
		if !strings.HasPrefix(string(out), "| title |") {
			t.Fatalf("missing header row: %s", out)
		}
	})

	t.Run("empty record set renders without error", func(t *testing.T) {
		for _, f := range []Format{FormatJSON, FormatCSV, FormatMarkdown} {
			if _, err := Render(f, nil); err != nil {
				t.Fatalf("%s failed on empty set: %v", f, err)
			}
		}
	})

	t.Run("unknown format rejected", func(t *testing.T) {
		if _, err := Render(Format("xml"), sampleRecords()); err == nil {
			t.Fatal("expected error")
		}
	})
}

func TestHistory(t *testing.T) {
	t.Run("recent returns newest first", func(t *testing.T) {
		h := NewHistory(10)
		h.Record(FormatJSON, "memory", 3, 120)
		h.Record(FormatCSV, "knowledge", 5, 340)

		got := h.Recent()
		if len(got) != 2 {
			t.Fatalf("expected 2 entries, got %d", len(got))
		}
		if got[0].Format != FormatCSV || got[1].Format != FormatJSON {
			t.Fatalf("wrong order: %v", got)
		}
		if got[0].RecordCount != 5 || got[0].Bytes != 340 {
			t.Fatalf("entry fields wrong: %+v", got[0])
		}
	})

	t.Run("ring buffer drops the oldest", func(t *testing.T) {
		h := NewHistory(2)
		h.Record(FormatJSON, "memory", 1, 1)
		h.Record(FormatJSON, "memory", 2, 2)
		h.Record(FormatJSON, "memory", 3, 3)

		got := h.Recent()
		if len(got) != 2 {
			t.Fatalf("expected capacity 2, got %d", len(got))
		}
		if got[0].RecordCount != 3 || got[1].RecordCount != 2 {
			t.Fatalf("oldest not evicted: %+v", got)
		}
	})
}
