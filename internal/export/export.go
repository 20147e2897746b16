// Package export renders record projections for external consumers. It
// receives string-keyed maps from the core and owes it nothing back.
package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Format selects the rendering.
type Format string

const (
	FormatJSON     Format = "json"
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "markdown"
)

func (f Format) IsValid() bool {
	return f == FormatJSON || f == FormatCSV || f == FormatMarkdown
}

// ContentType returns the MIME type for the format.
func (f Format) ContentType() string {
	switch f {
	case FormatCSV:
		return "text/csv"
	case FormatMarkdown:
		return "text/markdown"
	default:
		return "application/json"
	}
}

// Render serializes the projections in the requested format.
func Render(format Format, records []map[string]any) ([]byte, error) {
	switch format {
	case FormatJSON:
		return renderJSON(records)
	case FormatCSV:
		return renderCSV(records)
	case FormatMarkdown:
		return renderMarkdown(records), nil
	default:
		return nil, fmt.Errorf("unknown export format %q", format)
	}
}

func renderJSON(records []map[string]any) ([]byte, error) {
	if records == nil {
		records = []map[string]any{}
	}
	return json.MarshalIndent(records, "", "  ")
}

// renderCSV writes one row per record over the sorted union of keys, so
// column order is stable regardless of map iteration.
func renderCSV(records []map[string]any) ([]byte, error) {
	headers := unionKeys(records)

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(headers); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	for _, rec := range records {
		row := make([]string, len(headers))
		for i, h := range headers {
			row[i] = cellString(rec[h])
		}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

func renderMarkdown(records []map[string]any) []byte {
	headers := unionKeys(records)

	var b strings.Builder
	b.WriteString("| " + strings.Join(headers, " | ") + " |\n")
	b.WriteString("|" + strings.Repeat(" --- |", len(headers)) + "\n")
	for _, rec := range records {
		cells := make([]string, len(headers))
		for i, h := range headers {
			cells[i] = strings.ReplaceAll(cellString(rec[h]), "|", "\\|")
		}
		b.WriteString("| " + strings.Join(cells, " | ") + " |\n")
	}
	return []byte(b.String())
}

func unionKeys(records []map[string]any) []string {
	seen := map[string]bool{}
	for _, rec := range records {
		for k := range rec {
			seen[k] = true
		}
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func cellString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		// Nested values (tags, metadata, relationships) flatten to JSON.
		data, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprintf("%v", t)
		}
		return string(data)
	}
}
