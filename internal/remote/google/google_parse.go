package google

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"carpool/internal/remote"
)

const (
	// cellLimit stays under the 50000 characters Sheets allows per cell.
	cellLimit = 45000
	// maxChunks is the number of blob cells after the three header columns (D..Z).
	maxChunks  = 23
	lastColumn = "Z"
)

// findRow returns the index and document of the owner's row in values.
func findRow(values [][]any, owner string) (int, remote.Document, bool, error) {
	for i, row := range values {
		cells := toStrings(row)
		if safeGet(cells, 0) != owner {
			continue
		}
		doc, err := parseRow(cells)
		if err != nil {
			return i, remote.Document{}, true, fmt.Errorf("row %d: %w", i+2, err)
		}
		return i, doc, true, nil
	}
	return -1, remote.Document{}, false, nil
}

func parseRow(cells []string) (remote.Document, error) {
	var doc remote.Document
	if v := safeGet(cells, 1); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return doc, fmt.Errorf("invalid version %q", v)
		}
		doc.Version = n
	}
	if v := safeGet(cells, 2); v != "" {
		t, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return doc, fmt.Errorf("invalid timestamp %q", v)
		}
		doc.LastUpdated = t
	}
	if len(cells) > 3 {
		doc.Data = strings.Join(cells[3:], "")
	}
	return doc, nil
}

// encodeRow lays a document out as owner, version, timestamp and blob chunks.
// Unused chunk cells are written empty so a shorter blob clears a longer one.
func encodeRow(owner string, doc remote.Document) ([]any, error) {
	chunks := chunk(doc.Data, cellLimit)
	if len(chunks) > maxChunks {
		return nil, fmt.Errorf("ledger too large for one row: %d bytes", len(doc.Data))
	}
	row := make([]any, 0, 3+maxChunks)
	row = append(row, owner, strconv.FormatInt(doc.Version, 10), doc.LastUpdated.UTC().Format(time.RFC3339Nano))
	for i := 0; i < maxChunks; i++ {
		if i < len(chunks) {
			row = append(row, chunks[i])
		} else {
			row = append(row, "")
		}
	}
	return row, nil
}

// chunk splits s into pieces of at most size bytes without cutting a rune.
func chunk(s string, size int) []string {
	var out []string
	for len(s) > size {
		cut := size
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		out = append(out, s[:cut])
		s = s[cut:]
	}
	if s != "" {
		out = append(out, s)
	}
	return out
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = fmt.Sprint(v)
	}
	return out
}

func safeGet(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
