// Package backup reads and writes ledger backup files.
//
// A backup is a JSON object with a format version, the time it was taken and
// the committed ledger:
//
//	{"version": 1, "timestamp": "2025-03-10T08:00:00Z", "ledgerState": {...}}
//
// Imports are always merged into the current ledger, never written over it.
package backup

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"carpool/internal/core"
)

// FormatVersion is the version written into new backups.
const FormatVersion = 1

// ErrFormat reports a backup that does not have the expected shape.
var ErrFormat = errors.New("invalid backup format")

type Backup struct {
	Version     int           `json:"version"`
	Timestamp   time.Time     `json:"timestamp"`
	LedgerState core.Snapshot `json:"ledgerState"`
}

// New wraps a snapshot taken at now.
func New(snap core.Snapshot, now time.Time) Backup {
	return Backup{Version: FormatVersion, Timestamp: now.UTC(), LedgerState: snap.Clone()}
}

// FileName is the default name of a backup taken at now.
func FileName(now time.Time) string {
	return fmt.Sprintf("carpool-backup-%s.json", now.Format("2006-01-02-150405"))
}

// Encode writes b as indented JSON.
func Encode(w io.Writer, b Backup) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(b)
}

// Parse validates and decodes a backup. Any failure wraps ErrFormat.
func Parse(data []byte) (Backup, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return Backup{}, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	for _, field := range []string{"version", "timestamp", "ledgerState"} {
		if !present(raw[field]) {
			return Backup{}, fmt.Errorf("%w: missing %s", ErrFormat, field)
		}
	}

	var state map[string]json.RawMessage
	if err := json.Unmarshal(raw["ledgerState"], &state); err != nil || state == nil {
		return Backup{}, fmt.Errorf("%w: ledgerState is not an object", ErrFormat)
	}
	if kind(state["travellers"]) != '[' {
		return Backup{}, fmt.Errorf("%w: ledgerState.travellers must be an array", ErrFormat)
	}
	for _, field := range []string{"dailyData", "dateRange"} {
		if kind(state[field]) != '{' {
			return Backup{}, fmt.Errorf("%w: ledgerState.%s must be an object", ErrFormat, field)
		}
	}

	var b Backup
	if err := json.Unmarshal(data, &b); err != nil {
		return Backup{}, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	if err := b.LedgerState.DateRange.Validate(); err != nil {
		return Backup{}, fmt.Errorf("%w: ledgerState.dateRange: %v", ErrFormat, err)
	}
	if b.LedgerState.RatePerTrip.IsNegative() {
		return Backup{}, fmt.Errorf("%w: ledgerState.ratePerTrip is negative", ErrFormat)
	}
	b.LedgerState = b.LedgerState.Clone()
	return b, nil
}

// ReadFile parses the backup at path.
func ReadFile(path string) (Backup, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Backup{}, fmt.Errorf("read backup: %w", err)
	}
	return Parse(data)
}

// WriteFile writes b to path, creating parent directories as needed.
func WriteFile(path string, b Backup) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create backup directory: %w", err)
	}
	var buf bytes.Buffer
	if err := Encode(&buf, b); err != nil {
		return fmt.Errorf("encode backup: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("write backup: %w", err)
	}
	return nil
}

func present(v json.RawMessage) bool {
	v = bytes.TrimSpace(v)
	return len(v) > 0 && !bytes.Equal(v, []byte("null"))
}

// kind returns the first byte of a JSON value, or 0 when absent or null.
func kind(v json.RawMessage) byte {
	v = bytes.TrimSpace(v)
	if !present(v) {
		return 0
	}
	return v[0]
}
