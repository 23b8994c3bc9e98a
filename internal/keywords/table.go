// Package keywords provides the static 2-digit keyword table and the word
// normalization shared by the store and the session.
package keywords

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
)

//go:embed keywords.json
var tableJSON []byte

// Entry is one row of the static table.
type Entry struct {
	Code     string   `json:"code"`
	Keywords []string `json:"keywords"`
}

// Table is a read-only code to keywords index. Safe for concurrent readers.
type Table struct {
	entries map[string][]string
	codes   []string
}

var (
	defaultOnce  sync.Once
	defaultTable *Table
	defaultErr   error
)

// Default returns the embedded table, parsed once per process.
func Default() (*Table, error) {
	defaultOnce.Do(func() {
		defaultTable, defaultErr = Parse(tableJSON)
		if defaultErr == nil && len(defaultTable.codes) != 100 {
			defaultErr = fmt.Errorf("keyword table has %d codes, want 100", len(defaultTable.codes))
		}
	})
	return defaultTable, defaultErr
}

// MustDefault is Default for process start-up, where a broken asset is fatal.
func MustDefault() *Table {
	t, err := Default()
	if err != nil {
		panic(err)
	}
	return t
}

// Parse builds a table from the JSON asset schema [{code, keywords}].
// Codes must be two ASCII digits, unique, with a non-empty keyword list.
func Parse(data []byte) (*Table, error) {
	var rows []Entry
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("parse keyword table: %w", err)
	}

	t := &Table{entries: make(map[string][]string, len(rows))}
	for i, row := range rows {
		if !IsCode(row.Code, 2) {
			return nil, fmt.Errorf("keyword table row %d: code %q is not 2 digits", i, row.Code)
		}
		if _, dup := t.entries[row.Code]; dup {
			return nil, fmt.Errorf("keyword table row %d: duplicate code %q", i, row.Code)
		}
		words := Clean(row.Keywords)
		if len(words) == 0 {
			return nil, fmt.Errorf("keyword table row %d: code %q has no keywords", i, row.Code)
		}
		t.entries[row.Code] = words
		t.codes = append(t.codes, row.Code)
	}
	return t, nil
}

// Lookup returns a copy of the keywords for code, in preference order.
func (t *Table) Lookup(code string) ([]string, bool) {
	if t == nil {
		return nil, false
	}
	words, ok := t.entries[code]
	if !ok {
		return nil, false
	}
	return append([]string(nil), words...), true
}

// Codes returns the codes in asset order.
func (t *Table) Codes() []string {
	return append([]string(nil), t.codes...)
}

// Len returns the number of codes.
func (t *Table) Len() int {
	return len(t.codes)
}

// IsCode reports whether s is exactly n ASCII digits.
func IsCode(s string, n int) bool {
	if len(s) != n {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// Clean trims each word, drops blanks and removes duplicates, keeping first occurrences.
func Clean(words []string) []string {
	seen := make(map[string]bool, len(words))
	out := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.TrimSpace(w)
		if w == "" || seen[w] {
			continue
		}
		seen[w] = true
		out = append(out, w)
	}
	return out
}
