// Package codes holds the OBD2 trouble code table loaded from CSV at startup.
package codes

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/afero"
)

var (
	// ErrSourceNotFound is returned (together with an empty table) when the
	// code file cannot be opened.
	ErrSourceNotFound = errors.New("code table source not found")
	// ErrSchema marks a table without the required columns.
	ErrSchema = errors.New("code table schema error")
)

// SchemaError names the required column that is absent from the header.
type SchemaError struct {
	Column string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("column %q not found in code table header", e.Column)
}

func (e *SchemaError) Unwrap() error { return ErrSchema }

// Entry is one row of the table.
type Entry struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// Table maps uppercased codes to descriptions. It is read-only after
// construction and safe for concurrent use.
type Table struct {
	order []string
	byKey map[string]string
}

// New builds a table from entries. Later duplicates overwrite the
// description but keep the position of the first occurrence.
func New(entries ...Entry) *Table {
	t := &Table{byKey: make(map[string]string, len(entries))}
	for _, e := range entries {
		t.put(e.Code, e.Description)
	}
	return t
}

func (t *Table) put(code, description string) {
	key := normalize(code)
	if key == "" {
		return
	}
	if _, seen := t.byKey[key]; !seen {
		t.order = append(t.order, key)
	}
	t.byKey[key] = description
}

// Load reads the CSV file at path. A missing file yields an empty table and
// an error wrapping ErrSourceNotFound so the caller can log and carry on.
func Load(fs afero.Fs, path string) (*Table, error) {
	f, err := fs.Open(path)
	if err != nil {
		return New(), fmt.Errorf("%w: %s: %v", ErrSourceNotFound, path, err)
	}
	defer f.Close()
	t, err := LoadReader(f)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return t, nil
}

// LoadReader parses CSV with a header row containing "code" and
// "description" columns; other columns are ignored.
func LoadReader(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, &SchemaError{Column: "code"}
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	codeCol, descCol := -1, -1
	for i, name := range header {
		name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		switch name {
		case "code":
			codeCol = i
		case "description":
			descCol = i
		}
	}
	if codeCol < 0 {
		return nil, &SchemaError{Column: "code"}
	}
	if descCol < 0 {
		return nil, &SchemaError{Column: "description"}
	}

	t := New()
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		if codeCol >= len(rec) {
			continue
		}
		desc := ""
		if descCol < len(rec) {
			desc = strings.TrimSpace(rec[descCol])
		}
		t.put(rec[codeCol], desc)
	}
	return t, nil
}

// Lookup returns the description for code, matched case-insensitively.
func (t *Table) Lookup(code string) (string, bool) {
	if t == nil {
		return "", false
	}
	d, ok := t.byKey[normalize(code)]
	return d, ok
}

// Search renders the lookup result for display.
func (t *Table) Search(code string) string {
	d, ok := t.Lookup(code)
	return Format(code, d, ok)
}

// Format renders a lookup result: a two-line "Code/Description" block on a
// hit, a "not found" sentence otherwise.
func Format(code, description string, ok bool) string {
	key := normalize(code)
	if !ok {
		return fmt.Sprintf("Code %s not found.", key)
	}
	return fmt.Sprintf("Code: %s\nDescription: %s", key, description)
}

// All returns every entry in load order.
func (t *Table) All() []Entry {
	if t == nil {
		return []Entry{}
	}
	out := make([]Entry, 0, len(t.order))
	for _, k := range t.order {
		out = append(out, Entry{Code: k, Description: t.byKey[k]})
	}
	return out
}

func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.order)
}

func normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
