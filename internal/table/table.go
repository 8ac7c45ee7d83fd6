// Package table holds the in-memory tabular model shared by the loader,
// cleaner and analyzers.
//
// A Table is column-oriented: each Column carries its own slice of values and
// every column has the same length. Rows are addressed by position.
package table

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind identifies the dynamic type of a cell value.
type Kind int

const (
	KindMissing Kind = iota
	KindString
	KindInt
	KindFloat
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindMissing:
		return "missing"
	case KindString:
		return "string"
	case KindInt:
		return "integer"
	case KindFloat:
		return "float"
	case KindBool:
		return "boolean"
	default:
		return "unknown"
	}
}

// Value is a single typed cell. The zero Value is missing.
type Value struct {
	Kind  Kind
	Str   string
	Int   int64
	Float float64
	Bool  bool
}

// Missing returns the missing-marker value.
func Missing() Value { return Value{} }

// String builds a string cell.
func String(s string) Value { return Value{Kind: KindString, Str: s} }

// Int builds an integer cell.
func Int(i int64) Value { return Value{Kind: KindInt, Int: i} }

// Float builds a float cell.
func Float(f float64) Value { return Value{Kind: KindFloat, Float: f} }

// Bool builds a boolean cell.
func Bool(b bool) Value { return Value{Kind: KindBool, Bool: b} }

// IsMissing reports whether v is the missing marker.
func (v Value) IsMissing() bool { return v.Kind == KindMissing }

// Text renders the value as it would appear in a CSV cell.
// Missing values render as the empty string.
func (v Value) Text() string {
	switch v.Kind {
	case KindString:
		return v.Str
	case KindInt:
		return strconv.FormatInt(v.Int, 10)
	case KindFloat:
		return strconv.FormatFloat(v.Float, 'f', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.Bool)
	default:
		return ""
	}
}

// key returns a representation that distinguishes kinds, used for row equality.
func (v Value) key() string {
	return strconv.Itoa(int(v.Kind)) + ":" + v.Text()
}

// Column is a named sequence of values.
//
// Original keeps the header text as it appeared in the source file. It is set
// once by the loader and survives renames, so analyses can still reason about
// the pre-cleaning header.
type Column struct {
	Name     string
	Original string
	Values   []Value
}

// Table is an ordered set of equal-length columns.
type Table struct {
	Columns []Column
}

// New builds a table from a header and row-major cells. Rows shorter than the
// header are padded with missing values; longer rows are truncated.
func New(header []string, rows [][]Value) *Table {
	t := &Table{Columns: make([]Column, len(header))}
	for i, name := range header {
		t.Columns[i] = Column{
			Name:     name,
			Original: name,
			Values:   make([]Value, 0, len(rows)),
		}
	}
	for _, row := range rows {
		for i := range t.Columns {
			v := Missing()
			if i < len(row) {
				v = row[i]
			}
			t.Columns[i].Values = append(t.Columns[i].Values, v)
		}
	}
	return t
}

// FromStrings builds a table of string cells; empty cells become missing.
func FromStrings(header []string, rows [][]string) *Table {
	vals := make([][]Value, len(rows))
	for r, row := range rows {
		vals[r] = make([]Value, len(row))
		for c, s := range row {
			vals[r][c] = Cell(s)
		}
	}
	return New(header, vals)
}

// naTokens are cell texts read as missing, compared after trimming.
var naTokens = map[string]bool{
	"NA": true, "N/A": true, "n/a": true, "NaN": true, "nan": true,
	"NULL": true, "null": true, "None": true, "#N/A": true,
}

// Cell converts raw CSV text into a value. Blank text and the usual NA tokens
// are missing; everything else stays a string so later stages see exactly
// what the file held.
func Cell(s string) Value {
	t := strings.TrimSpace(s)
	if t == "" || naTokens[t] {
		return Missing()
	}
	return String(s)
}

// NumRows returns the row count, taken from the first column.
func (t *Table) NumRows() int {
	if t == nil || len(t.Columns) == 0 {
		return 0
	}
	return len(t.Columns[0].Values)
}

// NumCols returns the column count.
func (t *Table) NumCols() int {
	if t == nil {
		return 0
	}
	return len(t.Columns)
}

// Names returns the current column names in order.
func (t *Table) Names() []string {
	names := make([]string, t.NumCols())
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// OriginalNames returns the header as read from the source file.
func (t *Table) OriginalNames() []string {
	names := make([]string, t.NumCols())
	for i, c := range t.Columns {
		names[i] = c.Original
		if names[i] == "" {
			names[i] = c.Name
		}
	}
	return names
}

// Column returns the first column with the given name.
func (t *Table) Column(name string) (*Column, bool) {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return &t.Columns[i], true
		}
	}
	return nil, false
}

// Row returns the values at position i across all columns.
func (t *Table) Row(i int) []Value {
	row := make([]Value, len(t.Columns))
	for c := range t.Columns {
		row[c] = t.Columns[c].Values[i]
	}
	return row
}

// RowKey returns a string that is equal for two rows exactly when every cell
// is equal, kind included.
func (t *Table) RowKey(i int) string {
	var b strings.Builder
	for c := range t.Columns {
		if c > 0 {
			b.WriteByte(0x1f)
		}
		b.WriteString(t.Columns[c].Values[i].key())
	}
	return b.String()
}

// Rectangular reports whether every column has the same length.
func (t *Table) Rectangular() bool {
	if t == nil {
		return false
	}
	n := t.NumRows()
	for _, c := range t.Columns {
		if len(c.Values) != n {
			return false
		}
	}
	return true
}

// Validate returns an error describing the first structural problem found.
func (t *Table) Validate() error {
	if t == nil {
		return fmt.Errorf("table is nil")
	}
	n := t.NumRows()
	for _, c := range t.Columns {
		if len(c.Values) != n {
			return fmt.Errorf("column %q has %d values, expected %d", c.Name, len(c.Values), n)
		}
	}
	return nil
}

// Clone returns a deep copy of t.
func (t *Table) Clone() *Table {
	if t == nil {
		return nil
	}
	out := &Table{Columns: make([]Column, len(t.Columns))}
	for i, c := range t.Columns {
		vals := make([]Value, len(c.Values))
		copy(vals, c.Values)
		out.Columns[i] = Column{Name: c.Name, Original: c.Original, Values: vals}
	}
	return out
}

// Equal reports whether a and b have the same names and cells in the same order.
func Equal(a, b *Table) bool {
	if a.NumCols() != b.NumCols() || a.NumRows() != b.NumRows() {
		return false
	}
	for i := range a.Columns {
		if a.Columns[i].Name != b.Columns[i].Name {
			return false
		}
		for r := range a.Columns[i].Values {
			if a.Columns[i].Values[r] != b.Columns[i].Values[r] {
				return false
			}
		}
	}
	return true
}
