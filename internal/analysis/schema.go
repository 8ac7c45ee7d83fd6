package analysis

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/JonMunkholm/fairprice/internal/table"
)

// Inferred column types.
const (
	TypeInteger = "integer"
	TypeFloat   = "float"
	TypeBoolean = "boolean"
	TypeString  = "string"
)

// Per-cell memory estimates in bytes.
const (
	numericCellBytes = 8
	boolCellBytes    = 1
	stringCellBytes  = 16
	missingCellBytes = 8
)

var (
	camelCaseRe     = regexp.MustCompile(`[a-z][A-Z]`)
	specialCharsRe  = regexp.MustCompile(`[^a-zA-Z0-9_\-\s]`)
	numericPrefixRe = regexp.MustCompile(`^\d`)
)

// ColumnSchema describes one column.
type ColumnSchema struct {
	Name       string `json:"name" yaml:"name"`
	Original   string `json:"original" yaml:"original"`
	Type       string `json:"type" yaml:"type"`
	NonMissing int    `json:"non_missing" yaml:"non_missing"`
}

// NamingPatterns tallies header styles across the original column names.
type NamingPatterns struct {
	Lowercase     int `json:"lowercase" yaml:"lowercase"`
	Uppercase     int `json:"uppercase" yaml:"uppercase"`
	MixedCase     int `json:"mixed_case" yaml:"mixed_case"`
	Underscore    int `json:"underscore" yaml:"underscore"`
	Dash          int `json:"dash" yaml:"dash"`
	Space         int `json:"space" yaml:"space"`
	CamelCase     int `json:"camel_case" yaml:"camel_case"`
	SpecialChars  int `json:"special_chars" yaml:"special_chars"`
	NumericPrefix int `json:"numeric_prefix" yaml:"numeric_prefix"`
}

// SchemaSection is the structural view of a table.
type SchemaSection struct {
	RowCount         int            `json:"row_count" yaml:"row_count"`
	ColumnCount      int            `json:"column_count" yaml:"column_count"`
	Columns          []ColumnSchema `json:"columns" yaml:"columns"`
	TypeCounts       map[string]int `json:"type_counts" yaml:"type_counts"`
	NamingPatterns   NamingPatterns `json:"naming_patterns" yaml:"naming_patterns"`
	MemoryBytes      int64          `json:"memory_bytes" yaml:"memory_bytes"`
	DuplicateColumns []string       `json:"duplicate_columns" yaml:"duplicate_columns"`
}

// Key implements Section.
func (SchemaSection) Key() string { return KeySchema }

// Schema infers column types, tallies naming styles, estimates memory use and
// finds header names that were duplicated before cleaning.
func (e *Engine) Schema(t *table.Table) SchemaSection {
	s := SchemaSection{
		RowCount:         t.NumRows(),
		ColumnCount:      t.NumCols(),
		Columns:          make([]ColumnSchema, 0, t.NumCols()),
		TypeCounts:       map[string]int{},
		DuplicateColumns: duplicateNames(t.OriginalNames()),
	}

	for _, c := range t.Columns {
		typ := InferType(c)
		s.TypeCounts[typ]++
		s.Columns = append(s.Columns, ColumnSchema{
			Name:       c.Name,
			Original:   originalName(c),
			Type:       typ,
			NonMissing: len(nonMissing(c)),
		})
		s.MemoryBytes += columnMemory(c, typ)
	}
	s.NamingPatterns = namingPatterns(t.OriginalNames())
	return s
}

// InferType returns the narrowest type every non-missing value of c parses
// as, trying integer, then float, then boolean. A column without values is a
// string column.
func InferType(c table.Column) string {
	values := nonMissing(c)
	if len(values) == 0 {
		return TypeString
	}
	candidates := []struct {
		name  string
		parse func(string) bool
	}{
		{TypeInteger, func(s string) bool { return ParseInt(s).Valid }},
		{TypeFloat, func(s string) bool { return ParseFloat(s).Valid }},
		{TypeBoolean, func(s string) bool { return ParseBool(s).Valid }},
	}
	for _, cand := range candidates {
		if all(values, cand.parse) {
			return cand.name
		}
	}
	return TypeString
}

func all(values []string, ok func(string) bool) bool {
	for _, v := range values {
		if !ok(v) {
			return false
		}
	}
	return true
}

func columnMemory(c table.Column, typ string) int64 {
	var total int64
	for _, v := range c.Values {
		s, ok := cellText(v)
		switch {
		case !ok:
			total += missingCellBytes
		case typ == TypeInteger || typ == TypeFloat:
			total += numericCellBytes
		case typ == TypeBoolean:
			total += boolCellBytes
		default:
			total += stringCellBytes + int64(len(s))
		}
	}
	return total
}

func originalName(c table.Column) string {
	if c.Original != "" {
		return c.Original
	}
	return c.Name
}

// duplicateNames lists names that occur more than once, each reported once in
// order of first repeat.
func duplicateNames(names []string) []string {
	seen := make(map[string]int, len(names))
	out := []string{}
	for _, n := range names {
		seen[n]++
		if seen[n] == 2 {
			out = append(out, n)
		}
	}
	return out
}

func namingPatterns(names []string) NamingPatterns {
	var p NamingPatterns
	for _, n := range names {
		switch {
		case hasCased(n) && n == strings.ToLower(n):
			p.Lowercase++
		case hasCased(n) && n == strings.ToUpper(n):
			p.Uppercase++
		default:
			p.MixedCase++
		}
		if strings.Contains(n, "_") {
			p.Underscore++
		}
		if strings.Contains(n, "-") {
			p.Dash++
		}
		if strings.Contains(n, " ") {
			p.Space++
		}
		if camelCaseRe.MatchString(n) {
			p.CamelCase++
		}
		if specialCharsRe.MatchString(n) {
			p.SpecialChars++
		}
		if numericPrefixRe.MatchString(n) {
			p.NumericPrefix++
		}
	}
	return p
}

func hasCased(s string) bool {
	for _, r := range s {
		if unicode.IsUpper(r) || unicode.IsLower(r) {
			return true
		}
	}
	return false
}
