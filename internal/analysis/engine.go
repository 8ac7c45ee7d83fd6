// Package analysis computes the schema, quality, content-pattern and
// Brazilian-identifier sections for a cleaned table.
//
// Every section is computed independently from the table alone. None of them
// mutate the table, and all of them report zero or empty metrics for a table
// without rows.
package analysis

import (
	"github.com/JonMunkholm/fairprice/internal/table"
)

// Section keys. They are stable so summaries from different files line up.
const (
	KeySchema    = "schema"
	KeyQuality   = "quality"
	KeyContent   = "content_patterns"
	KeyBrazilian = "brazilian_specific"
)

// Section is one analysis result.
type Section interface {
	Key() string
}

// Options tunes the engine. Zero fields take the defaults.
type Options struct {
	// CategoricalThreshold is the largest distinct count reported as low
	// cardinality.
	CategoricalThreshold int
	// MediumThreshold is the largest distinct count reported as medium
	// cardinality.
	MediumThreshold int
	// Markers are substrings that reveal an artifact the cleaner missed.
	Markers []string
	// MatchRatio is the share of non-missing values that must match a value
	// pattern before a column is flagged by content.
	MatchRatio float64
	// SampleSize bounds the normalized currency sample per column.
	SampleSize int
}

// DefaultOptions returns the documented defaults. Markers are left empty;
// callers pass the cleaner's markers.
func DefaultOptions() Options {
	return Options{
		CategoricalThreshold: 50,
		MediumThreshold:      500,
		MatchRatio:           0.5,
		SampleSize:           5,
	}
}

// Engine runs the four analyses.
type Engine struct {
	opts Options
}

// NewEngine creates an engine, filling unset options with defaults.
func NewEngine(opts Options) *Engine {
	def := DefaultOptions()
	if opts.CategoricalThreshold <= 0 {
		opts.CategoricalThreshold = def.CategoricalThreshold
	}
	if opts.MediumThreshold <= opts.CategoricalThreshold {
		opts.MediumThreshold = max(def.MediumThreshold, opts.CategoricalThreshold)
	}
	if opts.MatchRatio <= 0 || opts.MatchRatio > 1 {
		opts.MatchRatio = def.MatchRatio
	}
	if opts.SampleSize <= 0 {
		opts.SampleSize = def.SampleSize
	}
	opts.Markers = append([]string(nil), opts.Markers...)
	return &Engine{opts: opts}
}

// Options returns the effective options.
func (e *Engine) Options() Options { return e.opts }

// Sections holds one of each analysis.
type Sections struct {
	Schema    SchemaSection    `json:"schema" yaml:"schema"`
	Quality   QualitySection   `json:"quality" yaml:"quality"`
	Content   ContentSection   `json:"content_patterns" yaml:"content_patterns"`
	Brazilian BrazilianSection `json:"brazilian_specific" yaml:"brazilian_specific"`
}

// All returns the sections in their canonical order.
func (s Sections) All() []Section {
	return []Section{s.Schema, s.Quality, s.Content, s.Brazilian}
}

// Analyze runs every section over t.
func (e *Engine) Analyze(t *table.Table) Sections {
	if t == nil {
		t = &table.Table{}
	}
	return Sections{
		Schema:    e.Schema(t),
		Quality:   e.Quality(t),
		Content:   e.Content(t),
		Brazilian: e.Brazilian(t),
	}
}

// cellText returns the text of a non-missing cell.
func cellText(v table.Value) (string, bool) {
	if v.IsMissing() {
		return "", false
	}
	if v.Kind == table.KindString {
		return v.Str, true
	}
	return v.Text(), true
}

// nonMissing returns the text of every non-missing cell in c.
func nonMissing(c table.Column) []string {
	out := make([]string, 0, len(c.Values))
	for _, v := range c.Values {
		if s, ok := cellText(v); ok {
			out = append(out, s)
		}
	}
	return out
}

func percent(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return float64(part) * 100 / float64(whole)
}
