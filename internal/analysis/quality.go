package analysis

import (
	"strings"

	"github.com/JonMunkholm/fairprice/internal/table"
)

// Whitespace counts cells with stray spacing in one column.
type Whitespace struct {
	Leading  int `json:"leading" yaml:"leading"`
	Trailing int `json:"trailing" yaml:"trailing"`
	Repeated int `json:"repeated" yaml:"repeated"`
}

func (w Whitespace) empty() bool { return w == Whitespace{} }

// QualitySection reports completeness, duplication and leftover encoding
// artifacts.
type QualitySection struct {
	Missing          map[string]int        `json:"missing" yaml:"missing"`
	MissingPercent   map[string]float64    `json:"missing_percent" yaml:"missing_percent"`
	TotalCells       int                   `json:"total_cells" yaml:"total_cells"`
	TotalMissing     int                   `json:"total_missing" yaml:"total_missing"`
	Completeness     float64               `json:"completeness" yaml:"completeness"`
	DuplicateRows    int                   `json:"duplicate_rows" yaml:"duplicate_rows"`
	DuplicatePercent float64               `json:"duplicate_percent" yaml:"duplicate_percent"`
	Artifacts        map[string]int        `json:"artifacts" yaml:"artifacts"`
	TotalArtifacts   int                   `json:"total_artifacts" yaml:"total_artifacts"`
	CleaningGap      bool                  `json:"cleaning_gap" yaml:"cleaning_gap"`
	Whitespace       map[string]Whitespace `json:"whitespace" yaml:"whitespace"`
	NumericWithText  map[string]int        `json:"numeric_with_text" yaml:"numeric_with_text"`
}

// Key implements Section.
func (QualitySection) Key() string { return KeyQuality }

// Quality measures missing values, exact duplicate rows and residual
// artifact markers. Artifacts and whitespace only list columns with a
// non-zero count.
func (e *Engine) Quality(t *table.Table) QualitySection {
	q := QualitySection{
		Missing:         make(map[string]int, t.NumCols()),
		MissingPercent:  make(map[string]float64, t.NumCols()),
		Artifacts:       map[string]int{},
		Whitespace:      map[string]Whitespace{},
		NumericWithText: map[string]int{},
	}
	rows := t.NumRows()

	for _, c := range t.Columns {
		missing := 0
		artifacts := 0
		numeric, text := 0, 0
		var ws Whitespace

		for _, v := range c.Values {
			s, ok := cellText(v)
			if !ok {
				missing++
				continue
			}
			if e.hasMarker(s) {
				artifacts++
			}
			if s != strings.TrimLeft(s, " \t") {
				ws.Leading++
			}
			if s != strings.TrimRight(s, " \t") {
				ws.Trailing++
			}
			if strings.Contains(strings.TrimSpace(s), "  ") {
				ws.Repeated++
			}
			if ParseBRNumeric(s).Valid {
				numeric++
			} else {
				text++
			}
		}

		q.Missing[c.Name] = missing
		q.MissingPercent[c.Name] = percent(missing, rows)
		q.TotalMissing += missing
		if artifacts > 0 {
			q.Artifacts[c.Name] = artifacts
			q.TotalArtifacts += artifacts
		}
		if !ws.empty() {
			q.Whitespace[c.Name] = ws
		}
		// Mostly numeric columns with a few words usually hide notes or
		// placeholders that block a numeric import.
		if numeric > 0 && text > 0 && numeric >= text {
			q.NumericWithText[c.Name] = text
		}
	}

	q.TotalCells = rows * t.NumCols()
	if q.TotalCells > 0 {
		q.Completeness = 100 - percent(q.TotalMissing, q.TotalCells)
	}
	q.DuplicateRows = duplicateRows(t)
	q.DuplicatePercent = percent(q.DuplicateRows, rows)
	q.CleaningGap = q.TotalArtifacts > 0
	return q
}

func (e *Engine) hasMarker(s string) bool {
	for _, m := range e.opts.Markers {
		if m != "" && strings.Contains(s, m) {
			return true
		}
	}
	return false
}

// duplicateRows counts rows equal to an earlier row across every column.
func duplicateRows(t *table.Table) int {
	n := t.NumRows()
	seen := make(map[string]struct{}, n)
	dups := 0
	for i := 0; i < n; i++ {
		k := t.RowKey(i)
		if _, ok := seen[k]; ok {
			dups++
			continue
		}
		seen[k] = struct{}{}
	}
	return dups
}
