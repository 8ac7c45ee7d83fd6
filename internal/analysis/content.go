package analysis

import (
	"math"
	"unicode/utf8"

	"github.com/JonMunkholm/fairprice/internal/table"
)

// Categorical buckets columns by distinct non-missing count.
type Categorical struct {
	// BooleanLike holds columns with exactly two distinct values. They are
	// kept out of Low.
	BooleanLike []string `json:"boolean_like" yaml:"boolean_like"`
	Low         []string `json:"low" yaml:"low"`
	Medium      []string `json:"medium" yaml:"medium"`
}

// Identifiers lists columns named after Brazilian identifier types.
type Identifiers struct {
	CNPJ []string `json:"cnpj" yaml:"cnpj"`
	CNES []string `json:"cnes" yaml:"cnes"`
	IBGE []string `json:"ibge" yaml:"ibge"`
	CPF  []string `json:"cpf" yaml:"cpf"`
}

// all returns the identifier columns as a set.
func (ids Identifiers) all() map[string]bool {
	m := map[string]bool{}
	for _, group := range [][]string{ids.CNPJ, ids.CNES, ids.IBGE, ids.CPF} {
		for _, n := range group {
			m[n] = true
		}
	}
	return m
}

// LengthStats summarizes text lengths in runes.
type LengthStats struct {
	Min  int     `json:"min" yaml:"min"`
	Max  int     `json:"max" yaml:"max"`
	Mean float64 `json:"mean" yaml:"mean"`
	Std  float64 `json:"std" yaml:"std"`
}

// ContentSection reports what columns appear to hold.
type ContentSection struct {
	UniqueCounts map[string]int         `json:"unique_counts" yaml:"unique_counts"`
	Categorical  Categorical            `json:"categorical" yaml:"categorical"`
	Identifiers  Identifiers            `json:"identifiers" yaml:"identifiers"`
	Geographic   []string               `json:"geographic" yaml:"geographic"`
	Financial    []string               `json:"financial" yaml:"financial"`
	Dates        []string               `json:"dates" yaml:"dates"`
	ValueLengths map[string]LengthStats `json:"value_lengths" yaml:"value_lengths"`
}

// Key implements Section.
func (ContentSection) Key() string { return KeyContent }

// Content detects categorical, geographic, financial and date columns.
// Financial and date columns are found by name or, failing that, when at
// least MatchRatio of the non-missing values match.
func (e *Engine) Content(t *table.Table) ContentSection {
	names := t.Names()
	c := ContentSection{
		UniqueCounts: make(map[string]int, t.NumCols()),
		Categorical: Categorical{
			BooleanLike: []string{},
			Low:         []string{},
			Medium:      []string{},
		},
		Identifiers: Identifiers{
			CNPJ: columnsMatching(names, cnpjTerms),
			CNES: columnsMatching(names, cnesTerms),
			IBGE: columnsMatching(names, ibgeTerms),
			CPF:  columnsMatching(names, cpfTerms),
		},
		Geographic:   columnsMatching(names, geographicTerms),
		Financial:    []string{},
		Dates:        []string{},
		ValueLengths: map[string]LengthStats{},
	}
	ids := c.Identifiers.all()

	for _, col := range t.Columns {
		values := nonMissing(col)
		distinct := distinctCount(values)
		c.UniqueCounts[col.Name] = distinct

		switch {
		case distinct == 2:
			c.Categorical.BooleanLike = append(c.Categorical.BooleanLike, col.Name)
		case distinct >= 1 && distinct <= e.opts.CategoricalThreshold:
			c.Categorical.Low = append(c.Categorical.Low, col.Name)
		case distinct > e.opts.CategoricalThreshold && distinct <= e.opts.MediumThreshold:
			c.Categorical.Medium = append(c.Categorical.Medium, col.Name)
		}

		if e.financial(col.Name, values, ids) {
			c.Financial = append(c.Financial, col.Name)
		}
		if matchesAny(col.Name, dateTerms) || e.mostly(values, isDate) {
			c.Dates = append(c.Dates, col.Name)
		}
		if len(values) > 0 && InferType(col) == TypeString {
			c.ValueLengths[col.Name] = lengthStats(values)
		}
	}
	return c
}

// financial reports whether a column holds money. Identifier columns are
// never financial even when their digits happen to look like amounts.
func (e *Engine) financial(name string, values []string, ids map[string]bool) bool {
	if ids[name] {
		return false
	}
	return matchesAny(name, financialTerms) || e.mostly(values, LooksLikeCurrency)
}

func isDate(s string) bool { return ParseDate(s).Valid }

// mostly reports whether at least MatchRatio of values satisfy ok.
func (e *Engine) mostly(values []string, ok func(string) bool) bool {
	if len(values) == 0 {
		return false
	}
	n := 0
	for _, v := range values {
		if ok(v) {
			n++
		}
	}
	return float64(n) >= e.opts.MatchRatio*float64(len(values))
}

func distinctCount(values []string) int {
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		seen[v] = struct{}{}
	}
	return len(seen)
}

func lengthStats(values []string) LengthStats {
	st := LengthStats{Min: math.MaxInt}
	sum := 0
	lengths := make([]int, len(values))
	for i, v := range values {
		n := utf8.RuneCountInString(v)
		lengths[i] = n
		sum += n
		st.Min = min(st.Min, n)
		st.Max = max(st.Max, n)
	}
	st.Mean = float64(sum) / float64(len(values))
	var sq float64
	for _, n := range lengths {
		d := float64(n) - st.Mean
		sq += d * d
	}
	st.Std = math.Sqrt(sq / float64(len(values)))
	return st
}
