// Package clean repairs encoding artifacts in cell values and column names.
//
// Cleaning is pure: it never touches the input table, never performs I/O and
// is idempotent, so cleaning an already-clean table changes nothing.
package clean

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/JonMunkholm/fairprice/internal/table"
)

// Rename records how one column name was normalized.
type Rename struct {
	Original string `json:"original" yaml:"original"`
	Cleaned  string `json:"cleaned" yaml:"cleaned"`
}

// Report summarizes what a cleaning pass changed.
type Report struct {
	Columns        []Rename `json:"columns" yaml:"columns"`
	CharFixedCells int      `json:"char_fixed_cells" yaml:"char_fixed_cells"`
	WordFixedCells int      `json:"word_fixed_cells" yaml:"word_fixed_cells"`
	RenamedColumns int      `json:"renamed_columns" yaml:"renamed_columns"`
	SuffixedNames  []string `json:"suffixed_names,omitempty" yaml:"suffixed_names,omitempty"`
}

// Mapping returns original column name to cleaned name. When two originals
// are identical the first one wins; use Columns for the full ordered list.
func (r Report) Mapping() map[string]string {
	m := make(map[string]string, len(r.Columns))
	for _, c := range r.Columns {
		if _, ok := m[c.Original]; !ok {
			m[c.Original] = c.Cleaned
		}
	}
	return m
}

// Cleaner applies a Dictionary. It is safe for concurrent use.
type Cleaner struct {
	chars   *strings.Replacer
	hasChar bool
	words   map[string]string
	markers []string
}

// New compiles dict into a Cleaner. A nil dict selects DefaultDictionary.
func New(dict *Dictionary) *Cleaner {
	if dict == nil {
		dict = DefaultDictionary()
	}
	pairs := dict.charPairs()
	words := make(map[string]string, len(dict.WordFixes))
	for k, v := range dict.WordFixes {
		words[k] = v
	}
	return &Cleaner{
		chars:   strings.NewReplacer(pairs...),
		hasChar: len(pairs) > 0,
		words:   words,
		markers: append([]string(nil), dict.Markers...),
	}
}

// Markers returns the residual-artifact markers this cleaner was built with.
func (c *Cleaner) Markers() []string {
	return append([]string(nil), c.markers...)
}

// Clean returns a repaired copy of t and a report of the changes.
func (c *Cleaner) Clean(t *table.Table) (*table.Table, Report) {
	out := t.Clone()
	if out == nil {
		out = &table.Table{}
	}

	var rep Report
	for ci := range out.Columns {
		col := &out.Columns[ci]
		if col.Original == "" {
			col.Original = col.Name
		}
		for ri, v := range col.Values {
			if v.Kind != table.KindString {
				continue
			}
			fixed, charFixed, wordFixed := c.Repair(v.Str)
			if charFixed {
				rep.CharFixedCells++
			}
			if wordFixed {
				rep.WordFixedCells++
			}
			if fixed != v.Str {
				col.Values[ri] = table.String(fixed)
			}
		}
	}

	names := c.normalizeNames(out.Names())
	for ci := range out.Columns {
		before := out.Columns[ci].Name
		out.Columns[ci].Name = names[ci].name
		rep.Columns = append(rep.Columns, Rename{Original: before, Cleaned: names[ci].name})
		if names[ci].name != before {
			rep.RenamedColumns++
		}
		if names[ci].suffixed {
			rep.SuffixedNames = append(rep.SuffixedNames, names[ci].name)
		}
	}
	return out, rep
}

// Repair applies character and word repair to s until nothing changes. It
// reports which tiers changed the text.
func (c *Cleaner) Repair(s string) (string, bool, bool) {
	var charFixed, wordFixed bool
	// Every effective pass shortens the text or removes a marker, so the
	// bound only guards against user dictionaries that grow text.
	for pass := 0; pass <= len(s); pass++ {
		next := c.fixChars(s)
		if next != s {
			charFixed = true
		}
		after := c.fixWords(next)
		if after != next {
			wordFixed = true
		}
		if after == s {
			break
		}
		s = after
	}
	return s, charFixed, wordFixed
}

func (c *Cleaner) fixChars(s string) string {
	if !c.hasChar {
		return s
	}
	for i := 0; i <= len(s); i++ {
		next := c.chars.Replace(s)
		if next == s {
			break
		}
		s = next
	}
	return s
}

// fixWords replaces tokens found in the word table, keeping the token's case
// pattern. Tokens are runs of letters, digits and decay markers.
func (c *Cleaner) fixWords(s string) string {
	if len(c.words) == 0 || !c.hasMarker(s) {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	start := -1
	flush := func(end int) {
		if start < 0 {
			return
		}
		b.WriteString(c.fixToken(s[start:end]))
		start = -1
	}
	for i, r := range s {
		if isTokenRune(r) {
			if start < 0 {
				start = i
			}
			continue
		}
		flush(i)
		b.WriteRune(r)
	}
	flush(len(s))
	return b.String()
}

func (c *Cleaner) hasMarker(s string) bool {
	for _, m := range wordMarkers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}

func (c *Cleaner) fixToken(tok string) string {
	if !c.hasMarker(tok) {
		return tok
	}
	canon, ok := c.words[strings.ToLower(tok)]
	if !ok {
		return tok
	}
	return matchCase(tok, canon)
}

func isTokenRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '?' || r == unicode.ReplacementChar
}

// matchCase gives canon the case pattern of tok: all upper, capitalized or
// lower. Markers carry no case and are ignored.
func matchCase(tok, canon string) string {
	var letters, upper int
	firstUpper := false
	for _, r := range tok {
		if !unicode.IsLetter(r) {
			continue
		}
		if letters == 0 {
			firstUpper = unicode.IsUpper(r)
		}
		letters++
		if unicode.IsUpper(r) {
			upper++
		}
	}
	switch {
	case letters > 1 && upper == letters:
		return strings.ToUpper(canon)
	case firstUpper:
		r := []rune(canon)
		r[0] = unicode.ToUpper(r[0])
		return string(r)
	default:
		return canon
	}
}

type cleanName struct {
	name     string
	suffixed bool
}

// normalizeNames repairs, folds and deduplicates column names. A name that is
// already taken gets the first free numeric suffix starting at _2, assigned
// in column order.
func (c *Cleaner) normalizeNames(names []string) []cleanName {
	out := make([]cleanName, len(names))
	taken := make(map[string]bool, len(names))
	for i, n := range names {
		base := c.NormalizeName(n)
		if base == "" {
			base = "column_" + strconv.Itoa(i+1)
		}
		name := base
		suffixed := false
		for k := 2; taken[name]; k++ {
			name = fmt.Sprintf("%s_%d", base, k)
			suffixed = true
		}
		taken[name] = true
		out[i] = cleanName{name: name, suffixed: suffixed}
	}
	return out
}

// NormalizeName turns a raw header into snake_case ASCII: artifacts are
// repaired, accents folded, and every run of other characters becomes one
// underscore. The result may be empty.
func (c *Cleaner) NormalizeName(name string) string {
	repaired, _, _ := c.Repair(name)
	folded := strings.ToLower(FoldAccents(repaired))

	var b strings.Builder
	pendingSep := false
	for _, r := range folded {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(r)
			continue
		}
		pendingSep = true
	}
	return b.String()
}

// FoldAccents strips combining marks after canonical decomposition, so
// "Município" becomes "Municipio".
func FoldAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
