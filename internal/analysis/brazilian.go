package analysis

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/JonMunkholm/fairprice/internal/clean"
	"github.com/JonMunkholm/fairprice/internal/table"
)

var (
	cnpjFormattedRe = regexp.MustCompile(`^\d{2}\.\d{3}\.\d{3}/\d{4}-\d{2}$`)
	cnpjDigitsRe    = regexp.MustCompile(`^\d{14}$`)
	cpfFormattedRe  = regexp.MustCompile(`^\d{3}\.\d{3}\.\d{3}-\d{2}$`)
	cpfDigitsRe     = regexp.MustCompile(`^\d{11}$`)
	cnesRe          = regexp.MustCompile(`^\d{7}$`)
	ibgeRe          = regexp.MustCompile(`^\d{6,7}$`)
	coordinateRe    = regexp.MustCompile(`^[+-]?\d+([.,]\d+)?$`)
)

// Brazilian bounding box in decimal degrees.
const (
	minLatitude  = -35.0
	maxLatitude  = 6.0
	minLongitude = -75.0
	maxLongitude = -30.0
)

// IdentifierStats classifies the values of one identifier column. Every
// non-missing value lands in exactly one of Formatted, NumericOnly and
// Invalid.
type IdentifierStats struct {
	Formatted   int `json:"formatted" yaml:"formatted"`
	NumericOnly int `json:"numeric_only" yaml:"numeric_only"`
	Invalid     int `json:"invalid" yaml:"invalid"`
	// ChecksumValid counts CNPJ values whose check digits verify.
	ChecksumValid int `json:"checksum_valid,omitempty" yaml:"checksum_valid,omitempty"`
	// SixDigit and SevenDigit split IBGE codes by length.
	SixDigit   int `json:"six_digit,omitempty" yaml:"six_digit,omitempty"`
	SevenDigit int `json:"seven_digit,omitempty" yaml:"seven_digit,omitempty"`
}

// CoordinateStats validates one latitude or longitude column.
type CoordinateStats struct {
	Axis        string  `json:"axis" yaml:"axis"`
	Within      int     `json:"within" yaml:"within"`
	Outside     int     `json:"outside" yaml:"outside"`
	Unparsed    int     `json:"unparsed" yaml:"unparsed"`
	AvgDecimals float64 `json:"avg_decimals" yaml:"avg_decimals"`
	MaxDecimals int     `json:"max_decimals" yaml:"max_decimals"`
}

// CurrencyStats describes one money column. Sample holds the first normalized
// values; the table itself keeps the original text.
type CurrencyStats struct {
	RSSymbol     int       `json:"rs_symbol" yaml:"rs_symbol"`
	CommaDecimal int       `json:"comma_decimal" yaml:"comma_decimal"`
	DotThousands int       `json:"dot_thousands" yaml:"dot_thousands"`
	Parsed       int       `json:"parsed" yaml:"parsed"`
	Unparsed     int       `json:"unparsed" yaml:"unparsed"`
	Min          float64   `json:"min" yaml:"min"`
	Max          float64   `json:"max" yaml:"max"`
	Total        float64   `json:"total" yaml:"total"`
	Sample       []float64 `json:"sample" yaml:"sample"`
}

// StateStats checks a state column against the 27 federative units.
type StateStats struct {
	Valid   int `json:"valid" yaml:"valid"`
	Invalid int `json:"invalid" yaml:"invalid"`
}

// BrazilianSection validates Brazilian identifiers, coordinates, money and
// state columns.
type BrazilianSection struct {
	CNPJ                map[string]IdentifierStats `json:"cnpj" yaml:"cnpj"`
	CNES                map[string]IdentifierStats `json:"cnes" yaml:"cnes"`
	IBGE                map[string]IdentifierStats `json:"ibge" yaml:"ibge"`
	CPF                 map[string]IdentifierStats `json:"cpf" yaml:"cpf"`
	Coordinates         map[string]CoordinateStats `json:"coordinates" yaml:"coordinates"`
	Currency            map[string]CurrencyStats   `json:"currency" yaml:"currency"`
	States              map[string]StateStats      `json:"states" yaml:"states"`
	MunicipalityColumns []string                   `json:"municipality_columns" yaml:"municipality_columns"`
}

// Key implements Section.
func (BrazilianSection) Key() string { return KeyBrazilian }

// Brazilian inspects the columns whose names identify a Brazilian domain
// concept, plus every financial column.
func (e *Engine) Brazilian(t *table.Table) BrazilianSection {
	b := BrazilianSection{
		CNPJ:                map[string]IdentifierStats{},
		CNES:                map[string]IdentifierStats{},
		IBGE:                map[string]IdentifierStats{},
		CPF:                 map[string]IdentifierStats{},
		Coordinates:         map[string]CoordinateStats{},
		Currency:            map[string]CurrencyStats{},
		States:              map[string]StateStats{},
		MunicipalityColumns: columnsMatching(t.Names(), municipalityTerms),
	}
	ids := map[string]bool{}

	for _, c := range t.Columns {
		values := nonMissing(c)
		if b.identifier(c.Name, values) {
			ids[c.Name] = true
			continue
		}

		switch {
		case matchesAny(c.Name, latitudeTerms):
			b.Coordinates[c.Name] = coordinates(values, "latitude", minLatitude, maxLatitude)
		case matchesAny(c.Name, longitudeTerms):
			b.Coordinates[c.Name] = coordinates(values, "longitude", minLongitude, maxLongitude)
		}
		if matchesAny(c.Name, stateTerms) {
			b.States[c.Name] = states(values)
		}
		if e.financial(c.Name, values, ids) {
			b.Currency[c.Name] = e.currency(values)
		}
	}
	return b
}

// identifier records c under its identifier type, reporting whether the name
// matched one.
func (b *BrazilianSection) identifier(name string, values []string) bool {
	switch {
	case matchesAny(name, cnpjTerms):
		b.CNPJ[name] = classifyCNPJ(values)
	case matchesAny(name, cpfTerms):
		b.CPF[name] = classify(values, cpfFormattedRe, cpfDigitsRe)
	case matchesAny(name, cnesTerms):
		b.CNES[name] = classify(values, nil, cnesRe)
	case matchesAny(name, ibgeTerms):
		b.IBGE[name] = classifyIBGE(values)
	default:
		return false
	}
	return true
}

// classify sorts values into formatted, numeric-only and invalid. A nil
// formatted pattern means the identifier has no punctuated form.
func classify(values []string, formatted, digits *regexp.Regexp) IdentifierStats {
	var st IdentifierStats
	for _, v := range values {
		v = strings.TrimSpace(v)
		switch {
		case formatted != nil && formatted.MatchString(v):
			st.Formatted++
		case digits.MatchString(v):
			st.NumericOnly++
		default:
			st.Invalid++
		}
	}
	return st
}

func classifyCNPJ(values []string) IdentifierStats {
	st := classify(values, cnpjFormattedRe, cnpjDigitsRe)
	for _, v := range values {
		v = strings.TrimSpace(v)
		if (cnpjFormattedRe.MatchString(v) || cnpjDigitsRe.MatchString(v)) && ValidCNPJ(v) {
			st.ChecksumValid++
		}
	}
	return st
}

func classifyIBGE(values []string) IdentifierStats {
	st := classify(values, nil, ibgeRe)
	for _, v := range values {
		v = strings.TrimSpace(v)
		if !ibgeRe.MatchString(v) {
			continue
		}
		if len(v) == 6 {
			st.SixDigit++
		} else {
			st.SevenDigit++
		}
	}
	return st
}

var (
	cnpjWeights1 = []int{5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2}
	cnpjWeights2 = []int{6, 5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2}
)

// ValidCNPJ verifies both mod-11 check digits. Punctuation is ignored.
// Numbers made of a single repeated digit are rejected.
func ValidCNPJ(s string) bool {
	digits := make([]int, 0, 14)
	for _, r := range s {
		if r >= '0' && r <= '9' {
			digits = append(digits, int(r-'0'))
		}
	}
	if len(digits) != 14 {
		return false
	}
	same := true
	for _, d := range digits[1:] {
		if d != digits[0] {
			same = false
			break
		}
	}
	if same {
		return false
	}
	return checkDigit(digits[:12], cnpjWeights1) == digits[12] &&
		checkDigit(digits[:13], cnpjWeights2) == digits[13]
}

func checkDigit(digits, weights []int) int {
	sum := 0
	for i, d := range digits {
		sum += d * weights[i]
	}
	r := sum % 11
	if r < 2 {
		return 0
	}
	return 11 - r
}

func coordinates(values []string, axis string, lo, hi float64) CoordinateStats {
	st := CoordinateStats{Axis: axis}
	decimals := 0
	parsed := 0
	for _, v := range values {
		v = strings.TrimSpace(v)
		if !coordinateRe.MatchString(v) {
			st.Unparsed++
			continue
		}
		v = strings.Replace(v, ",", ".", 1)
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			st.Unparsed++
			continue
		}
		parsed++
		if i := strings.IndexByte(v, '.'); i >= 0 {
			d := len(v) - i - 1
			decimals += d
			st.MaxDecimals = max(st.MaxDecimals, d)
		}
		if f >= lo && f <= hi {
			st.Within++
		} else {
			st.Outside++
		}
	}
	if parsed > 0 {
		st.AvgDecimals = float64(decimals) / float64(parsed)
	}
	return st
}

func (e *Engine) currency(values []string) CurrencyStats {
	st := CurrencyStats{Min: math.Inf(1), Max: math.Inf(-1), Sample: []float64{}}
	for _, v := range values {
		if currencyPrefixRe.MatchString(v) {
			st.RSSymbol++
		}
		if commaDecimalRe.MatchString(v) {
			st.CommaDecimal++
		}
		if dotThousandsRe.MatchString(v) {
			st.DotThousands++
		}
		f, ok := NumericFloat(ParseBRNumeric(v))
		if !ok {
			st.Unparsed++
			continue
		}
		st.Parsed++
		st.Total += f
		st.Min = math.Min(st.Min, f)
		st.Max = math.Max(st.Max, f)
		if len(st.Sample) < e.opts.SampleSize {
			st.Sample = append(st.Sample, f)
		}
	}
	if st.Parsed == 0 {
		st.Min, st.Max = 0, 0
	}
	return st
}

// NormalizedAmounts returns the numeric value of every cell that parses as a
// Brazilian amount, in row order.
func NormalizedAmounts(c table.Column) []float64 {
	out := []float64{}
	for _, v := range nonMissing(c) {
		if f, ok := NumericFloat(ParseBRNumeric(v)); ok {
			out = append(out, f)
		}
	}
	return out
}

func states(values []string) StateStats {
	var st StateStats
	for _, v := range values {
		v = strings.TrimSpace(v)
		if _, ok := brazilianStates[strings.ToUpper(v)]; ok {
			st.Valid++
			continue
		}
		if stateNames[strings.ToLower(clean.FoldAccents(v))] {
			st.Valid++
			continue
		}
		st.Invalid++
	}
	return st
}
