package analysis

// convert.go provides total parse-attempt functions for cell text.
//
// Each function returns a pgtype value with Valid=false when the text does not
// parse, so callers aggregate validity across a column instead of handling
// errors per cell:
//   - Brazilian money and numbers ("R$ 1.234,56", "(10,00)", "1.234")
//   - Dates, day-first as Brazilian files write them
//   - Booleans in Portuguese and English
//   - Plain integers and floats for type inference

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

// numericRegex validates that a string is a plain decimal after cleanup.
// Matches integers, decimals, and scientific notation.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

var (
	integerRegex     = regexp.MustCompile(`^[+-]?\d+$`)
	dotThousandsOnly = regexp.MustCompile(`^[+-]?\d{1,3}(\.\d{3})+$`)
	currencyWhole    = regexp.MustCompile(`^[-(]?\s*(R\$\s*)?[-(]?\s*\d{1,3}(\.?\d{3})*(,\d{1,2})?\s*\)?$`)
	currencyPrefixRe = regexp.MustCompile(`R\$`)
	commaDecimalRe   = regexp.MustCompile(`\d+,\d{2}`)
	dotThousandsRe   = regexp.MustCompile(`\d{1,3}\.\d{3}`)
)

// TwoDigitYearPivot defines how 2-digit years are interpreted.
// Years that would result in dates more than this many years in the future
// are assumed to be in the previous century.
var TwoDigitYearPivot = 20

// Day-first layouts come before ISO so 03/04/2020 reads as 3 April.
var (
	twoDigitYearLayouts = []string{
		"02/01/06", "2/1/06", "02-01-06", "02.01.06",
	}
	fourDigitYearLayouts = []string{
		"02/01/2006", "2/1/2006", "02-01-2006", "02.01.2006",
		"2006-01-02", "2006/01/02", "2006.01.02",
		"02/01/2006 15:04:05", "02/01/2006 15:04",
		"2006-01-02 15:04:05", "2006-01-02T15:04:05", time.RFC3339,
		"01/2006", "2006-01",
	}
)

// ParseDate converts text to pgtype.Date. Bare digit runs such as 20200101
// are not accepted: in these files they are far more often codes than dates.
func ParseDate(s string) pgtype.Date {
	s = strings.TrimSpace(s)
	if s == "" {
		return pgtype.Date{Valid: false}
	}

	for _, layout := range fourDigitYearLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return pgtype.Date{Time: t, Valid: true}
		}
	}

	pivotYear := time.Now().Year() + TwoDigitYearPivot
	for _, layout := range twoDigitYearLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			if t.Year() > pivotYear {
				t = t.AddDate(-100, 0, 0)
			}
			return pgtype.Date{Time: t, Valid: true}
		}
	}

	return pgtype.Date{Valid: false}
}

// NormalizeBRNumber rewrites Brazilian-formatted numeric text as a plain
// decimal string. The R$ symbol and spaces are dropped. When both separators
// appear, the last one is the decimal point (1.234,56 and 1,234.56); a comma
// alone is the decimal point; dots alone are thousands separators only in the
// 1.234.567 shape.
// Accounting parentheses become a leading minus.
func NormalizeBRNumber(s string) string {
	s = strings.TrimSpace(s)
	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}

	s = strings.ReplaceAll(s, "R$", "")
	s = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\u00a0':
			return -1
		}
		return r
	}, s)

	switch comma, dot := strings.LastIndex(s, ","), strings.LastIndex(s, "."); {
	case comma >= 0 && dot > comma:
		s = strings.ReplaceAll(s, ",", "")
	case comma >= 0:
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	case dotThousandsOnly.MatchString(s):
		s = strings.ReplaceAll(s, ".", "")
	}

	if negative && !strings.HasPrefix(s, "-") {
		s = "-" + s
	}
	return s
}

// ParseBRNumeric converts Brazilian-formatted text to pgtype.Numeric.
func ParseBRNumeric(s string) pgtype.Numeric {
	norm := NormalizeBRNumber(s)
	if norm == "" || !numericRegex.MatchString(norm) {
		return pgtype.Numeric{Valid: false}
	}

	var n pgtype.Numeric
	if err := n.Scan(norm); err != nil {
		return pgtype.Numeric{Valid: false}
	}
	return n
}

// NumericFloat returns the float value of n.
func NumericFloat(n pgtype.Numeric) (float64, bool) {
	if !n.Valid {
		return 0, false
	}
	f, err := n.Float64Value()
	if err != nil || !f.Valid {
		return 0, false
	}
	return f.Float64, true
}

// ParseBool converts text to pgtype.Bool. Digits are left to the integer
// parser so 0/1 columns infer as integers.
func ParseBool(s string) pgtype.Bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "verdadeiro", "sim", "yes":
		return pgtype.Bool{Bool: true, Valid: true}
	case "false", "falso", "não", "nao", "no":
		return pgtype.Bool{Bool: false, Valid: true}
	default:
		return pgtype.Bool{Valid: false}
	}
}

// ParseInt parses a plain integer.
func ParseInt(s string) pgtype.Int8 {
	s = strings.TrimSpace(s)
	if !integerRegex.MatchString(s) {
		return pgtype.Int8{Valid: false}
	}
	i, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return pgtype.Int8{Valid: false}
	}
	return pgtype.Int8{Int64: i, Valid: true}
}

// ParseFloat parses a plain dot-decimal number. NaN and Inf spellings are
// rejected.
func ParseFloat(s string) pgtype.Float8 {
	s = strings.TrimSpace(s)
	if !numericRegex.MatchString(s) {
		return pgtype.Float8{Valid: false}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return pgtype.Float8{Valid: false}
	}
	return pgtype.Float8{Float64: f, Valid: true}
}

// LooksLikeCurrency reports whether the whole text has the shape of a
// Brazilian money amount: an R$ prefix, or dot thousands with a comma
// decimal part.
func LooksLikeCurrency(s string) bool {
	s = strings.TrimSpace(s)
	if !currencyWhole.MatchString(s) {
		return false
	}
	return strings.Contains(s, "R$") || commaDecimalRe.MatchString(s)
}
