package analysis

import (
	"testing"
	"time"
)

// ----------------------------------------------------------------------------
// NormalizeBRNumber / ParseBRNumeric Tests
// ----------------------------------------------------------------------------

func TestNormalizeBRNumber(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"currency with thousands", "R$ 1.234,56", "1234.56"},
		{"currency small", "R$ 10,00", "10.00"},
		{"no space after symbol", "R$5,5", "5.5"},
		{"non-breaking space", "R$ 5,50", "5.50"},
		{"accounting negative", "(10,00)", "-10.00"},
		{"minus sign", "-3,2", "-3.2"},
		{"dot thousands only", "1.234", "1234"},
		{"dot thousands repeated", "1.234.567", "1234567"},
		{"dot decimal kept", "1.5", "1.5"},
		{"comma thousands dot decimal", "1,234.56", "1234.56"},
		{"comma thousands repeated", "R$ 1,234,567.89", "1234567.89"},
		{"dot thousands comma decimal", "1.234.567,89", "1234567.89"},
		{"plain integer", "42", "42"},
		{"text untouched", "abc", "abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeBRNumber(tt.input); got != tt.want {
				t.Errorf("NormalizeBRNumber(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseBRNumeric(t *testing.T) {
	tests := []struct {
		input     string
		wantValid bool
		want      float64
	}{
		{"R$ 1.234,56", true, 1234.56},
		{"R$ 10,00", true, 10},
		{"(1.000,00)", true, -1000},
		{"0,5", true, 0.5},
		{"1,234.56", true, 1234.56},
		{"", false, 0},
		{"R$", false, 0},
		{"sem valor", false, 0},
		{"1,2,3", false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := ParseBRNumeric(tt.input)
			if result.Valid != tt.wantValid {
				t.Fatalf("ParseBRNumeric(%q).Valid = %v, want %v", tt.input, result.Valid, tt.wantValid)
			}
			if !tt.wantValid {
				return
			}
			f, ok := NumericFloat(result)
			if !ok {
				t.Fatalf("NumericFloat(%q) returned invalid", tt.input)
			}
			if f != tt.want {
				t.Errorf("ParseBRNumeric(%q) = %v, want %v", tt.input, f, tt.want)
			}
		})
	}
}

func TestLooksLikeCurrency(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"R$ 1.234,56", true},
		{"1.234,56", true},
		{"10,00", true},
		{"R$ 5", true},
		{"(1.234,56)", true},
		{"1234", false},
		{"12,5", false},
		{"12345678000190", false},
		{"abc", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := LooksLikeCurrency(tt.input); got != tt.want {
				t.Errorf("LooksLikeCurrency(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

// ----------------------------------------------------------------------------
// ParseDate Tests
// ----------------------------------------------------------------------------

func TestParseDate(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantValid bool
		wantDate  time.Time
	}{
		{"day first slash", "03/04/2020", true, time.Date(2020, 4, 3, 0, 0, 0, 0, time.UTC)},
		{"day first dash", "31-12-2019", true, time.Date(2019, 12, 31, 0, 0, 0, 0, time.UTC)},
		{"day first dot", "01.02.2021", true, time.Date(2021, 2, 1, 0, 0, 0, 0, time.UTC)},
		{"iso", "2020-01-31", true, time.Date(2020, 1, 31, 0, 0, 0, 0, time.UTC)},
		{"month and year", "01/2020", true, time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)},
		{"with time", "15/03/2021 10:30", true, time.Date(2021, 3, 15, 10, 30, 0, 0, time.UTC)},
		{"digit run rejected", "20200101", false, time.Time{}},
		{"impossible day", "31/02/2020", false, time.Time{}},
		{"empty", "", false, time.Time{}},
		{"text", "ontem", false, time.Time{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ParseDate(tt.input)
			if result.Valid != tt.wantValid {
				t.Fatalf("ParseDate(%q).Valid = %v, want %v", tt.input, result.Valid, tt.wantValid)
			}
			if tt.wantValid && !result.Time.Equal(tt.wantDate) {
				t.Errorf("ParseDate(%q) = %v, want %v", tt.input, result.Time, tt.wantDate)
			}
		})
	}
}

func TestParseDate_TwoDigitYear(t *testing.T) {
	originalPivot := TwoDigitYearPivot
	defer func() { TwoDigitYearPivot = originalPivot }()
	TwoDigitYearPivot = 20

	tests := []struct {
		input    string
		wantYear int
	}{
		{"15/01/25", 2025},
		{"15/01/99", 1999},
		{"1/2/05", 2005},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := ParseDate(tt.input)
			if !result.Valid {
				t.Fatalf("ParseDate(%q) returned invalid", tt.input)
			}
			if result.Time.Year() != tt.wantYear {
				t.Errorf("ParseDate(%q) year = %d, want %d", tt.input, result.Time.Year(), tt.wantYear)
			}
		})
	}
}

// ----------------------------------------------------------------------------
// ParseBool / ParseInt / ParseFloat Tests
// ----------------------------------------------------------------------------

func TestParseBool(t *testing.T) {
	tests := []struct {
		input     string
		wantValid bool
		want      bool
	}{
		{"sim", true, true},
		{"SIM", true, true},
		{"Verdadeiro", true, true},
		{"true", true, true},
		{"não", true, false},
		{"nao", true, false},
		{"Falso", true, false},
		{"1", false, false},
		{"0", false, false},
		{"talvez", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := ParseBool(tt.input)
			if result.Valid != tt.wantValid || result.Bool != tt.want {
				t.Errorf("ParseBool(%q) = {%v %v}, want {%v %v}",
					tt.input, result.Bool, result.Valid, tt.want, tt.wantValid)
			}
		})
	}
}

func TestParseIntAndFloat(t *testing.T) {
	tests := []struct {
		input     string
		wantInt   bool
		wantFloat bool
	}{
		{"42", true, true},
		{"-7", true, true},
		{" 8 ", true, true},
		{"1.5", false, true},
		{"1e3", false, true},
		{"1,5", false, false},
		{"NaN", false, false},
		{"Inf", false, false},
		{"99999999999999999999", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseInt(tt.input).Valid; got != tt.wantInt {
				t.Errorf("ParseInt(%q).Valid = %v, want %v", tt.input, got, tt.wantInt)
			}
			if got := ParseFloat(tt.input).Valid; got != tt.wantFloat {
				t.Errorf("ParseFloat(%q).Valid = %v, want %v", tt.input, got, tt.wantFloat)
			}
		})
	}
}
