package ingest

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Strategy is one loading tier. Run returns an error instead of a partial
// result when the tier cannot load the input.
type Strategy struct {
	Name string
	Run  func(in *input) (*parsed, error)
}

// DefaultStrategies returns the fallback chain in the order it is tried.
func DefaultStrategies() []Strategy {
	return []Strategy{
		{Name: "strict", Run: loadStrict},
		{Name: "flexible", Run: loadFlexible},
		{Name: "aggressive", Run: loadAggressive},
		{Name: "manual", Run: loadManual},
	}
}

// input is the raw material shared by every strategy.
type input struct {
	data    []byte
	diag    Diagnosis
	maxRows int
}

// parsed is a strategy's output before it becomes a table.
type parsed struct {
	header    []string
	rows      [][]string
	read      int
	dropped   int
	padded    int
	truncated int
	replaced  int
	capped    bool
}

var (
	errNoHeader   = errors.New("no header row")
	errAllDropped = errors.New("every data row was dropped")
)

func (p *parsed) validate() error {
	if len(p.header) == 0 {
		return errNoHeader
	}
	for i, row := range p.rows {
		if len(row) != len(p.header) {
			return fmt.Errorf("row %d has %d fields, header has %d", i+1, len(row), len(p.header))
		}
	}
	return nil
}

func (p *parsed) full(maxRows int) bool {
	return maxRows > 0 && len(p.rows) >= maxRows
}

// loadStrict trusts the diagnosis completely: any decoding error or row whose
// width differs from the header fails the tier.
func loadStrict(in *input) (*parsed, error) {
	r := newRecordReader(in.diag.Encoding.Reader(bytes.NewReader(in.data), true), in.diag.Separator)
	r.FieldsPerRecord = 0

	header, err := r.Read()
	if err != nil {
		return nil, headerErr(err)
	}

	p := &parsed{header: header}
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			return p, nil
		}
		if err != nil {
			return nil, fmt.Errorf("strict: %w", err)
		}
		if p.full(in.maxRows) {
			p.capped = true
			return p, nil
		}
		p.read++
		p.rows = append(p.rows, rec)
	}
}

// loadFlexible keeps the diagnosis but drops rows whose width differs from
// the header. A quote error confined to one line drops that line; one that
// spans lines fails the tier, since the lines it swallowed cannot be counted.
func loadFlexible(in *input) (*parsed, error) {
	r := newRecordReader(in.diag.Encoding.Reader(bytes.NewReader(in.data), true), in.diag.Separator)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, headerErr(err)
	}

	p := &parsed{header: header}
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			if perr.StartLine != perr.Line {
				return nil, fmt.Errorf("flexible: quoted field open from line %d: %w", perr.StartLine, err)
			}
			p.read++
			p.dropped++
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("flexible: %w", err)
		}
		if p.full(in.maxRows) {
			p.capped = true
			break
		}
		p.read++
		if len(rec) != len(header) {
			p.dropped++
			continue
		}
		p.rows = append(p.rows, rec)
	}

	if p.read > 0 && len(p.rows) == 0 {
		return nil, fmt.Errorf("flexible: %w", errAllDropped)
	}
	return p, nil
}

// newRecordReader reads records that may span lines. Quotes are strict so an
// unterminated quote is reported instead of absorbing the rest of the file.
func newRecordReader(r io.Reader, sep Separator) *csv.Reader {
	cr := newCSVReader(r, sep)
	cr.LazyQuotes = false
	return cr
}

// loadAggressive ignores the diagnosed separator. The header takes whichever
// candidate splits it widest, and each data line takes the first candidate
// that reproduces the header width; lines matching none are dropped.
func loadAggressive(in *input) (*parsed, error) {
	text, err := in.diag.Encoding.Decode(in.data, true)
	if err != nil {
		return nil, fmt.Errorf("aggressive: %w", err)
	}
	lines := splitLines(text)
	if len(lines) == 0 {
		return nil, errNoHeader
	}

	var header []string
	for _, sep := range Separators {
		fields, err := parseLine(lines[0], sep)
		if err == nil && len(fields) > len(header) {
			header = fields
		}
	}
	if len(header) == 0 {
		return nil, errNoHeader
	}

	p := &parsed{header: header}
	for _, line := range lines[1:] {
		if p.full(in.maxRows) {
			p.capped = true
			break
		}
		p.read++
		row := matchWidth(line, len(header))
		if row == nil {
			p.dropped++
			continue
		}
		p.rows = append(p.rows, row)
	}

	if p.read > 0 && len(p.rows) == 0 {
		return nil, fmt.Errorf("aggressive: %w", errAllDropped)
	}
	return p, nil
}

func matchWidth(line string, width int) []string {
	for _, sep := range Separators {
		fields, err := parseLine(line, sep)
		if err == nil && len(fields) == width {
			return fields
		}
	}
	return nil
}

// loadManual rebuilds rows line by line with the diagnosed separator. Short
// rows are padded with empty cells and long rows truncated, so it succeeds on
// any input that has a header line.
func loadManual(in *input) (*parsed, error) {
	text, replaced, err := in.diag.Encoding.decodeLenient(in.data)
	if err != nil {
		return nil, fmt.Errorf("manual: %w", err)
	}
	lines := splitLines(text)
	if len(lines) == 0 {
		return nil, errNoHeader
	}

	sep := in.diag.Separator
	header := splitManual(lines[0], sep)
	p := &parsed{header: header, replaced: replaced}
	for _, line := range lines[1:] {
		if p.full(in.maxRows) {
			p.capped = true
			break
		}
		p.read++
		row := splitManual(line, sep)
		switch {
		case len(row) < len(header):
			row = append(row, make([]string, len(header)-len(row))...)
			p.padded++
		case len(row) > len(header):
			row = row[:len(header)]
			p.truncated++
		}
		p.rows = append(p.rows, row)
	}
	return p, nil
}

// splitManual honours quoting when the line parses, and falls back to a raw
// split otherwise.
func splitManual(line string, sep Separator) []string {
	if fields, err := parseLine(line, sep); err == nil {
		return fields
	}
	return strings.Split(line, string(rune(sep)))
}

// parseLine parses a single physical line as one CSV record.
func parseLine(line string, sep Separator) ([]string, error) {
	r := newCSVReader(strings.NewReader(line), sep)
	r.FieldsPerRecord = -1
	rec, err := r.Read()
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// splitLines splits text into non-blank lines without terminators.
func splitLines(text string) []string {
	raw := strings.Split(text, "\n")
	lines := make([]string, 0, len(raw))
	for _, l := range raw {
		l = strings.TrimSuffix(l, "\r")
		if strings.TrimSpace(l) == "" {
			continue
		}
		lines = append(lines, l)
	}
	return lines
}

func headerErr(err error) error {
	if errors.Is(err, io.EOF) {
		return errNoHeader
	}
	return err
}
