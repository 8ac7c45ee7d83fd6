package ingest

// diagnose.go infers a file's encoding and separator from a bounded prefix.
//
// Every encoding is tried against every separator. The combination whose
// header yields the most columns wins; on a tie the earlier encoding, then
// the earlier separator, is kept.

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"strings"
)

// Diagnosis is the chosen encoding and separator for a file. Confidence is
// the column count achieved by the winning combination.
type Diagnosis struct {
	Encoding    Encoding  `json:"encoding" yaml:"encoding"`
	Separator   Separator `json:"separator" yaml:"separator"`
	ColumnCount int       `json:"column_count" yaml:"column_count"`
	Confidence  int       `json:"confidence" yaml:"confidence"`
	HasBOM      bool      `json:"has_bom" yaml:"has_bom"`
	Attempts    []Attempt `json:"attempts,omitempty" yaml:"attempts,omitempty"`
}

// LowConfidence reports the one-column outcome that usually means none of the
// candidate separators is the real one.
func (d Diagnosis) LowConfidence() bool { return d.ColumnCount <= 1 }

// Attempt records one tried combination.
type Attempt struct {
	Encoding  Encoding  `json:"encoding" yaml:"encoding"`
	Separator Separator `json:"separator" yaml:"separator"`
	Columns   int       `json:"columns" yaml:"columns"`
	Err       string    `json:"error,omitempty" yaml:"error,omitempty"`
}

// DiagnoseOptions bounds the prefix read by the diagnoser.
type DiagnoseOptions struct {
	Lines    int
	MaxBytes int64
}

// DefaultDiagnoseOptions mirrors the configuration defaults.
var DefaultDiagnoseOptions = DiagnoseOptions{Lines: 20, MaxBytes: 64 << 10}

// Diagnoser tries encoding and separator candidates.
type Diagnoser struct {
	opts DiagnoseOptions
}

// NewDiagnoser creates a diagnoser. Zero options fall back to the defaults.
func NewDiagnoser(opts DiagnoseOptions) *Diagnoser {
	if opts.Lines <= 0 {
		opts.Lines = DefaultDiagnoseOptions.Lines
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = DefaultDiagnoseOptions.MaxBytes
	}
	return &Diagnoser{opts: opts}
}

// Diagnose reads a prefix of path and returns the best combination. It fails
// with *UnreadableFileError only when no combination reads anything.
func (d *Diagnoser) Diagnose(ctx context.Context, path string) (Diagnosis, error) {
	if err := ctx.Err(); err != nil {
		return Diagnosis{}, err
	}

	p, err := readPrefix(path, d.opts.MaxBytes)
	if err != nil {
		return Diagnosis{}, &UnreadableFileError{Path: path, Cause: err}
	}
	sample := firstLines(p.data, d.opts.Lines)

	var (
		best     Diagnosis
		found    bool
		attempts = make([]Attempt, 0, len(Encodings)*len(Separators))
		lastErr  error
	)
	for _, enc := range Encodings {
		text, decErr := enc.Decode(sample, true)
		for _, sep := range Separators {
			a := Attempt{Encoding: enc, Separator: sep}
			if decErr != nil {
				a.Err = decErr.Error()
				lastErr = decErr
				attempts = append(attempts, a)
				continue
			}
			n, err := headerWidth(text, sep)
			if err != nil {
				a.Err = err.Error()
				lastErr = err
				attempts = append(attempts, a)
				continue
			}
			a.Columns = n
			attempts = append(attempts, a)

			if !found || n > best.ColumnCount {
				best = Diagnosis{Encoding: enc, Separator: sep, ColumnCount: n}
				found = true
			}
		}
	}

	if !found {
		return Diagnosis{}, &UnreadableFileError{Path: path, Cause: lastErr, Attempts: attempts}
	}

	best.Confidence = best.ColumnCount
	best.HasBOM = p.hadBOM
	best.Attempts = attempts
	return best, nil
}

// headerWidth parses the first record of text with sep and returns its field
// count.
func headerWidth(text string, sep Separator) (int, error) {
	r := newCSVReader(strings.NewReader(text), sep)
	r.FieldsPerRecord = -1
	rec, err := r.Read()
	if errors.Is(err, io.EOF) {
		return 0, ErrEmptyFile
	}
	if err != nil {
		return 0, err
	}
	return len(rec), nil
}

func newCSVReader(r io.Reader, sep Separator) *csv.Reader {
	cr := csv.NewReader(r)
	cr.Comma = rune(sep)
	cr.LazyQuotes = true
	cr.ReuseRecord = false
	return cr
}
