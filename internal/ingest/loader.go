package ingest

// loader.go turns a diagnosed file into a rectangular table.
//
// Loading walks an ordered list of strategies. A strategy either returns a
// parsed header and rows or an error; the first one that succeeds with a
// rectangular result wins. The last strategy never fails, so Load only
// errors when the file itself cannot be read.

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/JonMunkholm/fairprice/internal/logging"
	"github.com/JonMunkholm/fairprice/internal/table"
)

// LoadOptions caps how much of a file is loaded. Zero means unlimited.
type LoadOptions struct {
	MaxRows  int
	MaxBytes int64
}

// Meta describes how a table was loaded.
type Meta struct {
	Strategy      string        `json:"strategy" yaml:"strategy"`
	Tier          int           `json:"tier" yaml:"tier"`
	RowsRead      int           `json:"rows_read" yaml:"rows_read"`
	RowsDropped   int           `json:"rows_dropped" yaml:"rows_dropped"`
	RowsPadded    int           `json:"rows_padded" yaml:"rows_padded"`
	RowsTruncated int           `json:"rows_truncated" yaml:"rows_truncated"`
	BytesReplaced int           `json:"bytes_replaced" yaml:"bytes_replaced"`
	BytesRead     int64         `json:"bytes_read" yaml:"bytes_read"`
	Capped        bool          `json:"capped" yaml:"capped"`
	Failures      []TierFailure `json:"failures,omitempty" yaml:"failures,omitempty"`
}

// TierFailure records a strategy that was tried and rejected.
type TierFailure struct {
	Tier     int    `json:"tier" yaml:"tier"`
	Strategy string `json:"strategy" yaml:"strategy"`
	Err      string `json:"error" yaml:"error"`
}

// Repaired is the number of rows that were dropped, padded or truncated.
func (m Meta) Repaired() int { return m.RowsDropped + m.RowsPadded + m.RowsTruncated }

// Degraded reports whether any row needed repair or any invalid byte was
// replaced while decoding.
func (m Meta) Degraded() bool { return m.Repaired() > 0 || m.BytesReplaced > 0 }

// Loader reads files with progressive fallback.
type Loader struct {
	opts       LoadOptions
	strategies []Strategy
}

// NewLoader creates a loader using the default strategy chain.
func NewLoader(opts LoadOptions) *Loader {
	return &Loader{opts: opts, strategies: DefaultStrategies()}
}

// WithStrategies returns a copy of l that runs the given chain instead.
func (l *Loader) WithStrategies(s ...Strategy) *Loader {
	cp := *l
	cp.strategies = s
	return &cp
}

// Load reads path using diag. Malformed rows never cause an error; they are
// dropped or repaired and counted in Meta. The returned table is only
// non-nil when err is nil.
func (l *Loader) Load(ctx context.Context, path string, diag Diagnosis) (*table.Table, Meta, error) {
	logger := logging.FromContext(ctx).With(slog.String("file", path))

	p, err := readPrefix(path, l.opts.MaxBytes)
	if err != nil {
		return nil, Meta{}, &UnreadableFileError{Path: path, Cause: err}
	}
	if len(p.data) == 0 {
		return nil, Meta{}, &UnreadableFileError{Path: path, Cause: ErrEmptyFile}
	}

	in := &input{data: p.data, diag: diag, maxRows: l.opts.MaxRows}
	meta := Meta{BytesRead: p.bytesRead, Capped: p.capped}

	for i, s := range l.strategies {
		if err := ctx.Err(); err != nil {
			return nil, Meta{}, err
		}

		res, err := s.Run(in)
		if err == nil && res != nil {
			err = res.validate()
		}
		if err != nil {
			logger.Debug("load strategy rejected",
				slog.String("strategy", s.Name),
				slog.String("error", err.Error()),
			)
			meta.Failures = append(meta.Failures, TierFailure{Tier: i + 1, Strategy: s.Name, Err: err.Error()})
			continue
		}

		t := table.FromStrings(res.header, res.rows)
		if err := t.Validate(); err != nil {
			meta.Failures = append(meta.Failures, TierFailure{Tier: i + 1, Strategy: s.Name, Err: err.Error()})
			continue
		}

		meta.Strategy = s.Name
		meta.Tier = i + 1
		meta.RowsRead = res.read
		meta.RowsDropped = res.dropped
		meta.RowsPadded = res.padded
		meta.RowsTruncated = res.truncated
		meta.BytesReplaced = res.replaced
		meta.Capped = meta.Capped || res.capped
		return t, meta, nil
	}

	return nil, meta, &UnreadableFileError{
		Path:  path,
		Cause: fmt.Errorf("no load strategy succeeded (%d tried)", len(l.strategies)),
	}
}
