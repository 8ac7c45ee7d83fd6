// Package summary assembles per-file exploration results and keeps recent
// ones around for listing and cross-file comparison.
package summary

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/JonMunkholm/fairprice/internal/analysis"
	"github.com/JonMunkholm/fairprice/internal/clean"
	"github.com/JonMunkholm/fairprice/internal/ingest"
	"github.com/JonMunkholm/fairprice/internal/table"
)

// Warning kinds. Warnings are data, never errors.
const (
	WarnStructuralDegradation = "structural_degradation"
	WarnCleaningGap           = "cleaning_gap"
	WarnLowConfidence         = "low_confidence"
	WarnCapped                = "capped"
)

// Warning is a non-fatal irregularity found while exploring a file.
type Warning struct {
	Kind    string `json:"kind" yaml:"kind"`
	Count   int    `json:"count" yaml:"count"`
	Message string `json:"message" yaml:"message"`
}

// Provenance describes how the table behind a summary was produced.
type Provenance struct {
	RunID     string
	Diagnosis ingest.Diagnosis
	Load      ingest.Meta
}

// FileSummary is the exploration result for one file. It is not modified
// after Assemble returns.
type FileSummary struct {
	ID          string            `json:"id" yaml:"id"`
	RunID       string            `json:"run_id,omitempty" yaml:"run_id,omitempty"`
	Filename    string            `json:"filename" yaml:"filename"`
	CreatedAt   time.Time         `json:"created_at" yaml:"created_at"`
	Rows        int               `json:"rows" yaml:"rows"`
	Columns     int               `json:"columns" yaml:"columns"`
	MemoryBytes int64             `json:"memory_bytes" yaml:"memory_bytes"`
	Diagnosis   ingest.Diagnosis  `json:"diagnosis" yaml:"diagnosis"`
	Load        ingest.Meta       `json:"load" yaml:"load"`
	Cleaning    clean.Report      `json:"cleaning" yaml:"cleaning"`
	Analysis    analysis.Sections `json:"sections" yaml:"sections"`
	Warnings    []Warning         `json:"warnings" yaml:"warnings"`
}

// Assemble merges the outputs of one pipeline run. It adds no analysis of
// its own beyond turning loader and quality counters into warnings.
func Assemble(filename string, t *table.Table, report clean.Report, sections analysis.Sections, prov Provenance) FileSummary {
	if t == nil {
		t = &table.Table{}
	}
	s := FileSummary{
		RunID:       prov.RunID,
		Filename:    filename,
		CreatedAt:   time.Now().UTC(),
		Rows:        t.NumRows(),
		Columns:     t.NumCols(),
		MemoryBytes: sections.Schema.MemoryBytes,
		Diagnosis:   prov.Diagnosis,
		Load:        prov.Load,
		Cleaning:    report,
		Analysis:    sections,
	}
	s.Warnings = warnings(prov, sections.Quality)
	return s
}

// Section returns the analysis section stored under key.
func (s FileSummary) Section(key string) (analysis.Section, bool) {
	for _, sec := range s.Analysis.All() {
		if sec.Key() == key {
			return sec, true
		}
	}
	return nil, false
}

// SectionMap returns every analysis section under its stable key.
func (s FileSummary) SectionMap() map[string]analysis.Section {
	m := make(map[string]analysis.Section, 4)
	for _, sec := range s.Analysis.All() {
		m[sec.Key()] = sec
	}
	return m
}

// Warning returns the warning of the given kind, if any.
func (s FileSummary) Warning(kind string) (Warning, bool) {
	for _, w := range s.Warnings {
		if w.Kind == kind {
			return w, true
		}
	}
	return Warning{}, false
}

func warnings(prov Provenance, q analysis.QualitySection) []Warning {
	out := []Warning{}
	meta := prov.Load

	if meta.Degraded() {
		out = append(out, Warning{
			Kind:  WarnStructuralDegradation,
			Count: meta.Repaired() + meta.BytesReplaced,
			Message: fmt.Sprintf("%s loader repaired rows: %d dropped, %d padded, %d truncated; %d invalid bytes replaced",
				meta.Strategy, meta.RowsDropped, meta.RowsPadded, meta.RowsTruncated, meta.BytesReplaced),
		})
	}
	if meta.Capped {
		out = append(out, Warning{
			Kind:    WarnCapped,
			Count:   meta.RowsRead,
			Message: fmt.Sprintf("input capped after %d rows (%d bytes)", meta.RowsRead, meta.BytesRead),
		})
	}
	if prov.Diagnosis.Encoding != "" && prov.Diagnosis.LowConfidence() {
		out = append(out, Warning{
			Kind:    WarnLowConfidence,
			Count:   prov.Diagnosis.ColumnCount,
			Message: "only one column detected; the separator may be wrong",
		})
	}
	if q.TotalArtifacts > 0 {
		cols := make([]string, 0, len(q.Artifacts))
		for c := range q.Artifacts {
			cols = append(cols, c)
		}
		sort.Strings(cols)
		out = append(out, Warning{
			Kind:    WarnCleaningGap,
			Count:   q.TotalArtifacts,
			Message: fmt.Sprintf("%d cells still contain encoding artifacts in: %s", q.TotalArtifacts, strings.Join(cols, ", ")),
		})
	}
	return out
}
