package web

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/fairprice/internal/core"
	"github.com/JonMunkholm/fairprice/internal/ingest"
	"github.com/JonMunkholm/fairprice/internal/summary"
)

// multipartMemory is the part of an upload kept in memory; the rest spools
// to disk.
const multipartMemory = 32 << 20

// handleExplore runs the pipeline on the multipart "file" field and stores
// the summary. The response is the full summary with status 201.
func (s *Server) handleExplore(w http.ResponseWriter, r *http.Request) {
	file, filename, ok := s.formFile(w, r)
	if !ok {
		return
	}
	defer file.Close()

	if err := s.limiter.Acquire(r.Context()); err != nil {
		respondError(w, r, err)
		return
	}
	defer s.limiter.Release()

	ctx := withRequestMetadata(r.Context(), r)
	sum, err := s.explorer.ExploreReader(ctx, filename, file)
	if err != nil {
		respondError(w, r, err)
		return
	}

	sum = s.store.Add(sum)
	w.Header().Set("Location", "/api/summaries/"+sum.ID)
	respond(w, r, http.StatusCreated, sum)
}

// handleDiagnose returns only the encoding and separator diagnosis.
func (s *Server) handleDiagnose(w http.ResponseWriter, r *http.Request) {
	file, filename, ok := s.formFile(w, r)
	if !ok {
		return
	}
	defer file.Close()

	diag, err := s.explorer.DiagnoseReader(r.Context(), filename, file)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, diagnoseResponse{Filename: filename, Diagnosis: diag})
}

type diagnoseResponse struct {
	Filename  string           `json:"filename" yaml:"filename"`
	Diagnosis ingest.Diagnosis `json:"diagnosis" yaml:"diagnosis"`
}

// summaryItem is the listing form of a summary.
type summaryItem struct {
	ID        string    `json:"id" yaml:"id"`
	Filename  string    `json:"filename" yaml:"filename"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	Rows      int       `json:"rows" yaml:"rows"`
	Columns   int       `json:"columns" yaml:"columns"`
	Warnings  []string  `json:"warnings" yaml:"warnings"`
}

type summaryList struct {
	Total     int           `json:"total" yaml:"total"`
	Summaries []summaryItem `json:"summaries" yaml:"summaries"`
}

// handleListSummaries lists stored summaries, newest first. ?limit caps
// the result.
func (s *Server) handleListSummaries(w http.ResponseWriter, r *http.Request) {
	all := s.store.List()
	limit := parseIntParam(r, "limit", len(all))

	items := make([]summaryItem, 0, min(limit, len(all)))
	for _, sum := range all[:min(limit, len(all))] {
		kinds := make([]string, 0, len(sum.Warnings))
		for _, w := range sum.Warnings {
			kinds = append(kinds, w.Kind)
		}
		items = append(items, summaryItem{
			ID:        sum.ID,
			Filename:  sum.Filename,
			CreatedAt: sum.CreatedAt,
			Rows:      sum.Rows,
			Columns:   sum.Columns,
			Warnings:  kinds,
		})
	}
	respond(w, r, http.StatusOK, summaryList{Total: len(all), Summaries: items})
}

// handleGetSummary returns one summary, or one of its sections when
// ?section is set.
func (s *Server) handleGetSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := s.store.Get(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, err)
		return
	}

	key := r.URL.Query().Get("section")
	if key == "" {
		respond(w, r, http.StatusOK, sum)
		return
	}
	sec, ok := sum.Section(key)
	if !ok {
		respondError(w, r, fmt.Errorf("section %q: %w", key, summary.ErrNotFound))
		return
	}
	respond(w, r, http.StatusOK, sec)
}

// handleCompare compares the summaries named in ?ids (comma separated), or
// every stored summary when ids is empty.
func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	var sums []summary.FileSummary
	if raw := r.URL.Query().Get("ids"); raw != "" {
		for _, id := range strings.Split(raw, ",") {
			id = strings.TrimSpace(id)
			if id == "" {
				continue
			}
			sum, err := s.store.Get(id)
			if err != nil {
				respondError(w, r, fmt.Errorf("summary %s: %w", id, err))
				return
			}
			sums = append(sums, sum)
		}
	} else {
		sums = s.store.List()
	}
	respond(w, r, http.StatusOK, summary.Compare(sums))
}

// formFile reads the multipart "file" field within the size limit. On
// failure it writes the error response and returns ok=false.
func (s *Server) formFile(w http.ResponseWriter, r *http.Request) (file multipart.File, filename string, ok bool) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Limits.MaxFileSize)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, r, fmt.Errorf("%w: limit %d bytes", core.ErrFileTooLarge, tooLarge.Limit))
		} else {
			respondError(w, r, fmt.Errorf("%w: %v", core.ErrNoFile, err))
		}
		return nil, "", false
	}

	f, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, r, fmt.Errorf("%w: %v", core.ErrNoFile, err))
		return nil, "", false
	}
	return f, header.Filename, true
}

// parseIntParam parses a positive integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 1 {
		return defaultVal
	}
	return i
}
