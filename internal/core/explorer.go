package core

// explorer.go runs the exploration pipeline:
// diagnose, load, clean, analyze, assemble.

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/JonMunkholm/fairprice/internal/analysis"
	"github.com/JonMunkholm/fairprice/internal/clean"
	"github.com/JonMunkholm/fairprice/internal/config"
	"github.com/JonMunkholm/fairprice/internal/ingest"
	"github.com/JonMunkholm/fairprice/internal/logging"
	"github.com/JonMunkholm/fairprice/internal/summary"
)

// DefaultTimeout bounds one file's pipeline run.
const DefaultTimeout = 10 * time.Minute

// Options configures an Explorer.
type Options struct {
	Diagnose   ingest.DiagnoseOptions
	Load       ingest.LoadOptions
	Analysis   analysis.Options
	Dictionary *clean.Dictionary // nil uses clean.DefaultDictionary
	Timeout    time.Duration
}

// OptionsFromConfig builds Options from configuration, loading the repair
// dictionary when a path is set.
func OptionsFromConfig(cfg config.ExploreConfig) (Options, error) {
	opts := Options{
		Diagnose: ingest.DiagnoseOptions{Lines: cfg.DiagnoseLines, MaxBytes: cfg.DiagnoseMaxBytes},
		Load:     ingest.LoadOptions{MaxRows: cfg.MaxRows, MaxBytes: cfg.MaxBytes},
		Analysis: analysis.Options{CategoricalThreshold: cfg.CategoricalThreshold},
		Timeout:  cfg.Timeout,
	}
	if cfg.DictionaryPath != "" {
		dict, err := clean.LoadDictionary(cfg.DictionaryPath)
		if err != nil {
			return Options{}, fmt.Errorf("%w: %v", ErrDictionary, err)
		}
		opts.Dictionary = dict
	}
	return opts, nil
}

// Explorer turns CSV files into summaries. It holds no per-run state and is
// safe for concurrent use.
type Explorer struct {
	diagnoser *ingest.Diagnoser
	loader    *ingest.Loader
	cleaner   *clean.Cleaner
	engine    *analysis.Engine
	timeout   time.Duration
}

// NewExplorer wires the pipeline stages from opts.
func NewExplorer(opts Options) *Explorer {
	cleaner := clean.New(opts.Dictionary)

	ao := opts.Analysis
	if len(ao.Markers) == 0 {
		ao.Markers = cleaner.Markers()
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Explorer{
		diagnoser: ingest.NewDiagnoser(opts.Diagnose),
		loader:    ingest.NewLoader(opts.Load),
		cleaner:   cleaner,
		engine:    analysis.NewEngine(ao),
		timeout:   timeout,
	}
}

// Diagnose runs only the structure diagnosis for path.
func (x *Explorer) Diagnose(ctx context.Context, path string) (ingest.Diagnosis, error) {
	return x.diagnoser.Diagnose(ctx, path)
}

// Explore runs the pipeline on path and names the summary after its base name.
func (x *Explorer) Explore(ctx context.Context, path string) (summary.FileSummary, error) {
	return x.ExploreNamed(ctx, path, filepath.Base(path))
}

// ExploreNamed runs the pipeline on path, recording filename in the summary.
// Only an unreadable file or an ended context fails the run; every other
// irregularity becomes a warning.
func (x *Explorer) ExploreNamed(ctx context.Context, path, filename string) (summary.FileSummary, error) {
	ctx, cancel := context.WithTimeout(ctx, x.timeout)
	defer cancel()

	runID := uuid.NewString()
	ctx = logging.WithRunID(ctx, runID)
	logger := logging.WithFields(ctx, "file", filename)
	if ip := ClientIPFromContext(ctx); ip != "" {
		logger = logger.With(slog.String("client_ip", ip))
	}
	start := time.Now()

	diag, err := x.diagnoser.Diagnose(ctx, path)
	if err != nil {
		logger.Warn("diagnosis failed", slog.String("error", err.Error()))
		return summary.FileSummary{}, fmt.Errorf("explore %s: %w", filename, err)
	}
	logger.Debug("diagnosed",
		slog.String("encoding", string(diag.Encoding)),
		slog.String("separator", diag.Separator.String()),
		slog.Int("columns", diag.ColumnCount),
	)

	t, meta, err := x.loader.Load(ctx, path, diag)
	if err != nil {
		logger.Warn("load failed", slog.String("error", err.Error()))
		return summary.FileSummary{}, fmt.Errorf("explore %s: %w", filename, err)
	}
	logger.Debug("loaded",
		slog.String("strategy", meta.Strategy),
		slog.Int("rows", t.NumRows()),
		slog.Int("repaired", meta.Repaired()),
	)

	cleaned, report := x.cleaner.Clean(t)
	if err := ctx.Err(); err != nil {
		return summary.FileSummary{}, fmt.Errorf("explore %s: %w", filename, err)
	}

	sections := x.engine.Analyze(cleaned)
	if err := ctx.Err(); err != nil {
		return summary.FileSummary{}, fmt.Errorf("explore %s: %w", filename, err)
	}

	s := summary.Assemble(filename, cleaned, report, sections, summary.Provenance{
		RunID:     runID,
		Diagnosis: diag,
		Load:      meta,
	})

	for _, w := range s.Warnings {
		logger.Warn("exploration warning",
			slog.String("kind", w.Kind),
			slog.Int("count", w.Count),
			slog.String("detail", w.Message),
		)
	}
	logger.Info("file explored",
		slog.Int("rows", s.Rows),
		slog.Int("columns", s.Columns),
		slog.Duration("duration", time.Since(start)),
	)
	return s, nil
}

// ExploreReader spools r to a temporary file and explores it.
func (x *Explorer) ExploreReader(ctx context.Context, filename string, r io.Reader) (summary.FileSummary, error) {
	path, cleanup, err := spool(filename, r)
	if err != nil {
		return summary.FileSummary{}, err
	}
	defer cleanup()
	return x.ExploreNamed(ctx, path, filename)
}

// DiagnoseReader spools r to a temporary file and diagnoses it.
func (x *Explorer) DiagnoseReader(ctx context.Context, filename string, r io.Reader) (ingest.Diagnosis, error) {
	path, cleanup, err := spool(filename, r)
	if err != nil {
		return ingest.Diagnosis{}, err
	}
	defer cleanup()
	return x.diagnoser.Diagnose(ctx, path)
}

// spool copies r into a temporary file. The pipeline reads files twice,
// once to diagnose and once to load, so readers cannot be streamed through.
func spool(filename string, r io.Reader) (string, func(), error) {
	tmp, err := os.CreateTemp("", "fairprice-*"+filepath.Ext(filename))
	if err != nil {
		return "", nil, fmt.Errorf("create temp file: %w", err)
	}
	cleanup := func() { os.Remove(tmp.Name()) }

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		cleanup()
		return "", nil, fmt.Errorf("spool %s: %w", filename, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("spool %s: %w", filename, err)
	}
	return tmp.Name(), cleanup, nil
}

// Result is the outcome for one file of a batch.
type Result struct {
	Path    string
	Summary summary.FileSummary
	Err     error
}

// ExploreAll explores paths with at most workers files in flight. A failing
// file does not stop the batch; results keep the order of paths.
func (x *Explorer) ExploreAll(ctx context.Context, paths []string, workers int) []Result {
	if workers <= 0 {
		workers = 1
	}
	results := make([]Result, len(paths))

	var g errgroup.Group
	g.SetLimit(workers)
	for i, path := range paths {
		g.Go(func() (err error) {
			results[i].Path = path
			defer func() {
				if r := recover(); r != nil {
					logging.WithFields(ctx, "file", path).Error("panic in exploration",
						slog.Any("panic", r),
						slog.String("stack", string(debug.Stack())),
					)
					results[i].Err = fmt.Errorf("explore %s: internal error: %v", path, r)
				}
			}()
			results[i].Summary, results[i].Err = x.Explore(ctx, path)
			return nil
		})
	}
	_ = g.Wait()

	return results
}
