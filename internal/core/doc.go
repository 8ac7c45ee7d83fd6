// Package core runs the exploration pipeline for CSV files.
//
// It ties the pipeline packages together and is used by both the HTTP server
// and the CLI:
//
//   - [ingest]: structure diagnosis and robust loading
//   - [clean]: artifact repair and column-name normalization
//   - [analysis]: schema, quality, content and Brazilian-identifier sections
//   - [summary]: the per-file result
//
// # Exploring Files
//
// An [Explorer] is built once from [Options] and is safe for concurrent use:
//
//	opts, err := core.OptionsFromConfig(cfg.Explore)
//	x := core.NewExplorer(opts)
//	s, err := x.Explore(ctx, "compras_2021.csv")
//
// Each run gets a run ID that appears in every log line and in the summary.
// Only an unreadable file or an ended context fails a run; row repairs,
// capped loads and cleaning gaps become [summary.Warning] values instead.
//
// [Explorer.ExploreAll] explores many files with bounded parallelism and
// keeps going past files that fail.
//
// # Admission
//
// The HTTP server holds a [Limiter] slot for each upload it explores, so
// memory stays bounded under load. Shutdown waits on [Limiter.WaitForDrain].
//
// # Error Handling
//
// Technical errors are mapped to user-friendly messages using [MapError].
// Each error category has a unique code for support reference:
//
//   - FILE001-FILE005: File errors (unreadable, size, empty, missing)
//   - EXP001-EXP003: Exploration errors (busy, summary evicted, dictionary)
//   - REQ001-REQ002: Request errors (cancelled, timed out)
//   - RATE001: Rate limiting
package core
