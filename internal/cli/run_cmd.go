package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/fairprice/internal/core"
	"github.com/JonMunkholm/fairprice/internal/summary"
)

// fileResult is the printed outcome for one file.
type fileResult struct {
	Path    string               `json:"path" yaml:"path"`
	Summary *summary.FileSummary `json:"summary,omitempty" yaml:"summary,omitempty"`
	Error   *core.UserMessage    `json:"error,omitempty" yaml:"error,omitempty"`
	Detail  string               `json:"detail,omitempty" yaml:"detail,omitempty"`
}

type runOutput struct {
	Files      []fileResult        `json:"files" yaml:"files"`
	Comparison *summary.Comparison `json:"comparison,omitempty" yaml:"comparison,omitempty"`
}

func newRunCmd(a *app) *cobra.Command {
	var (
		workers    int
		maxRows    int
		dictionary string
		compare    bool
	)

	cmd := &cobra.Command{
		Use:   "run FILE...",
		Short: "Explore one or more CSV files",
		Long: "Runs diagnosis, loading, cleaning and analysis on each file and prints the summaries.\n" +
			"A file that cannot be read is reported and the rest still run.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg.Explore
			if cmd.Flags().Changed("workers") {
				cfg.Workers = workers
			}
			if cmd.Flags().Changed("max-rows") {
				cfg.MaxRows = maxRows
			}
			if cmd.Flags().Changed("dictionary") {
				cfg.DictionaryPath = dictionary
			}
			if cfg.Workers <= 0 {
				return fmt.Errorf("--workers must be positive, got %d", cfg.Workers)
			}
			if cfg.MaxRows < 0 {
				return fmt.Errorf("--max-rows must be non-negative, got %d", cfg.MaxRows)
			}

			x, err := newExplorer(cfg)
			if err != nil {
				return err
			}

			results := x.ExploreAll(cmd.Context(), args, cfg.Workers)

			var (
				out    runOutput
				ok     []summary.FileSummary
				failed int
			)
			for _, r := range results {
				fr := fileResult{Path: r.Path}
				if r.Err != nil {
					msg := core.MapError(r.Err)
					fr.Error = &msg
					fr.Detail = r.Err.Error()
					failed++
				} else {
					s := r.Summary
					fr.Summary = &s
					ok = append(ok, s)
				}
				out.Files = append(out.Files, fr)
			}
			if compare && len(ok) > 1 {
				c := summary.Compare(ok)
				out.Comparison = &c
			}

			if err := printOutput(cmd.OutOrStdout(), a.output, out); err != nil {
				return err
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d files could not be explored", failed, len(results))
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "Files explored in parallel (default EXPLORE_WORKERS)")
	cmd.Flags().IntVar(&maxRows, "max-rows", 0, "Rows loaded per file, 0 for all (default EXPLORE_MAX_ROWS)")
	cmd.Flags().StringVar(&dictionary, "dictionary", "", "YAML repair dictionary (default EXPLORE_DICTIONARY_PATH)")
	cmd.Flags().BoolVar(&compare, "compare", false, "Also compare the columns of all explored files")

	return cmd
}
