package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/fairprice/internal/ingest"
)

type diagnoseResult struct {
	Path      string            `json:"path" yaml:"path"`
	Diagnosis *ingest.Diagnosis `json:"diagnosis,omitempty" yaml:"diagnosis,omitempty"`
	Error     string            `json:"error,omitempty" yaml:"error,omitempty"`
}

func newDiagnoseCmd(a *app) *cobra.Command {
	var attempts bool

	cmd := &cobra.Command{
		Use:   "diagnose FILE...",
		Short: "Detect the encoding and separator of CSV files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			x, err := newExplorer(a.cfg.Explore)
			if err != nil {
				return err
			}

			var (
				out    []diagnoseResult
				failed int
			)
			for _, path := range args {
				d, err := x.Diagnose(cmd.Context(), path)
				if err != nil {
					out = append(out, diagnoseResult{Path: path, Error: err.Error()})
					failed++
					continue
				}
				if !attempts {
					d.Attempts = nil
				}
				out = append(out, diagnoseResult{Path: path, Diagnosis: &d})
			}

			if err := printOutput(cmd.OutOrStdout(), a.output, out); err != nil {
				return err
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d files could not be diagnosed", failed, len(args))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&attempts, "attempts", false, "Include every encoding and separator combination tried")
	return cmd
}
