package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/fairprice/internal/clean"
	"github.com/JonMunkholm/fairprice/internal/core"
)

func newDictionaryCmd(a *app) *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "dictionary",
		Short: "Print the effective repair dictionary as YAML",
		Long: "Prints the built-in dictionary, merged with --dictionary or EXPLORE_DICTIONARY_PATH when set.\n" +
			"The output can be edited and passed back with replace_defaults already set.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("dictionary") {
				path = a.cfg.Explore.DictionaryPath
			}
			dict := clean.DefaultDictionary()
			if path != "" {
				var err error
				if dict, err = clean.LoadDictionary(path); err != nil {
					return fmt.Errorf("%w: %v", core.ErrDictionary, err)
				}
			}
			return printOutput(cmd.OutOrStdout(), "yaml", dict)
		},
	}

	cmd.Flags().StringVar(&path, "dictionary", "", "YAML repair dictionary to merge")
	return cmd
}
