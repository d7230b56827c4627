package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/polling-place-etl/internal/adapter/source"
	"github.com/couchcryptid/polling-place-etl/internal/config"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List built-in election sources",
	RunE: func(cmd *cobra.Command, _ []string) error {
		w := cmd.OutOrStdout()
		for _, k := range source.ElectionKeys() {
			mark := " "
			if k == config.DefaultElection {
				mark = "*"
			}
			fmt.Fprintf(w, "%s %-24s %s\n", mark, k, source.Elections[k])
		}
		return nil
	},
}
