package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/polling-place-etl/internal/adapter/source"
	"github.com/couchcryptid/polling-place-etl/internal/pipeline"
)

var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Show the sheets, headers, and first rows of a source without converting it",
	RunE: func(cmd *cobra.Command, _ []string) error {
		loc, err := source.Locate(cfg.Election, cfg.Source)
		if err != nil {
			return err
		}
		p, err := newPipeline(nil, nil)
		if err != nil {
			return err
		}
		pv, err := p.Preview(cmd.Context(), loc)
		if err != nil {
			return err
		}
		printPreview(cmd.OutOrStdout(), pv)
		return nil
	},
}

func printPreview(w io.Writer, pv *pipeline.Preview) {
	if len(pv.Sheets) > 0 {
		fmt.Fprintf(w, "Sheets: %s (using %q)\n", strings.Join(pv.Sheets, ", "), pv.Sheet)
	}
	fmt.Fprintf(w, "Rows: %d\n", pv.RowCount)
	fmt.Fprintln(w, "Columns:")
	for i, h := range pv.Headers {
		mark := ""
		if pv.Mapping.Fields[i] == "" {
			mark = " (unmapped)"
		}
		fmt.Fprintf(w, "  %-32q -> %s%s\n", h, pv.Normalized[i], mark)
	}
	if missing := pv.Mapping.Missing(); len(missing) > 0 {
		fmt.Fprintf(w, "Missing required columns: %v\n", missing)
	}
	fmt.Fprintln(w, "First rows:")
	for _, r := range pv.Sample {
		fmt.Fprintf(w, "  %d: %s\n", r.Line, strings.Join(r.Cells, " | "))
	}
}
