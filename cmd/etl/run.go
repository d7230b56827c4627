package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/polling-place-etl/internal/adapter/source"
	"github.com/couchcryptid/polling-place-etl/internal/pipeline"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Fetch, convert, and write polling place records",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		loc, err := source.Locate(cfg.Election, cfg.Source)
		if err != nil {
			return err
		}

		var cs closers
		defer cs.Close()

		sink, err := newSink(&cs)
		if err != nil {
			return err
		}
		locator, err := newLocator(ctx, &cs)
		if err != nil {
			return err
		}
		p, err := newPipeline(sink, locator)
		if err != nil {
			return err
		}

		res, err := p.Run(ctx, loc)
		writeMetrics()
		if err != nil {
			return err
		}

		printResult(cmd.OutOrStdout(), res)
		return nil
	},
}

func init() {
	f := runCmd.Flags()
	f.Bool("geocode", false, "geocode addresses (throttled, slow)")
	f.String("provider", "nominatim", "geocoding provider: nominatim or mapbox")
	f.Int("throttle-ms", 1000, "minimum milliseconds between geocoding requests")
	f.String("geocode-cache", "", "SQLite file that persists geocode results between runs")
	f.Float64("fallback-lat", 37.5, "latitude used when geocoding is off or fails")
	f.Float64("fallback-lon", -78.5, "longitude used when geocoding is off or fails")
	f.String("output", "data/polling_places_scraped.json", "output file, or kafka://brokers/topic")
	f.String("format", "json", "file format: json or geojson")
	f.String("metrics-textfile", "", "write Prometheus metrics to this file after the run")
	must(v.BindPFlag("geocode.enabled", f.Lookup("geocode")))
	must(v.BindPFlag("geocode.provider", f.Lookup("provider")))
	must(v.BindPFlag("geocode.throttle_ms", f.Lookup("throttle-ms")))
	must(v.BindPFlag("geocode.cache_path", f.Lookup("geocode-cache")))
	must(v.BindPFlag("fallback.lat", f.Lookup("fallback-lat")))
	must(v.BindPFlag("fallback.lon", f.Lookup("fallback-lon")))
	must(v.BindPFlag("output", f.Lookup("output")))
	must(v.BindPFlag("format", f.Lookup("format")))
	must(v.BindPFlag("metrics.textfile", f.Lookup("metrics-textfile")))
}

func writeMetrics() {
	if cfg.MetricsTextfile == "" {
		return
	}
	if err := metrics.WriteTextfile(cfg.MetricsTextfile); err != nil {
		logger.Warn("write metrics textfile failed", "path", cfg.MetricsTextfile, "error", err)
	}
}

func printResult(w io.Writer, res *pipeline.Result) {
	fmt.Fprintf(w, "Converted %d polling places (%d of %d rows rejected)\n", res.Accepted(), res.Rejected(), res.RowsRead)
	if !res.Emitted {
		fmt.Fprintln(w, "No polling places accepted, output not written")
	}
	for _, k := range res.RejectionKeys() {
		fmt.Fprintf(w, "  %-40s %d\n", k, res.RejectedByReason[k])
	}
	if res.GeocodeEnabled {
		fmt.Fprintf(w, "Geocode cache: %d hits, %d misses, %d failures\n",
			res.Geocode.Hits, res.Geocode.Misses, res.Geocode.Failures)
	}
	if len(res.TopCounties) > 0 {
		fmt.Fprintln(w, "Top counties:")
		for _, c := range res.TopCounties {
			fmt.Fprintf(w, "  %-40s %d\n", c.County, c.Count)
		}
	}
}
