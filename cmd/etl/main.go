package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/couchcryptid/polling-place-etl/internal/config"
	"github.com/couchcryptid/polling-place-etl/internal/domain"
	"github.com/couchcryptid/polling-place-etl/internal/observability"
)

var (
	v       = config.NewViper()
	cfg     *config.Config
	logger  *slog.Logger
	metrics *observability.Metrics
	runID   string
)

var rootCmd = &cobra.Command{
	Use:   "etl",
	Short: "Ingest polling place workbooks into canonical records",
	Long: "Fetches a polling place spreadsheet, maps its columns onto the canonical schema, " +
		"optionally geocodes each address, and writes the records as JSON, GeoJSON, or to Kafka.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		c, err := config.Load(v)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c
		runID = uuid.NewString()
		logger = observability.NewLogger(cfg).With("run_id", runID)
		metrics = observability.NewMetrics()
		return nil
	},
}

func init() {
	f := rootCmd.PersistentFlags()
	f.String("election", config.DefaultElection, "built-in election key (see `etl sources`)")
	f.String("source", "", "URL or path of the workbook; overrides --election")
	f.String("sheet", "", "workbook sheet name (default first sheet)")
	f.String("synonyms", "", "YAML file of extra header synonyms")
	f.String("state", "VA", "two-letter state stamped on every record")
	f.String("log-level", "info", "log level: debug, info, warn, error")
	f.String("log-format", "text", "log format: text or json")
	must(v.BindPFlag("election", f.Lookup("election")))
	must(v.BindPFlag("source", f.Lookup("source")))
	must(v.BindPFlag("sheet", f.Lookup("sheet")))
	must(v.BindPFlag("synonyms_file", f.Lookup("synonyms")))
	must(v.BindPFlag("state", f.Lookup("state")))
	must(v.BindPFlag("log.level", f.Lookup("log-level")))
	must(v.BindPFlag("log.format", f.Lookup("log-format")))

	rootCmd.AddCommand(runCmd, previewCmd, sourcesCmd)
}

// must panics on flag wiring mistakes, which are programming errors.
func must(err error) {
	if err != nil {
		panic(err)
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		reportError(err)
		os.Exit(1)
	}
}

// reportError logs a failed command. Fetch and parse failures are the
// expected fatal outcomes; anything else is reported as-is.
func reportError(err error) {
	l := logger
	if l == nil {
		l = slog.Default()
	}
	var (
		fetchErr *domain.FetchError
		parseErr *domain.ParseError
	)
	switch {
	case errors.As(err, &fetchErr):
		l.Error("could not fetch source", "source", fetchErr.Source, "error", fetchErr.Err)
	case errors.As(err, &parseErr):
		l.Error("could not parse source", "source", parseErr.Source, "error", parseErr.Err)
	case errors.Is(err, context.Canceled):
		l.Warn("run cancelled, no output written")
	default:
		l.Error("command failed", "error", err)
	}
}
