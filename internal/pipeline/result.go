package pipeline

import (
	"cmp"
	"log/slog"
	"maps"
	"slices"
	"time"

	"github.com/couchcryptid/polling-place-etl/internal/domain"
	"github.com/couchcryptid/polling-place-etl/internal/geocode"
)

// DefaultTopCounties is how many counties the run summary lists.
const DefaultTopCounties = 10

// CountyCount is the number of accepted records in one county.
type CountyCount struct {
	County string
	Count  int
}

// Result summarizes a completed run.
type Result struct {
	Sheet      string
	Headers    []string // as read from the source
	Normalized []string // after header normalization
	Mapping    domain.HeaderMapping

	RowsRead   int
	Records    []domain.PollingPlace
	Rejections []domain.Rejection
	// RejectedByReason tallies rejections by Rejection.Key.
	RejectedByReason map[string]int

	GeocodeEnabled bool
	Geocode        geocode.Stats

	TopCounties []CountyCount
	Duration    time.Duration
	// Emitted is false when no row was accepted and the sink was skipped.
	Emitted bool
}

// Accepted returns the number of emitted records.
func (r *Result) Accepted() int { return len(r.Records) }

// Rejected returns the number of rejected rows.
func (r *Result) Rejected() int { return len(r.Rejections) }

// RejectionKeys returns the rejection tally keys in sorted order.
func (r *Result) RejectionKeys() []string {
	return slices.Sorted(maps.Keys(r.RejectedByReason))
}

// LogSummary writes the end-of-run diagnostics.
func (r *Result) LogSummary(logger *slog.Logger) {
	logger.Info("run complete",
		"rows", r.RowsRead,
		"accepted", r.Accepted(),
		"rejected", r.Rejected(),
		"duration", r.Duration.Round(time.Millisecond).String(),
	)
	for _, k := range r.RejectionKeys() {
		logger.Info("rejections", "reason", k, "count", r.RejectedByReason[k])
	}
	if r.GeocodeEnabled {
		logger.Info("geocode cache",
			"hits", r.Geocode.Hits,
			"misses", r.Geocode.Misses,
			"failures", r.Geocode.Failures,
		)
	}
	for i, c := range r.TopCounties {
		logger.Info("top county", "rank", i+1, "county", c.County, "records", c.Count)
	}
}

// topCounties groups records by county and returns the n largest groups,
// ties broken by county name.
func topCounties(records []domain.PollingPlace, n int) []CountyCount {
	counts := make(map[string]int)
	for i := range records {
		counts[records[i].County]++
	}
	out := make([]CountyCount, 0, len(counts))
	for county, c := range counts {
		out = append(out, CountyCount{County: county, Count: c})
	}
	slices.SortFunc(out, func(a, b CountyCount) int {
		if a.Count != b.Count {
			return cmp.Compare(b.Count, a.Count)
		}
		return cmp.Compare(a.County, b.County)
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}
