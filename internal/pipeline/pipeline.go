package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/polling-place-etl/internal/domain"
	"github.com/couchcryptid/polling-place-etl/internal/geocode"
	"github.com/couchcryptid/polling-place-etl/internal/observability"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"
)

// ErrNoRows is the parse failure for a sheet with headers but no data.
var ErrNoRows = errors.New("sheet has no data rows")

// Fetcher retrieves the raw dataset from a source location.
type Fetcher interface {
	Fetch(ctx context.Context, loc string) (domain.Document, error)
}

// Parser interprets a fetched document as a table.
type Parser interface {
	Parse(doc domain.Document) (domain.Table, error)
}

// Sink receives the full, ordered record set of a run.
type Sink interface {
	Emit(ctx context.Context, places []domain.PollingPlace) error
}

// Locator assigns coordinates to records. *geocode.Resolver implements it.
type Locator interface {
	Resolve(ctx context.Context, q domain.GeocodeQuery) domain.Coordinates
	Stats() geocode.Stats
}

// Config holds the per-run settings of a Pipeline.
type Config struct {
	State    string
	Synonyms domain.SynonymTable
	// Fallback is assigned to every record when geocoding is disabled.
	Fallback domain.Coordinates
	// ThrottleInterval only feeds the geocoding duration estimate.
	ThrottleInterval time.Duration
	TopCounties      int
	ProgressEvery    int
	Clock            clockwork.Clock
}

// Pipeline runs one ingestion from fetch to emit.
type Pipeline struct {
	fetcher Fetcher
	parser  Parser
	sink    Sink
	locator Locator
	cfg     Config
	logger  *slog.Logger
	metrics *observability.Metrics
	stage   atomic.Int32
}

// New creates a Pipeline. A nil locator disables geocoding. The sink may be
// nil for a Pipeline that is only used for Preview. Nil metrics get a fresh
// private set.
func New(f Fetcher, p Parser, s Sink, loc Locator, cfg Config, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	if cfg.Synonyms == nil {
		cfg.Synonyms = domain.DefaultSynonyms()
	}
	if cfg.TopCounties <= 0 {
		cfg.TopCounties = DefaultTopCounties
	}
	if cfg.ProgressEvery <= 0 {
		cfg.ProgressEvery = 100
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if metrics == nil {
		metrics = observability.NewMetrics()
	}
	return &Pipeline{
		fetcher: f,
		parser:  p,
		sink:    s,
		locator: loc,
		cfg:     cfg,
		logger:  logger,
		metrics: metrics,
	}
}

// Stage returns the current stage. Safe for concurrent use.
func (p *Pipeline) Stage() Stage {
	return Stage(p.stage.Load())
}

func (p *Pipeline) setStage(s Stage) {
	prev := Stage(p.stage.Swap(int32(s)))
	p.metrics.Stage.Set(float64(s))
	p.logger.Debug("stage transition", "from", prev.String(), "to", s.String())
}

// Run fetches, parses, converts, optionally geocodes, and emits the dataset at
// loc. It returns *domain.FetchError or *domain.ParseError for fatal input
// failures and ctx.Err() if cancelled before emitting, in which case the sink
// is never called. Rejected rows do not fail a run. A run that accepts no rows
// skips the sink so earlier output survives.
func (p *Pipeline) Run(ctx context.Context, loc string) (*Result, error) {
	start := p.cfg.Clock.Now()
	geocoding := p.locator != nil
	if geocoding {
		p.metrics.GeocodeEnabled.Set(1)
	} else {
		p.metrics.GeocodeEnabled.Set(0)
	}

	table, err := p.load(ctx, loc)
	if err != nil {
		return nil, err
	}

	p.setStage(StageNormalizing)
	mapping := domain.NormalizeHeaders(table.Headers, p.cfg.Synonyms)
	res := &Result{
		Sheet:            table.Sheet,
		Headers:          table.Headers,
		Normalized:       mapping.Renamed(table.Headers),
		Mapping:          mapping,
		RowsRead:         len(table.Rows),
		RejectedByReason: make(map[string]int),
		GeocodeEnabled:   geocoding,
	}
	p.logHeaders(res)

	if geocoding {
		p.logger.Warn("geocoding enabled, run is throttled",
			"rows", len(table.Rows),
			"interval", p.cfg.ThrottleInterval.String(),
			"estimated_max", (time.Duration(len(table.Rows)) * p.cfg.ThrottleInterval).String(),
		)
	}

	if err := p.convert(ctx, table.Rows, mapping, res); err != nil {
		return nil, err
	}
	if geocoding {
		res.Geocode = p.locator.Stats()
	}
	res.TopCounties = topCounties(res.Records, p.cfg.TopCounties)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if res.Accepted() == 0 {
		p.logger.Warn("no records accepted, output left unchanged",
			"rows", res.RowsRead, "missing", res.Mapping.Missing())
	} else {
		p.setStage(StageEmitting)
		if err := p.sink.Emit(ctx, res.Records); err != nil {
			return nil, fmt.Errorf("emit records: %w", err)
		}
		res.Emitted = true
	}

	res.Duration = p.cfg.Clock.Since(start)
	p.metrics.RunDuration.Set(res.Duration.Seconds())
	res.LogSummary(p.logger)
	p.setStage(StageDone)
	return res, nil
}

// load runs the Fetching and Parsing stages.
func (p *Pipeline) load(ctx context.Context, loc string) (domain.Table, error) {
	p.setStage(StageFetching)
	p.logger.Info("fetching source", "source", loc)
	doc, err := p.fetcher.Fetch(ctx, loc)
	if err != nil {
		if ctx.Err() != nil {
			return domain.Table{}, ctx.Err()
		}
		p.setStage(StageFailed)
		return domain.Table{}, &domain.FetchError{Source: loc, Err: err}
	}
	p.logger.Info("fetched source", "file", doc.Name, "bytes", len(doc.Data))

	p.setStage(StageParsing)
	table, err := p.parser.Parse(doc)
	if err == nil && len(table.Rows) == 0 {
		err = ErrNoRows
	}
	if err != nil {
		p.setStage(StageFailed)
		return domain.Table{}, &domain.ParseError{Source: doc.Name, Err: err}
	}
	p.logger.Info("parsed source", "sheet", table.Sheet, "rows", len(table.Rows), "columns", len(table.Headers))
	p.metrics.RowsRead.Add(float64(len(table.Rows)))
	return table, nil
}

func (p *Pipeline) logHeaders(res *Result) {
	p.logger.Info("headers", "raw", res.Headers)
	p.logger.Info("headers normalized", "canonical", res.Normalized)
	for _, c := range res.Mapping.Conflicts {
		cols := make([]string, len(c.Columns))
		for i, idx := range c.Columns {
			cols[i] = res.Headers[idx]
		}
		p.logger.Warn("header conflict, later column wins", "field", string(c.Field), "columns", cols)
	}
	if missing := res.Mapping.Missing(); len(missing) > 0 {
		p.logger.Warn("required columns not found, every row will be rejected", "missing", missing)
	}
}

// convert runs the Converting and Geocoding stages. Conversion runs ahead on
// its own goroutine; records are located strictly in row order by a single
// consumer, so IDs and output order match a sequential run.
func (p *Pipeline) convert(ctx context.Context, rows []domain.RawRow, mapping domain.HeaderMapping, res *Result) error {
	p.setStage(StageConverting)

	conv := domain.NewConverter(mapping, p.cfg.State)
	accepted := make(chan domain.PollingPlace, 64)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(accepted)
		for i, row := range rows {
			if err := gctx.Err(); err != nil {
				return err
			}
			place, rej := conv.Convert(row)
			if rej != nil {
				p.reject(res, *rej)
			} else {
				p.metrics.RowsAccepted.Inc()
				select {
				case accepted <- place:
				case <-gctx.Done():
					return gctx.Err()
				}
			}
			if (i+1)%p.cfg.ProgressEvery == 0 {
				p.logger.Info("progress", "processed", i+1, "total", len(rows), "accepted", conv.Accepted())
			}
		}
		if p.locator != nil {
			p.setStage(StageGeocoding)
		}
		return nil
	})

	g.Go(func() error {
		records := make([]domain.PollingPlace, 0, len(rows))
		for place := range accepted {
			if p.locator != nil {
				place.SetCoordinates(p.locator.Resolve(gctx, domain.QueryFor(place)))
			} else {
				place.SetCoordinates(p.cfg.Fallback)
			}
			if err := gctx.Err(); err != nil {
				return err
			}
			records = append(records, place)
		}
		res.Records = records
		return nil
	})

	return g.Wait()
}

// reject is only called from the converting goroutine.
func (p *Pipeline) reject(res *Result, rej domain.Rejection) {
	res.Rejections = append(res.Rejections, rej)
	res.RejectedByReason[rej.Key()]++
	p.metrics.RowsRejected.WithLabelValues(rej.Key()).Inc()
	p.logger.Warn("row rejected", "row", rej.Line, "reason", string(rej.Reason), "field", string(rej.Field))
}
