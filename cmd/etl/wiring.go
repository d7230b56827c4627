package main

import (
	"context"
	"fmt"
	"io"

	"github.com/couchcryptid/polling-place-etl/internal/adapter/kafka"
	"github.com/couchcryptid/polling-place-etl/internal/adapter/mapbox"
	"github.com/couchcryptid/polling-place-etl/internal/adapter/nominatim"
	"github.com/couchcryptid/polling-place-etl/internal/adapter/output"
	"github.com/couchcryptid/polling-place-etl/internal/adapter/source"
	"github.com/couchcryptid/polling-place-etl/internal/adapter/sqlite"
	"github.com/couchcryptid/polling-place-etl/internal/adapter/tabular"
	"github.com/couchcryptid/polling-place-etl/internal/config"
	"github.com/couchcryptid/polling-place-etl/internal/domain"
	"github.com/couchcryptid/polling-place-etl/internal/geocode"
	"github.com/couchcryptid/polling-place-etl/internal/pipeline"
)

// closers releases adapters in reverse order of creation.
type closers []io.Closer

func (c closers) Close() {
	for i := len(c) - 1; i >= 0; i-- {
		if err := c[i].Close(); err != nil {
			logger.Warn("close failed", "error", err)
		}
	}
}

func fallback() domain.Coordinates {
	return domain.Coordinates{Lat: cfg.FallbackLat, Lon: cfg.FallbackLon}
}

// newPipeline assembles a pipeline from the loaded config. sink and locator
// may be nil.
func newPipeline(sink pipeline.Sink, locator pipeline.Locator) (*pipeline.Pipeline, error) {
	synonyms := domain.DefaultSynonyms()
	if cfg.SynonymsFile != "" {
		s, err := domain.LoadSynonyms(cfg.SynonymsFile)
		if err != nil {
			return nil, err
		}
		synonyms = s
		logger.Info("loaded header synonyms", "file", cfg.SynonymsFile)
	}

	fetcher := source.NewFetcher(source.Options{
		Timeout:   cfg.FetchTimeout,
		UserAgent: cfg.GeocodeUserAgent,
	}, logger)

	return pipeline.New(fetcher, tabular.Parser{Sheet: cfg.Sheet}, sink, locator, pipeline.Config{
		State:            cfg.State,
		Synonyms:         synonyms,
		Fallback:         fallback(),
		ThrottleInterval: cfg.GeocodeInterval,
	}, logger, metrics), nil
}

// newSink picks the output adapter from the output location.
func newSink(cs *closers) (pipeline.Sink, error) {
	if kafka.IsURL(cfg.Output) {
		brokers, topic, err := kafka.ParseURL(cfg.Output)
		if err != nil {
			return nil, err
		}
		w := kafka.NewWriter(brokers, topic, runID, logger)
		*cs = append(*cs, w)
		logger.Info("output to kafka", "brokers", brokers, "topic", topic)
		return w, nil
	}
	logger.Info("output to file", "path", cfg.Output, "format", cfg.Format)
	return output.NewFileSink(cfg.Output, output.Encoding(cfg.Format)), nil
}

// newLocator returns nil when geocoding is disabled.
func newLocator(ctx context.Context, cs *closers) (pipeline.Locator, error) {
	if !cfg.GeocodeEnabled {
		logger.Info("geocoding disabled, using fallback coordinates", "lat", cfg.FallbackLat, "lon", cfg.FallbackLon)
		return nil, nil
	}

	var client domain.Geocoder
	switch cfg.GeocodeProvider {
	case config.ProviderMapbox:
		client = mapbox.NewClient(cfg.MapboxToken, cfg.GeocodeBaseURL, cfg.GeocodeTimeout, logger)
	default:
		client = nominatim.NewClient(cfg.GeocodeBaseURL, cfg.GeocodeUserAgent, cfg.GeocodeTimeout, logger)
	}

	opts := []geocode.Option{
		geocode.WithInterval(cfg.GeocodeInterval),
		geocode.WithMetrics(metrics),
	}
	if cfg.GeocodeCachePath != "" {
		store, err := sqlite.Open(ctx, cfg.GeocodeCachePath)
		if err != nil {
			return nil, fmt.Errorf("open geocode cache: %w", err)
		}
		*cs = append(*cs, store)
		opts = append(opts, geocode.WithStore(store))
	}

	logger.Info("geocoding enabled",
		"provider", cfg.GeocodeProvider,
		"interval", cfg.GeocodeInterval.String(),
		"cache", cfg.GeocodeCachePath,
	)
	return geocode.NewResolver(client, fallback(), logger, opts...), nil
}
