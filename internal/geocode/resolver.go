// Package geocode resolves polling place addresses to coordinates through a
// per-run cache and a global throttle in front of an external geocoder.
package geocode

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/polling-place-etl/internal/domain"
	"github.com/couchcryptid/polling-place-etl/internal/observability"
)

// DefaultInterval is the minimum spacing between external calls. Nominatim's
// usage policy allows one request per second.
const DefaultInterval = time.Second

// Stats counts cache outcomes for a run.
type Stats struct {
	Hits     int64 `json:"hits"`     // answered from cache, including cached failures
	Misses   int64 `json:"misses"`   // external lookups issued
	Failures int64 `json:"failures"` // external lookups that failed or found nothing
}

// Resolver answers geocode queries with at most one external lookup per
// distinct query key. Cache reads take a read lock; everything on the miss
// path runs under a single gate so concurrent callers can neither overtake
// the throttle nor look the same key up twice.
type Resolver struct {
	inner    domain.Geocoder
	fallback domain.Coordinates
	store    Store
	clock    clockwork.Clock
	throttle *throttle
	logger   *slog.Logger
	metrics  *observability.Metrics

	mu    sync.RWMutex
	cache map[string]Entry

	gate sync.Mutex

	hits, misses, failures atomic.Int64
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithInterval sets the minimum spacing between external calls. Zero disables
// throttling.
func WithInterval(d time.Duration) Option {
	return func(r *Resolver) { r.throttle = newThrottle(d, r.clock) }
}

// WithClock replaces the real clock, for tests.
func WithClock(c clockwork.Clock) Option {
	return func(r *Resolver) {
		r.clock = c
		r.throttle.clock = c
	}
}

// WithStore adds a persistent cache consulted before external calls.
func WithStore(s Store) Option {
	return func(r *Resolver) { r.store = s }
}

// WithMetrics records cache and request metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(r *Resolver) { r.metrics = m }
}

// NewResolver creates a Resolver in front of inner. fallback is returned for
// every query that cannot be geocoded.
func NewResolver(inner domain.Geocoder, fallback domain.Coordinates, logger *slog.Logger, opts ...Option) *Resolver {
	clock := clockwork.NewRealClock()
	r := &Resolver{
		inner:    inner,
		fallback: fallback,
		clock:    clock,
		throttle: newThrottle(DefaultInterval, clock),
		logger:   logger,
		cache:    make(map[string]Entry),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns coordinates for q, or the fallback when the lookup fails.
// Failures are cached too, so a failing address is tried once per run. Only
// matches and no-match answers reach the store; provider errors are retried
// on the next run.
func (r *Resolver) Resolve(ctx context.Context, q domain.GeocodeQuery) domain.Coordinates {
	key := q.Key()
	if e, ok := r.cached(key); ok {
		return r.hit(e)
	}

	r.gate.Lock()
	defer r.gate.Unlock()

	// Resolved by another caller while we waited for the gate.
	if e, ok := r.cached(key); ok {
		return r.hit(e)
	}

	if e, ok := r.fromStore(ctx, key); ok {
		r.remember(key, e)
		return r.hit(e)
	}

	if err := r.throttle.wait(ctx); err != nil {
		r.logger.Debug("geocode throttle wait aborted", "query", key, "error", err)
		return r.fallback
	}

	e, settled := r.lookup(ctx, key)
	r.remember(key, e)
	if settled && r.store != nil {
		if err := r.store.Put(ctx, key, e); err != nil {
			r.logger.Warn("geocode store write failed", "query", key, "error", err)
		}
	}
	if e.Failed {
		return r.fallback
	}
	return e.Coordinates
}

// Stats returns the counters accumulated so far.
func (r *Resolver) Stats() Stats {
	return Stats{
		Hits:     r.hits.Load(),
		Misses:   r.misses.Load(),
		Failures: r.failures.Load(),
	}
}

// Fallback returns the coordinate substituted for failed lookups.
func (r *Resolver) Fallback() domain.Coordinates { return r.fallback }

func (r *Resolver) cached(key string) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.cache[key]
	return e, ok
}

func (r *Resolver) remember(key string, e Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache[key] = e
}

func (r *Resolver) hit(e Entry) domain.Coordinates {
	r.hits.Add(1)
	r.observeCache("hit")
	if e.Failed {
		return r.fallback
	}
	return e.Coordinates
}

func (r *Resolver) fromStore(ctx context.Context, key string) (Entry, bool) {
	if r.store == nil {
		return Entry{}, false
	}
	e, ok, err := r.store.Get(ctx, key)
	if err != nil {
		r.logger.Warn("geocode store read failed", "query", key, "error", err)
		return Entry{}, false
	}
	return e, ok
}

// lookup performs one external call and converts the outcome to an Entry.
// lookup queries the provider. settled is false when the provider errored,
// so the outcome is kept for this run only and never persisted.
func (r *Resolver) lookup(ctx context.Context, key string) (e Entry, settled bool) {
	r.misses.Add(1)
	r.observeCache("miss")

	start := r.clock.Now()
	result, err := r.inner.Geocode(ctx, key)
	if r.metrics != nil {
		r.metrics.GeocodeAPIDuration.Observe(r.clock.Since(start).Seconds())
	}

	switch {
	case err != nil:
		r.failures.Add(1)
		r.observeRequest("error")
		r.logger.Warn("geocoding failed", "query", key, "error", err)
		return Entry{Failed: true}, false
	case !result.Found():
		r.failures.Add(1)
		r.observeRequest("empty")
		r.logger.Warn("geocoding found no match", "query", key)
		return Entry{Failed: true}, true
	}

	r.observeRequest("success")
	return Entry{Coordinates: domain.Coordinates{
		Lat: round4(result.Lat),
		Lon: round4(result.Lon),
	}}, true
}

func (r *Resolver) observeCache(result string) {
	if r.metrics != nil {
		r.metrics.GeocodeCache.WithLabelValues(result).Inc()
	}
}

func (r *Resolver) observeRequest(outcome string) {
	if r.metrics != nil {
		r.metrics.GeocodeRequests.WithLabelValues(outcome).Inc()
	}
}

// round4 rounds to four decimal places, roughly 11 m of latitude.
func round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}
