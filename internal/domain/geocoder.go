package domain

import (
	"context"
	"strings"
)

// GeocodingResult contains location data returned by a geocoding provider.
// A zero result with a nil error means the provider found no match.
type GeocodingResult struct {
	Lat              float64
	Lon              float64
	FormattedAddress string
	Confidence       float64 // provider confidence score from 0 to 1, when reported
}

// Found reports whether the provider returned a location.
func (r GeocodingResult) Found() bool {
	return r.Lat != 0 || r.Lon != 0
}

// Geocoder resolves free-form address queries against an external provider.
type Geocoder interface {
	Geocode(ctx context.Context, query string) (GeocodingResult, error)
}

// GeocodeQuery is the address of a record as sent to a geocoder.
type GeocodeQuery struct {
	Address  string
	Locality string
	Region   string
	Postal   string
}

// QueryFor builds the geocode query for a record; the locality falls back to
// the county when the record has no city.
func QueryFor(p PollingPlace) GeocodeQuery {
	return GeocodeQuery{
		Address:  p.Address,
		Locality: p.Locality(),
		Region:   p.State,
		Postal:   p.Zip,
	}
}

// Key joins the query parts with ", ", omitting an empty postal code. It is
// both the cache key and the free-form text sent to the provider.
func (q GeocodeQuery) Key() string {
	parts := []string{q.Address, q.Locality, q.Region}
	if q.Postal != "" {
		parts = append(parts, q.Postal)
	}
	return strings.Join(parts, ", ")
}
