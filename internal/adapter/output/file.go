// Package output writes polling place records to local files.
package output

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/couchcryptid/polling-place-etl/internal/domain"
	geom "github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
)

// Encoding selects the file layout.
type Encoding string

const (
	// EncodingJSON is a pretty-printed array of records.
	EncodingJSON Encoding = "json"
	// EncodingGeoJSON is a FeatureCollection of points with the record as
	// feature properties.
	EncodingGeoJSON Encoding = "geojson"
)

// FileSink writes the full record set to a single file. It implements
// pipeline.Sink.
type FileSink struct {
	path     string
	encoding Encoding
}

// NewFileSink creates a sink for path.
func NewFileSink(path string, encoding Encoding) *FileSink {
	return &FileSink{path: path, encoding: encoding}
}

// Path returns the destination file.
func (s *FileSink) Path() string { return s.path }

// Emit encodes places and replaces the destination file. The parent directory
// is created if needed.
func (s *FileSink) Emit(_ context.Context, places []domain.PollingPlace) error {
	var (
		data []byte
		err  error
	)
	switch s.encoding {
	case EncodingGeoJSON:
		data, err = EncodeGeoJSON(places)
	default:
		data, err = EncodeJSON(places)
	}
	if err != nil {
		return err
	}
	return writeAtomic(s.path, data)
}

// EncodeJSON renders places as an indented JSON array. An empty set renders
// as [].
func EncodeJSON(places []domain.PollingPlace) ([]byte, error) {
	if places == nil {
		places = []domain.PollingPlace{}
	}
	data, err := json.MarshalIndent(places, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode json: %w", err)
	}
	return append(data, '\n'), nil
}

// EncodeGeoJSON renders places as a GeoJSON FeatureCollection.
func EncodeGeoJSON(places []domain.PollingPlace) ([]byte, error) {
	fc := geojson.FeatureCollection{Features: make([]*geojson.Feature, 0, len(places))}
	for i := range places {
		p := &places[i]
		props := map[string]any{
			"name":                      p.Name,
			"address":                   p.Address,
			"city":                      p.City,
			"county":                    p.County,
			"state":                     p.State,
			"zip":                       p.Zip,
			"precinct":                  p.Precinct,
			"total_voters":              p.TotalVoters,
			"multi_state_registrations": p.MultiStateRegistrations,
			"recent_registrations":      p.RecentRegistrations,
			"purged_voters":             p.PurgedVoters,
			"risk_score":                p.RiskScore,
		}
		if p.Precinct == "" {
			delete(props, "precinct")
		}
		fc.Features = append(fc.Features, &geojson.Feature{
			ID:         p.ID,
			Geometry:   geom.NewPointFlat(geom.XY, []float64{p.Longitude, p.Latitude}),
			Properties: props,
		})
	}
	data, err := json.MarshalIndent(&fc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode geojson: %w", err)
	}
	return append(data, '\n'), nil
}

// writeAtomic writes to a temp file in the destination directory and renames
// it into place so readers never see a partial file.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write output: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close output: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename output: %w", err)
	}
	return nil
}
