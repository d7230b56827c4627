package observability

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "debug", "json")
	logger.Debug("hello", "rows", 3)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "hello", entry["msg"])
	assert.Equal(t, "DEBUG", entry["level"])
	assert.InDelta(t, 3, entry["rows"], 0)
}

func TestNewLogger_TextFiltersLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "warn", "text")
	logger.Info("dropped")
	logger.Warn("kept")

	assert.NotContains(t, buf.String(), "dropped")
	assert.Contains(t, buf.String(), "msg=kept")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, "INFO", parseLevel("").String())
	assert.Equal(t, "INFO", parseLevel("bogus").String())
	assert.Equal(t, "WARN", parseLevel("Warning").String())
	assert.Equal(t, "ERROR", parseLevel(" error ").String())
}

func TestMetrics_IndependentRegistries(t *testing.T) {
	a := NewMetrics()
	b := NewMetrics()

	a.RowsRead.Add(3)
	b.RowsRead.Inc()
	a.RowsRejected.WithLabelValues("missing_required_field(name)").Inc()

	assert.InDelta(t, 3, testutil.ToFloat64(a.RowsRead), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(b.RowsRead), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(a.RowsRejected.WithLabelValues("missing_required_field(name)")), 0)
}

func TestMetrics_WriteTextfile(t *testing.T) {
	m := NewMetrics()
	m.RowsAccepted.Add(42)
	m.GeocodeCache.WithLabelValues("hit").Add(2)

	path := filepath.Join(t.TempDir(), "polling_etl.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "polling_etl_rows_accepted_total 42")
	assert.Contains(t, string(data), `polling_etl_geocode_cache_total{result="hit"} 2`)
}
