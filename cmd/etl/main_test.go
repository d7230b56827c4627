package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/couchcryptid/polling-place-etl/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

func writeCSV(t *testing.T, dir string) string {
	t.Helper()
	p := filepath.Join(dir, "places.csv")
	data := "Locality,Polling Place Name,Street Address,City,Zip Code\n" +
		"Fairfax County,Oak Hall,100 Main St,Fairfax,220301234\n" +
		"Fairfax County,,200 Main St,Fairfax,22030\n" +
		"Loudoun County,Town Hall,1 Market St,,\n"
	require.NoError(t, os.WriteFile(p, []byte(data), 0o600))
	return p
}

func TestSourcesCommand(t *testing.T) {
	t.Chdir(t.TempDir())

	out, err := execute(t, "sources")
	require.NoError(t, err)
	assert.Contains(t, out, "* 2024_november_general")
	assert.Contains(t, out, "2025_june_republican")
}

func TestRunCommand_CSVToJSON(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	src := writeCSV(t, dir)
	dst := filepath.Join(dir, "out", "places.json")

	out, err := execute(t, "run", "--source", src, "--output", dst, "--format", "json")
	require.NoError(t, err)
	assert.Contains(t, out, "Converted 2 polling places (1 of 3 rows rejected)")
	assert.Contains(t, out, "missing_required_field(name)")

	raw, err := os.ReadFile(dst)
	require.NoError(t, err)
	var places []domain.PollingPlace
	require.NoError(t, json.Unmarshal(raw, &places))
	require.Len(t, places, 2)
	assert.Equal(t, "0001", places[0].ID)
	assert.Equal(t, "22030", places[0].Zip)
	assert.Equal(t, "0002", places[1].ID)
	assert.Equal(t, 37.5, places[1].Latitude)
	assert.Equal(t, -78.5, places[1].Longitude)
}

func TestRunCommand_MissingSourceFails(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	_, err := execute(t, "run", "--source", filepath.Join(dir, "nope.xlsx"), "--output", filepath.Join(dir, "o.json"))
	var fetchErr *domain.FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.NoFileExists(t, filepath.Join(dir, "o.json"))
}

func TestPreviewCommand(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	src := writeCSV(t, dir)

	out, err := execute(t, "preview", "--source", src)
	require.NoError(t, err)
	assert.Contains(t, out, "Rows: 3")
	assert.Contains(t, out, "-> county")
	assert.Contains(t, out, "Oak Hall")
}
