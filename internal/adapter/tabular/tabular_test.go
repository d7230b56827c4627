package tabular

import (
	"bytes"
	"testing"

	"github.com/couchcryptid/polling-place-etl/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
)

type sheetData struct {
	name string
	rows [][]string
}

func buildXLSX(t *testing.T, sheets ...sheetData) []byte {
	t.Helper()
	f := xlsx.NewFile()
	for _, s := range sheets {
		sheet, err := f.AddSheet(s.name)
		require.NoError(t, err)
		for _, rowData := range s.rows {
			row := sheet.AddRow()
			for _, cellData := range rowData {
				row.AddCell().SetString(cellData)
			}
		}
	}
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	return buf.Bytes()
}

func TestDetect(t *testing.T) {
	assert.Equal(t, FormatXLSX, Detect("download", []byte("PK\x03\x04rest")))
	assert.Equal(t, FormatXLSX, Detect("places.XLSX", nil))
	assert.Equal(t, FormatCSV, Detect("places.csv", []byte("a,b")))
	assert.Equal(t, FormatCSV, Detect("places", []byte("a,b")))
}

func TestParse_XLSXFirstSheet(t *testing.T) {
	data := buildXLSX(t,
		sheetData{name: "Polling Places", rows: [][]string{
			{"Locality Name", "Voting Place Name", "Address Line 1", "Zip Code"},
			{"FAIRFAX COUNTY", "Oak Hall", "100 Main St", "22030-1234"},
			{"ARLINGTON COUNTY", "Library", "2 Oak Ave"},
		}},
		sheetData{name: "Notes", rows: [][]string{{"ignored"}}},
	)

	tbl, err := Parse("places.xlsx", data, "")
	require.NoError(t, err)

	assert.Equal(t, "Polling Places", tbl.Sheet)
	assert.Equal(t, []string{"Polling Places", "Notes"}, tbl.Sheets)
	assert.Equal(t, []string{"Locality Name", "Voting Place Name", "Address Line 1", "Zip Code"}, tbl.Headers)
	require.Len(t, tbl.Rows, 2)
	assert.Equal(t, domain.RawRow{Line: 2, Cells: []string{"FAIRFAX COUNTY", "Oak Hall", "100 Main St", "22030-1234"}}, tbl.Rows[0])
	// Short rows are padded to the header width.
	assert.Equal(t, []string{"ARLINGTON COUNTY", "Library", "2 Oak Ave", ""}, tbl.Rows[1].Cells)
	assert.Equal(t, 3, tbl.Rows[1].Line)
}

func TestParse_XLSXNamedSheet(t *testing.T) {
	data := buildXLSX(t,
		sheetData{name: "Cover", rows: [][]string{{"Virginia Department of Elections"}}},
		sheetData{name: "Locations", rows: [][]string{{"County", "Name"}, {"Henrico", "Fire Station 5"}}},
	)

	tbl, err := Parse("places.xlsx", data, "Locations")
	require.NoError(t, err)
	assert.Equal(t, "Locations", tbl.Sheet)
	assert.Equal(t, []string{"County", "Name"}, tbl.Headers)
	require.Len(t, tbl.Rows, 1)
}

func TestParse_XLSXMissingSheet(t *testing.T) {
	data := buildXLSX(t, sheetData{name: "Sheet1", rows: [][]string{{"County"}}})

	_, err := Parse("places.xlsx", data, "Nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Sheet1")
}

func TestParse_XLSXEmptySheet(t *testing.T) {
	data := buildXLSX(t, sheetData{name: "Sheet1"})

	_, err := Parse("places.xlsx", data, "")
	require.ErrorIs(t, err, ErrNoHeader)
}

func TestParse_CorruptWorkbook(t *testing.T) {
	_, err := Parse("places.xlsx", []byte("PK\x03\x04not really a zip"), "")
	require.Error(t, err)
}

func TestParse_CSV(t *testing.T) {
	data := []byte("\xef\xbb\xbfCounty,Name,Address\n\nLoudoun,\"Hall, East\",1 Market St\nLoudoun,Short\n")

	tbl, err := Parse("places.csv", data, "")
	require.NoError(t, err)

	assert.Empty(t, tbl.Sheet)
	assert.Equal(t, []string{"County", "Name", "Address"}, tbl.Headers)
	require.Len(t, tbl.Rows, 2)
	assert.Equal(t, domain.RawRow{Line: 3, Cells: []string{"Loudoun", "Hall, East", "1 Market St"}}, tbl.Rows[0])
	assert.Equal(t, []string{"Loudoun", "Short", ""}, tbl.Rows[1].Cells)
}

func TestParse_CSVLeadingBlankAndWideRows(t *testing.T) {
	data := []byte(",,\nCounty,Name,,\nA,B,C,D\n")

	tbl, err := Parse("places.csv", data, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"County", "Name"}, tbl.Headers)
	require.Len(t, tbl.Rows, 1)
	assert.Equal(t, 3, tbl.Rows[0].Line)
	assert.Equal(t, []string{"A", "B"}, tbl.Rows[0].Cells)
}

func TestParse_CSVEmpty(t *testing.T) {
	_, err := Parse("places.csv", nil, "")
	require.ErrorIs(t, err, ErrNoHeader)
}

func TestParse_HeadersOnly(t *testing.T) {
	tbl, err := Parse("places.csv", []byte("County,Name,Address\n"), "")
	require.NoError(t, err)
	assert.Len(t, tbl.Headers, 3)
	assert.Empty(t, tbl.Rows)
}

func TestParser_Parse(t *testing.T) {
	data := buildXLSX(t,
		sheetData{name: "A", rows: [][]string{{"County"}, {"Henrico"}}},
		sheetData{name: "B", rows: [][]string{{"Locality"}, {"Salem"}, {"Roanoke"}}},
	)

	tbl, err := Parser{Sheet: "B"}.Parse(domain.Document{Name: "download", Data: data})
	require.NoError(t, err)
	assert.Equal(t, "B", tbl.Sheet)
	assert.Len(t, tbl.Rows, 2)
}
