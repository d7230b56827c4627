// Package tabular parses XLSX workbooks and CSV files into domain tables.
package tabular

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/couchcryptid/polling-place-etl/internal/domain"
	"github.com/tealeg/xlsx/v2"
)

// Format is a supported source file format.
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
)

// ErrNoHeader is returned when a sheet has no non-blank row to use as headers.
var ErrNoHeader = errors.New("sheet has no header row")

var zipMagic = []byte("PK\x03\x04")

// Detect picks the format of a document from its content, falling back to the
// file extension. Workbooks are zip archives; anything else is read as CSV.
func Detect(name string, data []byte) Format {
	if bytes.HasPrefix(data, zipMagic) {
		return FormatXLSX
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm":
		return FormatXLSX
	default:
		return FormatCSV
	}
}

// Parser reads fetched documents. It implements pipeline.Parser.
type Parser struct {
	// Sheet selects a workbook sheet by name; empty means the first sheet.
	Sheet string
}

// Parse implements pipeline.Parser.
func (p Parser) Parse(doc domain.Document) (domain.Table, error) {
	return Parse(doc.Name, doc.Data, p.Sheet)
}

// Parse reads a document into a table. For workbooks, sheet selects a sheet by
// name; empty means the first sheet. The first non-blank row is the header.
func Parse(name string, data []byte, sheet string) (domain.Table, error) {
	switch Detect(name, data) {
	case FormatXLSX:
		return parseXLSX(data, sheet)
	default:
		return parseCSV(data)
	}
}

func parseXLSX(data []byte, sheetName string) (domain.Table, error) {
	f, err := xlsx.OpenBinary(data)
	if err != nil {
		return domain.Table{}, fmt.Errorf("xlsx: open workbook: %w", err)
	}
	if len(f.Sheets) == 0 {
		return domain.Table{}, errors.New("xlsx: workbook has no sheets")
	}

	names := make([]string, len(f.Sheets))
	for i, s := range f.Sheets {
		names[i] = s.Name
	}

	sheet := f.Sheets[0]
	if sheetName != "" {
		s, ok := f.Sheet[sheetName]
		if !ok {
			return domain.Table{}, fmt.Errorf("xlsx: sheet %q not found (have %s)", sheetName, strings.Join(names, ", "))
		}
		sheet = s
	}

	records := make([]record, 0, len(sheet.Rows))
	for i, row := range sheet.Rows {
		if row == nil {
			continue
		}
		cells := make([]string, len(row.Cells))
		for j, cell := range row.Cells {
			if cell != nil {
				cells[j] = cell.String()
			}
		}
		records = append(records, record{line: i + 1, cells: cells})
	}

	t, err := build(records)
	if err != nil {
		return domain.Table{}, fmt.Errorf("xlsx: sheet %q: %w", sheet.Name, err)
	}
	t.Sheet = sheet.Name
	t.Sheets = names
	return t, nil
}

func parseCSV(data []byte) (domain.Table, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var records []record
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return domain.Table{}, fmt.Errorf("csv: %w", err)
		}
		line, _ := r.FieldPos(0)
		records = append(records, record{line: line, cells: rec})
	}

	t, err := build(records)
	if err != nil {
		return domain.Table{}, fmt.Errorf("csv: %w", err)
	}
	return t, nil
}

type record struct {
	line  int
	cells []string
}

// build turns raw records into a table. Leading blank rows are skipped, the
// first non-blank row becomes the header, and blank data rows are dropped.
// Data rows are padded or truncated to the header width.
func build(records []record) (domain.Table, error) {
	headerAt := -1
	for i, rec := range records {
		if !blank(rec.cells) {
			headerAt = i
			break
		}
	}
	if headerAt < 0 {
		return domain.Table{}, ErrNoHeader
	}

	headers := trimTrailingEmpty(records[headerAt].cells)
	width := len(headers)

	var rows []domain.RawRow
	for _, rec := range records[headerAt+1:] {
		if blank(rec.cells) {
			continue
		}
		cells := make([]string, width)
		copy(cells, rec.cells)
		rows = append(rows, domain.RawRow{Line: rec.line, Cells: cells})
	}

	return domain.Table{Headers: headers, Rows: rows}, nil
}

func blank(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func trimTrailingEmpty(rec []string) []string {
	n := len(rec)
	for n > 0 && strings.TrimSpace(rec[n-1]) == "" {
		n--
	}
	out := make([]string, n)
	copy(out, rec[:n])
	return out
}
