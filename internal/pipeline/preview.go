package pipeline

import (
	"context"

	"github.com/couchcryptid/polling-place-etl/internal/domain"
)

// previewRows is how many data rows a Preview samples.
const previewRows = 5

// Preview describes a source without converting it.
type Preview struct {
	Sheet      string
	Sheets     []string
	Headers    []string
	Normalized []string
	Mapping    domain.HeaderMapping
	RowCount   int
	Sample     []domain.RawRow
}

// Preview runs only the Fetching and Parsing stages and reports what the
// source looks like. It never touches the sink or the geocoder.
func (p *Pipeline) Preview(ctx context.Context, loc string) (*Preview, error) {
	table, err := p.load(ctx, loc)
	if err != nil {
		return nil, err
	}

	mapping := domain.NormalizeHeaders(table.Headers, p.cfg.Synonyms)
	pv := &Preview{
		Sheet:      table.Sheet,
		Sheets:     table.Sheets,
		Headers:    table.Headers,
		Normalized: mapping.Renamed(table.Headers),
		Mapping:    mapping,
		RowCount:   len(table.Rows),
		Sample:     table.Rows[:min(previewRows, len(table.Rows))],
	}
	p.setStage(StageDone)
	return pv, nil
}
