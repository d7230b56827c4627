package domain

import (
	"fmt"
	"strings"
)

// zipLength is the length of a five-digit ZIP code.
const zipLength = 5

// Converter turns normalized rows into polling place records. It numbers
// accepted rows, so one Converter serves exactly one run and must be fed rows
// in input order.
type Converter struct {
	mapping  HeaderMapping
	state    string
	accepted int
}

// NewConverter creates a Converter for a sheet with the given header mapping.
// state is stamped on every record.
func NewConverter(mapping HeaderMapping, state string) *Converter {
	return &Converter{mapping: mapping, state: state}
}

// Accepted returns the number of records produced so far.
func (c *Converter) Accepted() int { return c.accepted }

// Convert produces a record, or a rejection when a required field is empty.
// Coordinates are left zero for the caller to fill.
func (c *Converter) Convert(row RawRow) (PollingPlace, *Rejection) {
	values := c.extract(row)

	for _, f := range RequiredFields {
		if values[f] == "" {
			return PollingPlace{}, &Rejection{Line: row.Line, Reason: ReasonMissingRequiredField, Field: f}
		}
	}

	c.accepted++
	return PollingPlace{
		ID:       FormatID(c.accepted),
		Name:     values[FieldName],
		Address:  assembleAddress(values[FieldAddress], values[FieldAddress2]),
		City:     values[FieldCity],
		County:   values[FieldCounty],
		State:    c.state,
		Zip:      cleanZip(values[FieldZip]),
		Precinct: values[FieldPrecinct],
	}, nil
}

// extract applies the header mapping to a row. Columns are visited left to
// right so the last column mapped to a field wins.
func (c *Converter) extract(row RawRow) map[Field]string {
	values := make(map[Field]string, len(CanonicalFields))
	for i, field := range c.mapping.Fields {
		if field == "" || i >= len(row.Cells) {
			continue
		}
		values[field] = strings.TrimSpace(row.Cells[i])
	}
	return values
}

// FormatID renders the n-th accepted record's ID.
func FormatID(n int) string {
	return fmt.Sprintf("%04d", n)
}

func assembleAddress(line1, line2 string) string {
	if line2 == "" {
		return line1
	}
	return line1 + ", " + line2
}

// cleanZip keeps the first five characters of zips that are too long. The
// result is not checked for being numeric.
func cleanZip(zip string) string {
	zip = strings.TrimSpace(zip)
	r := []rune(zip)
	if len(r) > zipLength {
		return string(r[:zipLength])
	}
	return zip
}
