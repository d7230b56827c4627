package domain

// Conflict records two or more source columns mapping to one canonical field.
// The last column listed is the one whose value is used.
type Conflict struct {
	Field   Field
	Columns []int
}

// HeaderMapping is the result of normalizing a sheet's headers.
type HeaderMapping struct {
	// Fields is aligned with the raw headers; "" marks an unmapped column.
	Fields    []Field
	Unmapped  []string
	Conflicts []Conflict
}

// NormalizeHeaders maps raw headers onto the canonical schema. Headers not in
// the table are reported as unmapped and never reach the converter. Several
// columns may map to the same field; later columns take precedence when rows
// are converted.
func NormalizeHeaders(headers []string, table SynonymTable) HeaderMapping {
	m := HeaderMapping{Fields: make([]Field, len(headers))}
	seen := make(map[Field][]int)
	var order []Field

	for i, h := range headers {
		field, ok := table[HeaderKey(h)]
		if !ok {
			m.Unmapped = append(m.Unmapped, h)
			continue
		}
		m.Fields[i] = field
		if _, dup := seen[field]; !dup {
			order = append(order, field)
		}
		seen[field] = append(seen[field], i)
	}

	for _, f := range order {
		if cols := seen[f]; len(cols) > 1 {
			m.Conflicts = append(m.Conflicts, Conflict{Field: f, Columns: cols})
		}
	}
	return m
}

// Has reports whether any column maps to field.
func (m HeaderMapping) Has(field Field) bool {
	for _, f := range m.Fields {
		if f == field {
			return true
		}
	}
	return false
}

// Missing returns the required fields no column maps to.
func (m HeaderMapping) Missing() []Field {
	var out []Field
	for _, f := range RequiredFields {
		if !m.Has(f) {
			out = append(out, f)
		}
	}
	return out
}

// Renamed returns the normalized header list: canonical names for mapped
// columns, the header's lookup key otherwise.
func (m HeaderMapping) Renamed(headers []string) []string {
	out := make([]string, len(headers))
	for i, h := range headers {
		if i < len(m.Fields) && m.Fields[i] != "" {
			out[i] = string(m.Fields[i])
			continue
		}
		out[i] = HeaderKey(h)
	}
	return out
}
