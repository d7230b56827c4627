package domain

// Field is a canonical schema field name.
type Field string

const (
	FieldCounty   Field = "county"
	FieldPrecinct Field = "precinct"
	FieldName     Field = "name"
	FieldAddress  Field = "address"
	FieldAddress2 Field = "address2"
	FieldCity     Field = "city"
	FieldZip      Field = "zip"
)

// CanonicalFields lists every canonical field in schema order.
var CanonicalFields = []Field{
	FieldCounty, FieldPrecinct, FieldName, FieldAddress, FieldAddress2, FieldCity, FieldZip,
}

// RequiredFields must be non-empty for a row to be accepted, checked in this order.
var RequiredFields = []Field{FieldCounty, FieldName, FieldAddress}

// IsCanonical reports whether f is part of the canonical schema.
func (f Field) IsCanonical() bool {
	for _, c := range CanonicalFields {
		if f == c {
			return true
		}
	}
	return false
}

// Document is a fetched source file before parsing.
type Document struct {
	Name string // base file name, used for format detection
	Data []byte
}

// RawRow is one data row of a source sheet. Cells are positionally aligned with
// Table.Headers; a short row is padded with empty cells on read.
type RawRow struct {
	Line  int // 1-based line in the source sheet, header included
	Cells []string
}

// Table is a parsed source sheet.
type Table struct {
	Sheet   string   // sheet the rows came from, empty for CSV
	Sheets  []string // all sheets in the workbook
	Headers []string
	Rows    []RawRow
}

// Coordinates is a WGS-84 latitude/longitude pair.
type Coordinates struct {
	Lat float64 `json:"latitude"`
	Lon float64 `json:"longitude"`
}

// PollingPlace is the canonical output record.
type PollingPlace struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Address   string  `json:"address"`
	City      string  `json:"city"`
	County    string  `json:"county"`
	State     string  `json:"state"`
	Zip       string  `json:"zip"`
	Precinct  string  `json:"precinct,omitempty"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`

	// Placeholders for the scoring stage; always zero here.
	TotalVoters             int     `json:"total_voters"`
	MultiStateRegistrations int     `json:"multi_state_registrations"`
	RecentRegistrations     int     `json:"recent_registrations"`
	PurgedVoters            int     `json:"purged_voters"`
	RiskScore               float64 `json:"risk_score"`
}

// Locality is the place name used to geocode the record: the city, or the
// county when the source has no city.
func (p PollingPlace) Locality() string {
	if p.City != "" {
		return p.City
	}
	return p.County
}

// SetCoordinates stores c on the record.
func (p *PollingPlace) SetCoordinates(c Coordinates) {
	p.Latitude = c.Lat
	p.Longitude = c.Lon
}
