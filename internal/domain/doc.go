// Package domain models polling place records published by state election
// authorities.
//
// # Data Source
//
// Election offices publish one workbook per election listing every Election
// Day polling location, e.g. the Virginia Department of Elections files under
// https://www.elections.virginia.gov/media/registration-statistics/. The files
// share no fixed layout: column titles change between elections ("Locality",
// "County Name", "Jurisdiction") and rows are hand-maintained.
//
// # Canonical Schema
//
// Every source column is matched against a [SynonymTable] and mapped to one of
// the canonical fields:
//
//	county    required  locality or county the place serves
//	precinct  optional  precinct name or number
//	name      required  polling place name
//	address   required  street address, line 1
//	address2  optional  street address, line 2
//	city      optional  city or town
//	zip       optional  postal code
//
// Columns without a synonym are dropped. When two columns map to the same
// field, the column further right in the sheet wins.
//
// # Cleanup Rules
//
// Address line 2 is appended to line 1 as "<line 1>, <line 2>". Zip codes
// longer than five characters are cut to the first five: sources often carry
// ZIP+4 without a separator ("220301234") or repeated digits. The cut is not
// validated as numeric.
//
// # ID Generation
//
// IDs are assigned in input order over accepted rows only, starting at 1 and
// zero padded to four digits ("0001"). Rejected rows never consume an ID, so the
// sequence stays dense and identical input always yields identical IDs.
//
// # Placeholders
//
// Voter and registration counts and the risk score are not derivable from the
// source files. They are emitted as explicit zeros for the scoring stage.
package domain
