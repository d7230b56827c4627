package domain

import "fmt"

// FetchError reports that the source dataset could not be retrieved. It is
// fatal for a run.
type FetchError struct {
	Source string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Source, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ParseError reports that a fetched payload could not be read as a table. It is
// fatal for a run.
type ParseError struct {
	Source string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.Source, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// RejectReason classifies a rejected row.
type RejectReason string

const ReasonMissingRequiredField RejectReason = "missing_required_field"

// Rejection is the outcome for a row that produced no record.
type Rejection struct {
	Line   int
	Reason RejectReason
	Field  Field
}

// Key is the label used when tallying rejections, e.g.
// "missing_required_field(name)".
func (r Rejection) Key() string {
	if r.Field == "" {
		return string(r.Reason)
	}
	return fmt.Sprintf("%s(%s)", r.Reason, r.Field)
}

func (r Rejection) String() string {
	return fmt.Sprintf("line %d: %s", r.Line, r.Key())
}
