package dataset

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when the dataset location does not exist.
	ErrNotFound = errors.New("dataset not found")

	// ErrInvalidFraction is returned for sample fractions outside (0, 1].
	ErrInvalidFraction = errors.New("invalid sample fraction")
)

// ParseError reports a dataset that is corrupt or does not match ProductSchema.
// Row is the 1-based data row, or 0 when the problem is not tied to a row.
type ParseError struct {
	Source string
	Row    int
	Column string
	Value  string
	Err    error
}

func (e *ParseError) Error() string {
	msg := "parse " + e.Source
	if e.Row > 0 {
		msg += fmt.Sprintf(" row %d", e.Row)
	}
	if e.Column != "" {
		msg += fmt.Sprintf(" column %q", e.Column)
	}
	if e.Value != "" {
		msg += fmt.Sprintf(" value %q", e.Value)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

func parseErr(source string, err error) *ParseError {
	return &ParseError{Source: source, Err: err}
}
