package query

import (
	"errors"
	"fmt"
)

// ErrMissingTimeBounds is returned by Validate when a query has no
// start, end, or on constraint. The search API requires at least one.
var ErrMissingTimeBounds = errors.New("query: at least one of start, end, or on is required")

// InvalidFieldError indicates a predicate referenced a field that is
// not part of the domain's search schema.
type InvalidFieldError struct {
	Domain Domain
	Field  string
}

func (e *InvalidFieldError) Error() string {
	return fmt.Sprintf("query: %q is not a searchable %s field", e.Field, e.Domain)
}

// InvalidOperatorError indicates an operator that is unknown or not
// legal for the field it was applied to.
type InvalidOperatorError struct {
	Field    string
	Operator Operator
}

func (e *InvalidOperatorError) Error() string {
	return fmt.Sprintf("query: operator %q is not valid for field %q", e.Operator, e.Field)
}
