// Package query builds and validates search filters for the alert and
// file-event search APIs.
//
// A Query is a value type: builder methods return a modified copy and
// never mutate the receiver, so a base query can be safely reused and
// extended per run. Field and operator legality is checked against the
// domain schema at build time, before anything touches the network.
package query

import (
	"encoding/json"
	"fmt"
	"slices"
)

// Predicate is a single (field, operator, value) filter term.
// Predicates in a query are ANDed together by the server.
type Predicate struct {
	Field    string   `json:"field"`
	Operator Operator `json:"operator"`
	Value    string   `json:"value,omitempty"`
}

// Query is an immutable search filter: a time range plus zero or more
// field predicates, validated against one domain's schema.
type Query struct {
	domain Domain

	// StartTimestamp and EndTimestamp bound the event time as epoch
	// seconds. On restricts to a single calendar day (YYYY-MM-DD) and
	// is mutually exclusive with the range bounds on the server side.
	StartTimestamp *float64
	EndTimestamp   *float64
	On             string

	Predicates []Predicate
}

// New returns an empty query for the given domain.
func New(domain Domain) Query {
	return Query{domain: domain}
}

// Domain returns the schema domain the query validates against.
func (q Query) Domain() Domain {
	return q.domain
}

// WithStart returns a copy of the query with the start bound set to
// the given epoch-seconds timestamp.
func (q Query) WithStart(ts float64) Query {
	c := q.clone()
	c.StartTimestamp = &ts
	return c
}

// WithEnd returns a copy of the query with the end bound set.
func (q Query) WithEnd(ts float64) Query {
	c := q.clone()
	c.EndTimestamp = &ts
	return c
}

// WithOn returns a copy of the query restricted to a single day.
func (q Query) WithOn(date string) Query {
	c := q.clone()
	c.On = date
	return c
}

// Where returns a copy of the query with an added predicate. It fails
// with *InvalidFieldError if the field is not in the domain schema, or
// *InvalidOperatorError if the operator is unknown or illegal for the
// field's kind.
func (q Query) Where(field string, op Operator, value string) (Query, error) {
	kind, ok := q.domain.Fields()[field]
	if !ok {
		return Query{}, &InvalidFieldError{Domain: q.domain, Field: field}
	}
	if !op.Valid() || !op.legalFor(kind) {
		return Query{}, &InvalidOperatorError{Field: field, Operator: op}
	}
	c := q.clone()
	c.Predicates = append(c.Predicates, Predicate{Field: field, Operator: op, Value: value})
	return c, nil
}

// Equals is shorthand for Where(field, OpIs, value).
func (q Query) Equals(field, value string) (Query, error) {
	return q.Where(field, OpIs, value)
}

// Validate checks that the query is executable: it must carry at least
// one time constraint.
func (q Query) Validate() error {
	if q.StartTimestamp == nil && q.EndTimestamp == nil && q.On == "" {
		return ErrMissingTimeBounds
	}
	return nil
}

func (q Query) clone() Query {
	c := q
	c.Predicates = slices.Clone(q.Predicates)
	return c
}

// queryJSON is the canonical wire form. Field order and names are
// stable so serialized queries stay reusable across versions.
type queryJSON struct {
	StartDate  *float64    `json:"start_date,omitempty"`
	EndDate    *float64    `json:"end_date,omitempty"`
	On         string      `json:"on,omitempty"`
	Predicates []Predicate `json:"predicates,omitempty"`
}

// MarshalJSON renders the query in its canonical wire form.
func (q Query) MarshalJSON() ([]byte, error) {
	return json.Marshal(queryJSON{
		StartDate:  q.StartTimestamp,
		EndDate:    q.EndTimestamp,
		On:         q.On,
		Predicates: q.Predicates,
	})
}

// Serialize renders the query in its canonical textual form, suitable
// for --advanced-query reuse. Parse inverts it exactly.
func (q Query) Serialize() (string, error) {
	data, err := q.MarshalJSON()
	if err != nil {
		return "", fmt.Errorf("serializing query: %w", err)
	}
	return string(data), nil
}

// Parse builds a query from its serialized form, validating every
// predicate against the domain schema so a blob written for one domain
// cannot silently run against another.
func Parse(domain Domain, raw string) (Query, error) {
	var wire queryJSON
	if err := json.Unmarshal([]byte(raw), &wire); err != nil {
		return Query{}, fmt.Errorf("parsing query: %w", err)
	}

	q := New(domain)
	q.StartTimestamp = wire.StartDate
	q.EndTimestamp = wire.EndDate
	q.On = wire.On

	var err error
	for _, p := range wire.Predicates {
		q, err = q.Where(p.Field, p.Operator, p.Value)
		if err != nil {
			return Query{}, err
		}
	}
	return q, nil
}
