package output

import (
	"encoding/csv"
	"io"
)

// CSVWriter streams rows as CSV, writing the header before the first
// row.
type CSVWriter struct {
	w           *csv.Writer
	headers     []string
	wroteHeader bool
}

// NewCSV creates a CSV writer with the given column headers.
func NewCSV(w io.Writer, headers []string) *CSVWriter {
	return &CSVWriter{w: csv.NewWriter(w), headers: headers}
}

// WriteRow writes one record row.
func (c *CSVWriter) WriteRow(values []string) error {
	if !c.wroteHeader {
		if err := c.w.Write(c.headers); err != nil {
			return err
		}
		c.wroteHeader = true
	}
	return c.w.Write(values)
}

// Flush writes any buffered output. A run with zero rows still emits
// the header so downstream parsers see a valid file.
func (c *CSVWriter) Flush() error {
	if !c.wroteHeader {
		if err := c.w.Write(c.headers); err != nil {
			return err
		}
		c.wroteHeader = true
	}
	c.w.Flush()
	return c.w.Error()
}
