// Package output renders search results as tables, CSV, or JSON
// lines, and can forward them to a remote collector over TCP, UDP, or
// TLS.
package output

import (
	"encoding/json"
	"fmt"
	"io"
)

// Format selects how records are rendered.
type Format string

const (
	FormatTable     Format = "table"
	FormatCSV       Format = "csv"
	FormatJSON      Format = "json"
	FormatJSONLines Format = "json-lines"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatTable, FormatCSV, FormatJSON, FormatJSONLines:
		return Format(s), nil
	default:
		return "", fmt.Errorf("unknown output format: %s", s)
	}
}

// JSONLinesWriter writes one compact JSON object per line.
type JSONLinesWriter struct {
	enc *json.Encoder
}

// NewJSONLines creates a JSON-lines writer on w.
func NewJSONLines(w io.Writer) *JSONLinesWriter {
	return &JSONLinesWriter{enc: json.NewEncoder(w)}
}

// WriteObject writes the record as a single line.
func (j *JSONLinesWriter) WriteObject(v any) error {
	return j.enc.Encode(v)
}

// JSONWriter writes indented JSON objects, one per record.
type JSONWriter struct {
	w io.Writer
}

// NewJSON creates a pretty-printing JSON writer on w.
func NewJSON(w io.Writer) *JSONWriter {
	return &JSONWriter{w: w}
}

// WriteObject writes the record as an indented JSON document.
func (j *JSONWriter) WriteObject(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = j.w.Write(data)
	return err
}
