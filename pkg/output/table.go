package output

import (
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

// TableWriter buffers rows and renders them as a bordered table when
// flushed. Buffering is unavoidable: column widths depend on every
// row.
type TableWriter struct {
	w       io.Writer
	headers []string
	rows    [][]string
}

// NewTable creates a table writer with the given column headers.
func NewTable(w io.Writer, headers []string) *TableWriter {
	return &TableWriter{w: w, headers: headers}
}

// WriteRow buffers one row.
func (t *TableWriter) WriteRow(values []string) error {
	t.rows = append(t.rows, values)
	return nil
}

// Len returns the number of buffered rows.
func (t *TableWriter) Len() int {
	return len(t.rows)
}

// Flush renders the buffered rows.
func (t *TableWriter) Flush() error {
	tbl := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle.Padding(0, 1)
			}
			return cellStyle
		}).
		Headers(t.headers...).
		Rows(t.rows...)

	_, err := io.WriteString(t.w, tbl.Render()+"\n")
	return err
}
