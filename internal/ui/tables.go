package ui

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// Table collects rows and renders them with rounded borders.
type Table struct {
	headers  []string
	rows     [][]string
	right    map[int]bool
	maxWidth int // per column, 0 for unlimited
}

// NewTable creates a new table
func NewTable(headers ...string) *Table {
	return &Table{headers: headers, right: make(map[int]bool)}
}

// AlignRight right-aligns the given zero-based columns.
func (t *Table) AlignRight(columns ...int) *Table {
	for _, c := range columns {
		t.right[c] = true
	}
	return t
}

// SetMaxWidth caps every column at width characters.
func (t *Table) SetMaxWidth(width int) {
	t.maxWidth = width
}

// AddRow adds a row to the table
func (t *Table) AddRow(values ...string) {
	row := make([]string, len(t.headers))
	copy(row, values)
	t.rows = append(t.rows, row)
}

func (t *Table) Len() int {
	return len(t.rows)
}

// Render writes the table to w.
func (t *Table) Render(w io.Writer) {
	columns := len(t.headers)
	if columns == 0 {
		return
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i, h := range t.headers {
		header[i] = h
	}
	tw.AppendHeader(header)

	for _, row := range t.rows {
		r := make(table.Row, columns)
		for i := range r {
			r[i] = row[i]
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		align := text.AlignLeft
		if t.right[i] {
			align = text.AlignRight
		}
		configs = append(configs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
			WidthMax:    t.maxWidth,
		})
	}
	tw.SetColumnConfigs(configs)

	fmt.Fprintln(w, tw.Render())
}
