// Package export renders attendance tables as CSV or PDF documents.
package export

import "errors"

// ErrNoColumns is returned when a table has nothing to render.
var ErrNoColumns = errors.New("export: table has no columns")

// Column describes one table column. Weight sizes the column relative to
// the others in PDF output; zero counts as 1.
type Column struct {
	Name   string
	Weight float64
	Align  string // "L", "C" or "R"; empty means left
}

// Table is a titled grid of string cells. Rows shorter than Columns are
// padded with empty cells.
type Table struct {
	Title    string
	Subtitle string
	Columns  []Column
	Rows     [][]string
	// Highlight marks rows that are shaded in PDF output.
	Highlight func(row []string) bool
}

// Names returns the column headers in order.
func (t Table) Names() []string {
	names := make([]string, len(t.Columns))
	for i, col := range t.Columns {
		names[i] = col.Name
	}
	return names
}

func (t Table) cell(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}

func (t Table) weights() (float64, []float64) {
	weights := make([]float64, len(t.Columns))
	var total float64
	for i, col := range t.Columns {
		w := col.Weight
		if w <= 0 {
			w = 1
		}
		weights[i] = w
		total += w
	}
	return total, weights
}
