// Copyright 2026 The Apolo Authors
// SPDX-License-Identifier: Apache-2.0

package report

import (
	"sort"
	"strings"
	"text/tabwriter"
)

// pivot accumulates values under a (row, column) key pair and renders
// them as an aligned table. Row and column labels are discovered from
// the data and rendered in sorted order; a combination that never
// received a value renders as NaN, matching the convention readers of
// these reports expect from sparse cross-tabulations.
type pivot struct {
	cells map[string]map[string]float64
}

func newPivot() *pivot {
	return &pivot{cells: make(map[string]map[string]float64)}
}

// add accumulates value under (row, col).
func (p *pivot) add(row, col string, value float64) {
	if p.cells[row] == nil {
		p.cells[row] = make(map[string]float64)
	}
	p.cells[row][col] += value
}

// render returns the pivot as an aligned table. corner labels the
// row-key column; format turns each populated cell into text.
func (p *pivot) render(corner string, format func(float64) string) string {
	rowKeys := make([]string, 0, len(p.cells))
	colSet := make(map[string]bool)
	for row, cols := range p.cells {
		rowKeys = append(rowKeys, row)
		for col := range cols {
			colSet[col] = true
		}
	}
	sort.Strings(rowKeys)

	colKeys := make([]string, 0, len(colSet))
	for col := range colSet {
		colKeys = append(colKeys, col)
	}
	sort.Strings(colKeys)

	header := append([]string{corner}, colKeys...)
	rows := make([][]string, 0, len(rowKeys))
	for _, row := range rowKeys {
		line := []string{row}
		for _, col := range colKeys {
			if value, ok := p.cells[row][col]; ok {
				line = append(line, format(value))
			} else {
				line = append(line, "NaN")
			}
		}
		rows = append(rows, line)
	}
	return renderTable(header, rows)
}

// renderTable lays out a header row and data rows as aligned columns.
func renderTable(header []string, rows [][]string) string {
	var buf strings.Builder
	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)

	writeRow := func(cells []string) {
		w.Write([]byte(strings.Join(cells, "\t") + "\n"))
	}
	writeRow(header)
	for _, row := range rows {
		writeRow(row)
	}

	w.Flush()
	return buf.String()
}
