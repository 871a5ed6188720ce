package main

import (
	"github.com/jedib0t/go-pretty/v6/table"
)

// renderKeyValues draws the two-column settings layout used by status and
// config show. Pair order is preserved.
func renderKeyValues(keyHeader, valueHeader string, pairs [][2]string) string {
	tw := newTableWriter()
	tw.AppendHeader(table.Row{keyHeader, valueHeader})
	for _, pair := range pairs {
		tw.AppendRow(table.Row{pair[0], pair[1]})
	}
	return tw.Render()
}

// renderListing draws one row per item under the given headers. Short rows
// are padded with empty cells.
func renderListing(headers []string, rows [][]string) string {
	tw := newTableWriter()
	header := make(table.Row, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, len(headers))
		for i := range r {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}
	return tw.Render()
}

func newTableWriter() table.Writer {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	return tw
}
