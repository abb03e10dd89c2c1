package cmd

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/lepinkainen/coverspectrum/internal/issues"
	"github.com/lepinkainen/coverspectrum/internal/pipeline"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i := range columns {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := range columns {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, 0, columns)
	for i := range columns {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		configs = append(configs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(configs)

	return tw.Render()
}

// printSummary writes the per-run counts table.
func printSummary(w io.Writer, identifiers int, res *pipeline.Result) {
	rows := [][]string{
		{"Identifiers", strconv.Itoa(identifiers)},
		{"Unavailable", strconv.Itoa(len(res.Unavailable))},
		{"Records", strconv.Itoa(len(res.All))},
		{"Dark", strconv.Itoa(len(res.Dark))},
		{"Light", strconv.Itoa(len(res.Light))},
		{"Unclassified", strconv.Itoa(res.Unclassified())},
		{"Decode errors", strconv.Itoa(res.DecodeErrors())},
	}
	_, _ = fmt.Fprintln(w, renderTable([]string{"Covers", "Count"}, rows, []columnAlignment{alignLeft, alignRight}))
	printUnavailable(w, res.Unavailable)
}

func printUnavailable(w io.Writer, ids []issues.Identifier) {
	if len(ids) == 0 {
		return
	}
	names := make([]string, len(ids))
	for i, id := range ids {
		names[i] = id.String()
	}
	_, _ = fmt.Fprintf(w, "Unavailable: %s\n", strings.Join(names, ", "))
}
