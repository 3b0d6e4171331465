package main

import (
	"io"
	"os"

	"github.com/franz/repertoire/internal/util"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// minColumnWidth keeps wrapped text columns readable on narrow terminals
const minColumnWidth = 12

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

// renderTable draws a rounded table. A positive width wraps the text
// columns so each row fits in it.
func renderTable(width int, headers []string, rows [][]string, aligns []columnAlignment) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, len(row))
		for i, cell := range row {
			r[i] = cell
		}
		tw.AppendRow(r)
	}

	textWidth := 0
	if width > 0 {
		textWidth = splitWidth(width, aligns)
	}

	configs := make([]table.ColumnConfig, 0, len(aligns))
	for i, a := range aligns {
		cfg := table.ColumnConfig{
			Number:      i + 1,
			Align:       text.AlignLeft,
			AlignHeader: text.AlignLeft,
		}
		if a == alignRight {
			cfg.Align = text.AlignRight
		} else {
			cfg.WidthMax = textWidth
		}
		configs = append(configs, cfg)
	}
	tw.SetColumnConfigs(configs)

	return tw.Render()
}

// outputWidth is the terminal width when w is a terminal, else 0
func outputWidth(w io.Writer) int {
	f, ok := w.(*os.File)
	if !ok || !util.IsTerminal(f.Fd()) {
		return 0
	}
	return util.GetTerminalWidth()
}

// splitWidth reserves 8 cells per numeric column and 3 per column border,
// then shares the rest between text columns
func splitWidth(total int, aligns []columnAlignment) int {
	textCols := 0
	reserved := 1
	for _, a := range aligns {
		reserved += 3
		if a == alignRight {
			reserved += 8
			continue
		}
		textCols++
	}
	if textCols == 0 {
		return 0
	}
	return max((total-reserved)/textCols, minColumnWidth)
}
