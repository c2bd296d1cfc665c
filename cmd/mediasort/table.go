package main

import (
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/John-Robertt/mediasort/internal/domain"
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
	for i := 0; i < columns; i++ {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for i, row := range rows {
		r := make(table.Row, columns)
		for j := 0; j < columns; j++ {
			if j < len(row) {
				r[j] = row[j]
			}
		}
		// 最后一行是合计：用分隔线隔开。
		if i == len(rows)-1 && len(rows) > 1 {
			tw.AppendSeparator()
		}
		tw.AppendRow(r)
	}

	columnConfigs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		columnConfigs = append(columnConfigs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(columnConfigs)

	return tw.Render()
}

// renderSummary 按分类汇总本次运行的结果，末行为合计。
func renderSummary(rr domain.RunReport) string {
	type counts struct{ copied, renamed, ignored, failed int }

	per := make(map[string]*counts, len(domain.Categories))
	for _, c := range domain.Categories {
		per[c.String()] = &counts{}
	}
	var total counts
	for _, f := range rr.Files {
		c, ok := per[f.Category]
		if !ok {
			c = &counts{}
			per[f.Category] = c
		}
		for _, x := range []*counts{c, &total} {
			switch f.Result {
			case domain.ResultCopied:
				x.copied++
			case domain.ResultRenamed:
				x.renamed++
			case domain.ResultIgnored:
				x.ignored++
			}
			if f.Error != "" {
				x.failed++
			}
		}
	}

	row := func(name string, c counts) []string {
		return []string{name, strconv.Itoa(c.copied), strconv.Itoa(c.renamed), strconv.Itoa(c.ignored), strconv.Itoa(c.failed)}
	}
	rows := make([][]string, 0, len(domain.Categories)+1)
	for _, c := range domain.Categories {
		rows = append(rows, row(c.String(), *per[c.String()]))
	}
	rows = append(rows, row("total", total))

	return renderTable(
		[]string{"Category", "Copied", "Renamed", "Ignored", "Failed"},
		rows,
		[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight},
	)
}
