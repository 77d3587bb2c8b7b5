package report

import (
	"fmt"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/smazurov/permutor/internal/trial"
)

// Table renders rows under headers in the rounded style shared by every
// console table. Short rows are padded with empty cells and the columns
// listed in right are right aligned.
func Table(headers []string, rows [][]string, right ...int) string {
	if len(headers) == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(cells(headers, len(headers)))
	for _, row := range rows {
		tw.AppendRow(cells(row, len(headers)))
	}

	var configs []table.ColumnConfig
	for _, col := range right {
		if col < 0 || col >= len(headers) {
			continue
		}
		configs = append(configs, table.ColumnConfig{Number: col + 1, Align: text.AlignRight, AlignHeader: text.AlignLeft})
	}
	tw.SetColumnConfigs(configs)

	return tw.Render()
}

// cells pads or truncates values to width.
func cells(values []string, width int) table.Row {
	row := make(table.Row, width)
	for i := range row {
		row[i] = ""
	}
	for i, v := range values[:min(len(values), width)] {
		row[i] = v
	}
	return row
}

var summaryHeaders = []string{"Resolution", "FPS", "Bitrate", "VMAF", "Avg FPS", "1% Low", "90%", "Overloaded", "Settings"}

// RenderTable renders results as a console summary table.
func RenderTable(results []trial.Result) string {
	if len(results) == 0 {
		return ""
	}

	rows := make([][]string, 0, len(results))
	for _, res := range results {
		score := "-"
		if res.HasQuality {
			score = fmt.Sprintf("%.5f", res.QualityScore)
		}
		overloaded := ""
		if res.WasOverloaded {
			overloaded = "yes"
		}
		rows = append(rows, []string{
			res.Metadata.Resolution(),
			strconv.Itoa(res.Metadata.FPS),
			fmt.Sprintf("%dMb/s", res.Bitrate),
			score,
			strconv.Itoa(res.FPS.Avg),
			strconv.Itoa(res.FPS.OnePercentLow),
			strconv.Itoa(res.FPS.NinetyPercentile),
			overloaded,
			res.Settings,
		})
	}
	return Table(summaryHeaders, rows, 1, 2, 3, 4, 5, 6)
}
