package analysis

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"

	"github.com/KaramelBytes/edaloom/internal/dataset"
	"github.com/KaramelBytes/edaloom/internal/stats"
)

// newPlainTable configures a borderless, right-aligned fixed-width table.
func newPlainTable(buf *bytes.Buffer) *tablewriter.Table {
	tw := tablewriter.NewWriter(buf)
	tw.SetAutoWrapText(false)
	tw.SetAutoFormatHeaders(false)
	tw.SetHeaderAlignment(tablewriter.ALIGN_RIGHT)
	tw.SetAlignment(tablewriter.ALIGN_RIGHT)
	tw.SetCenterSeparator("")
	tw.SetColumnSeparator("")
	tw.SetRowSeparator("")
	tw.SetHeaderLine(false)
	tw.SetBorder(false)
	tw.SetTablePadding("  ")
	tw.SetNoWhiteSpace(true)
	return tw
}

func render(buf *bytes.Buffer) string {
	var lines []string
	for _, l := range strings.Split(buf.String(), "\n") {
		l = strings.TrimRight(l, " ")
		if strings.TrimSpace(l) != "" {
			lines = append(lines, l)
		}
	}
	return strings.Join(lines, "\n")
}

func previewTable(ds *dataset.Dataset, n int) string {
	cols := ds.Columns()
	if len(cols) == 0 {
		return "Empty DataFrame"
	}
	if ds.Rows() == 0 {
		return "Empty DataFrame\nColumns: [" + strings.Join(cols, ", ") + "]\nIndex: []"
	}
	if n > ds.Rows() {
		n = ds.Rows()
	}
	var buf bytes.Buffer
	tw := newPlainTable(&buf)
	tw.SetHeader(append([]string{""}, cols...))
	for r := 0; r < n; r++ {
		row := make([]string, 0, len(cols)+1)
		row = append(row, strconv.Itoa(r))
		for _, c := range cols {
			row = append(row, ds.Cell(r, c))
		}
		tw.Append(row)
	}
	tw.Render()
	return render(&buf)
}

func columnInfoTable(cols []ColumnStats) string {
	var buf bytes.Buffer
	tw := newPlainTable(&buf)
	tw.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT})
	for _, c := range cols {
		tw.Append([]string{c.Name, c.DType})
	}
	tw.Render()
	return render(&buf)
}

var describeRows = []string{"count", "unique", "top", "freq", "mean", "std", "min", "25%", "50%", "75%", "max"}

func describeTable(cols []ColumnStats) string {
	if len(cols) == 0 {
		return "Empty DataFrame"
	}
	var buf bytes.Buffer
	tw := newPlainTable(&buf)
	header := []string{""}
	for _, c := range cols {
		header = append(header, c.Name)
	}
	tw.SetHeader(header)
	for _, stat := range describeRows {
		row := []string{stat}
		for _, c := range cols {
			row = append(row, describeCell(c, stat))
		}
		tw.Append(row)
	}
	tw.Render()
	return render(&buf)
}

func describeCell(c ColumnStats, stat string) string {
	numeric := c.Kind == dataset.Numeric
	switch stat {
	case "count":
		return stats.Format(float64(c.Count))
	case "unique":
		if numeric || c.Count == 0 {
			return "NaN"
		}
		return strconv.Itoa(c.Unique)
	case "top":
		if numeric || c.Count == 0 {
			return "NaN"
		}
		return c.Top
	case "freq":
		if numeric || c.Count == 0 {
			return "NaN"
		}
		return strconv.Itoa(c.Freq)
	case "mean":
		return stats.Format(c.Mean)
	case "std":
		return stats.Format(c.Std)
	case "min":
		return stats.Format(c.Min)
	case "25%":
		return stats.Format(c.Q1)
	case "50%":
		return stats.Format(c.Median)
	case "75%":
		return stats.Format(c.Q3)
	case "max":
		return stats.Format(c.Max)
	}
	return "NaN"
}

func countTable(m dataset.MissingReport) string {
	if len(m) == 0 {
		return "Series([], dtype: int64)"
	}
	var buf bytes.Buffer
	tw := newPlainTable(&buf)
	tw.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT})
	for _, c := range m {
		tw.Append([]string{c.Column, strconv.Itoa(c.Count)})
	}
	tw.Render()
	return render(&buf)
}
