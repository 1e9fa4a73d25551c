// Package analysis turns a cleaned Dataset into the text sections of an EDA report.
package analysis

import (
	"math"

	"github.com/KaramelBytes/edaloom/internal/dataset"
	"github.com/KaramelBytes/edaloom/internal/stats"
)

// PreviewRows is how many leading rows the preview shows.
const PreviewRows = 5

// ColumnStats holds the describe() figures for one column. Fields that do not
// apply to the column's kind are NaN (or zero for the integer counts).
type ColumnStats struct {
	Name   string
	DType  string
	Kind   dataset.Kind
	Count  int
	Unique int
	Top    string
	Freq   int

	Mean, Std, Min, Q1, Median, Q3, Max float64
}

// Summary is everything the report and the prompt need from a dataset.
type Summary struct {
	Name          string
	Rows          int
	Cols          int
	Preview       string
	ColumnInfo    string
	Describe      string
	MissingValues string
	MissingBefore dataset.MissingReport
	MissingAfter  dataset.MissingReport
	Columns       []ColumnStats
	Corr          *stats.CorrMatrix
}

// Summarize computes the report sections. missingBefore is the report taken
// before imputation and is what the Missing Values section prints; a nil
// value falls back to the current counts.
func Summarize(ds *dataset.Dataset, missingBefore dataset.MissingReport) *Summary {
	after := ds.Missing()
	if missingBefore == nil {
		missingBefore = after
	}
	s := &Summary{
		Name:          ds.Name,
		Rows:          ds.Rows(),
		Cols:          len(ds.Columns()),
		MissingBefore: missingBefore,
		MissingAfter:  after,
		Corr:          Correlation(ds),
	}
	for _, col := range ds.Columns() {
		s.Columns = append(s.Columns, describeColumn(ds, col))
	}
	s.Preview = previewTable(ds, PreviewRows)
	s.ColumnInfo = columnInfoTable(s.Columns)
	s.Describe = describeTable(s.Columns)
	s.MissingValues = countTable(missingBefore)
	return s
}

// Correlation is the pairwise-complete Pearson matrix of the numeric columns.
func Correlation(ds *dataset.Dataset) *stats.CorrMatrix {
	names := ds.NumericColumns()
	cols := make([][]float64, len(names))
	for i, n := range names {
		cols[i] = ds.Floats(n)
	}
	return stats.Correlate(names, cols)
}

func describeColumn(ds *dataset.Dataset, col string) ColumnStats {
	nan := math.NaN()
	cs := ColumnStats{
		Name: col, DType: ds.DType(col), Kind: ds.Kind(col),
		Mean: nan, Std: nan, Min: nan, Q1: nan, Median: nan, Q3: nan, Max: nan,
	}
	if cs.Kind == dataset.Numeric {
		vals := ds.Floats(col)
		m := stats.Describe(vals)
		sorted := stats.Sorted(vals)
		cs.Count = m.Count
		cs.Mean, cs.Std, cs.Min, cs.Max = m.Mean, m.Std, m.Min, m.Max
		cs.Q1 = stats.Quantile(sorted, 0.25)
		cs.Median = stats.Quantile(sorted, 0.5)
		cs.Q3 = stats.Quantile(sorted, 0.75)
		return cs
	}
	missing := ds.IsMissing(col)
	vals := ds.Values(col)
	present := make([]string, 0, len(vals))
	for i, v := range vals {
		if !missing[i] {
			present = append(present, v)
		}
	}
	cs.Count = len(present)
	if mode, unique, ok := stats.Mode(present); ok {
		cs.Unique, cs.Top, cs.Freq = unique, mode.Value, mode.Count
	}
	return cs
}
