// Package dataset loads tabular files into memory and fills their missing cells.
package dataset

import (
	"errors"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"github.com/KaramelBytes/edaloom/internal/stats"
)

var (
	// ErrEmptyInput is returned when a file has no header row at all.
	ErrEmptyInput = errors.New("empty input: no columns to parse")
	// ErrUnsupportedFormat is returned when no loader accepts the file name.
	ErrUnsupportedFormat = errors.New("unsupported file format")
)

// Kind classifies a column for cleaning, summary and charting.
type Kind int

const (
	Categorical Kind = iota
	Numeric
)

func (k Kind) String() string {
	if k == Numeric {
		return "numeric"
	}
	return "categorical"
}

// Dataset is an in-memory table of equally long, named columns.
type Dataset struct {
	Name string
	df   dataframe.DataFrame
}

// FromFrame wraps an already built frame.
func FromFrame(name string, df dataframe.DataFrame) *Dataset {
	return &Dataset{Name: name, df: df}
}

// Frame exposes the underlying gota frame.
func (d *Dataset) Frame() dataframe.DataFrame { return d.df }

func (d *Dataset) Rows() int { return d.df.Nrow() }

// Columns returns column names in file order.
func (d *Dataset) Columns() []string { return d.df.Names() }

func (d *Dataset) series(col string) series.Series { return d.df.Col(col) }

// Kind reports whether col holds numbers or categories.
func (d *Dataset) Kind(col string) Kind {
	switch d.series(col).Type() {
	case series.Int, series.Float:
		return Numeric
	default:
		return Categorical
	}
}

// DType names the column type: int64, float64, bool or object.
func (d *Dataset) DType(col string) string {
	switch d.series(col).Type() {
	case series.Int:
		return "int64"
	case series.Float:
		return "float64"
	case series.Bool:
		return "bool"
	default:
		return "object"
	}
}

// NumericColumns lists numeric columns in file order.
func (d *Dataset) NumericColumns() []string {
	var out []string
	for _, c := range d.Columns() {
		if d.Kind(c) == Numeric {
			out = append(out, c)
		}
	}
	return out
}

// Floats returns a numeric column as float64 with NaN for missing cells.
func (d *Dataset) Floats(col string) []float64 { return d.series(col).Float() }

// Values returns the cells of col as text; missing cells come back as "".
func (d *Dataset) Values(col string) []string {
	s := d.series(col)
	recs := s.Records()
	nan := s.IsNaN()
	for i := range recs {
		if nan[i] {
			recs[i] = ""
		}
	}
	return recs
}

// Cell formats one cell for display. Missing cells print as NaN.
func (d *Dataset) Cell(row int, col string) string {
	s := d.series(col)
	e := s.Elem(row)
	if e.IsNA() {
		return "NaN"
	}
	if s.Type() == series.Float {
		return stats.Format(e.Float())
	}
	return e.String()
}

// IsMissing flags the missing cells of col.
func (d *Dataset) IsMissing(col string) []bool { return d.series(col).IsNaN() }

// ColumnCount pairs a column with a count.
type ColumnCount struct {
	Column string
	Count  int
}

// MissingReport lists the missing cell count of every column in file order.
type MissingReport []ColumnCount

// Total sums the counts.
func (m MissingReport) Total() int {
	n := 0
	for _, c := range m {
		n += c.Count
	}
	return n
}

// Get returns the count for col, or 0 when the column is unknown.
func (m MissingReport) Get(col string) int {
	for _, c := range m {
		if c.Column == col {
			return c.Count
		}
	}
	return 0
}

// Missing counts missing cells per column.
func (d *Dataset) Missing() MissingReport {
	cols := d.Columns()
	out := make(MissingReport, 0, len(cols))
	for _, c := range cols {
		n := 0
		for _, m := range d.IsMissing(c) {
			if m {
				n++
			}
		}
		out = append(out, ColumnCount{Column: c, Count: n})
	}
	return out
}
