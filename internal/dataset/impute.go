package dataset

import (
	"github.com/go-gota/gota/series"

	"github.com/KaramelBytes/edaloom/internal/stats"
)

// Fill records the value written into the missing cells of one column.
type Fill struct {
	Column string
	Kind   Kind
	Value  string
	Cells  int
}

// ImputeResult describes what Impute changed.
type ImputeResult struct {
	Filled []Fill
	// Skipped lists columns with no observed value to derive a fill from.
	Skipped []string
}

// Impute fills missing numeric cells with the column median and missing
// categorical cells with the most frequent value (first seen wins a tie).
// Numeric columns that needed filling become float columns. Columns without
// missing cells are left as they are.
func (d *Dataset) Impute() ImputeResult {
	var res ImputeResult
	for _, col := range d.Columns() {
		s := d.series(col)
		missing := s.IsNaN()
		n := 0
		for _, m := range missing {
			if m {
				n++
			}
		}
		if n == 0 {
			continue
		}
		if n == len(missing) {
			res.Skipped = append(res.Skipped, col)
			continue
		}
		if d.Kind(col) == Numeric {
			vals := s.Float()
			med := stats.Median(vals)
			for i, m := range missing {
				if m {
					vals[i] = med
				}
			}
			d.df = d.df.Mutate(series.New(vals, series.Float, col))
			res.Filled = append(res.Filled, Fill{Column: col, Kind: Numeric, Value: stats.Format(med), Cells: n})
			continue
		}
		recs := s.Records()
		present := make([]string, 0, len(recs)-n)
		for i, r := range recs {
			if !missing[i] {
				present = append(present, r)
			}
		}
		mode, _, _ := stats.Mode(present)
		for i, m := range missing {
			if m {
				recs[i] = mode.Value
			}
		}
		d.df = d.df.Mutate(series.New(recs, s.Type(), col))
		res.Filled = append(res.Filled, Fill{Column: col, Kind: Categorical, Value: mode.Value, Cells: n})
	}
	return res
}
