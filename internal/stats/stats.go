// Package stats holds the small numeric kernels shared by the cleaner, the
// summarizer and the chart renderers. Every function ignores NaN inputs.
package stats

import (
	"math"
	"sort"
	"strconv"
)

// Finite returns the non-NaN, non-Inf values of vals in their original order.
func Finite(vals []float64) []float64 {
	out := make([]float64, 0, len(vals))
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		out = append(out, v)
	}
	return out
}

// Sorted returns a sorted copy of the finite values in vals.
func Sorted(vals []float64) []float64 {
	cp := Finite(vals)
	sort.Float64s(cp)
	return cp
}

// Quantile returns the q-th quantile of an already sorted slice, interpolating
// linearly between the closest ranks (the R-7 definition), or NaN when empty.
func Quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return math.NaN()
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	w := pos - float64(lo)
	return sorted[lo]*(1-w) + sorted[hi]*w
}

// Median returns the median of the finite values, NaN when there are none.
func Median(vals []float64) float64 {
	return Quantile(Sorted(vals), 0.5)
}

// Moments summarizes a numeric column.
type Moments struct {
	Count int
	Mean  float64
	Std   float64 // sample standard deviation (n-1); NaN when Count < 2
	Min   float64
	Max   float64
}

// Describe computes count, mean, sample std, min and max in one pass (Welford).
func Describe(vals []float64) Moments {
	m := Moments{Mean: math.NaN(), Std: math.NaN(), Min: math.NaN(), Max: math.NaN()}
	var mean, m2 float64
	for _, x := range vals {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			continue
		}
		m.Count++
		if m.Count == 1 {
			m.Min, m.Max = x, x
		}
		if x < m.Min {
			m.Min = x
		}
		if x > m.Max {
			m.Max = x
		}
		delta := x - mean
		mean += delta / float64(m.Count)
		m2 += delta * (x - mean)
	}
	if m.Count > 0 {
		m.Mean = mean
	}
	if m.Count > 1 {
		m.Std = math.Sqrt(m2 / float64(m.Count-1))
	}
	return m
}

// Frequency is a value and how many times it occurs.
type Frequency struct {
	Value string
	Count int
}

// Mode returns the most frequent value. Ties go to the value seen first.
// ok is false when vals is empty.
func Mode(vals []string) (mode Frequency, unique int, ok bool) {
	counts := make(map[string]int, len(vals))
	order := make([]string, 0)
	for _, v := range vals {
		if _, seen := counts[v]; !seen {
			order = append(order, v)
		}
		counts[v]++
	}
	for _, v := range order {
		if c := counts[v]; c > mode.Count {
			mode = Frequency{Value: v, Count: c}
		}
	}
	return mode, len(order), len(order) > 0
}

// Format prints whole numbers with one decimal (30.0) and everything
// else in the shortest exact form.
func Format(v float64) string {
	switch {
	case math.IsNaN(v):
		return "NaN"
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	case v == math.Trunc(v) && math.Abs(v) < 1e15:
		return strconv.FormatFloat(v, 'f', 1, 64)
	}
	return strconv.FormatFloat(v, 'g', 10, 64)
}
