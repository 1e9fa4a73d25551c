package stats

import "math"

// CorrMatrix holds a symmetric Pearson correlation matrix across numeric columns.
type CorrMatrix struct {
	Columns []string
	Values  [][]float64 // row-major, Values[i][j]; NaN when undefined
}

// At returns the coefficient for the named pair, or NaN if either is unknown.
func (m *CorrMatrix) At(a, b string) float64 {
	ia, ib := -1, -1
	for i, c := range m.Columns {
		if c == a {
			ia = i
		}
		if c == b {
			ib = i
		}
	}
	if ia < 0 || ib < 0 {
		return math.NaN()
	}
	return m.Values[ia][ib]
}

// pairAcc accumulates the sums needed for an exact Pearson coefficient.
type pairAcc struct {
	n, sumX, sumY, sumXX, sumYY, sumXY float64
}

func (p *pairAcc) add(x, y float64) {
	p.n++
	p.sumX += x
	p.sumY += y
	p.sumXX += x * x
	p.sumYY += y * y
	p.sumXY += x * y
}

func (p *pairAcc) r() float64 {
	if p.n < 2 {
		return math.NaN()
	}
	denom := math.Sqrt((p.n*p.sumXX - p.sumX*p.sumX) * (p.n*p.sumYY - p.sumY*p.sumY))
	if denom == 0 || math.IsNaN(denom) {
		return math.NaN()
	}
	r := (p.n*p.sumXY - p.sumX*p.sumY) / denom
	if r > 1 {
		r = 1
	} else if r < -1 {
		r = -1
	}
	return r
}

// Pearson returns the correlation of xs and ys over the rows where both are
// finite. It is NaN when fewer than two complete pairs exist or a side is constant.
func Pearson(xs, ys []float64) float64 {
	var acc pairAcc
	n := len(xs)
	if len(ys) < n {
		n = len(ys)
	}
	for i := 0; i < n; i++ {
		x, y := xs[i], ys[i]
		if math.IsNaN(x) || math.IsNaN(y) || math.IsInf(x, 0) || math.IsInf(y, 0) {
			continue
		}
		acc.add(x, y)
	}
	return acc.r()
}

// Correlate builds the pairwise-complete Pearson matrix for the given columns.
// The diagonal is 1 for columns that vary and NaN for constant ones.
func Correlate(names []string, cols [][]float64) *CorrMatrix {
	n := len(names)
	m := &CorrMatrix{Columns: append([]string(nil), names...), Values: make([][]float64, n)}
	for i := range m.Values {
		m.Values[i] = make([]float64, n)
	}
	for a := 0; a < n; a++ {
		for b := a; b < n; b++ {
			r := Pearson(cols[a], cols[b])
			if a == b && !math.IsNaN(r) {
				r = 1
			}
			m.Values[a][b] = r
			m.Values[b][a] = r
		}
	}
	return m
}
