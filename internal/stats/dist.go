package stats

import "math"

// Bin is one histogram bucket covering [Lo, Hi).
type Bin struct {
	Lo, Hi float64
	Count  int
}

// Histogram splits the finite values into bins equal-width buckets spanning
// [min, max]. The last bucket is closed on the right. A constant input gets a
// unit-wide range centred on the value.
func Histogram(vals []float64, bins int) []Bin {
	xs := Finite(vals)
	if len(xs) == 0 || bins <= 0 {
		return nil
	}
	d := Describe(xs)
	lo, hi := d.Min, d.Max
	if lo == hi {
		lo, hi = lo-0.5, hi+0.5
	}
	width := (hi - lo) / float64(bins)
	out := make([]Bin, bins)
	for i := range out {
		out[i].Lo = lo + float64(i)*width
		out[i].Hi = lo + float64(i+1)*width
	}
	out[bins-1].Hi = hi
	for _, x := range xs {
		i := int((x - lo) / width)
		if i >= bins {
			i = bins - 1
		}
		if i < 0 {
			i = 0
		}
		out[i].Count++
	}
	return out
}

// Bandwidth is Scott's rule of thumb for a Gaussian kernel. It is zero when
// the sample has no spread.
func Bandwidth(vals []float64) float64 {
	d := Describe(vals)
	if d.Count < 2 || math.IsNaN(d.Std) || d.Std == 0 {
		return 0
	}
	return d.Std * math.Pow(float64(d.Count), -0.2)
}

// KDE evaluates a Gaussian kernel density estimate of vals at each point in at.
// It returns nil when the bandwidth is zero.
func KDE(vals, at []float64) []float64 {
	xs := Finite(vals)
	h := Bandwidth(xs)
	if h == 0 {
		return nil
	}
	norm := 1 / (float64(len(xs)) * h * math.Sqrt(2*math.Pi))
	out := make([]float64, len(at))
	for i, p := range at {
		var sum float64
		for _, x := range xs {
			u := (p - x) / h
			sum += math.Exp(-0.5 * u * u)
		}
		out[i] = sum * norm
	}
	return out
}

// Linspace returns n evenly spaced points from lo to hi inclusive.
func Linspace(lo, hi float64, n int) []float64 {
	if n <= 0 {
		return nil
	}
	if n == 1 {
		return []float64{lo}
	}
	out := make([]float64, n)
	step := (hi - lo) / float64(n-1)
	for i := range out {
		out[i] = lo + float64(i)*step
	}
	out[n-1] = hi
	return out
}

// Box holds Tukey box plot statistics.
type Box struct {
	Q1, Median, Q3          float64
	LowWhisker, HighWhisker float64
	Outliers                []float64
}

// BoxStats computes quartiles, whiskers at 1.5 IQR clamped to the data, and
// the points beyond them. ok is false when there are no finite values.
func BoxStats(vals []float64) (Box, bool) {
	s := Sorted(vals)
	if len(s) == 0 {
		return Box{}, false
	}
	b := Box{
		Q1:     Quantile(s, 0.25),
		Median: Quantile(s, 0.5),
		Q3:     Quantile(s, 0.75),
	}
	iqr := b.Q3 - b.Q1
	loFence, hiFence := b.Q1-1.5*iqr, b.Q3+1.5*iqr
	b.LowWhisker, b.HighWhisker = b.Q1, b.Q3
	for _, x := range s {
		if x >= loFence {
			b.LowWhisker = math.Min(x, b.Q1)
			break
		}
	}
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] <= hiFence {
			b.HighWhisker = math.Max(s[i], b.Q3)
			break
		}
	}
	for _, x := range s {
		if x < loFence || x > hiFence {
			b.Outliers = append(b.Outliers, x)
		}
	}
	return b, true
}
