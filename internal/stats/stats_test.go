package stats

import (
	"math"
	"testing"
)

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestQuantileLinear(t *testing.T) {
	s := []float64{1, 2, 3, 4}
	cases := map[float64]float64{0: 1, 0.25: 1.75, 0.5: 2.5, 0.75: 3.25, 1: 4}
	for q, want := range cases {
		if got := Quantile(s, q); !approx(got, want) {
			t.Fatalf("q=%v got %v want %v", q, got, want)
		}
	}
	if !math.IsNaN(Quantile(nil, 0.5)) {
		t.Fatalf("expected NaN for empty input")
	}
}

func TestMedianIgnoresNaN(t *testing.T) {
	got := Median([]float64{30, math.NaN(), 25, 35})
	if got != 30 {
		t.Fatalf("median=%v want 30", got)
	}
}

func TestDescribe(t *testing.T) {
	d := Describe([]float64{2, 4, 4, 4, 5, 5, 7, 9, math.NaN()})
	if d.Count != 8 || d.Min != 2 || d.Max != 9 || !approx(d.Mean, 5) {
		t.Fatalf("unexpected moments: %+v", d)
	}
	if !approx(d.Std, math.Sqrt(32.0/7.0)) {
		t.Fatalf("std=%v", d.Std)
	}
	one := Describe([]float64{3})
	if one.Count != 1 || !math.IsNaN(one.Std) {
		t.Fatalf("single value should have NaN std: %+v", one)
	}
}

func TestModeFirstWinsOnTie(t *testing.T) {
	m, unique, ok := Mode([]string{"LA", "NY", "NY", "LA", "SF"})
	if !ok || m.Value != "LA" || m.Count != 2 || unique != 3 {
		t.Fatalf("got %+v unique=%d ok=%v", m, unique, ok)
	}
	if _, _, ok := Mode(nil); ok {
		t.Fatalf("empty input should not report a mode")
	}
}

func TestCorrelate(t *testing.T) {
	x := []float64{1, 2, 3, 4}
	y := []float64{2, 4, 6, 8}
	z := []float64{4, 3, 2, 1}
	c := []float64{5, 5, 5, 5}
	m := Correlate([]string{"x", "y", "z", "c"}, [][]float64{x, y, z, c})
	if !approx(m.At("x", "y"), 1) || !approx(m.At("x", "z"), -1) {
		t.Fatalf("unexpected coefficients: %v", m.Values)
	}
	if !math.IsNaN(m.At("x", "c")) || !math.IsNaN(m.At("c", "c")) {
		t.Fatalf("constant column should be NaN")
	}
	for i := range m.Values {
		for j := range m.Values {
			a, b := m.Values[i][j], m.Values[j][i]
			if !(a == b || (math.IsNaN(a) && math.IsNaN(b))) {
				t.Fatalf("matrix not symmetric at %d,%d", i, j)
			}
		}
	}
}

func TestPearsonPairwiseComplete(t *testing.T) {
	x := []float64{1, 2, math.NaN(), 4}
	y := []float64{1, 2, 100, 4}
	if r := Pearson(x, y); !approx(r, 1) {
		t.Fatalf("r=%v", r)
	}
}

func TestFormat(t *testing.T) {
	cases := map[float64]string{30: "30.0", 2.5: "2.5", -1: "-1.0", 1.0 / 3: "0.3333333333"}
	for v, want := range cases {
		if got := Format(v); got != want {
			t.Fatalf("Format(%v)=%q want %q", v, got, want)
		}
	}
	if Format(math.NaN()) != "NaN" {
		t.Fatal("NaN should print as NaN")
	}
}
