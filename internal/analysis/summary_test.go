package analysis

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/KaramelBytes/edaloom/internal/dataset"
)

func loadFixture(t *testing.T, content string) *dataset.Dataset {
	t.Helper()
	p := filepath.Join(t.TempDir(), "fixture.csv")
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	ds, err := dataset.Load(p, dataset.LoadOptions{})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	return ds
}

func fieldsOf(s string) [][]string {
	var out [][]string
	for _, l := range strings.Split(s, "\n") {
		out = append(out, strings.Fields(l))
	}
	return out
}

func TestSummarizeAgeCity(t *testing.T) {
	ds := loadFixture(t, "age,city\n25,NY\n,LA\n35,NY\n30,SF\n")
	before := ds.Missing()
	ds.Impute()
	s := Summarize(ds, before)

	if s.Rows != 4 || s.Cols != 2 {
		t.Fatalf("shape: %dx%d", s.Rows, s.Cols)
	}
	if s.MissingBefore.Get("age") != 1 || s.MissingAfter.Total() != 0 {
		t.Fatalf("missing before=%+v after=%+v", s.MissingBefore, s.MissingAfter)
	}

	info := fieldsOf(s.ColumnInfo)
	if len(info) != 2 || info[0][0] != "age" || info[0][1] != "float64" || info[1][0] != "city" || info[1][1] != "object" {
		t.Fatalf("column info:\n%s", s.ColumnInfo)
	}

	miss := fieldsOf(s.MissingValues)
	if len(miss) != 2 || miss[0][0] != "age" || miss[0][1] != "1" || miss[1][1] != "0" {
		t.Fatalf("missing values:\n%s", s.MissingValues)
	}

	preview := fieldsOf(s.Preview)
	if len(preview) != 5 {
		t.Fatalf("preview should have a header and 4 rows:\n%s", s.Preview)
	}
	if got := preview[2]; len(got) != 3 || got[0] != "1" || got[1] != "30.0" || got[2] != "LA" {
		t.Fatalf("imputed row: %v", got)
	}

	for _, want := range []string{"count", "unique", "top", "freq", "mean", "std", "min", "25%", "50%", "75%", "max"} {
		if !strings.Contains(s.Describe, want) {
			t.Fatalf("describe is missing %q:\n%s", want, s.Describe)
		}
	}
	age := s.Columns[0]
	if age.Count != 4 || age.Median != 30 || age.Mean != 30 || age.Min != 25 || age.Max != 35 {
		t.Fatalf("age stats: %+v", age)
	}
	city := s.Columns[1]
	if city.Unique != 3 || city.Top != "NY" || city.Freq != 2 || !math.IsNaN(city.Mean) {
		t.Fatalf("city stats: %+v", city)
	}
}

func TestPreviewCapsAtFiveRows(t *testing.T) {
	var b strings.Builder
	b.WriteString("n\n")
	for i := 0; i < 12; i++ {
		b.WriteString("1\n")
	}
	s := Summarize(loadFixture(t, b.String()), nil)
	if got := len(strings.Split(s.Preview, "\n")); got != PreviewRows+1 {
		t.Fatalf("preview lines=%d:\n%s", got, s.Preview)
	}
}

func TestDescribeNaNForInapplicableCells(t *testing.T) {
	s := Summarize(loadFixture(t, "x,label\n1,a\n2,b\n"), nil)
	rows := fieldsOf(s.Describe)
	for _, r := range rows {
		if len(r) == 0 {
			continue
		}
		switch r[0] {
		case "top":
			if r[1] != "NaN" || r[2] != "a" {
				t.Fatalf("top row: %v", r)
			}
		case "mean":
			if r[1] != "1.5" || r[2] != "NaN" {
				t.Fatalf("mean row: %v", r)
			}
		}
	}
}

func TestCorrelationNumericOnly(t *testing.T) {
	ds := loadFixture(t, "a,b,c\n1,2,x\n2,4,y\n3,6,z\n")
	m := Correlation(ds)
	if len(m.Columns) != 2 {
		t.Fatalf("columns: %v", m.Columns)
	}
	if math.Abs(m.At("a", "b")-1) > 1e-12 {
		t.Fatalf("r=%v", m.At("a", "b"))
	}
}

func TestSummarizeHeaderOnly(t *testing.T) {
	s := Summarize(loadFixture(t, "a,b\n"), nil)
	if !strings.HasPrefix(s.Preview, "Empty DataFrame") {
		t.Fatalf("preview: %q", s.Preview)
	}
	if len(fieldsOf(s.ColumnInfo)) != 2 {
		t.Fatalf("column info: %q", s.ColumnInfo)
	}
}
