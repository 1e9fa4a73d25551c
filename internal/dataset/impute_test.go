package dataset

import (
	"testing"
)

func TestImputeNoMissingIsNoop(t *testing.T) {
	ds, err := Load(writeFile(t, "clean.csv", "n,c\n1,a\n2,b\n3,a\n"), LoadOptions{})
	if err != nil {
		t.Fatal(err)
	}
	before := ds.Frame().Records()
	res := ds.Impute()
	if len(res.Filled) != 0 || len(res.Skipped) != 0 {
		t.Fatalf("unexpected changes: %+v", res)
	}
	after := ds.Frame().Records()
	for i := range before {
		for j := range before[i] {
			if before[i][j] != after[i][j] {
				t.Fatalf("cell %d,%d changed: %q -> %q", i, j, before[i][j], after[i][j])
			}
		}
	}
	if ds.DType("n") != "int64" {
		t.Fatalf("clean int column should stay int64, got %s", ds.DType("n"))
	}
}

func TestImputeMedianAndMode(t *testing.T) {
	ds, err := Load(writeFile(t, "p.csv", "age,city\n25,NY\n,LA\n35,\n30,NY\n"), LoadOptions{})
	if err != nil {
		t.Fatal(err)
	}
	res := ds.Impute()
	if len(res.Filled) != 2 {
		t.Fatalf("filled: %+v", res.Filled)
	}
	if got := ds.Floats("age")[1]; got != 30 {
		t.Fatalf("age fill=%v want median 30", got)
	}
	if got := ds.Values("city")[2]; got != "NY" {
		t.Fatalf("city fill=%q want NY", got)
	}
	if ds.DType("age") != "float64" {
		t.Fatalf("imputed numeric column should be float64, got %s", ds.DType("age"))
	}
	if ds.Missing().Total() != 0 {
		t.Fatalf("missing after impute: %+v", ds.Missing())
	}
}

func TestImputeEvenCountMedianAndModeTie(t *testing.T) {
	ds, err := Load(writeFile(t, "e.csv", "v,k\n1,b\n2,a\n,\n3,a\n10,b\n"), LoadOptions{})
	if err != nil {
		t.Fatal(err)
	}
	ds.Impute()
	if got := ds.Floats("v")[2]; got != 2.5 {
		t.Fatalf("median fill=%v want 2.5", got)
	}
	if got := ds.Values("k")[2]; got != "b" {
		t.Fatalf("tie should go to first seen value, got %q", got)
	}
}

func TestImputeSkipsAllMissingColumn(t *testing.T) {
	ds, err := Load(writeFile(t, "s.csv", "a,empty\n1,\n2,\n"), LoadOptions{})
	if err != nil {
		t.Fatal(err)
	}
	res := ds.Impute()
	if len(res.Skipped) != 1 || res.Skipped[0] != "empty" {
		t.Fatalf("skipped: %+v", res.Skipped)
	}
	if ds.Missing().Get("empty") != 2 {
		t.Fatalf("all-missing column should stay missing")
	}
}
