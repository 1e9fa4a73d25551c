package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ledongthuc/pdf"

	"github.com/KaramelBytes/edaloom/internal/analysis"
	"github.com/KaramelBytes/edaloom/internal/dataset"
	"github.com/KaramelBytes/edaloom/internal/plot"
)

func summaryFor(t *testing.T, content string) (*dataset.Dataset, *analysis.Summary) {
	t.Helper()
	p := filepath.Join(t.TempDir(), "in.csv")
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	ds, err := dataset.Load(p, dataset.LoadOptions{})
	if err != nil {
		t.Fatal(err)
	}
	before := ds.Missing()
	ds.Impute()
	return ds, analysis.Summarize(ds, before)
}

func TestAssembleHasAllHeadersInOrder(t *testing.T) {
	_, sum := summaryFor(t, "age,city\n25,NY\n,LA\n35,NY\n")
	text := Assemble(sum, "Ages look normal.")
	if !strings.HasPrefix(text, HeaderLoaded) {
		t.Fatalf("report should start with %q", HeaderLoaded)
	}
	last := -1
	for _, h := range Headers {
		i := strings.Index(text, h)
		if i < 0 || i < last {
			t.Fatalf("header %q missing or out of order:\n%s", h, text)
		}
		last = i
	}
	if !strings.HasSuffix(text, "Ages look normal.\n") {
		t.Fatalf("insights should close the report:\n%s", text)
	}
}

func TestAssembleEmptyInputsStillHasHeaders(t *testing.T) {
	text := Assemble(nil, "")
	for _, h := range append([]string{HeaderLoaded}, Headers...) {
		if !strings.Contains(text, h) {
			t.Fatalf("missing %q", h)
		}
	}
}

func TestWriteInsightsAndReport(t *testing.T) {
	dir := t.TempDir()
	p, err := WriteInsights(dir, "insight body")
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(p) != InsightsFileName {
		t.Fatalf("path=%s", p)
	}
	b, _ := os.ReadFile(p)
	if string(b) != "insight body\n" {
		t.Fatalf("content=%q", b)
	}
	if _, err := WriteReport(dir, "x"); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(dir, ReportFileName)); err != nil {
		t.Fatalf("report file: %v", err)
	}
}

func pageCount(t *testing.T, path string) int {
	t.Helper()
	f, r, err := pdf.Open(path)
	if err != nil {
		t.Fatalf("open pdf: %v", err)
	}
	defer f.Close()
	return r.NumPage()
}

func TestExportPDFOnePagePerPlot(t *testing.T) {
	ds, sum := summaryFor(t, "x,y\n1,2\n2,4\n3,7\n4,8\n")
	dir := t.TempDir()
	arts, err := plot.Render(ds, sum.Corr, dir, plot.Options{BoxPlots: true})
	if err != nil {
		t.Fatal(err)
	}
	p, err := ExportPDF(dir, "in.csv", arts)
	if err != nil {
		t.Fatalf("ExportPDF: %v", err)
	}
	if got := pageCount(t, p); got != len(arts) {
		t.Fatalf("pages=%d want %d", got, len(arts))
	}
}

func TestExportPDFWithoutPlots(t *testing.T) {
	p, err := ExportPDF(t.TempDir(), "empty", nil)
	if err != nil {
		t.Fatal(err)
	}
	if got := pageCount(t, p); got != 1 {
		t.Fatalf("pages=%d want 1", got)
	}
}
