package report

import (
	"bytes"
	"fmt"
	"path/filepath"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/KaramelBytes/edaloom/internal/plot"
	"github.com/KaramelBytes/edaloom/internal/utils"
)

// ExportPDF writes visual_report.pdf into dir with one A4 page per chart:
// the chart title followed by the image scaled to the page width. Without
// charts the document has a single page saying so.
func ExportPDF(dir, title string, artifacts []plot.Artifact) (string, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(title, true)
	pdf.SetCreator("edaloom", true)
	pdf.SetCreationDate(time.Now())
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pageW, pageH := pdf.GetPageSize()
	left, _, right, bottom := pdf.GetMargins()
	usableW := pageW - left - right

	header := func(text string) {
		pdf.SetFont("Helvetica", "B", 16)
		pdf.CellFormat(usableW, 10, tr(text), "", 1, "C", false, 0, "")
		pdf.Ln(4)
	}

	if len(artifacts) == 0 {
		pdf.AddPage()
		header(title)
		pdf.SetFont("Helvetica", "", 12)
		pdf.MultiCell(usableW, 6, tr("No plots were rendered for this run."), "", "L", false)
	}
	for _, a := range artifacts {
		pdf.AddPage()
		header(a.Title)
		path := a.Path
		if path == "" {
			path = filepath.Join(dir, a.Name)
		}
		opts := fpdf.ImageOptions{ImageType: "PNG", ReadDpi: false}
		info := pdf.RegisterImageOptions(path, opts)
		if info == nil || pdf.Err() {
			return "", fmt.Errorf("pdf image %s: %w", a.Name, pdf.Error())
		}
		w := usableW
		h := w * info.Height() / info.Width()
		maxH := pageH - pdf.GetY() - bottom
		if h > maxH {
			h = maxH
			w = h * info.Width() / info.Height()
		}
		x := left + (usableW-w)/2
		pdf.ImageOptions(path, x, pdf.GetY(), w, h, false, opts, 0, "")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return "", fmt.Errorf("render pdf: %w", err)
	}
	if err := utils.EnsureDir(dir); err != nil {
		return "", fmt.Errorf("report dir: %w", err)
	}
	out := filepath.Join(dir, PDFFileName)
	if err := utils.SafeWriteFile(out, buf.Bytes()); err != nil {
		return "", fmt.Errorf("write pdf: %w", err)
	}
	return out, nil
}
