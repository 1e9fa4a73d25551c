// Package plot renders the PNG charts of an EDA run with go-chart.
package plot

import (
	"bytes"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/KaramelBytes/edaloom/internal/dataset"
	"github.com/KaramelBytes/edaloom/internal/logging"
	"github.com/KaramelBytes/edaloom/internal/stats"
	"github.com/KaramelBytes/edaloom/internal/utils"
)

// Artifact kinds.
const (
	KindHistogram = "histogram"
	KindBoxPlot   = "boxplot"
	KindHeatmap   = "heatmap"
	KindPairPlot  = "pairplot"
)

const (
	// HistogramBins is the fixed bin count of every histogram.
	HistogramBins = 30
	// MaxPairPlotColumns caps the scatter grid; wider data skips it.
	MaxPairPlotColumns = 5
	// MaxHeatmapColumns caps the correlation heatmap; wider data skips it.
	MaxHeatmapColumns = 250
)

// Artifact is one rendered image.
type Artifact struct {
	Kind   string `json:"kind"`
	Column string `json:"column,omitempty"`
	// Name is the file name inside the run directory.
	Name  string `json:"name"`
	Title string `json:"title"`
	Path  string `json:"-"`
}

// Options picks the optional charts. Histograms are always drawn, and the
// heatmap whenever two or more numeric columns exist.
type Options struct {
	BoxPlots bool
	PairPlot bool
	Logger   *zap.Logger
}

// Render writes the charts for ds into dir and returns them in display order:
// histograms, box plots, heatmap, pair plot. corr may be nil.
func Render(ds *dataset.Dataset, corr *stats.CorrMatrix, dir string, opt Options) ([]Artifact, error) {
	log := logging.OrNop(opt.Logger)
	if err := utils.EnsureDir(dir); err != nil {
		return nil, fmt.Errorf("plot dir: %w", err)
	}
	names := newNamer()
	numeric := ds.NumericColumns()
	var out []Artifact

	emit := func(kind, col, name, title string, draw func(*bytes.Buffer) error) error {
		var buf bytes.Buffer
		if err := draw(&buf); err != nil {
			return fmt.Errorf("render %s %s: %w", kind, name, err)
		}
		path := filepath.Join(dir, name)
		if err := utils.SafeWriteFile(path, buf.Bytes()); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
		log.Debug("chart written", zap.String("kind", kind), zap.String("file", name), zap.Int("bytes", buf.Len()))
		out = append(out, Artifact{Kind: kind, Column: col, Name: name, Title: title, Path: path})
		return nil
	}

	for _, col := range numeric {
		vals := ds.Floats(col)
		name := names.next(utils.SafeFileStem(col) + "_distribution")
		if err := emit(KindHistogram, col, name, "Histogram of "+col, func(b *bytes.Buffer) error {
			return drawHistogram(b, col, vals)
		}); err != nil {
			return out, err
		}
	}
	if opt.BoxPlots {
		for _, col := range numeric {
			vals := ds.Floats(col)
			name := names.next(utils.SafeFileStem(col) + "_boxplot")
			if err := emit(KindBoxPlot, col, name, "Box plot of "+col, func(b *bytes.Buffer) error {
				return drawBoxPlot(b, col, vals)
			}); err != nil {
				return out, err
			}
		}
	}
	if n := len(numeric); n > MaxHeatmapColumns {
		log.Info("heatmap skipped", zap.Int("numeric_columns", n), zap.Int("max", MaxHeatmapColumns))
	} else if n >= 2 {
		if cell, _, _ := heatmapLayout(n); cell < heatmapAnnotateCell {
			log.Debug("heatmap drawn without cell values", zap.Int("numeric_columns", n), zap.Int("cell_px", cell))
		}
		if corr == nil {
			cols := make([][]float64, len(numeric))
			for i, c := range numeric {
				cols[i] = ds.Floats(c)
			}
			corr = stats.Correlate(numeric, cols)
		}
		if err := emit(KindHeatmap, "", names.next("correlation_heatmap"), "Correlation Heatmap", func(b *bytes.Buffer) error {
			return drawHeatmap(b, corr)
		}); err != nil {
			return out, err
		}
	}
	if opt.PairPlot {
		if n := len(numeric); n >= 2 && n <= MaxPairPlotColumns {
			cols := make([][]float64, n)
			for i, c := range numeric {
				cols[i] = ds.Floats(c)
			}
			if err := emit(KindPairPlot, "", names.next("pairplot"), "Pair Plot", func(b *bytes.Buffer) error {
				return drawPairPlot(b, numeric, cols)
			}); err != nil {
				return out, err
			}
		} else {
			log.Debug("pair plot skipped", zap.Int("numeric_columns", n))
		}
	}
	return out, nil
}

// namer hands out unique .png names within one run.
type namer struct{ seen map[string]int }

func newNamer() *namer { return &namer{seen: map[string]int{}} }

func (n *namer) next(stem string) string {
	n.seen[stem]++
	if c := n.seen[stem]; c > 1 {
		candidate := fmt.Sprintf("%s_%d", stem, c)
		for n.seen[candidate] > 0 {
			c++
			candidate = fmt.Sprintf("%s_%d", stem, c)
		}
		n.seen[candidate]++
		return candidate + ".png"
	}
	return stem + ".png"
}
