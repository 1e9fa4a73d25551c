package plot

import (
	"errors"
	"io"
	"math"
	"strconv"

	"github.com/wcharczuk/go-chart/v2"

	"github.com/KaramelBytes/edaloom/internal/stats"
)

const (
	histWidth  = 600
	histHeight = 400
	kdePoints  = 200
)

var errNoValues = errors.New("no finite values")

// drawHistogram renders 30 count bins as a filled step outline with a
// Gaussian KDE curve scaled to the same counts.
func drawHistogram(w io.Writer, col string, vals []float64) error {
	bins := stats.Histogram(vals, HistogramBins)
	if len(bins) == 0 {
		return errNoValues
	}
	lo, hi := bins[0].Lo, bins[len(bins)-1].Hi
	width := bins[0].Hi - bins[0].Lo

	xs := make([]float64, 0, 2*len(bins)+2)
	ys := make([]float64, 0, 2*len(bins)+2)
	xs, ys = append(xs, lo), append(ys, 0)
	peak := 0.0
	for _, b := range bins {
		c := float64(b.Count)
		xs = append(xs, b.Lo, b.Hi)
		ys = append(ys, c, c)
		peak = math.Max(peak, c)
	}
	xs, ys = append(xs, hi), append(ys, 0)

	series := []chart.Series{chart.ContinuousSeries{
		Name:    "count",
		XValues: xs,
		YValues: ys,
		Style: chart.Style{
			StrokeColor: colorPrimary,
			StrokeWidth: 1,
			FillColor:   colorPrimary.WithAlpha(110),
		},
	}}

	finite := stats.Finite(vals)
	at := stats.Linspace(lo, hi, kdePoints)
	if dens := stats.KDE(finite, at); dens != nil {
		scaled := make([]float64, len(dens))
		k := float64(len(finite)) * width
		for i, d := range dens {
			scaled[i] = d * k
			peak = math.Max(peak, scaled[i])
		}
		series = append(series, chart.ContinuousSeries{
			Name:    "kde",
			XValues: at,
			YValues: scaled,
			Style:   chart.Style{StrokeColor: colorPrimary, StrokeWidth: 2.5},
		})
	}

	ch := chart.Chart{
		Title:      "Histogram of " + col,
		Width:      histWidth,
		Height:     histHeight,
		Background: chart.Style{Padding: chart.Box{Top: 48, Left: 16, Right: 16, Bottom: 16}},
		XAxis: chart.XAxis{
			Name:           col,
			Range:          &chart.ContinuousRange{Min: lo, Max: hi},
			ValueFormatter: func(v interface{}) string { return tickLabel(v.(float64)) },
		},
		YAxis: chart.YAxis{
			Name:  "Frequency",
			Range: &chart.ContinuousRange{Min: 0, Max: math.Ceil(peak*1.1) + 1},
			ValueFormatter: func(v interface{}) string {
				return strconv.FormatFloat(v.(float64), 'f', 0, 64)
			},
		},
		Series: series,
	}
	return ch.Render(chart.PNG, w)
}
