package plot

import (
	"fmt"
	"io"
	"math"

	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/KaramelBytes/edaloom/internal/stats"
)

// coolwarm endpoints and midpoint.
var (
	coolLow  = drawing.Color{R: 59, G: 76, B: 192, A: 255}
	coolMid  = drawing.Color{R: 221, G: 221, B: 221, A: 255}
	coolHigh = drawing.Color{R: 180, G: 4, B: 38, A: 255}
	colorNaN = drawing.Color{R: 245, G: 245, B: 245, A: 255}
)

func lerp(a, b drawing.Color, t float64) drawing.Color {
	mix := func(x, y uint8) uint8 { return uint8(math.Round(float64(x) + (float64(y)-float64(x))*t)) }
	return drawing.Color{R: mix(a.R, b.R), G: mix(a.G, b.G), B: mix(a.B, b.B), A: 255}
}

// diverging maps r in [-1, 1] onto the blue-white-red palette.
func diverging(r float64) drawing.Color {
	if math.IsNaN(r) {
		return colorNaN
	}
	r = math.Max(-1, math.Min(1, r))
	if r < 0 {
		return lerp(coolMid, coolLow, -r)
	}
	return lerp(coolMid, coolHigh, r)
}

const (
	heatmapTop, heatmapLeft = 60, 140
	heatmapBottom           = 70
	heatmapBarSpace         = 110
	// minimum cell sizes (px) for a readable square, its value and its axis label
	heatmapMinCell      = 4
	heatmapAnnotateCell = 28
	heatmapLabelCell    = 12
)

// heatmapLayout picks the cell size for n columns and the canvas that holds
// them. Cells shrink to fit 800x500 down to heatmapMinCell, then the canvas grows.
func heatmapLayout(n int) (cell, width, height int) {
	width, height = 800, 500
	grid := height - heatmapTop - heatmapBottom
	if avail := width - heatmapLeft - heatmapBarSpace; avail < grid {
		grid = avail
	}
	cell = grid / n
	if cell < heatmapMinCell {
		cell = heatmapMinCell
		width = max(width, heatmapLeft+cell*n+heatmapBarSpace)
		height = max(height, heatmapTop+cell*n+heatmapBottom)
	}
	return cell, width, height
}

// drawHeatmap renders the correlation matrix as cells with a colour bar. Values
// are printed in the cells and column names on the axes only while they fit.
func drawHeatmap(w io.Writer, m *stats.CorrMatrix) error {
	n := len(m.Columns)
	if n == 0 {
		return errNoValues
	}
	const (
		top, left = heatmapTop, heatmapLeft
		barWidth  = 18
	)
	cell, width, height := heatmapLayout(n)
	c, err := newCanvas(width, height)
	if err != nil {
		return err
	}
	grid := cell * n
	annotate := cell >= heatmapAnnotateCell
	labels := cell >= heatmapLabelCell

	c.text("Correlation Heatmap", width/2, 34, 14, colorInk, alignCenter)
	fontSize := math.Max(7, math.Min(12, float64(cell)/5))
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			x0, y0 := left+j*cell, top+i*cell
			v := m.Values[i][j]
			c.rect(x0, y0, x0+cell, y0+cell, diverging(v), colorBackground)
			if !annotate {
				continue
			}
			label := "nan"
			if !math.IsNaN(v) {
				label = fmt.Sprintf("%.2f", v)
			}
			ink := colorInk
			if !math.IsNaN(v) && math.Abs(v) > 0.6 {
				ink = colorBackground
			}
			c.text(label, x0+cell/2, y0+cell/2+int(fontSize/2), fontSize, ink, alignCenter)
		}
		if labels {
			c.text(c.fit(m.Columns[i], 10, left-12), left-8, top+i*cell+cell/2+4, 10, colorInk, alignRight)
			c.text(c.fit(m.Columns[i], 10, cell-4), left+i*cell+cell/2, top+grid+18, 10, colorInk, alignCenter)
		}
	}

	// colour bar from -1 (bottom) to 1 (top)
	bx := left + grid + 30
	steps := 50
	for s := 0; s < steps; s++ {
		v := 1 - 2*float64(s)/float64(steps)
		y0 := top + s*grid/steps
		y1 := top + (s+1)*grid/steps
		col := diverging(v)
		c.rect(bx, y0, bx+barWidth, y1, col, col)
	}
	for _, t := range []float64{-1, -0.5, 0, 0.5, 1} {
		y := top + int(math.Round((1-t)/2*float64(grid)))
		c.line(bx+barWidth, y, bx+barWidth+4, y, colorInk, 1)
		c.text(tickLabel(t), bx+barWidth+7, y+4, 9, colorInk, alignLeft)
	}
	return c.save(w)
}
