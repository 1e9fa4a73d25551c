package plot

import (
	"io"
	"math"

	"github.com/KaramelBytes/edaloom/internal/stats"
)

const pairCell = 170

// drawPairPlot draws an n x n grid: scatter plots off the diagonal and a
// histogram of each column on it.
func drawPairPlot(w io.Writer, names []string, cols [][]float64) error {
	n := len(names)
	if n == 0 {
		return errNoValues
	}
	left, top, bottom, right := 90, 50, 50, 20
	width := left + n*pairCell + right
	height := top + n*pairCell + bottom
	c, err := newCanvas(width, height)
	if err != nil {
		return err
	}
	c.text("Pair Plot", width/2, 30, 14, colorInk, alignCenter)

	ranges := make([][2]float64, n)
	for i, col := range cols {
		d := stats.Describe(col)
		lo, hi := padRange(d.Min, d.Max, 0.06)
		ranges[i] = [2]float64{lo, hi}
	}
	inset := 8
	for i := 0; i < n; i++ { // row: y variable
		for j := 0; j < n; j++ { // column: x variable
			x0, y0 := left+j*pairCell, top+i*pairCell
			x1, y1 := x0+pairCell, y0+pairCell
			c.rect(x0+2, y0+2, x1-2, y1-2, colorBackground, colorGrid)
			xs := newScale(ranges[j][0], ranges[j][1], x0+inset, x1-inset)
			if i == j {
				drawMiniHistogram(c, cols[i], xs, y0+inset, y1-inset)
				continue
			}
			ys := newScale(ranges[i][0], ranges[i][1], y1-inset, y0+inset)
			xv, yv := cols[j], cols[i]
			for k := 0; k < len(xv) && k < len(yv); k++ {
				if math.IsNaN(xv[k]) || math.IsNaN(yv[k]) {
					continue
				}
				c.dot(xs.at(xv[k]), ys.at(yv[k]), 2, colorPrimary.WithAlpha(160))
			}
		}
		c.text(c.fit(names[i], 10, left-10), left-6, top+i*pairCell+pairCell/2+4, 10, colorInk, alignRight)
		c.text(c.fit(names[i], 10, pairCell-8), left+i*pairCell+pairCell/2, top+n*pairCell+20, 10, colorInk, alignCenter)
	}
	return c.save(w)
}

func drawMiniHistogram(c *canvas, vals []float64, xs scale, top, bottom int) {
	bins := stats.Histogram(vals, 15)
	peak := 0
	for _, b := range bins {
		if b.Count > peak {
			peak = b.Count
		}
	}
	if peak == 0 {
		return
	}
	ys := newScale(0, float64(peak), bottom, top)
	for _, b := range bins {
		if b.Count == 0 {
			continue
		}
		c.rect(xs.at(b.Lo), ys.at(float64(b.Count)), xs.at(b.Hi), bottom, colorPrimary.WithAlpha(150), colorPrimary)
	}
}
