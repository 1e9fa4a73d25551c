package plot

import (
	"io"

	"github.com/KaramelBytes/edaloom/internal/stats"
)

const (
	boxWidth  = 600
	boxHeight = 400
)

// drawBoxPlot draws a vertical Tukey box plot: quartile box, median line,
// whiskers at 1.5 IQR and outliers as dots.
func drawBoxPlot(w io.Writer, col string, vals []float64) error {
	b, ok := stats.BoxStats(vals)
	if !ok {
		return errNoValues
	}
	d := stats.Describe(vals)
	c, err := newCanvas(boxWidth, boxHeight)
	if err != nil {
		return err
	}
	left, right, top, bottom := 80, boxWidth-40, 60, boxHeight-50
	lo, hi := padRange(d.Min, d.Max, 0.08)
	y := newScale(lo, hi, bottom, top)

	c.text("Box plot of "+col, boxWidth/2, 32, 14, colorInk, alignCenter)
	for _, t := range ticks(lo, hi, 6) {
		py := y.at(t)
		c.line(left, py, right, py, colorGrid, 1)
		c.text(tickLabel(t), left-8, py+4, 9, colorInk, alignRight)
	}
	c.line(left, top, left, bottom, colorInk, 1)
	c.line(left, bottom, right, bottom, colorInk, 1)

	mid := (left + right) / 2
	half := (right - left) / 6
	whisk := half / 2
	c.line(mid, y.at(b.LowWhisker), mid, y.at(b.Q1), colorInk, 1.5)
	c.line(mid, y.at(b.Q3), mid, y.at(b.HighWhisker), colorInk, 1.5)
	c.line(mid-whisk, y.at(b.LowWhisker), mid+whisk, y.at(b.LowWhisker), colorInk, 1.5)
	c.line(mid-whisk, y.at(b.HighWhisker), mid+whisk, y.at(b.HighWhisker), colorInk, 1.5)
	c.rect(mid-half, y.at(b.Q3), mid+half, y.at(b.Q1), colorPrimary.WithAlpha(140), colorInk)
	c.line(mid-half, y.at(b.Median), mid+half, y.at(b.Median), colorInk, 2)
	for _, o := range b.Outliers {
		c.dot(mid, y.at(o), 3, colorOutlier)
	}
	c.text(c.fit(col, 11, right-left), mid, bottom+28, 11, colorInk, alignCenter)
	return c.save(w)
}
