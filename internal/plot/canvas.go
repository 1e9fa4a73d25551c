package plot

import (
	"io"
	"math"
	"strconv"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

var (
	colorBackground = chart.ColorWhite
	colorInk        = drawing.ColorFromHex("333333")
	colorGrid       = drawing.ColorFromHex("dddddd")
	colorPrimary    = drawing.ColorFromHex("4169e1") // royalblue
	colorOutlier    = drawing.ColorFromHex("c0392b")
)

type align int

const (
	alignLeft align = iota
	alignCenter
	alignRight
)

// canvas is a thin drawing surface over a go-chart PNG renderer for the
// charts go-chart has no series type for.
type canvas struct {
	r    chart.Renderer
	w, h int
}

func newCanvas(w, h int) (*canvas, error) {
	r, err := chart.PNG(w, h)
	if err != nil {
		return nil, err
	}
	font, err := chart.GetDefaultFont()
	if err != nil {
		return nil, err
	}
	r.SetFont(font)
	c := &canvas{r: r, w: w, h: h}
	c.rect(0, 0, w, h, colorBackground, colorBackground)
	return c, nil
}

func (c *canvas) rect(x0, y0, x1, y1 int, fill, stroke drawing.Color) {
	c.r.SetFillColor(fill)
	c.r.SetStrokeColor(stroke)
	c.r.SetStrokeWidth(1)
	c.r.MoveTo(x0, y0)
	c.r.LineTo(x1, y0)
	c.r.LineTo(x1, y1)
	c.r.LineTo(x0, y1)
	c.r.Close()
	c.r.FillStroke()
}

func (c *canvas) line(x0, y0, x1, y1 int, col drawing.Color, width float64) {
	c.r.SetStrokeColor(col)
	c.r.SetStrokeWidth(width)
	c.r.MoveTo(x0, y0)
	c.r.LineTo(x1, y1)
	c.r.Stroke()
}

func (c *canvas) dot(x, y int, radius float64, col drawing.Color) {
	c.r.SetFillColor(col)
	c.r.SetStrokeColor(col)
	c.r.SetStrokeWidth(1)
	c.r.Circle(radius, x, y)
	c.r.FillStroke()
}

// text draws s with its baseline at y; x is interpreted according to a.
func (c *canvas) text(s string, x, y int, size float64, col drawing.Color, a align) {
	c.r.SetFontSize(size)
	c.r.SetFontColor(col)
	box := c.r.MeasureText(s)
	switch a {
	case alignCenter:
		x -= box.Width() / 2
	case alignRight:
		x -= box.Width()
	}
	c.r.Text(s, x, y)
}

// fit shortens s with an ellipsis until it is at most maxW pixels wide.
func (c *canvas) fit(s string, size float64, maxW int) string {
	c.r.SetFontSize(size)
	if c.r.MeasureText(s).Width() <= maxW {
		return s
	}
	runes := []rune(s)
	for len(runes) > 1 {
		runes = runes[:len(runes)-1]
		if c.r.MeasureText(string(runes)+"...").Width() <= maxW {
			break
		}
	}
	return string(runes) + "..."
}

func (c *canvas) save(w io.Writer) error { return c.r.Save(w) }

// scale maps [lo, hi] linearly onto pixel range [p0, p1].
type scale struct {
	lo, hi float64
	p0, p1 int
}

func newScale(lo, hi float64, p0, p1 int) scale {
	if hi == lo || math.IsNaN(lo) || math.IsNaN(hi) {
		lo, hi = lo-0.5, lo+0.5
	}
	return scale{lo: lo, hi: hi, p0: p0, p1: p1}
}

func (s scale) at(v float64) int {
	f := (v - s.lo) / (s.hi - s.lo)
	return s.p0 + int(math.Round(f*float64(s.p1-s.p0)))
}

// padRange widens [lo, hi] by frac of its width on both sides.
func padRange(lo, hi, frac float64) (float64, float64) {
	if hi == lo {
		return lo - 0.5, hi + 0.5
	}
	d := (hi - lo) * frac
	return lo - d, hi + d
}

// ticks returns about n round values covering [lo, hi].
func ticks(lo, hi float64, n int) []float64 {
	if n < 2 || hi <= lo {
		return []float64{lo}
	}
	raw := (hi - lo) / float64(n-1)
	mag := math.Pow(10, math.Floor(math.Log10(raw)))
	step := mag
	for _, m := range []float64{1, 2, 2.5, 5, 10} {
		if m*mag >= raw {
			step = m * mag
			break
		}
	}
	start := math.Ceil(lo/step) * step
	var out []float64
	for v := start; v <= hi+step*1e-9; v += step {
		out = append(out, v)
	}
	return out
}

func tickLabel(v float64) string {
	if math.Abs(v) < 1e-12 {
		v = 0
	}
	return strconv.FormatFloat(v, 'g', 4, 64)
}
