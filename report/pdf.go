package report

import (
	"fmt"
	"image/color"
	"io"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgpdf"

	"github.com/zalepa/crashmap/stats"
)

const (
	pageWidth  = 8.5 * vg.Inch
	pageHeight = 11 * vg.Inch
	pdfMargin  = 0.75 * vg.Inch

	lineHeight = 0.22 * vg.Inch
)

var chartBlue = color.RGBA{R: 31, G: 119, B: 180, A: 255}

// Document is a PDF report: one page per histogram followed by one text
// page per area summary.
type Document struct {
	Title      string
	Histograms []stats.Hist
	Summaries  []stats.Summary
}

// Pages is the number of pages Write produces.
func (d Document) Pages() int {
	n := len(d.Histograms) + len(d.Summaries)
	if n == 0 {
		return 1
	}
	return n
}

// Write renders the document as PDF.
func Write(w io.Writer, d Document) error {
	title := plainDashes(d.Title)
	c := vgpdf.New(pageWidth, pageHeight)

	page := 0
	next := func() {
		if page > 0 {
			c.NextPage()
		}
		page++
	}

	for _, h := range d.Histograms {
		next()
		if err := drawHistogramPage(c, title, h); err != nil {
			return err
		}
	}
	for _, s := range d.Summaries {
		next()
		drawTextPage(c, title+" - "+s.Area, s.Lines())
	}
	if page == 0 {
		drawTextPage(c, title, []string{"No data."})
	}

	_, err := c.WriteTo(w)
	return err
}

func drawHistogramPage(c *vgpdf.Canvas, title string, h stats.Hist) error {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s - %s (%s)", title, h.Metric.Label(), h.Mode)
	p.Title.TextStyle.Font.Size = vg.Points(12)
	p.BackgroundColor = color.White
	p.X.Label.Text = h.Metric.Label()
	p.Y.Label.Text = "# of areas"

	labels := make([]string, len(h.Bins))
	for i, b := range h.Bins {
		labels[i] = FormatCompact(b.Lo) + "-" + FormatCompact(b.Hi)
	}

	width := (pageWidth - 2*pdfMargin) / vg.Length(len(h.Bins)+2)
	if width > vg.Inch {
		width = vg.Inch
	}

	var below *plotter.BarChart
	for si, name := range h.Series {
		vals := make(plotter.Values, len(h.Bins))
		for i, b := range h.Bins {
			vals[i] = float64(b.Counts[si])
		}
		bars, err := plotter.NewBarChart(vals, width)
		if err != nil {
			return fmt.Errorf("bar chart: %w", err)
		}
		bars.LineStyle.Width = vg.Length(0)
		bars.Color = chartBlue
		if len(h.Series) > 1 {
			bars.Color = plotutil.Color(si)
			p.Legend.Add(name, bars)
		}
		if below != nil {
			bars.StackOn(below)
		}
		p.Add(bars)
		below = bars
	}
	p.Legend.Top = true
	p.Add(plotter.NewGrid())
	p.NominalX(labels...)
	p.X.Tick.Label.Rotation = 0.6
	p.X.Tick.Label.XAlign = draw.XRight
	p.X.Tick.Label.YAlign = draw.YCenter

	dc := draw.New(c)
	area := draw.Crop(dc, pdfMargin, -pdfMargin, pdfMargin, -pdfMargin-0.4*vg.Inch)
	p.Draw(area)

	header := draw.Crop(dc, pdfMargin, -pdfMargin, pdfMargin, -pdfMargin)
	fillText(header, fmt.Sprintf("%d selected crashes, %d areas shown, domain %s to %s",
		h.Selected, h.Total(), FormatNum(h.Domain.Lowest), FormatNum(h.Domain.Highest)),
		vg.Points(9), header.Min.X, header.Max.Y-vg.Points(9), color.Gray{Y: 100})
	return nil
}

func drawTextPage(c *vgpdf.Canvas, title string, lines []string) {
	dc := draw.New(c)
	area := draw.Crop(dc, pdfMargin, -pdfMargin, pdfMargin, -pdfMargin)

	y := area.Max.Y - vg.Points(14)
	fillText(area, plainDashes(title), vg.Points(14), area.Min.X, y, color.Black)
	y -= vg.Points(8)
	strokeHLine(area, area.Min.X, area.Max.X, y, color.Gray{Y: 180})
	y -= lineHeight

	for _, l := range lines {
		if y < area.Min.Y {
			break
		}
		x := area.Min.X
		if strings.HasPrefix(l, "  ") {
			x += 0.25 * vg.Inch
		}
		fillText(area, strings.TrimSpace(l), vg.Points(10), x, y, color.Black)
		y -= lineHeight
	}
}

// plainDashes swaps em and en dashes for hyphens; the embedded PDF font
// has no glyph for them.
func plainDashes(s string) string {
	s = strings.ReplaceAll(s, "\u2014", "-")
	return strings.ReplaceAll(s, "\u2013", "-")
}

func fillText(c draw.Canvas, txt string, size vg.Length, x, y vg.Length, clr color.Color) {
	sty := draw.TextStyle{
		Color:   clr,
		Font:    plot.DefaultFont,
		Handler: plot.DefaultTextHandler,
	}
	sty.Font.Size = size
	c.FillText(sty, vg.Point{X: x, Y: y}, txt)
}

func strokeHLine(c draw.Canvas, x0, x1, y vg.Length, clr color.Color) {
	c.StrokeLine2(draw.LineStyle{
		Color: clr,
		Width: vg.Points(0.5),
	}, x0, y, x1, y)
}
