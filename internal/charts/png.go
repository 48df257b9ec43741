package charts

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// build lays the chart out as a gonum plot with one coloured series per group.
func (c Chart) build() (*plot.Plot, error) {
	if c.points() == 0 {
		return nil, ErrNoPoints
	}

	p := plot.New()
	p.Title.Text = c.Title
	p.X.Label.Text = c.XLabel
	p.Y.Label.Text = c.YLabel
	p.Add(plotter.NewGrid())
	p.Legend.Top = true

	for i, g := range c.Groups {
		xys := make(plotter.XYs, len(g.X))
		for j := range g.X {
			xys[j].X = g.X[j]
			xys[j].Y = g.Y[j]
		}

		s, err := plotter.NewScatter(xys)
		if err != nil {
			return nil, fmt.Errorf("creating scatter for %q: %w", g.Name, err)
		}
		s.GlyphStyle.Color = plotutil.Color(i)
		s.GlyphStyle.Shape = draw.CircleGlyph{}
		s.GlyphStyle.Radius = vg.Points(2)

		p.Add(s)
		p.Legend.Add(g.Name, s)
	}
	return p, nil
}

// SavePNG renders the chart to path, creating parent directories as needed.
func SavePNG(path string, c Chart) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating plot directory: %w", err)
		}
	}

	p, err := c.build()
	if err != nil {
		return err
	}

	w, h := c.size()
	if err := p.Save(vg.Length(w)*vg.Inch, vg.Length(h)*vg.Inch, path); err != nil {
		return fmt.Errorf("saving plot %s: %w", path, err)
	}
	return nil
}

// WritePNG renders the chart as PNG to w.
func WritePNG(w io.Writer, c Chart) error {
	p, err := c.build()
	if err != nil {
		return err
	}

	width, height := c.size()
	wt, err := p.WriterTo(vg.Length(width)*vg.Inch, vg.Length(height)*vg.Inch, "png")
	if err != nil {
		return fmt.Errorf("preparing png: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("writing png: %w", err)
	}
	return nil
}

// FileName turns a model name into its plot file name, e.g. "KMeans_PCA.png".
func FileName(model string) string {
	return strings.ReplaceAll(model, " ", "_") + "_PCA.png"
}
