package charts

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// scatter builds an interactive echarts scatter with one series per group.
func (c Chart) scatter() (*charts.Scatter, error) {
	if c.points() == 0 {
		return nil, ErrNoPoints
	}

	w, h := c.size()
	s := charts.NewScatter()
	s.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: c.Title,
			Width:     fmt.Sprintf("%dpx", int(w*100)),
			Height:    fmt.Sprintf("%dpx", int(h*100)),
		}),
		charts.WithTitleOpts(opts.Title{Title: c.Title}),
		charts.WithXAxisOpts(opts.XAxis{Name: c.XLabel, Type: "value"}),
		charts.WithYAxisOpts(opts.YAxis{Name: c.YLabel, Type: "value"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "bottom"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "item"}),
	)

	for _, g := range c.Groups {
		data := make([]opts.ScatterData, len(g.X))
		for i := range g.X {
			data[i] = opts.ScatterData{
				Value:      []interface{}{g.X[i], g.Y[i]},
				SymbolSize: 5,
			}
		}
		s.AddSeries(g.Name, data)
	}
	return s, nil
}

// WriteHTML renders the chart as a standalone HTML page to w.
func WriteHTML(w io.Writer, c Chart) error {
	s, err := c.scatter()
	if err != nil {
		return err
	}
	if err := s.Render(w); err != nil {
		return fmt.Errorf("rendering html chart: %w", err)
	}
	return nil
}

// SaveHTML writes the chart page to path, creating parent directories as needed.
func SaveHTML(path string, c Chart) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating chart directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := WriteHTML(f, c); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
