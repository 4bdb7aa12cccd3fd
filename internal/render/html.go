package render

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/gonum/spatial/r2"
)

func scatterData(ps []r2.Vec) []opts.ScatterData {
	data := make([]opts.ScatterData, len(ps))
	for i, p := range ps {
		data[i] = opts.ScatterData{Value: []interface{}{p.X, p.Y}}
	}
	return data
}

// WriteHTML renders the scene as a standalone interactive page: samples
// and marked vertices as scatter series, each curve as a line series.
func WriteHTML(w io.Writer, s Scene) error {
	if s.empty() {
		return ErrEmptyScene
	}
	lo, hi := s.bounds()

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: s.Title, Width: "900px", Height: "900px"}),
		charts.WithTitleOpts(opts.Title{Title: s.Title, Subtitle: s.Subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "bottom"}),
		charts.WithXAxisOpts(opts.XAxis{Type: "value", Min: lo.X, Max: hi.X, Name: "X", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Type: "value", Min: lo.Y, Max: hi.Y, Name: "Y", NameLocation: "middle", NameGap: 30}),
	)

	pts := make([]r2.Vec, len(s.Points))
	for i, p := range s.Points {
		pts[i] = p.Pos
	}
	scatter.AddSeries("samples", scatterData(pts), charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 3}))
	ends, junctions := s.vertexGroups()
	if len(ends) > 0 {
		scatter.AddSeries("ends", scatterData(ends), charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 9}))
	}
	if len(junctions) > 0 {
		scatter.AddSeries("junctions", scatterData(junctions), charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 12}))
	}

	if len(s.Curves) > 0 {
		line := charts.NewLine()
		for i, c := range s.Curves {
			data := make([]opts.LineData, len(c))
			for j, p := range c {
				data[j] = opts.LineData{Value: []interface{}{p.X, p.Y}}
			}
			line.AddSeries(fmt.Sprintf("curve %d", i), data,
				charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}))
		}
		scatter.Overlap(line)
	}

	if err := scatter.Render(w); err != nil {
		return fmt.Errorf("failed to render HTML: %w", err)
	}
	return nil
}
