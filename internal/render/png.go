package render

import (
	"fmt"
	"image/color"
	"io"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// PNGSize is the side of the square PNG canvas.
const PNGSize = 8 * vg.Inch

var (
	sampleColor   = color.RGBA{R: 150, G: 150, B: 150, A: 255}
	curveColor    = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	endColor      = color.RGBA{R: 44, G: 160, B: 44, A: 255}
	junctionColor = color.RGBA{R: 214, G: 39, B: 40, A: 255}
)

func toXYs(ps []r2.Vec) plotter.XYs {
	xys := make(plotter.XYs, len(ps))
	for i, p := range ps {
		xys[i] = plotter.XY{X: p.X, Y: p.Y}
	}
	return xys
}

func (s Scene) plot() (*plot.Plot, error) {
	if s.empty() {
		return nil, ErrEmptyScene
	}
	p := plot.New()
	p.Title.Text = s.Title
	p.X.Label.Text = "X"
	p.Y.Label.Text = "Y"
	lo, hi := s.bounds()
	p.X.Min, p.X.Max = lo.X, hi.X
	p.Y.Min, p.Y.Max = lo.Y, hi.Y

	if len(s.Points) > 0 {
		pts := make([]r2.Vec, len(s.Points))
		for i, pt := range s.Points {
			pts[i] = pt.Pos
		}
		sc, err := plotter.NewScatter(toXYs(pts))
		if err != nil {
			return nil, fmt.Errorf("failed to plot samples: %w", err)
		}
		sc.GlyphStyle.Color = sampleColor
		sc.GlyphStyle.Radius = vg.Points(1)
		sc.GlyphStyle.Shape = draw.CircleGlyph{}
		p.Add(sc)
		p.Legend.Add("samples", sc)
	}

	for i, c := range s.Curves {
		line, err := plotter.NewLine(toXYs(c))
		if err != nil {
			return nil, fmt.Errorf("failed to plot curve %d: %w", i, err)
		}
		line.Color = curveColor
		line.Width = vg.Points(1.5)
		p.Add(line)
		if i == 0 {
			p.Legend.Add("graph", line)
		}
	}

	ends, junctions := s.vertexGroups()
	for _, g := range []struct {
		name  string
		pts   []r2.Vec
		color color.Color
	}{
		{"ends", ends, endColor},
		{"junctions", junctions, junctionColor},
	} {
		if len(g.pts) == 0 {
			continue
		}
		sc, err := plotter.NewScatter(toXYs(g.pts))
		if err != nil {
			return nil, fmt.Errorf("failed to plot %s: %w", g.name, err)
		}
		sc.GlyphStyle.Color = g.color
		sc.GlyphStyle.Radius = vg.Points(3)
		p.Add(sc)
		p.Legend.Add(g.name, sc)
	}
	return p, nil
}

// WritePNG renders the scene as a PNG image to w.
func WritePNG(w io.Writer, s Scene) error {
	p, err := s.plot()
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(PNGSize, PNGSize, "png")
	if err != nil {
		return fmt.Errorf("failed to create PNG writer: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write PNG: %w", err)
	}
	return nil
}

// SavePNG renders the scene to a file; the format follows the extension.
func SavePNG(path string, s Scene) error {
	p, err := s.plot()
	if err != nil {
		return err
	}
	if err := p.Save(PNGSize, PNGSize, path); err != nil {
		return fmt.Errorf("failed to save plot %s: %w", path, err)
	}
	return nil
}
