// Package render draws a fitted principal graph over its samples, as a
// static PNG or an interactive HTML page.
package render

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/banshee-data/pgraph/internal/pgraph"
)

// ErrEmptyScene is returned when there is nothing to draw.
var ErrEmptyScene = errors.New("nothing to render")

// Scene is what gets drawn: the samples, the fitted curves and, when
// available, the vertex snapshot used to mark ends and junctions.
type Scene struct {
	Title    string
	Subtitle string
	Points   []pgraph.Point
	Curves   [][]r2.Vec
	Snapshot *pgraph.Snapshot
}

func (s Scene) empty() bool {
	return len(s.Points) == 0 && len(s.Curves) == 0
}

// bounds returns a square window around everything in the scene, padded by
// 5% of its side so that end vertices are not drawn on the frame.
func (s Scene) bounds() (min, max r2.Vec) {
	var xs, ys []float64
	for _, p := range s.Points {
		xs = append(xs, p.Pos.X)
		ys = append(ys, p.Pos.Y)
	}
	for _, c := range s.Curves {
		for _, p := range c {
			xs = append(xs, p.X)
			ys = append(ys, p.Y)
		}
	}
	lo := r2.Vec{X: floats.Min(xs), Y: floats.Min(ys)}
	hi := r2.Vec{X: floats.Max(xs), Y: floats.Max(ys)}
	side := math.Max(hi.X-lo.X, hi.Y-lo.Y)
	if side == 0 {
		side = 1
	}
	pad := 0.05 * side
	c := r2.Scale(0.5, r2.Add(lo, hi))
	half := side/2 + pad
	return r2.Vec{X: c.X - half, Y: c.Y - half}, r2.Vec{X: c.X + half, Y: c.Y + half}
}

// vertexGroups splits snapshot vertices into ends and junctions (degree
// three or more). Line and Corner vertices are left to the curves.
func (s Scene) vertexGroups() (ends, junctions []r2.Vec) {
	if s.Snapshot == nil {
		return nil, nil
	}
	for _, v := range s.Snapshot.Vertices {
		p := r2.Vec{X: v.X, Y: v.Y}
		switch {
		case v.Degree == 1:
			ends = append(ends, p)
		case v.Degree >= 3:
			junctions = append(junctions, p)
		}
	}
	return ends, junctions
}
