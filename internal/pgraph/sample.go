package pgraph

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/pgraph/internal/geom"
)

// Point is one weighted input sample. A zero Weight is kept: the point
// takes part in the partition but adds nothing to any sum.
type Point struct {
	Pos    r2.Vec
	Weight float64
}

// sample is a Point plus the repartition cache.
type sample struct {
	Point
	// nearest is the edge found nearest on the last pass; zero when unknown.
	nearest EdgeID
	// second is a lower bound on the distance to every other edge.
	second float64
	owner  owner
}

// newSamples validates the input and returns the sample set with its total
// weight, weighted centroid and radius (largest distance from the centroid
// over samples with positive weight).
func newSamples(points []Point) ([]sample, float64, r2.Vec, float64, error) {
	if len(points) == 0 {
		return nil, 0, r2.Vec{}, 0, ErrNoSamples
	}
	out := make([]sample, len(points))
	xs := make([]float64, len(points))
	ys := make([]float64, len(points))
	ws := make([]float64, len(points))
	for i, p := range points {
		if math.IsNaN(p.Pos.X) || math.IsNaN(p.Pos.Y) || math.IsInf(p.Pos.X, 0) || math.IsInf(p.Pos.Y, 0) {
			return nil, 0, r2.Vec{}, 0, fmt.Errorf("point %d: %w: non-finite coordinates", i, ErrInvalidSample)
		}
		w := p.Weight
		if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			return nil, 0, r2.Vec{}, 0, fmt.Errorf("point %d: %w: weight %v", i, ErrInvalidSample, p.Weight)
		}
		out[i] = sample{Point: Point{Pos: p.Pos, Weight: w}, second: math.Inf(1)}
		xs[i], ys[i], ws[i] = p.Pos.X, p.Pos.Y, w
	}
	total := floats.Sum(ws)
	if total == 0 {
		return nil, 0, r2.Vec{}, 0, ErrZeroWeight
	}
	centroid := r2.Vec{X: stat.Mean(xs, ws), Y: stat.Mean(ys, ws)}
	var radius float64
	for _, s := range out {
		if s.Weight > 0 {
			radius = math.Max(radius, geom.Dist(s.Pos, centroid))
		}
	}
	return out, total, centroid, radius, nil
}
