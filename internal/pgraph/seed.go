package pgraph

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/banshee-data/pgraph/internal/stats"
)

// InitializeToPrincipalComponent seeds an empty graph with a single edge
// along the first principal component. The direction is estimated from a
// random subsample of at most sampleSize points (all points when
// sampleSize <= 0); the edge spans the extreme projections of all samples.
// Every sample is then assigned to the new edge or its endpoints.
func (g *Graph) InitializeToPrincipalComponent(rng *rand.Rand, sampleSize int) error {
	if g.vertices.len() > 0 {
		return ErrAlreadyInitialized
	}
	n := len(g.samples)
	idx := rng.Perm(n)
	if sampleSize > 0 && sampleSize < n {
		idx = idx[:sampleSize]
	}
	cov := stats.NewCovariance(g.centroid)
	for _, i := range idx {
		cov.Add(g.samples[i].Pos, g.samples[i].Weight)
	}
	center, _ := cov.Mean()
	dir := cov.PrincipalDirection()

	tmin, tmax := math.Inf(1), math.Inf(-1)
	for _, s := range g.samples {
		t := r2.Dot(r2.Sub(s.Pos, center), dir)
		tmin = math.Min(tmin, t)
		tmax = math.Max(tmax, t)
	}
	a := r2.Add(center, r2.Scale(tmin, dir))
	b := r2.Add(center, r2.Scale(tmax, dir))

	va, vb := newVertex(KindEnd, a), newVertex(KindEnd, b)
	ida, idb := g.addVertex(va), g.addVertex(vb)
	eid := g.connect(ida, va, idb, vb)
	if err := g.refreshAround("InitializeToPrincipalComponent", ida, idb); err != nil {
		return err
	}

	ref := edgeRef{id: eid, e: g.Edge(eid), v1: va, v2: vb, seg: Segment{A: a, B: b}}
	var mse float64
	for i := range g.samples {
		s := &g.samples[i]
		d := ref.seg.Dist(s.Pos)
		s.nearest = eid
		s.second = math.Inf(1)
		mse += s.Weight * g.assign(&ref, i, d)
	}
	g.mse = mse / g.totalWeight
	g.fullScan = false
	g.markPositions()
	g.UpdateCoefficients()
	Diagf("seeded principal line (%.4g,%.4g)-(%.4g,%.4g) mse=%.6g", a.X, a.Y, b.X, b.Y, g.mse)
	return nil
}
