package pgraph

import (
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/banshee-data/pgraph/internal/geom"
	"github.com/banshee-data/pgraph/internal/stats"
)

// Edge joins V1 and V2. The direction only fixes which endpoint is stored
// first; geometrically the edge is undirected.
type Edge struct {
	V1, V2 VertexID

	pts   cluster
	stats stats.Covariance
}

// newEdge returns an edge whose statistics are kept relative to origin,
// normally the sample centroid.
func newEdge(v1, v2 VertexID, origin r2.Vec) *Edge {
	e := &Edge{V1: v1, V2: v2, stats: stats.NewCovariance(origin)}
	e.pts.acc = &e.stats
	return e
}

// Ends is an oriented view of an edge's endpoints.
type Ends struct {
	From, To VertexID
}

// Reverse returns the view with the endpoints swapped.
func (e Ends) Reverse() Ends { return Ends{From: e.To, To: e.From} }

// Ends returns the stored orientation.
func (e *Edge) Ends() Ends { return Ends{From: e.V1, To: e.V2} }

// Weight returns the total weight of the edge cluster.
func (e *Edge) Weight() float64 { return e.pts.weight() }

// Size returns the number of samples in the edge cluster.
func (e *Edge) Size() int { return e.pts.size() }

// Segment is a resolved edge geometry.
type Segment struct {
	A, B r2.Vec
}

// Length returns |B-A|.
func (s Segment) Length() float64 { return geom.Dist(s.A, s.B) }

// MidPoint returns the segment midpoint.
func (s Segment) MidPoint() r2.Vec { return geom.Midpoint(s.A, s.B) }

// PointAtParameter interpolates linearly, t=0 at A and t=1 at B.
func (s Segment) PointAtParameter(t float64) r2.Vec { return geom.Lerp(s.A, s.B, t) }

// Dist returns the distance from p to the closed segment.
func (s Segment) Dist(p r2.Vec) float64 { return geom.SegmentDist(p, s.A, s.B) }

// Reverse returns the segment with its endpoints swapped.
func (s Segment) Reverse() Segment { return Segment{A: s.B, B: s.A} }

// edgeRef is a resolved live edge used during a repartition pass.
type edgeRef struct {
	id     EdgeID
	e      *Edge
	v1, v2 *Vertex
	seg    Segment
}

// assign places sample i, at segment distance d from r, into the edge
// cluster when its projection falls strictly inside the segment, and
// otherwise into the cluster of the nearer endpoint. It returns the squared
// distance to the chosen element.
func (g *Graph) assign(r *edgeRef, i int, d float64) float64 {
	p := g.samples[i].Pos
	d1 := geom.Dist(p, r.seg.A)
	d2 := geom.Dist(p, r.seg.B)
	switch {
	case d < d1 && d < d2:
		r.e.pts.add(g.samples, i)
		return d * d
	case d1 <= d2:
		r.v1.pts.add(g.samples, i)
		return d1 * d1
	default:
		r.v2.pts.add(g.samples, i)
		return d2 * d2
	}
}

// deleteMovedPoints purges samples that were claimed elsewhere.
func (e *Edge) deleteMovedPoints(samples []sample) { e.pts.purge(samples) }
