package pgraph

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/spatial/r2"
)

// weightDifferenceCoefficient scales the pull towards balanced cluster
// weights on straight-through vertex pairs.
const weightDifferenceCoefficient = 0.01

// denominatorEpsilon is the magnitude below which a closed-form vertex
// optimum is considered undefined and the vertex stays put.
const denominatorEpsilon = 1e-12

// Options are the penalty parameters of a graph.
type Options struct {
	// PenaltyCoefficient scales the angle penalty relative to the data fit.
	PenaltyCoefficient float64
	// RelativeLengthPenaltyCoefficient scales the edge length penalty
	// relative to the angle penalty.
	RelativeLengthPenaltyCoefficient float64
}

// DefaultOptions returns the standard penalty parameters.
func DefaultOptions() Options {
	return Options{
		PenaltyCoefficient:               0.13,
		RelativeLengthPenaltyCoefficient: 0.1,
	}
}

// Coefficients are the penalty weights derived from the current fit.
type Coefficients struct {
	Angle            float64
	Length           float64
	WeightDifference float64
}

// Graph is a principal graph fitted to a fixed sample set. A Graph is not
// safe for concurrent use.
type Graph struct {
	opts Options

	vertices arena[Vertex]
	edges    arena[Edge]

	samples     []sample
	totalWeight float64
	centroid    r2.Vec
	radius      float64

	mse   float64
	coeff Coefficients

	// fullScan forces the next repartition pass to ignore cached bounds.
	fullScan bool
}

// New builds an empty graph over points. Seed it with
// InitializeToPrincipalComponent or InitializeToCurves.
func New(points []Point, opts Options) (*Graph, error) {
	samples, total, centroid, radius, err := newSamples(points)
	if err != nil {
		return nil, err
	}
	g := &Graph{
		opts:        opts,
		samples:     samples,
		totalWeight: total,
		centroid:    centroid,
		radius:      radius,
		fullScan:    true,
	}
	g.coeff.WeightDifference = weightDifferenceCoefficient
	return g, nil
}

func (g *Graph) addVertex(v *Vertex) VertexID {
	slot, gen := g.vertices.insert(v)
	id := VertexID{slot: slot, gen: gen}
	v.pts.self = vertexOwner(id)
	return id
}

func (g *Graph) addEdge(e *Edge) EdgeID {
	slot, gen := g.edges.insert(e)
	id := EdgeID{slot: slot, gen: gen}
	e.pts.self = edgeOwner(id)
	return id
}

// connect adds an edge between v1 and v2 and appends the incidences.
func (g *Graph) connect(id1 VertexID, v1 *Vertex, id2 VertexID, v2 *Vertex) EdgeID {
	eid := g.addEdge(newEdge(id1, id2, g.centroid))
	v1.inc = append(v1.inc, incidence{edge: eid, forward: true})
	v2.inc = append(v2.inc, incidence{edge: eid, forward: false})
	return eid
}

func (g *Graph) removeVertex(id VertexID) { g.vertices.remove(id.slot, id.gen) }
func (g *Graph) removeEdge(id EdgeID)     { g.edges.remove(id.slot, id.gen) }

// Vertex returns the vertex for id, or nil if the handle is stale.
func (g *Graph) Vertex(id VertexID) *Vertex { return g.vertices.get(id.slot, id.gen) }

// Edge returns the edge for id, or nil if the handle is stale.
func (g *Graph) Edge(id EdgeID) *Edge { return g.edges.get(id.slot, id.gen) }

// Vertices returns the live vertex handles in slot order.
func (g *Graph) Vertices() []VertexID {
	ids := make([]VertexID, 0, g.vertices.len())
	g.vertices.each(func(slot, gen uint32, _ *Vertex) {
		ids = append(ids, VertexID{slot: slot, gen: gen})
	})
	return ids
}

// Edges returns the live edge handles in slot order.
func (g *Graph) Edges() []EdgeID {
	ids := make([]EdgeID, 0, g.edges.len())
	g.edges.each(func(slot, gen uint32, _ *Edge) {
		ids = append(ids, EdgeID{slot: slot, gen: gen})
	})
	return ids
}

// NumVertices returns the number of live vertices.
func (g *Graph) NumVertices() int { return g.vertices.len() }

// NumEdges returns the number of live edges.
func (g *Graph) NumEdges() int { return g.edges.len() }

// NumSamples returns the number of sample points.
func (g *Graph) NumSamples() int { return len(g.samples) }

// TotalWeight returns the summed sample weight.
func (g *Graph) TotalWeight() float64 { return g.totalWeight }

// Radius returns the largest distance from the weighted centroid to a sample.
func (g *Graph) Radius() float64 { return g.radius }

// Centroid returns the weighted centroid of the samples.
func (g *Graph) Centroid() r2.Vec { return g.centroid }

// MSE returns the mean squared distance found by the last repartition.
func (g *Graph) MSE() float64 { return g.mse }

// Coefficients returns the penalty weights set by the last UpdateCoefficients.
func (g *Graph) Coefficients() Coefficients { return g.coeff }

// Segment resolves the geometry of an edge.
func (g *Graph) Segment(id EdgeID) (Segment, bool) {
	e := g.Edge(id)
	if e == nil {
		return Segment{}, false
	}
	v1, v2 := g.Vertex(e.V1), g.Vertex(e.V2)
	if v1 == nil || v2 == nil {
		return Segment{}, false
	}
	return Segment{A: v1.Pos, B: v2.Pos}, true
}

// Neighbors returns the vertices at the far end of each incidence of id,
// in incidence order.
func (g *Graph) Neighbors(id VertexID) []VertexID {
	v := g.Vertex(id)
	if v == nil {
		return nil
	}
	out := make([]VertexID, 0, len(v.inc))
	for _, in := range v.inc {
		if e := g.Edge(in.edge); e != nil {
			out = append(out, in.other(e))
		}
	}
	return out
}

// ClusterWeights returns the summed weight of all vertex clusters and of
// all edge clusters.
func (g *Graph) ClusterWeights() (vertices, edges float64) {
	g.vertices.each(func(_, _ uint32, v *Vertex) { vertices += v.pts.weight() })
	g.edges.each(func(_, _ uint32, e *Edge) { edges += e.pts.weight() })
	return vertices, edges
}

// maxChange returns the largest vertex displacement since the last
// repartition pass.
func (g *Graph) maxChange() float64 {
	var m float64
	g.vertices.each(func(_, _ uint32, v *Vertex) {
		m = math.Max(m, r2.Norm(r2.Sub(v.Pos, v.prev)))
	})
	return m
}

func (g *Graph) markPositions() {
	g.vertices.each(func(_, _ uint32, v *Vertex) { v.prev = v.Pos })
}

// UpdateCoefficients derives the penalty weights from the current MSE. The
// fit calls it once per outer iteration so the criterion minimised by the
// inner loop stays fixed.
// A zero radius or zero MSE yields zero angle and length weights.
func (g *Graph) UpdateCoefficients() {
	var base float64
	if g.radius > 0 && g.totalWeight > 0 && g.mse > 0 {
		base = g.opts.PenaltyCoefficient / math.Cbrt(g.totalWeight) * math.Sqrt(g.mse) / g.radius
	}
	g.coeff = Coefficients{
		Angle:            base * g.radius * g.radius,
		Length:           g.opts.RelativeLengthPenaltyCoefficient * base,
		WeightDifference: weightDifferenceCoefficient,
	}
}

// arm is a resolved incidence: the edge, the neighbor position, and the
// positions beyond the neighbor named by the cached reach.
type arm struct {
	in     incidence
	e      *Edge
	to     VertexID
	far    r2.Vec
	beyond [2]r2.Vec
}

func (g *Graph) armsOf(op string, id VertexID, v *Vertex) ([]arm, error) {
	if !degreeMatches(v) {
		return nil, g.invariant(op, ErrInvariant, "vertex %v of kind %s has %d incidences", id, v.kind, len(v.inc))
	}
	arms := make([]arm, len(v.inc))
	for i, in := range v.inc {
		e := g.Edge(in.edge)
		if e == nil {
			return nil, g.invariant(op, ErrStaleHandle, "vertex %v incidence %d references %v", id, i, in.edge)
		}
		to := in.other(e)
		n := g.Vertex(to)
		if n == nil {
			return nil, g.invariant(op, ErrStaleHandle, "edge %v references %v", in.edge, to)
		}
		a := arm{in: in, e: e, to: to, far: n.Pos}
		count := 0
		switch in.reach.shape {
		case reachAngle:
			count = 1
		case reachFork:
			count = 2
		}
		for k := 0; k < count; k++ {
			p, err := g.farEnd(op, in.reach.opp[k], to)
			if err != nil {
				return nil, err
			}
			a.beyond[k] = p
		}
		arms[i] = a
	}
	return arms, nil
}

// farEnd returns the position of the endpoint of f that is not from.
func (g *Graph) farEnd(op string, f EdgeID, from VertexID) (r2.Vec, error) {
	e := g.Edge(f)
	if e == nil {
		return r2.Vec{}, g.invariant(op, ErrStaleHandle, "cached reach references %v", f)
	}
	var other VertexID
	switch from {
	case e.V1:
		other = e.V2
	case e.V2:
		other = e.V1
	default:
		return r2.Vec{}, g.invariant(op, ErrNotNeighbor, "edge %v does not touch %v", f, from)
	}
	v := g.Vertex(other)
	if v == nil {
		return r2.Vec{}, g.invariant(op, ErrStaleHandle, "edge %v references %v", f, other)
	}
	return v.Pos, nil
}

// Criterion returns the penalised objective: the mean squared distance of
// the samples to their current clusters plus the sum of vertex penalties.
func (g *Graph) Criterion() (float64, error) {
	var mse, pen float64
	var err error
	g.vertices.each(func(slot, gen uint32, v *Vertex) {
		if err != nil {
			return
		}
		mse += v.stats.MSETimesWeight(v.Pos)
		var arms []arm
		arms, err = g.armsOf("Criterion", VertexID{slot: slot, gen: gen}, v)
		if err != nil {
			return
		}
		p, _ := penalty(v, arms, g.coeff)
		pen += p
	})
	if err != nil {
		return 0, err
	}
	g.edges.each(func(slot, gen uint32, e *Edge) {
		if err != nil {
			return
		}
		seg, ok := g.Segment(EdgeID{slot: slot, gen: gen})
		if !ok {
			err = g.invariant("Criterion", ErrStaleHandle, "edge e%d.%d has a dead endpoint", slot, gen)
			return
		}
		mse += e.stats.LineMSETimesWeight(seg.A, seg.B)
	})
	if err != nil {
		return 0, err
	}
	return mse/g.totalWeight + pen, nil
}

// NewPosition returns the closed-form optimum of one vertex with all other
// vertices and the partition held fixed. It falls back to the current
// position when the optimum is undefined.
func (g *Graph) NewPosition(id VertexID) (r2.Vec, error) {
	v := g.Vertex(id)
	if v == nil {
		return r2.Vec{}, fmt.Errorf("new position of %v: %w", id, ErrStaleHandle)
	}
	return g.newPosition(id, v)
}

func (g *Graph) newPosition(id VertexID, v *Vertex) (r2.Vec, error) {
	if v.kind == KindDummy {
		return v.Pos, nil
	}
	arms, err := g.armsOf("NewPosition", id, v)
	if err != nil {
		return r2.Vec{}, err
	}
	fit := numDen{num: v.stats.Sum(), den: v.stats.Weight()}
	for _, a := range arms {
		num, den := a.e.stats.LineGradient(v.Pos, a.far)
		fit = fit.add(numDen{num: num, den: den})
	}
	_, pen := penalty(v, arms, g.coeff)
	nd := fit.scale(1 / g.totalWeight).add(pen)
	if math.Abs(nd.den) < denominatorEpsilon {
		return v.Pos, nil
	}
	p := r2.Scale(1/nd.den, nd.num)
	if math.IsNaN(p.X) || math.IsNaN(p.Y) || math.IsInf(p.X, 0) || math.IsInf(p.Y, 0) {
		return v.Pos, nil
	}
	return p, nil
}

// SetDirections fixes the steepest descent direction of every vertex as
// the offset to its closed-form optimum, and anchors the line search at
// the current positions.
func (g *Graph) SetDirections() error {
	var err error
	g.vertices.each(func(slot, gen uint32, v *Vertex) {
		if err != nil {
			return
		}
		var p r2.Vec
		p, err = g.newPosition(VertexID{slot: slot, gen: gen}, v)
		v.anchor = v.Pos
		v.dir = r2.Sub(p, v.Pos)
	})
	return err
}

// Step places every vertex at its anchor plus t times its direction.
// Step(0) restores the positions held when SetDirections was called.
func (g *Graph) Step(t float64) {
	g.vertices.each(func(_, _ uint32, v *Vertex) {
		v.Pos = r2.Add(v.anchor, r2.Scale(t, v.dir))
	})
}

// dump renders the graph for invariant reports.
func (g *Graph) dump() string {
	var b strings.Builder
	fmt.Fprintf(&b, "vertices=%d edges=%d samples=%d\n", g.vertices.len(), g.edges.len(), len(g.samples))
	g.vertices.each(func(slot, gen uint32, v *Vertex) {
		fmt.Fprintf(&b, "  %v %s (%.6g,%.6g) w=%.6g inc=[", VertexID{slot: slot, gen: gen}, v.kind, v.Pos.X, v.Pos.Y, v.pts.weight())
		for i, in := range v.inc {
			if i > 0 {
				b.WriteString(" ")
			}
			fmt.Fprintf(&b, "%v/%t", in.edge, in.forward)
		}
		b.WriteString("]\n")
	})
	g.edges.each(func(slot, gen uint32, e *Edge) {
		fmt.Fprintf(&b, "  %v %v->%v w=%.6g\n", EdgeID{slot: slot, gen: gen}, e.V1, e.V2, e.pts.weight())
	})
	return b.String()
}
