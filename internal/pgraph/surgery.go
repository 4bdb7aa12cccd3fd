package pgraph

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/banshee-data/pgraph/internal/geom"
)

// InsertMidPoint splits edge id at its midpoint with a new Line vertex. The
// samples of the old edge go to whichever half is nearer, and cached
// nearest-edge entries pointing at the old edge are moved to the halves.
func (g *Graph) InsertMidPoint(id EdgeID) (VertexID, error) {
	const op = "InsertMidPoint"
	e := g.Edge(id)
	if e == nil {
		return VertexID{}, fmt.Errorf("insert midpoint on %v: %w", id, ErrStaleHandle)
	}
	v1, v2 := g.Vertex(e.V1), g.Vertex(e.V2)
	if v1 == nil || v2 == nil {
		return VertexID{}, g.invariant(op, ErrStaleHandle, "edge %v has a dead endpoint", id)
	}
	j1, j2 := v1.find(id, true), v2.find(id, false)
	if j1 < 0 || j2 < 0 {
		return VertexID{}, g.invariant(op, ErrNotNeighbor, "endpoints of %v do not hold it", id)
	}
	seg := Segment{A: v1.Pos, B: v2.Pos}

	m := newVertex(KindLine, seg.MidPoint())
	mid := g.addVertex(m)
	e1 := g.addEdge(newEdge(e.V1, mid, g.centroid))
	e2 := g.addEdge(newEdge(mid, e.V2, g.centroid))
	m.inc = []incidence{{edge: e1, forward: false}, {edge: e2, forward: true}}
	v1.inc[j1].edge = e1
	v2.inc[j2].edge = e2

	lo := edgeRef{id: e1, e: g.Edge(e1), v1: v1, v2: m, seg: Segment{A: seg.A, B: m.Pos}}
	hi := edgeRef{id: e2, e: g.Edge(e2), v1: m, v2: v2, seg: Segment{A: m.Pos, B: seg.B}}
	split := func(i int, move bool) {
		s := &g.samples[i]
		d1, d2 := lo.seg.Dist(s.Pos), hi.seg.Dist(s.Pos)
		near, far, d := &lo, d2, d1
		if d2 < d1 {
			near, far, d = &hi, d1, d2
		}
		s.nearest = near.id
		s.second = math.Min(s.second, far)
		if move {
			g.assign(near, i, d)
		}
	}
	self := edgeOwner(id)
	for _, i := range e.pts.members {
		if g.samples[i].owner == self {
			split(i, true)
		}
	}
	for _, c := range []*cluster{&v1.pts, &v2.pts} {
		for _, i := range c.members {
			if g.samples[i].nearest == id {
				split(i, false)
			}
		}
	}
	g.removeEdge(id)

	if err := g.refreshAround(op, mid, e.V1, e.V2); err != nil {
		return VertexID{}, err
	}
	Tracef("insert %v on %v at (%.4g,%.4g)", mid, id, m.Pos.X, m.Pos.Y)
	return mid, nil
}

// replaceIncidence points the (old, forward) incidence of v at a new edge.
func (g *Graph) replaceIncidence(op string, id VertexID, v *Vertex, old EdgeID, forward bool, repl EdgeID, replForward bool) error {
	j := v.find(old, forward)
	if j < 0 {
		return g.invariant(op, ErrNotNeighbor, "%v does not hold %v", id, old)
	}
	v.inc[j] = incidence{edge: repl, forward: replForward}
	return nil
}

// invalidate clears the cached nearest edge of every member of c.
func (g *Graph) invalidate(c *cluster) {
	for _, i := range c.members {
		g.samples[i].nearest = EdgeID{}
	}
}

// DeleteLineVertexAt removes a Line vertex and joins its two neighbors with
// a single new edge in place of the two old ones. A Line vertex whose two
// edges lead to the same neighbor, or back to itself, is removed with
// DeletePointAt instead.
func (g *Graph) DeleteLineVertexAt(id VertexID) error {
	const op = "DeleteLineVertexAt"
	v := g.Vertex(id)
	if v == nil {
		return fmt.Errorf("delete line vertex %v: %w", id, ErrStaleHandle)
	}
	if v.kind != KindLine || len(v.inc) != 2 {
		return g.invariant(op, ErrInvariant, "%v is a %s, not a line vertex", id, v.kind)
	}
	in1, in2 := v.inc[0], v.inc[1]
	ea, eb := g.Edge(in1.edge), g.Edge(in2.edge)
	if ea == nil || eb == nil {
		return g.invariant(op, ErrStaleHandle, "%v holds a dead edge", id)
	}
	n1id, n2id := in1.other(ea), in2.other(eb)
	if n1id == n2id || n1id == id || n2id == id {
		return g.DeletePointAt(id)
	}
	n1, n2 := g.Vertex(n1id), g.Vertex(n2id)
	if n1 == nil || n2 == nil {
		return g.invariant(op, ErrStaleHandle, "%v has a dead neighbor", id)
	}

	ne := g.addEdge(newEdge(n1id, n2id, g.centroid))
	if err := g.replaceIncidence(op, n1id, n1, in1.edge, !in1.forward, ne, true); err != nil {
		return err
	}
	if err := g.replaceIncidence(op, n2id, n2, in2.edge, !in2.forward, ne, false); err != nil {
		return err
	}
	g.invalidate(&v.pts)
	g.invalidate(&ea.pts)
	g.invalidate(&eb.pts)
	g.removeEdge(in1.edge)
	g.removeEdge(in2.edge)
	g.removeVertex(id)
	g.fullScan = true

	if err := g.refreshAround(op, n1id, n2id); err != nil {
		return err
	}
	Tracef("delete line vertex %v, joined %v-%v with %v", id, n1id, n2id, ne)
	return nil
}

// DeletePointAt removes a vertex and its edges. Each neighbor is degraded
// to the next lower degree; a neighbor left with no edges is removed too.
// The next repartition recomputes every nearest edge from scratch.
func (g *Graph) DeletePointAt(id VertexID) error {
	const op = "DeletePointAt"
	v := g.Vertex(id)
	if v == nil {
		return fmt.Errorf("delete vertex %v: %w", id, ErrStaleHandle)
	}
	g.invalidate(&v.pts)

	var survivors, orphans []VertexID
	edges := make([]EdgeID, 0, len(v.inc))
	seen := make(map[EdgeID]bool, len(v.inc))
	for _, in := range append([]incidence(nil), v.inc...) {
		e := g.Edge(in.edge)
		if e == nil {
			return g.invariant(op, ErrStaleHandle, "%v holds dead edge %v", id, in.edge)
		}
		if !seen[in.edge] {
			seen[in.edge] = true
			edges = append(edges, in.edge)
			g.invalidate(&e.pts)
		}
		nid := in.other(e)
		if nid == id {
			continue
		}
		n := g.Vertex(nid)
		if n == nil {
			return g.invariant(op, ErrStaleHandle, "edge %v references %v", in.edge, nid)
		}
		err := g.degrade(nid, n, in.edge, !in.forward)
		switch {
		case isCannotDegrade(err):
			n.setShape(KindDummy)
			orphans = append(orphans, nid)
		case err != nil:
			return err
		default:
			survivors = append(survivors, nid)
		}
	}
	for _, eid := range edges {
		g.removeEdge(eid)
	}
	g.removeVertex(id)
	for _, oid := range orphans {
		if o := g.Vertex(oid); o != nil && len(o.inc) == 0 {
			g.invalidate(&o.pts)
			g.removeVertex(oid)
			Tracef("removed orphaned vertex %v", oid)
		}
	}
	g.fullScan = true
	Tracef("delete vertex %v with %d edges", id, len(edges))

	if g.vertices.len() == 0 || g.edges.len() == 0 {
		err := &GraphDestroyedError{Ignored: len(g.samples)}
		Opsf("%v", err)
		return err
	}
	return g.refreshAround(op, survivors...)
}

// TurningRadius returns the radius of the circle through a Line vertex and
// its two neighbors. ok is false for other kinds and for collinear
// neighbors.
func (g *Graph) TurningRadius(id VertexID) (float64, bool) {
	v := g.Vertex(id)
	if v == nil || v.kind != KindLine || len(v.inc) != 2 {
		return 0, false
	}
	a, err := g.farOf("TurningRadius", v.inc[0])
	if err != nil {
		return 0, false
	}
	b, err := g.farOf("TurningRadius", v.inc[1])
	if err != nil {
		return 0, false
	}
	c, ok := geom.Circumcenter(a, v.Pos, b)
	if !ok {
		return 0, false
	}
	return r2.Norm(r2.Sub(c, v.Pos)), true
}
