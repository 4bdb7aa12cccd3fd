package pgraph

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/banshee-data/pgraph/internal/geom"
)

// InitializeToCurves seeds an empty graph from a set of polylines. Curve
// points closer than joinThreshold to an earlier vertex are merged into it:
// two curve ends form a Line and anything of higher degree forms a star.
// Self loops and duplicate edges produced by merging are removed, every
// junction is restructured from its geometry, and an edge joining two
// junctions is split so that each junction has a regular neighbor.
func (g *Graph) InitializeToCurves(curves [][]r2.Vec, joinThreshold float64) error {
	const op = "InitializeToCurves"
	if g.vertices.len() > 0 {
		return ErrAlreadyInitialized
	}
	for i, c := range curves {
		if len(c) < 2 {
			return fmt.Errorf("curve %d has %d points: %w", i, len(c), ErrShortCurve)
		}
	}

	type pending struct {
		id     VertexID
		kind   Kind
		degree int
	}
	var verts []pending
	for ci, c := range curves {
		ids := make([]VertexID, len(c))
		for j, p := range c {
			kind, degree := KindLine, 2
			if j == 0 || j == len(c)-1 {
				kind, degree = KindEnd, 1
			}
			k := -1
			for n := range verts {
				if geom.Dist(g.Vertex(verts[n].id).Pos, p) <= joinThreshold {
					k = n
					break
				}
			}
			if k < 0 {
				verts = append(verts, pending{id: g.addVertex(newVertex(kind, p)), kind: kind, degree: degree})
				ids[j] = verts[len(verts)-1].id
				continue
			}
			joined, err := joinKind(verts[k].kind, verts[k].degree, kind, degree)
			if err != nil {
				return fmt.Errorf("curve %d point %d: %w", ci, j, err)
			}
			verts[k].kind = joined
			verts[k].degree += degree
			ids[j] = verts[k].id
		}
		for j := 0; j+1 < len(ids); j++ {
			g.connect(ids[j], g.Vertex(ids[j]), ids[j+1], g.Vertex(ids[j+1]))
		}
	}
	for _, pv := range verts {
		g.Vertex(pv.id).kind = pv.kind
	}

	if err := g.dropLoopsAndDuplicates(op); err != nil {
		return err
	}
	if g.edges.len() == 0 {
		return &GraphDestroyedError{Ignored: len(g.samples)}
	}
	if err := g.refreshAll(op); err != nil {
		return err
	}
	for _, id := range g.Vertices() {
		if err := g.restructure(g.Vertex(id)); err != nil {
			return err
		}
	}
	if err := g.refreshAll(op); err != nil {
		return err
	}
	for _, id := range g.Edges() {
		e := g.Edge(id)
		if e == nil {
			continue
		}
		if !g.Vertex(e.V1).kind.regular() && !g.Vertex(e.V2).kind.regular() {
			if _, err := g.InsertMidPoint(id); err != nil {
				return err
			}
		}
	}
	if err := g.CheckInvariants(); err != nil {
		return err
	}
	g.fullScan = true
	g.markPositions()
	Diagf("initialized from %d curves: %d vertices, %d edges", len(curves), g.vertices.len(), g.edges.len())
	return nil
}

// dropLoopsAndDuplicates removes self loops and all but the last of any
// parallel edges, degrading their endpoints. Vertices left without edges
// are removed.
func (g *Graph) dropLoopsAndDuplicates(op string) error {
	ids := g.Edges()
	type pair struct{ a, b VertexID }
	last := make(map[pair]EdgeID, len(ids))
	key := func(e *Edge) pair {
		a, b := e.V1, e.V2
		if b.slot < a.slot {
			a, b = b, a
		}
		return pair{a, b}
	}
	for _, id := range ids {
		last[key(g.Edge(id))] = id
	}
	var orphans []VertexID
	for _, id := range ids {
		e := g.Edge(id)
		if e.V1 != e.V2 && last[key(e)] == id {
			continue
		}
		for _, end := range []struct {
			v       VertexID
			forward bool
		}{{e.V1, true}, {e.V2, false}} {
			v := g.Vertex(end.v)
			err := g.degrade(end.v, v, id, end.forward)
			switch {
			case isCannotDegrade(err):
				v.setShape(KindDummy)
				orphans = append(orphans, end.v)
			case err != nil:
				return err
			}
		}
		g.removeEdge(id)
		Tracef("%s: dropped redundant edge %v", op, id)
	}
	for _, id := range orphans {
		if v := g.Vertex(id); v != nil && len(v.inc) == 0 {
			g.removeVertex(id)
		}
	}
	return nil
}

// refreshAll recomputes every cached reach.
func (g *Graph) refreshAll(op string) error {
	for _, id := range g.Vertices() {
		if err := g.refresh(op, id); err != nil {
			return err
		}
	}
	return nil
}

// ConvertToCurves breaks the graph into polylines. Each curve starts at a
// vertex that is not a Line, follows Line vertices, and stops at the next
// vertex that is not a Line. Closed loops made only of Line vertices are
// emitted last, with the first point repeated at the end.
func (g *Graph) ConvertToCurves() ([][]r2.Vec, error) {
	const op = "ConvertToCurves"
	ids := g.Vertices()
	label := make(map[VertexID]int, len(ids))
	for _, id := range ids {
		label[id] = g.Vertex(id).Degree()
	}
	used := make(map[EdgeID]bool, g.edges.len())

	// step leaves v through in and returns the vertex on the other side.
	step := func(in incidence) (VertexID, *Vertex, error) {
		e := g.Edge(in.edge)
		if e == nil {
			return VertexID{}, nil, g.invariant(op, ErrStaleHandle, "incidence references %v", in.edge)
		}
		used[in.edge] = true
		nid := in.other(e)
		n := g.Vertex(nid)
		if n == nil {
			return VertexID{}, nil, g.invariant(op, ErrStaleHandle, "edge %v references %v", in.edge, nid)
		}
		return nid, n, nil
	}
	// through returns the incidence of a Line vertex opposite to the one it
	// was entered by.
	through := func(id VertexID, v *Vertex, via incidence) (incidence, error) {
		j := v.find(via.edge, !via.forward)
		if j < 0 || len(v.inc) != 2 {
			return incidence{}, g.invariant(op, ErrNotNeighbor, "%v does not hold %v", id, via.edge)
		}
		return v.inc[1-j], nil
	}

	var curves [][]r2.Vec
	for _, start := range ids {
		sv := g.Vertex(start)
		if sv.kind == KindLine {
			continue
		}
		for _, in := range sv.inc {
			if label[start] == 0 {
				break
			}
			if used[in.edge] {
				continue
			}
			curve := []r2.Vec{sv.Pos}
			label[start]--
			nid, n, err := step(in)
			if err != nil {
				return nil, err
			}
			for n.kind == KindLine {
				label[nid] = 0
				curve = append(curve, n.Pos)
				next, err := through(nid, n, in)
				if err != nil {
					return nil, err
				}
				in = next
				if nid, n, err = step(in); err != nil {
					return nil, err
				}
			}
			curve = append(curve, n.Pos)
			label[nid]--
			curves = append(curves, curve)
		}
	}
	for _, start := range ids {
		if label[start] <= 0 {
			continue
		}
		sv := g.Vertex(start)
		if sv.kind != KindLine {
			return nil, g.invariant(op, ErrInvariant, "%s vertex %v has unvisited edges", sv.kind, start)
		}
		curve := []r2.Vec{sv.Pos}
		label[start] = 0
		in := sv.inc[0]
		nid, n, err := step(in)
		if err != nil {
			return nil, err
		}
		for nid != start {
			if n.kind != KindLine {
				return nil, g.invariant(op, ErrInvariant, "loop through %v reached %s vertex %v", start, n.kind, nid)
			}
			label[nid] = 0
			curve = append(curve, n.Pos)
			next, err := through(nid, n, in)
			if err != nil {
				return nil, err
			}
			in = next
			if nid, n, err = step(in); err != nil {
				return nil, err
			}
		}
		curves = append(curves, append(curve, sv.Pos))
	}
	return curves, nil
}
