package pgraph

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// Repartition assigns every sample to its nearest graph element and
// removes vertices left with no samples around them.
//
// Algorithm:
//  1. maxChange = largest vertex move since the previous pass
//  2. For each sample, recompute the distance d to its cached nearest edge
//     and lower its second-nearest bound by maxChange
//  3. Rescan all edges only when the bound no longer exceeds d
//  4. Purge samples that moved out of each cluster
//  5. Delete the first vertex whose own cluster and incident edge clusters
//     are all empty, then repeat from 1
//
// On return MSE reflects the final partition. The penalty coefficients are
// left alone; see UpdateCoefficients.
func (g *Graph) Repartition() error {
	for {
		if err := g.repartitionPass(); err != nil {
			return err
		}
		id, ok := g.firstEmptyVertex()
		if !ok {
			break
		}
		v := g.Vertex(id)
		Tracef("pruning empty %s vertex %v", v.kind, id)
		var err error
		if v.kind == KindLine {
			err = g.DeleteLineVertexAt(id)
		} else {
			err = g.DeletePointAt(id)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// liveEdges resolves all edges for one pass.
func (g *Graph) liveEdges() ([]edgeRef, map[EdgeID]int, error) {
	refs := make([]edgeRef, 0, g.edges.len())
	index := make(map[EdgeID]int, g.edges.len())
	var err error
	g.edges.each(func(slot, gen uint32, e *Edge) {
		if err != nil {
			return
		}
		id := EdgeID{slot: slot, gen: gen}
		v1, v2 := g.Vertex(e.V1), g.Vertex(e.V2)
		if v1 == nil || v2 == nil {
			err = g.invariant("Repartition", ErrStaleHandle, "edge %v has a dead endpoint", id)
			return
		}
		index[id] = len(refs)
		refs = append(refs, edgeRef{id: id, e: e, v1: v1, v2: v2, seg: Segment{A: v1.Pos, B: v2.Pos}})
	})
	return refs, index, err
}

func (g *Graph) repartitionPass() error {
	refs, index, err := g.liveEdges()
	if err != nil {
		return err
	}
	if len(refs) == 0 {
		return &GraphDestroyedError{Ignored: len(g.samples)}
	}
	maxChange := g.maxChange()
	full := g.fullScan

	var mse float64
	for i := range g.samples {
		s := &g.samples[i]
		k := -1
		d := math.Inf(1)
		if !full {
			if j, ok := index[s.nearest]; ok {
				k = j
				d = refs[j].seg.Dist(s.Pos)
			}
		}
		s.second -= maxChange
		if k < 0 || s.second-d <= 0 {
			k, d, s.second = nearestTwo(refs, s.Pos)
		}
		s.nearest = refs[k].id
		mse += s.Weight * g.assign(&refs[k], i, d)
	}

	g.vertices.each(func(_, _ uint32, v *Vertex) { v.pts.purge(g.samples) })
	for _, r := range refs {
		r.e.deleteMovedPoints(g.samples)
	}
	g.mse = mse / g.totalWeight
	g.fullScan = false
	g.markPositions()
	return nil
}

// nearestTwo scans all edges for the nearest one and the distance to the
// runner-up (+Inf when there is only one edge).
func nearestTwo(refs []edgeRef, p r2.Vec) (int, float64, float64) {
	best, second := math.Inf(1), math.Inf(1)
	k := 0
	for j := range refs {
		d := refs[j].seg.Dist(p)
		switch {
		case d < best:
			second = best
			best = d
			k = j
		case d < second:
			second = d
		}
	}
	return k, best, second
}

// firstEmptyVertex returns the first vertex, in slot order, with no samples
// in its own cluster or in any incident edge cluster.
func (g *Graph) firstEmptyVertex() (VertexID, bool) {
	var found VertexID
	ok := false
	g.vertices.each(func(slot, gen uint32, v *Vertex) {
		if ok || v.pts.size() > 0 {
			return
		}
		for _, in := range v.inc {
			if e := g.Edge(in.edge); e != nil && e.pts.size() > 0 {
				return
			}
		}
		found = VertexID{slot: slot, gen: gen}
		ok = true
	})
	return found, ok
}
