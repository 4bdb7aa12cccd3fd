package pgraph

// SnapshotVertex is one vertex in a Snapshot. Index is its position in
// Snapshot.Vertices.
type SnapshotVertex struct {
	Index  int     `json:"index"`
	Kind   string  `json:"kind"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Degree int     `json:"degree"`
	Weight float64 `json:"weight"`
}

// SnapshotEdge is one edge in a Snapshot, referencing vertices by index.
type SnapshotEdge struct {
	From   int     `json:"from"`
	To     int     `json:"to"`
	Length float64 `json:"length"`
	Weight float64 `json:"weight"`
}

// Snapshot is a dense, handle-free copy of the graph for consumers that
// index vertices or build routing graphs from the edges.
type Snapshot struct {
	Vertices    []SnapshotVertex `json:"vertices"`
	Edges       []SnapshotEdge   `json:"edges"`
	MSE         float64          `json:"mse"`
	TotalWeight float64          `json:"total_weight"`
	Samples     int              `json:"samples"`
}

// Snapshot copies the graph into dense slices in slot order.
func (g *Graph) Snapshot() (*Snapshot, error) {
	ids := g.Vertices()
	index := make(map[VertexID]int, len(ids))
	s := &Snapshot{
		Vertices:    make([]SnapshotVertex, 0, len(ids)),
		Edges:       make([]SnapshotEdge, 0, g.edges.len()),
		MSE:         g.mse,
		TotalWeight: g.totalWeight,
		Samples:     len(g.samples),
	}
	for i, id := range ids {
		v := g.Vertex(id)
		index[id] = i
		s.Vertices = append(s.Vertices, SnapshotVertex{
			Index:  i,
			Kind:   v.kind.String(),
			X:      v.Pos.X,
			Y:      v.Pos.Y,
			Degree: v.Degree(),
			Weight: v.Weight(),
		})
	}
	for _, id := range g.Edges() {
		e := g.Edge(id)
		from, ok1 := index[e.V1]
		to, ok2 := index[e.V2]
		if !ok1 || !ok2 {
			return nil, g.invariant("Snapshot", ErrStaleHandle, "edge %v has a dead endpoint", id)
		}
		seg, _ := g.Segment(id)
		s.Edges = append(s.Edges, SnapshotEdge{From: from, To: to, Length: seg.Length(), Weight: e.Weight()})
	}
	return s, nil
}

// CheckInvariants verifies the structural bookkeeping of the graph:
// every vertex has as many incidences as its kind requires, every
// incidence names a live edge that has the vertex at the matching end,
// every edge is held by both endpoints, and every cached reach agrees with
// the neighbor's current shape.
func (g *Graph) CheckInvariants() error {
	const op = "CheckInvariants"
	for _, id := range g.Vertices() {
		v := g.Vertex(id)
		if v.kind == KindDummy {
			return g.invariant(op, ErrInvariant, "dummy vertex %v left in graph", id)
		}
		if !degreeMatches(v) {
			return g.invariant(op, ErrInvariant, "vertex %v of kind %s has %d incidences", id, v.kind, len(v.inc))
		}
		for i, in := range v.inc {
			e := g.Edge(in.edge)
			if e == nil {
				return g.invariant(op, ErrStaleHandle, "vertex %v incidence %d references %v", id, i, in.edge)
			}
			if (in.forward && e.V1 != id) || (!in.forward && e.V2 != id) {
				return g.invariant(op, ErrNotNeighbor, "vertex %v incidence %d is not an end of %v", id, i, in.edge)
			}
			r, err := g.reachThrough(op, in)
			if err != nil {
				return err
			}
			if r != in.reach {
				return g.invariant(op, ErrInvariant, "vertex %v incidence %d has a stale reach", id, i)
			}
		}
	}
	for _, id := range g.Edges() {
		e := g.Edge(id)
		v1, v2 := g.Vertex(e.V1), g.Vertex(e.V2)
		if v1 == nil || v2 == nil {
			return g.invariant(op, ErrStaleHandle, "edge %v has a dead endpoint", id)
		}
		if v1.find(id, true) < 0 || v2.find(id, false) < 0 {
			return g.invariant(op, ErrNotNeighbor, "edge %v is not held by its endpoints", id)
		}
	}
	return nil
}
