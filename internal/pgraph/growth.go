package pgraph

import "math"

// terminating reports whether an edge carrying weight w is too light to be
// split further.
func (g *Graph) terminating(w, coefficient float64) bool {
	if w < 2 {
		return true
	}
	if coefficient <= 0 || g.radius == 0 || g.edges.len() <= 3 {
		return false
	}
	limit := math.Pow(g.totalWeight, 2.0/3.0) * math.Sqrt(g.mse) / g.radius / coefficient
	return w < limit
}

// AddOneVertexAsMidpoint splits the busiest edge, scored by its own weight
// plus half the weight of its endpoints with ties going to the longer edge.
// It returns false, leaving the graph unchanged, when that edge is too light
// to justify another vertex.
func (g *Graph) AddOneVertexAsMidpoint(terminatingCoefficient float64) (bool, error) {
	var best EdgeID
	bestScore, bestLen := math.Inf(-1), math.Inf(-1)
	for _, id := range g.Edges() {
		e := g.Edge(id)
		seg, ok := g.Segment(id)
		if !ok {
			return false, g.invariant("AddOneVertexAsMidpoint", ErrStaleHandle, "edge %v has a dead endpoint", id)
		}
		score := e.pts.weight() + (g.Vertex(e.V1).pts.weight()+g.Vertex(e.V2).pts.weight())/2
		l := seg.Length()
		if score > bestScore || (score == bestScore && l > bestLen) {
			best, bestScore, bestLen = id, score, l
		}
	}
	if best.IsZero() || g.terminating(g.Edge(best).pts.weight(), terminatingCoefficient) {
		return false, nil
	}
	if _, err := g.InsertMidPoint(best); err != nil {
		return false, err
	}
	return true, nil
}

// AddVerticesAsMidpoints splits every edge that is heavy enough. It returns
// false when no edge qualified.
func (g *Graph) AddVerticesAsMidpoints(terminatingCoefficient float64) (bool, error) {
	var split []EdgeID
	for _, id := range g.Edges() {
		if !g.terminating(g.Edge(id).pts.weight(), terminatingCoefficient) {
			split = append(split, id)
		}
	}
	for _, id := range split {
		if _, err := g.InsertMidPoint(id); err != nil {
			return false, err
		}
	}
	return len(split) > 0, nil
}

// AddVertexOnLongest splits the longest edge unless it is shorter than
// maxLength.
func (g *Graph) AddVertexOnLongest(maxLength float64) (bool, error) {
	var best EdgeID
	bestLen := math.Inf(-1)
	for _, id := range g.Edges() {
		seg, ok := g.Segment(id)
		if !ok {
			return false, g.invariant("AddVertexOnLongest", ErrStaleHandle, "edge %v has a dead endpoint", id)
		}
		if l := seg.Length(); l > bestLen {
			best, bestLen = id, l
		}
	}
	if best.IsZero() || bestLen < maxLength {
		return false, nil
	}
	if _, err := g.InsertMidPoint(best); err != nil {
		return false, err
	}
	return true, nil
}
