package pgraph

import (
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/banshee-data/pgraph/internal/stats"
)

// reachShape says how a vertex sees the neighbor at the end of one of its
// edges, which decides the penalty charged for that side.
type reachShape uint8

const (
	// reachLength: the neighbor has no straight-through partner for this
	// edge; the side is charged the edge length penalty.
	reachLength reachShape = iota
	// reachAngle: the neighbor continues straight through to one opposite
	// edge; the side is charged the angle at the neighbor.
	reachAngle
	// reachFork: this edge is the stem of a Y neighbor; the side is charged
	// the angles to both of its branches.
	reachFork
)

// reach is the cached view through one neighbor.
type reach struct {
	shape reachShape
	opp   [2]EdgeID
}

// incidence is one edge end attached to a vertex.
type incidence struct {
	edge EdgeID
	// forward is true when the vertex is the edge's V1.
	forward bool
	reach   reach
}

// Vertex is a graph node. Its kind and incidence layout are changed only by
// graph surgery.
type Vertex struct {
	Pos r2.Vec

	kind Kind
	inc  []incidence

	pts   cluster
	stats stats.Online

	// prev is the position at the end of the last repartition pass.
	prev r2.Vec
	// anchor and dir describe the current line search: Pos = anchor + t*dir.
	anchor r2.Vec
	dir    r2.Vec
}

func newVertex(kind Kind, pos r2.Vec) *Vertex {
	v := &Vertex{Pos: pos, kind: kind, prev: pos, anchor: pos}
	v.pts.acc = &v.stats
	return v
}

// Kind returns the vertex shape.
func (v *Vertex) Kind() Kind { return v.kind }

// Degree returns the number of incident edge ends.
func (v *Vertex) Degree() int { return len(v.inc) }

// Weight returns the weight of the vertex's own cluster.
func (v *Vertex) Weight() float64 { return v.pts.weight() }

// Size returns the number of samples in the vertex's own cluster.
func (v *Vertex) Size() int { return v.pts.size() }

// find returns the position of the incidence for edge e with the given
// orientation, or -1.
func (v *Vertex) find(e EdgeID, forward bool) int {
	for i, in := range v.inc {
		if in.edge == e && in.forward == forward {
			return i
		}
	}
	return -1
}

// setShape replaces the kind and incidence layout. Cached reaches are kept
// and must be refreshed by the caller.
func (v *Vertex) setShape(kind Kind, inc ...incidence) {
	v.kind = kind
	v.inc = append(v.inc[:0:0], inc...)
}

// other returns the vertex at the far end of an incidence.
func (in incidence) other(e *Edge) VertexID {
	if in.forward {
		return e.V2
	}
	return e.V1
}
