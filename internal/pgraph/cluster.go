package pgraph

import "gonum.org/v1/gonum/spatial/r2"

type ownerKind uint8

const (
	ownerNone ownerKind = iota
	ownerVertex
	ownerEdge
)

// owner identifies the cluster a sample currently belongs to.
type owner struct {
	kind ownerKind
	slot uint32
	gen  uint32
}

func vertexOwner(id VertexID) owner { return owner{kind: ownerVertex, slot: id.slot, gen: id.gen} }
func edgeOwner(id EdgeID) owner     { return owner{kind: ownerEdge, slot: id.slot, gen: id.gen} }

type accumulator interface {
	Add(p r2.Vec, w float64)
	Delete(p r2.Vec, w float64)
	Weight() float64
}

// cluster is the list of samples owned by one vertex or edge together with
// that element's running statistics.
type cluster struct {
	self    owner
	members []int
	acc     accumulator
}

// add claims sample i. It is a no-op when the sample is already owned by
// this cluster. The previous owner drops the sample on its next purge.
func (c *cluster) add(samples []sample, i int) {
	s := &samples[i]
	if s.owner == c.self {
		return
	}
	s.owner = c.self
	c.members = append(c.members, i)
	c.acc.Add(s.Pos, s.Weight)
}

// purge drops every member that was claimed by another cluster.
func (c *cluster) purge(samples []sample) {
	kept := c.members[:0]
	for _, i := range c.members {
		s := &samples[i]
		if s.owner == c.self {
			kept = append(kept, i)
			continue
		}
		c.acc.Delete(s.Pos, s.Weight)
	}
	c.members = kept
}

func (c *cluster) size() int { return len(c.members) }

func (c *cluster) weight() float64 { return c.acc.Weight() }
