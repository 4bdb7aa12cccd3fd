package pgraph

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/banshee-data/pgraph/internal/geom"
)

// bearingEpsilon is the tolerance, in degrees, for deciding that three
// bearings are consecutive when pairing the edges of a degree-four vertex.
const bearingEpsilon = 1e-4

// straightAngle is the angle in degrees above which two edges count as one
// line through a vertex.
const straightAngle = 160

// farOf returns the position at the far end of an incidence.
func (g *Graph) farOf(op string, in incidence) (r2.Vec, error) {
	e := g.Edge(in.edge)
	if e == nil {
		return r2.Vec{}, g.invariant(op, ErrStaleHandle, "incidence references %v", in.edge)
	}
	n := g.Vertex(in.other(e))
	if n == nil {
		return r2.Vec{}, g.invariant(op, ErrStaleHandle, "edge %v has a dead endpoint", in.edge)
	}
	return n.Pos, nil
}

// angleBetween returns the angle at v, in degrees, between two incidences.
func (g *Graph) angleBetween(op string, v *Vertex, x, y incidence) (float64, error) {
	a, err := g.farOf(op, x)
	if err != nil {
		return 0, err
	}
	b, err := g.farOf(op, y)
	if err != nil {
		return 0, err
	}
	return geom.AngleDeg(v.Pos, a, b), nil
}

// reachThrough classifies how the neighbor at the far end of in continues.
func (g *Graph) reachThrough(op string, in incidence) (reach, error) {
	e := g.Edge(in.edge)
	if e == nil {
		return reach{}, g.invariant(op, ErrStaleHandle, "incidence references %v", in.edge)
	}
	nid := in.other(e)
	n := g.Vertex(nid)
	if n == nil {
		return reach{}, g.invariant(op, ErrStaleHandle, "edge %v references %v", in.edge, nid)
	}
	j := n.find(in.edge, !in.forward)
	if j < 0 || n.kind == KindDummy {
		return reach{}, g.invariant(op, ErrNotNeighbor, "%v does not hold %v", nid, in.edge)
	}
	if !degreeMatches(n) {
		return reach{}, g.invariant(op, ErrInvariant, "neighbor %v of kind %s has %d incidences", nid, n.kind, len(n.inc))
	}
	switch n.kind {
	case KindLine:
		return reach{shape: reachAngle, opp: [2]EdgeID{n.inc[1-j].edge}}, nil
	case KindX:
		return reach{shape: reachAngle, opp: [2]EdgeID{n.inc[j^1].edge}}, nil
	case KindT:
		if j < 2 {
			return reach{shape: reachAngle, opp: [2]EdgeID{n.inc[1-j].edge}}, nil
		}
	case KindY:
		if j < 2 {
			return reach{shape: reachAngle, opp: [2]EdgeID{n.inc[2].edge}}, nil
		}
		return reach{shape: reachFork, opp: [2]EdgeID{n.inc[0].edge, n.inc[1].edge}}, nil
	}
	return reach{shape: reachLength}, nil
}

// refresh recomputes the cached reach of every incidence of id.
func (g *Graph) refresh(op string, id VertexID) error {
	v := g.Vertex(id)
	if v == nil {
		return nil
	}
	for i := range v.inc {
		r, err := g.reachThrough(op, v.inc[i])
		if err != nil {
			return err
		}
		v.inc[i].reach = r
	}
	return nil
}

// refreshAround refreshes the given vertices and all of their neighbors.
// Stale handles are skipped.
func (g *Graph) refreshAround(op string, ids ...VertexID) error {
	seen := make(map[VertexID]bool)
	order := make([]VertexID, 0, len(ids)*3)
	visit := func(id VertexID) {
		if !seen[id] {
			seen[id] = true
			order = append(order, id)
		}
	}
	for _, id := range ids {
		if g.Vertex(id) == nil {
			continue
		}
		visit(id)
		for _, n := range g.Neighbors(id) {
			visit(n)
		}
	}
	for _, id := range order {
		if err := g.refresh(op, id); err != nil {
			return err
		}
	}
	return nil
}

// Maintain rebuilds the cached view that v holds of neighbor after the
// neighbor's shape or edges changed. It fails with ErrNotNeighbor when the
// two vertices share no edge.
func (g *Graph) Maintain(id, neighbor VertexID) error {
	v := g.Vertex(id)
	if v == nil {
		return fmt.Errorf("maintain %v: %w", id, ErrStaleHandle)
	}
	found := false
	for i, in := range v.inc {
		e := g.Edge(in.edge)
		if e == nil || in.other(e) != neighbor {
			continue
		}
		r, err := g.reachThrough("Maintain", in)
		if err != nil {
			return err
		}
		v.inc[i].reach = r
		found = true
	}
	if !found {
		return g.invariant("Maintain", ErrNotNeighbor, "%v has no edge to %v", id, neighbor)
	}
	return nil
}

// lineOrCorner picks the degree-two shape for two incidences.
func (g *Graph) lineOrCorner(op string, v *Vertex, x, y incidence) error {
	a, err := g.angleBetween(op, v, x, y)
	if err != nil {
		return err
	}
	if cornerAngle(a) {
		v.setShape(KindCorner, x, y)
	} else {
		v.setShape(KindLine, x, y)
	}
	return nil
}

// degrade removes the incidence (e, forward) from v and moves v to the
// matching lower-degree kind. An End vertex returns errCannotDegrade and is
// left unchanged.
func (g *Graph) degrade(id VertexID, v *Vertex, e EdgeID, forward bool) error {
	const op = "Degrade"
	j := v.find(e, forward)
	if j < 0 {
		return g.invariant(op, ErrNotNeighbor, "%v does not hold %v", id, e)
	}
	if !degreeMatches(v) {
		return g.invariant(op, ErrInvariant, "vertex %v of kind %s has %d incidences", id, v.kind, len(v.inc))
	}
	inc := v.inc
	rest := make([]incidence, 0, len(inc)-1)
	rest = append(rest, inc[:j]...)
	rest = append(rest, inc[j+1:]...)

	switch v.kind {
	case KindDummy, KindEnd:
		return errCannotDegrade
	case KindLine, KindCorner:
		v.setShape(KindEnd, rest...)
	case KindT:
		if j == 2 {
			v.setShape(KindLine, inc[0], inc[1])
			break
		}
		if err := g.lineOrCorner(op, v, inc[1-j], inc[2]); err != nil {
			return err
		}
	case KindY:
		if j == 2 {
			if err := g.lineOrCorner(op, v, inc[0], inc[1]); err != nil {
				return err
			}
			break
		}
		v.setShape(KindLine, inc[1-j], inc[2])
	case KindStarOfThree:
		if err := g.lineOrCorner(op, v, rest[0], rest[1]); err != nil {
			return err
		}
	case KindX:
		partner := inc[j^1]
		q1, q2 := inc[2], inc[3]
		if j >= 2 {
			q1, q2 = inc[0], inc[1]
		}
		a1, err := g.angleBetween(op, v, partner, q1)
		if err != nil {
			return err
		}
		a2, err := g.angleBetween(op, v, partner, q2)
		if err != nil {
			return err
		}
		switch {
		case rectAngle(a1) && rectAngle(a2):
			v.setShape(KindT, q1, q2, partner)
		case a1 < a2:
			v.setShape(KindY, partner, q1, q2)
		default:
			v.setShape(KindY, partner, q2, q1)
		}
	case KindStarOfFour:
		v.setShape(KindStarOfThree, rest...)
	case KindStarOfMany:
		if len(rest) >= 3 {
			v.setShape(KindStarOfMany, rest...)
			break
		}
		if err := g.lineOrCorner(op, v, rest[0], rest[1]); err != nil {
			return err
		}
	}
	Tracef("degrade %v -> %s", id, v.kind)
	return nil
}

// Restructure re-derives the shape of a degree-three or degree-four vertex
// from its current geometry. Stars of degree three or four become
// StarOfThree or StarOfFour first. Vertices of other kinds are unchanged.
func (g *Graph) Restructure(id VertexID) error {
	v := g.Vertex(id)
	if v == nil {
		return fmt.Errorf("restructure %v: %w", id, ErrStaleHandle)
	}
	before := v.kind
	if err := g.restructure(v); err != nil {
		return err
	}
	if v.kind != before {
		Tracef("restructure %v: %s -> %s", id, before, v.kind)
		return g.refreshAround("Restructure", id)
	}
	return nil
}

func (g *Graph) restructure(v *Vertex) error {
	const op = "Restructure"
	if v.kind == KindStarOfMany {
		switch len(v.inc) {
		case 3:
			v.kind = KindStarOfThree
		case 4:
			v.kind = KindStarOfFour
		}
	}
	switch v.kind {
	case KindStarOfThree:
		return g.restructureThree(op, v)
	case KindStarOfFour:
		return g.restructureFour(op, v)
	}
	return nil
}

// restructureThree turns a three-star into a T when two edges run straight
// through and the third meets both at a right angle, and otherwise into a Y
// whose branches are the pair with the smallest angle. A tie for the
// smallest angle leaves the star unchanged.
func (g *Graph) restructureThree(op string, v *Vertex) error {
	inc := v.inc
	pairs := [3][3]int{{0, 1, 2}, {1, 2, 0}, {0, 2, 1}}
	var angles [3]float64
	for k, p := range pairs {
		a, err := g.angleBetween(op, v, inc[p[0]], inc[p[1]])
		if err != nil {
			return err
		}
		angles[k] = a
	}
	maxK, minK := 0, 0
	for k := 1; k < 3; k++ {
		if angles[k] > angles[maxK] {
			maxK = k
		}
		if angles[k] < angles[minK] {
			minK = k
		}
	}
	if angles[maxK] > straightAngle {
		others := [2]int{}
		n := 0
		for k := 0; k < 3; k++ {
			if k != maxK {
				others[n] = k
				n++
			}
		}
		if rectAngle(angles[others[0]]) && rectAngle(angles[others[1]]) {
			p := pairs[maxK]
			v.setShape(KindT, inc[p[0]], inc[p[1]], inc[p[2]])
			return nil
		}
	}
	for k := 0; k < 3; k++ {
		if k != minK && math.Abs(angles[k]-angles[minK]) < bearingEpsilon {
			return nil
		}
	}
	p := pairs[minK]
	v.setShape(KindY, inc[p[0]], inc[p[1]], inc[p[2]])
	return nil
}

// restructureFour pairs the edges of a four-star into an X. When three
// edges are consecutive in bearing (their two adjacent angles sum to the
// outer one) the outer two are opposite.
func (g *Graph) restructureFour(op string, v *Vertex) error {
	inc := v.inc
	var a [4][4]float64
	for i := 0; i < 4; i++ {
		for j := i + 1; j < 4; j++ {
			ang, err := g.angleBetween(op, v, inc[i], inc[j])
			if err != nil {
				return err
			}
			a[i][j], a[j][i] = ang, ang
		}
	}
	between := func(x, mid, y int) bool {
		return math.Abs(a[x][mid]+a[mid][y]-a[x][y]) < bearingEpsilon
	}
	switch {
	case between(0, 1, 2) || between(0, 3, 2):
		v.setShape(KindX, inc[0], inc[2], inc[1], inc[3])
	case between(0, 1, 3) || between(0, 2, 3):
		v.setShape(KindX, inc[0], inc[3], inc[2], inc[1])
	default:
		v.setShape(KindX, inc[0], inc[1], inc[2], inc[3])
	}
	return nil
}

// joinKind returns the kind of a vertex formed by merging a vertex of kind a
// and degree da with one of kind b and degree db.
func joinKind(a Kind, da int, b Kind, db int) (Kind, error) {
	switch {
	case a == KindEnd && b == KindEnd:
		return KindLine, nil
	case da+db > 2:
		return KindStarOfMany, nil
	}
	return KindDummy, fmt.Errorf("%w: %s+%s", ErrUnknownJoin, a, b)
}

// isCannotDegrade reports whether err is the End-vertex degrade signal.
func isCannotDegrade(err error) bool { return errors.Is(err, errCannotDegrade) }
