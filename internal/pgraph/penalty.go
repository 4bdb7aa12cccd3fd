package pgraph

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/banshee-data/pgraph/internal/geom"
)

// numDen is the numerator/denominator form of a vertex optimum: the
// position num/den minimises the (locally quadratic) sum of the terms that
// contributed to it.
type numDen struct {
	num r2.Vec
	den float64
}

func (a numDen) add(b numDen) numDen {
	return numDen{num: r2.Add(a.num, b.num), den: a.den + b.den}
}

func (a numDen) scale(k float64) numDen {
	return numDen{num: r2.Scale(k, a.num), den: k * a.den}
}

// foldedThreshold is the normalised projection above which an end angle is
// treated as folded back and pulled towards the mirror image instead.
const foldedThreshold = -0.2

// angleTerm penalises the turn at c between neighbors a and b:
// k·(1 + cos∠acb), zero for a straight pass.
func angleTerm(c, a, b r2.Vec, k float64) float64 {
	return k * (1 + geom.CosAngle(c, a, b))
}

func angleND(c, a, b r2.Vec, k float64) numDen {
	Aa := r2.Sub(c, a)
	Ab := r2.Sub(c, b)
	Ba := r2.Norm2(Aa)
	Bb := r2.Norm2(Ab)
	if Ba == 0 || Bb == 0 {
		return numDen{}
	}
	dot := r2.Dot(Aa, Ab)
	Fa := dot / Ba
	Fb := dot / Bb
	J := k / math.Sqrt(Ba*Bb)
	num := r2.Add(r2.Scale(1-Fa, a), r2.Scale(1-Fb, b))
	return numDen{num: r2.Scale(J, num), den: J * (2 - Fa - Fb)}
}

// rectTerm penalises departure from a right angle at c: k·2cos²∠acb.
func rectTerm(c, a, b r2.Vec, k float64) float64 {
	cos := geom.CosAngle(c, a, b)
	return k * 2 * cos * cos
}

func rectND(c, a, b r2.Vec, k float64) numDen {
	return angleND(c, a, b, k).scale(0.5 * geom.CosAngle(c, a, b))
}

// lengthTerm penalises the squared length of the edge c-a.
func lengthTerm(c, a r2.Vec, k float64) float64 {
	return k * geom.Dist2(c, a)
}

func lengthND(a r2.Vec, k float64) numDen {
	return numDen{num: r2.Scale(2*k, a), den: 2 * k}
}

// endAngleTerm penalises the turn at neighbor a between c and d, the vertex
// beyond a on its straight-through edge.
func endAngleTerm(c, a, d r2.Vec, k float64) float64 {
	return k * (1 + geom.CosAngle(a, c, d))
}

func endAngleND(c, a, d r2.Vec, k float64) numDen {
	Ac := r2.Sub(a, c)
	Ad := r2.Sub(a, d)
	Bc := r2.Norm2(Ac)
	Bd := r2.Norm2(Ad)
	if Bd == 0 {
		return numDen{}
	}
	// Folded or collapsed: pull c to the mirror image of d through a.
	if Bc == 0 || r2.Dot(Ac, Ad)/Bc > foldedThreshold {
		return numDen{num: r2.Scale(k, r2.Add(Ad, a)), den: k}
	}
	Fc := r2.Dot(Ac, Ad) / Bc
	J := k / math.Sqrt(Bc*Bd)
	return numDen{num: r2.Scale(J, r2.Sub(Ad, r2.Scale(Fc, a))), den: -J * Fc}
}

// weightDiffND nudges c towards the heavier of two straight-through edges.
// It has no value term and no denominator.
func weightDiffND(c *Vertex, x, y arm, k float64) numDen {
	wx, wy := x.e.pts.weight(), y.e.pts.weight()
	total := c.pts.weight() + wx + wy
	if total == 0 {
		return numDen{}
	}
	return numDen{num: r2.Scale(k*(wx-wy)/total, r2.Sub(x.far, y.far))}
}

// reachTerm charges one side of c for how its neighbor continues.
func reachTerm(c r2.Vec, a arm, co Coefficients) (float64, numDen) {
	switch a.in.reach.shape {
	case reachAngle:
		return endAngleTerm(c, a.far, a.beyond[0], co.Angle), endAngleND(c, a.far, a.beyond[0], co.Angle)
	case reachFork:
		p := endAngleTerm(c, a.far, a.beyond[0], co.Angle) + endAngleTerm(c, a.far, a.beyond[1], co.Angle)
		nd := endAngleND(c, a.far, a.beyond[0], co.Angle).add(endAngleND(c, a.far, a.beyond[1], co.Angle))
		return p, nd
	}
	return lengthTerm(c, a.far, co.Length), lengthND(a.far, co.Length)
}

func sumReach(c r2.Vec, arms []arm, co Coefficients) (float64, numDen) {
	var p float64
	var nd numDen
	for _, a := range arms {
		ap, and := reachTerm(c, a, co)
		p += ap
		nd = nd.add(and)
	}
	return p, nd
}

// penalty returns the shape penalty of v and its numerator/denominator
// contribution to the closed-form optimum of v.
func penalty(v *Vertex, arms []arm, co Coefficients) (float64, numDen) {
	c := v.Pos
	switch v.kind {
	case KindEnd:
		a := arms[0]
		lp := lengthTerm(c, a.far, co.Length)
		lnd := lengthND(a.far, co.Length)
		if a.in.reach.shape == reachLength {
			return 3 * lp, lnd.scale(3)
		}
		rp, rnd := reachTerm(c, a, co)
		return rp + 2*lp, lnd.scale(2).add(rnd)

	case KindLine, KindCorner:
		a, b := arms[0], arms[1]
		var p float64
		var nd numDen
		if v.kind == KindLine {
			p, nd = angleTerm(c, a.far, b.far, co.Angle), angleND(c, a.far, b.far, co.Angle)
		} else {
			p, nd = rectTerm(c, a.far, b.far, co.Angle), rectND(c, a.far, b.far, co.Angle)
		}
		rp, rnd := sumReach(c, arms, co)
		nd = nd.add(rnd).add(weightDiffND(v, a, b, co.WeightDifference))
		return p + rp, nd

	case KindT:
		a, b, s := arms[0], arms[1], arms[2]
		p := angleTerm(c, a.far, b.far, co.Angle) +
			rectTerm(c, s.far, a.far, co.Angle) +
			rectTerm(c, s.far, b.far, co.Angle)
		nd := angleND(c, a.far, b.far, co.Angle).
			add(rectND(c, s.far, a.far, co.Angle)).
			add(rectND(c, s.far, b.far, co.Angle))
		rp, rnd := sumReach(c, arms, co)
		nd = nd.add(rnd).add(weightDiffND(v, a, b, co.WeightDifference))
		return p + rp, nd

	case KindY:
		a, b, s := arms[0], arms[1], arms[2]
		p := angleTerm(c, s.far, a.far, co.Angle) + angleTerm(c, s.far, b.far, co.Angle)
		nd := angleND(c, s.far, a.far, co.Angle).add(angleND(c, s.far, b.far, co.Angle))
		rp, rnd := sumReach(c, arms, co)
		nd = nd.add(rnd).
			add(weightDiffND(v, s, a, co.WeightDifference)).
			add(weightDiffND(v, s, b, co.WeightDifference))
		return p + rp, nd.scale(0.2)

	case KindStarOfThree:
		a, b, d := arms[0], arms[1], arms[2]
		p := angleTerm(c, a.far, b.far, co.Angle) +
			angleTerm(c, b.far, d.far, co.Angle) +
			angleTerm(c, a.far, d.far, co.Angle)
		nd := angleND(c, a.far, b.far, co.Angle).
			add(angleND(c, b.far, d.far, co.Angle)).
			add(angleND(c, a.far, d.far, co.Angle))
		rp, rnd := sumReach(c, arms, co)
		return 0.1 * (p + rp), nd.add(rnd).scale(0.1)

	case KindX:
		a, b, d, e := arms[0], arms[1], arms[2], arms[3]
		p := angleTerm(c, a.far, b.far, co.Angle) + angleTerm(c, d.far, e.far, co.Angle)
		nd := angleND(c, a.far, b.far, co.Angle).add(angleND(c, d.far, e.far, co.Angle))
		rp, rnd := sumReach(c, arms, co)
		nd = nd.add(rnd).
			add(weightDiffND(v, a, b, co.WeightDifference)).
			add(weightDiffND(v, d, e, co.WeightDifference))
		return p + rp, nd

	case KindStarOfFour:
		rp, rnd := sumReach(c, arms, co)
		return 0.1 * rp, rnd.scale(0.1)

	case KindStarOfMany:
		var p float64
		var nd numDen
		for _, a := range arms {
			if a.in.reach.shape != reachLength {
				rp, rnd := reachTerm(c, a, co)
				p += rp
				nd = nd.add(rnd)
			}
			p += lengthTerm(c, a.far, co.Length)
			nd = nd.add(lengthND(a.far, co.Length))
		}
		return p, nd
	}
	return 0, numDen{}
}
