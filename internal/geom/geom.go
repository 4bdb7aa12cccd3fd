package geom

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// parallelEpsilon is the cross-product magnitude below which two directions
// are treated as parallel.
const parallelEpsilon = 1e-12

// Dist returns the Euclidean distance between a and b.
func Dist(a, b r2.Vec) float64 {
	return r2.Norm(r2.Sub(a, b))
}

// Dist2 returns the squared Euclidean distance between a and b.
func Dist2(a, b r2.Vec) float64 {
	return r2.Norm2(r2.Sub(a, b))
}

// Lerp returns the point a + t*(b-a).
func Lerp(a, b r2.Vec, t float64) r2.Vec {
	return r2.Add(a, r2.Scale(t, r2.Sub(b, a)))
}

// Midpoint returns the midpoint of segment ab.
func Midpoint(a, b r2.Vec) r2.Vec {
	return r2.Scale(0.5, r2.Add(a, b))
}

// ProjectParam returns the parameter t of the orthogonal projection of p on
// the line through a and b, so that Lerp(a, b, t) is the foot point.
// A zero-length segment projects every point to t=0.
func ProjectParam(p, a, b r2.Vec) float64 {
	ab := r2.Sub(b, a)
	l2 := r2.Norm2(ab)
	if l2 == 0 {
		return 0
	}
	return r2.Dot(r2.Sub(p, a), ab) / l2
}

// SegmentDist returns the distance from p to the closed segment ab. When the
// projection falls outside the segment the result is exactly the distance to
// the nearer endpoint.
func SegmentDist(p, a, b r2.Vec) float64 {
	t := ProjectParam(p, a, b)
	switch {
	case t <= 0:
		return Dist(p, a)
	case t >= 1:
		return Dist(p, b)
	}
	return Dist(p, Lerp(a, b, t))
}

// CosAngle returns the cosine of the angle at c between the rays c->a and
// c->b. Degenerate rays give 1, the value for a fully folded shape.
func CosAngle(c, a, b r2.Vec) float64 {
	ca := r2.Sub(a, c)
	cb := r2.Sub(b, c)
	n := r2.Norm(ca) * r2.Norm(cb)
	if n == 0 {
		return 1
	}
	cos := r2.Dot(ca, cb) / n
	return math.Max(-1, math.Min(1, cos))
}

// AngleDeg returns the angle at c between c->a and c->b in degrees, in [0, 180].
func AngleDeg(c, a, b r2.Vec) float64 {
	return math.Acos(CosAngle(c, a, b)) * 180 / math.Pi
}

// BearingDeg returns the direction of c->a measured counter-clockwise from
// the x axis, in degrees in [0, 360).
func BearingDeg(c, a r2.Vec) float64 {
	d := r2.Sub(a, c)
	deg := math.Atan2(d.Y, d.X) * 180 / math.Pi
	if deg < 0 {
		deg += 360
	}
	return deg
}

// IntersectLines returns the intersection of the line through p with
// direction u and the line through q with direction v.
// ok is false when the directions are parallel or degenerate.
func IntersectLines(p, u, q, v r2.Vec) (r2.Vec, bool) {
	den := r2.Cross(u, v)
	if math.Abs(den) < parallelEpsilon*r2.Norm(u)*r2.Norm(v) || den == 0 {
		return r2.Vec{}, false
	}
	t := r2.Cross(r2.Sub(q, p), v) / den
	return r2.Add(p, r2.Scale(t, u)), true
}

// Circumcenter returns the center of the circle through a, b and c, found as
// the intersection of the perpendicular bisectors of ab and bc.
// ok is false when the points are collinear or coincident.
func Circumcenter(a, b, c r2.Vec) (r2.Vec, bool) {
	ab := r2.Sub(b, a)
	bc := r2.Sub(c, b)
	nab := r2.Vec{X: -ab.Y, Y: ab.X}
	nbc := r2.Vec{X: -bc.Y, Y: bc.X}
	return IntersectLines(Midpoint(a, b), nab, Midpoint(b, c), nbc)
}
