package stats

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// covarianceEpsilon is the off-diagonal magnitude below which the 2x2
// covariance matrix is treated as diagonal.
const covarianceEpsilon = 1e-9

// Covariance accumulates the weighted sum and the 2x2 outer product sums of
// a point cluster, taken relative to a fixed origin. Keeping the origin near
// the data stops the line terms below from cancelling at large coordinates.
// The zero value is empty with the origin at (0,0).
type Covariance struct {
	origin     r2.Vec
	weight     float64
	sum        r2.Vec
	xx, xy, yy float64
}

// NewCovariance returns an empty accumulator relative to origin.
func NewCovariance(origin r2.Vec) Covariance {
	return Covariance{origin: origin}
}

// Add inserts p with weight w.
func (c *Covariance) Add(p r2.Vec, w float64) {
	d := r2.Sub(p, c.origin)
	c.weight += w
	c.sum = r2.Add(c.sum, r2.Scale(w, d))
	c.xx += w * d.X * d.X
	c.xy += w * d.X * d.Y
	c.yy += w * d.Y * d.Y
}

// Delete removes p with weight w. A numerically empty accumulator is reset so
// rounding residue does not linger in the sums.
func (c *Covariance) Delete(p r2.Vec, w float64) {
	rest := c.weight - w
	if rest <= weightEpsilon*math.Max(1, c.weight) {
		c.Reset()
		return
	}
	d := r2.Sub(p, c.origin)
	c.weight = rest
	c.sum = r2.Sub(c.sum, r2.Scale(w, d))
	c.xx -= w * d.X * d.X
	c.xy -= w * d.X * d.Y
	c.yy -= w * d.Y * d.Y
}

// Reset empties the accumulator. The origin is kept.
func (c *Covariance) Reset() {
	*c = Covariance{origin: c.origin}
}

// Origin returns the point the moments are taken about.
func (c *Covariance) Origin() r2.Vec { return c.origin }

// Weight returns the total weight.
func (c *Covariance) Weight() float64 { return c.weight }

// Sum returns the weighted sum of the points.
func (c *Covariance) Sum() r2.Vec { return r2.Add(c.sum, r2.Scale(c.weight, c.origin)) }

// Mean returns the weighted mean. ok is false for an empty cluster.
func (c *Covariance) Mean() (r2.Vec, bool) {
	if c.weight == 0 {
		return r2.Vec{}, false
	}
	return r2.Add(c.origin, r2.Scale(1/c.weight, c.sum)), true
}

// SecondMoments returns Σw·x², Σw·x·y and Σw·y² with x and y measured from
// the origin.
func (c *Covariance) SecondMoments() (xx, xy, yy float64) {
	return c.xx, c.xy, c.yy
}

// Centered returns the weighted covariance matrix entries about the mean.
// An empty cluster returns zeros.
func (c *Covariance) Centered() (c00, c01, c11 float64) {
	if c.weight == 0 {
		return 0, 0, 0
	}
	m := r2.Scale(1/c.weight, c.sum)
	c00 = c.xx/c.weight - m.X*m.X
	c01 = c.xy/c.weight - m.X*m.Y
	c11 = c.yy/c.weight - m.Y*m.Y
	return c00, c01, c11
}

// apply returns M·v where M is the second moment matrix about the origin.
func (c *Covariance) apply(v r2.Vec) r2.Vec {
	return r2.Vec{X: c.xx*v.X + c.xy*v.Y, Y: c.xy*v.X + c.yy*v.Y}
}

// PrincipalDirection returns the unit eigenvector of the larger eigenvalue
// of the centered covariance matrix.
//
// Algorithm:
//  1. Build the 2x2 covariance about the mean
//  2. λ1 = (trace + sqrt(trace² - 4·det)) / 2
//  3. Eigenvector = [c01, λ1 - c00], normalised
//  4. Diagonal matrices pick the x or y axis, whichever has more variance
//
// An empty or single-point cluster returns the x axis.
func (c *Covariance) PrincipalDirection() r2.Vec {
	c00, c01, c11 := c.Centered()
	trace := c00 + c11
	det := c00*c11 - c01*c01
	disc := trace*trace - 4*det
	lambda1 := c00
	if disc >= 0 {
		lambda1 = (trace + math.Sqrt(disc)) / 2
	}
	if math.Abs(c01) > covarianceEpsilon {
		ev := r2.Vec{X: c01, Y: lambda1 - c00}
		if n := r2.Norm(ev); n > covarianceEpsilon {
			return r2.Scale(1/n, ev)
		}
		return r2.Vec{X: 1}
	}
	if c00 >= c11 {
		return r2.Vec{X: 1}
	}
	return r2.Vec{Y: 1}
}

// LineMSETimesWeight returns the weighted sum of squared distances of the
// cluster points to the infinite line through c and a. For c == a the line
// degenerates to the point a.
func (c *Covariance) LineMSETimesWeight(cv, a r2.Vec) float64 {
	if c.weight == 0 {
		return 0
	}
	cv, a = r2.Sub(cv, c.origin), r2.Sub(a, c.origin)
	// Σw|y-a|²
	mse := c.xx + c.yy - 2*r2.Dot(c.sum, a) + c.weight*r2.Norm2(a)
	A := r2.Sub(cv, a)
	B := r2.Norm2(A)
	if B > 0 {
		KB := r2.Dot(A, a)
		K := KB / B
		mse = c.weight*(r2.Norm2(a)-KB*K) - 2*r2.Dot(c.sum, a) + 2*K*r2.Dot(c.sum, A) +
			c.xx + c.yy - r2.Dot(A, c.apply(A))/B
	}
	if mse < 0 {
		return 0
	}
	return mse
}

// LineGradient returns the numerator and denominator of the position of the
// moving endpoint cv that minimises LineMSETimesWeight with a held fixed.
// The optimum is num/den. An empty cluster or zero-length segment yields zero
// contributions.
func (c *Covariance) LineGradient(cv, a r2.Vec) (num r2.Vec, den float64) {
	if c.weight == 0 {
		return r2.Vec{}, 0
	}
	cv, a = r2.Sub(cv, c.origin), r2.Sub(a, c.origin)
	A := r2.Sub(cv, a)
	B := r2.Norm2(A)
	if B == 0 {
		return r2.Vec{}, 0
	}
	L := r2.Scale(1/B, A)
	K := r2.Dot(a, L)
	S1 := c.sum
	S2 := c.apply(L)
	S3 := r2.Dot(L, S2)
	LS1 := r2.Dot(L, S1)

	num = r2.Scale(c.weight*K*(1+K)-LS1+S3-2*K*LS1, a)
	num = r2.Add(num, r2.Scale(-K, S1))
	num = r2.Add(num, S2)
	den = c.weight*K*K + S3 - 2*K*LS1
	// num/den is the optimum relative to the origin.
	num = r2.Add(num, r2.Scale(den, c.origin))
	return num, den
}
