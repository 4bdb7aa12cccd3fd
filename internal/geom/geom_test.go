package geom

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/spatial/r2"
)

func TestSegmentDist(t *testing.T) {
	t.Parallel()
	a := r2.Vec{X: 0, Y: 0}
	b := r2.Vec{X: 4, Y: 0}

	testCases := []struct {
		name string
		p    r2.Vec
		want float64
	}{
		{"interior", r2.Vec{X: 2, Y: 3}, 3},
		{"before start", r2.Vec{X: -3, Y: 4}, 5},
		{"past end", r2.Vec{X: 7, Y: 0}, 3},
		{"on segment", r2.Vec{X: 1, Y: 0}, 0},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.want, SegmentDist(tc.p, a, b), 1e-12)
		})
	}
}

func TestSegmentDist_ClampedEqualsEndpointDistance(t *testing.T) {
	a := r2.Vec{X: 1, Y: 1}
	b := r2.Vec{X: 2, Y: 3}
	p := r2.Vec{X: -1.3, Y: 0.2}
	assert.Equal(t, Dist(p, a), SegmentDist(p, a, b))
}

func TestSegmentDist_ZeroLength(t *testing.T) {
	a := r2.Vec{X: 1, Y: 1}
	assert.InDelta(t, 5.0, SegmentDist(r2.Vec{X: 4, Y: 5}, a, a), 1e-12)
}

func TestAngleDeg(t *testing.T) {
	c := r2.Vec{}
	assert.InDelta(t, 90, AngleDeg(c, r2.Vec{X: 1}, r2.Vec{Y: 2}), 1e-9)
	assert.InDelta(t, 180, AngleDeg(c, r2.Vec{X: 1}, r2.Vec{X: -2}), 1e-9)
	assert.InDelta(t, 0, AngleDeg(c, r2.Vec{X: 1}, r2.Vec{X: 3}), 1e-9)
	// Degenerate rays count as folded.
	assert.Equal(t, 1.0, CosAngle(c, c, r2.Vec{X: 1}))
}

func TestBearingDeg(t *testing.T) {
	c := r2.Vec{X: 1, Y: 1}
	assert.InDelta(t, 0, BearingDeg(c, r2.Vec{X: 2, Y: 1}), 1e-9)
	assert.InDelta(t, 90, BearingDeg(c, r2.Vec{X: 1, Y: 5}), 1e-9)
	assert.InDelta(t, 270, BearingDeg(c, r2.Vec{X: 1, Y: -5}), 1e-9)
}

func TestIntersectLines(t *testing.T) {
	p, ok := IntersectLines(r2.Vec{X: 0, Y: 1}, r2.Vec{X: 1}, r2.Vec{X: 3, Y: 0}, r2.Vec{Y: 1})
	assert.True(t, ok)
	assert.InDelta(t, 3, p.X, 1e-12)
	assert.InDelta(t, 1, p.Y, 1e-12)

	_, ok = IntersectLines(r2.Vec{}, r2.Vec{X: 1, Y: 1}, r2.Vec{X: 0, Y: 1}, r2.Vec{X: 2, Y: 2})
	assert.False(t, ok, "parallel lines have no intersection")
}

func TestCircumcenter(t *testing.T) {
	c, ok := Circumcenter(r2.Vec{X: 1}, r2.Vec{Y: 1}, r2.Vec{X: -1})
	assert.True(t, ok)
	assert.InDelta(t, 0, c.X, 1e-12)
	assert.InDelta(t, 0, c.Y, 1e-12)

	_, ok = Circumcenter(r2.Vec{}, r2.Vec{X: 1, Y: 1}, r2.Vec{X: 2, Y: 2})
	assert.False(t, ok, "collinear points have no circumcenter")
	assert.False(t, math.IsNaN(c.X))
}
