package pgraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r2"
)

func optimum(t *testing.T, nd numDen) r2.Vec {
	t.Helper()
	require.NotZero(t, nd.den)
	return r2.Scale(1/nd.den, nd.num)
}

func assertVec(t *testing.T, want, got r2.Vec, delta float64) {
	t.Helper()
	assert.InDelta(t, want.X, got.X, delta, "x")
	assert.InDelta(t, want.Y, got.Y, delta, "y")
}

func TestAngleTerm(t *testing.T) {
	a, b := r2.Vec{X: -1}, r2.Vec{X: 1}
	assert.InDelta(t, 0, angleTerm(origin, a, b, 2), 1e-12)
	assert.InDelta(t, 4, angleTerm(origin, a, a, 2), 1e-12)
	assert.InDelta(t, 2, angleTerm(origin, a, r2.Vec{Y: 1}, 2), 1e-12)
}

func TestAngleND_StraightMidpointIsFixed(t *testing.T) {
	a, b := r2.Vec{X: -1, Y: 2}, r2.Vec{X: 3, Y: 4}
	c := r2.Scale(0.5, r2.Add(a, b))
	assertVec(t, c, optimum(t, angleND(c, a, b, 0.7)), 1e-12)
}

func TestAngleND_PullsBentVertexTowardChord(t *testing.T) {
	a, b := r2.Vec{X: -1}, r2.Vec{X: 1}
	c := r2.Vec{Y: 0.5}
	p := optimum(t, angleND(c, a, b, 1))
	assert.Less(t, p.Y, c.Y)
	assert.InDelta(t, 0, p.X, 1e-12)
}

func TestRectTerm(t *testing.T) {
	assert.InDelta(t, 0, rectTerm(origin, r2.Vec{X: 1}, r2.Vec{Y: 1}, 3), 1e-12)
	assert.InDelta(t, 6, rectTerm(origin, r2.Vec{X: 1}, r2.Vec{X: -1}, 3), 1e-12)
	nd := rectND(origin, r2.Vec{X: 1}, r2.Vec{Y: 1}, 3)
	assert.InDelta(t, 0, nd.den, 1e-12)
}

func TestLengthND(t *testing.T) {
	a := r2.Vec{X: 2, Y: -1}
	assertVec(t, a, optimum(t, lengthND(a, 0.3)), 1e-12)
	assert.InDelta(t, 0.3*5, lengthTerm(origin, a, 0.3), 1e-12)
}

func TestEndAngleND(t *testing.T) {
	a, d := r2.Vec{X: 1}, r2.Vec{X: 2}
	t.Run("straight continuation is fixed", func(t *testing.T) {
		assertVec(t, origin, optimum(t, endAngleND(origin, a, d, 1)), 1e-12)
		assert.InDelta(t, 0, endAngleTerm(origin, a, d, 1), 1e-12)
	})
	t.Run("folded pulls to mirror image", func(t *testing.T) {
		c := r2.Vec{X: 3}
		assertVec(t, origin, optimum(t, endAngleND(c, a, d, 1)), 1e-12)
		assert.InDelta(t, 2, endAngleTerm(c, a, d, 1), 1e-12)
	})
	t.Run("degenerate beyond", func(t *testing.T) {
		assert.Equal(t, numDen{}, endAngleND(origin, a, a, 1))
	})
}

func TestNewPosition_StraightChainIsStationary(t *testing.T) {
	g := seeded(t, xAxis(41, 0.25))
	_, err := g.InsertMidPoint(g.Edges()[0])
	require.NoError(t, err)
	require.NoError(t, g.Repartition())

	for _, id := range g.Vertices() {
		v := g.Vertex(id)
		if v.Kind() != KindLine {
			continue
		}
		p, err := g.NewPosition(id)
		require.NoError(t, err)
		assertVec(t, v.Pos, p, 1e-9)
	}
}

func TestPenalty_PerKind(t *testing.T) {
	co := Coefficients{Angle: 1, Length: 0.5}
	g := star(t, 0, 180, 90)
	g.coeff = co
	id := vertexAt(t, g, origin)
	v := g.Vertex(id)
	arms, err := g.armsOf("test", id, v)
	require.NoError(t, err)

	// A perfect T: straight bar, perpendicular stem, unit length arms with
	// End neighbors charged by length only.
	p, _ := penalty(v, arms, co)
	assert.InDelta(t, 3*0.5, p, 1e-12)

	v.kind = KindStarOfThree
	p, _ = penalty(v, arms, co)
	// Pair angles 180, 90, 90 give 0 + 1 + 1.
	assert.InDelta(t, 0.1*(2+1.5), p, 1e-12)

	end := vertexAt(t, g, dirDeg(90))
	ev := g.Vertex(end)
	earms, err := g.armsOf("test", end, ev)
	require.NoError(t, err)
	p, _ = penalty(ev, earms, co)
	assert.InDelta(t, 3*0.5, p, 1e-12)
}
