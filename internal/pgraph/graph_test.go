package pgraph

import (
	"errors"
	"math"
	"math/rand"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/banshee-data/pgraph/internal/geom"
)

// xAxis returns n unit-weight points at x = 0, step, 2*step, ...
func xAxis(n int, step float64) []Point {
	pts := make([]Point, n)
	for i := range pts {
		pts[i] = Point{Pos: r2.Vec{X: float64(i) * step}, Weight: 1}
	}
	return pts
}

// noisyLine returns points along y = 0.5x with a small deterministic wobble.
func noisyLine(n int) []Point {
	rng := rand.New(rand.NewSource(42))
	pts := make([]Point, n)
	for i := range pts {
		x := float64(i) * 0.25
		pts[i] = Point{
			Pos:    r2.Vec{X: x, Y: 0.5*x + 0.05*rng.NormFloat64()},
			Weight: 0.5 + rng.Float64(),
		}
	}
	return pts
}

func seeded(t *testing.T, pts []Point) *Graph {
	t.Helper()
	g, err := New(pts, DefaultOptions())
	require.NoError(t, err)
	require.NoError(t, g.InitializeToPrincipalComponent(rand.New(rand.NewSource(1)), 100))
	return g
}

func fromCurves(t *testing.T, pts []Point, curves [][]r2.Vec) *Graph {
	t.Helper()
	g, err := New(pts, DefaultOptions())
	require.NoError(t, err)
	require.NoError(t, g.InitializeToCurves(curves, 1e-9))
	return g
}

func assertConserved(t *testing.T, g *Graph) {
	t.Helper()
	vw, ew := g.ClusterWeights()
	assert.InDelta(t, g.TotalWeight(), vw+ew, 1e-9*g.TotalWeight())
}

// bruteMSE is the mean squared distance from every sample to the nearest
// segment, computed without any cached state.
func bruteMSE(g *Graph) float64 {
	var sum float64
	for _, s := range g.samples {
		best := math.Inf(1)
		for _, id := range g.Edges() {
			seg, _ := g.Segment(id)
			best = math.Min(best, seg.Dist(s.Pos))
		}
		sum += s.Weight * best * best
	}
	return sum / g.totalWeight
}

func vertexAt(t *testing.T, g *Graph, p r2.Vec) VertexID {
	t.Helper()
	for _, id := range g.Vertices() {
		if geom.Dist(g.Vertex(id).Pos, p) < 1e-9 {
			return id
		}
	}
	t.Fatalf("no vertex at %v", p)
	return VertexID{}
}

func TestNew_RejectsBadInput(t *testing.T) {
	_, err := New(nil, DefaultOptions())
	assert.ErrorIs(t, err, ErrNoSamples)

	_, err = New([]Point{{Pos: r2.Vec{X: math.NaN()}}}, DefaultOptions())
	assert.ErrorIs(t, err, ErrInvalidSample)

	_, err = New([]Point{{Pos: r2.Vec{X: 1}, Weight: -2}}, DefaultOptions())
	assert.ErrorIs(t, err, ErrInvalidSample)

	_, err = New([]Point{{Pos: r2.Vec{X: 1}}, {Pos: r2.Vec{X: 2}, Weight: 0}}, DefaultOptions())
	assert.ErrorIs(t, err, ErrZeroWeight)
}

func TestNew_ZeroWeightSampleIsKept(t *testing.T) {
	pts := append(xAxis(4, 1), Point{Pos: r2.Vec{X: 100, Y: 50}, Weight: 0})
	g, err := New(pts, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, 5, g.NumSamples())
	assert.Equal(t, 4.0, g.TotalWeight())
	assert.InDelta(t, 1.5, g.Centroid().X, 1e-12)
	assert.InDelta(t, 0, g.Centroid().Y, 1e-12)
	assert.InDelta(t, 1.5, g.Radius(), 1e-12)

	require.NoError(t, g.InitializeToPrincipalComponent(rand.New(rand.NewSource(1)), 0))
	require.NoError(t, g.Repartition())
	assertConserved(t, g)
}

func TestNew_SampleStatistics(t *testing.T) {
	g, err := New([]Point{
		{Pos: r2.Vec{X: 0, Y: 0}, Weight: 1},
		{Pos: r2.Vec{X: 4, Y: 0}, Weight: 3},
	}, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, 4.0, g.TotalWeight())
	assert.InDelta(t, 3.0, g.Centroid().X, 1e-12)
	assert.InDelta(t, 3.0, g.Radius(), 1e-12)
	assert.Equal(t, 2, g.NumSamples())
}

func TestInitializeToPrincipalComponent_TwoPointSeed(t *testing.T) {
	g := seeded(t, xAxis(4, 1))

	require.Equal(t, 2, g.NumVertices())
	require.Equal(t, 1, g.NumEdges())
	var xs []float64
	for _, id := range g.Vertices() {
		v := g.Vertex(id)
		assert.Equal(t, KindEnd, v.Kind())
		assert.InDelta(t, 0, v.Pos.Y, 1e-9)
		xs = append(xs, v.Pos.X)
	}
	sort.Float64s(xs)
	assert.InDelta(t, 0, xs[0], 1e-9)
	assert.InDelta(t, 3, xs[1], 1e-9)
	assert.InDelta(t, 0, g.MSE(), 1e-12)
	assertConserved(t, g)

	crit, err := g.Criterion()
	require.NoError(t, err)
	assert.InDelta(t, 0, crit, 1e-12)

	assert.ErrorIs(t, g.InitializeToPrincipalComponent(rand.New(rand.NewSource(1)), 0), ErrAlreadyInitialized)
}

func TestInitializeToPrincipalComponent_DiagonalCloud(t *testing.T) {
	g := seeded(t, noisyLine(200))
	require.Equal(t, 1, g.NumEdges())
	seg, ok := g.Segment(g.Edges()[0])
	require.True(t, ok)
	d := r2.Sub(seg.B, seg.A)
	assert.InDelta(t, 0.5, math.Abs(d.Y/d.X), 0.02)
	assert.Greater(t, seg.Length(), 45.0)
	assertConserved(t, g)
}

func TestRepartition_WeightConservationWhileGrowing(t *testing.T) {
	g := seeded(t, noisyLine(160))
	for i := 0; i < 12; i++ {
		require.NoError(t, g.Repartition())
		assertConserved(t, g)
		assert.InDelta(t, bruteMSE(g), g.MSE(), 1e-9)
		_, err := g.AddOneVertexAsMidpoint(1)
		require.NoError(t, err)
		require.NoError(t, g.CheckInvariants())
	}
	assert.Greater(t, g.NumVertices(), 5)
}

func TestRepartition_BoundedScanMatchesFullScan(t *testing.T) {
	g := seeded(t, noisyLine(120))
	for i := 0; i < 4; i++ {
		_, err := g.AddVerticesAsMidpoints(1)
		require.NoError(t, err)
		require.NoError(t, g.Repartition())
	}
	rng := rand.New(rand.NewSource(9))
	for round := 0; round < 10; round++ {
		for _, id := range g.Vertices() {
			v := g.Vertex(id)
			v.Pos = r2.Add(v.Pos, r2.Vec{X: 0.05 * rng.NormFloat64(), Y: 0.05 * rng.NormFloat64()})
		}
		require.NoError(t, g.Repartition())
		assert.InDelta(t, bruteMSE(g), g.MSE(), 1e-9, "round %d", round)
		assertConserved(t, g)
	}
}

func TestRepartition_PrunesUnusedTail(t *testing.T) {
	pts := make([]Point, 21)
	for i := range pts {
		pts[i] = Point{Pos: r2.Vec{X: float64(i) * 0.5}, Weight: 1}
	}
	g := fromCurves(t, pts, [][]r2.Vec{{
		{X: 0}, {X: 5}, {X: 10}, {X: 50}, {X: 60},
	}})
	require.Equal(t, 5, g.NumVertices())

	require.NoError(t, g.Repartition())
	require.NoError(t, g.CheckInvariants())
	assert.Equal(t, 3, g.NumVertices())
	assert.Equal(t, 2, g.NumEdges())
	assertConserved(t, g)
	assert.Equal(t, KindEnd, g.Vertex(vertexAt(t, g, r2.Vec{X: 10})).Kind())
}

func TestRepartition_PrunesDetachedComponent(t *testing.T) {
	g := fromCurves(t, xAxis(11, 1), [][]r2.Vec{
		{{X: 0}, {X: 5}, {X: 10}},
		{{X: 100, Y: 100}, {X: 110, Y: 100}},
	})
	require.NoError(t, g.Repartition())
	require.NoError(t, g.CheckInvariants())
	assert.Equal(t, 3, g.NumVertices())
	assert.Equal(t, 2, g.NumEdges())
	assertConserved(t, g)
}

func TestSurgery_IndexConsistency(t *testing.T) {
	g := seeded(t, xAxis(41, 0.25))
	mid, err := g.InsertMidPoint(g.Edges()[0])
	require.NoError(t, err)
	assert.Equal(t, KindLine, g.Vertex(mid).Kind())
	require.NoError(t, g.CheckInvariants())
	assertConserved(t, g)

	for _, id := range g.Edges() {
		_, err := g.InsertMidPoint(id)
		require.NoError(t, err)
		require.NoError(t, g.CheckInvariants())
	}
	require.Equal(t, 5, g.NumVertices())
	require.Equal(t, 4, g.NumEdges())

	require.NoError(t, g.DeleteLineVertexAt(mid))
	require.NoError(t, g.CheckInvariants())
	assert.Nil(t, g.Vertex(mid))
	assert.Equal(t, 4, g.NumVertices())
	assert.Equal(t, 3, g.NumEdges())
	assert.ErrorIs(t, g.DeletePointAt(mid), ErrStaleHandle)

	// The first line vertex sits next to an end, which is orphaned and
	// removed with it.
	var interior VertexID
	for _, id := range g.Vertices() {
		if g.Vertex(id).Kind() == KindLine {
			interior = id
			break
		}
	}
	require.False(t, interior.IsZero())
	require.NoError(t, g.DeletePointAt(interior))
	require.NoError(t, g.CheckInvariants())
	assert.Equal(t, 2, g.NumVertices())
	assert.Equal(t, 1, g.NumEdges())

	require.NoError(t, g.Repartition())
	require.NoError(t, g.CheckInvariants())
	assertConserved(t, g)
}

func TestSurgery_InsertKeepsNearestCacheValid(t *testing.T) {
	g := seeded(t, noisyLine(80))
	require.NoError(t, g.Repartition())
	old := g.Edges()[0]
	_, err := g.InsertMidPoint(old)
	require.NoError(t, err)
	for i, s := range g.samples {
		assert.NotEqual(t, old, s.nearest, "sample %d still points at the split edge", i)
	}
	require.NoError(t, g.Repartition())
	assert.InDelta(t, bruteMSE(g), g.MSE(), 1e-9)
}

func TestDeletePointAt_GraphDestroyed(t *testing.T) {
	g := seeded(t, xAxis(4, 1))
	err := g.DeletePointAt(g.Vertices()[0])
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrGraphDestroyed)
	var gd *GraphDestroyedError
	require.True(t, errors.As(err, &gd))
	assert.Equal(t, 4, gd.Ignored)
	assert.Equal(t, "graph destroyed, 4 sample points ignored", err.Error())
	assert.Equal(t, 0, g.NumVertices())
}

func TestGrowth(t *testing.T) {
	t.Run("single splits the busiest edge", func(t *testing.T) {
		g := seeded(t, xAxis(40, 1))
		ok, err := g.AddOneVertexAsMidpoint(1)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, 3, g.NumVertices())
	})
	t.Run("single stops on a light edge", func(t *testing.T) {
		g := seeded(t, xAxis(2, 1))
		ok, err := g.AddOneVertexAsMidpoint(1)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Equal(t, 2, g.NumVertices())
	})
	t.Run("all splits every qualifying edge", func(t *testing.T) {
		g := seeded(t, xAxis(40, 1))
		_, err := g.AddVerticesAsMidpoints(1)
		require.NoError(t, err)
		require.NoError(t, g.Repartition())
		ok, err := g.AddVerticesAsMidpoints(1)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, 4, g.NumEdges())
	})
	t.Run("longest respects max length", func(t *testing.T) {
		g := seeded(t, xAxis(40, 1))
		ok, err := g.AddVertexOnLongest(100)
		require.NoError(t, err)
		assert.False(t, ok)
		ok, err = g.AddVertexOnLongest(10)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, 2, g.NumEdges())
	})
}

func TestCheckInvariants_ReportsCorruption(t *testing.T) {
	g := seeded(t, xAxis(4, 1))
	id := g.Vertices()[0]
	v := g.Vertex(id)
	v.inc = append(v.inc, v.inc[0])

	err := g.CheckInvariants()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvariant)
	var ie *InvariantError
	require.True(t, errors.As(err, &ie))
	assert.Equal(t, "CheckInvariants", ie.Op)
	assert.Contains(t, ie.Snapshot, "vertices=2 edges=1")
}

func TestMaintain(t *testing.T) {
	g := seeded(t, xAxis(40, 1))
	mid, err := g.InsertMidPoint(g.Edges()[0])
	require.NoError(t, err)
	ends := g.Neighbors(mid)
	require.Len(t, ends, 2)

	require.NoError(t, g.Maintain(mid, ends[0]))
	require.NoError(t, g.Maintain(ends[0], mid))
	assert.ErrorIs(t, g.Maintain(ends[0], ends[1]), ErrNotNeighbor)
	assert.ErrorIs(t, g.Maintain(VertexID{}, mid), ErrStaleHandle)

	// Each end now looks straight through mid to the other end.
	for _, in := range g.Vertex(ends[0]).inc {
		assert.Equal(t, reachAngle, in.reach.shape)
	}
}

func TestSnapshot(t *testing.T) {
	g := seeded(t, xAxis(4, 1))
	s, err := g.Snapshot()
	require.NoError(t, err)

	want := &Snapshot{
		Vertices: []SnapshotVertex{
			{Index: 0, Kind: "end", Degree: 1, Weight: 1},
			{Index: 1, Kind: "end", Degree: 1, Weight: 1},
		},
		Edges:       []SnapshotEdge{{From: 0, To: 1, Length: 3, Weight: 2}},
		TotalWeight: 4,
		Samples:     4,
	}
	ignorePos := cmpopts.IgnoreFields(SnapshotVertex{}, "X", "Y")
	if diff := cmp.Diff(want, s, ignorePos, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
		t.Errorf("Snapshot() mismatch (-want +got):\n%s", diff)
	}
}

func TestTurningRadius(t *testing.T) {
	g := fromCurves(t, xAxis(3, 1), [][]r2.Vec{{{X: -1}, {Y: 1}, {X: 1}}})
	top := vertexAt(t, g, r2.Vec{Y: 1})
	r, ok := g.TurningRadius(top)
	require.True(t, ok)
	assert.InDelta(t, 1, r, 1e-12)

	_, ok = g.TurningRadius(vertexAt(t, g, r2.Vec{X: -1}))
	assert.False(t, ok)
}

func TestRepartition_LeavesCoefficients(t *testing.T) {
	g := seeded(t, noisyLine(80))
	_, err := g.InsertMidPoint(g.Edges()[0])
	require.NoError(t, err)
	co := g.Coefficients()
	mse := g.MSE()

	for _, id := range g.Vertices() {
		v := g.Vertex(id)
		v.Pos = r2.Add(v.Pos, r2.Vec{Y: 0.3})
	}
	require.NoError(t, g.Repartition())
	assert.Greater(t, g.MSE(), mse)
	assert.Equal(t, co, g.Coefficients())

	g.UpdateCoefficients()
	assert.Greater(t, g.Coefficients().Angle, co.Angle)
}
