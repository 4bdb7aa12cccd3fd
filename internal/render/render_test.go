package render

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/banshee-data/pgraph/internal/pgraph"
)

func testScene() Scene {
	var pts []pgraph.Point
	for i := 0; i <= 10; i++ {
		pts = append(pts, pgraph.Point{Pos: r2.Vec{X: float64(i), Y: 0.1 * float64(i%2)}, Weight: 1})
	}
	return Scene{
		Title:  "test fit",
		Points: pts,
		Curves: [][]r2.Vec{{{X: 0}, {X: 5}, {X: 10}}, {{X: 5}, {X: 5, Y: 3}}},
		Snapshot: &pgraph.Snapshot{Vertices: []pgraph.SnapshotVertex{
			{Index: 0, Kind: "end", X: 0, Degree: 1},
			{Index: 1, Kind: "t", X: 5, Degree: 3},
			{Index: 2, Kind: "end", X: 10, Degree: 1},
			{Index: 3, Kind: "end", X: 5, Y: 3, Degree: 1},
		}},
	}
}

func TestScene_Bounds(t *testing.T) {
	lo, hi := testScene().bounds()
	// x spans 0..10, so the window is 10 wide plus 5% padding each side,
	// centred on (5, 1.5).
	assert.InDelta(t, -0.5, lo.X, 1e-12)
	assert.InDelta(t, 10.5, hi.X, 1e-12)
	assert.InDelta(t, 1.5-5.5, lo.Y, 1e-12)
	assert.InDelta(t, 1.5+5.5, hi.Y, 1e-12)

	lo, hi = Scene{Curves: [][]r2.Vec{{{X: 2, Y: 2}}}}.bounds()
	assert.Less(t, lo.X, 2.0)
	assert.Greater(t, hi.Y, 2.0)
}

func TestScene_VertexGroups(t *testing.T) {
	ends, junctions := testScene().vertexGroups()
	assert.Len(t, ends, 3)
	assert.Equal(t, []r2.Vec{{X: 5}}, junctions)

	ends, junctions = Scene{}.vertexGroups()
	assert.Empty(t, ends)
	assert.Empty(t, junctions)
}

func TestWritePNG(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WritePNG(&buf, testScene()))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG\r\n\x1a\n")), "missing PNG signature")

	assert.ErrorIs(t, WritePNG(&buf, Scene{}), ErrEmptyScene)
}

func TestSavePNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fit.png")
	require.NoError(t, SavePNG(path, testScene()))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestWriteHTML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteHTML(&buf, testScene()))
	out := buf.String()
	assert.True(t, strings.Contains(out, "<html"), "not an HTML page")
	for _, name := range []string{"samples", "junctions", "curve 0", "curve 1", "test fit"} {
		assert.Contains(t, out, name)
	}

	assert.ErrorIs(t, WriteHTML(&buf, Scene{}), ErrEmptyScene)
}
