package pointio

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/banshee-data/pgraph/internal/pgraph"
)

func TestReadPoints(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []pgraph.Point
	}{
		{
			name: "header and weights",
			in:   "x,y,weight\n0,1,2\n3.5,-4,0.5\n",
			want: []pgraph.Point{
				{Pos: r2.Vec{X: 0, Y: 1}, Weight: 2},
				{Pos: r2.Vec{X: 3.5, Y: -4}, Weight: 0.5},
			},
		},
		{
			name: "no header, default weight",
			in:   "1,2\n3,4\n",
			want: []pgraph.Point{
				{Pos: r2.Vec{X: 1, Y: 2}, Weight: 1},
				{Pos: r2.Vec{X: 3, Y: 4}, Weight: 1},
			},
		},
		{
			name: "mixed columns, comments and spaces",
			in:   "# samples\n1, 2\n3, 4, 5\n",
			want: []pgraph.Point{
				{Pos: r2.Vec{X: 1, Y: 2}, Weight: 1},
				{Pos: r2.Vec{X: 3, Y: 4}, Weight: 5},
			},
		},
		{
			name: "explicit zero weight",
			in:   "1,2,0\n3,4\n",
			want: []pgraph.Point{
				{Pos: r2.Vec{X: 1, Y: 2}, Weight: 0},
				{Pos: r2.Vec{X: 3, Y: 4}, Weight: 1},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ReadPoints(strings.NewReader(tt.in))
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ReadPoints() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestReadPoints_Errors(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"empty", ""},
		{"header only", "x,y\n"},
		{"bad y", "1,abc\n"},
		{"too many fields", "1,2,3,4\n"},
		{"single field", "1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadPoints(strings.NewReader(tt.in))
			assert.Error(t, err)
		})
	}
	_, err := ReadPoints(strings.NewReader(""))
	assert.ErrorIs(t, err, ErrNoRecords)
}

func TestReadCurves(t *testing.T) {
	in := "curve,x,y\na,0,0\nb,5,5\na,1,0\na,2,1\nb,6,5\n"
	got, err := ReadCurves(strings.NewReader(in))
	require.NoError(t, err)
	want := [][]r2.Vec{
		{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 2, Y: 1}},
		{{X: 5, Y: 5}, {X: 6, Y: 5}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ReadCurves() mismatch (-want +got):\n%s", diff)
	}

	_, err = ReadCurves(strings.NewReader("0,1\n"))
	assert.Error(t, err)
	_, err = ReadCurves(strings.NewReader("curve,x,y\n"))
	assert.ErrorIs(t, err, ErrNoRecords)
}

func TestWriteCurves_ReadsBack(t *testing.T) {
	curves := [][]r2.Vec{
		{{X: 0.1, Y: -2}, {X: 1e-7, Y: 3}},
		{{X: 4, Y: 4}, {X: 5, Y: 4}, {X: 6, Y: 5}},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteCurves(&buf, curves))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Equal(t, "curve,x,y", lines[0])
	assert.Len(t, lines, 6)

	got, err := ReadCurves(&buf)
	require.NoError(t, err)
	if diff := cmp.Diff(curves, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}
