package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/pgraph/internal/fit"
	"github.com/banshee-data/pgraph/internal/pgraph"
)

func openTest(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testResult() *fit.Result {
	p := fit.DefaultParams()
	p.Growth = fit.GrowthAll
	return &fit.Result{
		RunID:            uuid.New(),
		Params:           p,
		OuterIterations:  2,
		InnerIterations:  9,
		Criterion:        0.42,
		MSE:              0.01,
		MinTurningRadius: 3.5,
		Duration:         1500 * time.Millisecond,
		Snapshot: &pgraph.Snapshot{
			Vertices: []pgraph.SnapshotVertex{
				{Index: 0, Kind: "end", X: 0, Y: 0, Degree: 1, Weight: 4},
				{Index: 1, Kind: "line", X: 1, Y: 0.1, Degree: 2, Weight: 5},
				{Index: 2, Kind: "end", X: 2, Y: 0, Degree: 1, Weight: 3},
			},
			Edges: []pgraph.SnapshotEdge{
				{From: 0, To: 1, Length: 1.005, Weight: 2},
				{From: 1, To: 2, Length: 1.005, Weight: 6},
			},
			MSE:         0.01,
			TotalWeight: 20,
			Samples:     20,
		},
		History: []fit.Iteration{
			{Outer: 1, Inner: 4, Vertices: 2, Edges: 1, MSE: 0.2, Criterion: 0.9, Grew: true},
			{Outer: 2, Inner: 5, Vertices: 3, Edges: 2, MSE: 0.01, Criterion: 0.42, Grew: false},
		},
	}
}

func TestOpen_MigratesToLatest(t *testing.T) {
	s := openTest(t)
	version, dirty, err := s.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(2), version)
	assert.False(t, dirty)

	// Reopening an up-to-date database is a no-op.
	require.NoError(t, s.MigrateUp())
}

func TestMigrateDown(t *testing.T) {
	s := openTest(t)
	require.NoError(t, s.MigrateDown())
	version, _, err := s.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)

	var n int
	err = s.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='run_iterations'`).Scan(&n)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	require.NoError(t, s.MigrateUp())
}

func TestSaveRun_LoadRun(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	res := testResult()
	require.NoError(t, s.SaveRun(ctx, res, "points.csv"))

	got, err := s.LoadRun(ctx, res.RunID)
	require.NoError(t, err)
	assert.Equal(t, res.RunID, got.RunID)
	assert.Equal(t, "points.csv", got.Source)
	assert.Equal(t, res.Params, got.Params)
	assert.Equal(t, res.Duration, got.Duration)
	assert.Equal(t, 9, got.InnerIterations)
	assert.False(t, got.CreatedAt.IsZero())

	if diff := cmp.Diff(res.Snapshot, got.Snapshot); diff != "" {
		t.Errorf("snapshot mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(res.History, got.History); diff != "" {
		t.Errorf("history mismatch (-want +got):\n%s", diff)
	}
}

func TestListRuns_DeleteRun(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	first, second := testResult(), testResult()
	require.NoError(t, s.SaveRun(ctx, first, "a.csv"))
	require.NoError(t, s.SaveRun(ctx, second, "b.csv"))

	runs, err := s.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, second.RunID, runs[0].RunID)

	require.NoError(t, s.DeleteRun(ctx, first.RunID))
	_, err = s.LoadRun(ctx, first.RunID)
	assert.ErrorIs(t, err, ErrRunNotFound)
	assert.ErrorIs(t, s.DeleteRun(ctx, first.RunID), ErrRunNotFound)

	var n int
	require.NoError(t, s.QueryRow(`SELECT COUNT(*) FROM run_vertices WHERE run_id = ?`, first.RunID.String()).Scan(&n))
	assert.Equal(t, 0, n, "vertices should cascade")
}

func TestSaveRun_Errors(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	assert.Error(t, s.SaveRun(ctx, nil, ""))
	assert.Error(t, s.SaveRun(ctx, &fit.Result{}, ""))

	res := testResult()
	require.NoError(t, s.SaveRun(ctx, res, ""))
	assert.Error(t, s.SaveRun(ctx, res, ""), "duplicate run id")

	runs, err := s.ListRuns(ctx)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}
