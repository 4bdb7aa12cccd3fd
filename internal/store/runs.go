package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/pgraph/internal/fit"
	"github.com/banshee-data/pgraph/internal/pgraph"
)

// ErrRunNotFound is returned when no run has the requested id.
var ErrRunNotFound = errors.New("run not found")

// RunSummary is one row of the runs table.
type RunSummary struct {
	RunID            uuid.UUID
	CreatedAt        time.Time
	Source           string
	Params           fit.Params
	Samples          int
	TotalWeight      float64
	OuterIterations  int
	InnerIterations  int
	Criterion        float64
	MSE              float64
	MinTurningRadius float64
	Duration         time.Duration
}

// Run is a stored run with its final graph and iteration history.
type Run struct {
	RunSummary
	Snapshot *pgraph.Snapshot
	History  []fit.Iteration
}

// SaveRun archives a finished run. source names the input the samples came
// from and is informational only.
func (s *Store) SaveRun(ctx context.Context, res *fit.Result, source string) error {
	if res == nil || res.Snapshot == nil {
		return fmt.Errorf("cannot save run without a snapshot")
	}
	params, err := json.Marshal(res.Params)
	if err != nil {
		return fmt.Errorf("failed to encode params: %w", err)
	}

	tx, err := s.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	snap := res.Snapshot
	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (run_id, source, params_json, samples, total_weight,
			outer_iterations, inner_iterations, criterion, mse, min_turning_radius, duration_ns)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		res.RunID.String(), source, string(params), snap.Samples, snap.TotalWeight,
		res.OuterIterations, res.InnerIterations, res.Criterion, res.MSE, res.MinTurningRadius, res.Duration.Nanoseconds())
	if err != nil {
		return fmt.Errorf("failed to insert run %s: %w", res.RunID, err)
	}

	vstmt, err := tx.PrepareContext(ctx, `
		INSERT INTO run_vertices (run_id, vertex_idx, kind, x, y, degree, weight)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare vertex insert: %w", err)
	}
	defer vstmt.Close()
	for _, v := range snap.Vertices {
		if _, err := vstmt.ExecContext(ctx, res.RunID.String(), v.Index, v.Kind, v.X, v.Y, v.Degree, v.Weight); err != nil {
			return fmt.Errorf("failed to insert vertex %d: %w", v.Index, err)
		}
	}

	estmt, err := tx.PrepareContext(ctx, `
		INSERT INTO run_edges (run_id, edge_idx, from_idx, to_idx, length, weight)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare edge insert: %w", err)
	}
	defer estmt.Close()
	for i, e := range snap.Edges {
		if _, err := estmt.ExecContext(ctx, res.RunID.String(), i, e.From, e.To, e.Length, e.Weight); err != nil {
			return fmt.Errorf("failed to insert edge %d: %w", i, err)
		}
	}

	istmt, err := tx.PrepareContext(ctx, `
		INSERT INTO run_iterations (run_id, outer_idx, inner_steps, vertices, edges, mse, criterion, grew)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare iteration insert: %w", err)
	}
	defer istmt.Close()
	for _, it := range res.History {
		if _, err := istmt.ExecContext(ctx, res.RunID.String(), it.Outer, it.Inner, it.Vertices, it.Edges, it.MSE, it.Criterion, it.Grew); err != nil {
			return fmt.Errorf("failed to insert iteration %d: %w", it.Outer, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run %s: %w", res.RunID, err)
	}
	pgraph.Diagf("archived run %s: %d vertices, %d edges", res.RunID, len(snap.Vertices), len(snap.Edges))
	return nil
}

const summaryColumns = `run_id, created_at, source, params_json, samples, total_weight,
	outer_iterations, inner_iterations, criterion, mse, min_turning_radius, duration_ns`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSummary(row rowScanner) (RunSummary, error) {
	var (
		r      RunSummary
		id     string
		params string
		durNs  int64
	)
	err := row.Scan(&id, &r.CreatedAt, &r.Source, &params, &r.Samples, &r.TotalWeight,
		&r.OuterIterations, &r.InnerIterations, &r.Criterion, &r.MSE, &r.MinTurningRadius, &durNs)
	if err != nil {
		return RunSummary{}, err
	}
	if r.RunID, err = uuid.Parse(id); err != nil {
		return RunSummary{}, fmt.Errorf("invalid run id %q: %w", id, err)
	}
	if err := json.Unmarshal([]byte(params), &r.Params); err != nil {
		return RunSummary{}, fmt.Errorf("invalid params for run %s: %w", id, err)
	}
	r.Duration = time.Duration(durNs)
	return r, nil
}

// ListRuns returns the archived runs, newest first.
func (s *Store) ListRuns(ctx context.Context) ([]RunSummary, error) {
	rows, err := s.QueryContext(ctx, `SELECT `+summaryColumns+` FROM runs ORDER BY created_at DESC, rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		r, err := scanSummary(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// LoadRun returns a stored run with its snapshot and history.
func (s *Store) LoadRun(ctx context.Context, id uuid.UUID) (*Run, error) {
	summary, err := scanSummary(s.QueryRowContext(ctx, `SELECT `+summaryColumns+` FROM runs WHERE run_id = ?`, id.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load run %s: %w", id, err)
	}

	run := &Run{
		RunSummary: summary,
		Snapshot: &pgraph.Snapshot{
			MSE:         summary.MSE,
			TotalWeight: summary.TotalWeight,
			Samples:     summary.Samples,
		},
	}
	if err := s.loadVertices(ctx, id, run.Snapshot); err != nil {
		return nil, err
	}
	if err := s.loadEdges(ctx, id, run.Snapshot); err != nil {
		return nil, err
	}
	if run.History, err = s.loadHistory(ctx, id); err != nil {
		return nil, err
	}
	return run, nil
}

func (s *Store) loadVertices(ctx context.Context, id uuid.UUID, snap *pgraph.Snapshot) error {
	rows, err := s.QueryContext(ctx, `
		SELECT vertex_idx, kind, x, y, degree, weight
		FROM run_vertices WHERE run_id = ? ORDER BY vertex_idx`, id.String())
	if err != nil {
		return fmt.Errorf("failed to load vertices: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var v pgraph.SnapshotVertex
		if err := rows.Scan(&v.Index, &v.Kind, &v.X, &v.Y, &v.Degree, &v.Weight); err != nil {
			return fmt.Errorf("failed to scan vertex: %w", err)
		}
		snap.Vertices = append(snap.Vertices, v)
	}
	return rows.Err()
}

func (s *Store) loadEdges(ctx context.Context, id uuid.UUID, snap *pgraph.Snapshot) error {
	rows, err := s.QueryContext(ctx, `
		SELECT from_idx, to_idx, length, weight
		FROM run_edges WHERE run_id = ? ORDER BY edge_idx`, id.String())
	if err != nil {
		return fmt.Errorf("failed to load edges: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var e pgraph.SnapshotEdge
		if err := rows.Scan(&e.From, &e.To, &e.Length, &e.Weight); err != nil {
			return fmt.Errorf("failed to scan edge: %w", err)
		}
		snap.Edges = append(snap.Edges, e)
	}
	return rows.Err()
}

func (s *Store) loadHistory(ctx context.Context, id uuid.UUID) ([]fit.Iteration, error) {
	rows, err := s.QueryContext(ctx, `
		SELECT outer_idx, inner_steps, vertices, edges, mse, criterion, grew
		FROM run_iterations WHERE run_id = ? ORDER BY outer_idx`, id.String())
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	defer rows.Close()
	var history []fit.Iteration
	for rows.Next() {
		var it fit.Iteration
		if err := rows.Scan(&it.Outer, &it.Inner, &it.Vertices, &it.Edges, &it.MSE, &it.Criterion, &it.Grew); err != nil {
			return nil, fmt.Errorf("failed to scan iteration: %w", err)
		}
		history = append(history, it)
	}
	return history, rows.Err()
}

// DeleteRun removes a run and, through cascading keys, its graph and
// history rows.
func (s *Store) DeleteRun(ctx context.Context, id uuid.UUID) error {
	res, err := s.ExecContext(ctx, `DELETE FROM runs WHERE run_id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("failed to delete run %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete run %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return nil
}
