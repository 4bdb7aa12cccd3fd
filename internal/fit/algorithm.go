// Package fit drives a principal graph fit: inner loops of repartition and
// line search, and outer loops that grow the graph one step at a time.
package fit

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/banshee-data/pgraph/internal/optimize"
	"github.com/banshee-data/pgraph/internal/pgraph"
	"github.com/banshee-data/pgraph/internal/timeutil"
)

// ErrBusy is returned when a step or run is started while another one is
// in progress on the same Algorithm.
var ErrBusy = errors.New("fit already running")

// Iteration summarises one outer iteration.
type Iteration struct {
	Outer     int     `json:"outer"`
	Inner     int     `json:"inner"`
	Vertices  int     `json:"vertices"`
	Edges     int     `json:"edges"`
	MSE       float64 `json:"mse"`
	Criterion float64 `json:"criterion"`
	Grew      bool    `json:"grew"`
}

// Result is the outcome of a completed run.
type Result struct {
	RunID           uuid.UUID        `json:"run_id"`
	Params          Params           `json:"-"`
	Curves          [][]r2.Vec       `json:"-"`
	Snapshot        *pgraph.Snapshot `json:"snapshot"`
	OuterIterations int              `json:"outer_iterations"`
	InnerIterations int              `json:"inner_iterations"`
	Criterion       float64          `json:"criterion"`
	MSE             float64          `json:"mse"`
	// MinTurningRadius is the smallest turning radius over all Line
	// vertices, or 0 when no Line vertex bends.
	MinTurningRadius float64       `json:"min_turning_radius"`
	Duration         time.Duration `json:"duration"`
	History          []Iteration   `json:"history"`
}

// Algorithm owns a graph and the parameters that drive its fit. It is safe
// to call from several goroutines, but only one step or run executes at a
// time; the others fail with ErrBusy.
type Algorithm struct {
	mu      sync.Mutex
	running bool

	params Params
	graph  *pgraph.Graph
	clock  timeutil.Clock

	outer   int
	inner   int
	history []Iteration
}

// New builds an Algorithm whose graph is seeded along the first principal
// component of points.
func New(points []pgraph.Point, p Params) (*Algorithm, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	g, err := pgraph.New(points, p.graphOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to build graph: %w", err)
	}
	rng := rand.New(rand.NewSource(p.Seed))
	if err := g.InitializeToPrincipalComponent(rng, p.SeedSampleSize); err != nil {
		return nil, fmt.Errorf("failed to seed graph: %w", err)
	}
	return &Algorithm{params: p, graph: g, clock: timeutil.RealClock{}}, nil
}

// NewFromCurves builds an Algorithm whose graph is seeded from curves,
// merging points within p.JoinThreshold of each other.
func NewFromCurves(points []pgraph.Point, curves [][]r2.Vec, p Params) (*Algorithm, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	g, err := pgraph.New(points, p.graphOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to build graph: %w", err)
	}
	if err := g.InitializeToCurves(curves, p.JoinThreshold); err != nil {
		return nil, fmt.Errorf("failed to seed graph from curves: %w", err)
	}
	if err := g.Repartition(); err != nil {
		return nil, fmt.Errorf("failed to partition samples around curves: %w", err)
	}
	g.UpdateCoefficients()
	return &Algorithm{params: p, graph: g, clock: timeutil.RealClock{}}, nil
}

// Graph returns the graph being fitted. Do not use it while a step or run
// is in progress.
func (a *Algorithm) Graph() *pgraph.Graph { return a.graph }

// SetClock replaces the clock used to time runs.
func (a *Algorithm) SetClock(c timeutil.Clock) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.clock = c
}

// History returns a copy of the outer iteration summaries recorded so far.
func (a *Algorithm) History() []Iteration {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]Iteration(nil), a.history...)
}

func (a *Algorithm) acquire() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.running {
		return ErrBusy
	}
	a.running = true
	return nil
}

func (a *Algorithm) release() {
	a.mu.Lock()
	a.running = false
	a.mu.Unlock()
}

// InnerStep repartitions the samples, fixes the descent directions and
// runs one line search. The penalty coefficients are not touched.
func (a *Algorithm) InnerStep() (optimize.Result, error) {
	if err := a.acquire(); err != nil {
		return optimize.Result{}, err
	}
	defer a.release()
	return a.innerStep()
}

func (a *Algorithm) innerStep() (optimize.Result, error) {
	if err := a.graph.Repartition(); err != nil {
		return optimize.Result{}, err
	}
	if err := a.graph.SetDirections(); err != nil {
		return optimize.Result{}, err
	}
	res, err := a.params.LineSearch.Minimize(a.graph)
	if err != nil {
		return optimize.Result{}, err
	}
	a.inner++
	pgraph.Tracef("inner %d: criterion %.6g -> %.6g step=%.3g trials=%d", a.inner, res.Before, res.After, res.Step, res.Trials)
	return res, nil
}

// innerLoop repeats inner steps until the criterion settles. It returns the
// number of steps taken and the last criterion.
func (a *Algorithm) innerLoop(ctx context.Context) (int, float64, error) {
	prev := math.Inf(1)
	var last float64
	for i := 0; i < a.params.MaxInnerIterations; i++ {
		if err := ctx.Err(); err != nil {
			return i, last, err
		}
		res, err := a.innerStep()
		if err != nil {
			return i + 1, last, err
		}
		last = res.After
		change := math.Abs(prev-last) / math.Max(math.Abs(last), math.SmallestNonzeroFloat64)
		if i+1 >= a.params.MinInnerIterations && change < a.params.RelativeChangeThreshold {
			return i + 1, last, nil
		}
		prev = last
	}
	return a.params.MaxInnerIterations, last, nil
}

// grow adds vertices according to the growth mode. It reports false when
// the graph signals that no further vertex is justified.
func (a *Algorithm) grow() (bool, error) {
	switch a.params.Growth {
	case GrowthAll:
		return a.graph.AddVerticesAsMidpoints(a.params.TerminatingConditionCoefficient)
	case GrowthLongest:
		return a.graph.AddVertexOnLongest(a.params.TerminatingConditionMaxLength)
	}
	return a.graph.AddOneVertexAsMidpoint(a.params.TerminatingConditionCoefficient)
}

// OuterStep refreshes the penalty coefficients, runs an inner loop to
// convergence and then tries to grow the graph. It reports whether a vertex
// was added.
func (a *Algorithm) OuterStep(ctx context.Context) (bool, error) {
	if err := a.acquire(); err != nil {
		return false, err
	}
	defer a.release()
	return a.outerStep(ctx)
}

func (a *Algorithm) outerStep(ctx context.Context) (bool, error) {
	if err := a.graph.Repartition(); err != nil {
		return false, err
	}
	a.graph.UpdateCoefficients()
	n, crit, err := a.innerLoop(ctx)
	if err != nil {
		return false, err
	}
	grew, err := a.grow()
	if err != nil {
		return false, err
	}
	a.outer++
	it := Iteration{
		Outer:     a.outer,
		Inner:     n,
		Vertices:  a.graph.NumVertices(),
		Edges:     a.graph.NumEdges(),
		MSE:       a.graph.MSE(),
		Criterion: crit,
		Grew:      grew,
	}
	a.mu.Lock()
	a.history = append(a.history, it)
	a.mu.Unlock()
	co := a.graph.Coefficients()
	pgraph.Diagf("outer %d: %d inner, vertices=%d edges=%d mse=%.6g criterion=%.6g angle=%.4g length=%.4g grew=%t",
		it.Outer, it.Inner, it.Vertices, it.Edges, it.MSE, it.Criterion, co.Angle, co.Length, grew)
	return grew, nil
}

// Run fits the graph until growth stops or MaxOuterIterations is reached.
// ctx is checked before every outer and inner iteration; on cancellation
// the graph is repartitioned once more so it is left consistent, and the
// context error is returned.
func (a *Algorithm) Run(ctx context.Context) (*Result, error) {
	if err := a.acquire(); err != nil {
		return nil, err
	}
	defer a.release()

	start := a.clock.Now()
	id := uuid.New()
	pgraph.Opsf("run %s: %d samples, %d vertices, growth=%s", id, a.graph.NumSamples(), a.graph.NumVertices(), a.params.Growth)

	grew := false
	for i := 0; i < a.params.MaxOuterIterations; i++ {
		if err := ctx.Err(); err != nil {
			return nil, a.interrupted(id, err)
		}
		var err error
		grew, err = a.outerStep(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil, a.interrupted(id, ctx.Err())
			}
			return nil, fmt.Errorf("run %s failed at outer iteration %d: %w", id, a.outer+1, err)
		}
		if !grew {
			break
		}
	}
	if grew {
		if _, _, err := a.innerLoop(ctx); err != nil {
			if ctx.Err() != nil {
				return nil, a.interrupted(id, ctx.Err())
			}
			return nil, fmt.Errorf("run %s failed in final inner loop: %w", id, err)
		}
	}
	if err := a.graph.Repartition(); err != nil {
		return nil, fmt.Errorf("run %s failed in final repartition: %w", id, err)
	}

	res, err := a.result(id)
	if err != nil {
		return nil, err
	}
	res.Duration = a.clock.Since(start)
	pgraph.Opsf("run %s done in %v: %d outer, %d inner, vertices=%d edges=%d mse=%.6g",
		id, res.Duration, res.OuterIterations, res.InnerIterations, a.graph.NumVertices(), a.graph.NumEdges(), res.MSE)
	return res, nil
}

func (a *Algorithm) interrupted(id uuid.UUID, cause error) error {
	if err := a.graph.Repartition(); err != nil {
		return fmt.Errorf("run %s interrupted (%v) and failed to settle: %w", id, cause, err)
	}
	pgraph.Opsf("run %s interrupted after %d outer iterations: %v", id, a.outer, cause)
	return fmt.Errorf("run %s interrupted: %w", id, cause)
}

func (a *Algorithm) result(id uuid.UUID) (*Result, error) {
	g := a.graph
	curves, err := g.ConvertToCurves()
	if err != nil {
		return nil, fmt.Errorf("failed to convert graph to curves: %w", err)
	}
	snap, err := g.Snapshot()
	if err != nil {
		return nil, fmt.Errorf("failed to snapshot graph: %w", err)
	}
	crit, err := g.Criterion()
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate criterion: %w", err)
	}
	minRadius := math.Inf(1)
	for _, v := range g.Vertices() {
		if r, ok := g.TurningRadius(v); ok && r < minRadius {
			minRadius = r
		}
	}
	if math.IsInf(minRadius, 1) {
		minRadius = 0
	}
	return &Result{
		RunID:            id,
		Params:           a.params,
		Curves:           curves,
		Snapshot:         snap,
		OuterIterations:  a.outer,
		InnerIterations:  a.inner,
		Criterion:        crit,
		MSE:              g.MSE(),
		MinTurningRadius: minRadius,
		History:          a.History(),
	}, nil
}
