package optimize

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// parabola is f(x) = (x - min)^2 searched from x0 along dir.
type parabola struct {
	min, x0, dir float64
	x            float64
	calls        int
	failAt       int
}

func (p *parabola) Criterion() (float64, error) {
	p.calls++
	if p.failAt > 0 && p.calls >= p.failAt {
		return 0, errors.New("boom")
	}
	d := p.x - p.min
	return d * d, nil
}

func (p *parabola) Step(t float64) { p.x = p.x0 + t*p.dir }

func newParabola(min, x0, dir float64) *parabola {
	return &parabola{min: min, x0: x0, dir: dir, x: x0}
}

func TestMinimize(t *testing.T) {
	tests := []struct {
		name      string
		p         *parabola
		wantStep  float64
		wantAfter float64
	}{
		{"exact newton step", newParabola(3, 0, 3), 1, 0},
		{"overshoot shrinks", newParabola(1, 0, 10), 0.125, 0.0625},
		{"short direction grows", newParabola(8, 0, 1), 8, 0},
		{"uphill direction rejected", newParabola(0, 2, 1), 0, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := DefaultLineSearch().Minimize(tt.p)
			require.NoError(t, err)
			assert.InDelta(t, tt.wantStep, res.Step, 1e-12)
			assert.InDelta(t, tt.wantAfter, res.After, 1e-12)
			assert.LessOrEqual(t, res.After, res.Before)
			assert.InDelta(t, tt.p.x0+res.Step*tt.p.dir, tt.p.x, 1e-12)
		})
	}
}

func TestMinimize_NeverIncreases(t *testing.T) {
	for _, dir := range []float64{-5, -0.3, 0, 0.01, 2, 100} {
		p := newParabola(1.7, -2, dir)
		res, err := DefaultLineSearch().Minimize(p)
		require.NoError(t, err)
		assert.LessOrEqual(t, res.After, res.Before, "dir %v", dir)
		got, err := p.Criterion()
		require.NoError(t, err)
		assert.InDelta(t, res.After, got, 1e-12)
	}
}

func TestMinimize_Errors(t *testing.T) {
	p := newParabola(1, 0, 1)
	p.failAt = 2
	_, err := DefaultLineSearch().Minimize(p)
	require.Error(t, err)
	assert.Equal(t, 0.0, p.x, "position restored after failure")

	nan := newParabola(math.NaN(), 0, 1)
	_, err = DefaultLineSearch().Minimize(nan)
	assert.ErrorIs(t, err, ErrNotFinite)
}
