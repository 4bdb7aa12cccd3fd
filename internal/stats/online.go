package stats

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// weightEpsilon is the relative remaining weight below which a cluster is
// considered empty after a removal.
const weightEpsilon = 1e-12

// Online is a running weighted mean and variance of a point cluster.
// The zero value is an empty accumulator.
type Online struct {
	weight float64
	sum    r2.Vec
	center r2.Vec
	// sigma2W is the weighted sum of squared deviations from center.
	sigma2W float64
}

// Add inserts p with weight w. Recentering uses the parallel-axis update.
func (s *Online) Add(p r2.Vec, w float64) {
	if s.weight == 0 {
		s.weight = w
		s.sum = r2.Scale(w, p)
		s.center = p
		s.sigma2W = 0
		return
	}
	old := s.center
	oldWeight := s.weight
	s.sum = r2.Add(s.sum, r2.Scale(w, p))
	s.weight += w
	s.center = r2.Scale(1/s.weight, s.sum)
	s.sigma2W += oldWeight*r2.Norm2(r2.Sub(s.center, old)) + w*r2.Norm2(r2.Sub(s.center, p))
}

// Delete removes p with weight w. It is the inverse of Add; a cluster whose
// remaining weight is numerically zero is reset to empty.
func (s *Online) Delete(p r2.Vec, w float64) {
	rest := s.weight - w
	if rest <= weightEpsilon*math.Max(1, s.weight) {
		s.Reset()
		return
	}
	old := s.center
	s.sum = r2.Sub(s.sum, r2.Scale(w, p))
	s.weight = rest
	s.center = r2.Scale(1/s.weight, s.sum)
	s.sigma2W -= rest*r2.Norm2(r2.Sub(s.center, old)) + w*r2.Norm2(r2.Sub(old, p))
	if s.sigma2W < 0 {
		s.sigma2W = 0
	}
}

// Reset empties the accumulator.
func (s *Online) Reset() {
	*s = Online{}
}

// Weight returns the total weight.
func (s *Online) Weight() float64 { return s.weight }

// Sum returns the weighted sum of the points.
func (s *Online) Sum() r2.Vec { return s.sum }

// SigmaTimesWeight returns the weighted sum of squared deviations from the
// center.
func (s *Online) SigmaTimesWeight() float64 { return s.sigma2W }

// Center returns the weighted mean. ok is false for an empty cluster.
func (s *Online) Center() (r2.Vec, bool) {
	if s.weight == 0 {
		return r2.Vec{}, false
	}
	return s.center, true
}

// MSETimesWeight returns the weighted sum of squared distances from the
// cluster points to x, or 0 for an empty cluster.
func (s *Online) MSETimesWeight(x r2.Vec) float64 {
	if s.weight == 0 {
		return 0
	}
	return s.sigma2W + s.weight*r2.Norm2(r2.Sub(s.center, x))
}
