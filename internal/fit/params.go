package fit

import (
	"errors"
	"fmt"
	"strings"

	"github.com/banshee-data/pgraph/internal/optimize"
	"github.com/banshee-data/pgraph/internal/pgraph"
)

// GrowthMode selects how new vertices are added after each inner loop.
type GrowthMode int

const (
	// GrowthSingle splits the busiest edge.
	GrowthSingle GrowthMode = iota
	// GrowthAll splits every edge heavy enough to qualify.
	GrowthAll
	// GrowthLongest splits the longest edge.
	GrowthLongest
)

var growthModeNames = map[GrowthMode]string{
	GrowthSingle:  "single",
	GrowthAll:     "all",
	GrowthLongest: "longest",
}

func (m GrowthMode) String() string {
	if s, ok := growthModeNames[m]; ok {
		return s
	}
	return fmt.Sprintf("GrowthMode(%d)", int(m))
}

// ParseGrowthMode maps a configuration name to a GrowthMode.
func ParseGrowthMode(s string) (GrowthMode, error) {
	for m, name := range growthModeNames {
		if strings.EqualFold(s, name) {
			return m, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown growth mode %q", ErrInvalidParams, s)
}

func (m GrowthMode) MarshalText() ([]byte, error) {
	if _, ok := growthModeNames[m]; !ok {
		return nil, fmt.Errorf("%w: %v", ErrInvalidParams, m)
	}
	return []byte(m.String()), nil
}

func (m *GrowthMode) UnmarshalText(b []byte) error {
	v, err := ParseGrowthMode(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// ErrInvalidParams is returned by Validate.
var ErrInvalidParams = errors.New("invalid fit parameters")

// Params are the knobs of a fitting run.
type Params struct {
	PenaltyCoefficient               float64
	RelativeLengthPenaltyCoefficient float64
	// TerminatingConditionCoefficient scales the weight below which an
	// edge is not split in the single and all growth modes.
	TerminatingConditionCoefficient float64
	// TerminatingConditionMaxLength is the length below which the
	// longest edge is not split in the longest growth mode.
	TerminatingConditionMaxLength float64
	RelativeChangeThreshold       float64
	Growth                        GrowthMode

	MinInnerIterations int
	MaxInnerIterations int
	MaxOuterIterations int

	// Seed drives the subsample used for the principal component seed.
	Seed           int64
	SeedSampleSize int
	// JoinThreshold is the distance within which seed curve points merge.
	JoinThreshold float64

	LineSearch optimize.LineSearch
}

// DefaultParams returns the standard run parameters.
func DefaultParams() Params {
	opts := pgraph.DefaultOptions()
	return Params{
		PenaltyCoefficient:               opts.PenaltyCoefficient,
		RelativeLengthPenaltyCoefficient: opts.RelativeLengthPenaltyCoefficient,
		TerminatingConditionCoefficient:  1.0,
		TerminatingConditionMaxLength:    0,
		RelativeChangeThreshold:          0.001,
		Growth:                           GrowthSingle,
		MinInnerIterations:               2,
		MaxInnerIterations:               500,
		MaxOuterIterations:               10000,
		Seed:                             1,
		SeedSampleSize:                   100,
		JoinThreshold:                    0,
		LineSearch:                       optimize.DefaultLineSearch(),
	}
}

// Validate checks that the parameters describe a runnable fit.
func (p Params) Validate() error {
	switch {
	case p.PenaltyCoefficient < 0:
		return fmt.Errorf("%w: penalty coefficient %v is negative", ErrInvalidParams, p.PenaltyCoefficient)
	case p.RelativeLengthPenaltyCoefficient < 0:
		return fmt.Errorf("%w: relative length penalty coefficient %v is negative", ErrInvalidParams, p.RelativeLengthPenaltyCoefficient)
	case p.TerminatingConditionCoefficient <= 0 && p.Growth != GrowthLongest:
		return fmt.Errorf("%w: terminating condition coefficient must be positive", ErrInvalidParams)
	case p.TerminatingConditionMaxLength < 0:
		return fmt.Errorf("%w: terminating condition max length %v is negative", ErrInvalidParams, p.TerminatingConditionMaxLength)
	case p.Growth == GrowthLongest && p.TerminatingConditionMaxLength == 0:
		return fmt.Errorf("%w: longest growth needs a positive max length", ErrInvalidParams)
	case p.RelativeChangeThreshold <= 0:
		return fmt.Errorf("%w: relative change threshold must be positive", ErrInvalidParams)
	case p.MinInnerIterations < 1 || p.MaxInnerIterations < p.MinInnerIterations:
		return fmt.Errorf("%w: inner iterations must satisfy 1 <= min (%d) <= max (%d)", ErrInvalidParams, p.MinInnerIterations, p.MaxInnerIterations)
	case p.MaxOuterIterations < 1:
		return fmt.Errorf("%w: max outer iterations must be at least 1", ErrInvalidParams)
	case p.JoinThreshold < 0:
		return fmt.Errorf("%w: join threshold %v is negative", ErrInvalidParams, p.JoinThreshold)
	case p.LineSearch.Shrink <= 0 || p.LineSearch.Shrink >= 1:
		return fmt.Errorf("%w: line search shrink %v must be in (0,1)", ErrInvalidParams, p.LineSearch.Shrink)
	case p.LineSearch.InitialStep <= 0:
		return fmt.Errorf("%w: line search initial step must be positive", ErrInvalidParams)
	}
	if _, ok := growthModeNames[p.Growth]; !ok {
		return fmt.Errorf("%w: %v", ErrInvalidParams, p.Growth)
	}
	return nil
}

func (p Params) graphOptions() pgraph.Options {
	return pgraph.Options{
		PenaltyCoefficient:               p.PenaltyCoefficient,
		RelativeLengthPenaltyCoefficient: p.RelativeLengthPenaltyCoefficient,
	}
}
