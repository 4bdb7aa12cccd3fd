package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/banshee-data/pgraph/internal/fit"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
const DefaultConfigPath = "config/tuning.defaults.json"

// TuningConfig is the JSON form of the fit parameters. Every field is
// optional; the Get* accessors fall back to the built-in defaults.
type TuningConfig struct {
	// Penalty params
	PenaltyCoefficient               *float64 `json:"penalty_coefficient,omitempty"`
	RelativeLengthPenaltyCoefficient *float64 `json:"relative_length_penalty_coefficient,omitempty"`

	// Growth params
	TerminatingConditionCoefficient *float64 `json:"terminating_condition_coefficient,omitempty"`
	TerminatingConditionMaxLength   *float64 `json:"terminating_condition_max_length,omitempty"`
	GrowthMode                      *string  `json:"growth_mode,omitempty"` // single, all or longest

	// Loop params
	RelativeChangeThreshold *float64 `json:"relative_change_threshold,omitempty"`
	MinInnerIterations      *int     `json:"min_inner_iterations,omitempty"`
	MaxInnerIterations      *int     `json:"max_inner_iterations,omitempty"`
	MaxOuterIterations      *int     `json:"max_outer_iterations,omitempty"`

	// Seeding params
	Seed           *int64   `json:"seed,omitempty"`
	SeedSampleSize *int     `json:"seed_sample_size,omitempty"`
	JoinThreshold  *float64 `json:"join_threshold,omitempty"`
}

func ptrFloat64(v float64) *float64 { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }
func ptrInt64(v int64) *int64       { return &v }

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// DefaultTuningConfig returns a TuningConfig with every field set to the
// value the accessors would fall back to.
func DefaultTuningConfig() *TuningConfig {
	p := fit.DefaultParams()
	return &TuningConfig{
		PenaltyCoefficient:               ptrFloat64(p.PenaltyCoefficient),
		RelativeLengthPenaltyCoefficient: ptrFloat64(p.RelativeLengthPenaltyCoefficient),
		TerminatingConditionCoefficient:  ptrFloat64(p.TerminatingConditionCoefficient),
		TerminatingConditionMaxLength:    ptrFloat64(p.TerminatingConditionMaxLength),
		GrowthMode:                       ptrString(p.Growth.String()),
		RelativeChangeThreshold:          ptrFloat64(p.RelativeChangeThreshold),
		MinInnerIterations:               ptrInt(p.MinInnerIterations),
		MaxInnerIterations:               ptrInt(p.MaxInnerIterations),
		MaxOuterIterations:               ptrInt(p.MaxOuterIterations),
		Seed:                             ptrInt64(p.Seed),
		SeedSampleSize:                   ptrInt(p.SeedSampleSize),
		JoinThreshold:                    ptrFloat64(p.JoinThreshold),
	}
}

// LoadTuningConfig loads a TuningConfig from a JSON file. Unknown keys are
// rejected so that typos do not silently fall back to defaults.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the defaults file from the repository root,
// searching upwards so that it works from package test directories.
func MustLoadDefaultConfig() *TuningConfig {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,
		"../../" + DefaultConfigPath, // from internal/config/
		"../../../" + DefaultConfigPath,
	}
	for _, path := range candidates {
		if cfg, err := LoadTuningConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run from repository root")
}

// Validate checks the fields that are set. Cross-field rules are checked
// by ToParams once defaults are filled in.
func (c *TuningConfig) Validate() error {
	for name, v := range map[string]*float64{
		"penalty_coefficient":                 c.PenaltyCoefficient,
		"relative_length_penalty_coefficient": c.RelativeLengthPenaltyCoefficient,
		"terminating_condition_max_length":    c.TerminatingConditionMaxLength,
		"join_threshold":                      c.JoinThreshold,
	} {
		if v != nil && *v < 0 {
			return fmt.Errorf("%s must be non-negative, got %f", name, *v)
		}
	}

	if c.TerminatingConditionCoefficient != nil && *c.TerminatingConditionCoefficient <= 0 {
		return fmt.Errorf("terminating_condition_coefficient must be positive, got %f", *c.TerminatingConditionCoefficient)
	}
	if c.RelativeChangeThreshold != nil && *c.RelativeChangeThreshold <= 0 {
		return fmt.Errorf("relative_change_threshold must be positive, got %f", *c.RelativeChangeThreshold)
	}

	if c.GrowthMode != nil {
		if _, err := fit.ParseGrowthMode(*c.GrowthMode); err != nil {
			return fmt.Errorf("invalid growth_mode '%s': %w", *c.GrowthMode, err)
		}
	}

	for name, v := range map[string]*int{
		"min_inner_iterations": c.MinInnerIterations,
		"max_inner_iterations": c.MaxInnerIterations,
		"max_outer_iterations": c.MaxOuterIterations,
		"seed_sample_size":     c.SeedSampleSize,
	} {
		if v != nil && *v < 1 {
			return fmt.Errorf("%s must be at least 1, got %d", name, *v)
		}
	}

	return nil
}

// ToParams fills a fit.Params from the config and validates the result.
func (c *TuningConfig) ToParams() (fit.Params, error) {
	p := fit.DefaultParams()
	p.PenaltyCoefficient = c.GetPenaltyCoefficient()
	p.RelativeLengthPenaltyCoefficient = c.GetRelativeLengthPenaltyCoefficient()
	p.TerminatingConditionCoefficient = c.GetTerminatingConditionCoefficient()
	p.TerminatingConditionMaxLength = c.GetTerminatingConditionMaxLength()
	p.Growth = c.GetGrowthMode()
	p.RelativeChangeThreshold = c.GetRelativeChangeThreshold()
	p.MinInnerIterations = c.GetMinInnerIterations()
	p.MaxInnerIterations = c.GetMaxInnerIterations()
	p.MaxOuterIterations = c.GetMaxOuterIterations()
	p.Seed = c.GetSeed()
	p.SeedSampleSize = c.GetSeedSampleSize()
	p.JoinThreshold = c.GetJoinThreshold()
	if err := p.Validate(); err != nil {
		return fit.Params{}, err
	}
	return p, nil
}

// GetPenaltyCoefficient returns the penalty_coefficient value or the default.
func (c *TuningConfig) GetPenaltyCoefficient() float64 {
	if c.PenaltyCoefficient == nil {
		return fit.DefaultParams().PenaltyCoefficient
	}
	return *c.PenaltyCoefficient
}

func (c *TuningConfig) GetRelativeLengthPenaltyCoefficient() float64 {
	if c.RelativeLengthPenaltyCoefficient == nil {
		return fit.DefaultParams().RelativeLengthPenaltyCoefficient
	}
	return *c.RelativeLengthPenaltyCoefficient
}

func (c *TuningConfig) GetTerminatingConditionCoefficient() float64 {
	if c.TerminatingConditionCoefficient == nil {
		return fit.DefaultParams().TerminatingConditionCoefficient
	}
	return *c.TerminatingConditionCoefficient
}

// GetTerminatingConditionMaxLength returns the max length, where 0 means
// the longest growth mode is not usable.
func (c *TuningConfig) GetTerminatingConditionMaxLength() float64 {
	if c.TerminatingConditionMaxLength == nil {
		return fit.DefaultParams().TerminatingConditionMaxLength
	}
	return *c.TerminatingConditionMaxLength
}

// GetGrowthMode parses and returns the growth mode, defaulting to single
// on a missing or unparseable value.
func (c *TuningConfig) GetGrowthMode() fit.GrowthMode {
	if c.GrowthMode == nil || *c.GrowthMode == "" {
		return fit.GrowthSingle
	}
	m, err := fit.ParseGrowthMode(*c.GrowthMode)
	if err != nil {
		return fit.GrowthSingle
	}
	return m
}

func (c *TuningConfig) GetRelativeChangeThreshold() float64 {
	if c.RelativeChangeThreshold == nil {
		return fit.DefaultParams().RelativeChangeThreshold
	}
	return *c.RelativeChangeThreshold
}

func (c *TuningConfig) GetMinInnerIterations() int {
	if c.MinInnerIterations == nil {
		return fit.DefaultParams().MinInnerIterations
	}
	return *c.MinInnerIterations
}

func (c *TuningConfig) GetMaxInnerIterations() int {
	if c.MaxInnerIterations == nil {
		return fit.DefaultParams().MaxInnerIterations
	}
	return *c.MaxInnerIterations
}

func (c *TuningConfig) GetMaxOuterIterations() int {
	if c.MaxOuterIterations == nil {
		return fit.DefaultParams().MaxOuterIterations
	}
	return *c.MaxOuterIterations
}

func (c *TuningConfig) GetSeed() int64 {
	if c.Seed == nil {
		return fit.DefaultParams().Seed
	}
	return *c.Seed
}

func (c *TuningConfig) GetSeedSampleSize() int {
	if c.SeedSampleSize == nil {
		return fit.DefaultParams().SeedSampleSize
	}
	return *c.SeedSampleSize
}

// GetJoinThreshold returns the join distance; 0 joins only coincident
// points.
func (c *TuningConfig) GetJoinThreshold() float64 {
	if c.JoinThreshold == nil {
		return fit.DefaultParams().JoinThreshold
	}
	return *c.JoinThreshold
}
