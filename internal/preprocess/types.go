package preprocess

import (
	"fmt"
	"strings"
)

// BiomarkerLimit is one clause of the no-acute-confounder predicate:
// a subject passes when the biomarker is at or below the limit, or
// when it is missing (deferred to imputation rather than excluded).
type BiomarkerLimit struct {
	Column string  `yaml:"column"`
	Limit  float64 `yaml:"limit"`
}

// Params carries the tunable thresholds of the preparation chain.
type Params struct {
	// Neighbors is K for the nearest-neighbor imputation.
	Neighbors int
	// MinAnswered is the minimum number of instrument items that must
	// be observed for the composite score to be defined.
	MinAnswered int
	// ScoreCutoff binarizes the composite score into the target.
	ScoreCutoff float64
	// AdultAge is the eligibility age threshold in years.
	AdultAge float64
	// BiomarkerLimits are the acute-confounder exclusion clauses.
	BiomarkerLimits []BiomarkerLimit
	// MicroEpsilon is the magnitude below which numeric values are
	// treated as precision artifacts and snapped to exactly zero.
	MicroEpsilon float64
	// LogEpsilon is added before log10 transforms to keep zero
	// observations finite.
	LogEpsilon float64
}

// DefaultParams returns the canonical parameters: K=5 neighbors, a
// 9-item instrument scored when at least 7 items are answered, cutoff
// 10, adults at 18 years, and the standard acute-inflammation limits.
func DefaultParams() Params {
	return Params{
		Neighbors:   5,
		MinAnswered: 7,
		ScoreCutoff: 10,
		AdultAge:    18,
		BiomarkerLimits: []BiomarkerLimit{
			{Column: "CRP_mgL", Limit: 10.0},
			{Column: "WBC_1000cells", Limit: 11.0},
		},
		MicroEpsilon: 1e-9,
		LogEpsilon:   0.01,
	}
}

// Validate checks the parameters for plausibility.
func (p Params) Validate() error {
	if p.Neighbors < 1 {
		return fmt.Errorf("neighbors must be at least 1, got %d", p.Neighbors)
	}
	if p.MinAnswered < 1 {
		return fmt.Errorf("min answered must be at least 1, got %d", p.MinAnswered)
	}
	if p.AdultAge < 0 {
		return fmt.Errorf("adult age must be non-negative, got %g", p.AdultAge)
	}
	if p.MicroEpsilon < 0 {
		return fmt.Errorf("micro epsilon must be non-negative, got %g", p.MicroEpsilon)
	}
	return nil
}

// ConfigurationError reports required columns or mappings that were
// absent from the table. It is local and non-fatal for optional
// sub-steps: callers log it and skip the feature rather than fabricate
// data. It is fatal only where the component cannot proceed at all,
// such as an empty impute set.
type ConfigurationError struct {
	Component string
	Missing   []string
}

// Error implements the error interface.
func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s: required columns unavailable: %s",
		e.Component, strings.Join(e.Missing, ", "))
}
