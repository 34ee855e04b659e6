package registry

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v2"

	"surveyprep/internal/dataset"
)

// Registry holds the column semantics for one survey extract. All maps
// are keyed by canonical column names except Rename, which maps raw
// source codes to canonical names.
type Registry struct {
	// Rename maps raw source column names to canonical names.
	Rename map[string]string

	// Encodings maps a categorical column to its code-to-value map.
	// Codes absent from the map are treated as missing after encoding.
	Encodings map[string]map[int]float64

	// MissingCodes maps a categorical column to the sentinel codes
	// (refused, don't know) that must be blanked.
	MissingCodes map[string][]float64

	// NumericColumns names the strictly continuous columns. Everything
	// else is treated as categorical and rounded after imputation.
	NumericColumns map[string]bool

	// InstrumentItems are the ordered multi-item screening instrument
	// columns the composite score is derived from.
	InstrumentItems []string

	// ImpossibleZero names numeric columns where an exact zero is a
	// biological impossibility standing in for a missing value.
	ImpossibleZero []string

	// Nutrients are the base names of day-1/day-2 dietary columns that
	// are averaged into a usual-intake estimate.
	Nutrients []string

	// Survey design variables. These pass through every stage untouched
	// and are excluded from imputation.
	IDColumn      string
	WeightColumn  string
	PSUColumn     string
	StratumColumn string

	// Derived column names.
	ScoreColumn            string
	TargetColumn           string
	FlagColumn             string
	MissingIndicatorSource string
	MissingIndicatorColumn string
}

// IsNumeric reports whether the canonical column is classified as
// strictly continuous.
func (r *Registry) IsNumeric(name string) bool {
	return r.NumericColumns[name]
}

// KindOf returns the dataset kind for a canonical column name.
func (r *Registry) KindOf(name string) dataset.Kind {
	if r.IsNumeric(name) {
		return dataset.KindNumeric
	}
	return dataset.KindCategorical
}

// IsDesignVariable reports whether the column is a survey design
// variable (identifier, weight, sampling unit, stratum).
func (r *Registry) IsDesignVariable(name string) bool {
	return name == r.IDColumn || name == r.WeightColumn ||
		name == r.PSUColumn || name == r.StratumColumn
}

// ImputeExcluded reports whether the column must be excluded from
// imputation: design variables plus the derived score and target.
func (r *Registry) ImputeExcluded(name string) bool {
	return r.IsDesignVariable(name) || name == r.ScoreColumn || name == r.TargetColumn
}

// Validate checks the registry for structural completeness.
func (r *Registry) Validate() error {
	if r.IDColumn == "" {
		return fmt.Errorf("registry: identifier column not set")
	}
	if r.WeightColumn == "" {
		return fmt.Errorf("registry: weight column not set")
	}
	if r.ScoreColumn == "" || r.TargetColumn == "" || r.FlagColumn == "" {
		return fmt.Errorf("registry: derived column names not set")
	}
	if len(r.InstrumentItems) == 0 {
		return fmt.Errorf("registry: no instrument items declared")
	}
	return nil
}

// registryFile is the YAML-loadable form of a Registry.
type registryFile struct {
	Rename                 map[string]string          `yaml:"rename"`
	Encodings              map[string]map[int]float64 `yaml:"encodings"`
	MissingCodes           map[string][]float64       `yaml:"missing_codes"`
	NumericColumns         []string                   `yaml:"numeric_columns" validate:"required,min=1"`
	InstrumentItems        []string                   `yaml:"instrument_items" validate:"required,min=1"`
	ImpossibleZero         []string                   `yaml:"impossible_zero"`
	Nutrients              []string                   `yaml:"nutrients"`
	IDColumn               string                     `yaml:"id_column" validate:"required"`
	WeightColumn           string                     `yaml:"weight_column" validate:"required"`
	PSUColumn              string                     `yaml:"psu_column"`
	StratumColumn          string                     `yaml:"stratum_column"`
	ScoreColumn            string                     `yaml:"score_column" validate:"required"`
	TargetColumn           string                     `yaml:"target_column" validate:"required"`
	FlagColumn             string                     `yaml:"flag_column" validate:"required"`
	MissingIndicatorSource string                     `yaml:"missing_indicator_source"`
	MissingIndicatorColumn string                     `yaml:"missing_indicator_column"`
}

// LoadYAML reads a registry definition from a YAML file.
func LoadYAML(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read registry file: %w", err)
	}

	var rf registryFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("parse registry file: %w", err)
	}

	if err := validator.New().Struct(&rf); err != nil {
		return nil, fmt.Errorf("validate registry file: %w", err)
	}

	numeric := make(map[string]bool, len(rf.NumericColumns))
	for _, c := range rf.NumericColumns {
		numeric[c] = true
	}

	r := &Registry{
		Rename:                 rf.Rename,
		Encodings:              rf.Encodings,
		MissingCodes:           rf.MissingCodes,
		NumericColumns:         numeric,
		InstrumentItems:        rf.InstrumentItems,
		ImpossibleZero:         rf.ImpossibleZero,
		Nutrients:              rf.Nutrients,
		IDColumn:               rf.IDColumn,
		WeightColumn:           rf.WeightColumn,
		PSUColumn:              rf.PSUColumn,
		StratumColumn:          rf.StratumColumn,
		ScoreColumn:            rf.ScoreColumn,
		TargetColumn:           rf.TargetColumn,
		FlagColumn:             rf.FlagColumn,
		MissingIndicatorSource: rf.MissingIndicatorSource,
		MissingIndicatorColumn: rf.MissingIndicatorColumn,
	}
	if r.Rename == nil {
		r.Rename = map[string]string{}
	}
	if r.Encodings == nil {
		r.Encodings = map[string]map[int]float64{}
	}
	if r.MissingCodes == nil {
		r.MissingCodes = map[string][]float64{}
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}
