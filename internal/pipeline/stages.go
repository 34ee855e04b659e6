package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"surveyprep/internal/preprocess"
	"surveyprep/internal/registry"
)

// CleanStage normalizes encodings and strips coded artifacts.
type CleanStage struct {
	cleaner *preprocess.Cleaner
}

// NewCleanStage creates the cleaning stage.
func NewCleanStage(reg *registry.Registry, params preprocess.Params, logger *slog.Logger) *CleanStage {
	return &CleanStage{cleaner: preprocess.NewCleaner(reg, params, stageLogger(logger, StageIDClean))}
}

func (s *CleanStage) ID() string   { return StageIDClean }
func (s *CleanStage) Name() string { return StageNameClean }

// Execute runs the cleaner and replaces the run table.
func (s *CleanStage) Execute(ctx context.Context, state *State) error {
	out, err := s.cleaner.Clean(state.Table())
	if err != nil {
		return fmt.Errorf("clean: %w", err)
	}
	state.SetTable(out)
	return nil
}

// TargetStage derives the composite score and binary target.
type TargetStage struct {
	deriver *preprocess.TargetDeriver
}

// NewTargetStage creates the target derivation stage.
func NewTargetStage(reg *registry.Registry, params preprocess.Params, logger *slog.Logger) *TargetStage {
	return &TargetStage{deriver: preprocess.NewTargetDeriver(reg, params, stageLogger(logger, StageIDTarget))}
}

func (s *TargetStage) ID() string   { return StageIDTarget }
func (s *TargetStage) Name() string { return StageNameTarget }

func (s *TargetStage) Execute(ctx context.Context, state *State) error {
	out, err := s.deriver.Derive(state.Table())
	if err != nil {
		return fmt.Errorf("derive target: %w", err)
	}
	state.SetTable(out)
	return nil
}

// EligibilityStage recomputes the analytic subpopulation flag.
type EligibilityStage struct {
	flagger *preprocess.EligibilityFlagger
}

// NewEligibilityStage creates the eligibility stage.
func NewEligibilityStage(reg *registry.Registry, params preprocess.Params, logger *slog.Logger) *EligibilityStage {
	return &EligibilityStage{flagger: preprocess.NewEligibilityFlagger(reg, params, stageLogger(logger, StageIDEligibility))}
}

func (s *EligibilityStage) ID() string   { return StageIDEligibility }
func (s *EligibilityStage) Name() string { return StageNameEligibility }

func (s *EligibilityStage) Execute(ctx context.Context, state *State) error {
	out, err := s.flagger.Flag(state.Table())
	if err != nil {
		return fmt.Errorf("flag eligibility: %w", err)
	}
	state.SetTable(out)
	return nil
}

// DietaryStage averages the day-1/day-2 dietary recalls.
type DietaryStage struct {
	averager *preprocess.DietaryAverager
}

// NewDietaryStage creates the dietary averaging stage.
func NewDietaryStage(reg *registry.Registry, logger *slog.Logger) *DietaryStage {
	return &DietaryStage{averager: preprocess.NewDietaryAverager(reg, stageLogger(logger, StageIDDietary))}
}

func (s *DietaryStage) ID() string   { return StageIDDietary }
func (s *DietaryStage) Name() string { return StageNameDietary }

func (s *DietaryStage) Execute(ctx context.Context, state *State) error {
	out, err := s.averager.Average(state.Table())
	if err != nil {
		return fmt.Errorf("average dietary recalls: %w", err)
	}
	state.SetTable(out)
	return nil
}

// ImputeStage fills missing values by nearest-neighbor averaging.
type ImputeStage struct {
	imputer *preprocess.Imputer
}

// NewImputeStage creates the imputation stage.
func NewImputeStage(reg *registry.Registry, params preprocess.Params, logger *slog.Logger) *ImputeStage {
	return &ImputeStage{imputer: preprocess.NewImputer(reg, params, stageLogger(logger, StageIDImpute))}
}

func (s *ImputeStage) ID() string   { return StageIDImpute }
func (s *ImputeStage) Name() string { return StageNameImpute }

func (s *ImputeStage) Execute(ctx context.Context, state *State) error {
	out, err := s.imputer.Impute(ctx, state.Table())
	if err != nil {
		return fmt.Errorf("impute: %w", err)
	}
	state.SetTable(out)
	return nil
}

// FeatureStage derives the secondary clinical indices.
type FeatureStage struct {
	engineer *preprocess.FeatureEngineer
}

// NewFeatureStage creates the feature engineering stage.
func NewFeatureStage(reg *registry.Registry, params preprocess.Params, logger *slog.Logger) *FeatureStage {
	return &FeatureStage{engineer: preprocess.NewFeatureEngineer(reg, params, stageLogger(logger, StageIDFeatures))}
}

func (s *FeatureStage) ID() string   { return StageIDFeatures }
func (s *FeatureStage) Name() string { return StageNameFeatures }

func (s *FeatureStage) Execute(ctx context.Context, state *State) error {
	out, skipped, err := s.engineer.Engineer(state.Table())
	if err != nil {
		return fmt.Errorf("engineer features: %w", err)
	}
	if len(skipped) > 0 {
		state.AddDiagnostic("feature sub-steps skipped: " + strings.Join(skipped, ", "))
	}
	state.SetTable(out)
	return nil
}

// stageLogger attaches the stage identifier to every log record.
func stageLogger(logger *slog.Logger, stageID string) *slog.Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return logger.With(slog.String("stage", stageID))
}
